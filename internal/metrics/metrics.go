// Package metrics Prometheus 指标定义
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 对话指标
var (
	// ChatRequestsTotal 对话请求总数
	ChatRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentchat_chat_requests_total",
			Help: "对话请求总数",
		},
		[]string{"status"},
	)

	// ChatDuration 单轮对话耗时（秒）
	ChatDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentchat_chat_duration_seconds",
			Help:    "单轮对话耗时分布",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"model"},
	)

	// ChatRetriesTotal 模型调用重试总数
	ChatRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentchat_chat_retries_total",
			Help: "模型调用重试总数",
		},
		[]string{"model", "error_type"},
	)

	// ChatStreamInterruptionsTotal 流式响应中断总数
	ChatStreamInterruptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentchat_chat_stream_interruptions_total",
			Help: "流式响应中断总数",
		},
		[]string{"model"},
	)
)

// Token 指标
var (
	// PromptTokensTotal 输入 Token 总数
	PromptTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentchat_prompt_tokens_total",
			Help: "输入 Token 总数",
		},
		[]string{"tenant_id", "model"},
	)

	// CompletionTokensTotal 输出 Token 总数
	CompletionTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentchat_completion_tokens_total",
			Help: "输出 Token 总数",
		},
		[]string{"tenant_id", "model"},
	)

	// QuotaRejectionsTotal 配额拒绝总数
	QuotaRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentchat_quota_rejections_total",
			Help: "配额拒绝总数",
		},
		[]string{"tenant_id"},
	)
)

// 工具指标
var (
	// ToolsLoadedTotal 已加载的工具总数
	ToolsLoadedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentchat_tools_loaded_total",
			Help: "注入对话的工具总数",
		},
		[]string{"source"},
	)

	// ToolsMissingTotal 缺失工具降级总数
	ToolsMissingTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentchat_tools_missing_total",
			Help: "声明但未能解析的工具总数",
		},
	)
)
