// Package llm 模型解析：将模型标识映射到具体的流式对话适配器
package llm

import (
	"sync"

	"backend/internal/config"
	"backend/internal/llm/gateway"
	"backend/internal/llm/gemini"
	"backend/internal/llm/openai"
	"backend/internal/logger"
	llmtypes "backend/pkg/llm"

	"go.uber.org/zap"
)

// Candidate 适配器候选：名称 + 延迟构造器
// 列表第一项为主网关，其余为遗留回退链
type Candidate struct {
	Name  string
	Build func() (llmtypes.ChatClient, error)
}

// Resolver 模型解析器
// 适配器列表惰性初始化一次，之后只读；并发解析安全
type Resolver struct {
	once       sync.Once
	candidates []Candidate
	adapters   []llmtypes.ChatClient
}

// NewResolver 创建解析器，候选顺序：网关 → openai → gemini
func NewResolver(cfg *config.LLMConfig) *Resolver {
	timeout := cfg.RequestTimeout
	return &Resolver{
		candidates: []Candidate{
			{Name: "gateway", Build: func() (llmtypes.ChatClient, error) {
				return gateway.NewClient(&cfg.Gateway, timeout)
			}},
			{Name: "openai", Build: func() (llmtypes.ChatClient, error) {
				return openai.NewClient(&cfg.OpenAI, timeout)
			}},
			{Name: "gemini", Build: func() (llmtypes.ChatClient, error) {
				return gemini.NewClient(&cfg.Gemini, timeout)
			}},
		},
	}
}

// NewResolverWithCandidates 用自定义候选列表创建解析器（测试用）
func NewResolverWithCandidates(candidates ...Candidate) *Resolver {
	return &Resolver{candidates: candidates}
}

// init 初始化适配器列表
// 主网关可构造则独占（早退策略），遗留适配器仅在网关缺席时初始化
func (r *Resolver) init() {
	if len(r.candidates) == 0 {
		return
	}

	primary := r.candidates[0]
	client, err := primary.Build()
	if err == nil {
		r.adapters = []llmtypes.ChatClient{client}
		logger.Info("模型网关适配器已启用", zap.String("adapter", primary.Name))
		return
	}
	logger.Warn("模型网关不可用，回退遗留适配器链",
		zap.String("adapter", primary.Name),
		zap.Error(err),
	)

	for _, cand := range r.candidates[1:] {
		client, err := cand.Build()
		if err != nil {
			logger.Warn("遗留适配器初始化失败，跳过",
				zap.String("adapter", cand.Name),
				zap.Error(err),
			)
			continue
		}
		r.adapters = append(r.adapters, client)
	}
}

// Resolve 解析模型标识为具体适配器
// 未命中返回 *UnsupportedModelError，携带全部可用模型标识
func (r *Resolver) Resolve(modelIdentifier string) (llmtypes.ChatClient, error) {
	r.once.Do(r.init)

	for _, adapter := range r.adapters {
		if adapter.Supports(modelIdentifier) {
			return adapter, nil
		}
	}

	return nil, &UnsupportedModelError{
		Model:     modelIdentifier,
		Supported: r.supportedModels(),
	}
}

// SupportedModels 返回当前所有已初始化适配器支持的模型标识
func (r *Resolver) SupportedModels() []string {
	r.once.Do(r.init)
	return r.supportedModels()
}

func (r *Resolver) supportedModels() []string {
	var all []string
	for _, adapter := range r.adapters {
		all = append(all, adapter.SupportedModels()...)
	}
	return all
}

// Close 关闭所有适配器
func (r *Resolver) Close() error {
	r.once.Do(r.init)
	for _, adapter := range r.adapters {
		_ = adapter.Close()
	}
	return nil
}
