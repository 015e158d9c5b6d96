package tools

import (
	"context"

	"backend/internal/logger"
	"backend/internal/metrics"
	llmtypes "backend/pkg/llm"

	"go.uber.org/zap"
)

// CatalogueProvider 租户动态工具目录（MCP 发现）
// 实现方负责缓存与超时控制，这里不感知
type CatalogueProvider interface {
	TenantTools(ctx context.Context, tenantID string) ([]*ToolDefinition, error)
}

// LoadResult 工具解析结果
// Missing 非空不是错误：缺失工具降级继续，不让整轮对话失败
type LoadResult struct {
	Tools   []llmtypes.Tool // 成功解析的工具规格
	Missing []string        // 未解析到的工具名
}

// Loader 工具加载器：静态注册表优先，动态目录兜底
type Loader struct {
	registry  *Registry
	catalogue CatalogueProvider // 可为 nil（未接 MCP 时只有静态工具）
}

// NewLoader 创建工具加载器
func NewLoader(registry *Registry, catalogue CatalogueProvider) *Loader {
	return &Loader{registry: registry, catalogue: catalogue}
}

// Load 按名称解析 Agent 声明的工具
// 目录刷新失败只降级为静态工具，静态注册表是始终可用的下限
func (l *Loader) Load(ctx context.Context, tenantID string, names []string) *LoadResult {
	result := &LoadResult{}
	if len(names) == 0 {
		return result
	}

	// 动态目录整批拉一次，按名索引
	dynamic := make(map[string]*ToolDefinition)
	if l.catalogue != nil {
		defs, err := l.catalogue.TenantTools(ctx, tenantID)
		if err != nil {
			logger.Warn("租户工具目录不可用，仅使用静态工具",
				zap.String("tenant_id", tenantID),
				zap.Error(err),
			)
		}
		for _, def := range defs {
			dynamic[def.Name] = def
		}
	}

	for _, name := range names {
		if def, ok := l.registry.Get(name); ok {
			result.Tools = append(result.Tools, def.ToSpec())
			metrics.ToolsLoadedTotal.WithLabelValues(def.Source).Inc()
			continue
		}
		if def, ok := dynamic[name]; ok {
			result.Tools = append(result.Tools, def.ToSpec())
			metrics.ToolsLoadedTotal.WithLabelValues(def.Source).Inc()
			continue
		}
		result.Missing = append(result.Missing, name)
	}

	if len(result.Missing) > 0 {
		logger.Warn("部分工具未解析到，对话降级继续",
			zap.String("tenant_id", tenantID),
			zap.Strings("missing", result.Missing),
		)
	}
	return result
}
