package tools_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"backend/internal/metrics"
	"backend/internal/tools"
	"backend/internal/tools/builtin"
)

// fakeCatalogue 可编排结果的假租户目录
type fakeCatalogue struct {
	defs  []*tools.ToolDefinition
	err   error
	calls int
}

func (f *fakeCatalogue) TenantTools(ctx context.Context, tenantID string) ([]*tools.ToolDefinition, error) {
	f.calls++
	return f.defs, f.err
}

func newBuiltinRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	registry := tools.NewRegistry()
	if err := builtin.RegisterAll(registry); err != nil {
		t.Fatalf("注册内置工具失败: %v", err)
	}
	return registry
}

func TestLoad_MissingToolDegrades(t *testing.T) {
	loader := tools.NewLoader(newBuiltinRegistry(t), nil)

	result := loader.Load(context.Background(), "tenant-1", []string{"get_current_time", "no_such_tool"})

	if len(result.Tools) != 1 {
		t.Fatalf("期望解析到 1 个工具，实际 %d", len(result.Tools))
	}
	if result.Tools[0].Function.Name != "get_current_time" {
		t.Fatalf("期望内置时钟工具，实际 %s", result.Tools[0].Function.Name)
	}
	if len(result.Missing) != 1 || result.Missing[0] != "no_such_tool" {
		t.Fatalf("期望缺失列表含 no_such_tool，实际 %v", result.Missing)
	}
}

func TestLoad_DynamicCatalogueFallback(t *testing.T) {
	catalogue := &fakeCatalogue{defs: []*tools.ToolDefinition{{
		Name:        "search_docs",
		Description: "搜索租户文档库",
		Source:      tools.SourceMCP,
		Parameters:  map[string]any{"type": "object"},
	}}}
	loader := tools.NewLoader(newBuiltinRegistry(t), catalogue)

	result := loader.Load(context.Background(), "tenant-1", []string{"get_current_time", "search_docs"})

	if len(result.Tools) != 2 {
		t.Fatalf("期望静态+动态共 2 个工具，实际 %d", len(result.Tools))
	}
	if len(result.Missing) != 0 {
		t.Fatalf("不应有缺失工具: %v", result.Missing)
	}
	if catalogue.calls != 1 {
		t.Fatalf("目录应整批拉取一次，实际 %d 次", catalogue.calls)
	}
}

func TestLoad_StaticShadowsDynamic(t *testing.T) {
	catalogue := &fakeCatalogue{defs: []*tools.ToolDefinition{{
		Name:       "get_current_time",
		Source:     tools.SourceMCP,
		Parameters: map[string]any{"type": "object", "required": []string{"zone"}},
	}}}
	loader := tools.NewLoader(newBuiltinRegistry(t), catalogue)

	result := loader.Load(context.Background(), "tenant-1", []string{"get_current_time"})

	if len(result.Tools) != 1 {
		t.Fatalf("同名工具不应重复，实际 %d", len(result.Tools))
	}
	// 静态注册表优先于动态目录
	params := result.Tools[0].Function.Parameters
	if _, shadowed := params["required"]; shadowed {
		t.Fatalf("期望静态定义生效，实际拿到动态定义")
	}
}

func TestLoad_CatalogueErrorStaticOnly(t *testing.T) {
	catalogue := &fakeCatalogue{err: errors.New("目录刷新失败")}
	loader := tools.NewLoader(newBuiltinRegistry(t), catalogue)

	result := loader.Load(context.Background(), "tenant-1", []string{"get_current_time", "search_docs"})

	if len(result.Tools) != 1 || result.Tools[0].Function.Name != "get_current_time" {
		t.Fatalf("目录失败时应降级为静态工具，实际 %v", result.Tools)
	}
	if len(result.Missing) != 1 || result.Missing[0] != "search_docs" {
		t.Fatalf("动态工具应记入缺失列表，实际 %v", result.Missing)
	}
}

func TestLoad_EmptyNamesSkipsCatalogue(t *testing.T) {
	catalogue := &fakeCatalogue{}
	loader := tools.NewLoader(newBuiltinRegistry(t), catalogue)

	result := loader.Load(context.Background(), "tenant-1", nil)

	if len(result.Tools) != 0 || len(result.Missing) != 0 {
		t.Fatalf("空声明应返回空结果")
	}
	if catalogue.calls != 0 {
		t.Fatalf("空声明不应触发目录拉取")
	}
}

func TestLoad_CountsLoadedToolsBySource(t *testing.T) {
	catalogue := &fakeCatalogue{defs: []*tools.ToolDefinition{{
		Name:       "search_docs",
		Source:     tools.SourceMCP,
		Parameters: map[string]any{"type": "object"},
	}}}
	loader := tools.NewLoader(newBuiltinRegistry(t), catalogue)

	// 指标为进程级累计值，断言增量
	builtinBefore := testutil.ToFloat64(metrics.ToolsLoadedTotal.WithLabelValues(tools.SourceBuiltin))
	mcpBefore := testutil.ToFloat64(metrics.ToolsLoadedTotal.WithLabelValues(tools.SourceMCP))

	result := loader.Load(context.Background(), "tenant-1", []string{"get_current_time", "search_docs", "ghost_tool"})
	if len(result.Tools) != 2 {
		t.Fatalf("期望解析到 2 个工具，实际 %d", len(result.Tools))
	}

	builtinDelta := testutil.ToFloat64(metrics.ToolsLoadedTotal.WithLabelValues(tools.SourceBuiltin)) - builtinBefore
	mcpDelta := testutil.ToFloat64(metrics.ToolsLoadedTotal.WithLabelValues(tools.SourceMCP)) - mcpBefore
	if builtinDelta != 1 {
		t.Fatalf("期望内置工具计数 +1，实际 +%v", builtinDelta)
	}
	if mcpDelta != 1 {
		t.Fatalf("期望 MCP 工具计数 +1，实际 +%v", mcpDelta)
	}
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	registry := tools.NewRegistry()
	def := &tools.ToolDefinition{Name: "echo", Source: tools.SourceBuiltin}
	if err := registry.Register(def); err != nil {
		t.Fatalf("首次注册失败: %v", err)
	}
	if err := registry.Register(def); err == nil {
		t.Fatalf("重复注册应报错")
	}
	if registry.Count() != 1 {
		t.Fatalf("期望 1 个工具，实际 %d", registry.Count())
	}
}
