package tools

import llmtypes "backend/pkg/llm"

// 工具来源
const (
	SourceBuiltin = "builtin" // 静态注册的内置工具
	SourceMCP     = "mcp"     // 租户动态目录（MCP）发现的工具
)

// ToolDefinition 工具定义
// 编排核心只向模型提供工具规格，实际调用由提供方网关一侧完成
type ToolDefinition struct {
	Name        string         `json:"name"`
	DisplayName string         `json:"displayName"`
	Description string         `json:"description"`
	Source      string         `json:"source"`     // builtin, mcp
	Parameters  map[string]any `json:"parameters"` // JSON Schema 参数定义
}

// ToSpec 转换为模型侧的 Function Calling 规格
func (d *ToolDefinition) ToSpec() llmtypes.Tool {
	return llmtypes.Tool{
		Type: "function",
		Function: llmtypes.FunctionDef{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		},
	}
}
