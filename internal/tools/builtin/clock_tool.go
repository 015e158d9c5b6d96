package builtin

import "backend/internal/tools"

// ClockToolDefinition 当前时间工具（无需外部依赖，所有租户可用）
func ClockToolDefinition() *tools.ToolDefinition {
	return &tools.ToolDefinition{
		Name:        "get_current_time",
		DisplayName: "当前时间",
		Description: "获取当前的日期与时间，可指定 IANA 时区（默认 UTC）",
		Source:      tools.SourceBuiltin,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"timezone": map[string]any{
					"type":        "string",
					"description": "IANA 时区名称，例如 Asia/Shanghai；缺省为 UTC",
				},
			},
		},
	}
}
