package agents

// CreateAgentRequest 创建 Agent 请求体
type CreateAgentRequest struct {
	Name              string   `json:"name" binding:"required"`
	Description       string   `json:"description"`
	SystemInstruction string   `json:"system_instruction"`
	ModelIdentifier   string   `json:"model_identifier" binding:"required"`
	ToolNames         []string `json:"tool_names"`
	Temperature       float64  `json:"temperature"`
	MaxTokens         int      `json:"max_tokens"`
	UseFileSearch     bool     `json:"use_file_search"`
	IsPublic          bool     `json:"is_public"`
}

// UpdateAgentRequest 更新 Agent 请求体，nil 字段不修改
type UpdateAgentRequest struct {
	Name              *string   `json:"name"`
	Description       *string   `json:"description"`
	SystemInstruction *string   `json:"system_instruction"`
	ModelIdentifier   *string   `json:"model_identifier"`
	ToolNames         *[]string `json:"tool_names"`
	Temperature       *float64  `json:"temperature"`
	MaxTokens         *int      `json:"max_tokens"`
	UseFileSearch     *bool     `json:"use_file_search"`
	IsPublic          *bool     `json:"is_public"`
}
