package chat

// ChatRequest 对话请求体
type ChatRequest struct {
	AgentID       string `json:"agent_id" binding:"required"`
	Message       string `json:"message" binding:"required"`
	SessionID     string `json:"session_id"`     // 为空则开启新会话
	ModelOverride string `json:"model_override"` // 覆盖 Agent 默认模型
}
