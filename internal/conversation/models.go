package conversation

import "time"

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 会话消息
// 注意：Agent 的系统提示词不落库，每次调用时重建，历史中只有 user/assistant
type Message struct {
	Role      string            `json:"role"`               // system, user, assistant
	Content   string            `json:"content"`            // 消息内容
	Timestamp time.Time         `json:"timestamp"`          // 消息时间
	Metadata  map[string]string `json:"metadata,omitempty"` // 附加信息，如 assistant 消息的实际模型
}

// SessionInfo 会话概要（用于"我的会话"列表）
type SessionInfo struct {
	SessionID      string    `json:"sessionId"`
	AgentID        string    `json:"agentId"`
	Title          string    `json:"title"`
	Pinned         bool      `json:"pinned"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}
