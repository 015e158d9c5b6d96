package tasks

// Task Types
const (
	TypeRecordUsage = "usage:record_history"
)

// RecordUsagePayload 用量历史落库任务载荷
type RecordUsagePayload struct {
	TenantID         string `json:"tenant_id"`
	SessionID        string `json:"session_id"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}
