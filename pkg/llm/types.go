package llm

import "context"

// Message 对话消息
type Message struct {
	Role       string     `json:"role"`                   // system, user, assistant, tool
	Content    string     `json:"content"`                // 消息内容
	Name       string     `json:"name,omitempty"`         // 发送者名称 (role=tool 时必填)
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // 模型请求的工具调用 (role=assistant)
	ToolCallID string     `json:"tool_call_id,omitempty"` // 工具调用的 ID (role=tool)
}

// ChatRequest 流式对话请求
type ChatRequest struct {
	Model         string    `json:"model"`                     // 模型标识（网关为 provider/model 形式，遗留适配器为裸模型名）
	Messages      []Message `json:"messages"`                  // 完整提示词（system + 历史 + 本轮用户消息）
	Temperature   float64   `json:"temperature"`               // 温度参数（0-2）
	MaxTokens     int       `json:"max_tokens"`                // 最大生成 Token 数
	Tools         []Tool    `json:"tools,omitempty"`           // 可用工具列表（Function Calling）
	UseFileSearch bool      `json:"use_file_search,omitempty"` // 允许底层框架注入文件检索上下文
}

// Usage Token 使用情况
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`     // 输入 Token 数
	CompletionTokens int `json:"completion_tokens"` // 输出 Token 数
	TotalTokens      int `json:"total_tokens"`      // 总 Token 数
}

// StreamChunk 流式响应块
// Done=true 的块可携带 Usage（提供方上报的最终用量）
type StreamChunk struct {
	ID      string `json:"id"`              // 响应 ID
	Model   string `json:"model"`           // 实际使用的模型
	Content string `json:"content"`         // 增量内容
	Done    bool   `json:"done"`            // 是否结束
	Usage   *Usage `json:"usage,omitempty"` // 最终用量（仅 Done 块）
}

// Tool 工具定义（OpenAI Function Calling 格式）
type Tool struct {
	Type     string      `json:"type"`     // 固定为 "function"
	Function FunctionDef `json:"function"` // 函数定义
}

// FunctionDef 函数定义
type FunctionDef struct {
	Name        string         `json:"name"`        // 函数名称
	Description string         `json:"description"` // 函数描述
	Parameters  map[string]any `json:"parameters"`  // JSON Schema 参数定义
}

// ToolCall 工具调用请求（模型返回）
type ToolCall struct {
	ID       string `json:"id"`   // 调用 ID
	Type     string `json:"type"` // 固定为 "function"
	Function struct {
		Name      string `json:"name"`      // 函数名称
		Arguments string `json:"arguments"` // JSON 格式的参数
	} `json:"function"`
}

// ChatClient 聊天模型客户端统一接口
// 由网关适配器与各遗留单一提供方适配器实现
type ChatClient interface {
	// ChatStream 流式对话补全
	// chunk channel 持续发送响应块直到完成；错误通过 error channel 上报
	ChatStream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, <-chan error)

	// SupportedModels 返回该客户端支持的模型标识列表
	SupportedModels() []string

	// Supports 判断是否支持给定的模型标识
	Supports(modelIdentifier string) bool

	// Name 返回客户端名称（如 "gateway", "openai"）
	Name() string

	// Close 关闭客户端连接
	Close() error
}

// ClientConfig 客户端配置
type ClientConfig struct {
	APIKey  string // API Key
	BaseURL string // 基础 URL
	Timeout int    // 单次调用总超时（秒）
}

// ErrorType 错误类型
type ErrorType string

const (
	ErrorTypeAuth          ErrorType = "auth"           // 认证错误，不可重试
	ErrorTypeRateLimit     ErrorType = "rate_limit"     // 速率限制，可重试
	ErrorTypeInvalidParams ErrorType = "invalid_params" // 参数错误，不可重试
	ErrorTypeInvalidModel  ErrorType = "invalid_model"  // 模型不存在，不可重试
	ErrorTypeServerError   ErrorType = "server_error"   // 提供方 5xx，可重试
	ErrorTypeNetwork       ErrorType = "network"        // 网络错误/超时，可重试
	ErrorTypeTLS           ErrorType = "tls"            // 证书校验失败，不可重试；与普通网络错误区分以便排查代理环境
	ErrorTypeUnknown       ErrorType = "unknown"        // 未知错误
)

// ClientError 客户端错误
type ClientError struct {
	Type    ErrorType // 错误类型
	Message string    // 错误消息
	Err     error     // 原始错误
}

// Error 实现 error 接口
func (e *ClientError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 返回原始错误
func (e *ClientError) Unwrap() error {
	return e.Err
}

// IsRetryable 判断错误是否可重试
// TLS 证书错误虽属网络层面，但重试无意义，视为终态
func (e *ClientError) IsRetryable() bool {
	return e.Type == ErrorTypeRateLimit || e.Type == ErrorTypeNetwork || e.Type == ErrorTypeServerError
}
