package llm

import (
	"sync"

	llmtypes "backend/pkg/llm"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// EstimateTokens 估算文本的 Token 数
// 使用 cl100k_base 编码器；初始化失败时退回 4 字符/Token 的粗略估算
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})

	if encoding == nil {
		return (len(text) + 3) / 4
	}
	return len(encoding.Encode(text, nil, nil))
}

// EstimateMessagesTokens 估算一组消息的 Token 总数
// 每条消息额外计 4 个 Token 的消息框架开销（角色标记等）
func EstimateMessagesTokens(messages []llmtypes.Message) int {
	total := 0
	for _, msg := range messages {
		total += EstimateTokens(msg.Content) + 4
	}
	return total
}
