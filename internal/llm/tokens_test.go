package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"backend/internal/llm"
	llmtypes "backend/pkg/llm"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, llm.EstimateTokens(""))

	short := llm.EstimateTokens("你好")
	long := llm.EstimateTokens("你好，请帮我写一篇关于秋天的散文，大约五百字左右。")
	assert.Greater(t, short, 0)
	assert.Greater(t, long, short)
}

func TestEstimateMessagesTokens(t *testing.T) {
	assert.Equal(t, 0, llm.EstimateMessagesTokens(nil))

	messages := []llmtypes.Message{
		{Role: "system", Content: "你是一个写作助手"},
		{Role: "user", Content: "帮我改写这段话"},
	}
	total := llm.EstimateMessagesTokens(messages)
	perMessage := llm.EstimateTokens(messages[0].Content) + llm.EstimateTokens(messages[1].Content)
	// 每条消息计入固定的框架开销
	assert.Equal(t, perMessage+8, total)
}
