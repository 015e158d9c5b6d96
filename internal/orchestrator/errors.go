// Package orchestrator 对话编排：串联 Agent、模型解析、配额、工具与会话存储
package orchestrator

import (
	"errors"

	"backend/internal/agents"
	"backend/internal/conversation"
	"backend/internal/llm"
	"backend/internal/usage"
	llmtypes "backend/pkg/llm"
)

// 请求参数错误
var (
	ErrEmptyMessage = errors.New("消息内容不能为空")
)

// Kind 面向调用方的错误类别，HTTP 层据此映射状态码
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindForbidden        Kind = "forbidden"
	KindInvalidRequest   Kind = "invalid_request"
	KindUnsupportedModel Kind = "unsupported_model"
	KindQuotaExceeded    Kind = "quota_exceeded"
	KindStoreUnavailable Kind = "store_unavailable"
	KindProviderError    Kind = "provider_error"
	KindUnavailable      Kind = "temporarily_unavailable"
	KindInternal         Kind = "internal"
)

// asClientError errors.As 的便捷封装
func asClientError(err error, target **llmtypes.ClientError) bool {
	return errors.As(err, target)
}

// Classify 归类编排过程中的错误
func Classify(err error) Kind {
	if err == nil {
		return ""
	}

	var unsupported *llm.UnsupportedModelError
	var quota *usage.QuotaExceededError
	var client *llmtypes.ClientError

	switch {
	case errors.Is(err, agents.ErrAgentNotFound),
		errors.Is(err, conversation.ErrSessionNotFound):
		return KindNotFound
	case errors.Is(err, conversation.ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrEmptyMessage):
		return KindInvalidRequest
	case errors.As(err, &unsupported):
		return KindUnsupportedModel
	case errors.As(err, &quota):
		return KindQuotaExceeded
	case errors.Is(err, conversation.ErrStoreUnavailable):
		return KindStoreUnavailable
	case errors.As(err, &client):
		if client.IsRetryable() {
			// 进入这里说明重试已耗尽
			return KindUnavailable
		}
		return KindProviderError
	default:
		return KindInternal
	}
}
