package openaicompat_test

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"backend/internal/llm/openaicompat"
	llmtypes "backend/pkg/llm"
)

func apiError(status int, message string) *openai.APIError {
	return &openai.APIError{HTTPStatusCode: status, Message: message}
}

func TestWrapError_StatusCodeClassification(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		wantType  llmtypes.ErrorType
		retryable bool
	}{
		{"认证失败", apiError(401, "invalid api key"), llmtypes.ErrorTypeAuth, false},
		{"无权限", apiError(403, "forbidden"), llmtypes.ErrorTypeAuth, false},
		{"限流", apiError(429, "rate limit"), llmtypes.ErrorTypeRateLimit, true},
		{"模型不存在", apiError(404, "not found"), llmtypes.ErrorTypeInvalidModel, false},
		{"模型名非法", apiError(400, "the model `x` does not exist"), llmtypes.ErrorTypeInvalidModel, false},
		{"参数错误", apiError(400, "invalid temperature"), llmtypes.ErrorTypeInvalidParams, false},
		{"提供方故障", apiError(500, "internal"), llmtypes.ErrorTypeServerError, true},
		{"网关超时", apiError(503, "overloaded"), llmtypes.ErrorTypeServerError, true},
		{"调用超时", context.DeadlineExceeded, llmtypes.ErrorTypeNetwork, true},
		{"未知错误", errors.New("something odd"), llmtypes.ErrorTypeUnknown, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := openaicompat.WrapError("openai", tc.err)
			if wrapped.Type != tc.wantType {
				t.Fatalf("期望类型 %s，实际 %s", tc.wantType, wrapped.Type)
			}
			if wrapped.IsRetryable() != tc.retryable {
				t.Fatalf("可重试判定不符: %s", wrapped.Type)
			}
			if !errors.Is(wrapped, tc.err) {
				t.Fatalf("应保留原始错误链")
			}
		})
	}
}

func TestWrapError_TLSDistinctFromNetwork(t *testing.T) {
	certErr := fmt.Errorf("调用失败: %w", x509.UnknownAuthorityError{})
	wrapped := openaicompat.WrapError("gateway", certErr)

	if wrapped.Type != llmtypes.ErrorTypeTLS {
		t.Fatalf("证书错误应归类为 TLS，实际 %s", wrapped.Type)
	}
	// 证书问题重试无意义
	if wrapped.IsRetryable() {
		t.Fatalf("TLS 错误不应重试")
	}
}

func TestWrapError_PassthroughAndNil(t *testing.T) {
	if openaicompat.WrapError("openai", nil) != nil {
		t.Fatalf("nil 错误应原样返回 nil")
	}

	original := &llmtypes.ClientError{Type: llmtypes.ErrorTypeRateLimit, Message: "已归类"}
	wrapped := openaicompat.WrapError("openai", fmt.Errorf("重试第 2 次: %w", original))
	if wrapped != original {
		t.Fatalf("已归类错误应原样透传")
	}
}
