package openaicompat

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"

	llmtypes "backend/pkg/llm"

	openai "github.com/sashabaranov/go-openai"
)

// WrapError 将底层 SDK/网络错误归类为统一的 ClientError
// 所有适配器共用，避免每个客户端各写一套分类逻辑
func WrapError(provider string, err error) *llmtypes.ClientError {
	if err == nil {
		return nil
	}

	// 已经是归类过的错误，原样返回
	var ce *llmtypes.ClientError
	if errors.As(err, &ce) {
		return ce
	}

	wrap := func(t llmtypes.ErrorType) *llmtypes.ClientError {
		return &llmtypes.ClientError{
			Type:    t,
			Message: fmt.Sprintf("%s API 错误", provider),
			Err:     err,
		}
	}

	// TLS 证书校验失败必须与普通网络错误区分，
	// 运维需要据此排查企业代理/TLS 拦截环境
	if isCertificateError(err) {
		return wrap(llmtypes.ErrorTypeTLS)
	}

	// OpenAI 协议错误按状态码归类
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			return wrap(llmtypes.ErrorTypeAuth)
		case apiErr.HTTPStatusCode == 429:
			return wrap(llmtypes.ErrorTypeRateLimit)
		case apiErr.HTTPStatusCode == 404:
			return wrap(llmtypes.ErrorTypeInvalidModel)
		case apiErr.HTTPStatusCode == 400:
			if strings.Contains(strings.ToLower(apiErr.Message), "model") {
				return wrap(llmtypes.ErrorTypeInvalidModel)
			}
			return wrap(llmtypes.ErrorTypeInvalidParams)
		case apiErr.HTTPStatusCode >= 500:
			return wrap(llmtypes.ErrorTypeServerError)
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode >= 500 {
			return wrap(llmtypes.ErrorTypeServerError)
		}
	}

	// 超时与连接失败均视为可重试的网络错误
	if errors.Is(err, context.DeadlineExceeded) {
		return wrap(llmtypes.ErrorTypeNetwork)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return wrap(llmtypes.ErrorTypeNetwork)
	}

	return wrap(llmtypes.ErrorTypeUnknown)
}

// isCertificateError 判断是否为证书校验失败
func isCertificateError(err error) bool {
	var certVerifyErr *tls.CertificateVerificationError
	if errors.As(err, &certVerifyErr) {
		return true
	}
	var unknownAuthErr x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthErr) {
		return true
	}
	var certInvalidErr x509.CertificateInvalidError
	if errors.As(err, &certInvalidErr) {
		return true
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return true
	}
	return false
}
