// Package gateway 多提供方模型网关适配器
// 通过 OpenAI 兼容协议对接上游网关（如 LiteLLM Proxy / OpenRouter），
// 模型标识统一为 provider/model 形式，由网关完成提供方路由
package gateway

import (
	"context"
	"strings"

	"backend/internal/config"
	"backend/internal/llm/openaicompat"
	llmtypes "backend/pkg/llm"
)

// Client 网关适配器
type Client struct {
	inner  *openaicompat.Client
	models []string
}

// NewClient 创建网关适配器
// BaseURL 与 APIKey 缺一不可；缺失视为网关不可用，解析器将回退遗留适配器
func NewClient(cfg *config.GatewayConfig, timeout int) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, &llmtypes.ClientError{
			Type:    llmtypes.ErrorTypeInvalidParams,
			Message: "网关 BaseURL 未配置",
		}
	}

	inner, err := openaicompat.NewClient("gateway", &llmtypes.ClientConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Timeout: timeout,
	}, cfg.Models)
	if err != nil {
		return nil, err
	}

	return &Client{inner: inner, models: cfg.Models}, nil
}

// ChatStream 流式对话补全
func (c *Client) ChatStream(ctx context.Context, req *llmtypes.ChatRequest) (<-chan llmtypes.StreamChunk, <-chan error) {
	return c.inner.ChatStream(ctx, req)
}

// Supports 判断是否支持给定模型标识
// 网关只接受 provider/model 形式；配置了模型表时按表精确匹配，否则全部放行
func (c *Client) Supports(modelIdentifier string) bool {
	if !strings.Contains(modelIdentifier, "/") {
		return false
	}
	if len(c.models) == 0 {
		return true
	}
	for _, m := range c.models {
		if m == modelIdentifier {
			return true
		}
	}
	return false
}

// SupportedModels 返回支持的模型表
func (c *Client) SupportedModels() []string {
	return c.inner.SupportedModels()
}

// Name 返回适配器名称
func (c *Client) Name() string {
	return c.inner.Name()
}

// Close 关闭客户端
func (c *Client) Close() error {
	return c.inner.Close()
}
