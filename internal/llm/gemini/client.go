// Package gemini 遗留 Gemini 单一提供方适配器
// 走 Google 的 OpenAI 兼容端点，仅为兼容不带 provider/ 前缀的旧模型标识保留
package gemini

import (
	"context"

	"backend/internal/config"
	"backend/internal/llm/openaicompat"
	llmtypes "backend/pkg/llm"
)

// 默认使用 Google 提供的 OpenAI 兼容层
const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// 遗留标识固定表
var legacyModels = []string{
	"gemini-2.0-flash-exp",
	"gemini-1.5-pro",
	"gemini-1.5-flash",
}

// Client Gemini 适配器
type Client struct {
	inner *openaicompat.Client
}

// NewClient 创建 Gemini 适配器
func NewClient(cfg *config.ProviderConfig, timeout int) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	inner, err := openaicompat.NewClient("gemini", &llmtypes.ClientConfig{
		APIKey:  cfg.APIKey,
		BaseURL: baseURL,
		Timeout: timeout,
	}, legacyModels)
	if err != nil {
		return nil, err
	}
	return &Client{inner: inner}, nil
}

// ChatStream 流式对话补全
func (c *Client) ChatStream(ctx context.Context, req *llmtypes.ChatRequest) (<-chan llmtypes.StreamChunk, <-chan error) {
	return c.inner.ChatStream(ctx, req)
}

// Supports 按固定表精确匹配遗留标识
func (c *Client) Supports(modelIdentifier string) bool {
	for _, m := range legacyModels {
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
