// Package openai 遗留 OpenAI 单一提供方适配器
// 仅为兼容不带 provider/ 前缀的旧模型标识保留，新接入一律走网关
package openai

import (
	"context"

	"backend/internal/config"
	"backend/internal/llm/openaicompat"
	llmtypes "backend/pkg/llm"
)

// 遗留标识固定表
var legacyModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4-turbo",
	"gpt-3.5-turbo",
}

// Client OpenAI 适配器
type Client struct {
	inner *openaicompat.Client
}

// NewClient 创建 OpenAI 适配器
func NewClient(cfg *config.ProviderConfig, timeout int) (*Client, error) {
	inner, err := openaicompat.NewClient("openai", &llmtypes.ClientConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
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
