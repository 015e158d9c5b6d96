// Package openaicompat 提供基于 OpenAI 兼容协议的流式对话客户端核心
// 网关与各遗留提供方适配器共用该实现，仅在名称、默认地址与支持模型表上有差异
package openaicompat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	llmtypes "backend/pkg/llm"

	openai "github.com/sashabaranov/go-openai"
)

// Client OpenAI 兼容协议客户端
type Client struct {
	client *openai.Client
	name   string
	models []string
}

// NewClient 创建客户端
// name 为适配器名称（gateway/openai/gemini），models 为该适配器声明支持的模型表
func NewClient(name string, cfg *llmtypes.ClientConfig, models []string) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, &llmtypes.ClientError{
			Type:    llmtypes.ErrorTypeAuth,
			Message: name + " API Key 未配置",
		}
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		}
	}

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		name:   name,
		models: models,
	}, nil
}

// ChatStream 流式对话补全
func (c *Client) ChatStream(ctx context.Context, req *llmtypes.ChatRequest) (<-chan llmtypes.StreamChunk, <-chan error) {
	chunkChan := make(chan llmtypes.StreamChunk, 10)
	errChan := make(chan error, 1)

	go func() {
		defer close(chunkChan)
		defer close(errChan)

		// 转换消息格式
		messages := make([]openai.ChatCompletionMessage, len(req.Messages))
		for i, msg := range req.Messages {
			messages[i] = openai.ChatCompletionMessage{
				Role:    msg.Role,
				Content: msg.Content,
			}
		}

		// 构建请求，要求提供方在终块上报用量
		openaiReq := openai.ChatCompletionRequest{
			Model:       req.Model,
			Messages:    messages,
			Temperature: float32(req.Temperature),
			MaxTokens:   req.MaxTokens,
			Stream:      true,
			StreamOptions: &openai.StreamOptions{
				IncludeUsage: true,
			},
			Tools: convertTools(req.Tools),
		}

		stream, err := c.client.CreateChatCompletionStream(ctx, openaiReq)
		if err != nil {
			errChan <- WrapError(c.name, err)
			return
		}
		defer stream.Close()

		var usage *llmtypes.Usage
		for {
			response, err := stream.Recv()
			if err != nil {
				// EOF 表示正常结束
				if errors.Is(err, io.EOF) {
					chunkChan <- llmtypes.StreamChunk{Done: true, Usage: usage}
					return
				}
				errChan <- WrapError(c.name, err)
				return
			}

			// include_usage 模式下终块只带用量、不带 choices
			if response.Usage != nil {
				usage = &llmtypes.Usage{
					PromptTokens:     response.Usage.PromptTokens,
					CompletionTokens: response.Usage.CompletionTokens,
					TotalTokens:      response.Usage.TotalTokens,
				}
			}

			if len(response.Choices) > 0 {
				chunkChan <- llmtypes.StreamChunk{
					ID:      response.ID,
					Model:   response.Model,
					Content: response.Choices[0].Delta.Content,
				}
			}
		}
	}()

	return chunkChan, errChan
}

// SupportedModels 返回支持的模型表
func (c *Client) SupportedModels() []string {
	return append([]string(nil), c.models...)
}

// Name 返回适配器名称
func (c *Client) Name() string {
	return c.name
}

// Close 关闭客户端
func (c *Client) Close() error {
	// OpenAI 客户端无需显式关闭
	return nil
}

// convertTools 转换工具定义为 SDK 格式
func convertTools(tools []llmtypes.Tool) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		}
	}
	return result
}
