package chat

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	response "backend/api/handlers/common"
	"backend/internal/orchestrator"
)

// ChatHandler 对话 Handler
type ChatHandler struct {
	orchestrator *orchestrator.Orchestrator
}

// NewChatHandler 创建 ChatHandler 实例
func NewChatHandler(orch *orchestrator.Orchestrator) *ChatHandler {
	return &ChatHandler{orchestrator: orch}
}

// statusOf 错误类别到 HTTP 状态码的映射
func statusOf(kind orchestrator.Kind) int {
	switch kind {
	case orchestrator.KindNotFound:
		return http.StatusNotFound
	case orchestrator.KindForbidden:
		return http.StatusForbidden
	case orchestrator.KindInvalidRequest, orchestrator.KindUnsupportedModel:
		return http.StatusBadRequest
	case orchestrator.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case orchestrator.KindUnavailable:
		return http.StatusServiceUnavailable
	case orchestrator.KindStoreUnavailable, orchestrator.KindProviderError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Stream 执行一轮对话（流式）
// @Summary 执行一轮对话（SSE 流式）
// @Tags Chat
// @Security BearerAuth
// @Accept json
// @Produce text/event-stream
// @Param request body ChatRequest true "对话请求"
// @Success 200 {string} string "SSE Stream"
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 429 {object} response.ErrorResponse
// @Router /api/v1/chat [post]
func (h *ChatHandler) Stream(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("请求参数错误: " + err.Error()))
		return
	}

	stream, err := h.orchestrator.Chat(c.Request.Context(), &orchestrator.Request{
		TenantID:      tenantID,
		AgentID:       req.AgentID,
		SessionID:     req.SessionID,
		Message:       req.Message,
		ModelOverride: req.ModelOverride,
	})
	if err != nil {
		kind := orchestrator.Classify(err)
		c.JSON(statusOf(kind), response.ErrorWithCode(string(kind), err.Error()))
		return
	}

	// 设置 SSE 响应头；会话 ID 随响应头返回，供首轮后续调用使用
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("X-Session-ID", stream.SessionID)

	c.Stream(func(w io.Writer) bool {
		select {
		case chunk, ok := <-stream.Chunks:
			if !ok {
				// 内容通道关闭后确认是否以错误收尾
				if err, ok := <-stream.Errs; ok && err != nil {
					c.SSEvent("error", gin.H{
						"code":  string(orchestrator.Classify(err)),
						"error": err.Error(),
					})
				}
				return false
			}

			if chunk.Done {
				c.SSEvent("done", gin.H{"done": true, "session_id": stream.SessionID})
				return false
			}
			c.SSEvent("message", gin.H{"content": chunk.Content})
			return true

		case err, ok := <-stream.Errs:
			if ok && err != nil {
				c.SSEvent("error", gin.H{
					"code":  string(orchestrator.Classify(err)),
					"error": err.Error(),
				})
			}
			return false
		}
	})
}
