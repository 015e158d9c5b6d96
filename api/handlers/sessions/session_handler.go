package sessions

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	response "backend/api/handlers/common"
	"backend/internal/conversation"
)

// SessionHandler 会话管理 Handler
type SessionHandler struct {
	store *conversation.Store
}

// NewSessionHandler 创建 SessionHandler 实例
func NewSessionHandler(store *conversation.Store) *SessionHandler {
	return &SessionHandler{store: store}
}

// writeStoreError 会话存储错误到 HTTP 响应的统一映射
func writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, conversation.ErrForbidden):
		c.JSON(http.StatusForbidden, response.ErrorWithCode("forbidden", "无权访问该会话"))
	case errors.Is(err, conversation.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, response.ErrorWithCode("not_found", "会话不存在或已过期"))
	case errors.Is(err, conversation.ErrStoreUnavailable):
		c.JSON(http.StatusBadGateway, response.ErrorWithCode("store_unavailable", err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
	}
}

// List 查询当前租户的会话列表
// @Summary 查询会话列表
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /api/v1/sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	sessions, err := h.store.ListSessions(c.Request.Context(), tenantID)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: sessions})
}

// History 查询会话历史消息
// @Summary 查询会话历史
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} response.APIResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/sessions/{id}/messages [get]
func (h *SessionHandler) History(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	sessionID := c.Param("id")

	messages, err := h.store.History(c.Request.Context(), tenantID, sessionID)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: messages})
}

// Touch 刷新会话 TTL
// @Summary 刷新会话有效期
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} response.APIResponse
// @Router /api/v1/sessions/{id}/touch [post]
func (h *SessionHandler) Touch(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	sessionID := c.Param("id")

	if err := h.store.Touch(c.Request.Context(), tenantID, sessionID); err != nil {
		writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{Success: true})
}

// updateSessionRequest 会话元数据更新请求体
type updateSessionRequest struct {
	Title  *string `json:"title"`
	Pinned *bool   `json:"pinned"`
}

// Update 更新会话元数据（标题、置顶）
// @Summary 更新会话元数据
// @Tags Sessions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} response.APIResponse
// @Router /api/v1/sessions/{id} [patch]
func (h *SessionHandler) Update(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	sessionID := c.Param("id")

	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("请求参数错误: " + err.Error()))
		return
	}

	fields := map[string]string{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Pinned != nil {
		if *req.Pinned {
			fields["pinned"] = "1"
		} else {
			fields["pinned"] = "0"
		}
	}
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, response.Error("没有需要更新的字段"))
		return
	}

	if err := h.store.UpdateMetadata(c.Request.Context(), tenantID, sessionID, fields); err != nil {
		writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{Success: true})
}

// Delete 删除会话
// @Summary 删除会话
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} response.APIResponse
// @Router /api/v1/sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	sessionID := c.Param("id")

	if err := h.store.Delete(c.Request.Context(), tenantID, sessionID); err != nil {
		writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.OK("会话已删除"))
}
