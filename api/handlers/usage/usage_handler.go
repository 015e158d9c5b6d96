package usage

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	response "backend/api/handlers/common"
	usagesvc "backend/internal/usage"
)

// UsageHandler 用量查询 Handler
type UsageHandler struct {
	service *usagesvc.Service
}

// NewUsageHandler 创建 UsageHandler 实例
func NewUsageHandler(service *usagesvc.Service) *UsageHandler {
	return &UsageHandler{service: service}
}

// Balance 查询当月 Token 余额
// @Summary 查询当月 Token 用量
// @Tags Usage
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /api/v1/usage/balance [get]
func (h *UsageHandler) Balance(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	balance, err := h.service.CurrentBalance(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: balance})
}

// History 查询用量历史
// @Summary 查询 Token 用量历史
// @Tags Usage
// @Security BearerAuth
// @Produce json
// @Param limit query int false "返回条数上限"
// @Success 200 {object} response.APIResponse
// @Router /api/v1/usage/history [get]
func (h *UsageHandler) History(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	limit := 50
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}

	records, err := h.service.ListHistory(c.Request.Context(), tenantID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: records})
}
