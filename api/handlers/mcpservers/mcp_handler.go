package mcpservers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	response "backend/api/handlers/common"
	"backend/internal/mcp"
)

// MCPServerHandler 租户 MCP 服务器配置 Handler
type MCPServerHandler struct {
	db        *gorm.DB
	catalogue *mcp.Catalogue
}

// NewMCPServerHandler 创建 MCPServerHandler 实例
func NewMCPServerHandler(db *gorm.DB, catalogue *mcp.Catalogue) *MCPServerHandler {
	return &MCPServerHandler{db: db, catalogue: catalogue}
}

// createServerRequest 接入 MCP 服务器请求体
type createServerRequest struct {
	Name     string `json:"name" binding:"required"`
	Endpoint string `json:"endpoint" binding:"required,url"`
	Enabled  *bool  `json:"enabled"`
}

// Create 接入 MCP 服务器
// @Summary 接入 MCP 服务器
// @Tags MCP
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 201 {object} mcp.Server
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/mcp/servers [post]
func (h *MCPServerHandler) Create(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req createServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("请求参数错误: " + err.Error()))
		return
	}

	server := &mcp.Server{
		TenantID: tenantID,
		Name:     req.Name,
		Endpoint: req.Endpoint,
		Enabled:  true,
	}
	if req.Enabled != nil {
		server.Enabled = *req.Enabled
	}

	if err := h.db.WithContext(c.Request.Context()).Create(server).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
		return
	}

	h.catalogue.Invalidate(tenantID)
	c.JSON(http.StatusCreated, server)
}

// List 查询已接入的 MCP 服务器
// @Summary 查询 MCP 服务器列表
// @Tags MCP
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /api/v1/mcp/servers [get]
func (h *MCPServerHandler) List(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var servers []mcp.Server
	if err := h.db.WithContext(c.Request.Context()).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&servers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: servers})
}

// updateServerRequest 更新 MCP 服务器请求体
type updateServerRequest struct {
	Name     *string `json:"name"`
	Endpoint *string `json:"endpoint"`
	Enabled  *bool   `json:"enabled"`
}

// Update 更新 MCP 服务器配置
// @Summary 更新 MCP 服务器
// @Tags MCP
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "服务器 ID"
// @Success 200 {object} mcp.Server
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/mcp/servers/{id} [put]
func (h *MCPServerHandler) Update(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	serverID := c.Param("id")

	var req updateServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("请求参数错误: " + err.Error()))
		return
	}

	var server mcp.Server
	err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND tenant_id = ?", serverID, tenantID).
		First(&server).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, response.Error("MCP 服务器不存在"))
			return
		}
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Endpoint != nil {
		updates["endpoint"] = *req.Endpoint
	}
	if req.Enabled != nil {
		updates["enabled"] = *req.Enabled
	}
	if len(updates) > 0 {
		if err := h.db.WithContext(c.Request.Context()).Model(&server).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
			return
		}
	}

	h.catalogue.Invalidate(tenantID)
	c.JSON(http.StatusOK, server)
}

// Delete 移除 MCP 服务器
// @Summary 移除 MCP 服务器
// @Tags MCP
// @Security BearerAuth
// @Produce json
// @Param id path string true "服务器 ID"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/mcp/servers/{id} [delete]
func (h *MCPServerHandler) Delete(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	serverID := c.Param("id")

	result := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND tenant_id = ?", serverID, tenantID).
		Delete(&mcp.Server{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, response.Error(result.Error.Error()))
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, response.Error("MCP 服务器不存在"))
		return
	}

	h.catalogue.Invalidate(tenantID)
	c.JSON(http.StatusOK, response.OK("已移除"))
}
