package agents

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	response "backend/api/handlers/common"
	agentsvc "backend/internal/agents"
)

// AgentHandler Agent 配置管理 Handler
type AgentHandler struct {
	service *agentsvc.Service
}

// NewAgentHandler 创建 AgentHandler 实例
func NewAgentHandler(service *agentsvc.Service) *AgentHandler {
	return &AgentHandler{service: service}
}

// Create 创建 Agent
// @Summary 创建 Agent
// @Tags Agents
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body CreateAgentRequest true "创建请求"
// @Success 201 {object} agentsvc.Agent
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/agents [post]
func (h *AgentHandler) Create(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("请求参数错误: " + err.Error()))
		return
	}

	agent := &agentsvc.Agent{
		TenantID:          tenantID,
		Name:              req.Name,
		Description:       req.Description,
		SystemInstruction: req.SystemInstruction,
		ModelIdentifier:   req.ModelIdentifier,
		ToolNames:         req.ToolNames,
		Temperature:       req.Temperature,
		MaxTokens:         req.MaxTokens,
		UseFileSearch:     req.UseFileSearch,
		IsPublic:          req.IsPublic,
	}

	if err := h.service.Create(c.Request.Context(), agent); err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, agent)
}

// Get 查询单个 Agent
// @Summary 查询 Agent 详情
// @Tags Agents
// @Security BearerAuth
// @Produce json
// @Param id path string true "Agent ID"
// @Success 200 {object} agentsvc.Agent
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/agents/{id} [get]
func (h *AgentHandler) Get(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	agentID := c.Param("id")

	agent, err := h.service.Get(c.Request.Context(), tenantID, agentID)
	if err != nil {
		if errors.Is(err, agentsvc.ErrAgentNotFound) {
			c.JSON(http.StatusNotFound, response.Error(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
		return
	}

	c.JSON(http.StatusOK, agent)
}

// List 查询 Agent 列表
// @Summary 查询 Agent 列表
// @Tags Agents
// @Security BearerAuth
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.ListResponse
// @Router /api/v1/agents [get]
func (h *AgentHandler) List(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	page := 1
	pageSize := 20
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(c.Query("page_size")); err == nil && ps > 0 {
		pageSize = ps
	}

	items, total, err := h.service.List(c.Request.Context(), tenantID, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.ListResponse{
		Items:      items,
		Pagination: response.NewPagination(page, pageSize, total),
	})
}

// Update 更新 Agent
// @Summary 更新 Agent
// @Tags Agents
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Agent ID"
// @Param request body UpdateAgentRequest true "更新请求"
// @Success 200 {object} agentsvc.Agent
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/agents/{id} [put]
func (h *AgentHandler) Update(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	agentID := c.Param("id")

	var req UpdateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("请求参数错误: " + err.Error()))
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.SystemInstruction != nil {
		updates["system_instruction"] = *req.SystemInstruction
	}
	if req.ModelIdentifier != nil {
		updates["model_identifier"] = *req.ModelIdentifier
	}
	if req.ToolNames != nil {
		updates["tool_names"] = *req.ToolNames
	}
	if req.Temperature != nil {
		updates["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		updates["max_tokens"] = *req.MaxTokens
	}
	if req.UseFileSearch != nil {
		updates["use_file_search"] = *req.UseFileSearch
	}
	if req.IsPublic != nil {
		updates["is_public"] = *req.IsPublic
	}

	agent, err := h.service.Update(c.Request.Context(), tenantID, agentID, updates)
	if err != nil {
		if errors.Is(err, agentsvc.ErrAgentNotFound) {
			c.JSON(http.StatusNotFound, response.Error(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
		return
	}

	c.JSON(http.StatusOK, agent)
}

// Delete 删除 Agent
// @Summary 删除 Agent
// @Tags Agents
// @Security BearerAuth
// @Produce json
// @Param id path string true "Agent ID"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/agents/{id} [delete]
func (h *AgentHandler) Delete(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	agentID := c.Param("id")

	if err := h.service.Delete(c.Request.Context(), tenantID, agentID); err != nil {
		if errors.Is(err, agentsvc.ErrAgentNotFound) {
			c.JSON(http.StatusNotFound, response.Error(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.OK("删除成功"))
}
