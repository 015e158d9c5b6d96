package api

import (
	"github.com/gin-gonic/gin"

	"backend/internal/auth"
	"backend/internal/logger"
	middlewarepkg "backend/internal/middleware"
)

// RegisterRoutes 注册所有 API 路由
func RegisterRoutes(router *gin.Engine, container *AppContainer, handlers *Handlers) {
	apiV1 := router.Group("/api/v1")
	apiV1.Use(auth.AuthMiddleware(container.JWTService), middlewarepkg.TenantContextMiddleware(logger.Get()))
	registerAPIRoutes(apiV1, handlers)
}

// registerAPIRoutes 注册需要认证的 API 路由
func registerAPIRoutes(apiGroup *gin.RouterGroup, h *Handlers) {
	// 对话
	apiGroup.POST("/chat", h.Chat.Stream)

	// Agent 配置
	agentGroup := apiGroup.Group("/agents")
	{
		agentGroup.POST("", h.Agents.Create)
		agentGroup.GET("", h.Agents.List)
		agentGroup.GET("/:id", h.Agents.Get)
		agentGroup.PUT("/:id", h.Agents.Update)
		agentGroup.DELETE("/:id", h.Agents.Delete)
	}

	// 会话管理
	sessionGroup := apiGroup.Group("/sessions")
	{
		sessionGroup.GET("", h.Sessions.List)
		sessionGroup.GET("/:id/messages", h.Sessions.History)
		sessionGroup.POST("/:id/touch", h.Sessions.Touch)
		sessionGroup.PATCH("/:id", h.Sessions.Update)
		sessionGroup.DELETE("/:id", h.Sessions.Delete)
	}

	// 用量
	usageGroup := apiGroup.Group("/usage")
	{
		usageGroup.GET("/balance", h.Usage.Balance)
		usageGroup.GET("/history", h.Usage.History)
	}

	// MCP 服务器
	mcpGroup := apiGroup.Group("/mcp/servers")
	{
		mcpGroup.POST("", h.MCP.Create)
		mcpGroup.GET("", h.MCP.List)
		mcpGroup.PUT("/:id", h.MCP.Update)
		mcpGroup.DELETE("/:id", h.MCP.Delete)
	}
}
