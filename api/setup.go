package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	agentHandlers "backend/api/handlers/agents"
	chatHandlers "backend/api/handlers/chat"
	mcpHandlers "backend/api/handlers/mcpservers"
	sessionHandlers "backend/api/handlers/sessions"
	usageHandlers "backend/api/handlers/usage"
	"backend/internal/agents"
	"backend/internal/auth"
	"backend/internal/config"
	"backend/internal/conversation"
	"backend/internal/infra/queue"
	"backend/internal/llm"
	"backend/internal/logger"
	"backend/internal/mcp"
	"backend/internal/orchestrator"
	"backend/internal/tools"
	"backend/internal/tools/builtin"
	"backend/internal/usage"
	"backend/internal/worker"

	middlewarepkg "backend/internal/middleware"
)

// AppContainer 应用依赖容器
type AppContainer struct {
	JWTService   *auth.JWTService
	AgentService *agents.Service
	UsageService *usage.Service
	Store        *conversation.Store
	Resolver     *llm.Resolver
	Registry     *tools.Registry
	Catalogue    *mcp.Catalogue
	Loader       *tools.Loader
	Orchestrator *orchestrator.Orchestrator
	QueueClient  queue.Client
}

// Handlers API Handler 集合
type Handlers struct {
	Chat     *chatHandlers.ChatHandler
	Agents   *agentHandlers.AgentHandler
	Sessions *sessionHandlers.SessionHandler
	Usage    *usageHandlers.UsageHandler
	MCP      *mcpHandlers.MCPServerHandler
}

// BuildContainer 组装全部服务依赖
func BuildContainer(db *gorm.DB, rdb redis.UniversalClient, cfg *config.Config) (*AppContainer, error) {
	queueClient := queue.NewClient(cfg.Redis)

	agentService := agents.NewService(db)
	usageService := usage.NewService(db, cfg.Quota.FreeTierMonthlyTokens, queueClient)
	store := conversation.NewStore(rdb, cfg.Conversation.GetMaxHistory(), cfg.Conversation.GetTTL())
	resolver := llm.NewResolver(&cfg.LLM)

	registry := tools.NewRegistry()
	if err := builtin.RegisterAll(registry); err != nil {
		return nil, err
	}
	catalogue := mcp.NewCatalogue(db, &cfg.MCP)
	loader := tools.NewLoader(registry, catalogue)

	orch := orchestrator.NewOrchestrator(agentService, resolver, loader, store, usageService, &cfg.LLM)

	return &AppContainer{
		JWTService:   auth.NewJWTService(cfg.Server.JWTSecret, "agent-chat-engine", rdb),
		AgentService: agentService,
		UsageService: usageService,
		Store:        store,
		Resolver:     resolver,
		Registry:     registry,
		Catalogue:    catalogue,
		Loader:       loader,
		Orchestrator: orch,
		QueueClient:  queueClient,
	}, nil
}

// SetupRouter 设置并返回 Gin 路由和 Worker 服务器
func SetupRouter(db *gorm.DB, rdb redis.UniversalClient, cfg *config.Config) (*gin.Engine, *worker.Server, *AppContainer, error) {
	router := gin.New()
	router.Use(gin.Recovery(), middlewarepkg.RequestIDMiddleware(), RequestLogger(), CORS())

	container, err := BuildContainer(db, rdb, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	handlers := &Handlers{
		Chat:     chatHandlers.NewChatHandler(container.Orchestrator),
		Agents:   agentHandlers.NewAgentHandler(container.AgentService),
		Sessions: sessionHandlers.NewSessionHandler(container.Store),
		Usage:    usageHandlers.NewUsageHandler(container.UsageService),
		MCP:      mcpHandlers.NewMCPServerHandler(db, container.Catalogue),
	}

	// 探针与指标端点（公开）
	router.GET("/health", HealthCheck())
	router.GET("/ready", ReadinessCheck(db, rdb))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	RegisterRoutes(router, container, handlers)

	workerServer := worker.NewServer(cfg.Redis, container.UsageService, logger.Get())

	return router, workerServer, container, nil
}
