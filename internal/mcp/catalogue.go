package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"backend/internal/config"
	"backend/internal/logger"
	"backend/internal/tools"
)

const (
	defaultRefreshTTL     = 5 * time.Minute
	defaultRequestTimeout = 5 * time.Second
)

// cacheEntry 单个租户的工具目录缓存
type cacheEntry struct {
	tools     []*tools.ToolDefinition
	fetchedAt time.Time
}

// Catalogue 按租户发现并缓存 MCP 工具目录。
// 发现失败时退回上一次成功的缓存，绝不阻塞对话流程。
type Catalogue struct {
	db         *gorm.DB
	refreshTTL time.Duration
	timeout    time.Duration

	mu    sync.RWMutex
	cache map[string]*cacheEntry
}

// NewCatalogue 创建 MCP 工具目录
func NewCatalogue(db *gorm.DB, cfg *config.MCPConfig) *Catalogue {
	refreshTTL := defaultRefreshTTL
	timeout := defaultRequestTimeout
	if cfg != nil {
		refreshTTL = cfg.GetRefreshTTL()
		timeout = cfg.GetRequestTimeout()
	}
	return &Catalogue{
		db:         db,
		refreshTTL: refreshTTL,
		timeout:    timeout,
		cache:      make(map[string]*cacheEntry),
	}
}

// TenantTools 返回租户当前可用的 MCP 工具目录。
// 缓存未过期时直接返回；过期则重新发现，发现失败时退回旧缓存。
func (c *Catalogue) TenantTools(ctx context.Context, tenantID string) ([]*tools.ToolDefinition, error) {
	c.mu.RLock()
	entry, ok := c.cache[tenantID]
	c.mu.RUnlock()

	if ok && time.Since(entry.fetchedAt) < c.refreshTTL {
		return entry.tools, nil
	}

	discovered, err := c.discover(ctx, tenantID)
	if err != nil {
		if ok {
			logger.Get().Warn("MCP 工具发现失败，使用旧缓存",
				zap.String("tenant_id", tenantID),
				zap.Error(err))
			return entry.tools, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.cache[tenantID] = &cacheEntry{tools: discovered, fetchedAt: time.Now()}
	c.mu.Unlock()

	return discovered, nil
}

// Invalidate 清除租户缓存（服务器配置变更后调用）
func (c *Catalogue) Invalidate(tenantID string) {
	c.mu.Lock()
	delete(c.cache, tenantID)
	c.mu.Unlock()
}

// discover 连接租户启用的全部 MCP 服务器并汇总工具列表。
// 单个服务器失败只记录告警并跳过；全部失败且无任何工具时返回错误。
func (c *Catalogue) discover(ctx context.Context, tenantID string) ([]*tools.ToolDefinition, error) {
	var servers []Server
	if err := c.db.WithContext(ctx).
		Where("tenant_id = ? AND enabled = ?", tenantID, true).
		Find(&servers).Error; err != nil {
		return nil, fmt.Errorf("查询 MCP 服务器失败: %w", err)
	}

	if len(servers) == 0 {
		return nil, nil
	}

	var (
		defs     []*tools.ToolDefinition
		failures int
	)
	for i := range servers {
		srv := &servers[i]
		serverTools, err := c.listServerTools(ctx, srv)
		if err != nil {
			failures++
			logger.Get().Warn("MCP 服务器工具列举失败",
				zap.String("tenant_id", tenantID),
				zap.String("server", srv.Name),
				zap.String("endpoint", srv.Endpoint),
				zap.Error(err))
			continue
		}
		defs = append(defs, serverTools...)
	}

	if failures == len(servers) {
		return nil, fmt.Errorf("全部 %d 个 MCP 服务器均不可达", len(servers))
	}

	return defs, nil
}

// listServerTools 在限时内连接单个服务器并拉取工具列表
func (c *Catalogue) listServerTools(ctx context.Context, srv *Server) ([]*tools.ToolDefinition, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client := sdk.NewClient(&sdk.Implementation{
		Name:    "agent-chat-engine",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, &sdk.StreamableClientTransport{Endpoint: srv.Endpoint}, nil)
	if err != nil {
		return nil, fmt.Errorf("连接失败: %w", err)
	}
	defer session.Close()

	result, err := session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("tools/list 失败: %w", err)
	}

	defs := make([]*tools.ToolDefinition, 0, len(result.Tools))
	for _, t := range result.Tools {
		defs = append(defs, &tools.ToolDefinition{
			Name:        t.Name,
			DisplayName: t.Name,
			Description: t.Description,
			Source:      tools.SourceMCP,
			Parameters:  schemaToMap(t.InputSchema),
		})
	}
	return defs, nil
}

// schemaToMap 将 SDK 的 JSON Schema 转为通用 map，失败时退化为空对象 schema
func schemaToMap(schema any) map[string]any {
	if schema == nil {
		return map[string]any{"type": "object"}
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	return m
}
