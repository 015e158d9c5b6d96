package agents

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrAgentNotFound Agent 不存在或请求方无权使用
var ErrAgentNotFound = errors.New("Agent 不存在")

// Service Agent 配置管理服务
type Service struct {
	db *gorm.DB
}

// NewService 创建 Agent 服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// AutoMigrate 自动迁移表结构
func (s *Service) AutoMigrate() error {
	return s.db.AutoMigrate(&Agent{})
}

// Create 创建 Agent
func (s *Service) Create(ctx context.Context, agent *Agent) error {
	if agent.TenantID == "" {
		return fmt.Errorf("缺少租户 ID")
	}
	if agent.ModelIdentifier == "" {
		return fmt.Errorf("缺少模型标识")
	}
	if err := s.db.WithContext(ctx).Create(agent).Error; err != nil {
		return fmt.Errorf("创建 Agent 失败: %w", err)
	}
	return nil
}

// Get 读取 Agent
// 本租户的 Agent 或公开 Agent 可读；其余一律视为不存在（不泄露存在性）
func (s *Service) Get(ctx context.Context, tenantID, agentID string) (*Agent, error) {
	var agent Agent
	err := s.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", agentID).
		Where("tenant_id = ? OR is_public = ?", tenantID, true).
		First(&agent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询 Agent 失败: %w", err)
	}
	return &agent, nil
}

// List 列出租户可见的 Agent（本租户全部 + 公开）
func (s *Service) List(ctx context.Context, tenantID string, page, pageSize int) ([]*Agent, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&Agent{}).
		Where("deleted_at IS NULL").
		Where("tenant_id = ? OR is_public = ?", tenantID, true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计 Agent 失败: %w", err)
	}

	var agentList []*Agent
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&agentList).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询 Agent 列表失败: %w", err)
	}
	return agentList, total, nil
}

// Update 更新 Agent（仅限本租户）
func (s *Service) Update(ctx context.Context, tenantID, agentID string, updates map[string]interface{}) (*Agent, error) {
	result := s.db.WithContext(ctx).Model(&Agent{}).
		Where("id = ? AND tenant_id = ? AND deleted_at IS NULL", agentID, tenantID).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("更新 Agent 失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrAgentNotFound
	}
	return s.Get(ctx, tenantID, agentID)
}

// Delete 软删除 Agent（仅限本租户）
func (s *Service) Delete(ctx context.Context, tenantID, agentID string) error {
	result := s.db.WithContext(ctx).Model(&Agent{}).
		Where("id = ? AND tenant_id = ? AND deleted_at IS NULL", agentID, tenantID).
		Update("deleted_at", gorm.Expr("CURRENT_TIMESTAMP"))
	if result.Error != nil {
		return fmt.Errorf("删除 Agent 失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAgentNotFound
	}
	return nil
}
