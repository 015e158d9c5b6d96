package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuotaExceededError 月度配额已用尽
// 携带上限与当前用量，调用方据此提示用户
type QuotaExceededError struct {
	Limit int64 // 套餐月度上限
	Used  int64 // 当月已用
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("月度 Token 配额已用尽: %d/%d", e.Used, e.Limit)
}

// Record 一次模型调用的计量事实
type Record struct {
	TenantID         string `json:"tenant_id"`
	SessionID        string `json:"session_id"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// HistoryEnqueuer 异步审计流水入队接口，由任务队列客户端实现
type HistoryEnqueuer interface {
	EnqueueRecordUsage(rec Record) error
}

// Service Token 计量与配额服务
type Service struct {
	db            *gorm.DB
	freeTierLimit int64           // 未绑定套餐时的月度上限
	enqueuer      HistoryEnqueuer // 可为 nil，退回同步写
}

// NewService 创建计量服务
func NewService(db *gorm.DB, freeTierLimit int64, enqueuer HistoryEnqueuer) *Service {
	if freeTierLimit <= 0 {
		freeTierLimit = 100_000
	}
	return &Service{db: db, freeTierLimit: freeTierLimit, enqueuer: enqueuer}
}

// AutoMigrate 自动迁移表结构
func (s *Service) AutoMigrate() error {
	return s.db.AutoMigrate(&Plan{}, &TenantPlan{}, &UserTokenBalance{}, &TokenUsage{})
}

// EnsureFreePlan 保证 free 套餐行存在（幂等），未绑定套餐的租户回落到它
func (s *Service) EnsureFreePlan(ctx context.Context) error {
	plan := &Plan{
		Name:              FreePlanName,
		MonthlyTokenLimit: s.freeTierLimit,
		IsActive:          true,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(plan).Error
	if err != nil {
		return fmt.Errorf("初始化 free 套餐失败: %w", err)
	}
	return nil
}

// monthlyLimit 解析租户的月度上限
// 绑定套餐 → 套餐上限；未绑定 → free 套餐行；连 free 行都没有 → 配置兜底
func (s *Service) monthlyLimit(ctx context.Context, tenantID string) (int64, error) {
	planName := FreePlanName

	var binding TenantPlan
	err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&binding).Error
	if err == nil {
		planName = binding.PlanName
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("查询租户套餐失败: %w", err)
	}

	var plan Plan
	err = s.db.WithContext(ctx).Where("name = ? AND is_active = ?", planName, true).First(&plan).Error
	if err == nil {
		return plan.MonthlyTokenLimit, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.freeTierLimit, nil
	}
	return 0, fmt.Errorf("查询套餐失败: %w", err)
}

// CurrentBalance 返回租户当月余额行；无记录时返回零值行（不落库）
func (s *Service) CurrentBalance(ctx context.Context, tenantID string) (*UserTokenBalance, error) {
	now := time.Now().UTC()
	var balance UserTokenBalance
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND month = ? AND year = ?", tenantID, int(now.Month()), now.Year()).
		First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &UserTokenBalance{
			TenantID: tenantID,
			Month:    int(now.Month()),
			Year:     now.Year(),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询月度余额失败: %w", err)
	}
	return &balance, nil
}

// CheckQuota 外呼前的配额预检
// 当月用量达到或超过套餐上限时返回 *QuotaExceededError
func (s *Service) CheckQuota(ctx context.Context, tenantID string) error {
	limit, err := s.monthlyLimit(ctx, tenantID)
	if err != nil {
		return err
	}

	balance, err := s.CurrentBalance(ctx, tenantID)
	if err != nil {
		return err
	}

	if balance.TokensUsed >= limit {
		return &QuotaExceededError{Limit: limit, Used: balance.TokensUsed}
	}
	return nil
}

// RecordUsage 记录一次调用的 Token 消耗
// 月度余额用单条原子 upsert 累加（INSERT ... ON CONFLICT DO UPDATE），
// 并发请求不会丢更新；跨月冲突键不同，自然生成新行完成滚动
func (s *Service) RecordUsage(ctx context.Context, rec Record) error {
	total := int64(rec.PromptTokens + rec.CompletionTokens)
	if total < 0 {
		total = 0
	}

	now := time.Now().UTC()
	balance := &UserTokenBalance{
		TenantID:    rec.TenantID,
		Month:       int(now.Month()),
		Year:        now.Year(),
		TokensUsed:  total,
		LastResetAt: now,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "month"}, {Name: "year"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"tokens_used": gorm.Expr("tokens_used + ?", total),
			"updated_at":  now,
		}),
	}).Create(balance).Error
	if err != nil {
		return fmt.Errorf("累加月度余额失败: %w", err)
	}

	// 审计流水优先走异步队列，队列不可用退回同步写；
	// 计费事实不能因为流水失败而丢，余额已在上面落库
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueRecordUsage(rec); err == nil {
			return nil
		} else {
			logger.Warn("用量流水入队失败，退回同步写", zap.Error(err))
		}
	}
	return s.WriteHistory(ctx, rec)
}

// WriteHistory 同步写入审计流水（也是队列 Worker 的落库入口）
func (s *Service) WriteHistory(ctx context.Context, rec Record) error {
	row := &TokenUsage{
		ID:               uuid.New().String(),
		TenantID:         rec.TenantID,
		SessionID:        rec.SessionID,
		Model:            rec.Model,
		PromptTokens:     rec.PromptTokens,
		CompletionTokens: rec.CompletionTokens,
		TotalTokens:      rec.PromptTokens + rec.CompletionTokens,
		CostEstimate:     estimateCost(rec.Model, rec.PromptTokens, rec.CompletionTokens),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("写入用量流水失败: %w", err)
	}
	return nil
}

// ListHistory 按租户查询用量流水（新到旧）
func (s *Service) ListHistory(ctx context.Context, tenantID string, limit int) ([]*TokenUsage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []*TokenUsage
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询用量流水失败: %w", err)
	}
	return rows, nil
}

// modelPricing 每千 Token 价格表（美元），未知模型不估价
var modelPricing = map[string]struct{ input, output float64 }{
	"gpt-4o":                        {0.0025, 0.01},
	"gpt-4o-mini":                   {0.00015, 0.0006},
	"openai/gpt-4o":                 {0.0025, 0.01},
	"openai/gpt-4o-mini":            {0.00015, 0.0006},
	"gemini/gemini-2.0-flash-exp":   {0.0001, 0.0004},
	"gemini-2.0-flash-exp":          {0.0001, 0.0004},
	"anthropic/claude-sonnet-4-0":   {0.003, 0.015},
	"deepseek/deepseek-chat":        {0.00027, 0.0011},
}

// estimateCost 预估成本；未知模型返回 nil（流水中留空）
func estimateCost(model string, promptTokens, completionTokens int) *float64 {
	price, ok := modelPricing[model]
	if !ok {
		return nil
	}
	cost := float64(promptTokens)/1000*price.input + float64(completionTokens)/1000*price.output
	return &cost
}
