package usage

import "time"

// Plan 订阅套餐
// 对编排核心只读，仅作为月度 Token 上限来源
type Plan struct {
	Name              string    `json:"name" gorm:"primaryKey;size:50"`
	MonthlyTokenLimit int64     `json:"monthlyTokenLimit" gorm:"not null"`
	IsActive          bool      `json:"isActive" gorm:"default:true"`
	CreatedAt         time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt         time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Plan) TableName() string {
	return "plans"
}

// FreePlanName 免费档套餐名；租户创建时由数据层默认绑定，
// 这里仍须容忍没有任何绑定记录的租户
const FreePlanName = "free"

// TenantPlan 租户与套餐的绑定关系
type TenantPlan struct {
	TenantID  string    `json:"tenantId" gorm:"primaryKey;type:uuid"`
	PlanName  string    `json:"planName" gorm:"size:50;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (TenantPlan) TableName() string {
	return "tenant_plans"
}

// UserTokenBalance 租户月度 Token 余额
// 不变式：每租户每自然月只有一行活跃余额；跨月产生新行，旧行保留不动
type UserTokenBalance struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	TenantID    string    `json:"tenantId" gorm:"type:uuid;not null;uniqueIndex:idx_balance_tenant_month"`
	Month       int       `json:"month" gorm:"not null;uniqueIndex:idx_balance_tenant_month"`
	Year        int       `json:"year" gorm:"not null;uniqueIndex:idx_balance_tenant_month"`
	TokensUsed  int64     `json:"tokensUsed" gorm:"column:tokens_used;not null;default:0"`
	LastResetAt time.Time `json:"lastResetAt" gorm:"not null"`
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (UserTokenBalance) TableName() string {
	return "user_token_balances"
}

// TokenUsage 单次模型调用的 Token 消耗记录（追加写，创建后不再修改）
type TokenUsage struct {
	ID               string    `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID         string    `json:"tenantId" gorm:"type:uuid;not null;index"`
	SessionID        string    `json:"sessionId" gorm:"type:uuid;index"`
	Model            string    `json:"model" gorm:"size:100;not null"`
	PromptTokens     int       `json:"promptTokens" gorm:"not null"`
	CompletionTokens int       `json:"completionTokens" gorm:"not null"`
	TotalTokens      int       `json:"totalTokens" gorm:"not null"`
	CostEstimate     *float64  `json:"costEstimate,omitempty" gorm:"type:decimal(10,6)"`
	CreatedAt        time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
}

// TableName 指定表名
func (TokenUsage) TableName() string {
	return "token_usage_history"
}
