package agents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Agent 智能体定义
// 对话编排核心按请求快照读取，不在请求内修改
type Agent struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID string `json:"tenantId" gorm:"type:uuid;not null;index"`

	// 基本信息
	Name        string `json:"name" gorm:"size:255;not null"`
	Description string `json:"description" gorm:"type:text"`

	// 对话配置
	SystemInstruction string   `json:"systemInstruction" gorm:"type:text;not null"`
	ModelIdentifier   string   `json:"modelIdentifier" gorm:"size:100;not null"` // provider/model 形式
	ToolNames         []string `json:"toolNames" gorm:"type:jsonb;serializer:json"`
	Temperature       float64  `json:"temperature" gorm:"type:decimal(3,2);default:0.7"`
	MaxTokens         int      `json:"maxTokens" gorm:"default:4096"`

	// 开关
	UseFileSearch bool `json:"useFileSearch" gorm:"default:false"` // 允许底层框架注入文件检索上下文
	IsPublic      bool `json:"isPublic" gorm:"default:false"`      // 公开 Agent 允许跨租户只读使用

	// 时间戳
	CreatedAt time.Time  `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time  `json:"updatedAt" gorm:"not null;autoUpdateTime"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" gorm:"index"`
}

// BeforeCreate GORM 钩子：创建前设置 ID，并去重工具名
func (a *Agent) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.ToolNames = dedupToolNames(a.ToolNames)
	return nil
}

// TableName 指定表名
func (Agent) TableName() string {
	return "agents"
}

// dedupToolNames 保序去重工具名
func dedupToolNames(names []string) []string {
	if len(names) == 0 {
		return names
	}
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	return result
}
