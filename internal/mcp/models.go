// Package mcp 租户级 MCP 服务器接入与工具发现
package mcp

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Server 租户配置的外部 MCP 服务器
type Server struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  string    `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Endpoint  string    `gorm:"size:500;not null" json:"endpoint"`
	Enabled   bool      `gorm:"default:true" json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Server) TableName() string {
	return "mcp_servers"
}

// BeforeCreate 创建前生成 UUID
func (s *Server) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
