package tools

import (
	"fmt"
	"sync"
)

// Registry 静态工具注册表
// 进程启动时注册内置工具，此后只读；动态工具走租户目录，不进注册表
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*ToolDefinition // name -> definition
}

// NewRegistry 创建工具注册表
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[string]*ToolDefinition),
	}
}

// Register 注册工具
func (r *Registry) Register(definition *ToolDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[definition.Name]; exists {
		return fmt.Errorf("工具 %s 已注册", definition.Name)
	}

	r.schemas[definition.Name] = definition
	return nil
}

// Get 获取工具定义
func (r *Registry) Get(name string) (*ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, exists := r.schemas[name]
	return def, exists
}

// List 列出所有工具
func (r *Registry) List() []*ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*ToolDefinition, 0, len(r.schemas))
	for _, def := range r.schemas {
		result = append(result, def)
	}
	return result
}

// Count 统计工具数量
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}
