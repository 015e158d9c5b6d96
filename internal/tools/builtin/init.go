// Package builtin 内置工具定义
package builtin

import "backend/internal/tools"

// RegisterAll 注册全部内置工具
func RegisterAll(registry *tools.Registry) error {
	for _, def := range []*tools.ToolDefinition{
		ClockToolDefinition(),
	} {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}
