package llm

import (
	"fmt"
	"strings"
)

// UnsupportedModelError 模型标识无法被任何适配器处理
// 携带当前进程实际支持的全部模型标识，便于调用方生成可操作的错误提示
type UnsupportedModelError struct {
	Model     string   // 请求的模型标识
	Supported []string // 当前支持的模型标识列表
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("不支持的模型: %s (可用: %s)", e.Model, strings.Join(e.Supported, ", "))
}
