// Package retry 提供可复用的指数退避重试策略
// 原则：瞬态错误（限流、网络、超时、5xx）重试，终态错误（认证、参数、证书）立即放弃
package retry

import (
	"context"
	"time"
)

// Policy 重试策略
type Policy struct {
	MaxAttempts int                   // 总尝试次数（含首次），默认 3
	BaseDelay   time.Duration         // 退避基准，默认 500ms
	MaxDelay    time.Duration         // 退避上限，默认 8s
	Retryable   func(err error) bool  // 瞬态判定；nil 表示一律不重试
}

// DefaultPolicy 返回带默认参数的策略
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
		Retryable:   retryable,
	}
}

// maxAttempts 归一化尝试次数
func (p Policy) maxAttempts() int {
	if p.MaxAttempts > 0 {
		return p.MaxAttempts
	}
	return 3
}

// Delay 计算第 attempt 次失败后的退避时长（attempt 从 0 开始，逐次翻倍，封顶 MaxDelay）
func (p Policy) Delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 8 * time.Second
	}

	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

// ShouldRetry 判断第 attempt 次失败后是否还应再试（attempt 从 0 开始）
func (p Policy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt+1 >= p.maxAttempts() {
		return false
	}
	if p.Retryable == nil {
		return false
	}
	return p.Retryable(err)
}

// Wait 按第 attempt 次失败的退避时长等待，上下文取消时提前返回
func (p Policy) Wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(p.Delay(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do 执行 op，按策略重试直至成功、耗尽次数或遇到终态错误
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < p.maxAttempts(); attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !p.ShouldRetry(lastErr, attempt) {
			return lastErr
		}
		if err := p.Wait(ctx, attempt); err != nil {
			return lastErr
		}
	}
	return lastErr
}
