package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend/internal/llm/retry"
)

var errTransient = errors.New("上游暂时不可用")
var errTerminal = errors.New("认证失败")

func transientOnly(err error) bool { return errors.Is(err, errTransient) }

func TestDelay_DoublesAndCaps(t *testing.T) {
	p := retry.Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: 500 * time.Millisecond}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 500 * time.Millisecond},
		{10, 500 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := p.Delay(tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: 期望 %v，实际 %v", tc.attempt, tc.want, got)
		}
	}
}

func TestDelay_Defaults(t *testing.T) {
	var p retry.Policy
	if got := p.Delay(0); got != 500*time.Millisecond {
		t.Fatalf("默认基准应为 500ms，实际 %v", got)
	}
	if got := p.Delay(20); got != 8*time.Second {
		t.Fatalf("默认上限应为 8s，实际 %v", got)
	}
}

func TestShouldRetry_AttemptExhaustion(t *testing.T) {
	p := retry.DefaultPolicy(transientOnly)

	if !p.ShouldRetry(errTransient, 0) {
		t.Fatalf("首次失败应允许重试")
	}
	if !p.ShouldRetry(errTransient, 1) {
		t.Fatalf("第二次失败应允许重试")
	}
	if p.ShouldRetry(errTransient, 2) {
		t.Fatalf("三次尝试耗尽后不应再重试")
	}
}

func TestShouldRetry_TerminalAndNil(t *testing.T) {
	p := retry.DefaultPolicy(transientOnly)

	if p.ShouldRetry(errTerminal, 0) {
		t.Fatalf("终态错误不应重试")
	}
	if p.ShouldRetry(nil, 0) {
		t.Fatalf("无错误不应重试")
	}

	noJudge := retry.Policy{MaxAttempts: 3}
	if noJudge.ShouldRetry(errTransient, 0) {
		t.Fatalf("未配置瞬态判定时不应重试")
	}
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	p := retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Retryable: transientOnly}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("重试后应成功: %v", err)
	}
	if calls != 3 {
		t.Fatalf("期望 3 次调用，实际 %d", calls)
	}
}

func TestDo_TerminalAbortsImmediately(t *testing.T) {
	p := retry.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, Retryable: transientOnly}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errTerminal
	})
	if !errors.Is(err, errTerminal) {
		t.Fatalf("期望终态错误原样返回，实际 %v", err)
	}
	if calls != 1 {
		t.Fatalf("终态错误应立即放弃，实际调用 %d 次", calls)
	}
}

func TestDo_ExhaustionReturnsLastError(t *testing.T) {
	p := retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Retryable: transientOnly}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("耗尽后应返回最后一次错误，实际 %v", err)
	}
	if calls != 2 {
		t.Fatalf("期望 2 次调用，实际 %d", calls)
	}
}

func TestWait_ContextCancel(t *testing.T) {
	p := retry.Policy{BaseDelay: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := p.Wait(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("期望上下文取消错误，实际 %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("取消后应立即返回")
	}
}
