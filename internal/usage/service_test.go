package usage_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"backend/internal/usage"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupUsageTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:usage_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("init sqlite failed: %v", err)
	}
	// 内存 SQLite 串行化写连接，避免并发用例触发 busy
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return db
}

func newTestService(t *testing.T, freeTierLimit int64) (*usage.Service, *gorm.DB) {
	t.Helper()
	db := setupUsageTestDB(t)
	svc := usage.NewService(db, freeTierLimit, nil)
	if err := svc.AutoMigrate(); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return svc, db
}

func TestCheckQuota_UnderLimit(t *testing.T) {
	svc, _ := newTestService(t, 1000)

	if err := svc.CheckQuota(context.Background(), "tenant-1"); err != nil {
		t.Fatalf("expected quota ok, got %v", err)
	}
}

func TestCheckQuota_AtLimitFailsFast(t *testing.T) {
	svc, _ := newTestService(t, 1000)
	ctx := context.Background()

	if err := svc.RecordUsage(ctx, usage.Record{
		TenantID: "tenant-1", SessionID: "s1", Model: "gpt-4o",
		PromptTokens: 600, CompletionTokens: 400,
	}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	err := svc.CheckQuota(ctx, "tenant-1")
	var quotaErr *usage.QuotaExceededError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if quotaErr.Limit != 1000 || quotaErr.Used != 1000 {
		t.Fatalf("unexpected quota values: used=%d limit=%d", quotaErr.Used, quotaErr.Limit)
	}

	// 超额后余额保持不变
	balance, err := svc.CurrentBalance(ctx, "tenant-1")
	if err != nil {
		t.Fatalf("balance query failed: %v", err)
	}
	if balance.TokensUsed != 1000 {
		t.Fatalf("expected 1000 tokens used, got %d", balance.TokensUsed)
	}
}

func TestCheckQuota_UsesPlanLimit(t *testing.T) {
	svc, db := newTestService(t, 1000)
	ctx := context.Background()

	if err := db.Create(&usage.Plan{Name: "pro", MonthlyTokenLimit: 5000, IsActive: true}).Error; err != nil {
		t.Fatalf("seed plan failed: %v", err)
	}
	if err := db.Create(&usage.TenantPlan{TenantID: "tenant-pro", PlanName: "pro"}).Error; err != nil {
		t.Fatalf("seed binding failed: %v", err)
	}

	if err := svc.RecordUsage(ctx, usage.Record{
		TenantID: "tenant-pro", Model: "gpt-4o", PromptTokens: 1500, CompletionTokens: 500,
	}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	// 2000 < 5000，pro 套餐未超限；同量级对 free 租户已超限
	if err := svc.CheckQuota(ctx, "tenant-pro"); err != nil {
		t.Fatalf("expected pro tenant under limit, got %v", err)
	}
}

func TestRecordUsage_SumsIntoSingleMonthRow(t *testing.T) {
	svc, db := newTestService(t, 100000)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.RecordUsage(ctx, usage.Record{
			TenantID: "tenant-1", SessionID: "s1", Model: "gpt-4o-mini",
			PromptTokens: 100, CompletionTokens: 50,
		}); err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
	}

	var count int64
	if err := db.Model(&usage.UserTokenBalance{}).Where("tenant_id = ?", "tenant-1").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single balance row, got %d", count)
	}

	balance, err := svc.CurrentBalance(ctx, "tenant-1")
	if err != nil {
		t.Fatalf("balance query failed: %v", err)
	}
	if balance.TokensUsed != 450 {
		t.Fatalf("expected 450 tokens used, got %d", balance.TokensUsed)
	}
}

func TestRecordUsage_MonthRolloverKeepsPriorRow(t *testing.T) {
	svc, db := newTestService(t, 100000)
	ctx := context.Background()

	// 上个月的余额行不应被本月用量合并
	now := time.Now().UTC()
	prevMonth := now.AddDate(0, -1, 0)
	prior := &usage.UserTokenBalance{
		TenantID:    "tenant-1",
		Month:       int(prevMonth.Month()),
		Year:        prevMonth.Year(),
		TokensUsed:  9999,
		LastResetAt: prevMonth,
	}
	if err := db.Create(prior).Error; err != nil {
		t.Fatalf("seed prior month failed: %v", err)
	}

	if err := svc.RecordUsage(ctx, usage.Record{
		TenantID: "tenant-1", Model: "gpt-4o", PromptTokens: 10, CompletionTokens: 20,
	}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	balance, err := svc.CurrentBalance(ctx, "tenant-1")
	if err != nil {
		t.Fatalf("balance query failed: %v", err)
	}
	if balance.TokensUsed != 30 {
		t.Fatalf("expected fresh month to start at 30, got %d", balance.TokensUsed)
	}

	var priorRow usage.UserTokenBalance
	err = db.Where("tenant_id = ? AND month = ? AND year = ?",
		"tenant-1", prior.Month, prior.Year).First(&priorRow).Error
	if err != nil {
		t.Fatalf("prior row lookup failed: %v", err)
	}
	if priorRow.TokensUsed != 9999 {
		t.Fatalf("prior month row mutated: %d", priorRow.TokensUsed)
	}
}

func TestRecordUsage_ConcurrentNoLostUpdate(t *testing.T) {
	svc, _ := newTestService(t, 1000000)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- svc.RecordUsage(ctx, usage.Record{
				TenantID:  "tenant-1",
				SessionID: fmt.Sprintf("session-%d", i),
				Model:     "gpt-4o",
				PromptTokens: 10, CompletionTokens: 5,
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent record failed: %v", err)
		}
	}

	balance, err := svc.CurrentBalance(ctx, "tenant-1")
	if err != nil {
		t.Fatalf("balance query failed: %v", err)
	}
	if balance.TokensUsed != int64(workers*15) {
		t.Fatalf("lost update: expected %d, got %d", workers*15, balance.TokensUsed)
	}
}

func TestWriteHistory_AppendsRows(t *testing.T) {
	svc, _ := newTestService(t, 100000)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.WriteHistory(ctx, usage.Record{
			TenantID: "tenant-1", SessionID: "s1", Model: "gpt-4o",
			PromptTokens: 100, CompletionTokens: 200,
		}); err != nil {
			t.Fatalf("write history failed: %v", err)
		}
	}

	rows, err := svc.ListHistory(ctx, "tenant-1", 10)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].TotalTokens != 300 {
		t.Fatalf("expected total 300, got %d", rows[0].TotalTokens)
	}
	if rows[0].CostEstimate == nil {
		t.Fatalf("expected cost estimate for known model")
	}
}

func TestWriteHistory_UnknownModelNoCost(t *testing.T) {
	svc, _ := newTestService(t, 100000)
	ctx := context.Background()

	if err := svc.WriteHistory(ctx, usage.Record{
		TenantID: "tenant-1", SessionID: "s1", Model: "some/unknown-model",
		PromptTokens: 10, CompletionTokens: 10,
	}); err != nil {
		t.Fatalf("write history failed: %v", err)
	}

	rows, err := svc.ListHistory(ctx, "tenant-1", 10)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if rows[0].CostEstimate != nil {
		t.Fatalf("expected nil cost estimate for unknown model")
	}
}
