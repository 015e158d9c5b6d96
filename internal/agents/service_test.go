package agents_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"backend/internal/agents"
)

var agentDBCounter int

func setupAgentTestDB(t *testing.T) *agents.Service {
	t.Helper()

	agentDBCounter++
	dsn := fmt.Sprintf("file:agents_%d_%d?mode=memory&cache=shared", agentDBCounter, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取底层连接失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	service := agents.NewService(db)
	if err := service.AutoMigrate(); err != nil {
		t.Fatalf("迁移表结构失败: %v", err)
	}
	return service
}

func newAgent(tenantID string) *agents.Agent {
	return &agents.Agent{
		TenantID:          tenantID,
		Name:              "写作助手",
		SystemInstruction: "你是一个写作助手",
		ModelIdentifier:   "openai/gpt-4o",
	}
}

func TestCreateAndGet(t *testing.T) {
	service := setupAgentTestDB(t)
	ctx := context.Background()

	agent := newAgent("tenant-1")
	agent.ToolNames = []string{"get_current_time", "", "get_current_time", "search_docs"}
	if err := service.Create(ctx, agent); err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	if agent.ID == "" {
		t.Fatalf("创建后应生成 ID")
	}

	got, err := service.Get(ctx, "tenant-1", agent.ID)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	// 工具名保序去重，空名剔除
	if len(got.ToolNames) != 2 || got.ToolNames[0] != "get_current_time" || got.ToolNames[1] != "search_docs" {
		t.Fatalf("工具名去重不符: %v", got.ToolNames)
	}
}

func TestCreate_RequiresTenantAndModel(t *testing.T) {
	service := setupAgentTestDB(t)
	ctx := context.Background()

	agent := newAgent("")
	if err := service.Create(ctx, agent); err == nil {
		t.Fatalf("缺少租户 ID 应报错")
	}

	agent = newAgent("tenant-1")
	agent.ModelIdentifier = ""
	if err := service.Create(ctx, agent); err == nil {
		t.Fatalf("缺少模型标识应报错")
	}
}

func TestGet_CrossTenantIsolation(t *testing.T) {
	service := setupAgentTestDB(t)
	ctx := context.Background()

	private := newAgent("tenant-1")
	if err := service.Create(ctx, private); err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	// 他租户读取私有 Agent 与读取不存在的 Agent 无法区分
	if _, err := service.Get(ctx, "tenant-2", private.ID); !errors.Is(err, agents.ErrAgentNotFound) {
		t.Fatalf("期望不存在错误，实际 %v", err)
	}
}

func TestGet_PublicAgentVisibleCrossTenant(t *testing.T) {
	service := setupAgentTestDB(t)
	ctx := context.Background()

	public := newAgent("tenant-1")
	public.IsPublic = true
	if err := service.Create(ctx, public); err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	got, err := service.Get(ctx, "tenant-2", public.ID)
	if err != nil {
		t.Fatalf("公开 Agent 应跨租户可读: %v", err)
	}
	if got.ID != public.ID {
		t.Fatalf("读取结果不符")
	}
}

func TestList_OwnPlusPublic(t *testing.T) {
	service := setupAgentTestDB(t)
	ctx := context.Background()

	mine := newAgent("tenant-1")
	if err := service.Create(ctx, mine); err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	otherPublic := newAgent("tenant-2")
	otherPublic.IsPublic = true
	if err := service.Create(ctx, otherPublic); err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	otherPrivate := newAgent("tenant-2")
	if err := service.Create(ctx, otherPrivate); err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	list, total, err := service.List(ctx, "tenant-1", 1, 20)
	if err != nil {
		t.Fatalf("列表失败: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("期望本租户 + 公开共 2 个，实际 total=%d len=%d", total, len(list))
	}
	for _, a := range list {
		if a.ID == otherPrivate.ID {
			t.Fatalf("他租户私有 Agent 不应出现在列表")
		}
	}
}

func TestUpdate_ScopedToOwner(t *testing.T) {
	service := setupAgentTestDB(t)
	ctx := context.Background()

	public := newAgent("tenant-1")
	public.IsPublic = true
	if err := service.Create(ctx, public); err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	// 公开 Agent 可读不可改
	_, err := service.Update(ctx, "tenant-2", public.ID, map[string]interface{}{"name": "篡改"})
	if !errors.Is(err, agents.ErrAgentNotFound) {
		t.Fatalf("他租户更新应视为不存在，实际 %v", err)
	}

	updated, err := service.Update(ctx, "tenant-1", public.ID, map[string]interface{}{"name": "新名字"})
	if err != nil {
		t.Fatalf("本租户更新失败: %v", err)
	}
	if updated.Name != "新名字" {
		t.Fatalf("更新未生效: %s", updated.Name)
	}
}

func TestDelete_SoftDeleteHidesAgent(t *testing.T) {
	service := setupAgentTestDB(t)
	ctx := context.Background()

	agent := newAgent("tenant-1")
	if err := service.Create(ctx, agent); err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	if err := service.Delete(ctx, "tenant-2", agent.ID); !errors.Is(err, agents.ErrAgentNotFound) {
		t.Fatalf("他租户删除应视为不存在，实际 %v", err)
	}
	if err := service.Delete(ctx, "tenant-1", agent.ID); err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	if _, err := service.Get(ctx, "tenant-1", agent.ID); !errors.Is(err, agents.ErrAgentNotFound) {
		t.Fatalf("软删后应不可见，实际 %v", err)
	}
	if err := service.Delete(ctx, "tenant-1", agent.ID); !errors.Is(err, agents.ErrAgentNotFound) {
		t.Fatalf("重复删除应报不存在，实际 %v", err)
	}
}
