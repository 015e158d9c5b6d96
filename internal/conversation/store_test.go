package conversation_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"backend/internal/conversation"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupStore(t *testing.T, maxHistory int) (*conversation.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return conversation.NewStore(rdb, maxHistory, time.Hour), mr
}

func userMessage(content string) conversation.Message {
	return conversation.Message{
		Role:      conversation.RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

func TestAppendAndHistory(t *testing.T) {
	store, _ := setupStore(t, 100)
	ctx := context.Background()

	err := store.Append(ctx, "tenant-1", "session-1", "agent-1",
		userMessage("hello"),
		conversation.Message{Role: conversation.RoleAssistant, Content: "hi there", Timestamp: time.Now()},
	)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	history, err := store.History(ctx, "tenant-1", "session-1")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Content != "hello" || history[1].Content != "hi there" {
		t.Fatalf("unexpected order: %q, %q", history[0].Content, history[1].Content)
	}
	if history[0].Role != conversation.RoleUser || history[1].Role != conversation.RoleAssistant {
		t.Fatalf("unexpected roles: %s, %s", history[0].Role, history[1].Role)
	}
}

func TestHistory_CrossTenantForbidden(t *testing.T) {
	store, _ := setupStore(t, 100)
	ctx := context.Background()

	if err := store.Append(ctx, "tenant-1", "session-1", "agent-1", userMessage("secret")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	// 其他租户读取必须拿到 Forbidden，绝不返回数据
	history, err := store.History(ctx, "tenant-2", "session-1")
	if !errors.Is(err, conversation.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if history != nil {
		t.Fatalf("expected no data, got %d messages", len(history))
	}
}

func TestAppend_CrossTenantForbidden(t *testing.T) {
	store, _ := setupStore(t, 100)
	ctx := context.Background()

	if err := store.Append(ctx, "tenant-1", "session-1", "agent-1", userMessage("mine")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	err := store.Append(ctx, "tenant-2", "session-1", "agent-1", userMessage("hijack"))
	if !errors.Is(err, conversation.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestHistory_UnknownSession(t *testing.T) {
	store, _ := setupStore(t, 100)

	_, err := store.History(context.Background(), "tenant-1", "no-such-session")
	if !errors.Is(err, conversation.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAppend_BoundsHistory(t *testing.T) {
	const maxHistory = 5
	store, _ := setupStore(t, maxHistory)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		if err := store.Append(ctx, "tenant-1", "session-1", "agent-1",
			userMessage(fmt.Sprintf("msg-%d", i))); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	history, err := store.History(ctx, "tenant-1", "session-1")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != maxHistory {
		t.Fatalf("expected exactly %d messages, got %d", maxHistory, len(history))
	}
	// 保留的是最新的 N 条，顺序不变
	for i, msg := range history {
		want := fmt.Sprintf("msg-%d", 12-maxHistory+i)
		if msg.Content != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, msg.Content)
		}
	}
}

func TestAppend_RefreshesTTL(t *testing.T) {
	store, mr := setupStore(t, 100)
	ctx := context.Background()

	if err := store.Append(ctx, "tenant-1", "session-1", "agent-1", userMessage("one")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	// 消耗一半 TTL 后再次追加，TTL 应被重置
	mr.FastForward(30 * time.Minute)
	if err := store.Append(ctx, "tenant-1", "session-1", "agent-1", userMessage("two")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	ttl := mr.TTL("conv:tenant-1:session-1")
	if ttl < 59*time.Minute {
		t.Fatalf("expected refreshed ttl, got %v", ttl)
	}
}

func TestSessionExpiry(t *testing.T) {
	store, mr := setupStore(t, 100)
	ctx := context.Background()

	if err := store.Append(ctx, "tenant-1", "session-1", "agent-1", userMessage("hello")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	_, err := store.History(ctx, "tenant-1", "session-1")
	if !errors.Is(err, conversation.ErrSessionNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
}

func TestTouch_RefreshesTTL(t *testing.T) {
	store, mr := setupStore(t, 100)
	ctx := context.Background()

	if err := store.Append(ctx, "tenant-1", "session-1", "agent-1", userMessage("hello")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	mr.FastForward(30 * time.Minute)
	if err := store.Touch(ctx, "tenant-1", "session-1"); err != nil {
		t.Fatalf("touch failed: %v", err)
	}

	if ttl := mr.TTL("convowner:session-1"); ttl < 59*time.Minute {
		t.Fatalf("expected refreshed owner ttl, got %v", ttl)
	}
}

func TestListSessions(t *testing.T) {
	store, _ := setupStore(t, 100)
	ctx := context.Background()

	for _, id := range []string{"s1", "s2"} {
		if err := store.Append(ctx, "tenant-1", id, "agent-1", userMessage("hi")); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	if err := store.UpdateMetadata(ctx, "tenant-1", "s1", map[string]string{"title": "规划讨论", "pinned": "1"}); err != nil {
		t.Fatalf("update metadata failed: %v", err)
	}

	sessions, err := store.ListSessions(ctx, "tenant-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	byID := map[string]bool{}
	for _, s := range sessions {
		byID[s.SessionID] = true
		if s.AgentID != "agent-1" {
			t.Fatalf("expected agent_id recorded, got %q", s.AgentID)
		}
		if s.SessionID == "s1" {
			if s.Title != "规划讨论" || !s.Pinned {
				t.Fatalf("metadata not applied: %+v", s)
			}
		}
	}
	if !byID["s1"] || !byID["s2"] {
		t.Fatalf("missing sessions: %v", byID)
	}
}

func TestDelete_RemovesAllKeys(t *testing.T) {
	store, mr := setupStore(t, 100)
	ctx := context.Background()

	if err := store.Append(ctx, "tenant-1", "session-1", "agent-1", userMessage("hello")); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := store.Delete(ctx, "tenant-1", "session-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	for _, key := range []string{"conv:tenant-1:session-1", "convmeta:tenant-1:session-1", "convowner:session-1"} {
		if mr.Exists(key) {
			t.Fatalf("expected key %s removed", key)
		}
	}

	sessions, err := store.ListSessions(ctx, "tenant-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no sessions, got %d", len(sessions))
	}
}

func TestStoreUnavailable(t *testing.T) {
	store, mr := setupStore(t, 100)
	ctx := context.Background()

	if err := store.Append(ctx, "tenant-1", "session-1", "agent-1", userMessage("hello")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	// 缓存不可达必须显式失败，不能静默丢消息
	mr.Close()

	if err := store.Append(ctx, "tenant-1", "session-1", "agent-1", userMessage("again")); !errors.Is(err, conversation.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := store.History(ctx, "tenant-1", "session-1"); !errors.Is(err, conversation.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
