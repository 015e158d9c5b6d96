// Package conversation 基于 Redis 的会话存储
// 每个会话包含：消息列表、所有权标记、元数据散列，外加每租户的会话集合；
// 全部键共用同一 TTL，由 Redis 原生过期回收，应用侧不做轮询
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"backend/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrForbidden 会话不属于请求租户（潜在越权访问，调用方应记录安全事件）
	ErrForbidden = errors.New("会话不属于当前租户")
	// ErrSessionNotFound 会话不存在或已过期
	ErrSessionNotFound = errors.New("会话不存在")
	// ErrStoreUnavailable 底层缓存不可达；会话连续性是正确性要求，必须显式失败
	ErrStoreUnavailable = errors.New("会话存储不可用")
)

// Store 会话存储
type Store struct {
	rdb        redis.UniversalClient
	maxHistory int           // 单会话最大消息数，超出后裁掉最旧的
	ttl        time.Duration // 会话空闲过期时间
}

// NewStore 创建会话存储
func NewStore(rdb redis.UniversalClient, maxHistory int, ttl time.Duration) *Store {
	if maxHistory <= 0 {
		maxHistory = 100
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{rdb: rdb, maxHistory: maxHistory, ttl: ttl}
}

// 键布局
func (s *Store) convKey(tenantID, sessionID string) string {
	return fmt.Sprintf("conv:%s:%s", tenantID, sessionID)
}

func (s *Store) sessionsKey(tenantID string) string {
	return fmt.Sprintf("convsess:%s", tenantID)
}

// ownerKey 独立于租户维度，任何租户来查都能校验所有权
func (s *Store) ownerKey(sessionID string) string {
	return fmt.Sprintf("convowner:%s", sessionID)
}

func (s *Store) metaKey(tenantID, sessionID string) string {
	return fmt.Sprintf("convmeta:%s:%s", tenantID, sessionID)
}

// checkOwner 校验会话所有权
// 所有权键缺失视为新会话（或已过期），由调用方决定是否创建
func (s *Store) checkOwner(ctx context.Context, tenantID, sessionID string) (exists bool, err error) {
	owner, err := s.rdb.Get(ctx, s.ownerKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if owner != tenantID {
		logger.Warn("跨租户会话访问被拒绝",
			zap.String("session_id", sessionID),
			zap.String("requester", tenantID),
		)
		return true, ErrForbidden
	}
	return true, nil
}

// Append 追加消息并刷新 TTL
// 首次追加即创建会话；裁剪在插入之后执行，保证新消息一定保留
func (s *Store) Append(ctx context.Context, tenantID, sessionID, agentID string, messages ...Message) error {
	if len(messages) == 0 {
		return nil
	}

	exists, err := s.checkOwner(ctx, tenantID, sessionID)
	if err != nil {
		return err
	}

	payloads := make([]interface{}, len(messages))
	for i, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("序列化消息失败: %w", err)
		}
		payloads[i] = data
	}

	now := time.Now().UTC()
	convKey := s.convKey(tenantID, sessionID)
	metaKey := s.metaKey(tenantID, sessionID)

	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, convKey, payloads...)
	pipe.LTrim(ctx, convKey, int64(-s.maxHistory), -1)
	pipe.SAdd(ctx, s.sessionsKey(tenantID), sessionID)
	pipe.Set(ctx, s.ownerKey(sessionID), tenantID, s.ttl)
	if !exists {
		pipe.HSet(ctx, metaKey,
			"agent_id", agentID,
			"created_at", now.Format(time.RFC3339Nano),
		)
	}
	pipe.HSet(ctx, metaKey, "last_activity_at", now.Format(time.RFC3339Nano))
	pipe.Expire(ctx, convKey, s.ttl)
	pipe.Expire(ctx, metaKey, s.ttl)
	pipe.Expire(ctx, s.sessionsKey(tenantID), s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// History 读取会话历史（插入顺序）
// 所有权不匹配时返回 ErrForbidden，绝不返回数据
func (s *Store) History(ctx context.Context, tenantID, sessionID string) ([]Message, error) {
	exists, err := s.checkOwner(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrSessionNotFound
	}

	raw, err := s.rdb.LRange(ctx, s.convKey(tenantID, sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	messages := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			logger.Warn("历史消息反序列化失败，已跳过",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Touch 刷新会话全部关联键的 TTL
func (s *Store) Touch(ctx context.Context, tenantID, sessionID string) error {
	exists, err := s.checkOwner(ctx, tenantID, sessionID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrSessionNotFound
	}

	pipe := s.rdb.TxPipeline()
	pipe.Expire(ctx, s.convKey(tenantID, sessionID), s.ttl)
	pipe.Expire(ctx, s.metaKey(tenantID, sessionID), s.ttl)
	pipe.Expire(ctx, s.ownerKey(sessionID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ListSessions 列出租户的全部存活会话
// 已过期但仍留在集合里的会话 ID 顺手清理
func (s *Store) ListSessions(ctx context.Context, tenantID string) ([]SessionInfo, error) {
	ids, err := s.rdb.SMembers(ctx, s.sessionsKey(tenantID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	sessions := make([]SessionInfo, 0, len(ids))
	for _, id := range ids {
		meta, err := s.rdb.HGetAll(ctx, s.metaKey(tenantID, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if len(meta) == 0 {
			// 会话键已过期，清理集合残留
			s.rdb.SRem(ctx, s.sessionsKey(tenantID), id)
			continue
		}
		sessions = append(sessions, sessionInfoFromMeta(id, meta))
	}
	return sessions, nil
}

// UpdateMetadata 更新会话元数据（标题、置顶等自由键值）
func (s *Store) UpdateMetadata(ctx context.Context, tenantID, sessionID string, fields map[string]string) error {
	exists, err := s.checkOwner(ctx, tenantID, sessionID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrSessionNotFound
	}
	if len(fields) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		values = append(values, k, v)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, s.metaKey(tenantID, sessionID), values...)
	pipe.Expire(ctx, s.metaKey(tenantID, sessionID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Delete 删除会话及全部关联键
func (s *Store) Delete(ctx context.Context, tenantID, sessionID string) error {
	exists, err := s.checkOwner(ctx, tenantID, sessionID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrSessionNotFound
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.convKey(tenantID, sessionID))
	pipe.Del(ctx, s.metaKey(tenantID, sessionID))
	pipe.Del(ctx, s.ownerKey(sessionID))
	pipe.SRem(ctx, s.sessionsKey(tenantID), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// sessionInfoFromMeta 从元数据散列还原会话概要
func sessionInfoFromMeta(sessionID string, meta map[string]string) SessionInfo {
	info := SessionInfo{
		SessionID: sessionID,
		AgentID:   meta["agent_id"],
		Title:     meta["title"],
	}
	if pinned, err := strconv.ParseBool(meta["pinned"]); err == nil {
		info.Pinned = pinned
	}
	if t, err := time.Parse(time.RFC3339Nano, meta["created_at"]); err == nil {
		info.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, meta["last_activity_at"]); err == nil {
		info.LastActivityAt = t
	}
	return info
}
