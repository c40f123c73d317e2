package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storyspark-api/internal/domain/entity"
	"storyspark-api/pkg/errors"
)

const sessionKeyPrefix = "storyspark:session:"

// SessionRepository 基于 Redis 的会话仓储
// 每次 Save 都重置 TTL，活跃会话不会过期。
type SessionRepository struct {
	client *Client
	ttl    time.Duration
}

// NewSessionRepository 创建 Redis 会话仓储
func NewSessionRepository(client *Client, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionRepository{
		client: client,
		ttl:    ttl,
	}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Save 序列化并写入会话
func (r *SessionRepository) Save(ctx context.Context, session *entity.StorySession) error {
	if session == nil || session.ID == "" {
		return errors.New(errors.CodeInvalidParam, "session id is required")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(session.ID), data, r.ttl); err != nil {
		return errors.Wrap(err, errors.CodeStoreUnavailable, "failed to save session")
	}
	return nil
}

// Get 读取会话，不存在时返回 ErrSessionNotFound
func (r *SessionRepository) Get(ctx context.Context, id string) (*entity.StorySession, error) {
	data, err := r.client.Get(ctx, sessionKey(id))
	if err != nil {
		if IsNil(err) {
			return nil, errors.ErrSessionNotFound.WithDetail(id)
		}
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to load session")
	}

	var session entity.StorySession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Delete 删除会话
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)); err != nil {
		return errors.Wrap(err, errors.CodeStoreUnavailable, "failed to delete session")
	}
	return nil
}
