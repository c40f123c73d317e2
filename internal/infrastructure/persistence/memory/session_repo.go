// Package memory 提供进程内会话仓储，用于未启用 Redis 的部署
package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"storyspark-api/internal/domain/entity"
	"storyspark-api/pkg/errors"
)

// SessionRepository 基于进程内缓存的会话仓储
// 进程重启后会话丢失，行为上等价于交互界面关闭。
type SessionRepository struct {
	sessions *gocache.Cache
}

// NewSessionRepository 创建进程内会话仓储
func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionRepository{
		sessions: gocache.New(ttl, 10*time.Minute),
	}
}

// Save 写入会话并重置有效期
func (r *SessionRepository) Save(_ context.Context, session *entity.StorySession) error {
	if session == nil || session.ID == "" {
		return errors.New(errors.CodeInvalidParam, "session id is required")
	}
	r.sessions.SetDefault(session.ID, session)
	return nil
}

// Get 读取会话，不存在时返回 ErrSessionNotFound
func (r *SessionRepository) Get(_ context.Context, id string) (*entity.StorySession, error) {
	v, ok := r.sessions.Get(id)
	if !ok {
		return nil, errors.ErrSessionNotFound.WithDetail(id)
	}
	session, ok := v.(*entity.StorySession)
	if !ok {
		return nil, errors.New(errors.CodeInternalError, "unexpected session cache value")
	}
	return session, nil
}

// Delete 删除会话
func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.sessions.Delete(id)
	return nil
}
