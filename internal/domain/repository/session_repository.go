// Package repository 定义领域仓储接口
package repository

import (
	"context"

	"storyspark-api/internal/domain/entity"
)

// SessionRepository 故事会话仓储接口
// 会话如何在两次交互之间存续由实现决定（Redis 或进程内缓存）。
type SessionRepository interface {
	Save(ctx context.Context, session *entity.StorySession) error
	Get(ctx context.Context, id string) (*entity.StorySession, error)
	Delete(ctx context.Context, id string) error
}
