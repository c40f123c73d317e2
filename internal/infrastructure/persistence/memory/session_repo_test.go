package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyspark-api/internal/domain/entity"
	"storyspark-api/pkg/errors"
)

func TestSaveAndGet(t *testing.T) {
	repo := NewSessionRepository(time.Hour)
	ctx := context.Background()

	session := entity.NewStorySession("My Story")
	session.SetScene(1, "Scene one.")
	require.NoError(t, repo.Save(ctx, session))

	got, err := repo.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, "Scene one.", got.Scenes[1])
}

func TestGetMissingSession(t *testing.T) {
	repo := NewSessionRepository(time.Hour)

	_, err := repo.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, errors.CodeSessionNotFound, errors.AsAppError(err).Code)
}

func TestSaveRequiresID(t *testing.T) {
	repo := NewSessionRepository(time.Hour)

	err := repo.Save(context.Background(), &entity.StorySession{})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidParam, errors.AsAppError(err).Code)
}

func TestDelete(t *testing.T) {
	repo := NewSessionRepository(time.Hour)
	ctx := context.Background()

	session := entity.NewStorySession("")
	require.NoError(t, repo.Save(ctx, session))
	require.NoError(t, repo.Delete(ctx, session.ID))

	_, err := repo.Get(ctx, session.ID)
	require.Error(t, err)
}
