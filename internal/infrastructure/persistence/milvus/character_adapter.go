package milvus

import (
	"context"

	"storyspark-api/internal/application/character"
)

// CharacterStoreAdapter 将向量仓储适配为应用层的 VectorStore 端口
type CharacterStoreAdapter struct {
	repo *Repository
}

// NewCharacterStoreAdapter 创建角色存储适配器
func NewCharacterStoreAdapter(repo *Repository) *CharacterStoreAdapter {
	return &CharacterStoreAdapter{repo: repo}
}

var _ character.VectorStore = (*CharacterStoreAdapter)(nil)

func (a *CharacterStoreAdapter) Upsert(ctx context.Context, record *character.Record) error {
	return a.repo.Upsert(ctx, &CharacterRecord{
		ID:          record.Name,
		Vector:      record.Vector,
		Name:        record.Name,
		Description: record.Description,
	})
}

func (a *CharacterStoreAdapter) Delete(ctx context.Context, name string) error {
	return a.repo.Delete(ctx, name)
}

func (a *CharacterStoreAdapter) Get(ctx context.Context, name string) (*character.Record, error) {
	rec, err := a.repo.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return &character.Record{
		Name:        rec.Name,
		Description: rec.Description,
	}, nil
}

func (a *CharacterStoreAdapter) List(ctx context.Context) ([]*character.Record, error) {
	recs, err := a.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*character.Record, 0, len(recs))
	for _, rec := range recs {
		out = append(out, &character.Record{
			Name:        rec.Name,
			Description: rec.Description,
		})
	}
	return out, nil
}

func (a *CharacterStoreAdapter) Search(ctx context.Context, queryVector []float32, topK int) ([]*character.Hit, error) {
	results, err := a.repo.Search(ctx, queryVector, topK)
	if err != nil {
		return nil, err
	}
	out := make([]*character.Hit, 0, len(results))
	for _, r := range results {
		out = append(out, &character.Hit{
			Name:        r.Name,
			Description: r.Description,
			Distance:    r.Distance,
		})
	}
	return out, nil
}
