// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Repository 角色向量仓储
type Repository struct {
	client *Client
}

// NewRepository 创建角色向量仓储
func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

// SearchResult 语义检索结果
type SearchResult struct {
	Name        string
	Description string
	// Distance 余弦距离，越小越相关
	Distance float32
}

// EnsureCharactersCollection 确保 characters 集合与索引可用（不存在则创建）。
// 约束：不会做 drop/rebuild 等破坏性操作。
func (r *Repository) EnsureCharactersCollection(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}

	exists, err := r.client.HasCollection(ctx, CollectionCharacters)
	if err != nil {
		return err
	}
	if !exists {
		if err := r.createCollection(ctx, CharactersSchema()); err != nil {
			return err
		}
		// 新建集合时创建索引；若失败，允许后续由运维介入。
		_ = r.createIndex(ctx, CollectionCharacters)
	}

	// 尝试确保集合已加载（若已加载，Milvus 会返回成功）
	return r.client.LoadCollection(ctx, CollectionCharacters)
}

func (r *Repository) createCollection(ctx context.Context, schema *entity.Schema) error {
	ctx, span := tracer.Start(ctx, "milvus.CreateCollection",
		trace.WithAttributes(attribute.String("collection", schema.CollectionName)))
	defer span.End()

	schema.CollectionName = r.client.CollectionName(schema.CollectionName)

	if err := r.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (r *Repository) createIndex(ctx context.Context, collection string) error {
	ctx, span := tracer.Start(ctx, "milvus.CreateIndex",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	collName := r.client.CollectionName(collection)

	idx, err := entity.NewIndexHNSW(
		entity.COSINE,
		r.client.config.HNSWM,
		r.client.config.HNSWEfConstruction,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := r.client.milvus.CreateIndex(ctx, collName, "vector", idx, false); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// Upsert 写入角色记录
// Milvus 主键写入不覆盖旧值，先按 id 删除再插入，最后 Flush 保证可见。
func (r *Repository) Upsert(ctx context.Context, record *CharacterRecord) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.UpsertCharacter",
		trace.WithAttributes(attribute.String("character", record.Name)))
	defer span.End()

	expr, err := idExpr(record.ID)
	if err != nil {
		return err
	}

	collName := r.client.CollectionName(CollectionCharacters)

	if err := r.client.milvus.Delete(ctx, collName, "", expr); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete existing character: %w", err)
	}

	idCol := entity.NewColumnVarChar("id", []string{record.ID})
	vectorCol := entity.NewColumnFloatVector("vector", VectorDimension, [][]float32{record.Vector})
	nameCol := entity.NewColumnVarChar("name", []string{record.Name})
	descCol := entity.NewColumnVarChar("description", []string{record.Description})

	if _, err := r.client.milvus.Insert(ctx, collName, "", idCol, vectorCol, nameCol, descCol); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert character: %w", err)
	}

	if err := r.client.milvus.Flush(ctx, collName, false); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	return nil
}

// Delete 按角色名删除记录
func (r *Repository) Delete(ctx context.Context, name string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.DeleteCharacter",
		trace.WithAttributes(attribute.String("character", name)))
	defer span.End()

	expr, err := idExpr(name)
	if err != nil {
		return err
	}

	collName := r.client.CollectionName(CollectionCharacters)
	if err := r.client.milvus.Delete(ctx, collName, "", expr); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete character: %w", err)
	}
	if err := r.client.milvus.Flush(ctx, collName, false); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	return nil
}

// Get 按角色名查询记录，未找到时返回 nil
func (r *Repository) Get(ctx context.Context, name string) (*CharacterRecord, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.GetCharacter",
		trace.WithAttributes(attribute.String("character", name)))
	defer span.End()

	expr, err := idExpr(name)
	if err != nil {
		return nil, err
	}

	collName := r.client.CollectionName(CollectionCharacters)
	rs, err := r.client.milvus.Query(ctx, collName, nil, expr, []string{"id", "name", "description"})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query character: %w", err)
	}

	records := parseRecords(rs)
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// List 返回全部角色记录
func (r *Repository) List(ctx context.Context) ([]*CharacterRecord, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.ListCharacters")
	defer span.End()

	collName := r.client.CollectionName(CollectionCharacters)
	rs, err := r.client.milvus.Query(ctx, collName, nil, `id != ""`, []string{"id", "name", "description"})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}

	records := parseRecords(rs)
	span.SetAttributes(attribute.Int("count", len(records)))
	return records, nil
}

// Search 按查询向量检索最相关的角色
func (r *Repository) Search(ctx context.Context, queryVector []float32, topK int) ([]*SearchResult, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.SearchCharacters",
		trace.WithAttributes(attribute.Int("top_k", topK)))
	defer span.End()

	collName := r.client.CollectionName(CollectionCharacters)

	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := r.client.milvus.Search(ctx,
		collName,
		nil,
		"",
		[]string{"name", "description"},
		[]entity.Vector{entity.FloatVector(queryVector)},
		"vector",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search characters: %w", err)
	}

	var searchResults []*SearchResult
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			// COSINE 指标返回相似度得分，转换为距离
			sr := &SearchResult{
				Distance: 1 - result.Scores[i],
			}
			if nameCol, ok := result.Fields.GetColumn("name").(*entity.ColumnVarChar); ok {
				sr.Name = nameCol.Data()[i]
			}
			if descCol, ok := result.Fields.GetColumn("description").(*entity.ColumnVarChar); ok {
				sr.Description = descCol.Data()[i]
			}
			searchResults = append(searchResults, sr)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(searchResults)))
	return searchResults, nil
}

// idExpr 构造主键过滤表达式
// 角色名在入口处已做合法性校验，这里只兜底拒绝含引号的值。
func idExpr(id string) (string, error) {
	if strings.ContainsAny(id, `"`) {
		return "", fmt.Errorf("invalid character name: %q", id)
	}
	return fmt.Sprintf(`id == "%s"`, id), nil
}

func parseRecords(rs []entity.Column) []*CharacterRecord {
	var ids, names, descs []string
	for _, col := range rs {
		vc, ok := col.(*entity.ColumnVarChar)
		if !ok {
			continue
		}
		switch col.Name() {
		case "id":
			ids = vc.Data()
		case "name":
			names = vc.Data()
		case "description":
			descs = vc.Data()
		}
	}

	records := make([]*CharacterRecord, 0, len(ids))
	for i := range ids {
		rec := &CharacterRecord{ID: ids[i]}
		if i < len(names) {
			rec.Name = names[i]
		}
		if i < len(descs) {
			rec.Description = descs[i]
		}
		records = append(records, rec)
	}
	return records
}
