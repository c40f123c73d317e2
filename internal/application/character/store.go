package character

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storyspark-api/internal/domain/entity"
	"storyspark-api/pkg/errors"
	"storyspark-api/pkg/logger"
	"storyspark-api/pkg/metrics"
)

var tracer = otel.Tracer("character")

const (
	// MaxNameLength 角色名最大长度，与向量库主键字段对齐
	MaxNameLength = 256

	listCacheKey  = "names"
	descKeyPrefix = "desc:"
)

// Store 角色档案应用服务
// 写操作失败向上返回，读操作（List/GetDescription/Search）吸收存储错误，
// 降级为空结果以保证生成流水线可用。
type Store struct {
	vectors     VectorStore
	embedder    embedding.Embedder
	invalidator EmbeddingInvalidator

	// readCache 缓存角色名列表与单个描述，写操作后整体清空
	readCache *gocache.Cache
}

// NewStore 创建角色档案服务
func NewStore(vectors VectorStore, embedder embedding.Embedder, invalidator EmbeddingInvalidator, listTTL time.Duration) *Store {
	if listTTL <= 0 {
		listTTL = time.Minute
	}
	return &Store{
		vectors:     vectors,
		embedder:    embedder,
		invalidator: invalidator,
		readCache:   gocache.New(listTTL, 2*listTTL),
	}
}

// ValidateName 校验角色名
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New(errors.CodeInvalidParam, "character name is required")
	}
	if len(name) > MaxNameLength {
		return errors.New(errors.CodeInvalidParam, "character name too long")
	}
	if strings.Contains(name, `"`) {
		return errors.New(errors.CodeInvalidParam, "character name must not contain double quotes")
	}
	return nil
}

// Save 新增或覆盖角色
// 同名角色的描述与向量一并替换，不存在旧描述配新向量的中间态。
func (s *Store) Save(ctx context.Context, name, description string) (*entity.Character, error) {
	ctx, span := tracer.Start(ctx, "character.Save")
	defer span.End()

	ch := entity.NewCharacter(name, description)
	if err := ValidateName(ch.Name); err != nil {
		metrics.CharacterOpsTotal.WithLabelValues("save", "invalid").Inc()
		return nil, err
	}
	if !ch.Valid() {
		metrics.CharacterOpsTotal.WithLabelValues("save", "invalid").Inc()
		return nil, errors.New(errors.CodeInvalidParam, "character description is required")
	}
	span.SetAttributes(attribute.String("character", ch.Name))

	vec, err := s.embedText(ctx, ch.Description)
	if err != nil {
		metrics.CharacterOpsTotal.WithLabelValues("save", "error").Inc()
		if errors.IsAppError(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CodeEmbeddingFailed, "failed to embed character description")
	}
	ch.Embedding = vec

	if err := s.vectors.Upsert(ctx, &Record{
		Name:        ch.Name,
		Description: ch.Description,
		Vector:      vec,
	}); err != nil {
		metrics.CharacterOpsTotal.WithLabelValues("save", "error").Inc()
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to save character")
	}

	s.flushCaches()
	metrics.CharacterOpsTotal.WithLabelValues("save", "success").Inc()
	return ch, nil
}

// Delete 删除角色，角色不存在时为空操作而非错误
func (s *Store) Delete(ctx context.Context, name string) error {
	ctx, span := tracer.Start(ctx, "character.Delete",
		trace.WithAttributes(attribute.String("character", name)))
	defer span.End()

	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		metrics.CharacterOpsTotal.WithLabelValues("delete", "invalid").Inc()
		return err
	}

	if err := s.vectors.Delete(ctx, name); err != nil {
		metrics.CharacterOpsTotal.WithLabelValues("delete", "error").Inc()
		return errors.Wrap(err, errors.CodeStoreUnavailable, "failed to delete character")
	}

	s.flushCaches()
	metrics.CharacterOpsTotal.WithLabelValues("delete", "success").Inc()
	return nil
}

// flushCaches 写操作后清空读缓存与嵌入缓存
func (s *Store) flushCaches() {
	s.readCache.Flush()
	if s.invalidator != nil {
		s.invalidator.Flush()
	}
}

// GetDescription 按名称读取角色描述
// 未找到或存储不可用时都返回空串，调用方无需区分两种情况。
func (s *Store) GetDescription(ctx context.Context, name string) string {
	ctx, span := tracer.Start(ctx, "character.GetDescription",
		trace.WithAttributes(attribute.String("character", name)))
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	cacheKey := descKeyPrefix + name
	if v, ok := s.readCache.Get(cacheKey); ok {
		if desc, ok := v.(string); ok {
			return desc
		}
	}

	record, err := s.vectors.Get(ctx, name)
	if err != nil {
		logger.Warn(ctx, "character lookup degraded to empty result", "character", name, "error", err)
		metrics.CharacterOpsTotal.WithLabelValues("get", "error").Inc()
		return ""
	}
	if record == nil {
		metrics.CharacterOpsTotal.WithLabelValues("get", "miss").Inc()
		return ""
	}

	s.readCache.SetDefault(cacheKey, record.Description)
	metrics.CharacterOpsTotal.WithLabelValues("get", "success").Inc()
	return record.Description
}

// ListNames 返回全部角色名（排序后），结果缓存一个 TTL 周期
// 存储不可用时返回空列表。
func (s *Store) ListNames(ctx context.Context) []string {
	ctx, span := tracer.Start(ctx, "character.ListNames")
	defer span.End()

	if v, ok := s.readCache.Get(listCacheKey); ok {
		if names, ok := v.([]string); ok {
			return names
		}
	}

	records, err := s.vectors.List(ctx)
	if err != nil {
		logger.Warn(ctx, "character list degraded to empty result", "error", err)
		metrics.CharacterOpsTotal.WithLabelValues("list", "error").Inc()
		return []string{}
	}

	names := make([]string, 0, len(records))
	for _, rec := range records {
		names = append(names, rec.Name)
	}
	sort.Strings(names)

	s.readCache.SetDefault(listCacheKey, names)
	metrics.CharacterOpsTotal.WithLabelValues("list", "success").Inc()
	return names
}

// Search 按语义检索最相关的角色
// 空库或任何检索失败都返回空列表。
func (s *Store) Search(ctx context.Context, query string, topK int) []entity.CharacterHit {
	ctx, span := tracer.Start(ctx, "character.Search",
		trace.WithAttributes(attribute.Int("top_k", topK)))
	defer span.End()

	if strings.TrimSpace(query) == "" || topK <= 0 {
		return []entity.CharacterHit{}
	}

	vec, err := s.embedText(ctx, query)
	if err != nil {
		logger.Warn(ctx, "query embedding failed, search degraded to empty result", "error", err)
		metrics.CharacterOpsTotal.WithLabelValues("search", "error").Inc()
		return []entity.CharacterHit{}
	}

	hits, err := s.vectors.Search(ctx, vec, topK)
	if err != nil {
		logger.Warn(ctx, "character search degraded to empty result", "error", err)
		metrics.CharacterOpsTotal.WithLabelValues("search", "error").Inc()
		return []entity.CharacterHit{}
	}

	out := make([]entity.CharacterHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, entity.CharacterHit{
			Name:        h.Name,
			Description: h.Description,
			Distance:    h.Distance,
		})
	}
	metrics.CharacterOpsTotal.WithLabelValues("search", "success").Inc()
	return out
}

// RenderContext 把检索命中渲染为提示词可用的角色上下文
// 每个角色一行，格式 "- 名称: 描述"，无命中时返回空串。
func RenderContext(hits []entity.CharacterHit) string {
	if len(hits) == 0 {
		return ""
	}
	lines := make([]string, 0, len(hits))
	for _, h := range hits {
		lines = append(lines, fmt.Sprintf("- %s: %s", h.Name, h.Description))
	}
	return strings.Join(lines, "\n")
}

// embedText 嵌入单条文本并转换为 float32 向量
func (s *Store) embedText(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, errors.ErrBackendUnavailable.WithDetail("embedder")
	}
	vecs, err := s.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding backend returned %d vectors for 1 text", len(vecs))
	}
	out := make([]float32, len(vecs[0]))
	for i, v := range vecs[0] {
		out[i] = float32(v)
	}
	return out, nil
}
