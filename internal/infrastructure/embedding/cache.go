package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"storyspark-api/pkg/errors"
	"storyspark-api/pkg/metrics"
)

// CachedEmbedder 在真实 Embedder 外包一层按文本缓存
// 相同文本在 TTL 内复用首次结果，singleflight 合并并发的同文本请求。
type CachedEmbedder struct {
	inner embedding.Embedder
	cache *gocache.Cache
	group singleflight.Group
}

// NewCachedEmbedder 创建带缓存的 Embedder
func NewCachedEmbedder(inner embedding.Embedder, ttl time.Duration) *CachedEmbedder {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedEmbedder{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// EmbedStrings 实现 embedding.Embedder
// 逐条查缓存，仅把未命中的文本发给底层后端，再按原顺序拼装结果。
func (e *CachedEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if e == nil || e.inner == nil {
		return nil, errors.ErrBackendUnavailable.WithDetail("embedding backend")
	}

	out := make([][]float64, len(texts))
	missIdx := make([]int, 0, len(texts))
	for i, text := range texts {
		if v, ok := e.cache.Get(text); ok {
			if vec, ok := v.([]float64); ok {
				metrics.EmbeddingCacheHits.Inc()
				out[i] = vec
				continue
			}
		}
		metrics.EmbeddingCacheMisses.Inc()
		missIdx = append(missIdx, i)
	}
	if len(missIdx) == 0 {
		return out, nil
	}

	for _, i := range missIdx {
		text := texts[i]
		v, err, _ := e.group.Do(text, func() (any, error) {
			// singleflight 等待期间可能已有结果入缓存
			if cached, ok := e.cache.Get(text); ok {
				return cached, nil
			}
			vecs, err := e.inner.EmbedStrings(ctx, []string{text}, opts...)
			if err != nil {
				return nil, err
			}
			if len(vecs) != 1 {
				return nil, fmt.Errorf("embedding backend returned %d vectors for 1 text", len(vecs))
			}
			e.cache.SetDefault(text, vecs[0])
			return vecs[0], nil
		})
		if err != nil {
			return nil, err
		}
		vec, ok := v.([]float64)
		if !ok {
			return nil, fmt.Errorf("unexpected embedding cache value type %T", v)
		}
		out[i] = vec
	}

	return out, nil
}

// Flush 清空全部缓存项
// 角色库任何写操作后必须调用，保证后续检索使用最新向量。
func (e *CachedEmbedder) Flush() {
	if e == nil {
		return
	}
	e.cache.Flush()
}
