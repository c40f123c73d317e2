package embedding

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyspark-api/pkg/errors"
)

type countingEmbedder struct {
	calls map[string]int
	err   error
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{calls: make(map[string]int)}
}

func (c *countingEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		c.calls[text]++
		out[i] = []float64{float64(len(text))}
	}
	return out, nil
}

func TestCachedEmbedderReusesResult(t *testing.T) {
	inner := newCountingEmbedder()
	cached := NewCachedEmbedder(inner, time.Minute)
	ctx := context.Background()

	first, err := cached.EmbedStrings(ctx, []string{"a brave knight"})
	require.NoError(t, err)
	second, err := cached.EmbedStrings(ctx, []string{"a brave knight"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls["a brave knight"])
}

func TestCachedEmbedderOnlyEmbedsMisses(t *testing.T) {
	inner := newCountingEmbedder()
	cached := NewCachedEmbedder(inner, time.Minute)
	ctx := context.Background()

	_, err := cached.EmbedStrings(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)

	out, err := cached.EmbedStrings(ctx, []string{"alpha", "gamma"})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, 1, inner.calls["alpha"])
	assert.Equal(t, 1, inner.calls["beta"])
	assert.Equal(t, 1, inner.calls["gamma"])
	assert.Equal(t, []float64{5}, out[0])
}

func TestCachedEmbedderFlush(t *testing.T) {
	inner := newCountingEmbedder()
	cached := NewCachedEmbedder(inner, time.Minute)
	ctx := context.Background()

	_, err := cached.EmbedStrings(ctx, []string{"a brave knight"})
	require.NoError(t, err)

	cached.Flush()

	_, err = cached.EmbedStrings(ctx, []string{"a brave knight"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls["a brave knight"])
}

func TestCachedEmbedderPropagatesError(t *testing.T) {
	inner := newCountingEmbedder()
	inner.err = fmt.Errorf("quota exceeded")
	cached := NewCachedEmbedder(inner, time.Minute)

	_, err := cached.EmbedStrings(context.Background(), []string{"a brave knight"})
	require.Error(t, err)
}

func TestCachedEmbedderWithoutBackend(t *testing.T) {
	cached := NewCachedEmbedder(nil, time.Minute)

	_, err := cached.EmbedStrings(context.Background(), []string{"a brave knight"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeBackendUnavailable, errors.AsAppError(err).Code)
}
