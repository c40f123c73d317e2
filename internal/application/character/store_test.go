package character

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyspark-api/internal/domain/entity"
	"storyspark-api/pkg/errors"
)

type stubVectorStore struct {
	records map[string]*Record
	hits    []*Hit

	getErr    error
	listErr   error
	searchErr error
}

func newStubVectorStore() *stubVectorStore {
	return &stubVectorStore{records: make(map[string]*Record)}
}

func (s *stubVectorStore) Upsert(_ context.Context, rec *Record) error {
	s.records[rec.Name] = rec
	return nil
}

func (s *stubVectorStore) Delete(_ context.Context, name string) error {
	delete(s.records, name)
	return nil
}

func (s *stubVectorStore) Get(_ context.Context, name string) (*Record, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.records[name], nil
}

func (s *stubVectorStore) List(_ context.Context) ([]*Record, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

func (s *stubVectorStore) Search(_ context.Context, _ []float32, topK int) ([]*Hit, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if len(s.hits) > topK {
		return s.hits[:topK], nil
	}
	return s.hits, nil
}

type stubEmbedder struct {
	err error
}

func (s stubEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{0.5, 0.5}
	}
	return out, nil
}

type recordingInvalidator struct {
	flushes int
}

func (r *recordingInvalidator) Flush() {
	r.flushes++
}

func TestSaveThenGetDescription(t *testing.T) {
	vs := newStubVectorStore()
	store := NewStore(vs, stubEmbedder{}, nil, time.Minute)
	ctx := context.Background()

	ch, err := store.Save(ctx, "  Mira  ", "a brave knight")
	require.NoError(t, err)
	assert.Equal(t, "Mira", ch.Name)

	assert.Equal(t, "a brave knight", store.GetDescription(ctx, "Mira"))
}

func TestSaveOverwritesDescription(t *testing.T) {
	vs := newStubVectorStore()
	store := NewStore(vs, stubEmbedder{}, nil, time.Minute)
	ctx := context.Background()

	_, err := store.Save(ctx, "Mira", "a brave knight")
	require.NoError(t, err)
	_, err = store.Save(ctx, "Mira", "a retired knight")
	require.NoError(t, err)

	assert.Equal(t, "a retired knight", store.GetDescription(ctx, "Mira"))
	assert.Equal(t, []string{"Mira"}, store.ListNames(ctx))
}

func TestSaveValidatesInput(t *testing.T) {
	store := NewStore(newStubVectorStore(), stubEmbedder{}, nil, time.Minute)
	ctx := context.Background()

	cases := []struct {
		name        string
		character   string
		description string
	}{
		{"empty name", "   ", "a brave knight"},
		{"name too long", strings.Repeat("a", MaxNameLength+1), "a brave knight"},
		{"name with quote", `Mi"ra`, "a brave knight"},
		{"empty description", "Mira", "   "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Save(ctx, tc.character, tc.description)
			require.Error(t, err)
			assert.Equal(t, errors.CodeInvalidParam, errors.AsAppError(err).Code)
		})
	}
}

func TestSaveWithoutEmbedder(t *testing.T) {
	store := NewStore(newStubVectorStore(), nil, nil, time.Minute)

	_, err := store.Save(context.Background(), "Mira", "a brave knight")
	require.Error(t, err)
	assert.Equal(t, errors.CodeBackendUnavailable, errors.AsAppError(err).Code)
}

func TestDeleteMissingCharacterIsNoop(t *testing.T) {
	store := NewStore(newStubVectorStore(), stubEmbedder{}, nil, time.Minute)

	require.NoError(t, store.Delete(context.Background(), "Nobody"))
}

func TestWritesFlushEmbeddingCache(t *testing.T) {
	vs := newStubVectorStore()
	inv := &recordingInvalidator{}
	store := NewStore(vs, stubEmbedder{}, inv, time.Minute)
	ctx := context.Background()

	_, err := store.Save(ctx, "Mira", "a brave knight")
	require.NoError(t, err)
	assert.Equal(t, 1, inv.flushes)

	require.NoError(t, store.Delete(ctx, "Mira"))
	assert.Equal(t, 2, inv.flushes)
	assert.Empty(t, store.ListNames(ctx))
}

func TestListNamesSorted(t *testing.T) {
	vs := newStubVectorStore()
	store := NewStore(vs, stubEmbedder{}, nil, time.Minute)
	ctx := context.Background()

	for _, name := range []string{"Zara", "Mira", "Alba"} {
		_, err := store.Save(ctx, name, "someone")
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"Alba", "Mira", "Zara"}, store.ListNames(ctx))
}

func TestListCacheClearedOnWrite(t *testing.T) {
	vs := newStubVectorStore()
	store := NewStore(vs, stubEmbedder{}, nil, time.Minute)
	ctx := context.Background()

	_, err := store.Save(ctx, "Mira", "a brave knight")
	require.NoError(t, err)
	assert.Equal(t, []string{"Mira"}, store.ListNames(ctx))

	// 直接写底层存储不会出现在缓存的列表里
	require.NoError(t, vs.Upsert(ctx, &Record{Name: "Tom", Description: "a baker"}))
	assert.Equal(t, []string{"Mira"}, store.ListNames(ctx))

	// 经由 Store 的写操作清空缓存
	_, err = store.Save(ctx, "Zara", "a scout")
	require.NoError(t, err)
	assert.Equal(t, []string{"Mira", "Tom", "Zara"}, store.ListNames(ctx))
}

func TestReadsDegradeOnStoreFailure(t *testing.T) {
	vs := newStubVectorStore()
	vs.getErr = fmt.Errorf("connection refused")
	vs.listErr = fmt.Errorf("connection refused")
	vs.searchErr = fmt.Errorf("connection refused")
	store := NewStore(vs, stubEmbedder{}, nil, time.Minute)
	ctx := context.Background()

	assert.Empty(t, store.GetDescription(ctx, "Mira"))
	assert.Empty(t, store.ListNames(ctx))
	assert.Empty(t, store.Search(ctx, "a quest", 3))
}

func TestSearchDegradesOnEmbeddingFailure(t *testing.T) {
	vs := newStubVectorStore()
	vs.hits = []*Hit{{Name: "Mira", Description: "a brave knight"}}
	store := NewStore(vs, stubEmbedder{err: fmt.Errorf("quota exceeded")}, nil, time.Minute)

	assert.Empty(t, store.Search(context.Background(), "a quest", 3))
}

func TestSearchSkipsBlankQuery(t *testing.T) {
	store := NewStore(newStubVectorStore(), stubEmbedder{}, nil, time.Minute)

	assert.Empty(t, store.Search(context.Background(), "   ", 3))
	assert.Empty(t, store.Search(context.Background(), "a quest", 0))
}

func TestSearchReturnsHitsInOrder(t *testing.T) {
	vs := newStubVectorStore()
	vs.hits = []*Hit{
		{Name: "Mira", Description: "a brave knight", Distance: 0.1},
		{Name: "Tom", Description: "a shy baker", Distance: 0.4},
	}
	store := NewStore(vs, stubEmbedder{}, nil, time.Minute)

	hits := store.Search(context.Background(), "a quest", 3)
	require.Len(t, hits, 2)
	assert.Equal(t, entity.CharacterHit{Name: "Mira", Description: "a brave knight", Distance: 0.1}, hits[0])
	assert.Equal(t, "Tom", hits[1].Name)
}

func TestRenderContext(t *testing.T) {
	hits := []entity.CharacterHit{
		{Name: "Mira", Description: "a brave knight"},
		{Name: "Tom", Description: "a shy baker"},
	}
	assert.Equal(t, "- Mira: a brave knight\n- Tom: a shy baker", RenderContext(hits))
	assert.Empty(t, RenderContext(nil))
}
