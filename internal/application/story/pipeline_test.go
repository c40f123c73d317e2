package story

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyspark-api/internal/application/character"
	"storyspark-api/internal/domain/entity"
	wfmodel "storyspark-api/internal/workflow/model"
)

type fakeSceneInvoker struct {
	text   string
	err    error
	calls  int
	lastIn *wfmodel.SceneGenerateInput
}

func (f *fakeSceneInvoker) Invoke(_ context.Context, in *wfmodel.SceneGenerateInput) (*schema.Message, error) {
	f.calls++
	f.lastIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &schema.Message{Role: schema.Assistant, Content: f.text}, nil
}

type fakeRewriteInvoker struct {
	text   string
	err    error
	lastIn *wfmodel.SceneRewriteInput
}

func (f *fakeRewriteInvoker) Invoke(_ context.Context, in *wfmodel.SceneRewriteInput) (*schema.Message, error) {
	f.lastIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &schema.Message{Role: schema.Assistant, Content: f.text}, nil
}

type fakeVectorStore struct {
	records   map[string]*character.Record
	hits      []*character.Hit
	searchErr error
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{records: make(map[string]*character.Record)}
}

func (f *fakeVectorStore) Upsert(_ context.Context, rec *character.Record) error {
	f.records[rec.Name] = rec
	return nil
}

func (f *fakeVectorStore) Delete(_ context.Context, name string) error {
	delete(f.records, name)
	return nil
}

func (f *fakeVectorStore) Get(_ context.Context, name string) (*character.Record, error) {
	return f.records[name], nil
}

func (f *fakeVectorStore) List(_ context.Context) ([]*character.Record, error) {
	out := make([]*character.Record, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeVectorStore) Search(_ context.Context, _ []float32, topK int) ([]*character.Hit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.hits) > topK {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{0.1, 0.2, 0.3}
	}
	return out, nil
}

func newTestStore(vs *fakeVectorStore) *character.Store {
	return character.NewStore(vs, fakeEmbedder{}, nil, time.Minute)
}

func TestRetrievalStageRendersContext(t *testing.T) {
	vs := newFakeVectorStore()
	vs.hits = []*character.Hit{
		{Name: "Mira", Description: "a brave knight", Distance: 0.1},
		{Name: "Tom", Description: "a shy baker", Distance: 0.3},
	}
	stage := NewRetrievalStage(newTestStore(vs), 3)

	state := entity.NewPipelineState("a quest begins", 1)
	state.Retrieved = "stale context"
	stage.Run(context.Background(), state)

	assert.Equal(t, "- Mira: a brave knight\n- Tom: a shy baker", state.Retrieved)
}

func TestRetrievalStageDegradesToEmptyOnFailure(t *testing.T) {
	vs := newFakeVectorStore()
	vs.searchErr = fmt.Errorf("connection refused")
	stage := NewRetrievalStage(newTestStore(vs), 3)

	state := entity.NewPipelineState("a quest begins", 1)
	state.Retrieved = "stale context"
	stage.Run(context.Background(), state)

	assert.Empty(t, state.Retrieved)
}

func TestGenerationStageBackendMissing(t *testing.T) {
	stage := NewSceneGenerationStage(nil)

	state := entity.NewPipelineState("a quest begins", 1)
	stage.Run(context.Background(), "start", state)

	assert.Equal(t, BackendMissingScene, state.Scene)
}

func TestGenerationStageInlinesError(t *testing.T) {
	chain := &fakeSceneInvoker{err: fmt.Errorf("timeout")}
	stage := NewSceneGenerationStage(chain)

	state := entity.NewPipelineState("a quest begins", 2)
	stage.Run(context.Background(), "continue", state)

	assert.Equal(t, "[Scene generation error: timeout]", state.Scene)
}

func TestGenerationStageTrimsOutput(t *testing.T) {
	chain := &fakeSceneInvoker{text: "  The dragon woke.  \n"}
	stage := NewSceneGenerationStage(chain)

	state := entity.NewPipelineState("a quest begins", 1)
	stage.Run(context.Background(), "start", state)

	assert.Equal(t, "The dragon woke.", state.Scene)
}

func TestPipelinePassesRetrievedContextToGeneration(t *testing.T) {
	vs := newFakeVectorStore()
	vs.hits = []*character.Hit{{Name: "Mira", Description: "a brave knight"}}
	chain := &fakeSceneInvoker{text: "Scene text."}
	pipeline := NewScenePipeline(
		NewRetrievalStage(newTestStore(vs), 3),
		NewSceneGenerationStage(chain),
	)

	state := pipeline.Run(context.Background(), "start", entity.NewPipelineState("a quest begins", 1))

	require.NotNil(t, chain.lastIn)
	assert.Equal(t, 1, chain.lastIn.SceneNumber)
	assert.Equal(t, "a quest begins", chain.lastIn.Prompt)
	assert.Equal(t, "- Mira: a brave knight", chain.lastIn.CharacterContext)
	assert.Equal(t, "Scene text.", state.Scene)
}

func TestPipelineSearchCapsAtTopK(t *testing.T) {
	vs := newFakeVectorStore()
	for i := 0; i < 5; i++ {
		vs.hits = append(vs.hits, &character.Hit{
			Name:        fmt.Sprintf("c%d", i),
			Description: "someone",
		})
	}
	stage := NewRetrievalStage(newTestStore(vs), 3)

	state := entity.NewPipelineState("a quest begins", 1)
	stage.Run(context.Background(), state)

	assert.Equal(t, "- c0: someone\n- c1: someone\n- c2: someone", state.Retrieved)
}
