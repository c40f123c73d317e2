package story

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyspark-api/internal/domain/entity"
	"storyspark-api/internal/infrastructure/persistence/memory"
	"storyspark-api/pkg/errors"
)

func newTestFlow(chain SceneInvoker, rewriter RewriteInvoker) *FlowController {
	pipeline := NewScenePipeline(
		NewRetrievalStage(newTestStore(newFakeVectorStore()), 3),
		NewSceneGenerationStage(chain),
	)
	return NewFlowController(pipeline, rewriter, memory.NewSessionRepository(time.Hour))
}

func TestStartGeneratesFirstScene(t *testing.T) {
	chain := &fakeSceneInvoker{text: "Scene one."}
	flow := newTestFlow(chain, nil)

	session, err := flow.Start(context.Background(), "My Story", "a dragon guards a library")
	require.NoError(t, err)

	assert.Equal(t, entity.StatusSceneReady, session.Status)
	assert.Equal(t, 1, session.CurrentScene())
	assert.Equal(t, "Scene one.", session.Scenes[1])
	assert.Equal(t, "a dragon guards a library", session.Prompt)
	assert.Equal(t, "My Story", session.Title)
}

func TestStartRequiresPrompt(t *testing.T) {
	flow := newTestFlow(&fakeSceneInvoker{text: "x"}, nil)

	_, err := flow.Start(context.Background(), "", "   ")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidParam, errors.AsAppError(err).Code)
}

func TestContinueAdvancesThenCompletes(t *testing.T) {
	chain := &fakeSceneInvoker{text: "Scene text."}
	flow := newTestFlow(chain, nil)
	ctx := context.Background()

	session, err := flow.Start(ctx, "", "a dragon guards a library")
	require.NoError(t, err)

	for want := 2; want <= entity.MaxScenes; want++ {
		session, err = flow.Continue(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, want, session.CurrentScene())
		assert.Equal(t, entity.StatusSceneReady, session.Status)
	}
	assert.Len(t, session.Scenes, entity.MaxScenes)

	// 已在最后一个场景，再推进只置为完成，不再生成
	calls := chain.calls
	session, err = flow.Continue(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusComplete, session.Status)
	assert.Equal(t, calls, chain.calls)
	assert.Len(t, session.Scenes, entity.MaxScenes)

	_, err = flow.Continue(ctx, session.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeStoryComplete, errors.AsAppError(err).Code)
}

func TestContinueCarriesPromptForward(t *testing.T) {
	chain := &fakeSceneInvoker{text: "Scene text."}
	flow := newTestFlow(chain, nil)
	ctx := context.Background()

	session, err := flow.Start(ctx, "", "a dragon guards a library")
	require.NoError(t, err)

	_, err = flow.Continue(ctx, session.ID)
	require.NoError(t, err)

	require.NotNil(t, chain.lastIn)
	assert.Equal(t, 2, chain.lastIn.SceneNumber)
	assert.Equal(t, "a dragon guards a library", chain.lastIn.Prompt)
}

func TestRegenerateOverwritesOnlyCurrentSlot(t *testing.T) {
	chain := &fakeSceneInvoker{text: "First take."}
	flow := newTestFlow(chain, nil)
	ctx := context.Background()

	session, err := flow.Start(ctx, "", "a dragon guards a library")
	require.NoError(t, err)

	session, err = flow.Continue(ctx, session.ID)
	require.NoError(t, err)
	firstScene := session.Scenes[1]

	chain.text = "Second take."
	session, err = flow.Regenerate(ctx, session.ID)
	require.NoError(t, err)

	assert.Equal(t, "Second take.", session.Scenes[2])
	assert.Equal(t, firstScene, session.Scenes[1])
	assert.Equal(t, 2, session.CurrentScene())
}

func TestRewriteReplacesSceneOnly(t *testing.T) {
	chain := &fakeSceneInvoker{text: "Original scene."}
	rewriter := &fakeRewriteInvoker{text: "  Rewritten scene.  "}
	flow := newTestFlow(chain, rewriter)
	ctx := context.Background()

	session, err := flow.Start(ctx, "", "a dragon guards a library")
	require.NoError(t, err)
	retrieved := session.State.Retrieved

	session, err = flow.Rewrite(ctx, session.ID, "make it darker")
	require.NoError(t, err)

	assert.Equal(t, "Rewritten scene.", session.Scenes[1])
	assert.Equal(t, "Rewritten scene.", session.State.Scene)
	assert.Equal(t, "a dragon guards a library", session.State.Prompt)
	assert.Equal(t, retrieved, session.State.Retrieved)

	require.NotNil(t, rewriter.lastIn)
	assert.Equal(t, "make it darker", rewriter.lastIn.Instructions)
	assert.Equal(t, "Original scene.", rewriter.lastIn.Scene)
}

func TestRewriteFailureLeavesSlotUnchanged(t *testing.T) {
	chain := &fakeSceneInvoker{text: "Original scene."}
	rewriter := &fakeRewriteInvoker{err: fmt.Errorf("timeout")}
	flow := newTestFlow(chain, rewriter)
	ctx := context.Background()

	session, err := flow.Start(ctx, "", "a dragon guards a library")
	require.NoError(t, err)

	_, err = flow.Rewrite(ctx, session.ID, "make it darker")
	require.Error(t, err)
	assert.Equal(t, errors.CodeRewriteFailed, errors.AsAppError(err).Code)

	stored, err := flow.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original scene.", stored.Scenes[1])
}

func TestRewriteRequiresInstructions(t *testing.T) {
	flow := newTestFlow(&fakeSceneInvoker{text: "x"}, &fakeRewriteInvoker{text: "y"})

	session, err := flow.Start(context.Background(), "", "a dragon guards a library")
	require.NoError(t, err)

	_, err = flow.Rewrite(context.Background(), session.ID, "  ")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidParam, errors.AsAppError(err).Code)
}

func TestRewriteWithoutBackend(t *testing.T) {
	flow := newTestFlow(&fakeSceneInvoker{text: "x"}, nil)

	session, err := flow.Start(context.Background(), "", "a dragon guards a library")
	require.NoError(t, err)

	_, err = flow.Rewrite(context.Background(), session.ID, "make it darker")
	require.Error(t, err)
	assert.Equal(t, errors.CodeBackendUnavailable, errors.AsAppError(err).Code)
}

func TestContinueOnUnknownSession(t *testing.T) {
	flow := newTestFlow(&fakeSceneInvoker{text: "x"}, nil)

	_, err := flow.Continue(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, errors.CodeSessionNotFound, errors.AsAppError(err).Code)
}

func TestStartWithMissingBackendStoresSentinel(t *testing.T) {
	flow := newTestFlow(nil, nil)

	session, err := flow.Start(context.Background(), "", "a dragon guards a library")
	require.NoError(t, err)

	assert.Equal(t, entity.StatusSceneReady, session.Status)
	assert.Equal(t, BackendMissingScene, session.Scenes[1])
}

func TestResetDiscardsSession(t *testing.T) {
	flow := newTestFlow(&fakeSceneInvoker{text: "x"}, nil)
	ctx := context.Background()

	session, err := flow.Start(ctx, "", "a dragon guards a library")
	require.NoError(t, err)

	require.NoError(t, flow.Reset(ctx, session.ID))

	_, err = flow.Get(ctx, session.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeSessionNotFound, errors.AsAppError(err).Code)
}
