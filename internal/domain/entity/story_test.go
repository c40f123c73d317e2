package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorySession(t *testing.T) {
	session := NewStorySession("My Story")

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, StatusNotStarted, session.Status)
	assert.Equal(t, 0, session.CurrentScene())
	assert.NotNil(t, session.Scenes)
}

func TestSetSceneKeepsOtherSlots(t *testing.T) {
	session := NewStorySession("")
	session.SetScene(1, "first")
	session.SetScene(2, "second")
	session.SetScene(2, "second revised")

	assert.Equal(t, "first", session.Scenes[1])
	assert.Equal(t, "second revised", session.Scenes[2])
}

func TestExportable(t *testing.T) {
	session := NewStorySession("")
	assert.False(t, session.Exportable())

	session.SetScene(1, "a")
	session.SetScene(2, "b")
	assert.False(t, session.Exportable())

	session.SetScene(3, "c")
	assert.True(t, session.Exportable())

	var nilSession *StorySession
	assert.False(t, nilSession.Exportable())
}

func TestPipelineStateClone(t *testing.T) {
	state := NewPipelineState("a quest begins", 1)
	state.Retrieved = "- Mira: a brave knight"
	state.Scene = "Scene one."

	cp := state.Clone()
	require.NotNil(t, cp)
	cp.Scene = "changed"
	cp.SceneNumber = 2

	assert.Equal(t, "Scene one.", state.Scene)
	assert.Equal(t, 1, state.SceneNumber)
	assert.Equal(t, state.Retrieved, cp.Retrieved)

	var nilState *PipelineState
	assert.Nil(t, nilState.Clone())
}
