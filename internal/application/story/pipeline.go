// Package story 实现故事生成流水线与会话流转
package story

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storyspark-api/internal/application/character"
	"storyspark-api/internal/domain/entity"
	wfmodel "storyspark-api/internal/workflow/model"
	"storyspark-api/pkg/metrics"
)

var tracer = otel.Tracer("story")

// BackendMissingScene 生成后端未配置时写入的占位场景文本
const BackendMissingScene = "ERROR: LLM not initialized"

// SceneInvoker 场景生成链端口
type SceneInvoker interface {
	Invoke(ctx context.Context, in *wfmodel.SceneGenerateInput) (*schema.Message, error)
}

// RewriteInvoker 场景改写链端口
type RewriteInvoker interface {
	Invoke(ctx context.Context, in *wfmodel.SceneRewriteInput) (*schema.Message, error)
}

// RetrievalStage 检索阶段
// 用故事前提做语义检索并渲染角色上下文。检索失败不会中断流水线，
// 上下文降级为空串。
type RetrievalStage struct {
	characters *character.Store
	topK       int
}

// NewRetrievalStage 创建检索阶段
func NewRetrievalStage(characters *character.Store, topK int) *RetrievalStage {
	if topK <= 0 {
		topK = 3
	}
	return &RetrievalStage{characters: characters, topK: topK}
}

// Run 执行检索，覆盖 state.Retrieved
// 携带进来的旧值总是被重算结果覆盖。
func (s *RetrievalStage) Run(ctx context.Context, state *entity.PipelineState) {
	ctx, span := tracer.Start(ctx, "story.Retrieve")
	defer span.End()

	start := time.Now()
	hits := s.characters.Search(ctx, state.Prompt, s.topK)
	state.Retrieved = character.RenderContext(hits)
	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())

	if len(hits) == 0 {
		metrics.RetrievalTotal.WithLabelValues("empty").Inc()
	} else {
		metrics.RetrievalTotal.WithLabelValues("hit").Inc()
	}
	span.SetAttributes(attribute.Int("hit_count", len(hits)))
}

// SceneGenerationStage 生成阶段
// 后端未配置或调用失败都不会中断流水线，失败以诊断文本形式
// 写入 state.Scene，由用户看到后自行重试。
type SceneGenerationStage struct {
	chain SceneInvoker
}

// NewSceneGenerationStage 创建生成阶段
func NewSceneGenerationStage(chain SceneInvoker) *SceneGenerationStage {
	return &SceneGenerationStage{chain: chain}
}

// Run 执行生成，覆盖 state.Scene
func (s *SceneGenerationStage) Run(ctx context.Context, action string, state *entity.PipelineState) {
	ctx, span := tracer.Start(ctx, "story.GenerateScene",
		trace.WithAttributes(attribute.Int("scene_number", state.SceneNumber)))
	defer span.End()

	if s.chain == nil {
		state.Scene = BackendMissingScene
		metrics.SceneGenerationTotal.WithLabelValues(action, "backend_missing").Inc()
		return
	}

	start := time.Now()
	msg, err := s.chain.Invoke(ctx, &wfmodel.SceneGenerateInput{
		SceneNumber:      state.SceneNumber,
		Prompt:           state.Prompt,
		CharacterContext: state.Retrieved,
	})
	metrics.SceneGenerationDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		state.Scene = fmt.Sprintf("[Scene generation error: %v]", err)
		metrics.SceneGenerationTotal.WithLabelValues(action, "error").Inc()
		return
	}

	state.Scene = strings.TrimSpace(msg.Content)
	metrics.SceneGenerationTotal.WithLabelValues(action, "success").Inc()
}

// ScenePipeline 固定两段式流水线：检索 -> 生成
// 每次 Run 独占传入的 state，阶段间严格串行，没有分支。
type ScenePipeline struct {
	retrieve *RetrievalStage
	generate *SceneGenerationStage
}

// NewScenePipeline 创建场景流水线
func NewScenePipeline(retrieve *RetrievalStage, generate *SceneGenerationStage) *ScenePipeline {
	return &ScenePipeline{retrieve: retrieve, generate: generate}
}

// Run 执行一次完整流水线
func (p *ScenePipeline) Run(ctx context.Context, action string, state *entity.PipelineState) *entity.PipelineState {
	ctx, span := tracer.Start(ctx, "story.Pipeline",
		trace.WithAttributes(attribute.Int("scene_number", state.SceneNumber)))
	defer span.End()

	p.retrieve.Run(ctx, state)
	p.generate.Run(ctx, action, state)
	return state
}
