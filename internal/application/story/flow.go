package story

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storyspark-api/internal/domain/entity"
	"storyspark-api/internal/domain/repository"
	wfmodel "storyspark-api/internal/workflow/model"
	"storyspark-api/pkg/errors"
	"storyspark-api/pkg/logger"
	"storyspark-api/pkg/metrics"
)

// 场景操作的指标标签
const (
	actionStart      = "start"
	actionContinue   = "continue"
	actionRegenerate = "regenerate"
	actionRewrite    = "rewrite"
)

// FlowController 故事会话状态机
// 状态集合 {not_started, scene_ready, complete}；除写入目标槽位外，
// 任何转移都不触碰已接受的其他场景。
type FlowController struct {
	pipeline *ScenePipeline
	rewriter RewriteInvoker
	sessions repository.SessionRepository
}

// NewFlowController 创建故事流转控制器
func NewFlowController(pipeline *ScenePipeline, rewriter RewriteInvoker, sessions repository.SessionRepository) *FlowController {
	return &FlowController{
		pipeline: pipeline,
		rewriter: rewriter,
		sessions: sessions,
	}
}

// Start 以非空前提开启新会话并生成第一个场景
func (f *FlowController) Start(ctx context.Context, title, prompt string) (*entity.StorySession, error) {
	ctx, span := tracer.Start(ctx, "story.Start")
	defer span.End()

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New(errors.CodeInvalidParam, "story prompt is required")
	}

	session := entity.NewStorySession(strings.TrimSpace(title))
	session.Prompt = prompt
	span.SetAttributes(attribute.String("session_id", session.ID))

	state := entity.NewPipelineState(prompt, 1)
	f.pipeline.Run(ctx, actionStart, state)

	session.State = state
	session.SetScene(1, state.Scene)
	session.Status = entity.StatusSceneReady

	if err := f.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	logger.Info(ctx, "story session started", "session_id", session.ID)
	return session, nil
}

// Continue 接受当前场景并推进
// 场景号未到上限时生成下一场景；已在最后一个场景时仅置为完成，不再生成。
func (f *FlowController) Continue(ctx context.Context, sessionID string) (*entity.StorySession, error) {
	ctx, span := tracer.Start(ctx, "story.Continue",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	session, err := f.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	n := session.CurrentScene()
	if n >= entity.MaxScenes {
		session.Status = entity.StatusComplete
		if err := f.sessions.Save(ctx, session); err != nil {
			return nil, err
		}
		logger.Info(ctx, "story session complete", "session_id", session.ID)
		return session, nil
	}

	// 携带上一场景的 prompt 与 retrieved；retrieved 会被检索阶段重算覆盖
	state := session.State.Clone()
	state.SceneNumber = n + 1
	state.Scene = ""
	f.pipeline.Run(ctx, actionContinue, state)

	session.State = state
	session.SetScene(state.SceneNumber, state.Scene)

	if err := f.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Regenerate 重新生成当前场景，只覆盖当前槽位
func (f *FlowController) Regenerate(ctx context.Context, sessionID string) (*entity.StorySession, error) {
	ctx, span := tracer.Start(ctx, "story.Regenerate",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	session, err := f.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	state := session.State.Clone()
	state.Scene = ""
	f.pipeline.Run(ctx, actionRegenerate, state)

	session.State = state
	session.SetScene(state.SceneNumber, state.Scene)

	if err := f.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Rewrite 按自由文本指令改写当前场景
// 绕过流水线直接调用改写链；prompt 与 retrieved 保持不变。
// 改写失败时返回错误，槽位内容不变。
func (f *FlowController) Rewrite(ctx context.Context, sessionID, instructions string) (*entity.StorySession, error) {
	ctx, span := tracer.Start(ctx, "story.Rewrite",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return nil, errors.New(errors.CodeInvalidParam, "rewrite instructions are required")
	}

	session, err := f.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if f.rewriter == nil {
		metrics.SceneGenerationTotal.WithLabelValues(actionRewrite, "backend_missing").Inc()
		return nil, errors.ErrBackendUnavailable
	}

	start := time.Now()
	msg, err := f.rewriter.Invoke(ctx, &wfmodel.SceneRewriteInput{
		Instructions: instructions,
		Scene:        session.State.Scene,
	})
	metrics.SceneGenerationDuration.WithLabelValues(actionRewrite).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		metrics.SceneGenerationTotal.WithLabelValues(actionRewrite, "error").Inc()
		return nil, errors.Wrap(err, errors.CodeRewriteFailed, "scene rewrite failed")
	}
	metrics.SceneGenerationTotal.WithLabelValues(actionRewrite, "success").Inc()

	state := session.State.Clone()
	state.Scene = strings.TrimSpace(msg.Content)

	session.State = state
	session.SetScene(state.SceneNumber, state.Scene)

	if err := f.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Get 读取会话
func (f *FlowController) Get(ctx context.Context, sessionID string) (*entity.StorySession, error) {
	return f.sessions.Get(ctx, sessionID)
}

// Reset 删除会话，丢弃全部进度
func (f *FlowController) Reset(ctx context.Context, sessionID string) error {
	return f.sessions.Delete(ctx, sessionID)
}

// loadActive 读取会话并校验其处于可写场景的状态
func (f *FlowController) loadActive(ctx context.Context, sessionID string) (*entity.StorySession, error) {
	session, err := f.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch session.Status {
	case entity.StatusSceneReady:
		return session, nil
	case entity.StatusComplete:
		return nil, errors.ErrStoryComplete.WithDetail(sessionID)
	default:
		return nil, errors.ErrStoryNotStarted.WithDetail(sessionID)
	}
}
