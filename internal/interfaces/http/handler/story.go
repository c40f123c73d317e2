package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"storyspark-api/internal/application/story"
	"storyspark-api/internal/interfaces/http/dto"
	"storyspark-api/pkg/logger"
)

// StoryHandler 故事会话处理器
type StoryHandler struct {
	flow *story.FlowController
}

// NewStoryHandler 创建故事会话处理器
func NewStoryHandler(flow *story.FlowController) *StoryHandler {
	return &StoryHandler{flow: flow}
}

// Start 开启新故事并生成第一个场景
// POST /v1/stories
func (h *StoryHandler) Start(c *gin.Context) {
	var req dto.StartStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "prompt is required")
		return
	}

	session, err := h.flow.Start(c.Request.Context(), req.Title, req.Prompt)
	if err != nil {
		dto.Fail(c, err)
		return
	}
	dto.Created(c, dto.NewSessionResponse(session))
}

// Get 读取会话
// GET /v1/stories/:id
func (h *StoryHandler) Get(c *gin.Context) {
	session, err := h.flow.Get(h.sessionContext(c), c.Param("id"))
	if err != nil {
		dto.Fail(c, err)
		return
	}
	dto.Success(c, dto.NewSessionResponse(session))
}

// Continue 接受当前场景并推进
// POST /v1/stories/:id/continue
func (h *StoryHandler) Continue(c *gin.Context) {
	session, err := h.flow.Continue(h.sessionContext(c), c.Param("id"))
	if err != nil {
		dto.Fail(c, err)
		return
	}
	dto.Success(c, dto.NewSessionResponse(session))
}

// Regenerate 重新生成当前场景
// POST /v1/stories/:id/regenerate
func (h *StoryHandler) Regenerate(c *gin.Context) {
	session, err := h.flow.Regenerate(h.sessionContext(c), c.Param("id"))
	if err != nil {
		dto.Fail(c, err)
		return
	}
	dto.Success(c, dto.NewSessionResponse(session))
}

// Rewrite 按自由文本指令改写当前场景
// POST /v1/stories/:id/rewrite
func (h *StoryHandler) Rewrite(c *gin.Context) {
	var req dto.RewriteSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "instructions are required")
		return
	}

	session, err := h.flow.Rewrite(h.sessionContext(c), c.Param("id"), req.Instructions)
	if err != nil {
		dto.Fail(c, err)
		return
	}
	dto.Success(c, dto.NewSessionResponse(session))
}

// Export 导出完整故事文本
// GET /v1/stories/:id/export
func (h *StoryHandler) Export(c *gin.Context) {
	session, err := h.flow.Get(h.sessionContext(c), c.Param("id"))
	if err != nil {
		dto.Fail(c, err)
		return
	}

	content, err := story.Export(session)
	if err != nil {
		dto.Fail(c, err)
		return
	}
	dto.Success(c, dto.ExportResponse{Content: content})
}

// Reset 删除会话
// DELETE /v1/stories/:id
func (h *StoryHandler) Reset(c *gin.Context) {
	if err := h.flow.Reset(h.sessionContext(c), c.Param("id")); err != nil {
		dto.Fail(c, err)
		return
	}
	dto.NoContent(c)
}

// sessionContext 把会话 ID 注入日志上下文
func (h *StoryHandler) sessionContext(c *gin.Context) context.Context {
	return logger.WithContext(c.Request.Context(), logger.SessionIDKey, c.Param("id"))
}
