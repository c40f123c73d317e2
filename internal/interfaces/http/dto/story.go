package dto

import (
	"time"

	"storyspark-api/internal/domain/entity"
)

// StartStoryRequest 开启新故事请求
type StartStoryRequest struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt" binding:"required"`
}

// RewriteSceneRequest 改写当前场景请求
type RewriteSceneRequest struct {
	Instructions string `json:"instructions" binding:"required"`
}

// SessionResponse 故事会话响应
type SessionResponse struct {
	ID           string         `json:"id"`
	Title        string         `json:"title,omitempty"`
	Prompt       string         `json:"prompt"`
	Status       string         `json:"status"`
	CurrentScene int            `json:"current_scene"`
	Scene        string         `json:"scene,omitempty"`
	Retrieved    string         `json:"retrieved,omitempty"`
	Scenes       map[int]string `json:"scenes"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewSessionResponse 从领域实体构造会话响应
func NewSessionResponse(s *entity.StorySession) SessionResponse {
	resp := SessionResponse{
		ID:           s.ID,
		Title:        s.Title,
		Prompt:       s.Prompt,
		Status:       string(s.Status),
		CurrentScene: s.CurrentScene(),
		Scenes:       s.Scenes,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if s.State != nil {
		resp.Scene = s.State.Scene
		resp.Retrieved = s.State.Retrieved
	}
	return resp
}

// ExportResponse 导出响应
type ExportResponse struct {
	Content string `json:"content"`
}
