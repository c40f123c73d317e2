package entity

import (
	"time"

	"github.com/google/uuid"
)

// MaxScenes 单个故事的固定场景数
const MaxScenes = 3

// SessionStatus 会话状态
type SessionStatus string

const (
	StatusNotStarted SessionStatus = "not_started"
	StatusSceneReady SessionStatus = "scene_ready"
	StatusComplete   SessionStatus = "complete"
)

// PipelineState 贯穿一次生成流水线的状态记录
// 每次流水线调用都构造全新的副本，运行期间独占，结束后由调用方收编。
type PipelineState struct {
	// Prompt 故事前提，会话期间不变
	Prompt string `json:"prompt"`
	// Retrieved 渲染后的角色上下文，检索阶段每次重新计算
	Retrieved string `json:"retrieved"`
	// Scene 生成或改写后的场景文本
	Scene string `json:"scene"`
	// Feedback 预留的自由文本通道，当前未使用
	Feedback string `json:"feedback"`
	// SceneNumber 场景槽位，1..MaxScenes
	SceneNumber int `json:"scene_number"`
}

// NewPipelineState 构造流水线初始状态
func NewPipelineState(prompt string, sceneNumber int) *PipelineState {
	return &PipelineState{
		Prompt:      prompt,
		SceneNumber: sceneNumber,
	}
}

// Clone 复制状态，保证每次流水线调用独占自己的副本
func (s *PipelineState) Clone() *PipelineState {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// StorySession 调用方持有的故事会话
// Scenes 以场景号为键保存已接受的场景文本，槽位只会按序追加或原位覆盖。
type StorySession struct {
	ID        string         `json:"id"`
	Title     string         `json:"title,omitempty"`
	Prompt    string         `json:"prompt"`
	Scenes    map[int]string `json:"scenes"`
	State     *PipelineState `json:"state,omitempty"`
	Status    SessionStatus  `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewStorySession 创建新会话
func NewStorySession(title string) *StorySession {
	now := time.Now().UTC()
	return &StorySession{
		ID:        uuid.New().String(),
		Title:     title,
		Scenes:    make(map[int]string),
		Status:    StatusNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CurrentScene 当前场景号，未开始时为 0
func (s *StorySession) CurrentScene() int {
	if s == nil || s.State == nil {
		return 0
	}
	return s.State.SceneNumber
}

// SetScene 写入指定槽位的场景文本，其余槽位保持不变
func (s *StorySession) SetScene(number int, text string) {
	if s.Scenes == nil {
		s.Scenes = make(map[int]string)
	}
	s.Scenes[number] = text
	s.UpdatedAt = time.Now().UTC()
}

// Exportable 会话恰好持有全部 MaxScenes 个场景时可导出
func (s *StorySession) Exportable() bool {
	if s == nil || len(s.Scenes) != MaxScenes {
		return false
	}
	for n := 1; n <= MaxScenes; n++ {
		if _, ok := s.Scenes[n]; !ok {
			return false
		}
	}
	return true
}
