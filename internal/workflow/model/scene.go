// Package model 定义工作流的输入输出结构
package model

// SceneGenerateInput 场景生成链输入
type SceneGenerateInput struct {
	// SceneNumber 目标场景号，1..3
	SceneNumber int `json:"scene_number"`
	// Prompt 故事前提
	Prompt string `json:"prompt"`
	// CharacterContext 渲染后的角色上下文
	// 为空时由链替换为引导模型自建角色的占位语
	CharacterContext string `json:"character_context"`
	// Provider 为空时使用默认提供商
	Provider string `json:"provider,omitempty"`
}

// SceneRewriteInput 场景改写链输入
type SceneRewriteInput struct {
	// Instructions 改写指令，自由文本
	Instructions string `json:"instructions"`
	// Scene 被改写的原始场景文本
	Scene string `json:"scene"`
	// Provider 为空时使用默认提供商
	Provider string `json:"provider,omitempty"`
}
