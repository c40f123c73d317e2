// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"
)

// Character 角色实体
// Name 是唯一主键（区分大小写），同时作为向量库的记录 id。
// Embedding 由 Description 经嵌入后端确定性推导，两者必须同步更新。
type Character struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Embedding   []float32 `json:"embedding,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewCharacter 创建新角色
func NewCharacter(name, description string) *Character {
	return &Character{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		UpdatedAt:   time.Now().UTC(),
	}
}

// Valid 校验角色是否可保存（名称与描述均非空）
func (c *Character) Valid() bool {
	return c != nil && c.Name != "" && c.Description != ""
}

// CharacterHit 语义检索命中结果
type CharacterHit struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	// Distance 余弦距离，越小越相关
	Distance float32 `json:"distance"`
}
