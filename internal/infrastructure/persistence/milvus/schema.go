// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionCharacters 角色档案集合
	CollectionCharacters = "characters"

	// VectorDimension 向量维度
	VectorDimension = 1024

	// MaxNameLength 主键字段最大长度
	MaxNameLength = 256
)

// CharactersSchema 角色档案 Collection Schema
// 角色名即主键，覆盖同名角色通过删旧插新实现。
func CharactersSchema() *entity.Schema {
	return &entity.Schema{
		CollectionName: CollectionCharacters,
		Description:    "Character profiles for semantic retrieval",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": "1024",
				},
			},
			{
				Name:     "name",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
			{
				Name:     "description",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
		},
	}
}

// CharacterRecord 角色向量记录
type CharacterRecord struct {
	ID          string    `json:"id"`
	Vector      []float32 `json:"vector"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}
