package dto

import "storyspark-api/internal/domain/entity"

// SaveCharacterRequest 新增或覆盖角色请求
type SaveCharacterRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// CharacterResponse 角色响应
type CharacterResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CharacterListResponse 角色名列表响应
type CharacterListResponse struct {
	Names []string `json:"names"`
	Total int      `json:"total"`
}

// SearchCharactersRequest 语义检索请求
type SearchCharactersRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

// CharacterHitResponse 检索命中响应
type CharacterHitResponse struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Distance    float32 `json:"distance"`
}

// NewCharacterHitResponses 转换检索命中列表
func NewCharacterHitResponses(hits []entity.CharacterHit) []CharacterHitResponse {
	out := make([]CharacterHitResponse, 0, len(hits))
	for _, h := range hits {
		out = append(out, CharacterHitResponse{
			Name:        h.Name,
			Description: h.Description,
			Distance:    h.Distance,
		})
	}
	return out
}
