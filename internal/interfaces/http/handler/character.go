// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"storyspark-api/internal/application/character"
	"storyspark-api/internal/config"
	"storyspark-api/internal/interfaces/http/dto"
)

// CharacterHandler 角色档案处理器
type CharacterHandler struct {
	characters *character.Store
	topK       int
}

// NewCharacterHandler 创建角色档案处理器
func NewCharacterHandler(characters *character.Store, cfg *config.Config) *CharacterHandler {
	topK := 3
	if cfg != nil && cfg.Story.RetrievalTopK > 0 {
		topK = cfg.Story.RetrievalTopK
	}
	return &CharacterHandler{
		characters: characters,
		topK:       topK,
	}
}

// Save 新增或覆盖角色
// PUT /v1/characters
func (h *CharacterHandler) Save(c *gin.Context) {
	var req dto.SaveCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "name and description are required")
		return
	}

	ch, err := h.characters.Save(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		dto.Fail(c, err)
		return
	}

	dto.Created(c, dto.CharacterResponse{
		Name:        ch.Name,
		Description: ch.Description,
	})
}

// Get 按名称读取角色描述
// GET /v1/characters/:name
// 未找到与存储不可用都表现为空描述。
func (h *CharacterHandler) Get(c *gin.Context) {
	name := c.Param("name")
	desc := h.characters.GetDescription(c.Request.Context(), name)
	dto.Success(c, dto.CharacterResponse{
		Name:        name,
		Description: desc,
	})
}

// List 返回全部角色名
// GET /v1/characters
func (h *CharacterHandler) List(c *gin.Context) {
	names := h.characters.ListNames(c.Request.Context())
	dto.Success(c, dto.CharacterListResponse{
		Names: names,
		Total: len(names),
	})
}

// Delete 删除角色
// DELETE /v1/characters/:name
func (h *CharacterHandler) Delete(c *gin.Context) {
	if err := h.characters.Delete(c.Request.Context(), c.Param("name")); err != nil {
		dto.Fail(c, err)
		return
	}
	dto.NoContent(c)
}

// Search 语义检索角色
// POST /v1/characters/search
func (h *CharacterHandler) Search(c *gin.Context) {
	var req dto.SearchCharactersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "query is required")
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = h.topK
	}

	hits := h.characters.Search(c.Request.Context(), req.Query, topK)
	dto.Success(c, dto.NewCharacterHitResponses(hits))
}
