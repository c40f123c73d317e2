// Package character 提供角色档案的应用服务
package character

import "context"

// Record 角色向量存储记录
type Record struct {
	Name        string
	Description string
	Vector      []float32
}

// Hit 语义检索命中
type Hit struct {
	Name        string
	Description string
	// Distance 余弦距离，越小越相关
	Distance float32
}

// VectorStore 角色向量存储端口
// Upsert 必须原子替换同名记录的描述与向量。
type VectorStore interface {
	Upsert(ctx context.Context, record *Record) error
	Delete(ctx context.Context, name string) error
	Get(ctx context.Context, name string) (*Record, error)
	List(ctx context.Context) ([]*Record, error)
	Search(ctx context.Context, queryVector []float32, topK int) ([]*Hit, error)
}

// EmbeddingInvalidator 嵌入缓存失效端口
// 角色库任何写操作后整体清空，后续读取重新走嵌入后端。
type EmbeddingInvalidator interface {
	Flush()
}
