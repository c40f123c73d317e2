// Package wire 负责应用组件的装配
package wire

import (
	"context"

	"storyspark-api/internal/application/character"
	"storyspark-api/internal/application/story"
	"storyspark-api/internal/config"
	"storyspark-api/internal/domain/repository"
	infraembedding "storyspark-api/internal/infrastructure/embedding"
	"storyspark-api/internal/infrastructure/llm"
	"storyspark-api/internal/infrastructure/persistence/memory"
	"storyspark-api/internal/infrastructure/persistence/milvus"
	"storyspark-api/internal/infrastructure/persistence/redis"
	"storyspark-api/internal/interfaces/http/handler"
	"storyspark-api/internal/interfaces/http/router"
	"storyspark-api/internal/workflow/chain"
	"storyspark-api/pkg/logger"
)

// App 装配完成的应用
type App struct {
	Router *router.Router
}

// InitializeApp 构建全部组件并装配路由
// 返回的 cleanup 负责释放外部连接。
// 嵌入后端构建失败不阻断启动，角色检索会降级为空上下文；
// 向量库连接失败是致命错误。
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// 向量库
	milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		return nil, nil, err
	}
	cleanups = append(cleanups, func() { _ = milvusClient.Close() })

	vectorRepo := milvus.NewRepository(milvusClient)
	if err := vectorRepo.EnsureCharactersCollection(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}

	// 嵌入后端（可降级）
	embedder, err := infraembedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		logger.Warn(ctx, "embedding backend unavailable, retrieval degrades to empty context", "error", err)
		embedder = nil
	}
	cachedEmbedder := infraembedding.NewCachedEmbedder(embedder, cfg.Cache.EmbeddingTTL)

	// 角色档案服务
	characterStore := character.NewStore(
		milvus.NewCharacterStoreAdapter(vectorRepo),
		cachedEmbedder,
		cachedEmbedder,
		cfg.Cache.ListTTL,
	)

	// LLM 工作流
	factory := llm.NewEinoFactory(cfg)
	sceneChain := chain.NewSceneChain(factory)
	rewriteChain := chain.NewRewriteChain(factory)

	pipeline := story.NewScenePipeline(
		story.NewRetrievalStage(characterStore, cfg.Story.RetrievalTopK),
		story.NewSceneGenerationStage(sceneChain),
	)

	// 会话存储：启用 Redis 时优先使用，连接失败退回进程内存储
	var sessions repository.SessionRepository
	var redisClient *redis.Client
	if cfg.Cache.Redis.Enabled {
		redisClient, err = redis.NewClient(&cfg.Cache.Redis)
		if err != nil {
			logger.Warn(ctx, "redis unavailable, sessions fall back to in-process store", "error", err)
			redisClient = nil
		}
	}
	if redisClient != nil {
		cleanups = append(cleanups, func() { _ = redisClient.Close() })
		sessions = redis.NewSessionRepository(redisClient, cfg.Story.SessionTTL)
	} else {
		sessions = memory.NewSessionRepository(cfg.Story.SessionTTL)
	}

	flow := story.NewFlowController(pipeline, rewriteChain, sessions)

	r := router.New(cfg, router.Handlers{
		Health:    handler.NewHealthHandler(milvusClient, redisClient),
		Character: handler.NewCharacterHandler(characterStore, cfg),
		Story:     handler.NewStoryHandler(flow),
	})

	return &App{Router: r}, cleanup, nil
}
