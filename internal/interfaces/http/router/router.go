// Package router 提供 HTTP 路由配置
package router

import (
	"storyspark-api/internal/config"
	"storyspark-api/internal/interfaces/http/handler"
	"storyspark-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由依赖的处理器集合
type Handlers struct {
	Health    *handler.HealthHandler
	Character *handler.CharacterHandler
	Story     *handler.StoryHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers Handlers
}

// New 创建新的路由器
func New(cfg *config.Config, handlers Handlers) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		handlers: handlers,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	// 系统端点
	r.engine.GET("/health", r.handlers.Health.Health)
	r.engine.GET("/ready", r.handlers.Health.Ready)
	r.engine.GET("/live", r.handlers.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.engine.Group("/v1")
	{
		characters := v1.Group("/characters")
		{
			characters.GET("", r.handlers.Character.List)
			characters.PUT("", r.handlers.Character.Save)
			characters.POST("/search", r.handlers.Character.Search)
			characters.GET("/:name", r.handlers.Character.Get)
			characters.DELETE("/:name", r.handlers.Character.Delete)
		}

		stories := v1.Group("/stories")
		{
			stories.POST("", r.handlers.Story.Start)
			stories.GET("/:id", r.handlers.Story.Get)
			stories.DELETE("/:id", r.handlers.Story.Reset)
			stories.POST("/:id/continue", r.handlers.Story.Continue)
			stories.POST("/:id/regenerate", r.handlers.Story.Regenerate)
			stories.POST("/:id/rewrite", r.handlers.Story.Rewrite)
			stories.GET("/:id/export", r.handlers.Story.Export)
		}
	}
}
