package app

import (
	"game_gate_backend/docs"
	"game_gate_backend/internal/config"
	"game_gate_backend/internal/middleware"
	"game_gate_backend/internal/model"

	"game_gate_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 2. 游戏客户端接口
	games := router.Group("/api/games")
	games.Use(middleware.AuthMiddleware(cfg))
	{
		games.GET("/can-play", c.game.CanPlay)
		games.POST("/questions", c.game.GetQuestion)
		games.POST("/questions/:id/validate", c.game.ValidateAnswer)
		games.POST("/plays", c.game.RecordPlay)
	}

	// 3. 管理员接口
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/policies", c.policy.ListPolicies)
	}
}
