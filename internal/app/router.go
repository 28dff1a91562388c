package app

import (
	"readcode_backend/internal/config"
	"readcode_backend/internal/middleware"
	"readcode_backend/internal/model"
	"readcode_backend/pkg/monitoring"
	"readcode_backend/pkg/security"
	"readcode_backend/pkg/tracing"
	"time"

	"github.com/gin-gonic/gin"
)

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config, repos *repositories) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	if cfg.RateLimit.MaxRequests > 0 {
		window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
		router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window))
	}

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())

	// 每个请求都带浏览器会话，匿名答题依赖它
	router.Use(middleware.SessionMiddleware(repos.session))
}

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		// 内容目录，游客可浏览
		public.GET("/content/:language/groups", c.content.ListGroups)
		public.GET("/content/:language/groups/:group", c.content.ListChallenges)
		public.GET("/content/:language/groups/:group/:challenge", c.content.GetChallenge)
	}

	// 答题接口：登录与匿名都可提交，身份由 TryAuth + 会话中间件决定
	challenge := router.Group("/api/challenge")
	challenge.Use(middleware.TryAuthMiddleware(cfg))
	{
		challenge.POST("/check-answers", c.challenge.CheckAnswers)
		challenge.POST("/like-dislike", c.challenge.SaveLikeDislike)
		challenge.POST("/clear-answers", c.challenge.ClearAnswers)
		challenge.GET("/state/:language/:group/:challenge", c.challenge.GetChallengeState)
	}

	// 实时看板：教师通过 query token 认证后建立长连接
	ws := router.Group("/api/ws")
	ws.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Teacher))
	{
		ws.GET("/challenge/:classCode/:challengeMd5", c.dashboard.AnswersWs)
	}

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/me", c.auth.Me)
		authGroup.DELETE("/me", c.auth.DeleteAccount)
		authGroup.POST("/classes/enroll", c.class.Enroll)

		teacher := authGroup.Group("/classes")
		teacher.Use(middleware.RoleMiddleware(model.Teacher))
		{
			teacher.POST("", c.class.CreateClass)
			teacher.PUT("/active", c.class.SetActiveClass)
			teacher.GET("/active", c.class.GetActiveClass)
		}
	}
}
