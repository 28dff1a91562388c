package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"readcode_backend/internal/config"
	"readcode_backend/internal/controller"
	"readcode_backend/internal/repository"
	"readcode_backend/internal/service"
	"readcode_backend/pkg/configwatcher"
	"readcode_backend/pkg/database"
	"readcode_backend/pkg/logger"
	"readcode_backend/pkg/monitoring"
	"readcode_backend/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user          *repository.UserRepository
	session       *repository.SessionRepository
	class         *repository.ClassRepository
	challengeInfo *repository.ChallengeInfoRepository
	answerHistory *repository.AnswerHistoryRepository
}

type services struct {
	auth       *service.AuthService
	class      *service.ClassService
	content    *service.ContentService
	answer     *service.AnswerService
	comparator *service.Comparator
	jvmPool    *service.EvaluatorPool
	pythonPool *service.EvaluatorPool
	hub        *service.DashboardHub
}

type controllers struct {
	auth      *controller.AuthController
	class     *controller.ClassController
	challenge *controller.ChallengeController
	content   *controller.ContentController
	dashboard *controller.DashboardController
	health    *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:          repository.NewUserRepository(db),
		session:       repository.NewSessionRepository(db),
		class:         repository.NewClassRepository(db),
		challengeInfo: repository.NewChallengeInfoRepository(db),
		answerHistory: repository.NewAnswerHistoryRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	content, err := service.NewContentService(cfg.Content.Path)
	if err != nil {
		logger.Log.Fatal("Failed to load challenge content", zap.Error(err))
	}
	s.content = content

	s.jvmPool, err = service.NewJvmPool(&cfg.Evaluator)
	if err != nil {
		logger.Log.Fatal("Failed to create jvm evaluator pool", zap.Error(err))
	}
	s.pythonPool, err = service.NewPythonPool(&cfg.Evaluator)
	if err != nil {
		logger.Log.Fatal("Failed to create python evaluator pool", zap.Error(err))
	}
	s.comparator = service.NewComparator(s.jvmPool, s.pythonPool)

	s.hub = service.NewDashboardHub(rdb)
	s.hub.Run()

	s.auth = service.NewAuthService(repos.user, repos.session, cfg)
	s.class = service.NewClassService(repos.class, repos.user, repos.session)
	s.answer = service.NewAnswerService(
		db,
		s.content,
		s.comparator,
		repos.challengeInfo,
		repos.answerHistory,
		repos.class,
		repos.session,
		repos.user,
		s.hub,
		cfg.Answers.MaxHistoryLength,
	)

	return s
}

func (a *App) initControllers(s *services, repos *repositories, db *gorm.DB) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.auth),
		class:     controller.NewClassController(s.class, s.auth),
		challenge: controller.NewChallengeController(s.answer, s.content),
		content:   controller.NewContentController(s.content),
		dashboard: controller.NewDashboardController(s.hub, repos.class),
		health:    controller.NewHealthController(db),
	}
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Redis 可选：未启用时看板只在本进程内广播
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
			log.Fatalf("Failed to initialize redis: %v", err)
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, repos, db)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg, repos)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("readcode-platform", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	app.registerRoutes(router, controllers, repos, cfg)

	// 配置热更新：挑战内容跟着一起重载
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		if err := services.content.Reload(); err != nil {
			logger.Log.Error("Content reload failed", zap.Error(err))
		}
	})
	go configwatcher.WatchConfig("configs/config.yaml", cfg, func(newCfg interface{}) {
		updated, ok := newCfg.(*config.Config)
		if !ok {
			return
		}
		logger.Log.Info("Config reloaded")
		for _, cb := range app.configCallbacks {
			cb(updated)
		}
	})

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// 先断开看板连接，再关掉求值器池
	if a.services != nil {
		if a.services.hub != nil {
			a.services.hub.Stop()
		}
		if a.services.jvmPool != nil {
			a.services.jvmPool.Close()
		}
		if a.services.pythonPool != nil {
			a.services.pythonPool.Close()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
