package app

import (
	"context"
	"game_gate_backend/internal/config"
	"game_gate_backend/internal/controller"
	"game_gate_backend/internal/repository"
	"game_gate_backend/internal/service"
	"game_gate_backend/pkg/configwatcher"
	"game_gate_backend/pkg/database"
	"game_gate_backend/pkg/logger"
	"game_gate_backend/pkg/monitoring"
	"game_gate_backend/pkg/security"
	"game_gate_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services        *services
	tracer          *sdktrace.TracerProvider
	configMu        sync.Mutex
	configCallbacks []func(*config.Config)
}

type repositories struct {
	policy        *repository.PolicyRepository
	quizQuestion  *repository.QuizQuestionRepository
	attempt       *repository.AttemptRepository
	playStat      *repository.PlayStatRepository
	parentControl *repository.ParentControlRepository
	ticket        *repository.TicketRepository
	progress      *repository.ProgressRepository
}

type services struct {
	contextBuilder *service.PlayContextBuilder
	policy         *service.PolicyService
	question       *service.QuestionService
	answer         *service.AnswerService
	playStat       *service.PlayStatService
}

type controllers struct {
	game   *controller.GameController
	policy *controller.PolicyController
	health *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configMu.Lock()
	defer a.configMu.Unlock()
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	a.configMu.Lock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.configMu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
	logger.Log.Info("Configuration reloaded")
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		policy:        repository.NewPolicyRepository(db),
		quizQuestion:  repository.NewQuizQuestionRepository(db),
		attempt:       repository.NewAttemptRepository(db),
		playStat:      repository.NewPlayStatRepository(db),
		parentControl: repository.NewParentControlRepository(db),
		ticket:        repository.NewTicketRepository(db),
		progress:      repository.NewProgressRepository(db),
	}
}

// newQuestionCache 多实例部署必须使用 redis，才能跨副本保证每次选题最多校验一次
func newQuestionCache(cfg *config.Config, rdb *redis.Client) service.QuestionCache {
	if cfg.Gate.Cache == config.CacheRedis && rdb != nil {
		return service.NewRedisQuestionCache(rdb)
	}
	return service.NewMemoryQuestionCache()
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	loc, err := cfg.Gate.Location()
	if err != nil {
		logger.Log.Warn("invalid timezone, falling back to UTC", zap.String("timezone", cfg.Gate.Timezone), zap.Error(err))
		loc = time.UTC
	}

	s.contextBuilder = service.NewPlayContextBuilder(
		loc,
		repos.playStat,
		repos.progress,
		repos.parentControl,
		repos.ticket,
		repos.progress,
	)
	s.policy = service.NewPolicyService(repos.policy, s.contextBuilder, service.NewRuleRegistry())

	cache := newQuestionCache(cfg, rdb)
	s.question = service.NewQuestionService(repos.quizQuestion, cache, cfg.Gate.QuestionTTL())
	s.answer = service.NewAnswerService(cache, repos.attempt)
	s.playStat = service.NewPlayStatService(repos.playStat, s.contextBuilder)

	a.RegisterConfigCallback(func(newCfg *config.Config) {
		newLoc, err := newCfg.Gate.Location()
		if err != nil {
			logger.Log.Error("ignoring invalid timezone on reload", zap.String("timezone", newCfg.Gate.Timezone), zap.Error(err))
			return
		}
		s.contextBuilder.SetLocation(newLoc)
	})

	return s
}

func (a *App) initControllers(s *services, repos *repositories, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		game:   controller.NewGameController(s.policy, s.question, s.answer, s.playStat),
		policy: controller.NewPolicyController(repos.policy),
		health: controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if cfg.RateLimit.MaxRequests > 0 && window > 0 {
		router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window))
	}

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.ForceMigrate || cfg.Server.Mode != "release" {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	var rdb *redis.Client
	if cfg.Gate.Cache == config.CacheRedis {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
		app.Redis = rdb
	}

	repos := app.initRepositories(db)

	seeded, err := service.SeedPolicies(context.Background(), repos.policy, cfg.Gate.PolicySeedFile)
	if err != nil {
		logger.Log.Error("Failed to seed policies", zap.Error(err))
	} else if seeded > 0 {
		logger.Log.Info("Policies seeded", zap.Int("count", seeded))
	}

	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, repos, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("game-gate", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	return app
}

func (a *App) watchConfig(configDir string) {
	path := filepath.Join(configDir, "config.yaml")
	if _, err := os.Stat(path); err != nil {
		logger.Log.Warn("config watcher disabled", zap.String("path", path), zap.Error(err))
		return
	}
	go configwatcher.WatchConfig(path, a.applyConfig)
}

func (a *App) Run(configDir string) {
	a.watchConfig(configDir)

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}
