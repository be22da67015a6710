// Package app 提供应用程序的初始化和配置功能.
package app

import (
	contextPkg "context"
	"fmt"
	"os"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/imagevault/pkg/api"
	"github.com/yeisme/imagevault/pkg/configs"
	"github.com/yeisme/imagevault/pkg/context"
	"github.com/yeisme/imagevault/pkg/internal/jobs"
	"github.com/yeisme/imagevault/pkg/internal/storage"
	"github.com/yeisme/imagevault/pkg/internal/worker"
	"github.com/yeisme/imagevault/pkg/log"
	"github.com/yeisme/imagevault/pkg/metrics"
	"github.com/yeisme/imagevault/pkg/middleware"
	"github.com/yeisme/imagevault/pkg/scheduler"
	"github.com/yeisme/imagevault/pkg/tracing"
)

type App struct {
	Engine  *gin.Engine
	config  *configs.AppConfig
	manager *storage.Manager
	sched   *scheduler.Scheduler
}

// initInfra 初始化配置、追踪、监控与存储，三层服务公用.
func initInfra(configPath string) (*configs.AppConfig, *storage.Manager) {
	ctx := contextPkg.Background()

	if err := configs.InitConfig(configPath); err != nil {
		fmt.Printf("Error initializing config: %v\n", err)
		os.Exit(1)
	}

	config := configs.GetConfig()
	if err := tracing.InitTracer(config.Tracing); err != nil {
		fmt.Printf("Error initializing tracing: %v\n", err)
		os.Exit(1)
	}

	if err := metrics.InitMetrics(config.Metrics); err != nil {
		fmt.Printf("Error initializing metrics: %v\n", err)
		os.Exit(1)
	}

	manager, err := storage.Init(ctx)
	if err != nil {
		fmt.Printf("Error initializing storage: %v\n", err)
		os.Exit(1)
	}

	return config, manager
}

// NewApp 构造 HTTP 协调服务：完整中间件链 + 资产路由 + 巡检定时任务.
func NewApp(configPath string) *App {
	config, manager := initInfra(configPath)

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.GinLoggerMiddleware(),
		gzip.Gzip(gzip.DefaultCompression),
		middleware.CORSMiddleware(config.Server),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.RateLimitMiddleware(config.RateLimit),
		middleware.CircuitBreakerMiddleware(config.CircuitBreaker),
		middleware.StorageMiddleware(manager),
	)

	api.RegisterGroup(engine)

	if config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(config.Metrics, engine)
	}

	// 滞留资产巡检
	sched, err := scheduler.NewScheduler()
	if err != nil {
		l.Error().Err(err).Msg("创建调度器失败，巡检任务不可用")
	} else {
		if err := jobs.RegisterCronJobs(sched, manager); err != nil {
			l.Error().Err(err).Msg("注册定时任务失败")
		}

		sched.Start()
		engine.Use(middleware.SchedulerMiddleware(sched))
	}

	return &App{
		Engine:  engine,
		config:  config,
		manager: manager,
		sched:   sched,
	}
}

// Run 启动 HTTP 服务.
func (a *App) Run() error {
	return a.Engine.Run(fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port))
}

// RunWorker 初始化基础设施并以阻塞方式运行变体生成工作器.
func RunWorker(configPath string) error {
	_, manager := initInfra(configPath)

	ctx := context.WithStorageManager(contextPkg.Background(), manager)

	w := worker.New(ctx)

	return w.Run(ctx)
}
