package main

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/pprofhandler"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/lifequest/api/handler"
	"github.com/fastygo/lifequest/internal/config"
	"github.com/fastygo/lifequest/internal/infrastructure/buffer"
	"github.com/fastygo/lifequest/internal/infrastructure/monitor"
	natsInfra "github.com/fastygo/lifequest/internal/infrastructure/nats"
	pgInfra "github.com/fastygo/lifequest/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/lifequest/internal/infrastructure/redis"
	"github.com/fastygo/lifequest/internal/metrics"
	"github.com/fastygo/lifequest/internal/middleware"
	"github.com/fastygo/lifequest/internal/router"
	"github.com/fastygo/lifequest/internal/services"
	"github.com/fastygo/lifequest/internal/services/lifecycle"
	"github.com/fastygo/lifequest/pkg/httpcontext"
	"github.com/fastygo/lifequest/repository"
	"github.com/fastygo/lifequest/repository/memory"
	"github.com/fastygo/lifequest/repository/postgres"
	redisRepo "github.com/fastygo/lifequest/repository/redis"
	"github.com/fastygo/lifequest/usecase"
	analyticsUC "github.com/fastygo/lifequest/usecase/analytics"
	completionUC "github.com/fastygo/lifequest/usecase/completion"
	leaderboardUC "github.com/fastygo/lifequest/usecase/leaderboard"
	profileUC "github.com/fastygo/lifequest/usecase/profile"
	taskUC "github.com/fastygo/lifequest/usecase/task"
)

// backend is the storage-dependent part of the service graph.
type backend struct {
	tasks       repository.TaskRepository
	stats       repository.StatsRepository
	users       repository.UserRepository
	progress    repository.ProgressRepository
	completions repository.CompletionRepository

	cache     repository.LeaderboardCache
	buffer    usecase.OperationBuffer
	publisher usecase.EventPublisher
	monitor   *monitor.Monitor
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zapLogger, err := loadConfig()
			if err != nil {
				return err
			}
			defer zapLogger.Sync()
			return serve(cmd.Context(), cfg, zapLogger)
		},
	}
}

func serve(parent context.Context, cfg *config.Config, zapLogger *zap.Logger) error {
	if cfg.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if parent == nil {
		parent = context.Background()
	}

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appCtx, stop := manager.WithSignals(parent)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	var (
		be  *backend
		err error
	)
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		be = memoryBackend(cfg, zapLogger)
	default:
		be, err = postgresBackend(appCtx, cfg, manager, zapLogger)
	}
	if err != nil {
		shutdown(manager, zapLogger)
		return err
	}
	be.monitor.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		be.monitor.Stop()
		return nil
	})

	completionOpts := []completionUC.Option{completionUC.WithMetrics(appMetrics)}
	leaderboardOpts := []leaderboardUC.Option{
		leaderboardUC.WithMetrics(appMetrics),
		leaderboardUC.WithTopN(cfg.Gamification.LeaderboardTopN),
	}
	if be.cache != nil {
		completionOpts = append(completionOpts, completionUC.WithCache(be.cache))
		leaderboardOpts = append(leaderboardOpts, leaderboardUC.WithCache(be.cache))
	}
	if be.publisher != nil {
		completionOpts = append(completionOpts, completionUC.WithPublisher(be.publisher))
	}

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Profile:     apiHandler.NewProfileHandler(profileUC.New(be.users, be.progress, be.buffer, zapLogger), ctxAdapter, zapLogger),
		Task:        apiHandler.NewTaskHandler(taskUC.New(be.tasks, be.buffer, zapLogger), ctxAdapter, zapLogger),
		Completion:  apiHandler.NewCompletionHandler(completionUC.New(be.completions, zapLogger, completionOpts...), ctxAdapter, zapLogger),
		Leaderboard: apiHandler.NewLeaderboardHandler(leaderboardUC.New(be.stats, be.users, zapLogger, leaderboardOpts...), ctxAdapter, zapLogger),
		Analytics:   apiHandler.NewAnalyticsHandler(analyticsUC.New(be.stats, be.progress, zapLogger, analyticsUC.WithMetrics(appMetrics)), ctxAdapter, zapLogger),
		Health:      apiHandler.NewHealthHandler(be.monitor, ctxAdapter, zapLogger),
	}
	if cfg.HTTP.EnableMetrics {
		handlers.Metrics = metrics.Handler(registry)
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, cfg.JWT.Issuer, zapLogger)
	r := router.New(handlers, authMiddleware)
	if cfg.HTTP.EnablePprof {
		r.GET("/debug/pprof/{profile:*}", pprofhandler.PprofHandler)
	}

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	serverErr := make(chan error, 1)
	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("storage", cfg.Storage.Driver))
		serverErr <- server.ListenAndServe(cfg.Address())
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	var runErr error
	select {
	case <-appCtx.Done():
	case runErr = <-serverErr:
		zapLogger.Error("server crashed", zap.Error(runErr))
	}

	shutdown(manager, zapLogger)
	return runErr
}

func shutdown(manager *lifecycle.Manager, zapLogger *zap.Logger) {
	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

func memoryBackend(cfg *config.Config, zapLogger *zap.Logger) *backend {
	zapLogger.Warn("using in-memory storage; data is lost on restart")
	store := memory.New(nil)
	return &backend{
		tasks:       store.Tasks(),
		stats:       store.Stats(),
		users:       store.Users(),
		progress:    store.Progress(),
		completions: store.Completions(),
		cache:       memory.NewLeaderboardCache(cfg.Gamification.LeaderboardCacheTTL, nil),
		monitor:     monitor.New(nil, nil, 10*time.Second, zapLogger),
	}
}

func postgresBackend(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, zapLogger *zap.Logger) (*backend, error) {
	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		return nil, err
	}

	pool, err := pgInfra.NewPool(ctx, cfg.Database, zapLogger)
	if err != nil {
		return nil, err
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pgInfra.Close(pool, zapLogger)
		return nil
	})

	be := &backend{
		tasks:       postgres.NewTaskRepository(pool),
		stats:       postgres.NewStatsRepository(pool),
		users:       postgres.NewUserRepository(pool),
		progress:    postgres.NewProgressRepository(pool),
		completions: postgres.NewCompletionRepository(pool),
	}
	probes := []monitor.Probe{monitor.PostgresProbe(pool)}

	if cfg.Redis.Enabled {
		redisClient, err := redisInfra.NewClient(ctx, cfg.Redis, zapLogger)
		if err != nil {
			// The cache is optional; leaderboards fall back to the database.
			zapLogger.Warn("redis unavailable, leaderboard cache disabled", zap.Error(err))
		} else {
			manager.Register("redis", func(ctx context.Context) error {
				return redisClient.Close()
			})
			be.cache = redisRepo.NewLeaderboardCache(redisClient, cfg.Gamification.LeaderboardCacheTTL, zapLogger)
			probes = append(probes, monitor.RedisProbe(redisClient))
		}
	}

	if cfg.NATS.URL != "" {
		conn, err := natsInfra.Connect(cfg.NATS, cfg.AppName, zapLogger)
		if err != nil {
			return nil, err
		}
		manager.Register("nats", func(ctx context.Context) error {
			return conn.Drain()
		})
		be.publisher = natsInfra.NewPublisher(conn, cfg.NATS.Subject, zapLogger)
		probes = append(probes, monitor.NATSProbe(conn))
	}

	var bufferStore *buffer.Store
	if cfg.Buffer.Enabled {
		bufferStore, err = buffer.Open(cfg.Buffer.Path, buffer.Options{MaxSize: cfg.Buffer.MaxSize})
		if err != nil {
			return nil, err
		}
		manager.Register("buffer", func(ctx context.Context) error {
			return bufferStore.Close()
		})
	}

	if bufferStore != nil {
		be.monitor = monitor.New(probes, bufferStore, 10*time.Second, zapLogger)

		processor := services.NewBufferProcessor(
			bufferStore,
			be.monitor,
			be.users,
			be.tasks,
			zapLogger,
			services.ProcessorConfig{
				Interval:   cfg.Buffer.SyncInterval,
				BatchSize:  50,
				MaxRetries: cfg.Buffer.MaxRetry,
				Retention:  time.Duration(cfg.Buffer.RetentionHours) * time.Hour,
			},
		)
		processor.Start()
		manager.Register("buffer_processor", processor.Stop)
		be.buffer = services.NewBufferBridge(processor)
	} else {
		be.monitor = monitor.New(probes, nil, 10*time.Second, zapLogger)
	}

	return be, nil
}
