package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jdeweedata/circletel-sub016/internal/config"
	"github.com/jdeweedata/circletel-sub016/internal/gateway"
	"github.com/jdeweedata/circletel-sub016/internal/geometry"
	"github.com/jdeweedata/circletel-sub016/internal/health"
	"github.com/jdeweedata/circletel-sub016/internal/httpserver"
	"github.com/jdeweedata/circletel-sub016/internal/httpserver/deps"
	"github.com/jdeweedata/circletel-sub016/internal/logger"
	"github.com/jdeweedata/circletel-sub016/internal/metrics"
	"github.com/jdeweedata/circletel-sub016/internal/ratelimit"
	"github.com/jdeweedata/circletel-sub016/internal/redis"
	"github.com/jdeweedata/circletel-sub016/internal/registry"
	"github.com/jdeweedata/circletel-sub016/internal/resolver"
	"github.com/jdeweedata/circletel-sub016/internal/scheduler"
	redisstore "github.com/jdeweedata/circletel-sub016/internal/store/redis"
	"github.com/jdeweedata/circletel-sub016/internal/telemetry"
	"github.com/jdeweedata/circletel-sub016/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	sink        *telemetry.Sink

	providerReloader *scheduler.ProviderReloader
	datasetReloader  *scheduler.DatasetReloader
	sessionRefresher *scheduler.SessionRefresher
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	store := redisstore.NewStore(redisClient)
	reg := registry.New()
	geo := geometry.NewStore()
	tracker := health.NewTracker()
	limiter := ratelimit.NewWithWait(cfg.RateLimitMaxWait)

	// Telemetry sink feeds the health tracker, call log, and metrics.
	sink := telemetry.NewSink(tracker, store, loggerClient)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	promReg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(promReg); err != nil {
		loggerClient.Errorf("Failed to register metrics: %v", err)
		os.Exit(1)
	}

	httpClient := &http.Client{}
	sessions := gateway.NewSessionManager(httpClient, loggerClient)
	router := gateway.NewRouter(
		gateway.NewRemote(httpClient, sessions, sink, loggerClient),
		gateway.NewStatic(geo, sink, loggerClient),
	)

	orchestrator := resolver.New(reg, router, tracker, limiter, store, loggerClient, resolver.Options{
		CacheTTL:        cfg.CacheTTL,
		OverallDeadline: cfg.QueryDeadline,
	})

	providerReloadTrigger := make(chan struct{}, 1)
	datasetReloadTrigger := make(chan struct{}, 1)
	sessionRefreshTrigger := make(chan struct{}, 1)

	providerReloader := scheduler.NewProviderReloader(
		cfg.ProviderFile,
		reg,
		loggerClient,
		cfg.ProviderReloadInterval,
		providerReloadTrigger,
	)
	datasetReloader := scheduler.NewDatasetReloader(
		reg,
		geo,
		store,
		loggerClient,
		cfg.DatasetReloadInterval,
		datasetReloadTrigger,
	)
	sessionRefresher := scheduler.NewSessionRefresher(
		reg,
		sessions,
		loggerClient,
		cfg.SessionRefreshInterval,
		cfg.SessionRefreshLead,
		sessionRefreshTrigger,
	)

	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		AllowedHosts: cfg.AllowedHosts,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,

		Registry:     reg,
		Tracker:      tracker,
		Orchestrator: orchestrator,
		Sessions:     sessions,
		Store:        store,
		Metrics:      promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),

		ProviderReloadTrigger: providerReloadTrigger,
		DatasetReloadTrigger:  datasetReloadTrigger,
		SessionRefreshTrigger: sessionRefreshTrigger,

		Ready: func() bool { return reg.Count() > 0 },
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:              cfg,
		logger:           loggerClient,
		server:           server,
		redisClient:      redisClient,
		sink:             sink,
		providerReloader: providerReloader,
		datasetReloader:  datasetReloader,
		sessionRefresher: sessionRefresher,
	}
}

func (a *App) Run() error {
	a.logger.Infof("Starting coverage engine v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("coverage-engine %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.sink.Start(ctx)
	a.logger.Info("telemetry sink started")

	// Load providers before accepting traffic; readyz gates on this.
	if err := a.providerReloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start provider reloader: %w", err)
	}
	a.logger.Info("provider reloader started",
		logger.Duration("interval", a.cfg.ProviderReloadInterval))

	if err := a.datasetReloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dataset reloader: %w", err)
	}
	a.logger.Info("dataset reloader started",
		logger.Duration("interval", a.cfg.DatasetReloadInterval))

	if err := a.sessionRefresher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session refresher: %w", err)
	}
	a.logger.Info("session refresher started",
		logger.Duration("interval", a.cfg.SessionRefreshInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.providerReloader.Stop()
	a.datasetReloader.Stop()
	a.sessionRefresher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	// Drain pending telemetry before closing redis.
	a.sink.Stop()

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("Redis closed cleanly")
		}
	}

	a.logger.Info("coverage engine stopped cleanly")
	return nil
}
