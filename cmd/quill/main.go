package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/quill/pkg/api"
	"github.com/platinummonkey/quill/pkg/async"
	"github.com/platinummonkey/quill/pkg/audit"
	"github.com/platinummonkey/quill/pkg/auth"
	"github.com/platinummonkey/quill/pkg/config"
	"github.com/platinummonkey/quill/pkg/email"
	"github.com/platinummonkey/quill/pkg/invitations"
	"github.com/platinummonkey/quill/pkg/middleware"
	"github.com/platinummonkey/quill/pkg/observability"
	"github.com/platinummonkey/quill/pkg/workspaces"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "quill: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	proxies, err := middleware.ParseTrustedProxies(cfg.Access.TrustedProxies)
	if err != nil {
		return fmt.Errorf("failed to parse trusted proxies: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout).
		WithField("service", cfg.Observability.OTelServiceName)
	observability.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    1,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}

	if cfg.Database.MigrateOnStart {
		if err := workspaces.RunMigrations(ctx, db, logger); err != nil {
			db.Close()
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			db.Close()
			return fmt.Errorf("invalid redis URL: %w", err)
		}
		opts.PoolSize = cfg.Redis.PoolSize
		redisClient = redis.NewClient(opts)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "quill"),
	)
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.TokenSecret, cfg.Auth.TokenIssuer, cfg.Auth.TokenTTL)
	if err != nil {
		db.Close()
		return err
	}
	directory := auth.NewProfileCache(auth.NewPostgresDirectory(db), cfg.Access.ProfileCacheSize, cfg.Access.ProfileCacheTTL)

	workspaceStore := workspaces.NewPostgresStore(db)
	resolver := workspaces.NewResolver(workspaceStore, metrics)
	recorder := audit.NewRecorder(audit.NewPostgresStore(db), directory, metrics)
	members := workspaces.NewMemberService(workspaceStore, directory, recorder)

	var sender email.Sender
	if smtpCfg := cfg.Email.SMTP(); smtpCfg.IsConfigured() {
		sender = email.NewSMTPSender(smtpCfg)
	} else {
		logger.Warn("SMTP is not configured, invitation emails will be logged only")
		sender = email.NewLogSender(logger)
	}

	var background async.Group
	manager := invitations.NewManager(
		invitations.NewPostgresStore(db),
		directory,
		resolver,
		workspaceStore,
		sender,
		recorder,
		&background,
		invitations.Options{
			BaseURL:     cfg.Server.BaseURL,
			AppName:     cfg.Email.AppName,
			TTL:         cfg.Invitations.TTL,
			SendTimeout: cfg.Invitations.SendTimeout,
			Metrics:     metrics,
		},
	)

	limiterConfig := &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.Invitations.RateLimitRequests,
		WindowDuration:    cfg.Invitations.RateLimitWindow,
	}
	var limiter middleware.Limiter
	if redisClient != nil {
		limiter = middleware.NewRedisLimiter(redisClient, limiterConfig, "quill:ratelimit")
	} else {
		memory := middleware.NewMemoryLimiter(limiterConfig)
		memory.StartCleanup(ctx)
		limiter = memory
	}

	server := api.NewServer(api.Dependencies{
		Tokens:         tokens,
		Guard:          middleware.NewAccessGuard(resolver, cfg.Access.ResolveTimeout, metrics),
		Members:        members,
		Invitations:    manager,
		Activity:       recorder,
		InviteLimiter:  limiter,
		TrustedProxies: proxies,
		Metrics:        metrics,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthRouter := mux.NewRouter()
	checks := []observability.ReadinessCheck{
		observability.DatabaseCheck(db),
		workspaces.SchemaCheck(db),
	}
	if redisClient != nil {
		checks = append(checks, observability.RedisCheck(redisClient))
	}
	observability.NewHealthChecker(version, checks...).RegisterRoutes(healthRouter)
	if metrics != nil {
		healthRouter.Handle("/metrics", observability.MetricsHandler(registry)).Methods(http.MethodGet)
	}
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           healthRouter,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Steps run in reverse: health listener, email tasks, telemetry, redis, database
	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.Register("database", func(context.Context) error { return db.Close() })
	if redisClient != nil {
		shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })
	}
	shutdown.Register("opentelemetry", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})
	shutdown.Register("background tasks", background.Wait)
	shutdown.Register("health server", healthServer.Shutdown)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithFields(map[string]interface{}{
			"addr":    httpServer.Addr,
			"version": version,
		}).Info("Starting Quill API server")
		return listen(httpServer)
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Starting health server")
		return listen(healthServer)
	})
	g.Go(func() error {
		return shutdown.WaitForShutdown(gctx)
	})

	return g.Wait()
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func listen(server *http.Server) error {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server %s: %w", server.Addr, err)
	}
	return nil
}
