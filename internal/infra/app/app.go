package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arklim/village-admin/internal/infra/config"
	"github.com/arklim/village-admin/internal/infra/database"
	"github.com/arklim/village-admin/internal/infra/events"
	"github.com/arklim/village-admin/internal/infra/logger"
	redisinfra "github.com/arklim/village-admin/internal/infra/redis"
	"github.com/arklim/village-admin/internal/infra/security"
	"github.com/arklim/village-admin/internal/infra/telemetry"
	postgresrepo "github.com/arklim/village-admin/internal/repository/postgres"
	redisrepo "github.com/arklim/village-admin/internal/repository/redis"
	"github.com/arklim/village-admin/internal/rpc"
	"github.com/arklim/village-admin/internal/transport/http/routes"
	"github.com/arklim/village-admin/internal/usecase"
)

// Application bundles the wired process state.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	tracer *telemetry.TracerProvider
}

// New wires configuration, infrastructure, services, and transport.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if _, err := telemetry.Attach(ctx, cfg); err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.Enabled {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	if err := database.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	minter, err := security.NewTokenMinter(cfg.Session.Secret, cfg.App.Name)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token minter: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)
	sessionRepo := redisrepo.NewSessionRepository(redisClient.Client(), cfg.Redis.SessionPrefix)
	publisher := events.NewLoggingPublisher(log)

	authService := usecase.NewAuthService(
		repos.Users,
		sessionRepo,
		minter,
		cfg.Session.AccessTokenTTL,
		cfg.Session.RefreshTokenTTL,
		log,
	)
	villageCodeService := usecase.NewVillageCodeService(repos.VillageCodes, publisher, log)

	if cfg.Bootstrap.AdminEmail != "" && cfg.Bootstrap.AdminPassword != "" {
		_, err := authService.ProvisionUser(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword)
		switch {
		case errors.Is(err, usecase.ErrUserExists):
			log.Debug("bootstrap admin already provisioned")
		case err != nil:
			pool.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("provision bootstrap admin: %w", err)
		}
	}

	router, err := rpc.BuildRouter(log,
		rpc.HealthcheckGroup(),
		rpc.VillageCodeGroup(villageCodeService),
	)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("build rpc router: %w", err)
	}

	engine, err := routes.Register(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Router:   router,
		Database: pool,
		Cache:    redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			VillageCodes: villageCodeService,
		},
	})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("register routes: %w", err)
	}

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		tracer: tracer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			_ = a.tracer.Shutdown(context.Background())
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting village admin",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
