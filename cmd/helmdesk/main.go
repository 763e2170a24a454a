package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/helmdesk/helmdesk/internal/app"
	"github.com/helmdesk/helmdesk/internal/auth"
	"github.com/helmdesk/helmdesk/internal/menus"
	"github.com/helmdesk/helmdesk/internal/observability"
	"github.com/helmdesk/helmdesk/internal/packages"
	"github.com/helmdesk/helmdesk/internal/platform/cache"
	"github.com/helmdesk/helmdesk/internal/platform/db"
	"github.com/helmdesk/helmdesk/internal/platform/storage"
	"github.com/helmdesk/helmdesk/internal/rbac"
	"github.com/helmdesk/helmdesk/internal/roles"
	"github.com/helmdesk/helmdesk/internal/session"
	"github.com/helmdesk/helmdesk/internal/shared"
	"github.com/helmdesk/helmdesk/internal/upload"
	"github.com/helmdesk/helmdesk/internal/users"
	"github.com/helmdesk/helmdesk/internal/workflows"
	"github.com/helmdesk/helmdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("helmdesk", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.PGMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
	}

	var lockout auth.Lockout = auth.NopLockout{}
	var jobHandler *jobs.Handler
	if cfg.RedisAddr != "" {
		redisClient, err := cache.New(ctx, cfg.RedisAddr, 0)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		lockout = auth.NewRedisLockout(redisClient, cfg.LoginMaxFailures, cfg.LoginLockout)

		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		logger.Warn("REDIS_ADDR not set, login lockout disabled")
		jobHandler = jobs.NewHandler(nil, logger)
	}

	objects, err := storage.NewS3(ctx, storage.Options{
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		PublicBaseURL: cfg.S3PublicBaseURL,
	})
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	hasher := auth.NewHasher(cfg.BcryptCost)

	sessions := session.NewStore(session.NewRepository(pool),
		session.WithLifetime(cfg.SessionTTL),
		session.WithTimeout(cfg.StoreTimeout),
		session.WithLogger(logger),
	)
	resolver := rbac.NewResolver(rbac.NewRepository(pool), cfg.StoreTimeout)
	gateway := rbac.NewGateway(sessions, resolver, logger, metrics)

	authService := auth.NewService(auth.Deps{
		Repo:     auth.NewRepository(pool),
		Sessions: sessions,
		Roles:    resolver,
		Hasher:   hasher,
		Lockout:  lockout,
		Audit:    auditLogger,
		Logger:   logger,
		Metrics:  metrics,
		Timeout:  cfg.StoreTimeout,
	})
	usersService := users.NewService(users.NewRepository(pool), hasher, auditLogger, logger, cfg.SeedAdminID, cfg.StoreTimeout)
	menusService := menus.NewService(menus.NewRepository(pool), cfg.StoreTimeout)
	packagesService := packages.NewService(packages.NewRepository(pool), objects, logger, cfg.StoreTimeout)
	workflowsService := workflows.NewService(workflows.NewRepository(pool), objects, logger, cfg.StoreTimeout)
	gatekeeper := upload.NewGatekeeper(gateway, objects, auditLogger, logger, metrics, cfg.StorageTimeout)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthHandler:      auth.NewHandler(logger, authService, gateway),
		UsersHandler:     users.NewHandler(logger, usersService, gateway),
		RolesHandler:     roles.NewHandler(logger, resolver, gateway),
		MenusHandler:     menus.NewHandler(logger, menusService, gateway),
		PackagesHandler:  packages.NewHandler(logger, packagesService, gateway),
		WorkflowsHandler: workflows.NewHandler(logger, workflowsService, gateway),
		UploadHandler:    upload.NewHandler(logger, gatekeeper),
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.AppReadTimeout,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
