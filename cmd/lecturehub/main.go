package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lecturehub/internal/auth"
	"lecturehub/internal/authz"
	"lecturehub/internal/config"
	"lecturehub/internal/db"
	"lecturehub/internal/documents"
	"lecturehub/internal/httpserver"
	"lecturehub/internal/lecturers"
	"lecturehub/internal/logging"
	"lecturehub/internal/reset"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogFormat, cfg.LogLevel)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("lecturehub stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	dbConn, err := db.Open(ctx, cfg.DBDSN, db.PoolConfig{MaxOpenConns: 20, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute})
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := db.RunMigrations(ctx, dbConn, cfg.SchemaPath); err != nil {
		return err
	}

	accountStore := auth.NewStore(dbConn)
	if cfg.UsersPath != "" {
		if err := accountStore.SeedFromFile(ctx, cfg.UsersPath); err != nil {
			return err
		}
	}

	rdb, err := db.OpenRedis(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer rdb.Close()

	policies, err := authz.LoadPolicies(cfg.PoliciesPath)
	if err != nil {
		return err
	}
	lecturerStore := lecturers.NewStore(dbConn)
	owners := authz.NewOwners(authz.Loaders{
		auth.KindAccount:             accountStore,
		lecturers.KindCourse:         lecturerStore,
		lecturers.KindLecturer:       lecturerStore,
		lecturers.KindSchedule:       lecturerStore,
		lecturers.KindEvaluation:     lecturerStore,
		lecturers.KindRecommendation: lecturerStore,
		lecturers.KindClass:          lecturerStore,
	})
	gate := authz.NewGate(authz.NewEngine(policies, owners), logger)

	authSvc := auth.NewService(accountStore, cfg.JWTSecret, cfg.TokenTTL)
	resetSvc := reset.NewService(rdb, accountStore, reset.LogNotifier{Logger: logger}, cfg.ResetTTL, cfg.ResetBaseURL)

	handler := httpserver.NewRouter(httpserver.RouterParams{
		Logger:      logger,
		Resolver:    auth.NewResolver(authSvc, accountStore),
		Gate:        gate,
		CORSOrigins: cfg.CORSOrigins,
		Production:  cfg.IsProduction(),
		Handlers: []httpserver.Mounter{
			auth.NewHandler(authSvc, accountStore, logger),
			reset.NewHandler(resetSvc, logger),
			lecturers.NewHandler(lecturerStore, logger),
			documents.NewHandler(documents.NewStore(dbConn), logger),
		},
	})

	if err := policies.Validate(gate.Actions()); err != nil {
		return err
	}
	for _, action := range policies.Undeclared(gate.Actions()) {
		logger.Warn("action has no declared policy, logged-in users allowed", "action", action)
	}

	server := httpserver.NewServer(httpserver.ServerConfig{
		Addr:            cfg.HTTPAddr,
		ReadTimeout:     cfg.HTTPReadTimeout,
		WriteTimeout:    cfg.HTTPWriteTimeout,
		IdleTimeout:     cfg.HTTPIdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, handler, logger)
	return server.Run(ctx)
}
