package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"testhub/backend/internal/audit"
	auditrepo "testhub/backend/internal/audit/repository"
	"testhub/backend/internal/config"
	"testhub/backend/internal/db"
	filemodulerepo "testhub/backend/internal/filemodule/repository"
	filemoduleservice "testhub/backend/internal/filemodule/service"
	identityservice "testhub/backend/internal/identity/service"
	"testhub/backend/internal/logging"
	"testhub/backend/internal/permission"
	permissionrepo "testhub/backend/internal/permission/repository"
	"testhub/backend/internal/security"
	"testhub/backend/internal/server"
	"testhub/backend/internal/server/middleware"
	"testhub/backend/internal/session"
	userrepo "testhub/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := session.Connect(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("connect redis", zap.Error(err))
	}
	defer redisClient.Close()
	sessions := session.NewRedisStore(redisClient, cfg.RefreshTTL(), logger)

	accessKeys, err := security.LoadKeyPair(cfg.AccessPrivateKey, cfg.AccessPublicKey)
	if err != nil {
		logger.Fatal("load access keypair", zap.Error(err))
	}
	refreshKeys, err := security.LoadKeyPair(cfg.RefreshPrivateKey, cfg.RefreshPublicKey)
	if err != nil {
		logger.Fatal("load refresh keypair", zap.Error(err))
	}
	tokens := security.NewTokenProvider(accessKeys, refreshKeys, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())

	hasher := security.NewHasher(security.HashParams{
		Memory:      cfg.Argon2Memory,
		Iterations:  cfg.Argon2Iterations,
		Parallelism: cfg.Argon2Parallelism,
	})

	auditRepo := auditrepo.NewPostgresRepository(conn)
	auditor := audit.NewLogger(auditRepo, middleware.GetClientIP, logger)

	authSvc, err := identityservice.NewAuthService(
		userrepo.NewPostgresRepository(conn),
		sessions,
		hasher,
		tokens,
		auditor,
		cfg.DefaultRoleID,
		cfg.DefaultProjectID,
	)
	if err != nil {
		logger.Fatal("auth service", zap.Error(err))
	}

	permRepo := permissionrepo.NewPostgresRepository(conn)

	handler := server.NewRouter(server.Deps{
		Auth:           authSvc,
		Modules:        filemoduleservice.NewService(filemodulerepo.NewPostgresRepository(conn)),
		PermissionRepo: permRepo,
		Checker:        permission.NewChecker(permRepo),
		Tokens:         tokens,
		Sessions:       sessions,
		Auditor:        auditor,
		AuditRepo:      auditRepo,
		Registry:       prometheus.NewRegistry(),
		RequestTimeout: cfg.Timeout(),
		Log:            logger,
		HealthPinger:   conn,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("http server stopped")
}
