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

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	httpadp "finagent/internal/adapter/http"
	"finagent/internal/adapter/middleware"
	"finagent/internal/adapter/repository/mysql"
	"finagent/internal/config"
	"finagent/internal/infrastructure/cache"
	"finagent/internal/infrastructure/db"
	"finagent/internal/infrastructure/jwtauth"
	"finagent/internal/infrastructure/logger"
	"finagent/internal/usecase/account"
	"finagent/internal/usecase/approval"
	"finagent/internal/usecase/assistant"
	"finagent/internal/usecase/loan"
	"finagent/pkg/metrics"
)

func main() {
	config.LoadDotenv()
	cfg := config.LoadServer()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(logger.Config{Level: cfg.LogLevel, Console: true, JSON: cfg.LogJSON})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	gdb, err := db.Open(cfg.DBDriver, cfg.DSN(), zl)
	if err != nil {
		zl.Fatal("db open", zap.Error(err))
	}
	if err := gdb.AutoMigrate(mysql.Models()...); err != nil {
		zl.Fatal("db migrate", zap.Error(err))
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		zl.Fatal("db handle", zap.Error(err))
	}
	defer sqlDB.Close()

	checks := map[string]httpadp.Pinger{"db": sqlDB.PingContext}

	var deps httpadp.Deps
	if cfg.RedisAddr != "" {
		rdb, err := cache.OpenRedis(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			zl.Fatal("redis open", zap.Error(err))
		}
		defer rdb.Close()
		deps.Redis = rdb
		deps.IdempTTL = time.Duration(cfg.IdempTTLSecs) * time.Second
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		zl.Warn("REDIS_ADDR not set, chat idempotency disabled")
	}

	m := metrics.NewCollector()
	issuer := jwtauth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	users := mysql.NewUserRepository(gdb)
	approvals := approval.NewUsecase(mysql.NewUnitOfWork(gdb))

	deps.Accounts = account.NewUsecase(users, issuer, account.WithLogger(logger.Module(zl, "account")))
	deps.Loans = loan.NewUsecase(mysql.NewLoanRepository(gdb))
	deps.Approvals = approvals
	deps.Assistant = assistant.NewService(users, approvals,
		assistant.WithLogger(logger.Module(zl, "assistant")),
		assistant.WithMetrics(m),
		assistant.WithSessionTTL(cfg.ChatSessionTTL),
	)
	deps.Tokens = issuer
	deps.Metrics = m
	deps.Checks = checks
	deps.Logger = logger.Module(zl, "http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover(), echomw.RequestID(), middleware.RequestLog(deps.Logger, m))
	httpadp.Register(e, deps)

	addr := ":" + cfg.AppPort
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("db", cfg.DBDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
	zl.Info("stopped")
}
