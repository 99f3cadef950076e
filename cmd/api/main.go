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

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	httpadp "credit-ledger/internal/adapter/http"
	"credit-ledger/internal/adapter/notify"
	"credit-ledger/internal/adapter/repository/gormdb"
	"credit-ledger/internal/config"
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/domain/notification"
	"credit-ledger/internal/infrastructure/cache"
	"credit-ledger/internal/infrastructure/db"
	"credit-ledger/internal/infrastructure/lock"
	"credit-ledger/internal/infrastructure/metrics"
	loanuc "credit-ledger/internal/usecase/loan"
	"credit-ledger/internal/usecase/monitor"
	"credit-ledger/internal/usecase/workflow"
	"credit-ledger/pkg/logger"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.OpenGorm(cfg.DBDriver, cfg.DSN(), cfg.DBLogLevel)
	if err != nil {
		zl.Fatal("open database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	if err := db.Migrate(gdb); err != nil {
		zl.Fatal("migrate", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			zl.Fatal("open redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
	}

	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.LockBackend == "redis" {
		locker = lock.NewRedis(rdb, lock.DefaultRedisOptions(), zl)
	}

	m := metrics.New()

	var notifier notification.Notifier = notify.NewLog(zl)
	if cfg.Notifier == "email" {
		notifier = notify.NewEmail(notify.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.NotifyFrom,
			Domain:   cfg.NotifyEmailDomain,
		})
	}
	sender := notify.NewBestEffort(notifier, cfg.NotifyTimeout, zl, m)

	calc := loan.NewCalculator(time.Now, zl)
	repo := gormdb.NewLoanRepository(gdb)
	loans := loanuc.NewUsecase(repo, locker, calc, zl, m)
	co := workflow.NewCoordinator(workflow.Config{
		Admins:          cfg.Admins,
		AnnounceChannel: cfg.AnnounceChannelID,
		Retention:       cfg.RequestRetention,
	}, loans, sender, time.Now, zl, m)
	go co.RunSweeper(ctx, cfg.MonitorInterval)

	mon := monitor.New(repo, calc, sender, cfg.Admins.IDs(), cfg.MonitorInterval, zl, m)
	go mon.Run(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogMethod:   true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				zl.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			zl.Info("request", fields...)
			return nil
		},
	}))

	deps := httpadp.Deps{
		Loans:     loans,
		Workflow:  co,
		Admins:    cfg.Admins,
		Metrics:   m.Handler(),
		IdempTTL:  time.Duration(cfg.IdempTTLSecs) * time.Second,
		JWTSecret: cfg.JWTSecret,
		Log:       zl,
	}
	if rdb != nil {
		deps.Redis = rdb
	}
	httpadp.Register(e, deps)

	go func() {
		addr := ":" + cfg.AppPort
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.AppEnv))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
}
