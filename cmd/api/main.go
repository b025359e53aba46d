package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/akann/events-booking/internal/api/router"
	"github.com/akann/events-booking/internal/application"
	"github.com/akann/events-booking/internal/config"
	"github.com/akann/events-booking/internal/domain/event"
	"github.com/akann/events-booking/internal/infrastructure/postgres"
	redisinfra "github.com/akann/events-booking/internal/infrastructure/redis"
	"github.com/akann/events-booking/internal/pkg/clock"
	"github.com/akann/events-booking/internal/pkg/logger"
	"github.com/akann/events-booking/internal/pkg/metrics"
)

func main() {
	if err := run(); err != nil {
		logger.Error("起動に失敗しました", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	logger.Init(cfg.Env)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("設定が不正です: %w", err)
	}

	m := metrics.Init()
	clk := clock.NewSystem()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, closeStore, redisClient, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	seatOpts := []application.SeatServiceOption{
		application.WithClock(clk),
		application.WithMetrics(m),
		application.WithHoldPolicy(event.HoldPolicy{
			TTL:             cfg.Reservation.HoldTTL,
			MaxHoldsPerUser: cfg.Reservation.MaxHoldsPerUser,
		}),
		application.WithRetryPolicy(application.RetryPolicy{
			MaxAttempts: cfg.Reservation.MaxAttempts,
			BaseDelay:   cfg.Reservation.RetryBaseDelay,
			MaxDelay:    cfg.Reservation.RetryMaxDelay,
		}),
	}
	if cfg.Reservation.UseLock && redisClient != nil {
		locker := redisinfra.NewEventLocker(redisinfra.NewLockManager(redisClient), redisinfra.EventLockOptions{
			TTL:        cfg.Reservation.LockTTL,
			MaxRetries: cfg.Reservation.LockRetries,
			RetryDelay: cfg.Reservation.LockRetryDelay,
		}, m)
		seatOpts = append(seatOpts, application.WithLocker(locker))
		logger.Info("イベント単位の分散ロックを有効化しました")
	}

	e := router.New(router.Deps{
		Events:         application.NewEventService(store, clk, m),
		Seats:          application.NewSeatService(store, seatOpts...),
		Store:          store,
		RequestTimeout: cfg.Server.RequestTimeout,
		Metrics:        m,
		MetricsAuth:    cfg.Metrics,
	})
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		logger.Info("サーバーを起動します",
			zap.String("port", cfg.Server.Port),
			zap.String("store", cfg.Store.Driver),
		)
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("サーバー起動エラー: %w", err)
		}
		return nil
	})
	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("サーバーをシャットダウンしています...")

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancelShutdown()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("サーバーシャットダウンエラー: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("サーバーが正常にシャットダウンしました")
	return nil
}

// openStore は設定に応じたイベントストアを開く
// Redis ストアの場合は分散ロック用にクライアントも返す
func openStore(ctx context.Context, cfg *config.Config) (event.Repository, func(), *goredis.Client, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := postgres.NewConnection(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := postgres.RunMigrations(db.DB, cfg.Store.MigrationsPath); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return postgres.NewEventStore(db), closer(db), nil, nil
	default:
		client, err := redisinfra.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		return redisinfra.NewEventStore(client), func() { client.Close() }, client, nil
	}
}

func closer(db *sqlx.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Warn("データベース切断エラー", zap.Error(err))
		}
	}
}
