// Package main запускает HTTP-сервер сервиса бронирования отеля.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/hotelbooking-system/internal/config"
	"github.com/mmeshcher/hotelbooking-system/internal/events"
	"github.com/mmeshcher/hotelbooking-system/internal/handler"
	"github.com/mmeshcher/hotelbooking-system/internal/lock"
	"github.com/mmeshcher/hotelbooking-system/internal/middleware"
	"github.com/mmeshcher/hotelbooking-system/internal/repository"
	"github.com/mmeshcher/hotelbooking-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		sugar.Warnw("cannot load .env file", "error", err.Error())
	}

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithHorizonMonths(cfg.BookingHorizonMonths),
		service.WithMaxStayNights(cfg.MaxStayNights),
		service.WithBcryptCost(cfg.BcryptCost),
	}

	if cfg.RedisAddress != "" {
		client, err := lock.NewRedisClient(context.Background(), cfg.RedisAddress)
		if err != nil {
			sugar.Fatalw("redis initialization error", "error", err.Error())
		}
		defer client.Close()

		opts = append(opts, service.WithLocker(lock.NewRedis(client)))
		sugar.Infow("using redis room locks", "addr", cfg.RedisAddress)
	}

	if cfg.AMQPURL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, logger)
		if err != nil {
			sugar.Fatalw("broker initialization error", "error", err.Error())
		}
		defer publisher.Close()

		opts = append(opts, service.WithPublisher(publisher))
		sugar.Infow("publishing order events", "queue", events.OrderEventsQueue)
	}

	svc := service.NewService(repo, opts...)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	if cfg.AuthSecret == "" {
		sugar.Warn("AUTH_SECRET is empty, tokens will not survive a restart")
	}

	h := handler.NewHandler(svc, logger, authMiddleware,
		handler.WithCORSOrigins(cfg.CORSAllowedOrigins),
		handler.WithReserveLimiter(middleware.NewRateLimiter(cfg.ReserveRateLimit, cfg.ReserveRateBurst)),
	)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting hotel booking server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
