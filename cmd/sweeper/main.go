// Cancels reservations whose payment window expired. Run from cron.
package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"charzing/internal/config"
	"charzing/internal/database"
	"charzing/internal/modules/reservation"
	"charzing/internal/queue"
	"charzing/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}

	events := queue.NewPublisher(cfg.RabbitURL, logger)
	defer events.Close()

	svc := reservation.NewService(
		repository.NewReservationRepository(db),
		repository.NewUserRepository(db),
		events,
		logger.Sugar().Infof,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	swept, err := svc.SweepStaleUnpaid(ctx, cfg.SweepMaxAge)
	if err != nil {
		logger.Fatal("sweep failed", zap.Error(err))
	}
	logger.Info("sweep completed",
		zap.Int("cancelled", swept),
		zap.Duration("max_age", cfg.SweepMaxAge))
}
