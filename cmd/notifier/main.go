// Consumes reservation events from RabbitMQ and texts customers via SENS.
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"charzing/internal/config"
	"charzing/internal/queue"
	"charzing/internal/sms"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.RabbitURL == "" {
		log.Fatal("RABBITMQ_URL is required for the notifier")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	sender := sms.NewClient(cfg.SensAccessKey, cfg.SensSecretKey, cfg.SensServiceID, cfg.SensFromNumber, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler := func(ctx context.Context, event queue.Event) error {
		text := messageFor(event)
		if text == "" || event.Phone == "" {
			logger.Debug("event skipped",
				zap.String("kind", event.Kind),
				zap.String("reservation_id", event.ReservationID))
			return nil
		}
		if err := sender.Send(ctx, event.Phone, text); err != nil {
			logger.Error("sms send failed",
				zap.String("kind", event.Kind),
				zap.String("reservation_id", event.ReservationID),
				zap.Error(err))
			return err
		}
		return nil
	}

	logger.Info("notifier started", zap.String("queue", queue.ReservationQueueName))
	if err := queue.Consume(ctx, cfg.RabbitURL, handler, logger); err != nil && ctx.Err() == nil {
		logger.Fatal("consumer stopped", zap.Error(err))
	}
}

func messageFor(event queue.Event) string {
	switch event.Kind {
	case queue.KindReservationCreated:
		return "[차징] 배터리 진단 예약이 접수되었습니다. 결제를 완료하시면 예약이 확정됩니다."
	case queue.KindReservationPaid:
		return fmt.Sprintf("[차징] 결제가 완료되었습니다. (결제금액 %s원) 진단 기사 배정 후 다시 안내드리겠습니다.", formatKRW(event.Amount))
	case queue.KindReservationCancelled:
		return "[차징] 예약이 취소되었습니다. 결제하신 금액은 영업일 기준 3~5일 내 환불됩니다."
	}
	return ""
}

// formatKRW puts thousands separators into a won amount.
func formatKRW(amount int64) string {
	s := fmt.Sprintf("%d", amount)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return string(out)
}
