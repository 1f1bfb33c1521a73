package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"roundsettle/internal/bootstrap"
	"roundsettle/internal/handlers/business"
	"roundsettle/internal/models"
	"roundsettle/pkg/config"

	"github.com/sirupsen/logrus"
)

// maxErrorCount bounds redeliveries of one round's message; the cron schedule keeps
// retrying from the progress row after that.
const maxErrorCount = 3

// failures tracks consecutive failures per round
type failures struct {
	mu     sync.Mutex
	counts map[uint64]int
}

func (f *failures) inc(roundID uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[roundID]++
	return f.counts[roundID]
}

func (f *failures) reset(roundID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.counts, roundID)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "post_finalize_worker", bootstrap.Options{Broker: true})
	if err != nil {
		logrus.Fatalf("> 初始化失败: %v", err)
	}
	defer app.Close()
	logger := app.Logger

	if app.AMQP == nil {
		logger.Fatal("RABBITMQ_HOST is not configured")
	}
	consumer, err := config.NewConsumer(app.AMQP, models.TopicPostFinalizeSetup, logger)
	if err != nil {
		logger.Fatal("Failed to create consumer: ", err)
	}
	defer consumer.Close()

	fails := &failures{counts: make(map[uint64]int)}
	logger.Info("Post-finalize worker started, waiting for messages...")

	err = consumer.Consume(ctx, func(ctx context.Context, body []byte) error {
		var msg models.PostFinalizeSetupPayload
		if err := json.Unmarshal(body, &msg); err != nil {
			// malformed messages are dropped, redelivery cannot fix them
			logger.Errorf("Failed to unmarshal message: %v", err)
			return nil
		}
		log := logger.WithField("round_id", msg.RoundID)

		p, err := app.PostFinalize.RunRound(ctx, msg.RoundID)
		if err == nil {
			fails.reset(msg.RoundID)
			log.WithField("completed", p.Completed).Info("> post-finalize setup done")
			return nil
		}

		var pre *business.PreconditionError
		if errors.As(err, &pre) {
			log.WithError(err).Warn("> round not eligible for setup, dropping message")
			return nil
		}
		if n := fails.inc(msg.RoundID); n >= maxErrorCount {
			fails.reset(msg.RoundID)
			log.WithError(err).Errorf("> 连续失败 %d 次，交给定时任务重试", n)
			return nil
		}
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("consumer stopped: %v", err)
	}
}
