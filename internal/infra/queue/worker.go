package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/leadsync/internal/infra/integration/httpclient"
)

// SyncRunner executes one sync request. Runs are serialized by the worker.
type SyncRunner interface {
	RunSync(ctx context.Context, req SyncRequest) error
}

// Consumer is the part of *amqp.Channel the worker needs.
type Consumer interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type Worker struct {
	Channel Consumer
	Runner  SyncRunner
	Logger  *zap.Logger
}

func NewWorker(ch Consumer, runner SyncRunner, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{Channel: ch, Runner: runner, Logger: logger}
}

// Start consumes queueName one message at a time until ctx is done or the
// delivery channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	if err := w.Channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("queue: set qos: %w", err)
	}

	msgs, err := w.Channel.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue: register consumer: %w", err)
	}

	w.Logger.Info("👷 sync worker waiting for requests", zap.String("queue", queueName))
	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("sync worker stopped")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("queue: delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var req SyncRequest
	if err := json.Unmarshal(d.Body, &req); err != nil || req.CampaignID == "" {
		w.Logger.Error("❌ invalid sync request, dead-lettering", zap.Error(err), zap.ByteString("body", d.Body))
		d.Nack(false, false)
		return
	}

	log := w.Logger.With(zap.String("run_id", req.RunID), zap.String("campaign_id", req.CampaignID))
	log.Info("📥 sync request received", zap.String("origin", req.Origin))

	if err := w.Runner.RunSync(ctx, req); err != nil {
		requeue := retryable(err) && !d.Redelivered
		log.Error("❌ sync run failed", zap.Error(err), zap.Bool("requeue", requeue))
		d.Nack(false, requeue)
		return
	}

	log.Info("✅ sync run finished")
	d.Ack(false)
}

// retryable reports whether a later redelivery could succeed. Credential and
// identifier errors go straight to the dead letter queue.
func retryable(err error) bool {
	return errors.Is(err, httpclient.ErrTransient) || errors.Is(err, httpclient.ErrRateLimited)
}
