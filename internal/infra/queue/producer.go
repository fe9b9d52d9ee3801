package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// SyncRequest asks the worker to run the sync pipeline for one campaign.
type SyncRequest struct {
	RunID          string    `json:"run_id"`
	CampaignID     string    `json:"campaign_id"`
	CampaignName   string    `json:"campaign_name,omitempty"`
	CampaignStatus string    `json:"campaign_status,omitempty"`
	ForceFull      bool      `json:"force_full"`
	FetchDetails   bool      `json:"fetch_details"`
	PushCRM        bool      `json:"push_crm"`
	Origin         string    `json:"origin"`
	RequestedAt    time.Time `json:"requested_at"`
}

// CampaignSyncedEvent is published once a pipeline run finishes.
type CampaignSyncedEvent struct {
	RunID        string    `json:"run_id"`
	CampaignID   string    `json:"campaign_id"`
	Mode         string    `json:"mode"`
	Inserted     int       `json:"inserted"`
	Ignored      int       `json:"ignored"`
	Rejected     int       `json:"rejected"`
	CRMSucceeded int       `json:"crm_succeeded"`
	CRMFailed    int       `json:"crm_failed"`
	Error        string    `json:"error,omitempty"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Publisher is the part of *amqp.Channel the producer needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQProducer struct {
	Ch Publisher
}

func NewProducer(ch Publisher) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch}
}

// PublishSyncRequest enqueues req and returns it with its run id and
// request time filled in.
func (p *RabbitMQProducer) PublishSyncRequest(ctx context.Context, req SyncRequest) (SyncRequest, error) {
	if req.CampaignID == "" {
		return req, fmt.Errorf("queue: sync request without campaign id")
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	return req, p.publish(ctx, SyncRoutingKey, req.RunID, req)
}

func (p *RabbitMQProducer) PublishCampaignSynced(ctx context.Context, event CampaignSyncedEvent) error {
	return p.publish(ctx, SyncedRoutingKey, event.RunID, event)
}

func (p *RabbitMQProducer) publish(ctx context.Context, key, messageID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("queue: encode payload: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		key,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("queue: publish %s: %w", key, err)
	}
	return nil
}
