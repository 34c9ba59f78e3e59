package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/omaguva-store/payments-service/internal/config"
	"github.com/omaguva-store/payments-service/internal/logging"
	"github.com/omaguva-store/payments-service/internal/models"
)

// WebhookApplier applies a gateway webhook to the order ledger.
type WebhookApplier interface {
	ApplyWebhook(ctx context.Context, payload *models.WebhookPayload) error
}

// KafkaConsumer consumes gateway webhook events from Kafka and applies
// them to the ledger. Gateways that cannot call our HTTP webhook
// endpoint directly deliver through this topic instead.
type KafkaConsumer struct {
	reader  *kafka.Reader
	applier WebhookApplier
	logger  *logging.Logger
	stopCh  chan struct{}
}

// NewKafkaConsumer creates a new Kafka-based webhook consumer.
func NewKafkaConsumer(cfg config.KafkaConfig, applier WebhookApplier, logger *logging.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.WebhooksTopic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})

	return &KafkaConsumer{
		reader:  reader,
		applier: applier,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Start begins consuming events.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.logger.Info("Kafka consumer stopped")
			return nil
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// Stop closes the reader under a blocked read; that
				// error is a clean exit, not a failure.
				select {
				case <-c.stopCh:
					c.logger.Info("Kafka consumer stopped")
					return nil
				default:
				}
				c.logger.Error("Failed to read message", logging.Fields{"error": err.Error()})
				continue
			}

			c.handleMessage(ctx, msg)
		}
	}
}

// Stop stops the consumer.
func (c *KafkaConsumer) Stop() {
	close(c.stopCh)
	c.reader.Close()
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	c.logger.Debug("Received message", logging.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	var event PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("Failed to unmarshal event", logging.Fields{"error": err.Error()})
		return
	}

	switch event.Type {
	case EventTypePaymentWebhook:
		c.handleWebhook(ctx, &event)
	default:
		c.logger.Debug("Ignoring unknown event type", logging.Fields{"type": event.Type})
	}
}

func (c *KafkaConsumer) handleWebhook(ctx context.Context, event *PaymentEvent) {
	var payload models.WebhookPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		c.logger.Error("Failed to unmarshal webhook payload", logging.Fields{
			"event_id": event.ID,
			"error":    err.Error(),
		})
		return
	}

	if err := c.applier.ApplyWebhook(ctx, &payload); err != nil {
		c.logger.Error("Failed to apply webhook", logging.Fields{
			"event_id": event.ID,
			"order_id": payload.OrderID,
			"error":    err.Error(),
		})
		return
	}

	c.logger.Info("Webhook applied", logging.Fields{
		"event_id": event.ID,
		"order_id": payload.OrderID,
		"status":   payload.Status,
	})
}
