package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/omaguva-store/payments-service/internal/config"
	"github.com/omaguva-store/payments-service/internal/logging"
	"github.com/omaguva-store/payments-service/internal/models"
)

// Ensure KafkaPublisher implements LedgerEventPublisher
var _ LedgerEventPublisher = (*KafkaPublisher)(nil)

// EventType represents the type of payment event.
type EventType string

const (
	EventTypePaymentVerified EventType = "payment.verified"
	EventTypePaymentFailed   EventType = "payment.failed"
	EventTypePaymentPending  EventType = "payment.pending"
	EventTypePaymentWebhook  EventType = "payment.webhook"
)

// PaymentEvent is a payment-related event on the ledger topic.
type PaymentEvent struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	OrderID       string          `json:"order_id"`
	Gateway       models.Gateway  `json:"gateway"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// LedgerEventPublisher publishes payment events for downstream
// consumers (ledger sync, analytics).
type LedgerEventPublisher interface {
	PublishVerified(ctx context.Context, details *models.PaymentDetails) error
	PublishFailed(ctx context.Context, orderID string, gateway models.Gateway, reason string) error
	PublishWebhook(ctx context.Context, payload *models.WebhookPayload) error
	Close() error
}

// KafkaPublisher publishes payment events to Kafka.
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
	logger *logging.Logger
}

// NewKafkaPublisher creates a new Kafka-based event publisher.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *logging.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.LedgerTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaPublisher{
		writer: writer,
		topic:  cfg.LedgerTopic,
		logger: logger,
	}
}

// PublishVerified publishes a successful verification outcome.
func (p *KafkaPublisher) PublishVerified(ctx context.Context, details *models.PaymentDetails) error {
	p.logger.Debug("Publishing payment verified event", logging.Fields{
		"order_id": details.OrderID,
		"gateway":  details.Gateway,
	})

	data, err := json.Marshal(details)
	if err != nil {
		return err
	}

	event := p.createEvent(ctx, EventTypePaymentVerified, details.OrderID, details.Gateway, data)
	event.TransactionID = details.TransactionID
	return p.publish(ctx, event)
}

// PublishFailed publishes a failed verification outcome.
func (p *KafkaPublisher) PublishFailed(ctx context.Context, orderID string, gateway models.Gateway, reason string) error {
	p.logger.Debug("Publishing payment failed event", logging.Fields{
		"order_id": orderID,
		"gateway":  gateway,
		"reason":   reason,
	})

	payload := struct {
		Reason string `json:"reason"`
	}{Reason: reason}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := p.createEvent(ctx, EventTypePaymentFailed, orderID, gateway, data)
	return p.publish(ctx, event)
}

// PublishWebhook re-publishes a gateway webhook for downstream
// consumers after the ledger write.
func (p *KafkaPublisher) PublishWebhook(ctx context.Context, payload *models.WebhookPayload) error {
	p.logger.Debug("Publishing payment webhook event", logging.Fields{
		"order_id": payload.OrderID,
		"gateway":  payload.Gateway,
		"status":   payload.Status,
	})

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := p.createEvent(ctx, EventTypePaymentWebhook, payload.OrderID, payload.Gateway, data)
	event.TransactionID = payload.TransactionID
	return p.publish(ctx, event)
}

func (p *KafkaPublisher) createEvent(ctx context.Context, eventType EventType, orderID string, gateway models.Gateway, data []byte) *PaymentEvent {
	event := &PaymentEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		OrderID:   orderID,
		Gateway:   gateway,
		Data:      data,
		Timestamp: time.Now(),
	}

	// Add correlation ID from context
	if requestID := ctx.Value(logging.RequestIDKey); requestID != nil {
		event.CorrelationID = requestID.(string)
	}

	return event
}

func (p *KafkaPublisher) publish(ctx context.Context, event *PaymentEvent) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: eventData,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event", logging.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"order_id":   event.OrderID,
			"error":      err.Error(),
		})
		return err
	}

	p.logger.Info("Event published", logging.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"order_id":   event.OrderID,
	})

	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info("Closing Kafka publisher")
	return p.writer.Close()
}

// MockPublisher records published events in memory for tests.
type MockPublisher struct {
	mu     sync.Mutex
	Events []PaymentEvent
}

func (m *MockPublisher) record(event PaymentEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

func (m *MockPublisher) PublishVerified(ctx context.Context, details *models.PaymentDetails) error {
	m.record(PaymentEvent{Type: EventTypePaymentVerified, OrderID: details.OrderID, Gateway: details.Gateway, TransactionID: details.TransactionID})
	return nil
}

func (m *MockPublisher) PublishFailed(ctx context.Context, orderID string, gateway models.Gateway, reason string) error {
	m.record(PaymentEvent{Type: EventTypePaymentFailed, OrderID: orderID, Gateway: gateway})
	return nil
}

func (m *MockPublisher) PublishWebhook(ctx context.Context, payload *models.WebhookPayload) error {
	m.record(PaymentEvent{Type: EventTypePaymentWebhook, OrderID: payload.OrderID, Gateway: payload.Gateway, TransactionID: payload.TransactionID})
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// Published returns a copy of the recorded events.
func (m *MockPublisher) Published() []PaymentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PaymentEvent, len(m.Events))
	copy(out, m.Events)
	return out
}
