package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	Topic = "admin-notifications"

	EventOrderPlaced    = "order_placed"
	EventReviewReceived = "review_received"
	EventContactMessage = "contact_message"
)

// messageWriter is the slice of kafka.Writer the notifier needs; tests plug
// in a recording fake.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaNotifier publishes one message per admin recipient, keyed by the
// recipient id so one admin's notifications stay ordered. A failed recipient
// is logged and skipped; the remaining recipients still get theirs.
type KafkaNotifier struct {
	writer  messageWriter
	admins  []int64
	logger  *zap.Logger
	timeout time.Duration
}

func NewKafkaNotifier(brokers []string, admins []int64, logger *zap.Logger) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaNotifier{writer: w, admins: admins, logger: logger, timeout: 5 * time.Second}
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	if closer, ok := n.writer.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

type envelope struct {
	EventID     string `json:"event_id"`
	EventType   string `json:"event_type"`
	RecipientID int64  `json:"recipient_id"`
	Payload     any    `json:"payload"`
}

func (n *KafkaNotifier) OrderPlaced(ctx context.Context, summary OrderSummary) {
	n.fanOut(ctx, EventOrderPlaced, summary)
}

func (n *KafkaNotifier) ReviewReceived(ctx context.Context, summary ReviewSummary) {
	n.fanOut(ctx, EventReviewReceived, summary)
}

func (n *KafkaNotifier) ContactMessage(ctx context.Context, summary ContactSummary) {
	n.fanOut(ctx, EventContactMessage, summary)
}

func (n *KafkaNotifier) fanOut(ctx context.Context, eventType string, payload any) {
	if len(n.admins) == 0 {
		n.logger.Debug("no admin recipients configured, skipping notification",
			zap.String("event_type", eventType))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	for _, adminID := range n.admins {
		body, err := json.Marshal(envelope{
			EventID:     uuid.New().String(),
			EventType:   eventType,
			RecipientID: adminID,
			Payload:     payload,
		})
		if err != nil {
			n.logger.Error("failed to marshal notification",
				zap.String("event_type", eventType), zap.Error(err))
			return
		}

		msg := kafka.Message{
			Key:   []byte(strconv.FormatInt(adminID, 10)),
			Value: body,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(eventType)},
			},
		}

		if err := n.writer.WriteMessages(ctx, msg); err != nil {
			n.logger.Warn("failed to notify admin",
				zap.Int64("admin_id", adminID),
				zap.String("event_type", eventType),
				zap.Error(err))
			continue
		}
	}
}
