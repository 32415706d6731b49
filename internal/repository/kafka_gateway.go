package repository

import (
	"context"
	"time"

	"ETFWatch/internal/domain/models"
	"ETFWatch/internal/domain/repository"
)

// publisher is the subset of pkg/kafka.Producer the gateway needs.
type publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaGateway implements Gateway by publishing notifications to a topic.
// Messages are keyed by pipeline so each pipeline keeps its order.
type KafkaGateway struct {
	producer publisher
	topic    string
	now      func() time.Time
}

// NewKafkaGateway creates Kafka gateway.
func NewKafkaGateway(producer publisher, topic string) repository.Gateway {
	return &KafkaGateway{producer: producer, topic: topic, now: time.Now}
}

type alertMessage struct {
	models.Notification
	SentAt time.Time `json:"sent_at"`
}

func (g *KafkaGateway) Send(ctx context.Context, n models.Notification) error {
	return g.producer.Publish(ctx, g.topic, []byte(n.Pipeline), alertMessage{
		Notification: n,
		SentAt:       g.now().UTC(),
	})
}

func (g *KafkaGateway) Close() error {
	if g.producer != nil {
		return g.producer.Close()
	}
	return nil
}
