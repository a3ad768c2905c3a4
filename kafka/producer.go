package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// ProducerAPI is the minimal publishing interface services depend on.
type ProducerAPI interface {
	Publish(topic string, payload []byte) error
}

// Producer wraps a kafka-go writer shared across topics.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a Producer for the given brokers.
func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Publish writes one message to the topic.
func (p *Producer) Publish(topic string, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Value: payload,
	})
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
