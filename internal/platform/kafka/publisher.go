package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"shoplink-backend/internal/events"
)

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes domain events to a Kafka topic, keyed by external ID so
// every event of one sender lands on the same partition.
type Publisher struct {
	w messageWriter
}

// NewPublisher returns a synchronous publisher for topic on brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		BatchTimeout:           20 * time.Millisecond,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{w: w}
}

func (p *Publisher) PublishUserSignup(ctx context.Context, ev events.UserSignup) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Event, err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.ExternalID),
		Value: payload,
		Time:  ev.TS,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte("UserSignup")},
			{Key: "version", Value: []byte(strconv.Itoa(ev.Version))},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s: %w", ev.Event, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.w.Close()
}

var _ events.Publisher = (*Publisher)(nil)
