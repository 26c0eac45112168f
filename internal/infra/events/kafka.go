package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	domain "github.com/bryanwahyu/linkedin-analyzer/internal/domain/analyst"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher sends analysis notifications to a Kafka topic, keyed by analysis id.
type KafkaPublisher struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafka(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w, now: time.Now}
}

func (p *KafkaPublisher) PublishAnalysis(ctx context.Context, a *domain.Analysis) error {
	body, err := encode(a, p.now())
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(a.ID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(EventAnalysisFinished)},
			{Key: "content-type", Value: []byte("application/json")},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka publish %s: %w", routingKey(a), err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ domain.Publisher = (*KafkaPublisher)(nil)
