package events

import (
	"context"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	domain "github.com/bryanwahyu/linkedin-analyzer/internal/domain/analyst"
)

type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher sends analysis notifications to a topic exchange.
type RabbitPublisher struct {
	conn     *amqp.Connection
	exchange string
	channel  func() (amqpChannel, error)
	now      func() time.Time
}

// DialRabbit connects to url and declares the durable topic exchange.
func DialRabbit(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	p := &RabbitPublisher{conn: conn, exchange: exchange, now: time.Now}
	p.channel = func() (amqpChannel, error) { return conn.Channel() }
	return p, nil
}

// PublishAnalysis opens a short-lived channel per message; channels are not
// safe to share across request goroutines.
func (p *RabbitPublisher) PublishAnalysis(ctx context.Context, a *domain.Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := encode(a, p.now())
	if err != nil {
		return err
	}

	ch, err := p.channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer ch.Close()

	return ch.Publish(
		p.exchange,
		routingKey(a),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    string(a.ID),
			Type:         EventAnalysisFinished,
			Timestamp:    p.now(),
			Body:         body,
		},
	)
}

func (p *RabbitPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

var _ domain.Publisher = (*RabbitPublisher)(nil)
