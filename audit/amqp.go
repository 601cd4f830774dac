package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the topic exchange audit events are published to.
const DefaultExchange = "llmpipe.audit"

// AMQPSink publishes audit events as JSON to a RabbitMQ topic exchange, one
// routing key per phase ("llmpipe.audit.enter" and so on).
type AMQPSink struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// AMQPSinkOption configures an AMQPSink.
type AMQPSinkOption func(*AMQPSink)

// WithExchange overrides the exchange name.
func WithExchange(name string) AMQPSinkOption {
	return func(s *AMQPSink) {
		s.exchange = name
	}
}

// NewAMQPSink connects to the broker and declares the audit exchange.
func NewAMQPSink(connectionString string, opts ...AMQPSinkOption) (*AMQPSink, error) {
	sink := &AMQPSink{exchange: DefaultExchange}
	for _, opt := range opts {
		opt(sink)
	}

	conn, err := amqp.Dial(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		sink.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", sink.exchange, err)
	}

	sink.conn = conn
	sink.channel = channel
	return sink, nil
}

// Publish implements Sink.
func (s *AMQPSink) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		MessageId:    event.ID,
		Timestamp:    event.At,
		DeliveryMode: amqp.Persistent,
	}

	routingKey := fmt.Sprintf("%s.%s", s.exchange, event.Phase)

	// amqp channels are not safe for concurrent publishes.
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel.PublishWithContext(ctx, s.exchange, routingKey, false, false, msg)
}

// Close implements Sink.
func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			s.conn.Close()
			return err
		}
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
