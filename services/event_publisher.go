package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kendall-kelly/stitchwise-api/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrPublishNacked is returned when the broker refuses to take an event
var ErrPublishNacked = errors.New("broker did not acknowledge the event")

// EventPublisher delivers outbox events to the message broker
type EventPublisher interface {
	Publish(ctx context.Context, event models.OutboxEvent) error
	Close() error
}

// brokerSession is an open broker channel in confirm mode
type brokerSession interface {
	// PublishConfirmed sends msg and blocks until the broker acks or nacks it
	PublishConfirmed(ctx context.Context, exchange, key string, msg amqp.Publishing) (bool, error)
	Closed() bool
	Close() error
}

// RabbitMQPublisher publishes events to a durable topic exchange.
// The event type is used as routing key. Publish returns only after the broker
// confirmed the message, and a dropped connection is redialed on the next call.
type RabbitMQPublisher struct {
	dial     func() (brokerSession, error)
	exchange string
	logger   *slog.Logger

	mu      sync.Mutex
	session brokerSession
}

// NewRabbitMQPublisher connects to url and declares the exchange
func NewRabbitMQPublisher(url, exchange string, logger *slog.Logger) (*RabbitMQPublisher, error) {
	p := newRabbitMQPublisher(func() (brokerSession, error) {
		return dialAMQPSession(url, exchange)
	}, exchange, logger)

	session, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.session = session
	return p, nil
}

func newRabbitMQPublisher(dial func() (brokerSession, error), exchange string, logger *slog.Logger) *RabbitMQPublisher {
	return &RabbitMQPublisher{dial: dial, exchange: exchange, logger: logger}
}

// Publish sends one event as a persistent JSON message and waits for the broker ack
func (p *RabbitMQPublisher) Publish(ctx context.Context, event models.OutboxEvent) error {
	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()

	session, err := p.currentSession()
	if err != nil {
		return err
	}

	acked, err := session.PublishConfirmed(ctx, p.exchange, event.Type, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.EventID,
		Type:         event.Type,
		Timestamp:    event.CreatedAt,
		Body:         []byte(event.Payload),
	})
	if err != nil {
		// The channel state is unknown after a failed publish
		p.dropSession()
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	if !acked {
		return fmt.Errorf("failed to publish %s: %w", event.Type, ErrPublishNacked)
	}
	return nil
}

// currentSession returns the open session, dialing a new one when the last was closed
func (p *RabbitMQPublisher) currentSession() (brokerSession, error) {
	if p.session != nil && !p.session.Closed() {
		return p.session, nil
	}
	if p.session != nil {
		p.logger.Warn("broker channel closed, reconnecting", "exchange", p.exchange)
		p.dropSession()
	}

	session, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.session = session
	return session, nil
}

func (p *RabbitMQPublisher) dropSession() {
	if p.session == nil {
		return
	}
	if err := p.session.Close(); err != nil {
		p.logger.Debug("failed to close broker session", "error", err)
	}
	p.session = nil
}

// Close closes the channel and the connection
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return nil
	}
	err := p.session.Close()
	p.session = nil
	return err
}

// amqpSession is a connection with one confirm-mode channel
type amqpSession struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  chan *amqp.Error
}

func dialAMQPSession(url, exchange string) (*amqpSession, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	if err := channel.Confirm(false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	return &amqpSession{
		conn:    conn,
		channel: channel,
		closed:  channel.NotifyClose(make(chan *amqp.Error, 1)),
	}, nil
}

func (s *amqpSession) PublishConfirmed(ctx context.Context, exchange, key string, msg amqp.Publishing) (bool, error) {
	confirm, err := s.channel.PublishWithDeferredConfirmWithContext(ctx,
		exchange,
		key,
		false, // mandatory
		false, // immediate
		msg,
	)
	if err != nil {
		return false, err
	}
	return confirm.WaitContext(ctx)
}

func (s *amqpSession) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return s.channel.IsClosed() || s.conn.IsClosed()
	}
}

func (s *amqpSession) Close() error {
	if !s.channel.IsClosed() {
		s.channel.Close()
	}
	if s.conn.IsClosed() {
		return nil
	}
	return s.conn.Close()
}
