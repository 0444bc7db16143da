// Package events publishes domain events about saved portfolios.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// PortfolioSaved is emitted after a portfolio was written.
type PortfolioSaved struct {
	CorrelationID string  `json:"correlation_id"`
	InvestorID    int64   `json:"investor_id"`
	PortfolioID   int64   `json:"portfolio_id"`
	Name          string  `json:"name"`
	FundCount     int     `json:"fund_count"`
	Total         float64 `json:"total"`
	SavedAt       string  `json:"saved_at"`
}

// Publisher delivers events to interested consumers.
type Publisher interface {
	PublishPortfolioSaved(ctx context.Context, evt *PortfolioSaved) error
	Close() error
}

// NoopPublisher drops every event. It is used when no broker is configured.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (NoopPublisher) PublishPortfolioSaved(_ context.Context, _ *PortfolioSaved) error { return nil }
func (NoopPublisher) Close() error                                                   { return nil }

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events to a RabbitMQ queue.
type AMQPPublisher struct {
	conn  *amqp.Connection
	ch    channel
	queue string
	log   *logrus.Logger
}

// NewAMQPPublisher connects to the broker and declares the durable queue.
func NewAMQPPublisher(url, queue string, log *logrus.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // noWait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, queue: queue, log: log}, nil
}

// PublishPortfolioSaved sends the event as a persistent JSON message. An
// empty correlation id is replaced by a new one.
func (p *AMQPPublisher) PublishPortfolioSaved(ctx context.Context, evt *PortfolioSaved) error {
	if evt.CorrelationID == "" {
		evt.CorrelationID = uuid.New().String()
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	err = p.ch.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: evt.CorrelationID,
			MessageId:     uuid.New().String(),
			DeliveryMode:  amqp.Persistent,
			Timestamp:     time.Now().UTC(),
			Type:          "portfolio.saved",
			Body:          body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	p.log.WithFields(logrus.Fields{"cid": evt.CorrelationID, "portfolio_id": evt.PortfolioID}).Debug("Published portfolio.saved")
	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
