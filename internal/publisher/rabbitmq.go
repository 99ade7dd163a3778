package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/storefront-admin/internal/metrics"
	"github.com/Checker-Finance/storefront-admin/pkg/model"
)

const brokerRabbitMQ = "rabbitmq"

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type amqpConnection interface {
	IsClosed() bool
	Close() error
}

// RabbitMQPublisher publishes envelopes to a topic exchange, using the
// subject as routing key.
type RabbitMQPublisher struct {
	conn     amqpConnection
	channel  amqpChannel
	exchange string
	service  string
	logger   *zap.Logger
}

// NewRabbitMQ dials url and declares a durable topic exchange.
func NewRabbitMQ(url, exchange, service string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &RabbitMQPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		service:  service,
		logger:   logger,
	}, nil
}

// PublishEnvelope serializes env and publishes it with subject as routing key.
func (p *RabbitMQPublisher) PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	start := time.Now()
	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		subject, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     env.ID.String(),
			CorrelationId: env.CorrelationID.String(),
			Timestamp:     env.Timestamp,
			Type:          env.EventType,
			AppId:         p.service,
			Headers:       amqp.Table{"shop": env.Shop},
			Body:          body,
		},
	)
	metrics.ObserveDuration(metrics.EventPublishLatency, start, brokerRabbitMQ, subject)

	if err != nil {
		p.logger.Error("publisher.publish_failed",
			zap.String("exchange", p.exchange),
			zap.String("routing_key", subject),
			zap.String("event_type", env.EventType),
			zap.Error(err))
		metrics.IncEventPublish(brokerRabbitMQ, subject, "error")
		return err
	}

	p.logger.Info("publisher.publish_success",
		zap.String("exchange", p.exchange),
		zap.String("routing_key", subject),
		zap.String("event_type", env.EventType))
	metrics.IncEventPublish(brokerRabbitMQ, subject, "ok")
	return nil
}

// Healthy reports whether the AMQP connection is open.
func (p *RabbitMQPublisher) Healthy() error {
	if p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection closed")
	}
	return nil
}

func (p *RabbitMQPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
