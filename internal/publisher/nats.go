package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/storefront-admin/internal/metrics"
	"github.com/Checker-Finance/storefront-admin/pkg/model"
)

const brokerNATS = "nats"

// jetStream is the part of nats.JetStreamContext the publisher uses.
type jetStream interface {
	PublishMsg(msg *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSPublisher publishes envelopes to a JetStream stream.
type NATSPublisher struct {
	nc      *nats.Conn
	js      jetStream
	service string
	logger  *zap.Logger
}

// NewNATS creates a JetStream publisher and makes sure stream captures {root}.>.
func NewNATS(nc *nats.Conn, stream, root, service string, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	if stream != "" {
		if err := ensureStream(js, stream, root+".>"); err != nil {
			return nil, err
		}
	}
	return &NATSPublisher{nc: nc, js: js, service: service, logger: logger}, nil
}

func ensureStream(js nats.JetStreamContext, stream, subjects string) error {
	_, err := js.StreamInfo(stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info %s: %w", stream, err)
	}
	if _, err := js.AddStream(&nats.StreamConfig{
		Name:     stream,
		Subjects: []string{subjects},
		Storage:  nats.FileStorage,
	}); err != nil {
		return fmt.Errorf("add stream %s: %w", stream, err)
	}
	return nil
}

// PublishEnvelope serializes and publishes a canonical event envelope.
func (p *NATSPublisher) PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("publisher.marshal_failed",
			zap.String("subject", subject),
			zap.String("event_type", env.EventType),
			zap.Error(err))
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
			"shop":           []string{env.Shop},
			nats.MsgIdHdr:    []string{env.ID.String()},
		},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	metrics.ObserveDuration(metrics.EventPublishLatency, start, brokerNATS, subject)

	if err != nil {
		p.logger.Error("publisher.publish_failed",
			zap.String("subject", subject),
			zap.String("event_type", env.EventType),
			zap.String("shop", env.Shop),
			zap.Error(err))
		metrics.IncEventPublish(brokerNATS, subject, "error")
		return err
	}

	p.logger.Info("publisher.publish_success",
		zap.String("subject", subject),
		zap.String("event_type", env.EventType),
		zap.String("shop", env.Shop))
	metrics.IncEventPublish(brokerNATS, subject, "ok")
	return nil
}

// Healthy reports whether the NATS connection is up.
func (p *NATSPublisher) Healthy() error {
	if p.nc == nil {
		return fmt.Errorf("nats not initialized")
	}
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats disconnected (status %s)", p.nc.Status())
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
	}
}
