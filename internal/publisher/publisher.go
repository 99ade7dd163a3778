package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Checker-Finance/storefront-admin/pkg/model"
)

// Product event types. The subject is {root}.{type}.v1.
const (
	EventProductCreated       = "product.created"
	EventProductUpdated       = "product.updated"
	EventProductUpdatePartial = "product.update_partial"

	envelopeVersion = "1.0.0"
)

// EventPublisher delivers canonical envelopes to a broker.
type EventPublisher interface {
	PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error
	Healthy() error
	Close()
}

// Emitter builds envelopes for product events and hands them to an EventPublisher.
type Emitter struct {
	pub  EventPublisher
	root string
	now  func() time.Time
}

// NewEmitter returns an Emitter publishing under root (e.g. "evt.storefront").
func NewEmitter(pub EventPublisher, root string) *Emitter {
	if pub == nil {
		pub = Noop{}
	}
	return &Emitter{pub: pub, root: root, now: time.Now}
}

// Subject returns the subject for an event type.
func (e *Emitter) Subject(eventType string) string {
	return fmt.Sprintf("%s.%s.v1", e.root, eventType)
}

// Emit wraps payload in an envelope and publishes it.
func (e *Emitter) Emit(ctx context.Context, shop, eventType string, correlationID uuid.UUID, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	if correlationID == uuid.Nil {
		correlationID = uuid.New()
	}
	subject := e.Subject(eventType)
	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: correlationID,
		Shop:          shop,
		Topic:         subject,
		EventType:     eventType,
		Version:       envelopeVersion,
		Timestamp:     e.now().UTC(),
		Payload:       data,
	}
	return e.pub.PublishEnvelope(ctx, subject, env)
}

// Noop discards events. Used when EVENT_BROKER=none.
type Noop struct{}

func (Noop) PublishEnvelope(context.Context, string, *model.Envelope) error { return nil }
func (Noop) Healthy() error                                                  { return nil }
func (Noop) Close()                                                          {}
