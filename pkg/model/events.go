package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the canonical event envelope.
// All product events published to the broker follow this format.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	Shop          string          `json:"shop"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// ProductEvent is the payload of product.* events.
type ProductEvent struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Status    string `json:"status,omitempty"`
	Price     string `json:"price,omitempty"`
	SKU       string `json:"sku,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Mutation operations and outcomes recorded in the audit log.
const (
	OpCreate = "create"
	OpUpdate = "update"

	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomePartial   = "partial"
)

// MutationRecord is one row of the product mutation audit log.
type MutationRecord struct {
	ID         uuid.UUID `json:"id"`
	Shop       string    `json:"shop"`
	Operation  string    `json:"operation"`
	ProductID  string    `json:"product_id,omitempty"`
	VariantID  string    `json:"variant_id,omitempty"`
	Outcome    string    `json:"outcome"`
	Stage      string    `json:"stage,omitempty"` // variant | product, set on failure
	Error      string    `json:"error,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}
