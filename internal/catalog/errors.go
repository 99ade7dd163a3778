package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Read paths degrade to an empty page; write paths and the detail fetch
// return one of the errors below.
var (
	ErrNotFound            = errors.New("product not found")
	ErrValidation          = errors.New("validation failed")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrPartialUpdate       = errors.New("partial update")
	ErrInProgress          = errors.New("request with this idempotency key is in progress")
)

// ValidationError reports malformed input per field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UpstreamError wraps a failed call to the platform.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }

// PartialUpdateError means the variant step committed and the product step
// failed. Nothing is rolled back.
type PartialUpdateError struct {
	ProductID string
	VariantID string
	Err       error
}

func (e *PartialUpdateError) Error() string {
	return fmt.Sprintf("variant %s updated but product %s was not: %v", e.VariantID, e.ProductID, e.Err)
}

func (e *PartialUpdateError) Unwrap() error { return e.Err }

func (e *PartialUpdateError) Is(target error) bool { return target == ErrPartialUpdate }

// Outcome is the user-facing report of a mutation.
type Outcome struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Partial bool              `json:"partial,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Operations named in outcomes.
const (
	OpCreate = "create"
	OpUpdate = "update"
)

// OutcomeFor maps the result of op to a report. Upstream details stay in
// the logs; validation messages are shown to the user.
func OutcomeFor(op string, err error) Outcome {
	if err == nil {
		if op == OpUpdate {
			return Outcome{Success: true, Message: "Product updated successfully!"}
		}
		return Outcome{Success: true, Message: "Product created successfully!"}
	}

	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return Outcome{Message: "Please correct the highlighted fields.", Fields: ve.Fields}
	case errors.Is(err, ErrPartialUpdate):
		return Outcome{Message: "Price and SKU were saved, but the title and status could not be updated. Please try again.", Partial: true}
	case errors.Is(err, ErrNotFound):
		return Outcome{Message: "Product not found."}
	case errors.Is(err, ErrInProgress):
		return Outcome{Message: "This request is already being processed."}
	case op == OpUpdate:
		return Outcome{Message: "Failed to update product. Please try again."}
	default:
		return Outcome{Message: "Failed to create product. Please try again."}
	}
}
