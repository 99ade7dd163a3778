package api

import (
	"strconv"
	"strings"

	"github.com/Checker-Finance/storefront-admin/internal/catalog"
)

// Validate checks the shape of an update request. Field values are
// validated by the catalog service.
func (r UpdateProductRequest) Validate() error {
	if strings.TrimSpace(r.VariantID) == "" {
		return &catalog.ValidationError{Fields: map[string]string{"variantId": "is required"}}
	}
	if r.Title == nil && r.Status == nil && r.Price == nil && r.SKU == nil {
		return &catalog.ValidationError{Fields: map[string]string{"product": "no fields to update"}}
	}
	return nil
}

// parseLimit reads the optional page size override. Empty or invalid
// values fall back to def; the service clamps the rest.
func parseLimit(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
