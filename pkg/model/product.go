package model

import (
	"fmt"
	"strings"
	"time"
)

// Direction selects which side of a cursor a page is read from.
type Direction string

const (
	DirectionNext     Direction = "next"
	DirectionPrevious Direction = "previous"
)

// ParseDirection maps a raw query value to a Direction. Empty means next.
func ParseDirection(raw string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(raw))) {
	case "", DirectionNext:
		return DirectionNext, nil
	case DirectionPrevious:
		return DirectionPrevious, nil
	default:
		return "", fmt.Errorf("direction must be 'next' or 'previous', got %q", raw)
	}
}

// ProductSummary is the list-view projection of a product and its first variant.
// Variant fields are nil when the product has no variants.
type ProductSummary struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Status       string  `json:"status"`
	VariantID    *string `json:"variantId,omitempty"`
	VariantPrice *string `json:"variantPrice,omitempty"`
	VariantSKU   *string `json:"variantSku,omitempty"`
}

// Page is one cursor-delimited slice of the catalog.
//
// Use NewPage or EmptyPage to build one: both keep HasNext tied to NextCursor
// and HasPrevious tied to PreviousCursor.
type Page struct {
	Products       []ProductSummary `json:"products"`
	HasNext        bool             `json:"hasNext"`
	HasPrevious    bool             `json:"hasPrevious"`
	NextCursor     *string          `json:"nextCursor"`
	PreviousCursor *string          `json:"previousCursor"`
}

// NewPage builds a Page whose flags are derived from the cursors.
// A nil or empty cursor clears the corresponding flag.
func NewPage(products []ProductSummary, nextCursor, previousCursor *string) Page {
	if products == nil {
		products = []ProductSummary{}
	}
	if nextCursor != nil && *nextCursor == "" {
		nextCursor = nil
	}
	if previousCursor != nil && *previousCursor == "" {
		previousCursor = nil
	}
	return Page{
		Products:       products,
		HasNext:        nextCursor != nil,
		HasPrevious:    previousCursor != nil,
		NextCursor:     nextCursor,
		PreviousCursor: previousCursor,
	}
}

// EmptyPage is the page returned when the catalog could not be read.
func EmptyPage() Page {
	return NewPage(nil, nil, nil)
}

// Variant is a purchasable configuration of a product.
type Variant struct {
	ID        string `json:"id"`
	ProductID string `json:"productId,omitempty"`
	Title     string `json:"title,omitempty"`
	Price     string `json:"price"`
	SKU       string `json:"sku"`
}

// ProductDetail is the full product record used by the edit form.
type ProductDetail struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Variants  []Variant `json:"variants"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// FirstVariant returns the first variant, or nil for a product without variants.
func (p *ProductDetail) FirstVariant() *Variant {
	if p == nil || len(p.Variants) == 0 {
		return nil
	}
	return &p.Variants[0]
}

// ProductInput carries the fields of the create form.
type ProductInput struct {
	Title string `json:"title"`
	Price string `json:"price"`
	SKU   string `json:"sku"`
}

// ProductFields are the product-level fields of the edit form.
// Nil fields are left unchanged upstream.
type ProductFields struct {
	Title  *string `json:"title,omitempty"`
	Status *string `json:"status,omitempty"`
}

// IsEmpty reports whether no product field is set.
func (f ProductFields) IsEmpty() bool {
	return f.Title == nil && f.Status == nil
}

// VariantFields are the variant-level fields of the edit form.
type VariantFields struct {
	Price *string `json:"price,omitempty"`
	SKU   *string `json:"sku,omitempty"`
}

// IsEmpty reports whether no variant field is set.
func (f VariantFields) IsEmpty() bool {
	return f.Price == nil && f.SKU == nil
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
