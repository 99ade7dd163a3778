package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/storefront-admin/internal/shopify"
	"github.com/Checker-Finance/storefront-admin/pkg/model"
)

const maxTitleLen = 255

type fieldErrors map[string]string

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// validatePrice accepts a non-negative decimal such as "19.99".
func validatePrice(raw string) string {
	if raw == "" {
		return "is required"
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "must be a decimal number"
	}
	if d.IsNegative() {
		return "must not be negative"
	}
	return ""
}

// normalizeCreate trims the create form and reports invalid fields.
func normalizeCreate(in model.ProductInput) (model.ProductInput, error) {
	out := model.ProductInput{
		Title: strings.TrimSpace(in.Title),
		Price: strings.TrimSpace(in.Price),
		SKU:   strings.TrimSpace(in.SKU),
	}
	errs := fieldErrors{}
	switch {
	case out.Title == "":
		errs["title"] = "is required"
	case len(out.Title) > maxTitleLen:
		errs["title"] = "is too long"
	}
	if msg := validatePrice(out.Price); msg != "" {
		errs["price"] = msg
	}
	if out.SKU == "" {
		errs["sku"] = "is required"
	}
	return out, errs.err()
}

// normalizeID accepts a bare id or a global id and returns the bare id.
func normalizeID(raw string) (string, string) {
	id := shopify.TrailingID(raw)
	if id == "" {
		return "", "is required"
	}
	if strings.ContainsFunc(id, func(r rune) bool { return !isIDRune(r) }) {
		return "", "is not a valid id"
	}
	return id, ""
}

// isIDRune reports whether r may appear in a path-safe id: [A-Za-z0-9_-].
func isIDRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-'
}

type updateRequest struct {
	productID string
	variantID string
	product   model.ProductFields
	variant   model.VariantFields
}

// normalizeUpdate validates ids and set fields of the edit form.
// Set strings are trimmed; status is lowercased.
func normalizeUpdate(productID, variantID string, pf model.ProductFields, vf model.VariantFields) (updateRequest, error) {
	errs := fieldErrors{}
	req := updateRequest{}

	var msg string
	if req.productID, msg = normalizeID(productID); msg != "" {
		errs["productId"] = msg
	}
	if req.variantID, msg = normalizeID(variantID); msg != "" {
		errs["variantId"] = msg
	}

	if pf.Title != nil {
		t := strings.TrimSpace(*pf.Title)
		switch {
		case t == "":
			errs["title"] = "must not be blank"
		case len(t) > maxTitleLen:
			errs["title"] = "is too long"
		}
		req.product.Title = &t
	}
	if pf.Status != nil {
		s := strings.ToLower(strings.TrimSpace(*pf.Status))
		if s == "" {
			errs["status"] = "must not be blank"
		}
		req.product.Status = &s
	}
	if vf.Price != nil {
		p := strings.TrimSpace(*vf.Price)
		if m := validatePrice(p); m != "" {
			errs["price"] = m
		}
		req.variant.Price = &p
	}
	if vf.SKU != nil {
		s := strings.TrimSpace(*vf.SKU)
		if s == "" {
			errs["sku"] = "must not be blank"
		}
		req.variant.SKU = &s
	}
	return req, errs.err()
}
