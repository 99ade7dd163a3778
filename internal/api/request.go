package api

import "github.com/Checker-Finance/storefront-admin/pkg/model"

// CreateProductRequest is the create form payload.
type CreateProductRequest struct {
	Title string `json:"title" example:"Shirt"`
	Price string `json:"price" example:"19.99"`
	SKU   string `json:"sku" example:"SKU-1"`
}

// UpdateProductRequest is the edit form payload. The product id comes from
// the path; omitted fields are left unchanged.
type UpdateProductRequest struct {
	VariantID string  `json:"variantId" example:"44012345678"`
	Title     *string `json:"title,omitempty" example:"Shirt"`
	Status    *string `json:"status,omitempty" example:"active"`
	Price     *string `json:"price,omitempty" example:"21.00"`
	SKU       *string `json:"sku,omitempty" example:"SKU-1"`
}

func (r CreateProductRequest) toInput() model.ProductInput {
	return model.ProductInput{Title: r.Title, Price: r.Price, SKU: r.SKU}
}

func (r UpdateProductRequest) productFields() model.ProductFields {
	return model.ProductFields{Title: r.Title, Status: r.Status}
}

func (r UpdateProductRequest) variantFields() model.VariantFields {
	return model.VariantFields{Price: r.Price, SKU: r.SKU}
}

// MutationResponse reports a create or update to the form.
type MutationResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Partial bool                 `json:"partial,omitempty"`
	Fields  map[string]string    `json:"fields,omitempty"`
	Product *model.ProductDetail `json:"product,omitempty"`
}
