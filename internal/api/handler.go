package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Checker-Finance/storefront-admin/internal/catalog"
	"github.com/Checker-Finance/storefront-admin/pkg/model"
)

// ProductService defines the catalog operations needed by the handler.
type ProductService interface {
	FetchPage(ctx context.Context, cursor *string, pageSize int, direction model.Direction) model.Page
	PageSize() int
	GetProduct(ctx context.Context, productID string) (*model.ProductDetail, error)
	CreateProductIdempotent(ctx context.Context, in model.ProductInput, key string) (*model.ProductDetail, error)
	UpdateProduct(ctx context.Context, productID, variantID string, pf model.ProductFields, vf model.VariantFields) (*model.ProductDetail, error)
}

// ProductHandler handles HTTP API requests for the product catalog.
type ProductHandler struct {
	logger  *zap.Logger
	service ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(logger *zap.Logger, service ProductService) *ProductHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductHandler{logger: logger, service: service}
}

// ListProducts returns one catalog page. It always answers 200: a failed
// read is an empty page.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	direction, err := model.ParseDirection(c.Query("direction"))
	if err != nil {
		h.logger.Warn("api.list_products.bad_direction",
			zap.String("direction", c.Query("direction")))
		direction = model.DirectionNext
	}

	var cursor *string
	if raw := c.Query("cursor"); raw != "" {
		cursor = &raw
	}

	page := h.service.FetchPage(c.UserContext(), cursor, parseLimit(c.Query("limit"), h.service.PageSize()), direction)
	return c.Status(fiber.StatusOK).JSON(page)
}

// GetProduct returns one product with its variants.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	p, err := h.service.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		h.logFailure("api.get_product.failed", c.Params("id"), err)
		resp := MutationResponse{Message: "Failed to load product. Please try again."}
		var ve *catalog.ValidationError
		switch {
		case errors.As(err, &ve):
			resp.Message, resp.Fields = "Invalid product id.", ve.Fields
		case errors.Is(err, catalog.ErrNotFound):
			resp.Message = "Product not found."
		}
		return c.Status(statusFor(err)).JSON(resp)
	}
	return c.Status(fiber.StatusOK).JSON(p)
}

// CreateProduct handles the create form. An Idempotency-Key header makes
// retries safe.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return h.writeOutcome(c, catalog.OpCreate, fiber.StatusCreated, nil, badBody(err))
	}

	p, err := h.service.CreateProductIdempotent(c.UserContext(), req.toInput(), c.Get("Idempotency-Key"))
	if err != nil {
		h.logFailure("api.create_product.failed", "", err)
	}
	return h.writeOutcome(c, catalog.OpCreate, fiber.StatusCreated, p, err)
}

// UpdateProduct handles the edit form: variant step, then product step.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	var req UpdateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return h.writeOutcome(c, catalog.OpUpdate, fiber.StatusOK, nil, badBody(err))
	}
	if err := req.Validate(); err != nil {
		return h.writeOutcome(c, catalog.OpUpdate, fiber.StatusOK, nil, err)
	}

	productID := c.Params("id")
	p, err := h.service.UpdateProduct(c.UserContext(), productID, req.VariantID, req.productFields(), req.variantFields())
	if err != nil {
		h.logFailure("api.update_product.failed", productID, err)
	}
	return h.writeOutcome(c, catalog.OpUpdate, fiber.StatusOK, p, err)
}

// writeOutcome is the single place where mutation errors become status codes.
func (h *ProductHandler) writeOutcome(c *fiber.Ctx, op string, okStatus int, p *model.ProductDetail, err error) error {
	out := catalog.OutcomeFor(op, err)
	status := okStatus
	if err != nil {
		status = statusFor(err)
		p = nil
	}
	return c.Status(status).JSON(MutationResponse{
		Success: out.Success,
		Message: out.Message,
		Partial: out.Partial,
		Fields:  out.Fields,
		Product: p,
	})
}

func (h *ProductHandler) logFailure(event, productID string, err error) {
	if errors.Is(err, catalog.ErrValidation) || errors.Is(err, catalog.ErrNotFound) {
		h.logger.Info(event, zap.String("product_id", productID), zap.Error(err))
		return
	}
	h.logger.Error(event, zap.String("product_id", productID), zap.Error(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrPartialUpdate):
		return fiber.StatusBadGateway
	case errors.Is(err, catalog.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, catalog.ErrInProgress):
		return fiber.StatusConflict
	default:
		return fiber.StatusBadGateway
	}
}

func badBody(err error) error {
	return &catalog.ValidationError{Fields: map[string]string{"body": "must be valid JSON: " + err.Error()}}
}

// CorrelationMiddleware attaches the X-Request-ID header (or a new id) to the
// request context and echoes it back.
func CorrelationMiddleware(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Get(fiber.HeaderXRequestID))
	if err != nil {
		id = uuid.New()
	}
	c.Set(fiber.HeaderXRequestID, id.String())
	c.SetUserContext(catalog.WithCorrelationID(c.UserContext(), id))
	return c.Next()
}
