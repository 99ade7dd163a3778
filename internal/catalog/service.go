package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Checker-Finance/storefront-admin/internal/metrics"
	"github.com/Checker-Finance/storefront-admin/internal/publisher"
	"github.com/Checker-Finance/storefront-admin/internal/shopify"
	"github.com/Checker-Finance/storefront-admin/internal/store"
	"github.com/Checker-Finance/storefront-admin/pkg/model"
)

// Platform page size limits.
const (
	MinPageSize = 1
	MaxPageSize = 250
)

// Upstream is the Admin API surface the catalog needs.
type Upstream interface {
	QueryProducts(ctx context.Context, cfg *shopify.ClientConfig, cursor *string, pageSize int, backward bool) (*shopify.ProductConnection, error)
	GetProduct(ctx context.Context, cfg *shopify.ClientConfig, productID string) (*shopify.RESTProduct, error)
	CreateProduct(ctx context.Context, cfg *shopify.ClientConfig, title, price, sku string) (*shopify.RESTProduct, error)
	UpdateVariant(ctx context.Context, cfg *shopify.ClientConfig, variantID string, price, sku *string) (*shopify.RESTVariant, error)
	UpdateProduct(ctx context.Context, cfg *shopify.ClientConfig, productID string, title, status *string) (*shopify.RESTProduct, error)
}

// IdempotencyStore keeps create replays from producing duplicates.
type IdempotencyStore interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	SetNXJSON(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// EventEmitter publishes product events.
type EventEmitter interface {
	Emit(ctx context.Context, shop, eventType string, correlationID uuid.UUID, payload any) error
}

// Auditor records mutation outcomes.
type Auditor interface {
	Record(ctx context.Context, rec *model.MutationRecord) error
}

// invalidator is implemented by resolvers that cache credentials.
type invalidator interface {
	Invalidate(shop string)
}

// Options configure a Service.
type Options struct {
	Shop           string
	PageSize       int
	IdempotencyTTL time.Duration
}

// Service adapts the storefront catalog: cursor pagination, create, and the
// two-step product update.
type Service struct {
	opts     Options
	logger   *zap.Logger
	upstream Upstream
	resolver shopify.ConfigResolver
	mapper   *shopify.Mapper
	idem     IdempotencyStore
	events   EventEmitter
	audit    Auditor
	now      func() time.Time
}

// NewService constructs a catalog service. idem, events and audit may be nil.
func NewService(
	opts Options,
	logger *zap.Logger,
	upstream Upstream,
	resolver shopify.ConfigResolver,
	idem IdempotencyStore,
	events EventEmitter,
	audit Auditor,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PageSize < MinPageSize {
		opts.PageSize = 5
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	return &Service{
		opts:     opts,
		logger:   logger,
		upstream: upstream,
		resolver: resolver,
		mapper:   shopify.NewMapper(),
		idem:     idem,
		events:   events,
		audit:    audit,
		now:      time.Now,
	}
}

// PageSize is the default page size used by ListPage.
func (s *Service) PageSize() int { return s.opts.PageSize }

func (s *Service) resolveConfig(ctx context.Context) (*shopify.ClientConfig, error) {
	cfg, err := s.resolver.Resolve(ctx, s.opts.Shop)
	if err != nil {
		s.logger.Error("catalog.resolve_config_failed",
			zap.String("shop", s.opts.Shop),
			zap.Error(err))
		return nil, &UpstreamError{Op: "resolve_config", Err: err}
	}
	if cfg.Shop == "" {
		cfg.Shop = s.opts.Shop
	}
	return cfg, nil
}

// upstreamErr classifies a platform failure. 404 becomes ErrNotFound; a
// rejected credential also drops it from the resolver cache.
func (s *Service) upstreamErr(op string, err error) error {
	var apiErr *shopify.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		case http.StatusUnauthorized, http.StatusForbidden:
			if inv, ok := s.resolver.(invalidator); ok {
				inv.Invalidate(s.opts.Shop)
			}
		}
	}
	return &UpstreamError{Op: op, Err: err}
}

// clampPageSize bounds n to [MinPageSize, MaxPageSize].
func clampPageSize(n int) int {
	if n < MinPageSize {
		return MinPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

//
// ────────────────────────────────────────────────
//   Reads
// ────────────────────────────────────────────────
//

// FetchPageResult reads one page and reports failures to the caller.
func (s *Service) FetchPageResult(ctx context.Context, cursor *string, pageSize int, direction model.Direction) (model.Page, error) {
	size := clampPageSize(pageSize)
	backward := direction == model.DirectionPrevious

	cfg, err := s.resolveConfig(ctx)
	if err != nil {
		return model.EmptyPage(), err
	}

	conn, err := s.upstream.QueryProducts(ctx, cfg, cursor, size, backward)
	if err != nil {
		return model.EmptyPage(), s.upstreamErr("query_products", err)
	}

	info := conn.PageInfo
	if (info.HasNextPage && info.EndCursor == "") || (info.HasPreviousPage && info.StartCursor == "") {
		s.logger.Warn("catalog.fetch_page.missing_cursor",
			zap.Bool("has_next", info.HasNextPage),
			zap.Bool("has_previous", info.HasPreviousPage))
	}
	if len(conn.Edges) > size {
		s.logger.Warn("catalog.fetch_page.oversized",
			zap.Int("requested", size),
			zap.Int("received", len(conn.Edges)))
	}

	return s.mapper.ToPage(conn, size, backward), nil
}

// FetchPage reads one page. Any failure is logged and yields the empty page.
func (s *Service) FetchPage(ctx context.Context, cursor *string, pageSize int, direction model.Direction) model.Page {
	page, err := s.FetchPageResult(ctx, cursor, pageSize, direction)
	if err != nil {
		s.logger.Warn("catalog.fetch_page.degraded",
			zap.String("direction", string(direction)),
			zap.Int("page_size", pageSize),
			zap.Error(err))
		metrics.IncPageFetch("degraded")
		return model.EmptyPage()
	}
	metrics.IncPageFetch("ok")
	return page
}

// ListPage reads one page with the configured page size.
func (s *Service) ListPage(ctx context.Context, cursor *string, direction model.Direction) model.Page {
	return s.FetchPage(ctx, cursor, s.opts.PageSize, direction)
}

// GetProduct fetches one product with its variants.
func (s *Service) GetProduct(ctx context.Context, productID string) (*model.ProductDetail, error) {
	id, msg := normalizeID(productID)
	if msg != "" {
		return nil, &ValidationError{Fields: map[string]string{"productId": msg}}
	}
	cfg, err := s.resolveConfig(ctx)
	if err != nil {
		return nil, err
	}
	return s.getProduct(ctx, cfg, id)
}

func (s *Service) getProduct(ctx context.Context, cfg *shopify.ClientConfig, id string) (*model.ProductDetail, error) {
	p, err := s.upstream.GetProduct(ctx, cfg, id)
	if err != nil {
		err = s.upstreamErr("get_product", err)
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error("catalog.get_product.failed",
				zap.String("product_id", id),
				zap.Error(err))
		}
		return nil, err
	}
	return s.mapper.ToDetail(p), nil
}

//
// ────────────────────────────────────────────────
//   Create
// ────────────────────────────────────────────────
//

type idempotencyRecord struct {
	State     string `json:"state"` // pending | done
	ProductID string `json:"product_id,omitempty"`
}

func (s *Service) idempotencyKey(key string) string {
	return fmt.Sprintf("storefront:idempotency:%s:%s", s.opts.Shop, key)
}

// CreateProduct creates a product with one variant.
func (s *Service) CreateProduct(ctx context.Context, in model.ProductInput) (*model.ProductDetail, error) {
	return s.CreateProductIdempotent(ctx, in, "")
}

// CreateProductIdempotent creates a product once per idempotency key. A
// replay of a completed key returns the product created the first time.
// An empty key disables the check.
func (s *Service) CreateProductIdempotent(ctx context.Context, in model.ProductInput, key string) (*model.ProductDetail, error) {
	in, err := normalizeCreate(in)
	if err != nil {
		metrics.IncMutation(OpCreate, "invalid")
		return nil, err
	}

	cfg, err := s.resolveConfig(ctx)
	if err != nil {
		s.finishCreate(ctx, nil, in, err)
		return nil, err
	}

	storeKey := ""
	if key != "" && s.idem != nil {
		storeKey = s.idempotencyKey(key)
		detail, claimed, err := s.claim(ctx, cfg, storeKey)
		if err != nil {
			return nil, err
		}
		if detail != nil {
			metrics.IncMutation(OpCreate, "replayed")
			return detail, nil
		}
		if !claimed {
			storeKey = ""
		}
	}

	s.logger.Info("catalog.create_product.start",
		zap.String("shop", cfg.Shop),
		zap.String("title", in.Title),
		zap.String("sku", in.SKU))

	p, err := s.upstream.CreateProduct(ctx, cfg, in.Title, in.Price, in.SKU)
	if err != nil {
		err = s.upstreamErr("create_product", err)
		s.logger.Error("catalog.create_product.failed",
			zap.String("shop", cfg.Shop),
			zap.Error(err))
		if storeKey != "" {
			if dErr := s.idem.Delete(ctx, storeKey); dErr != nil {
				s.logger.Warn("catalog.idempotency.release_failed", zap.Error(dErr))
			}
		}
		s.finishCreate(ctx, nil, in, err)
		return nil, err
	}

	detail := s.mapper.ToDetail(p)
	if storeKey != "" {
		rec := idempotencyRecord{State: "done", ProductID: detail.ID}
		if sErr := s.idem.SetJSON(ctx, storeKey, rec, s.opts.IdempotencyTTL); sErr != nil {
			s.logger.Warn("catalog.idempotency.store_failed", zap.Error(sErr))
		}
	}

	s.logger.Info("catalog.create_product.succeeded",
		zap.String("shop", cfg.Shop),
		zap.String("product_id", detail.ID))
	s.finishCreate(ctx, detail, in, nil)
	return detail, nil
}

// claim reserves storeKey. It returns the stored product for a completed
// replay, or claimed=false when the store is unreachable and the create
// proceeds unguarded.
func (s *Service) claim(ctx context.Context, cfg *shopify.ClientConfig, storeKey string) (*model.ProductDetail, bool, error) {
	ok, err := s.idem.SetNXJSON(ctx, storeKey, idempotencyRecord{State: "pending"}, s.opts.IdempotencyTTL)
	if err != nil {
		s.logger.Warn("catalog.idempotency.claim_failed", zap.Error(err))
		return nil, false, nil
	}
	if ok {
		return nil, true, nil
	}

	var rec idempotencyRecord
	if err := s.idem.GetJSON(ctx, storeKey, &rec); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("catalog.idempotency.lookup_failed", zap.Error(err))
	}
	if rec.ProductID == "" {
		return nil, false, ErrInProgress
	}

	s.logger.Info("catalog.create_product.replayed",
		zap.String("product_id", rec.ProductID))
	detail, err := s.getProduct(ctx, cfg, rec.ProductID)
	if err != nil {
		return nil, false, err
	}
	return detail, false, nil
}

func (s *Service) finishCreate(ctx context.Context, detail *model.ProductDetail, in model.ProductInput, err error) {
	rec := &model.MutationRecord{
		Shop:      s.opts.Shop,
		Operation: model.OpCreate,
		Outcome:   model.OutcomeSucceeded,
	}
	if err != nil {
		rec.Outcome = model.OutcomeFailed
		rec.Error = err.Error()
		metrics.IncMutation(OpCreate, model.OutcomeFailed)
		s.record(ctx, rec)
		return
	}
	metrics.IncMutation(OpCreate, model.OutcomeSucceeded)

	rec.ProductID = detail.ID
	ev := model.ProductEvent{ProductID: detail.ID, Title: detail.Title, Status: detail.Status, Price: in.Price, SKU: in.SKU}
	if v := detail.FirstVariant(); v != nil {
		rec.VariantID = v.ID
		ev.VariantID = v.ID
	}
	s.record(ctx, rec)
	s.emit(ctx, publisher.EventProductCreated, ev)
}

//
// ────────────────────────────────────────────────
//   Update
// ────────────────────────────────────────────────
//

// Update stages recorded on failure.
const (
	stageVariant = "variant"
	stageProduct = "product"
)

// UpdateProduct updates the variant, then the product. The steps are not
// atomic: if the variant step fails the product step is never sent; if the
// product step fails a *PartialUpdateError is returned and the variant keeps
// its new values.
func (s *Service) UpdateProduct(ctx context.Context, productID, variantID string, pf model.ProductFields, vf model.VariantFields) (*model.ProductDetail, error) {
	req, err := normalizeUpdate(productID, variantID, pf, vf)
	if err != nil {
		metrics.IncMutation(OpUpdate, "invalid")
		return nil, err
	}

	rec := &model.MutationRecord{
		Shop:      s.opts.Shop,
		Operation: model.OpUpdate,
		ProductID: req.productID,
		VariantID: req.variantID,
	}

	cfg, err := s.resolveConfig(ctx)
	if err != nil {
		s.failUpdate(ctx, rec, stageVariant, err)
		return nil, err
	}

	s.logger.Info("catalog.update_product.start",
		zap.String("shop", cfg.Shop),
		zap.String("product_id", req.productID),
		zap.String("variant_id", req.variantID))

	variant, err := s.upstream.UpdateVariant(ctx, cfg, req.variantID, req.variant.Price, req.variant.SKU)
	if err != nil {
		err = s.upstreamErr("update_variant", err)
		s.logger.Error("catalog.update_product.variant_failed",
			zap.String("variant_id", req.variantID),
			zap.Error(err))
		s.failUpdate(ctx, rec, stageVariant, err)
		return nil, err
	}

	product, err := s.upstream.UpdateProduct(ctx, cfg, req.productID, req.product.Title, req.product.Status)
	if err != nil {
		partial := &PartialUpdateError{
			ProductID: req.productID,
			VariantID: req.variantID,
			Err:       s.upstreamErr("update_product", err),
		}
		s.logger.Error("catalog.update_product.partial",
			zap.String("product_id", req.productID),
			zap.String("variant_id", req.variantID),
			zap.Error(partial))
		rec.Outcome = model.OutcomePartial
		rec.Stage = stageProduct
		rec.Error = partial.Err.Error()
		metrics.IncMutation(OpUpdate, model.OutcomePartial)
		s.record(ctx, rec)
		s.emit(ctx, publisher.EventProductUpdatePartial, model.ProductEvent{
			ProductID: req.productID,
			VariantID: req.variantID,
			Price:     variant.Price,
			SKU:       variant.SKU,
			Error:     partial.Err.Error(),
		})
		return nil, partial
	}

	detail := s.mapper.ToDetail(product)
	if len(detail.Variants) == 0 {
		detail.Variants = append(detail.Variants, s.mapper.ToVariant(*variant, detail.ID))
	}

	rec.Outcome = model.OutcomeSucceeded
	metrics.IncMutation(OpUpdate, model.OutcomeSucceeded)
	s.record(ctx, rec)
	s.emit(ctx, publisher.EventProductUpdated, model.ProductEvent{
		ProductID: detail.ID,
		VariantID: req.variantID,
		Title:     detail.Title,
		Status:    detail.Status,
		Price:     variant.Price,
		SKU:       variant.SKU,
	})

	s.logger.Info("catalog.update_product.succeeded",
		zap.String("product_id", detail.ID),
		zap.String("variant_id", req.variantID))
	return detail, nil
}

func (s *Service) failUpdate(ctx context.Context, rec *model.MutationRecord, stage string, err error) {
	rec.Outcome = model.OutcomeFailed
	rec.Stage = stage
	rec.Error = err.Error()
	metrics.IncMutation(OpUpdate, model.OutcomeFailed)
	s.record(ctx, rec)
}

//
// ────────────────────────────────────────────────
//   Side effects (never fail the operation)
// ────────────────────────────────────────────────
//

func (s *Service) record(ctx context.Context, rec *model.MutationRecord) {
	if s.audit == nil {
		return
	}
	rec.RecordedAt = s.now().UTC()
	if err := s.audit.Record(ctx, rec); err != nil {
		metrics.IncError("audit", "record_failed")
		s.logger.Warn("catalog.audit_failed",
			zap.String("operation", rec.Operation),
			zap.Error(err))
	}
}

func (s *Service) emit(ctx context.Context, eventType string, ev model.ProductEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, s.opts.Shop, eventType, CorrelationID(ctx), ev); err != nil {
		metrics.IncError("publisher", "emit_failed")
		s.logger.Warn("catalog.emit_failed",
			zap.String("event_type", eventType),
			zap.String("product_id", ev.ProductID),
			zap.Error(err))
	}
}

type correlationKey struct{}

// WithCorrelationID attaches id to ctx; events emitted under ctx carry it.
func WithCorrelationID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id attached by WithCorrelationID, or uuid.Nil.
func CorrelationID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(correlationKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
