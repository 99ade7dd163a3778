package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/storefront-admin/internal/publisher"
	"github.com/Checker-Finance/storefront-admin/internal/shopify"
	"github.com/Checker-Finance/storefront-admin/internal/store"
	"github.com/Checker-Finance/storefront-admin/pkg/model"
)

// --- fakes ---

// fakeUpstream is an in-memory shop.
type fakeUpstream struct {
	mu       sync.Mutex
	nextID   int
	products map[string]*shopify.RESTProduct

	conn    *shopify.ProductConnection
	lastQry struct {
		cursor   *string
		size     int
		backward bool
	}

	queryErr, getErr, createErr, variantErr, productErr error

	queryCalls, createCalls, variantCalls, productCalls int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{nextID: 100, products: map[string]*shopify.RESTProduct{}}
}

func (f *fakeUpstream) QueryProducts(_ context.Context, _ *shopify.ClientConfig, cursor *string, size int, backward bool) (*shopify.ProductConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	f.lastQry.cursor, f.lastQry.size, f.lastQry.backward = cursor, size, backward
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.conn, nil
}

func (f *fakeUpstream) GetProduct(_ context.Context, _ *shopify.ClientConfig, id string) (*shopify.RESTProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.products[id]
	if !ok {
		return nil, &shopify.APIError{Status: http.StatusNotFound, Message: "Not Found"}
	}
	cp := *p
	cp.Variants = append([]shopify.RESTVariant(nil), p.Variants...)
	return &cp, nil
}

func (f *fakeUpstream) CreateProduct(_ context.Context, _ *shopify.ClientConfig, title, price, sku string) (*shopify.RESTProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	pid := shopify.ID(strconv.Itoa(f.nextID))
	f.nextID++
	vid := shopify.ID(strconv.Itoa(f.nextID))
	p := &shopify.RESTProduct{
		ID:       pid,
		Title:    title,
		Status:   "active",
		Variants: []shopify.RESTVariant{{ID: vid, ProductID: pid, Price: price, SKU: sku}},
	}
	f.products[string(pid)] = p
	cp := *p
	return &cp, nil
}

func (f *fakeUpstream) UpdateVariant(_ context.Context, _ *shopify.ClientConfig, variantID string, price, sku *string) (*shopify.RESTVariant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.variantCalls++
	if f.variantErr != nil {
		return nil, f.variantErr
	}
	for _, p := range f.products {
		for i := range p.Variants {
			v := &p.Variants[i]
			if string(v.ID) != variantID {
				continue
			}
			if price != nil {
				v.Price = *price
			}
			if sku != nil {
				v.SKU = *sku
			}
			cp := *v
			return &cp, nil
		}
	}
	return nil, &shopify.APIError{Status: http.StatusNotFound, Message: "Not Found"}
}

func (f *fakeUpstream) UpdateProduct(_ context.Context, _ *shopify.ClientConfig, productID string, title, status *string) (*shopify.RESTProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productCalls++
	if f.productErr != nil {
		return nil, f.productErr
	}
	p, ok := f.products[productID]
	if !ok {
		return nil, &shopify.APIError{Status: http.StatusNotFound, Message: "Not Found"}
	}
	if title != nil {
		p.Title = *title
	}
	if status != nil {
		p.Status = *status
	}
	cp := *p
	cp.Variants = append([]shopify.RESTVariant(nil), p.Variants...)
	return &cp, nil
}

type fakeResolver struct {
	err         error
	invalidated []string
}

func (r *fakeResolver) Resolve(_ context.Context, shop string) (*shopify.ClientConfig, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &shopify.ClientConfig{ShopDomain: shop + ".myshopify.com", AccessToken: "t", APIVersion: "2024-10"}, nil
}

func (r *fakeResolver) Invalidate(shop string) { r.invalidated = append(r.invalidated, shop) }

type emitted struct {
	shop, eventType string
	corr            uuid.UUID
	payload         model.ProductEvent
}

type fakeEvents struct {
	events []emitted
	err    error
}

func (f *fakeEvents) Emit(_ context.Context, shop, eventType string, corr uuid.UUID, payload any) error {
	f.events = append(f.events, emitted{shop, eventType, corr, payload.(model.ProductEvent)})
	return f.err
}

type fakeAudit struct {
	records []model.MutationRecord
	err     error
}

func (f *fakeAudit) Record(_ context.Context, rec *model.MutationRecord) error {
	f.records = append(f.records, *rec)
	return f.err
}

type harness struct {
	svc      *Service
	up       *fakeUpstream
	resolver *fakeResolver
	events   *fakeEvents
	audit    *fakeAudit
}

func newHarness(t *testing.T, idem IdempotencyStore) *harness {
	t.Helper()
	h := &harness{
		up:       newFakeUpstream(),
		resolver: &fakeResolver{},
		events:   &fakeEvents{},
		audit:    &fakeAudit{},
	}
	h.svc = NewService(Options{Shop: "acme", PageSize: 5}, zap.NewNop(), h.up, h.resolver, idem, h.events, h.audit)
	return h
}

func edges(n int) []shopify.ProductEdge {
	out := make([]shopify.ProductEdge, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, shopify.ProductEdge{
			Cursor: fmt.Sprintf("c%d", i),
			Node: shopify.ProductNode{
				ID:    fmt.Sprintf("gid://shopify/Product/%d", i),
				Title: fmt.Sprintf("P%d", i),
				Variants: shopify.VariantConnection{Edges: []shopify.VariantEdge{{Node: shopify.VariantNode{
					ID: fmt.Sprintf("gid://shopify/ProductVariant/%d", i*10), Price: "1.00", SKU: fmt.Sprintf("S%d", i),
				}}}},
			},
		})
	}
	return out
}

// --- reads ---

func TestListPage_AtMostPageSize(t *testing.T) {
	h := newHarness(t, nil)
	h.up.conn = &shopify.ProductConnection{
		Edges:    edges(8),
		PageInfo: shopify.PageInfo{HasNextPage: true, EndCursor: "c8", StartCursor: "c1"},
	}

	page := h.svc.ListPage(context.Background(), nil, model.DirectionNext)

	assert.Len(t, page.Products, 5)
	assert.Equal(t, 5, h.up.lastQry.size)
	assert.False(t, h.up.lastQry.backward)
	assert.Equal(t, "1", page.Products[0].ID)
	assert.True(t, page.HasNext)
}

func TestFetchPage_ClampsPageSize(t *testing.T) {
	h := newHarness(t, nil)
	h.up.conn = &shopify.ProductConnection{}

	h.svc.FetchPage(context.Background(), nil, 0, model.DirectionNext)
	assert.Equal(t, MinPageSize, h.up.lastQry.size)

	h.svc.FetchPage(context.Background(), nil, 1000, model.DirectionNext)
	assert.Equal(t, MaxPageSize, h.up.lastQry.size)
}

func TestFetchPage_PreviousUsesBackward(t *testing.T) {
	h := newHarness(t, nil)
	h.up.conn = &shopify.ProductConnection{
		Edges:    edges(2),
		PageInfo: shopify.PageInfo{HasPreviousPage: true, StartCursor: "c1", HasNextPage: true, EndCursor: "c2"},
	}
	cursor := "c3"

	page := h.svc.FetchPage(context.Background(), &cursor, 2, model.DirectionPrevious)

	assert.True(t, h.up.lastQry.backward)
	require.NotNil(t, h.up.lastQry.cursor)
	assert.Equal(t, "c3", *h.up.lastQry.cursor)
	require.NotNil(t, page.PreviousCursor)
	assert.Equal(t, "c1", *page.PreviousCursor)
}

func TestFetchPage_FlagsTrackCursors(t *testing.T) {
	tests := []struct {
		name string
		info shopify.PageInfo
	}{
		{"no pages", shopify.PageInfo{}},
		{"next only", shopify.PageInfo{HasNextPage: true, EndCursor: "e"}},
		{"next claimed without cursor", shopify.PageInfo{HasNextPage: true}},
		{"previous claimed without cursor", shopify.PageInfo{HasPreviousPage: true}},
		{"cursors without flags", shopify.PageInfo{StartCursor: "s", EndCursor: "e"}},
		{"both", shopify.PageInfo{HasNextPage: true, HasPreviousPage: true, StartCursor: "s", EndCursor: "e"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.up.conn = &shopify.ProductConnection{Edges: edges(1), PageInfo: tt.info}

			page := h.svc.ListPage(context.Background(), nil, model.DirectionNext)
			assert.Equal(t, page.HasNext, page.NextCursor != nil)
			assert.Equal(t, page.HasPrevious, page.PreviousCursor != nil)
		})
	}
}

func TestFetchPage_UpstreamFailureYieldsEmptyPage(t *testing.T) {
	h := newHarness(t, nil)
	h.up.queryErr = errors.New("connection refused")

	page := h.svc.ListPage(context.Background(), nil, model.DirectionNext)

	assert.Equal(t, model.EmptyPage(), page)
	assert.NotNil(t, page.Products)
}

func TestFetchPage_ResolveFailureYieldsEmptyPage(t *testing.T) {
	h := newHarness(t, nil)
	h.resolver.err = errors.New("secret not found")

	page := h.svc.ListPage(context.Background(), nil, model.DirectionNext)
	assert.Equal(t, model.EmptyPage(), page)
	assert.Equal(t, 0, h.up.queryCalls)
}

func TestFetchPageResult_ReportsFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.up.queryErr = errors.New("graphql errors: Throttled")

	page, err := h.svc.FetchPageResult(context.Background(), nil, 5, model.DirectionNext)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Empty(t, page.Products)
}

func TestGetProduct_NotFound(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.svc.GetProduct(context.Background(), "999")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestGetProduct_AcceptsGlobalID(t *testing.T) {
	h := newHarness(t, nil)
	created, err := h.svc.CreateProduct(context.Background(), model.ProductInput{Title: "Shirt", Price: "19.99", SKU: "SKU-1"})
	require.NoError(t, err)

	got, err := h.svc.GetProduct(context.Background(), "gid://shopify/Product/"+created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestGetProduct_InvalidID(t *testing.T) {
	for _, id := range []string{"  ", "1?x", "1#", "12 34", "1%2F2", "1.json"} {
		t.Run(id, func(t *testing.T) {
			h := newHarness(t, nil)
			h.up.getErr = errors.New("upstream must not be called")

			_, err := h.svc.GetProduct(context.Background(), id)
			assert.ErrorIs(t, err, ErrValidation)
			assert.NotErrorIs(t, err, ErrUpstreamUnavailable)
		})
	}
}

func TestGetProduct_UnauthorizedInvalidatesCredential(t *testing.T) {
	h := newHarness(t, nil)
	h.up.getErr = &shopify.APIError{Status: http.StatusUnauthorized, Message: "Invalid API key"}

	_, err := h.svc.GetProduct(context.Background(), "1")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, []string{"acme"}, h.resolver.invalidated)
}

// --- create ---

func TestCreateProduct_ReturnsSubmittedValues(t *testing.T) {
	h := newHarness(t, nil)

	p, err := h.svc.CreateProduct(context.Background(), model.ProductInput{Title: "Shirt", Price: "19.99", SKU: "SKU-1"})
	require.NoError(t, err)

	assert.Equal(t, "Shirt", p.Title)
	require.Len(t, p.Variants, 1)
	assert.Equal(t, "19.99", p.Variants[0].Price)
	assert.Equal(t, "SKU-1", p.Variants[0].SKU)

	require.Len(t, h.events.events, 1)
	assert.Equal(t, publisher.EventProductCreated, h.events.events[0].eventType)
	assert.Equal(t, p.ID, h.events.events[0].payload.ProductID)
	require.Len(t, h.audit.records, 1)
	assert.Equal(t, model.OutcomeSucceeded, h.audit.records[0].Outcome)
	assert.Equal(t, p.Variants[0].ID, h.audit.records[0].VariantID)
}

func TestCreateThenGet_RoundTrip(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	created, err := h.svc.CreateProduct(ctx, model.ProductInput{Title: " Shirt ", Price: "19.99", SKU: "SKU-1"})
	require.NoError(t, err)

	got, err := h.svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shirt", got.Title)
	v := got.FirstVariant()
	require.NotNil(t, v)
	assert.Equal(t, "19.99", v.Price)
	assert.Equal(t, "SKU-1", v.SKU)
}

func TestCreateProduct_ValidationNeverReachesUpstream(t *testing.T) {
	tests := []struct {
		name  string
		in    model.ProductInput
		field string
	}{
		{"blank title", model.ProductInput{Title: "  ", Price: "1", SKU: "s"}, "title"},
		{"blank sku", model.ProductInput{Title: "t", Price: "1", SKU: ""}, "sku"},
		{"missing price", model.ProductInput{Title: "t", SKU: "s"}, "price"},
		{"non-numeric price", model.ProductInput{Title: "t", Price: "abc", SKU: "s"}, "price"},
		{"negative price", model.ProductInput{Title: "t", Price: "-1.00", SKU: "s"}, "price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			_, err := h.svc.CreateProduct(context.Background(), tt.in)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Contains(t, ve.Fields, tt.field)
			assert.Equal(t, 0, h.up.createCalls)
			assert.Empty(t, h.events.events)
		})
	}
}

func TestCreateProduct_UpstreamFailurePropagates(t *testing.T) {
	h := newHarness(t, nil)
	h.up.createErr = &shopify.APIError{Status: http.StatusUnprocessableEntity, Message: "title can't be blank"}

	_, err := h.svc.CreateProduct(context.Background(), model.ProductInput{Title: "Shirt", Price: "1", SKU: "s"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)

	var apiErr *shopify.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Empty(t, h.events.events)
	require.Len(t, h.audit.records, 1)
	assert.Equal(t, model.OutcomeFailed, h.audit.records[0].Outcome)
}

func TestCreateProduct_SideEffectFailuresIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.events.err = errors.New("nats down")
	h.audit.err = errors.New("pg down")

	_, err := h.svc.CreateProduct(context.Background(), model.ProductInput{Title: "Shirt", Price: "1", SKU: "s"})
	require.NoError(t, err)
}

func TestCreateProduct_CorrelationIDPropagates(t *testing.T) {
	h := newHarness(t, nil)
	corr := uuid.New()
	ctx := WithCorrelationID(context.Background(), corr)

	_, err := h.svc.CreateProduct(ctx, model.ProductInput{Title: "Shirt", Price: "1", SKU: "s"})
	require.NoError(t, err)
	assert.Equal(t, corr, h.events.events[0].corr)
}

// --- idempotency ---

func newRedisStore(t *testing.T) (*store.HybridStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	st, err := store.NewHybrid(store.RedisConfig{Addr: mr.Addr()}, "", store.PGPoolConfig{}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st, mr
}

func TestCreateProductIdempotent_ReplayReturnsFirstProduct(t *testing.T) {
	st, _ := newRedisStore(t)
	h := newHarness(t, st)
	ctx := context.Background()
	in := model.ProductInput{Title: "Shirt", Price: "19.99", SKU: "SKU-1"}

	first, err := h.svc.CreateProductIdempotent(ctx, in, "key-1")
	require.NoError(t, err)
	second, err := h.svc.CreateProductIdempotent(ctx, in, "key-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, h.up.createCalls)
	assert.Len(t, h.events.events, 1, "replay emits nothing")

	_, err = h.svc.CreateProductIdempotent(ctx, in, "key-2")
	require.NoError(t, err)
	assert.Equal(t, 2, h.up.createCalls)
}

func TestCreateProductIdempotent_InProgress(t *testing.T) {
	st, mr := newRedisStore(t)
	h := newHarness(t, st)
	require.NoError(t, mr.Set("storefront:idempotency:acme:key-1", `{"state":"pending"}`))

	_, err := h.svc.CreateProductIdempotent(context.Background(), model.ProductInput{Title: "Shirt", Price: "1", SKU: "s"}, "key-1")
	assert.ErrorIs(t, err, ErrInProgress)
	assert.Equal(t, 0, h.up.createCalls)
}

func TestCreateProductIdempotent_FailureReleasesKey(t *testing.T) {
	st, mr := newRedisStore(t)
	h := newHarness(t, st)
	h.up.createErr = errors.New("timeout")
	in := model.ProductInput{Title: "Shirt", Price: "1", SKU: "s"}

	_, err := h.svc.CreateProductIdempotent(context.Background(), in, "key-1")
	require.Error(t, err)
	assert.False(t, mr.Exists("storefront:idempotency:acme:key-1"))

	h.up.createErr = nil
	_, err = h.svc.CreateProductIdempotent(context.Background(), in, "key-1")
	require.NoError(t, err)
	assert.Equal(t, 2, h.up.createCalls)
}

func TestCreateProductIdempotent_RecordHasTTL(t *testing.T) {
	st, mr := newRedisStore(t)
	h := newHarness(t, st)

	_, err := h.svc.CreateProductIdempotent(context.Background(), model.ProductInput{Title: "Shirt", Price: "1", SKU: "s"}, "key-1")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, mr.TTL("storefront:idempotency:acme:key-1"))
}

// --- update ---

func seed(t *testing.T, h *harness) *model.ProductDetail {
	t.Helper()
	p, err := h.svc.CreateProduct(context.Background(), model.ProductInput{Title: "Shirt", Price: "19.99", SKU: "SKU-1"})
	require.NoError(t, err)
	h.events.events = nil
	h.audit.records = nil
	return p
}

func TestUpdateProduct_Success(t *testing.T) {
	h := newHarness(t, nil)
	p := seed(t, h)
	vid := p.Variants[0].ID

	got, err := h.svc.UpdateProduct(context.Background(), p.ID, vid,
		model.ProductFields{Title: model.StringPtr("Tee"), Status: model.StringPtr("DRAFT")},
		model.VariantFields{Price: model.StringPtr("25.00"), SKU: model.StringPtr("SKU-2")})
	require.NoError(t, err)

	assert.Equal(t, "Tee", got.Title)
	assert.Equal(t, "draft", got.Status)
	assert.Equal(t, "25.00", got.Variants[0].Price)
	assert.Equal(t, "SKU-2", got.Variants[0].SKU)

	require.Len(t, h.events.events, 1)
	assert.Equal(t, publisher.EventProductUpdated, h.events.events[0].eventType)
	require.Len(t, h.audit.records, 1)
	assert.Equal(t, model.OutcomeSucceeded, h.audit.records[0].Outcome)
}

func TestUpdateProduct_AcceptsGlobalIDs(t *testing.T) {
	h := newHarness(t, nil)
	p := seed(t, h)

	_, err := h.svc.UpdateProduct(context.Background(),
		"gid://shopify/Product/"+p.ID, "gid://shopify/ProductVariant/"+p.Variants[0].ID,
		model.ProductFields{}, model.VariantFields{Price: model.StringPtr("2")})
	require.NoError(t, err)
}

func TestUpdateProduct_VariantFailureSkipsProductStep(t *testing.T) {
	h := newHarness(t, nil)
	p := seed(t, h)
	h.up.variantErr = errors.New("connection reset")

	_, err := h.svc.UpdateProduct(context.Background(), p.ID, p.Variants[0].ID,
		model.ProductFields{Title: model.StringPtr("Tee")}, model.VariantFields{Price: model.StringPtr("25.00")})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.NotErrorIs(t, err, ErrPartialUpdate)
	assert.Equal(t, 0, h.up.productCalls, "product step must not run")
	assert.False(t, OutcomeFor(OpUpdate, err).Success)
	assert.False(t, OutcomeFor(OpUpdate, err).Partial)

	require.Len(t, h.audit.records, 1)
	assert.Equal(t, model.OutcomeFailed, h.audit.records[0].Outcome)
	assert.Equal(t, "variant", h.audit.records[0].Stage)
	assert.Empty(t, h.events.events)
}

func TestUpdateProduct_UnknownVariantIsNotFound(t *testing.T) {
	h := newHarness(t, nil)
	p := seed(t, h)

	_, err := h.svc.UpdateProduct(context.Background(), p.ID, "424242",
		model.ProductFields{}, model.VariantFields{Price: model.StringPtr("1")})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, h.up.productCalls)
}

func TestUpdateProduct_ProductFailureIsPartial(t *testing.T) {
	h := newHarness(t, nil)
	p := seed(t, h)
	vid := p.Variants[0].ID
	h.up.productErr = &shopify.APIError{Status: http.StatusUnprocessableEntity, Message: "status is invalid"}

	_, err := h.svc.UpdateProduct(context.Background(), p.ID, vid,
		model.ProductFields{Status: model.StringPtr("bogus")}, model.VariantFields{Price: model.StringPtr("25.00")})

	var partial *PartialUpdateError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, p.ID, partial.ProductID)
	assert.Equal(t, vid, partial.VariantID)
	assert.ErrorIs(t, err, ErrPartialUpdate)

	out := OutcomeFor(OpUpdate, err)
	assert.False(t, out.Success)
	assert.True(t, out.Partial)

	// variant keeps the new price, product keeps the old status
	got, gErr := h.svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, gErr)
	assert.Equal(t, "25.00", got.Variants[0].Price)
	assert.Equal(t, "active", got.Status)

	require.Len(t, h.events.events, 1)
	assert.Equal(t, publisher.EventProductUpdatePartial, h.events.events[0].eventType)
	require.Len(t, h.audit.records, 1)
	assert.Equal(t, model.OutcomePartial, h.audit.records[0].Outcome)
	assert.Equal(t, "product", h.audit.records[0].Stage)
}

func TestUpdateProduct_ValidationNeverReachesUpstream(t *testing.T) {
	tests := []struct {
		name       string
		productID  string
		variantID  string
		pf         model.ProductFields
		vf         model.VariantFields
		wantFields []string
	}{
		{"blank ids", "", " ", model.ProductFields{}, model.VariantFields{}, []string{"productId", "variantId"}},
		{"id with space", "12 34", "5", model.ProductFields{}, model.VariantFields{}, []string{"productId"}},
		{"id with query", "1?x", "5", model.ProductFields{}, model.VariantFields{}, []string{"productId"}},
		{"variant id with fragment", "1", "5#", model.ProductFields{}, model.VariantFields{}, []string{"variantId"}},
		{"bad price", "1", "2", model.ProductFields{}, model.VariantFields{Price: model.StringPtr("1,00")}, []string{"price"}},
		{"blank title", "1", "2", model.ProductFields{Title: model.StringPtr(" ")}, model.VariantFields{}, []string{"title"}},
		{"blank sku and status", "1", "2", model.ProductFields{Status: model.StringPtr("")}, model.VariantFields{SKU: model.StringPtr("")}, []string{"status", "sku"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			_, err := h.svc.UpdateProduct(context.Background(), tt.productID, tt.variantID, tt.pf, tt.vf)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			for _, f := range tt.wantFields {
				assert.Contains(t, ve.Fields, f)
			}
			assert.Equal(t, 0, h.up.variantCalls)
			assert.Equal(t, 0, h.up.productCalls)
			assert.Empty(t, h.audit.records)
		})
	}
}

func TestUpdateProduct_ResolveFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.resolver.err = errors.New("no secret")

	_, err := h.svc.UpdateProduct(context.Background(), "1", "2", model.ProductFields{}, model.VariantFields{})
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, 0, h.up.variantCalls)
}
