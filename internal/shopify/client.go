package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/storefront-admin/internal/httpclient"
	"github.com/Checker-Finance/storefront-admin/internal/rate"
)

// Options tune the transport. Zero values fall back to defaults.
type Options struct {
	Timeout     time.Duration
	ReadRetries int
	Observer    httpclient.Observer
}

// Client wraps HTTP communication with the Shopify Admin API.
// Shop configuration is supplied per call so one Client can serve several shops.
// Reads retry on 5xx; writes are sent exactly once.
type Client struct {
	logger *zap.Logger
	reads  *httpclient.Executor
	writes *httpclient.Executor
}

// NewClient constructs a Shopify Admin API client.
func NewClient(logger *zap.Logger, rateMgr *rate.Manager, opts Options) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.ReadRetries < 0 {
		opts.ReadRetries = 0
	}
	httpClient := &http.Client{Timeout: opts.Timeout}
	onError := errorHandler(logger)

	reads := httpclient.New(logger, rateMgr, httpClient, opts.ReadRetries, "shopify", onError)
	writes := httpclient.New(logger, rateMgr, httpClient, 0, "shopify", onError)
	if opts.Observer != nil {
		reads.WithObserver(opts.Observer)
		writes.WithObserver(opts.Observer)
	}
	return &Client{logger: logger, reads: reads, writes: writes}
}

func errorHandler(logger *zap.Logger) func(status int, body []byte) error {
	return func(status int, body []byte) error {
		msg := errorMessage(body)
		logger.Warn("shopify.client_error",
			zap.Int("status", status),
			zap.String("message", msg))
		return &APIError{Status: status, Message: msg}
	}
}

// errorMessage flattens the REST "errors" field into one line.
func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || eb.Errors == nil {
		return strings.TrimSpace(string(body))
	}
	switch v := eb.Errors.(type) {
	case string:
		return v
	case map[string]any:
		parts := make([]string, 0, len(v))
		for field, raw := range v {
			if list, ok := raw.([]any); ok {
				for _, m := range list {
					parts = append(parts, fmt.Sprintf("%s %v", field, m))
				}
				continue
			}
			parts = append(parts, fmt.Sprintf("%s %v", field, raw))
		}
		sort.Strings(parts)
		return strings.Join(parts, "; ")
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// QueryProducts reads one page of products through the GraphQL Admin API.
// POST /graphql.json
func (c *Client) QueryProducts(ctx context.Context, cfg *ClientConfig, cursor *string, pageSize int, backward bool) (*ProductConnection, error) {
	body := graphQLRequest{
		Query:     productsQuery,
		Variables: pageVariables(cursor, pageSize, backward),
	}
	var resp ProductsQueryResponse
	// The query has no side effects, so it runs on the retrying executor.
	if err := c.send(ctx, c.reads, cfg, http.MethodPost, "/graphql.json", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("graphql errors: %s", strings.Join(msgs, "; "))
	}
	return &resp.Data.Products, nil
}

// GetProduct fetches one product with all of its variants.
// GET /products/{id}.json
func (c *Client) GetProduct(ctx context.Context, cfg *ClientConfig, productID string) (*RESTProduct, error) {
	var resp productEnvelope
	if err := c.send(ctx, c.reads, cfg, http.MethodGet, "/products/"+url.PathEscape(productID)+".json", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// CreateProduct creates a product with a single variant.
// POST /products.json
func (c *Client) CreateProduct(ctx context.Context, cfg *ClientConfig, title, price, sku string) (*RESTProduct, error) {
	req := productEnvelope{Product: RESTProduct{
		Title:    title,
		Variants: []RESTVariant{{Price: price, SKU: sku}},
	}}
	var resp productEnvelope
	if err := c.send(ctx, c.writes, cfg, http.MethodPost, "/products.json", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// UpdateVariant changes the price and/or SKU of a variant.
// PUT /variants/{id}.json
func (c *Client) UpdateVariant(ctx context.Context, cfg *ClientConfig, variantID string, price, sku *string) (*RESTVariant, error) {
	req := struct {
		Variant variantUpdate `json:"variant"`
	}{Variant: variantUpdate{ID: variantID, Price: price, SKU: sku}}

	var resp variantEnvelope
	if err := c.send(ctx, c.writes, cfg, http.MethodPut, "/variants/"+url.PathEscape(variantID)+".json", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Variant, nil
}

// UpdateProduct changes the title and/or status of a product.
// PUT /products/{id}.json
func (c *Client) UpdateProduct(ctx context.Context, cfg *ClientConfig, productID string, title, status *string) (*RESTProduct, error) {
	req := struct {
		Product productUpdate `json:"product"`
	}{Product: productUpdate{ID: productID, Title: title, Status: status}}

	var resp productEnvelope
	if err := c.send(ctx, c.writes, cfg, http.MethodPut, "/products/"+url.PathEscape(productID)+".json", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// send performs an authenticated request and decodes the JSON response.
func (c *Client) send(ctx context.Context, exec *httpclient.Executor, cfg *ClientConfig, method, path string, body any, out any) error {
	if cfg == nil {
		return fmt.Errorf("shopify: missing client config")
	}
	var req *http.Request
	var err error
	endpoint := cfg.baseURL() + path
	if body != nil {
		data, mErr := json.Marshal(body)
		if mErr != nil {
			return mErr
		}
		req, err = http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(data))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
	}
	if err != nil {
		return err
	}
	setHeaders(req, cfg.AccessToken)

	return exec.DoJSON(ctx, req, cfg.rateLimitKey(), out)
}

// setHeaders sets the required headers for Admin API requests.
func setHeaders(req *http.Request, token string) {
	req.Header.Set("X-Shopify-Access-Token", token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// Operation names a request for metrics: graphql, products, variants.
func Operation(req *http.Request) string {
	p := req.URL.Path
	switch {
	case strings.HasSuffix(p, "/graphql.json"):
		return "graphql"
	case strings.Contains(p, "/variants/"):
		return "variants"
	default:
		return "products"
	}
}
