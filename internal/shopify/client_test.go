package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testClientConfig returns a ClientConfig pointing at the given server URL.
func testClientConfig(serverURL string) *ClientConfig {
	return &ClientConfig{
		Shop:        "test",
		ShopDomain:  "test.myshopify.com",
		AccessToken: "shpat_test",
		APIVersion:  "2024-10",
		BaseURL:     serverURL,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *ClientConfig) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(zap.NewNop(), nil, Options{ReadRetries: 1})
	return client, testClientConfig(server.URL)
}

func TestClientConfig_BaseURL(t *testing.T) {
	cfg := &ClientConfig{ShopDomain: "acme.myshopify.com", APIVersion: "2024-10"}
	assert.Equal(t, "https://acme.myshopify.com/admin/api/2024-10", cfg.baseURL())
	assert.Equal(t, "shopify:acme.myshopify.com", cfg.rateLimitKey())

	cfg.BaseURL = "http://127.0.0.1:9999/"
	assert.Equal(t, "http://127.0.0.1:9999", cfg.baseURL())
}

func TestClient_QueryProducts_ForwardUsesVariables(t *testing.T) {
	client, cfg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/graphql.json", r.URL.Path)
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))

		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotContains(t, req.Query, "abc123", "cursor must not be interpolated")
		assert.EqualValues(t, 5, req.Variables["first"])
		assert.Equal(t, "abc123", req.Variables["after"])
		assert.NotContains(t, req.Variables, "last")

		_, _ = w.Write([]byte(`{"data":{"products":{
			"edges":[{"cursor":"c1","node":{"id":"gid://shopify/Product/1","title":"Shirt","status":"ACTIVE",
				"variants":{"edges":[{"node":{"id":"gid://shopify/ProductVariant/11","price":"19.99","sku":"SKU-1"}}]}}}],
			"pageInfo":{"hasNextPage":true,"hasPreviousPage":true,"startCursor":"c1","endCursor":"c1"}}}}`))
	})

	conn, err := client.QueryProducts(context.Background(), cfg, strPtr("abc123"), 5, false)
	require.NoError(t, err)
	require.Len(t, conn.Edges, 1)
	assert.Equal(t, "Shirt", conn.Edges[0].Node.Title)
	assert.True(t, conn.PageInfo.HasNextPage)
}

func TestClient_QueryProducts_BackwardUsesLastBefore(t *testing.T) {
	client, cfg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.EqualValues(t, 3, req.Variables["last"])
		assert.Equal(t, "xyz", req.Variables["before"])
		assert.NotContains(t, req.Variables, "first")
		_, _ = w.Write([]byte(`{"data":{"products":{"edges":[],"pageInfo":{}}}}`))
	})

	conn, err := client.QueryProducts(context.Background(), cfg, strPtr("xyz"), 3, true)
	require.NoError(t, err)
	assert.Empty(t, conn.Edges)
}

func TestClient_QueryProducts_NilCursorSentAsNull(t *testing.T) {
	client, cfg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var raw struct {
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		v, ok := raw.Variables["after"]
		assert.True(t, ok)
		assert.Nil(t, v)
		_, _ = w.Write([]byte(`{"data":{"products":{"edges":[],"pageInfo":{}}}}`))
	})

	_, err := client.QueryProducts(context.Background(), cfg, nil, 5, false)
	require.NoError(t, err)
}

func TestClient_QueryProducts_GraphQLErrors(t *testing.T) {
	client, cfg := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"Throttled"},{"message":"Invalid cursor"}]}`))
	})

	_, err := client.QueryProducts(context.Background(), cfg, nil, 5, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Throttled; Invalid cursor")
}

func TestClient_QueryProducts_RetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	client, cfg := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"products":{"edges":[],"pageInfo":{}}}}`))
	})

	_, err := client.QueryProducts(context.Background(), cfg, nil, 5, false)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestClient_GetProduct(t *testing.T) {
	client, cfg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/products/632910392.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"product":{"id":632910392,"title":"IPod Nano","status":"active",
			"created_at":"2024-01-02T10:00:00-05:00",
			"variants":[{"id":808950810,"product_id":632910392,"price":"199.00","sku":"IPOD2008PINK"}]}}`))
	})

	p, err := client.GetProduct(context.Background(), cfg, "632910392")
	require.NoError(t, err)
	assert.Equal(t, ID("632910392"), p.ID)
	require.Len(t, p.Variants, 1)
	assert.Equal(t, ID("808950810"), p.Variants[0].ID)
	assert.Equal(t, "199.00", p.Variants[0].Price)
	require.NotNil(t, p.CreatedAt)
}

func TestClient_PathIDsAreEscaped(t *testing.T) {
	var paths, queries []string
	client, cfg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.EscapedPath())
		queries = append(queries, r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"product":{"id":1,"title":"x"},"variant":{"id":2}}`))
	})

	_, err := client.GetProduct(context.Background(), cfg, "123?fields=id")
	require.NoError(t, err)
	_, err = client.UpdateVariant(context.Background(), cfg, "5#x", strPtr("1.00"), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"/products/123%3Ffields=id.json", "/variants/5%23x.json"}, paths)
	assert.Equal(t, []string{"", ""}, queries)
}

func TestClient_GetProduct_NotFoundIsAPIError(t *testing.T) {
	client, cfg := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":"Not Found"}`))
	})

	_, err := client.GetProduct(context.Background(), cfg, "1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Not Found", apiErr.Message)
}

func TestClient_CreateProduct(t *testing.T) {
	client, cfg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/products.json", r.URL.Path)

		var body map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Shirt", body["product"]["title"])
		variants := body["product"]["variants"].([]any)
		require.Len(t, variants, 1)
		v := variants[0].(map[string]any)
		assert.Equal(t, "19.99", v["price"])
		assert.Equal(t, "SKU-1", v["sku"])
		assert.NotContains(t, body["product"], "id")

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"product":{"id":1,"title":"Shirt","status":"active","variants":[{"id":11,"price":"19.99","sku":"SKU-1"}]}}`))
	})

	p, err := client.CreateProduct(context.Background(), cfg, "Shirt", "19.99", "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, ID("1"), p.ID)
	assert.Equal(t, "Shirt", p.Title)
}

func TestClient_CreateProduct_NotRetried(t *testing.T) {
	var calls atomic.Int32
	client, cfg := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.CreateProduct(context.Background(), cfg, "Shirt", "19.99", "SKU-1")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load(), "writes must be sent once")
}

func TestClient_CreateProduct_ValidationErrorFlattened(t *testing.T) {
	client, cfg := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":{"title":["can't be blank"]}}`))
	})

	_, err := client.CreateProduct(context.Background(), cfg, "", "1", "s")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "title can't be blank", apiErr.Message)
}

func TestClient_UpdateVariant_SendsOnlySetFields(t *testing.T) {
	client, cfg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/variants/11.json", r.URL.Path)

		var body map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "11", body["variant"]["id"])
		assert.Equal(t, "25.00", body["variant"]["price"])
		assert.NotContains(t, body["variant"], "sku")

		_, _ = w.Write([]byte(`{"variant":{"id":11,"product_id":1,"price":"25.00","sku":"SKU-1"}}`))
	})

	v, err := client.UpdateVariant(context.Background(), cfg, "11", strPtr("25.00"), nil)
	require.NoError(t, err)
	assert.Equal(t, ID("1"), v.ProductID)
	assert.Equal(t, "25.00", v.Price)
}

func TestClient_UpdateProduct(t *testing.T) {
	client, cfg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/products/1.json", r.URL.Path)

		var body map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "New", body["product"]["title"])
		assert.Equal(t, "draft", body["product"]["status"])

		_, _ = w.Write([]byte(`{"product":{"id":1,"title":"New","status":"draft","variants":[]}}`))
	})

	p, err := client.UpdateProduct(context.Background(), cfg, "1", strPtr("New"), strPtr("draft"))
	require.NoError(t, err)
	assert.Equal(t, "draft", p.Status)
}

func TestClient_MissingConfig(t *testing.T) {
	client := NewClient(nil, nil, Options{})
	_, err := client.GetProduct(context.Background(), nil, "1")
	require.Error(t, err)
}

func TestOperation(t *testing.T) {
	tests := map[string]string{
		"http://x/admin/api/2024-10/graphql.json":     "graphql",
		"http://x/admin/api/2024-10/products.json":    "products",
		"http://x/admin/api/2024-10/products/1.json":  "products",
		"http://x/admin/api/2024-10/variants/11.json": "variants",
	}
	for url, want := range tests {
		req, _ := http.NewRequest(http.MethodGet, url, nil)
		assert.Equal(t, want, Operation(req), url)
	}
}

func strPtr(s string) *string { return &s }
