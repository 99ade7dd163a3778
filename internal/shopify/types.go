package shopify

import (
	"context"
	"fmt"
	"strings"
	"time"
)

//
// ────────────────────────────────────────────────
//   Client Configuration (env or AWS SM)
// ────────────────────────────────────────────────
//

// ClientConfig holds the shop address and Admin API credential.
// Secret format: {"shop_domain": "x.myshopify.com", "access_token": "shpat_...", "api_version": "2024-10"}
type ClientConfig struct {
	Shop        string // logical shop name used in events and audit rows
	ShopDomain  string // e.g. "my-store.myshopify.com"
	AccessToken string // X-Shopify-Access-Token
	APIVersion  string // e.g. "2024-10"
	BaseURL     string // overrides https://{ShopDomain}/admin/api/{APIVersion}
}

// baseURL returns the Admin API root for this shop.
func (c *ClientConfig) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return fmt.Sprintf("https://%s/admin/api/%s", c.ShopDomain, c.APIVersion)
}

// rateLimitKey isolates rate limits per shop.
func (c *ClientConfig) rateLimitKey() string {
	if c.ShopDomain != "" {
		return "shopify:" + c.ShopDomain
	}
	return "shopify:" + c.BaseURL
}

// ConfigResolver resolves the shop configuration for a logical shop name.
type ConfigResolver interface {
	Resolve(ctx context.Context, shop string) (*ClientConfig, error)
}

// APIError is a 4xx answer from the Admin API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopify returned %d: %s", e.Status, e.Message)
}

//
// ────────────────────────────────────────────────
//   GraphQL: product listing
// ────────────────────────────────────────────────
//

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// GraphQLError is one entry of a GraphQL "errors" array.
type GraphQLError struct {
	Message string `json:"message"`
}

// ProductsQueryResponse is the decoded body of the product listing query.
type ProductsQueryResponse struct {
	Data struct {
		Products ProductConnection `json:"products"`
	} `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

type ProductConnection struct {
	Edges    []ProductEdge `json:"edges"`
	PageInfo PageInfo      `json:"pageInfo"`
}

type ProductEdge struct {
	Cursor string      `json:"cursor"`
	Node   ProductNode `json:"node"`
}

type ProductNode struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Status   string            `json:"status"`
	Variants VariantConnection `json:"variants"`
}

type VariantConnection struct {
	Edges []VariantEdge `json:"edges"`
}

type VariantEdge struct {
	Node VariantNode `json:"node"`
}

type VariantNode struct {
	ID    string `json:"id"`
	Price string `json:"price"`
	SKU   string `json:"sku"`
}

type PageInfo struct {
	HasNextPage     bool   `json:"hasNextPage"`
	HasPreviousPage bool   `json:"hasPreviousPage"`
	StartCursor     string `json:"startCursor"`
	EndCursor       string `json:"endCursor"`
}

//
// ────────────────────────────────────────────────
//   REST: products and variants
// ────────────────────────────────────────────────
//

// RESTProduct is the product resource of the REST Admin API.
// Numeric ids are decoded as json.Number-compatible strings by the ID type.
type RESTProduct struct {
	ID        ID            `json:"id,omitempty"`
	Title     string        `json:"title,omitempty"`
	Status    string        `json:"status,omitempty"`
	Variants  []RESTVariant `json:"variants,omitempty"`
	CreatedAt *time.Time    `json:"created_at,omitempty"`
	UpdatedAt *time.Time    `json:"updated_at,omitempty"`
}

type RESTVariant struct {
	ID        ID     `json:"id,omitempty"`
	ProductID ID     `json:"product_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Price     string `json:"price,omitempty"`
	SKU       string `json:"sku,omitempty"`
}

type productEnvelope struct {
	Product RESTProduct `json:"product"`
}

type variantEnvelope struct {
	Variant RESTVariant `json:"variant"`
}

// productUpdate sends only the fields that are set.
type productUpdate struct {
	ID     string  `json:"id"`
	Title  *string `json:"title,omitempty"`
	Status *string `json:"status,omitempty"`
}

type variantUpdate struct {
	ID    string  `json:"id"`
	Price *string `json:"price,omitempty"`
	SKU   *string `json:"sku,omitempty"`
}

// errorBody covers both REST error shapes: {"errors": "Not Found"} and
// {"errors": {"title": ["can't be blank"]}}.
type errorBody struct {
	Errors any `json:"errors"`
}
