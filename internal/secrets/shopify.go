package secrets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Checker-Finance/storefront-admin/internal/shopify"
	pkgsecrets "github.com/Checker-Finance/storefront-admin/pkg/secrets"
	"github.com/Checker-Finance/storefront-admin/pkg/utils"
)

const platformShopify = "shopify"

// ShopifyResolver resolves shop credentials from AWS Secrets Manager.
//
// Secret naming convention: {env}/{shop}/shopify
// Secret JSON format:       {"shop_domain": "...", "access_token": "...", "api_version": "2024-10"}
type ShopifyResolver struct {
	inner             *AWSResolver[shopify.ClientConfig]
	defaultAPIVersion string
	baseURL           string
}

// NewShopifyResolver constructs a Secrets Manager backed resolver.
// defaultAPIVersion applies when the secret has no api_version; baseURL, if
// set, overrides the derived Admin API URL.
func NewShopifyResolver(
	logger *zap.Logger,
	env string,
	defaultAPIVersion string,
	baseURL string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[shopify.ClientConfig],
) *ShopifyResolver {
	return &ShopifyResolver{
		inner:             NewAWSResolver(logger, env, platformShopify, provider, cache),
		defaultAPIVersion: defaultAPIVersion,
		baseURL:           baseURL,
	}
}

// Resolve fetches or caches the ClientConfig for a shop.
func (r *ShopifyResolver) Resolve(ctx context.Context, shop string) (*shopify.ClientConfig, error) {
	cfg, err := r.inner.Resolve(ctx, shop, func(m map[string]string) (shopify.ClientConfig, error) {
		return parseShopifyConfig(shop, r.defaultAPIVersion, m)
	})
	if err != nil {
		return nil, err
	}
	if r.baseURL != "" {
		cfg.BaseURL = r.baseURL
	}
	return &cfg, nil
}

// Invalidate drops the cached credential for shop.
func (r *ShopifyResolver) Invalidate(shop string) {
	r.inner.Invalidate(shop)
}

// DiscoverShops lists shops with Shopify secrets configured.
func (r *ShopifyResolver) DiscoverShops(ctx context.Context) ([]string, error) {
	return r.inner.DiscoverShops(ctx)
}

func parseShopifyConfig(shop, defaultAPIVersion string, m map[string]string) (shopify.ClientConfig, error) {
	cfg := shopify.ClientConfig{
		Shop:        shop,
		ShopDomain:  strings.TrimSpace(m["shop_domain"]),
		AccessToken: strings.TrimSpace(m["access_token"]),
		APIVersion:  strings.TrimSpace(m["api_version"]),
	}
	if cfg.ShopDomain == "" {
		return shopify.ClientConfig{}, fmt.Errorf("missing required field 'shop_domain'")
	}
	if cfg.AccessToken == "" {
		return shopify.ClientConfig{}, fmt.Errorf("missing required field 'access_token'")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	return cfg, nil
}

// StaticResolver serves one shop configured from the environment.
type StaticResolver struct {
	cfg shopify.ClientConfig
}

// NewStaticResolver returns a resolver that always yields cfg.
func NewStaticResolver(logger *zap.Logger, cfg shopify.ClientConfig) *StaticResolver {
	if logger != nil {
		logger.Info("secrets.static_shop_config",
			zap.String("shop", cfg.Shop),
			zap.String("shop_domain", cfg.ShopDomain),
			zap.String("api_version", cfg.APIVersion),
			zap.String("access_token", utils.MaskToken(cfg.AccessToken)))
	}
	return &StaticResolver{cfg: cfg}
}

// Resolve returns a copy of the static configuration. The shop name is ignored.
func (r *StaticResolver) Resolve(_ context.Context, _ string) (*shopify.ClientConfig, error) {
	if r.cfg.AccessToken == "" {
		return nil, fmt.Errorf("shopify access token not configured")
	}
	cfg := r.cfg
	return &cfg, nil
}
