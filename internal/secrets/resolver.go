package secrets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	pkgsecrets "github.com/Checker-Finance/storefront-admin/pkg/secrets"
)

// AWSResolver resolves per-shop configuration from AWS Secrets Manager,
// caching results locally to reduce API calls. It is generic over the
// resolved config type T.
//
// Secret naming convention: {env}/{shop}/{platform}
type AWSResolver[T any] struct {
	logger   *zap.Logger
	env      string
	platform string
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[T]
}

// NewAWSResolver constructs a generic per-shop config resolver.
func NewAWSResolver[T any](
	logger *zap.Logger,
	env string,
	platform string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[T],
) *AWSResolver[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AWSResolver[T]{
		logger:   logger,
		env:      env,
		platform: platform,
		provider: provider,
		cache:    cache,
	}
}

func (r *AWSResolver[T]) cacheKey(shop string) string {
	return strings.ToLower(shop + "|" + r.platform)
}

// secretName builds the Secrets Manager key: {env}/{shop}/{platform}.
func (r *AWSResolver[T]) secretName(shop string) string {
	return strings.ToLower(fmt.Sprintf("%s/%s/%s", r.env, shop, r.platform))
}

// Resolve fetches or caches config T for a shop.
// parse extracts T from the raw secret map and validates required fields.
func (r *AWSResolver[T]) Resolve(ctx context.Context, shop string, parse func(map[string]string) (T, error)) (T, error) {
	key := r.cacheKey(shop)
	if cfg, ok := r.cache.Get(key); ok {
		return cfg, nil
	}

	name := r.secretName(shop)
	secretMap, err := r.provider.GetSecret(ctx, name)
	if err != nil {
		r.logger.Warn("secrets.fetch_failed",
			zap.String("key", name),
			zap.Error(err))
		var zero T
		return zero, fmt.Errorf("resolve config for shop %q: %w", shop, err)
	}

	cfg, err := parse(secretMap)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("parse secret %q: %w", name, err)
	}

	r.cache.Put(key, cfg)
	r.logger.Info("secrets.shop_config_resolved",
		zap.String("shop", shop),
		zap.String("platform", r.platform))
	return cfg, nil
}

// Invalidate drops the cached config for shop, forcing the next Resolve to
// read Secrets Manager again. Used after the platform rejects the credential.
func (r *AWSResolver[T]) Invalidate(shop string) {
	r.cache.Bust(r.cacheKey(shop))
}

// DiscoverShops lists the shops that have a secret for this platform:
// names matching "{env}/{shop}/{platform}".
func (r *AWSResolver[T]) DiscoverShops(ctx context.Context) ([]string, error) {
	prefix := strings.ToLower(r.env + "/")
	suffix := "/" + r.platform

	names, err := r.provider.ListSecrets(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("discover shops: %w", err)
	}

	var shops []string
	for _, name := range names {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, prefix) || !strings.HasSuffix(lower, suffix) {
			continue
		}
		trimmed := strings.TrimSuffix(strings.TrimPrefix(lower, prefix), suffix)
		if trimmed != "" && !strings.Contains(trimmed, "/") {
			shops = append(shops, trimmed)
		}
	}

	r.logger.Info("secrets.shops_discovered",
		zap.Int("count", len(shops)),
		zap.Strings("shops", shops))
	return shops, nil
}
