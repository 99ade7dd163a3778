package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/Checker-Finance/storefront-admin/internal/api"
	"github.com/Checker-Finance/storefront-admin/internal/audit"
	"github.com/Checker-Finance/storefront-admin/internal/catalog"
	"github.com/Checker-Finance/storefront-admin/internal/metrics"
	"github.com/Checker-Finance/storefront-admin/internal/publisher"
	"github.com/Checker-Finance/storefront-admin/internal/rate"
	internalsecrets "github.com/Checker-Finance/storefront-admin/internal/secrets"
	"github.com/Checker-Finance/storefront-admin/internal/shopify"
	"github.com/Checker-Finance/storefront-admin/internal/store"
	"github.com/Checker-Finance/storefront-admin/pkg/config"
	"github.com/Checker-Finance/storefront-admin/pkg/logger"
	"github.com/Checker-Finance/storefront-admin/pkg/secrets"
	"github.com/Checker-Finance/storefront-admin/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Infof("starting [%s]...", cfg.ServiceName)

	if err := cfg.Validate(); err != nil {
		logg.Fatalw("invalid configuration", "error", err)
	}
	if cfg.DatabaseURL != "" {
		logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))
	}

	// --- Shop credentials ---
	stopCleaner := make(chan struct{})
	var resolver shopify.ConfigResolver
	switch cfg.SecretSource {
	case config.SecretSourceAWS:
		awsProvider, err := secrets.NewAWSProvider(ctx, cfg.AWSRegion)
		if err != nil {
			logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
		}

		configCache := secrets.NewCache[shopify.ClientConfig](cfg.CacheTTL)
		configCache.OnAccess(metrics.IncCacheHit)
		go configCache.StartCleaner(cfg.CleanupFreq, stopCleaner)

		awsResolver := internalsecrets.NewShopifyResolver(
			logger.Named("secrets"),
			cfg.Env,
			cfg.APIVersion,
			cfg.ShopifyBaseURL,
			awsProvider,
			configCache,
		)

		shops, err := awsResolver.DiscoverShops(ctx)
		if err != nil {
			logg.Warnw("failed to discover shops from AWS Secrets Manager", "error", err)
		} else {
			logg.Infow("discovered shops", "count", len(shops), "shops", shops)
		}
		resolver = awsResolver
	default:
		resolver = internalsecrets.NewStaticResolver(logger.Named("secrets"), shopify.ClientConfig{
			Shop:        cfg.ShopName,
			ShopDomain:  cfg.ShopDomain,
			AccessToken: cfg.AccessToken,
			APIVersion:  cfg.APIVersion,
			BaseURL:     cfg.ShopifyBaseURL,
		})
	}

	// --- Rate limiter ---
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: cfg.RateRPS,
		Burst:             cfg.RateBurst,
		Cooldown:          1 * time.Second,
	})

	// --- Shopify HTTP client (config supplied per-request) ---
	shopifyClient := shopify.NewClient(logger.Named("shopify"), rateMgr, shopify.Options{
		Timeout:     cfg.UpstreamTimeout,
		ReadRetries: cfg.ReadRetries,
		Observer:    metrics.ShopifyObserver(shopify.Operation),
	})

	// --- Store (Redis + optional Postgres) ---
	st, err := store.NewHybrid(store.RedisConfig{
		Addr:     cfg.RedisAddr,
		DB:       cfg.RedisDB,
		Password: cfg.RedisPass,
	}, cfg.DatabaseURL, store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, logger.Named("store"))
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}

	// --- Mutation audit log ---
	var auditor catalog.Auditor
	if st.PG != nil {
		auditor = audit.NewMutationWriter(st.PG, logger.Named("audit"), cfg.ServiceName)
	} else {
		logg.Warn("DATABASE_URL not configured; mutation audit disabled")
	}

	// --- Event publisher ---
	var pub publisher.EventPublisher
	switch cfg.EventBroker {
	case config.BrokerNATS:
		nc, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
		if err != nil {
			logg.Fatalw("failed to connect to NATS", "error", err)
		}
		pub, err = publisher.NewNATS(nc, cfg.NATSStream, cfg.EventSubjectRoot, cfg.ServiceName, logger.Named("publisher"))
		if err != nil {
			logg.Fatalw("failed to init publisher", "error", err)
		}
	case config.BrokerRabbitMQ:
		pub, err = publisher.NewRabbitMQ(cfg.RabbitMQURL, cfg.RabbitMQExchange, cfg.ServiceName, logger.Named("publisher"))
		if err != nil {
			logg.Fatalw("failed to init publisher", "error", err)
		}
	default:
		logg.Warn("EVENT_BROKER=none; product events disabled")
		pub = publisher.Noop{}
	}
	emitter := publisher.NewEmitter(pub, cfg.EventSubjectRoot)

	// --- Catalog service ---
	catalogSvc := catalog.NewService(
		catalog.Options{
			Shop:           cfg.ShopName,
			PageSize:       cfg.PageSize,
			IdempotencyTTL: cfg.IdempotencyTTL,
		},
		logger.Named("catalog"),
		shopifyClient,
		resolver,
		st,
		emitter,
		auditor,
	)

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	productHandler := api.NewProductHandler(logger.Named("api"), catalogSvc)
	api.RegisterRoutes(app, map[string]api.HealthChecker{
		"store":  st,
		"broker": api.CheckFunc(func(context.Context) error { return pub.Healthy() }),
	}, productHandler)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow(fmt.Sprintf("[%s] running", cfg.ServiceName),
		"env", cfg.Env,
		"secret_source", cfg.SecretSource,
		"event_broker", cfg.EventBroker,
		"page_size", catalogSvc.PageSize())

	<-ctx.Done()
	logg.Infof("shutting down [%s]...", cfg.ServiceName)

	close(stopCleaner)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	pub.Close()
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
}
