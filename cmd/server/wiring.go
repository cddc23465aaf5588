package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	cataloghandler "kycgate/internal/catalog/handler"
	catalogsvc "kycgate/internal/catalog/service"
	catalogstore "kycgate/internal/catalog/store"
	couponhandler "kycgate/internal/coupon/handler"
	couponsvc "kycgate/internal/coupon/service"
	couponstore "kycgate/internal/coupon/store"
	"kycgate/internal/entitlement"
	entcache "kycgate/internal/entitlement/cache"
	enthandler "kycgate/internal/entitlement/handler"
	entmetrics "kycgate/internal/entitlement/metrics"
	entsvc "kycgate/internal/entitlement/service"
	jwttoken "kycgate/internal/jwt_token"
	"kycgate/internal/platform/config"
	"kycgate/internal/platform/kafka"
	"kycgate/internal/platform/migrations"
	"kycgate/internal/platform/postgres"
	"kycgate/internal/platform/redis"
	ratemetrics "kycgate/internal/ratelimit/metrics"
	ratemw "kycgate/internal/ratelimit/middleware"
	ratemodels "kycgate/internal/ratelimit/models"
	"kycgate/internal/ratelimit/store/bucket"
	subhandler "kycgate/internal/subscription/handler"
	subsvc "kycgate/internal/subscription/service"
	substore "kycgate/internal/subscription/store"
	httptransport "kycgate/internal/transport/http"
	"kycgate/internal/verification"
	verhandler "kycgate/internal/verification/handler"
	vermetrics "kycgate/internal/verification/metrics"
	"kycgate/internal/verification/provider"
	versvc "kycgate/internal/verification/service"
	verstore "kycgate/internal/verification/store"
	audit "kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/audit/publisher"
	kafkasink "kycgate/pkg/platform/audit/publishers/kafka"
	auditmemory "kycgate/pkg/platform/audit/store/memory"
	"kycgate/pkg/platform/tx"
)

const (
	auditBufferSize        = 1024
	auditTopicPartitions   = 3
	auditTopicReplicaCount = 1
)

type application struct {
	router  http.Handler
	storage string
	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

type stores struct {
	services      catalogsvc.ServiceStore
	plans         catalogsvc.PlanStore
	coupons       couponsvc.Store
	subscriptions subsvc.Store
	transactor    subsvc.Transactor
	history       versvc.Store
}

func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*application, error) {
	app := &application{storage: "memory"}
	checks := map[string]httptransport.HealthCheck{}

	st, err := openStores(ctx, cfg, log, app, checks)
	if err != nil {
		app.Close()
		return nil, err
	}

	auditPublisher, err := openAudit(ctx, cfg, log, app)
	if err != nil {
		app.Close()
		return nil, err
	}

	cache, buckets, err := openRedis(ctx, cfg, log, app, checks)
	if err != nil {
		app.Close()
		return nil, err
	}

	// The catalog and subscription services notify the entitlement service,
	// which in turn reads from both. hooks is bound once it exists.
	hooks := &entitlementHooks{}

	catalogService, err := catalogsvc.New(st.services, st.plans,
		catalogsvc.WithLogger(log),
		catalogsvc.WithAuditPublisher(auditPublisher),
		catalogsvc.WithChangeListener(hooks),
	)
	if err != nil {
		app.Close()
		return nil, err
	}

	subscriptionService, err := subsvc.New(st.subscriptions,
		subsvc.WithLogger(log),
		subsvc.WithAuditPublisher(auditPublisher),
		subsvc.WithTransactor(st.transactor),
		subsvc.WithEntitlementInvalidator(hooks),
	)
	if err != nil {
		app.Close()
		return nil, err
	}

	couponService, err := couponsvc.New(st.coupons,
		couponsvc.WithLogger(log),
		couponsvc.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		app.Close()
		return nil, err
	}

	resolver := entitlement.NewResolver(
		entitlement.WithDynamicPlanPrice(cfg.Entitlement.DynamicPlanPrice),
		entitlement.WithPricingMode(entitlement.PricingMode(cfg.Entitlement.Pricing)),
	)
	entitlementService, err := entsvc.New(subscriptionService, catalogService,
		entsvc.WithResolver(resolver),
		entsvc.WithCache(cache, cfg.Entitlement.CacheTTL),
		entsvc.WithCouponQuoter(couponService),
		entsvc.WithLogger(log),
		entsvc.WithMetrics(entmetrics.New()),
	)
	if err != nil {
		app.Close()
		return nil, err
	}
	hooks.bind(entitlementService)

	verificationMetrics := vermetrics.New()
	providerClient, err := provider.New(cfg.Provider.BaseURL, cfg.Provider.APIKey,
		provider.WithTimeout(cfg.Provider.Timeout),
		provider.WithBreaker(cfg.Provider.BreakerMaxFailures, cfg.Provider.BreakerOpenTimeout),
		provider.WithLogger(log),
		provider.WithMetrics(verificationMetrics),
	)
	if err != nil {
		app.Close()
		return nil, err
	}
	hasher, err := verification.NewSubjectHasher([]byte(cfg.Verification.SubjectHashKey))
	if err != nil {
		app.Close()
		return nil, err
	}
	verificationService, err := versvc.New(catalogService, entitlementService, providerClient, st.history,
		versvc.WithSubjectHasher(hasher),
		versvc.WithHistoryLimit(cfg.Verification.HistoryLimit),
		versvc.WithLogger(log),
		versvc.WithAuditPublisher(auditPublisher),
		versvc.WithMetrics(verificationMetrics),
	)
	if err != nil {
		app.Close()
		return nil, err
	}

	limiter := ratemw.New(buckets, log,
		ratemw.WithDisabled(cfg.RateLimit.Disabled),
		ratemw.WithMetrics(ratemetrics.New()),
	)
	verificationLimit := ratemodels.Limit{
		RequestsPerWindow: cfg.RateLimit.VerificationsPerWindow,
		Window:            cfg.RateLimit.Window,
	}

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)

	catalogHandler := cataloghandler.New(catalogService, log)
	couponHandler := couponhandler.New(couponService, log)
	subscriptionHandler := subhandler.New(subscriptionService, log)

	app.router = httptransport.NewRouter(httptransport.Config{
		Logger:     log,
		Validator:  jwttoken.NewJWTServiceAdapter(jwtService),
		AdminToken: cfg.Server.AdminToken,
		Public:     []httptransport.Registrar{catalogHandler},
		Authenticated: []httptransport.Registrar{
			enthandler.New(entitlementService, log),
			verhandler.New(verificationService, log,
				verhandler.WithExecuteMiddleware(limiter.PerUser(ratemodels.ClassVerification, verificationLimit))),
			subscriptionHandler,
			couponHandler,
		},
		Admin: []httptransport.AdminRegistrar{
			catalogHandler,
			couponHandler,
			subscriptionHandler,
		},
		HealthChecks: checks,
	})
	return app, nil
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger, app *application, checks map[string]httptransport.HealthCheck) (*stores, error) {
	if cfg.Database.URL == "" {
		return &stores{
			services:      catalogstore.NewInMemoryServiceStore(),
			plans:         catalogstore.NewInMemoryPlanStore(),
			coupons:       couponstore.NewInMemoryStore(),
			subscriptions: substore.NewInMemoryStore(),
			transactor:    tx.NewLocalTransactor(),
			history:       verstore.NewInMemoryStore(),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func() { _ = db.Close() })
	if err := migrations.Up(db, log); err != nil {
		return nil, err
	}

	pool, err := postgres.OpenPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, pool.Close)

	checks["postgres"] = db.PingContext
	app.storage = "postgres"
	return postgresStores(db, pool), nil
}

func postgresStores(db *sql.DB, pool *pgxpool.Pool) *stores {
	return &stores{
		services:      catalogstore.NewPostgresServiceStore(db),
		plans:         catalogstore.NewPostgresPlanStore(db),
		coupons:       couponstore.NewPostgresStore(db),
		subscriptions: substore.NewPostgresStore(db),
		transactor:    tx.NewSQLTransactor(db),
		history:       verstore.NewPostgresStore(pool),
	}
}

// openRedis backs the entitlement cache and the rate limit buckets with Redis
// when configured, and with process memory otherwise.
func openRedis(ctx context.Context, cfg config.Config, log *slog.Logger, app *application, checks map[string]httptransport.HealthCheck) (entsvc.Cache, ratemw.BucketStore, error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Info("entitlement cache and rate limits: in-process")
		return entcache.NewMemoryCache(), bucket.NewInMemoryBucketStore(), nil
	}
	app.closers = append(app.closers, func() { _ = client.Close() })
	checks["redis"] = client.Health
	log.Info("entitlement cache and rate limits: redis")
	return entcache.NewRedisCache(client.Client), bucket.NewRedisBucketStore(client.Client), nil
}

// openAudit publishes to Kafka when brokers are configured and keeps events
// in process otherwise.
func openAudit(ctx context.Context, cfg config.Config, log *slog.Logger, app *application) (audit.Publisher, error) {
	var store audit.Store = auditmemory.NewInMemoryStore()

	client, err := kafka.NewClient(ctx, cfg.Kafka)
	if err != nil {
		return nil, err
	}
	if client != nil {
		app.closers = append(app.closers, client.Close)
		if err := kafka.EnsureTopic(ctx, client, cfg.Kafka.AuditTopic, auditTopicPartitions, auditTopicReplicaCount); err != nil {
			return nil, err
		}
		sink, err := kafkasink.NewSink(client, cfg.Kafka.AuditTopic)
		if err != nil {
			return nil, fmt.Errorf("audit sink: %w", err)
		}
		store = sink
		log.Info("audit: kafka", "topic", cfg.Kafka.AuditTopic)
	}

	pub := publisher.NewPublisher(store,
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithLogger(log),
	)
	app.closers = append(app.closers, func() { _ = pub.Close() })
	return pub, nil
}
