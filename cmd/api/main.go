package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/insightball/backend/internal/auth"
	"github.com/insightball/backend/internal/storage"
	billingmod "github.com/insightball/backend/modules/billing"
	matchesmod "github.com/insightball/backend/modules/matches"
	"github.com/insightball/backend/pkg/billing"
	"github.com/insightball/backend/pkg/config"
	"github.com/insightball/backend/pkg/email"
	"github.com/insightball/backend/pkg/entitlement"
	"github.com/insightball/backend/pkg/httpserver"
	"github.com/insightball/backend/pkg/logger"
	"github.com/insightball/backend/pkg/pg"
	"github.com/insightball/backend/pkg/redis"
	"github.com/insightball/backend/pkg/tenant"
)

type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	ProductURL  string `env:"PRODUCT_URL" envDefault:"https://app.insightball.com"`

	// DevEmailDir is where the development mail sender drops rendered
	// messages when no Postmark token is configured.
	DevEmailDir string `env:"DEV_EMAIL_DIR" envDefault:"./tmp/emails"`

	// QuotaConfigFile optionally overrides the built-in plan quotas.
	QuotaConfigFile string `env:"QUOTA_CONFIG_FILE"`
}

func main() {
	ctx := context.Background()

	var (
		appCfg    appConfig
		httpCfg   httpserver.Config
		pgCfg     pg.Config
		redisCfg  redis.Config
		emailCfg  email.Config
		paddleCfg billing.PaddleConfig
		pricesCfg billing.Config
		authCfg   auth.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&emailCfg)
	config.MustLoad(&paddleCfg)
	config.MustLoad(&pricesCfg)
	config.MustLoad(&authCfg)

	log := logger.New(
		logger.WithEnvironment(appCfg.Environment, "insightball-api"),
		logger.WithContextExtractors(tenant.LoggerExtractor()),
		logger.WithContextValue("request_id", chimiddleware.RequestIDKey),
	)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		fatal(log, "postgres connection failed", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, storage.Migrations, storage.MigrationsDir, log); err != nil {
		fatal(log, "database migration failed", err)
	}

	// Redis only backs the webhook dedup fast path; the API runs without it.
	var deduper billing.Deduper = billing.NoopDeduper{}
	readiness := []func(context.Context) error{pg.Healthcheck(pool)}
	if redisClient, err := redis.Connect(ctx, redisCfg); err != nil {
		log.Warn("redis unavailable, webhook deduplication disabled", logger.Error(err))
	} else {
		defer redisClient.Close()
		deduper = billing.NewRedisDeduper(redisClient, 0)
		readiness = append(readiness, redis.Healthcheck(redisClient))
	}

	provider, err := billing.NewPaddleProvider(paddleCfg, pricesCfg)
	if err != nil {
		fatal(log, "paddle provider setup failed", err)
	}

	subjects := storage.NewSubjectsStore(pool)
	clubs := storage.NewClubsStore(pool)
	matches := storage.NewMatchesStore(pool)

	quotaCfg := entitlement.DefaultConfig()
	if appCfg.QuotaConfigFile != "" {
		quotaCfg, err = entitlement.LoadConfigFile(appCfg.QuotaConfigFile)
		if err != nil {
			fatal(log, "quota configuration invalid", err)
		}
	}
	evaluator, err := entitlement.NewEvaluator(quotaCfg)
	if err != nil {
		fatal(log, "entitlement configuration invalid", err)
	}
	gate := entitlement.NewGate(evaluator, subjects, matches,
		entitlement.WithLogger(log.With(logger.Component("entitlement"))))

	var sender email.EmailSender
	if emailCfg.PostmarkServerToken != "" {
		sender = email.MustNewPostmarkClient(emailCfg)
	} else {
		log.Warn("no postmark token configured, writing emails to disk",
			slog.String("dir", appCfg.DevEmailDir))
		sender = email.NewDevSender(appCfg.DevEmailDir)
	}

	ingestor := billing.NewIngestor(subjects,
		billing.WithIngestorLogger(log.With(logger.Component("billing.ingestor"))),
		billing.WithTrialNotifier(email.NewTrialReminder(sender, appCfg.ProductURL)))

	billingSvc := billing.NewService(pricesCfg, quotaCfg, provider, subjects,
		billing.WithServiceLogger(log.With(logger.Component("billing"))))

	resolver := tenant.NewResolver(clubs,
		tenant.WithResolverLogger(log.With(logger.Component("tenant"))))

	tokens, err := auth.NewTokenService(authCfg)
	if err != nil {
		fatal(log, "auth token setup failed", err)
	}

	billingModule := billingmod.NewService(billingSvc, ingestor, provider,
		billingmod.WithLogger(log.With(logger.Component("modules.billing"))),
		billingmod.WithDeduper(deduper))
	matchesModule := matchesmod.NewService(gate, matches,
		matchesmod.WithLogger(log.With(logger.Component("modules.matches"))))

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", httpserver.HealthCheckHandler(ctx, log, readiness...))

	// Provider webhooks authenticate by signature, not bearer token.
	r.Method(http.MethodPost, "/webhooks/paddle", billingModule.HandleWebhook())

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware(tokens))
		r.Mount("/billing", billingModule.Handle())

		r.Group(func(r chi.Router) {
			r.Use(tenant.Middleware(resolver, auth.Identity()))
			r.Mount("/matches", matchesModule.Handle())
		})
	})

	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("api listening", slog.String("addr", httpCfg.Addr),
				slog.String("environment", appCfg.Environment))
		}),
		httpserver.WithStopHook(func(l *slog.Logger) {
			l.Info("api stopped")
		}))

	if err := srv.Run(ctx, r); err != nil {
		fatal(log, "server terminated", err)
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, logger.Error(err))
	os.Exit(1)
}
