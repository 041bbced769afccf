package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/commtype/api/internal/api"
	"github.com/commtype/api/internal/billing"
	"github.com/commtype/api/internal/coupon"
	"github.com/commtype/api/internal/progress"
	"github.com/commtype/api/internal/review"
	"github.com/commtype/api/internal/support"
	"github.com/commtype/api/pkg/config"
	"github.com/commtype/api/pkg/email"
	"github.com/commtype/api/pkg/httpserver"
	"github.com/commtype/api/pkg/logger"
	"github.com/commtype/api/pkg/pg"
	"github.com/commtype/api/pkg/ratelimit"
	"github.com/commtype/api/pkg/redis"
)

type rateLimitConfig struct {
	Backend string        `env:"RATELIMIT_BACKEND" envDefault:"memory"`
	Limit   int           `env:"SUPPORT_RATE_LIMIT" envDefault:"3"`
	Window  time.Duration `env:"SUPPORT_RATE_WINDOW" envDefault:"10m"`
}

func main() {
	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.NewFromConfig(logCfg, logger.WithAttr(slog.String("service", "commtype-api")))

	if err := run(context.Background(), log); err != nil {
		log.Error("service terminated", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	var (
		httpCfg    httpserver.Config
		pgCfg      pg.Config
		emailCfg   email.Config
		billingCfg billing.Config
		paddleCfg  billing.PaddleConfig
		supportCfg support.Config
		rlCfg      rateLimitConfig
	)
	config.MustLoad(&httpCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&emailCfg)
	config.MustLoad(&billingCfg)
	config.MustLoad(&paddleCfg)
	config.MustLoad(&supportCfg)
	config.MustLoad(&rlCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	healthChecks := []httpserver.HealthCheck{
		{Name: "postgres", Check: pg.Healthcheck(pool)},
	}

	var limitStore ratelimit.Store
	switch rlCfg.Backend {
	case "redis":
		var redisCfg redis.Config
		config.MustLoad(&redisCfg)
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		limitStore = ratelimit.NewRedisStore(client, "ratelimit")
		healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "redis", Check: redis.Healthcheck(client)})
	default:
		memStore := ratelimit.NewMemoryStore()
		defer memStore.Close()
		limitStore = memStore
	}

	limiter, err := ratelimit.New(limitStore, rlCfg.Limit, rlCfg.Window)
	if err != nil {
		return err
	}

	var sender email.Sender
	if emailCfg.PostmarkServerToken != "" {
		sender, err = email.NewPostmarkSender(emailCfg)
		if err != nil {
			return err
		}
	} else {
		log.Warn("postmark tokens absent, writing emails to disk", "dir", emailCfg.DevDir)
		sender = email.NewDevSender(emailCfg.DevDir)
	}

	paddleProvider, err := billing.NewPaddleProvider(paddleCfg)
	if err != nil {
		return err
	}

	billingStore := billing.NewStore(pool)
	couponStore := coupon.NewStore(pool)

	router := api.NewRouter(api.Deps{
		Redemption:   billing.NewRedemptionService(billingStore, billingCfg, log),
		Checkout:     billing.NewCheckoutService(paddleProvider, billingStore, log),
		Webhooks:     billing.NewWebhookReceiver(paddleProvider, billingStore, log),
		Coupons:      coupon.NewService(couponStore, log),
		Support:      support.NewIntakeService(support.NewStore(pool), limiter, sender, supportCfg, log),
		Progress:     progress.NewService(progress.NewStore(pool), log),
		Reviews:      review.NewService(review.NewStore(pool), log),
		HealthChecks: healthChecks,
		Log:          log,
	})

	srv := httpserver.New(httpCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, router)
}
