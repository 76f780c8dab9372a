// Command notifyd runs the notifykit scheduler together with its operational
// HTTP surface.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/pkg/analytics"
	"github.com/dmitrymomot/notifykit/pkg/audience"
	"github.com/dmitrymomot/notifykit/pkg/config"
	"github.com/dmitrymomot/notifykit/pkg/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/pgstore"
	"github.com/dmitrymomot/notifykit/pkg/preference"
	"github.com/dmitrymomot/notifykit/pkg/redis"
	"github.com/dmitrymomot/notifykit/pkg/webhook"
)

type appConfig struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"APP_NAME" envDefault:"notifyd"`

	HTTP      httpserver.Config
	Postgres  pg.Config
	Redis     redis.Config
	Scheduler dispatch.Config
	Webhooks  webhook.Defaults
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.ServiceName),
		logger.WithContextValue("request_id", middleware.RequestIDKey),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.LogAttrs(ctx, slog.LevelError, "notifyd stopped with error", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg.Postgres, log); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.LogAttrs(ctx, slog.LevelError, "failed to close redis client", logger.Error(err))
		}
	}()

	var (
		directory = pgstore.NewDirectory(pool)
		webhooks  = pgstore.NewWebhookStore(pool)
		renderer  = webhook.NewRenderer(cfg.Webhooks.Source)
		sender    = webhook.NewSender(webhook.WithDefaults(cfg.Webhooks))
	)

	manager := notifications.NewManager(
		pgstore.NewNotificationStore(pool),
		notifications.NewRedisDeliverer(rdb),
		notifications.WithManagerLogger(log),
		notifications.WithConcurrency(cfg.Scheduler.WorkerConcurrency),
	)

	engine, err := dispatch.NewEngine(dispatch.Deps{
		Schedules:   pgstore.NewScheduleStore(pool),
		Audience:    audience.NewResolver(directory),
		Preferences: preference.NewResolver(pgstore.NewPreferenceStore(pool), preference.DefaultTable(), directory),
		InApp:       manager,
		Webhooks:    webhooks,
		Retrier:     webhook.NewRetrier(sender, webhooks, webhook.WithRetrierLogger(log)),
		Renderer:    renderer,
		Analytics:   analytics.NewRecorder(pgstore.NewAnalyticsStore(pool), analytics.WithLogger(log)),
	},
		dispatch.WithConfig(cfg.Scheduler),
		dispatch.WithLocker(dispatch.NewRedisLocker(rdb)),
		dispatch.WithLogger(log),
	)
	if err != nil {
		return err
	}

	scheduler := dispatch.NewScheduler(engine,
		dispatch.WithInterval(cfg.Scheduler.SchedulerInterval),
		dispatch.WithExpirySweep(cfg.Scheduler.ExpirySweep),
		dispatch.WithSchedulerLogger(log),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)
	r.Get("/healthz", httpserver.Liveness())
	r.Get("/readyz", httpserver.Readiness(log,
		httpserver.Check{Name: "postgres", Probe: pg.Healthcheck(pool)},
		httpserver.Check{Name: "redis", Probe: redis.Healthcheck(rdb)},
	))
	r.Post("/scheduled/process", processScheduled(engine))

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(scheduler.Run(ctx))
	g.Go(func() error { return srv.Run(ctx, r) })
	return g.Wait()
}

// processScheduled triggers a scan outside the ticker. An overlapping scan
// answers 409. The scan outlives a disconnected client.
func processScheduled(engine *dispatch.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := engine.ProcessScheduledNotifications(context.WithoutCancel(r.Context()))
		switch {
		case errors.Is(err, dispatch.ErrScanInProgress):
			httpserver.WriteJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case err != nil:
			httpserver.WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error(), "result": res})
		default:
			httpserver.WriteJSON(w, http.StatusOK, res)
		}
	}
}
