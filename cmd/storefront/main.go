package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Nagulan13/oboma/internal/auth"
	"github.com/Nagulan13/oboma/internal/cart"
	"github.com/Nagulan13/oboma/internal/checkout"
	"github.com/Nagulan13/oboma/internal/clients"
	"github.com/Nagulan13/oboma/internal/config"
	"github.com/Nagulan13/oboma/internal/db"
	"github.com/Nagulan13/oboma/internal/events"
	"github.com/Nagulan13/oboma/internal/feedback"
	httpserver "github.com/Nagulan13/oboma/internal/http"
	"github.com/Nagulan13/oboma/internal/logging"
	"github.com/Nagulan13/oboma/internal/menu"
	"github.com/Nagulan13/oboma/internal/order"
	"github.com/Nagulan13/oboma/internal/payment"
	"github.com/Nagulan13/oboma/internal/realtime"
	"github.com/Nagulan13/oboma/internal/report"
	"github.com/Nagulan13/oboma/internal/sequence"
	"github.com/Nagulan13/oboma/internal/settings"
	"github.com/Nagulan13/oboma/internal/staffing"
)

// notifier is what every component publishes document snapshots through.
type notifier interface {
	Notify(ctx context.Context, path string, doc any) error
	NotifyDeleted(ctx context.Context, path string) error
}

type orderEvents interface {
	PublishOrderCreated(ctx context.Context, o order.Order) error
	PublishOrderStatusChanged(ctx context.Context, o order.Order, from order.Status) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.New("info", "json")
		l.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("storefront stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logging.Component(logger, "migrate")); err != nil {
			return err
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	sqlDB, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	loc, err := time.LoadLocation(cfg.ReportTimezone)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(logging.Component(logger, "realtime"))
	g, gctx := errgroup.WithContext(ctx)

	// With RabbitMQ every write goes through the broker and comes back to the
	// hub through the relay, so all instances see the same sequence.
	var (
		notify    notifier    = hub
		publisher orderEvents = events.NewLogPublisher(logging.Component(logger, "events"))
	)
	if cfg.RabbitMQURL != "" {
		conn, err := events.Dial(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer conn.Close()

		pub, err := events.NewPublisher(conn, sequence.NewRepository(sqlDB), "", logging.Component(logger, "events"))
		if err != nil {
			return err
		}
		defer pub.Close()
		notify, publisher = pub, pub

		relay := events.NewRelay(conn, hub, logging.Component(logger, "relay"))
		g.Go(func() error { return relay.Run(gctx) })
	} else {
		logger.Warn().Msg("RABBITMQ_URL not set; snapshots stay in this process")
	}

	var cache settings.Cache
	if cfg.RedisAddr != "" {
		rdb, err := settings.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		cache = rdb
	}

	httpClient := &http.Client{Timeout: cfg.UpstreamTimeout}
	gatewayBase, err := clients.NewClient("payment-gateway", cfg.PaymentGatewayURL, httpClient)
	if err != nil {
		return err
	}
	notifyBase, err := clients.NewClient("notify", cfg.NotifyURL, httpClient)
	if err != nil {
		return err
	}
	mailer := clients.NewMailer(clients.NewNotifyClient(notifyBase), cfg.UpstreamTimeout, logging.Component(logger, "mailer"))

	menus := menu.NewService(menu.NewPostgresRepository(pool), notify, logging.Component(logger, "menu"))
	carts := cart.NewManager(cart.NewPostgresRepository(pool), menus, notify, logging.Component(logger, "cart"))
	orders := order.NewRepository(sqlDB)
	payments := payment.NewRepository(sqlDB)
	status := order.NewStatusService(orders, notify, publisher, logging.Component(logger, "order"))

	orch := checkout.NewOrchestrator(checkout.Deps{
		Carts:    carts,
		Gateway:  clients.NewPaymentGatewayClient(gatewayBase),
		Orders:   orders,
		Payments: payments,
		Notifier: notify,
		Events:   publisher,
	}, cfg.CheckoutAttemptTTL, logging.Component(logger, "checkout"))

	feedbacks := feedback.NewService(feedback.NewPostgresRepository(pool), orders, notify, logging.Component(logger, "feedback"))

	toggles := settings.NewBroadcaster(settings.NewPostgresStore(pool), cache, cfg.SettingsCacheTTL, notify, logging.Component(logger, "settings"))
	settingsSub := hub.Subscribe(settings.Path)
	defer settingsSub.Close()

	staff := staffing.NewService(staffing.NewPostgresRepository(pool), toggles, mailer, notify, logging.Component(logger, "staffing"))
	reports := report.NewService(orders, loc)

	router := httpserver.NewRouter(httpserver.Deps{
		Menu:        menus,
		Carts:       carts,
		Checkout:    orch,
		Orders:      orders,
		Payments:    payments,
		Status:      status,
		Feedback:    feedbacks,
		Settings:    toggles,
		Staffing:    staff,
		Reports:     reports,
		Hub:         hub,
		Tokens:      auth.NewVerifier(cfg.JWTSecret),
		Logger:      logging.Component(logger, "http"),
		CORSOrigins: cfg.CORSAllowOrigins,
	})

	// No write timeout: WebSocket streams stay open and set their own deadlines.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g.Go(func() error { return orch.RunSweeper(gctx, time.Minute) })
	g.Go(func() error {
		toggles.Follow(gctx, settingsSub.C())
		return nil
	})
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("storefront listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
