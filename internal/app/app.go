package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-storefront/internal/domain/auth"
	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/checkout"
	"github.com/xenking/kart-storefront/internal/domain/wishlist"
	"github.com/xenking/kart-storefront/internal/handler"
	"github.com/xenking/kart-storefront/internal/orderapi"
	"github.com/xenking/kart-storefront/internal/storage"
	"github.com/xenking/kart-storefront/pkg/broadcast"
	"github.com/xenking/kart-storefront/pkg/health"
	"github.com/xenking/kart-storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the agent.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
	)

	rates, err := cfg.Checkout.Rates()
	if err != nil {
		return errors.Wrap(err, "checkout rates")
	}

	store, err := OpenStorage(ctx, cfg.Storage, lg)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer store.Close()

	// Health check service.
	healthSvc := health.New(lg.Named("health"))
	for _, c := range store.Checks {
		healthSvc.Register(c)
	}
	healthSvc.Register(health.Check{
		Name:    "goroutines",
		Kind:    health.Liveness,
		Timeout: time.Second,
		Func:    health.GoroutineCountCheck(10000),
	})
	healthSvc.Start(ctx, 10*time.Second)
	defer healthSvc.Stop()

	// Domain services.
	bus := broadcast.NewBus()
	cartSvc := cart.NewService(
		cart.NewStore(store.KV, storage.KeyCart, lg.Named("cart")),
		bus.CartChanged, rates, lg.Named("cart"),
	)
	wishlistSvc := wishlist.NewService(
		cart.NewStore(store.KV, storage.KeyWishlist, lg.Named("wishlist")),
		bus.WishlistChanged, lg.Named("wishlist"),
	)
	sessions := auth.NewSessions(store.KV)

	orders, err := orderapi.New(cfg.OrderAPI.BaseURL, orderapi.Options{
		Timeout:        cfg.OrderAPI.Timeout,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	}, lg.Named("orderapi"))
	if err != nil {
		return errors.Wrap(err, "create order api client")
	}

	flow := checkout.NewFlow(cartSvc, sessions, orders, store.Receipts, checkout.Config{
		LoginPath:      cfg.Checkout.LoginPath,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	}, lg.Named("checkout"))

	// HTTP handlers.
	h := handler.New(
		handler.Config{Locale: cfg.Locale},
		cartSvc,
		wishlistSvc,
		sessions,
		flow,
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Router(
		httpmiddleware.LogRequests(),
		httpmiddleware.Labeler(),
	))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Event streams clear their own write deadline.
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Idempotency-Key", httpmiddleware.HeaderRequestID},
				ExposeHeaders:    []string{httpmiddleware.HeaderRequestID},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.RequestID(),
			httpmiddleware.Instrument("kart-agent", m),
		),
	}
	server.RegisterOnShutdown(h.CloseStreams)
	healthSvc.SetReady(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	// Graceful shutdown: wait for cancellation, drain, then stop.
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}
