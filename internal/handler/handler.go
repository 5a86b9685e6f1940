// Package handler exposes the cart agent over HTTP. UI components read state
// with the GET endpoints and subscribe to /api/events; every mutation goes
// through the domain services, which persist first and then signal.
package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/kart-storefront/internal/domain/auth"
	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/checkout"
	"github.com/xenking/kart-storefront/internal/domain/wishlist"
	"github.com/xenking/kart-storefront/pkg/httpmiddleware"
)

// maxBodyBytes bounds request bodies; carts and forms are small.
const maxBodyBytes = 64 << 10

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// Heartbeat is the interval of keep-alive comments on event streams.
	// Defaults to 15s.
	Heartbeat time.Duration
	// Locale selects amount formatting, e.g. "en-US".
	Locale string
}

// Handler serves the cart agent API.
type Handler struct {
	cart      *cart.Service
	wishlist  *wishlist.Service
	sessions  *auth.Sessions
	checkout  *checkout.Flow
	formatter *cart.Formatter
	heartbeat time.Duration

	closing   chan struct{}
	closeOnce sync.Once
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	cartSvc *cart.Service,
	wishlistSvc *wishlist.Service,
	sessions *auth.Sessions,
	flow *checkout.Flow,
) *Handler {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 15 * time.Second
	}
	return &Handler{
		cart:      cartSvc,
		wishlist:  wishlistSvc,
		sessions:  sessions,
		checkout:  flow,
		formatter: cart.NewFormatter(cfg.Locale),
		heartbeat: cfg.Heartbeat,
		closing:   make(chan struct{}),
	}
}

// CloseStreams ends every open event stream. Register it with
// http.Server.RegisterOnShutdown: Shutdown does not cancel active requests.
func (h *Handler) CloseStreams() {
	h.closeOnce.Do(func() { close(h.closing) })
}

// Router returns the API routes under /api. Route-aware middlewares (request
// logging, span naming) run inside the router.
func (h *Handler) Router(middlewares ...httpmiddleware.Middleware) chi.Router {
	r := chi.NewRouter()
	for _, m := range middlewares {
		r.Use(m)
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/cart", h.GetCart)
		r.Delete("/cart", h.ClearCart)
		r.Post("/cart/items", h.AddCartItem)
		r.Post("/cart/items/{id}/increase", h.IncreaseCartItem)
		r.Post("/cart/items/{id}/decrease", h.DecreaseCartItem)
		r.Delete("/cart/items/{id}", h.RemoveCartItem)

		r.Get("/wishlist", h.GetWishlist)
		r.Post("/wishlist", h.AddWishlistItem)
		r.Delete("/wishlist/items/{id}", h.RemoveWishlistItem)
		r.Post("/wishlist/items/{id}/toggle", h.ToggleWishlistItem)

		r.Get("/session", h.GetSession)
		r.Post("/session", h.Login)
		r.Delete("/session", h.Logout)

		r.Post("/checkout", h.Checkout)
		r.Get("/orders/{id}", h.GetOrder)
		r.Post("/orders/{id}/cancel", h.CancelOrder)

		r.Get("/events", h.Events)
	})
	return r
}
