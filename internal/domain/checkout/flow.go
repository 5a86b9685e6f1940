// Package checkout drives an order from a non-empty cart to a placed order:
// form validation, the authentication gate, submission to the order API and
// clearing the cart on success.
package checkout

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/domain/auth"
	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/receipt"
	"github.com/xenking/kart-storefront/pkg/broadcast"
)

const instrumentationName = "github.com/xenking/kart-storefront/internal/domain/checkout"

// Config holds non-dependency settings for a Flow.
type Config struct {
	// LoginPath is where an unauthenticated shopper is sent. Defaults to "/login".
	LoginPath      string
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Result describes how a submission that reached the auth gate ended.
type Result struct {
	State   State
	Failure Failure
	// Message is user-facing text for failed submissions.
	Message string
	OrderID string
	Totals  cart.Totals
	// RedirectTo is the view to show next: the order confirmation on
	// success, the login flow when unauthenticated.
	RedirectTo string
}

// Flow is the checkout state machine. At most one submission runs at a time.
type Flow struct {
	cart      *cart.Service
	gate      auth.Gate
	orders    OrderAPI
	receipts  receipt.Repository
	loginPath string
	lg        *zap.Logger

	tracer      trace.Tracer
	submissions metric.Int64Counter
	now         func() time.Time
	newKey      func() string

	inFlight atomic.Bool
	states   *broadcast.Topic[State]

	mu    sync.Mutex
	state State

	// Idempotency key of the last failed request, reused when the identical
	// request is retried. Only touched by the in-flight submission.
	lastReq *OrderRequest
	lastKey string
}

// NewFlow creates a checkout Flow.
func NewFlow(
	cartSvc *cart.Service,
	gate auth.Gate,
	orders OrderAPI,
	receipts receipt.Repository,
	cfg Config,
	lg *zap.Logger,
) *Flow {
	if lg == nil {
		lg = zap.NewNop()
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = tracenoop.NewTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = metricnoop.NewMeterProvider()
	}

	counter, err := cfg.MeterProvider.Meter(instrumentationName).Int64Counter(
		"checkout.submissions",
		metric.WithDescription("Checkout submissions by outcome"),
	)
	if err != nil {
		lg.Warn("Create checkout counter", zap.Error(err))
		counter = metricnoop.Int64Counter{}
	}

	return &Flow{
		cart:        cartSvc,
		gate:        gate,
		orders:      orders,
		receipts:    receipts,
		loginPath:   cfg.LoginPath,
		lg:          lg,
		tracer:      cfg.TracerProvider.Tracer(instrumentationName),
		submissions: counter,
		now:         time.Now,
		newKey:      func() string { return uuid.New().String() },
		states:      broadcast.NewTopic[State](broadcast.TopicCheckoutState),
	}
}

// State returns the current machine state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// States returns the topic every state transition is published on.
func (f *Flow) States() *broadcast.Topic[State] {
	return f.states
}

// Submit runs one checkout attempt for draft against the current cart.
//
// It returns ErrSubmissionInProgress, ErrEmptyCart or a *ValidationError
// without contacting the order API. Every outcome past validation, including
// authentication, rejection and network failures, is reported through the
// Result with a nil error.
func (f *Flow) Submit(ctx context.Context, draft Draft) (*Result, error) {
	if !f.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInProgress
	}
	defer f.inFlight.Store(false)

	ctx, span := f.tracer.Start(ctx, "checkout.Submit")
	defer span.End()

	if f.cart.Load(ctx).IsEmpty() {
		f.transition(StateIdle)
		f.record(ctx, span, "empty_cart")
		return nil, ErrEmptyCart
	}

	f.transition(StateValidating)
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		f.transition(StateIdle)
		f.record(ctx, span, "invalid")
		return nil, err
	}

	f.transition(StateAuthChecking)
	token, err := f.gate.Credential(ctx)
	if err != nil {
		if !errors.Is(err, auth.ErrUnauthenticated) {
			f.lg.Warn("Read credential failed", zap.Error(err))
		}
		f.forgetKey()
		return f.fail(ctx, span, FailureUnauthenticated, MessageUnauthenticated), nil
	}

	f.transition(StateSubmitting)
	// Items come from the cart as it is now, not as it was when the form opened.
	lines := f.cart.Load(ctx)
	if lines.IsEmpty() {
		f.transition(StateIdle)
		f.record(ctx, span, "empty_cart")
		return nil, ErrEmptyCart
	}
	req := buildRequest(draft, lines)
	key := f.idempotencyKey(req)
	totals := cart.ComputeTotals(lines, f.cart.Rates())
	span.SetAttributes(
		attribute.Int("cart.lines", len(lines)),
		attribute.String("checkout.total", totals.Total.String()),
	)

	// The response is processed even if the caller stops waiting for it.
	callCtx := context.WithoutCancel(ctx)
	placed, err := f.orders.PlaceOrder(callCtx, token, key, req)
	if err != nil {
		return f.submitFailed(callCtx, span, err), nil
	}
	f.forgetKey()

	if err := f.cart.Clear(callCtx); err != nil {
		// The order exists server-side; reporting a failure here would invite
		// a duplicate submission.
		f.lg.Error("Clear cart after order", zap.String("order_id", placed.ID), zap.Error(err))
	}
	if err := f.receipts.Save(callCtx, &receipt.Receipt{
		OrderID:         placed.ID,
		Status:          receipt.StatusPlaced,
		CustomerName:    draft.CustomerName,
		DeliveryAddress: draft.DeliveryAddress,
		DeliveryCity:    draft.DeliveryCity,
		Lines:           lines,
		Totals:          totals,
		PlacedAt:        f.now(),
	}); err != nil {
		f.lg.Error("Save receipt", zap.String("order_id", placed.ID), zap.Error(err))
	}

	f.transition(StateSuccess)
	f.record(ctx, span, "success")
	f.lg.Info("Order placed",
		zap.String("order_id", placed.ID),
		zap.Int("lines", len(lines)),
		zap.String("total", totals.Total.String()),
	)

	return &Result{
		State:      StateSuccess,
		OrderID:    placed.ID,
		Totals:     totals,
		RedirectTo: "/orders/" + url.PathEscape(placed.ID),
	}, nil
}

func (f *Flow) submitFailed(ctx context.Context, span trace.Span, err error) *Result {
	span.RecordError(err)

	if errors.Is(err, ErrUnauthorized) {
		f.forgetKey()
		if err := f.gate.Invalidate(ctx); err != nil {
			f.lg.Warn("Invalidate credential", zap.Error(err))
		}
		return f.fail(ctx, span, FailureUnauthenticated, MessageUnauthenticated)
	}

	var rejected *RejectedError
	if errors.As(err, &rejected) {
		f.lg.Info("Order rejected",
			zap.Int("status", rejected.StatusCode),
			zap.String("message", rejected.Message),
		)
		// Only a 5xx keeps the key for a retry.
		if rejected.StatusCode < http.StatusInternalServerError {
			f.forgetKey()
		}
		msg := rejected.Message
		if msg == "" {
			msg = MessageSubmitFailed
		}
		return f.fail(ctx, span, FailureRejected, msg)
	}

	f.lg.Warn("Order submission failed", zap.Error(err))
	return f.fail(ctx, span, FailureNetwork, MessageNetworkFailure)
}

// fail reports a failed attempt and returns the machine to Idle so the
// shopper can retry. The cart is left untouched.
func (f *Flow) fail(ctx context.Context, span trace.Span, reason Failure, msg string) *Result {
	f.transition(StateFailed)
	f.record(ctx, span, string(reason))
	span.SetStatus(codes.Error, msg)
	f.transition(StateIdle)

	res := &Result{
		State:   StateFailed,
		Failure: reason,
		Message: msg,
	}
	if reason == FailureUnauthenticated {
		res.RedirectTo = f.loginPath
	}
	return res
}

// Cancel asks the order API to cancel orderID and marks its receipt.
func (f *Flow) Cancel(ctx context.Context, orderID string) error {
	token, err := f.gate.Credential(ctx)
	if err != nil {
		return err
	}
	if err := f.orders.CancelOrder(ctx, token, orderID); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			if err := f.gate.Invalidate(ctx); err != nil {
				f.lg.Warn("Invalidate credential", zap.Error(err))
			}
			return auth.ErrUnauthenticated
		}
		return errors.Wrapf(err, "cancel order %s", orderID)
	}
	if err := f.receipts.SetStatus(ctx, orderID, receipt.StatusCancelled); err != nil &&
		!errors.Is(err, receipt.ErrNotFound) {
		f.lg.Warn("Mark receipt cancelled", zap.String("order_id", orderID), zap.Error(err))
	}
	f.lg.Info("Order cancelled", zap.String("order_id", orderID))
	return nil
}

// Receipt returns the confirmation data of a placed order.
func (f *Flow) Receipt(ctx context.Context, orderID string) (*receipt.Receipt, error) {
	return f.receipts.Get(ctx, orderID)
}

func (f *Flow) transition(s State) {
	f.mu.Lock()
	changed := f.state != s
	f.state = s
	f.mu.Unlock()

	if changed {
		f.states.Publish(s)
	}
}

func (f *Flow) record(ctx context.Context, span trace.Span, outcome string) {
	span.SetAttributes(attribute.String("checkout.outcome", outcome))
	f.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// idempotencyKey returns the key of the previous attempt when req is
// identical to it, and a fresh key otherwise. Keys survive only network
// failures and 5xx answers.
func (f *Flow) idempotencyKey(req OrderRequest) string {
	if f.lastReq != nil && sameRequest(*f.lastReq, req) {
		return f.lastKey
	}
	f.lastReq = &req
	f.lastKey = f.newKey()
	return f.lastKey
}

func (f *Flow) forgetKey() {
	f.lastReq = nil
	f.lastKey = ""
}

func sameRequest(a, b OrderRequest) bool {
	return a.CustomerName == b.CustomerName &&
		a.CustomerEmail == b.CustomerEmail &&
		a.CustomerPhone == b.CustomerPhone &&
		a.DeliveryAddress == b.DeliveryAddress &&
		a.DeliveryCity == b.DeliveryCity &&
		a.DeliveryNotes == b.DeliveryNotes &&
		slices.Equal(a.Items, b.Items)
}

func buildRequest(d Draft, lines cart.Cart) OrderRequest {
	items := make([]OrderItem, len(lines))
	for i, l := range lines {
		items[i] = OrderItem{ItemID: l.ProductID, Quantity: l.Quantity}
	}
	return OrderRequest{
		CustomerName:    d.CustomerName,
		CustomerEmail:   d.CustomerEmail,
		CustomerPhone:   d.CustomerPhone,
		DeliveryAddress: d.DeliveryAddress,
		DeliveryCity:    d.DeliveryCity,
		DeliveryNotes:   d.DeliveryNotes,
		Items:           items,
	}
}
