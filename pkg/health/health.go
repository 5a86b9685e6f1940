// Package health serves liveness and readiness probes.
//
// Checks run in background goroutines; the probe endpoints only report the
// last known result and never call a dependency themselves. A check turns
// unhealthy after FailureThreshold consecutive failures and healthy again on
// the first success.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Kind selects the probe a check contributes to.
type Kind int

const (
	Liveness Kind = iota
	Readiness
)

// Check describes one background check.
type Check struct {
	Name    string
	Kind    Kind
	Timeout time.Duration
	// FailureThreshold defaults to 3.
	FailureThreshold int
	Func             CheckFunc
}

type checkState struct {
	Check

	healthy atomic.Bool
	lastErr atomic.Pointer[string]

	// Only touched by the goroutine running the check.
	fails int
}

func (c *checkState) run(ctx context.Context, lg *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	err := c.Func(ctx)
	if err == nil {
		c.fails = 0
		c.lastErr.Store(nil)
		if !c.healthy.Swap(true) {
			lg.Info("Check recovered", zap.String("check", c.Name))
		}
		return
	}

	msg := err.Error()
	c.lastErr.Store(&msg)
	c.fails++
	if c.fails >= c.FailureThreshold && c.healthy.Swap(false) {
		lg.Warn("Check failing", zap.String("check", c.Name), zap.Int("failures", c.fails), zap.Error(err))
	}
}

// status is "ok" or the last error of an unhealthy check.
func (c *checkState) status() (string, bool) {
	if c.healthy.Load() {
		return "ok", true
	}
	if p := c.lastErr.Load(); p != nil {
		return *p, false
	}
	return "unhealthy", false
}

// Health holds the registered checks and the manual readiness flag.
type Health struct {
	lg    *zap.Logger
	ready atomic.Bool

	mu     sync.RWMutex
	checks []*checkState
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Health that starts not ready.
func New(lg *zap.Logger) *Health {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Health{lg: lg}
}

// Register adds c. Checks start healthy and must be registered before Start.
func (h *Health) Register(c Check) {
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	s := &checkState{Check: c}
	s.healthy.Store(true)

	h.mu.Lock()
	h.checks = append(h.checks, s)
	h.mu.Unlock()
}

// Start runs every check immediately and then every interval until Stop or
// ctx cancellation.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := slices.Clone(h.checks)
	h.mu.Unlock()

	for _, c := range checks {
		h.wg.Go(func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			c.run(ctx, h.lg)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					c.run(ctx, h.lg)
				}
			}
		})
	}
}

// Stop cancels the check goroutines and waits for them. Safe to call twice.
func (h *Health) Stop() {
	h.mu.Lock()
	cancel := h.cancel
	h.cancel = nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	h.wg.Wait()
}

// SetReady flips the manual readiness flag: true once wiring is done, false
// when draining before shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	_, ok := h.report(Readiness)
	return ok
}

func (h *Health) report(kind Kind) (map[string]string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]string)
	ok := true
	for _, c := range h.checks {
		if c.Kind != kind {
			continue
		}
		st, healthy := c.status()
		out[c.Name] = st
		ok = ok && healthy
	}
	return out, ok
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	checks, ok := h.report(Liveness)
	writeResponse(w, checks, ok)
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	checks, ok := h.report(Readiness)
	if !h.ready.Load() {
		checks["_readiness"] = "service is not ready"
		ok = false
	}
	writeResponse(w, checks, ok)
}

// writeResponse writes {"status":"ok"|"unhealthy","checks":{name:status}}.
func writeResponse(w http.ResponseWriter, checks map[string]string, ok bool) {
	status, code := "ok", http.StatusOK
	if !ok {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	slices.Sort(names)

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ObjStart()
	e.FieldStart("status")
	e.Str(status)
	if len(names) > 0 {
		e.FieldStart("checks")
		e.ObjStart()
		for _, name := range names {
			e.FieldStart(name)
			e.Str(checks[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
