package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/domain/checkout"
	"github.com/xenking/kart-storefront/pkg/broadcast"
)

// stateBacklog bounds the checkout transitions queued for one stream. A
// submission makes at most five.
const stateBacklog = 16

// Events streams change notifications as server-sent events. Opening the
// stream mounts a subscriber and closing it unmounts it.
//
// Each stream starts with one cartChanged and one wishlistChanged event so
// the client loads current state before relying on notifications. Signals
// carry no data; the client re-reads the resource. Bursts coalesce: a
// subscriber that has not yet been written to receives one event, never a
// backlog. checkoutState events are not coalesced: every transition is sent
// in order, so clients see failed before the machine returns to idle.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	cartCh := make(chan struct{}, 1)
	wishlistCh := make(chan struct{}, 1)
	stateCh := make(chan checkout.State, stateBacklog)

	cartCh <- struct{}{}
	wishlistCh <- struct{}{}

	defer h.cart.Subscribe(coalesce(cartCh))()
	defer h.wishlist.Subscribe(coalesce(wishlistCh))()
	stateTopic := h.checkout.States()
	defer stateTopic.Subscribe(func(s checkout.State) { pushState(stateCh, s) })()

	lg := zctx.From(r.Context())
	lg.Debug("Event stream opened")
	defer lg.Debug("Event stream closed")

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		var err error
		select {
		case <-r.Context().Done():
			return
		case <-h.closing:
			return
		case <-cartCh:
			err = writeEvent(w, broadcast.TopicCartChanged, "{}")
		case <-wishlistCh:
			err = writeEvent(w, broadcast.TopicWishlistChanged, "{}")
		case s := <-stateCh:
			err = writeEvent(w, stateTopic.Name(), `{"state":"`+s.String()+`"}`)
		case <-heartbeat.C:
			_, err = io.WriteString(w, ": ping\n\n")
		}
		if err == nil {
			err = rc.Flush()
		}
		if err != nil {
			lg.Debug("Event stream write failed", zap.Error(err))
			return
		}
	}
}

func coalesce(ch chan struct{}) func(broadcast.Signal) {
	return func(broadcast.Signal) { notify(ch) }
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// pushState queues s without blocking the publisher. When the backlog is
// full the oldest transition is dropped.
func pushState(ch chan checkout.State, s checkout.State) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func writeEvent(w io.Writer, name, data string) error {
	_, err := io.WriteString(w, "event: "+name+"\ndata: "+data+"\n\n")
	return err
}
