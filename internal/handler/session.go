package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/domain/auth"
)

// GetSession reports whether a live session is stored.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Current(r.Context())
	if err != nil && !errors.Is(err, auth.ErrUnauthenticated) {
		zctx.From(r.Context()).Error("Read session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not read session")
		return
	}
	writeSession(w, sess, err == nil)
}

// Login stores the session handed over by the sign-in flow:
// {"token", "username", "expires_at" (RFC 3339, optional)}.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	fields, err := decodeStrings(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := auth.Session{Token: fields["token"], Username: fields["username"]}
	if v := fields["expires_at"]; v != "" {
		sess.ExpiresAt, err = time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "expires_at must be an RFC 3339 timestamp")
			return
		}
	}

	if err := h.sessions.Login(r.Context(), sess); err != nil {
		if errors.Is(err, auth.ErrMissingToken) {
			writeError(w, http.StatusBadRequest, "token is required")
			return
		}
		zctx.From(r.Context()).Error("Store session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not store session")
		return
	}
	zctx.From(r.Context()).Info("Signed in", zap.String("username", sess.Username))
	writeSession(w, sess, true)
}

// Logout removes the session and empties the cart.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	lg := zctx.From(r.Context())
	if err := h.sessions.Logout(r.Context()); err != nil {
		lg.Error("Remove session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not sign out")
		return
	}
	if err := h.cart.Clear(r.Context()); err != nil {
		lg.Error("Clear cart on logout failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not clear cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeSession never echoes the token.
func writeSession(w http.ResponseWriter, sess auth.Session, authenticated bool) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("authenticated")
		e.Bool(authenticated)
		if authenticated {
			e.FieldStart("username")
			e.Str(sess.Username)
			if !sess.ExpiresAt.IsZero() {
				e.FieldStart("expires_at")
				e.Str(sess.ExpiresAt.UTC().Format(time.RFC3339))
			}
		}
		e.ObjEnd()
	})
}
