package auth

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-storefront/internal/storage"
)

// ErrMissingToken is returned by Login for a blank token.
var ErrMissingToken = errors.New("token required")

// ErrUnauthenticated is returned when no live credential is stored.
var ErrUnauthenticated = errors.New("not authenticated")

// Gate supplies the bearer credential used to authorise orders.
type Gate interface {
	// Credential returns the current bearer token, or ErrUnauthenticated.
	Credential(ctx context.Context) (string, error)
	// Invalidate forgets the credential, e.g. after the API rejected it.
	Invalidate(ctx context.Context) error
}

// Session is what the OTP sign-in flow hands over after a successful login.
type Session struct {
	Token    string
	Username string
	// ExpiresAt is optional; the zero value means the token does not expire
	// on the client side.
	ExpiresAt time.Time
}

// Expired reports whether s has passed its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

var _ Gate = (*Sessions)(nil)

// Sessions keeps the signed-in session in the device store under the token,
// username and expiry keys.
type Sessions struct {
	kv  storage.KV
	now func() time.Time
}

// NewSessions returns a Sessions backed by kv.
func NewSessions(kv storage.KV) *Sessions {
	return &Sessions{kv: kv, now: time.Now}
}

// Login stores s, replacing any previous session.
func (s *Sessions) Login(ctx context.Context, sess Session) error {
	if strings.TrimSpace(sess.Token) == "" {
		return ErrMissingToken
	}
	if err := s.kv.Set(ctx, storage.KeyToken, []byte(sess.Token)); err != nil {
		return errors.Wrap(err, "store token")
	}
	if err := s.kv.Set(ctx, storage.KeyUsername, []byte(sess.Username)); err != nil {
		return errors.Wrap(err, "store username")
	}
	if sess.ExpiresAt.IsZero() {
		if err := s.kv.Delete(ctx, storage.KeyTokenExpiresAt); err != nil {
			return errors.Wrap(err, "clear expiry")
		}
		return nil
	}
	exp := sess.ExpiresAt.UTC().Format(time.RFC3339)
	if err := s.kv.Set(ctx, storage.KeyTokenExpiresAt, []byte(exp)); err != nil {
		return errors.Wrap(err, "store expiry")
	}
	return nil
}

// Current returns the live session. Missing or expired sessions yield
// ErrUnauthenticated.
func (s *Sessions) Current(ctx context.Context) (Session, error) {
	token, err := s.get(ctx, storage.KeyToken)
	if err != nil {
		return Session{}, err
	}
	if token == "" {
		return Session{}, ErrUnauthenticated
	}
	username, err := s.get(ctx, storage.KeyUsername)
	if err != nil {
		return Session{}, err
	}
	sess := Session{Token: token, Username: username}

	exp, err := s.get(ctx, storage.KeyTokenExpiresAt)
	if err != nil {
		return Session{}, err
	}
	if exp != "" {
		t, err := time.Parse(time.RFC3339, exp)
		if err != nil {
			// An unreadable expiry cannot vouch for the token.
			return Session{}, ErrUnauthenticated
		}
		sess.ExpiresAt = t
	}
	if sess.Expired(s.now()) {
		return Session{}, ErrUnauthenticated
	}
	return sess, nil
}

// Credential implements Gate.
func (s *Sessions) Credential(ctx context.Context) (string, error) {
	sess, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}

// Invalidate implements Gate by removing the stored session.
func (s *Sessions) Invalidate(ctx context.Context) error {
	return s.Logout(ctx)
}

// Logout removes the session keys. Clearing the cart is the caller's job.
func (s *Sessions) Logout(ctx context.Context) error {
	for _, key := range []string{storage.KeyToken, storage.KeyUsername, storage.KeyTokenExpiresAt} {
		if err := s.kv.Delete(ctx, key); err != nil {
			return errors.Wrapf(err, "delete %s", key)
		}
	}
	return nil
}

// get reads a string value; a missing key reads as "".
func (s *Sessions) get(ctx context.Context, key string) (string, error) {
	v, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		return "", errors.Wrapf(err, "read %s", key)
	}
	return string(v), nil
}
