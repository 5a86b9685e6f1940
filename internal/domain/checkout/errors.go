package checkout

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for checkout.
var (
	// ErrEmptyCart blocks checkout before any network call.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrSubmissionInProgress is returned while another submission is in flight.
	ErrSubmissionInProgress = errors.New("order submission already in progress")
	// ErrUnauthorized is returned by an OrderAPI that rejected the credential.
	ErrUnauthorized = errors.New("order api rejected credential")
)

// Messages shown when the server gives no usable explanation.
const (
	MessageNetworkFailure  = "Network error. Please check your connection and try again."
	MessageSubmitFailed    = "Failed to place order. Please try again."
	MessageUnauthenticated = "Please log in to place your order."
)

// RejectedError is a non-2xx answer from the order API.
type RejectedError struct {
	StatusCode int
	// Message is the server-provided explanation, or MessageSubmitFailed.
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("order api returned %d: %s", e.StatusCode, e.Message)
}

// NetworkError wraps a request that could not complete.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "order api unreachable: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
