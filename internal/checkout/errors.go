package checkout

import (
	"errors"
	"fmt"
)

// ErrEmptyCart rejects a checkout attempt on an empty cart before any
// network call is made.
var ErrEmptyCart = errors.New("checkout: cart is empty, add items before checking out")

// ErrInFlight rejects a second checkout attempt while one is already
// reconciling or submitting for the same session.
var ErrInFlight = errors.New("checkout: an attempt is already in progress")

// Error wraps a failed submission: the backend rejected the order or was
// unreachable. The cart is preserved and the attempt may be retried.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("checkout failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("checkout failed: %s", e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}
