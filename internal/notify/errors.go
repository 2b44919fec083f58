package notify

import "errors"

// TransientDeliveryError marks a failure worth retrying: network
// timeouts, rate limits, provider 5xx responses.
type TransientDeliveryError struct {
	Err error
}

func (e *TransientDeliveryError) Error() string { return "transient delivery error: " + e.Err.Error() }
func (e *TransientDeliveryError) Unwrap() error { return e.Err }

// PermanentDeliveryError marks a failure that retrying cannot fix:
// malformed address, message rejected outright.
type PermanentDeliveryError struct {
	Err error
}

func (e *PermanentDeliveryError) Error() string { return "permanent delivery error: " + e.Err.Error() }
func (e *PermanentDeliveryError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error) error { return &TransientDeliveryError{Err: err} }

// Permanent wraps err as non-retryable.
func Permanent(err error) error { return &PermanentDeliveryError{Err: err} }

// IsTransient reports whether err is retryable. Unclassified errors are
// treated as transient so flaky infrastructure gets the benefit of the
// retry budget.
func IsTransient(err error) bool {
	var perm *PermanentDeliveryError
	return !errors.As(err, &perm)
}
