package records

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrConfiguration = errors.New("storage is not configured")
	ErrAuth          = errors.New("not authenticated")
	ErrPermission    = errors.New("permission denied")
	ErrNotFound      = errors.New("not found or empty")
	ErrNetwork       = errors.New("network failure")
	ErrTimeout       = errors.New("request timed out")
)

// Error attaches one of the sentinel kinds to a collaborator failure.
type Error struct {
	Kind error
	Op   string
	Err  error
}

// NewError wraps err with the given kind. A nil err yields an error carrying only the kind.
func NewError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Kind returns the sentinel kind of err, or nil when err is unclassified.
func Kind(err error) error {
	for _, kind := range []error{ErrConfiguration, ErrAuth, ErrPermission, ErrNotFound, ErrTimeout, ErrNetwork} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrTimeout
		}
		return ErrNetwork
	}

	return nil
}

// Retryable reports whether err belongs to the network/timeout class.
func Retryable(err error) bool {
	kind := Kind(err)
	return kind == ErrNetwork || kind == ErrTimeout
}

// Remediation returns the user-facing action for a listing failure.
func Remediation(err error) string {
	switch Kind(err) {
	case ErrConfiguration:
		return "Check the storage configuration and restart."
	case ErrAuth:
		return "Sign in again to refresh your credentials."
	case ErrPermission:
		return "Ask an administrator for access to the recordings."
	case ErrNotFound:
		return "Run the access check to verify the recordings location."
	case ErrNetwork, ErrTimeout:
		return "Check your connection and retry."
	default:
		return "Retry or refresh the browser."
	}
}
