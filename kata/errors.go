package kata

import "fmt"

// ErrorKind classifies an APIError.
type ErrorKind string

const (
	// Declined: the body carried success=false.
	Declined ErrorKind = "declined"
	// Malformed: the body lacks a field the check needs or is not JSON.
	Malformed ErrorKind = "malformed"
	NotFound  ErrorKind = "not_found"
	// UnexpectedStatus: any HTTP status other than 200 and 404.
	UnexpectedStatus ErrorKind = "unexpected_status"
)

// APIError is a per-entry failure reported by, or about, the remote API.
type APIError struct {
	Kind   ErrorKind
	Status int
	Reason string
}

func (e *APIError) Error() string {
	switch e.Kind {
	case Declined:
		return fmt.Sprintf("api responds with '%s'", e.Reason)
	case NotFound:
		return "cannot find user or challenge"
	case UnexpectedStatus:
		if e.Reason == "" {
			return fmt.Sprintf("api responds with status %d", e.Status)
		}
		return fmt.Sprintf("api responds with status %d: %s", e.Status, e.Reason)
	default:
		return fmt.Sprintf("malformed payload: %s", e.Reason)
	}
}

// TransportError is a network-level failure that persisted through every
// attempt.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
