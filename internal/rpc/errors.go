package rpc

import "fmt"

// NotFoundError reports a referenced entity that does not exist. The
// dispatcher maps it to a 404 envelope.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// NotFound builds a NotFoundError from a format string.
func NotFound(format string, args ...any) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ImproperUpdateError reports an attempt to mutate an immutable field
// through the generic update path. Mapped to a 400 envelope.
type ImproperUpdateError struct {
	Message string
}

func (e *ImproperUpdateError) Error() string { return e.Message }

func ImproperUpdate(format string, args ...any) error {
	return &ImproperUpdateError{Message: fmt.Sprintf(format, args...)}
}

// InvalidPayloadError reports a message body that could not be encoded or
// decoded. It never leaves the process as anything other than a 400.
type InvalidPayloadError struct {
	Err error
}

func (e *InvalidPayloadError) Error() string { return "invalid payload: " + e.Err.Error() }

func (e *InvalidPayloadError) Unwrap() error { return e.Err }

// RemoteError is the local representation of a failure reported by another
// service. Only the original status and message cross the wire.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote service returned %d: %s", e.Status, e.Message)
}

// ServiceUnavailableError means no reply arrived at all: the broker was
// unreachable, the consumer was absent, or the call timed out. It is the one
// failure with no corresponding Envelope, so it must stay distinguishable
// from a remote 500.
type ServiceUnavailableError struct {
	Service string
}

func (e *ServiceUnavailableError) Error() string {
	return e.Service + " unavailable"
}
