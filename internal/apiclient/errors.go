package apiclient

import (
	"errors"
	"fmt"
)

// Failure classes reported by Classify.
const (
	ClassTransport = "transport"
	ClassStatus    = "status"
	ClassDecode    = "decode"
	ClassUnknown   = "unknown"
)

// TransportError means the request never produced an HTTP response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a response outside the 2xx range.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// DecodeError is a 2xx response whose body has the wrong shape.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Classify names the failure class of err for logs and notices.
func Classify(err error) string {
	var transportErr *TransportError
	var statusErr *StatusError
	var decodeErr *DecodeError
	switch {
	case errors.As(err, &transportErr):
		return ClassTransport
	case errors.As(err, &statusErr):
		return ClassStatus
	case errors.As(err, &decodeErr):
		return ClassDecode
	default:
		return ClassUnknown
	}
}
