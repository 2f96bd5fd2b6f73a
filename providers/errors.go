package providers

import (
	"errors"
	"fmt"
	"net"
)

// Kinds of upstream failure. Callers branch on Kind to choose a response.
const (
	KindAuth      = "auth"
	KindTransport = "transport"
	KindStatus    = "status"
	KindDecode    = "decode"
)

// GatewayError describes a failed call to a third-party API.
type GatewayError struct {
	Provider   string
	Kind       string
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("%s %s error", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a network timeout.
func (e *GatewayError) Timeout() bool {
	var ne net.Error
	return e.Kind == KindTransport && errors.As(e.Err, &ne) && ne.Timeout()
}

// KindOf returns the GatewayError kind of err, or "" for other errors.
func KindOf(err error) string {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}
