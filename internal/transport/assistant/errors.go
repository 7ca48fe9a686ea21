package assistant

import (
	"errors"
	"fmt"
)

// Class buckets transport failures for diagnostics. Callers treat every
// class the same way — no usable reply — so the distinction only feeds
// logs and metrics.
type Class string

const (
	// ClassServer: the endpoint answered with a non-2xx status or a
	// 2xx body missing the reply field.
	ClassServer Class = "server_error"
	// ClassNetwork: the request went out but no response came back.
	ClassNetwork Class = "network_error"
	// ClassSetup: the request could not be constructed or sent at all.
	ClassSetup Class = "request_setup_error"
)

// Error is a classified transport failure.
type Error struct {
	Class  Class
	Status int    // HTTP status for ClassServer, zero otherwise
	Detail string // server-provided detail, when present
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Class == ClassServer && e.Detail != "":
		return fmt.Sprintf("assistant %s: status %d: %s", e.Class, e.Status, e.Detail)
	case e.Class == ClassServer:
		return fmt.Sprintf("assistant %s: status %d", e.Class, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("assistant %s: %v", e.Class, e.Err)
	default:
		return fmt.Sprintf("assistant %s", e.Class)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Classify returns the failure class of err, or "" if err is not a
// transport error.
func Classify(err error) Class {
	var te *Error
	if errors.As(err, &te) {
		return te.Class
	}
	return ""
}
