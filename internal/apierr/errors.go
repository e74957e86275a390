// Package apierr implements the client-induced vs. server-internal error
// taxonomy from original_source/server/src/errors.rs, restated as two
// Go error types that transport handlers translate into wire.ErrorPayload
// and an HTTP status code.
package apierr

import (
	"fmt"
	"net/http"

	"github.com/veilnet/veilnet/pkg/wire"
)

// ClientError is a 400-class failure caused by the caller: a malformed
// payload, an unknown payload type, a bad signature, or a reference to a
// user/server that doesn't exist. Its message is safe to return verbatim.
type ClientError struct {
	Code    wire.ErrorCode
	Message string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewClientError builds a ClientError.
func NewClientError(code wire.ErrorCode, format string, args ...any) *ClientError {
	return &ClientError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ServerError is a 500-class failure internal to the node. Cause is logged
// in full; callers only ever see a generic INTERNAL_ERROR.
type ServerError struct {
	Cause error
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("internal error: %v", e.Cause)
}

func (e *ServerError) Unwrap() error { return e.Cause }

// NewServerError wraps cause as a ServerError.
func NewServerError(cause error) *ServerError {
	return &ServerError{Cause: cause}
}

// ToPayload converts err into the wire.ErrorPayload + HTTP status pair a
// transport handler should send back. Unknown error types are treated as
// ServerError to avoid ever leaking internal detail by accident.
func ToPayload(err error) (wire.ErrorPayload, int) {
	switch e := err.(type) {
	case *ClientError:
		return wire.ErrorPayload{Code: e.Code, Message: e.Message}, http.StatusBadRequest
	case *ServerError:
		return wire.ErrorPayload{Code: wire.ErrCodeInternalError, Message: "internal error"}, http.StatusInternalServerError
	default:
		return wire.ErrorPayload{Code: wire.ErrCodeInternalError, Message: "internal error"}, http.StatusInternalServerError
	}
}
