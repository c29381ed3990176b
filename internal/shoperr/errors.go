// Package shoperr is the error taxonomy shared by the cart, checkout and
// payment code. Every error that crosses a package boundary toward a caller
// is one of these codes; raw transport errors are wrapped before they leave
// the remote client.
package shoperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
)

type Code int

const (
	Validation Code = iota
	TransientNetwork
	Auth
	Conflict
	Server
)

// User-facing messages.
const (
	MsgAlreadyPaid        = "order already paid, check order history"
	MsgPaymentInFlight    = "a payment for this order is already being processed"
	MsgOrderAlreadyExists = "an order was already created for this checkout"
	MsgOrderInFlight      = "the order is already being submitted"
	MsgSessionExpired     = "session expired, please sign in again"
	MsgNetwork            = "network error, please try again"
	MsgServer             = "the store could not process the request"
	MsgValidation         = "validation failed"
)

func (c Code) String() string {
	switch c {
	case Validation:
		return "VALIDATION"
	case TransientNetwork:
		return "TRANSIENT_NETWORK"
	case Auth:
		return "AUTH"
	case Conflict:
		return "CONFLICT"
	case Server:
		return "SERVER"
	default:
		return "UNKNOWN"
	}
}

type Error struct {
	Code    Code
	Op      string
	Message string
	// Fields maps lowerCamel field names to messages. Validation only.
	Fields map[string]string
	// Status is the remote HTTP status, zero for local errors.
	Status int
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		b.WriteString(" (")
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidation(fields map[string]string) *Error {
	return &Error{Code: Validation, Message: MsgValidation, Fields: fields}
}

func NewFieldError(field, message string) *Error {
	return NewValidation(map[string]string{field: message})
}

func NewTransient(op string, err error) *Error {
	return &Error{Code: TransientNetwork, Op: op, Message: MsgNetwork, Err: err}
}

func NewAuth(op string, status int) *Error {
	return &Error{Code: Auth, Op: op, Message: MsgSessionExpired, Status: status}
}

func NewConflict(op, message string) *Error {
	return &Error{Code: Conflict, Op: op, Message: message, Status: http.StatusConflict}
}

func NewServer(op string, status int, message string) *Error {
	if strings.TrimSpace(message) == "" {
		message = MsgServer
	}
	return &Error{Code: Server, Op: op, Message: message, Status: status}
}

// CodeOf reports the taxonomy code of err. Unclassified errors count as Server.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Server
}

func IsValidation(err error) bool { return is(err, Validation) }
func IsTransient(err error) bool  { return is(err, TransientNetwork) }
func IsAuth(err error) bool       { return is(err, Auth) }
func IsConflict(err error) bool   { return is(err, Conflict) }
func IsServer(err error) bool     { return is(err, Server) }

func is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// Retryable reports whether err may be retried automatically.
func Retryable(err error) bool {
	return IsTransient(err)
}

// FieldsOf returns the field errors carried by a validation error.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) && e.Code == Validation {
		return e.Fields
	}
	return nil
}

// FromStatus classifies a non-2xx remote response.
func FromStatus(op string, status int, message string) *Error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewAuth(op, status)
	case status == http.StatusConflict:
		if strings.TrimSpace(message) == "" {
			message = MsgAlreadyPaid
		}
		return NewConflict(op, message)
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status == http.StatusBadGateway,
		status == http.StatusServiceUnavailable,
		status == http.StatusGatewayTimeout:
		return &Error{Code: TransientNetwork, Op: op, Message: MsgNetwork, Status: status}
	default:
		return NewServer(op, status, message)
	}
}

// FromTransport classifies an error returned by the HTTP round trip itself.
func FromTransport(op string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &netErr):
		return NewTransient(op, err)
	default:
		return NewTransient(op, fmt.Errorf("request failed: %w", err))
	}
}

// HTTPStatus maps an error to the status the local API responds with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case Validation:
		return http.StatusBadRequest
	case TransientNetwork:
		return http.StatusServiceUnavailable
	case Auth:
		return http.StatusUnauthorized
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
