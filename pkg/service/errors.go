package service

import "errors"

// Error codes surfaced by the router.
const (
	CodeUnknownService     = "UNKNOWN_SERVICE"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInvalidRequest     = "INVALID_SERVICE_REQUEST"
)

// Sentinels for errors.Is checks against *Error values.
var (
	ErrUnknownService     = errors.New("unknown service")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrInvalidRequest     = errors.New("invalid service request")
)

// Error is a structured router error. The transport error that caused it is reduced to its
// message so transport types never cross the router boundary.
type Error struct {
	Code    string `json:"code"`
	Service string `json:"service"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

func (e *Error) Error() string {
	if e.Cause != "" {
		return e.Code + ": " + e.Message + ": " + e.Cause
	}
	return e.Code + ": " + e.Message
}

// Is matches the package sentinels by code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnknownService:
		return e.Code == CodeUnknownService
	case ErrServiceUnavailable:
		return e.Code == CodeServiceUnavailable
	case ErrInvalidRequest:
		return e.Code == CodeInvalidRequest
	}
	return false
}

// UnknownService builds the error for a name missing from the registry.
func UnknownService(name string) *Error {
	return &Error{Code: CodeUnknownService, Service: name, Message: "Service " + name + " is not registered"}
}

// ServiceUnavailable builds the error for a service that cannot be reached.
func ServiceUnavailable(name string, cause error) *Error {
	e := &Error{Code: CodeServiceUnavailable, Service: name, Message: "Service " + name + " is not available"}
	if cause != nil {
		e.Cause = cause.Error()
	}
	return e
}

// InvalidRequest builds the error for a request to name that could not be built, such as a
// malformed URL or a missing session.
func InvalidRequest(name string, cause error) *Error {
	e := &Error{Code: CodeInvalidRequest, Service: name, Message: "Request to service " + name + " is invalid"}
	if cause != nil {
		e.Cause = cause.Error()
	}
	return e
}
