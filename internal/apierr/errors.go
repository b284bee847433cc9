// Package apierr defines the failure kinds surfaced by the CZDS client.
//
// Every error returned by the auth and api packages carries exactly one of the
// sentinel kinds below. Callers check with errors.Is(err, apierr.ErrServerTransient)
// and read details through errors.As(err, &*apierr.Error).
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel error kinds.
var (
	// ErrInvalidCredentials indicates the authentication endpoint rejected the user/password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAuthorization indicates the authenticated user may not access the resource.
	ErrAuthorization = errors.New("not authorized")

	// ErrEndpointNotFound indicates the requested URL does not exist on the service.
	ErrEndpointNotFound = errors.New("endpoint not found")

	// ErrTermsAcceptanceRequired indicates the user must accept new terms out of band.
	ErrTermsAcceptanceRequired = errors.New("terms acceptance required")

	// ErrServerTransient indicates the service is unavailable or failed transiently.
	ErrServerTransient = errors.New("server unavailable")

	// ErrProtocol indicates an unexpected status, unparseable body or missing field.
	ErrProtocol = errors.New("protocol error")

	// ErrTransport indicates a network or IO failure below HTTP semantics.
	ErrTransport = errors.New("transport error")
)

// Error is the concrete error type for all client failures.
type Error struct {
	Kind       error  // one of the sentinels above
	StatusCode int    // 0 when no response was received
	URL        string // request URL, if known
	User       string // user the request was made for, if relevant
	Message    string
	Err        error // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// New creates an error of the given kind.
func New(kind error, statusCode int, url, message string) *Error {
	return &Error{
		Kind:       kind,
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}

// InvalidCredentials reports a rejected user/password.
func InvalidCredentials(user string) *Error {
	e := New(ErrInvalidCredentials, http.StatusUnauthorized, "",
		fmt.Sprintf("invalid username or password for user %s, please reset your password via the web interface", user))
	e.User = user
	return e
}

// NotAuthorized reports a 403 on a data request.
func NotAuthorized(user, url string) *Error {
	e := New(ErrAuthorization, http.StatusForbidden, url,
		fmt.Sprintf("%s is not authorized to download %s", user, url))
	e.User = user
	return e
}

// NotFound reports a 404.
func NotFound(url string) *Error {
	return New(ErrEndpointNotFound, http.StatusNotFound, url, fmt.Sprintf("please check url %s", url))
}

// TermsRequired reports a 428 carrying the server's reason.
func TermsRequired(url, reason string) *Error {
	return New(ErrTermsAcceptanceRequired, http.StatusPreconditionRequired, url, reason)
}

// Transient reports a 5xx that may succeed later.
func Transient(statusCode int, url, message string) *Error {
	return New(ErrServerTransient, statusCode, url, message)
}

// Protocol reports an unexpected status or malformed response.
func Protocol(statusCode int, url, message string) *Error {
	return New(ErrProtocol, statusCode, url, message)
}

// Transport wraps a network failure.
func Transport(url string, err error) *Error {
	e := New(ErrTransport, 0, url, "request to "+url+" failed")
	e.Err = err
	return e
}

// IsRetryable reports whether err is of a kind a caller may retry later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServerTransient) || errors.Is(err, ErrTransport)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
