package api

import (
	"net/http"
	"strconv"
	"strings"
)

// DefaultTermsMessage is used when a 428 response carries no reason phrase
const DefaultTermsMessage = "You need to first login to CZDS web interface and accept new Terms & Conditions"

// Diagnostic describes a non-fatal status observed by Probe
type Diagnostic struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
}

// DiagnosticFunc receives probe diagnostics. It runs on the caller's goroutine.
type DiagnosticFunc func(Diagnostic)

// requestState tracks the re-authentication state machine of a single request
type requestState int

const (
	stateFresh requestState = iota
	stateRetryingAfter401
	stateDone
)

func (s requestState) String() string {
	switch s {
	case stateFresh:
		return "fresh"
	case stateRetryingAfter401:
		return "retrying after 401"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// reasonPhrase extracts the reason phrase from a response status line,
// e.g. "Accept new T&C" from "428 Accept new T&C".
// HTTP/2 has no reason phrase; the h2 transport fills Status from StatusText.
func reasonPhrase(resp *http.Response) string {
	if resp.ProtoMajor >= 2 {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
