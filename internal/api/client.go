package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/matthieugras/czds-client/internal/apierr"
	"github.com/matthieugras/czds-client/internal/auth"
	"github.com/matthieugras/czds-client/internal/config"
	"github.com/matthieugras/czds-client/internal/logging"
)

// maxDrainBytes bounds how much of a discarded body is read so the connection can be reused
const maxDrainBytes = 64 * 1024

// Client is the authenticated transport for the CZDS data endpoint
type Client struct {
	httpClient  *http.Client
	auth        auth.Authenticator
	username    string
	userAgent   string
	diagnostics DiagnosticFunc
}

// Option configures a Client
type Option func(*Client)

// WithDiagnostics installs a hook for non-fatal probe statuses (403, 404, 503, ...)
func WithDiagnostics(fn DiagnosticFunc) Option {
	return func(c *Client) {
		c.diagnostics = fn
	}
}

// WithUserAgent overrides the User-Agent header sent on data requests
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// New creates a client that authenticates with the username and password in cfg.
// If httpClient is nil, a default client with 60s timeout is created.
func New(httpClient *http.Client, cfg config.ClientConfig, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return NewClient(httpClient, auth.NewPasswordAuthenticator(httpClient, cfg), cfg.Username, opts...)
}

// NewClient creates a client around an existing authenticator.
// If httpClient is nil, a default client with 60s timeout is created.
func NewClient(httpClient *http.Client, authenticator auth.Authenticator, username string, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	c := &Client{
		httpClient: httpClient,
		auth:       authenticator,
		username:   username,
		userAgent:  auth.DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Probe issues a HEAD request and returns the response metadata.
// The body is released before return; resp.Body is http.NoBody.
// 403, 404, 503 and other unexpected statuses are returned as-is for the
// caller to inspect; only 428 and authentication failures are errors.
func (c *Client) Probe(ctx context.Context, url string) (*http.Response, error) {
	resp, err := c.doRequest(ctx, http.MethodHead, url)
	if err != nil {
		return nil, err
	}
	drainAndClose(resp.Body)
	resp.Body = http.NoBody

	switch {
	case isSuccess(resp.StatusCode):
	case resp.StatusCode == http.StatusPreconditionRequired:
		return nil, termsError(resp, url)
	case resp.StatusCode == http.StatusForbidden:
		c.diagnose(http.MethodHead, url, resp.StatusCode,
			fmt.Sprintf("%s is not authorized to download %s", c.username, url))
	case resp.StatusCode == http.StatusNotFound:
		c.diagnose(http.MethodHead, url, resp.StatusCode, fmt.Sprintf("please check url %s", url))
	case resp.StatusCode == http.StatusServiceUnavailable:
		c.diagnose(http.MethodHead, url, resp.StatusCode, "service unavailable")
	default:
		c.diagnose(http.MethodHead, url, resp.StatusCode, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}
	return resp, nil
}

// Fetch issues a GET request and returns the response with its body.
// The caller must close resp.Body. Because Accept-Encoding is set explicitly,
// the body is delivered exactly as sent (gzip content is not decoded).
func (c *Client) Fetch(ctx context.Context, url string) (*http.Response, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}

	if isSuccess(resp.StatusCode) {
		return resp, nil
	}

	// Release the body before surfacing the failure
	drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusForbidden:
		return nil, apierr.NotAuthorized(c.username, url)
	case http.StatusNotFound:
		return nil, apierr.NotFound(url)
	case http.StatusPreconditionRequired:
		return nil, termsError(resp, url)
	case http.StatusServiceUnavailable:
		return nil, apierr.Transient(resp.StatusCode, url, "service unavailable")
	default:
		return nil, apierr.Protocol(resp.StatusCode, url, fmt.Sprintf("unexpected status %d for %s", resp.StatusCode, url))
	}
}

// doRequest performs an authenticated request, re-authenticating once on 401.
// The returned response never has status 401.
func (c *Client) doRequest(ctx context.Context, method, url string) (*http.Response, error) {
	state := stateFresh
	for state != stateDone {
		resp, cred, err := c.dispatch(ctx, method, url)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusUnauthorized {
			return resp, nil
		}
		drainAndClose(resp.Body)

		// A credential that was just obtained, or one obtained by re-authenticating,
		// will not be accepted by another exchange either
		if state == stateRetryingAfter401 || cred.Fresh {
			state = stateDone
			break
		}

		logging.Debug("%s %s -> 401, re-authenticating %s", method, url, c.username)
		c.auth.Invalidate(cred.Token)
		state = stateRetryingAfter401
	}

	logging.Error("%s %s rejected the credential for %s after re-authentication", method, url, c.username)
	e := apierr.New(apierr.ErrInvalidCredentials, http.StatusUnauthorized, url,
		fmt.Sprintf("credential for %s rejected by %s after re-authentication", c.username, url))
	e.User = c.username
	return nil, e
}

// dispatch sends a single request with the current credential attached
func (c *Client) dispatch(ctx context.Context, method, url string) (*http.Response, auth.Credential, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, auth.Credential{}, apierr.Protocol(0, url, fmt.Sprintf("invalid request url: %v", err))
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Encoding", "gzip")

	cred, err := c.auth.Authenticate(ctx, req)
	if err != nil {
		return nil, auth.Credential{}, err
	}

	logging.Debug("API Request: %s %s", method, url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.Error("Request failed: %s %s - %v", method, url, err)
		return nil, auth.Credential{}, apierr.Transport(url, err)
	}
	logging.Debug("API Response: %s %s -> %d", method, url, resp.StatusCode)
	return resp, cred, nil
}

func (c *Client) diagnose(method, url string, statusCode int, message string) {
	logging.Warn("%s %s -> %d: %s", method, url, statusCode, message)
	if c.diagnostics != nil {
		c.diagnostics(Diagnostic{
			Method:     method,
			URL:        url,
			StatusCode: statusCode,
			Message:    message,
		})
	}
}

// termsError builds the 428 error from the server's reason phrase
func termsError(resp *http.Response, url string) error {
	reason := reasonPhrase(resp)
	if reason == "" {
		reason = DefaultTermsMessage
	}
	return apierr.TermsRequired(url, reason)
}

// drainAndClose discards a bounded amount of the body and closes it
func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	io.Copy(io.Discard, io.LimitReader(body, maxDrainBytes))
	body.Close()
}
