package api

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/matthieugras/czds-client/internal/logging"
)

// HTTPOptions configures the HTTP engine shared by the authenticator and the transport
type HTTPOptions struct {
	Timeout      time.Duration
	RetryMax     int // 0 disables engine-level retries
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// BuildHTTPClient constructs the HTTP client with optional retry/backoff policy.
// Engine retries only cover 429/5xx and connection errors (honouring Retry-After);
// a 401 always reaches the transport's re-authentication logic.
func BuildHTTPClient(opts HTTPOptions) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
	}

	if opts.RetryMax <= 0 {
		return &http.Client{Timeout: opts.Timeout, Transport: transport}
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Transport: transport}
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = opts.RetryWaitMin
	rc.RetryWaitMax = opts.RetryWaitMax
	// keep default CheckRetry (retries on 429/5xx and honors Retry-After)
	// hand the final response back so 503 and 500 are still classified by status
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = logging.Named("http")

	httpClient := rc.StandardClient()
	httpClient.Timeout = opts.Timeout
	return httpClient
}
