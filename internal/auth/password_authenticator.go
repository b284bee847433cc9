package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/matthieugras/czds-client/internal/apierr"
	"github.com/matthieugras/czds-client/internal/config"
	"github.com/matthieugras/czds-client/internal/logging"
)

// maxAuthResponseSize bounds how much of the authentication response is read
const maxAuthResponseSize = 1 << 20

// exchangeTimeout bounds a shared exchange, which outlives the caller that started it
const exchangeTimeout = 60 * time.Second

// PasswordAuthenticator obtains a bearer credential by submitting the configured
// username and password to the authentication endpoint. There is no refresh
// protocol: an expired credential is replaced by resubmitting the password.
type PasswordAuthenticator struct {
	httpClient *http.Client
	authURL    string
	username   string
	password   string
	userAgent  string
	store      *CredentialStore
	authGroup  singleflight.Group // Deduplicates concurrent exchanges
}

// credentialsRequest is the authentication request body
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// authResult is the authentication response envelope; other fields are ignored
type authResult struct {
	AccessToken string `json:"accessToken"`
}

// NewPasswordAuthenticator creates a new password authenticator with an empty store.
// If httpClient is nil, a default client with 30s timeout is created.
func NewPasswordAuthenticator(httpClient *http.Client, cfg config.ClientConfig) *PasswordAuthenticator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &PasswordAuthenticator{
		httpClient: httpClient,
		authURL:    cfg.AuthenticationURL(),
		username:   cfg.Username,
		password:   cfg.Password,
		userAgent:  DefaultUserAgent,
		store:      &CredentialStore{},
	}
}

// Store returns the credential store owned by this authenticator
func (a *PasswordAuthenticator) Store() *CredentialStore {
	return a.store
}

// Username returns the configured user
func (a *PasswordAuthenticator) Username() string {
	return a.username
}

// EnsureCredential returns the current credential, performing an exchange if none is held.
// Concurrent callers share a single exchange.
func (a *PasswordAuthenticator) EnsureCredential(ctx context.Context) (string, error) {
	cred, err := a.ensure(ctx)
	return cred.Token, err
}

func (a *PasswordAuthenticator) ensure(ctx context.Context) (Credential, error) {
	if token, ok := a.store.Get(); ok {
		return Credential{Token: token}, nil
	}

	if err := ctx.Err(); err != nil {
		return Credential{}, apierr.Transport(a.authURL, err)
	}

	// The exchange is shared, so one caller giving up must not fail the others
	ch := a.authGroup.DoChan("authenticate", func() (any, error) {
		// Another flight may have finished between Get and DoChan
		if token, ok := a.store.Get(); ok {
			return Credential{Token: token}, nil
		}
		exCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exchangeTimeout)
		defer cancel()
		token, err := a.exchange(exCtx)
		if err != nil {
			return Credential{}, err
		}
		if err := a.store.Set(token); err != nil {
			return Credential{}, err
		}
		return Credential{Token: token, Fresh: true}, nil
	})

	select {
	case <-ctx.Done():
		return Credential{}, apierr.Transport(a.authURL, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Credential{}, res.Err
		}
		return res.Val.(Credential), nil
	}
}

// Authenticate implements the Authenticator interface.
// It adds the Bearer token to the request's Authorization header.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, req *http.Request) (Credential, error) {
	cred, err := a.ensure(ctx)
	if err != nil {
		return Credential{}, err
	}
	SetBearer(req, cred.Token)
	return cred, nil
}

// Invalidate implements the Authenticator interface.
func (a *PasswordAuthenticator) Invalidate(stale string) {
	if a.store.CompareAndClear(stale) {
		logging.Debug("Credential %s invalidated for %s", logging.RedactToken(stale), a.username)
	}
}

// exchange performs the credential exchange and returns the access token
func (a *PasswordAuthenticator) exchange(ctx context.Context) (string, error) {
	body, err := json.Marshal(credentialsRequest{Username: a.username, Password: a.password})
	if err != nil {
		return "", fmt.Errorf("failed to encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.authURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create authentication request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", a.userAgent)

	logging.Debug("Authenticating %s at %s", a.username, a.authURL)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		logging.Error("Authentication request failed: %v", err)
		return "", apierr.Transport(a.authURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// parsed below
	case resp.StatusCode == http.StatusUnauthorized:
		return "", apierr.InvalidCredentials(a.username)
	case resp.StatusCode == http.StatusNotFound:
		return "", apierr.NotFound(a.authURL)
	case resp.StatusCode == http.StatusInternalServerError:
		return "", apierr.Transient(resp.StatusCode, a.authURL, "internal server error, please try again later")
	default:
		return "", apierr.Protocol(resp.StatusCode, a.authURL,
			fmt.Sprintf("unexpected status %d from authentication endpoint", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAuthResponseSize))
	if err != nil {
		return "", apierr.Transport(a.authURL, fmt.Errorf("failed to read authentication response: %w", err))
	}

	var result authResult
	if err := json.Unmarshal(data, &result); err != nil {
		e := apierr.Protocol(resp.StatusCode, a.authURL, "failed to parse authentication response")
		e.Err = err
		return "", e
	}
	if result.AccessToken == "" {
		return "", apierr.Protocol(resp.StatusCode, a.authURL, "authentication response has no accessToken")
	}

	logging.Debug("Got access token %s for %s", logging.RedactToken(result.AccessToken), a.username)
	return result.AccessToken, nil
}
