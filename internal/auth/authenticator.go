package auth

import (
	"context"
	"net/http"
)

// DefaultUserAgent identifies this client to the CZDS endpoints
const DefaultUserAgent = "czds-client-go/0.1"

// Credential is a bearer credential attached to a request
type Credential struct {
	Token string
	// Fresh is true if obtaining the credential required an exchange
	// during this call (including one shared with concurrent callers).
	Fresh bool
}

// Authenticator is the interface for bearer credential providers.
type Authenticator interface {
	// Authenticate ensures a credential exists and sets the Authorization header.
	Authenticate(ctx context.Context, req *http.Request) (Credential, error)

	// Invalidate drops the credential if it is still the given stale value.
	// Call this after receiving a 401 Unauthorized response; the next
	// Authenticate performs a fresh exchange.
	Invalidate(stale string)
}

// SetBearer sets the Authorization header for a bearer credential
func SetBearer(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}
