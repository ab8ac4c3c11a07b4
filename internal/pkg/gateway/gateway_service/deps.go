package gateway_service

import (
	"context"
	"net/http"
)

// HTTPDoer is satisfied by *http.Client and http_client.LoggedClient.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SessionSource supplies the bearer token and takes the forced logout when
// the backend rejects it.
type SessionSource interface {
	AccessToken() string
	ExpireSession(ctx context.Context) error
}
