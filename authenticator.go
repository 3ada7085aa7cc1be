package jus

import "context"

// Authenticator supplies bearer tokens for requests that need one. When
// the network façade receives a 401, it calls GetAuthToken with
// refresh=true to force a new token before retrying the request once.
//
// Refresh is scoped to a single request: two concurrent requests that
// both hit 401 will each call GetAuthToken(refresh=true) independently.
// There is no cross-request single-flighting here, which is a deliberate,
// documented limitation (see DESIGN.md).
type Authenticator interface {
	GetAuthToken(ctx context.Context, refresh bool) (string, error)
}

// StaticAuthenticator is an Authenticator that always returns the same
// token; refresh is a no-op. Useful for tests and for tokens that are
// rotated out-of-band.
type StaticAuthenticator struct {
	Token string
}

func (a *StaticAuthenticator) GetAuthToken(ctx context.Context, refresh bool) (string, error) {
	return a.Token, nil
}
