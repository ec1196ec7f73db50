package tokensource

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned when the store holds no secret.
var ErrNoToken = errors.New("no token stored")

// NewTokenSource reads the secret from store once and serves it as a static
// bearer token.
func NewTokenSource(ctx context.Context, store Store) (oauth2.TokenSource, error) {
	secret, err := store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}
	if secret == "" {
		return nil, ErrNoToken
	}
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: secret,
		TokenType:   "Bearer",
	}), nil
}

// NewTransport returns a RoundTripper that authorizes requests with tokens
// from ts. A nil base uses http.DefaultTransport.
func NewTransport(ts oauth2.TokenSource, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &oauth2.Transport{
		Source: ts,
		Base:   base,
	}
}
