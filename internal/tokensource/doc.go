// Package tokensource supplies the bearer token the gateway presents to the
// engine.
//
// The engine key lives in a Store. EnvStore reads it from an environment
// variable and is read-only; KeyringStore keeps it in the operating system
// keyring:
//
//	store := tokensource.NewKeyringStore(tokensource.DefaultKeyringService, "engine")
//	if err := store.Write(ctx, apiKey); err != nil {
//		// handle error
//	}
//
// # Token Sources
//
// NewTokenSource reads the key from a store and exposes it as an
// oauth2.TokenSource:
//
//	ts, err := tokensource.NewTokenSource(ctx, store)
//	client := &http.Client{Transport: tokensource.NewTransport(ts, nil)}
//
// Requests sent through the transport carry "Authorization: Bearer <key>".
package tokensource
