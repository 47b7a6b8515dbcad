// Package credstore owns the persisted session credentials of the client:
// the access token, the refresh token, and the serialized user profile.
//
// All session reads and writes in the application go through a single Store
// so that the token pair is always observed as a unit. The Store itself is a
// thin atomicity layer over an opaque key-value backend (KV); the backend is
// where the host platform plugs in its secure storage. Three backends ship
// with the package: an in-memory map for tests, an encrypted file for
// standalone processes, and Redis for host apps that already carry one.
//
// Usage:
//
//	store, err := credstore.New(credstore.NewMemoryKV())
//	if err != nil {
//	    // handle error
//	}
//
//	err = store.SetSession(ctx, credstore.Session{
//	    AccessToken:  "a",
//	    RefreshToken: "r",
//	    User:         &credstore.UserProfile{Email: "jane@example.com"},
//	})
package credstore
