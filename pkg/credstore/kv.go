package credstore

import "context"

// Storage keys. Stable across releases: changing them logs every user out.
const (
	keyAccessToken  = "auth.access_token"
	keyRefreshToken = "auth.refresh_token"
	keyUserProfile  = "auth.user"
)

// KV is the opaque key-value backend the Store persists into. Implementations
// must return ErrNotFound for missing keys. The Store serializes its own
// access, so implementations only need to be safe for sequential use by one
// Store plus whatever concurrency they face from other owners of the backend.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
