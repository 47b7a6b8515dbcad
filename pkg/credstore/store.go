package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// Store is the single owner of the persisted Session. It keeps an in-memory
// copy guarded by a mutex so that readers never observe one token updated
// while the other is stale, and writes through to the KV backend.
//
// Store is safe for concurrent use; it is shared by every screen's request
// path and by the token-refresh cycle.
type Store struct {
	mu sync.RWMutex
	kv KV

	loaded  bool
	session Session
}

// New creates a Store over the given backend. The backend is read lazily on
// first access, so construction never touches storage.
func New(kv KV) (*Store, error) {
	if kv == nil {
		return nil, ErrNoKV
	}
	return &Store{kv: kv}, nil
}

// Session returns the current session. The first call hydrates the in-memory
// copy from the backend; later calls are served from memory.
func (s *Store) Session(ctx context.Context) (Session, error) {
	s.mu.RLock()
	if s.loaded {
		sess := s.session
		s.mu.RUnlock()
		return sess, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.session, nil
	}
	sess, err := s.load(ctx)
	if err != nil {
		return Session{}, err
	}
	s.session = sess
	s.loaded = true
	return sess, nil
}

// SetSession replaces the whole session atomically. Used by login, OTP
// verification, and the Google exchange, which all deliver a full credential
// set in one response.
func (s *Store) SetSession(ctx context.Context, sess Session) error {
	if !sess.valid() {
		return ErrInvalidSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(ctx, sess); err != nil {
		return err
	}
	s.session = sess
	s.loaded = true
	return nil
}

// SetTokens overwrites the token pair, keeping the stored user profile.
// A successful refresh calls this with the new access token and either the
// rotated refresh token or, when the server did not rotate, the previous one.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		sess, err := s.load(ctx)
		if err != nil {
			return err
		}
		s.session = sess
		s.loaded = true
	}

	next := s.session
	next.AccessToken = access
	next.RefreshToken = refresh
	if !next.valid() {
		return ErrInvalidSession
	}

	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.session = next
	return nil
}

// Clear removes all credentials, for logout and failed refresh.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range []string{keyAccessToken, keyRefreshToken, keyUserProfile} {
		if err := s.kv.Remove(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	s.session = Session{}
	s.loaded = true
	return nil
}

// load reads the session from the backend. Caller holds the write lock.
func (s *Store) load(ctx context.Context) (Session, error) {
	var sess Session

	access, err := s.kv.Get(ctx, keyAccessToken)
	switch {
	case err == nil:
		sess.AccessToken = access
	case !errors.Is(err, ErrNotFound):
		return Session{}, err
	}

	refresh, err := s.kv.Get(ctx, keyRefreshToken)
	switch {
	case err == nil:
		sess.RefreshToken = refresh
	case !errors.Is(err, ErrNotFound):
		return Session{}, err
	}

	raw, err := s.kv.Get(ctx, keyUserProfile)
	switch {
	case err == nil:
		var user UserProfile
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return Session{}, errors.Join(ErrCorruptProfile, err)
		}
		sess.User = &user
	case !errors.Is(err, ErrNotFound):
		return Session{}, err
	}

	return sess, nil
}

// persist writes the session to the backend. Caller holds the write lock.
func (s *Store) persist(ctx context.Context, sess Session) error {
	if sess.AccessToken == "" {
		if err := s.kv.Remove(ctx, keyAccessToken); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	} else if err := s.kv.Set(ctx, keyAccessToken, sess.AccessToken); err != nil {
		return err
	}

	if sess.RefreshToken == "" {
		if err := s.kv.Remove(ctx, keyRefreshToken); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	} else if err := s.kv.Set(ctx, keyRefreshToken, sess.RefreshToken); err != nil {
		return err
	}

	if sess.User == nil {
		if err := s.kv.Remove(ctx, keyUserProfile); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		return nil
	}
	raw, err := json.Marshal(sess.User)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, keyUserProfile, string(raw))
}
