package googleauth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/jobdeck-go/pkg/googleauth"
)

type fakeProvider struct {
	identity googleauth.Identity
	err      error
}

func (p fakeProvider) SignIn(ctx context.Context) (googleauth.Identity, error) {
	if p.err != nil {
		return googleauth.Identity{}, p.err
	}
	return p.identity, nil
}

type fakeChecker struct {
	registered map[string]bool
	err        error
}

func (c fakeChecker) CheckEmail(ctx context.Context, email string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	return c.registered[email], nil
}

func TestNewBridge(t *testing.T) {
	t.Parallel()

	_, err := googleauth.NewBridge(nil, fakeChecker{})
	assert.Error(t, err)

	_, err = googleauth.NewBridge(fakeProvider{}, nil)
	assert.Error(t, err)
}

func TestBridge_SignIn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	identity := googleauth.Identity{
		Token: "g-token", Email: "jane@example.com", Name: "Jane", EmailVerified: true,
	}

	t.Run("existing account", func(t *testing.T) {
		t.Parallel()

		bridge, err := googleauth.NewBridge(
			fakeProvider{identity: identity},
			fakeChecker{registered: map[string]bool{"jane@example.com": true}},
		)
		require.NoError(t, err)

		result := bridge.SignIn(ctx)
		assert.True(t, result.Success)
		assert.False(t, result.IsNewUser)
		assert.Equal(t, "jane@example.com", result.Identity.Email)
		assert.Equal(t, "g-token", result.Identity.Token)
	})

	t.Run("new account", func(t *testing.T) {
		t.Parallel()

		bridge, err := googleauth.NewBridge(
			fakeProvider{identity: identity},
			fakeChecker{},
		)
		require.NoError(t, err)

		result := bridge.SignIn(ctx)
		assert.True(t, result.Success)
		assert.True(t, result.IsNewUser)
	})

	t.Run("cancellation is not an error", func(t *testing.T) {
		t.Parallel()

		bridge, err := googleauth.NewBridge(
			fakeProvider{err: googleauth.ErrCanceled},
			fakeChecker{},
		)
		require.NoError(t, err)

		result := bridge.SignIn(ctx)
		assert.True(t, result.Canceled)
		assert.False(t, result.Success)
		assert.NoError(t, result.Err)
	})

	t.Run("provider failure", func(t *testing.T) {
		t.Parallel()

		bridge, err := googleauth.NewBridge(
			fakeProvider{err: googleauth.ErrSignInFailed},
			fakeChecker{},
		)
		require.NoError(t, err)

		result := bridge.SignIn(ctx)
		assert.False(t, result.Success)
		assert.False(t, result.Canceled)
		assert.ErrorIs(t, result.Err, googleauth.ErrSignInFailed)
	})

	t.Run("email check failure", func(t *testing.T) {
		t.Parallel()

		checkErr := errors.New("backend down")
		bridge, err := googleauth.NewBridge(
			fakeProvider{identity: identity},
			fakeChecker{err: checkErr},
		)
		require.NoError(t, err)

		result := bridge.SignIn(ctx)
		assert.False(t, result.Success)
		assert.ErrorIs(t, result.Err, checkErr)
	})
}

func TestNewGoogleProvider(t *testing.T) {
	t.Parallel()

	consent := func(ctx context.Context, authURL string) (string, error) {
		return "", googleauth.ErrCanceled
	}

	t.Run("requires client id", func(t *testing.T) {
		t.Parallel()
		_, err := googleauth.NewGoogleProvider(googleauth.Config{}, consent)
		assert.Error(t, err)
	})

	t.Run("requires consent func", func(t *testing.T) {
		t.Parallel()
		_, err := googleauth.NewGoogleProvider(googleauth.Config{ClientID: "id"}, nil)
		assert.Error(t, err)
	})

	t.Run("consent cancellation propagates as ErrCanceled", func(t *testing.T) {
		t.Parallel()

		provider, err := googleauth.NewGoogleProvider(googleauth.Config{
			ClientID:    "id",
			RedirectURL: "jobdeck://oauth",
		}, consent)
		require.NoError(t, err)

		_, err = provider.SignIn(context.Background())
		assert.ErrorIs(t, err, googleauth.ErrCanceled)
	})
}
