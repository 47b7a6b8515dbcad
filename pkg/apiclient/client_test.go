package apiclient_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/jobdeck-go/pkg/apiclient"
	"github.com/jobdeck/jobdeck-go/pkg/authtest"
	"github.com/jobdeck/jobdeck-go/pkg/credstore"
)

func newClient(t *testing.T, srv *authtest.Server) (*apiclient.Client, *credstore.Store) {
	t.Helper()

	store, err := credstore.New(credstore.NewMemoryKV())
	require.NoError(t, err)

	client, err := apiclient.New(apiclient.Config{
		BaseURL: srv.URL(),
		Timeout: 5 * time.Second,
	}, store)
	require.NoError(t, err)
	return client, store
}

func TestNew(t *testing.T) {
	t.Parallel()

	store, err := credstore.New(credstore.NewMemoryKV())
	require.NoError(t, err)

	_, err = apiclient.New(apiclient.Config{}, store)
	assert.Error(t, err)

	_, err = apiclient.New(apiclient.Config{BaseURL: "http://localhost"}, nil)
	assert.Error(t, err)
}

func TestClient_CheckEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := authtest.New()
	t.Cleanup(srv.Close)
	srv.AddUser("jane@example.com", "hunter22", "Jane")

	client, _ := newClient(t, srv)

	registered, err := client.CheckEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.True(t, registered)

	registered, err = client.CheckEmail(ctx, "new@x.com")
	require.NoError(t, err)
	assert.False(t, registered)
}

func TestClient_Login(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := authtest.New()
	t.Cleanup(srv.Close)
	srv.AddUser("jane@example.com", "hunter22", "Jane")

	client, _ := newClient(t, srv)

	t.Run("valid credentials", func(t *testing.T) {
		result, err := client.Login(ctx, "jane@example.com", "hunter22")
		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.RefreshToken)
		assert.Equal(t, "jane@example.com", result.User.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := client.Login(ctx, "jane@example.com", "wrong")
		assert.ErrorIs(t, err, apiclient.ErrInvalidCredentials)
	})

	t.Run("unknown account maps to the same error", func(t *testing.T) {
		_, err := client.Login(ctx, "nobody@example.com", "whatever")
		assert.ErrorIs(t, err, apiclient.ErrInvalidCredentials)
	})
}

func TestClient_Register(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := authtest.New()
	t.Cleanup(srv.Close)
	srv.AddUser("taken@example.com", "hunter22", "Existing")

	client, _ := newClient(t, srv)

	t.Run("accepted", func(t *testing.T) {
		err := client.Register(ctx, apiclient.RegistrationPayload{
			Email:           "new@x.com",
			Password:        "hunter22",
			Name:            "New",
			Company:         "Acme",
			ProblemCategory: "hiring",
		})
		require.NoError(t, err)
	})

	t.Run("duplicate email surfaces the server message", func(t *testing.T) {
		err := client.Register(ctx, apiclient.RegistrationPayload{
			Email:           "taken@example.com",
			Password:        "hunter22",
			Name:            "Dup",
			Company:         "Acme",
			ProblemCategory: "hiring",
		})
		require.ErrorIs(t, err, apiclient.ErrConflict)

		var apiErr *apiclient.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "A user with this email already exists.", apiErr.FirstFieldError())
	})
}

func TestClient_VerifyOTP(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := authtest.New()
	t.Cleanup(srv.Close)

	client, _ := newClient(t, srv)
	require.NoError(t, client.Register(ctx, apiclient.RegistrationPayload{
		Email: "new@x.com", Password: "hunter22", Name: "New",
		Company: "Acme", ProblemCategory: "hiring",
	}))

	t.Run("wrong code", func(t *testing.T) {
		_, err := client.VerifyOTP(ctx, "new@x.com", "000000")
		assert.ErrorIs(t, err, apiclient.ErrInvalidOTP)
	})

	t.Run("non-numeric code never reaches the network", func(t *testing.T) {
		_, err := client.VerifyOTP(ctx, "new@x.com", "abcdef")
		assert.ErrorIs(t, err, apiclient.ErrInvalidOTP)
	})

	t.Run("correct code returns credentials", func(t *testing.T) {
		result, err := client.VerifyOTP(ctx, "new@x.com", authtest.DefaultOTP)
		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.Equal(t, "new@x.com", result.User.Email)
	})
}

func TestClient_Call_RefreshRetry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("expired access token is refreshed and the call retried once", func(t *testing.T) {
		t.Parallel()

		srv := authtest.New()
		t.Cleanup(srv.Close)
		srv.AddUser("jane@example.com", "hunter22", "Jane")
		access, refresh := srv.IssueTokens("jane@example.com")

		client, store := newClient(t, srv)
		require.NoError(t, store.SetSession(ctx, credstore.Session{AccessToken: access, RefreshToken: refresh}))

		srv.ExpireAccessTokens()

		var out struct {
			User authtest.User `json:"user"`
		}
		err := client.Call(ctx, http.MethodGet, "/profile/", nil, &out)
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", out.User.Email)
		assert.Equal(t, 1, srv.RefreshCalls())

		// The store holds the refreshed pair.
		sess, err := store.Session(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, access, sess.AccessToken)
		assert.NotEmpty(t, sess.AccessToken)
	})

	t.Run("rotated refresh token is stored", func(t *testing.T) {
		t.Parallel()

		srv := authtest.New(authtest.WithRefreshRotation())
		t.Cleanup(srv.Close)
		srv.AddUser("jane@example.com", "hunter22", "Jane")
		access, refresh := srv.IssueTokens("jane@example.com")

		client, store := newClient(t, srv)
		require.NoError(t, store.SetSession(ctx, credstore.Session{AccessToken: access, RefreshToken: refresh}))
		srv.ExpireAccessTokens()

		require.NoError(t, client.Call(ctx, http.MethodGet, "/profile/", nil, nil))

		sess, err := store.Session(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, refresh, sess.RefreshToken)
		assert.NotEmpty(t, sess.RefreshToken)
	})

	t.Run("invalid refresh token clears credentials and returns the 401", func(t *testing.T) {
		t.Parallel()

		srv := authtest.New()
		t.Cleanup(srv.Close)
		srv.AddUser("jane@example.com", "hunter22", "Jane")
		access, refresh := srv.IssueTokens("jane@example.com")

		client, store := newClient(t, srv)
		require.NoError(t, store.SetSession(ctx, credstore.Session{AccessToken: access, RefreshToken: refresh}))

		srv.ExpireAccessTokens()
		srv.RevokeRefreshTokens()

		err := client.Call(ctx, http.MethodGet, "/profile/", nil, nil)
		assert.ErrorIs(t, err, apiclient.ErrUnauthorized)

		sess, storeErr := store.Session(ctx)
		require.NoError(t, storeErr)
		assert.True(t, sess.IsEmpty())
	})

	t.Run("missing refresh token clears credentials without a network refresh", func(t *testing.T) {
		t.Parallel()

		srv := authtest.New()
		t.Cleanup(srv.Close)
		srv.AddUser("jane@example.com", "hunter22", "Jane")
		access, _ := srv.IssueTokens("jane@example.com")

		client, store := newClient(t, srv)
		require.NoError(t, store.SetSession(ctx, credstore.Session{AccessToken: access}))
		srv.ExpireAccessTokens()

		err := client.Call(ctx, http.MethodGet, "/profile/", nil, nil)
		assert.ErrorIs(t, err, apiclient.ErrUnauthorized)
		assert.Equal(t, 0, srv.RefreshCalls())
	})
}

func TestClient_Call_SingleFlight(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := authtest.New(authtest.WithRefreshDelay(150 * time.Millisecond))
	t.Cleanup(srv.Close)
	srv.AddUser("jane@example.com", "hunter22", "Jane")
	access, refresh := srv.IssueTokens("jane@example.com")

	client, store := newClient(t, srv)
	require.NoError(t, store.SetSession(ctx, credstore.Session{AccessToken: access, RefreshToken: refresh}))
	srv.ExpireAccessTokens()

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.Call(ctx, http.MethodGet, "/profile/", nil, nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "caller %d", i)
	}
	// All concurrent 401s collapsed onto one backend refresh.
	assert.Equal(t, 1, srv.RefreshCalls())
}

func TestClient_Call_NetworkError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := authtest.New()
	srv.Close() // nothing listening anymore

	client, _ := newClient(t, srv)
	err := client.Call(ctx, http.MethodGet, "/profile/", nil, nil)
	assert.ErrorIs(t, err, apiclient.ErrNetwork)
	assert.NotErrorIs(t, err, apiclient.ErrUnauthorized)
}

func TestClient_GoogleExchange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := authtest.New()
	t.Cleanup(srv.Close)
	srv.RegisterGoogleToken("g-token", "google@x.com")

	client, _ := newClient(t, srv)

	result, err := client.GoogleExchange(ctx, "g-token")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, "google@x.com", result.User.Email)

	_, err = client.GoogleExchange(ctx, "bogus")
	assert.ErrorIs(t, err, apiclient.ErrGoogleExchange)
}
