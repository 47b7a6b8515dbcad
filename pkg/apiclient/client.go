package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/jobdeck/jobdeck-go/pkg/credstore"
)

// Client issues requests against the JobDeck backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      *credstore.Store
	log        *slog.Logger

	// refreshGroup collapses concurrent 401 recoveries onto one refresh
	// call; all waiters share the same outcome.
	refreshGroup singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client. The config timeout is
// not applied to a caller-supplied client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a Client. The store is required: it is both the source of the
// bearer token and the destination of refreshed token pairs.
func New(cfg Config, store *credstore.Store, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("apiclient: base url is required")
	}
	if store == nil {
		return nil, errors.New("apiclient: credential store is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		store:      store,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Call issues a protected request and decodes the JSON response into out
// (out may be nil). On a 401 it refreshes the token pair, single-flight
// across all concurrent callers, and retries the original request exactly
// once with the new token. Non-401 failures propagate unchanged; if the
// refresh itself fails, the original 401 is returned and the stored
// credentials have been cleared.
func (c *Client) Call(ctx context.Context, method, path string, body, out any) error {
	status, raw, err := c.do(ctx, method, path, body, true)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		if refreshErr := c.refreshTokens(ctx); refreshErr != nil {
			return errors.Join(ErrUnauthorized, apiErrorFromResponse(status, raw))
		}
		status, raw, err = c.do(ctx, method, path, body, true)
		if err != nil {
			return err
		}
	}

	if status < 200 || status >= 300 {
		err := apiErrorFromResponse(status, raw)
		if status == http.StatusUnauthorized {
			return errors.Join(ErrUnauthorized, err)
		}
		return err
	}
	return decodeInto(raw, out)
}

// do performs one HTTP attempt and returns the status plus the raw body.
// Transport-level failures come back wrapped in ErrNetwork.
func (c *Client) do(ctx context.Context, method, path string, body any, withAuth bool) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withAuth {
		if sess, err := c.store.Session(ctx); err == nil && sess.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.DebugContext(ctx, "request failed before response",
			slog.String("method", method), slog.String("path", path))
		return 0, nil, errors.Join(ErrNetwork, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.Join(ErrNetwork, err)
	}

	c.log.DebugContext(ctx, "request completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode))
	return resp.StatusCode, raw, nil
}

// refreshTokens mints a new access token from the stored refresh token.
// Exactly one refresh call reaches the backend no matter how many requests
// hit a 401 at the same time. On failure the stored credentials are cleared
// and ErrRefreshFailed is returned to every waiter.
func (c *Client) refreshTokens(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		// The refresh outcome is shared by every waiter, so it must not
		// die with the first caller's context.
		ctx := context.WithoutCancel(ctx)

		sess, err := c.store.Session(ctx)
		if err != nil {
			return nil, err
		}
		if sess.RefreshToken == "" {
			if clearErr := c.store.Clear(ctx); clearErr != nil {
				return nil, clearErr
			}
			return nil, ErrRefreshFailed
		}

		status, raw, err := c.do(ctx, http.MethodPost, "/auth/refresh-token/",
			map[string]string{"refresh": sess.RefreshToken}, false)
		if err != nil {
			return nil, err
		}
		if status < 200 || status >= 300 {
			if clearErr := c.store.Clear(ctx); clearErr != nil {
				return nil, clearErr
			}
			c.log.InfoContext(ctx, "refresh token rejected, credentials cleared",
				slog.Int("status", status))
			return nil, errors.Join(ErrRefreshFailed, apiErrorFromResponse(status, raw))
		}

		var pair struct {
			Access  string `json:"access"`
			Refresh string `json:"refresh"`
		}
		if err := json.Unmarshal(raw, &pair); err != nil || pair.Access == "" {
			if clearErr := c.store.Clear(ctx); clearErr != nil {
				return nil, clearErr
			}
			return nil, ErrRefreshFailed
		}

		// Server may not rotate the refresh token; keep the current one then.
		refresh := pair.Refresh
		if refresh == "" {
			refresh = sess.RefreshToken
		}
		return nil, c.store.SetTokens(ctx, pair.Access, refresh)
	})
	return err
}

// decodeInto unmarshals a response body, tolerating empty bodies and nil
// destinations.
func decodeInto(raw []byte, out any) error {
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// apiErrorFromResponse parses the backend's error payload. The backend emits
// either {"message": "..."} / {"detail": "..."} or a field-keyed map of
// message lists; unknown shapes fall back to the bare status.
func apiErrorFromResponse(status int, raw []byte) *APIError {
	apiErr := &APIError{Status: status}
	if len(raw) == 0 {
		return apiErr
	}

	var envelope struct {
		Message string              `json:"message"`
		Detail  string              `json:"detail"`
		Errors  map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		apiErr.Message = envelope.Message
		if apiErr.Message == "" {
			apiErr.Message = envelope.Detail
		}
		apiErr.Fields = envelope.Errors
	}
	if apiErr.Message == "" && apiErr.Fields == nil {
		// Some validation errors arrive as a bare field map.
		var fields map[string][]string
		if err := json.Unmarshal(raw, &fields); err == nil {
			apiErr.Fields = fields
		}
	}
	return apiErr
}
