package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/jobdeck/jobdeck-go/pkg/credstore"
)

// AuthResult is the credential set returned by login, OTP verification, and
// the Google exchange.
type AuthResult struct {
	AccessToken  string                `json:"access"`
	RefreshToken string                `json:"refresh"`
	User         credstore.UserProfile `json:"user"`
}

// Session converts the result into a storable session.
func (r AuthResult) Session() credstore.Session {
	user := r.User
	return credstore.Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		User:         &user,
	}
}

// RegistrationPayload is the request body for Register. The same payload is
// re-sent verbatim to re-trigger OTP dispatch on resend.
type RegistrationPayload struct {
	Email           string `json:"email"`
	Password        string `json:"password,omitempty"`
	Name            string `json:"name"`
	Company         string `json:"company"`
	ProblemCategory string `json:"problemCategory"`
}

// CheckEmail reports whether the email already has an account. The backend
// answers with a 2xx for registered addresses and a 4xx otherwise, so only
// transport failures surface as errors.
func (c *Client) CheckEmail(ctx context.Context, email string) (bool, error) {
	status, _, err := c.do(ctx, http.MethodPost, "/auth/check-email/",
		map[string]string{"email": email}, false)
	if err != nil {
		return false, err
	}
	return status >= 200 && status < 300, nil
}

// Login exchanges email/password for a credential set. Any rejection maps to
// ErrInvalidCredentials regardless of whether the account exists.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	status, raw, err := c.do(ctx, http.MethodPost, "/auth/login/",
		map[string]string{"email": email, "password": password}, false)
	if err != nil {
		return AuthResult{}, err
	}
	if status < 200 || status >= 300 {
		return AuthResult{}, errors.Join(ErrInvalidCredentials, apiErrorFromResponse(status, raw))
	}

	var result AuthResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return AuthResult{}, err
	}
	return result, nil
}

// Register submits the registration payload; on success the backend
// dispatches an OTP to the given email.
func (c *Client) Register(ctx context.Context, payload RegistrationPayload) error {
	status, raw, err := c.do(ctx, http.MethodPost, "/auth/register/", payload, false)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return errors.Join(ErrConflict, apiErrorFromResponse(status, raw))
	}
	return nil
}

// VerifyOTP submits the joined code for the given email. The backend expects
// the code as a JSON number.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (AuthResult, error) {
	otp, err := strconv.Atoi(code)
	if err != nil {
		return AuthResult{}, errors.Join(ErrInvalidOTP, err)
	}

	status, raw, err := c.do(ctx, http.MethodPost, "/auth/verify-otp/",
		map[string]any{"email": email, "otp": otp}, false)
	if err != nil {
		return AuthResult{}, err
	}
	if status < 200 || status >= 300 {
		return AuthResult{}, errors.Join(ErrInvalidOTP, apiErrorFromResponse(status, raw))
	}

	var result AuthResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return AuthResult{}, err
	}
	return result, nil
}

// GoogleExchange trades a Google identity token for a credential set.
func (c *Client) GoogleExchange(ctx context.Context, identityToken string) (AuthResult, error) {
	status, raw, err := c.do(ctx, http.MethodPost, "/auth/google/",
		map[string]string{"access_token": identityToken}, false)
	if err != nil {
		return AuthResult{}, err
	}
	if status < 200 || status >= 300 {
		return AuthResult{}, errors.Join(ErrGoogleExchange, apiErrorFromResponse(status, raw))
	}

	var result AuthResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return AuthResult{}, err
	}
	return result, nil
}

// Refresh forces a token refresh outside the 401 recovery path. The session
// bootstrapper uses it for its fire-and-forget startup refresh.
func (c *Client) Refresh(ctx context.Context) error {
	return c.refreshTokens(ctx)
}
