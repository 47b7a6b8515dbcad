package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const userinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Config holds the Google OAuth application credentials.
type Config struct {
	ClientID     string `env:"JOBDECK_GOOGLE_CLIENT_ID,required"`
	ClientSecret string `env:"JOBDECK_GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `env:"JOBDECK_GOOGLE_REDIRECT_URL,required"`
}

// ConsentFunc drives the interactive part of the OAuth flow: the host app
// opens authURL (in-app browser tab on mobile) and returns the authorization
// code from the redirect. Return ErrCanceled when the user backs out.
type ConsentFunc func(ctx context.Context, authURL string) (code string, err error)

// GoogleProvider implements IdentityProvider on the standard authorization
// code flow against Google's OAuth endpoints.
type GoogleProvider struct {
	oauth   *oauth2.Config
	consent ConsentFunc
}

// NewGoogleProvider creates a provider. The consent func is required because
// only the host UI can present the browser step.
func NewGoogleProvider(cfg Config, consent ConsentFunc) (*GoogleProvider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("googleauth: client id is required")
	}
	if consent == nil {
		return nil, errors.New("googleauth: consent func is required")
	}
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		consent: consent,
	}, nil
}

// SignIn runs consent with PKCE, exchanges the code, and resolves the user's
// profile from Google's userinfo endpoint.
func (p *GoogleProvider) SignIn(ctx context.Context) (Identity, error) {
	verifier := oauth2.GenerateVerifier()
	authURL := p.oauth.AuthCodeURL(uuid.NewString(),
		oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))

	code, err := p.consent(ctx, authURL)
	if err != nil {
		if errors.Is(err, ErrCanceled) {
			return Identity{}, ErrCanceled
		}
		return Identity{}, errors.Join(ErrSignInFailed, err)
	}

	token, err := p.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return Identity{}, errors.Join(ErrSignInFailed, err)
	}

	info, err := p.userinfo(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	if info.Email == "" {
		return Identity{}, ErrNoEmail
	}

	return Identity{
		Token:         token.AccessToken,
		Email:         info.Email,
		Name:          info.Name,
		EmailVerified: info.VerifiedEmail,
	}, nil
}

type googleUserinfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (p *GoogleProvider) userinfo(ctx context.Context, token *oauth2.Token) (googleUserinfo, error) {
	resp, err := p.oauth.Client(ctx, token).Get(userinfoURL)
	if err != nil {
		return googleUserinfo{}, errors.Join(ErrSignInFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return googleUserinfo{}, errors.Join(ErrSignInFailed,
			fmt.Errorf("userinfo returned %d", resp.StatusCode))
	}

	var info googleUserinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserinfo{}, errors.Join(ErrSignInFailed, err)
	}
	return info, nil
}
