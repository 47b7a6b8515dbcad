package credstore

// UserProfile is the account data returned by the backend on login,
// registration, or OTP verification. Profile-edit screens mutate it through
// the API client; the store only persists the latest copy.
type UserProfile struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	Company         string `json:"company"`
	ProblemCategory string `json:"problemCategory"`
	// AccessToken carries the Google identity token for accounts created
	// through the Google sign-in path; empty otherwise.
	AccessToken string `json:"accessToken,omitempty"`
}

// Session is the credential set of one signed-in user. A session is either
// fully empty or holds at least an access token; the refresh token may be
// absent (Google sign-in before full registration).
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *UserProfile
}

// IsAuthenticated reports whether the session carries an access token.
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != ""
}

// IsEmpty reports whether the session holds no credentials at all.
func (s Session) IsEmpty() bool {
	return s.AccessToken == "" && s.RefreshToken == "" && s.User == nil
}

// valid checks the session invariant: a refresh token never exists without
// an access token.
func (s Session) valid() bool {
	return s.RefreshToken == "" || s.AccessToken != ""
}
