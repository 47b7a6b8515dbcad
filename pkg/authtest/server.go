// Package authtest runs an in-process fake of the JobDeck auth backend for
// tests, with an in-memory user table, deterministic tokens, and counters
// for asserting how often the backend was actually hit.
package authtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// DefaultOTP is the verification code the fake accepts unless overridden.
const DefaultOTP = "123456"

// User is a row of the fake backend's user table.
type User struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	Password        string    `json:"-"`
	Name            string    `json:"name"`
	Company         string    `json:"company"`
	ProblemCategory string    `json:"problemCategory"`
	Verified        bool      `json:"-"`
}

// Server is the fake backend. Create one per test with New and Close it when
// done.
type Server struct {
	httpServer *httptest.Server

	mu            sync.Mutex
	users         map[string]*User
	otp           string
	tokenSeq      int
	validAccess   map[string]string // access token -> email
	validRefresh  map[string]string // refresh token -> email
	googleTokens  map[string]string // identity token -> email
	rotateRefresh bool
	refreshDelay  time.Duration
	latency       time.Duration
	refreshCalls  int
	otpCalls      int
	registerCalls map[string]int
}

// Option configures the fake.
type Option func(*Server)

// WithOTP overrides the accepted verification code.
func WithOTP(code string) Option {
	return func(s *Server) { s.otp = code }
}

// WithRefreshRotation makes the refresh endpoint rotate the refresh token.
func WithRefreshRotation() Option {
	return func(s *Server) { s.rotateRefresh = true }
}

// WithRefreshDelay makes each refresh call take at least d, widening the
// race window for single-flight tests.
func WithRefreshDelay(d time.Duration) Option {
	return func(s *Server) { s.refreshDelay = d }
}

// WithLatency makes every endpoint take at least d, for tests that need an
// operation to still be in flight.
func WithLatency(d time.Duration) Option {
	return func(s *Server) { s.latency = d }
}

// New starts the fake backend.
func New(opts ...Option) *Server {
	s := &Server{
		users:         make(map[string]*User),
		otp:           DefaultOTP,
		validAccess:   make(map[string]string),
		validRefresh:  make(map[string]string),
		googleTokens:  make(map[string]string),
		registerCalls: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	if s.latency > 0 {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(s.latency)
				next.ServeHTTP(w, r)
			})
		})
	}
	r.Post("/auth/check-email/", s.handleCheckEmail)
	r.Post("/auth/login/", s.handleLogin)
	r.Post("/auth/register/", s.handleRegister)
	r.Post("/auth/verify-otp/", s.handleVerifyOTP)
	r.Post("/auth/refresh-token/", s.handleRefresh)
	r.Post("/auth/google/", s.handleGoogle)
	r.Get("/profile/", s.handleProfile)

	s.httpServer = httptest.NewServer(r)
	return s
}

// URL returns the base URL for client configs.
func (s *Server) URL() string {
	return s.httpServer.URL
}

// Close shuts the fake down.
func (s *Server) Close() {
	s.httpServer.Close()
}

// AddUser seeds a verified account and returns it.
func (s *Server) AddUser(email, password, name string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := &User{
		ID:       uuid.New(),
		Email:    email,
		Password: password,
		Name:     name,
		Verified: true,
	}
	s.users[email] = user
	return user
}

// IssueTokens mints a valid token pair for a seeded user, for tests that
// start from a signed-in state.
func (s *Server) IssueTokens(email string) (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueTokensLocked(email)
}

// ExpireAccessTokens invalidates every outstanding access token so the next
// protected request observes a 401. Refresh tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validAccess = make(map[string]string)
}

// RevokeRefreshTokens invalidates every outstanding refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validRefresh = make(map[string]string)
}

// RegisterGoogleToken maps an identity token to an email for the exchange
// endpoint.
func (s *Server) RegisterGoogleToken(token, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.googleTokens[token] = email
}

// RefreshCalls reports how many refresh requests reached the backend.
func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// OTPCalls reports how many verification requests reached the backend.
func (s *Server) OTPCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.otpCalls
}

// RegisterCalls reports how many registration requests arrived for email.
func (s *Server) RegisterCalls(email string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registerCalls[email]
}

func (s *Server) issueTokensLocked(email string) (access, refresh string) {
	s.tokenSeq++
	access = fmt.Sprintf("access-%d", s.tokenSeq)
	refresh = fmt.Sprintf("refresh-%d", s.tokenSeq)
	s.validAccess[access] = email
	s.validRefresh[refresh] = email
	return access, refresh
}

func (s *Server) handleCheckEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}

	s.mu.Lock()
	_, ok := s.users[body.Email]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not registered"})
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[body.Email]
	if !ok || user.Password != body.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid credentials"})
		return
	}
	access, refresh := s.issueTokensLocked(body.Email)
	writeJSON(w, http.StatusOK, map[string]any{
		"access":  access,
		"refresh": refresh,
		"user":    user,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		Name            string `json:"name"`
		Company         string `json:"company"`
		ProblemCategory string `json:"problemCategory"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.registerCalls[body.Email]++

	if existing, ok := s.users[body.Email]; ok {
		// A verified account blocks re-registration; an unverified one
		// gets its code re-dispatched, which is how resend works.
		if existing.Verified {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"errors": map[string][]string{
					"email": {"A user with this email already exists."},
				},
			})
			return
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	s.users[body.Email] = &User{
		ID:              uuid.New(),
		Email:           body.Email,
		Password:        body.Password,
		Name:            body.Name,
		Company:         body.Company,
		ProblemCategory: body.ProblemCategory,
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		OTP   int    `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.otpCalls++

	user, ok := s.users[body.Email]
	if !ok || fmt.Sprintf("%d", body.OTP) != trimLeadingZeros(s.otp) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid otp"})
		return
	}

	user.Verified = true
	access, refresh := s.issueTokensLocked(body.Email)
	writeJSON(w, http.StatusOK, map[string]any{
		"access":  access,
		"refresh": refresh,
		"user":    user,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}

	s.mu.Lock()
	s.refreshCalls++
	delay := s.refreshDelay
	email, ok := s.validRefresh[body.Refresh]
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "refresh token invalid"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokenSeq++
	access := fmt.Sprintf("access-%d", s.tokenSeq)
	s.validAccess[access] = email

	resp := map[string]any{"access": access}
	if s.rotateRefresh {
		delete(s.validRefresh, body.Refresh)
		refresh := fmt.Sprintf("refresh-%d", s.tokenSeq)
		s.validRefresh[refresh] = email
		resp["refresh"] = refresh
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGoogle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.googleTokens[body.AccessToken]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "identity token rejected"})
		return
	}

	user, ok := s.users[email]
	if !ok {
		user = &User{ID: uuid.New(), Email: email, Verified: true}
		s.users[email] = user
	}
	user.Verified = true
	access, refresh := s.issueTokensLocked(email)
	writeJSON(w, http.StatusOK, map[string]any{
		"access":  access,
		"refresh": refresh,
		"user":    user,
	})
}

// handleProfile is the protected endpoint used to exercise the 401 refresh
// path from tests.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)

	s.mu.Lock()
	email, ok := s.validAccess[token]
	user := s.users[email]
	s.mu.Unlock()

	if !ok || user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

func trimLeadingZeros(code string) string {
	for len(code) > 1 && code[0] == '0' {
		code = code[1:]
	}
	return code
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
