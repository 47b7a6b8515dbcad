// Package apiclient is the outbound HTTP layer of the client. Every request
// to the JobDeck backend goes through it: it attaches the bearer token from
// the credential store, and on a 401 from a protected endpoint it refreshes
// the token pair and retries the original call exactly once.
//
// Concurrent 401s collapse onto a single refresh call via singleflight; every
// waiting request observes the same outcome. A failed refresh clears the
// stored credentials and hands the original 401 back to the caller; the
// client never forces navigation itself.
//
// The typed methods (CheckEmail, Login, Register, VerifyOTP, GoogleExchange)
// cover the auth endpoints and bypass the refresh path: a 401 from login is a
// credential error, not an expired session. Screens use Call for their own
// protected endpoints.
package apiclient
