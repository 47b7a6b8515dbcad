// Package googleauth folds Google sign-in into the credential flow. An
// IdentityProvider obtains a Google identity (token, email, name) through an
// interactive OAuth consent step; the Bridge then classifies the address as a
// new or existing account so the flow can route into the right branch.
//
// Existing accounts still go through the password step: the identity token
// alone is not accepted as a login for them. New accounts skip the password
// and OTP steps entirely; their registration completes through the backend's
// Google exchange endpoint.
package googleauth
