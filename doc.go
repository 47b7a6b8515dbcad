// Package jobdeck is the client core of the JobDeck recruiting app: the
// authentication and session-lifecycle engine every screen depends on.
//
// The package composes the engine's parts (credential store, API client,
// session bootstrapper, credential flow, and the Google sign-in bridge)
// behind one App. Screens never talk to the pieces directly except through
// the flow instance they own and the shared API client.
//
// Basic Usage:
//
//	app, err := jobdeck.New()
//	if err != nil {
//	    // handle error
//	}
//
//	// On process start: pick the first screen.
//	switch app.Start(ctx) {
//	case bootstrap.TargetAuthenticated:
//	    // navigate to the signed-in shell
//	case bootstrap.TargetLanding:
//	    // navigate to landing; the login screen creates a flow:
//	    flow, _ := app.NewFlow()
//	    _ = flow.SubmitEmail(ctx, "jane@example.com")
//	}
//
// Screens issue their own protected requests through app.API.Call; expired
// access tokens are refreshed and retried transparently.
package jobdeck
