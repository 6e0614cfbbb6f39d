// Package guard decides whether a navigation may proceed based on the route
// class and the presence of a valid session.
//
// Protected routes without a session redirect to the sign-in page with
// redirectTo set to the original path. Sign-in, registration and the root
// redirect to the dashboard when a session exists. Everything else passes.
// A failed session read is treated as no session.
package guard
