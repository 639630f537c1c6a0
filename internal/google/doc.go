// Package google handles Google OAuth for the calendar: client secrets, the
// browser consent flow and the on-disk token.
//
// The token lives in a single JSON file managed by TokenStore. TokenSource
// wraps the stored token so that refreshed access tokens are written back,
// and HTTPClient turns that source into an authenticated *http.Client for the
// Calendar API.
package google
