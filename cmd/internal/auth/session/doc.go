// Package session issues and redeems authentication sessions.
//
// Access and refresh tokens are HS256 JWTs produced by Codec. Each refresh token
// is also tracked by a RefreshRecord keyed by the token's hash, so a refresh is
// redeemable only while both its embedded expiry and its record are valid.
// Refresh does not rotate: it reissues the access token only.
//
// Transport (cookies, JSON bodies, status codes) is out of scope here.
package session
