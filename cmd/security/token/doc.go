// Package token hashes opaque credentials before they reach storage.
//
// Refresh tokens are never persisted verbatim. A Hasher produces a stable
// 64-char hex digest: HMAC-SHA256 when a key is configured, SHA-256 otherwise.
//
// Environment:
//   - MYAUTH_TOKEN_HMAC_KEY: when set, enables HMAC mode.
package token
