// Package identity owns the account model consumed by authentication:
// users, their status gating, identity stores, and the password capability.
package identity
