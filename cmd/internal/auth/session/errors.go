package session

import (
	"errors"
	"fmt"

	"myauth/cmd/identity"
)

var (
	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountInactive is returned when an account may not hold a session.
	ErrAccountInactive = errors.New("account inactive")

	// ErrRefreshInvalid is returned when a refresh token fails verification.
	// Expired and tampered tokens are not distinguished here.
	ErrRefreshInvalid = errors.New("refresh token invalid")

	// ErrRefreshNotFound is returned when a valid refresh token has no record.
	ErrRefreshNotFound = errors.New("refresh record not found")

	// ErrRefreshExpired is returned when the record's own expiry has passed.
	ErrRefreshExpired = errors.New("refresh record expired")

	// ErrRefreshConflict is returned when a record for the same token already exists.
	ErrRefreshConflict = errors.New("refresh record conflict")
)

// AccountStatusError reports which status blocked authentication.
type AccountStatusError struct {
	Status identity.Status
}

func (e AccountStatusError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAccountInactive, e.Status)
}

func (e AccountStatusError) Unwrap() error { return ErrAccountInactive }

// StatusOf returns the blocking status carried by err, if any.
func StatusOf(err error) (identity.Status, bool) {
	var se AccountStatusError
	if errors.As(err, &se) {
		return se.Status, true
	}
	return "", false
}
