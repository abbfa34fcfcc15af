// Package httpx holds the JSON codec helpers and the structured error body
// shared by every HTTP surface.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// Error codes carried in ErrorResponse.ErrorCode.
const (
	CodeTokenExpired               = "TOKEN_EXPIRED"
	CodeInvalidToken               = "INVALID_TOKEN"
	CodeNoToken                    = "NO_TOKEN"
	CodeInvalidCredentials         = "INVALID_CREDENTIALS"
	CodeAccountInactive            = "ACCOUNT_INACTIVE"
	CodeAccountSuspended           = "ACCOUNT_SUSPENDED"
	CodeAccountDeleted             = "ACCOUNT_DELETED"
	CodeAccountPendingVerification = "ACCOUNT_PENDING_VERIFICATION"
	CodeEmailTaken                 = "EMAIL_TAKEN"
	CodeInvalidRequest             = "INVALID_REQUEST"
	CodeWeakPassword               = "WEAK_PASSWORD"
	CodeMethodNotAllowed           = "METHOD_NOT_ALLOWED"
	CodeNotFound                   = "NOT_FOUND"
	CodePayloadTooLarge            = "PAYLOAD_TOO_LARGE"
	CodeTooManyAttempts            = "TOO_MANY_ATTEMPTS"
	CodeUnsupportedMedia           = "UNSUPPORTED_MEDIA_TYPE"
	CodeAuthUnavailable            = "AUTH_UNAVAILABLE"
	CodeInternal                   = "INTERNAL_ERROR"
)

// Actions tell the client what to do next.
const (
	ActionRefreshToken  = "REFRESH_TOKEN"
	ActionLoginRequired = "LOGIN_REQUIRED"
)

// Client-facing messages shared across packages.
const (
	MsgTokenExpired = "Access token has expired. Please refresh the token."
	MsgInvalidToken = "Invalid token. Please log in again."
	MsgNoToken      = "Authentication is required. Please log in."
	MsgInternal     = "Something went wrong. Please try again later."
	MsgUnavailable  = "Authentication is temporarily unavailable. Please try again later."
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
	Action    string `json:"action,omitempty"`
	Path      string `json:"path"`
}

// WriteJSON writes v with status. Responses are never cached.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorResponse whose path is the request path.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, action, msg string) {
	path := ""
	if r != nil && r.URL != nil {
		path = r.URL.Path
	}
	WriteJSON(w, status, ErrorResponse{ErrorCode: code, Message: msg, Action: action, Path: path})
}

// ErrEmptyBody is returned by the decoders when the request carries no JSON value at all.
var ErrEmptyBody = errors.New("empty body")

// DecodeJSON decodes exactly one JSON object from the body, rejecting unknown fields and trailing data.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	return decodeJSON(w, r, maxBytes, dst, true)
}

// DecodeJSONLoose is DecodeJSON without the unknown-field check, for bodies
// that clients are known to decorate with their own fields.
func DecodeJSONLoose(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	return decodeJSON(w, r, maxBytes, dst, false)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any, strict bool) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}

// IsTooLarge reports whether err came from a MaxBytesReader limit.
func IsTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// ok is false when the header is absent or not a bearer credential.
func BearerToken(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	if tok == "" {
		return "", false
	}
	return tok, true
}

// MethodNotAllowed writes a 405 with the Allow header.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request, allow ...string) {
	if len(allow) > 0 {
		w.Header().Set("Allow", strings.Join(allow, ", "))
	}
	WriteError(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "", "Method not allowed.")
}
