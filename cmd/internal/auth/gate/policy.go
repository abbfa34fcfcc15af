package gate

import (
	"fmt"
	"strings"
)

// Policy decides what happens when authentication fails for an unexpected reason.
type Policy int

const (
	// FailOpen lets the request continue as anonymous.
	FailOpen Policy = iota
	// FailClosed rejects the request with 503 AUTH_UNAVAILABLE.
	FailClosed
)

func (p Policy) String() string {
	if p == FailClosed {
		return "fail-closed"
	}
	return "fail-open"
}

// ParsePolicy parses "fail-open" or "fail-closed". Empty means FailOpen.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail-open", "open":
		return FailOpen, nil
	case "fail-closed", "closed":
		return FailClosed, nil
	default:
		return FailOpen, fmt.Errorf("gate: unknown failure policy %q", s)
	}
}
