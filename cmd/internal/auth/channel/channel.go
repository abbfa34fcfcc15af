// Package channel decides how a client receives its refresh token.
//
// Web clients get an HTTP-only cookie. Mobile clients get the token in the JSON body.
package channel

import (
	"net/http"
	"strings"
)

// Channel is the refresh-token delivery path for a client.
type Channel int

const (
	Web Channel = iota
	Mobile
)

func (c Channel) String() string {
	if c == Mobile {
		return "mobile"
	}
	return "web"
}

// HeaderClientType lets a client state its channel explicitly.
const HeaderClientType = "X-Client-Type"

const (
	clientTypeMobile = "mobile-app"
	clientTypeWeb    = "web"
)

// DefaultMobileSignatures are lower-case User-Agent substrings of native clients:
// app identifiers, Android HTTP stacks, iOS networking stacks and cross-platform frameworks.
var DefaultMobileSignatures = []string{
	"myauthmobileapp",
	"myapp",
	"okhttp",
	"volley",
	"retrofit",
	"cfnetwork",
	"nsurlsession",
	"nsurlconnection",
	"react native",
	"reactnative",
	"flutter",
	"dart",
	"expo",
}

// Classifier maps request headers to a Channel. The zero value uses DefaultMobileSignatures.
type Classifier struct {
	signatures []string
}

// NewClassifier returns a Classifier matching DefaultMobileSignatures plus extra.
// Blank entries are ignored.
func NewClassifier(extra ...string) *Classifier {
	sigs := make([]string, 0, len(DefaultMobileSignatures)+len(extra))
	sigs = append(sigs, DefaultMobileSignatures...)
	for _, s := range extra {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			sigs = append(sigs, s)
		}
	}
	return &Classifier{signatures: sigs}
}

// Classify returns Mobile or Web for h. It accepts a nil header and never fails.
// An explicit X-Client-Type always wins over the User-Agent.
func (c *Classifier) Classify(h http.Header) Channel {
	if h == nil {
		return Web
	}

	switch strings.ToLower(strings.TrimSpace(h.Get(HeaderClientType))) {
	case clientTypeMobile:
		return Mobile
	case clientTypeWeb:
		return Web
	}

	ua := strings.ToLower(h.Get("User-Agent"))
	if ua == "" {
		return Web
	}
	for _, sig := range c.signaturesOrDefault() {
		if strings.Contains(ua, sig) {
			return Mobile
		}
	}
	return Web
}

// ClassifyRequest is Classify over r's headers. A nil request is Web.
func (c *Classifier) ClassifyRequest(r *http.Request) Channel {
	if r == nil {
		return Web
	}
	return c.Classify(r.Header)
}

func (c *Classifier) signaturesOrDefault() []string {
	if c == nil || len(c.signatures) == 0 {
		return DefaultMobileSignatures
	}
	return c.signatures
}
