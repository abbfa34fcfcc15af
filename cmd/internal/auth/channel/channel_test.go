package channel

import (
	"net/http"
	"testing"
)

func TestClassify(t *testing.T) {
	c := NewClassifier()

	cases := []struct {
		name   string
		header http.Header
		want   Channel
	}{
		{"nil header", nil, Web},
		{"empty header", http.Header{}, Web},
		{"explicit mobile beats browser UA", http.Header{
			"X-Client-Type": {"mobile-app"},
			"User-Agent":    {"Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0"},
		}, Mobile},
		{"explicit web beats okhttp", http.Header{
			"X-Client-Type": {"web"},
			"User-Agent":    {"okhttp/4.9.0"},
		}, Web},
		{"explicit value is case-insensitive", http.Header{"X-Client-Type": {"  Mobile-App "}}, Mobile},
		{"unknown explicit value falls through", http.Header{
			"X-Client-Type": {"desktop"},
			"User-Agent":    {"Dart/3.2 (dart:io)"},
		}, Mobile},
		{"okhttp", http.Header{"User-Agent": {"MyService okhttp/4.9.3"}}, Mobile},
		{"retrofit", http.Header{"User-Agent": {"Retrofit/2.9"}}, Mobile},
		{"ios stack", http.Header{"User-Agent": {"App/1 CFNetwork/1410.0.3 Darwin/22.6.0"}}, Mobile},
		{"react native", http.Header{"User-Agent": {"React Native/0.72"}}, Mobile},
		{"flutter", http.Header{"User-Agent": {"Flutter/3.16"}}, Mobile},
		{"expo", http.Header{"User-Agent": {"Expo/2.29.4 CFNetwork"}}, Mobile},
		{"app identifier", http.Header{"User-Agent": {"MyAuthMobileApp/1.0 (Android 14)"}}, Mobile},
		{"desktop browser", http.Header{"User-Agent": {"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) Safari/605.1.15"}}, Web},
		{"curl", http.Header{"User-Agent": {"curl/8.4.0"}}, Web},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Classify(tc.header); got != tc.want {
				t.Fatalf("Classify = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestClassify_ExtraSignatures(t *testing.T) {
	h := http.Header{"User-Agent": {"AcmeNative/5.1"}}

	if got := NewClassifier().Classify(h); got != Web {
		t.Fatalf("expected web without extra signature, got %v", got)
	}
	if got := NewClassifier(" AcmeNative ", "").Classify(h); got != Mobile {
		t.Fatalf("expected mobile with extra signature, got %v", got)
	}
}

func TestClassify_ZeroAndNilClassifier(t *testing.T) {
	h := http.Header{"User-Agent": {"okhttp/4"}}

	var zero Classifier
	if got := zero.Classify(h); got != Mobile {
		t.Fatalf("zero classifier: got %v", got)
	}
	var nilC *Classifier
	if got := nilC.Classify(h); got != Mobile {
		t.Fatalf("nil classifier: got %v", got)
	}
	if got := nilC.ClassifyRequest(nil); got != Web {
		t.Fatalf("nil request: got %v", got)
	}
}

func TestChannel_String(t *testing.T) {
	if Web.String() != "web" || Mobile.String() != "mobile" {
		t.Fatalf("unexpected names: %s %s", Web, Mobile)
	}
}
