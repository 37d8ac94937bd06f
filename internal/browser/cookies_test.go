package browser

import "testing"

func TestMatchesDomain(t *testing.T) {
	tests := []struct {
		name         string
		cookieDomain string
		targetDomain string
		want         bool
	}{
		{"exact match", "example.com", "example.com", true},
		{"leading dot stripped", ".example.com", "example.com", true},
		{"subdomain match", "example.com", "www.example.com", true},
		{"dotted subdomain match", ".example.com", "blog.example.com", true},
		{"unrelated domain", "example.com", "example.org", false},
		{"suffix but not subdomain", "ample.com", "example.com", false},
		{"empty cookie domain", "", "example.com", false},
		{"empty target domain", "example.com", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesDomain(tt.cookieDomain, tt.targetDomain); got != tt.want {
				t.Errorf("matchesDomain(%q, %q) = %v, want %v", tt.cookieDomain, tt.targetDomain, got, tt.want)
			}
		})
	}
}

func TestParsePairs(t *testing.T) {
	cookies := ParsePairs([]string{
		"session=abc123",
		"theme = dark ",
		"novalue",
		"=orphan",
		"empty=",
	})

	if len(cookies) != 3 {
		t.Fatalf("got %d cookies, want 3", len(cookies))
	}
	if cookies[0].Name != "session" || cookies[0].Value != "abc123" {
		t.Errorf("cookie[0] = %s=%s, want session=abc123", cookies[0].Name, cookies[0].Value)
	}
	if cookies[1].Name != "theme" || cookies[1].Value != "dark" {
		t.Errorf("cookie[1] = %s=%s, want theme=dark", cookies[1].Name, cookies[1].Value)
	}
	if cookies[2].Name != "empty" || cookies[2].Value != "" {
		t.Errorf("cookie[2] = %s=%s, want empty=", cookies[2].Name, cookies[2].Value)
	}
}

func TestNewCookieExtractorDefaultsToAuto(t *testing.T) {
	ce := NewCookieExtractor("")
	if ce.browserType != BrowserAuto {
		t.Errorf("browserType = %q, want %q", ce.browserType, BrowserAuto)
	}
}
