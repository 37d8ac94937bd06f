package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientGet_SetsUserAgentAndCookies(t *testing.T) {
	var gotUA string
	var gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if c, err := r.Cookie("session"); err == nil {
			gotCookie = c.Value
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := New(Options{
		UserAgent:         "custom-agent/1.0",
		Cookies:           []*http.Cookie{{Name: "session", Value: "abc123"}},
		AllowPrivateHosts: true,
	})

	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(resp.Body) != "ok" {
		t.Errorf("body = %q, want %q", resp.Body, "ok")
	}
	if gotUA != "custom-agent/1.0" {
		t.Errorf("user agent = %q, want custom-agent/1.0", gotUA)
	}
	if gotCookie != "abc123" {
		t.Errorf("cookie = %q, want abc123", gotCookie)
	}
}

func TestClientGet_DefaultUserAgentIsBrowserLike(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	client := New(Options{AllowPrivateHosts: true})
	if _, err := client.Get(context.Background(), server.URL); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.HasPrefix(gotUA, "Mozilla/5.0") {
		t.Errorf("user agent = %q, want a Mozilla/5.0 browser string", gotUA)
	}
}

func TestClientGet_NonSuccessStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(Options{AllowPrivateHosts: true})
	if _, err := client.Get(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for HTTP 404")
	}
}

func TestClientGet_BodySizeCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer server.Close()

	client := New(Options{MaxBodyBytes: 1024, AllowPrivateHosts: true})
	if _, err := client.Get(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for oversized body")
	}
}

func TestClientGet_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := New(Options{Timeout: 50 * time.Millisecond, AllowPrivateHosts: true})
	if _, err := client.Get(context.Background(), server.URL); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestClientGet_PrivateHostBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	// Default policy refuses to dial loopback.
	client := New(Options{})
	if _, err := client.Get(context.Background(), server.URL); err == nil {
		t.Fatal("expected dial to loopback to be blocked")
	}
}

func TestIsPublicURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/page", true},
		{"http://example.com", true},
		{"https://sub.example.co.uk/a?b=c", true},
		{"ftp://example.com/file", false},
		{"mailto:user@example.com", false},
		{"javascript:alert(1)", false},
		{"/relative/path", false},
		{"https://localhost/page", false},
		{"http://127.0.0.1:8080/", false},
		{"http://10.1.2.3/", false},
		{"http://192.168.1.1/", false},
		{"http://[::1]/", false},
		{"not a url", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsPublicURL(tt.url); got != tt.want {
			t.Errorf("IsPublicURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
