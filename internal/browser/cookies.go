// Package browser sources cookies for page fetches, either from a local
// browser's cookie store or from configured "name=value" pairs.
package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // Import all browser support
)

type BrowserType string

const (
	BrowserAuto    BrowserType = "auto"
	BrowserChrome  BrowserType = "chrome"
	BrowserFirefox BrowserType = "firefox"
	BrowserSafari  BrowserType = "safari"
)

type CookieExtractor struct {
	browserType BrowserType
}

func NewCookieExtractor(browserType BrowserType) *CookieExtractor {
	if browserType == "" {
		browserType = BrowserAuto
	}
	return &CookieExtractor{browserType: browserType}
}

// ExtractCookies returns the cookies a local browser would send to targetURL.
func (ce *CookieExtractor) ExtractCookies(ctx context.Context, targetURL string) ([]*http.Cookie, error) {
	parsedURL, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	var cookies []*http.Cookie

	if ce.browserType == BrowserAuto {
		// Try browsers in order of preference
		browsers := []BrowserType{BrowserChrome, BrowserFirefox, BrowserSafari}
		for _, browser := range browsers {
			if browserCookies, err := ce.extractFromBrowser(ctx, browser, parsedURL.Host); err == nil && len(browserCookies) > 0 {
				cookies = append(cookies, browserCookies...)
				break
			}
		}
	} else {
		cookies, err = ce.extractFromBrowser(ctx, ce.browserType, parsedURL.Host)
		if err != nil {
			return nil, err
		}
	}

	return cookies, nil
}

func (ce *CookieExtractor) extractFromBrowser(ctx context.Context, browserType BrowserType, domain string) ([]*http.Cookie, error) {
	var cookies []*http.Cookie

	for cookie, err := range kooky.TraverseCookies(ctx) {
		if err != nil {
			continue
		}

		if matchesBrowserType(cookie.Browser, browserType) && matchesDomain(cookie.Domain, domain) {
			cookies = append(cookies, &http.Cookie{
				Name:     cookie.Name,
				Value:    cookie.Value,
				Path:     cookie.Path,
				Domain:   cookie.Domain,
				Expires:  cookie.Expires,
				Secure:   cookie.Secure,
				HttpOnly: cookie.HttpOnly,
			})
		}
	}

	return cookies, nil
}

func matchesBrowserType(browser kooky.BrowserInfo, browserType BrowserType) bool {
	if browserType == BrowserAuto {
		return true
	}

	browserName := strings.ToLower(browser.Browser())
	switch browserType {
	case BrowserChrome:
		return strings.Contains(browserName, "chrome") || strings.Contains(browserName, "chromium")
	case BrowserFirefox:
		return strings.Contains(browserName, "firefox")
	case BrowserSafari:
		return strings.Contains(browserName, "safari")
	}

	return false
}

func matchesDomain(cookieDomain, targetDomain string) bool {
	if cookieDomain == "" || targetDomain == "" {
		return false
	}

	cookieDomain = strings.TrimPrefix(cookieDomain, ".")

	if cookieDomain == targetDomain {
		return true
	}

	// Subdomain match
	return strings.HasSuffix(targetDomain, "."+cookieDomain)
}

// ParsePairs converts configured "name=value" strings into cookies. Malformed
// entries are skipped.
func ParsePairs(pairs []string) []*http.Cookie {
	var cookies []*http.Cookie
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: strings.TrimSpace(value)})
	}
	return cookies
}
