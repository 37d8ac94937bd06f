// Package extractor locates the first hyperlink in a post's rendered content
// and recovers a normalized tag map from the page it points at.
package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pressfolio/unfurl/internal/fetcher"
)

// FirstLink returns the href of the first anchor element in content, but only
// when that href is a publicly dereferenceable http(s) URL. A malformed or
// unreachable-scheme first link yields absence; later anchors are never
// considered. Malformed markup is tolerated.
func FirstLink(content string) (string, bool) {
	return FirstLinkValidated(content, fetcher.IsPublicURL)
}

// FirstLinkValidated is FirstLink with an injected URL validation strategy.
func FirstLinkValidated(content string, valid func(string) bool) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", false
	}

	anchor := doc.Find("a").First()
	if anchor.Length() == 0 {
		return "", false
	}

	href, ok := anchor.Attr("href")
	if !ok {
		return "", false
	}

	href = strings.TrimSpace(href)
	if !valid(href) {
		return "", false
	}
	return href, true
}
