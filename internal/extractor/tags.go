package extractor

import (
	"bytes"
	"context"
	"html"
	"io"
	"log/slog"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"

	"github.com/pressfolio/unfurl/internal/fetcher"
)

// TagMap maps normalized property names (title, image, description, ...) to
// entity-decoded plain text values.
type TagMap map[string]string

// Well-known tag keys persisted by the pipeline.
const (
	TagTitle       = "title"
	TagImage       = "image"
	TagDescription = "description"
)

// MetadataFetcher downloads a page and extracts its meta/title elements into
// a TagMap. Fetch never fails: transport errors, bad markup and encoding
// irregularities all degrade to an empty (or partial) map.
type MetadataFetcher struct {
	Client *fetcher.Client
	Logger *slog.Logger

	// ExcerptFallback enables deriving a description from the page's readable
	// content when no description meta tag is declared.
	ExcerptFallback bool
}

func NewMetadataFetcher(client *fetcher.Client, logger *slog.Logger) *MetadataFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetadataFetcher{Client: client, Logger: logger}
}

// Fetch retrieves url and returns its normalized tag map. The result may be
// empty and may lack a title; the caller treats a missing title as extraction
// failure.
func (f *MetadataFetcher) Fetch(ctx context.Context, url string) TagMap {
	resp, err := f.Client.Get(ctx, url)
	if err != nil {
		f.Logger.Debug("metadata fetch failed", "url", url, "error", err)
		return TagMap{}
	}
	if len(resp.Body) == 0 {
		f.Logger.Debug("metadata fetch returned empty body", "url", url)
		return TagMap{}
	}

	tags := ParseTags(resp.Body, resp.Header.Get("Content-Type"))

	if f.ExcerptFallback {
		if v, ok := tags[TagDescription]; !ok || v == "" {
			if excerpt := readableExcerpt(resp.Body); excerpt != "" {
				tags[TagDescription] = excerpt
			}
		}
	}

	return tags
}

// ParseTags parses an HTML document into a TagMap. The body is run through
// charset normalization first; when that fails the raw bytes are parsed as-is
// rather than failing the extraction.
func ParseTags(body []byte, contentType string) TagMap {
	var reader io.Reader
	if normalized, err := charset.NewReader(bytes.NewReader(body), contentType); err == nil {
		reader = normalized
	} else {
		reader = bytes.NewReader(body)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		// Retry on the raw bytes in case the charset reader produced garbage.
		doc, err = goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return TagMap{}
		}
	}

	tags := TagMap{}

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key, ok := s.Attr("property")
		if !ok || key == "" {
			key, ok = s.Attr("name")
		}
		content, hasContent := s.Attr("content")
		if !ok || key == "" || !hasContent {
			return
		}

		key = normalizeTagKey(key)
		value := sanitizeText(content)
		if key == "" {
			return
		}
		// Last matching meta tag wins regardless of namespace.
		tags[key] = value
	})

	// A present-but-empty title is no title at all.
	if v, ok := tags[TagTitle]; ok && v == "" {
		delete(tags, TagTitle)
	}

	if _, ok := tags[TagTitle]; !ok {
		if title := sanitizeText(doc.Find("title").First().Text()); title != "" {
			tags[TagTitle] = title
		}
	}

	return tags
}

// normalizeTagKey strips an og: prefix when present, else a twitter: prefix.
// Within the twitter namespace, image:src maps to image. Prefix matches are
// case-sensitive.
func normalizeTagKey(key string) string {
	if after, ok := strings.CutPrefix(key, "og:"); ok {
		return after
	}
	if after, ok := strings.CutPrefix(key, "twitter:"); ok {
		if after == "image:src" {
			return TagImage
		}
		return after
	}
	return key
}

// sanitizeText entity-decodes a raw attribute or text value and strips
// control characters, collapsing runs of whitespace to single spaces.
func sanitizeText(raw string) string {
	decoded := html.UnescapeString(raw)
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, decoded)
	return strings.Join(strings.Fields(cleaned), " ")
}

// readableExcerpt extracts a short description from the page's main content.
// Any readability failure yields an empty string.
func readableExcerpt(body []byte) string {
	article, err := readability.FromReader(bytes.NewReader(body), nil)
	if err != nil {
		return ""
	}
	return sanitizeText(article.Excerpt)
}
