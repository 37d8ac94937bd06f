package enricher

import (
	"context"

	"github.com/pressfolio/unfurl/internal/extractor"
)

// Identity is the minimal post identity needed to key derived artifacts.
type Identity struct {
	ID   string
	Slug string
}

// ContentSource provides access to a post's rendered markup and identity.
// The host publishing system owns both.
type ContentSource interface {
	RenderedContent(ctx context.Context, postID string) (string, error)
	Identity(ctx context.Context, postID string) (Identity, error)
}

// MetaStore persists per-post metadata key/value pairs. GetMeta returns an
// empty string for unset keys. The pipeline only ever writes forward; it
// never deletes.
type MetaStore interface {
	GetMeta(ctx context.Context, postID, key string) (string, error)
	SetMeta(ctx context.Context, postID, key, value string) error
}

// TagFetcher retrieves the normalized tag map for a URL. It never fails;
// failures surface as empty maps.
type TagFetcher interface {
	Fetch(ctx context.Context, url string) extractor.TagMap
}

// Thumbnailer derives and stores a preview thumbnail, returning its public
// URL. ok=false means nothing was stored.
type Thumbnailer interface {
	Generate(ctx context.Context, imageURL, slug string) (string, bool)
}

// Scheduler defers pipeline invocations off the publish-time request path.
// The host decides how (queue, cron, jitter); OnTrigger only hands the post
// ID over.
type Scheduler interface {
	Schedule(ctx context.Context, postID string) error
}

// Hook runs after successful tag extraction with the extracted URL and tag
// map, letting collaborators persist additional derived metadata.
type Hook func(ctx context.Context, postID, url string, tags extractor.TagMap)
