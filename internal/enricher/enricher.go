// Package enricher runs the link-preview pipeline: find the first link in a
// post, pull Open Graph / Twitter Card metadata from the linked page, and
// store a local thumbnail derived from its preview image.
package enricher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pressfolio/unfurl/internal/extractor"
	"github.com/pressfolio/unfurl/internal/fetcher"
)

// Metadata keys written alongside the post.
const (
	MetaSourceURL = "source_url"
	MetaTitle     = "title"
	MetaImagePath = "image_path"
)

// Enricher wires the pipeline components. Thumbs may be nil when no image
// processing capability is available; the thumbnail step is then skipped
// upstream rather than failing.
type Enricher struct {
	source    ContentSource
	store     MetaStore
	tags      TagFetcher
	thumbs    Thumbnailer
	scheduler Scheduler
	hooks     []Hook
	logger    *slog.Logger

	// ValidateURL gates extracted links and preview image URLs. Defaults to
	// the public-URL check; hosts on private networks may relax it.
	ValidateURL func(string) bool
}

func New(source ContentSource, store MetaStore, tags TagFetcher, thumbs Thumbnailer, scheduler Scheduler, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{
		source:      source,
		store:       store,
		tags:        tags,
		thumbs:      thumbs,
		scheduler:   scheduler,
		logger:      logger,
		ValidateURL: fetcher.IsPublicURL,
	}
}

// AddHook registers a post-extraction hook. Hooks run in registration order
// after the tag map is persisted, before the thumbnail step.
func (e *Enricher) AddHook(h Hook) {
	e.hooks = append(e.hooks, h)
}

// OnTrigger hands the post to the scheduler. It is the handler the host
// fires when an eligible post becomes publicly visible, and must stay cheap:
// the actual network work happens in OnDeferred.
func (e *Enricher) OnTrigger(ctx context.Context, postID string) error {
	if err := e.scheduler.Schedule(ctx, postID); err != nil {
		return fmt.Errorf("schedule enrichment for post %s: %w", postID, err)
	}
	return nil
}

// OnDeferred runs the pipeline for one post. Every failure inside the
// pipeline degrades to leaving metadata unset; nothing propagates to the
// caller.
func (e *Enricher) OnDeferred(ctx context.Context, postID string) {
	log := e.logger.With("post", postID)

	content, err := e.source.RenderedContent(ctx, postID)
	if err != nil {
		log.Warn("rendered content unavailable", "error", err)
		return
	}

	link, ok := extractor.FirstLinkValidated(content, e.ValidateURL)
	if !ok {
		log.Debug("no usable link in post content")
		return
	}

	stored, err := e.store.GetMeta(ctx, postID, MetaSourceURL)
	if err != nil {
		log.Warn("metadata read failed", "error", err)
		return
	}
	if stored == link {
		log.Debug("source url unchanged, skipping", "url", link)
		return
	}

	tags := e.tags.Fetch(ctx, link)
	title, ok := tags[extractor.TagTitle]
	if !ok || title == "" {
		log.Debug("no title extracted", "url", link)
		return
	}

	if err := e.store.SetMeta(ctx, postID, MetaSourceURL, link); err != nil {
		log.Warn("persist source url failed", "error", err)
		return
	}
	if err := e.store.SetMeta(ctx, postID, MetaTitle, title); err != nil {
		log.Warn("persist title failed", "error", err)
		return
	}
	log.Info("link metadata stored", "url", link, "title", title)

	for _, hook := range e.hooks {
		hook(ctx, postID, link, tags)
	}

	e.generateThumbnail(ctx, postID, tags, log)
}

func (e *Enricher) generateThumbnail(ctx context.Context, postID string, tags extractor.TagMap, log *slog.Logger) {
	if e.thumbs == nil {
		return
	}
	imageURL, ok := tags[extractor.TagImage]
	if !ok || !e.ValidateURL(imageURL) {
		return
	}

	identity, err := e.source.Identity(ctx, postID)
	if err != nil {
		log.Warn("post identity unavailable", "error", err)
		return
	}

	path, ok := e.thumbs.Generate(ctx, imageURL, identity.Slug)
	if !ok {
		return
	}
	if err := e.store.SetMeta(ctx, postID, MetaImagePath, path); err != nil {
		log.Warn("persist thumbnail path failed", "error", err)
		return
	}
	log.Info("thumbnail stored", "path", path)
}

// ImmediateScheduler runs enrichment synchronously on trigger. It suits the
// CLI composition root, where deferral has no request path to protect.
type ImmediateScheduler struct {
	Enricher *Enricher
}

func (s *ImmediateScheduler) Schedule(ctx context.Context, postID string) error {
	s.Enricher.OnDeferred(ctx, postID)
	return nil
}
