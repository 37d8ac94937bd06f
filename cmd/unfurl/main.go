package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pressfolio/unfurl/internal/browser"
	"github.com/pressfolio/unfurl/internal/config"
	"github.com/pressfolio/unfurl/internal/enricher"
	"github.com/pressfolio/unfurl/internal/extractor"
	"github.com/pressfolio/unfurl/internal/fetcher"
	"github.com/pressfolio/unfurl/internal/store"
	"github.com/pressfolio/unfurl/internal/thumbnail"
)

// Exit codes for granular error handling
const (
	ExitSuccess      = 0
	ExitInvalidInput = 1
	ExitConfigError  = 2
	ExitStoreError   = 3
)

var (
	cfgFile        string
	dbPath         string
	contentFile    string
	slug           string
	uploadDir      string
	uploadURL      string
	userAgent      string
	browserAgent   string
	cookies        []string
	browserCookies string
	tinifyKey      string
	timeout        int
	excerptOn      bool
	noThumbnail    bool
	allowPrivate   bool
	verbose        bool
	quiet          bool
)

const version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "unfurl [post-ids...]",
	Short: "Enrich posts with link-preview metadata",
	Long: `unfurl extracts the first hyperlink from a post's content, fetches the
linked page's Open Graph / Twitter Card metadata, stores it alongside the
post, and derives a square thumbnail from the page's preview image.

Posts live in a local SQLite database; alternatively a single post can be
enriched in one shot from a content file without touching a database.`,
	Version:       version,
	RunE:          run,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitErr); ok {
			os.Exit(exitErr.code)
		}
		os.Exit(ExitInvalidInput)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/unfurl/config.toml)")

	// Storage flags
	rootCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path")
	rootCmd.Flags().StringVar(&uploadDir, "upload-dir", "", "directory thumbnails are written to")
	rootCmd.Flags().StringVar(&uploadURL, "upload-url", "", "public URL prefix mapped onto the upload directory")

	// One-shot mode flags
	rootCmd.Flags().StringVarP(&contentFile, "content", "f", "", "enrich post content from file (- for stdin) instead of the database")
	rootCmd.Flags().StringVarP(&slug, "slug", "s", "", "post slug keying the thumbnail file (one-shot mode)")

	// Network flags
	rootCmd.Flags().StringVar(&userAgent, "user-agent", "", "custom user agent string")
	rootCmd.Flags().StringVar(&browserAgent, "browser-agent", "", "browser agent type (auto|chrome|firefox|safari|edge)")
	rootCmd.Flags().StringArrayVar(&cookies, "cookie", nil, "cookie sent with page fetches as name=value (repeatable)")
	rootCmd.Flags().StringVarP(&browserCookies, "browser-cookies", "b", "", "source cookies from a local browser (chrome|firefox|safari|auto)")
	rootCmd.Flags().IntVar(&timeout, "timeout", 0, "seconds per outbound fetch")
	rootCmd.Flags().BoolVar(&allowPrivate, "allow-private-hosts", false, "allow fetching from private network addresses")

	// Processing flags
	rootCmd.Flags().StringVar(&tinifyKey, "tinify-key", "", "Tinify API key for thumbnail compression")
	rootCmd.Flags().BoolVar(&excerptOn, "excerpt-fallback", false, "derive a description from readable page content when no meta tag declares one")
	rootCmd.Flags().BoolVar(&noThumbnail, "no-thumbnail", false, "skip thumbnail generation")

	// System flags
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress all non-result output")
}

func run(cmd *cobra.Command, args []string) error {
	// Seed an example config on first run so the defaults are discoverable.
	if cfgFile == "" {
		if path := defaultConfigPath(); path != "" {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				if err := config.Default().CreateExampleConfig(path); err == nil && !quiet {
					fmt.Fprintf(os.Stderr, "Created config file: %s\n", path)
				}
			}
		}
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return exitError(ExitConfigError, "failed to load config: %v", err)
	}
	applyFlagOverrides(cmd, cfg)

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if contentFile == "" && len(args) == 0 {
		return exitError(ExitInvalidInput, "nothing to do: pass post IDs or --content")
	}
	if contentFile != "" && len(args) > 0 {
		return exitError(ExitInvalidInput, "--content and post IDs are mutually exclusive")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pageClient, imageClient := buildClients(ctx, cfg, logger)

	tags := extractor.NewMetadataFetcher(pageClient, logger)
	tags.ExcerptFallback = cfg.Extraction.ExcerptFallback

	var thumbs enricher.Thumbnailer
	if cfg.Thumbnail.Enabled && !noThumbnail {
		gen := thumbnail.NewGenerator(imageClient, afero.NewOsFs(), cfg.Storage.UploadDir, cfg.Storage.UploadURL, logger)
		gen.Size = cfg.Thumbnail.Size
		gen.Quality = cfg.Thumbnail.Quality
		if cfg.Thumbnail.TinifyAPIKey != "" {
			gen.Optimizer = thumbnail.NewTinifyClient(cfg.Thumbnail.TinifyAPIKey, time.Duration(cfg.Network.Timeout)*time.Second)
		}
		thumbs = gen
	}

	if contentFile != "" {
		return runOneShot(ctx, cfg, tags, thumbs, logger)
	}
	return runStored(ctx, cfg, args, tags, thumbs, logger)
}

// runStored enriches posts already present in the SQLite database.
func runStored(ctx context.Context, cfg *config.Config, postIDs []string, tags enricher.TagFetcher, thumbs enricher.Thumbnailer, logger *slog.Logger) error {
	db, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		return exitError(ExitStoreError, "failed to open database %s: %v", cfg.Storage.DBPath, err)
	}
	defer db.Close()

	e := newEnricher(db, tags, thumbs, logger)

	for _, postID := range postIDs {
		if _, err := db.Identity(ctx, postID); err != nil {
			return exitError(ExitInvalidInput, "unknown post %s: %v", postID, err)
		}
		if err := e.OnTrigger(ctx, postID); err != nil {
			return exitError(ExitStoreError, "enrichment failed for %s: %v", postID, err)
		}
		printMeta(ctx, db, postID)
	}
	return nil
}

// runOneShot enriches a single post read from a file or stdin, backed by an
// in-memory store.
func runOneShot(ctx context.Context, cfg *config.Config, tags enricher.TagFetcher, thumbs enricher.Thumbnailer, logger *slog.Logger) error {
	content, err := readContent(contentFile)
	if err != nil {
		return exitError(ExitInvalidInput, "failed to read content: %v", err)
	}

	postSlug := slug
	if postSlug == "" && contentFile != "-" {
		base := filepath.Base(contentFile)
		postSlug = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if postSlug == "" {
		return exitError(ExitInvalidInput, "--slug is required when reading from stdin")
	}

	mem := store.NewMemory()
	const postID = "oneshot"
	if err := mem.SavePost(ctx, postID, postSlug, content); err != nil {
		return exitError(ExitStoreError, "failed to stage post: %v", err)
	}

	e := newEnricher(mem, tags, thumbs, logger)
	if err := e.OnTrigger(ctx, postID); err != nil {
		return exitError(ExitStoreError, "enrichment failed: %v", err)
	}
	printMeta(ctx, mem, postID)
	return nil
}

// hostStore is the storage surface both store implementations share.
type hostStore interface {
	enricher.ContentSource
	enricher.MetaStore
}

func newEnricher(db hostStore, tags enricher.TagFetcher, thumbs enricher.Thumbnailer, logger *slog.Logger) *enricher.Enricher {
	scheduler := &enricher.ImmediateScheduler{}
	e := enricher.New(db, db, tags, thumbs, scheduler, logger)
	scheduler.Enricher = e
	if allowPrivate {
		e.ValidateURL = func(string) bool { return true }
	}
	return e
}

// buildClients assembles the page fetch client (carrying cookies and
// browser-like identity) and the plain image fetch client.
func buildClients(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*fetcher.Client, *fetcher.Client) {
	opts := fetcher.Options{
		Timeout:           time.Duration(cfg.Network.Timeout) * time.Second,
		UserAgent:         cfg.Network.UserAgent,
		BrowserAgent:      cfg.Network.BrowserAgent,
		MaxBodyBytes:      int64(cfg.Network.MaxBodyMB) << 20,
		AllowPrivateHosts: allowPrivate,
	}

	imageClient := fetcher.New(opts)

	opts.Cookies = browser.ParsePairs(cfg.Network.Cookies)
	if cfg.Network.BrowserCookies != "" {
		cookieSource := browser.NewCookieExtractor(browser.BrowserType(cfg.Network.BrowserCookies))
		opts.CookieFunc = func(rawURL string) []*http.Cookie {
			extracted, err := cookieSource.ExtractCookies(ctx, rawURL)
			// Browser cookie stores are best-effort; a locked or missing
			// store must not block enrichment.
			if err != nil {
				logger.Warn("browser cookie extraction failed", "browser", cfg.Network.BrowserCookies, "error", err)
				return nil
			}
			return extracted
		}
	}
	pageClient := fetcher.New(opts)

	return pageClient, imageClient
}

// applyFlagOverrides lets CLI flags win over config file values.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("db") {
		cfg.Storage.DBPath = dbPath
	}
	if cmd.Flags().Changed("upload-dir") {
		cfg.Storage.UploadDir = uploadDir
	}
	if cmd.Flags().Changed("upload-url") {
		cfg.Storage.UploadURL = uploadURL
	}
	if cmd.Flags().Changed("user-agent") {
		cfg.Network.UserAgent = userAgent
	}
	if cmd.Flags().Changed("browser-agent") {
		cfg.Network.BrowserAgent = browserAgent
	}
	if cmd.Flags().Changed("cookie") {
		cfg.Network.Cookies = cookies
	}
	if cmd.Flags().Changed("browser-cookies") {
		cfg.Network.BrowserCookies = browserCookies
	}
	if cmd.Flags().Changed("timeout") && timeout > 0 {
		cfg.Network.Timeout = timeout
	}
	if cmd.Flags().Changed("tinify-key") {
		cfg.Thumbnail.TinifyAPIKey = tinifyKey
	}
	if cmd.Flags().Changed("excerpt-fallback") {
		cfg.Extraction.ExcerptFallback = excerptOn
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if quiet {
		cfg.Logging.Level = "error"
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func defaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "unfurl", "config.toml")
}

func readContent(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// printMeta prints the metadata the pipeline stored for a post. Unset keys
// are omitted.
func printMeta(ctx context.Context, meta enricher.MetaStore, postID string) {
	for _, key := range []string{enricher.MetaSourceURL, enricher.MetaTitle, enricher.MetaImagePath} {
		value, err := meta.GetMeta(ctx, postID, key)
		if err != nil || value == "" {
			continue
		}
		fmt.Printf("%s\t%s\t%s\n", postID, key, value)
	}
}

type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string {
	return e.msg
}

func exitError(code int, format string, args ...interface{}) *exitErr {
	msg := fmt.Sprintf(format, args...)
	if msg != "" && !quiet {
		fmt.Fprintf(os.Stderr, "%s\n", msg)
	}
	return &exitErr{code: code, msg: msg}
}
