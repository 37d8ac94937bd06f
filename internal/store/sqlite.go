// Package store provides the host-side post and metadata storage the
// enrichment pipeline consumes. The SQLite implementation backs the CLI; the
// memory implementation backs one-shot runs and tests.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/pressfolio/unfurl/internal/enricher"
)

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id      TEXT PRIMARY KEY,
	slug    TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS post_meta (
	post_id TEXT NOT NULL,
	key     TEXT NOT NULL,
	value   TEXT NOT NULL,
	PRIMARY KEY (post_id, key)
);`

// ErrNotFound is returned for unknown post IDs.
var ErrNotFound = errors.New("post not found")

// SQLite implements enricher.ContentSource and enricher.MetaStore on a local
// SQLite database.
type SQLite struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// SavePost inserts or replaces a post.
func (s *SQLite) SavePost(ctx context.Context, id, slug, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, slug, content) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET slug = excluded.slug, content = excluded.content`,
		id, slug, content,
	)
	return err
}

func (s *SQLite) RenderedContent(ctx context.Context, postID string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM posts WHERE id = $1`, postID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, postID)
	}
	return content, err
}

func (s *SQLite) Identity(ctx context.Context, postID string) (enricher.Identity, error) {
	var slug string
	err := s.db.QueryRowContext(ctx, `SELECT slug FROM posts WHERE id = $1`, postID).Scan(&slug)
	if errors.Is(err, sql.ErrNoRows) {
		return enricher.Identity{}, fmt.Errorf("%w: %s", ErrNotFound, postID)
	}
	if err != nil {
		return enricher.Identity{}, err
	}
	return enricher.Identity{ID: postID, Slug: slug}, nil
}

// GetMeta returns the stored value for key, or "" when unset.
func (s *SQLite) GetMeta(ctx context.Context, postID, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM post_meta WHERE post_id = $1 AND key = $2`, postID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (s *SQLite) SetMeta(ctx context.Context, postID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO post_meta (post_id, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (post_id, key) DO UPDATE SET value = excluded.value`,
		postID, key, value,
	)
	return err
}
