package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "unfurl.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_PostRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.SavePost(ctx, "p1", "my-post", "<p>hello</p>"); err != nil {
		t.Fatalf("SavePost: %v", err)
	}

	content, err := s.RenderedContent(ctx, "p1")
	if err != nil {
		t.Fatalf("RenderedContent: %v", err)
	}
	if content != "<p>hello</p>" {
		t.Errorf("content = %q", content)
	}

	identity, err := s.Identity(ctx, "p1")
	if err != nil {
		t.Fatalf("Identity: %v", err)
	}
	if identity.Slug != "my-post" || identity.ID != "p1" {
		t.Errorf("identity = %+v", identity)
	}
}

func TestSQLite_SavePostReplaces(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.SavePost(ctx, "p1", "a", "one"); err != nil {
		t.Fatal(err)
	}
	if err := s.SavePost(ctx, "p1", "b", "two"); err != nil {
		t.Fatalf("replacing SavePost: %v", err)
	}
	content, _ := s.RenderedContent(ctx, "p1")
	if content != "two" {
		t.Errorf("content = %q, want two", content)
	}
}

func TestSQLite_UnknownPost(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if _, err := s.RenderedContent(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RenderedContent err = %v, want ErrNotFound", err)
	}
	if _, err := s.Identity(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Identity err = %v, want ErrNotFound", err)
	}
}

func TestSQLite_MetaUpsert(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if got, err := s.GetMeta(ctx, "p1", "title"); err != nil || got != "" {
		t.Fatalf("unset meta = %q, %v; want empty, nil", got, err)
	}

	if err := s.SetMeta(ctx, "p1", "title", "First"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	if err := s.SetMeta(ctx, "p1", "title", "Second"); err != nil {
		t.Fatalf("SetMeta upsert: %v", err)
	}

	got, err := s.GetMeta(ctx, "p1", "title")
	if err != nil {
		t.Fatalf("GetMeta: %v", err)
	}
	if got != "Second" {
		t.Errorf("meta = %q, want Second", got)
	}
}

func TestMemory_MirrorsSQLiteSemantics(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.SavePost(ctx, "p1", "slug", "<a href='https://example.com'>x</a>"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.RenderedContent(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := m.SetMeta(ctx, "p1", "k", "v"); err != nil {
		t.Fatal(err)
	}
	if got, _ := m.GetMeta(ctx, "p1", "k"); got != "v" {
		t.Errorf("meta = %q", got)
	}
	identity, err := m.Identity(ctx, "p1")
	if err != nil || identity.Slug != "slug" {
		t.Errorf("identity = %+v, %v", identity, err)
	}
}
