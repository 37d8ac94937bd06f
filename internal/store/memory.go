package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/pressfolio/unfurl/internal/enricher"
)

type memoryPost struct {
	slug    string
	content string
}

// Memory implements the same interfaces as SQLite without persistence. It
// backs one-shot CLI runs where the post never lives in a database.
type Memory struct {
	mu    sync.Mutex
	posts map[string]memoryPost
	meta  map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		posts: map[string]memoryPost{},
		meta:  map[string]string{},
	}
}

func (m *Memory) SavePost(ctx context.Context, id, slug, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[id] = memoryPost{slug: slug, content: content}
	return nil
}

func (m *Memory) RenderedContent(ctx context.Context, postID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[postID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, postID)
	}
	return post.content, nil
}

func (m *Memory) Identity(ctx context.Context, postID string) (enricher.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[postID]
	if !ok {
		return enricher.Identity{}, fmt.Errorf("%w: %s", ErrNotFound, postID)
	}
	return enricher.Identity{ID: postID, Slug: post.slug}, nil
}

func (m *Memory) GetMeta(ctx context.Context, postID, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta[postID+"\x00"+key], nil
}

func (m *Memory) SetMeta(ctx context.Context, postID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta[postID+"\x00"+key] = value
	return nil
}
