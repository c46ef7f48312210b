package service

import (
	"context"
	"sync"
	"time"

	"github.com/contentpipe/routerd/internal/domain/routing"
	"github.com/contentpipe/routerd/internal/domain/site"
	"github.com/contentpipe/routerd/internal/port/contentindex"
	"github.com/contentpipe/routerd/internal/port/messagequeue"
)

// mockQueue records published messages and accepts subscriptions.
type mockQueue struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func newMockQueue() *mockQueue {
	return &mockQueue{published: make(map[string][][]byte)}
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published[subject] = append(q.published[subject], data)
	return nil
}

func (q *mockQueue) Subscribe(context.Context, string, messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

func (q *mockQueue) count(subject string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.published[subject])
}

// mockIndex delegates to a configurable search function and counts calls.
type mockIndex struct {
	mu       sync.Mutex
	calls    int
	searchFn func(ctx context.Context, s site.Profile, keyword string) ([]contentindex.Match, error)
}

func (m *mockIndex) Search(ctx context.Context, s site.Profile, keyword string) ([]contentindex.Match, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.searchFn(ctx, s, keyword)
}

func (m *mockIndex) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockForwarder records forwarded payloads.
type mockForwarder struct {
	mu       sync.Mutex
	payloads []*routing.Payload
	resp     routing.AgentResponse
}

func (f *mockForwarder) Forward(_ context.Context, p *routing.Payload) routing.AgentResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, p)
	return f.resp
}

func (f *mockForwarder) forwardCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *mockForwarder) lastPayload() *routing.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return nil
	}
	return f.payloads[len(f.payloads)-1]
}

// mapCache is an in-memory cache for tests.
type mapCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{items: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}
