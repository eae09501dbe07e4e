package api

import (
	"context"
	"sync"
	"time"

	"github.com/hpratapsigh/creator-dashboard/internal/model"
	"golang.org/x/sync/singleflight"
)

type feedEntry struct {
	items     []model.FeedItem
	fetchedAt time.Time
}

// feedCache de-duplicates concurrent feed requests per token and keeps the
// last result for ttl. A ttl of zero disables reuse but keeps de-duplication.
// The shared fetch is detached from any one caller and bounded by timeout.
type feedCache struct {
	ttl     time.Duration
	timeout time.Duration
	group   singleflight.Group
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]feedEntry
}

func newFeedCache(ttl, timeout time.Duration) *feedCache {
	return &feedCache{
		ttl:     ttl,
		timeout: timeout,
		now:     time.Now,
		entries: make(map[string]feedEntry),
	}
}

func (fc *feedCache) get(ctx context.Context, token string, fetch func(context.Context) ([]model.FeedItem, error)) ([]model.FeedItem, error) {
	if items, ok := fc.lookup(token); ok {
		return items, nil
	}

	ch := fc.group.DoChan(token, func() (interface{}, error) {
		fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		if fc.timeout > 0 {
			fetchCtx, cancel = context.WithTimeout(fetchCtx, fc.timeout)
		}
		defer cancel()
		items, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		fc.store(token, items)
		return items, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]model.FeedItem), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (fc *feedCache) lookup(token string) ([]model.FeedItem, bool) {
	if fc.ttl <= 0 {
		return nil, false
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	e, ok := fc.entries[token]
	if !ok {
		return nil, false
	}
	if fc.now().Sub(e.fetchedAt) >= fc.ttl {
		delete(fc.entries, token)
		return nil, false
	}
	return e.items, true
}

func (fc *feedCache) store(token string, items []model.FeedItem) {
	if fc.ttl <= 0 {
		return
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	now := fc.now()
	for k, e := range fc.entries {
		if now.Sub(e.fetchedAt) >= fc.ttl {
			delete(fc.entries, k)
		}
	}
	fc.entries[token] = feedEntry{items: items, fetchedAt: now}
}

// invalidate drops the cached feed for token.
func (fc *feedCache) invalidate(token string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	delete(fc.entries, token)
}
