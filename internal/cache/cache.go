// Package cache holds the in-memory gallery caches: an ordered list cache of
// artwork summaries and a detail cache keyed by slug. Both live for the
// process lifetime and are never persisted. The cache is an injected value,
// not a package global, so tests can build isolated instances.
package cache

import (
	"sync"

	"atelier/api/internal/store"
)

type ArtworkCache struct {
	mu      sync.RWMutex
	list    []store.ArtworkSummary
	hasList bool
	detail  map[string]store.Artwork
}

func New() *ArtworkCache {
	return &ArtworkCache{
		detail: make(map[string]store.Artwork),
	}
}

// GetList returns the cached summary list. A list that was populated with
// zero items reads as a miss, so a transient empty result from the store
// never sticks.
func (c *ArtworkCache) GetList() ([]store.ArtworkSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.hasList || len(c.list) == 0 {
		return nil, false
	}
	return cloneList(c.list), true
}

func (c *ArtworkCache) SetList(items []store.ArtworkSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = cloneList(items)
	c.hasList = true
}

func (c *ArtworkCache) ClearList() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = nil
	c.hasList = false
}

func (c *ArtworkCache) GetDetail(slug string) (store.Artwork, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	artwork, ok := c.detail[slug]
	if !ok {
		return store.Artwork{}, false
	}
	return cloneArtwork(artwork), true
}

func (c *ArtworkCache) SetDetail(slug string, artwork store.Artwork) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detail[slug] = cloneArtwork(artwork)
}

func (c *ArtworkCache) RemoveDetail(slug string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.detail, slug)
}

// RemoveDetailByID drops the detail entry whose entity id matches, whatever
// slug it is cached under.
func (c *ArtworkCache) RemoveDetailByID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for slug, artwork := range c.detail {
		if artwork.ID == id {
			delete(c.detail, slug)
			return
		}
	}
}

func (c *ArtworkCache) ClearDetails() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detail = make(map[string]store.Artwork)
}

// Clear drops both caches, forcing the next read to refetch authoritative
// state. Used after batch image writes where an optimistic merge would be
// error-prone.
func (c *ArtworkCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = nil
	c.hasList = false
	c.detail = make(map[string]store.Artwork)
}

// UpdateListItem replaces the list entry with the given id through fn.
// No-op when the list cache is absent or the id is not present.
func (c *ArtworkCache) UpdateListItem(id string, fn func(store.ArtworkSummary) store.ArtworkSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasList {
		return
	}
	for i, item := range c.list {
		if item.ID == id {
			c.list[i] = fn(item)
			return
		}
	}
}

// RemoveListItem drops one entry from the list cache by id. No-op when the
// list cache is absent.
func (c *ArtworkCache) RemoveListItem(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasList {
		return
	}
	next := c.list[:0]
	for _, item := range c.list {
		if item.ID != id {
			next = append(next, item)
		}
	}
	c.list = next
}

// PushListItem prepends one entry to the list cache. No-op when the list
// cache is absent: the next full read will include the new row anyway.
func (c *ArtworkCache) PushListItem(item store.ArtworkSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasList {
		return
	}
	c.list = append([]store.ArtworkSummary{item}, c.list...)
}

func cloneList(items []store.ArtworkSummary) []store.ArtworkSummary {
	if items == nil {
		return nil
	}
	out := make([]store.ArtworkSummary, len(items))
	copy(out, items)
	return out
}

func cloneArtwork(artwork store.Artwork) store.Artwork {
	out := artwork
	if artwork.Images != nil {
		out.Images = make([]store.ArtworkImage, len(artwork.Images))
		copy(out.Images, artwork.Images)
	}
	if artwork.Tags != nil {
		out.Tags = make([]store.ArtworkTag, len(artwork.Tags))
		copy(out.Tags, artwork.Tags)
	}
	return out
}
