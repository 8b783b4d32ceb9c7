package app

import (
	"sort"
	"sync"
)

// Bookmarks is a session-local set of book ids. It is never persisted.
type Bookmarks struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

func NewBookmarks() *Bookmarks {
	return &Bookmarks{ids: make(map[int64]struct{})}
}

// Toggle flips membership of id and reports whether it is bookmarked afterwards.
func (b *Bookmarks) Toggle(id int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.ids[id]; ok {
		delete(b.ids, id)
		return false
	}
	if b.ids == nil {
		b.ids = make(map[int64]struct{})
	}
	b.ids[id] = struct{}{}
	return true
}

func (b *Bookmarks) Has(id int64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.ids[id]
	return ok
}

// IDs returns the bookmarked ids in ascending order.
func (b *Bookmarks) IDs() []int64 {
	b.mu.RLock()
	out := make([]int64, 0, len(b.ids))
	for id := range b.ids {
		out = append(out, id)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (b *Bookmarks) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ids)
}
