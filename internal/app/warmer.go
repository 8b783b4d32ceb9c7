package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reading_room/internal/domain"
)

// CatalogWarmer preloads the catalog cache so the first reader does not pay for the remote fetch.
type CatalogWarmer struct {
	catalog  domain.CatalogClient
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewCatalogWarmer(c domain.CatalogClient, cache domain.Cache, ttl time.Duration) *CatalogWarmer {
	return &CatalogWarmer{catalog: c, cache: cache, cacheTTL: ttl}
}

// WarmList caches the catalog listing and returns the ids it contains.
func (w *CatalogWarmer) WarmList(ctx context.Context) ([]int64, error) {
	books, err := w.catalog.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	if err := w.cache.Set(ctx, booksListKey, books, int(w.cacheTTL.Seconds())); err != nil {
		return nil, fmt.Errorf("cache books list: %w", err)
	}
	ids := make([]int64, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	return ids, nil
}

// WarmBook caches one full book. A book that vanished since the listing is evicted, not an error.
func (w *CatalogWarmer) WarmBook(ctx context.Context, id int64) error {
	b, err := w.catalog.GetBook(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			evict(ctx, w.cache, bookKey(id))
			return nil
		}
		return fmt.Errorf("get book %d: %w", id, err)
	}
	if err := w.cache.Set(ctx, bookKey(id), b, int(w.cacheTTL.Seconds())); err != nil {
		return fmt.Errorf("cache book %d: %w", id, err)
	}
	return nil
}
