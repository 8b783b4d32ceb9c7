package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"reading_room/internal/domain"
)

const booksListKey = "books:list"

func bookKey(id int64) string { return fmt.Sprintf("books:%d", id) }

type LibraryService struct {
	catalog  domain.CatalogClient
	reviews  domain.ReviewClient
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewLibraryService(c domain.CatalogClient, r domain.ReviewClient, cache domain.Cache, ttl time.Duration) *LibraryService {
	return &LibraryService{catalog: c, reviews: r, cache: cache, cacheTTL: ttl}
}

func (s *LibraryService) ListBooks(ctx context.Context) ([]domain.Book, error) {
	var books []domain.Book
	if ok, err := s.cache.Get(ctx, booksListKey, &books); ok {
		return books, nil
	} else if err != nil {
		log.Warn().Err(err).Str("key", booksListKey).Msg("cache read failed")
	}
	books, err := s.catalog.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	if err := s.cache.Set(ctx, booksListKey, books, int(s.cacheTTL.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", booksListKey).Msg("cache write failed")
	}
	// callers get their own backing array
	out := make([]domain.Book, len(books))
	copy(out, books)
	return out, nil
}

func (s *LibraryService) GetBook(ctx context.Context, id int64) (domain.Book, error) {
	key := bookKey(id)
	var b domain.Book
	if ok, err := s.cache.Get(ctx, key, &b); ok {
		return b, nil
	} else if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}
	b, err := s.catalog.GetBook(ctx, id)
	if err != nil {
		return domain.Book{}, fmt.Errorf("get book %d: %w", id, err)
	}
	if err := s.cache.Set(ctx, key, b, int(s.cacheTTL.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return b, nil
}

// evict drops keys from cache. Failures only leave stale entries until the TTL runs out.
func evict(ctx context.Context, cache domain.Cache, keys ...string) {
	if cache == nil {
		return
	}
	for _, k := range keys {
		if err := cache.Del(ctx, k); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("cache evict failed")
		}
	}
}

type BrowseResult struct {
	Books  []domain.Book `json:"items"`
	Count  int           `json:"count"`
	Total  int           `json:"total"`
	Genres []GenreCount  `json:"genres"`
}

// Browse applies the catalog filter to the current catalog snapshot.
func (s *LibraryService) Browse(ctx context.Context, f CatalogFilter, marks BookmarkLookup) (BrowseResult, error) {
	all, err := s.ListBooks(ctx)
	if err != nil {
		return BrowseResult{}, err
	}
	books := FilterBooks(all, f, marks)
	return BrowseResult{
		Books:  books,
		Count:  len(books),
		Total:  len(all),
		Genres: Genres(all),
	}, nil
}

func (s *LibraryService) ListReviews(ctx context.Context, q domain.ReviewQuery) ([]domain.Review, error) {
	if q.Status == "" {
		q.Status = domain.StatusApproved
	}
	rs, err := s.reviews.ListReviews(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return rs, nil
}
