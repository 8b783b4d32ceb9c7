package app

import (
	"strings"

	"reading_room/internal/domain"
)

// CatalogFilter holds the catalog view's active filters. An empty Genre means all genres.
type CatalogFilter struct {
	Query         string
	Genre         string
	BookmarksOnly bool
}

type BookmarkLookup interface {
	Has(id int64) bool
}

// FilterBooks returns the books matching every active filter, in input order.
// The result never aliases books and is never nil. A nil marks is an empty set.
func FilterBooks(books []domain.Book, f CatalogFilter, marks BookmarkLookup) []domain.Book {
	q := strings.ToLower(f.Query)
	out := make([]domain.Book, 0, len(books))
	for _, b := range books {
		if !matchesText(b, q) {
			continue
		}
		if f.Genre != "" && b.Genre != f.Genre {
			continue
		}
		if f.BookmarksOnly && (marks == nil || !marks.Has(b.ID)) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// q must already be lower-cased.
func matchesText(b domain.Book, q string) bool {
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(b.Title), q) ||
		strings.Contains(strings.ToLower(b.Author), q) ||
		strings.Contains(strings.ToLower(b.Description), q)
}

type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// Genres lists distinct genres in first-seen order with the number of books in each.
func Genres(books []domain.Book) []GenreCount {
	idx := make(map[string]int, 8)
	out := make([]GenreCount, 0, 8)
	for _, b := range books {
		if i, ok := idx[b.Genre]; ok {
			out[i].Count++
			continue
		}
		idx[b.Genre] = len(out)
		out = append(out, GenreCount{Genre: b.Genre, Count: 1})
	}
	return out
}
