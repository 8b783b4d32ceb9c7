package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"reading_room/internal/app"
	"reading_room/internal/domain"
)

func TestListBooks_CacheMissThenHit(t *testing.T) {
	catalog := &fakeCatalog{books: sampleBooks()}
	cache := &fakeCache{}
	q := app.NewLibraryService(catalog, &fakeReviews{}, cache, 10*time.Minute)

	// Miss (first time, populates cache)
	books, err := q.ListBooks(context.Background())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(books) != 4 {
		t.Fatalf("unexpected books: %+v", books)
	}

	// Mutate source to ensure second read indeed comes from cache
	catalog.books = nil

	books2, err := q.ListBooks(context.Background())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(books2) != 4 || catalog.calls != 1 {
		t.Fatalf("expected cached list, got %d books after %d remote calls", len(books2), catalog.calls)
	}
}

func TestListBooks_RemoteFailure(t *testing.T) {
	boom := errors.New("connection refused")
	q := app.NewLibraryService(&fakeCatalog{listErr: boom}, &fakeReviews{}, &fakeCache{}, time.Minute)
	if _, err := q.ListBooks(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped remote error, got %v", err)
	}
}

func TestGetBook_CachedPerID(t *testing.T) {
	catalog := &fakeCatalog{full: map[int64]domain.Book{2: {ID: 2, Title: "The Hobbit", Content: "In a hole in the ground"}}}
	cache := &fakeCache{}
	q := app.NewLibraryService(catalog, &fakeReviews{}, cache, time.Minute)

	b, err := q.GetBook(context.Background(), 2)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if b.Content != "In a hole in the ground" {
		t.Fatalf("unexpected book: %+v", b)
	}
	if !cache.has("books:2") {
		t.Fatalf("expected books:2 to be cached")
	}

	if _, err := q.GetBook(context.Background(), 99); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBrowse(t *testing.T) {
	q := app.NewLibraryService(&fakeCatalog{books: sampleBooks()}, &fakeReviews{}, &fakeCache{}, time.Minute)
	marks := app.NewBookmarks()
	marks.Toggle(3)

	res, err := q.Browse(context.Background(), app.CatalogFilter{Query: "tolstoy", BookmarksOnly: true}, marks)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if res.Count != 1 || res.Books[0].ID != 3 || res.Total != 4 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Genres) != 3 {
		t.Fatalf("expected genres of the whole catalog, got %+v", res.Genres)
	}
}

func TestListReviews_DefaultsToApproved(t *testing.T) {
	reviews := &fakeReviews{}
	q := app.NewLibraryService(&fakeCatalog{}, reviews, &fakeCache{}, time.Minute)

	if _, err := q.ListReviews(context.Background(), domain.ReviewQuery{Type: domain.ReviewTypeApp}); err != nil {
		t.Fatalf("err: %v", err)
	}
	if reviews.lastQ.Status != domain.StatusApproved || reviews.lastQ.Type != domain.ReviewTypeApp {
		t.Fatalf("unexpected query: %+v", reviews.lastQ)
	}
}

func TestGetBook_CacheFailuresAreLogged(t *testing.T) {
	logs := captureLog(t)
	catalog := &fakeCatalog{full: map[int64]domain.Book{2: {ID: 2, Title: "The Hobbit"}}}
	cache := &fakeCache{getErr: errors.New("redis down"), setErr: errors.New("redis down")}
	q := app.NewLibraryService(catalog, &fakeReviews{}, cache, time.Minute)

	b, err := q.GetBook(context.Background(), 2)
	if err != nil {
		t.Fatalf("cache failures must not fail the read: %v", err)
	}
	if b.ID != 2 {
		t.Fatalf("unexpected book: %+v", b)
	}
	for _, msg := range []string{"cache read failed", "cache write failed"} {
		if !strings.Contains(logs.String(), msg) {
			t.Fatalf("expected %q in logs, got %s", msg, logs.String())
		}
	}
	if !strings.Contains(logs.String(), `"key":"books:2"`) {
		t.Fatalf("expected the key in logs, got %s", logs.String())
	}
}
