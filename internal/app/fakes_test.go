package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"reading_room/internal/domain"
)

// ---- fakes ----

type fakeCatalog struct {
	mu      sync.Mutex
	books   []domain.Book
	full    map[int64]domain.Book
	created []domain.NewBook
	listErr error
	calls   int
}

func (f *fakeCatalog) ListBooks(ctx context.Context) ([]domain.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Book, len(f.books))
	copy(out, f.books)
	return out, nil
}

func (f *fakeCatalog) GetBook(ctx context.Context, id int64) (domain.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	b, ok := f.full[id]
	if !ok {
		return domain.Book{}, domain.ErrNotFound
	}
	return b, nil
}

func (f *fakeCatalog) CreateBook(ctx context.Context, nb domain.NewBook) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, nb)
	return int64(100 + len(f.created)), nil
}

type fakeReviews struct {
	mu       sync.Mutex
	list     []domain.Review
	lastQ    domain.ReviewQuery
	created  []domain.NewReview
	statuses map[int64]domain.ReviewStatus
}

func (f *fakeReviews) ListReviews(ctx context.Context, q domain.ReviewQuery) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQ = q
	return f.list, nil
}

func (f *fakeReviews) CreateReview(ctx context.Context, r domain.NewReview) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, r)
	return int64(len(f.created)), nil
}

func (f *fakeReviews) SetReviewStatus(ctx context.Context, id int64, st domain.ReviewStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses == nil {
		f.statuses = map[int64]domain.ReviewStatus{}
	}
	f.statuses[id] = st
	return nil
}

type deleted struct {
	kind domain.ItemKind
	id   int64
}

type fakeAdmin struct {
	mu       sync.Mutex
	password string
	token    string
	reviews  []domain.Review
	books    []domain.Book
	booksErr error
	deleted  []deleted
	tokens   []string
}

func (f *fakeAdmin) Login(ctx context.Context, password string) (string, error) {
	if password != f.password {
		return "", domain.ErrUnauthorized
	}
	return f.token, nil
}

func (f *fakeAdmin) check(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	if token != f.token {
		return domain.ErrUnauthorized
	}
	return nil
}

func (f *fakeAdmin) AllReviews(ctx context.Context, token string) ([]domain.Review, error) {
	if err := f.check(token); err != nil {
		return nil, err
	}
	return f.reviews, nil
}

func (f *fakeAdmin) AllBooks(ctx context.Context, token string) ([]domain.Book, error) {
	if err := f.check(token); err != nil {
		return nil, err
	}
	if f.booksErr != nil {
		return nil, f.booksErr
	}
	return f.books, nil
}

func (f *fakeAdmin) Delete(ctx context.Context, token string, kind domain.ItemKind, id int64) error {
	if err := f.check(token); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, deleted{kind, id})
	return nil
}

// fakeCache round-trips through JSON like the redis adapter does.
type fakeCache struct {
	mu     sync.Mutex
	store  map[string][]byte
	dels   []string
	getErr error
	setErr error
	delErr error
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return false, c.getErr
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(v, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.delErr != nil {
		return c.delErr
	}
	c.dels = append(c.dels, key)
	delete(c.store, key)
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store[key]
	return ok
}

type memTokens struct {
	token   string
	saveErr error
}

func (m *memTokens) Load(ctx context.Context) (string, error) { return m.token, nil }
func (m *memTokens) Save(ctx context.Context, t string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.token = t
	return nil
}
func (m *memTokens) Clear(ctx context.Context) error { m.token = ""; return nil }

func ptr[T any](v T) *T { return &v }

// captureLog routes the global logger into a buffer for the rest of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}
