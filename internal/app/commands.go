package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"reading_room/internal/domain"
)

type ReaderCommands struct {
	catalog domain.CatalogClient
	reviews domain.ReviewClient
	cache   domain.Cache
}

func NewReaderCommands(c domain.CatalogClient, r domain.ReviewClient, cache domain.Cache) *ReaderCommands {
	return &ReaderCommands{catalog: c, reviews: r, cache: cache}
}

func (s *ReaderCommands) AddBook(ctx context.Context, nb domain.NewBook) (int64, error) {
	nb.Title = strings.TrimSpace(nb.Title)
	nb.Author = strings.TrimSpace(nb.Author)
	nb.Genre = strings.TrimSpace(nb.Genre)
	nb.Description = strings.TrimSpace(nb.Description)
	nb.Content = strings.TrimSpace(nb.Content)
	if err := domain.Validate(nb); err != nil {
		return 0, err
	}
	id, err := s.catalog.CreateBook(ctx, nb)
	if err != nil {
		return 0, fmt.Errorf("add book: %w", err)
	}
	evict(ctx, s.cache, booksListKey)
	return id, nil
}

func (s *ReaderCommands) SubmitReview(ctx context.Context, nr domain.NewReview) (int64, error) {
	nr.AuthorName = strings.TrimSpace(nr.AuthorName)
	nr.Content = strings.TrimSpace(nr.Content)
	if nr.Type == domain.ReviewTypeApp {
		nr.BookID = nil
	}
	if err := domain.Validate(nr); err != nil {
		return 0, err
	}
	id, err := s.reviews.CreateReview(ctx, nr)
	if err != nil {
		return 0, fmt.Errorf("submit review: %w", err)
	}
	return id, nil
}

// ---- admin ----

type AdminService struct {
	gate    *AdminGate
	admin   domain.AdminClient
	reviews domain.ReviewClient
	cache   domain.Cache
}

// NewAdminService builds the admin operations behind g. cache may be nil.
func NewAdminService(g *AdminGate, a domain.AdminClient, r domain.ReviewClient, cache domain.Cache) *AdminService {
	return &AdminService{gate: g, admin: a, reviews: r, cache: cache}
}

type Dashboard struct {
	Reviews []domain.Review `json:"reviews"`
	Books   []domain.Book   `json:"books"`
}

// Dashboard loads every review and every book concurrently and returns only when both arrive.
func (s *AdminService) Dashboard(ctx context.Context) (Dashboard, error) {
	tok, err := s.gate.Token()
	if err != nil {
		return Dashboard{}, err
	}
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rs, err := s.admin.AllReviews(gctx, tok)
		if err != nil {
			return fmt.Errorf("load reviews: %w", err)
		}
		d.Reviews = rs
		return nil
	})
	g.Go(func() error {
		bs, err := s.admin.AllBooks(gctx, tok)
		if err != nil {
			return fmt.Errorf("load books: %w", err)
		}
		d.Books = bs
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// ApproveReview approves a pending review. Reviews already approved or rejected
// are left alone and reported as ErrConflict.
func (s *AdminService) ApproveReview(ctx context.Context, id int64) error {
	tok, err := s.gate.Token()
	if err != nil {
		return err
	}
	all, err := s.admin.AllReviews(ctx, tok)
	if err != nil {
		return fmt.Errorf("approve review %d: %w", id, err)
	}
	idx := slices.IndexFunc(all, func(r domain.Review) bool { return r.ID == id })
	if idx < 0 {
		return fmt.Errorf("approve review %d: %w", id, domain.ErrNotFound)
	}
	if st := all[idx].Status; st != domain.StatusPending {
		return fmt.Errorf("approve review %d: review is %s: %w", id, st, domain.ErrConflict)
	}
	if err := s.reviews.SetReviewStatus(ctx, id, domain.StatusApproved); err != nil {
		return fmt.Errorf("approve review %d: %w", id, err)
	}
	return nil
}

// DeleteReview rejects the review; the review service keeps the record.
func (s *AdminService) DeleteReview(ctx context.Context, id int64) error {
	tok, err := s.gate.Token()
	if err != nil {
		return err
	}
	if err := s.admin.Delete(ctx, tok, domain.ItemReview, id); err != nil {
		return fmt.Errorf("delete review %d: %w", id, err)
	}
	return nil
}

func (s *AdminService) DeleteBook(ctx context.Context, id int64) error {
	tok, err := s.gate.Token()
	if err != nil {
		return err
	}
	if err := s.admin.Delete(ctx, tok, domain.ItemBook, id); err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	evict(ctx, s.cache, booksListKey, bookKey(id))
	return nil
}
