package domain

import "context"

type CatalogClient interface {
	ListBooks(ctx context.Context) ([]Book, error)
	GetBook(ctx context.Context, id int64) (Book, error)
	CreateBook(ctx context.Context, b NewBook) (int64, error)
}

type ReviewClient interface {
	ListReviews(ctx context.Context, q ReviewQuery) ([]Review, error)
	CreateReview(ctx context.Context, r NewReview) (int64, error)
	SetReviewStatus(ctx context.Context, id int64, status ReviewStatus) error
}

type AdminClient interface {
	// Login exchanges the admin password for a bearer token.
	Login(ctx context.Context, password string) (string, error)
	AllReviews(ctx context.Context, token string) ([]Review, error)
	AllBooks(ctx context.Context, token string) ([]Book, error)
	Delete(ctx context.Context, token string, kind ItemKind, id int64) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// TokenStore persists the admin bearer token between restarts.
// Load returns "" with a nil error when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}
