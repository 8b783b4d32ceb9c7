package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reading_room/internal/app"
	"reading_room/internal/domain"
)

func TestAddBook_ValidatesAndInvalidatesList(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{books: sampleBooks()}
	cache := &fakeCache{}
	lib := app.NewLibraryService(catalog, &fakeReviews{}, cache, time.Minute)
	cmds := app.NewReaderCommands(catalog, &fakeReviews{}, cache)

	_, err := lib.ListBooks(ctx)
	require.NoError(t, err)
	require.True(t, cache.has("books:list"))

	_, err = cmds.AddBook(ctx, domain.NewBook{Title: "  ", Author: "Anon"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, domain.ErrInvalid)
	assert.Empty(t, catalog.created)

	id, err := cmds.AddBook(ctx, domain.NewBook{Title: " Dune ", Author: "Frank Herbert", Content: "A beginning is a very delicate time."})
	require.NoError(t, err)
	assert.Equal(t, int64(101), id)
	assert.Equal(t, "Dune", catalog.created[0].Title)
	assert.False(t, cache.has("books:list"))
}

func TestSubmitReview(t *testing.T) {
	ctx := context.Background()
	reviews := &fakeReviews{}
	cmds := app.NewReaderCommands(&fakeCatalog{}, reviews, &fakeCache{})

	testCases := []struct {
		name    string
		in      domain.NewReview
		wantErr bool
	}{
		{"app review", domain.NewReview{Type: domain.ReviewTypeApp, AuthorName: "Ira", Rating: 5, Content: "Great"}, false},
		{"book review", domain.NewReview{Type: domain.ReviewTypeBook, BookID: ptr(int64(2)), AuthorName: "Ira", Rating: 1, Content: "Meh"}, false},
		{"book review without book", domain.NewReview{Type: domain.ReviewTypeBook, AuthorName: "Ira", Rating: 4, Content: "x"}, true},
		{"rating too high", domain.NewReview{Type: domain.ReviewTypeApp, AuthorName: "Ira", Rating: 6, Content: "x"}, true},
		{"rating zero", domain.NewReview{Type: domain.ReviewTypeApp, AuthorName: "Ira", Content: "x"}, true},
		{"blank author", domain.NewReview{Type: domain.ReviewTypeApp, AuthorName: "   ", Rating: 3, Content: "x"}, true},
		{"unknown type", domain.NewReview{Type: "movie", AuthorName: "Ira", Rating: 3, Content: "x"}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := cmds.SubmitReview(ctx, tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalid)
				return
			}
			require.NoError(t, err)
		})
	}
	assert.Len(t, reviews.created, 2)
}

func TestSubmitReview_AppReviewDropsBookID(t *testing.T) {
	reviews := &fakeReviews{}
	cmds := app.NewReaderCommands(&fakeCatalog{}, reviews, &fakeCache{})
	_, err := cmds.SubmitReview(context.Background(), domain.NewReview{Type: domain.ReviewTypeApp, BookID: ptr(int64(3)), AuthorName: "A", Rating: 2, Content: "c"})
	require.NoError(t, err)
	assert.Nil(t, reviews.created[0].BookID)
}

func loggedIn(t *testing.T, admin *fakeAdmin) *app.AdminGate {
	t.Helper()
	gate := app.NewAdminGate(admin, &memTokens{})
	require.NoError(t, gate.Login(context.Background(), admin.password))
	return gate
}

func TestAdminService_RequiresAuthentication(t *testing.T) {
	ctx := context.Background()
	admin := &fakeAdmin{password: "p", token: "t"}
	svc := app.NewAdminService(app.NewAdminGate(admin, &memTokens{}), admin, &fakeReviews{}, &fakeCache{})

	_, err := svc.Dashboard(ctx)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	assert.ErrorIs(t, svc.ApproveReview(ctx, 1), domain.ErrNotAuthenticated)
	assert.ErrorIs(t, svc.DeleteReview(ctx, 1), domain.ErrNotAuthenticated)
	assert.ErrorIs(t, svc.DeleteBook(ctx, 1), domain.ErrNotAuthenticated)
	assert.Empty(t, admin.deleted)
}

func TestAdminService_Dashboard(t *testing.T) {
	admin := &fakeAdmin{
		password: "p", token: "t",
		reviews: []domain.Review{{ID: 1, Status: domain.StatusPending}},
		books:   sampleBooks(),
	}
	svc := app.NewAdminService(loggedIn(t, admin), admin, &fakeReviews{}, &fakeCache{})

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Len(t, d.Reviews, 1)
	assert.Len(t, d.Books, 4)
	assert.ElementsMatch(t, []string{"t", "t"}, admin.tokens)
}

func TestAdminService_DashboardFailsWhenEitherFetchFails(t *testing.T) {
	admin := &fakeAdmin{password: "p", token: "t", booksErr: errors.New("503")}
	svc := app.NewAdminService(loggedIn(t, admin), admin, &fakeReviews{}, &fakeCache{})

	d, err := svc.Dashboard(context.Background())
	require.Error(t, err)
	assert.Nil(t, d.Reviews)
}

func TestAdminService_Moderation(t *testing.T) {
	ctx := context.Background()
	admin := &fakeAdmin{password: "p", token: "t", reviews: []domain.Review{{ID: 10, Status: domain.StatusPending}}}
	reviews := &fakeReviews{}
	cache := &fakeCache{}
	require.NoError(t, cache.Set(ctx, "books:list", sampleBooks(), 60))
	require.NoError(t, cache.Set(ctx, "books:4", sampleBooks()[3], 60))
	svc := app.NewAdminService(loggedIn(t, admin), admin, reviews, cache)

	require.NoError(t, svc.ApproveReview(ctx, 10))
	assert.Equal(t, domain.StatusApproved, reviews.statuses[10])

	require.NoError(t, svc.DeleteReview(ctx, 11))
	require.NoError(t, svc.DeleteBook(ctx, 4))
	assert.Equal(t, []deleted{{domain.ItemReview, 11}, {domain.ItemBook, 4}}, admin.deleted)
	assert.False(t, cache.has("books:list"))
	assert.False(t, cache.has("books:4"))
}

func TestCatalogWarmer(t *testing.T) {
	ctx := context.Background()
	books := sampleBooks()
	catalog := &fakeCatalog{books: books, full: map[int64]domain.Book{1: books[0]}}
	cache := &fakeCache{}
	w := app.NewCatalogWarmer(catalog, cache, time.Minute)

	got, err := w.WarmList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, got)
	assert.True(t, cache.has("books:list"))

	require.NoError(t, w.WarmBook(ctx, 1))
	assert.True(t, cache.has("books:1"))

	// vanished since listing
	require.NoError(t, w.WarmBook(ctx, 2))
	assert.False(t, cache.has("books:2"))
}

func TestEvictionFailuresAreLogged(t *testing.T) {
	logs := captureLog(t)
	ctx := context.Background()
	admin := &fakeAdmin{password: "p", token: "t"}
	cache := &fakeCache{delErr: errors.New("redis down")}

	cmds := app.NewReaderCommands(&fakeCatalog{}, &fakeReviews{}, cache)
	_, err := cmds.AddBook(ctx, domain.NewBook{Title: "Dune", Author: "Frank Herbert", Content: "..."})
	require.NoError(t, err)

	svc := app.NewAdminService(loggedIn(t, admin), admin, &fakeReviews{}, cache)
	require.NoError(t, svc.DeleteBook(ctx, 4))

	out := logs.String()
	assert.Equal(t, 3, strings.Count(out, "cache evict failed"), out)
	assert.Contains(t, out, `"key":"books:4"`)
}

func TestApproveReview_OnlyPending(t *testing.T) {
	ctx := context.Background()
	admin := &fakeAdmin{password: "p", token: "t", reviews: []domain.Review{
		{ID: 1, Status: domain.StatusPending},
		{ID: 2, Status: domain.StatusRejected},
		{ID: 3, Status: domain.StatusApproved},
	}}
	reviews := &fakeReviews{}
	svc := app.NewAdminService(loggedIn(t, admin), admin, reviews, nil)

	assert.ErrorIs(t, svc.ApproveReview(ctx, 2), domain.ErrConflict)
	assert.ErrorIs(t, svc.ApproveReview(ctx, 3), domain.ErrConflict)
	assert.ErrorIs(t, svc.ApproveReview(ctx, 99), domain.ErrNotFound)
	assert.Empty(t, reviews.statuses)

	require.NoError(t, svc.ApproveReview(ctx, 1))
	assert.Equal(t, map[int64]domain.ReviewStatus{1: domain.StatusApproved}, reviews.statuses)
}
