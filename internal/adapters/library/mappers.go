package library

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"reading_room/internal/domain"
)

/********** wire records (as the remote services send them) **********/

type bookDTO struct {
	ID          int64   `json:"id" validate:"gt=0"`
	Title       string  `json:"title" validate:"required"`
	Author      string  `json:"author" validate:"required"`
	Genre       string  `json:"genre"`
	Year        *int    `json:"year"`
	Description string  `json:"description"`
	CoverURL    *string `json:"cover_url"`
	Content     string  `json:"content"`
	CreatedAt   string  `json:"created_at"`
}

type reviewDTO struct {
	ID         int64   `json:"id" validate:"gt=0"`
	Type       string  `json:"type" validate:"oneof=book app"`
	BookID     *int64  `json:"book_id"`
	BookTitle  *string `json:"book_title"`
	AuthorName string  `json:"author_name" validate:"required"`
	Rating     *int    `json:"rating" validate:"required,gte=1,lte=5"`
	Content    string  `json:"content" validate:"required"`
	Status     string  `json:"status" validate:"oneof=pending approved rejected"`
	CreatedAt  string  `json:"created_at"`
}

type createdDTO struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

func (c createdDTO) id() (int64, error) {
	if c.ID <= 0 {
		return 0, errNoID
	}
	return c.ID, nil
}

/********** tiny helpers **********/

// the services serialize timestamps with Python's str(datetime), not RFC 3339
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func ptrStr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}

/********** book mapper **********/

func mapBook(d bookDTO) (domain.Book, error) {
	if err := domain.Validate(d); err != nil {
		return domain.Book{}, err
	}
	b := domain.Book{
		ID:          d.ID,
		Title:       d.Title,
		Author:      d.Author,
		Genre:       d.Genre,
		Year:        d.Year,
		Description: d.Description,
		CoverURL:    ptrStr(d.CoverURL),
		Content:     d.Content,
	}
	if t, ok := parseTimestamp(d.CreatedAt); ok {
		b.CreatedAt = &t
	}
	return b, nil
}

// mapBooks keeps remote order and drops records that fail validation.
func mapBooks(in []bookDTO) []domain.Book {
	out := make([]domain.Book, 0, len(in))
	for _, d := range in {
		b, err := mapBook(d)
		if err != nil {
			log.Warn().Err(err).Int64("id", d.ID).Str("context", "mapBooks").Msg("dropping invalid book record")
			continue
		}
		out = append(out, b)
	}
	return out
}

/********** review mapper **********/

func mapReview(d reviewDTO) (domain.Review, error) {
	if err := domain.Validate(d); err != nil {
		return domain.Review{}, err
	}
	r := domain.Review{
		ID:         d.ID,
		Type:       domain.ReviewType(d.Type),
		BookID:     d.BookID,
		BookTitle:  ptrStr(d.BookTitle),
		AuthorName: d.AuthorName,
		Rating:     *d.Rating,
		Content:    d.Content,
		Status:     domain.ReviewStatus(d.Status),
	}
	if t, ok := parseTimestamp(d.CreatedAt); ok {
		r.CreatedAt = t
	} else {
		log.Debug().Int64("id", d.ID).Str("created_at", d.CreatedAt).Msg("unparsed review timestamp")
	}
	return r, nil
}

func mapReviews(in []reviewDTO) []domain.Review {
	out := make([]domain.Review, 0, len(in))
	for _, d := range in {
		r, err := mapReview(d)
		if err != nil {
			log.Warn().Err(err).Int64("id", d.ID).Str("context", "mapReviews").Msg("dropping invalid review record")
			continue
		}
		out = append(out, r)
	}
	return out
}
