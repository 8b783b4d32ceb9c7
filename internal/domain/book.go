package domain

import "time"

type Book struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	Genre       string     `json:"genre"`
	Year        *int       `json:"year,omitempty"`
	Description string     `json:"description"`
	CoverURL    *string    `json:"cover_url,omitempty"`
	Content     string     `json:"content,omitempty"` // empty in catalog listings
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// NewBook is the payload for adding a book to the remote catalog.
type NewBook struct {
	Title       string  `json:"title" validate:"required,max=500"`
	Author      string  `json:"author" validate:"required,max=300"`
	Genre       string  `json:"genre" validate:"max=100"`
	Year        *int    `json:"year,omitempty" validate:"omitempty,gte=0,lte=9999"`
	Description string  `json:"description"`
	Content     string  `json:"content" validate:"required"`
	CoverURL    *string `json:"cover_url,omitempty" validate:"omitempty,url"`
}
