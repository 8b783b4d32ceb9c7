package domain

import "time"

type ReviewType string

const (
	ReviewTypeBook ReviewType = "book"
	ReviewTypeApp  ReviewType = "app"
)

type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusApproved ReviewStatus = "approved"
	StatusRejected ReviewStatus = "rejected"
)

type Review struct {
	ID         int64        `json:"id"`
	Type       ReviewType   `json:"type"`
	BookID     *int64       `json:"book_id,omitempty"`
	BookTitle  *string      `json:"book_title,omitempty"` // admin listing only
	AuthorName string       `json:"author_name"`
	Rating     int          `json:"rating"`
	Content    string       `json:"content"`
	Status     ReviewStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
}

// NewReview is a review submission. It enters moderation as pending.
type NewReview struct {
	Type       ReviewType `json:"type" validate:"required,oneof=book app"`
	BookID     *int64     `json:"book_id,omitempty" validate:"required_if=Type book"`
	AuthorName string     `json:"author_name" validate:"required,max=100"`
	Rating     int        `json:"rating" validate:"gte=1,lte=5"`
	Content    string     `json:"content" validate:"required,max=5000"`
}

// ReviewQuery selects reviews from the review service. Zero Status means approved.
type ReviewQuery struct {
	Type   ReviewType
	BookID *int64
	Status ReviewStatus
}

// ItemKind names what an admin delete applies to.
type ItemKind string

const (
	ItemReview ItemKind = "review"
	ItemBook   ItemKind = "book"
)
