package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalid          = errors.New("invalid input")
	ErrNotAuthenticated = errors.New("admin session is not authenticated")
	ErrUpstream         = errors.New("upstream request failed")
	ErrConflict         = errors.New("conflicts with current state")
)
