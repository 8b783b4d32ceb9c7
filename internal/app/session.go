package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"reading_room/internal/domain"
)

type SessionState int

const (
	Unauthenticated SessionState = iota
	Authenticated
)

func (s SessionState) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// AdminGate holds the admin bearer token. It has no notion of expiry:
// a stale token keeps the gate authenticated until Logout, and the
// remote service rejects the calls made with it.
type AdminGate struct {
	admin domain.AdminClient
	store domain.TokenStore

	mu    sync.RWMutex
	token string
}

func NewAdminGate(admin domain.AdminClient, store domain.TokenStore) *AdminGate {
	return &AdminGate{admin: admin, store: store}
}

// Restore picks up a token persisted by an earlier session.
func (g *AdminGate) Restore(ctx context.Context) error {
	tok, err := g.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load admin token: %w", err)
	}
	g.mu.Lock()
	g.token = tok
	g.mu.Unlock()
	return nil
}

func (g *AdminGate) Login(ctx context.Context, password string) error {
	if password == "" {
		return &domain.ValidationError{Fields: []domain.FieldError{{Field: "password", Message: "password is required"}}}
	}
	tok, err := g.admin.Login(ctx, password)
	if err != nil {
		return err
	}
	if tok == "" {
		return fmt.Errorf("login: %w: empty token", domain.ErrUpstream)
	}
	if err := g.store.Save(ctx, tok); err != nil {
		return fmt.Errorf("save admin token: %w", err)
	}
	g.mu.Lock()
	g.token = tok
	g.mu.Unlock()
	return nil
}

// Logout always leaves the gate unauthenticated, even when clearing the store fails.
func (g *AdminGate) Logout(ctx context.Context) error {
	g.mu.Lock()
	g.token = ""
	g.mu.Unlock()
	if err := g.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear admin token: %w", err)
	}
	return nil
}

func (g *AdminGate) State() SessionState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.token == "" {
		return Unauthenticated
	}
	return Authenticated
}

func (g *AdminGate) Authenticated() bool { return g.State() == Authenticated }

func (g *AdminGate) Token() (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.token == "" {
		return "", domain.ErrNotAuthenticated
	}
	return g.token, nil
}

// IsAuthError reports whether err means the admin must (re)authenticate.
func IsAuthError(err error) bool {
	return errors.Is(err, domain.ErrNotAuthenticated) || errors.Is(err, domain.ErrUnauthorized)
}
