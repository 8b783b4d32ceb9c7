package httpserver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"reading_room/internal/adapters/observability"
	"reading_room/internal/app"
	"reading_room/internal/domain"
)

const (
	sessionCookie    = "reader_session"
	sessionCookieAge = 30 * 24 * time.Hour

	// how often a live admin session pushes its stored token's expiry forward
	tokenRefreshEvery = time.Minute
)

// ReaderSession is the state one browser holds: its bookmarks and its admin gate.
type ReaderSession struct {
	ID        string
	Bookmarks *app.Bookmarks
	Gate      *app.AdminGate
	Admin     *app.AdminService

	tokens    domain.TokenStore
	lastSeen  time.Time
	refreshed time.Time
}

// TokenStoreFunc returns the admin token store of one reader session.
type TokenStoreFunc func(sessionID string) domain.TokenStore

// tokenRefresher is implemented by stores whose entries expire.
type tokenRefresher interface {
	Refresh(ctx context.Context) error
}

type Sessions struct {
	mu   sync.Mutex
	byID map[string]*ReaderSession
	anon *ReaderSession

	tokens  TokenStoreFunc
	admin   domain.AdminClient
	reviews domain.ReviewClient
	cache   domain.Cache
	now     func() time.Time
}

func NewSessions(tokens TokenStoreFunc, admin domain.AdminClient, reviews domain.ReviewClient, cache domain.Cache) *Sessions {
	s := &Sessions{
		byID:    make(map[string]*ReaderSession),
		tokens:  tokens,
		admin:   admin,
		reviews: reviews,
		cache:   cache,
		now:     time.Now,
	}
	s.anon = s.newSession("", discardTokens{})
	return s
}

// sessionTag identifies a session in logs without revealing the cookie value.
func sessionTag(id string) string {
	if id == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:4])
}

func (s *Sessions) newSession(id string, store domain.TokenStore) *ReaderSession {
	gate := app.NewAdminGate(s.admin, store)
	now := s.now()
	return &ReaderSession{
		ID:        id,
		Bookmarks: app.NewBookmarks(),
		Gate:      gate,
		Admin:     app.NewAdminService(gate, s.admin, s.reviews, s.cache),
		tokens:    store,
		lastSeen:  now,
		refreshed: now,
	}
}

// restore builds a session for id and loads any admin token stored for it.
func (s *Sessions) restore(ctx context.Context, id string) *ReaderSession {
	rs := s.newSession(id, s.tokens(id))
	if err := rs.Gate.Restore(ctx); err != nil {
		log.Warn().Err(err).Str("session", sessionTag(id)).Msg("admin token restore failed")
	}
	return rs
}

// live returns the registered session for id and marks it seen.
func (s *Sessions) live(ctx context.Context, id string) (*ReaderSession, bool) {
	s.mu.Lock()
	rs, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	now := s.now()
	rs.lastSeen = now
	due := rs.Gate.Authenticated() && now.Sub(rs.refreshed) >= tokenRefreshEvery
	if due {
		rs.refreshed = now
	}
	s.mu.Unlock()

	if r, ok := rs.tokens.(tokenRefresher); ok && due {
		if err := r.Refresh(ctx); err != nil {
			log.Warn().Err(err).Str("session", sessionTag(id)).Msg("admin token refresh failed")
		}
	}
	return rs, true
}

// register stores rs unless a concurrent request registered the same id first.
func (s *Sessions) register(rs *ReaderSession) (*ReaderSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byID[rs.ID]; ok {
		existing.lastSeen = s.now()
		return existing, false
	}
	s.byID[rs.ID] = rs
	observability.SetSessions(len(s.byID))
	return rs, true
}

// Resolve returns the session for id, creating and registering it when unknown.
// Ids that are not uuids are replaced. A recreated session restores its persisted
// admin token; bookmarks start empty.
func (s *Sessions) Resolve(ctx context.Context, id string) (*ReaderSession, bool) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	if rs, ok := s.live(ctx, id); ok {
		return rs, false
	}
	return s.register(s.restore(ctx, id))
}

// Peek returns the session for id without creating one. A session that is gone from
// memory but still has a stored admin token is restored and registered. Everything
// else shares one anonymous session with no bookmarks and no admin token.
func (s *Sessions) Peek(ctx context.Context, id string) *ReaderSession {
	if _, err := uuid.Parse(id); err != nil {
		return s.anon
	}
	if rs, ok := s.live(ctx, id); ok {
		return rs
	}
	rs := s.restore(ctx, id)
	if !rs.Gate.Authenticated() {
		return s.anon
	}
	rs, _ = s.register(rs)
	return rs
}

// Sweep drops sessions idle for longer than idle and returns how many went.
func (s *Sessions) Sweep(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, rs := range s.byID {
		if rs.lastSeen.Before(cutoff) {
			delete(s.byID, id)
			n++
		}
	}
	observability.SetSessions(len(s.byID))
	return n
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// RunSweeper sweeps every interval until ctx is done.
func (s *Sessions) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(idle); n > 0 {
				log.Info().Int("dropped", n).Int("live", s.Len()).Msg("reader sessions swept")
			}
		}
	}
}

// discardTokens backs the anonymous session, which can never log in.
type discardTokens struct{}

func (discardTokens) Load(context.Context) (string, error) { return "", nil }
func (discardTokens) Save(context.Context, string) error { return domain.ErrNotAuthenticated }
func (discardTokens) Clear(context.Context) error { return nil }

type sessionKey struct{}

func cookieValue(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// WithSession attaches the caller's reader session, creating one and issuing its
// cookie when needed. Only routes that change session state use it.
func WithSession(s *Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := cookieValue(r)
			rs, _ := s.Resolve(r.Context(), id)
			if rs.ID != id {
				http.SetCookie(w, &http.Cookie{
					Name:     sessionCookie,
					Value:    rs.ID,
					Path:     "/",
					MaxAge:   int(sessionCookieAge.Seconds()),
					HttpOnly: true,
					Secure:   r.TLS != nil,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, rs)))
		})
	}
}

// PeekSession attaches the caller's existing session, or the anonymous one.
// It never creates a session or sets a cookie.
func PeekSession(s *Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rs := s.Peek(r.Context(), cookieValue(r))
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, rs)))
		})
	}
}

func sessionFrom(ctx context.Context) *ReaderSession {
	rs, _ := ctx.Value(sessionKey{}).(*ReaderSession)
	return rs
}
