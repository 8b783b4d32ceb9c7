// internal/adapters/library/client.go
package library

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"reading_room/internal/adapters/observability"
	"reading_room/internal/domain"
)

type Options struct {
	BooksURL   string
	ReviewsURL string
	AdminURL   string
	RPS        int
	MaxRetries int // GET only
	HTTPClient *http.Client
}

// Client talks to the remote book catalog, review and admin services.
type Client struct {
	books   string
	reviews string
	admin   string
	hc      *http.Client
	rl      *rate.Limiter
	retries int
}

func New(o Options) (*Client, error) {
	for name, u := range map[string]string{"books": o.BooksURL, "reviews": o.ReviewsURL, "admin": o.AdminURL} {
		if _, err := url.ParseRequestURI(u); err != nil {
			return nil, fmt.Errorf("%s service URL %q: %w", name, u, err)
		}
	}
	if o.RPS <= 0 {
		o.RPS = 5
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		books:   o.BooksURL,
		reviews: o.ReviewsURL,
		admin:   o.AdminURL,
		hc:      hc,
		rl:      rate.NewLimiter(rate.Limit(o.RPS), o.RPS),
		retries: o.MaxRetries,
	}, nil
}

// APIError is a non-success response. Message carries the service's "error" field when present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote status %d", e.Status)
	}
	return fmt.Sprintf("remote status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return domain.ErrNotFound
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return domain.ErrUnauthorized
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return domain.ErrInvalid
	default:
		return domain.ErrUpstream
	}
}

// ---- catalog ----

func (c *Client) ListBooks(ctx context.Context) ([]domain.Book, error) {
	var out []bookDTO
	if err := c.do(ctx, call{endpoint: "books.list", method: http.MethodGet, url: c.books}, &out); err != nil {
		return nil, err
	}
	return mapBooks(out), nil
}

func (c *Client) GetBook(ctx context.Context, id int64) (domain.Book, error) {
	u := withQuery(c.books, url.Values{"id": {strconv.FormatInt(id, 10)}})
	var out bookDTO
	if err := c.do(ctx, call{endpoint: "books.get", method: http.MethodGet, url: u}, &out); err != nil {
		return domain.Book{}, err
	}
	return mapBook(out)
}

func (c *Client) CreateBook(ctx context.Context, b domain.NewBook) (int64, error) {
	var out createdDTO
	if err := c.do(ctx, call{endpoint: "books.create", method: http.MethodPost, url: c.books, body: b}, &out); err != nil {
		return 0, err
	}
	return out.id()
}

// ---- reviews ----

func (c *Client) ListReviews(ctx context.Context, q domain.ReviewQuery) ([]domain.Review, error) {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Type != "" {
		v.Set("type", string(q.Type))
	}
	if q.BookID != nil {
		v.Set("book_id", strconv.FormatInt(*q.BookID, 10))
	}
	var out []reviewDTO
	if err := c.do(ctx, call{endpoint: "reviews.list", method: http.MethodGet, url: withQuery(c.reviews, v)}, &out); err != nil {
		return nil, err
	}
	return mapReviews(out), nil
}

func (c *Client) CreateReview(ctx context.Context, r domain.NewReview) (int64, error) {
	var out createdDTO
	if err := c.do(ctx, call{endpoint: "reviews.create", method: http.MethodPost, url: c.reviews, body: r}, &out); err != nil {
		return 0, err
	}
	return out.id()
}

func (c *Client) SetReviewStatus(ctx context.Context, id int64, status domain.ReviewStatus) error {
	body := map[string]any{"id": id, "status": status}
	return c.do(ctx, call{endpoint: "reviews.status", method: http.MethodPut, url: c.reviews, body: body}, nil)
}

// ---- admin ----

func (c *Client) Login(ctx context.Context, password string) (string, error) {
	body := map[string]string{"action": "login", "password": password}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, call{endpoint: "admin.login", method: http.MethodPost, url: c.admin, body: body}, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *Client) AllReviews(ctx context.Context, token string) ([]domain.Review, error) {
	u := withQuery(c.admin, url.Values{"action": {"reviews"}})
	var out []reviewDTO
	if err := c.do(ctx, call{endpoint: "admin.reviews", method: http.MethodGet, url: u, token: token}, &out); err != nil {
		return nil, err
	}
	return mapReviews(out), nil
}

func (c *Client) AllBooks(ctx context.Context, token string) ([]domain.Book, error) {
	u := withQuery(c.admin, url.Values{"action": {"books"}})
	var out []bookDTO
	if err := c.do(ctx, call{endpoint: "admin.books", method: http.MethodGet, url: u, token: token}, &out); err != nil {
		return nil, err
	}
	return mapBooks(out), nil
}

func (c *Client) Delete(ctx context.Context, token string, kind domain.ItemKind, id int64) error {
	body := map[string]any{"type": kind, "id": id}
	return c.do(ctx, call{endpoint: "admin.delete", method: http.MethodDelete, url: c.admin, body: body, token: token}, nil)
}

// ---- Internals ----

type call struct {
	endpoint string // metrics label
	method   string
	url      string
	body     any
	token    string
}

func withQuery(base string, v url.Values) string {
	if len(v) == 0 {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + v.Encode()
}

// do sends one call with client-side rate limiting and JSON-decodes a 2xx body into out.
// GETs are retried on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) do(ctx context.Context, cl call, out any) error {
	var payload []byte
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", cl.endpoint, err)
		}
		payload = b
	}
	attempts := 1
	if cl.method == http.MethodGet {
		attempts += c.retries
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := c.rl.Wait(ctx); err != nil {
			return err
		}
		wait, err := c.once(ctx, cl, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if wait < 0 || i == attempts-1 {
			break
		}
		if wait == 0 {
			wait = backoff(i)
		}
		if !sleepCtx(ctx, wait) {
			return ctx.Err()
		}
	}
	return lastErr
}

// once performs a single attempt. A non-negative wait marks the failure as retryable.
func (c *Client) once(ctx context.Context, cl call, payload []byte, out any) (time.Duration, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, cl.url, body)
	if err != nil {
		return -1, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "reading-room/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("library", cl.endpoint, 0, time.Since(start))
		if ctx.Err() != nil {
			return -1, ctx.Err()
		}
		return 0, fmt.Errorf("%s: %w: %v", cl.endpoint, domain.ErrUpstream, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("library", cl.endpoint, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil || resp.StatusCode == http.StatusNoContent {
			_, _ = io.Copy(io.Discard, resp.Body)
			return -1, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return -1, fmt.Errorf("decode %s response: %w", cl.endpoint, err)
		}
		return -1, nil

	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		apiErr := readAPIError(resp)
		return retryAfter(resp), apiErr

	default:
		return -1, readAPIError(resp)
	}
}

func readAPIError(resp *http.Response) *APIError {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(b))
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}

var errNoID = errors.New("response carries no id")
