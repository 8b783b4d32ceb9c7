// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"reading_room/internal/adapters/observability"
	"reading_room/internal/app"
	"reading_room/internal/domain"
)

type Handlers struct {
	Q *app.LibraryService
	C *app.ReaderCommands
	S *Sessions
}

type problem struct {
	Type   string              `json:"type"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors []domain.FieldError `json:"errors,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		// reads see the caller's session if there is one
		r.Group(func(r chi.Router) {
			r.Use(PeekSession(h.S))

			r.Get("/books", h.listBooks)
			r.Post("/books", h.addBook)
			r.Get("/books/{id}", h.getBook)
			r.Get("/books/{id}/content", h.readBook)
			r.Get("/genres", h.listGenres)

			r.Get("/bookmarks", h.listBookmarks)

			r.Get("/reviews", h.listReviews)
			r.Post("/reviews", h.submitReview)

			h.mountAdmin(r)
		})

		// these keep state in the session, so they create it
		r.Group(func(r chi.Router) {
			r.Use(WithSession(h.S))

			r.Post("/bookmarks/{id}", h.toggleBookmark)
			r.Post("/admin/login", h.adminLogin)
		})
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemFields(w, status, title, detail, nil)
}

func writeProblemFields(w http.ResponseWriter, status int, title, detail string, fields []domain.FieldError) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	p := problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Errors: fields}
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps service errors onto problem responses. Remote failures stay generic.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeProblemFields(w, http.StatusBadRequest, "Invalid input", "", verr.Fields)
	case errors.Is(err, domain.ErrInvalid):
		writeProblem(w, http.StatusBadRequest, "Invalid input", "")
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "")
	case errors.Is(err, domain.ErrNotAuthenticated):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "admin login required")
	case errors.Is(err, domain.ErrUnauthorized):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", "")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("upstream request failed")
		writeProblem(w, http.StatusBadGateway, "Upstream request failed", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached writes v with an ETag and answers 304 when the client already has it.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write cached body")
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// ---- catalog ----

func (h *Handlers) listBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := app.CatalogFilter{Query: q.Get("q"), Genre: q.Get("genre")}
	if v := q.Get("bookmarks"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid bookmarks", "bookmarks must be true or false")
			return
		}
		f.BookmarksOnly = b
	}
	res, err := h.Q.Browse(r.Context(), f, sessionFrom(r.Context()).Bookmarks)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, res)
}

func (h *Handlers) listGenres(w http.ResponseWriter, r *http.Request) {
	books, err := h.Q.ListBooks(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, app.Genres(books))
}

func (h *Handlers) getBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	b, err := h.Q.GetBook(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, b)
}

func (h *Handlers) readBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	b, err := h.Q.GetBook(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(b.Content)); err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to write book content")
	}
}

func (h *Handlers) addBook(w http.ResponseWriter, r *http.Request) {
	var nb domain.NewBook
	if err := decodeBody(w, r, &nb); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return
	}
	id, err := h.C.AddBook(r.Context(), nb)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// ---- bookmarks ----

func (h *Handlers) listBookmarks(w http.ResponseWriter, r *http.Request) {
	marks := sessionFrom(r.Context()).Bookmarks
	ids := marks.IDs()
	writeJSON(w, http.StatusOK, map[string]any{"ids": ids, "count": len(ids)})
}

func (h *Handlers) toggleBookmark(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	on := sessionFrom(r.Context()).Bookmarks.Toggle(id)
	observability.ObserveBookmark(on)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "bookmarked": on})
}

// ---- reviews ----

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rq := domain.ReviewQuery{Type: domain.ReviewType(q.Get("type"))}
	switch rq.Type {
	case "", domain.ReviewTypeBook, domain.ReviewTypeApp:
	default:
		writeProblem(w, http.StatusBadRequest, "Invalid type", "type must be book or app")
		return
	}
	if v := q.Get("book_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid book_id", "book_id must be a positive number")
			return
		}
		rq.BookID = &id
	}
	rs, err := h.Q.ListReviews(r.Context(), rq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (h *Handlers) submitReview(w http.ResponseWriter, r *http.Request) {
	var nr domain.NewReview
	if err := decodeBody(w, r, &nr); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return
	}
	id, err := h.C.SubmitReview(r.Context(), nr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "status": domain.StatusPending})
}
