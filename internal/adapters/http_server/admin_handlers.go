package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// mountAdmin registers the admin routes that work on an existing session.
// Login creates one and is registered with the other session-creating routes.
func (h *Handlers) mountAdmin(r chi.Router) {
	r.Post("/admin/logout", h.adminLogout)
	r.Get("/admin/session", h.adminSession)
	r.Get("/admin/dashboard", h.adminDashboard)
	r.Post("/admin/reviews/{id}/approve", h.approveReview)
	r.Delete("/admin/reviews/{id}", h.deleteReview)
	r.Delete("/admin/books/{id}", h.deleteBook)
}

func (h *Handlers) adminLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return
	}
	rs := sessionFrom(r.Context())
	if err := rs.Gate.Login(r.Context(), body.Password); err != nil {
		writeError(w, r, err)
		return
	}
	log.Info().Str("session", sessionTag(rs.ID)).Msg("admin login")
	writeJSON(w, http.StatusOK, map[string]string{"state": rs.Gate.State().String()})
}

func (h *Handlers) adminLogout(w http.ResponseWriter, r *http.Request) {
	rs := sessionFrom(r.Context())
	if err := rs.Gate.Logout(r.Context()); err != nil {
		// the gate is already unauthenticated; only the stored copy may linger
		log.Warn().Err(err).Str("session", sessionTag(rs.ID)).Msg("admin logout could not clear stored token")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) adminSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"state": sessionFrom(r.Context()).Gate.State().String()})
}

func (h *Handlers) adminDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := sessionFrom(r.Context()).Admin.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) approveReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	if err := sessionFrom(r.Context()).Admin.ApproveReview(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) deleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	if err := sessionFrom(r.Context()).Admin.DeleteReview(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	if err := sessionFrom(r.Context()).Admin.DeleteBook(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
