package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/talentlens/engine/internal/adapters/repository"
)

// UsersHandler serves passport and recommendation routes.
type UsersHandler struct {
	deps Dependencies
}

// NewUsersHandler creates a users handler.
func NewUsersHandler(deps Dependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

// HandleGetPassport handles GET /users/{userID}/passport requests.
func (h *UsersHandler) HandleGetPassport(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_passport"
	userID := chi.URLParam(r, "userID")
	p, err := h.deps.Passport(r.Context(), userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "unknown_user", WrapKind(op, ErrNotFound, err))
		return
	}
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleRecommendedTasks handles GET /tasks/recommended?user={id}&limit=N.
func (h *UsersHandler) HandleRecommendedTasks(w http.ResponseWriter, r *http.Request) {
	const op = "api.recommended_tasks"
	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	limit := 0
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	recs, err := h.deps.RecommendedTasks(r.Context(), userID, limit)
	if errors.Is(err, repository.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "unknown_user", WrapKind(op, ErrNotFound, err))
		return
	}
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"tasks":   recs,
	})
}
