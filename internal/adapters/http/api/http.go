// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/talentlens/engine/internal/app"
	"github.com/talentlens/engine/internal/domain/event"
	"github.com/talentlens/engine/internal/domain/passport"
	"github.com/talentlens/engine/internal/domain/query"
	"github.com/talentlens/engine/internal/domain/task"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Ingest(ctx context.Context, raw event.Raw) (service.IngestResult, error)
	Timeline(ctx context.Context, sessionID string) (service.TimelineView, error)
	Insights(ctx context.Context, sessionID string) (service.Insights, error)
	Ask(ctx context.Context, sessionID, question string, includeVideo bool) (query.Answer, error)
	Passport(ctx context.Context, userID string) (*passport.Passport, error)
	RecommendedTasks(ctx context.Context, userID string, limit int) ([]task.RecommendedTask, error)
	Stats() service.Stats
}

// Server wires HTTP routes for the engine API.
type Server struct {
	eventsHandler   *EventsHandler
	sessionsHandler *SessionsHandler
	usersHandler    *UsersHandler
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
}

// NewServer creates an API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		eventsHandler:   NewEventsHandler(deps),
		sessionsHandler: NewSessionsHandler(deps),
		usersHandler:    NewUsersHandler(deps),
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
	}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	r.Get("/sessions/{sessionID}/timeline", MetricsMiddleware(s.sessionsHandler.HandleGetTimeline, "timeline"))
	r.Get("/sessions/{sessionID}/insights", MetricsMiddleware(s.sessionsHandler.HandleGetInsights, "insights"))
	r.Post("/sessions/{sessionID}/ask", MetricsMiddleware(s.sessionsHandler.HandleAsk, "ask"))
	r.Get("/users/{userID}/passport", MetricsMiddleware(s.usersHandler.HandleGetPassport, "passport"))
	r.Get("/tasks/recommended", MetricsMiddleware(s.usersHandler.HandleRecommendedTasks, "tasks_recommended"))
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps service errors onto wire status codes.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case isValidation(err):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrUnknownSession):
		writeError(w, http.StatusNotFound, "unknown_session", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrSessionClosed):
		writeError(w, http.StatusConflict, "session_closed", WrapKind(op, ErrSessionState, err))
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
	default:
		writeError(w, http.StatusInternalServerError, "internal", NewKind(op, errors.New("internal error")))
	}
}

func isValidation(err error) bool {
	return errors.Is(err, event.ErrUnknownEventType) ||
		errors.Is(err, event.ErrMissingSessionID) ||
		errors.Is(err, event.ErrMissingUserID) ||
		errors.Is(err, event.ErrInvalidTimestamp)
}
