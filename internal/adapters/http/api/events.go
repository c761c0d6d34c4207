package api

import (
	"encoding/json"
	"net/http"

	service "github.com/talentlens/engine/internal/app"
	"github.com/talentlens/engine/internal/domain/event"
)

// EventsHandler handles telemetry ingestion requests.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates an events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var raw event.Raw
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Ingest(r.Context(), raw)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}

	status := http.StatusAccepted
	if res.Status == service.StatusDuplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}
