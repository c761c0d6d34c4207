package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	service "github.com/talentlens/engine/internal/app"
	"github.com/talentlens/engine/internal/domain/event"
	"github.com/talentlens/engine/internal/domain/timeline"
)

// SessionsHandler serves session timeline, insight and question routes.
type SessionsHandler struct {
	deps Dependencies
}

// NewSessionsHandler creates a sessions handler.
func NewSessionsHandler(deps Dependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// entryView is the wire shape of one timeline entry.
type entryView struct {
	Index                 int            `json:"index"`
	EntryID               string         `json:"entry_id"`
	EventID               string         `json:"event_id"`
	EventType             string         `json:"event_type"`
	Timestamp             int64          `json:"timestamp"`
	VideoTimestampSeconds *float64       `json:"video_timestamp_seconds,omitempty"`
	DerivedTags           []string       `json:"derived_tags,omitempty"`
	Properties            map[string]any `json:"properties,omitempty"`
}

type videoView struct {
	StartTimestamp  int64   `json:"start_timestamp"`
	DurationSeconds float64 `json:"duration_seconds"`
	URL             string  `json:"url"`
}

type timelineResponse struct {
	SessionID   string      `json:"session_id"`
	UserID      string      `json:"user_id"`
	TaskID      string      `json:"task_id,omitempty"`
	Frozen      bool        `json:"frozen"`
	DroppedLate int         `json:"dropped_late"`
	Video       *videoView  `json:"video,omitempty"`
	Entries     []entryView `json:"entries"`
}

func toTimelineResponse(view service.TimelineView) timelineResponse {
	resp := timelineResponse{
		SessionID:   view.SessionID,
		UserID:      view.UserID,
		TaskID:      view.TaskID,
		Frozen:      view.Frozen,
		DroppedLate: view.DroppedLate,
		Entries:     make([]entryView, 0, len(view.Entries)),
	}
	if view.Video != nil {
		resp.Video = &videoView{
			StartTimestamp:  view.Video.StartTimestamp,
			DurationSeconds: view.Video.DurationSeconds,
			URL:             view.Video.URL,
		}
	}
	for _, entry := range view.Entries {
		resp.Entries = append(resp.Entries, toEntryView(entry))
	}
	return resp
}

func toEntryView(entry timeline.Entry) entryView {
	props := event.EncodePayload(entry.Event.Payload)
	if props == nil && len(entry.Event.Extra) > 0 {
		props = map[string]any{}
	}
	for k, v := range entry.Event.Extra {
		props[k] = v
	}
	return entryView{
		Index:                 entry.Index,
		EntryID:               entry.EntryID,
		EventID:               entry.Event.ID,
		EventType:             string(entry.Event.Type),
		Timestamp:             entry.Event.Timestamp,
		VideoTimestampSeconds: entry.VideoTimestampSeconds,
		DerivedTags:           entry.DerivedTags,
		Properties:            props,
	}
}

// HandleGetTimeline handles GET /sessions/{sessionID}/timeline requests.
func (h *SessionsHandler) HandleGetTimeline(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_timeline"
	sessionID := chi.URLParam(r, "sessionID")
	view, err := h.deps.Timeline(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimelineResponse(view))
}

// HandleGetInsights handles GET /sessions/{sessionID}/insights requests.
func (h *SessionsHandler) HandleGetInsights(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_insights"
	sessionID := chi.URLParam(r, "sessionID")
	insights, err := h.deps.Insights(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

// askRequest mirrors the POST /sessions/{id}/ask body.
type askRequest struct {
	Question           string `json:"question"`
	IncludeVideoSearch bool   `json:"include_video_search"`
}

// HandleAsk handles POST /sessions/{sessionID}/ask requests.
func (h *SessionsHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	const op = "api.ask"
	sessionID := chi.URLParam(r, "sessionID")
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	answer, err := h.deps.Ask(r.Context(), sessionID, req.Question, req.IncludeVideoSearch)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}
