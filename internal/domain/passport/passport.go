// Package passport derives per-user skill identity from finalized session
// timelines: quantitative metrics, a skill vector, and an archetype.
package passport

import "time"

// Metrics are the five core behavioral scores, each within [0,1].
type Metrics struct {
	IterationVelocity float64 `json:"iteration_velocity"`
	DebugEfficiency   float64 `json:"debug_efficiency"`
	Craftsmanship     float64 `json:"craftsmanship"`
	ToolFluency       float64 `json:"tool_fluency"`
	Integrity         float64 `json:"integrity"`
}

// Vector returns the metrics in canonical order.
func (m Metrics) Vector() []float64 {
	return []float64{
		m.IterationVelocity,
		m.DebugEfficiency,
		m.Craftsmanship,
		m.ToolFluency,
		m.Integrity,
	}
}

// Archetype is a named behavioral-style classification. Exactly one archetype
// is active per passport; it is recomputed wholesale on each scoring pass.
type Archetype struct {
	Name        string  `json:"name"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// NotableMoment references a highlight entry on a session timeline.
type NotableMoment struct {
	SessionID   string `json:"session_id"`
	EntryID     string `json:"entry_id"`
	Kind        string `json:"kind"` // "first_passing_run", "fastest_fix", "violation"
	Description string `json:"description"`
	Timestamp   int64  `json:"timestamp"`
}

// Interview carries optional video-derived highlights attached by the
// interview pipeline; the engine stores but never computes these.
type Interview struct {
	Highlights         []VideoHighlight `json:"highlights,omitempty"`
	CommunicationNotes string           `json:"communication_notes,omitempty"`
}

// VideoHighlight is a labeled segment of the session recording.
type VideoHighlight struct {
	Label        string  `json:"label"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
}

// Passport is a user's accumulated skill-identity record. It has a single
// writer: the scoring engine, after a session closes. Each recomputation
// replaces the passport wholesale; there is no partial merge.
type Passport struct {
	UserID            string             `json:"user_id"`
	Archetype         Archetype          `json:"archetype"`
	SkillVector       []float64          `json:"skill_vector"`
	Metrics           Metrics            `json:"metrics"`
	CategoryScores    map[string]float64 `json:"category_scores"`
	SessionsCompleted int                `json:"sessions_completed"`
	TotalEvents       int                `json:"total_events"`
	TotalViolations   int                `json:"total_violations"`
	NotableMoments    []NotableMoment    `json:"notable_moments"`
	Interview         *Interview         `json:"interview,omitempty"`
	UpdatedAt         time.Time          `json:"updated_at"`
}
