package task

import (
	"fmt"
	"sort"

	"github.com/talentlens/engine/internal/domain/passport"
)

// Reason types attached to recommendations.
const (
	ReasonWeakArea          = "weak_area"
	ReasonArchetypeMatch    = "archetype_match"
	ReasonConfidenceBuilder = "confidence_builder"
	ReasonErrorPattern      = "error_pattern"
)

// RecommendedTask pairs a catalog task with why it was picked.
type RecommendedTask struct {
	Task           Task    `json:"task"`
	Reason         string  `json:"reason"`
	ReasonType     string  `json:"reason_type"`
	RelevanceScore float64 `json:"relevance_score"`
}

// archetypeCategories maps each archetype to the categories its profile
// favors practicing in.
var archetypeCategories = map[string][]string{
	"rapid_prototyper":     {"algorithms", "frontend"},
	"precision_debugger":   {"debugging", "systems"},
	"deliberate_craftsman": {"data_structures", "systems"},
	"tool_virtuoso":        {"systems", "frontend"},
	"steady_generalist":    {"algorithms", "data_structures", "debugging"},
}

// Recommend ranks catalog tasks for a user's passport. Each task gets the
// strongest applicable reason; output is ordered by relevance, ties broken
// by task id so results are stable.
func Recommend(p *passport.Passport, catalog []Task, limit int) []RecommendedTask {
	if p == nil || limit <= 0 {
		return nil
	}

	var recs []RecommendedTask
	for _, t := range catalog {
		if rec, ok := bestReason(p, t); ok {
			recs = append(recs, rec)
		}
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].RelevanceScore != recs[j].RelevanceScore {
			return recs[i].RelevanceScore > recs[j].RelevanceScore
		}
		return recs[i].Task.ID < recs[j].Task.ID
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

func bestReason(p *passport.Passport, t Task) (RecommendedTask, bool) {
	best := RecommendedTask{Task: t}

	consider := func(reasonType, reason string, score float64) {
		score = clamp01(score)
		if score > best.RelevanceScore {
			best.ReasonType = reasonType
			best.Reason = reason
			best.RelevanceScore = score
		}
	}

	if score, attempted := p.CategoryScores[t.Category]; attempted && score < 0.5 {
		consider(ReasonWeakArea,
			fmt.Sprintf("Targets %s, currently your weakest area (scored %.2f).", t.Category, score),
			0.5+(0.5-score))
	}

	if cats, ok := archetypeCategories[p.Archetype.Name]; ok {
		for _, c := range cats {
			if c == t.Category {
				consider(ReasonArchetypeMatch,
					fmt.Sprintf("Plays to your %s profile.", p.Archetype.Label),
					0.4+0.4*p.Archetype.Confidence)
				break
			}
		}
	}

	if _, attempted := p.CategoryScores[t.Category]; !attempted && t.Difficulty == "easy" {
		consider(ReasonConfidenceBuilder,
			fmt.Sprintf("A gentle introduction to %s, which you have not attempted yet.", t.Category),
			0.45)
	}

	if p.Metrics.DebugEfficiency < 0.5 && t.Category == "debugging" {
		consider(ReasonErrorPattern,
			"Your sessions show slow error resolution; focused debugging practice should help.",
			0.5+(0.5-p.Metrics.DebugEfficiency))
	}

	return best, best.ReasonType != ""
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
