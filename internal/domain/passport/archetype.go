package passport

import "math"

// Profile is an archetype centroid in core-metric space. Declaration order in
// Profiles breaks distance ties.
type Profile struct {
	Name        string
	Label       string
	Description string
	Centroid    Metrics
}

// Profiles is the fixed archetype set, in tie-break order.
var Profiles = []Profile{
	{
		Name:        "rapid_prototyper",
		Label:       "Rapid Prototyper",
		Description: "Iterates fast and leans on the run loop, trading polish for momentum.",
		Centroid:    Metrics{IterationVelocity: 0.9, DebugEfficiency: 0.5, Craftsmanship: 0.3, ToolFluency: 0.6, Integrity: 0.9},
	},
	{
		Name:        "precision_debugger",
		Label:       "Precision Debugger",
		Description: "Reads failures carefully and resolves errors quickly and permanently.",
		Centroid:    Metrics{IterationVelocity: 0.5, DebugEfficiency: 0.9, Craftsmanship: 0.6, ToolFluency: 0.6, Integrity: 0.9},
	},
	{
		Name:        "deliberate_craftsman",
		Label:       "Deliberate Craftsman",
		Description: "Moves methodically, refactoring and testing as part of every change.",
		Centroid:    Metrics{IterationVelocity: 0.4, DebugEfficiency: 0.6, Craftsmanship: 0.9, ToolFluency: 0.5, Integrity: 0.95},
	},
	{
		Name:        "tool_virtuoso",
		Label:       "Tool Virtuoso",
		Description: "Drives the editor with fluent shortcuts and a broad command vocabulary.",
		Centroid:    Metrics{IterationVelocity: 0.6, DebugEfficiency: 0.6, Craftsmanship: 0.5, ToolFluency: 0.95, Integrity: 0.9},
	},
	{
		Name:        "steady_generalist",
		Label:       "Steady Generalist",
		Description: "Balanced across the board with no single dominant behavior.",
		Centroid:    Metrics{IterationVelocity: 0.55, DebugEfficiency: 0.55, Craftsmanship: 0.55, ToolFluency: 0.55, Integrity: 0.9},
	},
}

// Classify selects the nearest-centroid archetype for the given metrics.
// Matching happens over the five core metrics only; category sub-scores
// accumulate per-user history and do not move the archetype. Confidence is
// the normalized inverse distance to the best match, so strictly reducing
// the distance to a centroid never decreases its confidence. Ties go to the
// earlier profile.
func Classify(m Metrics) Archetype {
	inv := make([]float64, len(Profiles))
	sum := 0.0
	best := 0
	bestDist := math.Inf(1)
	for i, p := range Profiles {
		d := distance(m, p.Centroid)
		if d < bestDist {
			bestDist = d
			best = i
		}
		inv[i] = 1 / (1 + d)
		sum += inv[i]
	}

	p := Profiles[best]
	return Archetype{
		Name:        p.Name,
		Label:       p.Label,
		Description: p.Description,
		Confidence:  inv[best] / sum,
	}
}

func distance(a, b Metrics) float64 {
	av, bv := a.Vector(), b.Vector()
	sum := 0.0
	for i := range av {
		d := av[i] - bv[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
