package passport_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/talentlens/engine/internal/domain/passport"
)

func TestClassify(t *testing.T) {
	Convey("Given metrics sitting exactly on a centroid", t, func() {
		for _, profile := range passport.Profiles {
			a := passport.Classify(profile.Centroid)
			So(a.Name, ShouldEqual, profile.Name)
			So(a.Confidence, ShouldBeGreaterThan, 0)
			So(a.Confidence, ShouldBeLessThanOrEqualTo, 1)
		}
	})

	Convey("Given a heavy-refactoring profile", t, func() {
		m := passport.Metrics{
			IterationVelocity: 0.4,
			DebugEfficiency:   0.6,
			Craftsmanship:     0.95,
			ToolFluency:       0.5,
			Integrity:         1,
		}
		a := passport.Classify(m)
		So(a.Name, ShouldEqual, "deliberate_craftsman")
	})
}

func TestConfidenceMonotonicity(t *testing.T) {
	Convey("Given metrics approaching a centroid while others stay fixed", t, func() {
		target := passport.Profiles[1] // precision_debugger

		// Interpolate from a distant point toward the centroid; confidence
		// for the target archetype must never decrease.
		far := passport.Metrics{IterationVelocity: 0.1, DebugEfficiency: 0.1, Craftsmanship: 0.1, ToolFluency: 0.1, Integrity: 0.1}
		lastConfidence := -1.0
		for step := 0; step <= 10; step++ {
			f := float64(step) / 10
			m := passport.Metrics{
				IterationVelocity: lerp(far.IterationVelocity, target.Centroid.IterationVelocity, f),
				DebugEfficiency:   lerp(far.DebugEfficiency, target.Centroid.DebugEfficiency, f),
				Craftsmanship:     lerp(far.Craftsmanship, target.Centroid.Craftsmanship, f),
				ToolFluency:       lerp(far.ToolFluency, target.Centroid.ToolFluency, f),
				Integrity:         lerp(far.Integrity, target.Centroid.Integrity, f),
			}
			a := passport.Classify(m)
			if a.Name == target.Name {
				So(a.Confidence, ShouldBeGreaterThanOrEqualTo, lastConfidence)
				lastConfidence = a.Confidence
			}
		}
		So(lastConfidence, ShouldBeGreaterThan, 0)
	})
}

func lerp(a, b, f float64) float64 { return a + (b-a)*f }
