package task_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/talentlens/engine/internal/domain/passport"
	"github.com/talentlens/engine/internal/domain/task"
)

func TestRecommend(t *testing.T) {
	Convey("Given a passport with a weak debugging profile", t, func() {
		p := &passport.Passport{
			UserID: "user-1",
			Archetype: passport.Archetype{
				Name:       "precision_debugger",
				Label:      "Precision Debugger",
				Confidence: 0.6,
			},
			Metrics: passport.Metrics{
				IterationVelocity: 0.4,
				DebugEfficiency:   0.2,
				Craftsmanship:     0.6,
				ToolFluency:       0.5,
				Integrity:         1.0,
			},
			CategoryScores: map[string]float64{
				"algorithms": 0.9,
				"debugging":  0.3,
			},
		}
		catalog := task.DefaultCatalog()

		Convey("When recommendations are requested", func() {
			recs := task.Recommend(p, catalog, 5)

			Convey("Then every recommendation carries a reason and bounded score", func() {
				So(recs, ShouldNotBeEmpty)
				So(len(recs), ShouldBeLessThanOrEqualTo, 5)
				for _, r := range recs {
					So(r.Reason, ShouldNotBeBlank)
					So(r.ReasonType, ShouldBeIn,
						task.ReasonWeakArea, task.ReasonArchetypeMatch,
						task.ReasonConfidenceBuilder, task.ReasonErrorPattern)
					So(r.RelevanceScore, ShouldBeGreaterThan, 0)
					So(r.RelevanceScore, ShouldBeLessThanOrEqualTo, 1)
				}
			})

			Convey("Then debugging practice ranks first", func() {
				So(recs[0].Task.Category, ShouldEqual, "debugging")
				So(recs[0].ReasonType, ShouldEqual, task.ReasonErrorPattern)
			})

			Convey("Then results are ordered by relevance", func() {
				for i := 1; i < len(recs); i++ {
					So(recs[i-1].RelevanceScore, ShouldBeGreaterThanOrEqualTo, recs[i].RelevanceScore)
				}
			})
		})

		Convey("When the limit is smaller than the candidate set", func() {
			recs := task.Recommend(p, catalog, 2)
			So(len(recs), ShouldEqual, 2)
		})

		Convey("When called twice", func() {
			first := task.Recommend(p, catalog, 5)
			second := task.Recommend(p, catalog, 5)

			Convey("Then the ordering is stable", func() {
				So(second, ShouldResemble, first)
			})
		})
	})

	Convey("Given a fresh user with no attempted categories", t, func() {
		p := &passport.Passport{
			UserID:         "user-new",
			Archetype:      passport.Archetype{Name: "steady_generalist", Label: "Steady Generalist", Confidence: 0.1},
			Metrics:        passport.Metrics{DebugEfficiency: 1},
			CategoryScores: map[string]float64{},
		}

		Convey("When recommendations are requested", func() {
			recs := task.Recommend(p, task.DefaultCatalog(), 10)

			Convey("Then easy unattempted tasks appear as confidence builders", func() {
				found := false
				for _, r := range recs {
					if r.ReasonType == task.ReasonConfidenceBuilder {
						found = true
						So(r.Task.Difficulty, ShouldEqual, "easy")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})

	Convey("Given no passport", t, func() {
		So(task.Recommend(nil, task.DefaultCatalog(), 5), ShouldBeEmpty)
	})
}
