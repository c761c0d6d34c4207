package passport_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/talentlens/engine/internal/domain/event"
	"github.com/talentlens/engine/internal/domain/passport"
	"github.com/talentlens/engine/internal/domain/timeline"
	"github.com/talentlens/engine/internal/domain/violation"
)

func buildTimeline(events []event.Event) *timeline.Timeline {
	tl := timeline.New("sess-1", "user-1", timeline.WithGraceWindow(1_000_000))
	for _, e := range events {
		if _, err := tl.Insert(e); err != nil {
			panic(err)
		}
	}
	tl.Freeze()
	return tl
}

func happyPathEvents() []event.Event {
	mk := func(t event.Type, ts int64, p event.Payload) event.Event {
		return event.Event{Type: t, UserID: "user-1", SessionID: "sess-1", Timestamp: ts, Payload: p}
	}
	return []event.Event{
		mk(event.TypeSessionStarted, 0, event.SessionStarted{TaskCategory: "algorithms", Difficulty: "medium"}),
		mk(event.TypeCodeChanged, 100, event.CodeChanged{LinesAdded: 10}),
		mk(event.TypeRunAttempted, 500, event.RunAttempted{Result: "fail", TestsPassed: 0, TestsTotal: 3}),
		mk(event.TypeErrorEmitted, 520, event.ErrorEmitted{ErrorType: "TypeError"}),
		mk(event.TypeFixApplied, 800, event.FixApplied{ErrorType: "TypeError"}),
		mk(event.TypeRunAttempted, 900, event.RunAttempted{Result: "pass", TestsPassed: 3, TestsTotal: 3}),
		mk(event.TypeTaskSubmitted, 950, event.TaskSubmitted{TaskID: "task-1"}),
		mk(event.TypeSessionEnded, 1000, event.SessionEnded{Reason: "submitted"}),
	}
}

func TestComputeHappyPath(t *testing.T) {
	Convey("Given the canonical eight-event session", t, func() {
		tl := buildTimeline(happyPathEvents())
		engine := passport.NewEngine()

		p, err := engine.Compute(context.Background(), tl, nil, nil)
		So(err, ShouldBeNil)

		Convey("The timeline holds eight ordered entries", func() {
			entries := tl.Snapshot()
			So(entries, ShouldHaveLength, 8)
			for i, e := range entries {
				So(e.Index, ShouldEqual, i)
			}
		})

		Convey("Debug efficiency reflects one resolved error", func() {
			So(p.Metrics.DebugEfficiency, ShouldBeGreaterThan, 0)
			So(p.Metrics.DebugEfficiency, ShouldBeLessThanOrEqualTo, 1)
		})

		Convey("Integrity is perfect with zero violations", func() {
			So(p.Metrics.Integrity, ShouldEqual, 1)
			So(p.TotalViolations, ShouldEqual, 0)
		})

		Convey("All metrics are bounded", func() {
			for _, v := range p.Metrics.Vector() {
				So(v, ShouldBeGreaterThanOrEqualTo, 0)
				So(v, ShouldBeLessThanOrEqualTo, 1)
			}
		})

		Convey("The category sub-score records the passing run", func() {
			So(p.CategoryScores["algorithms"], ShouldEqual, 1)
		})

		Convey("Notable moments include the first passing run and the fix", func() {
			kinds := map[string]bool{}
			for _, m := range p.NotableMoments {
				kinds[m.Kind] = true
			}
			So(kinds["first_passing_run"], ShouldBeTrue)
			So(kinds["fastest_fix"], ShouldBeTrue)
		})
	})
}

func TestComputeEmptyTimeline(t *testing.T) {
	Convey("Given an empty frozen timeline", t, func() {
		tl := timeline.New("sess-1", "user-1")
		tl.Freeze()
		engine := passport.NewEngine()

		p, err := engine.Compute(context.Background(), tl, nil, nil)
		So(err, ShouldBeNil)

		Convey("Every metric stays within [0,1]", func() {
			for _, v := range p.Metrics.Vector() {
				So(v, ShouldBeGreaterThanOrEqualTo, 0)
				So(v, ShouldBeLessThanOrEqualTo, 1)
			}
		})
	})
}

func TestComputeRequiresFrozenTimeline(t *testing.T) {
	Convey("Given a live timeline", t, func() {
		tl := timeline.New("sess-1", "user-1")
		engine := passport.NewEngine()

		_, err := engine.Compute(context.Background(), tl, nil, nil)

		Convey("Scoring aborts with an inconsistency error", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "not frozen")
		})
	})
}

func TestIntegrityPenalties(t *testing.T) {
	Convey("Given violations of mixed severity", t, func() {
		tl := buildTimeline(happyPathEvents())
		engine := passport.NewEngine()

		violations := []violation.Violation{
			{Type: violation.TypePasteBurst, Severity: violation.SeverityHigh},
			{Type: violation.TypeRepeatedError, Severity: violation.SeverityMedium},
		}

		p, err := engine.Compute(context.Background(), tl, violations, nil)
		So(err, ShouldBeNil)

		Convey("Integrity drops but stays floored at zero", func() {
			So(p.Metrics.Integrity, ShouldBeLessThan, 1)
			So(p.Metrics.Integrity, ShouldBeGreaterThanOrEqualTo, 0)
			So(p.TotalViolations, ShouldEqual, 2)
		})

		Convey("Many high violations floor integrity at zero", func() {
			var many []violation.Violation
			for i := 0; i < 10; i++ {
				many = append(many, violation.Violation{Severity: violation.SeverityHigh})
			}
			p2, err := engine.Compute(context.Background(), tl, many, nil)
			So(err, ShouldBeNil)
			So(p2.Metrics.Integrity, ShouldEqual, 0)
		})
	})
}

func TestComputeAccumulatesAcrossSessions(t *testing.T) {
	Convey("Given a previous passport", t, func() {
		tl := buildTimeline(happyPathEvents())
		engine := passport.NewEngine()

		prev := &passport.Passport{
			UserID:            "user-1",
			SessionsCompleted: 2,
			TotalEvents:       40,
			CategoryScores:    map[string]float64{"systems": 0.7},
		}

		p, err := engine.Compute(context.Background(), tl, nil, prev)
		So(err, ShouldBeNil)

		Convey("Counts accumulate and prior category scores persist", func() {
			So(p.SessionsCompleted, ShouldEqual, 3)
			So(p.TotalEvents, ShouldEqual, 48)
			So(p.CategoryScores["systems"], ShouldEqual, 0.7)
			So(p.CategoryScores["algorithms"], ShouldEqual, 1)
		})

		Convey("The skill vector includes metrics plus category sub-scores", func() {
			So(p.SkillVector, ShouldHaveLength, 5+len(passport.Categories))
		})
	})
}
