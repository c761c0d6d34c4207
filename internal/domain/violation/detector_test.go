package violation_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/talentlens/engine/internal/domain/event"
	"github.com/talentlens/engine/internal/domain/timeline"
	"github.com/talentlens/engine/internal/domain/violation"
)

func insert(tl *timeline.Timeline, e event.Event) timeline.Entry {
	entry, err := tl.Insert(e)
	So(err, ShouldBeNil)
	return entry
}

func TestPasteBurstRule(t *testing.T) {
	Convey("Given a detector with default thresholds", t, func() {
		tl := timeline.New("sess-1", "user-1")
		d := violation.NewDetector("sess-1")

		Convey("A large fast paste triggers a high-severity violation", func() {
			entry := insert(tl, event.Event{
				Type: event.TypePasteBurstDetected, SessionID: "sess-1", UserID: "user-1", Timestamp: 1000,
				Payload: event.PasteBurst{CharsPasted: 500, BurstMS: 200},
			})
			vs := d.Observe(tl, entry)
			So(vs, ShouldHaveLength, 1)
			So(vs[0].Type, ShouldEqual, violation.TypePasteBurst)
			So(vs[0].Severity, ShouldEqual, violation.SeverityHigh)
			So(vs[0].EntryID, ShouldEqual, entry.EntryID)
		})

		Convey("A small paste does not trigger", func() {
			entry := insert(tl, event.Event{
				Type: event.TypePasteBurstDetected, SessionID: "sess-1", UserID: "user-1", Timestamp: 1000,
				Payload: event.PasteBurst{CharsPasted: 50, BurstMS: 200},
			})
			So(d.Observe(tl, entry), ShouldBeEmpty)
		})

		Convey("A slow paste does not trigger", func() {
			entry := insert(tl, event.Event{
				Type: event.TypePasteBurstDetected, SessionID: "sess-1", UserID: "user-1", Timestamp: 1000,
				Payload: event.PasteBurst{CharsPasted: 500, BurstMS: 5000},
			})
			So(d.Observe(tl, entry), ShouldBeEmpty)
		})

		Convey("Three bursts yield exactly three violations, stable on re-scan", func() {
			var entries []timeline.Entry
			for i := int64(0); i < 3; i++ {
				entries = append(entries, insert(tl, event.Event{
					Type: event.TypePasteBurstDetected, SessionID: "sess-1", UserID: "user-1", Timestamp: 1000 + i*300,
					Payload: event.PasteBurst{CharsPasted: 500, BurstMS: 200},
				}))
			}
			total := 0
			for _, e := range entries {
				total += len(d.Observe(tl, e))
			}
			So(total, ShouldEqual, 3)

			// Re-scan the same entries: idempotence per (session, entry, type).
			for _, e := range entries {
				So(d.Observe(tl, e), ShouldBeEmpty)
			}
			So(d.Violations(), ShouldHaveLength, 3)
			for _, v := range d.Violations() {
				So(v.Severity, ShouldEqual, violation.SeverityHigh)
			}
		})
	})
}

func TestRepeatedErrorRule(t *testing.T) {
	Convey("Given a detector and a stream of repeat errors", t, func() {
		tl := timeline.New("sess-1", "user-1")
		d := violation.NewDetector("sess-1")

		errorAt := func(ts int64, errType string, repeat bool) timeline.Entry {
			return insert(tl, event.Event{
				Type: event.TypeErrorEmitted, SessionID: "sess-1", UserID: "user-1", Timestamp: ts,
				Payload: event.ErrorEmitted{ErrorType: errType, IsRepeat: repeat},
			})
		}

		Convey("Three unresolved repeats of the same type trigger a medium violation", func() {
			So(d.Observe(tl, errorAt(100, "TypeError", true)), ShouldBeEmpty)
			So(d.Observe(tl, errorAt(200, "TypeError", true)), ShouldBeEmpty)
			vs := d.Observe(tl, errorAt(300, "TypeError", true))
			So(vs, ShouldHaveLength, 1)
			So(vs[0].Type, ShouldEqual, violation.TypeRepeatedError)
			So(vs[0].Severity, ShouldEqual, violation.SeverityMedium)
		})

		Convey("An intervening fix resets the run", func() {
			So(d.Observe(tl, errorAt(100, "TypeError", true)), ShouldBeEmpty)
			So(d.Observe(tl, errorAt(200, "TypeError", true)), ShouldBeEmpty)
			fix := insert(tl, event.Event{
				Type: event.TypeFixApplied, SessionID: "sess-1", UserID: "user-1", Timestamp: 250,
				Payload: event.FixApplied{ErrorType: "TypeError"},
			})
			So(d.Observe(tl, fix), ShouldBeEmpty)
			So(d.Observe(tl, errorAt(300, "TypeError", true)), ShouldBeEmpty)
		})

		Convey("Different error types do not accumulate together", func() {
			So(d.Observe(tl, errorAt(100, "TypeError", true)), ShouldBeEmpty)
			So(d.Observe(tl, errorAt(200, "SyntaxError", true)), ShouldBeEmpty)
			So(d.Observe(tl, errorAt(300, "TypeError", true)), ShouldBeEmpty)
		})

		Convey("First-occurrence errors do not count toward the run", func() {
			So(d.Observe(tl, errorAt(100, "TypeError", false)), ShouldBeEmpty)
			So(d.Observe(tl, errorAt(200, "TypeError", false)), ShouldBeEmpty)
			So(d.Observe(tl, errorAt(300, "TypeError", false)), ShouldBeEmpty)
		})
	})
}

func TestHeartbeatAbsenceRule(t *testing.T) {
	Convey("Given a proctored session with a 30s heartbeat timeout", t, func() {
		tl := timeline.New("sess-1", "user-1", timeline.WithGraceWindow(1_000_000))
		d := violation.NewDetector("sess-1")

		start := insert(tl, event.Event{
			Type: event.TypeSessionStarted, SessionID: "sess-1", UserID: "user-1", Timestamp: 0,
			Payload: event.SessionStarted{Proctored: true},
		})
		So(d.Observe(tl, start), ShouldBeEmpty)

		Convey("Events within the timeout raise nothing", func() {
			hb := insert(tl, event.Event{
				Type: event.TypeCameraHeartbeat, SessionID: "sess-1", UserID: "user-1", Timestamp: 10_000,
				Payload: event.CameraHeartbeat{},
			})
			So(d.Observe(tl, hb), ShouldBeEmpty)

			code := insert(tl, event.Event{
				Type: event.TypeCodeChanged, SessionID: "sess-1", UserID: "user-1", Timestamp: 20_000,
				Payload: event.CodeChanged{LinesAdded: 3},
			})
			So(d.Observe(tl, code), ShouldBeEmpty)
		})

		Convey("A gap beyond the timeout raises a high-severity violation", func() {
			code := insert(tl, event.Event{
				Type: event.TypeCodeChanged, SessionID: "sess-1", UserID: "user-1", Timestamp: 45_000,
				Payload: event.CodeChanged{LinesAdded: 3},
			})
			vs := d.Observe(tl, code)
			So(vs, ShouldHaveLength, 1)
			So(vs[0].Type, ShouldEqual, violation.TypeHeartbeatAbsence)
			So(vs[0].Severity, ShouldEqual, violation.SeverityHigh)
		})
	})

	Convey("Given an unproctored session", t, func() {
		tl := timeline.New("sess-1", "user-1", timeline.WithGraceWindow(1_000_000))
		d := violation.NewDetector("sess-1")

		start := insert(tl, event.Event{
			Type: event.TypeSessionStarted, SessionID: "sess-1", UserID: "user-1", Timestamp: 0,
			Payload: event.SessionStarted{Proctored: false},
		})
		So(d.Observe(tl, start), ShouldBeEmpty)

		Convey("Long gaps raise nothing", func() {
			code := insert(tl, event.Event{
				Type: event.TypeCodeChanged, SessionID: "sess-1", UserID: "user-1", Timestamp: 100_000,
				Payload: event.CodeChanged{LinesAdded: 3},
			})
			So(d.Observe(tl, code), ShouldBeEmpty)
		})
	})
}
