package event_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/talentlens/engine/internal/domain/event"
)

func TestNormalize(t *testing.T) {
	Convey("Given a raw run_attempted event", t, func() {
		raw := event.Raw{
			EventID:   "evt-1",
			EventType: "run_attempted",
			UserID:    "user-1",
			SessionID: "sess-1",
			Timestamp: 1000,
			Properties: map[string]any{
				"result":       "fail",
				"runtime_ms":   float64(340),
				"tests_passed": float64(2),
				"tests_total":  float64(5),
				"custom_flag":  "kept",
			},
		}

		Convey("When normalized", func() {
			e, err := event.Normalize(raw)

			Convey("Then it decodes the typed payload", func() {
				So(err, ShouldBeNil)
				So(e.Type, ShouldEqual, event.TypeRunAttempted)
				run, ok := e.Payload.(event.RunAttempted)
				So(ok, ShouldBeTrue)
				So(run.Result, ShouldEqual, "fail")
				So(run.RuntimeMS, ShouldEqual, 340)
				So(run.TestsPassed, ShouldEqual, 2)
				So(run.TestsTotal, ShouldEqual, 5)
				So(run.Passed(), ShouldBeFalse)
			})

			Convey("And unconsumed properties land in Extra", func() {
				So(err, ShouldBeNil)
				So(e.Extra, ShouldContainKey, "custom_flag")
				So(e.Extra, ShouldNotContainKey, "result")
			})
		})
	})

	Convey("Given invalid raw events", t, func() {
		base := event.Raw{
			EventType: "code_changed",
			UserID:    "user-1",
			SessionID: "sess-1",
			Timestamp: 1000,
		}

		Convey("An unknown event type is rejected", func() {
			raw := base
			raw.EventType = "telepathy_detected"
			_, err := event.Normalize(raw)
			So(err, ShouldEqual, event.ErrUnknownEventType)
		})

		Convey("A missing session id is rejected", func() {
			raw := base
			raw.SessionID = "  "
			_, err := event.Normalize(raw)
			So(err, ShouldEqual, event.ErrMissingSessionID)
		})

		Convey("A missing user id is rejected", func() {
			raw := base
			raw.UserID = ""
			_, err := event.Normalize(raw)
			So(err, ShouldEqual, event.ErrMissingUserID)
		})

		Convey("A non-positive timestamp is rejected", func() {
			raw := base
			raw.Timestamp = 0
			_, err := event.Normalize(raw)
			So(err, ShouldEqual, event.ErrInvalidTimestamp)
		})
	})
}

func TestDecodePayloadVariants(t *testing.T) {
	Convey("Given property maps for each event type", t, func() {
		Convey("paste_burst_detected decodes chars and duration", func() {
			p, extra, err := event.DecodePayload(event.TypePasteBurstDetected, map[string]any{
				"chars_pasted": float64(500),
				"burst_ms":     float64(200),
			})
			So(err, ShouldBeNil)
			So(extra, ShouldBeNil)
			burst := p.(event.PasteBurst)
			So(burst.CharsPasted, ShouldEqual, 500)
			So(burst.BurstMS, ShouldEqual, 200)
		})

		Convey("error_emitted decodes type, depth and repeat flag", func() {
			p, _, err := event.DecodePayload(event.TypeErrorEmitted, map[string]any{
				"error_type":  "TypeError",
				"stack_depth": float64(4),
				"is_repeat":   true,
			})
			So(err, ShouldBeNil)
			ee := p.(event.ErrorEmitted)
			So(ee.ErrorType, ShouldEqual, "TypeError")
			So(ee.StackDepth, ShouldEqual, 4)
			So(ee.IsRepeat, ShouldBeTrue)
		})

		Convey("session_started decodes video and proctoring attributes", func() {
			p, _, err := event.DecodePayload(event.TypeSessionStarted, map[string]any{
				"task_id":   "task-9",
				"video_id":  "vid-1",
				"proctored": true,
			})
			So(err, ShouldBeNil)
			ss := p.(event.SessionStarted)
			So(ss.TaskID, ShouldEqual, "task-9")
			So(ss.VideoID, ShouldEqual, "vid-1")
			So(ss.Proctored, ShouldBeTrue)
		})

		Convey("an unknown type is rejected", func() {
			_, _, err := event.DecodePayload(Type("nope"), nil)
			So(err, ShouldEqual, event.ErrUnknownEventType)
		})
	})
}

// Type alias keeps the unknown-type case terse.
type Type = event.Type

func TestDerivedTags(t *testing.T) {
	Convey("Given events with payloads", t, func() {
		Convey("a failing run carries fail tags", func() {
			e := event.Event{Type: event.TypeRunAttempted, Payload: event.RunAttempted{Result: "fail"}}
			So(e.DerivedTags(), ShouldContain, "fail")
			So(e.DerivedTags(), ShouldContain, "run")
		})

		Convey("a test_added event carries tdd tags", func() {
			e := event.Event{Type: event.TypeTestAdded, Payload: event.TestAdded{TestName: "TestAdd"}}
			So(e.DerivedTags(), ShouldContain, "test")
			So(e.DerivedTags(), ShouldContain, "tdd")
		})

		Convey("an error event carries its lowered error type", func() {
			e := event.Event{Type: event.TypeErrorEmitted, Payload: event.ErrorEmitted{ErrorType: "TypeError"}}
			So(e.DerivedTags(), ShouldContain, "typeerror")
		})
	})
}
