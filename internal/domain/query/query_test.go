package query_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/talentlens/engine/internal/adapters/search"
	"github.com/talentlens/engine/internal/domain/event"
	"github.com/talentlens/engine/internal/domain/query"
	"github.com/talentlens/engine/internal/domain/timeline"
)

func buildSession(t *testing.T) (*timeline.Timeline, *search.Index) {
	t.Helper()
	base := time.Now().UnixMilli()
	tl := timeline.New("sess-q", "user-q", timeline.WithVideo(timeline.Video{
		StartTimestamp:  base,
		DurationSeconds: 600,
		URL:             "https://video.example/sess-q",
	}))

	events := []event.Event{
		{ID: "q1", Type: event.TypeSessionStarted, UserID: "user-q", SessionID: "sess-q", Timestamp: base,
			Payload: event.SessionStarted{TaskID: "task-1", TaskCategory: "algorithms", Difficulty: "medium", Proctored: false}},
		{ID: "q2", Type: event.TypeTestAdded, UserID: "user-q", SessionID: "sess-q", Timestamp: base + 20_000,
			Payload: event.TestAdded{TestName: "TestReverseList"}},
		{ID: "q3", Type: event.TypeCodeChanged, UserID: "user-q", SessionID: "sess-q", Timestamp: base + 60_000,
			Payload: event.CodeChanged{LinesAdded: 24, LinesRemoved: 2}},
		{ID: "q4", Type: event.TypeErrorEmitted, UserID: "user-q", SessionID: "sess-q", Timestamp: base + 90_000,
			Payload: event.ErrorEmitted{ErrorType: "nil_pointer", StackDepth: 4}},
		{ID: "q5", Type: event.TypeFixApplied, UserID: "user-q", SessionID: "sess-q", Timestamp: base + 110_000,
			Payload: event.FixApplied{ErrorType: "nil_pointer"}},
		{ID: "q6", Type: event.TypeRunAttempted, UserID: "user-q", SessionID: "sess-q", Timestamp: base + 150_000,
			Payload: event.RunAttempted{Result: "pass", TestsPassed: 5, TestsTotal: 5}},
	}

	idx, err := search.NewIndex()
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })

	for _, e := range events {
		entry, err := tl.Insert(e)
		if err != nil {
			t.Fatalf("insert %s: %v", e.ID, err)
		}
		if err := idx.Add(entry); err != nil {
			t.Fatalf("index %s: %v", e.ID, err)
		}
	}
	tl.Freeze()
	return tl, idx
}

func TestAsk(t *testing.T) {
	Convey("Given a frozen session timeline with a retrieval index", t, func() {
		tl, idx := buildSession(t)
		engine := query.NewEngine()
		ctx := context.Background()

		Convey("When asked whether tests were written before implementing", func() {
			answer, err := engine.Ask(ctx, tl, idx, "Did they write tests before implementing?", true)

			Convey("Then the answer is grounded in the test-added entry", func() {
				So(err, ShouldBeNil)
				So(answer.LowConfidence, ShouldBeFalse)
				So(answer.TimelineJumps, ShouldNotBeEmpty)
				foundTest := false
				for _, jump := range answer.TimelineJumps {
					if jump.EventType == string(event.TypeTestAdded) {
						foundTest = true
					}
				}
				So(foundTest, ShouldBeTrue)
				So(answer.Confidence, ShouldBeGreaterThan, 0)
				So(answer.Confidence, ShouldBeLessThanOrEqualTo, 1)
				So(answer.Text, ShouldContainSubstring, "test_added")
			})

			Convey("Then each jump carries a valid timeline position", func() {
				So(err, ShouldBeNil)
				for _, jump := range answer.TimelineJumps {
					So(jump.Index, ShouldBeGreaterThanOrEqualTo, 0)
					So(jump.Index, ShouldBeLessThan, tl.Len())
					So(jump.EntryID, ShouldNotBeBlank)
				}
			})

			Convey("Then video segments are padded and clamped to the recording", func() {
				So(err, ShouldBeNil)
				So(answer.VideoSegments, ShouldNotBeEmpty)
				for _, seg := range answer.VideoSegments {
					So(seg.StartSeconds, ShouldBeGreaterThanOrEqualTo, 0)
					So(seg.EndSeconds, ShouldBeLessThanOrEqualTo, 600)
					So(seg.EndSeconds, ShouldBeGreaterThan, seg.StartSeconds)
					So(seg.URL, ShouldEqual, "https://video.example/sess-q")
				}
			})
		})

		Convey("When asked about the error that occurred", func() {
			answer, err := engine.Ask(ctx, tl, idx, "what error did they hit and did they fix it", false)

			Convey("Then the error entry is among the jumps and video is omitted", func() {
				So(err, ShouldBeNil)
				So(answer.TimelineJumps, ShouldNotBeEmpty)
				found := false
				for _, jump := range answer.TimelineJumps {
					if jump.EventType == string(event.TypeErrorEmitted) {
						found = true
					}
				}
				So(found, ShouldBeTrue)
				So(answer.VideoSegments, ShouldBeEmpty)
			})
		})

		Convey("When the question matches nothing in the session", func() {
			answer, err := engine.Ask(ctx, tl, idx, "did they deploy kubernetes manifests", false)

			Convey("Then a low-confidence answer with no jumps is returned", func() {
				So(err, ShouldBeNil)
				So(answer.LowConfidence, ShouldBeTrue)
				So(answer.TimelineJumps, ShouldBeEmpty)
				So(answer.Confidence, ShouldEqual, 0)
				So(answer.Text, ShouldNotBeBlank)
			})
		})

		Convey("When the question is only stopwords", func() {
			answer, err := engine.Ask(ctx, tl, idx, "did they do it", false)

			Convey("Then it degrades to the low-confidence fallback", func() {
				So(err, ShouldBeNil)
				So(answer.LowConfidence, ShouldBeTrue)
			})
		})

		Convey("When the session has no retrieval index", func() {
			answer, err := engine.Ask(ctx, tl, nil, "did they write tests?", false)

			Convey("Then it degrades to the low-confidence fallback instead of erroring", func() {
				So(err, ShouldBeNil)
				So(answer.LowConfidence, ShouldBeTrue)
				So(answer.TimelineJumps, ShouldBeEmpty)
				So(answer.Confidence, ShouldEqual, 0)
				So(answer.Text, ShouldNotBeBlank)
			})
		})
	})
}

func TestExtractKeywords(t *testing.T) {
	Convey("Given question phrasings", t, func() {
		Convey("When scaffolding words are mixed with content terms", func() {
			got := query.ExtractKeywords("Did they write tests before implementing?")

			Convey("Then only content terms survive, lowercased", func() {
				So(got, ShouldResemble, []string{"write", "tests", "implementing"})
			})
		})

		Convey("When the question has no content terms", func() {
			So(query.ExtractKeywords("did they do it?"), ShouldBeEmpty)
		})
	})
}
