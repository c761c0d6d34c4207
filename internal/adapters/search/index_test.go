package search_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/talentlens/engine/internal/adapters/search"
	"github.com/talentlens/engine/internal/domain/event"
	"github.com/talentlens/engine/internal/domain/timeline"
)

func indexedTimeline(idx *search.Index) *timeline.Timeline {
	tl := timeline.New("sess-1", "user-1", timeline.WithGraceWindow(1_000_000))
	events := []event.Event{
		{Type: event.TypeSessionStarted, SessionID: "sess-1", UserID: "user-1", Timestamp: 0, Payload: event.SessionStarted{TaskCategory: "algorithms"}},
		{Type: event.TypeTestAdded, SessionID: "sess-1", UserID: "user-1", Timestamp: 100, Payload: event.TestAdded{TestName: "TestReverse"}},
		{Type: event.TypeRunAttempted, SessionID: "sess-1", UserID: "user-1", Timestamp: 200, Payload: event.RunAttempted{Result: "fail", TestsTotal: 3}},
		{Type: event.TypeErrorEmitted, SessionID: "sess-1", UserID: "user-1", Timestamp: 300, Payload: event.ErrorEmitted{ErrorType: "TypeError"}},
	}
	for _, e := range events {
		entry, err := tl.Insert(e)
		So(err, ShouldBeNil)
		So(idx.Add(entry), ShouldBeNil)
	}
	return tl
}

func TestIndexSearch(t *testing.T) {
	Convey("Given an index over a small timeline", t, func() {
		idx, err := search.NewIndex()
		So(err, ShouldBeNil)
		defer idx.Close()
		tl := indexedTimeline(idx)

		Convey("Searching for tests finds the test_added entry first", func() {
			hits, err := idx.Search("tests testing tdd", 5)
			So(err, ShouldBeNil)
			So(hits, ShouldNotBeEmpty)

			entry, ok := tl.EntryByID(hits[0].EntryID)
			So(ok, ShouldBeTrue)
			So(entry.Event.Type, ShouldEqual, event.TypeTestAdded)
			So(hits[0].Score, ShouldBeGreaterThan, 0)
		})

		Convey("Searching for an error type finds the error entry", func() {
			hits, err := idx.Search("typeerror error", 5)
			So(err, ShouldBeNil)
			So(hits, ShouldNotBeEmpty)

			entry, ok := tl.EntryByID(hits[0].EntryID)
			So(ok, ShouldBeTrue)
			So(entry.Event.Type, ShouldEqual, event.TypeErrorEmitted)
		})

		Convey("A nonsense query returns no hits", func() {
			hits, err := idx.Search("zzzqqqxxx", 5)
			So(err, ShouldBeNil)
			So(hits, ShouldBeEmpty)
		})

		Convey("Re-adding an entry does not duplicate results", func() {
			entries := tl.Snapshot()
			So(idx.Add(entries[1]), ShouldBeNil)

			hits, err := idx.Search("tests testing tdd", 10)
			So(err, ShouldBeNil)
			count := 0
			for _, h := range hits {
				if h.EntryID == entries[1].EntryID {
					count++
				}
			}
			So(count, ShouldEqual, 1)
		})
	})
}
