package service

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/talentlens/engine/internal/domain/timeline"
)

// flakyIndexer fails every Add past a threshold and counts Close calls.
type flakyIndexer struct {
	failAfter int
	added     int
	closed    int
}

func (f *flakyIndexer) Add(timeline.Entry) error {
	if f.added >= f.failAfter {
		return errors.New("index unavailable")
	}
	f.added++
	return nil
}

func (f *flakyIndexer) Close() error {
	f.closed++
	return nil
}

func TestFillIndex(t *testing.T) {
	entries := []timeline.Entry{{EntryID: "e-1"}, {EntryID: "e-2"}, {EntryID: "e-3"}}

	Convey("Given an index that accepts every entry", t, func() {
		idx := &flakyIndexer{failAfter: len(entries)}

		Convey("Then the rebuild succeeds and the index stays open", func() {
			So(fillIndex(idx, entries), ShouldBeTrue)
			So(idx.added, ShouldEqual, len(entries))
			So(idx.closed, ShouldEqual, 0)
		})
	})

	Convey("Given an index that fails partway through the rebuild", t, func() {
		idx := &flakyIndexer{failAfter: 1}

		Convey("Then the partial index is closed before being discarded", func() {
			So(fillIndex(idx, entries), ShouldBeFalse)
			So(idx.closed, ShouldEqual, 1)
		})
	})
}
