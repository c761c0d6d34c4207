package dedupe_test

import (
	"context"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/talentlens/engine/internal/domain/dedupe"
)

func TestDeduper(t *testing.T) {
	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		ctx := context.Background()

		Convey("When an id is recorded twice", func() {
			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "a"), ShouldBeTrue)
			So(d.Size(), ShouldEqual, 1)
		})

		Convey("When the cap is exceeded", func() {
			for i := 0; i < 4; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("id-%d", i)), ShouldBeFalse)
			}

			Convey("Then the oldest id is forgotten", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "id-0"), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "id-3"), ShouldBeTrue)
			})
		})

		Convey("When an id is unrecorded", func() {
			So(d.SeenAndRecord(ctx, "x"), ShouldBeFalse)
			d.Unrecord(ctx, "x")

			Convey("Then it can be recorded again", func() {
				So(d.SeenAndRecord(ctx, "x"), ShouldBeFalse)
			})
		})
	})
}
