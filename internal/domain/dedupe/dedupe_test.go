package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/kpiboard/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new in-memory deduper", t, func() {
		ctx := context.Background()

		Convey("When recording snapshot ids", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then a new id is reported as unseen", func() {
				So(d.SeenAndRecord(ctx, "snap-1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, int64(1))
			})

			Convey("And a repeated id is reported as seen", func() {
				d.SeenAndRecord(ctx, "snap-1")
				So(d.SeenAndRecord(ctx, "snap-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, int64(1))
			})
		})

		Convey("When unrecording an id", func() {
			d := dedupe.NewInMemoryDeduper()
			d.SeenAndRecord(ctx, "snap-1")
			d.Unrecord(ctx, "snap-1")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, int64(0))
				So(d.SeenAndRecord(ctx, "snap-1"), ShouldBeFalse)
			})

			Convey("And unrecording an unknown id is a no-op", func() {
				d.Unrecord(ctx, "missing")
				So(d.Size(), ShouldEqual, int64(1))
			})
		})

		Convey("When the bound is reached", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for i := 1; i <= 4; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("snap-%d", i))
			}

			Convey("Then the oldest id is evicted", func() {
				So(d.Size(), ShouldEqual, int64(3))
				So(d.SeenAndRecord(ctx, "snap-4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "snap-3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "snap-1"), ShouldBeFalse)
			})
		})

		Convey("When unbounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			for i := 0; i < 1000; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("snap-%d", i))
			}

			Convey("Then nothing is evicted", func() {
				So(d.Size(), ShouldEqual, int64(1000))
				So(d.SeenAndRecord(ctx, "snap-0"), ShouldBeTrue)
			})
		})

		Convey("When many goroutines race on the same id", func() {
			d := dedupe.NewInMemoryDeduper()
			var (
				wg     sync.WaitGroup
				mu     sync.Mutex
				unseen int
			)
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !d.SeenAndRecord(ctx, "shared") {
						mu.Lock()
						unseen++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one caller records it", func() {
				So(unseen, ShouldEqual, 1)
			})
		})
	})
}
