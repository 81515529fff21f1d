package loadgen

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/kpiboard/internal/adapters/http/api"
	service "github.com/okian/kpiboard/internal/app"
	"github.com/okian/kpiboard/internal/domain/kpi"
	"github.com/okian/kpiboard/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newTestService(t *testing.T) *httptest.Server {
	t.Helper()
	svc := service.New(service.WithWorkerCount(4), service.WithQueueSize(1024))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc, 100).Register(context.Background(), mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		ts.Close()
		_ = svc.Stop(context.Background())
	})
	return ts
}

func TestRun(t *testing.T) {
	Convey("Given a running service", t, func() {
		ts := newTestService(t)

		Convey("When a load run pushes several snapshots per person", func() {
			cfg := &Config{
				BaseURL:     ts.URL,
				People:      40,
				Snapshots:   3,
				Duplicates:  10,
				TopN:        25,
				Workers:     8,
				WaitTimeout: 10 * time.Second,
				Seed:        42,
			}
			stats, err := Run(context.Background(), cfg)

			Convey("Then the latest snapshot wins and the leaderboard verifies", func() {
				So(err, ShouldBeNil)
				So(stats.Generated, ShouldEqual, 120)
				So(stats.Accepted, ShouldEqual, 120)
				So(stats.Duplicate, ShouldEqual, 10)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Verified, ShouldEqual, 40)
				So(stats.Leaderboard, ShouldEqual, 25)
			})
		})
	})
}

func TestRunUnreachable(t *testing.T) {
	Convey("Given no service", t, func() {
		ts := httptest.NewServer(http.NotFoundHandler())
		defer ts.Close()

		Convey("Then the health check fails the run", func() {
			_, err := Run(context.Background(), &Config{BaseURL: ts.URL, Timeout: time.Second})
			So(errors.Is(err, ErrStatus), ShouldBeTrue)
		})
	})
}

func TestGenerator(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		cfg := &Config{People: 5, Snapshots: 4}
		all, latest := newGenerator(7).generate(cfg)

		Convey("Then it produces unique ids and ordered timestamps", func() {
			So(len(all), ShouldEqual, 20)
			So(len(latest), ShouldEqual, 5)
			ids := map[string]bool{}
			for _, s := range all {
				So(ids[s.SnapshotID], ShouldBeFalse)
				ids[s.SnapshotID] = true
				for _, st := range s.Stages {
					So(st, ShouldBeBetweenOrEqual, 0, 5)
				}
			}
			for i := 1; i < 4; i++ {
				So(all[i].TS > all[i-1].TS, ShouldBeTrue)
			}
			So(latest[all[3].SalesID].SnapshotID, ShouldEqual, all[3].SnapshotID)
		})

		Convey("Then the metrics spread across levels", func() {
			levels := map[kpi.Level]bool{}
			many, _ := newGenerator(11).generate(&Config{People: 200, Snapshots: 1})
			for _, s := range many {
				levels[kpi.Score(s.Metrics).Level] = true
			}
			So(len(levels), ShouldBeGreaterThanOrEqualTo, 3)
		})
	})
}

func TestVerifyLeaderboard(t *testing.T) {
	Convey("Given expected scores with a tie", t, func() {
		expected := map[string]int{"a": 900, "b": 600, "c": 600, "d": 100}
		good := []Entry{
			{Rank: 1, SalesID: "a", CompositeScore: 900, Level: "Excellent"},
			{Rank: 2, SalesID: "b", CompositeScore: 600, Level: "Good"},
			{Rank: 2, SalesID: "c", CompositeScore: 600, Level: "Good"},
		}

		Convey("Then a dense-ranked leaderboard passes", func() {
			So(verifyLeaderboard(good, expected), ShouldBeNil)
		})

		Convey("Then a competition rank fails", func() {
			bad := append([]Entry(nil), good...)
			bad = append(bad, Entry{Rank: 4, SalesID: "d", CompositeScore: 100, Level: "Less Good"})
			So(errors.Is(verifyLeaderboard(bad, expected), ErrMismatch), ShouldBeTrue)
		})

		Convey("Then a swapped tie order fails", func() {
			bad := []Entry{good[0], good[2], good[1]}
			So(errors.Is(verifyLeaderboard(bad, expected), ErrMismatch), ShouldBeTrue)
		})
	})
}
