package kpi_test

import (
	"math"
	"testing"

	"github.com/okian/kpiboard/internal/domain/kpi"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRollup(t *testing.T) {
	Convey("Given a team of one all-zero person and the reference person", t, func() {
		ref := exampleMetrics()
		members := []kpi.Member{
			{Metrics: kpi.Metrics{}, Vector: kpi.Calculate(kpi.Metrics{})},
			{Metrics: ref, Vector: kpi.Calculate(ref), Stages: []int{1, 2, 3, 4, 5, 0}},
		}

		Convey("When rolling up", func() {
			s := kpi.Rollup(members)

			Convey("Then the average is the mean of every sub-score", func() {
				So(s.People, ShouldEqual, 2)
				So(s.AvgKPIScore, ShouldEqual, 30)
			})

			Convey("And revenue totals only count reported targets", func() {
				So(s.TotalRevenue, ShouldEqual, 50_000_000.0)
				So(s.TotalTarget, ShouldEqual, 100_000_000.0)
				So(s.HasTarget, ShouldBeTrue)
				So(s.RevenueProgress, ShouldEqual, 50.0)
				So(s.RevenueProgressBar, ShouldEqual, 50.0)
			})

			Convey("And prospects are bucketed by stage", func() {
				So(s.Warm, ShouldEqual, 2)
				So(s.Hot, ShouldEqual, 1)
				So(s.Closed, ShouldEqual, 2)
			})
		})
	})

	Convey("Given an empty team", t, func() {
		s := kpi.Rollup(nil)

		Convey("Then the average is reported as 0 instead of dividing by zero", func() {
			So(s.People, ShouldEqual, 0)
			So(s.AvgKPIScore, ShouldEqual, 0)
			So(s.HasTarget, ShouldBeFalse)
		})
	})

	Convey("Given revenue but no target", t, func() {
		s := kpi.Rollup([]kpi.Member{
			{Metrics: kpi.Metrics{SalesAchieved: 1_000}},
		})

		Convey("Then progress is 0 and flagged as having no target", func() {
			So(s.TotalTarget, ShouldEqual, 0.0)
			So(s.HasTarget, ShouldBeFalse)
			So(s.RevenueProgress, ShouldEqual, 0.0)
			So(math.IsNaN(s.RevenueProgress), ShouldBeFalse)
			So(math.IsInf(s.RevenueProgress, 0), ShouldBeFalse)
		})
	})

	Convey("Given a team above its target", t, func() {
		s := kpi.Rollup([]kpi.Member{
			{Metrics: kpi.Metrics{SalesAchieved: 300, YearlyTarget: 200}},
		})

		Convey("Then progress is unclamped but the bar is capped", func() {
			So(s.RevenueProgress, ShouldEqual, 150.0)
			So(s.RevenueProgressBar, ShouldEqual, 100.0)
		})
	})
}

func TestBucketStages(t *testing.T) {
	Convey("Given a mix of stages", t, func() {
		p := kpi.BucketStages([]int{0, 1, 2, 2, 3, 3, 4, 5, 7, -1})

		Convey("Then warm is <=2, hot is 3 and closed is >=4", func() {
			So(p, ShouldResemble, kpi.Prospects{Warm: 3, Hot: 2, Closed: 3})
		})
	})
}
