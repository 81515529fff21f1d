package kpi_test

import (
	"math"
	"testing"

	"github.com/okian/kpiboard/internal/domain/kpi"
	. "github.com/smartystreets/goconvey/convey"
)

func exampleMetrics() kpi.Metrics {
	return kpi.Metrics{
		MonthsActive:   1,
		TotalPipelines: 10,
		TotalCustomers: 20,
		YearlyTarget:   100_000_000,
		V1:             10,
		V2:             5,
		SalesAchieved:  50_000_000,
		SocPosts:       8,
		ActCount:       4,
		HotProspects:   10,
		ClosingCount:   2,
	}
}

func TestCalculate(t *testing.T) {
	Convey("Given the reference salesperson", t, func() {
		m := exampleMetrics()

		Convey("When scoring", func() {
			res := kpi.Score(m)

			Convey("Then the vector matches the documented example", func() {
				So(res.Vector, ShouldResemble, kpi.Vector{100, 50, 0, 0, 0, 50, 100, 100, 100, 100})
				So(res.Composite, ShouldEqual, 600)
				So(res.Level, ShouldEqual, kpi.LevelGood)
			})
		})
	})

	Convey("Given all-zero metrics", t, func() {
		res := kpi.Score(kpi.Metrics{})

		Convey("Then every sub-score is zero and the level is Less Good", func() {
			So(res.Vector, ShouldResemble, kpi.Vector{})
			So(res.Composite, ShouldEqual, 0)
			So(res.Level, ShouldEqual, kpi.LevelLessGood)
		})
	})

	Convey("Given counters equal to their denominators", t, func() {
		m := kpi.Metrics{
			MonthsActive:   3,
			TotalPipelines: 7,
			TotalCustomers: 10,
			YearlyTarget:   250,
			V1:             7,
			V2:             7,
			V3:             7,
			Close:          7,
			Repeat:         7,
			SalesAchieved:  250,
			SocPosts:       24,
			ActCount:       12,
			HotProspects:   5,
			ClosingCount:   1,
		}

		Convey("Then each sub-score is exactly 100", func() {
			v := kpi.Calculate(m)
			for i := range v {
				So(v[i], ShouldEqual, 100)
			}
			So(v.Composite(), ShouldEqual, 1000)
			So(kpi.Classify(v.Composite()), ShouldEqual, kpi.LevelExcellent)
		})
	})

	Convey("Given a person far above target", t, func() {
		m := exampleMetrics()
		m.SalesAchieved = 10 * m.YearlyTarget
		m.V1 = 500
		m.SocPosts = 1000

		Convey("Then the capped sub-scores never exceed 100", func() {
			v := kpi.Calculate(m)
			So(v[kpi.RevenueAchievement], ShouldEqual, 100)
			So(v[kpi.Visit1], ShouldEqual, 100)
			So(v[kpi.SocialActivity], ShouldEqual, 100)
		})
	})

	Convey("Given zero or negative denominators", t, func() {
		m := kpi.Metrics{
			MonthsActive:   0,
			TotalPipelines: -4,
			TotalCustomers: 0,
			YearlyTarget:   math.NaN(),
			V1:             1,
			SalesAchieved:  1,
		}

		Convey("Then they are treated as 1", func() {
			n := m.Normalize()
			So(n.MonthsActive, ShouldEqual, 1.0)
			So(n.TotalPipelines, ShouldEqual, 1.0)
			So(n.TotalCustomers, ShouldEqual, 1.0)
			So(n.YearlyTarget, ShouldEqual, 1.0)

			v := kpi.Calculate(m)
			So(v[kpi.Visit1], ShouldEqual, 100)
			So(v[kpi.RevenueAchievement], ShouldEqual, 100)
		})
	})

	Convey("Given non-finite or negative counters", t, func() {
		m := exampleMetrics()
		m.V1 = math.NaN()
		m.V2 = math.Inf(1)
		m.Close = -3

		Convey("Then they never leak into the vector", func() {
			v := kpi.Calculate(m)
			So(v[kpi.Visit1], ShouldEqual, 0)
			So(v[kpi.Visit2], ShouldEqual, 0)
			So(v[kpi.Closing], ShouldEqual, 0)
		})
	})
}

func TestClampScore(t *testing.T) {
	Convey("Given raw ratios at rounding boundaries", t, func() {
		cases := []struct {
			raw  float64
			want int
		}{
			{49.5, 50},
			{49.4999, 49},
			{0.5, 1},
			{0.49, 0},
			{-0.5, 0},
			{-20, 0},
			{99.5, 100},
			{100.4, 100},
			{250, 100},
			{math.Inf(1), 100},
			{math.Inf(-1), 0},
			{math.NaN(), 0},
		}

		Convey("Then rounding is half away from zero and the result stays in [0,100]", func() {
			for _, c := range cases {
				So(kpi.ClampScore(c.raw), ShouldEqual, c.want)
			}
		})
	})
}

func TestCompositeOrderIndependence(t *testing.T) {
	Convey("Given a vector and its reversal", t, func() {
		v := kpi.Calculate(exampleMetrics())
		var r kpi.Vector
		for i := range v {
			r[kpi.Size-1-i] = v[i]
		}

		Convey("Then the composites match", func() {
			So(r.Composite(), ShouldEqual, v.Composite())

			sum := 0
			for _, s := range v.Slice() {
				sum += s
			}
			So(sum, ShouldEqual, v.Composite())
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Given composites around each level boundary", t, func() {
		cases := map[int]kpi.Level{
			0:    kpi.LevelLessGood,
			500:  kpi.LevelLessGood,
			501:  kpi.LevelGood,
			700:  kpi.LevelGood,
			701:  kpi.LevelVeryGood,
			850:  kpi.LevelVeryGood,
			851:  kpi.LevelExcellent,
			1000: kpi.LevelExcellent,
		}

		Convey("Then each maps to the documented label", func() {
			for composite, want := range cases {
				So(kpi.Classify(composite), ShouldEqual, want)
			}
			So(kpi.LevelVeryGood.String(), ShouldEqual, "Very Good")
		})
	})
}
