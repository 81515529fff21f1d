package kpi_test

import (
	"math"
	"testing"

	"github.com/okian/kpiboard/internal/domain/kpi"
	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/text/language"
)

func TestFormatCurrency(t *testing.T) {
	Convey("Given currency amounts", t, func() {
		Convey("Then Indonesian locale groups with dots", func() {
			So(kpi.FormatCurrency(50_000_000, "Rp", language.Indonesian), ShouldEqual, "Rp 50.000.000")
		})

		Convey("And English locale groups with commas", func() {
			So(kpi.FormatCurrency(1_234_567.4, "USD", language.English), ShouldEqual, "USD 1,234,567")
		})

		Convey("And an empty symbol falls back to the default", func() {
			So(kpi.FormatCurrency(0, "", language.Indonesian), ShouldEqual, "Rp 0")
		})

		Convey("And non-finite amounts render as zero", func() {
			So(kpi.FormatCurrency(math.NaN(), "Rp", language.Indonesian), ShouldEqual, "Rp 0")
		})
	})

	Convey("Given locale strings", t, func() {
		So(kpi.ParseLocale("en").String(), ShouldEqual, "en")
		So(kpi.ParseLocale("!!").String(), ShouldEqual, language.Indonesian.String())
	})
}
