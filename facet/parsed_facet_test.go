package facet

import (
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/echoface/facetnav/index"
)

func TestParseFacet(t *testing.T) {
	convey.Convey("plain facet", t, func() {
		pf, err := ParseFacet("ns:color")
		convey.So(err, convey.ShouldBeNil)
		convey.So(pf.Name, convey.ShouldEqual, "ns:color")
		convey.So(pf.IsRanged(), convey.ShouldBeFalse)
		convey.So(pf.Key(), convey.ShouldEqual, "ns:color")
	})

	convey.Convey("ranged facet", t, func() {
		pf, err := ParseFacet("ns:price$[{name:'cheap', resolution:'long', end:10}, {name:\"pricey\", resolution:'long', begin:10}]")
		convey.So(err, convey.ShouldBeNil)
		convey.So(pf.IsRanged(), convey.ShouldBeTrue)
		convey.So(len(pf.Ranges), convey.ShouldEqual, 2)

		cheap := pf.RangeNamed("cheap")
		convey.So(cheap, convey.ShouldNotBeNil)
		convey.So(cheap.Property, convey.ShouldEqual, "ns:price")
		convey.So(cheap.Resolution, convey.ShouldEqual, ResolutionLong)
		convey.So(cheap.Begin, convey.ShouldBeNil)
		convey.So(*cheap.End, convey.ShouldEqual, "10")
		convey.So(pf.RangeNamed("free"), convey.ShouldBeNil)

		again, err := ParseFacet("ns:price$[{name:'cheap',resolution:'long',end:10},{name:'pricey',resolution:'long',begin:10}]")
		convey.So(err, convey.ShouldBeNil)
		convey.So(again.Key(), convey.ShouldEqual, pf.Key())
	})

	convey.Convey("date grouping", t, func() {
		pf, err := ParseFacet("ns:published$Year")
		convey.So(err, convey.ShouldBeNil)
		convey.So(pf.Grouping, convey.ShouldEqual, ResolutionYear)
		convey.So(pf.Key(), convey.ShouldEqual, "ns:published$year")
	})

	convey.Convey("bad definitions", t, func() {
		for _, bad := range []string{
			"",
			"ns:price$long",
			"ns:price$[]",
			"ns:price$[{resolution:'long'}]",
			"ns:price$[{name:'a', resolution:'long', begin:'x'}]",
			"ns:price$[{name:'a', colour:'red'}]",
			"ns:price$[{name:'a'},{name:'a'}]",
			"ns:price$[{name:'a'}] trailing",
			"ns:date$[{name:'a', resolution:'day', begin:-1.5}]",
			"ns:price$[{name:'a}]",
		} {
			_, err := ParseFacet(bad)
			convey.So(err, convey.ShouldNotBeNil)
		}
	})
}

func TestRange_Bounds(t *testing.T) {
	now := time.Date(2024, 3, 13, 15, 30, 0, 0, time.UTC) // a wednesday

	convey.Convey("numeric bounds follow the property type", t, func() {
		r := NewRange("ns:price", "mid", ResolutionDouble, NumBound(10.5), NumBound(20))
		b, err := r.Bounds(index.TypeLong, now)
		convey.So(err, convey.ShouldBeNil)
		convey.So(b.HasLower && b.HasUpper, convey.ShouldBeTrue)
		convey.So(b.Lower, convey.ShouldEqual, index.EncodeLong(11))
		convey.So(b.Upper, convey.ShouldEqual, index.EncodeLong(20))

		b, err = r.Bounds(index.TypeDouble, now)
		convey.So(err, convey.ShouldBeNil)
		convey.So(b.Lower, convey.ShouldEqual, index.EncodeDouble(10.5))

		_, err = r.Bounds(index.TypeString, now)
		convey.So(errors.Is(err, ErrBadRange), convey.ShouldBeTrue)
	})

	convey.Convey("open bounds", t, func() {
		r := NewRange("ns:title", "a-m", ResolutionString, nil, Bound("n"))
		b, err := r.Bounds(index.TypeString, now)
		convey.So(err, convey.ShouldBeNil)
		convey.So(b.HasLower, convey.ShouldBeFalse)
		convey.So(b.Upper, convey.ShouldEqual, "n")
	})

	convey.Convey("date bounds are relative to truncated now", t, func() {
		r := NewRange("ns:published", "last 7 days", ResolutionDay, Bound("-7"), Bound("1"))
		b, err := r.Bounds(index.TypeDate, now)
		convey.So(err, convey.ShouldBeNil)
		convey.So(b.Lower, convey.ShouldEqual, index.EncodeDate(time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)))
		convey.So(b.Upper, convey.ShouldEqual, index.EncodeDate(time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)))

		_, err = r.Bounds(index.TypeLong, now)
		convey.So(errors.Is(err, ErrBadRange), convey.ShouldBeTrue)

		week := NewRange("ns:published", "this week", ResolutionWeek, Bound("0"), Bound("1"))
		b, err = week.Bounds(index.TypeDate, now)
		convey.So(err, convey.ShouldBeNil)
		convey.So(b.Lower, convey.ShouldEqual, index.EncodeDate(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)))
	})
}

func TestResolution_Label(t *testing.T) {
	convey.Convey("group labels", t, func() {
		ts := time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC)
		convey.So(ResolutionYear.Label(ts), convey.ShouldEqual, "2024")
		convey.So(ResolutionMonth.Label(ts), convey.ShouldEqual, "2024-03")
		convey.So(ResolutionWeek.Label(ts), convey.ShouldEqual, "2024-W10")
		convey.So(ResolutionDay.Label(ts), convey.ShouldEqual, "2024-03-05")
		convey.So(ResolutionHour.Label(ts), convey.ShouldEqual, "2024-03-05T10")
		convey.So(ResolutionYear.Truncate(ts), convey.ShouldEqual, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	})
}

func TestParsedFacet_GroupRange(t *testing.T) {
	convey.Convey("labels parse back to bucket starts", t, func() {
		ts, err := ResolutionWeek.ParseLabel("2024-W10")
		convey.So(err, convey.ShouldBeNil)
		convey.So(ts, convey.ShouldEqual, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))

		ts, err = ResolutionMonth.ParseLabel("2024-03")
		convey.So(err, convey.ShouldBeNil)
		convey.So(ts, convey.ShouldEqual, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

		_, err = ResolutionDay.ParseLabel("2024-13-01")
		convey.So(err, convey.ShouldNotBeNil)
	})

	convey.Convey("drill range of a grouped facet", t, func() {
		pf, err := ParseFacet("ns:published$month")
		convey.So(err, convey.ShouldBeNil)
		r, err := pf.GroupRange("2024-02")
		convey.So(err, convey.ShouldBeNil)
		b, err := r.Bounds(index.TypeDate, time.Now())
		convey.So(err, convey.ShouldBeNil)
		convey.So(b.Lower, convey.ShouldEqual, index.EncodeDate(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
		convey.So(b.Upper, convey.ShouldEqual, index.EncodeDate(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))

		plain, _ := ParseFacet("ns:color")
		_, err = plain.GroupRange("2024")
		convey.So(errors.Is(err, ErrBadRange), convey.ShouldBeTrue)
	})
}
