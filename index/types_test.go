package index

import (
	"sort"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
)

func TestSortableEncoding(t *testing.T) {
	convey.Convey("long terms sort like numbers", t, func() {
		values := []int64{-1 << 40, -5, -1, 0, 1, 7, 42, 1 << 50}
		terms := make([]string, len(values))
		for i, v := range values {
			terms[i] = EncodeLong(v)
		}
		convey.So(sort.StringsAreSorted(terms), convey.ShouldBeTrue)
		for i, term := range terms {
			back, err := DecodeLong(term)
			convey.So(err, convey.ShouldBeNil)
			convey.So(back, convey.ShouldEqual, values[i])
		}
	})

	convey.Convey("double terms sort like numbers", t, func() {
		values := []float64{-1e9, -2.5, -0.5, 0, 0.25, 3.75, 1e12}
		terms := make([]string, len(values))
		for i, v := range values {
			terms[i] = EncodeDouble(v)
		}
		convey.So(sort.StringsAreSorted(terms), convey.ShouldBeTrue)
		back, err := DecodeDouble(terms[1])
		convey.So(err, convey.ShouldBeNil)
		convey.So(back, convey.ShouldEqual, -2.5)
	})

	convey.Convey("encode and display typed values", t, func() {
		term, err := EncodeValue(TypeDate, "2024-03-05")
		convey.So(err, convey.ShouldBeNil)
		convey.So(term, convey.ShouldEqual, EncodeDate(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))

		display, err := DecodeValue(TypeDate, term)
		convey.So(err, convey.ShouldBeNil)
		convey.So(display, convey.ShouldEqual, "2024-03-05T00:00:00.000Z")

		term, err = EncodeValue(TypeDouble, "12.5")
		convey.So(err, convey.ShouldBeNil)
		display, err = DecodeValue(TypeDouble, term)
		convey.So(err, convey.ShouldBeNil)
		convey.So(display, convey.ShouldEqual, "12.5")

		term, err = EncodeValue(TypeBoolean, "TRUE")
		convey.So(err, convey.ShouldBeNil)
		convey.So(term, convey.ShouldEqual, "true")

		_, err = EncodeValue(TypeLong, "twelve")
		convey.So(err, convey.ShouldNotBeNil)
		_, err = DecodeValue(TypeLong, "zz")
		convey.So(err, convey.ShouldNotBeNil)
	})

	convey.Convey("parse type names", t, func() {
		tp, err := ParsePropertyType("Double")
		convey.So(err, convey.ShouldBeNil)
		convey.So(tp, convey.ShouldEqual, TypeDouble)
		_, err = ParsePropertyType("blob")
		convey.So(err, convey.ShouldNotBeNil)
	})
}
