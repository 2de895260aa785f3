package index

import (
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestNamespaceRegistry(t *testing.T) {
	convey.Convey("resolve qualified names", t, func() {
		r := NewNamespaceRegistry()
		convey.So(r.Register("ns", "http://example.org/ns"), convey.ShouldBeNil)
		convey.So(r.Register("ns", "http://example.org/ns"), convey.ShouldBeNil)
		convey.So(r.Register("ns", "http://example.org/other"), convey.ShouldNotBeNil)
		convey.So(r.Register("other", "http://example.org/ns"), convey.ShouldNotBeNil)

		internal, err := r.InternalName("ns:color")
		convey.So(err, convey.ShouldBeNil)
		convey.So(internal, convey.ShouldEqual, "4:color")

		qualified, err := r.QualifiedName(internal)
		convey.So(err, convey.ShouldBeNil)
		convey.So(qualified, convey.ShouldEqual, "ns:color")

		internal, err = r.InternalName("title")
		convey.So(err, convey.ShouldBeNil)
		convey.So(internal, convey.ShouldEqual, "0:title")

		_, err = r.InternalName("nope:color")
		convey.So(errors.Is(err, ErrUnknownPrefix), convey.ShouldBeTrue)

		_, err = r.InternalName("ns:")
		convey.So(errors.Is(err, ErrInvalidName), convey.ShouldBeTrue)
	})

	convey.Convey("clone is independent", t, func() {
		r := NewNamespaceRegistry()
		c := r.Clone()
		convey.So(r.Register("late", "urn:late"), convey.ShouldBeNil)
		_, err := c.InternalName("late:x")
		convey.So(errors.Is(err, ErrUnknownPrefix), convey.ShouldBeTrue)
		convey.So(c.String(), convey.ShouldContainSubstring, "jcr=http://www.jcp.org/jcr/1.0")
	})
}
