package analysis

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestBleveAnalyzer_Tokens(t *testing.T) {
	convey.Convey("analyze text into lowercase words", t, func() {
		a, err := NewBleveAnalyzer()
		convey.So(err, convey.ShouldBeNil)

		convey.So(a.Tokens("Hello, World! Faceted-Navigation"), convey.ShouldResemble,
			[]string{"hello", "world", "faceted", "navigation"})
		convey.So(a.Tokens(""), convey.ShouldBeEmpty)
		convey.So(a.Tokens("  !!  "), convey.ShouldBeEmpty)
	})
}

func TestMapSynonyms(t *testing.T) {
	convey.Convey("synonyms are symmetric", t, func() {
		s := NewMapSynonyms(map[string][]string{
			"Car":  {"auto", "automobile"},
			"fast": {"quick"},
		})
		convey.So(s.Synonyms("car"), convey.ShouldResemble, []string{"auto", "automobile"})
		convey.So(s.Synonyms("auto"), convey.ShouldResemble, []string{"car"})
		convey.So(s.Synonyms("quick"), convey.ShouldResemble, []string{"fast"})
		convey.So(s.Synonyms("slow"), convey.ShouldBeEmpty)
		convey.So(NoSynonyms.Synonyms("car"), convey.ShouldBeEmpty)
	})
}
