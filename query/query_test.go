package query

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/smartystreets/goconvey/convey"

	"github.com/echoface/facetnav/analysis"
	"github.com/echoface/facetnav/facet"
	"github.com/echoface/facetnav/index"
)

func testUUID(n int) string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
}

func testReader(t *testing.T) index.Reader {
	ns := index.NewNamespaceRegistry()
	if err := ns.Register("ns", "http://example.org/ns"); err != nil {
		t.Fatal(err)
	}
	b := index.NewBuilder(ns, analysis.MustBleveAnalyzer())
	if err := b.ConfigureProperty("ns:price", index.TypeLong); err != nil {
		t.Fatal(err)
	}
	err := b.AddDocuments(
		index.NewDocument(testUUID(1)).WithPrimaryType("ns:document").WithAncestors(testUUID(100)).
			AddProperty("ns:color", "red").AddProperty("ns:price", 30).
			AddProperty("ns:title", "Red Shoes").AddProperty("ns:status", "published"),
		index.NewDocument(testUUID(2)).WithPrimaryType("ns:document").WithAncestors(testUUID(100)).
			AddProperty("ns:color", []string{"blue", "red"}).AddProperty("ns:price", 5).
			AddText("ns:body", "cheap blue socks"),
		index.NewDocument(testUUID(3)).WithPrimaryType("ns:folder").WithAncestors(testUUID(200)),
	)
	if err != nil {
		t.Fatal(err)
	}
	snap, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	r, err := index.NewIndex(snap).Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Release)
	return r
}

func docsOf(r index.Reader, q Query) []uint32 {
	bm, err := q.Eval(r)
	convey.So(err, convey.ShouldBeNil)
	return bm.ToArray()
}

func TestBooleanQuery_Eval(t *testing.T) {
	r := testReader(t)
	color, _ := r.Namespaces().InternalName("ns:color")

	convey.Convey("boolean combinations", t, func() {
		red, blue := NewTermQuery(color, "red"), NewTermQuery(color, "blue")

		convey.So(docsOf(r, red), convey.ShouldResemble, []uint32{0, 1})
		convey.So(docsOf(r, NewBooleanQuery().Must(red).Must(blue)), convey.ShouldResemble, []uint32{1})
		convey.So(docsOf(r, NewBooleanQuery().Must(red).MustNot(blue)), convey.ShouldResemble, []uint32{0})
		convey.So(docsOf(r, NewBooleanQuery().MustNot(red)), convey.ShouldResemble, []uint32{2})
		convey.So(docsOf(r, NewBooleanQuery().Must(blue).Should(red)), convey.ShouldResemble, []uint32{1})
		convey.So(docsOf(r, NewBooleanQuery().Should(blue).Should(NewTermQuery(color, "green"))),
			convey.ShouldResemble, []uint32{1})
		convey.So(docsOf(r, NewBooleanQuery()), convey.ShouldResemble, []uint32{0, 1, 2})
		convey.So(docsOf(r, MatchAllQuery{}), convey.ShouldResemble, []uint32{0, 1, 2})
	})

	convey.Convey("eval result is owned by the caller", t, func() {
		q := NewTermQuery(color, "red")
		bm, _ := q.Eval(r)
		bm.Clear()
		convey.So(docsOf(r, q), convey.ShouldResemble, []uint32{0, 1})
	})

	convey.Convey("canonical strings", t, func() {
		q := NewBooleanQuery().Must(NewTermQuery(color, "red")).
			MustNot(NewBooleanQuery().Should(NewPrefixQuery("_:FULLTEXT", "ch")).Should(MatchAllQuery{}))
		convey.So(q.String(), convey.ShouldEqual, "+"+color+`:"red" -(_:FULLTEXT:"ch"* *:*)`)
		convey.So(NewRangeQuery("f", "a", "", true, false).String(), convey.ShouldEqual, `f:["a" TO *}`)
	})

	convey.Convey("empty queries", t, func() {
		convey.So(IsEmpty(nil), convey.ShouldBeTrue)
		convey.So(IsEmpty(NewBooleanQuery()), convey.ShouldBeTrue)
		convey.So(IsEmpty(MatchAllQuery{}), convey.ShouldBeFalse)
		convey.So(And(nil, NewBooleanQuery()), convey.ShouldBeNil)
		single := NewTermQuery(color, "red")
		convey.So(And(NewBooleanQuery(), single), convey.ShouldEqual, single)
	})
	convey.Convey("bitmap queries", t, func() {
		docs := roaring.BitmapOf(0, 2)
		q := NewBitmapQuery(docs)
		convey.So(docsOf(r, q), convey.ShouldResemble, []uint32{0, 2})
		convey.So(q.String(), convey.ShouldEqual, NewBitmapQuery(roaring.BitmapOf(2, 0)).String())
		convey.So(q.String(), convey.ShouldNotEqual, NewBitmapQuery(roaring.BitmapOf(1)).String())
		convey.So(docsOf(r, NewBooleanQuery().Must(q).MustNot(NewTermQuery(color, "red"))), convey.ShouldResemble, []uint32{2})
		convey.So(docsOf(r, NewBitmapQuery(nil)), convey.ShouldBeEmpty)
	})
}

func TestRangeAndPrefix(t *testing.T) {
	r := testReader(t)
	price, _ := r.Namespaces().InternalName("ns:price")

	convey.Convey("term ranges", t, func() {
		q := NewRangeQuery(price, index.EncodeLong(5), index.EncodeLong(30), true, true)
		convey.So(docsOf(r, q), convey.ShouldResemble, []uint32{1})
		q.IncludeUpper = true
		convey.So(docsOf(r, q), convey.ShouldResemble, []uint32{0, 1})
		q.IncludeLower = false
		convey.So(docsOf(r, q), convey.ShouldResemble, []uint32{0})
		convey.So(docsOf(r, NewRangeQuery("nope", "a", "b", true, true)), convey.ShouldBeEmpty)
	})

	convey.Convey("prefix", t, func() {
		convey.So(docsOf(r, NewPrefixQuery(index.FieldFulltext, "sho")), convey.ShouldResemble, []uint32{0})
		convey.So(docsOf(r, NewPrefixQuery(index.FieldFulltext, "s")), convey.ShouldResemble, []uint32{0, 1})
	})
}

func TestBuilders(t *testing.T) {
	r := testReader(t)
	schema := ReaderSchema(r)
	now := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)

	convey.Convey("facets query encodes typed values", t, func() {
		q, err := FacetsQuery(schema, []FacetValue{{Name: "ns:color", Value: "red"}, {Name: "ns:price", Value: "5"}})
		convey.So(err, convey.ShouldBeNil)
		convey.So(docsOf(r, q), convey.ShouldResemble, []uint32{1})

		_, err = FacetsQuery(schema, []FacetValue{{Name: "ns:price", Value: "cheap"}})
		convey.So(errors.Is(err, index.ErrBadValue), convey.ShouldBeTrue)
		_, err = FacetsQuery(schema, []FacetValue{{Name: "zz:price", Value: "5"}})
		convey.So(errors.Is(err, index.ErrUnknownPrefix), convey.ShouldBeTrue)

		empty, err := FacetsQuery(schema, nil)
		convey.So(err, convey.ShouldBeNil)
		convey.So(IsEmpty(empty), convey.ShouldBeTrue)
	})

	convey.Convey("range query", t, func() {
		pf, err := facet.ParseFacet("ns:price$[{name:'cheap', resolution:'long', end:10}, {name:'all', resolution:'long'}]")
		convey.So(err, convey.ShouldBeNil)
		q, err := FacetRangeQuery(schema, []*facet.Range{pf.RangeNamed("cheap")}, now)
		convey.So(err, convey.ShouldBeNil)
		convey.So(docsOf(r, q), convey.ShouldResemble, []uint32{1})

		open, err := RangeClause(schema, pf.RangeNamed("all"), now)
		convey.So(err, convey.ShouldBeNil)
		convey.So(docsOf(r, open), convey.ShouldResemble, []uint32{0, 1})
	})

	convey.Convey("inherited filters are stable", t, func() {
		filters := map[string][]string{"ns:status": {"published"}, "ns:color": {"red"}}
		q1, err := InheritedFilterQuery(schema, filters)
		convey.So(err, convey.ShouldBeNil)
		q2, _ := InheritedFilterQuery(schema, map[string][]string{"ns:color": {"red"}, "ns:status": {"published"}})
		convey.So(q1.String(), convey.ShouldEqual, q2.String())
		convey.So(docsOf(r, q1), convey.ShouldResemble, []uint32{0})
	})

	convey.Convey("scope, exists and type", t, func() {
		convey.So(docsOf(r, ScopeQuery([]string{testUUID(100)})), convey.ShouldResemble, []uint32{0, 1})
		convey.So(docsOf(r, ScopeQuery([]string{testUUID(3), testUUID(1)})), convey.ShouldResemble, []uint32{0, 2})
		status, _ := r.Namespaces().InternalName("ns:status")
		convey.So(docsOf(r, FacetPropExistsQuery(status)), convey.ShouldResemble, []uint32{0})
		folder, err := PrimaryTypeQuery(schema, "ns:folder")
		convey.So(err, convey.ShouldBeNil)
		convey.So(docsOf(r, folder), convey.ShouldResemble, []uint32{2})
	})
}

func TestParseFreeText(t *testing.T) {
	r := testReader(t)
	ta := TextAnalysis{Analyzer: analysis.MustBleveAnalyzer()}

	convey.Convey("free text syntax", t, func() {
		cases := map[string][]uint32{
			"red":            {0, 1},
			"Red shoes":      {0},
			`"blue socks"`:   {1},
			"red -socks":     {0},
			"shoes OR socks": {0, 1},
			"sock*":          {1},
			"red +cheap":     {1},
			"red ... shoes":  {0},
		}
		for text, want := range cases {
			q, err := ParseFreeText(ta, text)
			convey.So(err, convey.ShouldBeNil)
			convey.So(docsOf(r, q), convey.ShouldResemble, want)
		}
	})

	convey.Convey("synonyms widen terms", t, func() {
		syn := TextAnalysis{Analyzer: ta.Analyzer, Synonyms: analysis.NewMapSynonyms(map[string][]string{"sneakers": {"shoes"}})}
		q, err := ParseFreeText(syn, "sneakers")
		convey.So(err, convey.ShouldBeNil)
		convey.So(docsOf(r, q), convey.ShouldResemble, []uint32{0})
	})

	convey.Convey("bad text", t, func() {
		for _, text := range []string{"", "   ", "...", `"open`, "OR red", "red OR", "red OR OR blue", "red OR -blue", "-", "*"} {
			_, err := ParseFreeText(ta, text)
			convey.So(err, convey.ShouldNotBeNil)
		}
		_, err := ParseFreeText(ta, "...")
		convey.So(errors.Is(err, ErrNoTerms), convey.ShouldBeTrue)
	})
}

func TestFacetFilters(t *testing.T) {
	r := testReader(t)
	schema := ReaderSchema(r)
	ta := TextAnalysis{Analyzer: analysis.MustBleveAnalyzer()}

	compile := func(expr string) []uint32 {
		f, err := ParseFacetFilters(expr)
		convey.So(err, convey.ShouldBeNil)
		q, err := FacetFiltersQuery(schema, ta, f)
		convey.So(err, convey.ShouldBeNil)
		return docsOf(r, q)
	}

	convey.Convey("filter expressions", t, func() {
		convey.So(compile("ns:color = red"), convey.ShouldResemble, []uint32{0, 1})
		convey.So(compile("ns:color = 'red' and not(ns:price = 5)"), convey.ShouldResemble, []uint32{0})
		convey.So(compile("ns:color != blue"), convey.ShouldResemble, []uint32{0})
		convey.So(compile("(ns:price = 5 or ns:status = published) and @ns:color = red"), convey.ShouldResemble, []uint32{0, 1})
		convey.So(compile("or(equals(ns:price, 30), contains(., 'blue socks'))"), convey.ShouldResemble, []uint32{0, 1})
		convey.So(compile("contains(ns:title, shoes)"), convey.ShouldResemble, []uint32{0})
		convey.So(compile("and(ns:color = red, ns:color = blue)"), convey.ShouldResemble, []uint32{1})
		convey.So(compile("ns:price != 5"), convey.ShouldResemble, []uint32{0})
	})

	convey.Convey("infix operators before a parenthesized operand", t, func() {
		convey.So(compile("ns:color = red and (ns:price = 5 or ns:status = published)"), convey.ShouldResemble, []uint32{0, 1})
		convey.So(compile("ns:price = 30 or (ns:price = 5 and ns:color = blue)"), convey.ShouldResemble, []uint32{0, 1})
		convey.So(compile("ns:price = 30 or or(ns:price = 5)"), convey.ShouldResemble, []uint32{0, 1})

		f, err := ParseFacetFilters("ns:a = x and (ns:b = y or ns:c = z)")
		convey.So(err, convey.ShouldBeNil)
		convey.So(f.String(), convey.ShouldEqual, `and(ns:a = "x", or(ns:b = "y", ns:c = "z"))`)
	})

	convey.Convey("canonical form", t, func() {
		f, err := ParseFacetFilters("ns:a = x AND (ns:b != 'it''s' OR contains(., y))")
		convey.So(err, convey.ShouldBeNil)
		convey.So(f.String(), convey.ShouldEqual, `and(ns:a = "x", or(ns:b != "it's", contains(., "y")))`)
	})

	convey.Convey("syntax errors", t, func() {
		for _, expr := range []string{"", "ns:a", "ns:a = ", "ns:a = 'x", "(ns:a = x", "ns:a = x)", "not(ns:a = x, ns:b = y)",
			"equals(., x)", "ns:a ! x", "ns:a = x or", "contains(ns:a x)"} {
			_, err := ParseFacetFilters(expr)
			convey.So(errors.Is(err, ErrBadFilter) || errors.Is(err, index.ErrInvalidName), convey.ShouldBeTrue)
		}
	})

	convey.Convey("unknown prefix surfaces at compile", t, func() {
		f, err := ParseFacetFilters("zz:a = x")
		convey.So(err, convey.ShouldBeNil)
		_, err = FacetFiltersQuery(schema, ta, f)
		convey.So(errors.Is(err, index.ErrUnknownPrefix), convey.ShouldBeTrue)
	})
}

func TestSortDocs(t *testing.T) {
	r := testReader(t)
	price, _ := r.Namespaces().InternalName("ns:price")
	all := r.LiveDocs()

	convey.Convey("field sort with missing values first", t, func() {
		docs, err := SortDocs(r, all, Sort{{Field: price}}, nil)
		convey.So(err, convey.ShouldBeNil)
		convey.So(docs, convey.ShouldResemble, []uint32{2, 1, 0})

		docs, err = SortDocs(r, all, Sort{{Field: price, Reverse: true}}, nil)
		convey.So(err, convey.ShouldBeNil)
		convey.So(docs, convey.ShouldResemble, []uint32{0, 1, 2})
	})

	convey.Convey("relevance with ordinal ties", t, func() {
		q := NewBooleanQuery().Should(NewTermQuery(index.FieldFulltext, "socks")).
			Should(NewTermQuery(index.FieldFulltext, "red"))
		hits, _ := q.Eval(r)
		scores, err := Score(q, r, hits)
		convey.So(err, convey.ShouldBeNil)
		convey.So(scores[1], convey.ShouldBeGreaterThan, scores[0])

		docs, err := SortDocs(r, hits, nil, scores)
		convey.So(err, convey.ShouldBeNil)
		convey.So(docs, convey.ShouldResemble, []uint32{1, 0})

		tie, _ := Score(NewTermQuery(index.FieldFulltext, "red"), r, hits)
		docs, _ = SortDocs(r, hits, Sort{{Field: FieldScore, Reverse: true}}, tie)
		convey.So(docs, convey.ShouldResemble, []uint32{0, 1})
		convey.So(Sort(nil).IsRelevance(), convey.ShouldBeTrue)
		convey.So(Sort{{Field: price}}.NeedsScores(), convey.ShouldBeFalse)
	})
}
