package facetnav

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/echoface/facetnav/index"
	"github.com/echoface/facetnav/query"
)

func TestParse(t *testing.T) {
	convey.Convey("language detection", t, func() {
		cases := []struct {
			input     string
			language  Language
			statement string
		}{
			{"xpath(//*[@ns:color = 'red'])", LanguageXPath, "//*[@ns:color = 'red']"},
			{"  XPath( //element(*, ns:product) ) ", LanguageXPath, "//element(*, ns:product)"},
			{"sql(select * from ns:product)", LanguageSQL, "select * from ns:product"},
			{"SQL(select 1)", LanguageSQL, "select 1"},
			{"red shoes", LanguageFreeText, "red shoes"},
			{scopeA, LanguageScope, ""},
			{scopeA + "," + scopeB + "{}ns:status = published", LanguageScope, "ns:status = published"},
			{scopeA + "{}", LanguageScope, ""},
		}
		for _, c := range cases {
			q, err := Parse(c.input)
			convey.So(err, convey.ShouldBeNil)
			convey.So(q.Language(), convey.ShouldEqual, c.language)
			convey.So(q.Statement(), convey.ShouldEqual, c.statement)
			convey.So(q.String(), convey.ShouldEqual, c.input)
		}
	})

	convey.Convey("scope ids are normalized and deduplicated", t, func() {
		q, err := Parse(strings.ToUpper(scopeB) + ", " + scopeA + "," + scopeB)
		convey.So(err, convey.ShouldBeNil)
		convey.So(q.ScopeIDs(), convey.ShouldResemble, []string{scopeB, scopeA})
		convey.So(q.FacetFilters(), convey.ShouldBeNil)

		q, err = Parse(scopeA + "{}ns:color = red and not(ns:status = draft)")
		convey.So(err, convey.ShouldBeNil)
		convey.So(q.FacetFilters(), convey.ShouldNotBeNil)
	})

	convey.Convey("malformed queries are illegal arguments", t, func() {
		for _, input := range []string{
			"xpath(//*[@ns:color = 'red']",
			"xpath()",
			"sql(  )",
			"",
			"OR shoes",
			"-shoes",
			scopeA + "{}ns:status =",
			scopeA + "{}and(ns:status = a",
		} {
			_, err := Parse(input)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, ErrIllegalArgument), convey.ShouldBeTrue)
		}
	})

	convey.Convey("something that is not a uuid list is free text", t, func() {
		q, err := Parse(scopeA + ",shoes")
		convey.So(err, convey.ShouldBeNil)
		convey.So(q.Language(), convey.ShouldEqual, LanguageFreeText)
	})
}

func TestQuery_LuceneQueryAndSort(t *testing.T) {
	ix := index.NewIndex(catalogSnapshot(t, redBlue))
	r, err := ix.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release()

	convey.Convey("compiling twice with one context returns the same query", t, func() {
		cc := &CompileContext{Schema: query.ReaderSchema(r), Text: defaultTextAnalysis()}
		q := mustParse(t, "xpath(//*[@ns:color = 'red'] order by @ns:price descending)")
		q1, s1, err := q.LuceneQueryAndSort(cc)
		convey.So(err, convey.ShouldBeNil)
		q2, s2, err := q.LuceneQueryAndSort(cc)
		convey.So(err, convey.ShouldBeNil)
		convey.So(q2, convey.ShouldEqual, q1)
		convey.So(s2, convey.ShouldResemble, s1)
		convey.So(s1, convey.ShouldHaveLength, 1)
		convey.So(s1[0].Reverse, convey.ShouldBeTrue)

		other := &CompileContext{Schema: query.ReaderSchema(r), Text: defaultTextAnalysis()}
		q3, _, err := q.LuceneQueryAndSort(other)
		convey.So(err, convey.ShouldBeNil)
		convey.So(q3.String(), convey.ShouldEqual, q1.String())
	})

	convey.Convey("compiled forms", t, func() {
		cc := &CompileContext{Schema: query.ReaderSchema(r), Text: defaultTextAnalysis()}

		compiled, sort, err := mustParse(t, "sql(select * from ns:product)").LuceneQueryAndSort(cc)
		convey.So(err, convey.ShouldBeNil)
		convey.So(compiled, convey.ShouldBeNil)
		convey.So(sort, convey.ShouldBeNil)

		compiled, _, err = mustParse(t, scopeA+","+scopeB+"{}ns:status = published").LuceneQueryAndSort(cc)
		convey.So(err, convey.ShouldBeNil)
		bm, err := compiled.Eval(r)
		convey.So(err, convey.ShouldBeNil)
		convey.So(bm.ToArray(), convey.ShouldResemble, []uint32{0, 2, 4, 6})

		compiled, _, err = mustParse(t, "shoe").LuceneQueryAndSort(cc)
		convey.So(err, convey.ShouldBeNil)
		bm, err = compiled.Eval(r)
		convey.So(err, convey.ShouldBeNil)
		convey.So(bm.ToArray(), convey.ShouldResemble, []uint32{2, 5, 7})

		_, _, err = mustParse(t, scopeA+"{}zz:status = published").LuceneQueryAndSort(cc)
		convey.So(errors.Is(err, ErrIllegalArgument), convey.ShouldBeTrue)
	})
}
