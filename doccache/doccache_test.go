package doccache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/smartystreets/goconvey/convey"

	"github.com/echoface/facetnav/facet"
	"github.com/echoface/facetnav/index"
	"github.com/echoface/facetnav/query"
)

// countingQuery counts evaluations of the wrapped query
type countingQuery struct {
	query.Query
	evals atomic.Int32
}

func (q *countingQuery) Eval(r index.Reader) (*roaring.Bitmap, error) {
	q.evals.Add(1)
	time.Sleep(time.Millisecond)
	return q.Query.Eval(r)
}

// colorSnapshot ten documents, six red and four blue; even ones are published
func colorSnapshot(t *testing.T) *index.Snapshot {
	ns := index.NewNamespaceRegistry()
	if err := ns.Register("ns", "http://example.org/ns"); err != nil {
		t.Fatal(err)
	}
	b := index.NewBuilder(ns, nil)
	if err := b.ConfigureProperty("ns:date", index.TypeDate); err != nil {
		t.Fatal(err)
	}
	if err := b.ConfigureProperty("ns:price", index.TypeLong); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		doc := index.NewDocument(fmt.Sprintf("00000000-0000-0000-0000-%012d", i+1))
		if i < 6 {
			doc.AddProperty("ns:color", "red")
		} else {
			doc.AddProperty("ns:color", "blue")
		}
		if i%2 == 0 {
			doc.AddProperty("ns:status", "published")
		}
		doc.AddProperty("ns:date", time.Date(2023+i%2, time.Month(1+i%3), 5, 0, 0, 0, 0, time.UTC).Format(time.RFC3339))
		doc.AddProperty("ns:price", i*10)
		if err := b.AddDocument(doc); err != nil {
			t.Fatal(err)
		}
	}
	snap, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func acquire(t *testing.T, ix *index.Index) index.Reader {
	r, err := ix.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Release)
	return r
}

func internal(t *testing.T, r index.Reader, name string) string {
	t.Helper()
	n, err := r.Namespaces().InternalName(name)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestLRU(t *testing.T) {
	convey.Convey("least recently used entry is evicted", t, func() {
		c := NewLRU[string, int](2)
		c.Put("a", 1)
		c.Put("b", 2)
		_, _ = c.Get("a")
		c.Put("c", 3)
		_, ok := c.Get("b")
		convey.So(ok, convey.ShouldBeFalse)
		v, ok := c.Get("a")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(v, convey.ShouldEqual, 1)
		convey.So(c.Len(), convey.ShouldEqual, 2)
		c.Purge()
		convey.So(c.Len(), convey.ShouldEqual, 0)

		convey.So(NewLRU[int, int](0).Len(), convey.ShouldEqual, 0)
	})
}

func TestDocSetBuilder(t *testing.T) {
	convey.Convey("running intersection", t, func() {
		live := roaring.BitmapOf(0, 1, 2, 3, 4)
		b := NewDocSetBuilder(live)
		convey.So(b.Narrowed(), convey.ShouldBeFalse)
		convey.So(b.Cardinality(), convey.ShouldEqual, 5)

		in := roaring.BitmapOf(1, 2, 3, 9)
		b.And(in)
		convey.So(in.ToArray(), convey.ShouldResemble, []uint32{1, 2, 3, 9})
		convey.So(b.ToBitSet().ToArray(), convey.ShouldResemble, []uint32{1, 2, 3})
		b.And(roaring.BitmapOf(2, 3, 4))
		convey.So(b.ToBitSet().ToArray(), convey.ShouldResemble, []uint32{2, 3})
		convey.So(live.GetCardinality(), convey.ShouldEqual, 5)

		c := b.Clone()
		c.And(roaring.BitmapOf(3))
		convey.So(b.Cardinality(), convey.ShouldEqual, 2)
		convey.So(c.Cardinality(), convey.ShouldEqual, 1)
	})

	convey.Convey("intersection order does not change the set", t, func() {
		sets := []*roaring.Bitmap{roaring.BitmapOf(1, 2, 3, 4), roaring.BitmapOf(2, 3, 4), roaring.BitmapOf(0, 3, 4)}
		live := roaring.BitmapOf(0, 1, 2, 3, 4)
		a, z := NewDocSetBuilder(live), NewDocSetBuilder(live)
		for i := range sets {
			a.And(sets[i])
			z.And(sets[len(sets)-1-i])
		}
		convey.So(a.ToBitSet().Equals(z.ToBitSet()), convey.ShouldBeTrue)
	})
}

func TestDocSetCache(t *testing.T) {
	ix := index.NewIndex(colorSnapshot(t))
	r := acquire(t, ix)

	convey.Convey("populated once per query string", t, func() {
		c := NewDocSetCache(r, NewLRU[string, *roaring.Bitmap](10), nil)
		q := &countingQuery{Query: query.NewTermQuery(internal(t, r, "ns:color"), "red")}

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = c.DocSet(q)
			}()
		}
		wg.Wait()
		convey.So(q.evals.Load(), convey.ShouldEqual, 1)

		docs, err := c.DocSet(q)
		convey.So(err, convey.ShouldBeNil)
		convey.So(docs.GetCardinality(), convey.ShouldEqual, 6)
		convey.So(c.Stats().Hits, convey.ShouldBeGreaterThanOrEqualTo, 1)
		convey.So(c.Stats().Hits+c.Stats().Misses, convey.ShouldEqual, 9)
		convey.So(c.Len(), convey.ShouldEqual, 1)
	})

	convey.Convey("cached and uncached intersections agree", t, func() {
		c := NewDocSetCache(r, NewLRU[string, *roaring.Bitmap](10), nil)
		queries := []query.Query{
			query.NewTermQuery(internal(t, r, "ns:color"), "red"),
			query.NewBooleanQuery(),
			query.NewTermQuery(internal(t, r, "ns:status"), "published"),
		}
		for round := 0; round < 2; round++ {
			cached, plain := NewDocSetBuilder(r.LiveDocs()), NewDocSetBuilder(r.LiveDocs())
			for _, q := range queries {
				convey.So(c.Intersect(q, cached), convey.ShouldBeNil)
				convey.So(Intersect(r, q, plain), convey.ShouldBeNil)
			}
			convey.So(cached.ToBitSet().ToArray(), convey.ShouldResemble, []uint32{0, 2, 4})
			convey.So(plain.ToBitSet().Equals(cached.ToBitSet()), convey.ShouldBeTrue)
		}
		// the empty boolean query never reaches the cache
		convey.So(c.Len(), convey.ShouldEqual, 2)
	})

	convey.Convey("caches are scoped to the reader", t, func() {
		first := DocSetCacheOf(r, 10, nil)
		convey.So(DocSetCacheOf(r, 10, nil), convey.ShouldEqual, first)
		_, err := first.DocSet(query.NewTermQuery(internal(t, r, "ns:color"), "red"))
		convey.So(err, convey.ShouldBeNil)

		// every document becomes blue in the next generation
		ns := index.NewNamespaceRegistry()
		_ = ns.Register("ns", "http://example.org/ns")
		b := index.NewBuilder(ns, nil)
		for i := 0; i < 3; i++ {
			_ = b.AddDocument(index.NewDocument(fmt.Sprintf("00000000-0000-0000-0000-%012d", i+1)).AddProperty("ns:color", "blue"))
		}
		snap, err := b.Build()
		convey.So(err, convey.ShouldBeNil)
		_, err = ix.Reopen(snap)
		convey.So(err, convey.ShouldBeNil)

		next := acquire(t, ix)
		second := DocSetCacheOf(next, 10, nil)
		convey.So(second, convey.ShouldNotEqual, first)
		docs, err := second.DocSet(query.NewTermQuery(internal(t, next, "ns:color"), "red"))
		convey.So(err, convey.ShouldBeNil)
		convey.So(docs.IsEmpty(), convey.ShouldBeTrue)
	})
}

func TestFacetCountCache(t *testing.T) {
	ix := index.NewIndex(colorSnapshot(t))
	r := acquire(t, ix)
	color := internal(t, r, "ns:color")

	convey.Convey("counts are cached per matching set", t, func() {
		c := NewFacetCountCache(10, nil)
		computed := 0
		compute := func() (map[string]int, error) {
			computed++
			return CountTerms(r, color, r.LiveDocs())
		}
		counts, err := c.Counts(r.LiveDocs(), color, "ns:color", compute)
		convey.So(err, convey.ShouldBeNil)
		convey.So(counts, convey.ShouldResemble, map[string]int{"red": 6, "blue": 4})
		_, err = c.Counts(r.LiveDocs().Clone(), color, "ns:color", compute)
		convey.So(err, convey.ShouldBeNil)
		convey.So(computed, convey.ShouldEqual, 1)
		convey.So(c.Stats(), convey.ShouldResemble, Stats{Hits: 1, Misses: 1})

		_, _ = c.Counts(roaring.BitmapOf(1, 2), color, "ns:color", compute)
		convey.So(computed, convey.ShouldEqual, 2)
	})

	convey.Convey("fingerprints follow content, not layout", t, func() {
		dense := roaring.New()
		dense.AddRange(0, 5000)
		optimized := dense.Clone()
		optimized.RunOptimize()
		convey.So(query.Fingerprint(optimized), convey.ShouldEqual, query.Fingerprint(dense))
		convey.So(query.Fingerprint(roaring.BitmapOf(1)), convey.ShouldNotEqual, query.Fingerprint(roaring.BitmapOf(2)))
	})

	convey.Convey("a fingerprint collision does not return foreign counts", t, func() {
		c := NewFacetCountCache(10, nil)
		docs := roaring.BitmapOf(0, 1)
		key := FacetCountKey{Fingerprint: query.Fingerprint(docs), Property: color, Facet: "ns:color"}
		c.entries.Put(key, &facetCountEntry{docs: roaring.BitmapOf(7), counts: map[string]int{"bogus": 1}})

		counts, err := c.Counts(docs, color, "ns:color", func() (map[string]int, error) {
			return CountTerms(r, color, docs)
		})
		convey.So(err, convey.ShouldBeNil)
		convey.So(counts, convey.ShouldResemble, map[string]int{"red": 2})
	})
}

func TestCounters(t *testing.T) {
	r := acquire(t, index.NewIndex(colorSnapshot(t)))
	schema := query.ReaderSchema(r)
	published := roaring.BitmapOf(0, 2, 4, 6, 8)

	convey.Convey("term counts decode values", t, func() {
		counts, err := CountTerms(r, internal(t, r, "ns:color"), published)
		convey.So(err, convey.ShouldBeNil)
		convey.So(counts, convey.ShouldResemble, map[string]int{"red": 3, "blue": 2})

		prices, err := CountTerms(r, internal(t, r, "ns:price"), roaring.BitmapOf(1, 2))
		convey.So(err, convey.ShouldBeNil)
		convey.So(prices, convey.ShouldResemble, map[string]int{"10": 1, "20": 1})

		none, err := CountTerms(r, "4:missing", published)
		convey.So(err, convey.ShouldBeNil)
		convey.So(none, convey.ShouldBeEmpty)
	})

	convey.Convey("date groups", t, func() {
		counts, err := CountGroups(r, internal(t, r, "ns:date"), facet.ResolutionYear, r.LiveDocs())
		convey.So(err, convey.ShouldBeNil)
		convey.So(counts, convey.ShouldResemble, map[string]int{"2023": 5, "2024": 5})

		months, err := CountGroups(r, internal(t, r, "ns:date"), facet.ResolutionMonth, published)
		convey.So(err, convey.ShouldBeNil)
		// published docs 0,2,4,6,8 have months 1,3,2,1,3
		convey.So(months, convey.ShouldResemble, map[string]int{"2023-01": 2, "2023-02": 1, "2023-03": 2})

		// pooled bucket bitmaps are recycled between calls
		again, err := CountGroups(r, internal(t, r, "ns:date"), facet.ResolutionMonth, published)
		convey.So(err, convey.ShouldBeNil)
		convey.So(again, convey.ShouldResemble, months)
	})

	convey.Convey("range buckets", t, func() {
		pf, err := facet.ParseFacet("ns:price$[{name:'low', resolution:'long', end:30}, {name:'high', resolution:'long', begin:30}, {name:'none', resolution:'long', begin:1000}]")
		convey.So(err, convey.ShouldBeNil)
		now := time.Now()
		counts, err := CountRanges(r, schema, pf.Ranges, now, r.LiveDocs())
		convey.So(err, convey.ShouldBeNil)
		convey.So(counts, convey.ShouldResemble, map[string]int{"low": 3, "high": 7, "none": 0})

		k1, err := RangesKey(schema, pf.Ranges, now)
		convey.So(err, convey.ShouldBeNil)
		k2, _ := RangesKey(schema, pf.Ranges, now.Add(time.Hour))
		convey.So(k1, convey.ShouldEqual, k2)
	})
}
