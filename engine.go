// Package facetnav is a faceted navigation engine over a roaring bitmap term
// index. A view composes the drill path, range buckets, inherited filters,
// the docbase scope and authorization into one document set, then either
// counts the values of one facet, returns the set's cardinality, or lists a
// sorted page of document ids.
package facetnav

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/echoface/facetnav/analysis"
	"github.com/echoface/facetnav/doccache"
	"github.com/echoface/facetnav/facet"
	"github.com/echoface/facetnav/index"
	"github.com/echoface/facetnav/query"
	"github.com/echoface/facetnav/util"
)

// Engine stateless between calls; all caches belong to the index readers
type Engine struct {
	readers  index.ReaderProvider
	opts     options
	log      engineLogger
	text     query.TextAnalysis
	strategy DocSetStrategy
}

func New(readers index.ReaderProvider, opts ...Option) *Engine {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	e := &Engine{readers: readers, opts: o, log: engineLogger{l: o.logger}}

	analyzer := o.analyzer
	if analyzer == nil {
		analyzer = defaultTextAnalysis().Analyzer
	}
	synonyms := o.synonyms
	if synonyms == nil {
		synonyms = analysis.NoSynonyms
	}
	e.text = query.TextAnalysis{Analyzer: analyzer, Synonyms: synonyms}

	switch {
	case o.strategy != nil:
		e.strategy = o.strategy
	case o.uncached:
		e.strategy = UncachedStrategy{}
	default:
		e.strategy = NewCachingStrategy(o.docSetCacheSize, o.facetCountCacheSize, o.metrics)
	}
	return e
}

// Parse parse with the engine's analyzer and synonyms
func (e *Engine) Parse(s string) (*Query, error) {
	return ParseWith(s, e.text)
}

func (e *Engine) Strategy() DocSetStrategy {
	return e.strategy
}

// View run one navigation request against the current reader. Reader
// acquisition and malformed input are returned as errors; index failures
// are logged and answered with a zero result.
func (e *Engine) View(ctx context.Context, nc *Context, req *ViewRequest) (*Result, error) {
	r, err := e.readers.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire index reader: %w", err)
	}
	defer r.Release()

	mode := req.mode()
	start := time.Now()
	defer e.opts.metrics.observeView(mode, start)

	rv := &view{
		engine: e,
		reader: r,
		nc:     nc,
		req:    req,
		cc:     &CompileContext{Schema: query.ReaderSchema(r), Text: e.text},
		docs:   doccache.NewDocSetBuilder(r.LiveDocs()),
	}
	result, err := rv.run()
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, ErrIllegalArgument):
		e.opts.metrics.viewError(mode, "illegal_argument")
		return nil, err
	case errors.Is(err, ErrMultipleFacets):
		e.opts.metrics.viewError(mode, "multiple_facets")
		e.log.Errorf("view rejected, user:%s facets:%d %s", userOf(nc), len(req.FacetCounts), err.Error())
		return zeroResult, nil
	}
	e.opts.metrics.viewError(mode, "index")
	e.log.LogIfErr(err, "view failed, user:%s mode:%s generation:%d facets:%s",
		userOf(nc), mode, r.Generation(), util.JSONString(req.Facets))
	return zeroResult, nil
}

func userOf(nc *Context) string {
	if nc == nil || len(nc.UserID) == 0 {
		return "<anonymous>"
	}
	return nc.UserID
}

// view state of one View call
type view struct {
	engine *Engine
	reader index.Reader
	nc     *Context
	req    *ViewRequest
	cc     *CompileContext
	docs   *doccache.DocSetBuilder

	filterQuery query.Query
	openQuery   query.Query
	openSort    query.Sort
}

func (v *view) intersect(q query.Query) error {
	return v.engine.strategy.Intersect(v.reader, q, v.docs)
}

func (v *view) run() (*Result, error) {
	if len(v.req.FacetCounts) > 1 {
		return nil, ErrMultipleFacets
	}
	if err := v.constrain(); err != nil {
		return nil, err
	}
	if err := v.authorize(); err != nil {
		return nil, err
	}
	if err := v.compileOpen(); err != nil {
		return nil, err
	}
	switch v.req.mode() {
	case "count":
		return v.count()
	case "cardinality":
		if err := v.intersectFilterAndOpen(); err != nil {
			return nil, err
		}
		return newCountResult(v.docs.Cardinality()), nil
	}
	return v.search()
}

// constrain drill path, ranges, inherited filters then scope, in this order
func (v *view) constrain() error {
	schema := v.cc.Schema
	facets, err := query.FacetsQuery(schema, v.req.Facets)
	if err != nil {
		return illegalArgument(err, "facets")
	}
	if err = v.intersect(facets); err != nil {
		return err
	}

	ranges, err := query.FacetRangeQuery(schema, v.req.Ranges, v.engine.opts.now())
	if err != nil {
		return illegalArgument(err, "ranges")
	}
	if err = v.intersect(ranges); err != nil {
		return err
	}

	inherited, err := query.InheritedFilterQuery(schema, v.req.InheritedFilters)
	if err != nil {
		return illegalArgument(err, "inherited filters")
	}
	if err = v.intersect(inherited); err != nil {
		return err
	}

	initial := v.req.Initial
	if initial == nil {
		return nil
	}
	if initial.Language() == LanguageScope {
		if err = v.intersect(query.ScopeQuery(initial.ScopeIDs())); err != nil {
			return err
		}
		v.filterQuery, err = initial.compileFilters(v.cc)
		return err
	}
	// a non scope docbase query narrows like a scope
	q, _, err := initial.LuceneQueryAndSort(v.cc)
	if err != nil {
		return err
	}
	return v.intersect(q)
}

func (v *view) authorize() error {
	if v.nc == nil || v.nc.Authorization == nil {
		return nil
	}
	if f, ok := v.nc.Authorization.(AuthorizationFilterer); ok {
		bm, err := f.AuthorizationFilter(v.reader)
		if err != nil {
			return fmt.Errorf("authorization filter: %w", err)
		}
		if bm != nil {
			return v.intersect(query.NewBitmapQuery(bm))
		}
	}
	if aq, ok := v.nc.Authorization.(AuthorizationQuerier); ok {
		return v.intersect(aq.AuthorizationQuery())
	}
	return nil
}

func (v *view) compileOpen() (err error) {
	if v.req.Open == nil {
		return nil
	}
	v.openQuery, v.openSort, err = v.req.Open.LuceneQueryAndSort(v.cc)
	return err
}

func (v *view) intersectFilterAndOpen() error {
	if err := v.intersect(v.filterQuery); err != nil {
		return err
	}
	return v.intersect(v.openQuery)
}

func (v *view) count() (*Result, error) {
	if err := v.intersectFilterAndOpen(); err != nil {
		return nil, err
	}
	if len(v.req.FacetCounts) == 0 {
		return newCountResult(v.docs.Cardinality()), nil
	}

	fixed := v.req.Hits != nil && v.req.Hits.FixedDrillPath
	var fixedCount uint64
	for def, target := range v.req.FacetCounts {
		pf, err := facet.ParseFacet(def)
		if err != nil {
			return nil, illegalArgument(err, "facet")
		}
		internal, err := v.cc.Schema.InternalName(pf.Name)
		if err != nil {
			return nil, illegalArgument(err, "facet")
		}
		fixedCount = v.docs.Cardinality()
		if !fixed {
			if err = v.intersect(query.FacetPropExistsQuery(internal)); err != nil {
				return nil, err
			}
		}
		counts, err := v.facetCounts(pf, internal)
		if err != nil {
			return nil, err
		}
		if target == nil {
			target = map[string]*Count{}
			v.req.FacetCounts[def] = target
		}
		for value, n := range counts {
			if c, ok := target[value]; ok {
				c.Add(n)
			} else {
				target[value] = NewCount(n)
			}
		}
	}
	if fixed {
		return newCountResult(fixedCount), nil
	}
	return newCountResult(v.docs.Cardinality()), nil
}

func (v *view) facetCounts(pf *facet.ParsedFacet, internal string) (map[string]int, error) {
	docs := v.docs.ToBitSet()
	key := pf.Key()
	var compute func() (map[string]int, error)
	switch {
	case pf.IsRanged():
		now := v.engine.opts.now()
		bounds, err := doccache.RangesKey(v.cc.Schema, pf.Ranges, now)
		if err != nil {
			return nil, illegalArgument(err, "facet:%s", key)
		}
		key += "@" + bounds
		compute = func() (map[string]int, error) {
			return doccache.CountRanges(v.reader, v.cc.Schema, pf.Ranges, now, docs)
		}
	case len(pf.Grouping) > 0:
		if t, ok := v.reader.PropertyType(internal); ok && t != index.TypeDate {
			return nil, illegalArgument(fmt.Errorf("property is %s", t), "facet:%s grouping", key)
		}
		compute = func() (map[string]int, error) {
			return doccache.CountGroups(v.reader, internal, pf.Grouping, docs)
		}
	default:
		compute = func() (map[string]int, error) {
			return doccache.CountTerms(v.reader, internal, docs)
		}
	}
	return v.engine.strategy.FacetCounts(v.reader, docs, internal, key, compute)
}

func (v *view) search() (*Result, error) {
	if err := v.intersectFilterAndOpen(); err != nil {
		return nil, err
	}
	hits := v.req.Hits
	sortBy := v.resolveSort()
	docs := v.docs.ToBitSet()

	var scores map[uint32]float64
	if sortBy.NeedsScores() {
		scoring := query.And(v.filterQuery, v.openQuery)
		if scoring == nil {
			scoring = query.MatchAllQuery{}
		}
		var err error
		if scores, err = query.Score(scoring, v.reader, docs); err != nil {
			return nil, err
		}
	}
	// field sorts run as match-all over the bitset, nothing is scored
	ordered, err := query.SortDocs(v.reader, docs, sortBy, scores)
	if err != nil {
		return nil, err
	}

	limit := hits.Limit
	if limit <= 0 {
		limit = v.engine.opts.defaultLimit
	}
	offset := hits.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ordered) {
		return newHitsResult(nil), nil
	}
	// offset+limit may overflow, compare against what is left instead
	if limit < len(ordered)-offset {
		ordered = ordered[:offset+limit]
	}

	ids := make([]string, 0, len(ordered)-offset)
	for _, doc := range ordered[offset:] {
		id, err := v.reader.UUID(doc)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return newHitsResult(ids), nil
}

// resolveSort open query order by, else the caller's order by restricted to
// indexed properties, else relevance
func (v *view) resolveSort() query.Sort {
	if len(v.openSort) > 0 {
		return v.openSort
	}
	var resolved query.Sort
	for _, ob := range v.req.Hits.OrderBy {
		if ob.Property == "jcr:score" {
			resolved = append(resolved, query.SortField{Field: query.FieldScore, Reverse: ob.Descending})
			continue
		}
		internal, err := v.cc.Schema.InternalName(ob.Property)
		if err != nil || !v.reader.HasField(internal) {
			v.engine.log.Warnf("skip sort on unindexed property:%s", ob.Property)
			continue
		}
		resolved = append(resolved, query.SortField{Field: internal, Reverse: ob.Descending})
	}
	return resolved
}

// SortedCounts counts ordered by count descending then value
func SortedCounts(counts map[string]*Count) []string {
	values := make([]string, 0, len(counts))
	for value := range counts {
		values = append(values, value)
	}
	sort.Slice(values, func(i, j int) bool {
		ci, cj := counts[values[i]].Value(), counts[values[j]].Value()
		if ci != cj {
			return ci > cj
		}
		return values[i] < values[j]
	})
	return values
}
