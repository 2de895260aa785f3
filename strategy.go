package facetnav

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/echoface/facetnav/doccache"
	"github.com/echoface/facetnav/index"
	"github.com/echoface/facetnav/query"
)

type (
	// DocSetStrategy how constraint queries and facet counts are resolved
	// against a reader
	DocSetStrategy interface {
		Name() string

		// Intersect narrow b with the documents matching q, empty q is a no-op
		Intersect(r index.Reader, q query.Query, b *doccache.DocSetBuilder) error

		// FacetCounts counts of facet over docs, compute produces them on a miss
		FacetCounts(r index.Reader, docs *roaring.Bitmap, property, facet string,
			compute func() (map[string]int, error)) (map[string]int, error)
	}

	// CachingStrategy reuses document sets and counts for the lifetime of a reader
	CachingStrategy struct {
		DocSetCacheSize     int
		FacetCountCacheSize int
		Recorder            doccache.Recorder
	}

	// UncachedStrategy evaluates everything on every call
	UncachedStrategy struct{}
)

func NewCachingStrategy(docSets, facetCounts int, recorder doccache.Recorder) *CachingStrategy {
	return &CachingStrategy{
		DocSetCacheSize:     docSets,
		FacetCountCacheSize: facetCounts,
		Recorder:            recorder,
	}
}

func (s *CachingStrategy) Name() string {
	return "caching"
}

func (s *CachingStrategy) Intersect(r index.Reader, q query.Query, b *doccache.DocSetBuilder) error {
	return doccache.DocSetCacheOf(r, s.DocSetCacheSize, s.Recorder).Intersect(q, b)
}

func (s *CachingStrategy) FacetCounts(r index.Reader, docs *roaring.Bitmap, property, facet string,
	compute func() (map[string]int, error)) (map[string]int, error) {
	return doccache.FacetCountCacheOf(r, s.FacetCountCacheSize, s.Recorder).Counts(docs, property, facet, compute)
}

func (UncachedStrategy) Name() string {
	return "uncached"
}

func (UncachedStrategy) Intersect(r index.Reader, q query.Query, b *doccache.DocSetBuilder) error {
	return doccache.Intersect(r, q, b)
}

func (UncachedStrategy) FacetCounts(_ index.Reader, _ *roaring.Bitmap, _, _ string,
	compute func() (map[string]int, error)) (map[string]int, error) {
	return compute()
}
