package doccache

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/echoface/facetnav/index"
	"github.com/echoface/facetnav/query"
)

type (
	// FacetCountKey Fingerprint identifies the matching set only probabilistically,
	// an entry is used only when its stored set equals the current one
	FacetCountKey struct {
		Fingerprint uint64
		Property    string
		Facet       string
	}

	facetCountEntry struct {
		docs   *roaring.Bitmap
		counts map[string]int
	}

	// FacetCountCache facet value counts of one reader
	FacetCountCache struct {
		entries  Cache[FacetCountKey, *facetCountEntry]
		counters *counters
	}

	facetCountAttachment struct{}
)

func NewFacetCountCache(size int, recorder Recorder) *FacetCountCache {
	return &FacetCountCache{
		entries:  NewLRU[FacetCountKey, *facetCountEntry](size),
		counters: newCounters(CacheFacetCount, recorder),
	}
}

// FacetCountCacheOf the cache attached to r, created on first use
func FacetCountCacheOf(r index.Reader, size int, recorder Recorder) *FacetCountCache {
	v := r.Attachment(facetCountAttachment{}, func() interface{} {
		return NewFacetCountCache(size, recorder)
	})
	return v.(*FacetCountCache)
}

// Counts value counts of facet over docs, computed by compute on a miss.
// The returned map is shared, callers must not modify it.
func (c *FacetCountCache) Counts(docs *roaring.Bitmap, property, facet string,
	compute func() (map[string]int, error)) (map[string]int, error) {

	key := FacetCountKey{Fingerprint: query.Fingerprint(docs), Property: property, Facet: facet}
	if e, ok := c.entries.Get(key); ok && e.docs.Equals(docs) {
		c.counters.record(true)
		return e.counts, nil
	}
	c.counters.record(false)
	counts, err := compute()
	if err != nil {
		return nil, err
	}
	c.entries.Put(key, &facetCountEntry{docs: docs.Clone(), counts: counts})
	return counts, nil
}

func (c *FacetCountCache) Len() int {
	return c.entries.Len()
}

func (c *FacetCountCache) Stats() Stats {
	return c.counters.stats()
}
