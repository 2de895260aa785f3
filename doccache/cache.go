// Package doccache holds the per index reader caches of the navigation
// engine: matching document sets keyed by query string, and facet value
// counts keyed by (document set, property, facet).
//
// Both caches live as reader attachments, so a reopened index starts cold
// and entries of a retired reader can never be returned.
package doccache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/echoface/facetnav/util"
)

const (
	CacheDocSet     = "docset"
	CacheFacetCount = "facetcount"

	DefaultDocSetCacheSize     = 1000
	DefaultFacetCountCacheSize = 1000
)

type (
	// Cache bounded key value store; implementations are safe for concurrent use
	Cache[K comparable, V any] interface {
		Get(key K) (V, bool)
		Put(key K, value V)
		Len() int
		// Purge expire all entries
		Purge()
	}

	// LRU least recently used eviction
	LRU[K comparable, V any] struct {
		c *lru.Cache[K, V]
	}

	// Recorder observes cache lookups, e.g. to export metrics
	Recorder interface {
		Record(cache string, hit bool)
	}

	// Stats lookup counters of one cache
	Stats struct {
		Hits   uint64
		Misses uint64
	}

	counters struct {
		name     string
		hits     atomic.Uint64
		misses   atomic.Uint64
		recorder Recorder
	}

	nopRecorder struct{}
)

// NopRecorder discards observations
var NopRecorder Recorder = nopRecorder{}

func (nopRecorder) Record(string, bool) {}

// NewLRU size <= 0 falls back to a single entry
func NewLRU[K comparable, V any](size int) *LRU[K, V] {
	if size <= 0 {
		size = 1
	}
	c, err := lru.New[K, V](size)
	util.PanicIfErr(err, "lru size:%d", size)
	return &LRU[K, V]{c: c}
}

func (l *LRU[K, V]) Get(key K) (V, bool) {
	return l.c.Get(key)
}

func (l *LRU[K, V]) Put(key K, value V) {
	l.c.Add(key, value)
}

func (l *LRU[K, V]) Len() int {
	return l.c.Len()
}

func (l *LRU[K, V]) Purge() {
	l.c.Purge()
}

func newCounters(name string, recorder Recorder) *counters {
	if recorder == nil {
		recorder = NopRecorder
	}
	return &counters{name: name, recorder: recorder}
}

func (c *counters) record(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	c.recorder.Record(c.name, hit)
}

func (c *counters) stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
