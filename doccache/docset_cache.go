package doccache

import (
	"github.com/RoaringBitmap/roaring"
	"golang.org/x/sync/singleflight"

	"github.com/echoface/facetnav/index"
	"github.com/echoface/facetnav/query"
)

type (
	// DocSetCache matching documents per query string of one reader.
	// Concurrent misses on the same key evaluate the query once.
	DocSetCache struct {
		reader   index.Reader
		entries  Cache[string, *roaring.Bitmap]
		group    singleflight.Group
		counters *counters
	}

	docSetAttachment struct{}
)

func NewDocSetCache(r index.Reader, entries Cache[string, *roaring.Bitmap], recorder Recorder) *DocSetCache {
	return &DocSetCache{
		reader:   r,
		entries:  entries,
		counters: newCounters(CacheDocSet, recorder),
	}
}

// DocSetCacheOf the cache attached to r, created with an LRU of size on first use
func DocSetCacheOf(r index.Reader, size int, recorder Recorder) *DocSetCache {
	v := r.Attachment(docSetAttachment{}, func() interface{} {
		return NewDocSetCache(r, NewLRU[string, *roaring.Bitmap](size), recorder)
	})
	return v.(*DocSetCache)
}

// DocSet documents matching q; the bitmap is shared, callers must not modify it
func (c *DocSetCache) DocSet(q query.Query) (*roaring.Bitmap, error) {
	key := q.String()
	if docs, ok := c.entries.Get(key); ok {
		c.counters.record(true)
		return docs, nil
	}
	c.counters.record(false)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if docs, ok := c.entries.Get(key); ok {
			return docs, nil
		}
		docs, err := q.Eval(c.reader)
		if err != nil {
			return nil, err
		}
		docs.RunOptimize()
		c.entries.Put(key, docs)
		return docs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*roaring.Bitmap), nil
}

// Intersect narrow b with the documents of q, empty queries are skipped
func (c *DocSetCache) Intersect(q query.Query, b *DocSetBuilder) error {
	if query.IsEmpty(q) {
		return nil
	}
	if bq, ok := q.(*query.BitmapQuery); ok {
		b.And(bq.Docs)
		return nil
	}
	docs, err := c.DocSet(q)
	if err != nil {
		return err
	}
	b.And(docs)
	return nil
}

func (c *DocSetCache) Len() int {
	return c.entries.Len()
}

func (c *DocSetCache) Stats() Stats {
	return c.counters.stats()
}

// Intersect uncached variant; evaluates q against r every time
func Intersect(r index.Reader, q query.Query, b *DocSetBuilder) error {
	if query.IsEmpty(q) {
		return nil
	}
	if bq, ok := q.(*query.BitmapQuery); ok {
		b.And(bq.Docs)
		return nil
	}
	docs, err := q.Eval(r)
	if err != nil {
		return err
	}
	b.And(docs)
	return nil
}
