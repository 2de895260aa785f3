package facetnav

import (
	"fmt"

	"github.com/emirpasic/gods/sets/linkedhashset"
)

type (
	// Result total count plus, in search mode, the page of document ids
	Result struct {
		length int
		ids    *linkedhashset.Set
	}

	// ResultIterator over document ids in result order
	ResultIterator struct {
		it      linkedhashset.Iterator
		started bool
	}

	// Count value count of one facet value
	Count struct {
		n int
	}
)

// zeroResult answer of failed calls
var zeroResult = &Result{}

func newCountResult(n uint64) *Result {
	return &Result{length: int(n)}
}

// newHitsResult ids deduplicated keeping first occurrence order
func newHitsResult(ids []string) *Result {
	set := linkedhashset.New()
	for _, id := range ids {
		set.Add(id)
	}
	return &Result{length: set.Size(), ids: set}
}

func (r *Result) Length() int {
	return r.length
}

// Iterator nil when the result has no rows
func (r *Result) Iterator() *ResultIterator {
	if r.ids == nil || r.ids.Empty() {
		return nil
	}
	return &ResultIterator{it: r.ids.Iterator()}
}

// IDs document ids as a slice, nil without rows
func (r *Result) IDs() []string {
	it := r.Iterator()
	if it == nil {
		return nil
	}
	ids := make([]string, 0, r.ids.Size())
	for it.Next() {
		ids = append(ids, it.Value())
	}
	return ids
}

func (r *Result) String() string {
	return fmt.Sprintf("result{length:%d rows:%v}", r.length, r.IDs())
}

func (it *ResultIterator) Next() bool {
	it.started = true
	return it.it.Next()
}

func (it *ResultIterator) Value() string {
	if !it.started {
		return ""
	}
	return it.it.Value().(string)
}

func NewCount(n int) *Count {
	return &Count{n: n}
}

func (c *Count) Add(n int) {
	c.n += n
}

func (c *Count) Value() int {
	if c == nil {
		return 0
	}
	return c.n
}

func (c *Count) String() string {
	return fmt.Sprintf("%d", c.Value())
}

// CountsOf plain copy of a filled count map
func CountsOf(counts map[string]*Count) map[string]int {
	out := make(map[string]int, len(counts))
	for k, c := range counts {
		out[k] = c.Value()
	}
	return out
}
