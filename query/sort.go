package query

import (
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/echoface/facetnav/index"
)

// FieldScore pseudo field ordering by relevance
const FieldScore = "_:SCORE"

type (
	// SortField Field is an index field holding sortable terms, or FieldScore
	SortField struct {
		Field   string
		Reverse bool
	}

	// Sort ordered sort keys, empty means relevance (score descending)
	Sort []SortField
)

func (s Sort) IsRelevance() bool {
	for _, f := range s {
		if f.Field != FieldScore {
			return false
		}
	}
	return true
}

func (s Sort) NeedsScores() bool {
	for _, f := range s {
		if f.Field == FieldScore {
			return true
		}
	}
	return len(s) == 0
}

func (s Sort) String() string {
	if len(s) == 0 {
		return "<score>"
	}
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = f.Field
		if f.Reverse {
			parts[i] += "!"
		}
	}
	return strings.Join(parts, ",")
}

type sortKey struct {
	doc    uint32
	score  float64
	values []string
	has    []bool
}

// SortDocs order docs by s. Missing field values sort before present ones in
// ascending order; remaining ties go by document ordinal. scores may be nil
// when s does not need them.
func SortDocs(r index.Reader, docs *roaring.Bitmap, s Sort, scores map[uint32]float64) ([]uint32, error) {
	if len(s) == 0 {
		s = Sort{{Field: FieldScore, Reverse: true}}
	}
	keys := make([]sortKey, 0, docs.GetCardinality())
	for it := docs.Iterator(); it.HasNext(); {
		doc := it.Next()
		k := sortKey{doc: doc, score: scores[doc], values: make([]string, len(s)), has: make([]bool, len(s))}
		for i, f := range s {
			if f.Field == FieldScore {
				continue
			}
			v, ok, err := r.DocValue(f.Field, doc)
			if err != nil {
				return nil, err
			}
			k.values[i], k.has[i] = v, ok
		}
		keys = append(keys, k)
	}

	sort.Slice(keys, func(a, b int) bool {
		ka, kb := &keys[a], &keys[b]
		for i, f := range s {
			var c int
			if f.Field == FieldScore {
				c = compareScore(ka.score, kb.score)
			} else {
				c = compareValue(ka.values[i], ka.has[i], kb.values[i], kb.has[i])
			}
			if f.Reverse {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return ka.doc < kb.doc
	})

	out := make([]uint32, len(keys))
	for i := range keys {
		out[i] = keys[i].doc
	}
	return out, nil
}

func compareScore(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareValue(a string, hasA bool, b string, hasB bool) int {
	switch {
	case !hasA && !hasB:
		return 0
	case !hasA:
		return -1
	case !hasB:
		return 1
	}
	return strings.Compare(a, b)
}
