package query

import (
	"math"

	"github.com/RoaringBitmap/roaring"

	"github.com/echoface/facetnav/index"
)

// Scorer a query weighing its own matches. Queries that do not implement it
// contribute a constant 1 for each document they match.
type Scorer interface {
	AddScores(r index.Reader, docs *roaring.Bitmap, scores map[uint32]float64) error
}

// Score relevance of every document in docs matched by q
func Score(q Query, r index.Reader, docs *roaring.Bitmap) (map[uint32]float64, error) {
	scores := make(map[uint32]float64, docs.GetCardinality())
	if q == nil {
		return scores, nil
	}
	if err := addScores(q, r, docs, scores); err != nil {
		return nil, err
	}
	return scores, nil
}

func addScores(q Query, r index.Reader, docs *roaring.Bitmap, scores map[uint32]float64) error {
	if s, ok := q.(Scorer); ok {
		return s.AddScores(r, docs, scores)
	}
	matched, err := q.Eval(r)
	if err != nil {
		return err
	}
	matched.And(docs)
	for it := matched.Iterator(); it.HasNext(); {
		scores[it.Next()] += 1
	}
	return nil
}

func idf(docFreq, numDocs uint64) float64 {
	return 1 + math.Log(float64(numDocs)/float64(docFreq+1))
}

// AddScores binary tf times idf
func (q *TermQuery) AddScores(r index.Reader, docs *roaring.Bitmap, scores map[uint32]float64) error {
	pl, err := r.Postings(q.Field, q.Term)
	if err != nil || pl == nil {
		return err
	}
	w := idf(pl.GetCardinality(), r.LiveDocs().GetCardinality())
	for it := roaring.And(pl, docs).Iterator(); it.HasNext(); {
		scores[it.Next()] += w
	}
	return nil
}

// AddScores sum of the positive clauses
func (q *BooleanQuery) AddScores(r index.Reader, docs *roaring.Bitmap, scores map[uint32]float64) error {
	for _, c := range q.Clauses {
		if c.Occur == MustNot {
			continue
		}
		if err := addScores(c.Query, r, docs, scores); err != nil {
			return err
		}
	}
	return nil
}
