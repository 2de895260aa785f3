// Package query is the boolean query tree evaluated against an index.Reader,
// plus the builders that translate navigation inputs (facet constraints,
// ranges, inherited filters, scopes, filter expressions, free text) into it.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/echoface/facetnav/index"
)

type (
	// Query a node of the boolean query tree. String is canonical: equal
	// strings select equal documents on the same reader, it is used as cache key.
	Query interface {
		String() string
		// Eval documents matching the query; the bitmap belongs to the caller
		Eval(r index.Reader) (*roaring.Bitmap, error)
	}

	Occur int

	Clause struct {
		Query Query
		Occur Occur
	}

	// BooleanQuery Must clauses are ANDed, MustNot are subtracted. Should
	// clauses are ORed and required only when there is no Must clause.
	// A query with MustNot clauses only selects all documents minus them.
	BooleanQuery struct {
		Clauses []Clause
	}

	TermQuery struct {
		Field string
		Term  string
	}

	// RangeQuery term interval, lower inclusive and upper exclusive by default
	RangeQuery struct {
		Field        string
		Lower, Upper string
		HasLower     bool
		HasUpper     bool
		IncludeLower bool
		IncludeUpper bool
	}

	PrefixQuery struct {
		Field  string
		Prefix string
	}

	MatchAllQuery struct{}
)

const (
	Must Occur = iota
	Should
	MustNot
)

func (o Occur) prefix() string {
	switch o {
	case Must:
		return "+"
	case MustNot:
		return "-"
	}
	return ""
}

func NewBooleanQuery() *BooleanQuery {
	return &BooleanQuery{}
}

// Add append a clause, nil queries are ignored
func (q *BooleanQuery) Add(sub Query, occur Occur) *BooleanQuery {
	if sub == nil {
		return q
	}
	q.Clauses = append(q.Clauses, Clause{Query: sub, Occur: occur})
	return q
}

func (q *BooleanQuery) Must(sub Query) *BooleanQuery {
	return q.Add(sub, Must)
}

func (q *BooleanQuery) Should(sub Query) *BooleanQuery {
	return q.Add(sub, Should)
}

func (q *BooleanQuery) MustNot(sub Query) *BooleanQuery {
	return q.Add(sub, MustNot)
}

func (q *BooleanQuery) Len() int {
	return len(q.Clauses)
}

func (q *BooleanQuery) String() string {
	if len(q.Clauses) == 0 {
		return "()"
	}
	parts := make([]string, len(q.Clauses))
	for i, c := range q.Clauses {
		sub := c.Query.String()
		if _, nested := c.Query.(*BooleanQuery); nested {
			sub = "(" + sub + ")"
		}
		parts[i] = c.Occur.prefix() + sub
	}
	return strings.Join(parts, " ")
}

func (q *BooleanQuery) Eval(r index.Reader) (*roaring.Bitmap, error) {
	var must, should *roaring.Bitmap
	var mustNot []*roaring.Bitmap
	hasMust := false
	for _, c := range q.Clauses {
		docs, err := c.Query.Eval(r)
		if err != nil {
			return nil, err
		}
		switch c.Occur {
		case Must:
			if !hasMust {
				must, hasMust = docs, true
			} else {
				must.And(docs)
			}
		case Should:
			if should == nil {
				should = docs
			} else {
				should.Or(docs)
			}
		case MustNot:
			mustNot = append(mustNot, docs)
		}
	}

	var result *roaring.Bitmap
	switch {
	case hasMust:
		result = must
	case should != nil:
		result = should
	default:
		result = r.LiveDocs().Clone()
	}
	for _, excluded := range mustNot {
		result.AndNot(excluded)
	}
	return result, nil
}

func NewTermQuery(field, term string) *TermQuery {
	return &TermQuery{Field: field, Term: term}
}

func (q *TermQuery) String() string {
	return q.Field + ":" + strconv.Quote(q.Term)
}

func (q *TermQuery) Eval(r index.Reader) (*roaring.Bitmap, error) {
	pl, err := r.Postings(q.Field, q.Term)
	if err != nil {
		return nil, fmt.Errorf("postings field:%s term:%s %w", q.Field, q.Term, err)
	}
	if pl == nil {
		return roaring.New(), nil
	}
	return pl.Clone(), nil
}

// NewRangeQuery half open interval [lower, upper)
func NewRangeQuery(field string, lower, upper string, hasLower, hasUpper bool) *RangeQuery {
	return &RangeQuery{
		Field:        field,
		Lower:        lower,
		Upper:        upper,
		HasLower:     hasLower,
		HasUpper:     hasUpper,
		IncludeLower: true,
	}
}

func (q *RangeQuery) String() string {
	sb := &strings.Builder{}
	sb.WriteString(q.Field)
	sb.WriteString(":")
	if q.IncludeLower {
		sb.WriteString("[")
	} else {
		sb.WriteString("{")
	}
	if q.HasLower {
		sb.WriteString(strconv.Quote(q.Lower))
	} else {
		sb.WriteString("*")
	}
	sb.WriteString(" TO ")
	if q.HasUpper {
		sb.WriteString(strconv.Quote(q.Upper))
	} else {
		sb.WriteString("*")
	}
	if q.IncludeUpper {
		sb.WriteString("]")
	} else {
		sb.WriteString("}")
	}
	return sb.String()
}

func (q *RangeQuery) contains(term string) (inRange, beyond bool) {
	if q.HasLower {
		if term < q.Lower || (!q.IncludeLower && term == q.Lower) {
			return false, false
		}
	}
	if q.HasUpper {
		if term > q.Upper || (!q.IncludeUpper && term == q.Upper) {
			return false, true
		}
	}
	return true, false
}

func (q *RangeQuery) Eval(r index.Reader) (*roaring.Bitmap, error) {
	te, err := r.Terms(q.Field)
	if err != nil {
		return nil, fmt.Errorf("terms field:%s %w", q.Field, err)
	}
	var ok bool
	if q.HasLower {
		ok = te.SeekCeil(q.Lower)
	} else {
		ok = te.Next()
	}
	result := roaring.New()
	for ; ok; ok = te.Next() {
		in, beyond := q.contains(te.Term())
		if beyond {
			break
		}
		if !in {
			continue
		}
		pl, err := te.Postings()
		if err != nil {
			return nil, fmt.Errorf("postings field:%s term:%s %w", q.Field, te.Term(), err)
		}
		result.Or(pl)
	}
	return result, nil
}

func NewPrefixQuery(field, prefix string) *PrefixQuery {
	return &PrefixQuery{Field: field, Prefix: prefix}
}

func (q *PrefixQuery) String() string {
	return q.Field + ":" + strconv.Quote(q.Prefix) + "*"
}

func (q *PrefixQuery) Eval(r index.Reader) (*roaring.Bitmap, error) {
	te, err := r.Terms(q.Field)
	if err != nil {
		return nil, fmt.Errorf("terms field:%s %w", q.Field, err)
	}
	result := roaring.New()
	for ok := te.SeekCeil(q.Prefix); ok && strings.HasPrefix(te.Term(), q.Prefix); ok = te.Next() {
		pl, err := te.Postings()
		if err != nil {
			return nil, fmt.Errorf("postings field:%s term:%s %w", q.Field, te.Term(), err)
		}
		result.Or(pl)
	}
	return result, nil
}

func (MatchAllQuery) String() string {
	return "*:*"
}

func (MatchAllQuery) Eval(r index.Reader) (*roaring.Bitmap, error) {
	return r.LiveDocs().Clone(), nil
}

// IsEmpty nil or a boolean query without clauses; such a query restricts nothing
func IsEmpty(q Query) bool {
	if q == nil {
		return true
	}
	bq, ok := q.(*BooleanQuery)
	return ok && (bq == nil || len(bq.Clauses) == 0)
}

// And combine queries with Must, skipping empty ones; nil when nothing is left
func And(queries ...Query) Query {
	bq := NewBooleanQuery()
	for _, q := range queries {
		if IsEmpty(q) {
			continue
		}
		bq.Must(q)
	}
	switch len(bq.Clauses) {
	case 0:
		return nil
	case 1:
		return bq.Clauses[0].Query
	}
	return bq
}
