package doccache

import (
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring"

	"github.com/echoface/facetnav/facet"
	"github.com/echoface/facetnav/index"
	"github.com/echoface/facetnav/query"
)

// CountTerms count the documents of docs per term of field, keyed by the
// display form of the term. Terms without matching documents are left out.
func CountTerms(r index.Reader, field string, docs *roaring.Bitmap) (map[string]int, error) {
	t, ok := r.PropertyType(field)
	if !ok {
		t = index.TypeString
	}
	te, err := r.Terms(field)
	if err != nil {
		return nil, fmt.Errorf("terms field:%s %w", field, err)
	}
	counts := map[string]int{}
	for te.Next() {
		pl, err := te.Postings()
		if err != nil {
			return nil, fmt.Errorf("postings field:%s term:%s %w", field, te.Term(), err)
		}
		n := pl.AndCardinality(docs)
		if n == 0 {
			continue
		}
		value, err := index.DecodeValue(t, te.Term())
		if err != nil {
			return nil, fmt.Errorf("field:%s %w", field, err)
		}
		counts[value] += int(n)
	}
	return counts, nil
}

// CountGroups count date terms of field bucketed by resolution labels
func CountGroups(r index.Reader, field string, resolution facet.Resolution, docs *roaring.Bitmap) (map[string]int, error) {
	te, err := r.Terms(field)
	if err != nil {
		return nil, fmt.Errorf("terms field:%s %w", field, err)
	}
	// a document with several values in one bucket counts once
	buckets := map[string]*roaring.Bitmap{}
	scratch := index.AcquireBitmap()
	defer func() {
		index.ReleaseBitmap(scratch)
		for _, bm := range buckets {
			index.ReleaseBitmap(bm)
		}
	}()
	for te.Next() {
		pl, err := te.Postings()
		if err != nil {
			return nil, fmt.Errorf("postings field:%s term:%s %w", field, te.Term(), err)
		}
		if !pl.Intersects(docs) {
			continue
		}
		ts, err := index.DecodeDate(te.Term())
		if err != nil {
			return nil, fmt.Errorf("field:%s %w", field, err)
		}
		label := resolution.Label(ts)
		bm, ok := buckets[label]
		if !ok {
			bm = index.AcquireBitmap()
			buckets[label] = bm
		}
		scratch.Or(pl)
		scratch.And(docs)
		bm.Or(scratch)
		scratch.Clear()
	}
	counts := make(map[string]int, len(buckets))
	for label, bm := range buckets {
		counts[label] = int(bm.GetCardinality())
	}
	return counts, nil
}

// CountRanges count docs per range bucket, every bucket is reported
func CountRanges(r index.Reader, schema query.Schema, ranges []*facet.Range, now time.Time,
	docs *roaring.Bitmap) (map[string]int, error) {

	counts := make(map[string]int, len(ranges))
	for _, rg := range ranges {
		q, err := query.RangeClause(schema, rg, now)
		if err != nil {
			return nil, err
		}
		matched, err := q.Eval(r)
		if err != nil {
			return nil, err
		}
		counts[rg.Name] = int(matched.AndCardinality(docs))
	}
	return counts, nil
}

// RangesKey resolved bounds of ranges at now; relative date ranges move
// with the clock so they are part of the count cache key
func RangesKey(schema query.Schema, ranges []*facet.Range, now time.Time) (string, error) {
	key := ""
	for _, rg := range ranges {
		q, err := query.RangeClause(schema, rg, now)
		if err != nil {
			return "", err
		}
		key += rg.Name + "=" + q.String() + ";"
	}
	return key, nil
}
