package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"
)

type (
	// Snapshot immutable in-memory segment, every posting list is read-only
	Snapshot struct {
		namespaces *NamespaceRegistry
		schema     map[string]PropertyType
		fields     map[string]*fieldPostings
		docValues  map[string]map[uint32]string
		uuids      []string
		live       *roaring.Bitmap
	}

	// TermEnum ordered iteration over the terms of one field.
	// A new enum is positioned before the first term.
	TermEnum interface {
		// Next move to the next term, false when exhausted
		Next() bool
		// SeekCeil position at the first term >= term, false when none
		SeekCeil(term string) bool
		Term() string
		DocFreq() int
		// Postings read-only documents of the current term
		Postings() (*roaring.Bitmap, error)
	}

	snapshotTermEnum struct {
		fp  *fieldPostings
		pos int
	}
)

func (s *Snapshot) NumDocs() int {
	return len(s.uuids)
}

func (s *Snapshot) Namespaces() *NamespaceRegistry {
	return s.namespaces
}

// Fields field names in sorted order
func (s *Snapshot) Fields() []string {
	fields := make([]string, 0, len(s.fields))
	for f := range s.fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func (s *Snapshot) terms(field string) TermEnum {
	fp, ok := s.fields[field]
	if !ok {
		fp = &fieldPostings{}
	}
	return &snapshotTermEnum{fp: fp, pos: -1}
}

func (s *Snapshot) postings(field, term string) *roaring.Bitmap {
	fp, ok := s.fields[field]
	if !ok {
		return nil
	}
	if pos, found := fp.find(term); found {
		return fp.terms[pos].docs
	}
	return nil
}

func (s *Snapshot) String() string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "snapshot{docs:%d fields:%d", len(s.uuids), len(s.fields))
	for _, f := range s.Fields() {
		fmt.Fprintf(sb, " %s:%d", f, len(s.fields[f].terms))
	}
	sb.WriteString("}")
	return sb.String()
}

func (e *snapshotTermEnum) Next() bool {
	if e.pos < len(e.fp.terms) {
		e.pos++
	}
	return e.pos < len(e.fp.terms)
}

func (e *snapshotTermEnum) SeekCeil(term string) bool {
	e.pos, _ = e.fp.find(term)
	return e.pos < len(e.fp.terms)
}

func (e *snapshotTermEnum) valid() bool {
	return e.pos >= 0 && e.pos < len(e.fp.terms)
}

func (e *snapshotTermEnum) Term() string {
	if !e.valid() {
		return ""
	}
	return e.fp.terms[e.pos].term
}

func (e *snapshotTermEnum) DocFreq() int {
	if !e.valid() {
		return 0
	}
	return int(e.fp.terms[e.pos].docs.GetCardinality())
}

func (e *snapshotTermEnum) Postings() (*roaring.Bitmap, error) {
	if !e.valid() {
		return nil, fmt.Errorf("term enum not positioned")
	}
	return e.fp.terms[e.pos].docs, nil
}
