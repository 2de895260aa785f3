package index

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring"
	"github.com/google/uuid"

	"github.com/echoface/facetnav/analysis"
)

type (
	// Builder collect documents and produce an immutable Snapshot.
	// Builder is not safe for concurrent use.
	Builder struct {
		namespaces *NamespaceRegistry
		analyzer   analysis.Analyzer

		// schema internal property name -> declared type
		schema map[string]PropertyType

		// fields field -> term -> ordinals
		fields map[string]map[string]*roaring.Bitmap

		// docValues field -> ordinal -> first term, used for sorting
		docValues map[string]map[uint32]string

		uuids []string
		seen  map[string]uint32
	}
)

func NewBuilder(namespaces *NamespaceRegistry, analyzer analysis.Analyzer) *Builder {
	if namespaces == nil {
		namespaces = NewNamespaceRegistry()
	}
	return &Builder{
		namespaces: namespaces,
		analyzer:   analyzer,
		schema:     map[string]PropertyType{},
		fields:     map[string]map[string]*roaring.Bitmap{},
		docValues:  map[string]map[uint32]string{},
		seen:       map[string]uint32{},
	}
}

// NormalizeUUID canonical lowercase form, error if s is not a uuid
func NormalizeUUID(s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("uuid:%q %w", s, err)
	}
	return id.String(), nil
}

// ConfigureProperty declare the value type of a property; undeclared
// properties are strings
func (b *Builder) ConfigureProperty(name string, t PropertyType) error {
	internal, err := b.namespaces.InternalName(name)
	if err != nil {
		return err
	}
	if prev, ok := b.schema[internal]; ok && prev != t {
		return fmt.Errorf("property:%s configured as %s, conflicts with %s", name, prev, t)
	}
	b.schema[internal] = t
	return nil
}

func (b *Builder) AddDocuments(docs ...*Document) error {
	for _, doc := range docs {
		if err := b.AddDocument(doc); err != nil {
			return err
		}
	}
	return nil
}

// AddDocument index one document; a document is added completely or not at all
func (b *Builder) AddDocument(doc *Document) error {
	if err := doc.Valid(); err != nil {
		return fmt.Errorf("invalid document:%s %w", doc.String(), err)
	}
	id, err := NormalizeUUID(doc.UUID)
	if err != nil {
		return err
	}
	if _, dup := b.seen[id]; dup {
		return fmt.Errorf("duplicated document uuid:%s", id)
	}

	type posting struct {
		field, term string
	}
	var postings []posting
	add := func(field, term string) {
		postings = append(postings, posting{field: field, term: term})
	}
	sortValues := map[string]string{}

	add(FieldUUID, id)
	add(FieldPath, id)
	for _, ancestor := range doc.Ancestors {
		aid, err := NormalizeUUID(ancestor)
		if err != nil {
			return fmt.Errorf("document:%s ancestor %w", id, err)
		}
		add(FieldPath, aid)
	}
	if len(doc.PrimaryType) > 0 {
		internal, err := b.namespaces.InternalName(doc.PrimaryType)
		if err != nil {
			return fmt.Errorf("document:%s primary type %w", id, err)
		}
		add(FieldPrimaryType, internal)
	}

	for _, p := range doc.Properties {
		internal, err := b.namespaces.InternalName(p.Name)
		if err != nil {
			return fmt.Errorf("document:%s %w", id, err)
		}
		if len(p.Values) == 0 {
			continue
		}
		t := b.schema[internal]
		add(FieldPropertiesSet, internal)
		for idx, v := range p.Values {
			term, err := EncodeValue(t, v)
			if err != nil {
				return fmt.Errorf("document:%s property:%s %w", id, p.Name, err)
			}
			add(internal, term)
			if idx == 0 {
				sortValues[internal] = term
			}
			if t == TypeString {
				for _, tk := range b.tokens(v) {
					add(FieldFulltext, tk)
					add(FulltextField(internal), tk)
				}
			}
		}
		if _, ok := b.schema[internal]; !ok {
			b.schema[internal] = TypeString
		}
	}

	for name, text := range doc.Texts {
		internal, err := b.namespaces.InternalName(name)
		if err != nil {
			return fmt.Errorf("document:%s text %w", id, err)
		}
		for _, tk := range b.tokens(text) {
			add(FieldFulltext, tk)
			add(FulltextField(internal), tk)
		}
	}

	ordinal := uint32(len(b.uuids))
	b.uuids = append(b.uuids, id)
	b.seen[id] = ordinal
	for _, p := range postings {
		terms, ok := b.fields[p.field]
		if !ok {
			terms = map[string]*roaring.Bitmap{}
			b.fields[p.field] = terms
		}
		bm, ok := terms[p.term]
		if !ok {
			bm = roaring.New()
			terms[p.term] = bm
		}
		bm.Add(ordinal)
	}
	for field, term := range sortValues {
		dv, ok := b.docValues[field]
		if !ok {
			dv = map[uint32]string{}
			b.docValues[field] = dv
		}
		dv[ordinal] = term
	}
	return nil
}

func (b *Builder) tokens(text string) []string {
	if b.analyzer == nil {
		return nil
	}
	return b.analyzer.Tokens(text)
}

// Build freeze collected documents, the builder can keep adding documents
// afterwards for a later snapshot
func (b *Builder) Build() (*Snapshot, error) {
	snap := &Snapshot{
		namespaces: b.namespaces.Clone(),
		schema:     make(map[string]PropertyType, len(b.schema)),
		fields:     make(map[string]*fieldPostings, len(b.fields)),
		docValues:  make(map[string]map[uint32]string, len(b.docValues)),
		uuids:      append([]string(nil), b.uuids...),
		live:       roaring.New(),
	}
	for k, v := range b.schema {
		snap.schema[k] = v
	}
	for field, terms := range b.fields {
		fp := &fieldPostings{terms: make([]postingList, 0, len(terms))}
		for term, bm := range terms {
			docs := bm.Clone()
			docs.RunOptimize()
			fp.terms = append(fp.terms, postingList{term: term, docs: docs})
		}
		sort.Slice(fp.terms, func(i, j int) bool {
			return fp.terms[i].term < fp.terms[j].term
		})
		snap.fields[field] = fp
	}
	for field, values := range b.docValues {
		dv := make(map[uint32]string, len(values))
		for ord, term := range values {
			dv[ord] = term
		}
		snap.docValues[field] = dv
	}
	if n := uint64(len(snap.uuids)); n > 0 {
		snap.live.AddRange(0, n)
	}
	return snap, nil
}
