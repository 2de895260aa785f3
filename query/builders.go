package query

import (
	"fmt"
	"sort"
	"time"

	"github.com/echoface/facetnav/facet"
	"github.com/echoface/facetnav/index"
)

type (
	// Schema resolves qualified property names to index fields and knows how
	// their terms are encoded
	Schema interface {
		index.NameResolver
		PropertyType(internal string) (index.PropertyType, bool)
	}

	// FacetValue one drill-down constraint: property Name equals Value
	FacetValue struct {
		Name  string `json:"name" yaml:"name"`
		Value string `json:"value" yaml:"value"`
	}

	readerSchema struct {
		*index.NamespaceRegistry
		r index.Reader
	}
)

// ReaderSchema schema of the documents visible through r
func ReaderSchema(r index.Reader) Schema {
	return &readerSchema{NamespaceRegistry: r.Namespaces(), r: r}
}

func (s *readerSchema) PropertyType(internal string) (index.PropertyType, bool) {
	return s.r.PropertyType(internal)
}

// propertyType undeclared properties are strings
func propertyType(schema Schema, internal string) index.PropertyType {
	if t, ok := schema.PropertyType(internal); ok {
		return t
	}
	return index.TypeString
}

// EqualsQuery documents whose property qualified has the given value
func EqualsQuery(schema Schema, qualified, value string) (Query, error) {
	internal, err := schema.InternalName(qualified)
	if err != nil {
		return nil, err
	}
	term, err := index.EncodeValue(propertyType(schema, internal), value)
	if err != nil {
		return nil, fmt.Errorf("property:%s %w", qualified, err)
	}
	return NewTermQuery(internal, term), nil
}

// FacetsQuery AND of the drill-down equality constraints
func FacetsQuery(schema Schema, list []FacetValue) (*BooleanQuery, error) {
	bq := NewBooleanQuery()
	for _, fv := range list {
		q, err := EqualsQuery(schema, fv.Name, fv.Value)
		if err != nil {
			return nil, err
		}
		bq.Must(q)
	}
	return bq, nil
}

// RangeClause term interval of one facet range; a range without bounds
// matches every document carrying the property
func RangeClause(schema Schema, r *facet.Range, now time.Time) (Query, error) {
	internal, err := schema.InternalName(r.Property)
	if err != nil {
		return nil, err
	}
	b, err := r.Bounds(propertyType(schema, internal), now)
	if err != nil {
		return nil, err
	}
	if !b.HasLower && !b.HasUpper {
		return FacetPropExistsQuery(internal), nil
	}
	return NewRangeQuery(internal, b.Lower, b.Upper, b.HasLower, b.HasUpper), nil
}

// FacetRangeQuery AND of the selected range buckets
func FacetRangeQuery(schema Schema, ranges []*facet.Range, now time.Time) (*BooleanQuery, error) {
	bq := NewBooleanQuery()
	for _, r := range ranges {
		q, err := RangeClause(schema, r, now)
		if err != nil {
			return nil, err
		}
		bq.Must(q)
	}
	return bq, nil
}

// InheritedFilterQuery AND of equality constraints handed down from parent
// navigation nodes, properties are visited in name order so the query string
// is stable
func InheritedFilterQuery(schema Schema, filters map[string][]string) (*BooleanQuery, error) {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)

	bq := NewBooleanQuery()
	for _, name := range names {
		for _, value := range filters[name] {
			q, err := EqualsQuery(schema, name, value)
			if err != nil {
				return nil, err
			}
			bq.Must(q)
		}
	}
	return bq, nil
}

// FacetPropExistsQuery documents carrying the property at all
func FacetPropExistsQuery(internal string) *TermQuery {
	return NewTermQuery(index.FieldPropertiesSet, internal)
}

// ScopeQuery documents at or below any of the given (normalized) ids
func ScopeQuery(ids []string) Query {
	if len(ids) == 1 {
		return NewTermQuery(index.FieldPath, ids[0])
	}
	bq := NewBooleanQuery()
	for _, id := range ids {
		bq.Should(NewTermQuery(index.FieldPath, id))
	}
	return bq
}

// PrimaryTypeQuery documents of node type qualified
func PrimaryTypeQuery(schema Schema, qualified string) (Query, error) {
	internal, err := schema.InternalName(qualified)
	if err != nil {
		return nil, err
	}
	return NewTermQuery(index.FieldPrimaryType, internal), nil
}
