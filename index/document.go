package index

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// Property one named, possibly multi-valued property of a document
	Property struct {
		Name   string   `json:"name" yaml:"name"`
		Values []string `json:"values" yaml:"values"`
	}

	// Document content node handed to the Builder
	Document struct {
		UUID        string            `json:"uuid"`
		PrimaryType string            `json:"type,omitempty"`
		Ancestors   []string          `json:"ancestors,omitempty"` // ids of all ancestors, self is implied
		Properties  []*Property       `json:"properties,omitempty"`
		Texts       map[string]string `json:"texts,omitempty"` // fulltext only content, not facetable

		err error
	}
)

func NewDocument(uuid string) *Document {
	return &Document{
		UUID:  uuid,
		Texts: map[string]string{},
	}
}

func (doc *Document) WithPrimaryType(name string) *Document {
	doc.PrimaryType = name
	return doc
}

func (doc *Document) WithAncestors(ids ...string) *Document {
	doc.Ancestors = append(doc.Ancestors, ids...)
	return doc
}

// AddProperty append values to a property, values may be scalars or slices;
// a conversion failure is kept and reported by Builder.AddDocument
func (doc *Document) AddProperty(name string, values ...interface{}) *Document {
	var strs []string
	for _, v := range values {
		vs, err := ValuesToStrings(v)
		if err != nil {
			doc.err = errors.Join(doc.err, fmt.Errorf("property:%s %w", name, err))
			return doc
		}
		strs = append(strs, vs...)
	}
	if p := doc.property(name); p != nil {
		p.Values = append(p.Values, strs...)
		return doc
	}
	doc.Properties = append(doc.Properties, &Property{Name: name, Values: strs})
	return doc
}

// AddText add fulltext only content for a property
func (doc *Document) AddText(name, text string) *Document {
	if prev, ok := doc.Texts[name]; ok {
		text = prev + " " + text
	}
	doc.Texts[name] = text
	return doc
}

func (doc *Document) property(name string) *Property {
	for _, p := range doc.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Valid report the first problem that prevents indexing
func (doc *Document) Valid() error {
	if doc.err != nil {
		return doc.err
	}
	if len(doc.UUID) == 0 {
		return errors.New("document without uuid")
	}
	return nil
}

func (doc *Document) String() string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "doc{uuid:%s", doc.UUID)
	if len(doc.PrimaryType) > 0 {
		fmt.Fprintf(sb, " type:%s", doc.PrimaryType)
	}
	for _, p := range doc.Properties {
		fmt.Fprintf(sb, " %s:%v", p.Name, p.Values)
	}
	sb.WriteString("}")
	return sb.String()
}
