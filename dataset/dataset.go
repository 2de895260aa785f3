// Package dataset reads documents from YAML files and indexes them into a
// snapshot.
//
//	namespaces:
//	  ns: http://example.org/ns
//	properties:
//	  ns:price: long
//	documents:
//	  - uuid: 2b9b7a56-3a5f-4a51-9a62-0d5b8f1f6c01
//	    type: ns:product
//	    ancestors: [6c1f8e1a-94a1-4bd0-8f0e-7d1de3bcf0aa]
//	    properties:
//	      ns:color: red
//	      ns:size: [S, M]
//	      ns:price: 30
//	    texts:
//	      ns:body: red running shoes
package dataset

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/echoface/facetnav/analysis"
	"github.com/echoface/facetnav/index"
)

type (
	Dataset struct {
		// Namespaces prefix -> uri, registered in prefix order
		Namespaces map[string]string `yaml:"namespaces"`
		// Properties qualified name -> value type, undeclared ones are strings
		Properties map[string]string `yaml:"properties"`
		Documents  []*Document       `yaml:"documents"`
	}

	Document struct {
		UUID       string                 `yaml:"uuid"`
		Type       string                 `yaml:"type"`
		Ancestors  []string               `yaml:"ancestors"`
		Properties map[string]interface{} `yaml:"properties"`
		Texts      map[string]string      `yaml:"texts"`
	}
)

func Parse(data []byte) (*Dataset, error) {
	ds := &Dataset{}
	if err := yaml.Unmarshal(data, ds); err != nil {
		return nil, fmt.Errorf("decode dataset:%w", err)
	}
	return ds, nil
}

func LoadFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset:%s %w", path, err)
	}
	ds, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("dataset:%s %w", path, err)
	}
	return ds, nil
}

// NamespaceRegistry registry holding the dataset namespaces
func (ds *Dataset) NamespaceRegistry() (*index.NamespaceRegistry, error) {
	ns := index.NewNamespaceRegistry()
	for _, prefix := range sortedKeys(ds.Namespaces) {
		if err := ns.Register(prefix, ds.Namespaces[prefix]); err != nil {
			return nil, err
		}
	}
	return ns, nil
}

// Build index every document; a nil analyzer uses the default one
func (ds *Dataset) Build(analyzer analysis.Analyzer) (*index.Snapshot, error) {
	ns, err := ds.NamespaceRegistry()
	if err != nil {
		return nil, err
	}
	if analyzer == nil {
		if analyzer, err = analysis.NewBleveAnalyzer(); err != nil {
			return nil, err
		}
	}
	b := index.NewBuilder(ns, analyzer)
	for _, name := range sortedKeys(ds.Properties) {
		t, err := index.ParsePropertyType(ds.Properties[name])
		if err != nil {
			return nil, fmt.Errorf("property:%s %w", name, err)
		}
		if err = b.ConfigureProperty(name, t); err != nil {
			return nil, err
		}
	}
	for i, d := range ds.Documents {
		if err = b.AddDocument(d.toIndexDocument()); err != nil {
			return nil, fmt.Errorf("document #%d %w", i, err)
		}
	}
	return b.Build()
}

func (d *Document) toIndexDocument() *index.Document {
	doc := index.NewDocument(d.UUID).WithAncestors(d.Ancestors...)
	if len(d.Type) > 0 {
		doc.WithPrimaryType(d.Type)
	}
	for _, name := range sortedKeys(d.Properties) {
		doc.AddProperty(name, d.Properties[name])
	}
	for _, name := range sortedKeys(d.Texts) {
		doc.AddText(name, d.Texts[name])
	}
	return doc
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
