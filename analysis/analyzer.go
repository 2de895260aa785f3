// Package analysis turns text into index terms. The same analyzer must be
// used when fulltext fields are built and when free-text queries are compiled,
// otherwise query terms never meet index terms.
package analysis

import (
	"fmt"

	blevanalysis "github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/unicodenorm"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/echoface/facetnav/util"
)

const (
	fulltextAnalyzerName = "facetnavFulltext"
	unicodeNormalizeName = "unicodeNormalize"
)

type (
	// Analyzer split text into normalized terms
	Analyzer interface {
		Tokens(text string) []string
	}

	tokenStreamer interface {
		Analyze(input []byte) blevanalysis.TokenStream
	}

	// BleveAnalyzer wraps a bleve analyzer chain:
	// unicode word segmentation -> NFC normalization -> lowercase
	BleveAnalyzer struct {
		name     string
		analyzer tokenStreamer
	}
)

// NewBleveAnalyzer build the default fulltext analyzer
func NewBleveAnalyzer() (*BleveAnalyzer, error) {
	m := mapping.NewIndexMapping()
	if err := m.AddCustomTokenFilter(unicodeNormalizeName, map[string]interface{}{
		"type": unicodenorm.Name,
		"form": unicodenorm.NFC,
	}); err != nil {
		return nil, fmt.Errorf("define token filter:%w", err)
	}
	if err := m.AddCustomAnalyzer(fulltextAnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"char_filters":  []string{},
		"tokenizer":     unicode.Name,
		"token_filters": []string{unicodeNormalizeName, lowercase.Name},
	}); err != nil {
		return nil, fmt.Errorf("define analyzer:%w", err)
	}
	a := m.AnalyzerNamed(fulltextAnalyzerName)
	if a == nil {
		return nil, fmt.Errorf("analyzer:%s not registered", fulltextAnalyzerName)
	}
	return &BleveAnalyzer{name: fulltextAnalyzerName, analyzer: a}, nil
}

// MustBleveAnalyzer panic version of NewBleveAnalyzer, for package level defaults
func MustBleveAnalyzer() *BleveAnalyzer {
	a, err := NewBleveAnalyzer()
	util.PanicIfErr(err, "default analyzer")
	return a
}

func (a *BleveAnalyzer) Name() string {
	return a.name
}

// Tokens return terms in text order, duplicates kept
func (a *BleveAnalyzer) Tokens(text string) []string {
	if len(text) == 0 {
		return nil
	}
	stream := a.analyzer.Analyze([]byte(text))
	terms := make([]string, 0, len(stream))
	for _, tk := range stream {
		if len(tk.Term) == 0 {
			continue
		}
		terms = append(terms, string(tk.Term))
	}
	return terms
}
