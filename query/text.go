package query

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/echoface/facetnav/analysis"
	"github.com/echoface/facetnav/index"
)

var ErrNoTerms = errors.New("text has no searchable terms")

// TextAnalysis analyzer plus synonym expansion applied to query text
type TextAnalysis struct {
	Analyzer analysis.Analyzer
	Synonyms analysis.SynonymProvider
}

func (ta TextAnalysis) tokens(text string) []string {
	if ta.Analyzer == nil {
		return strings.Fields(strings.ToLower(text))
	}
	return ta.Analyzer.Tokens(text)
}

func (ta TextAnalysis) termQuery(field, token string) Query {
	var alternatives []string
	if ta.Synonyms != nil {
		alternatives = ta.Synonyms.Synonyms(token)
	}
	if len(alternatives) == 0 {
		return NewTermQuery(field, token)
	}
	bq := NewBooleanQuery().Should(NewTermQuery(field, token))
	for _, alt := range alternatives {
		bq.Should(NewTermQuery(field, alt))
	}
	return bq
}

// TextQuery AND over the analyzed tokens of text, each token ORed with its synonyms
func TextQuery(ta TextAnalysis, field, text string) (Query, error) {
	tokens := ta.tokens(text)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("text:%q %w", text, ErrNoTerms)
	}
	if len(tokens) == 1 {
		return ta.termQuery(field, tokens[0]), nil
	}
	bq := NewBooleanQuery()
	for _, tk := range tokens {
		bq.Must(ta.termQuery(field, tk))
	}
	return bq, nil
}

// prefixQuery analyze a `word*` stem; the stem must stay a single token
func (ta TextAnalysis) prefixQuery(field, stem string) (Query, error) {
	tokens := ta.tokens(stem)
	switch len(tokens) {
	case 0:
		return nil, fmt.Errorf("prefix:%q %w", stem, ErrNoTerms)
	case 1:
		return NewPrefixQuery(field, tokens[0]), nil
	}
	return nil, fmt.Errorf("prefix:%q analyzes into %d terms", stem, len(tokens))
}

type textClause struct {
	text      string
	phrase    bool
	prohibit  bool
	wildcard  bool
	orWithPre bool
}

// ParseFreeText compile user search text against the fulltext field.
//
//	red car        both terms
//	"red car"      both terms (no positional matching)
//	red OR blue    either term
//	-blue          without term
//	ca*            terms starting with ca
func ParseFreeText(ta TextAnalysis, text string) (Query, error) {
	return ParseFreeTextField(ta, index.FieldFulltext, text)
}

// ParseFreeTextField free text syntax against an arbitrary analyzed field
func ParseFreeTextField(ta TextAnalysis, field, text string) (Query, error) {
	clauses, err := splitFreeText(text)
	if err != nil {
		return nil, err
	}
	if len(clauses) == 0 {
		return nil, fmt.Errorf("text:%q %w", text, ErrNoTerms)
	}

	bq := NewBooleanQuery()
	var group *BooleanQuery // pending OR group
	flush := func() {
		if group == nil {
			return
		}
		if group.Len() == 1 {
			bq.Must(group.Clauses[0].Query)
		} else if group.Len() > 1 {
			bq.Must(group)
		}
		group = nil
	}
	positive := 0
	for i, c := range clauses {
		q, err := ta.clauseQuery(field, c)
		if errors.Is(err, ErrNoTerms) {
			// pure punctuation, nothing to match on
			continue
		} else if err != nil {
			return nil, err
		}
		if c.prohibit {
			if c.orWithPre || (i+1 < len(clauses) && clauses[i+1].orWithPre) {
				return nil, fmt.Errorf("text:%q excluded term inside OR", text)
			}
			flush()
			bq.MustNot(q)
			continue
		}
		positive++
		if !c.orWithPre || group == nil {
			flush()
			group = NewBooleanQuery()
		}
		group.Should(q)
	}
	flush()
	if positive == 0 {
		return nil, fmt.Errorf("text:%q %w", text, ErrNoTerms)
	}
	if bq.Len() == 1 {
		return bq.Clauses[0].Query, nil
	}
	return bq, nil
}

func (ta TextAnalysis) clauseQuery(field string, c textClause) (Query, error) {
	if c.wildcard {
		return ta.prefixQuery(field, c.text)
	}
	return TextQuery(ta, field, c.text)
}

func splitFreeText(text string) ([]textClause, error) {
	var clauses []textClause
	pendingOr := false
	rs := []rune(text)
	for i := 0; i < len(rs); {
		if unicode.IsSpace(rs[i]) {
			i++
			continue
		}
		c := textClause{}
		switch rs[i] {
		case '-':
			c.prohibit = true
			i++
		case '+':
			i++
		}
		if i < len(rs) && rs[i] == '"' {
			end := i + 1
			for end < len(rs) && rs[end] != '"' {
				end++
			}
			if end >= len(rs) {
				return nil, fmt.Errorf("text:%q unterminated phrase", text)
			}
			c.text, c.phrase = string(rs[i+1:end]), true
			i = end + 1
		} else {
			start := i
			for i < len(rs) && !unicode.IsSpace(rs[i]) {
				i++
			}
			c.text = string(rs[start:i])
		}

		if !c.phrase && !c.prohibit && c.text == "OR" {
			if len(clauses) == 0 || pendingOr {
				return nil, fmt.Errorf("text:%q misplaced OR", text)
			}
			pendingOr = true
			continue
		}
		if !c.phrase && strings.HasSuffix(c.text, "*") {
			c.text, c.wildcard = strings.TrimRight(c.text, "*"), true
		}
		if len(c.text) == 0 {
			if c.wildcard || c.prohibit {
				return nil, fmt.Errorf("text:%q dangling operator", text)
			}
			continue
		}
		c.orWithPre, pendingOr = pendingOr, false
		clauses = append(clauses, c)
	}
	if pendingOr {
		return nil, fmt.Errorf("text:%q misplaced OR", text)
	}
	return clauses, nil
}
