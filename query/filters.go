package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/echoface/facetnav/index"
)

var ErrBadFilter = errors.New("invalid facet filter expression")

type (
	// FilterNode parsed facet filter expression node
	FilterNode interface {
		String() string
		compile(schema Schema, ta TextAnalysis) (Query, error)
	}

	FilterAnd struct{ Children []FilterNode }
	FilterOr  struct{ Children []FilterNode }
	FilterNot struct{ Child FilterNode }

	FilterEquals struct {
		Property string
		Value    string
		Negate   bool
	}

	// FilterContains fulltext match; an empty Property searches all text
	FilterContains struct {
		Property string
		Text     string
	}

	// FacetFilters a filter expression narrowing a scope query, e.g.
	//
	//	ns:status = 'published' and (ns:lang = en or not(ns:lang = de))
	//	contains(., 'annual report') and equals(ns:type, news)
	FacetFilters struct {
		Root FilterNode
	}
)

// ParseFacetFilters parse expr, syntax errors wrap ErrBadFilter
func ParseFacetFilters(expr string) (*FacetFilters, error) {
	p := &filterParser{src: expr}
	if err := p.lex(); err != nil {
		return nil, err
	}
	if len(p.tokens) == 0 {
		return nil, fmt.Errorf("empty expression %w", ErrBadFilter)
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, p.errorf("end of expression")
	}
	return &FacetFilters{Root: root}, nil
}

func (f *FacetFilters) String() string {
	return f.Root.String()
}

// FacetFiltersQuery compile the filter against a schema
func FacetFiltersQuery(schema Schema, ta TextAnalysis, f *FacetFilters) (Query, error) {
	if f == nil || f.Root == nil {
		return nil, nil
	}
	return f.Root.compile(schema, ta)
}

func joinNodes(nodes []FilterNode, op string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return op + "(" + strings.Join(parts, ", ") + ")"
}

func (n *FilterAnd) String() string { return joinNodes(n.Children, "and") }
func (n *FilterOr) String() string  { return joinNodes(n.Children, "or") }
func (n *FilterNot) String() string { return "not(" + n.Child.String() + ")" }

func (n *FilterEquals) String() string {
	op := " = "
	if n.Negate {
		op = " != "
	}
	return n.Property + op + strconv.Quote(n.Value)
}

func (n *FilterContains) String() string {
	prop := n.Property
	if len(prop) == 0 {
		prop = "."
	}
	return "contains(" + prop + ", " + strconv.Quote(n.Text) + ")"
}

func (n *FilterAnd) compile(schema Schema, ta TextAnalysis) (Query, error) {
	bq := NewBooleanQuery()
	for _, c := range n.Children {
		q, err := c.compile(schema, ta)
		if err != nil {
			return nil, err
		}
		bq.Must(q)
	}
	return bq, nil
}

func (n *FilterOr) compile(schema Schema, ta TextAnalysis) (Query, error) {
	bq := NewBooleanQuery()
	for _, c := range n.Children {
		q, err := c.compile(schema, ta)
		if err != nil {
			return nil, err
		}
		bq.Should(q)
	}
	return bq, nil
}

func (n *FilterNot) compile(schema Schema, ta TextAnalysis) (Query, error) {
	q, err := n.Child.compile(schema, ta)
	if err != nil {
		return nil, err
	}
	return NewBooleanQuery().Must(MatchAllQuery{}).MustNot(q), nil
}

func (n *FilterEquals) compile(schema Schema, _ TextAnalysis) (Query, error) {
	internal, err := schema.InternalName(n.Property)
	if err != nil {
		return nil, err
	}
	term, err := index.EncodeValue(propertyType(schema, internal), n.Value)
	if err != nil {
		return nil, fmt.Errorf("property:%s %w", n.Property, err)
	}
	q := NewTermQuery(internal, term)
	if !n.Negate {
		return q, nil
	}
	// != only selects documents that have the property
	return NewBooleanQuery().Must(FacetPropExistsQuery(internal)).MustNot(q), nil
}

func (n *FilterContains) compile(schema Schema, ta TextAnalysis) (Query, error) {
	field := index.FieldFulltext
	if len(n.Property) > 0 {
		internal, err := schema.InternalName(n.Property)
		if err != nil {
			return nil, err
		}
		field = index.FulltextField(internal)
	}
	return TextQuery(ta, field, n.Text)
}

type (
	filterTokenKind int

	filterToken struct {
		kind filterTokenKind
		text string
		pos  int
	}

	filterParser struct {
		src    string
		tokens []filterToken
		pos    int
	}
)

const (
	tokWord filterTokenKind = iota
	tokString
	tokLParen
	tokRParen
	tokComma
	tokEq
	tokNotEq
)

func (p *filterParser) lex() error {
	rs := []rune(p.src)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			p.tokens = append(p.tokens, filterToken{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			p.tokens = append(p.tokens, filterToken{kind: tokRParen, text: ")", pos: i})
			i++
		case r == ',':
			p.tokens = append(p.tokens, filterToken{kind: tokComma, text: ",", pos: i})
			i++
		case r == '=':
			p.tokens = append(p.tokens, filterToken{kind: tokEq, text: "=", pos: i})
			i++
		case r == '!':
			if i+1 >= len(rs) || rs[i+1] != '=' {
				return fmt.Errorf("expr:%q stray '!' at %d %w", p.src, i, ErrBadFilter)
			}
			p.tokens = append(p.tokens, filterToken{kind: tokNotEq, text: "!=", pos: i})
			i += 2
		case r == '\'' || r == '"':
			sb := &strings.Builder{}
			j := i + 1
			for ; j < len(rs); j++ {
				if rs[j] != r {
					sb.WriteRune(rs[j])
					continue
				}
				// doubled quote escapes itself
				if j+1 < len(rs) && rs[j+1] == r {
					sb.WriteRune(r)
					j++
					continue
				}
				break
			}
			if j >= len(rs) {
				return fmt.Errorf("expr:%q unterminated string at %d %w", p.src, i, ErrBadFilter)
			}
			p.tokens = append(p.tokens, filterToken{kind: tokString, text: sb.String(), pos: i})
			i = j + 1
		default:
			j := i
			for j < len(rs) && !unicode.IsSpace(rs[j]) && !strings.ContainsRune("(),=!'\"", rs[j]) {
				j++
			}
			p.tokens = append(p.tokens, filterToken{kind: tokWord, text: string(rs[i:j]), pos: i})
			i = j
		}
	}
	return nil
}

func (p *filterParser) peek() *filterToken {
	if p.pos < len(p.tokens) {
		return &p.tokens[p.pos]
	}
	return nil
}

func (p *filterParser) peekKeyword(kw string) bool {
	t := p.peek()
	return t != nil && t.kind == tokWord && strings.EqualFold(t.text, kw)
}

// peekCall keyword directly followed by '('
func (p *filterParser) peekCall(kw string) bool {
	return p.peekKeyword(kw) && p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].kind == tokLParen
}

func (p *filterParser) expect(kind filterTokenKind, want string) (*filterToken, error) {
	t := p.peek()
	if t == nil || t.kind != kind {
		return nil, p.errorf(want)
	}
	p.pos++
	return t, nil
}

func (p *filterParser) errorf(want string) error {
	if t := p.peek(); t != nil {
		return fmt.Errorf("expr:%q want %s at %d, got %q %w", p.src, want, t.pos, t.text, ErrBadFilter)
	}
	return fmt.Errorf("expr:%q want %s, got end of expression %w", p.src, want, ErrBadFilter)
}

func (p *filterParser) parseOr() (FilterNode, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []FilterNode{first}
	for p.peekKeyword("or") {
		p.pos++
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &FilterOr{Children: children}, nil
}

func (p *filterParser) parseAnd() (FilterNode, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	children := []FilterNode{first}
	for p.peekKeyword("and") {
		p.pos++
		next, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &FilterAnd{Children: children}, nil
}

func (p *filterParser) parseUnary() (FilterNode, error) {
	t := p.peek()
	if t == nil {
		return nil, p.errorf("expression")
	}
	switch {
	case t.kind == tokLParen:
		p.pos++
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err = p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return node, nil
	case p.peekCall("not"):
		args, err := p.parseArgs(1, 1)
		if err != nil {
			return nil, err
		}
		return &FilterNot{Child: args[0]}, nil
	case p.peekCall("and"):
		args, err := p.parseArgs(1, -1)
		if err != nil {
			return nil, err
		}
		return &FilterAnd{Children: args}, nil
	case p.peekCall("or"):
		args, err := p.parseArgs(1, -1)
		if err != nil {
			return nil, err
		}
		return &FilterOr{Children: args}, nil
	case p.peekCall("equals"):
		prop, value, err := p.parsePair(false)
		if err != nil {
			return nil, err
		}
		return &FilterEquals{Property: prop, Value: value}, nil
	case p.peekCall("contains"):
		prop, text, err := p.parsePair(true)
		if err != nil {
			return nil, err
		}
		return &FilterContains{Property: prop, Text: text}, nil
	}
	return p.parseComparison()
}

// parseArgs keyword '(' expr {',' expr} ')'
func (p *filterParser) parseArgs(least, most int) ([]FilterNode, error) {
	p.pos += 2
	var args []FilterNode
	for {
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, node)
		if t := p.peek(); t != nil && t.kind == tokComma {
			p.pos++
			continue
		}
		break
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	if len(args) < least || (most > 0 && len(args) > most) {
		return nil, fmt.Errorf("expr:%q wrong argument count:%d %w", p.src, len(args), ErrBadFilter)
	}
	return args, nil
}

// parsePair keyword '(' property ',' value ')'
func (p *filterParser) parsePair(allowDot bool) (string, string, error) {
	p.pos += 2
	prop, err := p.parseProperty(allowDot)
	if err != nil {
		return "", "", err
	}
	if _, err = p.expect(tokComma, "','"); err != nil {
		return "", "", err
	}
	value, err := p.parseValue()
	if err != nil {
		return "", "", err
	}
	if _, err = p.expect(tokRParen, "')'"); err != nil {
		return "", "", err
	}
	return prop, value, nil
}

func (p *filterParser) parseProperty(allowDot bool) (string, error) {
	t, err := p.expect(tokWord, "property name")
	if err != nil {
		return "", err
	}
	name := strings.TrimPrefix(t.text, "@")
	if name == "." {
		if allowDot {
			return "", nil
		}
		return "", fmt.Errorf("expr:%q '.' not allowed at %d %w", p.src, t.pos, ErrBadFilter)
	}
	if _, _, err = index.SplitName(name); err != nil {
		return "", fmt.Errorf("expr:%q %w", p.src, err)
	}
	return name, nil
}

func (p *filterParser) parseValue() (string, error) {
	t := p.peek()
	if t == nil || (t.kind != tokWord && t.kind != tokString) {
		return "", p.errorf("value")
	}
	p.pos++
	return t.text, nil
}

func (p *filterParser) parseComparison() (FilterNode, error) {
	prop, err := p.parseProperty(false)
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t == nil || (t.kind != tokEq && t.kind != tokNotEq) {
		return nil, p.errorf("'=' or '!='")
	}
	p.pos++
	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return &FilterEquals{Property: prop, Value: value, Negate: t.kind == tokNotEq}, nil
}
