package xpath

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/echoface/facetnav/index"
)

type (
	// Node predicate expression node
	Node interface {
		String() string
	}

	AndNode struct{ Children []Node }
	OrNode  struct{ Children []Node }
	NotNode struct{ Child Node }

	// CompareNode @Property Op Value, Op one of = != < <= > >=
	CompareNode struct {
		Property string
		Op       string
		Value    string
	}

	ExistsNode struct{ Property string }

	// ContainsNode jcr:contains, empty Property is the context node (.)
	ContainsNode struct {
		Property string
		Text     string
	}

	// LikeNode jcr:like with % and _ wildcards
	LikeNode struct {
		Property string
		Pattern  string
	}

	OrderSpec struct {
		// Property qualified name, empty when ordering by score
		Property   string
		Score      bool
		Descending bool
	}

	// Expr parsed `//element(*, type)[predicate] order by ...`
	Expr struct {
		Raw       string
		NodeType  string
		Predicate Node
		OrderBy   []OrderSpec
	}

	parser struct {
		src    string
		tokens []token
		pos    int
	}
)

// Parse syntax check and parse the supported xpath subset
func Parse(src string) (*Expr, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, errors.Wrapf(err, "xpath:%q", src)
	}
	p := &parser{src: src, tokens: tokens}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, errors.Wrapf(err, "xpath:%q", src)
	}
	expr.Raw = src
	return expr, nil
}

func (e *Expr) String() string {
	sb := &strings.Builder{}
	if len(e.NodeType) > 0 {
		sb.WriteString("//element(*, " + e.NodeType + ")")
	} else {
		sb.WriteString("//*")
	}
	if e.Predicate != nil {
		sb.WriteString("[" + e.Predicate.String() + "]")
	}
	for i, o := range e.OrderBy {
		if i == 0 {
			sb.WriteString(" order by ")
		} else {
			sb.WriteString(", ")
		}
		if o.Score {
			sb.WriteString("jcr:score()")
		} else {
			sb.WriteString("@" + o.Property)
		}
		if o.Descending {
			sb.WriteString(" descending")
		}
	}
	return sb.String()
}

func joinNodes(nodes []Node, op string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return "(" + strings.Join(parts, " "+op+" ") + ")"
}

func (n *AndNode) String() string    { return joinNodes(n.Children, "and") }
func (n *OrNode) String() string     { return joinNodes(n.Children, "or") }
func (n *NotNode) String() string    { return "not(" + n.Child.String() + ")" }
func (n *ExistsNode) String() string { return "@" + n.Property }

func (n *CompareNode) String() string {
	return "@" + n.Property + " " + n.Op + " " + quote(n.Value)
}

func (n *LikeNode) String() string {
	return "jcr:like(@" + n.Property + ", " + quote(n.Pattern) + ")"
}

func (n *ContainsNode) String() string {
	return "jcr:contains(" + contextName(n.Property) + ", " + quote(n.Text) + ")"
}

func contextName(prop string) string {
	if len(prop) == 0 {
		return "."
	}
	return "@" + prop
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (p *parser) peek() *token {
	return &p.tokens[p.pos]
}

func (p *parser) next() *token {
	t := &p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(kind tokenKind) bool {
	if p.peek().kind == kind {
		p.pos++
		return true
	}
	return false
}

func (p *parser) acceptName(name string) bool {
	if t := p.peek(); t.kind == tokName && t.text == name {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(kind tokenKind, want string) (*token, error) {
	if p.peek().kind != kind {
		return nil, p.errorf(want)
	}
	return p.next(), nil
}

func (p *parser) errorf(want string) error {
	t := p.peek()
	if t.kind == tokEOF {
		return errors.Wrapf(ErrSyntax, "want %s, got end of input", want)
	}
	return errors.Wrapf(ErrSyntax, "want %s at %d, got %q", want, t.pos, t.text)
}

func (p *parser) parseExpr() (*Expr, error) {
	expr := &Expr{}
	if p.accept(tokSlash) {
		if !p.acceptName("jcr:root") {
			return nil, p.errorf("jcr:root")
		}
	}
	if !p.accept(tokDoubleSlash) {
		if p.peek().kind == tokSlash {
			return nil, errors.Wrap(ErrUnsupported, "path steps")
		}
		return nil, p.errorf("'//'")
	}
	switch t := p.peek(); {
	case t.kind == tokStar:
		p.next()
	case t.kind == tokName && t.text == "element":
		p.next()
		nodeType, err := p.parseElementTest()
		if err != nil {
			return nil, err
		}
		expr.NodeType = nodeType
	case t.kind == tokName:
		return nil, errors.Wrapf(ErrUnsupported, "named step %q", t.text)
	default:
		return nil, p.errorf("'*' or element()")
	}

	if p.accept(tokLBracket) {
		pred, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err = p.expect(tokRBracket, "']'"); err != nil {
			return nil, err
		}
		expr.Predicate = pred
	}
	if p.peek().kind == tokSlash || p.peek().kind == tokDoubleSlash {
		return nil, errors.Wrap(ErrUnsupported, "path steps")
	}

	if p.acceptName("order") {
		if !p.acceptName("by") {
			return nil, p.errorf("'by'")
		}
		for {
			spec, err := p.parseOrderSpec()
			if err != nil {
				return nil, err
			}
			expr.OrderBy = append(expr.OrderBy, spec)
			if !p.accept(tokComma) {
				break
			}
		}
	}
	if p.peek().kind != tokEOF {
		return nil, p.errorf("end of input")
	}
	return expr, nil
}

// parseElementTest `(*, prefix:type)` or `(*)` after element
func (p *parser) parseElementTest() (string, error) {
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return "", err
	}
	if _, err := p.expect(tokStar, "'*'"); err != nil {
		return "", err
	}
	nodeType := ""
	if p.accept(tokComma) {
		t, err := p.expect(tokName, "node type")
		if err != nil {
			return "", err
		}
		nodeType = t.text
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return "", err
	}
	return nodeType, nil
}

func (p *parser) parseOrderSpec() (OrderSpec, error) {
	var spec OrderSpec
	switch {
	case p.accept(tokAt):
		t, err := p.expect(tokName, "property name")
		if err != nil {
			return spec, err
		}
		spec.Property = t.text
	case p.acceptName("jcr:score"):
		if _, err := p.expect(tokLParen, "'('"); err != nil {
			return spec, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return spec, err
		}
		spec.Score = true
	default:
		return spec, p.errorf("order by key")
	}
	if p.acceptName("descending") {
		spec.Descending = true
	} else {
		p.acceptName("ascending")
	}
	return spec, nil
}

func (p *parser) parseOr() (Node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []Node{first}
	for p.acceptName("or") {
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &OrNode{Children: children}, nil
}

func (p *parser) parseAnd() (Node, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	children := []Node{first}
	for p.acceptName("and") {
		next, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &AndNode{Children: children}, nil
}

func (p *parser) parseUnary() (Node, error) {
	t := p.peek()
	switch {
	case t.kind == tokLParen:
		p.next()
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err = p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return node, nil
	case t.kind == tokAt:
		return p.parseComparison()
	case t.kind == tokName:
		return p.parseFunction()
	}
	return nil, p.errorf("predicate")
}

func (p *parser) parseProperty() (string, error) {
	if _, err := p.expect(tokAt, "'@'"); err != nil {
		return "", err
	}
	t, err := p.expect(tokName, "property name")
	if err != nil {
		return "", err
	}
	if _, _, err = index.SplitName(t.text); err != nil {
		return "", errors.Wrapf(ErrSyntax, "property %q: %v", t.text, err)
	}
	return t.text, nil
}

func (p *parser) parseComparison() (Node, error) {
	prop, err := p.parseProperty()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokOp {
		return &ExistsNode{Property: prop}, nil
	}
	op := p.next().text
	value, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return &CompareNode{Property: prop, Op: op, Value: value}, nil
}

// parseLiteral string, number, or xs:dateTime('...')
func (p *parser) parseLiteral() (string, error) {
	t := p.peek()
	switch {
	case t.kind == tokString || t.kind == tokNumber:
		p.next()
		if t.kind == tokNumber {
			if _, err := strconv.ParseFloat(t.text, 64); err != nil {
				return "", errors.Wrapf(ErrSyntax, "number %q at %d", t.text, t.pos)
			}
		}
		return t.text, nil
	case t.kind == tokName && (t.text == "xs:dateTime" || t.text == "xs:date"):
		p.next()
		if _, err := p.expect(tokLParen, "'('"); err != nil {
			return "", err
		}
		s, err := p.expect(tokString, "date string")
		if err != nil {
			return "", err
		}
		if _, err = p.expect(tokRParen, "')'"); err != nil {
			return "", err
		}
		if _, err = index.ParseDate(s.text); err != nil {
			return "", errors.Wrapf(ErrSyntax, "date %q: %v", s.text, err)
		}
		return s.text, nil
	case t.kind == tokName && (t.text == "true" || t.text == "false"):
		p.next()
		if _, err := p.expect(tokLParen, "'('"); err != nil {
			return "", err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return "", err
		}
		return t.text, nil
	}
	return "", p.errorf("literal")
}

func (p *parser) parseFunction() (Node, error) {
	name := p.next().text
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	var node Node
	switch name {
	case "not":
		child, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		node = &NotNode{Child: child}
	case "jcr:contains":
		prop := ""
		if !p.accept(tokDot) {
			var err error
			if prop, err = p.parseProperty(); err != nil {
				return nil, err
			}
		}
		text, err := p.parseStringArg()
		if err != nil {
			return nil, err
		}
		node = &ContainsNode{Property: prop, Text: text}
	case "jcr:like":
		prop, err := p.parseProperty()
		if err != nil {
			return nil, err
		}
		pattern, err := p.parseStringArg()
		if err != nil {
			return nil, err
		}
		node = &LikeNode{Property: prop, Pattern: pattern}
	default:
		return nil, errors.Wrapf(ErrUnsupported, "function %s()", name)
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *parser) parseStringArg() (string, error) {
	if _, err := p.expect(tokComma, "','"); err != nil {
		return "", err
	}
	t, err := p.expect(tokString, "string")
	if err != nil {
		return "", err
	}
	return t.text, nil
}
