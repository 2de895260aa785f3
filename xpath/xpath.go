// Package xpath parses and compiles the subset of JCR XPath used by
// navigation queries:
//
//	//*[@ns:status = 'published']
//	/jcr:root//element(*, ns:document)[jcr:contains(., 'report') and @ns:year >= 2020]
//	//element(*, ns:news)[jcr:like(@ns:title, 'Annual%')] order by @ns:date descending, jcr:score()
//
// Location paths other than the descendant axis from the root are not
// supported, neither are functions other than not(), jcr:contains() and
// jcr:like().
package xpath

import (
	"github.com/pkg/errors"

	"github.com/echoface/facetnav/index"
	"github.com/echoface/facetnav/query"
)

var (
	ErrSyntax      = errors.New("xpath syntax error")
	ErrUnsupported = errors.New("unsupported xpath construct")
)

type compiler struct {
	schema query.Schema
	ta     query.TextAnalysis
}

// Compile translate a parsed expression into a query and its sort. An
// expression without constraints selects all documents.
func Compile(expr *Expr, schema query.Schema, ta query.TextAnalysis) (query.Query, query.Sort, error) {
	c := &compiler{schema: schema, ta: ta}
	var parts []query.Query
	if len(expr.NodeType) > 0 {
		q, err := query.PrimaryTypeQuery(schema, expr.NodeType)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "xpath:%q node type", expr.Raw)
		}
		parts = append(parts, q)
	}
	if expr.Predicate != nil {
		q, err := c.compile(expr.Predicate)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "xpath:%q predicate", expr.Raw)
		}
		parts = append(parts, q)
	}
	q := query.And(parts...)
	if q == nil {
		q = query.MatchAllQuery{}
	}

	var sort query.Sort
	for _, o := range expr.OrderBy {
		if o.Score {
			sort = append(sort, query.SortField{Field: query.FieldScore, Reverse: o.Descending})
			continue
		}
		internal, err := schema.InternalName(o.Property)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "xpath:%q order by", expr.Raw)
		}
		sort = append(sort, query.SortField{Field: internal, Reverse: o.Descending})
	}
	return q, sort, nil
}

// ParseAndCompile convenience for Parse followed by Compile
func ParseAndCompile(src string, schema query.Schema, ta query.TextAnalysis) (query.Query, query.Sort, error) {
	expr, err := Parse(src)
	if err != nil {
		return nil, nil, err
	}
	return Compile(expr, schema, ta)
}

func (c *compiler) compile(n Node) (query.Query, error) {
	switch node := n.(type) {
	case *AndNode:
		bq := query.NewBooleanQuery()
		for _, child := range node.Children {
			q, err := c.compile(child)
			if err != nil {
				return nil, err
			}
			bq.Must(q)
		}
		return bq, nil
	case *OrNode:
		bq := query.NewBooleanQuery()
		for _, child := range node.Children {
			q, err := c.compile(child)
			if err != nil {
				return nil, err
			}
			bq.Should(q)
		}
		return bq, nil
	case *NotNode:
		q, err := c.compile(node.Child)
		if err != nil {
			return nil, err
		}
		return query.NewBooleanQuery().Must(query.MatchAllQuery{}).MustNot(q), nil
	case *ExistsNode:
		internal, err := c.schema.InternalName(node.Property)
		if err != nil {
			return nil, err
		}
		return query.FacetPropExistsQuery(internal), nil
	case *CompareNode:
		return c.compare(node)
	case *ContainsNode:
		field := index.FieldFulltext
		if len(node.Property) > 0 {
			internal, err := c.schema.InternalName(node.Property)
			if err != nil {
				return nil, err
			}
			field = index.FulltextField(internal)
		}
		return query.ParseFreeTextField(c.ta, field, node.Text)
	case *LikeNode:
		internal, err := c.schema.InternalName(node.Property)
		if err != nil {
			return nil, err
		}
		return newLikeQuery(internal, node.Pattern), nil
	}
	return nil, errors.Wrapf(ErrUnsupported, "node %T", n)
}

func (c *compiler) compare(node *CompareNode) (query.Query, error) {
	internal, err := c.schema.InternalName(node.Property)
	if err != nil {
		return nil, err
	}
	t, ok := c.schema.PropertyType(internal)
	if !ok {
		t = index.TypeString
	}
	term, err := index.EncodeValue(t, node.Value)
	if err != nil {
		return nil, errors.Wrapf(err, "@%s %s", node.Property, node.Op)
	}
	switch node.Op {
	case "=":
		return query.NewTermQuery(internal, term), nil
	case "!=":
		return query.NewBooleanQuery().
			Must(query.FacetPropExistsQuery(internal)).
			MustNot(query.NewTermQuery(internal, term)), nil
	case "<", "<=":
		rq := query.NewRangeQuery(internal, "", term, false, true)
		rq.IncludeUpper = node.Op == "<="
		return rq, nil
	case ">", ">=":
		rq := query.NewRangeQuery(internal, term, "", true, false)
		rq.IncludeLower = node.Op == ">="
		return rq, nil
	}
	return nil, errors.Wrapf(ErrUnsupported, "operator %s", node.Op)
}
