package facetnav

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/echoface/facetnav/analysis"
	"github.com/echoface/facetnav/index"
	"github.com/echoface/facetnav/query"
	"github.com/echoface/facetnav/util"
	"github.com/echoface/facetnav/xpath"
)

// DocbaseFilterDelimiter separates the scope ids of a docbase query from its
// facet filter expression: `uuid1,uuid2{}ns:status = published`
const DocbaseFilterDelimiter = "{}"

type Language int

const (
	LanguageFreeText Language = iota
	LanguageXPath
	LanguageSQL
	LanguageScope
)

var scopeIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

func (l Language) String() string {
	switch l {
	case LanguageXPath:
		return "xpath"
	case LanguageSQL:
		return "sql"
	case LanguageScope:
		return "scope"
	}
	return "text"
}

type (
	// Query one parsed navigation query. Only free text is compiled while
	// parsing; the other languages compile on first use against an index.
	Query struct {
		raw       string
		language  Language
		statement string

		// scope queries
		scopeIDs []string
		filters  *query.FacetFilters

		// free text, compiled eagerly
		text query.Query

		mu       sync.Mutex
		compiled *compiledQuery
	}

	compiledQuery struct {
		cc    *CompileContext
		query query.Query
		sort  query.Sort
	}

	// CompileContext request scoped compile environment: the schema of the
	// reader serving the request and the text analysis of the engine
	CompileContext struct {
		Schema query.Schema
		Text   query.TextAnalysis
	}
)

var (
	defaultTextOnce sync.Once
	defaultText     query.TextAnalysis
)

func defaultTextAnalysis() query.TextAnalysis {
	defaultTextOnce.Do(func() {
		defaultText = query.TextAnalysis{Analyzer: analysis.MustBleveAnalyzer(), Synonyms: analysis.NoSynonyms}
	})
	return defaultText
}

// Parse parse with the default analyzer and no synonyms
func Parse(s string) (*Query, error) {
	return ParseWith(s, defaultTextAnalysis())
}

// ParseWith parse s, errors wrap ErrIllegalArgument
func ParseWith(s string, ta query.TextAnalysis) (*Query, error) {
	q := &Query{raw: s}
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)

	for prefix, lang := range map[string]Language{"xpath(": LanguageXPath, "sql(": LanguageSQL} {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		if !strings.HasSuffix(trimmed, ")") {
			return nil, illegalArgument(fmt.Errorf("missing ')'"), "query:%q", s)
		}
		q.language = lang
		q.statement = strings.TrimSpace(trimmed[len(prefix) : len(trimmed)-1])
		if len(q.statement) == 0 {
			return nil, illegalArgument(fmt.Errorf("empty %s statement", lang), "query:%q", s)
		}
		return q, nil
	}

	if ids, ok, err := parseScopeIDs(trimmed); ok {
		if err != nil {
			return nil, illegalArgument(err, "query:%q", s)
		}
		q.language = LanguageScope
		q.scopeIDs = ids
		if _, filter, found := strings.Cut(trimmed, DocbaseFilterDelimiter); found && len(strings.TrimSpace(filter)) > 0 {
			q.statement = strings.TrimSpace(filter)
			if q.filters, err = query.ParseFacetFilters(q.statement); err != nil {
				return nil, illegalArgument(err, "query:%q", s)
			}
		}
		return q, nil
	}

	text, err := query.ParseFreeText(ta, trimmed)
	if err != nil {
		return nil, illegalArgument(err, "query:%q", s)
	}
	q.language = LanguageFreeText
	q.statement = trimmed
	q.text = text
	return q, nil
}

// parseScopeIDs ok reports whether s has the shape of a scope query
func parseScopeIDs(s string) (ids []string, ok bool, err error) {
	head, _, _ := strings.Cut(s, DocbaseFilterDelimiter)
	parts := strings.Split(head, ",")
	for _, p := range parts {
		if !scopeIDPattern.MatchString(strings.TrimSpace(p)) {
			return nil, false, nil
		}
	}
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		id, err := index.NormalizeUUID(strings.TrimSpace(p))
		if err != nil {
			return nil, true, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, true, nil
}

func (q *Query) Language() Language {
	return q.language
}

// Statement xpath/sql statement, filter expression of a scope query or the free text
func (q *Query) Statement() string {
	return q.statement
}

// ScopeIDs normalized ids of a scope query in input order
func (q *Query) ScopeIDs() []string {
	return q.scopeIDs
}

// FacetFilters filter expression of a scope query, nil when absent
func (q *Query) FacetFilters() *query.FacetFilters {
	return q.filters
}

func (q *Query) String() string {
	return q.raw
}

// LuceneQueryAndSort compile the query for cc. Later calls with the same
// context return the first result. A nil query means no constraint.
func (q *Query) LuceneQueryAndSort(cc *CompileContext) (query.Query, query.Sort, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.compiled != nil && q.compiled.cc == cc {
		return q.compiled.query, q.compiled.sort, nil
	}
	compiled, sort, err := q.compile(cc)
	if err != nil {
		return nil, nil, err
	}
	q.compiled = &compiledQuery{cc: cc, query: compiled, sort: sort}
	return compiled, sort, nil
}

func (q *Query) compile(cc *CompileContext) (query.Query, query.Sort, error) {
	switch q.language {
	case LanguageFreeText:
		return q.text, nil, nil
	case LanguageXPath:
		expr, err := xpath.Parse(q.statement)
		if err != nil {
			return nil, nil, illegalArgument(err, "xpath:%q", q.statement)
		}
		compiled, sort, err := xpath.Compile(expr, cc.Schema, cc.Text)
		if err != nil {
			return nil, nil, illegalArgument(err, "xpath:%q", q.statement)
		}
		return compiled, sort, nil
	case LanguageSQL:
		util.LogWarn("sql queries are not supported, ignoring:%q", q.statement)
		return nil, nil, nil
	case LanguageScope:
		filter, err := q.compileFilters(cc)
		if err != nil {
			return nil, nil, err
		}
		return query.And(query.ScopeQuery(q.scopeIDs), filter), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown query language:%d", q.language)
}

// compileFilters the facet filter of a scope query, nil when absent
func (q *Query) compileFilters(cc *CompileContext) (query.Query, error) {
	if q.filters == nil {
		return nil, nil
	}
	compiled, err := query.FacetFiltersQuery(cc.Schema, cc.Text, q.filters)
	if err != nil {
		return nil, illegalArgument(err, "filter:%q", q.statement)
	}
	return compiled, nil
}
