package facetnav

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/echoface/facetnav/facet"
	"github.com/echoface/facetnav/index"
	"github.com/echoface/facetnav/query"
)

type (
	// FacetValue one selected facet value of the drill path
	FacetValue = query.FacetValue

	// OrderBy caller supplied sort key, Property is a qualified name
	OrderBy struct {
		Property   string `json:"property" yaml:"property"`
		Descending bool   `json:"descending,omitempty" yaml:"descending,omitempty"`
	}

	// HitsRequested what the caller wants back besides counts
	HitsRequested struct {
		// ResultRequested false only asks for the cardinality
		ResultRequested bool      `json:"resultRequested" yaml:"resultRequested"`
		Offset          int       `json:"offset,omitempty" yaml:"offset,omitempty"`
		Limit           int       `json:"limit,omitempty" yaml:"limit,omitempty"`
		FixedDrillPath  bool      `json:"fixedDrillPath,omitempty" yaml:"fixedDrillPath,omitempty"`
		OrderBy         []OrderBy `json:"orderBy,omitempty" yaml:"orderBy,omitempty"`
	}

	// ViewRequest one navigation request
	ViewRequest struct {
		// Initial docbase query; scope ids restrict the documents, its facet
		// filter is applied like the open query
		Initial *Query
		// Facets exact facet constraints of the drill path
		Facets []FacetValue
		// Ranges selected range buckets
		Ranges []*facet.Range
		// Open free form query narrowing the view, may carry a sort
		Open *Query
		// InheritedFilters property -> values handed down by parent nodes
		InheritedFilters map[string][]string
		Hits             *HitsRequested

		// FacetCounts selects counting mode: facet definition -> value counts
		// to fill. Only one facet per request is supported.
		FacetCounts map[string]map[string]*Count
	}

	// AuthorizationQuerier authorization as a query to AND in
	AuthorizationQuerier interface {
		AuthorizationQuery() query.Query
	}

	// AuthorizationFilterer authorization as a precomputed document set
	AuthorizationFilterer interface {
		AuthorizationFilter(r index.Reader) (*roaring.Bitmap, error)
	}

	// Context caller identity of one request
	Context struct {
		UserID string
		// Authorization implements AuthorizationFilterer, AuthorizationQuerier
		// or both; nil means unrestricted. The filter form is preferred.
		Authorization interface{}
	}

	// Authorization static authorization in both forms
	Authorization struct {
		Query  query.Query
		Filter func(r index.Reader) (*roaring.Bitmap, error)
	}
)

func (a *Authorization) AuthorizationQuery() query.Query {
	return a.Query
}

func (a *Authorization) AuthorizationFilter(r index.Reader) (*roaring.Bitmap, error) {
	if a.Filter == nil {
		return nil, nil
	}
	return a.Filter(r)
}

// NewCountRequest counting mode request map for a single facet
func NewCountRequest(facetDef string) map[string]map[string]*Count {
	return map[string]map[string]*Count{facetDef: {}}
}

func (req *ViewRequest) mode() string {
	switch {
	case req.FacetCounts != nil:
		return "count"
	case req.Hits == nil || !req.Hits.ResultRequested:
		return "cardinality"
	}
	return "search"
}
