package facetnav

import (
	"time"

	"github.com/echoface/facetnav/analysis"
	"github.com/echoface/facetnav/doccache"
)

// DefaultLimit page size used when a search asks for no positive limit
const DefaultLimit = 1000

type (
	// Option configures an Engine
	Option func(*options)

	options struct {
		logger              Logger
		strategy            DocSetStrategy
		uncached            bool
		docSetCacheSize     int
		facetCountCacheSize int
		analyzer            analysis.Analyzer
		synonyms            analysis.SynonymProvider
		now                 func() time.Time
		metrics             *Metrics
		defaultLimit        int
	}
)

func defaultOptions() options {
	return options{
		docSetCacheSize:     doccache.DefaultDocSetCacheSize,
		facetCountCacheSize: doccache.DefaultFacetCountCacheSize,
		synonyms:            analysis.NoSynonyms,
		now:                 time.Now,
		defaultLimit:        DefaultLimit,
	}
}

// WithLogger logger of this engine instead of the package wide one
func WithLogger(l Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithStrategy replace the document set strategy
func WithStrategy(s DocSetStrategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// WithoutCache shorthand for WithStrategy(UncachedStrategy{})
func WithoutCache() Option {
	return func(o *options) {
		o.uncached = true
	}
}

func WithDocSetCacheSize(n int) Option {
	return func(o *options) {
		o.docSetCacheSize = n
	}
}

func WithFacetCountCacheSize(n int) Option {
	return func(o *options) {
		o.facetCountCacheSize = n
	}
}

// WithAnalyzer analyzer for free text, filters and jcr:contains; it must
// match the analyzer the index was built with
func WithAnalyzer(a analysis.Analyzer) Option {
	return func(o *options) {
		o.analyzer = a
	}
}

func WithSynonyms(s analysis.SynonymProvider) Option {
	return func(o *options) {
		o.synonyms = s
	}
}

// WithClock "now" used to anchor relative date ranges
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func WithDefaultLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.defaultLimit = n
		}
	}
}
