package index

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const (
	// FieldUUID stored + indexed identifier of a document
	FieldUUID = "_:UUID"
	// FieldPath ids of all ancestors of a document, including its own id
	FieldPath = "_:PATH"
	// FieldPrimaryType internal name of the node type
	FieldPrimaryType = "_:PRIMARYTYPE"
	// FieldPropertiesSet internal names of all properties a document carries
	FieldPropertiesSet = "_:PROPERTIES_SET"
	// FieldFulltext analyzed terms of all text of a document
	FieldFulltext = "_:FULLTEXT"

	fulltextFieldPrefix = "_:FULLTEXT:"
)

var (
	ErrUnknownPrefix = errors.New("unknown namespace prefix")
	ErrInvalidName   = errors.New("invalid qualified name")
)

type (
	// NameResolver turns a `prefix:local` JCR name into the internal field
	// name used by the index, e.g. `ns:color` -> `3:color`
	NameResolver interface {
		InternalName(qualified string) (string, error)
	}

	// NamespaceRegistry prefix <-> uri <-> index bookkeeping
	NamespaceRegistry struct {
		mu       sync.RWMutex
		prefixes map[string]int // prefix -> index
		uris     map[string]int // uri -> index
		byIndex  []namespace
	}

	namespace struct {
		Prefix string `yaml:"prefix" json:"prefix"`
		URI    string `yaml:"uri" json:"uri"`
	}
)

// NewNamespaceRegistry contains the empty namespace plus jcr/nt/mix
func NewNamespaceRegistry() *NamespaceRegistry {
	r := &NamespaceRegistry{
		prefixes: map[string]int{},
		uris:     map[string]int{},
	}
	_ = r.Register("", "")
	_ = r.Register("jcr", "http://www.jcp.org/jcr/1.0")
	_ = r.Register("nt", "http://www.jcp.org/jcr/nt/1.0")
	_ = r.Register("mix", "http://www.jcp.org/jcr/mix/1.0")
	return r
}

// Register add a namespace; re-registering the same pair is a no-op,
// remapping an existing prefix or uri is an error
func (r *NamespaceRegistry) Register(prefix, uri string) error {
	if strings.Contains(prefix, ":") {
		return fmt.Errorf("prefix:%s %w", prefix, ErrInvalidName)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	pi, hasPrefix := r.prefixes[prefix]
	ui, hasURI := r.uris[uri]
	switch {
	case hasPrefix && hasURI && pi == ui:
		return nil
	case hasPrefix:
		return fmt.Errorf("prefix:%s already bound to uri:%s", prefix, r.byIndex[pi].URI)
	case hasURI:
		return fmt.Errorf("uri:%s already bound to prefix:%s", uri, r.byIndex[ui].Prefix)
	}
	idx := len(r.byIndex)
	r.byIndex = append(r.byIndex, namespace{Prefix: prefix, URI: uri})
	r.prefixes[prefix] = idx
	r.uris[uri] = idx
	return nil
}

// InternalName implement NameResolver
func (r *NamespaceRegistry) InternalName(qualified string) (string, error) {
	prefix, local, err := SplitName(qualified)
	if err != nil {
		return "", err
	}
	r.mu.RLock()
	idx, ok := r.prefixes[prefix]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("name:%s prefix:%s %w", qualified, prefix, ErrUnknownPrefix)
	}
	return strconv.Itoa(idx) + ":" + local, nil
}

// QualifiedName reverse of InternalName
func (r *NamespaceRegistry) QualifiedName(internal string) (string, error) {
	pos := strings.IndexByte(internal, ':')
	if pos <= 0 {
		return "", fmt.Errorf("internal name:%s %w", internal, ErrInvalidName)
	}
	idx, err := strconv.Atoi(internal[:pos])
	if err != nil {
		return "", fmt.Errorf("internal name:%s %w", internal, ErrInvalidName)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx < 0 || idx >= len(r.byIndex) {
		return "", fmt.Errorf("internal name:%s %w", internal, ErrUnknownPrefix)
	}
	if prefix := r.byIndex[idx].Prefix; len(prefix) > 0 {
		return prefix + ":" + internal[pos+1:], nil
	}
	return internal[pos+1:], nil
}

// Namespaces return registered prefix->uri pairs, sorted by prefix
func (r *NamespaceRegistry) Namespaces() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make(map[string]string, len(r.byIndex))
	for _, ns := range r.byIndex {
		res[ns.Prefix] = ns.URI
	}
	return res
}

func (r *NamespaceRegistry) list() []namespace {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]namespace, len(r.byIndex))
	copy(res, r.byIndex)
	return res
}

// Clone copy registry, a snapshot keeps its own copy so later registrations
// do not leak into an already built index
func (r *NamespaceRegistry) Clone() *NamespaceRegistry {
	c := &NamespaceRegistry{
		prefixes: map[string]int{},
		uris:     map[string]int{},
	}
	for _, ns := range r.list() {
		_ = c.Register(ns.Prefix, ns.URI)
	}
	return c
}

func (r *NamespaceRegistry) String() string {
	ns := r.Namespaces()
	prefixes := make([]string, 0, len(ns))
	for p := range ns {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	sb := &strings.Builder{}
	for i, p := range prefixes {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(sb, "%s=%s", p, ns[p])
	}
	return sb.String()
}

// SplitName split `prefix:local`; a name without colon is in the empty namespace
func SplitName(qualified string) (prefix, local string, err error) {
	if len(qualified) == 0 {
		return "", "", fmt.Errorf("empty name %w", ErrInvalidName)
	}
	pos := strings.IndexByte(qualified, ':')
	if pos < 0 {
		return "", qualified, nil
	}
	prefix, local = qualified[:pos], qualified[pos+1:]
	if len(local) == 0 || strings.ContainsAny(local, ":/[] ") || strings.ContainsAny(prefix, "/[] ") {
		return "", "", fmt.Errorf("name:%s %w", qualified, ErrInvalidName)
	}
	return prefix, local, nil
}

// FulltextField field holding analyzed terms of one property
func FulltextField(internal string) string {
	return fulltextFieldPrefix + internal
}
