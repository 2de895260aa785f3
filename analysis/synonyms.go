package analysis

import (
	"sort"
	"strings"
)

type (
	// SynonymProvider expand one analyzed term into its synonyms,
	// the term itself is not part of the returned list
	SynonymProvider interface {
		Synonyms(term string) []string
	}

	// MapSynonyms symmetric synonym groups keyed by lowercase term
	MapSynonyms struct {
		groups map[string][]string
	}

	noSynonyms struct{}
)

// NoSynonyms provider that never expands
var NoSynonyms SynonymProvider = noSynonyms{}

func (noSynonyms) Synonyms(string) []string { return nil }

// NewMapSynonyms build provider from "word -> alternatives"; every relation is
// made symmetric so "car -> auto" also gives "auto -> car"
func NewMapSynonyms(def map[string][]string) *MapSynonyms {
	sets := map[string]map[string]struct{}{}
	link := func(a, b string) {
		if a == b {
			return
		}
		s, ok := sets[a]
		if !ok {
			s = map[string]struct{}{}
			sets[a] = s
		}
		s[b] = struct{}{}
	}
	for word, alternatives := range def {
		w := strings.ToLower(strings.TrimSpace(word))
		for _, alt := range alternatives {
			alt = strings.ToLower(strings.TrimSpace(alt))
			if len(w) == 0 || len(alt) == 0 {
				continue
			}
			link(w, alt)
			link(alt, w)
		}
	}
	groups := make(map[string][]string, len(sets))
	for w, set := range sets {
		list := make([]string, 0, len(set))
		for alt := range set {
			list = append(list, alt)
		}
		sort.Strings(list)
		groups[w] = list
	}
	return &MapSynonyms{groups: groups}
}

func (m *MapSynonyms) Synonyms(term string) []string {
	if m == nil {
		return nil
	}
	return m.groups[term]
}
