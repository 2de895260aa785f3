// Package facet models facets as configured on a navigation node:
// a property name, optionally followed by range buckets or a date grouping.
//
//	ns:color
//	ns:price$[{name:'cheap', resolution:'long', end:10}, {name:'pricey', resolution:'long', begin:10}]
//	ns:published$[{name:'last week', resolution:'day', begin:-7, end:1}]
//	ns:published$year
package facet

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/echoface/facetnav/index"
)

type (
	ParsedFacet struct {
		// Name qualified property name
		Name string
		// Ranges bucket definitions, empty for a plain value facet
		Ranges []*Range
		// Grouping date resolution used to bucket values, empty when none
		Grouping Resolution
	}
)

// ParseFacet parse a facet definition, see package doc for the syntax
func ParseFacet(s string) (*ParsedFacet, error) {
	s = strings.TrimSpace(s)
	name, def, hasDef := strings.Cut(s, "$")
	if _, _, err := index.SplitName(name); err != nil {
		return nil, fmt.Errorf("facet:%q %w", s, err)
	}
	pf := &ParsedFacet{Name: name}
	if !hasDef {
		return pf, nil
	}
	def = strings.TrimSpace(def)
	if !strings.HasPrefix(def, "[") {
		res, err := ParseResolution(def)
		if err != nil {
			return nil, fmt.Errorf("facet:%q %w", s, err)
		}
		if !res.IsDate() {
			return nil, fmt.Errorf("facet:%q grouping needs a date resolution, got:%s", s, res)
		}
		pf.Grouping = res
		return pf, nil
	}
	ranges, err := parseRanges(def)
	if err != nil {
		return nil, fmt.Errorf("facet:%q %w", s, err)
	}
	names := map[string]struct{}{}
	for _, r := range ranges {
		r.Property = name
		if _, dup := names[r.Name]; dup {
			return nil, fmt.Errorf("facet:%q duplicated range name:%s %w", s, r.Name, ErrBadRange)
		}
		names[r.Name] = struct{}{}
		if err = r.Validate(); err != nil {
			return nil, fmt.Errorf("facet:%q %w", s, err)
		}
	}
	pf.Ranges = ranges
	return pf, nil
}

func (pf *ParsedFacet) IsRanged() bool {
	return len(pf.Ranges) > 0
}

// RangeNamed bucket with the given name, nil when absent
func (pf *ParsedFacet) RangeNamed(name string) *Range {
	for _, r := range pf.Ranges {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Key canonical form; two facets with equal keys count the same way
func (pf *ParsedFacet) Key() string {
	if len(pf.Grouping) > 0 {
		return pf.Name + "$" + string(pf.Grouping)
	}
	if len(pf.Ranges) == 0 {
		return pf.Name
	}
	parts := make([]string, len(pf.Ranges))
	for i, r := range pf.Ranges {
		parts[i] = r.Key()
	}
	return pf.Name + "$[" + strings.Join(parts, ",") + "]"
}

func (pf *ParsedFacet) String() string {
	return pf.Key()
}

// rangeParser recursive descent over `[{key:value, ...}, ...]`
type rangeParser struct {
	src string
	pos int
}

func parseRanges(src string) ([]*Range, error) {
	p := &rangeParser{src: src}
	if err := p.expect('['); err != nil {
		return nil, err
	}
	var ranges []*Range
	for {
		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			break
		}
		if len(ranges) > 0 {
			if err := p.expect(','); err != nil {
				return nil, err
			}
		}
		r, err := p.parseObject()
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("unexpected trailing input at %d:%q %w", p.pos, p.src[p.pos:], ErrBadRange)
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("empty range list %w", ErrBadRange)
	}
	return ranges, nil
}

func (p *rangeParser) parseObject() (*Range, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	r := &Range{Resolution: ResolutionString}
	first := true
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			break
		}
		if !first {
			if err := p.expect(','); err != nil {
				return nil, err
			}
		}
		first = false
		key, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		if err = p.expect(':'); err != nil {
			return nil, err
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(key) {
		case "name":
			r.Name = value
		case "resolution":
			if r.Resolution, err = ParseResolution(value); err != nil {
				return nil, err
			}
		case "begin":
			r.Begin = Bound(value)
		case "end":
			r.End = Bound(value)
		default:
			return nil, fmt.Errorf("unknown range key:%q %w", key, ErrBadRange)
		}
	}
	if len(r.Name) == 0 {
		return nil, fmt.Errorf("range without name %w", ErrBadRange)
	}
	return r, nil
}

func (p *rangeParser) parseIdent() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			p.pos++
			continue
		}
		break
	}
	if start == p.pos {
		return "", p.errorf("identifier")
	}
	return p.src[start:p.pos], nil
}

func (p *rangeParser) parseValue() (string, error) {
	p.skipSpace()
	switch c := p.peek(); c {
	case '\'', '"':
		p.pos++
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] != c {
			p.pos++
		}
		if p.pos >= len(p.src) {
			return "", fmt.Errorf("unterminated string at %d %w", start, ErrBadRange)
		}
		v := p.src[start:p.pos]
		p.pos++
		return v, nil
	}
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' || c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		break
	}
	raw := p.src[start:p.pos]
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return "", p.errorf("number or quoted string")
	}
	return raw, nil
}

func (p *rangeParser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		return p.errorf(strconv.QuoteRune(rune(c)))
	}
	p.pos++
	return nil
}

func (p *rangeParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *rangeParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

func (p *rangeParser) errorf(want string) error {
	return fmt.Errorf("expect %s at %d in %q %w", want, p.pos, p.src, ErrBadRange)
}

// GroupRange absolute date range covering the grouping bucket label
func (pf *ParsedFacet) GroupRange(label string) (*Range, error) {
	if len(pf.Grouping) == 0 {
		return nil, fmt.Errorf("facet:%s has no grouping %w", pf.Name, ErrBadRange)
	}
	start, err := pf.Grouping.ParseLabel(label)
	if err != nil {
		return nil, fmt.Errorf("facet:%s %w", pf.Key(), err)
	}
	end := pf.Grouping.Add(start, 1)
	return NewRange(pf.Name, label, ResolutionString,
		Bound(start.Format(time.RFC3339)), Bound(end.Format(time.RFC3339))), nil
}
