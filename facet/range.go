package facet

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/echoface/facetnav/index"
)

var ErrBadRange = errors.New("invalid facet range")

type (
	// Range one named bucket [Begin, End) of a property. Nil bounds are open.
	// For date resolutions the bounds are offsets in resolution units relative
	// to "now" truncated to that unit.
	Range struct {
		Name       string     `json:"name" yaml:"name"`
		Property   string     `json:"property" yaml:"property"`
		Resolution Resolution `json:"resolution" yaml:"resolution"`
		Begin      *string    `json:"begin,omitempty" yaml:"begin,omitempty"`
		End        *string    `json:"end,omitempty" yaml:"end,omitempty"`
	}

	// Bounds encoded term interval, lower inclusive, upper exclusive
	Bounds struct {
		Lower, Upper       string
		HasLower, HasUpper bool
	}
)

func NewRange(property, name string, resolution Resolution, begin, end *string) *Range {
	return &Range{
		Name:       name,
		Property:   property,
		Resolution: resolution,
		Begin:      begin,
		End:        end,
	}
}

func Bound(v string) *string {
	return &v
}

func NumBound(v float64) *string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	return &s
}

// Validate check bound syntax against the resolution
func (r *Range) Validate() error {
	if len(r.Property) == 0 {
		return fmt.Errorf("range:%s without property %w", r.Name, ErrBadRange)
	}
	if r.Resolution == ResolutionString || len(r.Resolution) == 0 {
		return nil
	}
	for _, b := range []*string{r.Begin, r.End} {
		if b == nil {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(*b), 64)
		if err != nil {
			return fmt.Errorf("range:%s bound:%q not numeric %w", r.Name, *b, ErrBadRange)
		}
		if r.Resolution.IsDate() && f != math.Trunc(f) {
			return fmt.Errorf("range:%s date offset:%q not integral %w", r.Name, *b, ErrBadRange)
		}
	}
	return nil
}

// Bounds encode the interval for a property of type t, now anchors date ranges
func (r *Range) Bounds(t index.PropertyType, now time.Time) (Bounds, error) {
	var b Bounds
	if err := r.Validate(); err != nil {
		return b, err
	}
	var err error
	if r.Begin != nil {
		if b.Lower, err = r.encode(t, *r.Begin, now); err != nil {
			return b, err
		}
		b.HasLower = true
	}
	if r.End != nil {
		if b.Upper, err = r.encode(t, *r.End, now); err != nil {
			return b, err
		}
		b.HasUpper = true
	}
	return b, nil
}

func (r *Range) encode(t index.PropertyType, raw string, now time.Time) (string, error) {
	resolution := r.Resolution
	if len(resolution) == 0 {
		resolution = ResolutionString
	}
	switch {
	case resolution == ResolutionString:
		return index.EncodeValue(t, raw)

	case resolution == ResolutionLong || resolution == ResolutionDouble:
		f, _ := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		switch t {
		case index.TypeLong:
			// x >= 10.5 <=> x >= 11 and x < 10.5 <=> x < 11 for integers
			return index.EncodeLong(int64(math.Ceil(f))), nil
		case index.TypeDouble:
			return index.EncodeDouble(f), nil
		}
		return "", fmt.Errorf("range:%s resolution:%s needs a numeric property, %s is %s %w",
			r.Name, resolution, r.Property, t, ErrBadRange)

	case resolution.IsDate():
		if t != index.TypeDate {
			return "", fmt.Errorf("range:%s resolution:%s needs a date property, %s is %s %w",
				r.Name, resolution, r.Property, t, ErrBadRange)
		}
		f, _ := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		anchor := resolution.Truncate(now)
		return index.EncodeDate(resolution.Add(anchor, int(f))), nil
	}
	return "", fmt.Errorf("range:%s resolution:%q %w", r.Name, resolution, ErrBadRange)
}

// Key canonical form used in cache keys and query strings
func (r *Range) Key() string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "{name:%q,resolution:%q", r.Name, string(r.Resolution))
	if r.Begin != nil {
		fmt.Fprintf(sb, ",begin:%q", *r.Begin)
	}
	if r.End != nil {
		fmt.Fprintf(sb, ",end:%q", *r.End)
	}
	sb.WriteString("}")
	return sb.String()
}

func (r *Range) String() string {
	return r.Property + "$" + r.Key()
}
