package index

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// PropertyType value type of a property; decides the term encoding, so
// lexicographic term order equals value order for every type
type PropertyType int

const (
	TypeString PropertyType = iota
	TypeLong
	TypeDouble
	TypeDate
	TypeBoolean
)

var ErrBadValue = errors.New("value not convertible")

var typeNames = map[PropertyType]string{
	TypeString:  "string",
	TypeLong:    "long",
	TypeDouble:  "double",
	TypeDate:    "date",
	TypeBoolean: "boolean",
}

func (t PropertyType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown(" + strconv.Itoa(int(t)) + ")"
}

// ParsePropertyType parse a type name as used in config/dataset files
func ParsePropertyType(name string) (PropertyType, error) {
	for t, n := range typeNames {
		if strings.EqualFold(n, name) {
			return t, nil
		}
	}
	return TypeString, fmt.Errorf("unknown property type:%s", name)
}

// EncodeLong offset binary, fixed width hex
func EncodeLong(v int64) string {
	return fmt.Sprintf("%016x", uint64(v)^(1<<63))
}

func DecodeLong(term string) (int64, error) {
	u, err := decodeFixedHex(term)
	if err != nil {
		return 0, err
	}
	return int64(u ^ (1 << 63)), nil
}

// EncodeDouble IEEE754 bits flipped so that byte order equals numeric order
func EncodeDouble(v float64) string {
	bits := math.Float64bits(v)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	return fmt.Sprintf("%016x", bits)
}

func DecodeDouble(term string) (float64, error) {
	bits, err := decodeFixedHex(term)
	if err != nil {
		return 0, err
	}
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits), nil
}

// EncodeDate millisecond precision, UTC
func EncodeDate(t time.Time) string {
	return EncodeLong(t.UTC().UnixMilli())
}

func DecodeDate(term string) (time.Time, error) {
	ms, err := DecodeLong(term)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func decodeFixedHex(term string) (uint64, error) {
	if len(term) != 16 {
		return 0, fmt.Errorf("term:%q %w", term, ErrBadValue)
	}
	var buf [8]byte
	if _, err := hex.Decode(buf[:], []byte(term)); err != nil {
		return 0, fmt.Errorf("term:%q %w", term, ErrBadValue)
	}
	var u uint64
	for _, b := range buf {
		u = u<<8 | uint64(b)
	}
	return u, nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate accept RFC3339 and the date-only form
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("date:%q %w", s, ErrBadValue)
}

// EncodeValue turn a textual value into the term for a property type
func EncodeValue(t PropertyType, value string) (string, error) {
	switch t {
	case TypeString:
		return value, nil
	case TypeLong:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if ferr != nil {
				return "", fmt.Errorf("long:%q %w", value, ErrBadValue)
			}
			n = int64(f)
		}
		return EncodeLong(n), nil
	case TypeDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return "", fmt.Errorf("double:%q %w", value, ErrBadValue)
		}
		return EncodeDouble(f), nil
	case TypeDate:
		d, err := ParseDate(strings.TrimSpace(value))
		if err != nil {
			return "", err
		}
		return EncodeDate(d), nil
	case TypeBoolean:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return "", fmt.Errorf("boolean:%q %w", value, ErrBadValue)
		}
		return strconv.FormatBool(b), nil
	}
	return "", fmt.Errorf("type:%s %w", t, ErrBadValue)
}

// DecodeValue turn a term back into its display form
func DecodeValue(t PropertyType, term string) (string, error) {
	switch t {
	case TypeString, TypeBoolean:
		return term, nil
	case TypeLong:
		n, err := DecodeLong(term)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	case TypeDouble:
		f, err := DecodeDouble(term)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case TypeDate:
		d, err := DecodeDate(term)
		if err != nil {
			return "", err
		}
		return d.Format("2006-01-02T15:04:05.000Z07:00"), nil
	}
	return "", fmt.Errorf("type:%s %w", t, ErrBadValue)
}
