package facet

import (
	"fmt"
	"strings"
	"time"
)

// Resolution how range bounds are interpreted or how values are grouped
type Resolution string

const (
	ResolutionString Resolution = "string"
	ResolutionLong   Resolution = "long"
	ResolutionDouble Resolution = "double"
	ResolutionYear   Resolution = "year"
	ResolutionMonth  Resolution = "month"
	ResolutionWeek   Resolution = "week"
	ResolutionDay    Resolution = "day"
	ResolutionHour   Resolution = "hour"
	ResolutionMinute Resolution = "minute"
	ResolutionSecond Resolution = "second"
)

// ParseResolution case-insensitive
func ParseResolution(s string) (Resolution, error) {
	r := Resolution(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case ResolutionString, ResolutionLong, ResolutionDouble, ResolutionYear, ResolutionMonth,
		ResolutionWeek, ResolutionDay, ResolutionHour, ResolutionMinute, ResolutionSecond:
		return r, nil
	}
	return "", fmt.Errorf("unknown resolution:%q", s)
}

func (r Resolution) IsDate() bool {
	switch r {
	case ResolutionYear, ResolutionMonth, ResolutionWeek, ResolutionDay,
		ResolutionHour, ResolutionMinute, ResolutionSecond:
		return true
	}
	return false
}

// Truncate floor t (UTC) to the start of its resolution unit; weeks start monday
func (r Resolution) Truncate(t time.Time) time.Time {
	t = t.UTC()
	y, m, d := t.Date()
	switch r {
	case ResolutionYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	case ResolutionMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case ResolutionWeek:
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case ResolutionDay:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	case ResolutionHour:
		return t.Truncate(time.Hour)
	case ResolutionMinute:
		return t.Truncate(time.Minute)
	case ResolutionSecond:
		return t.Truncate(time.Second)
	}
	return t
}

// Add move t by n resolution units
func (r Resolution) Add(t time.Time, n int) time.Time {
	switch r {
	case ResolutionYear:
		return t.AddDate(n, 0, 0)
	case ResolutionMonth:
		return t.AddDate(0, n, 0)
	case ResolutionWeek:
		return t.AddDate(0, 0, 7*n)
	case ResolutionDay:
		return t.AddDate(0, 0, n)
	case ResolutionHour:
		return t.Add(time.Duration(n) * time.Hour)
	case ResolutionMinute:
		return t.Add(time.Duration(n) * time.Minute)
	case ResolutionSecond:
		return t.Add(time.Duration(n) * time.Second)
	}
	return t
}

// Label bucket name of t when grouping by this resolution
func (r Resolution) Label(t time.Time) string {
	t = t.UTC()
	switch r {
	case ResolutionYear:
		return t.Format("2006")
	case ResolutionMonth:
		return t.Format("2006-01")
	case ResolutionWeek:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case ResolutionDay:
		return t.Format("2006-01-02")
	case ResolutionHour:
		return t.Format("2006-01-02T15")
	case ResolutionMinute:
		return t.Format("2006-01-02T15:04")
	case ResolutionSecond:
		return t.Format("2006-01-02T15:04:05")
	}
	return t.Format(time.RFC3339)
}

// ParseLabel start of the bucket named by label, the inverse of Label
func (r Resolution) ParseLabel(label string) (time.Time, error) {
	layout := ""
	switch r {
	case ResolutionYear:
		layout = "2006"
	case ResolutionMonth:
		layout = "2006-01"
	case ResolutionWeek:
		var y, w int
		if _, err := fmt.Sscanf(label, "%04d-W%02d", &y, &w); err != nil || w < 1 || w > 53 {
			return time.Time{}, fmt.Errorf("bad week label:%q", label)
		}
		// jan 4th always falls in iso week 1
		week1 := ResolutionWeek.Truncate(time.Date(y, time.January, 4, 0, 0, 0, 0, time.UTC))
		return week1.AddDate(0, 0, 7*(w-1)), nil
	case ResolutionDay:
		layout = "2006-01-02"
	case ResolutionHour:
		layout = "2006-01-02T15"
	case ResolutionMinute:
		layout = "2006-01-02T15:04"
	case ResolutionSecond:
		layout = "2006-01-02T15:04:05"
	default:
		return time.Time{}, fmt.Errorf("resolution:%s does not group", r)
	}
	t, err := time.ParseInLocation(layout, label, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad %s label:%q %w", r, label, err)
	}
	return t, nil
}
