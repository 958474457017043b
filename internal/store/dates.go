package store

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound   = errors.New("log not found")
	ErrInvalidLog = errors.New("invalid log")
)

const dayLayout = "2006-01-02"

// Layouts without a zone are read in the caller's location.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	dayLayout,
}

// ParseDate reads a log date. Values carrying a zone are converted to
// loc; values without one are taken as wall-clock time in loc. hasTime is
// false for date-only values, which land on midnight.
func ParseDate(s string, loc *time.Location) (t time.Time, hasTime bool, err error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), true, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, layout != dayLayout, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognised date %q", s)
}

// FormatDate renders t in the wire form used for new logs.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02T15:04")
}

// Validate checks the fields every stored log must carry.
func Validate(l Log) error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLog)
	}
	if strings.TrimSpace(l.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidLog)
	}
	if _, _, err := ParseDate(l.Date, time.Local); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLog, err)
	}
	if l.EndDate != "" {
		if _, _, err := ParseDate(l.EndDate, time.Local); err != nil {
			return fmt.Errorf("%w: end date: %v", ErrInvalidLog, err)
		}
	}
	return nil
}
