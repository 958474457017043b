package store

import (
	"encoding/json"
	"strings"
	"time"
)

// Log is one recorded block. Date keeps the form it was entered in;
// use ParseDate to get an instant.
type Log struct {
	ID          string
	Date        string
	EndDate     string
	Name        string
	Category    string
	Subcategory string
	Location    string
	Note        string

	// Extra holds wire fields this package does not know about.
	Extra map[string]json.RawMessage

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LogPatch is a partial update. Nil fields are left untouched.
type LogPatch struct {
	Date        *string
	EndDate     *string
	Name        *string
	Category    *string
	Subcategory *string
	Location    *string
	Note        *string
}

// Empty reports whether the patch changes nothing.
func (p LogPatch) Empty() bool {
	return p.Date == nil && p.EndDate == nil && p.Name == nil && p.Category == nil &&
		p.Subcategory == nil && p.Location == nil && p.Note == nil
}

// Apply merges the patch into l.
func (p LogPatch) Apply(l *Log) {
	if p.Date != nil {
		l.Date = *p.Date
	}
	if p.EndDate != nil {
		l.EndDate = *p.EndDate
	}
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Category != nil {
		l.Category = *p.Category
	}
	if p.Subcategory != nil {
		l.Subcategory = *p.Subcategory
	}
	if p.Location != nil {
		l.Location = *p.Location
	}
	if p.Note != nil {
		l.Note = *p.Note
	}
}

type Setting struct {
	Key   string
	Value string
}

// LogFilter narrows QueryLogs. From and To compare on calendar day,
// From inclusive, To exclusive.
type LogFilter struct {
	Category string
	From     *time.Time
	To       *time.Time
	Limit    int
}

// Apply narrows logs the way QueryLogs does for sources without SQL.
// Input order is kept.
func (f LogFilter) Apply(logs []Log) []Log {
	category := strings.ToLower(strings.TrimSpace(f.Category))
	var out []Log
	for _, l := range logs {
		if category != "" && strings.ToLower(strings.TrimSpace(l.Category)) != category {
			continue
		}
		day := strings.TrimSpace(l.Date)
		if len(day) > len(dayLayout) {
			day = day[:len(dayLayout)]
		}
		if f.From != nil && day < f.From.Format(dayLayout) {
			continue
		}
		if f.To != nil && day >= f.To.Format(dayLayout) {
			continue
		}
		out = append(out, l)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}
