package engine

import (
	"fmt"
	"strings"
	"time"
)

// Scope is the date granularity a view is framed by.
type Scope int

const (
	ScopeList Scope = iota
	ScopeDay
	ScopeWeek
	ScopeMonth
	ScopeYear
)

var scopeNames = map[Scope]string{
	ScopeList:  "list",
	ScopeDay:   "day",
	ScopeWeek:  "week",
	ScopeMonth: "month",
	ScopeYear:  "year",
}

func (s Scope) String() string {
	if name, ok := scopeNames[s]; ok {
		return name
	}
	return scopeNames[ScopeList]
}

// ParseScope maps a scope name to its value. Anything unrecognised is
// the list scope, which applies no date filter.
func ParseScope(name string) Scope {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "day":
		return ScopeDay
	case "week":
		return ScopeWeek
	case "month":
		return ScopeMonth
	case "year":
		return ScopeYear
	default:
		return ScopeList
	}
}

// EffectiveScope degrades the list scope to its selected sub-scope.
// Year, month, week and day are valid list sub-scopes.
func EffectiveScope(scope, listScope Scope) Scope {
	if scope != ScopeList {
		return scope
	}
	switch listScope {
	case ScopeYear, ScopeMonth, ScopeWeek, ScopeDay:
		return listScope
	default:
		return ScopeList
	}
}

// Frame is the concrete date window a scope and offset resolve to.
type Frame struct {
	Scope     Scope
	Reference time.Time
	Title     string
}

// ResolveFrame shifts now by offset periods of scope. Offsets are always
// relative to now, never to a previously displayed frame.
func ResolveFrame(scope Scope, offset int, now time.Time) Frame {
	switch scope {
	case ScopeYear:
		ref := addMonths(now, 12*offset)
		return Frame{Scope: scope, Reference: ref, Title: ref.Format("2006")}
	case ScopeMonth:
		ref := addMonths(now, offset)
		return Frame{Scope: scope, Reference: ref, Title: ref.Format("January 2006")}
	case ScopeWeek:
		ref := now.AddDate(0, 0, 7*offset)
		_, week := ref.ISOWeek()
		return Frame{Scope: scope, Reference: ref, Title: fmt.Sprintf("Week %d/52", week)}
	case ScopeDay:
		ref := now.AddDate(0, 0, offset)
		return Frame{Scope: scope, Reference: ref, Title: ref.Format("Monday, January 2, 2006")}
	default:
		return Frame{Scope: ScopeList, Reference: now}
	}
}

// addMonths moves t by n calendar months, clamping the day to the length
// of the target month so Jan 31 + 1 month is the last day of February.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
