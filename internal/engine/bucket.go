package engine

import (
	"sort"
	"time"
)

// InSamePeriod reports whether a falls in the same calendar period as
// ref, measured in ref's location. Weeks start on Sunday. The list scope
// matches everything.
func InSamePeriod(a, ref time.Time, scope Scope) bool {
	a = a.In(ref.Location())
	switch scope {
	case ScopeYear:
		return a.Year() == ref.Year()
	case ScopeMonth:
		return a.Year() == ref.Year() && a.Month() == ref.Month()
	case ScopeWeek:
		start, end := WeekRange(ref)
		return !a.Before(start) && a.Before(end)
	case ScopeDay:
		ay, am, ad := a.Date()
		ry, rm, rd := ref.Date()
		return ay == ry && am == rm && ad == rd
	default:
		return true
	}
}

// FilterPeriod keeps the items that share ref's period.
func FilterPeriod(items []Item, ref time.Time, scope Scope) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if InSamePeriod(it.At, ref, scope) {
			out = append(out, it)
		}
	}
	return out
}

// WeekRange returns the Sunday-to-Sunday window containing ref, end
// exclusive.
func WeekRange(ref time.Time) (start, end time.Time) {
	start = startOfWeek(ref)
	return start, start.AddDate(0, 0, 7)
}

// Bucket is one day or month cell of a grid view. Start is inclusive,
// End exclusive.
type Bucket struct {
	Key   string
	Label string
	Start time.Time
	End   time.Time
	Items []Item
}

// BucketByPeriod lays the items out on the grid of ref's frame: seven
// days for week, every day of the month for month, twelve months for
// year and a single day for day. Buckets are dense and disjoint; items
// outside the frame are dropped. Inside a bucket items run oldest first,
// date-only values sitting at midnight; equal instants keep input order.
// The list scope has no grid and returns nil.
func BucketByPeriod(items []Item, scope Scope, ref time.Time) []Bucket {
	buckets := gridFor(scope, ref)
	if buckets == nil {
		return nil
	}
	loc := ref.Location()
	for _, it := range items {
		at := it.At.In(loc)
		for i := range buckets {
			if !at.Before(buckets[i].Start) && at.Before(buckets[i].End) {
				buckets[i].Items = append(buckets[i].Items, it)
				break
			}
		}
	}
	for i := range buckets {
		sortAscending(buckets[i].Items)
	}
	return buckets
}

func gridFor(scope Scope, ref time.Time) []Bucket {
	switch scope {
	case ScopeWeek:
		return dayBuckets(startOfWeek(ref), 7, "Mon")
	case ScopeMonth:
		first := startOfMonth(ref)
		return dayBuckets(first, daysIn(first), "2")
	case ScopeDay:
		return dayBuckets(startOfDay(ref), 1, "Monday")
	case ScopeYear:
		first := time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, ref.Location())
		buckets := make([]Bucket, 12)
		for i := range buckets {
			start := first.AddDate(0, i, 0)
			buckets[i] = Bucket{
				Key:   start.Format("2006-01"),
				Label: start.Format("Jan"),
				Start: start,
				End:   start.AddDate(0, 1, 0),
			}
		}
		return buckets
	default:
		return nil
	}
}

func dayBuckets(first time.Time, n int, labelLayout string) []Bucket {
	buckets := make([]Bucket, n)
	for i := range buckets {
		start := first.AddDate(0, 0, i)
		buckets[i] = Bucket{
			Key:   start.Format("2006-01-02"),
			Label: start.Format(labelLayout),
			Start: start,
			End:   start.AddDate(0, 0, 1),
		}
	}
	return buckets
}

func sortAscending(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].At.Before(items[j].At)
	})
}

func sortDescending(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].At.After(items[j].At)
	})
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func startOfWeek(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, -int(t.Weekday()))
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
