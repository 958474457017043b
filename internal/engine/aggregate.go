package engine

import (
	"strings"
	"time"

	"github.com/walak/walak/internal/store"
	"github.com/walak/walak/internal/taxonomy"
)

// DefaultMonths is the histogram width used when none is given.
const DefaultMonths = 24

type MonthCount struct {
	Key   string // 2006-01
	Label string // Jan 06
	Start time.Time
	Count int
}

type BlockStats struct {
	Key    string
	Total  int
	Last   *time.Time
	Months []MonthCount
}

// HistogramTotal is the number of matches inside the window.
func (b BlockStats) HistogramTotal() int {
	n := 0
	for _, m := range b.Months {
		n += m.Count
	}
	return n
}

// BlockFor decides which of blocks a log belongs to. An exact subcategory
// match on any block wins; otherwise the first block whose name is
// contained in the log's name is taken. Substring matching is fuzzy: with
// blocks "read" and "readiness", a log named "readiness" goes to "read"
// when "read" is listed first.
func BlockFor(l store.Log, blocks []string) (string, bool) {
	sub := taxonomy.Normalize(l.Subcategory)
	if sub != "" {
		for _, b := range blocks {
			if taxonomy.Normalize(b) == sub {
				return b, true
			}
		}
	}
	name := taxonomy.Normalize(l.Name)
	for _, b := range blocks {
		if key := taxonomy.Normalize(b); key != "" && strings.Contains(name, key) {
			return b, true
		}
	}
	return "", false
}

// AggregateBlock counts the items belonging to key over a trailing window
// of months ending with now's month. key may be a category name (every
// log of the category), a block (logs of an owning category that
// BlockFor assigns to it) or any other label (logs whose name, category
// or subcategory equals it).
func AggregateBlock(items []Item, tax *taxonomy.Taxonomy, key string, now time.Time, months int) BlockStats {
	if tax == nil {
		panic("engine: AggregateBlock called with a nil taxonomy")
	}
	match := blockMatcher(tax, key)
	stats := BlockStats{Key: key, Months: monthWindow(now, months)}
	for _, it := range items {
		if match(it) {
			stats.add(it, now.Location())
		}
	}
	return stats
}

func (b *BlockStats) add(it Item, loc *time.Location) {
	b.Total++
	if b.Last == nil || it.At.After(*b.Last) {
		at := it.At
		b.Last = &at
	}
	if i := monthIndex(b.Months, it.At.In(loc)); i >= 0 {
		b.Months[i].Count++
	}
}

func blockMatcher(tax *taxonomy.Taxonomy, key string) func(Item) bool {
	k := taxonomy.Normalize(key)
	if c, ok := tax.Category(k); ok {
		name := taxonomy.Normalize(c.Name)
		return func(it Item) bool {
			return taxonomy.Normalize(it.Category) == name
		}
	}
	if owners := tax.Owners(k); len(owners) > 0 {
		return func(it Item) bool {
			cat := taxonomy.Normalize(it.Category)
			for _, c := range owners {
				if taxonomy.Normalize(c.Name) != cat {
					continue
				}
				b, ok := BlockFor(it.Log, c.Blocks)
				return ok && taxonomy.Normalize(b) == k
			}
			return false
		}
	}
	return func(it Item) bool {
		return taxonomy.Normalize(it.Name) == k ||
			taxonomy.Normalize(it.Category) == k ||
			taxonomy.Normalize(it.Subcategory) == k
	}
}

// StackedMonth holds one month of a category chart. Counts line up with
// CategoryStats.Blocks.
type StackedMonth struct {
	Key    string
	Label  string
	Start  time.Time
	Counts []int
}

func (m StackedMonth) Total() int {
	n := 0
	for _, c := range m.Counts {
		n += c
	}
	return n
}

type CategoryStats struct {
	Category  string
	Total     int
	Last      *time.Time
	Unmatched int
	Blocks    []BlockStats
	Stacked   []StackedMonth
}

// AggregateCategory runs the block aggregation for every block of the
// category in one pass and builds the stacked monthly chart data. Logs of
// the category that no block claims only count towards Total and
// Unmatched.
func AggregateCategory(items []Item, tax *taxonomy.Taxonomy, category string, now time.Time, months int) CategoryStats {
	if tax == nil {
		panic("engine: AggregateCategory called with a nil taxonomy")
	}
	def, ok := tax.Category(category)
	if !ok {
		def = taxonomy.Category{Name: strings.TrimSpace(category)}
	}

	window := monthWindow(now, months)
	stats := CategoryStats{
		Category: def.Name,
		Blocks:   make([]BlockStats, len(def.Blocks)),
		Stacked:  make([]StackedMonth, len(window)),
	}
	for i, b := range def.Blocks {
		stats.Blocks[i] = BlockStats{Key: b, Months: monthWindow(now, months)}
	}
	for i, m := range window {
		stats.Stacked[i] = StackedMonth{Key: m.Key, Label: m.Label, Start: m.Start, Counts: make([]int, len(def.Blocks))}
	}

	index := make(map[string]int, len(def.Blocks))
	for i, b := range def.Blocks {
		index[taxonomy.Normalize(b)] = i
	}

	name := taxonomy.Normalize(def.Name)
	loc := now.Location()
	for _, it := range items {
		if taxonomy.Normalize(it.Category) != name {
			continue
		}
		stats.Total++
		if stats.Last == nil || it.At.After(*stats.Last) {
			at := it.At
			stats.Last = &at
		}
		b, ok := BlockFor(it.Log, def.Blocks)
		if !ok {
			stats.Unmatched++
			continue
		}
		bi := index[taxonomy.Normalize(b)]
		stats.Blocks[bi].add(it, loc)
		if mi := monthIndex(window, it.At.In(loc)); mi >= 0 {
			stats.Stacked[mi].Counts[bi]++
		}
	}
	return stats
}

// Overview aggregates every category of the taxonomy, in its order.
func Overview(items []Item, tax *taxonomy.Taxonomy, now time.Time, months int) []CategoryStats {
	if tax == nil {
		panic("engine: Overview called with a nil taxonomy")
	}
	out := make([]CategoryStats, 0, len(tax.Categories))
	for _, c := range tax.Categories {
		out = append(out, AggregateCategory(items, tax, c.Name, now, months))
	}
	return out
}

// monthWindow returns months empty cells, oldest first, the last one
// being now's month.
func monthWindow(now time.Time, months int) []MonthCount {
	if months <= 0 {
		months = DefaultMonths
	}
	out := make([]MonthCount, months)
	for i := range out {
		start := time.Date(now.Year(), now.Month()-time.Month(months-1-i), 1, 0, 0, 0, 0, now.Location())
		out[i] = MonthCount{Key: start.Format("2006-01"), Label: start.Format("Jan 06"), Start: start}
	}
	return out
}

func monthIndex(window []MonthCount, at time.Time) int {
	if len(window) == 0 {
		return -1
	}
	first := window[0].Start
	i := (at.Year()-first.Year())*12 + int(at.Month()) - int(first.Month())
	if i < 0 || i >= len(window) {
		return -1
	}
	return i
}
