package engine

import (
	"regexp"
	"strings"

	"github.com/walak/walak/internal/taxonomy"
)

// AllCategories is the category filter value that selects everything.
const AllCategories = "all"

// Filter is the predicate part of a view. A non-empty Search wins over
// Category.
type Filter struct {
	Category string
	Search   string
}

func (f Filter) searching() bool {
	return strings.TrimSpace(f.Search) != ""
}

func (f Filter) categoryActive() bool {
	c := taxonomy.Normalize(f.Category)
	return c != "" && c != AllCategories
}

// CompileSearch builds the case-insensitive matcher for a search term.
// A term that is not a valid expression is matched literally, reported
// by literal. An empty term returns nil.
func CompileSearch(term string) (re *regexp.Regexp, literal bool) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, false
	}
	if re, err := regexp.Compile("(?i)" + term); err == nil {
		return re, false
	}
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(term)), true
}

// ApplyFilters returns the items passing f, most recent first. The input
// slice is not modified.
func ApplyFilters(items []Item, f Filter) []Item {
	out := make([]Item, 0, len(items))
	switch {
	case f.searching():
		re, _ := CompileSearch(f.Search)
		for _, it := range items {
			if matchesSearch(re, it) {
				out = append(out, it)
			}
		}
	case f.categoryActive():
		want := taxonomy.Normalize(f.Category)
		for _, it := range items {
			if taxonomy.Normalize(it.Category) == want {
				out = append(out, it)
			}
		}
	default:
		out = append(out, items...)
	}
	sortDescending(out)
	return out
}

func matchesSearch(re *regexp.Regexp, it Item) bool {
	for _, field := range []string{it.Name, it.Category, it.Subcategory, it.Location, it.Note} {
		if field != "" && re.MatchString(field) {
			return true
		}
	}
	return false
}
