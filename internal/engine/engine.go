package engine

import (
	"sync"
	"time"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/walak/walak/internal/store"
	"github.com/walak/walak/internal/taxonomy"
)

// ViewState is everything the user has selected for the log views.
type ViewState struct {
	Scope     Scope
	ListScope Scope
	Offset    int
	Category  string
	Search    string
}

func DefaultViewState() ViewState {
	return ViewState{Scope: ScopeWeek, ListScope: ScopeList, Category: AllCategories}
}

func (v ViewState) Filter() Filter {
	return Filter{Category: v.Category, Search: v.Search}
}

// Effective is the scope that actually frames the view.
func (v ViewState) Effective() Scope {
	return EffectiveScope(v.Scope, v.ListScope)
}

// Result is one computed view. Buckets is nil for the list scope and
// while searching.
type Result struct {
	Frame         Frame
	Items         []Item
	Buckets       []Bucket
	Searching     bool
	LiteralSearch bool
	Diagnostics   Diagnostics
}

// Engine binds the pure view functions to a taxonomy and a location.
type Engine struct {
	tax *taxonomy.Taxonomy
	loc *time.Location
}

func New(tax *taxonomy.Taxonomy, loc *time.Location) *Engine {
	if tax == nil {
		panic("engine: nil taxonomy")
	}
	if loc == nil {
		loc = time.Local
	}
	return &Engine{tax: tax, loc: loc}
}

func (e *Engine) Taxonomy() *taxonomy.Taxonomy { return e.tax }
func (e *Engine) Location() *time.Location     { return e.loc }

func (e *Engine) Prepare(logs []store.Log) Dataset {
	return Prepare(logs, e.loc)
}

// View computes what the log views show for v. A search ignores the
// date frame and the category filter and runs over the whole dataset.
func (e *Engine) View(ds Dataset, v ViewState, now time.Time) Result {
	now = now.In(e.loc)
	scope := v.Effective()
	res := Result{
		Frame:       ResolveFrame(scope, v.Offset, now),
		Diagnostics: ds.Diagnostics,
	}
	f := v.Filter()
	if f.searching() {
		_, res.LiteralSearch = CompileSearch(f.Search)
		res.Searching = true
		res.Items = ApplyFilters(ds.Items, f)
		return res
	}
	res.Items = ApplyFilters(FilterPeriod(ds.Items, res.Frame.Reference, scope), f)
	if scope != ScopeList {
		res.Buckets = BucketByPeriod(res.Items, scope, res.Frame.Reference)
	}
	return res
}

func (e *Engine) BlockStats(ds Dataset, key string, now time.Time, months int) BlockStats {
	return AggregateBlock(ds.Items, e.tax, key, now.In(e.loc), months)
}

func (e *Engine) CategoryStats(ds Dataset, category string, now time.Time, months int) CategoryStats {
	return AggregateCategory(ds.Items, e.tax, category, now.In(e.loc), months)
}

func (e *Engine) Overview(ds Dataset, now time.Time, months int) []CategoryStats {
	return Overview(ds.Items, e.tax, now.In(e.loc), months)
}

// Memo caches views of one dataset revision for the current minute, so
// titles and frames roll over on time. A new revision or a new minute
// drops the whole cache. Cached results are shared and must not be
// modified.
type Memo struct {
	engine *Engine

	mu       sync.Mutex
	revision uint64
	minute   int64
	views    map[uint64]Result
	hits     int
}

func NewMemo(e *Engine) *Memo {
	return &Memo{engine: e, views: make(map[uint64]Result)}
}

func (m *Memo) View(ds Dataset, v ViewState, now time.Time) Result {
	key, err := hashstructure.Hash(v, hashstructure.FormatV2, nil)
	if err != nil {
		return m.engine.View(ds, v, now)
	}
	minute := now.Unix() / 60

	m.mu.Lock()
	defer m.mu.Unlock()
	if ds.Revision != m.revision || minute != m.minute {
		m.revision = ds.Revision
		m.minute = minute
		m.views = make(map[uint64]Result)
	}
	if res, ok := m.views[key]; ok {
		m.hits++
		return res
	}
	res := m.engine.View(ds, v, now)
	m.views[key] = res
	return res
}

// Len is the number of cached views.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.views)
}

// Hits is the number of views served from the cache.
func (m *Memo) Hits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits
}
