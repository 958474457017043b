package engine

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/walak/walak/internal/store"
	"github.com/walak/walak/internal/taxonomy"
)

func day(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func prepare(t *testing.T, logs ...store.Log) Dataset {
	t.Helper()
	ds := Prepare(logs, time.UTC)
	if ds.Diagnostics.Skipped != 0 {
		t.Fatalf("unexpected skipped logs: %+v", ds.Diagnostics.Problems)
	}
	return ds
}

func names(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func sampleLogs() []store.Log {
	return []store.Log{
		{ID: "1", Date: "2025-06-01", Name: "yoga", Category: "health"},
		{ID: "2", Date: "2025-06-08T23:59", Name: "laundry", Category: "household"},
		{ID: "3", Date: "2025-06-11T08:00", Name: "morning cardio", Category: "health"},
		{ID: "4", Date: "2025-06-11", Name: "read", Category: "creative", Note: "Yoga book"},
		{ID: "5", Date: "2025-06-14T21:30", Name: "maya", Category: "friends", Subcategory: "call"},
		{ID: "6", Date: "2025-06-15T00:00", Name: "cook", Category: "household"},
		{ID: "7", Date: "2024-12-31T23:00", Name: "watch", Category: "creative", Location: "cinema"},
	}
}

// ============================================================
// Prepare
// ============================================================

func TestPrepareSkipsBadLogs(t *testing.T) {
	ds := Prepare([]store.Log{
		{ID: "ok", Date: "2025-06-01", Name: "yoga", Category: "health"},
		{ID: "bad-date", Date: "yesterday", Name: "yoga", Category: "health"},
		{ID: "no-name", Date: "2025-06-01", Category: "health"},
		{ID: "no-cat", Date: "2025-06-01", Name: "yoga"},
	}, time.UTC)

	if len(ds.Items) != 1 || ds.Items[0].ID != "ok" {
		t.Fatalf("expected only the valid log, got %v", names(ds.Items))
	}
	if ds.Diagnostics.Total != 4 || ds.Diagnostics.Skipped != 3 {
		t.Fatalf("unexpected diagnostics: %+v", ds.Diagnostics)
	}
	if ds.Diagnostics.Problems[0].ID != "bad-date" {
		t.Fatalf("expected bad-date first, got %+v", ds.Diagnostics.Problems[0])
	}
}

func TestPrepareDateOnlyIsMidnight(t *testing.T) {
	ds := prepare(t, store.Log{Date: "2025-06-11", Name: "read", Category: "creative"})
	it := ds.Items[0]
	if it.HasTime {
		t.Fatal("date-only log should not have a time")
	}
	if !it.At.Equal(day(2025, 6, 11, 0, 0)) {
		t.Fatalf("expected midnight, got %v", it.At)
	}
}

// ============================================================
// Scopes and frames
// ============================================================

func TestParseScope(t *testing.T) {
	tests := map[string]Scope{
		"year": ScopeYear, "Month": ScopeMonth, " week ": ScopeWeek,
		"day": ScopeDay, "list": ScopeList, "fortnight": ScopeList, "": ScopeList,
	}
	for in, want := range tests {
		if got := ParseScope(in); got != want {
			t.Errorf("ParseScope(%q) = %v, want %v", in, got, want)
		}
	}
	if ScopeMonth.String() != "month" {
		t.Fatalf("unexpected name %q", ScopeMonth.String())
	}
}

func TestEffectiveScope(t *testing.T) {
	if EffectiveScope(ScopeYear, ScopeWeek) != ScopeYear {
		t.Fatal("non-list scope must win")
	}
	if EffectiveScope(ScopeList, ScopeMonth) != ScopeMonth {
		t.Fatal("list scope must degrade to its sub-scope")
	}
	if EffectiveScope(ScopeList, ScopeDay) != ScopeDay {
		t.Fatal("day is a list sub-scope")
	}
	if EffectiveScope(ScopeList, ScopeList) != ScopeList {
		t.Fatal("no sub-scope means no date filter")
	}
}

func TestResolveFrameTitles(t *testing.T) {
	now := day(2025, 6, 11, 12, 0)
	tests := []struct {
		scope  Scope
		offset int
		title  string
		ref    time.Time
	}{
		{ScopeYear, -1, "2024", day(2024, 6, 11, 12, 0)},
		{ScopeMonth, 1, "July 2025", day(2025, 7, 11, 12, 0)},
		{ScopeWeek, 0, "Week 24/52", now},
		{ScopeWeek, -1, "Week 23/52", day(2025, 6, 4, 12, 0)},
		{ScopeDay, 1, "Thursday, June 12, 2025", day(2025, 6, 12, 12, 0)},
		{ScopeList, 5, "", now},
	}
	for _, tt := range tests {
		f := ResolveFrame(tt.scope, tt.offset, now)
		if f.Title != tt.title {
			t.Errorf("%v%+d: title %q, want %q", tt.scope, tt.offset, f.Title, tt.title)
		}
		if !f.Reference.Equal(tt.ref) {
			t.Errorf("%v%+d: reference %v, want %v", tt.scope, tt.offset, f.Reference, tt.ref)
		}
	}
}

func TestResolveFrameClampsMonthEnd(t *testing.T) {
	f := ResolveFrame(ScopeMonth, 1, day(2025, 1, 31, 9, 0))
	if !f.Reference.Equal(day(2025, 2, 28, 9, 0)) {
		t.Fatalf("expected Feb 28, got %v", f.Reference)
	}
	if f.Title != "February 2025" {
		t.Fatalf("unexpected title %q", f.Title)
	}

	f = ResolveFrame(ScopeYear, 1, day(2024, 2, 29, 0, 0))
	if !f.Reference.Equal(day(2025, 2, 28, 0, 0)) {
		t.Fatalf("expected Feb 28 2025, got %v", f.Reference)
	}
}

// ============================================================
// Periods and buckets
// ============================================================

func TestInSamePeriodReflexive(t *testing.T) {
	times := []time.Time{
		day(2025, 1, 1, 0, 0), day(2025, 6, 8, 0, 0), day(2025, 6, 14, 23, 59),
		day(2024, 2, 29, 12, 0), day(2025, 12, 31, 23, 59),
	}
	for _, ts := range times {
		for s := ScopeList; s <= ScopeYear; s++ {
			if !InSamePeriod(ts, ts, s) {
				t.Errorf("InSamePeriod(%v, %v, %v) = false", ts, ts, s)
			}
		}
	}
}

func TestWeekRangeSundayStart(t *testing.T) {
	ref := day(2025, 6, 11, 15, 0)
	start, end := WeekRange(ref)
	if !start.Equal(day(2025, 6, 8, 0, 0)) || !end.Equal(day(2025, 6, 15, 0, 0)) {
		t.Fatalf("unexpected range %v - %v", start, end)
	}
	if !InSamePeriod(day(2025, 6, 8, 23, 59), ref, ScopeWeek) {
		t.Fatal("Sunday evening belongs to the week")
	}
	if InSamePeriod(day(2025, 6, 15, 0, 0), ref, ScopeWeek) {
		t.Fatal("the following Sunday starts a new week")
	}
	if InSamePeriod(day(2025, 6, 7, 23, 59), ref, ScopeWeek) {
		t.Fatal("the previous Saturday is outside the week")
	}
}

func TestInSamePeriodUsesReferenceLocation(t *testing.T) {
	idt := time.FixedZone("IDT", 3*60*60)
	ref := time.Date(2025, 6, 1, 12, 0, 0, 0, idt)
	// 22:30 UTC on May 31 is already June 1 at +3.
	if !InSamePeriod(day(2025, 5, 31, 22, 30), ref, ScopeDay) {
		t.Fatal("expected the instant to be compared in the reference location")
	}
}

func TestBucketByPeriodWeek(t *testing.T) {
	ds := prepare(t, sampleLogs()...)
	ref := day(2025, 6, 11, 12, 0)
	buckets := BucketByPeriod(ds.Items, ScopeWeek, ref)

	if len(buckets) != 7 {
		t.Fatalf("expected 7 buckets, got %d", len(buckets))
	}
	if buckets[0].Label != "Sun" || buckets[6].Label != "Sat" {
		t.Fatalf("unexpected labels %q..%q", buckets[0].Label, buckets[6].Label)
	}
	got := [][]string{}
	for _, b := range buckets {
		got = append(got, names(b.Items))
	}
	want := [][]string{
		{"laundry"}, {}, {}, {"read", "morning cardio"}, {}, {}, {"maya"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("bucket contents mismatch (-want +got):\n%s", diff)
	}
}

func TestBucketByPeriodPartitions(t *testing.T) {
	ds := prepare(t, sampleLogs()...)
	ref := day(2025, 6, 20, 0, 0)
	for _, scope := range []Scope{ScopeDay, ScopeWeek, ScopeMonth, ScopeYear} {
		inPeriod := FilterPeriod(ds.Items, ref, scope)
		buckets := BucketByPeriod(ds.Items, scope, ref)

		seen := map[string]int{}
		for i, b := range buckets {
			if i > 0 && !b.Start.Equal(buckets[i-1].End) {
				t.Errorf("%v: bucket %d is not contiguous", scope, i)
			}
			for _, it := range b.Items {
				seen[it.ID]++
			}
		}
		if len(seen) != len(inPeriod) {
			t.Errorf("%v: %d items bucketed, %d in period", scope, len(seen), len(inPeriod))
		}
		for id, n := range seen {
			if n != 1 {
				t.Errorf("%v: item %s in %d buckets", scope, id, n)
			}
		}
	}
}

func TestBucketByPeriodShapes(t *testing.T) {
	ref := day(2024, 2, 10, 0, 0)
	if n := len(BucketByPeriod(nil, ScopeMonth, ref)); n != 29 {
		t.Fatalf("leap February should have 29 day buckets, got %d", n)
	}
	year := BucketByPeriod(nil, ScopeYear, ref)
	if len(year) != 12 || year[0].Key != "2024-01" || year[11].Label != "Dec" {
		t.Fatalf("unexpected year grid %+v", year)
	}
	if len(BucketByPeriod(nil, ScopeDay, ref)) != 1 {
		t.Fatal("day scope should have one bucket")
	}
	if BucketByPeriod(nil, ScopeList, ref) != nil {
		t.Fatal("list scope has no grid")
	}
}

func TestBucketDateOnlySortsFirst(t *testing.T) {
	ds := prepare(t,
		store.Log{ID: "a", Date: "2025-06-11T07:00", Name: "early", Category: "health"},
		store.Log{ID: "b", Date: "2025-06-11", Name: "undated", Category: "health"},
		store.Log{ID: "c", Date: "2025-06-11", Name: "undated too", Category: "health"},
	)
	buckets := BucketByPeriod(ds.Items, ScopeDay, day(2025, 6, 11, 0, 0))
	want := []string{"undated", "undated too", "early"}
	if diff := cmp.Diff(want, names(buckets[0].Items)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

// ============================================================
// Filters
// ============================================================

func TestApplyFiltersCategory(t *testing.T) {
	ds := prepare(t, sampleLogs()...)
	got := ApplyFilters(ds.Items, Filter{Category: " Health "})
	for _, it := range got {
		if taxonomy.Normalize(it.Category) != "health" {
			t.Fatalf("unexpected category %q", it.Category)
		}
	}
	if diff := cmp.Diff([]string{"morning cardio", "yoga"}, names(got)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	if n := len(ApplyFilters(ds.Items, Filter{Category: AllCategories})); n != len(ds.Items) {
		t.Fatalf("all should keep every item, got %d", n)
	}
}

func TestApplyFiltersEmptyCategory(t *testing.T) {
	ds := prepare(t, sampleLogs()...)
	got := ApplyFilters(ds.Items, Filter{Category: "avoid"})
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", got)
	}
}

func TestApplyFiltersSearchAcrossFields(t *testing.T) {
	ds := prepare(t, sampleLogs()...)
	got := ApplyFilters(ds.Items, Filter{Search: "YOGA", Category: "household"})
	// The note of "read" mentions yoga; the category filter is ignored.
	if diff := cmp.Diff([]string{"read", "yoga"}, names(got)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	got = ApplyFilters(ds.Items, Filter{Search: "cinema"})
	if diff := cmp.Diff([]string{"watch"}, names(got)); diff != "" {
		t.Fatalf("location search mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyFiltersDoesNotMutateInput(t *testing.T) {
	ds := prepare(t, sampleLogs()...)
	before := names(ds.Items)
	ApplyFilters(ds.Items, Filter{})
	if diff := cmp.Diff(before, names(ds.Items)); diff != "" {
		t.Fatalf("input reordered (-before +after):\n%s", diff)
	}
}

func TestCompileSearchFallsBackToLiteral(t *testing.T) {
	re, literal := CompileSearch("yoga(")
	if !literal {
		t.Fatal("invalid expression should be matched literally")
	}
	if !re.MatchString("Yoga( class") || re.MatchString("yoga") {
		t.Fatal("literal match misbehaves")
	}

	re, literal = CompileSearch("^mor.*cardio$")
	if literal || !re.MatchString("Morning Cardio") {
		t.Fatal("valid expression should be used as is")
	}

	if re, _ := CompileSearch("   "); re != nil {
		t.Fatal("blank term should not compile")
	}
}

// ============================================================
// Aggregation
// ============================================================

func TestBlockFor(t *testing.T) {
	blocks := []string{"dad", "mom", "call"}
	tests := []struct {
		log  store.Log
		want string
		ok   bool
	}{
		{store.Log{Name: "lunch with Mom"}, "mom", true},
		{store.Log{Name: "dad", Subcategory: "Call"}, "call", true},
		{store.Log{Name: "grandpa"}, "", false},
	}
	for _, tt := range tests {
		got, ok := BlockFor(tt.log, blocks)
		if got != tt.want || ok != tt.ok {
			t.Errorf("BlockFor(%q) = %q, %v; want %q, %v", tt.log.Name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestBlockForSubstringAmbiguity(t *testing.T) {
	got, _ := BlockFor(store.Log{Name: "readiness"}, []string{"read", "readiness"})
	if got != "read" {
		t.Fatalf("first contained block wins, got %q", got)
	}
}

func TestAggregateBlockScenario(t *testing.T) {
	ds := prepare(t,
		store.Log{Date: "2025-06-01", Name: "yoga", Category: "health"},
		store.Log{Date: "2025-07-01", Name: "cardio", Category: "health"},
		store.Log{Date: "2025-08-01", Name: "yoga video", Category: "creative"},
	)
	now := day(2025, 12, 1, 10, 0)
	stats := AggregateBlock(ds.Items, taxonomy.Default(), "yoga", now, 24)

	if stats.Total != 1 {
		t.Fatalf("expected 1 yoga log, got %d", stats.Total)
	}
	if stats.Last == nil || !stats.Last.Equal(day(2025, 6, 1, 0, 0)) {
		t.Fatalf("unexpected last %v", stats.Last)
	}
	if len(stats.Months) != 24 {
		t.Fatalf("expected 24 months, got %d", len(stats.Months))
	}
	if stats.Months[0].Key != "2024-01" || stats.Months[23].Key != "2025-12" {
		t.Fatalf("unexpected window %s..%s", stats.Months[0].Key, stats.Months[23].Key)
	}
	if m := stats.Months[17]; m.Key != "2025-06" || m.Count != 1 || m.Label != "Jun 25" {
		t.Fatalf("unexpected June cell %+v", m)
	}
}

func TestYearFrameAndSearchScenario(t *testing.T) {
	e := New(taxonomy.Default(), time.UTC)
	ds := e.Prepare([]store.Log{
		{ID: "1", Date: "2025-06-01", Name: "yoga", Category: "health"},
		{ID: "2", Date: "2025-07-15", Name: "cardio", Category: "health"},
	})
	now := day(2025, 12, 1, 0, 0)

	year := e.View(ds, ViewState{Scope: ScopeYear, Category: AllCategories}, now)
	if diff := cmp.Diff([]string{"cardio", "yoga"}, names(year.Items)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	found := e.View(ds, ViewState{Scope: ScopeYear, Search: "YOGA"}, now)
	if diff := cmp.Diff([]string{"yoga"}, names(found.Items)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	stats := e.BlockStats(ds, "yoga", now, 24)
	if stats.Total != 1 || stats.Last == nil || !stats.Last.Equal(day(2025, 6, 1, 0, 0)) {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestAggregateBlockKeyKinds(t *testing.T) {
	ds := prepare(t, sampleLogs()...)
	now := day(2025, 6, 30, 0, 0)
	tax := taxonomy.Default()

	if got := AggregateBlock(ds.Items, tax, "Household", now, 0); got.Total != 2 {
		t.Fatalf("category key: expected 2, got %d", got.Total)
	}
	if got := AggregateBlock(ds.Items, tax, "cardio", now, 0); got.Total != 1 {
		t.Fatalf("block key: expected 1, got %d", got.Total)
	}
	if got := AggregateBlock(ds.Items, tax, "call", now, 0); got.Total != 1 {
		t.Fatalf("subcategory key: expected 1, got %d", got.Total)
	}
	if got := AggregateBlock(ds.Items, tax, "nothing", now, 0); got.Total != 0 || got.Last != nil {
		t.Fatalf("unknown key should be empty, got %+v", got)
	}
}

func TestAggregateHistogramBounded(t *testing.T) {
	ds := prepare(t, sampleLogs()...)
	now := day(2025, 6, 30, 0, 0)
	for _, key := range []string{"health", "creative", "watch", "read", "maya"} {
		for _, months := range []int{1, 6, 24} {
			s := AggregateBlock(ds.Items, taxonomy.Default(), key, now, months)
			if len(s.Months) != months {
				t.Errorf("%s/%d: histogram length %d", key, months, len(s.Months))
			}
			if s.HistogramTotal() > s.Total {
				t.Errorf("%s/%d: histogram %d exceeds total %d", key, months, s.HistogramTotal(), s.Total)
			}
		}
	}
}

func TestAggregateCategory(t *testing.T) {
	ds := prepare(t,
		store.Log{Date: "2025-05-02", Name: "yoga", Category: "health"},
		store.Log{Date: "2025-06-03", Name: "yoga", Category: "health"},
		store.Log{Date: "2025-06-04", Name: "run", Category: "health", Subcategory: "cardio"},
		store.Log{Date: "2025-06-05", Name: "stretch", Category: "health"},
		store.Log{Date: "2025-06-06", Name: "yoga", Category: "creative"},
	)
	stats := AggregateCategory(ds.Items, taxonomy.Default(), "health", day(2025, 6, 30, 0, 0), 3)

	if stats.Total != 4 || stats.Unmatched != 1 {
		t.Fatalf("unexpected totals %+v", stats)
	}
	counts := map[string]int{}
	for _, b := range stats.Blocks {
		counts[b.Key] = b.Total
	}
	want := map[string]int{"physio": 0, "yoga": 2, "power": 0, "cardio": 1}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Fatalf("block totals mismatch (-want +got):\n%s", diff)
	}
	if len(stats.Stacked) != 3 || stats.Stacked[2].Key != "2025-06" {
		t.Fatalf("unexpected stacked window %+v", stats.Stacked)
	}
	if stats.Stacked[1].Total() != 1 || stats.Stacked[2].Total() != 2 {
		t.Fatalf("unexpected stacked totals %d, %d", stats.Stacked[1].Total(), stats.Stacked[2].Total())
	}
}

func TestOverviewFollowsTaxonomyOrder(t *testing.T) {
	ds := prepare(t, sampleLogs()...)
	tax := taxonomy.Default()
	got := Overview(ds.Items, tax, day(2025, 6, 30, 0, 0), 12)
	if len(got) != len(tax.Categories) {
		t.Fatalf("expected %d categories, got %d", len(tax.Categories), len(got))
	}
	for i, c := range got {
		if c.Category != tax.Categories[i].Name {
			t.Fatalf("position %d: %q, want %q", i, c.Category, tax.Categories[i].Name)
		}
	}
}

// ============================================================
// Engine views
// ============================================================

func TestEngineViewWeek(t *testing.T) {
	e := New(taxonomy.Default(), time.UTC)
	ds := e.Prepare(sampleLogs())
	res := e.View(ds, DefaultViewState(), day(2025, 6, 11, 12, 0))

	if res.Frame.Title != "Week 24/52" {
		t.Fatalf("unexpected title %q", res.Frame.Title)
	}
	want := []string{"maya", "morning cardio", "read", "laundry"}
	if diff := cmp.Diff(want, names(res.Items)); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if len(res.Buckets) != 7 {
		t.Fatalf("expected week grid, got %d buckets", len(res.Buckets))
	}
}

func TestEngineViewEmptyCategoryKeepsGrid(t *testing.T) {
	e := New(taxonomy.Default(), time.UTC)
	ds := e.Prepare(sampleLogs())
	v := DefaultViewState()
	v.Category = "avoid"
	res := e.View(ds, v, day(2025, 6, 11, 12, 0))
	if len(res.Items) != 0 || len(res.Buckets) != 7 {
		t.Fatalf("expected empty items on a full grid, got %d items, %d buckets", len(res.Items), len(res.Buckets))
	}
}

func TestEngineViewSearchIsGlobal(t *testing.T) {
	e := New(taxonomy.Default(), time.UTC)
	ds := e.Prepare(sampleLogs())
	v := ViewState{Scope: ScopeDay, Offset: -3, Search: "watch"}
	res := e.View(ds, v, day(2025, 6, 11, 12, 0))
	if !res.Searching || res.Buckets != nil {
		t.Fatalf("search should drop the grid, got %+v", res)
	}
	if diff := cmp.Diff([]string{"watch"}, names(res.Items)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEngineViewListSubScope(t *testing.T) {
	e := New(taxonomy.Default(), time.UTC)
	ds := e.Prepare(sampleLogs())
	now := day(2025, 6, 11, 12, 0)

	all := e.View(ds, ViewState{Scope: ScopeList}, now)
	if len(all.Items) != len(ds.Items) || all.Buckets != nil {
		t.Fatalf("plain list should show everything without a grid")
	}
	year := e.View(ds, ViewState{Scope: ScopeList, ListScope: ScopeYear, Offset: -1}, now)
	if diff := cmp.Diff([]string{"watch"}, names(year.Items)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	today := e.View(ds, ViewState{Scope: ScopeList, ListScope: ScopeDay}, now)
	if today.Frame.Title != "Wednesday, June 11, 2025" {
		t.Fatalf("day title = %q", today.Frame.Title)
	}
	if diff := cmp.Diff([]string{"morning cardio", "read"}, names(today.Items)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if len(today.Buckets) != 1 || len(today.Buckets[0].Items) != 2 {
		t.Fatalf("day grid = %+v", today.Buckets)
	}
}

func TestEngineViewIdempotent(t *testing.T) {
	e := New(taxonomy.Default(), time.UTC)
	ds := e.Prepare(sampleLogs())
	now := day(2025, 6, 11, 12, 0)
	v := ViewState{Scope: ScopeMonth, Category: "health"}
	first := e.View(ds, v, now)
	second := e.View(ds, v, now)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("views differ (-first +second):\n%s", diff)
	}
}

func TestNewPanicsWithoutTaxonomy(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New(nil, time.UTC)
}

func TestMemo(t *testing.T) {
	e := New(taxonomy.Default(), time.UTC)
	m := NewMemo(e)
	ds := e.Prepare(sampleLogs())
	ds.Revision = 1
	now := day(2025, 6, 11, 12, 0)

	first := m.View(ds, DefaultViewState(), now)
	second := m.View(ds, DefaultViewState(), now.Add(20*time.Second))
	if m.Hits() != 1 {
		t.Fatalf("expected a cache hit, got %d", m.Hits())
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("cached view differs (-first +second):\n%s", diff)
	}

	ds2 := e.Prepare(sampleLogs()[:1])
	ds2.Revision = 2
	res := m.View(ds2, DefaultViewState(), now)
	if m.Hits() != 1 {
		t.Fatal("a new revision must not be served from the cache")
	}
	if len(res.Items) != 0 {
		t.Fatalf("expected no items in the week for the new revision, got %v", names(res.Items))
	}
}

func TestMemoKeepsOnlyCurrentMinute(t *testing.T) {
	e := New(taxonomy.Default(), time.UTC)
	m := NewMemo(e)
	ds := e.Prepare(sampleLogs())
	ds.Revision = 1
	now := day(2025, 6, 11, 12, 0)

	month := ViewState{Scope: ScopeList, ListScope: ScopeMonth, Category: AllCategories}
	for i := 0; i < 1440; i++ {
		at := now.Add(time.Duration(i) * time.Minute)
		m.View(ds, DefaultViewState(), at)
		m.View(ds, month, at)
	}
	if m.Len() != 2 {
		t.Fatalf("cache holds %d views, want 2", m.Len())
	}

	m.View(ds, DefaultViewState(), now.Add(1439*time.Minute+30*time.Second))
	if m.Hits() != 1 {
		t.Fatalf("hits = %d, want 1", m.Hits())
	}
}
