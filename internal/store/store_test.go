package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreate(t *testing.T, s *Store, l Log) *Log {
	t.Helper()
	got, err := s.CreateLog(context.Background(), l)
	if err != nil {
		t.Fatalf("create log: %v", err)
	}
	return got
}

func strp(s string) *string { return &s }

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/walak.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	mustCreate(t, s, Log{Date: "2025-06-01", Name: "yoga", Category: "health"})
	s.Close()

	// Reopen: data survives and migrations do not run again.
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	n, err := s2.CountLogs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 log after reopen, got %d", n)
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

// ============================================================
// Dates
// ============================================================

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("IDT", 3*3600)
	tests := []struct {
		in       string
		want     time.Time
		wantTime bool
	}{
		{"2025-06-01", time.Date(2025, 6, 1, 0, 0, 0, 0, loc), false},
		{" 2025-06-01 ", time.Date(2025, 6, 1, 0, 0, 0, 0, loc), false},
		{"2025-06-08T23:59", time.Date(2025, 6, 8, 23, 59, 0, 0, loc), true},
		{"2025-06-08T23:59:30", time.Date(2025, 6, 8, 23, 59, 30, 0, loc), true},
		{"2025-06-08 07:15", time.Date(2025, 6, 8, 7, 15, 0, 0, loc), true},
		{"2025-06-08T20:00:00Z", time.Date(2025, 6, 8, 23, 0, 0, 0, loc), true},
		{"2025-06-08T20:00:00.000Z", time.Date(2025, 6, 8, 23, 0, 0, 0, loc), true},
	}
	for _, tt := range tests {
		got, hasTime, err := ParseDate(tt.in, loc)
		if err != nil {
			t.Errorf("ParseDate(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if hasTime != tt.wantTime {
			t.Errorf("ParseDate(%q) hasTime = %v, want %v", tt.in, hasTime, tt.wantTime)
		}
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "yesterday", "2025-13-01", "01/06/2025"} {
		if _, _, err := ParseDate(in, time.UTC); err == nil {
			t.Errorf("ParseDate(%q) should fail", in)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := Log{Date: "2025-06-01", Name: "yoga", Category: "health"}
	if err := Validate(valid); err != nil {
		t.Fatalf("valid log rejected: %v", err)
	}

	bad := []Log{
		{Date: "2025-06-01", Name: "  ", Category: "health"},
		{Date: "2025-06-01", Name: "yoga", Category: ""},
		{Date: "not a date", Name: "yoga", Category: "health"},
		{Date: "2025-06-01", EndDate: "later", Name: "yoga", Category: "health"},
	}
	for _, l := range bad {
		err := Validate(l)
		if !errors.Is(err, ErrInvalidLog) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidLog", l, err)
		}
	}
}

// ============================================================
// Logs
// ============================================================

func TestCreateAndGetLog(t *testing.T) {
	s := newTestStore(t)
	l := mustCreate(t, s, Log{
		Date:        "2025-06-01T07:30",
		Name:        " yoga ",
		Category:    "health",
		Subcategory: "",
		Location:    "park",
		Note:        "sun salutations",
	})
	if l.ID == "" {
		t.Fatal("expected an assigned ID")
	}
	if l.Name != "yoga" {
		t.Fatalf("name should be trimmed, got %q", l.Name)
	}
	if l.CreatedAt.IsZero() {
		t.Fatal("CreatedAt should be set")
	}

	got, err := s.GetLog(context.Background(), l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Date != "2025-06-01T07:30" || got.Location != "park" || got.Note != "sun salutations" {
		t.Fatalf("unexpected log: %+v", got)
	}
}

func TestCreateLogKeepsGivenID(t *testing.T) {
	s := newTestStore(t)
	l := mustCreate(t, s, Log{ID: "abc", Date: "2025-06-01", Name: "read", Category: "creative"})
	if l.ID != "abc" {
		t.Fatalf("expected ID abc, got %q", l.ID)
	}
}

func TestCreateLogRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateLog(context.Background(), Log{Date: "", Name: "read", Category: "creative"})
	if !errors.Is(err, ErrInvalidLog) {
		t.Fatalf("expected ErrInvalidLog, got %v", err)
	}
	if s.Revision() != 0 {
		t.Fatal("failed create should not bump the revision")
	}
}

func TestCreateLogPreservesExtra(t *testing.T) {
	s := newTestStore(t)
	l := mustCreate(t, s, Log{
		Date:     "2025-06-01",
		Name:     "trip",
		Category: "wife",
		Extra:    map[string]json.RawMessage{"mood": json.RawMessage(`"great"`)},
	})
	got, err := s.GetLog(context.Background(), l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Extra["mood"]) != `"great"` {
		t.Fatalf("extra not preserved: %v", got.Extra)
	}
}

func TestGetLogNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetLog(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListLogsOrderedByDateDesc(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, Log{Date: "2025-06-01", Name: "yoga", Category: "health"})
	mustCreate(t, s, Log{Date: "2025-07-15", Name: "cardio", Category: "health"})
	mustCreate(t, s, Log{Date: "2025-06-20T09:00", Name: "read", Category: "creative"})

	logs, err := s.ListLogs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 logs, got %d", len(logs))
	}
	want := []string{"cardio", "read", "yoga"}
	for i, name := range want {
		if logs[i].Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, logs[i].Name)
		}
	}
}

func TestQueryLogsFilters(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, Log{Date: "2025-05-31T23:00", Name: "yoga", Category: "health"})
	mustCreate(t, s, Log{Date: "2025-06-01", Name: "yoga", Category: "Health"})
	mustCreate(t, s, Log{Date: "2025-06-15", Name: "read", Category: "creative"})
	mustCreate(t, s, Log{Date: "2025-07-01", Name: "cardio", Category: "health"})

	ctx := context.Background()
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	logs, err := s.QueryLogs(ctx, LogFilter{From: &from, To: &to})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs in June, got %d", len(logs))
	}

	logs, err = s.QueryLogs(ctx, LogFilter{Category: " HEALTH "})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 health logs, got %d", len(logs))
	}

	logs, err = s.QueryLogs(ctx, LogFilter{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].Name != "cardio" {
		t.Fatalf("limit should return the most recent log, got %+v", logs)
	}
}

func TestLogFilterApplyMatchesQueryLogs(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, Log{Date: "2025-05-31T23:00", Name: "yoga", Category: "health"})
	mustCreate(t, s, Log{Date: "2025-06-01", Name: "yoga", Category: "Health"})
	mustCreate(t, s, Log{Date: "2025-06-15", Name: "read", Category: "creative"})
	mustCreate(t, s, Log{Date: "2025-07-01", Name: "cardio", Category: "health"})

	ctx := context.Background()
	all, err := s.ListLogs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	filters := []LogFilter{
		{},
		{From: &from, To: &to},
		{Category: " HEALTH "},
		{Category: "health", From: &from},
		{Limit: 2},
	}
	for _, f := range filters {
		want, err := s.QueryLogs(ctx, f)
		if err != nil {
			t.Fatal(err)
		}
		got := f.Apply(all)
		if len(got) != len(want) {
			t.Fatalf("%+v: got %d logs, want %d", f, len(got), len(want))
		}
		for i := range want {
			if got[i].ID != want[i].ID {
				t.Fatalf("%+v: position %d is %s, want %s", f, i, got[i].Name, want[i].Name)
			}
		}
	}
}

func TestUpdateLogPartial(t *testing.T) {
	s := newTestStore(t)
	l := mustCreate(t, s, Log{Date: "2025-06-01", Name: "yoga", Category: "health", Location: "park"})
	before := s.Revision()

	got, err := s.UpdateLog(context.Background(), l.ID, LogPatch{Note: strp("felt great"), Location: strp("")})
	if err != nil {
		t.Fatal(err)
	}
	if got.Note != "felt great" {
		t.Fatalf("note not updated: %+v", got)
	}
	if got.Location != "" {
		t.Fatalf("location should be cleared, got %q", got.Location)
	}
	if got.Name != "yoga" || got.Date != "2025-06-01" {
		t.Fatalf("untouched fields changed: %+v", got)
	}
	if s.Revision() == before {
		t.Fatal("update should bump the revision")
	}
}

func TestUpdateLogEmptyPatch(t *testing.T) {
	s := newTestStore(t)
	l := mustCreate(t, s, Log{Date: "2025-06-01", Name: "yoga", Category: "health"})
	before := s.Revision()

	got, err := s.UpdateLog(context.Background(), l.ID, LogPatch{})
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != l.ID || s.Revision() != before {
		t.Fatal("empty patch should be a no-op")
	}
}

func TestUpdateLogInvalid(t *testing.T) {
	s := newTestStore(t)
	l := mustCreate(t, s, Log{Date: "2025-06-01", Name: "yoga", Category: "health"})

	_, err := s.UpdateLog(context.Background(), l.ID, LogPatch{Date: strp("soon")})
	if !errors.Is(err, ErrInvalidLog) {
		t.Fatalf("expected ErrInvalidLog, got %v", err)
	}
	got, _ := s.GetLog(context.Background(), l.ID)
	if got.Date != "2025-06-01" {
		t.Fatal("invalid update should not be persisted")
	}
}

func TestUpdateLogNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UpdateLog(context.Background(), "nope", LogPatch{Note: strp("x")})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteLog(t *testing.T) {
	s := newTestStore(t)
	l := mustCreate(t, s, Log{Date: "2025-06-01", Name: "yoga", Category: "health"})

	if err := s.DeleteLog(context.Background(), l.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetLog(context.Background(), l.ID); !errors.Is(err, ErrNotFound) {
		t.Fatal("deleted log should be gone")
	}
	if err := s.DeleteLog(context.Background(), l.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should report ErrNotFound, got %v", err)
	}
}

func TestReplaceLogs(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, Log{Date: "2025-01-01", Name: "old", Category: "avoid"})

	skipped, err := s.ReplaceLogs(context.Background(), []Log{
		{ID: "r1", Date: "2025-06-01", Name: "yoga", Category: "health"},
		{ID: "r2", Date: "garbage", Name: "read", Category: "creative"},
		{Date: "2025-06-02", Name: "cook", Category: "household"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 1 {
		t.Fatalf("expected 1 skipped, got %d", skipped)
	}

	logs, _ := s.ListLogs(context.Background())
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs after replace, got %d", len(logs))
	}
	for _, l := range logs {
		if l.Name == "old" {
			t.Fatal("replace should drop previous logs")
		}
		if l.ID == "" {
			t.Fatal("replace should assign missing IDs")
		}
	}
}

// ============================================================
// Wire format
// ============================================================

func TestLogUnmarshalJSON(t *testing.T) {
	var l Log
	err := json.Unmarshal([]byte(`{
		"_id": {"$oid": "65a1"},
		"date": "2025-06-01T07:30",
		"name": "yoga",
		"category": "health",
		"subcategory": null,
		"location": "park",
		"mood": 4
	}`), &l)
	if err != nil {
		t.Fatal(err)
	}
	if l.ID != "65a1" {
		t.Fatalf("expected id from $oid, got %q", l.ID)
	}
	if l.Subcategory != "" || l.Location != "park" {
		t.Fatalf("unexpected fields: %+v", l)
	}
	if string(l.Extra["mood"]) != "4" {
		t.Fatalf("mood should pass through, got %v", l.Extra)
	}
}

func TestLogUnmarshalPrefersID(t *testing.T) {
	var l Log
	if err := json.Unmarshal([]byte(`{"id": "a", "_id": "b", "date": "2025-06-01"}`), &l); err != nil {
		t.Fatal(err)
	}
	if l.ID != "a" {
		t.Fatalf("expected id a, got %q", l.ID)
	}
}

func TestLogUnmarshalRejectsNonObject(t *testing.T) {
	var l Log
	if err := json.Unmarshal([]byte(`[1,2]`), &l); err == nil {
		t.Fatal("expected error for array")
	}
}

func TestLogMarshalJSON(t *testing.T) {
	l := Log{
		ID:       "x1",
		Date:     "2025-06-01",
		Name:     "yoga",
		Category: "health",
		Extra:    map[string]json.RawMessage{"mood": json.RawMessage(`4`)},
	}
	b, err := json.Marshal(l)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if m["id"] != "x1" || m["name"] != "yoga" || m["mood"] != float64(4) {
		t.Fatalf("unexpected json: %s", b)
	}
	if _, ok := m["note"]; ok {
		t.Fatalf("empty note should be omitted: %s", b)
	}
}

func TestLogPatchJSON(t *testing.T) {
	var p LogPatch
	if err := json.Unmarshal([]byte(`{"note": "", "name": "read"}`), &p); err != nil {
		t.Fatal(err)
	}
	if p.Note == nil || *p.Note != "" {
		t.Fatal("present empty note should clear the field")
	}
	if p.Name == nil || *p.Name != "read" {
		t.Fatal("name should be set")
	}
	if p.Date != nil || p.Category != nil {
		t.Fatal("absent fields should stay nil")
	}

	b, err := json.Marshal(LogPatch{Location: strp("home")})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"location":"home"}` {
		t.Fatalf("unexpected patch json: %s", b)
	}
}

// ============================================================
// Settings
// ============================================================

func TestDefaultSettings(t *testing.T) {
	s := newTestStore(t)
	settings, err := s.GetAllSettings()
	if err != nil {
		t.Fatal(err)
	}
	if len(settings) != 3 {
		t.Fatalf("expected 3 default settings, got %d", len(settings))
	}
	if v := s.SettingOr(SettingDefaultScope, ""); v != "week" {
		t.Fatalf("expected default scope week, got %q", v)
	}
	if n := s.IntSetting(SettingMonthsWindow, 0); n != 24 {
		t.Fatalf("expected months window 24, got %d", n)
	}
}

func TestSetSettingUpsert(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetSetting(SettingMonthsWindow, "12"); err != nil {
		t.Fatal(err)
	}
	if n := s.IntSetting(SettingMonthsWindow, 0); n != 12 {
		t.Fatalf("expected 12, got %d", n)
	}
	if err := s.SetSetting("custom", "v"); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.GetSetting("custom"); v != "v" {
		t.Fatalf("expected v, got %q", v)
	}
}

func TestSettingFallbacks(t *testing.T) {
	s := newTestStore(t)
	if v := s.SettingOr("missing", "fb"); v != "fb" {
		t.Fatalf("expected fallback, got %q", v)
	}
	s.SetSetting(SettingMonthsWindow, "lots")
	if n := s.IntSetting(SettingMonthsWindow, 24); n != 24 {
		t.Fatalf("non-numeric setting should fall back, got %d", n)
	}
}
