package engine

import (
	"strings"
	"time"

	"github.com/walak/walak/internal/store"
)

// Item is a log whose date has been parsed.
type Item struct {
	store.Log
	At      time.Time
	HasTime bool
}

// Problem describes one log that was left out of every view.
type Problem struct {
	ID     string
	Name   string
	Reason string
}

type Diagnostics struct {
	Total    int
	Skipped  int
	Problems []Problem
}

// Dataset is a prepared snapshot of the log collection. Revision
// identifies the snapshot for memoisation; callers bump it whenever the
// source collection changes.
type Dataset struct {
	Items       []Item
	Diagnostics Diagnostics
	Revision    uint64
}

// Prepare parses every log once. Logs with an unreadable date or a
// missing name or category are skipped and reported, never fatal.
func Prepare(logs []store.Log, loc *time.Location) Dataset {
	if loc == nil {
		loc = time.Local
	}
	ds := Dataset{
		Items:       make([]Item, 0, len(logs)),
		Diagnostics: Diagnostics{Total: len(logs)},
	}
	for _, l := range logs {
		reason := ""
		at, hasTime, err := store.ParseDate(l.Date, loc)
		switch {
		case err != nil:
			reason = err.Error()
		case strings.TrimSpace(l.Name) == "":
			reason = "missing name"
		case strings.TrimSpace(l.Category) == "":
			reason = "missing category"
		}
		if reason != "" {
			ds.Diagnostics.Skipped++
			ds.Diagnostics.Problems = append(ds.Diagnostics.Problems, Problem{ID: l.ID, Name: l.Name, Reason: reason})
			continue
		}
		ds.Items = append(ds.Items, Item{Log: l, At: at, HasTime: hasTime})
	}
	return ds
}
