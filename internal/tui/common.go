package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/walak/walak/internal/engine"
	"github.com/walak/walak/internal/store"
	"github.com/walak/walak/internal/taxonomy"
)

// viewState represents the currently active view.
type viewState int

const (
	viewLogs viewState = iota
	viewWeek
	viewYear
	viewStats
	viewSettings
)

var viewNames = []string{"Logs", "Week", "Year", "Stats", "Settings"}

// scopeFor is the date scope a log view frames its data with.
func (v viewState) scopeFor() (engine.Scope, bool) {
	switch v {
	case viewLogs:
		return engine.ScopeList, true
	case viewWeek:
		return engine.ScopeWeek, true
	case viewYear:
		return engine.ScopeYear, true
	}
	return engine.ScopeList, false
}

// --- Messages ---

type logsLoadedMsg struct {
	logs []store.Log
	err  error
}

type logSavedMsg struct {
	log     *store.Log
	created bool
}

type logDeletedMsg struct {
	id string
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

// whenLabel renders an item's date, leaving out the time for date-only
// logs.
func whenLabel(it engine.Item) string {
	if it.HasTime {
		return it.At.Format("Mon Jan 2 15:04")
	}
	return it.At.Format("Mon Jan 2")
}

// agoLabel is "never" for a nil time.
func agoLabel(t *time.Time, now time.Time) string {
	if t == nil {
		return "never"
	}
	return humanize.RelTime(*t, now, "ago", "from now")
}

func categoryDot(tax *taxonomy.Taxonomy, category string) string {
	return categoryStyle(tax.Color(category, "")).Render("●")
}

func truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= w {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > w {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

// frameLine is the header summary: SCOPE - title - month note.
func frameLine(res engine.Result, note string) string {
	if res.Searching {
		s := "SEARCH"
		if res.LiteralSearch {
			s += " (literal)"
		}
		return s
	}
	parts := []string{strings.ToUpper(res.Frame.Scope.String())}
	if res.Frame.Title != "" {
		parts = append(parts, res.Frame.Title)
	}
	if note != "" {
		parts = append(parts, note)
	}
	return strings.Join(parts, " - ")
}
