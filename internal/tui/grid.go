package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/walak/walak/internal/engine"
	"github.com/walak/walak/internal/taxonomy"
)

// gridModel draws the bucketed week (one column per day) or year (one
// row per month) view. In the week grid the cursor walks the logs in
// day order; in the year grid it selects a month.
type gridModel struct {
	tax    *taxonomy.Taxonomy
	scope  engine.Scope
	width  int
	height int

	buckets []engine.Bucket
	now     time.Time
	cursor  int
}

func newGridModel(tax *taxonomy.Taxonomy, scope engine.Scope) gridModel {
	return gridModel{tax: tax, scope: scope}
}

func (g *gridModel) setSize(w, h int) {
	g.width = w
	g.height = h
}

func (g *gridModel) setBuckets(buckets []engine.Bucket, now time.Time) {
	g.buckets = buckets
	g.now = now
	if n := g.positions(); g.cursor >= n {
		g.cursor = n - 1
	}
	if g.cursor < 0 {
		g.cursor = 0
	}
}

func (g gridModel) positions() int {
	if g.scope == engine.ScopeYear {
		return len(g.buckets)
	}
	n := 0
	for _, b := range g.buckets {
		n += len(b.Items)
	}
	return n
}

// selected returns the log under the cursor of a week grid.
func (g gridModel) selected() (engine.Item, bool) {
	if g.scope == engine.ScopeYear {
		return engine.Item{}, false
	}
	i := g.cursor
	for _, b := range g.buckets {
		if i < len(b.Items) {
			return b.Items[i], true
		}
		i -= len(b.Items)
	}
	return engine.Item{}, false
}

// selectedBucket returns the month under the cursor of a year grid.
func (g gridModel) selectedBucket() (engine.Bucket, bool) {
	if g.scope != engine.ScopeYear || g.cursor >= len(g.buckets) {
		return engine.Bucket{}, false
	}
	return g.buckets[g.cursor], true
}

func (g gridModel) update(msg tea.Msg) (gridModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Up):
			if g.cursor > 0 {
				g.cursor--
			}
		case key.Matches(msg, keys.Down):
			if g.cursor < g.positions()-1 {
				g.cursor++
			}
		}
	}
	return g, nil
}

func (g gridModel) view(title string) string {
	w := g.width - 4
	var body string
	if g.scope == engine.ScopeYear {
		body = g.renderYear(w - 6)
	} else {
		body = g.renderWeek(w - 6)
	}
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title), "", body,
	))
}

func (g gridModel) renderWeek(w int) string {
	if len(g.buckets) == 0 {
		return mutedStyle.Render("Nothing to show")
	}
	colWidth := w/len(g.buckets) - 4
	if colWidth < 6 {
		colWidth = 6
	}
	lines := g.height - 10
	if lines < 3 {
		lines = 3
	}

	pos := 0
	cols := make([]string, len(g.buckets))
	for i, b := range g.buckets {
		rows := []string{titleStyle.Render(b.Label + " " + b.Start.Format("2"))}
		for j, it := range b.Items {
			if j >= lines {
				rows = append(rows, mutedStyle.Render(fmt.Sprintf("+%d more", len(b.Items)-j)))
				pos += len(b.Items) - j
				break
			}
			style := categoryStyle(g.tax.Color(it.Category, ""))
			if pos == g.cursor {
				style = selectedItemStyle
			}
			rows = append(rows, style.Render(truncate(it.Name, colWidth)))
			pos++
		}
		cell := cellStyle
		if isSameDay(b.Start, g.now) {
			cell = todayCellStyle
		}
		cols[i] = cell.Width(colWidth).Render(strings.Join(rows, "\n"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (g gridModel) renderYear(w int) string {
	if len(g.buckets) == 0 {
		return mutedStyle.Render("Nothing to show")
	}
	maxDots := w - 20
	if maxDots < 10 {
		maxDots = 10
	}

	var rows []string
	for i, b := range g.buckets {
		cursor := "  "
		label := normalItemStyle.Render(fmt.Sprintf("%-4s", b.Label))
		if i == g.cursor {
			cursor = "> "
			label = selectedItemStyle.Render(fmt.Sprintf("%-4s", b.Label))
		}

		var dots strings.Builder
		for j, it := range b.Items {
			if j >= maxDots {
				dots.WriteString(mutedStyle.Render("…"))
				break
			}
			dots.WriteString(categoryDot(g.tax, it.Category))
		}
		count := mutedStyle.Render(fmt.Sprintf("%4d ", len(b.Items)))
		rows = append(rows, cursor+label+count+dots.String())
	}
	rows = append(rows, "", mutedStyle.Render("  enter: open month"))
	return strings.Join(rows, "\n")
}

func isSameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
