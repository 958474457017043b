package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/walak/walak/internal/engine"
	"github.com/walak/walak/internal/taxonomy"
)

// logsModel is the scrolling list of the current view's logs.
type logsModel struct {
	tax    *taxonomy.Taxonomy
	width  int
	height int

	items  []engine.Item
	cursor int
	vp     viewport.Model
}

func newLogsModel(tax *taxonomy.Taxonomy) logsModel {
	return logsModel{tax: tax, vp: viewport.New(0, 0)}
}

func (l *logsModel) setSize(w, h int) {
	l.width = w
	l.height = h
	// panel border and padding, title and hint lines
	l.vp.Width = w - 8
	l.vp.Height = h - 8
	if l.vp.Height < 1 {
		l.vp.Height = 1
	}
	l.render()
}

func (l *logsModel) setItems(items []engine.Item) {
	l.items = items
	if l.cursor >= len(items) {
		l.cursor = len(items) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
	l.render()
}

func (l logsModel) selected() (engine.Item, bool) {
	if len(l.items) == 0 {
		return engine.Item{}, false
	}
	return l.items[l.cursor], true
}

func (l logsModel) update(msg tea.Msg) (logsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Up):
			if l.cursor > 0 {
				l.cursor--
			}
		case key.Matches(msg, keys.Down):
			if l.cursor < len(l.items)-1 {
				l.cursor++
			}
		default:
			return l, nil
		}
		l.render()
	}
	return l, nil
}

// render rebuilds the viewport content and keeps the cursor row visible.
func (l *logsModel) render() {
	rows := make([]string, len(l.items))
	for i, it := range l.items {
		rows[i] = l.renderRow(it, i == l.cursor)
	}
	l.vp.SetContent(strings.Join(rows, "\n"))

	switch {
	case l.cursor < l.vp.YOffset:
		l.vp.SetYOffset(l.cursor)
	case l.vp.Height > 0 && l.cursor >= l.vp.YOffset+l.vp.Height:
		l.vp.SetYOffset(l.cursor - l.vp.Height + 1)
	}
}

func (l logsModel) renderRow(it engine.Item, selected bool) string {
	cursor := "  "
	style := normalItemStyle
	if selected {
		cursor = "> "
		style = selectedItemStyle
	}

	cat := it.Category
	if it.Subcategory != "" {
		cat += "/" + it.Subcategory
	}
	where := ""
	if it.Location != "" {
		where = mutedStyle.Render(" @" + it.Location)
	}
	nameWidth := l.vp.Width - 52
	if nameWidth < 10 {
		nameWidth = 10
	}

	text := fmt.Sprintf("%-16s %-*s %-20s",
		whenLabel(it), nameWidth, truncate(it.Name, nameWidth), truncate(cat, 20))
	return cursor + categoryDot(l.tax, it.Category) + " " + style.Render(text) + where
}

func (l logsModel) view(title string) string {
	w := l.width - 4

	if len(l.items) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render(title),
			"",
			mutedStyle.Render("No logs here. Press n to add one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	count := mutedStyle.Render(fmt.Sprintf("  %d logs", len(l.items)))
	hint := mutedStyle.Render("  n: new  e/enter: edit  d: delete  [ ]: list scope")
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title)+count,
		"",
		l.vp.View(),
		"",
		hint,
	))
}
