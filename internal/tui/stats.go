package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/walak/walak/internal/engine"
)

type statsPage int

const (
	statsOverview statsPage = iota
	statsCategory
	statsBlock
)

// blockPalette colours the stacked segments of a category chart.
var blockPalette = []string{
	"#7AA2F7", "#2ECC71", "#F39C12", "#E74C3C", "#BB9AF7", "#1ABC9C", "#E0AF68", "#F7768E",
}

// statsModel drills from the category overview into one category's
// stacked monthly chart and from there into one block's histogram.
type statsModel struct {
	eng    *engine.Engine
	width  int
	height int

	ds     engine.Dataset
	now    time.Time
	months int

	page        statsPage
	overview    []engine.CategoryStats
	cursor      int
	category    engine.CategoryStats
	blockCursor int
	block       engine.BlockStats

	chart barchart.Model
}

func newStatsModel(eng *engine.Engine) statsModel {
	return statsModel{
		eng:    eng,
		months: engine.DefaultMonths,
		chart:  barchart.New(60, 12),
	}
}

func (s *statsModel) setSize(w, h int) {
	s.width = w
	s.height = h
	s.buildChart()
}

// setData recomputes the overview and whichever detail page is open.
func (s *statsModel) setData(ds engine.Dataset, now time.Time, months int) {
	s.ds = ds
	s.now = now
	s.months = months
	s.overview = s.eng.Overview(ds, now, months)
	if s.cursor >= len(s.overview) {
		s.cursor = 0
	}
	switch s.page {
	case statsCategory:
		s.category = s.eng.CategoryStats(ds, s.category.Category, now, months)
	case statsBlock:
		s.category = s.eng.CategoryStats(ds, s.category.Category, now, months)
		s.block = s.eng.BlockStats(ds, s.block.Key, now, months)
	}
	s.buildChart()
}

// atRoot reports whether esc should leave the stats view handling to the
// app.
func (s statsModel) atRoot() bool {
	return s.page == statsOverview
}

func (s statsModel) update(msg tea.Msg) (statsModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}

	switch {
	case key.Matches(km, keys.Up):
		switch s.page {
		case statsOverview:
			if s.cursor > 0 {
				s.cursor--
			}
		case statsCategory:
			if s.blockCursor > 0 {
				s.blockCursor--
			}
		}

	case key.Matches(km, keys.Down):
		switch s.page {
		case statsOverview:
			if s.cursor < len(s.overview)-1 {
				s.cursor++
			}
		case statsCategory:
			if s.blockCursor < len(s.category.Blocks)-1 {
				s.blockCursor++
			}
		}

	case key.Matches(km, keys.Enter):
		switch s.page {
		case statsOverview:
			if len(s.overview) == 0 {
				return s, nil
			}
			s.category = s.eng.CategoryStats(s.ds, s.overview[s.cursor].Category, s.now, s.months)
			s.blockCursor = 0
			s.page = statsCategory
		case statsCategory:
			if len(s.category.Blocks) == 0 {
				return s, nil
			}
			s.block = s.category.Blocks[s.blockCursor]
			s.page = statsBlock
		}
		s.buildChart()

	case key.Matches(km, keys.Back):
		if s.page > statsOverview {
			s.page--
			s.buildChart()
		}
	}
	return s, nil
}

func (s *statsModel) buildChart() {
	chartWidth := s.width - 12
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if s.height > 34 {
		chartHeight = 14
	}
	s.chart = barchart.New(chartWidth, chartHeight)

	// Each bar needs at least a column and a gap; keep the newest months.
	fit := chartWidth / 4
	var bars []barchart.BarData
	switch s.page {
	case statsCategory:
		months := lastN(s.category.Stacked, fit)
		for _, m := range months {
			values := make([]barchart.BarValue, 0, len(m.Counts))
			for i, c := range m.Counts {
				values = append(values, barchart.BarValue{
					Name:  s.category.Blocks[i].Key,
					Value: float64(c),
					Style: lipgloss.NewStyle().Foreground(lipgloss.Color(blockColor(i))),
				})
			}
			if len(values) == 0 {
				values = []barchart.BarValue{{Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}}
			}
			bars = append(bars, barchart.BarData{Label: m.Start.Format("Jan"), Values: values})
		}
	case statsBlock:
		color := s.eng.Taxonomy().Color(s.category.Category, string(colorHighlight))
		for _, m := range lastN(s.block.Months, fit) {
			bars = append(bars, barchart.BarData{
				Label: m.Start.Format("Jan"),
				Values: []barchart.BarValue{{
					Name:  s.block.Key,
					Value: float64(m.Count),
					Style: lipgloss.NewStyle().Foreground(lipgloss.Color(color)),
				}},
			})
		}
	default:
		return
	}

	s.chart.PushAll(bars)
	s.chart.Draw()
}

func lastN[T any](xs []T, n int) []T {
	if n <= 0 || len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

func blockColor(i int) string {
	return blockPalette[i%len(blockPalette)]
}

func (s statsModel) view() string {
	w := s.width - 4
	var body string
	switch s.page {
	case statsCategory:
		body = s.viewCategory()
	case statsBlock:
		body = s.viewBlock()
	default:
		body = s.viewOverview()
	}
	return panelStyle.Width(w).Render(body)
}

func (s statsModel) viewOverview() string {
	rows := []string{
		titleStyle.Render("Stats") + mutedStyle.Render(fmt.Sprintf("  last %d months", s.months)),
		"",
	}
	if len(s.overview) == 0 {
		return strings.Join(append(rows, mutedStyle.Render("No categories")), "\n")
	}

	tax := s.eng.Taxonomy()
	for i, c := range s.overview {
		cursor := "  "
		style := normalItemStyle
		if i == s.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		icon := ""
		if cat, ok := tax.Category(c.Category); ok {
			icon = cat.Icon
		}
		rows = append(rows, fmt.Sprintf("%s%s %s %s %s",
			cursor,
			categoryDot(tax, c.Category),
			style.Render(fmt.Sprintf("%-2s %-12s", icon, c.Category)),
			highlightStyle.Render(fmt.Sprintf("%5d", c.Total)),
			mutedStyle.Render("· "+agoLabel(c.Last, s.now)),
		))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: open category"))
	return strings.Join(rows, "\n")
}

func (s statsModel) viewCategory() string {
	c := s.category
	header := titleStyle.Render(c.Category) + mutedStyle.Render(fmt.Sprintf("  %d logs · last %s", c.Total, agoLabel(c.Last, s.now)))

	var legend []string
	var rows []string
	for i, b := range c.Blocks {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color(blockColor(i))).Render("●")
		legend = append(legend, dot+" "+b.Key)

		cursor := "  "
		style := normalItemStyle
		if i == s.blockCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, fmt.Sprintf("%s%s %s %s %s",
			cursor, dot,
			style.Render(fmt.Sprintf("%-12s", b.Key)),
			highlightStyle.Render(fmt.Sprintf("%5d", b.Total)),
			mutedStyle.Render("· "+agoLabel(b.Last, s.now)),
		))
	}
	if c.Unmatched > 0 {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %d logs in no block", c.Unmatched)))
	}
	if len(c.Blocks) == 0 {
		rows = append(rows, mutedStyle.Render("  This category has no blocks"))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header, "",
		s.chart.View(), "",
		"  "+strings.Join(legend, "  "), "",
		strings.Join(rows, "\n"), "",
		mutedStyle.Render("  enter: open block  esc: back"),
	)
}

func (s statsModel) viewBlock() string {
	b := s.block
	header := titleStyle.Render(s.category.Category+" / "+b.Key) +
		mutedStyle.Render(fmt.Sprintf("  %d logs · last %s", b.Total, agoLabel(b.Last, s.now)))

	inWindow := mutedStyle.Render(fmt.Sprintf("  %d in the last %d months", b.HistogramTotal(), len(b.Months)))
	return lipgloss.JoinVertical(lipgloss.Left,
		header, "",
		s.chart.View(), "",
		inWindow, "",
		mutedStyle.Render("  esc: back"),
	)
}
