package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/walak/walak/internal/engine"
	"github.com/walak/walak/internal/export"
	"github.com/walak/walak/internal/logging"
	"github.com/walak/walak/internal/store"
)

// Options wires the app to its data. Settings may be nil when logs live
// in a remote store; the config values then stay in effect.
type Options struct {
	Repo       store.Repository
	Settings   *store.Store
	Engine     *engine.Engine
	MonthNotes map[string]string
	ExportDir  string
	Scope      engine.Scope
	Months     int
	Now        func() time.Time
}

// listScopes are the sub-scopes the Logs tab cycles through, coarsest
// first.
var listScopes = []engine.Scope{engine.ScopeList, engine.ScopeYear, engine.ScopeMonth, engine.ScopeWeek, engine.ScopeDay}

// App is the root Bubble Tea model.
type App struct {
	repo      store.Repository
	eng       *engine.Engine
	memo      *engine.Memo
	notes     map[string]string
	exportDir string
	now       func() time.Time

	width  int
	height int

	activeView  viewState
	state       engine.ViewState
	offsets     map[viewState]int
	categoryIdx int
	categories  []string
	months      int
	showNotes   bool

	ds      engine.Dataset
	loads   uint64
	loading bool
	result  engine.Result

	showHelp      bool
	exportPicking bool
	exportCursor  int
	searching     bool
	search        textinput.Model

	logs     logsModel
	week     gridModel
	year     gridModel
	stats    statsModel
	settings settingsModel
	form     logFormModel

	help      help.Model
	status    string
	statusErr bool
}

func NewApp(opts Options) App {
	h := help.New()
	h.ShowAll = false

	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Months <= 0 {
		opts.Months = engine.DefaultMonths
	}
	if opts.ExportDir == "" {
		opts.ExportDir, _ = os.UserHomeDir()
	}

	scope := opts.Scope
	months := opts.Months
	showNotes := true
	if opts.Settings != nil {
		scope = engine.ParseScope(opts.Settings.SettingOr(store.SettingDefaultScope, scope.String()))
		months = opts.Settings.IntSetting(store.SettingMonthsWindow, months)
		showNotes = opts.Settings.SettingOr(store.SettingShowNotes, "true") == "true"
	}
	if months <= 0 {
		months = engine.DefaultMonths
	}

	search := textinput.New()
	search.Placeholder = "regex"
	search.Prompt = "/"
	search.CharLimit = 80

	tax := opts.Engine.Taxonomy()
	a := App{
		repo:       opts.Repo,
		eng:        opts.Engine,
		memo:       engine.NewMemo(opts.Engine),
		notes:      opts.MonthNotes,
		exportDir:  opts.ExportDir,
		now:        opts.Now,
		state:      engine.DefaultViewState(),
		offsets:    map[viewState]int{},
		categories: append([]string{engine.AllCategories}, tax.Names()...),
		months:     months,
		showNotes:  showNotes,
		loading:    true,
		search:     search,
		logs:       newLogsModel(tax),
		week:       newGridModel(tax, engine.ScopeWeek),
		year:       newGridModel(tax, engine.ScopeYear),
		stats:      newStatsModel(opts.Engine),
		settings:   newSettingsModel(opts.Settings),
		form:       newLogFormModel(opts.Repo, tax, opts.Engine.Location()),
		help:       h,
	}
	a.applyScope(scope)
	a.recompute()
	return a
}

// applyScope opens the tab that shows scope. Scopes without a tab of
// their own open the Logs tab framed by that scope.
func (a *App) applyScope(scope engine.Scope) {
	switch scope {
	case engine.ScopeWeek:
		a.activeView = viewWeek
	case engine.ScopeYear:
		a.activeView = viewYear
	default:
		a.activeView = viewLogs
		a.state.ListScope = scope
	}
	a.state.Scope, _ = a.activeView.scopeFor()
	a.state.Offset = 0
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.load(),
		a.settings.refresh(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Minute, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) load() tea.Cmd {
	repo := a.repo
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
		defer cancel()
		logs, err := repo.ListLogs(ctx)
		return logsLoadedMsg{logs: logs, err: err}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 5 // header, frame line and footer
		a.logs.setSize(a.width, contentHeight)
		a.week.setSize(a.width, contentHeight)
		a.year.setSize(a.width, contentHeight)
		a.stats.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		a.form.setSize(a.width, contentHeight)
		return a, nil

	case logsLoadedMsg:
		a.loading = false
		if msg.err != nil {
			logging.Log.WithError(msg.err).Error("load logs")
			a.setStatus("Load failed: "+msg.err.Error(), true)
			return a, nil
		}
		a.loads++
		a.ds = a.eng.Prepare(msg.logs)
		a.ds.Revision = a.loads
		if d := a.ds.Diagnostics; d.Skipped > 0 {
			for _, p := range d.Problems {
				logging.Log.WithField("id", p.ID).WithField("name", p.Name).Warn("skipped log: " + p.Reason)
			}
		}
		a.recompute()
		a.refreshStats()
		return a, nil

	case logSavedMsg:
		verb := "Updated"
		if msg.created {
			verb = "Added"
		}
		if msg.log != nil {
			a.setStatus(fmt.Sprintf("%s %s", verb, msg.log.Name), false)
		}
		return a, a.load()

	case logDeletedMsg:
		a.setStatus("Deleted log", false)
		return a, a.load()

	case settingsSavedMsg:
		a.months = msg.months
		a.showNotes = msg.showNotes
		a.setStatus("Settings saved", false)
		a.refreshStats()
		return a, nil

	case statusMsg:
		a.setStatus(msg.text, msg.isError)
		return a, nil

	case exportDoneMsg:
		a.setStatus("Exported to "+msg.path, false)
		a.exportPicking = false
		return a, nil

	case tickMsg:
		a.recompute()
		a.refreshStats()
		return a, tickCmd()

	case tea.KeyMsg:
		return a.updateKey(msg)
	}

	// Cursor blinks and other form internals.
	if a.form.active {
		var cmd tea.Cmd
		a.form, cmd = a.form.update(msg)
		return a, cmd
	}
	return a.updateActiveView(msg)
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.exportPicking {
		return a.updateExportPicker(msg)
	}
	if a.form.active {
		var cmd tea.Cmd
		a.form, cmd = a.form.update(msg)
		return a, cmd
	}
	if a.activeView == viewSettings && a.settings.formActive {
		return a.updateActiveView(msg)
	}
	if a.searching {
		return a.updateSearch(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, keys.Help):
		a.showHelp = !a.showHelp
		a.help.ShowAll = a.showHelp
		return a, nil
	case key.Matches(msg, keys.Tab1):
		return a.switchView(viewLogs)
	case key.Matches(msg, keys.Tab2):
		return a.switchView(viewWeek)
	case key.Matches(msg, keys.Tab3):
		return a.switchView(viewYear)
	case key.Matches(msg, keys.Tab4):
		return a.switchView(viewStats)
	case key.Matches(msg, keys.Tab5):
		a.activeView = viewSettings
		return a, a.settings.refresh()
	case key.Matches(msg, keys.Tab):
		return a.switchView((a.activeView + 1) % viewState(len(viewNames)))
	case key.Matches(msg, keys.Reload):
		a.loading = true
		return a, a.load()
	case key.Matches(msg, keys.Export):
		a.exportPicking = true
		a.exportCursor = 0
		return a, nil
	}

	if _, ok := a.activeView.scopeFor(); ok {
		return a.updateLogView(msg)
	}
	if a.activeView == viewStats && a.stats.atRoot() && key.Matches(msg, keys.Back) {
		return a.switchView(viewLogs)
	}
	return a.updateActiveView(msg)
}

// updateLogView handles the keys shared by the Logs, Week and Year tabs.
func (a App) updateLogView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Prev):
		a.offsets[a.activeView]--
		a.state.Offset = a.offsets[a.activeView]
		a.recompute()
		return a, nil
	case key.Matches(msg, keys.Next):
		a.offsets[a.activeView]++
		a.state.Offset = a.offsets[a.activeView]
		a.recompute()
		return a, nil
	case key.Matches(msg, keys.ListPrev), key.Matches(msg, keys.ListNext):
		if a.activeView != viewLogs {
			return a, nil
		}
		step := 1
		if key.Matches(msg, keys.ListPrev) {
			step = -1
		}
		a.state.ListScope = cycleScope(a.state.ListScope, step)
		a.offsets[viewLogs] = 0
		a.state.Offset = 0
		a.recompute()
		return a, nil
	case key.Matches(msg, keys.Category):
		a.categoryIdx = (a.categoryIdx + 1) % len(a.categories)
		a.state.Category = a.categories[a.categoryIdx]
		a.recompute()
		return a, nil
	case key.Matches(msg, keys.Search):
		a.searching = true
		a.search.SetValue(a.state.Search)
		return a, a.search.Focus()
	case key.Matches(msg, keys.Back):
		if a.state.Search != "" {
			a.state.Search = ""
			a.search.SetValue("")
			a.recompute()
		}
		return a, nil
	case key.Matches(msg, keys.New):
		var cmd tea.Cmd
		a.form, cmd = a.form.openNew(a.now(), a.state.Category)
		return a, cmd
	case key.Matches(msg, keys.Enter):
		if a.activeView == viewYear && !a.result.Searching {
			return a.openMonth()
		}
		return a.editSelected()
	case key.Matches(msg, keys.Edit):
		return a.editSelected()
	case key.Matches(msg, keys.Delete):
		it, ok := a.selected()
		if !ok {
			return a, nil
		}
		var cmd tea.Cmd
		a.form, cmd = a.form.openDelete(it.Log)
		return a, cmd
	}
	return a.updateActiveView(msg)
}

func cycleScope(s engine.Scope, step int) engine.Scope {
	i := 0
	for j, ls := range listScopes {
		if ls == s {
			i = j
			break
		}
	}
	i = (i + step + len(listScopes)) % len(listScopes)
	return listScopes[i]
}

// openMonth drills from the year grid into the Logs tab, framed on the
// selected month.
func (a App) openMonth() (tea.Model, tea.Cmd) {
	b, ok := a.year.selectedBucket()
	if !ok {
		return a, nil
	}
	now := a.now()
	offset := (b.Start.Year()-now.Year())*12 + int(b.Start.Month()) - int(now.Month())

	a.activeView = viewLogs
	a.state.Scope = engine.ScopeList
	a.state.ListScope = engine.ScopeMonth
	a.offsets[viewLogs] = offset
	a.state.Offset = offset
	a.recompute()
	return a, nil
}

func (a App) editSelected() (tea.Model, tea.Cmd) {
	it, ok := a.selected()
	if !ok {
		return a, nil
	}
	var cmd tea.Cmd
	a.form, cmd = a.form.openEdit(it.Log)
	return a, cmd
}

// selected is the log under the cursor of the visible log view.
func (a App) selected() (engine.Item, bool) {
	if a.result.Searching || a.activeView == viewLogs {
		return a.logs.selected()
	}
	if a.activeView == viewWeek {
		return a.week.selected()
	}
	return engine.Item{}, false
}

func (a App) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.searching = false
		a.search.Blur()
		a.search.SetValue("")
		a.state.Search = ""
		a.recompute()
		return a, nil
	case tea.KeyEnter:
		a.searching = false
		a.search.Blur()
		return a, nil
	}

	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	if v := a.search.Value(); v != a.state.Search {
		a.state.Search = v
		a.recompute()
	}
	return a, cmd
}

func (a App) switchView(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	if scope, ok := v.scopeFor(); ok {
		a.state.Scope = scope
		a.state.Offset = a.offsets[v]
		a.recompute()
	}
	if v == viewSettings {
		return a, a.settings.refresh()
	}
	return a, nil
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewLogs:
		a.logs, cmd = a.logs.update(msg)
	case viewWeek:
		if a.result.Searching {
			a.logs, cmd = a.logs.update(msg)
		} else {
			a.week, cmd = a.week.update(msg)
		}
	case viewYear:
		if a.result.Searching {
			a.logs, cmd = a.logs.update(msg)
		} else {
			a.year, cmd = a.year.update(msg)
		}
	case viewStats:
		a.stats, cmd = a.stats.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

// recompute runs the view pipeline for the current state and hands the
// result to the visible log views.
func (a *App) recompute() {
	now := a.now()
	a.result = a.memo.View(a.ds, a.state, now)
	a.logs.setItems(a.result.Items)
	switch a.state.Scope {
	case engine.ScopeWeek:
		a.week.setBuckets(a.result.Buckets, now)
	case engine.ScopeYear:
		a.year.setBuckets(a.result.Buckets, now)
	}
}

func (a *App) refreshStats() {
	a.stats.setData(a.ds, a.now(), a.months)
}

func (a *App) setStatus(text string, isError bool) {
	a.status = text
	a.statusErr = isError
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewLogs:
		content = a.logs.view(a.listTitle())
	case viewWeek:
		if a.result.Searching {
			content = a.logs.view("Search")
		} else {
			content = a.week.view(a.result.Frame.Title)
		}
	case viewYear:
		if a.result.Searching {
			content = a.logs.view("Search")
		} else {
			content = a.year.view(a.result.Frame.Title)
		}
	case viewStats:
		content = a.stats.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	switch {
	case a.form.active:
		content = a.form.view()
	case a.exportPicking:
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) listTitle() string {
	switch {
	case a.result.Searching:
		return "Search"
	case a.result.Frame.Title != "":
		return a.result.Frame.Title
	}
	return "All logs"
}

// monthNote is the configured note for the month being viewed, if any.
func (a App) monthNote() string {
	if !a.showNotes || a.result.Searching {
		return ""
	}
	switch a.result.Frame.Scope {
	case engine.ScopeDay, engine.ScopeWeek, engine.ScopeMonth:
		return a.notes[a.result.Frame.Reference.Format("2006-01")]
	}
	return ""
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("walak")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	top := headerStyle.Render(lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow))
	return lipgloss.JoinVertical(lipgloss.Left, top, a.renderFrameLine())
}

func (a App) renderFrameLine() string {
	if _, ok := a.activeView.scopeFor(); !ok {
		return ""
	}
	line := frameStyle.Render(frameLine(a.result, a.monthNote()))
	if a.state.Category != engine.AllCategories && a.state.Category != "" {
		line += " " + categoryStyle(a.eng.Taxonomy().Color(a.state.Category, "")).Render("["+a.state.Category+"]")
	}
	switch {
	case a.searching:
		line += " " + a.search.View()
	case a.state.Search != "":
		line += " " + highlightStyle.Render("/"+a.state.Search)
	}
	if a.loading {
		line += " " + mutedStyle.Render("loading…")
	}
	return line
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	warn := ""
	if n := a.ds.Diagnostics.Skipped; n > 0 {
		warn = warningStyle.Render(fmt.Sprintf(" ⚠ %d logs skipped", n))
	}

	status := ""
	if a.status != "" {
		style := successStyle
		if a.statusErr {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	left := footerStyle.Render(helpView)
	right := warn + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	formats := []string{"CSV", "JSON"}
	var rows []string
	rows = append(rows, title)
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("%d logs in the current view", len(a.result.Items))))
	rows = append(rows, "")
	for i, f := range formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < 1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

// doExport writes the logs of the current view.
func (a App) doExport(format int) tea.Cmd {
	logs := make([]store.Log, len(a.result.Items))
	for i, it := range a.result.Items {
		logs[i] = it.Log
	}
	tax := a.eng.Taxonomy()
	dir := a.exportDir
	dateStr := a.now().Format("2006-01-02")

	return func() tea.Msg {
		var path string
		if format == 0 {
			path = filepath.Join(dir, fmt.Sprintf("walak-export-%s.csv", dateStr))
			if err := export.ToCSV(logs, tax, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(dir, fmt.Sprintf("walak-export-%s.json", dateStr))
			if err := export.ToJSON(logs, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}
		return exportDoneMsg{path: path}
	}
}
