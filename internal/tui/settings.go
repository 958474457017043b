package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/walak/walak/internal/engine"
	"github.com/walak/walak/internal/store"
)

type settingsModel struct {
	store  *store.Store
	width  int
	height int

	settings   []store.Setting
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	defaultScope *string
	monthsWindow *string
	showNotes    *bool
}

func newSettingsModel(s *store.Store) settingsModel {
	scope, months := "", ""
	notes := true
	return settingsModel{
		store:        s,
		defaultScope: &scope,
		monthsWindow: &months,
		showNotes:    &notes,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
}

// settingsSavedMsg carries the values the app applies immediately.
type settingsSavedMsg struct {
	months    int
	showNotes bool
}

func (s settingsModel) refresh() tea.Cmd {
	if s.store == nil {
		return nil
	}
	return func() tea.Msg {
		settings, _ := s.store.GetAllSettings()
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			if s.store == nil {
				return s, nil
			}
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.defaultScope = s.getVal(store.SettingDefaultScope, engine.ScopeWeek.String())
	*s.monthsWindow = s.getVal(store.SettingMonthsWindow, strconv.Itoa(engine.DefaultMonths))
	*s.showNotes = s.getVal(store.SettingShowNotes, "true") == "true"

	scopes := make([]huh.Option[string], 0, 5)
	for _, sc := range []engine.Scope{engine.ScopeList, engine.ScopeDay, engine.ScopeWeek, engine.ScopeMonth, engine.ScopeYear} {
		scopes = append(scopes, huh.NewOption(sc.String(), sc.String()))
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Default scope").
				Options(scopes...).
				Value(s.defaultScope),
			huh.NewInput().Title("Stats window (months)").
				Value(s.monthsWindow).
				Validate(validateMonths),
			huh.NewConfirm().Title("Show month notes").
				Affirmative("Yes").
				Negative("No").
				Value(s.showNotes),
		).Title("General"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func validateMonths(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive number of months")
	}
	return nil
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		if err := s.saveSettings(); err != nil {
			return s, func() tea.Msg {
				return statusMsg{text: "Settings not saved: " + err.Error(), isError: true}
			}
		}
		saved := s.saved()
		return s, tea.Batch(s.refresh(), func() tea.Msg { return saved })
	}

	return s, cmd
}

func (s settingsModel) saveSettings() error {
	if err := s.store.SetSetting(store.SettingDefaultScope, *s.defaultScope); err != nil {
		return err
	}
	if err := s.store.SetSetting(store.SettingMonthsWindow, *s.monthsWindow); err != nil {
		return err
	}
	return s.store.SetSetting(store.SettingShowNotes, strconv.FormatBool(*s.showNotes))
}

func (s settingsModel) saved() settingsSavedMsg {
	months, err := strconv.Atoi(*s.monthsWindow)
	if err != nil || months <= 0 {
		months = engine.DefaultMonths
	}
	return settingsSavedMsg{months: months, showNotes: *s.showNotes}
}

func (s settingsModel) getVal(k, fallback string) string {
	return s.store.SettingOr(k, fallback)
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.store == nil {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("Settings need the local store"),
		))
	}

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	rows := []string{title, ""}
	for _, setting := range s.settings {
		label := lipgloss.NewStyle().Width(24).Render(setting.Key)
		value := highlightStyle.Render(formatSettingValue(setting.Key, setting.Value))
		rows = append(rows, fmt.Sprintf("  %s %s", label, value))
	}
	rows = append(rows, "", mutedStyle.Render("Press enter to edit settings"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func formatSettingValue(k, v string) string {
	switch k {
	case store.SettingMonthsWindow:
		return v + " months"
	case store.SettingShowNotes:
		if v == "true" {
			return "on"
		}
		return "off"
	}
	return v
}
