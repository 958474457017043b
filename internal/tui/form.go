package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/walak/walak/internal/engine"
	"github.com/walak/walak/internal/store"
	"github.com/walak/walak/internal/taxonomy"
)

const repoTimeout = 10 * time.Second

type formKind int

const (
	formNew formKind = iota
	formEdit
	formDelete
)

// logFormModel owns the new, edit and delete dialogs. Field values live
// behind pointers so they survive the value copies of Update.
type logFormModel struct {
	repo  store.Repository
	tax   *taxonomy.Taxonomy
	loc   *time.Location
	width int

	active    bool
	kind      formKind
	form      *huh.Form
	editingID string

	date        *string
	endDate     *string
	name        *string
	category    *string
	subcategory *string
	location    *string
	note        *string
	confirm     *bool
}

func newLogFormModel(repo store.Repository, tax *taxonomy.Taxonomy, loc *time.Location) logFormModel {
	var date, end, name, cat, sub, where, note string
	var confirm bool
	return logFormModel{
		repo:        repo,
		tax:         tax,
		loc:         loc,
		date:        &date,
		endDate:     &end,
		name:        &name,
		category:    &cat,
		subcategory: &sub,
		location:    &where,
		note:        &note,
		confirm:     &confirm,
	}
}

func (f *logFormModel) setSize(w, _ int) {
	f.width = w
}

// openNew starts a blank log dated now. A category filter other than
// "all" preselects that category.
func (f logFormModel) openNew(now time.Time, category string) (logFormModel, tea.Cmd) {
	f.load(store.Log{Date: store.FormatDate(now)})
	if category != "" && category != engine.AllCategories {
		*f.category = category
	}
	f.kind = formNew
	f.editingID = ""
	return f.show()
}

func (f logFormModel) openEdit(l store.Log) (logFormModel, tea.Cmd) {
	f.load(l)
	f.kind = formEdit
	f.editingID = l.ID
	return f.show()
}

func (f logFormModel) openDelete(l store.Log) (logFormModel, tea.Cmd) {
	f.load(l)
	*f.confirm = false
	f.kind = formDelete
	f.editingID = l.ID
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %q?", l.Name)).
				Description(l.Date + " · " + l.Category).
				Affirmative("Delete").
				Negative("Keep").
				Value(f.confirm),
		),
	).WithShowHelp(true)
	f.active = true
	return f, f.form.Init()
}

func (f *logFormModel) load(l store.Log) {
	*f.date = l.Date
	*f.endDate = l.EndDate
	*f.name = l.Name
	*f.category = l.Category
	*f.subcategory = l.Subcategory
	*f.location = l.Location
	*f.note = l.Note
	if *f.category == "" {
		if names := f.tax.Names(); len(names) > 0 {
			*f.category = names[0]
		}
	}
}

func (f logFormModel) show() (logFormModel, tea.Cmd) {
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Date").
				Description("YYYY-MM-DD or YYYY-MM-DDTHH:MM").
				Value(f.date).
				Validate(f.validateDate(true)),
			huh.NewInput().Title("Name").
				Value(f.name).
				Suggestions(f.blockSuggestions()).
				Validate(required("name")),
			huh.NewSelect[string]().Title("Category").
				Options(f.categoryOptions()...).
				Value(f.category),
		),
		huh.NewGroup(
			huh.NewInput().Title("Subcategory").
				Value(f.subcategory).
				Suggestions(f.subcategorySuggestions()),
			huh.NewInput().Title("Location").Value(f.location),
			huh.NewInput().Title("End date").
				Description("optional").
				Value(f.endDate).
				Validate(f.validateDate(false)),
			huh.NewText().Title("Note").Value(f.note),
		),
	).WithShowHelp(true).WithShowErrors(true)

	f.active = true
	return f, f.form.Init()
}

func (f logFormModel) categoryOptions() []huh.Option[string] {
	names := f.tax.Names()
	known := false
	opts := make([]huh.Option[string], 0, len(names)+1)
	for _, n := range names {
		label := n
		if c, ok := f.tax.Category(n); ok && c.Icon != "" {
			label = c.Icon + " " + n
		}
		opts = append(opts, huh.NewOption(label, n))
		if taxonomy.Normalize(n) == taxonomy.Normalize(*f.category) {
			known = true
		}
	}
	// Keep an out-of-taxonomy category selectable when editing.
	if !known && *f.category != "" {
		opts = append(opts, huh.NewOption(*f.category, *f.category))
	}
	return opts
}

func (f logFormModel) blockSuggestions() []string {
	var out []string
	for _, c := range f.tax.Categories {
		out = append(out, c.Blocks...)
	}
	return out
}

func (f logFormModel) subcategorySuggestions() []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range f.tax.Categories {
		for _, s := range c.Subcategories {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

func (f logFormModel) validateDate(require bool) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			if require {
				return errors.New("date is required")
			}
			return nil
		}
		_, _, err := store.ParseDate(s, f.loc)
		return err
	}
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func (f logFormModel) update(msg tea.Msg) (logFormModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			f.active = false
			f.form = nil
			return f, nil
		}
	}

	form, cmd := f.form.Update(msg)
	if hf, ok := form.(*huh.Form); ok {
		f.form = hf
	}

	switch f.form.State {
	case huh.StateCompleted:
		f.active = false
		return f, f.submit()
	case huh.StateAborted:
		f.active = false
		return f, nil
	}
	return f, cmd
}

// submit turns the completed dialog into a repository call.
func (f logFormModel) submit() tea.Cmd {
	repo := f.repo
	id := f.editingID
	switch f.kind {
	case formDelete:
		if !*f.confirm {
			return nil
		}
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
			defer cancel()
			if err := repo.DeleteLog(ctx, id); err != nil {
				return statusMsg{text: "Delete failed: " + err.Error(), isError: true}
			}
			return logDeletedMsg{id: id}
		}

	case formEdit:
		patch := f.patch()
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
			defer cancel()
			l, err := repo.UpdateLog(ctx, id, patch)
			if err != nil {
				return statusMsg{text: "Update failed: " + err.Error(), isError: true}
			}
			return logSavedMsg{log: l}
		}

	default:
		l := f.log()
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
			defer cancel()
			created, err := repo.CreateLog(ctx, l)
			if err != nil {
				return statusMsg{text: "Save failed: " + err.Error(), isError: true}
			}
			return logSavedMsg{log: created, created: true}
		}
	}
}

func (f logFormModel) log() store.Log {
	return store.Log{
		Date:        strings.TrimSpace(*f.date),
		EndDate:     strings.TrimSpace(*f.endDate),
		Name:        strings.TrimSpace(*f.name),
		Category:    *f.category,
		Subcategory: strings.TrimSpace(*f.subcategory),
		Location:    strings.TrimSpace(*f.location),
		Note:        strings.TrimSpace(*f.note),
	}
}

func (f logFormModel) patch() store.LogPatch {
	l := f.log()
	return store.LogPatch{
		Date:        &l.Date,
		EndDate:     &l.EndDate,
		Name:        &l.Name,
		Category:    &l.Category,
		Subcategory: &l.Subcategory,
		Location:    &l.Location,
		Note:        &l.Note,
	}
}

func (f logFormModel) view() string {
	if !f.active || f.form == nil {
		return ""
	}
	title := "New log"
	switch f.kind {
	case formEdit:
		title = "Edit log"
	case formDelete:
		title = "Delete log"
	}
	return activePanelStyle.Width(f.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), "", f.form.View()),
	)
}
