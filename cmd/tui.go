package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/walak/walak/internal/logging"
	"github.com/walak/walak/internal/tui"
)

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logFile := cfg.LogFile
	if logFile == "" {
		if logFile, err = logging.DefaultFile(); err != nil {
			return err
		}
	}
	closer, err := logging.SetOutputFile(logFile)
	if err != nil {
		return err
	}
	defer closer.Close()

	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}

	home, _ := os.UserHomeDir()
	app := tui.NewApp(tui.Options{
		Repo:       b.Repo,
		Settings:   b.Settings,
		Engine:     eng,
		MonthNotes: cfg.MonthNotes,
		ExportDir:  home,
		Scope:      cfg.Scope,
		Months:     cfg.Months,
	})
	logging.Log.WithField("source", cfg.Source).Info("starting tui")

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
