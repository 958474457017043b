package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/walak/walak/internal/engine"
	"github.com/walak/walak/internal/export"
	"github.com/walak/walak/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write logs to a CSV or JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")
		category, _ := cmd.Flags().GetString("category")
		search, _ := cmd.Flags().GetString("search")
		limit, _ := cmd.Flags().GetInt("limit")
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")

		format = strings.ToLower(format)
		if format != "csv" && format != "json" {
			return fmt.Errorf("unknown format %q (csv or json)", format)
		}
		if out == "" {
			out = defaultExportPath(format, time.Now())
		}
		f, err := exportFilter(category, from, to)
		if err != nil {
			return err
		}
		// A search runs after the query, so the limit can only go to
		// the store without one.
		if search == "" {
			f.Limit = limit
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		b, err := openBackend(cfg)
		if err != nil {
			return err
		}
		defer b.Close()
		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}

		all, err := queryLogs(cmd.Context(), b, f)
		if err != nil {
			return err
		}
		logs := selectLogs(eng, all, category, search)
		if limit > 0 && len(logs) > limit {
			logs = logs[:limit]
		}

		if format == "csv" {
			err = export.ToCSV(logs, eng.Taxonomy(), out)
		} else {
			err = export.ToJSON(logs, out)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d logs to %s\n", len(logs), out)
		return nil
	},
}

func defaultExportPath(format string, now time.Time) string {
	return fmt.Sprintf("walak-export-%s.%s", now.Format("2006-01-02"), format)
}

// exportFilter turns the date flags into a store filter. Both dates are
// calendar days; to is inclusive.
func exportFilter(category, from, to string) (store.LogFilter, error) {
	f := store.LogFilter{Category: category}
	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return f, fmt.Errorf("invalid --from %q: want YYYY-MM-DD", from)
		}
		f.From = &t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return f, fmt.Errorf("invalid --to %q: want YYYY-MM-DD", to)
		}
		t = t.AddDate(0, 0, 1)
		f.To = &t
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return f, fmt.Errorf("--from %s is after --to %s", from, to)
	}
	return f, nil
}

// queryLogs lets the local store do the filtering in SQL. Remote sources
// only list, so the filter runs over the full list instead.
func queryLogs(ctx context.Context, b backend, f store.LogFilter) ([]store.Log, error) {
	if b.Settings != nil {
		return b.Settings.QueryLogs(ctx, f)
	}
	all, err := b.Repo.ListLogs(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(all), nil
}

// selectLogs applies the category and search filters, newest first.
// Logs the engine cannot read are left out.
func selectLogs(eng *engine.Engine, logs []store.Log, category, search string) []store.Log {
	if category == "" {
		category = engine.AllCategories
	}
	ds := eng.Prepare(logs)
	items := engine.ApplyFilters(ds.Items, engine.Filter{Category: category, Search: search})
	out := make([]store.Log, len(items))
	for i, it := range items {
		out[i] = it.Log
	}
	return out
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("format", "f", "csv", "Output format: csv or json")
	exportCmd.Flags().StringP("out", "o", "", "Output file (default walak-export-<date>.<format>)")
	exportCmd.Flags().StringP("category", "c", "", "Only logs of this category")
	exportCmd.Flags().StringP("search", "s", "", "Only logs matching this pattern")
	exportCmd.Flags().String("from", "", "First day to export, YYYY-MM-DD")
	exportCmd.Flags().String("to", "", "Last day to export, YYYY-MM-DD")
	exportCmd.Flags().IntP("limit", "n", 0, "Export at most this many of the most recent logs")
}
