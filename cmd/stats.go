package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/walak/walak/internal/engine"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print log counts per category, block or month",
	Long: `Without flags prints one line per category. --category adds the block
breakdown and the monthly stacked counts; --block prints one block's monthly
histogram.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		block, _ := cmd.Flags().GetString("block")
		months, _ := cmd.Flags().GetInt("months")
		if category != "" && block != "" {
			return fmt.Errorf("--category and --block are exclusive")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if months <= 0 {
			months = cfg.Months
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

		logs, err := b.Repo.ListLogs(cmd.Context())
		if err != nil {
			return err
		}
		ds := eng.Prepare(logs)
		now := time.Now()
		out := cmd.OutOrStdout()

		switch {
		case block != "":
			printBlock(out, eng.BlockStats(ds, block, now, months), now)
		case category != "":
			if _, ok := eng.Taxonomy().Category(category); !ok {
				return fmt.Errorf("unknown category %q", category)
			}
			printCategory(out, eng.CategoryStats(ds, category, now, months), now)
		default:
			printOverview(out, eng.Overview(ds, now, months), now)
		}
		if n := ds.Diagnostics.Skipped; n > 0 {
			fmt.Fprintf(out, "\n%d logs skipped (unreadable date or missing name/category)\n", n)
		}
		return nil
	},
}

func lastSeen(t *time.Time, now time.Time) string {
	if t == nil {
		return "never"
	}
	return humanize.RelTime(*t, now, "ago", "from now")
}

func printOverview(w io.Writer, cats []engine.CategoryStats, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tLOGS\tLAST\t")
	total := 0
	for _, c := range cats {
		fmt.Fprintf(tw, "%s\t%d\t%s\t\n", c.Category, c.Total, lastSeen(c.Last, now))
		total += c.Total
	}
	fmt.Fprintln(tw, " \t \t \t")
	fmt.Fprintf(tw, "TOTAL\t%d\t\t\n", total)
	tw.Flush()
}

func printCategory(w io.Writer, c engine.CategoryStats, now time.Time) {
	fmt.Fprintf(w, "%s: %d logs, last %s\n\n", c.Category, c.Total, lastSeen(c.Last, now))

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "BLOCK\tLOGS\tLAST\t")
	for _, b := range c.Blocks {
		fmt.Fprintf(tw, "%s\t%d\t%s\t\n", b.Key, b.Total, lastSeen(b.Last, now))
	}
	if c.Unmatched > 0 {
		fmt.Fprintf(tw, "(no block)\t%d\t\t\n", c.Unmatched)
	}
	tw.Flush()

	if len(c.Blocks) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "MONTH\t")
	for _, b := range c.Blocks {
		fmt.Fprintf(tw, "%s\t", b.Key)
	}
	fmt.Fprintln(tw, "TOTAL\t")
	for _, m := range c.Stacked {
		fmt.Fprintf(tw, "%s\t", m.Label)
		for _, n := range m.Counts {
			fmt.Fprintf(tw, "%d\t", n)
		}
		fmt.Fprintf(tw, "%d\t\n", m.Total())
	}
	tw.Flush()
}

func printBlock(w io.Writer, b engine.BlockStats, now time.Time) {
	fmt.Fprintf(w, "%s: %d logs, last %s, %d in the last %d months\n\n",
		b.Key, b.Total, lastSeen(b.Last, now), b.HistogramTotal(), len(b.Months))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, m := range b.Months {
		fmt.Fprintf(tw, "%s\t%d\t%s\t\n", m.Label, m.Count, bar(m.Count))
	}
	tw.Flush()
}

func bar(n int) string {
	const maxWidth = 40
	if n > maxWidth {
		n = maxWidth
	}
	s := make([]rune, n)
	for i := range s {
		s[i] = '█'
	}
	return string(s)
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringP("category", "c", "", "Show one category's blocks and months")
	statsCmd.Flags().StringP("block", "b", "", "Show one block's monthly histogram")
	statsCmd.Flags().IntP("months", "m", 0, "Months in the window (default from view.months)")
}
