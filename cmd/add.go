package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/walak/walak/internal/store"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a log",
	Example: `  walak add --name yoga --category health
  walak add -n dad -c family --subcategory call --date 2025-06-10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		l := store.Log{}
		l.Name, _ = cmd.Flags().GetString("name")
		l.Category, _ = cmd.Flags().GetString("category")
		l.Date, _ = cmd.Flags().GetString("date")
		l.EndDate, _ = cmd.Flags().GetString("end")
		l.Subcategory, _ = cmd.Flags().GetString("subcategory")
		l.Location, _ = cmd.Flags().GetString("location")
		l.Note, _ = cmd.Flags().GetString("note")
		if l.Date == "" {
			l.Date = store.FormatDate(time.Now())
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tax, err := loadTaxonomy(cfg)
		if err != nil {
			return err
		}
		if c, ok := tax.Category(l.Category); ok {
			l.Category = c.Name
		} else {
			return fmt.Errorf("unknown category %q (one of %v)", l.Category, tax.Names())
		}
		if err := store.Validate(l); err != nil {
			return err
		}

		b, err := openBackend(cfg)
		if err != nil {
			return err
		}
		defer b.Close()

		created, err := b.Repo.CreateLog(cmd.Context(), l)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s, %s)\n", created.ID, created.Name, created.Category)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringP("name", "n", "", "What you did (required)")
	addCmd.Flags().StringP("category", "c", "", "Taxonomy category (required)")
	addCmd.Flags().StringP("date", "d", "", "When: YYYY-MM-DD or YYYY-MM-DDTHH:MM (default now)")
	addCmd.Flags().String("end", "", "End date, optional")
	addCmd.Flags().String("subcategory", "", "Subcategory, e.g. call or meet")
	addCmd.Flags().String("location", "", "Where")
	addCmd.Flags().String("note", "", "Free text")
	addCmd.MarkFlagRequired("name")
	addCmd.MarkFlagRequired("category")
}
