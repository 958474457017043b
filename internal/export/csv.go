package export

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/walak/walak/internal/engine"
	"github.com/walak/walak/internal/store"
	"github.com/walak/walak/internal/taxonomy"
)

var csvHeader = []string{"ID", "Date", "End Date", "Name", "Category", "Block", "Subcategory", "Location", "Note"}

// ToCSV writes one row per log. Block is the taxonomy block the log
// counts towards, empty when none claims it.
func ToCSV(logs []store.Log, tax *taxonomy.Taxonomy, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, l := range logs {
		row := []string{
			l.ID,
			l.Date,
			l.EndDate,
			l.Name,
			l.Category,
			blockOf(l, tax),
			l.Subcategory,
			l.Location,
			l.Note,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func blockOf(l store.Log, tax *taxonomy.Taxonomy) string {
	if tax == nil {
		return ""
	}
	c, ok := tax.Category(l.Category)
	if !ok {
		return ""
	}
	b, _ := engine.BlockFor(l, c.Blocks)
	return b
}
