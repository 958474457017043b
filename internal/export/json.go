package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/walak/walak/internal/store"
)

// The logs key matches what the remote client accepts, so an export can
// be served back as a log collection.
type jsonExport struct {
	ExportedAt string      `json:"exported_at"`
	Count      int         `json:"count"`
	Logs       []store.Log `json:"logs"`
}

func ToJSON(logs []store.Log, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(logs),
		Logs:       logs,
	}
	if export.Logs == nil {
		export.Logs = []store.Log{}
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
