package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ronnes/glucolog/internal/metrics"
	"github.com/ronnes/glucolog/internal/models"
)

// BackupVersion identifies the current JSON backup schema.
const BackupVersion = 2

// Backup is the versioned JSON export payload.
type Backup struct {
	Version        int                   `json:"version"`
	Meals          []models.MealRecord   `json:"meals"`
	FastingEntries []models.FastingEntry `json:"fastingEntries"`
}

// ExportJSON renders the full collection as an indented v2 backup, with
// derived meal fields recomputed before serialization.
func ExportJSON(meals []models.MealRecord, fasting []models.FastingEntry) ([]byte, error) {
	derived := make([]models.MealRecord, len(meals))
	for i, m := range meals {
		derived[i] = metrics.WithDerived(m)
	}
	if fasting == nil {
		fasting = []models.FastingEntry{}
	}

	payload := Backup{
		Version:        BackupVersion,
		Meals:          derived,
		FastingEntries: fasting,
	}
	return json.MarshalIndent(payload, "", "  ")
}

// BackupFilename is the date-stamped name for a backup download, e.g.
// glucolog-backup-2026-09-01.csv.
func BackupFilename(ext string) string {
	return fmt.Sprintf("glucolog-backup-%s.%s", time.Now().UTC().Format("2006-01-02"), ext)
}

// decodeJSON accepts either the v2 object form or the legacy bare array of
// meals, returning loosely-typed candidate records.
func decodeJSON(data []byte) (meals []any, fasting []any, err error) {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, nil, err
	}

	switch payload := parsed.(type) {
	case []any:
		return payload, nil, nil
	case map[string]any:
		rawMeals, ok := payload["meals"].([]any)
		if !ok {
			return nil, nil, fmt.Errorf("invalid JSON backup format")
		}
		rawFasting, _ := payload["fastingEntries"].([]any)
		return rawMeals, rawFasting, nil
	}
	return nil, nil, fmt.Errorf("invalid JSON backup format")
}
