package codec

import (
	"path/filepath"
	"strings"

	"github.com/ronnes/glucolog/internal/apperr"
	"github.com/ronnes/glucolog/internal/models"
	"github.com/ronnes/glucolog/internal/record"
	"github.com/ronnes/glucolog/internal/validate"
)

// ImportResult holds the sanitized records admitted by an import plus the
// count of rows rejected during sanitization. Rejection is per record and
// silent; only the aggregate counts are reported.
type ImportResult struct {
	Meals          []models.MealRecord
	FastingEntries []models.FastingEntry
	Dropped        int
}

// Import parses a backup file into sanitized collections. The filename
// extension picks the parser: .csv and .json are explicit; anything else is
// tried as JSON first with a CSV fallback. A malformed payload returns a
// ParseError and nothing is imported.
func Import(filename string, data []byte) (*ImportResult, error) {
	var rawMeals, rawFasting []any

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		rawMeals, rawFasting = fromCSVRows(ParseCSV(string(data)))
	case ".json":
		var err error
		rawMeals, rawFasting, err = decodeJSON(data)
		if err != nil {
			return nil, &apperr.ParseError{Err: err}
		}
	default:
		var err error
		rawMeals, rawFasting, err = decodeJSON(data)
		if err != nil {
			rawMeals, rawFasting = fromCSVRows(ParseCSV(string(data)))
		}
	}

	return sanitize(rawMeals, rawFasting), nil
}

// fromCSVRows splits parsed CSV rows by recordType and projects each onto
// the raw field set the normalizer understands. Rows without a recordType
// are treated as meals.
func fromCSVRows(rows []map[string]string) (meals []any, fasting []any) {
	for _, row := range rows {
		recordType := strings.ToLower(strings.TrimSpace(row["recordType"]))
		if recordType == "" {
			recordType = "meal"
		}

		if recordType == "fasting" {
			id := row["id"]
			if id == "" {
				id = row["date"]
			}
			fasting = append(fasting, map[string]any{
				"id":             id,
				"date":           row["date"],
				"fastingGlucose": row["fastingGlucose"],
			})
			continue
		}

		meals = append(meals, map[string]any{
			"id":               row["id"],
			"datetime":         row["datetime"],
			"description":      row["description"],
			"carbEstimate":     row["carbEstimate"],
			"proteinLevel":     row["proteinLevel"],
			"fatLevel":         row["fatLevel"],
			"preGlucose":       row["preGlucose"],
			"peakGlucose":      row["peakGlucose"],
			"peakTimeMinutes":  row["peakTimeMinutes"],
			"glucoseAt2Hr":     row["glucoseAt2Hr"],
			"timeBackUnder120": row["timeBackUnder120"],
			"notes":            row["notes"],
			"contextTags":      row["contextTags"],
		})
	}
	return meals, fasting
}

// sanitize runs every candidate through the normalizer and then both
// validation stages (meals) or the fasting check. Failures are dropped and
// counted, never partially admitted.
func sanitize(rawMeals, rawFasting []any) *ImportResult {
	result := &ImportResult{
		Meals:          []models.MealRecord{},
		FastingEntries: []models.FastingEntry{},
	}

	for _, raw := range rawMeals {
		obj, ok := raw.(map[string]any)
		if !ok {
			result.Dropped++
			continue
		}
		meal := record.Meal(obj)
		if len(validate.MealBothStages(validate.Fields(meal))) > 0 {
			result.Dropped++
			continue
		}
		result.Meals = append(result.Meals, meal)
	}

	for _, raw := range rawFasting {
		obj, ok := raw.(map[string]any)
		if !ok {
			result.Dropped++
			continue
		}
		entry, ok := record.Fasting(obj)
		if !ok || len(validate.Fasting(entry.FastingGlucose)) > 0 {
			result.Dropped++
			continue
		}
		result.FastingEntries = append(result.FastingEntries, entry)
	}

	return result
}
