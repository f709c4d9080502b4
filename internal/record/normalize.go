// Package record coerces arbitrary input shapes — new entries, imported
// rows, previously stored records — into canonical meal and fasting records.
// Imports and stored payloads are untrusted; everything passes through here
// before entering the typed domain model.
package record

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ronnes/glucolog/internal/metrics"
	"github.com/ronnes/glucolog/internal/models"
)

// datetimeLayouts are tried in order when parsing a raw datetime string.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Meal normalizes a loosely-typed meal payload into a canonical record and
// recomputes its derived fields. Missing or unparsable values become nil
// (numbers), defaults (description, levels) or empty (notes, tags).
func Meal(raw map[string]any) models.MealRecord {
	m := models.MealRecord{
		ID:               stringValue(raw["id"]),
		Datetime:         parseDatetime(raw["datetime"]),
		Description:      stringValue(raw["description"]),
		CarbEstimate:     NumberOrNil(raw["carbEstimate"]),
		ProteinLevel:     levelValue(raw["proteinLevel"]),
		FatLevel:         levelValue(raw["fatLevel"]),
		PreGlucose:       NumberOrNil(raw["preGlucose"]),
		PeakGlucose:      NumberOrNil(raw["peakGlucose"]),
		PeakTimeMinutes:  NumberOrNil(raw["peakTimeMinutes"]),
		GlucoseAt2Hr:     NumberOrNil(raw["glucoseAt2Hr"]),
		TimeBackUnder120: NumberOrNil(raw["timeBackUnder120"]),
		Notes:            stringValue(raw["notes"]),
		ContextTags:      tagsValue(raw["contextTags"]),
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Description == "" {
		m.Description = models.DefaultDescription
	}

	return metrics.WithDerived(m)
}

// Fasting normalizes a loosely-typed fasting payload. The calendar date
// comes from "date" or, failing that, "id", truncated to YYYY-MM-DD; an
// empty date makes the payload unusable and ok is false.
func Fasting(raw map[string]any) (models.FastingEntry, bool) {
	date := stringValue(raw["date"])
	if date == "" {
		date = stringValue(raw["id"])
	}
	if len(date) > 10 {
		date = date[:10]
	}
	if date == "" {
		return models.FastingEntry{}, false
	}

	return models.FastingEntry{
		ID:             date,
		Date:           date,
		FastingGlucose: NumberOrNil(raw["fastingGlucose"]),
	}, true
}

// NumberOrNil coerces a value to a float pointer: nil, empty strings and
// unparsable input all yield nil. Null never collapses to zero.
func NumberOrNil(v any) *float64 {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		return &n
	case float32:
		f := float64(n)
		return &f
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case *float64:
		return n
	case string:
		trimmed := strings.TrimSpace(n)
		if trimmed == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil
		}
		return &parsed
	}
	return nil
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}

func levelValue(v any) models.Level {
	s := stringValue(v)
	if models.ValidLevel(s) {
		return models.Level(s)
	}
	return models.LevelNone
}

// tagsValue accepts an array of tags, a pipe-delimited string (the CSV
// encoding), or anything else, which yields an empty set. Blank and "null"
// tokens from pipe strings are dropped.
func tagsValue(v any) []string {
	switch tags := v.(type) {
	case []string:
		out := make([]string, len(tags))
		copy(out, tags)
		return out
	case []any:
		out := make([]string, 0, len(tags))
		for _, tag := range tags {
			out = append(out, stringValue(tag))
		}
		return out
	case string:
		out := []string{}
		for _, tag := range strings.Split(tags, "|") {
			trimmed := strings.TrimSpace(tag)
			if trimmed == "" || strings.EqualFold(trimmed, "null") {
				continue
			}
			out = append(out, trimmed)
		}
		return out
	}
	return []string{}
}

// Datetime parses a raw datetime value using the accepted layouts, falling
// back to the current time. Naive timestamps are read in local time and
// stored as UTC.
func Datetime(v any) time.Time {
	return parseDatetime(v)
}

func parseDatetime(v any) time.Time {
	switch dt := v.(type) {
	case time.Time:
		return dt.UTC()
	case string:
		trimmed := strings.TrimSpace(dt)
		if trimmed == "" {
			break
		}
		for _, layout := range datetimeLayouts {
			if t, err := time.ParseInLocation(layout, trimmed, time.Local); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Now().UTC()
}
