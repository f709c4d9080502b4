// Package codec serializes the full collection (meals plus fasting entries)
// to CSV or JSON backups and parses either format back into candidate raw
// records for normalization.
package codec

import (
	"strconv"
	"strings"
	"time"

	"github.com/ronnes/glucolog/internal/metrics"
	"github.com/ronnes/glucolog/internal/models"
)

// Columns is the fixed CSV schema. Meal rows leave fastingGlucose empty;
// fasting rows fill only recordType, id, date and fastingGlucose.
var Columns = []string{
	"recordType",
	"id",
	"date",
	"datetime",
	"mealPeriod",
	"complete",
	"description",
	"carbEstimate",
	"proteinLevel",
	"fatLevel",
	"preGlucose",
	"peakGlucose",
	"peakTimeMinutes",
	"glucoseAt2Hr",
	"timeBackUnder120",
	"notes",
	"contextTags",
	"spikeMagnitude",
	"spikeCategory",
	"durationCategory",
	"aucProxy",
	"returnDelta",
	"fastingGlucose",
}

// ExportCSV renders every meal (with freshly derived metrics) and fasting
// entry as one CSV document. Every data value is double-quoted with ""
// escaping; the header row is unquoted.
func ExportCSV(meals []models.MealRecord, fasting []models.FastingEntry) []byte {
	lines := make([]string, 0, 1+len(meals)+len(fasting))
	lines = append(lines, strings.Join(Columns, ","))

	for _, meal := range meals {
		m := metrics.WithDerived(meal)
		values := map[string]string{
			"recordType":       "meal",
			"id":               m.ID,
			"date":             m.Datetime.UTC().Format("2006-01-02"),
			"datetime":         m.Datetime.UTC().Format(time.RFC3339),
			"mealPeriod":       m.MealPeriod,
			"complete":         strconv.FormatBool(m.Complete),
			"description":      m.Description,
			"carbEstimate":     numberField(m.CarbEstimate),
			"proteinLevel":     string(m.ProteinLevel),
			"fatLevel":         string(m.FatLevel),
			"preGlucose":       numberField(m.PreGlucose),
			"peakGlucose":      numberField(m.PeakGlucose),
			"peakTimeMinutes":  numberField(m.PeakTimeMinutes),
			"glucoseAt2Hr":     numberField(m.GlucoseAt2Hr),
			"timeBackUnder120": numberField(m.TimeBackUnder120),
			"notes":            m.Notes,
			"contextTags":      strings.Join(m.ContextTags, "|"),
			"spikeMagnitude":   numberField(m.SpikeMagnitude),
			"spikeCategory":    textField(m.SpikeCategory),
			"durationCategory": textField(m.DurationCategory),
			"aucProxy":         numberField(m.AucProxy),
			"returnDelta":      numberField(m.ReturnDelta),
			"fastingGlucose":   "",
		}
		lines = append(lines, rowLine(values))
	}

	for _, entry := range fasting {
		values := map[string]string{
			"recordType":     "fasting",
			"id":             entry.ID,
			"date":           entry.Date,
			"fastingGlucose": numberField(entry.FastingGlucose),
		}
		lines = append(lines, rowLine(values))
	}

	return []byte(strings.Join(lines, "\n"))
}

func rowLine(values map[string]string) string {
	fields := make([]string, len(Columns))
	for i, column := range Columns {
		fields[i] = quote(values[column])
	}
	return strings.Join(fields, ",")
}

func quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// numberField renders a nullable number in its shortest exact decimal form,
// so re-parsing reproduces the value bit-for-bit. Nil renders empty.
func numberField(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func textField(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// ParseCSV splits a CSV document into one string map per data row, keyed by
// the header line. Blank lines are skipped; short rows leave missing columns
// empty.
func ParseCSV(text string) []map[string]string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, " \t")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil
	}

	headers := parseLine(lines[0])
	rows := make([]map[string]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		values := parseLine(line)
		row := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(values) {
				row[header] = values[i]
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// parseLine splits one CSV line on unquoted commas, honouring "" escapes
// inside quoted fields. It is deliberately lenient: stray quotes toggle
// quoting rather than erroring, matching the backups this tool emits and
// the hand-edited files users feed it.
func parseLine(line string) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]

		if c == '"' && inQuotes && i+1 < len(line) && line[i+1] == '"' {
			current.WriteByte('"')
			i++
			continue
		}
		if c == '"' {
			inQuotes = !inQuotes
			continue
		}
		if c == ',' && !inQuotes {
			fields = append(fields, current.String())
			current.Reset()
			continue
		}
		current.WriteByte(c)
	}

	fields = append(fields, current.String())
	return fields
}
