// Package report groups and sorts derived meal records for tabular and
// summary views.
package report

import (
	"sort"
	"strings"

	"github.com/ronnes/glucolog/internal/metrics"
	"github.com/ronnes/glucolog/internal/models"
)

// Sort directions.
const (
	Asc  = "asc"
	Desc = "desc"
)

// FoodPattern summarises repeated tests of the same meal description.
type FoodPattern struct {
	Description string   `json:"description"`
	Tests       int      `json:"tests"`
	AvgSpike    *float64 `json:"avgSpike"`
	AvgReturn   *float64 `json:"avgReturn"`
}

// PeriodSummary summarises meals logged in one time-of-day bucket.
type PeriodSummary struct {
	Period   string   `json:"period"`
	Meals    int      `json:"meals"`
	AvgSpike *float64 `json:"avgSpike"`
}

// Average is the arithmetic mean rounded to 1 decimal, or nil for an empty
// input.
func Average(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := metrics.Round(sum/float64(len(values)), 1)
	return &avg
}

// SortMeals returns records ordered by the given key and direction. The
// datetime key compares timestamps, string keys compare lexicographically,
// and numeric keys compare values with nil sorting below every number.
// Unknown keys fall back to datetime.
func SortMeals(records []models.MealRecord, key, direction string) []models.MealRecord {
	sorted := make([]models.MealRecord, len(records))
	copy(sorted, records)

	multiplier := -1
	if direction == Asc {
		multiplier = 1
	}

	less := func(a, b models.MealRecord) int {
		switch key {
		case "description":
			return strings.Compare(a.Description, b.Description)
		case "spikeCategory":
			return strings.Compare(textOrEmpty(a.SpikeCategory), textOrEmpty(b.SpikeCategory))
		case "durationCategory":
			return strings.Compare(textOrEmpty(a.DurationCategory), textOrEmpty(b.DurationCategory))
		case "carbEstimate":
			return compareNumbers(a.CarbEstimate, b.CarbEstimate)
		case "spikeMagnitude":
			return compareNumbers(a.SpikeMagnitude, b.SpikeMagnitude)
		case "timeBackUnder120":
			return compareNumbers(a.TimeBackUnder120, b.TimeBackUnder120)
		case "aucProxy":
			return compareNumbers(a.AucProxy, b.AucProxy)
		case "returnDelta":
			return compareNumbers(a.ReturnDelta, b.ReturnDelta)
		default:
			return a.Datetime.Compare(b.Datetime)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])*multiplier < 0
	})
	return sorted
}

// compareNumbers orders nullable numbers with nil below any value, the
// "null sorts as negative infinity" rule.
func compareNumbers(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

func textOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// ByDescription groups meals by trimmed, lowercased description and
// averages spike magnitude and return time over the values present. Groups
// sort by descending test count, then ascending description.
func ByDescription(records []models.MealRecord) []FoodPattern {
	groups := make(map[string][]models.MealRecord)
	var order []string
	for _, m := range records {
		key := strings.ToLower(strings.TrimSpace(m.Description))
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], m)
	}

	patterns := make([]FoodPattern, 0, len(order))
	for _, key := range order {
		list := groups[key]
		var spikes, returns []float64
		for _, m := range list {
			if m.SpikeMagnitude != nil {
				spikes = append(spikes, *m.SpikeMagnitude)
			}
			if m.TimeBackUnder120 != nil {
				returns = append(returns, *m.TimeBackUnder120)
			}
		}
		patterns = append(patterns, FoodPattern{
			Description: list[0].Description,
			Tests:       len(list),
			AvgSpike:    Average(spikes),
			AvgReturn:   Average(returns),
		})
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Tests != patterns[j].Tests {
			return patterns[i].Tests > patterns[j].Tests
		}
		return strings.Compare(patterns[i].Description, patterns[j].Description) < 0
	})
	return patterns
}

// ByTimeOfDay buckets meals into Morning, Afternoon and Evening by local
// hour. Late-night meals are excluded from this summary.
func ByTimeOfDay(records []models.MealRecord) []PeriodSummary {
	summaries := []PeriodSummary{
		{Period: "Morning"},
		{Period: "Afternoon"},
		{Period: "Evening"},
	}
	spikes := make([][]float64, len(summaries))

	for _, m := range records {
		var idx int
		switch metrics.MealPeriod(m.Datetime) {
		case metrics.PeriodMorning:
			idx = 0
		case metrics.PeriodAfternoon:
			idx = 1
		case metrics.PeriodEvening:
			idx = 2
		default:
			continue
		}
		summaries[idx].Meals++
		if m.SpikeMagnitude != nil {
			spikes[idx] = append(spikes[idx], *m.SpikeMagnitude)
		}
	}

	for i := range summaries {
		summaries[i].AvgSpike = Average(spikes[i])
	}
	return summaries
}
