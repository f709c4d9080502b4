package api

import (
	"strings"

	"github.com/ronnes/glucolog/internal/models"
	"github.com/ronnes/glucolog/internal/units"
)

// numeric accepts either a JSON number or a string form value; both arrive
// as the raw token so empty and garbage inputs can fall through to nil the
// same way form submissions do.
type numeric string

func (n *numeric) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	*n = numeric(s)
	return nil
}

// LogMealRequest is the request body for logging a new meal. Glucose values
// are interpreted in the session's active display unit.
type LogMealRequest struct {
	Datetime     string   `json:"datetime" example:"2026-03-10T08:30:00"`
	Description  string   `json:"description" example:"Oatmeal with berries" validate:"required"`
	CarbEstimate numeric  `json:"carbEstimate" example:"60" validate:"required"`
	ProteinLevel string   `json:"proteinLevel" example:"low"`
	FatLevel     string   `json:"fatLevel" example:"none"`
	PreGlucose   numeric  `json:"preGlucose" example:"100" validate:"required"`
	Notes        string   `json:"notes"`
	ContextTags  []string `json:"contextTags" example:"walk_after"`
}

// UpdateMealRequest is the request body for completing a meal with its
// post-meal samples. Absent fields leave the stored values unchanged.
type UpdateMealRequest struct {
	PeakGlucose      *numeric `json:"peakGlucose" example:"160"`
	PeakTimeMinutes  *numeric `json:"peakTimeMinutes" example:"45"`
	GlucoseAt2Hr     *numeric `json:"glucoseAt2Hr" example:"110"`
	TimeBackUnder120 *numeric `json:"timeBackUnder120" example:"95"`
	Notes            *string  `json:"notes"`
	ContextTags      []string `json:"contextTags"`
}

// FastingRequest is the request body for saving a fasting reading.
type FastingRequest struct {
	Date           string  `json:"date" example:"2026-03-10"`
	FastingGlucose numeric `json:"fastingGlucose" example:"92" validate:"required"`
}

// UnitRequest is the request body for switching the display unit.
type UnitRequest struct {
	Unit string `json:"unit" example:"mmol/L" validate:"required"`
}

// MealDisplay carries the glucose fields of a meal formatted in the active
// display unit.
type MealDisplay struct {
	PreGlucose     string `json:"preGlucose" example:"100"`
	PeakGlucose    string `json:"peakGlucose" example:"160"`
	GlucoseAt2Hr   string `json:"glucoseAt2Hr" example:"110"`
	SpikeMagnitude string `json:"spikeMagnitude" example:"60"`
	AucProxy       string `json:"aucProxy" example:"15975"`
}

// MealView is a meal record (stored mg/dL values) plus its display block.
type MealView struct {
	models.MealRecord
	Display MealDisplay `json:"display"`
}

// MealListResponse wraps a meal listing with the active unit.
type MealListResponse struct {
	Meals []MealView `json:"meals" validate:"required"`
	Unit  string     `json:"unit" example:"mg/dL" validate:"required"`
}

// FastingListResponse wraps the fasting entries.
type FastingListResponse struct {
	Entries     []models.FastingEntry `json:"entries" validate:"required"`
	TodayLogged bool                  `json:"todayLogged"`
}

// ImportResponse reports the outcome of a backup import.
type ImportResponse struct {
	Meals          int `json:"meals" example:"12"`
	FastingEntries int `json:"fastingEntries" example:"3"`
	Dropped        int `json:"dropped" example:"1"`
}

// SettingsResponse is the session settings payload.
type SettingsResponse struct {
	Unit               string `json:"unit" example:"mg/dL" validate:"required"`
	AucUnitLabel       string `json:"aucUnitLabel" example:"mg·min/dL"`
	TodayFastingLogged bool   `json:"todayFastingLogged"`
}

func mealView(m models.MealRecord, unit units.Unit) MealView {
	return MealView{
		MealRecord: m,
		Display: MealDisplay{
			PreGlucose:     units.FormatGlucose(m.PreGlucose, unit),
			PeakGlucose:    units.FormatGlucose(m.PeakGlucose, unit),
			GlucoseAt2Hr:   units.FormatGlucose(m.GlucoseAt2Hr, unit),
			SpikeMagnitude: units.FormatGlucose(m.SpikeMagnitude, unit),
			AucProxy:       units.FormatAuc(m.AucProxy, unit),
		},
	}
}

func mealViews(meals []models.MealRecord, unit units.Unit) []MealView {
	views := make([]MealView, len(meals))
	for i, m := range meals {
		views[i] = mealView(m, unit)
	}
	return views
}
