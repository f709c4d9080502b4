// Package models defines the domain types for Glucolog.
package models

import "time"

// Level describes a rough protein or fat content estimate for a meal.
type Level string

// Level values, from least to most.
const (
	LevelNone     Level = "none"
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
)

// Levels lists every valid Level in display order.
var Levels = []Level{LevelNone, LevelLow, LevelModerate, LevelHigh}

// ValidLevel reports whether s is one of the four Level values.
func ValidLevel(s string) bool {
	switch Level(s) {
	case LevelNone, LevelLow, LevelModerate, LevelHigh:
		return true
	}
	return false
}

// ContextTags is the advisory tag vocabulary offered by clients. The core
// accepts tags outside this list; it is not enforced on write.
var ContextTags = []string{
	"walk_after",
	"poor_sleep",
	"stress",
	"exercise_before",
	"high_fiber",
	"late_meal",
}

// Accepted input ranges. Glucose values are in mg/dL, times in minutes.
const (
	GlucoseMin = 40
	GlucoseMax = 400

	CarbMin = 0
	CarbMax = 300

	PeakTimeMin = 0
	PeakTimeMax = 180

	ReturnTimeMin = 0
	ReturnTimeMax = 300
)

// DefaultDescription is used when a meal is saved with an empty description.
const DefaultDescription = "Untitled meal"

// MealRecord is a logged meal with its glucose samples. All glucose fields
// are stored in mg/dL regardless of the active display unit. Nil pointers
// mean "not recorded yet".
//
// The derived block is never authoritative: it is recomputed from the raw
// fields on every read and on every export.
type MealRecord struct {
	ID               string    `json:"id"`
	Datetime         time.Time `json:"datetime"`
	Description      string    `json:"description"`
	CarbEstimate     *float64  `json:"carbEstimate"`
	ProteinLevel     Level     `json:"proteinLevel"`
	FatLevel         Level     `json:"fatLevel"`
	PreGlucose       *float64  `json:"preGlucose"`
	PeakGlucose      *float64  `json:"peakGlucose"`
	PeakTimeMinutes  *float64  `json:"peakTimeMinutes"`
	GlucoseAt2Hr     *float64  `json:"glucoseAt2Hr"`
	TimeBackUnder120 *float64  `json:"timeBackUnder120"`
	Notes            string    `json:"notes"`
	ContextTags      []string  `json:"contextTags"`

	// Derived fields.
	MealPeriod       string   `json:"mealPeriod"`
	SpikeMagnitude   *float64 `json:"spikeMagnitude"`
	SpikeCategory    *string  `json:"spikeCategory"`
	DurationCategory *string  `json:"durationCategory"`
	AucProxy         *float64 `json:"aucProxy"`
	ReturnDelta      *float64 `json:"returnDelta"`
	Complete         bool     `json:"complete"`
}

// FastingEntry is a fasting glucose reading for one calendar date.
// ID always equals Date, so saving twice for the same date overwrites.
type FastingEntry struct {
	ID             string   `json:"id"`
	Date           string   `json:"date"` // YYYY-MM-DD
	FastingGlucose *float64 `json:"fastingGlucose"`
}
