// Package validate checks meal and fasting inputs against the accepted
// ranges. Errors come back as an ordered list of human-readable messages;
// callers surface only the first one but imports use the whole set.
package validate

import (
	"strings"

	"github.com/ronnes/glucolog/internal/models"
)

// Stage selects which checks apply: StagePre covers the initial entry
// (description, carbs and pre-meal glucose are required), StagePost covers
// the post-meal update where those requirements no longer apply. Range
// checks on the post-meal fields run in both stages but only for values
// that are present.
type Stage string

const (
	StagePre  Stage = "pre"
	StagePost Stage = "post"
)

// MealFields is the subset of a meal record the validator looks at.
type MealFields struct {
	Description      string
	CarbEstimate     *float64
	PreGlucose       *float64
	PeakGlucose      *float64
	PeakTimeMinutes  *float64
	GlucoseAt2Hr     *float64
	TimeBackUnder120 *float64
}

// Fields extracts the validated subset from a meal record.
func Fields(m models.MealRecord) MealFields {
	return MealFields{
		Description:      m.Description,
		CarbEstimate:     m.CarbEstimate,
		PreGlucose:       m.PreGlucose,
		PeakGlucose:      m.PeakGlucose,
		PeakTimeMinutes:  m.PeakTimeMinutes,
		GlucoseAt2Hr:     m.GlucoseAt2Hr,
		TimeBackUnder120: m.TimeBackUnder120,
	}
}

func inRange(v *float64, min, max float64) bool {
	if v == nil {
		return false
	}
	return *v >= min && *v <= max
}

// Meal validates meal fields for the given stage and returns the ordered
// error messages; an empty slice means valid.
func Meal(f MealFields, stage Stage) []string {
	var errs []string

	if stage == StagePre {
		if strings.TrimSpace(f.Description) == "" {
			errs = append(errs, "Meal description is required.")
		}
		if !inRange(f.CarbEstimate, models.CarbMin, models.CarbMax) {
			errs = append(errs, "Carb estimate must be between 0 and 300.")
		}
		if !inRange(f.PreGlucose, models.GlucoseMin, models.GlucoseMax) {
			errs = append(errs, "Pre-meal glucose must be between 40 and 400.")
		}
	}

	if f.PeakGlucose != nil && !inRange(f.PeakGlucose, models.GlucoseMin, models.GlucoseMax) {
		errs = append(errs, "Peak glucose must be between 40 and 400.")
	}
	if f.GlucoseAt2Hr != nil && !inRange(f.GlucoseAt2Hr, models.GlucoseMin, models.GlucoseMax) {
		errs = append(errs, "2-hour glucose must be between 40 and 400.")
	}
	if f.PeakTimeMinutes != nil && !inRange(f.PeakTimeMinutes, models.PeakTimeMin, models.PeakTimeMax) {
		errs = append(errs, "Time to peak must be between 0 and 180 minutes.")
	}
	if f.TimeBackUnder120 != nil && !inRange(f.TimeBackUnder120, models.ReturnTimeMin, models.ReturnTimeMax) {
		errs = append(errs, "Time back under 120 must be between 0 and 300 minutes.")
	}

	return errs
}

// MealBothStages runs pre and post validation and returns the union of the
// error sets, as imports do before admitting a record.
func MealBothStages(f MealFields) []string {
	return append(Meal(f, StagePre), Meal(f, StagePost)...)
}

// Fasting validates a fasting glucose reading. The value is required.
func Fasting(fastingGlucose *float64) []string {
	if !inRange(fastingGlucose, models.GlucoseMin, models.GlucoseMax) {
		return []string{"Fasting glucose must be between 40 and 400."}
	}
	return nil
}
