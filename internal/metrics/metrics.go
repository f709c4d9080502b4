// Package metrics derives metabolic-response metrics from a meal record's
// raw glucose samples. Every function is pure: nil inputs propagate as nil
// results and nothing is ever coerced to zero.
package metrics

import (
	"math"
	"time"

	"github.com/ronnes/glucolog/internal/models"
)

// Meal period buckets by local hour of the logging timestamp.
const (
	PeriodMorning   = "morning"
	PeriodAfternoon = "afternoon"
	PeriodEvening   = "evening"
	PeriodLate      = "late"
)

// Spike categories on spike magnitude (mg/dL).
const (
	SpikeMild     = "Mild"
	SpikeModerate = "Moderate"
	SpikeHigh     = "High"
)

// Duration categories on time back under 120 mg/dL (minutes).
const (
	DurationEfficient  = "Efficient"
	DurationAcceptable = "Acceptable"
	DurationProlonged  = "Prolonged"
)

// aucWindowMinutes is the fixed post-meal window the AUC proxy integrates
// over. Samples beyond it (a late peak, a slow return) are clamped into the
// window; this is a known approximation, not a bug.
const aucWindowMinutes = 120

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	f := math.Pow(10, float64(decimals))
	return math.Round(v*f) / f
}

// MealPeriod buckets a timestamp by its local hour: morning [5,11),
// afternoon [11,17), evening [17,22), otherwise late.
func MealPeriod(t time.Time) string {
	hour := t.Local().Hour()
	switch {
	case hour >= 5 && hour < 11:
		return PeriodMorning
	case hour >= 11 && hour < 17:
		return PeriodAfternoon
	case hour >= 17 && hour < 22:
		return PeriodEvening
	}
	return PeriodLate
}

// SpikeMagnitude is peak minus pre-meal glucose, rounded to 1 decimal,
// or nil when either sample is missing.
func SpikeMagnitude(pre, peak *float64) *float64 {
	if pre == nil || peak == nil {
		return nil
	}
	v := Round(*peak-*pre, 1)
	return &v
}

// ReturnDelta is the 2-hour glucose minus pre-meal glucose, rounded to
// 1 decimal, or nil when either sample is missing.
func ReturnDelta(pre, twoHr *float64) *float64 {
	if pre == nil || twoHr == nil {
		return nil
	}
	v := Round(*twoHr-*pre, 1)
	return &v
}

// SpikeCategory classifies a spike magnitude: <30 Mild, [30,60) Moderate,
// >=60 High. Nil in, nil out.
func SpikeCategory(spikeMagnitude *float64) *string {
	if spikeMagnitude == nil {
		return nil
	}
	var c string
	switch {
	case *spikeMagnitude < 30:
		c = SpikeMild
	case *spikeMagnitude < 60:
		c = SpikeModerate
	default:
		c = SpikeHigh
	}
	return &c
}

// DurationCategory classifies time back under 120 mg/dL: <90 Efficient,
// [90,150] Acceptable, >150 Prolonged. Nil in, nil out.
func DurationCategory(timeBackUnder120 *float64) *string {
	if timeBackUnder120 == nil {
		return nil
	}
	var c string
	switch {
	case *timeBackUnder120 < 90:
		c = DurationEfficient
	case *timeBackUnder120 <= 150:
		c = DurationAcceptable
	default:
		c = DurationProlonged
	}
	return &c
}

// AucProxy approximates the area under the glucose curve over a fixed
// 120-minute window as two trapezoids split at the peak, in mg/dL·minutes.
// The peak time is clamped into the window. Returns nil unless pre, peak,
// 2-hour glucose and peak time are all present.
func AucProxy(m models.MealRecord) *float64 {
	if m.PreGlucose == nil || m.PeakGlucose == nil || m.GlucoseAt2Hr == nil || m.PeakTimeMinutes == nil {
		return nil
	}

	t1 := math.Max(0, math.Min(aucWindowMinutes, *m.PeakTimeMinutes))
	t2 := aucWindowMinutes - t1

	segment1 := (*m.PreGlucose + *m.PeakGlucose) / 2 * t1
	segment2 := (*m.PeakGlucose + *m.GlucoseAt2Hr) / 2 * t2

	v := Round(segment1+segment2, 1)
	return &v
}

// Complete reports whether all four post-meal fields are recorded.
func Complete(m models.MealRecord) bool {
	return m.PeakGlucose != nil &&
		m.PeakTimeMinutes != nil &&
		m.GlucoseAt2Hr != nil &&
		m.TimeBackUnder120 != nil
}

// WithDerived returns a copy of m with every derived field recomputed from
// the raw fields. SpikeCategory, DurationCategory and AucProxy are only set
// on complete records; SpikeMagnitude and ReturnDelta need just their own
// pair of samples.
func WithDerived(m models.MealRecord) models.MealRecord {
	complete := Complete(m)

	m.MealPeriod = MealPeriod(m.Datetime)
	m.SpikeMagnitude = SpikeMagnitude(m.PreGlucose, m.PeakGlucose)
	m.ReturnDelta = ReturnDelta(m.PreGlucose, m.GlucoseAt2Hr)
	m.Complete = complete

	if complete {
		m.SpikeCategory = SpikeCategory(m.SpikeMagnitude)
		m.DurationCategory = DurationCategory(m.TimeBackUnder120)
		m.AucProxy = AucProxy(m)
	} else {
		m.SpikeCategory = nil
		m.DurationCategory = nil
		m.AucProxy = nil
	}

	return m
}
