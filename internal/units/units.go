// Package units converts glucose values between the canonical storage unit
// (mg/dL) and the user's display unit. Storage is always mg/dL; the display
// unit is a persisted session preference, never a per-record property.
package units

import (
	"strconv"
	"strings"

	"github.com/ronnes/glucolog/internal/metrics"
)

// Unit is a glucose display unit.
type Unit string

const (
	MgdL Unit = "mg/dL"
	Mmol Unit = "mmol/L"
)

// MgdlPerMmol is the conventional conversion factor for glucose.
const MgdlPerMmol = 18

// Parse returns the Unit named by s, defaulting to mg/dL for anything
// unrecognised.
func Parse(s string) Unit {
	if Unit(strings.TrimSpace(s)) == Mmol {
		return Mmol
	}
	return MgdL
}

// Valid reports whether s names a known unit exactly.
func Valid(s string) bool {
	u := Unit(s)
	return u == MgdL || u == Mmol
}

// ToDisplay converts a stored mg/dL value into the display unit: mg/dL is
// rounded to the nearest integer, mmol/L to 1 decimal. Nil passes through.
func ToDisplay(valueMgdl *float64, unit Unit) *float64 {
	if valueMgdl == nil {
		return nil
	}
	var v float64
	if unit == Mmol {
		v = metrics.Round(*valueMgdl/MgdlPerMmol, 1)
	} else {
		v = metrics.Round(*valueMgdl, 0)
	}
	return &v
}

// ToStorage parses a user-facing numeric string entered in the given display
// unit and converts it to mg/dL. Empty or unparsable input yields nil.
// mmol/L input is converted via ×18 and rounded to 1 decimal; mg/dL input is
// stored as entered.
func ToStorage(raw string, unit Unit) *float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil
	}
	if unit == Mmol {
		parsed = metrics.Round(parsed*MgdlPerMmol, 1)
	}
	return &parsed
}

// FormatGlucose renders a stored mg/dL value in the display unit: one
// decimal for mmol/L, whole numbers for mg/dL. Nil renders as "-".
func FormatGlucose(valueMgdl *float64, unit Unit) string {
	display := ToDisplay(valueMgdl, unit)
	if display == nil {
		return "-"
	}
	if unit == Mmol {
		return strconv.FormatFloat(*display, 'f', 1, 64)
	}
	return strconv.FormatFloat(*display, 'f', 0, 64)
}

// FormatAuc renders an AUC proxy (mg/dL·min) in the display unit.
func FormatAuc(value *float64, unit Unit) string {
	if value == nil {
		return "-"
	}
	if unit == Mmol {
		return strconv.FormatFloat(*value/MgdlPerMmol, 'f', 1, 64)
	}
	return strconv.FormatFloat(metrics.Round(*value, 0), 'f', 0, 64)
}

// AucUnitLabel is the display label for AUC proxy values.
func AucUnitLabel(unit Unit) string {
	if unit == Mmol {
		return "mmol·min/L"
	}
	return "mg·min/dL"
}
