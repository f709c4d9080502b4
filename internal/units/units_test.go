package units

import (
	"math"
	"strconv"
	"testing"
)

func fp(v float64) *float64 { return &v }

func TestParse(t *testing.T) {
	if Parse("mmol/L") != Mmol {
		t.Error("mmol/L should parse to Mmol")
	}
	if Parse("mg/dL") != MgdL {
		t.Error("mg/dL should parse to MgdL")
	}
	if Parse("furlongs") != MgdL {
		t.Error("unknown unit should default to mg/dL")
	}
}

func TestToDisplayMgdl(t *testing.T) {
	got := ToDisplay(fp(99.6), MgdL)
	if got == nil || *got != 100 {
		t.Errorf("ToDisplay(99.6, mg/dL) = %v, want 100", got)
	}
	if ToDisplay(nil, MgdL) != nil {
		t.Error("nil should pass through")
	}
}

func TestToDisplayMmol(t *testing.T) {
	got := ToDisplay(fp(100), Mmol)
	if got == nil || *got != 5.6 {
		t.Errorf("ToDisplay(100, mmol/L) = %v, want 5.6", got)
	}
}

func TestToStorage(t *testing.T) {
	if got := ToStorage("120", MgdL); got == nil || *got != 120 {
		t.Errorf("ToStorage(120, mg/dL) = %v, want 120", got)
	}
	// mg/dL passes through unrounded.
	if got := ToStorage("120.37", MgdL); got == nil || *got != 120.37 {
		t.Errorf("ToStorage(120.37, mg/dL) = %v, want 120.37", got)
	}
	if got := ToStorage("5.6", Mmol); got == nil || *got != 100.8 {
		t.Errorf("ToStorage(5.6, mmol/L) = %v, want 100.8", got)
	}
	if ToStorage("", MgdL) != nil {
		t.Error("empty input should yield nil")
	}
	if ToStorage("banana", Mmol) != nil {
		t.Error("unparsable input should yield nil")
	}
}

func TestMmolRoundTripDrift(t *testing.T) {
	// mmol/L display rounds to 1 decimal, so a full round trip may drift by
	// up to 0.05 mmol/L = 0.9 mg/dL in display units, but re-entering the
	// displayed value must land within 0.1 mg/dL of what a fresh conversion
	// of that displayed value produces, and the displayed values themselves
	// must be stable across repeated trips.
	for _, stored := range []float64{40, 99, 100, 145.5, 288, 400} {
		display := ToDisplay(fp(stored), Mmol)
		if display == nil {
			t.Fatalf("display of %v is nil", stored)
		}
		back := ToStorage(formatFloat(*display), Mmol)
		if back == nil {
			t.Fatalf("round trip of %v failed to parse", stored)
		}
		again := ToDisplay(back, Mmol)
		if again == nil || math.Abs(*again-*display) > 1e-9 {
			t.Errorf("display value unstable for %v: %v -> %v", stored, *display, again)
		}
		// One conversion's rounding error is bounded by half a display step.
		if math.Abs(*back-stored) > MgdlPerMmol*0.05+1e-9 {
			t.Errorf("round trip drift for %v too large: got %v", stored, *back)
		}
	}
}

func TestMmolEnteredValuesRoundTripExactly(t *testing.T) {
	// A value entered in mmol/L and stored as mg/dL must reproduce within
	// 0.1 mg/dL when displayed in mmol/L and re-entered.
	for _, entered := range []string{"2.3", "5.6", "7.0", "12.4", "22.2"} {
		stored := ToStorage(entered, Mmol)
		if stored == nil {
			t.Fatalf("failed to store %q", entered)
		}
		display := ToDisplay(stored, Mmol)
		back := ToStorage(formatFloat(*display), Mmol)
		if back == nil || math.Abs(*back-*stored) > 0.1 {
			t.Errorf("round trip of %q mmol/L drifted: stored %v, back %v", entered, *stored, back)
		}
	}
}

func TestFormatGlucose(t *testing.T) {
	if got := FormatGlucose(fp(100), MgdL); got != "100" {
		t.Errorf("FormatGlucose mg/dL = %q, want 100", got)
	}
	if got := FormatGlucose(fp(100), Mmol); got != "5.6" {
		t.Errorf("FormatGlucose mmol/L = %q, want 5.6", got)
	}
	if got := FormatGlucose(nil, MgdL); got != "-" {
		t.Errorf("FormatGlucose(nil) = %q, want -", got)
	}
}

func TestFormatAuc(t *testing.T) {
	if got := FormatAuc(fp(15975), MgdL); got != "15975" {
		t.Errorf("FormatAuc mg/dL = %q", got)
	}
	if got := FormatAuc(fp(15975), Mmol); got != "887.5" {
		t.Errorf("FormatAuc mmol/L = %q", got)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
