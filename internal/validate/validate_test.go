package validate

import (
	"strings"
	"testing"
)

func fp(v float64) *float64 { return &v }

func validPre() MealFields {
	return MealFields{
		Description:  "Rice bowl",
		CarbEstimate: fp(60),
		PreGlucose:   fp(95),
	}
}

func TestMealPreStageValid(t *testing.T) {
	if errs := Meal(validPre(), StagePre); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestMealPreStageRequiredFields(t *testing.T) {
	f := validPre()
	f.Description = "   "
	errs := Meal(f, StagePre)
	if len(errs) == 0 || !strings.Contains(errs[0], "description is required") {
		t.Errorf("blank description: errs = %v", errs)
	}

	f = validPre()
	f.CarbEstimate = nil
	errs = Meal(f, StagePre)
	if len(errs) != 1 || errs[0] != "Carb estimate must be between 0 and 300." {
		t.Errorf("nil carbs: errs = %v", errs)
	}

	f = validPre()
	f.PreGlucose = fp(500)
	errs = Meal(f, StagePre)
	if len(errs) != 1 || errs[0] != "Pre-meal glucose must be between 40 and 400." {
		t.Errorf("out-of-range pre glucose: errs = %v", errs)
	}
}

func TestMealErrorsKeepFieldOrder(t *testing.T) {
	errs := Meal(MealFields{}, StagePre)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %v", errs)
	}
	if !strings.Contains(errs[0], "description") ||
		!strings.Contains(errs[1], "Carb estimate") ||
		!strings.Contains(errs[2], "Pre-meal glucose") {
		t.Errorf("errors out of order: %v", errs)
	}
}

func TestMealPostStageSkipsPreRequirements(t *testing.T) {
	// An empty description or missing pre glucose is fine in the post stage.
	if errs := Meal(MealFields{}, StagePost); len(errs) != 0 {
		t.Fatalf("post stage should not require pre fields, got %v", errs)
	}
}

func TestMealPostFieldsRangeCheckedWhenPresent(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*MealFields)
		want   string
	}{
		{"peak", func(f *MealFields) { f.PeakGlucose = fp(39) }, "Peak glucose must be between 40 and 400."},
		{"twoHr", func(f *MealFields) { f.GlucoseAt2Hr = fp(401) }, "2-hour glucose must be between 40 and 400."},
		{"peakTime", func(f *MealFields) { f.PeakTimeMinutes = fp(181) }, "Time to peak must be between 0 and 180 minutes."},
		{"return", func(f *MealFields) { f.TimeBackUnder120 = fp(301) }, "Time back under 120 must be between 0 and 300 minutes."},
	}
	for _, c := range cases {
		for _, stage := range []Stage{StagePre, StagePost} {
			f := validPre()
			c.mutate(&f)
			errs := Meal(f, stage)
			found := false
			for _, e := range errs {
				if e == c.want {
					found = true
				}
			}
			if !found {
				t.Errorf("%s/%s: expected %q in %v", c.name, stage, c.want, errs)
			}
		}
	}
}

func TestMealOptionalNilPostFieldsAreValid(t *testing.T) {
	f := validPre() // all post fields nil
	if errs := Meal(f, StagePost); len(errs) != 0 {
		t.Errorf("nil optional fields should be valid, got %v", errs)
	}
}

func TestFasting(t *testing.T) {
	if errs := Fasting(fp(92)); len(errs) != 0 {
		t.Errorf("92 should be valid, got %v", errs)
	}
	if errs := Fasting(nil); len(errs) != 1 || errs[0] != "Fasting glucose must be between 40 and 400." {
		t.Errorf("nil should be invalid, got %v", errs)
	}
	if errs := Fasting(fp(420)); len(errs) != 1 {
		t.Errorf("420 should be invalid, got %v", errs)
	}
}

func TestMealBothStagesUnion(t *testing.T) {
	f := MealFields{PeakGlucose: fp(1000)}
	errs := MealBothStages(f)
	// 3 pre errors + 1 range error from each stage pass.
	if len(errs) != 5 {
		t.Fatalf("expected 5 errors, got %d: %v", len(errs), errs)
	}
}
