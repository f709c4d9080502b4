package metrics

import (
	"testing"
	"time"

	"github.com/ronnes/glucolog/internal/models"
)

func fp(v float64) *float64 { return &v }

func completeMeal() models.MealRecord {
	return models.MealRecord{
		ID:               "m1",
		Datetime:         time.Date(2026, 3, 10, 8, 30, 0, 0, time.Local),
		Description:      "Oatmeal",
		PreGlucose:       fp(100),
		PeakGlucose:      fp(145),
		PeakTimeMinutes:  fp(45),
		GlucoseAt2Hr:     fp(110),
		TimeBackUnder120: fp(95),
	}
}

func TestSpikeMagnitude(t *testing.T) {
	got := SpikeMagnitude(fp(100), fp(145))
	if got == nil || *got != 45.0 {
		t.Fatalf("SpikeMagnitude(100,145) = %v, want 45.0", got)
	}
	if SpikeMagnitude(nil, fp(145)) != nil {
		t.Error("missing pre should yield nil")
	}
	if SpikeMagnitude(fp(100), nil) != nil {
		t.Error("missing peak should yield nil")
	}
}

func TestSpikeCategoryBoundaries(t *testing.T) {
	cases := []struct {
		magnitude float64
		want      string
	}{
		{29.9, SpikeMild},
		{30.0, SpikeModerate},
		{59.9, SpikeModerate},
		{60.0, SpikeHigh},
		{-5, SpikeMild},
	}
	for _, c := range cases {
		got := SpikeCategory(fp(c.magnitude))
		if got == nil || *got != c.want {
			t.Errorf("SpikeCategory(%v) = %v, want %q", c.magnitude, got, c.want)
		}
	}
	if SpikeCategory(nil) != nil {
		t.Error("nil magnitude should yield nil category")
	}
}

func TestDurationCategoryBoundaries(t *testing.T) {
	cases := []struct {
		minutes float64
		want    string
	}{
		{89, DurationEfficient},
		{90, DurationAcceptable},
		{150, DurationAcceptable},
		{151, DurationProlonged},
	}
	for _, c := range cases {
		got := DurationCategory(fp(c.minutes))
		if got == nil || *got != c.want {
			t.Errorf("DurationCategory(%v) = %v, want %q", c.minutes, got, c.want)
		}
	}
	if DurationCategory(nil) != nil {
		t.Error("nil minutes should yield nil category")
	}
}

func TestAucProxyWorkedExample(t *testing.T) {
	m := completeMeal()
	m.PreGlucose = fp(100)
	m.PeakGlucose = fp(160)
	m.GlucoseAt2Hr = fp(110)
	m.PeakTimeMinutes = fp(45)

	// t1=45, t2=75; segment1 = 130*45 = 5850; segment2 = 135*75 = 10125.
	got := AucProxy(m)
	if got == nil || *got != 15975.0 {
		t.Fatalf("AucProxy = %v, want 15975.0", got)
	}
}

func TestAucProxyClampsPeakTime(t *testing.T) {
	m := completeMeal()
	m.PeakTimeMinutes = fp(180)

	// Clamped to 120: whole window is the pre→peak trapezoid.
	want := Round((*m.PreGlucose+*m.PeakGlucose)/2*120, 1)
	got := AucProxy(m)
	if got == nil || *got != want {
		t.Errorf("AucProxy with late peak = %v, want %v", got, want)
	}
}

func TestAucProxyRequiresAllInputs(t *testing.T) {
	m := completeMeal()
	m.PeakTimeMinutes = nil
	if AucProxy(m) != nil {
		t.Error("missing peak time should yield nil AUC")
	}
}

func TestMealPeriodBuckets(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{4, PeriodLate},
		{5, PeriodMorning},
		{10, PeriodMorning},
		{11, PeriodAfternoon},
		{16, PeriodAfternoon},
		{17, PeriodEvening},
		{21, PeriodEvening},
		{22, PeriodLate},
		{0, PeriodLate},
	}
	for _, c := range cases {
		dt := time.Date(2026, 3, 10, c.hour, 0, 0, 0, time.Local)
		if got := MealPeriod(dt); got != c.want {
			t.Errorf("MealPeriod(hour=%d) = %q, want %q", c.hour, got, c.want)
		}
	}
}

func TestWithDerivedComplete(t *testing.T) {
	m := WithDerived(completeMeal())

	if !m.Complete {
		t.Fatal("record with all four post-meal fields should be complete")
	}
	if m.SpikeMagnitude == nil || *m.SpikeMagnitude != 45.0 {
		t.Errorf("spikeMagnitude = %v, want 45.0", m.SpikeMagnitude)
	}
	if m.SpikeCategory == nil || *m.SpikeCategory != SpikeModerate {
		t.Errorf("spikeCategory = %v, want Moderate", m.SpikeCategory)
	}
	if m.DurationCategory == nil || *m.DurationCategory != DurationAcceptable {
		t.Errorf("durationCategory = %v, want Acceptable", m.DurationCategory)
	}
	if m.AucProxy == nil {
		t.Error("aucProxy should be set on a complete record")
	}
	if m.ReturnDelta == nil || *m.ReturnDelta != 10.0 {
		t.Errorf("returnDelta = %v, want 10.0", m.ReturnDelta)
	}
	if m.MealPeriod != PeriodMorning {
		t.Errorf("mealPeriod = %q, want morning", m.MealPeriod)
	}
}

func TestWithDerivedIncomplete(t *testing.T) {
	// Each post-meal field missing on its own must force the completeness-
	// gated metrics to nil, even with the other three populated.
	strip := []func(*models.MealRecord){
		func(m *models.MealRecord) { m.PeakGlucose = nil },
		func(m *models.MealRecord) { m.PeakTimeMinutes = nil },
		func(m *models.MealRecord) { m.GlucoseAt2Hr = nil },
		func(m *models.MealRecord) { m.TimeBackUnder120 = nil },
	}
	for i, f := range strip {
		m := completeMeal()
		f(&m)
		derived := WithDerived(m)
		if derived.Complete {
			t.Errorf("case %d: record should be incomplete", i)
		}
		if derived.SpikeCategory != nil || derived.DurationCategory != nil || derived.AucProxy != nil {
			t.Errorf("case %d: completeness-gated metrics should be nil", i)
		}
	}

	// Pairwise metrics survive incompleteness when their own inputs exist.
	m := completeMeal()
	m.TimeBackUnder120 = nil
	derived := WithDerived(m)
	if derived.SpikeMagnitude == nil {
		t.Error("spikeMagnitude should survive a missing return time")
	}
	if derived.ReturnDelta == nil {
		t.Error("returnDelta should survive a missing return time")
	}
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		v        float64
		decimals int
		want     float64
	}{
		{2.5, 0, 3},
		{-2.5, 0, -3},
		{0.05, 1, 0.1},
		{-0.05, 1, -0.1},
		{45.04, 1, 45.0},
		{45.06, 1, 45.1},
	}
	for _, c := range cases {
		if got := Round(c.v, c.decimals); got != c.want {
			t.Errorf("Round(%v, %d) = %v, want %v", c.v, c.decimals, got, c.want)
		}
	}
}
