package store

import (
	"os"
	"testing"
	"time"

	"github.com/ronnes/glucolog/internal/models"
)

func fp(v float64) *float64 { return &v }

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "glucolog-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleMeal(id string) models.MealRecord {
	return models.MealRecord{
		ID:           id,
		Datetime:     time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC),
		Description:  "Oatmeal",
		CarbEstimate: fp(60),
		ProteinLevel: models.LevelLow,
		FatLevel:     models.LevelNone,
		PreGlucose:   fp(100),
		Notes:        "with berries",
		ContextTags:  []string{"walk_after"},
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"meals", "fasting", "prefs"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Errorf("%s table missing: %v", table, err)
		}
	}
}

func TestPutAndGetMeal(t *testing.T) {
	db := testDB(t)
	m := sampleMeal("m1")
	if err := db.PutMeal(m); err != nil {
		t.Fatalf("PutMeal: %v", err)
	}

	meals, err := db.AllMeals()
	if err != nil {
		t.Fatalf("AllMeals: %v", err)
	}
	if len(meals) != 1 {
		t.Fatalf("got %d meals, want 1", len(meals))
	}
	got := meals[0]
	if got.ID != "m1" || got.Description != "Oatmeal" {
		t.Errorf("meal = %+v", got)
	}
	if !got.Datetime.Equal(m.Datetime) {
		t.Errorf("datetime = %v, want %v", got.Datetime, m.Datetime)
	}
	if got.CarbEstimate == nil || *got.CarbEstimate != 60 {
		t.Errorf("carbEstimate = %v", got.CarbEstimate)
	}
	if got.PeakGlucose != nil {
		t.Error("unset peakGlucose should come back nil")
	}
	if len(got.ContextTags) != 1 || got.ContextTags[0] != "walk_after" {
		t.Errorf("contextTags = %v", got.ContextTags)
	}
}

func TestPutMealOverwritesById(t *testing.T) {
	db := testDB(t)
	m := sampleMeal("m1")
	_ = db.PutMeal(m)

	m.PeakGlucose = fp(150)
	m.Notes = "updated"
	if err := db.PutMeal(m); err != nil {
		t.Fatalf("PutMeal update: %v", err)
	}

	meals, _ := db.AllMeals()
	if len(meals) != 1 {
		t.Fatalf("got %d meals after upsert, want 1", len(meals))
	}
	if meals[0].PeakGlucose == nil || *meals[0].PeakGlucose != 150 {
		t.Errorf("peakGlucose = %v, want 150", meals[0].PeakGlucose)
	}
	if meals[0].Notes != "updated" {
		t.Errorf("notes = %q", meals[0].Notes)
	}
}

func TestFastingUpsertSameDate(t *testing.T) {
	db := testDB(t)
	_ = db.PutFasting(models.FastingEntry{ID: "2026-03-10", Date: "2026-03-10", FastingGlucose: fp(95)})
	_ = db.PutFasting(models.FastingEntry{ID: "2026-03-10", Date: "2026-03-10", FastingGlucose: fp(90)})

	entries, err := db.AllFasting()
	if err != nil {
		t.Fatalf("AllFasting: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (upsert by date)", len(entries))
	}
	if *entries[0].FastingGlucose != 90 {
		t.Errorf("fastingGlucose = %v, want the later value 90", *entries[0].FastingGlucose)
	}
}

func TestReplaceAll(t *testing.T) {
	db := testDB(t)
	_ = db.PutMeal(sampleMeal("stale"))
	_ = db.PutFasting(models.FastingEntry{ID: "2026-01-01", Date: "2026-01-01", FastingGlucose: fp(88)})

	err := db.ReplaceAll(
		[]models.MealRecord{sampleMeal("fresh1"), sampleMeal("fresh2")},
		[]models.FastingEntry{{ID: "2026-03-10", Date: "2026-03-10", FastingGlucose: fp(92)}},
	)
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	meals, _ := db.AllMeals()
	if len(meals) != 2 {
		t.Errorf("meals = %d, want 2", len(meals))
	}
	for _, m := range meals {
		if m.ID == "stale" {
			t.Error("stale meal should have been cleared")
		}
	}
	entries, _ := db.AllFasting()
	if len(entries) != 1 || entries[0].ID != "2026-03-10" {
		t.Errorf("fasting = %+v", entries)
	}
}

func TestReplaceAllEmptyWipes(t *testing.T) {
	db := testDB(t)
	_ = db.PutMeal(sampleMeal("m1"))

	if err := db.ReplaceAll(nil, nil); err != nil {
		t.Fatalf("ReplaceAll(nil,nil): %v", err)
	}
	meals, _ := db.AllMeals()
	if len(meals) != 0 {
		t.Errorf("meals = %d, want 0 after wipe", len(meals))
	}
}

func TestPreferences(t *testing.T) {
	db := testDB(t)

	v, err := db.Preference("glucose_unit")
	if err != nil {
		t.Fatalf("Preference: %v", err)
	}
	if v != "" {
		t.Errorf("unset preference = %q, want empty", v)
	}

	if err := db.SetPreference("glucose_unit", "mmol/L"); err != nil {
		t.Fatalf("SetPreference: %v", err)
	}
	if err := db.SetPreference("glucose_unit", "mg/dL"); err != nil {
		t.Fatalf("SetPreference overwrite: %v", err)
	}

	v, _ = db.Preference("glucose_unit")
	if v != "mg/dL" {
		t.Errorf("preference = %q, want mg/dL", v)
	}
}
