// Package tracker implements the session service: it owns the in-memory
// meal and fasting collections, the active display unit, and every mutation
// path. All writes go to the store before memory is touched, so a failed
// persist never leaves the session ahead of the database.
package tracker

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ronnes/glucolog/internal/apperr"
	"github.com/ronnes/glucolog/internal/codec"
	"github.com/ronnes/glucolog/internal/metrics"
	"github.com/ronnes/glucolog/internal/models"
	"github.com/ronnes/glucolog/internal/report"
	"github.com/ronnes/glucolog/internal/sse"
	"github.com/ronnes/glucolog/internal/store"
	"github.com/ronnes/glucolog/internal/units"
	"github.com/ronnes/glucolog/internal/validate"
)

const unitPrefKey = "glucose_unit"

// MealInput is the initial entry for a new meal. Glucose values are in
// mg/dL; unit conversion happens at the transport boundary.
type MealInput struct {
	Datetime     time.Time // zero means now
	Description  string
	CarbEstimate *float64
	ProteinLevel string
	FatLevel     string
	PreGlucose   *float64
	Notes        string
	ContextTags  []string
}

// MealUpdate carries the post-meal fields for completing a record. Nil
// pointers leave the stored value unchanged; ContextTags nil means
// unchanged, an empty slice clears the tags.
type MealUpdate struct {
	PeakGlucose      *float64
	PeakTimeMinutes  *float64
	GlucoseAt2Hr     *float64
	TimeBackUnder120 *float64
	Notes            *string
	ContextTags      []string
}

// Service coordinates the record collections, persistence and change
// notifications for one tracker instance.
type Service struct {
	mu      sync.Mutex
	store   store.RecordStore
	broker  *sse.Broker
	meals   []models.MealRecord
	fasting []models.FastingEntry
	unit    units.Unit
}

// NewService creates a Service on top of the given store. The broker may be
// nil, in which case change events are not published.
func NewService(st store.RecordStore, broker *sse.Broker) *Service {
	return &Service{
		store:  st,
		broker: broker,
		unit:   units.MgdL,
	}
}

// Load reads the persisted collections, sanitizes every record (defaults
// applied, derived fields recomputed, both validation stages) and rewrites
// the store with the surviving set. It returns the number of records
// dropped during sanitization.
func (s *Service) Load() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	storedMeals, err := s.store.AllMeals()
	if err != nil {
		return 0, fmt.Errorf("tracker: load meals: %w", err)
	}
	storedFasting, err := s.store.AllFasting()
	if err != nil {
		return 0, fmt.Errorf("tracker: load fasting: %w", err)
	}

	dropped := 0
	meals := make([]models.MealRecord, 0, len(storedMeals))
	for _, m := range storedMeals {
		clean := sanitizeMeal(m)
		if len(validate.MealBothStages(validate.Fields(clean))) > 0 {
			dropped++
			continue
		}
		meals = append(meals, clean)
	}

	fasting := make([]models.FastingEntry, 0, len(storedFasting))
	for _, e := range storedFasting {
		if e.Date == "" || len(validate.Fasting(e.FastingGlucose)) > 0 {
			dropped++
			continue
		}
		fasting = append(fasting, e)
	}

	if err := s.store.ReplaceAll(meals, fasting); err != nil {
		return 0, fmt.Errorf("tracker: rewrite sanitized records: %w", err)
	}

	unitPref, err := s.store.Preference(unitPrefKey)
	if err != nil {
		return 0, fmt.Errorf("tracker: load unit preference: %w", err)
	}

	s.meals = meals
	s.fasting = fasting
	s.unit = units.Parse(unitPref)
	return dropped, nil
}

// LogMeal validates and saves the initial entry for a new meal, returning
// the stored record with its derived fields.
func (s *Service) LogMeal(in MealInput) (models.MealRecord, error) {
	fields := validate.MealFields{
		Description:  in.Description,
		CarbEstimate: in.CarbEstimate,
		PreGlucose:   in.PreGlucose,
	}
	if msgs := validate.Meal(fields, validate.StagePre); len(msgs) > 0 {
		return models.MealRecord{}, apperr.NewValidation(msgs)
	}

	dt := in.Datetime
	if dt.IsZero() {
		dt = time.Now()
	}

	meal := metrics.WithDerived(models.MealRecord{
		ID:           uuid.NewString(),
		Datetime:     dt.UTC(),
		Description:  strings.TrimSpace(in.Description),
		CarbEstimate: in.CarbEstimate,
		ProteinLevel: levelOrNone(in.ProteinLevel),
		FatLevel:     levelOrNone(in.FatLevel),
		PreGlucose:   in.PreGlucose,
		Notes:        in.Notes,
		ContextTags:  tagsOrEmpty(in.ContextTags),
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.PutMeal(meal); err != nil {
		return models.MealRecord{}, fmt.Errorf("tracker: save meal: %w", err)
	}
	s.meals = append(s.meals, meal)

	s.notify(sse.KindMealCreated, meal.ID)
	return meal, nil
}

// UpdateMeal applies post-meal fields to an existing record. The update is
// repeatable: a later call with corrected values overwrites the earlier
// one, and the record id never changes.
func (s *Service) UpdateMeal(id string, upd MealUpdate) (models.MealRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.meals {
		if s.meals[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.MealRecord{}, fmt.Errorf("tracker: meal %s: %w", id, apperr.ErrNotFound)
	}

	updated := s.meals[idx]
	if upd.PeakGlucose != nil {
		updated.PeakGlucose = upd.PeakGlucose
	}
	if upd.PeakTimeMinutes != nil {
		updated.PeakTimeMinutes = upd.PeakTimeMinutes
	}
	if upd.GlucoseAt2Hr != nil {
		updated.GlucoseAt2Hr = upd.GlucoseAt2Hr
	}
	if upd.TimeBackUnder120 != nil {
		updated.TimeBackUnder120 = upd.TimeBackUnder120
	}
	if upd.Notes != nil {
		updated.Notes = *upd.Notes
	}
	if upd.ContextTags != nil {
		updated.ContextTags = tagsOrEmpty(upd.ContextTags)
	}

	if msgs := validate.Meal(validate.Fields(updated), validate.StagePost); len(msgs) > 0 {
		return models.MealRecord{}, apperr.NewValidation(msgs)
	}
	updated = metrics.WithDerived(updated)

	if err := s.store.PutMeal(updated); err != nil {
		return models.MealRecord{}, fmt.Errorf("tracker: update meal: %w", err)
	}
	s.meals[idx] = updated

	s.notify(sse.KindMealUpdated, updated.ID)
	return updated, nil
}

// UpsertFasting saves a fasting reading for the given date (YYYY-MM-DD,
// empty means today). A second save for the same date overwrites the first.
func (s *Service) UpsertFasting(date string, glucose *float64) (models.FastingEntry, error) {
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if len(date) > 10 {
		date = date[:10]
	}

	if msgs := validate.Fasting(glucose); len(msgs) > 0 {
		return models.FastingEntry{}, apperr.NewValidation(msgs)
	}

	entry := models.FastingEntry{ID: date, Date: date, FastingGlucose: glucose}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.PutFasting(entry); err != nil {
		return models.FastingEntry{}, fmt.Errorf("tracker: save fasting: %w", err)
	}

	replaced := false
	for i := range s.fasting {
		if s.fasting[i].Date == date {
			s.fasting[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		s.fasting = append(s.fasting, entry)
	}

	s.notify(sse.KindFastingSaved, entry.ID)
	return entry, nil
}

// Meals returns a copy of the meal collection with derived fields
// recomputed from the raw values.
func (s *Service) Meals() []models.MealRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mealsLocked()
}

func (s *Service) mealsLocked() []models.MealRecord {
	out := make([]models.MealRecord, len(s.meals))
	for i, m := range s.meals {
		out[i] = metrics.WithDerived(m)
	}
	return out
}

// Meal returns one meal by id.
func (s *Service) Meal(id string) (models.MealRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.meals {
		if m.ID == id {
			return metrics.WithDerived(m), nil
		}
	}
	return models.MealRecord{}, fmt.Errorf("tracker: meal %s: %w", id, apperr.ErrNotFound)
}

// FastingEntries returns a copy of the fasting collection.
func (s *Service) FastingEntries() []models.FastingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.FastingEntry, len(s.fasting))
	copy(out, s.fasting)
	return out
}

// SortedMeals returns the meal collection ordered by key and direction.
func (s *Service) SortedMeals(key, direction string) []models.MealRecord {
	return report.SortMeals(s.Meals(), key, direction)
}

// FoodPatterns returns the per-description summary report.
func (s *Service) FoodPatterns() []report.FoodPattern {
	return report.ByDescription(s.Meals())
}

// TimeOfDaySummary returns the fixed Morning/Afternoon/Evening summary.
func (s *Service) TimeOfDaySummary() []report.PeriodSummary {
	return report.ByTimeOfDay(s.Meals())
}

// ImportBackup parses a backup payload and replaces both collections with
// its sanitized contents. The replace is all or nothing; individual invalid
// rows are dropped and counted in the result.
func (s *Service) ImportBackup(filename string, data []byte) (*codec.ImportResult, error) {
	result, err := codec.Import(filename, data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.ReplaceAll(result.Meals, result.FastingEntries); err != nil {
		return nil, fmt.Errorf("tracker: import replace: %w", err)
	}
	s.meals = result.Meals
	s.fasting = result.FastingEntries

	s.notify(sse.KindCollectionReplaced, "")
	return result, nil
}

// ExportCSV renders the full dataset as a CSV backup.
func (s *Service) ExportCSV() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return codec.ExportCSV(s.mealsLocked(), s.fasting)
}

// ExportJSON renders the full dataset as a JSON backup.
func (s *Service) ExportJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return codec.ExportJSON(s.mealsLocked(), s.fasting)
}

// Reset wipes both collections.
func (s *Service) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.ReplaceAll(nil, nil); err != nil {
		return fmt.Errorf("tracker: reset: %w", err)
	}
	s.meals = nil
	s.fasting = nil

	s.notify(sse.KindCollectionReplaced, "")
	return nil
}

// Unit returns the active display unit.
func (s *Service) Unit() units.Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unit
}

// SetUnit switches the display unit and persists the choice.
func (s *Service) SetUnit(u units.Unit) error {
	if !units.Valid(string(u)) {
		return apperr.NewValidation([]string{"Unknown glucose unit."})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SetPreference(unitPrefKey, string(u)); err != nil {
		return fmt.Errorf("tracker: save unit preference: %w", err)
	}
	s.unit = u
	return nil
}

// TodayFastingLogged reports whether a fasting reading exists for the
// current local date.
func (s *Service) TodayFastingLogged() bool {
	today := time.Now().Format("2006-01-02")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.fasting {
		if e.Date == today {
			return true
		}
	}
	return false
}

func (s *Service) notify(kind, id string) {
	if s.broker != nil {
		s.broker.PublishRecordEvent(kind, id)
	}
}

// sanitizeMeal applies the normalization defaults to a stored record and
// recomputes its derived fields.
func sanitizeMeal(m models.MealRecord) models.MealRecord {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if strings.TrimSpace(m.Description) == "" {
		m.Description = models.DefaultDescription
	}
	m.ProteinLevel = levelOrNone(string(m.ProteinLevel))
	m.FatLevel = levelOrNone(string(m.FatLevel))
	m.ContextTags = tagsOrEmpty(m.ContextTags)
	if m.Datetime.IsZero() {
		m.Datetime = time.Now().UTC()
	}
	return metrics.WithDerived(m)
}

func levelOrNone(s string) models.Level {
	if models.ValidLevel(s) {
		return models.Level(s)
	}
	return models.LevelNone
}

func tagsOrEmpty(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
