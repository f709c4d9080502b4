package store

import "github.com/ronnes/glucolog/internal/models"

// RecordStore is the persistence interface for the two record collections
// and the key/value preferences. Consumers should depend on this interface
// rather than the concrete *DB type to facilitate testing with fakes.
type RecordStore interface {
	AllMeals() ([]models.MealRecord, error)
	PutMeal(m models.MealRecord) error
	AllFasting() ([]models.FastingEntry, error)
	PutFasting(e models.FastingEntry) error
	// ReplaceAll atomically clears both collections and writes the given
	// records in a single transaction.
	ReplaceAll(meals []models.MealRecord, fasting []models.FastingEntry) error
	Preference(key string) (string, error)
	SetPreference(key, value string) error
	Close() error
}

// Verify *DB satisfies RecordStore at compile time.
var _ RecordStore = (*DB)(nil)
