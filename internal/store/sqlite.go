// Package store provides the SQLite-backed record store for meals, fasting
// entries and persisted preferences. Only raw fields are persisted; derived
// metrics are recomputed on every read path.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ronnes/glucolog/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS meals (
	id                  TEXT PRIMARY KEY,
	datetime            TEXT NOT NULL,
	description         TEXT NOT NULL DEFAULT '',
	carb_estimate       REAL,
	protein_level       TEXT NOT NULL DEFAULT 'none',
	fat_level           TEXT NOT NULL DEFAULT 'none',
	pre_glucose         REAL,
	peak_glucose        REAL,
	peak_time_minutes   REAL,
	glucose_at_2hr      REAL,
	time_back_under_120 REAL,
	notes               TEXT NOT NULL DEFAULT '',
	context_tags        TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS fasting (
	id              TEXT PRIMARY KEY,
	date            TEXT NOT NULL,
	fasting_glucose REAL
);

CREATE TABLE IF NOT EXISTS prefs (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// DB wraps a sql.DB with record-store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

const mealColumns = `id, datetime, description, carb_estimate, protein_level, fat_level,
	pre_glucose, peak_glucose, peak_time_minutes, glucose_at_2hr, time_back_under_120,
	notes, context_tags`

// AllMeals returns every stored meal with raw fields only.
func (db *DB) AllMeals() ([]models.MealRecord, error) {
	rows, err := db.conn.Query(`SELECT ` + mealColumns + ` FROM meals`)
	if err != nil {
		return nil, fmt.Errorf("store: all meals: %w", err)
	}
	defer rows.Close()

	var out []models.MealRecord
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// PutMeal inserts or replaces a meal keyed by id.
func (db *DB) PutMeal(m models.MealRecord) error {
	_, err := db.conn.Exec(upsertMealSQL, mealArgs(m)...)
	if err != nil {
		return fmt.Errorf("store: put meal: %w", err)
	}
	return nil
}

// AllFasting returns every stored fasting entry.
func (db *DB) AllFasting() ([]models.FastingEntry, error) {
	rows, err := db.conn.Query(`SELECT id, date, fasting_glucose FROM fasting`)
	if err != nil {
		return nil, fmt.Errorf("store: all fasting: %w", err)
	}
	defer rows.Close()

	var out []models.FastingEntry
	for rows.Next() {
		var e models.FastingEntry
		var glucose sql.NullFloat64
		if err := rows.Scan(&e.ID, &e.Date, &glucose); err != nil {
			return nil, err
		}
		e.FastingGlucose = fromNull(glucose)
		out = append(out, e)
	}
	return out, rows.Err()
}

// PutFasting inserts or replaces a fasting entry keyed by id (the date),
// so a second save for the same date overwrites the first.
func (db *DB) PutFasting(e models.FastingEntry) error {
	_, err := db.conn.Exec(`
		INSERT INTO fasting (id, date, fasting_glucose) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date            = excluded.date,
			fasting_glucose = excluded.fasting_glucose
	`, e.ID, e.Date, toNull(e.FastingGlucose))
	if err != nil {
		return fmt.Errorf("store: put fasting: %w", err)
	}
	return nil
}

// ReplaceAll clears both collections and writes the given records inside a
// single transaction; either everything is applied or nothing is.
func (db *DB) ReplaceAll(meals []models.MealRecord, fasting []models.FastingEntry) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM meals`); err != nil {
		return fmt.Errorf("store: clear meals: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM fasting`); err != nil {
		return fmt.Errorf("store: clear fasting: %w", err)
	}

	for _, m := range meals {
		if _, err := tx.Exec(upsertMealSQL, mealArgs(m)...); err != nil {
			return fmt.Errorf("store: replace meal %s: %w", m.ID, err)
		}
	}
	for _, e := range fasting {
		if _, err := tx.Exec(`
			INSERT INTO fasting (id, date, fasting_glucose) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				date            = excluded.date,
				fasting_glucose = excluded.fasting_glucose
		`, e.ID, e.Date, toNull(e.FastingGlucose)); err != nil {
			return fmt.Errorf("store: replace fasting %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// Preference returns a stored preference value, or "" when unset.
func (db *DB) Preference(key string) (string, error) {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM prefs WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: preference %s: %w", key, err)
	}
	return value, nil
}

// SetPreference stores a preference value, overwriting any previous one.
func (db *DB) SetPreference(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO prefs (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("store: set preference %s: %w", key, err)
	}
	return nil
}

const upsertMealSQL = `
	INSERT INTO meals (` + mealColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		datetime            = excluded.datetime,
		description         = excluded.description,
		carb_estimate       = excluded.carb_estimate,
		protein_level       = excluded.protein_level,
		fat_level           = excluded.fat_level,
		pre_glucose         = excluded.pre_glucose,
		peak_glucose        = excluded.peak_glucose,
		peak_time_minutes   = excluded.peak_time_minutes,
		glucose_at_2hr      = excluded.glucose_at_2hr,
		time_back_under_120 = excluded.time_back_under_120,
		notes               = excluded.notes,
		context_tags        = excluded.context_tags`

func mealArgs(m models.MealRecord) []any {
	tagsJSON, _ := json.Marshal(m.ContextTags)
	return []any{
		m.ID,
		m.Datetime.UTC().Format(time.RFC3339Nano),
		m.Description,
		toNull(m.CarbEstimate),
		string(m.ProteinLevel),
		string(m.FatLevel),
		toNull(m.PreGlucose),
		toNull(m.PeakGlucose),
		toNull(m.PeakTimeMinutes),
		toNull(m.GlucoseAt2Hr),
		toNull(m.TimeBackUnder120),
		m.Notes,
		string(tagsJSON),
	}
}

func scanMeal(rows *sql.Rows) (models.MealRecord, error) {
	var m models.MealRecord
	var datetime, tagsJSON string
	var carbs, pre, peak, peakTime, twoHr, backUnder sql.NullFloat64

	if err := rows.Scan(&m.ID, &datetime, &m.Description, &carbs, &m.ProteinLevel, &m.FatLevel,
		&pre, &peak, &peakTime, &twoHr, &backUnder, &m.Notes, &tagsJSON); err != nil {
		return models.MealRecord{}, fmt.Errorf("store: scan meal: %w", err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, datetime)
	if err != nil {
		return models.MealRecord{}, fmt.Errorf("store: meal %s datetime: %w", m.ID, err)
	}
	m.Datetime = parsed.UTC()

	m.CarbEstimate = fromNull(carbs)
	m.PreGlucose = fromNull(pre)
	m.PeakGlucose = fromNull(peak)
	m.PeakTimeMinutes = fromNull(peakTime)
	m.GlucoseAt2Hr = fromNull(twoHr)
	m.TimeBackUnder120 = fromNull(backUnder)

	if err := json.Unmarshal([]byte(tagsJSON), &m.ContextTags); err != nil {
		m.ContextTags = []string{}
	}
	if m.ContextTags == nil {
		m.ContextTags = []string{}
	}
	return m, nil
}

func toNull(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
