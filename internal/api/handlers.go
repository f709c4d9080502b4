package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ronnes/glucolog/internal/apperr"
	"github.com/ronnes/glucolog/internal/codec"
	"github.com/ronnes/glucolog/internal/record"
	"github.com/ronnes/glucolog/internal/tracker"
	"github.com/ronnes/glucolog/internal/units"
)

// Handler holds API route handlers.
type Handler struct {
	svc *tracker.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *tracker.Service) *Handler {
	return &Handler{svc: svc}
}

// respondError maps service errors onto HTTP statuses. Validation failures
// surface their first message, like the entry forms do.
func respondError(w http.ResponseWriter, op string, err error) {
	if ve, ok := apperr.AsValidation(err); ok {
		writeJSON(w, http.StatusBadRequest, errorBody(ve.Error()))
		return
	}
	if apperr.IsParse(err) {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	slog.Error(op+" failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

// ListMeals handles GET /api/meals.
//
//	@Summary		List meals with optional sorting
//	@Tags			meals
//	@Produce		json
//	@Param			sort	query		string	false	"Sort key"	Enums(datetime, description, carbEstimate, spikeMagnitude, spikeCategory, timeBackUnder120, durationCategory, aucProxy, returnDelta)
//	@Param			dir		query		string	false	"Sort direction"	Enums(asc, desc)
//	@Success		200		{object}	MealListResponse
//	@Security		BearerAuth
//	@Router			/meals [get]
func (h *Handler) ListMeals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := q.Get("sort")
	if key == "" {
		key = "datetime"
	}
	dir := q.Get("dir")
	if dir == "" {
		dir = "desc"
	}

	unit := h.svc.Unit()
	writeJSON(w, http.StatusOK, MealListResponse{
		Meals: mealViews(h.svc.SortedMeals(key, dir), unit),
		Unit:  string(unit),
	})
}

// LogMeal handles POST /api/meals.
//
//	@Summary		Log the initial entry for a new meal
//	@Tags			meals
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LogMealRequest	true	"Meal to log"
//	@Success		201		{object}	MealView
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/meals [post]
func (h *Handler) LogMeal(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req LogMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	unit := h.svc.Unit()
	meal, err := h.svc.LogMeal(tracker.MealInput{
		Datetime:     record.Datetime(req.Datetime),
		Description:  req.Description,
		CarbEstimate: record.NumberOrNil(string(req.CarbEstimate)),
		ProteinLevel: req.ProteinLevel,
		FatLevel:     req.FatLevel,
		PreGlucose:   units.ToStorage(string(req.PreGlucose), unit),
		Notes:        req.Notes,
		ContextTags:  req.ContextTags,
	})
	if err != nil {
		respondError(w, "log meal", err)
		return
	}
	writeJSON(w, http.StatusCreated, mealView(meal, unit))
}

// UpdateMeal handles PUT /api/meals/{id}.
//
//	@Summary		Complete a meal with its post-meal samples
//	@Tags			meals
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Meal id"
//	@Param			body	body		UpdateMealRequest	true	"Post-meal fields"
//	@Success		200		{object}	MealView
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/meals/{id} [put]
func (h *Handler) UpdateMeal(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}

	var req UpdateMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	unit := h.svc.Unit()
	upd := tracker.MealUpdate{
		Notes:       req.Notes,
		ContextTags: req.ContextTags,
	}
	if req.PeakGlucose != nil {
		upd.PeakGlucose = units.ToStorage(string(*req.PeakGlucose), unit)
	}
	if req.GlucoseAt2Hr != nil {
		upd.GlucoseAt2Hr = units.ToStorage(string(*req.GlucoseAt2Hr), unit)
	}
	if req.PeakTimeMinutes != nil {
		upd.PeakTimeMinutes = record.NumberOrNil(string(*req.PeakTimeMinutes))
	}
	if req.TimeBackUnder120 != nil {
		upd.TimeBackUnder120 = record.NumberOrNil(string(*req.TimeBackUnder120))
	}

	meal, err := h.svc.UpdateMeal(id, upd)
	if err != nil {
		respondError(w, "update meal", err)
		return
	}
	writeJSON(w, http.StatusOK, mealView(meal, unit))
}

// ListFasting handles GET /api/fasting.
//
//	@Summary		List fasting readings
//	@Tags			fasting
//	@Produce		json
//	@Success		200	{object}	FastingListResponse
//	@Security		BearerAuth
//	@Router			/fasting [get]
func (h *Handler) ListFasting(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FastingListResponse{
		Entries:     h.svc.FastingEntries(),
		TodayLogged: h.svc.TodayFastingLogged(),
	})
}

// SaveFasting handles POST /api/fasting.
//
//	@Summary		Save a fasting reading for a date (overwrites the date's earlier reading)
//	@Tags			fasting
//	@Accept			json
//	@Produce		json
//	@Param			body	body		FastingRequest	true	"Fasting reading"
//	@Success		201		{object}	models.FastingEntry
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/fasting [post]
func (h *Handler) SaveFasting(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req FastingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	entry, err := h.svc.UpsertFasting(req.Date, units.ToStorage(string(req.FastingGlucose), h.svc.Unit()))
	if err != nil {
		respondError(w, "save fasting", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// FoodReport handles GET /api/reports/foods.
//
//	@Summary		Per-description food pattern report
//	@Tags			reports
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/reports/foods [get]
func (h *Handler) FoodReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"foods": h.svc.FoodPatterns(),
	})
}

// TimeOfDayReport handles GET /api/reports/time-of-day.
//
//	@Summary		Morning/afternoon/evening summary report
//	@Tags			reports
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/reports/time-of-day [get]
func (h *Handler) TimeOfDayReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"periods": h.svc.TimeOfDaySummary(),
	})
}

// ExportCSV handles GET /api/export/csv.
//
//	@Summary		Download the full dataset as a CSV backup
//	@Tags			backup
//	@Produce		text/csv
//	@Success		200
//	@Security		BearerAuth
//	@Router			/export/csv [get]
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	data := h.svc.ExportCSV()
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", codec.BackupFilename("csv")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ExportJSON handles GET /api/export/json.
//
//	@Summary		Download the full dataset as a JSON backup
//	@Tags			backup
//	@Produce		json
//	@Success		200
//	@Security		BearerAuth
//	@Router			/export/json [get]
func (h *Handler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ExportJSON()
	if err != nil {
		respondError(w, "export json", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", codec.BackupFilename("json")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Import handles POST /api/import.
//
//	@Summary		Replace both collections from an uploaded backup file
//	@Tags			backup
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"CSV or JSON backup"
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 25<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file field is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	result, err := h.svc.ImportBackup(header.Filename, data)
	if err != nil {
		respondError(w, "import backup", err)
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{
		Meals:          len(result.Meals),
		FastingEntries: len(result.FastingEntries),
		Dropped:        result.Dropped,
	})
}

// Settings handles GET /api/settings.
//
//	@Summary		Session settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	SettingsResponse
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	unit := h.svc.Unit()
	writeJSON(w, http.StatusOK, SettingsResponse{
		Unit:               string(unit),
		AucUnitLabel:       units.AucUnitLabel(unit),
		TodayFastingLogged: h.svc.TodayFastingLogged(),
	})
}

// SetUnit handles PUT /api/settings/unit.
//
//	@Summary		Switch the glucose display unit
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UnitRequest	true	"Unit to activate"
//	@Success		200		{object}	SettingsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/unit [put]
func (h *Handler) SetUnit(w http.ResponseWriter, r *http.Request) {
	var req UnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.SetUnit(units.Unit(req.Unit)); err != nil {
		respondError(w, "set unit", err)
		return
	}
	h.Settings(w, r)
}

// Reset handles POST /api/reset.
//
//	@Summary		Delete every meal and fasting record
//	@Tags			settings
//	@Success		204
//	@Security		BearerAuth
//	@Router			/reset [post]
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(); err != nil {
		respondError(w, "reset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
