package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ronnes/glucolog/internal/tracker"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *tracker.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Meals.
	r.Get("/meals", h.ListMeals)
	r.Post("/meals", h.LogMeal)
	r.Put("/meals/{id}", h.UpdateMeal)

	// Fasting readings.
	r.Get("/fasting", h.ListFasting)
	r.Post("/fasting", h.SaveFasting)

	// Reports.
	r.Get("/reports/foods", h.FoodReport)
	r.Get("/reports/time-of-day", h.TimeOfDayReport)

	// Backup.
	r.Get("/export/csv", h.ExportCSV)
	r.Get("/export/json", h.ExportJSON)
	r.Post("/import", h.Import)

	// Settings.
	r.Get("/settings", h.Settings)
	r.Put("/settings/unit", h.SetUnit)
	r.Post("/reset", h.Reset)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
