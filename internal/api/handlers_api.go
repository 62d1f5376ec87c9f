package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/lox/aqicast/internal/engine"
	"github.com/lox/aqicast/internal/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"data_loaded": s.engine.Loaded(),
		"cities":      len(s.engine.Cities()),
	})
}

func (s *Server) handleAPICities(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	cities := s.engine.Cities()
	if cities == nil {
		cities = []string{}
	}
	json.NewEncoder(w).Encode(cities)
}

// ForecastResponse is the JSON shape of /api/forecast. Series is the full
// date-indexed forecast; the trailing Periods rows are the future days.
type ForecastResponse struct {
	City    string                 `json:"city"`
	Periods int                    `json:"periods"`
	Series  []models.ForecastPoint `json:"series"`
}

func (s *Server) handleAPIForecast(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		http.Error(w, "city parameter required", http.StatusBadRequest)
		return
	}
	days := DefaultHorizonDays
	if d, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil {
		days = clampHorizon(d)
	}

	series, err := s.engine.Forecast(city, days)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, engine.ErrUnknownCity):
			status = http.StatusNotFound
		case errors.Is(err, engine.ErrNoData):
			status = http.StatusServiceUnavailable
		}
		http.Error(w, forecastErrorMessage(city, err), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ForecastResponse{
		City:    city,
		Periods: days,
		Series:  series,
	})
}
