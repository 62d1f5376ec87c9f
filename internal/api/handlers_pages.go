package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/lox/aqicast/internal/chart"
	"github.com/lox/aqicast/internal/engine"
	"github.com/lox/aqicast/internal/forecast"
	"github.com/lox/aqicast/internal/models"
)

const advisoryTimeout = 20 * time.Second

// IndexData is the view model for the dashboard page.
type IndexData struct {
	DataLoaded   bool
	Cities       []string
	SelectedCity string
	Days         int
	DayOptions   []int

	HasForecast bool
	LatestAQI   int
	TomorrowAQI int
	Future      []models.ForecastPoint
	Advisory    string
	ErrorMsg    string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := IndexData{
		DataLoaded: s.engine.Loaded(),
		Cities:     s.engine.Cities(),
		Days:       DefaultHorizonDays,
		DayOptions: horizonOptions(),
	}

	city := r.URL.Query().Get("city")
	if d, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil {
		data.Days = clampHorizon(d)
	}

	if city != "" && data.DataLoaded {
		data.SelectedCity = city
		s.generateForecast(r.Context(), &data)
	} else if !data.DataLoaded {
		data.ErrorMsg = "Historical AQI data could not be loaded. Check the dataset path and restart."
	}

	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		log.Printf("template error: %v", err)
	}
}

// generateForecast fills the forecast section of the view model, converting
// engine failures into a rendered error state.
func (s *Server) generateForecast(ctx context.Context, data *IndexData) {
	series, err := s.engine.Forecast(data.SelectedCity, data.Days)
	if err != nil {
		data.ErrorMsg = forecastErrorMessage(data.SelectedCity, err)
		return
	}

	data.HasForecast = true
	data.Future = series[len(series)-data.Days:]
	// "Tomorrow" is the first future row: -periods from the end of the full
	// series, matching the series construction.
	data.TomorrowAQI = series[len(series)-data.Days].AQI
	if latest, ok := s.engine.LatestAQI(data.SelectedCity); ok {
		data.LatestAQI = latest
	}

	if s.advisory != nil {
		actx, cancel := context.WithTimeout(ctx, advisoryTimeout)
		defer cancel()
		text, err := s.advisory.Generate(actx, data.SelectedCity, data.Future)
		if err != nil {
			log.Printf("advisory for %s: %v", data.SelectedCity, err)
		} else {
			data.Advisory = text
		}
	}
}

func forecastErrorMessage(city string, err error) string {
	switch {
	case errors.Is(err, engine.ErrNoData):
		return "Historical AQI data could not be loaded. Check the dataset path and restart."
	case errors.Is(err, engine.ErrUnknownCity):
		return "No historical data found for " + city + "."
	case errors.Is(err, forecast.ErrInsufficientData):
		return "Not enough historical data to generate a forecast for " + city + "."
	default:
		return "Could not generate a forecast for " + city + ". Please try again."
	}
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
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
		if errors.Is(err, engine.ErrUnknownCity) {
			status = http.StatusNotFound
		}
		http.Error(w, forecastErrorMessage(city, err), status)
		return
	}

	img, err := chart.Render(city, series, len(series)-days)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(img)
}
