// Package engine owns the loaded AQI table and the per-city model cache, and
// turns both into forecast series.
package engine

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/lox/aqicast/internal/dataset"
	"github.com/lox/aqicast/internal/forecast"
	"github.com/lox/aqicast/internal/metrics"
	"github.com/lox/aqicast/internal/models"
)

// Below this many rows a forecast is still produced but flagged as less
// reliable (roughly two years of daily data).
const reliableRowCount = 730

var (
	// ErrNoData means the dataset never loaded; every forecast fails until
	// the process is restarted with a readable dataset.
	ErrNoData = errors.New("no data loaded")

	// ErrUnknownCity means the dataset has no rows for the requested city.
	ErrUnknownCity = errors.New("no data for city")
)

// Engine trains and caches one forecasting model per city. Models are trained
// lazily on first request, cached for the process lifetime and never evicted.
type Engine struct {
	table *dataset.Table
	opts  forecast.Options

	mu       sync.Mutex
	models map[string]*forecast.Model
}

// New loads the dataset at path. Load failures are logged and absorbed: the
// engine comes up with an absent table and reports ErrNoData on use, so "no
// data" stays a first-class outcome rather than a startup crash.
func New(path string, opts forecast.Options) *Engine {
	table, err := dataset.Load(path)
	if err != nil {
		log.Printf("dataset unavailable: %v", err)
		table = nil
	} else {
		log.Printf("dataset loaded: %d rows, %d cities", table.Len(), len(table.Cities()))
	}
	return NewFromTable(table, opts)
}

// NewFromTable builds an engine around an already-loaded table. The table may
// be nil.
func NewFromTable(table *dataset.Table, opts forecast.Options) *Engine {
	return &Engine{
		table:    table,
		opts:     opts,
		models: make(map[string]*forecast.Model),
	}
}

// Loaded reports whether the dataset is available.
func (e *Engine) Loaded() bool {
	return e.table != nil
}

// Cities returns the available city names, sorted. Empty when no data loaded.
func (e *Engine) Cities() []string {
	if e.table == nil {
		return nil
	}
	return e.table.Cities()
}

// LatestAQI returns the most recent recorded AQI for a city.
func (e *Engine) LatestAQI(city string) (int, bool) {
	if e.table == nil {
		return 0, false
	}
	return e.table.LatestAQI(city)
}

// Train returns the cached model for city, fitting one on first request.
// A cached model is returned unchanged: no retraining, no staleness check.
func (e *Engine) Train(city string) (*forecast.Model, error) {
	if e.table == nil {
		return nil, ErrNoData
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if m, ok := e.models[city]; ok {
		return m, nil
	}

	dates, values := e.table.City(city)
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCity, city)
	}
	if len(dates) < reliableRowCount {
		log.Printf("warning: %s has %d rows (less than 2 years); forecast may be less reliable", city, len(dates))
	}

	log.Printf("training forecasting model for %s (%d rows)", city, len(dates))
	start := time.Now()
	m, err := forecast.Fit(dates, values, e.opts)
	if err != nil {
		return nil, fmt.Errorf("fit model for %s: %w", city, err)
	}
	metrics.TrainingDuration.Observe(time.Since(start).Seconds())
	metrics.ModelsTrained.WithLabelValues(city).Inc()

	e.models[city] = m
	return m, nil
}

// Forecast produces the full date-indexed series for a city: in-sample fitted
// values for every historical date plus periods consecutive future days
// starting the day after the last historical date. All three numeric outputs
// are rounded to integers. Callers slice the trailing periods rows for
// future-only views.
func (e *Engine) Forecast(city string, periods int) ([]models.ForecastPoint, error) {
	m, err := e.Train(city)
	if err != nil {
		metrics.ForecastErrors.WithLabelValues(errorReason(err)).Inc()
		return nil, err
	}

	histDates, _ := e.table.City(city)
	last := histDates[len(histDates)-1]

	index := make([]time.Time, 0, len(histDates)+periods)
	index = append(index, histDates...)
	for i := 1; i <= periods; i++ {
		index = append(index, last.AddDate(0, 0, i))
	}

	points := m.Predict(index)
	out := make([]models.ForecastPoint, len(points))
	for i, p := range points {
		out[i] = models.ForecastPoint{
			Date:  p.Date,
			AQI:   int(math.Round(p.Value)),
			Lower: int(math.Round(p.Lower)),
			Upper: int(math.Round(p.Upper)),
		}
	}

	metrics.ForecastsGenerated.WithLabelValues(city).Inc()
	return out, nil
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, ErrUnknownCity):
		return "unknown_city"
	case errors.Is(err, forecast.ErrInsufficientData):
		return "insufficient_data"
	default:
		return "fit_failure"
	}
}
