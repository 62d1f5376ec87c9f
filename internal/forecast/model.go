// Package forecast implements an additive time-series model for daily AQI
// series: piecewise-linear trend with changepoints plus weekly and yearly
// Fourier seasonality, fit jointly by ridge least squares. Uncertainty bands
// come from in-sample residuals and widen with the forecast horizon.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	weeklyPeriod = 7.0
	yearlyPeriod = 365.25

	weeklyOrder = 3
	yearlyOrder = 10

	// Changepoints are placed uniformly over the first 80% of history.
	changepointRange = 0.8

	// Ridge penalties. Changepoint slope deltas are penalized hardest so the
	// trend only bends where the data insists.
	trendPenalty       = 1e-4
	changepointPenalty = 1.0
	seasonalPenalty    = 0.1
)

// ErrInsufficientData is returned when a series is too short to fit.
var ErrInsufficientData = errors.New("insufficient data to fit model")

// Options configures a model fit. The zero value disables everything; use
// DefaultOptions for the standard configuration.
type Options struct {
	YearlySeasonality bool
	WeeklySeasonality bool
	// DailySeasonality is accepted for completeness but has no effect: the
	// input is one observation per day, so there is no sub-daily cycle to fit.
	DailySeasonality bool
	Changepoints     int
	IntervalWidth    float64
}

// DefaultOptions enables yearly and weekly seasonality with daily off and
// 80% uncertainty intervals.
func DefaultOptions() Options {
	return Options{
		YearlySeasonality: true,
		WeeklySeasonality: true,
		DailySeasonality:  false,
		Changepoints:      25,
		IntervalWidth:     0.80,
	}
}

// Point is one predicted row.
type Point struct {
	Date  time.Time
	Value float64
	Lower float64
	Upper float64
}

// Model is a fitted additive model for one series.
type Model struct {
	opts         Options
	start        time.Time
	end          time.Time
	spanDays     float64
	changepoints []float64 // scaled positions in (0, 1)
	coef         []float64
	sigma        float64
	n            int
}

// Fit trains a model on a daily series. Dates and values must be the same
// length and at least 2 observations long; dates are assumed non-decreasing.
func Fit(dates []time.Time, values []float64, opts Options) (*Model, error) {
	if len(dates) != len(values) {
		return nil, fmt.Errorf("dates/values length mismatch: %d vs %d", len(dates), len(values))
	}
	n := len(values)
	if n < 2 {
		return nil, ErrInsufficientData
	}

	m := &Model{
		opts:  opts,
		start: dates[0],
		end:   dates[n-1],
		n:     n,
	}
	m.spanDays = m.days(m.end)
	if m.spanDays < 1 {
		m.spanDays = 1
	}

	k := opts.Changepoints
	if max := n - 2; k > max {
		k = max
	}
	if k < 0 {
		k = 0
	}
	for j := 1; j <= k; j++ {
		m.changepoints = append(m.changepoints, changepointRange*float64(j)/float64(k+1))
	}

	p := len(m.featuresAt(dates[0]))

	// Ridge via row augmentation: append sqrt(penalty) identity rows so the
	// system stays full rank even when columns outnumber observations.
	a := mat.NewDense(n+p, p, nil)
	b := mat.NewDense(n+p, 1, nil)
	for i, d := range dates {
		a.SetRow(i, m.featuresAt(d))
		b.Set(i, 0, values[i])
	}
	for j := 0; j < p; j++ {
		a.Set(n+j, j, math.Sqrt(m.penalty(j)))
	}

	var qr mat.QR
	qr.Factorize(a)
	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, b); err != nil {
		return nil, fmt.Errorf("least squares solve: %w", err)
	}

	m.coef = make([]float64, p)
	for j := 0; j < p; j++ {
		m.coef[j] = sol.At(j, 0)
	}

	residuals := make([]float64, n)
	for i, d := range dates {
		residuals[i] = values[i] - m.predictValue(d)
	}
	m.sigma = stat.StdDev(residuals, nil)
	if math.IsNaN(m.sigma) {
		m.sigma = 0
	}

	return m, nil
}

// Predict returns a point with uncertainty bounds for every requested date.
func (m *Model) Predict(dates []time.Time) []Point {
	width := m.opts.IntervalWidth
	if width <= 0 || width >= 1 {
		width = 0.80
	}
	z := math.Sqrt2 * math.Erfinv(width)

	points := make([]Point, len(dates))
	for i, d := range dates {
		v := m.predictValue(d)
		spread := z * m.sigma * m.widening(d)
		points[i] = Point{
			Date:  d,
			Value: v,
			Lower: v - spread,
			Upper: v + spread,
		}
	}
	return points
}

// TrainingRange returns the first and last training dates.
func (m *Model) TrainingRange() (time.Time, time.Time) {
	return m.start, m.end
}

// days returns fractional days between the training start and d.
func (m *Model) days(d time.Time) float64 {
	return d.Sub(m.start).Hours() / 24
}

func (m *Model) predictValue(d time.Time) float64 {
	var v float64
	for j, x := range m.featuresAt(d) {
		v += m.coef[j] * x
	}
	return v
}

// widening grows the interval for dates past the end of training; in-sample
// dates keep the plain residual band.
func (m *Model) widening(d time.Time) float64 {
	ahead := m.days(d) - m.days(m.end)
	if ahead <= 0 {
		return 1
	}
	return math.Sqrt(1 + ahead/m.spanDays)
}

// featuresAt builds the regression row for one date: intercept, scaled trend,
// one hinge term per changepoint, then the enabled Fourier terms.
func (m *Model) featuresAt(d time.Time) []float64 {
	days := m.days(d)
	t := days / m.spanDays

	row := []float64{1, t}
	for _, cp := range m.changepoints {
		if t > cp {
			row = append(row, t-cp)
		} else {
			row = append(row, 0)
		}
	}
	if m.opts.WeeklySeasonality {
		row = appendFourier(row, days, weeklyPeriod, weeklyOrder)
	}
	if m.opts.YearlySeasonality {
		row = appendFourier(row, days, yearlyPeriod, yearlyOrder)
	}
	return row
}

// penalty returns the ridge penalty for column j of the design matrix.
func (m *Model) penalty(j int) float64 {
	switch {
	case j < 2:
		return trendPenalty
	case j < 2+len(m.changepoints):
		return changepointPenalty
	default:
		return seasonalPenalty
	}
}

func appendFourier(row []float64, days, period float64, order int) []float64 {
	for k := 1; k <= order; k++ {
		angle := 2 * math.Pi * float64(k) * days / period
		row = append(row, math.Sin(angle), math.Cos(angle))
	}
	return row
}
