package forecast_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/lox/aqicast/internal/forecast"
)

func makeSeries(n int, f func(i int) float64) ([]time.Time, []float64) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, n)
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		dates[i] = start.AddDate(0, 0, i)
		values[i] = f(i)
	}
	return dates, values
}

func futureDates(last time.Time, n int) []time.Time {
	dates := make([]time.Time, n)
	for i := 0; i < n; i++ {
		dates[i] = last.AddDate(0, 0, i+1)
	}
	return dates
}

func TestFit_InsufficientData(t *testing.T) {
	t.Parallel()
	dates, values := makeSeries(1, func(i int) float64 { return 100 })
	_, err := forecast.Fit(dates, values, forecast.DefaultOptions())
	if !errors.Is(err, forecast.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestFit_LengthMismatch(t *testing.T) {
	t.Parallel()
	dates, _ := makeSeries(10, func(i int) float64 { return 0 })
	if _, err := forecast.Fit(dates, []float64{1, 2}, forecast.DefaultOptions()); err == nil {
		t.Fatal("expected error for mismatched lengths")
	}
}

func TestPredict_ContinuesLinearTrend(t *testing.T) {
	t.Parallel()
	dates, values := makeSeries(200, func(i int) float64 { return 50 + 0.5*float64(i) })
	m, err := forecast.Fit(dates, values, forecast.DefaultOptions())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	points := m.Predict(futureDates(dates[len(dates)-1], 10))
	for i, p := range points {
		want := 50 + 0.5*float64(200+i)
		if math.Abs(p.Value-want) > 5 {
			t.Errorf("day +%d: predicted %.1f, want %.1f +/- 5", i+1, p.Value, want)
		}
	}
}

func TestPredict_RecoversWeeklySeasonality(t *testing.T) {
	t.Parallel()
	dates, values := makeSeries(210, func(i int) float64 {
		return 100 + 20*math.Sin(2*math.Pi*float64(i)/7)
	})
	m, err := forecast.Fit(dates, values, forecast.DefaultOptions())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	points := m.Predict(futureDates(dates[len(dates)-1], 7))
	for i, p := range points {
		want := 100 + 20*math.Sin(2*math.Pi*float64(210+i+1)/7)
		if math.Abs(p.Value-want) > 5 {
			t.Errorf("day +%d: predicted %.1f, want %.1f +/- 5", i+1, p.Value, want)
		}
	}
}

func TestPredict_BoundsBracketValue(t *testing.T) {
	t.Parallel()
	// Deterministic jitter so residual spread is nonzero.
	dates, values := makeSeries(120, func(i int) float64 {
		return 100 + float64((i*37)%11) - 5
	})
	m, err := forecast.Fit(dates, values, forecast.DefaultOptions())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	all := append(append([]time.Time{}, dates...), futureDates(dates[len(dates)-1], 14)...)
	for _, p := range m.Predict(all) {
		if p.Lower > p.Value || p.Value > p.Upper {
			t.Fatalf("%s: bounds [%.1f, %.1f] do not bracket %.1f", p.Date.Format("2006-01-02"), p.Lower, p.Upper, p.Value)
		}
	}
}

func TestPredict_FutureIntervalsWiden(t *testing.T) {
	t.Parallel()
	dates, values := makeSeries(120, func(i int) float64 {
		return 100 + float64((i*37)%11) - 5
	})
	m, err := forecast.Fit(dates, values, forecast.DefaultOptions())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	last := dates[len(dates)-1]
	inSample := m.Predict([]time.Time{last})[0]
	farOut := m.Predict([]time.Time{last.AddDate(0, 0, 60)})[0]

	inWidth := inSample.Upper - inSample.Lower
	outWidth := farOut.Upper - farOut.Lower
	if inWidth <= 0 {
		t.Fatal("expected nonzero in-sample interval width")
	}
	if outWidth <= inWidth {
		t.Errorf("future width %.2f not wider than in-sample width %.2f", outWidth, inWidth)
	}
}

func TestPredict_Deterministic(t *testing.T) {
	t.Parallel()
	dates, values := makeSeries(90, func(i int) float64 {
		return 80 + 10*math.Sin(2*math.Pi*float64(i)/7) + 0.1*float64(i)
	})

	m1, err := forecast.Fit(dates, values, forecast.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	m2, err := forecast.Fit(dates, values, forecast.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	future := futureDates(dates[len(dates)-1], 7)
	p1 := m1.Predict(future)
	p2 := m2.Predict(future)
	for i := range p1 {
		if p1[i] != p2[i] {
			t.Fatalf("prediction %d differs between identical fits: %+v vs %+v", i, p1[i], p2[i])
		}
	}
}

func TestFit_SparseSeriesStillFits(t *testing.T) {
	t.Parallel()
	// Far fewer columns' worth of data than the full feature set; ridge
	// augmentation keeps the solve well posed.
	dates, values := makeSeries(10, func(i int) float64 { return 100 + float64(i) })
	m, err := forecast.Fit(dates, values, forecast.DefaultOptions())
	if err != nil {
		t.Fatalf("Fit on sparse series: %v", err)
	}
	points := m.Predict(futureDates(dates[len(dates)-1], 3))
	for _, p := range points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			t.Fatalf("non-finite prediction %v", p.Value)
		}
	}
}

func TestTrainingRange(t *testing.T) {
	t.Parallel()
	dates, values := makeSeries(30, func(i int) float64 { return 100 })
	m, err := forecast.Fit(dates, values, forecast.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	start, end := m.TrainingRange()
	if !start.Equal(dates[0]) || !end.Equal(dates[len(dates)-1]) {
		t.Errorf("TrainingRange = %v, %v; want %v, %v", start, end, dates[0], dates[len(dates)-1])
	}
}
