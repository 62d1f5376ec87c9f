package engine_test

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lox/aqicast/internal/dataset"
	"github.com/lox/aqicast/internal/engine"
	"github.com/lox/aqicast/internal/forecast"
)

// syntheticTable builds a cleaned table with one daily series per city.
func syntheticTable(t *testing.T, days int, cities map[string]func(i int) int) *dataset.Table {
	t.Helper()
	var b strings.Builder
	b.WriteString("City,Date,AQI\n")
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	for city, f := range cities {
		for i := 0; i < days; i++ {
			fmt.Fprintf(&b, "%s,%s,%d\n", city, start.AddDate(0, 0, i).Format("2006-01-02"), f(i))
		}
	}
	table, err := dataset.Read(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	return table
}

func oscillating(i int) int {
	// 50 to 150 over a yearly cycle with a weekly wobble.
	return 100 + int(40*math.Sin(2*math.Pi*float64(i)/365)+10*math.Sin(2*math.Pi*float64(i)/7))
}

func TestTrain_Memoized(t *testing.T) {
	t.Parallel()
	table := syntheticTable(t, 100, map[string]func(int) int{"TestCity": oscillating})
	eng := engine.NewFromTable(table, forecast.DefaultOptions())

	m1, err := eng.Train("TestCity")
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	m2, err := eng.Train("TestCity")
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if m1 != m2 {
		t.Error("expected second Train to return the identical cached model")
	}
}

func TestTrain_UnknownCity(t *testing.T) {
	t.Parallel()
	table := syntheticTable(t, 30, map[string]func(int) int{"TestCity": oscillating})
	eng := engine.NewFromTable(table, forecast.DefaultOptions())

	if _, err := eng.Train("Atlantis"); !errors.Is(err, engine.ErrUnknownCity) {
		t.Fatalf("expected ErrUnknownCity, got %v", err)
	}
}

func TestForecast_Length(t *testing.T) {
	t.Parallel()
	const days = 120
	table := syntheticTable(t, days, map[string]func(int) int{"TestCity": oscillating})
	eng := engine.NewFromTable(table, forecast.DefaultOptions())

	for _, periods := range []int{7, 30, 90} {
		series, err := eng.Forecast("TestCity", periods)
		if err != nil {
			t.Fatalf("Forecast(%d): %v", periods, err)
		}
		if len(series) != days+periods {
			t.Errorf("Forecast(%d) length = %d, want %d", periods, len(series), days+periods)
		}
	}
}

func TestForecast_EndToEnd(t *testing.T) {
	t.Parallel()
	const days = 3 * 365
	table := syntheticTable(t, days, map[string]func(int) int{"TestCity": oscillating})
	eng := engine.NewFromTable(table, forecast.DefaultOptions())

	series, err := eng.Forecast("TestCity", 7)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(series) != days+7 {
		t.Fatalf("length = %d, want %d", len(series), days+7)
	}

	lastHist := series[days-1].Date
	prev := lastHist
	for i, p := range series[days:] {
		if !p.Date.After(lastHist) {
			t.Errorf("future row %d dated %s, not after last historical %s", i, p.Date, lastHist)
		}
		if i > 0 && p.Date.Sub(prev) != 24*time.Hour {
			t.Errorf("future dates not consecutive at row %d", i)
		}
		prev = p.Date
	}

	for _, p := range series {
		if p.AQI < 0 || p.AQI > 300 {
			t.Errorf("%s: predicted AQI %d outside sanity bound [0, 300]", p.Date.Format("2006-01-02"), p.AQI)
		}
		if p.Lower > p.AQI || p.AQI > p.Upper {
			t.Errorf("%s: bounds [%d, %d] do not bracket %d", p.Date.Format("2006-01-02"), p.Lower, p.Upper, p.AQI)
		}
	}
}

func TestForecast_SparseCityDegradesGracefully(t *testing.T) {
	t.Parallel()
	// Well under two years of data: advisory warning only, never a failure.
	table := syntheticTable(t, 60, map[string]func(int) int{"SmallTown": oscillating})
	eng := engine.NewFromTable(table, forecast.DefaultOptions())

	series, err := eng.Forecast("SmallTown", 14)
	if err != nil {
		t.Fatalf("Forecast on sparse city: %v", err)
	}
	if len(series) != 60+14 {
		t.Errorf("length = %d, want %d", len(series), 74)
	}
}

func TestEngine_NoData(t *testing.T) {
	t.Parallel()
	eng := engine.New(filepath.Join(t.TempDir(), "missing.csv"), forecast.DefaultOptions())

	if eng.Loaded() {
		t.Error("expected engine without data")
	}
	if cities := eng.Cities(); len(cities) != 0 {
		t.Errorf("Cities = %v, want empty", cities)
	}
	if _, err := eng.Forecast("Delhi", 7); !errors.Is(err, engine.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestCities_Sorted(t *testing.T) {
	t.Parallel()
	table := syntheticTable(t, 10, map[string]func(int) int{
		"Mumbai":    oscillating,
		"Delhi":     oscillating,
		"Bengaluru": oscillating,
	})
	eng := engine.NewFromTable(table, forecast.DefaultOptions())

	cities := eng.Cities()
	want := []string{"Bengaluru", "Delhi", "Mumbai"}
	if len(cities) != len(want) {
		t.Fatalf("Cities = %v, want %v", cities, want)
	}
	for i := range want {
		if cities[i] != want[i] {
			t.Fatalf("Cities = %v, want %v", cities, want)
		}
	}
}
