// Package dataset loads and cleans the historical city_day AQI dataset.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lox/aqicast/internal/models"
)

// Column headers resolved from the CSV header row. Extra columns are ignored.
const (
	cityColumn = "City"
	dateColumn = "Date"
	aqiColumn  = "AQI"
)

var dateFormats = []string{"2006-01-02", "2006/01/02", "02-01-2006"}

// Table is the cleaned in-memory observation table, in file order.
type Table struct {
	rows   []models.Observation
	cities []string
}

// Load reads the dataset at path and applies the cleaning pipeline: parse
// dates, forward-fill missing AQI from the previous row of the same city,
// drop rows still missing AQI or city, truncate AQI to integer.
//
// A missing file wraps os.ErrNotExist; any other read or parse failure is a
// generic load error. Callers are expected to treat both as a first-class
// "no data" outcome rather than a fatal condition.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", path, err)
	}
	return t, nil
}

// Read parses and cleans CSV data from r.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cityIdx, dateIdx, aqiIdx := -1, -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case cityColumn:
			cityIdx = i
		case dateColumn:
			dateIdx = i
		case aqiColumn:
			aqiIdx = i
		}
	}
	if cityIdx == -1 || dateIdx == -1 || aqiIdx == -1 {
		return nil, fmt.Errorf("missing required columns (need %s, %s, %s)", cityColumn, dateColumn, aqiColumn)
	}

	var rows []models.Observation
	lastAQI := make(map[string]int) // per-city forward-fill state
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if cityIdx >= len(record) || dateIdx >= len(record) || aqiIdx >= len(record) {
			continue
		}

		city := strings.TrimSpace(record[cityIdx])
		if city == "" {
			continue
		}

		date, err := parseDate(strings.TrimSpace(record[dateIdx]))
		if err != nil {
			continue
		}

		aqi, ok := parseAQI(strings.TrimSpace(record[aqiIdx]))
		if !ok {
			// Forward-fill from the same city's previous row only. Filling
			// across city boundaries leaks one city's reading into another.
			prev, filled := lastAQI[city]
			if !filled {
				continue
			}
			aqi = prev
		}
		lastAQI[city] = aqi

		rows = append(rows, models.Observation{City: city, Date: date, AQI: aqi})
	}

	t := &Table{rows: rows}
	seen := make(map[string]bool)
	for _, row := range rows {
		if !seen[row.City] {
			seen[row.City] = true
			t.cities = append(t.cities, row.City)
		}
	}
	sort.Strings(t.cities)
	return t, nil
}

func parseDate(s string) (time.Time, error) {
	var err error
	for _, format := range dateFormats {
		var d time.Time
		if d, err = time.Parse(format, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, err
}

func parseAQI(s string) (int, bool) {
	if s == "" || s == "NA" || s == "NaN" || s == "null" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// Len returns the number of cleaned rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Cities returns the distinct city names, sorted lexicographically.
func (t *Table) Cities() []string {
	out := make([]string, len(t.cities))
	copy(out, t.cities)
	return out
}

// City returns the (date, AQI) series for one city, in file order.
func (t *Table) City(name string) (dates []time.Time, values []float64) {
	for _, row := range t.rows {
		if row.City == name {
			dates = append(dates, row.Date)
			values = append(values, float64(row.AQI))
		}
	}
	return dates, values
}

// LatestAQI returns the last recorded AQI for a city, false if the city has
// no rows.
func (t *Table) LatestAQI(name string) (int, bool) {
	for i := len(t.rows) - 1; i >= 0; i-- {
		if t.rows[i].City == name {
			return t.rows[i].AQI, true
		}
	}
	return 0, false
}
