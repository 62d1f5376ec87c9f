package models

import "time"

// Observation is one daily AQI reading for a city.
type Observation struct {
	City string    `json:"city"`
	Date time.Time `json:"date"`
	AQI  int       `json:"aqi"`
}

// ForecastPoint is one row of a forecast series. Values are rounded to
// integers before they leave the engine.
type ForecastPoint struct {
	Date  time.Time `json:"date"`
	AQI   int       `json:"aqi"`
	Lower int       `json:"lower"`
	Upper int       `json:"upper"`
}
