// Package api serves the forecast dashboard and JSON endpoints.
package api

import (
	"context"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/aqicast/internal/advisory"
	"github.com/lox/aqicast/internal/engine"
)

// Forecast horizon bounds, matching the dashboard selector.
const (
	MinHorizonDays     = 7
	MaxHorizonDays     = 90
	HorizonStepDays    = 7
	DefaultHorizonDays = 30
)

type Server struct {
	engine   *engine.Engine
	port     string
	tmpl     *template.Template
	advisory *advisory.Generator
}

func NewServer(eng *engine.Engine, port string) *Server {
	// Advisory generation is optional and needs an API key.
	var gen *advisory.Generator
	if g, err := advisory.NewGenerator(); err != nil {
		log.Printf("advisory generation disabled: %v", err)
	} else {
		gen = g
	}

	return &Server{
		engine:   eng,
		port:     port,
		tmpl:     newTemplates(),
		advisory: gen,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/chart.png", s.handleChart)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/cities", s.handleAPICities)
	mux.HandleFunc("/api/forecast", s.handleAPIForecast)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// clampHorizon bounds the requested horizon to the selector's range.
func clampHorizon(days int) int {
	if days < MinHorizonDays {
		return MinHorizonDays
	}
	if days > MaxHorizonDays {
		return MaxHorizonDays
	}
	return days
}

// horizonOptions returns the selectable horizons: 7 through 90 in steps of 7.
func horizonOptions() []int {
	var opts []int
	for d := MinHorizonDays; d <= MaxHorizonDays; d += HorizonStepDays {
		opts = append(opts, d)
	}
	return opts
}
