package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/lox/aqicast/internal/api"
	"github.com/lox/aqicast/internal/dataset"
	"github.com/lox/aqicast/internal/engine"
	"github.com/lox/aqicast/internal/forecast"
)

type CLI struct {
	Data string `help:"Path to the historical city_day.csv dataset." default:"data/city_day.csv" env:"AQICAST_DATA"`

	Serve    ServeCmd    `cmd:"" default:"1" help:"Run the forecast dashboard server."`
	Forecast ForecastCmd `cmd:"" help:"Print a forecast for one city and exit."`
	Fetch    FetchCmd    `cmd:"" help:"Download the dataset to the data path."`
}

type ServeCmd struct {
	Port string `help:"HTTP server port." default:"8080" env:"PORT"`
	Warm string `help:"City to pre-train at startup so the first request is fast." default:"Delhi"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	eng := engine.New(cli.Data, forecast.DefaultOptions())

	if c.Warm != "" && eng.Loaded() {
		if _, err := eng.Train(c.Warm); err != nil {
			log.Printf("pre-train %s: %v", c.Warm, err)
		}
	}

	server := api.NewServer(eng, c.Port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("starting server on :%s", c.Port)
	return server.Run(ctx)
}

type ForecastCmd struct {
	City string `help:"City to forecast." required:""`
	Days int    `help:"Forecast horizon in days." default:"30"`
}

func (c *ForecastCmd) Run(cli *CLI) error {
	eng := engine.New(cli.Data, forecast.DefaultOptions())

	series, err := eng.Forecast(c.City, c.Days)
	if err != nil {
		return fmt.Errorf("forecast %s: %w", c.City, err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tPREDICTED AQI\tLOWER\tUPPER")
	for _, p := range series[len(series)-c.Days:] {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", p.Date.Format("2006-01-02"), p.AQI, p.Lower, p.Upper)
	}
	return w.Flush()
}

type FetchCmd struct {
	URL string `help:"Dataset source URL (http, https or ftp)." required:""`
}

func (c *FetchCmd) Run(cli *CLI) error {
	if err := dataset.NewFetcher().Fetch(c.URL, cli.Data); err != nil {
		return fmt.Errorf("fetch dataset: %w", err)
	}
	log.Printf("dataset written to %s", cli.Data)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("aqicast"),
		kong.Description("AQI forecasting dashboard for Indian cities."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
