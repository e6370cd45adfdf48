// Command pricewatch reads a list of stock symbols, resolves the current
// price of each from the configured quote pages, and writes the results to
// a spreadsheet.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/use-agent/pricewatch/config"
	"github.com/use-agent/pricewatch/engine"
	"github.com/use-agent/pricewatch/models"
	"github.com/use-agent/pricewatch/provider"
	"github.com/use-agent/pricewatch/scraper"
	"github.com/use-agent/pricewatch/session"
	"github.com/use-agent/pricewatch/sink"
	"github.com/use-agent/pricewatch/symbols"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)

	providers := provider.Defaults()
	if err := provider.Validate(providers); err != nil {
		slog.Error("invalid provider table", "error", err)
		os.Exit(2)
	}

	// A run is not cancellable; it ends on completion or process exit.
	// Per-symbol and sink failures are reported, never fatal.
	_ = run(context.Background(), os.Stdout, cfg, providers, scraper.NewFactory(cfg.Browser))
}

// run executes one batch: read symbols, resolve them over one session,
// write the spreadsheet. Messages meant for the operator go to out.
func run(ctx context.Context, out io.Writer, cfg *config.Config, providers []provider.Provider, acquire session.Factory) []models.Quote {
	list, err := symbols.Load(cfg.Input.Path)
	if err != nil {
		slog.Error("error reading symbol file", "path", cfg.Input.Path, "error", err)
		fmt.Fprintf(out, "Please ensure the symbol file '%s' exists with stock symbols.\n", cfg.Input.Path)
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No stock symbols found in input file!")
		return nil
	}

	slog.Info("pricewatch starting",
		"symbols", len(list),
		"engine", cfg.Browser.Engine,
		"providers", provider.Names(providers),
	)

	resolver := engine.NewResolver(providers, engine.Timing{
		Settle:     cfg.Timing.Settle,
		Probe:      cfg.Timing.Probe,
		Politeness: cfg.Timing.Politeness,
	})
	runner := engine.NewRunner(acquire, resolver)
	runner.OnQuote = func(_ int, q models.Quote) {
		fmt.Fprintf(out, "Fetched data for: %s - Price: ₹%s\n", q.Symbol, q.Price)
	}

	quotes, err := runner.Run(ctx, list)
	if err != nil {
		slog.Error("an error occurred", "error", err)
		var pe *models.PriceError
		if errors.As(err, &pe) {
			fmt.Fprintf(out, "Could not start the browser: %s\n", pe.Message)
		}
		return nil
	}

	if err := sink.WriteXLSX(cfg.Output.Path, quotes); err != nil {
		slog.Error("error writing to Excel file", "path", cfg.Output.Path, "error", err)
		return quotes
	}
	fmt.Fprintf(out, "\nStock price data has been written to: %s\n", cfg.Output.Path)
	return quotes
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
