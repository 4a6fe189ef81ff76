// Command analyze-orientations estimates sensor orientation errors for every
// station in a waveform archive by sweeping trial back-azimuth corrections
// and fitting the arrival-strength response.
//
// Usage:
//
//	analyze-orientations [-dest-file estimates.json] \
//	  [-save-plots-path figures/] [-config options.yaml] <archive>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RichardScottOZ/hiperseis/internal/config"
	"github.com/RichardScottOZ/hiperseis/internal/observability"
	"github.com/RichardScottOZ/hiperseis/internal/orient"
	"github.com/RichardScottOZ/hiperseis/internal/plot"
	"github.com/RichardScottOZ/hiperseis/internal/rf"
	"github.com/RichardScottOZ/hiperseis/internal/seis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	destFile := flag.String("dest-file", "orientation_estimates.json", "output JSON path for the estimates")
	plotsPath := flag.String("save-plots-path", "", "directory for per-station diagnostic figures (disabled when empty)")
	optionsFile := flag.String("config", "", "YAML analysis options file (defaults used when empty)")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return fmt.Errorf("expected exactly one archive argument, got %d", flag.NArg())
	}
	archive := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	opts := config.DefaultAnalysisOptions()
	if *optionsFile != "" {
		opts, err = config.LoadAnalysisOptions(*optionsFile)
		if err != nil {
			return fmt.Errorf("loading analysis options: %w", err)
		}
	}

	ds, err := seis.LoadArchive(archive)
	if err != nil {
		return fmt.Errorf("loading archive: %w", err)
	}
	logger.Info("archive loaded", "path", archive, "network", ds.Network, "events", ds.Len())

	var plotter orient.Plotter
	if *plotsPath != "" {
		renderer, err := plot.NewRenderer(*plotsPath)
		if err != nil {
			return err
		}
		plotter = renderer
	}

	transformer := rf.NewProcessingTransformer(opts.Filtering, opts.Processing)
	analyzer := orient.NewAnalyzer(opts, transformer, cfg.Workers, logger, metrics, plotter)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := analyzer.Run(ctx, ds)
	if err != nil {
		return fmt.Errorf("analysis: %w", err)
	}

	if err := results.WriteFile(*destFile); err != nil {
		return err
	}
	logger.Info("estimates written", "path", *destFile, "stations", len(results))
	return nil
}
