package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"healthdash/internal/config"
	"healthdash/internal/dashboard"
	"healthdash/internal/export"
	"healthdash/internal/loader"
	"healthdash/internal/logging"
	"healthdash/internal/server"
)

func main() {
	configFile := flag.String("config", "", "YAML config file")
	inputFile := flag.String("file", "", "Input dataset (CSV/TSV, JSON, XLSX or Parquet snapshot)")
	jsonOut := flag.String("json", "", "Write the dashboard as JSON to this path")
	xlsxOut := flag.String("xlsx", "", "Write the dashboard as an XLSX workbook to this path")
	parquetOut := flag.String("parquet", "", "Write the analysis set as a Parquet snapshot to this path")
	pgConn := flag.String("pg", "", "PostgreSQL connection string")
	batchSize := flag.Int("batch", 0, "Postgres COPY batch size (default from config)")
	addr := flag.String("serve", "", "Serve the dashboard API on this address, e.g. :8080")
	logLevel := flag.String("log-level", "", "debug, info, warn or error")
	listPanels := flag.Bool("list-panels", false, "List panel IDs and exit")
	flag.Parse()

	if *listPanels {
		for _, id := range dashboard.PanelIDs() {
			fmt.Println(id)
		}
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "healthdash: %v\n", err)
		os.Exit(2)
	}
	overlay := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	overlay(&cfg.Input.Path, *inputFile)
	overlay(&cfg.Output.JSON, *jsonOut)
	overlay(&cfg.Output.Workbook, *xlsxOut)
	overlay(&cfg.Output.Parquet, *parquetOut)
	overlay(&cfg.Postgres.DSN, *pgConn)
	overlay(&cfg.Server.Addr, *addr)
	overlay(&cfg.Log.Level, *logLevel)
	if *batchSize > 0 {
		cfg.Postgres.BatchSize = *batchSize
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, "healthdash")
	if err != nil {
		fmt.Fprintf(os.Stderr, "healthdash: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("healthdash failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

// run loads the source, builds the dashboard, writes every configured sink
// and optionally serves the result. A source that cannot be loaded aborts
// the run; sink failures are reported together once every sink has run.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	start := time.Now()

	ds, err := loader.Load(cfg.Input.Path, logger.Named("loader"))
	if err != nil {
		return fmt.Errorf("data source unavailable: %w", err)
	}

	d, err := dashboard.Build(ctx, ds, cfg.Dashboard, logger)
	if err != nil {
		return err
	}

	sinkErrs := writeSinks(ctx, cfg, d, logger)
	printSummary(d, time.Since(start))

	if cfg.Server.Addr != "" {
		if err := server.New(d, cfg.Server, logger).Run(ctx); err != nil {
			sinkErrs = append(sinkErrs, err)
		}
	}
	return errors.Join(sinkErrs...)
}

func writeSinks(ctx context.Context, cfg *config.Config, d *dashboard.Dashboard, logger *zap.Logger) []error {
	var errs []error
	sink := func(name, target string, write func() error) {
		if target == "" {
			return
		}
		if err := write(); err != nil {
			logger.Error("sink failed", zap.String("sink", name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s sink: %w", name, err))
			return
		}
		logger.Info("sink written", zap.String("sink", name), zap.String("target", redact(target)))
	}

	sink("json", cfg.Output.JSON, func() error {
		return export.WriteJSON(cfg.Output.JSON, d)
	})
	sink("workbook", cfg.Output.Workbook, func() error {
		return export.WriteWorkbook(cfg.Output.Workbook, d)
	})
	sink("parquet", cfg.Output.Parquet, func() error {
		_, err := export.WriteSnapshot(cfg.Output.Parquet, d.Columns, d.Records)
		return err
	})
	sink("postgres", cfg.Postgres.DSN, func() error {
		_, err := export.LoadPostgres(ctx, cfg.Postgres.DSN, d, cfg.Postgres.BatchSize, logger)
		return err
	})
	return errs
}

// redact hides the password of a connection string.
func redact(target string) string {
	at := strings.LastIndex(target, "@")
	scheme := strings.Index(target, "://")
	if at < 0 || scheme < 0 {
		return target
	}
	creds := target[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return target[:scheme+3] + creds[:colon] + ":***" + target[at:]
	}
	return target
}

func printSummary(d *dashboard.Dashboard, elapsed time.Duration) {
	fmt.Printf("Input:    %s (%s)\n", d.Source, d.Format)
	fmt.Printf("Records:  %d loaded, %d analyzed\n", d.LoadedRecords, d.AnalysisRecords)
	fmt.Printf("Panels:   %d built, %d skipped\n", len(d.Panels), len(d.Skipped))
	for _, s := range d.Skipped {
		fmt.Printf("  skipped %-26s %s\n", s.ID, s.Reason)
	}
	fmt.Printf("Done in %s\n", elapsed.Round(time.Millisecond))
}
