package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-isbn-stats/dataset"
	"github.com/aluiziolira/go-isbn-stats/fetcher"
	"github.com/aluiziolira/go-isbn-stats/models"
	"github.com/aluiziolira/go-isbn-stats/pipeline"
	"github.com/aluiziolira/go-isbn-stats/report"
	"github.com/aluiziolira/go-isbn-stats/source"
)

// ingest fetches every input ISBN, writes the dump and prints the run summary.
func (a *app) ingest(ctx context.Context) (*dataset.Store, error) {
	cfg := a.cfg
	isbns, err := source.ReadISBNFile(cfg.InputFile)
	if err != nil {
		return nil, err
	}

	f, err := fetcher.NewFetcher(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialising fetcher: %w", err)
	}
	if a.transport != nil {
		f.WithTransport(a.transport)
	}

	if cfg.MetricsAddr != "" && f.Metrics != nil {
		metricsServer := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(f.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	p, err := pipeline.NewPipeline(f, cfg.DedupeMaxSize, f.Metrics)
	if err != nil {
		return nil, err
	}

	slog.Info("starting ingestion",
		slog.String("input", cfg.InputFile),
		slog.Int("isbns", len(isbns)),
		slog.String("base_url", cfg.BaseURL),
	)

	store, batch, err := p.Run(ctx, isbns)
	if err != nil {
		return nil, fmt.Errorf("ingestion failed: %w", err)
	}

	if err := writeDump(cfg.OutputFormat, cfg.OutputFile, store); err != nil {
		return nil, err
	}

	printSummary(a.stderr, batch, strings.Join(pipeline.DumpPaths(cfg.OutputFormat, cfg.OutputFile), ", "))
	return store, nil
}

func writeDump(format, filename string, store *dataset.Store) (err error) {
	writer, err := pipeline.NewWriter(format, filename)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close writer: %w", closeErr))
		}
	}()

	if err := pipeline.WriteStore(writer, store); err != nil {
		return err
	}
	if store.Len() == 0 {
		slog.Warn("no records to dump", slog.String("output", filename))
		return nil
	}
	if err := writer.Validate(); err != nil {
		return fmt.Errorf("output validation failed: %w", err)
	}
	return nil
}

// runReport answers the questions over a loaded dump or a fresh ingestion.
func (a *app) runReport(ctx context.Context) error {
	var (
		store *dataset.Store
		err   error
	)
	if a.fromDump != "" {
		store, err = pipeline.LoadCSVFile(a.fromDump)
		if err == nil {
			slog.Info("loaded dump", slog.String("path", a.fromDump), slog.Int("records", store.Len()))
		}
	} else {
		store, err = a.ingest(ctx)
	}
	if err != nil {
		return err
	}
	return report.NewReporter(a.stdout).Write(store)
}

func printSummary(w io.Writer, batch *models.BatchReport, outputFile string) {
	separator := "--------------------------------------------------"
	duration := batch.EndTime.Sub(batch.StartTime)

	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Ingestion complete")
	fmt.Fprintf(w, "  ISBNs:         %d\n", batch.TotalCount)
	fmt.Fprintf(w, "  Fetched:       %d\n", batch.FetchedCount)
	fmt.Fprintf(w, "  Dropped:       %d\n", batch.DroppedCount)
	fmt.Fprintf(w, "  Failed:        %d\n", batch.FailedCount)
	fmt.Fprintf(w, "  Duplicates:    %d\n", batch.Duplicates)
	fmt.Fprintf(w, "  Retries:       %d\n", batch.RetryCount)
	if len(batch.ErrorsByType) > 0 {
		fmt.Fprintf(w, "  Error types:   %v\n", batch.ErrorsByType)
	}
	if failed := batch.Failed(); len(failed) > 0 {
		fmt.Fprintf(w, "  Failed ISBNs:  %v\n", failed)
	}
	if skipped := batch.TotalCount - len(batch.Outcomes); skipped > 0 {
		fmt.Fprintf(w, "  Not processed: %d\n", skipped)
	}
	fmt.Fprintf(w, "  Duration:      %v\n", duration)
	fmt.Fprintf(w, "  Output file:   %s\n", outputFile)
	fmt.Fprintln(w, separator)
}
