package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-book-harvester/config"
	"github.com/aluiziolira/go-book-harvester/models"
	"github.com/aluiziolira/go-book-harvester/parser"
	"github.com/aluiziolira/go-book-harvester/pipeline"
	"github.com/aluiziolira/go-book-harvester/scraper"
)

// harvest runs the batch over refs and writes the export file. Item failures
// are reported in the summary; only setup and export failures return an error.
func harvest(ctx context.Context, cfg *config.Config, refs []models.ItemReference, metrics *scraper.Metrics) error {
	slog.Info("starting harvest",
		slog.Int("books", len(refs)),
		slog.Int("workers", cfg.Workers),
		slog.Bool("skip_txt", cfg.SkipText),
		slog.Bool("skip_imgs", cfg.SkipImages),
	)
	slog.Debug("book ids", slog.Any("ids", refIDs(refs)))

	if err := pipeline.PrepareDirs(cfg.BooksPath(), cfg.ImagesPath(), filepath.Dir(cfg.OutputFile)); err != nil {
		slog.Error("preparing output directories", slog.Any("error", err))
		return err
	}

	metricsServer := startMetricsServer(cfg.MetricsAddr, metrics)
	defer stopMetricsServer(metricsServer)

	fetcher := scraper.NewFetcher(cfg, metrics)
	downloader := scraper.NewDownloader(fetcher, parser.NewNamer(cfg.Naming), metrics)
	proc := scraper.NewProcessor(fetcher, parser.DefaultExtractor(), downloader, metrics, cfg.BooksPath(), cfg.ImagesPath())

	p := pipeline.NewPipeline(proc, pipeline.Options{
		SkipText:   cfg.SkipText,
		SkipImages: cfg.SkipImages,
		Workers:    cfg.Workers,
	})
	result := p.Run(ctx, refs)

	if err := pipeline.Export(result, cfg.OutputFile, cfg.OutputFormat); err != nil {
		slog.Error("export failed", slog.Any("error", err))
		return err
	}

	summary := models.RunSummary{
		Requested:    len(refs),
		Succeeded:    result.Len(),
		Failed:       len(result.Failed),
		Partial:      result.Partial,
		ErrorsByType: result.FailuresByKind(),
		Duration:     result.EndTime.Sub(result.StartTime),
		OutputFile:   cfg.OutputFile,
	}
	printSummary(summary)
	return nil
}

func startMetricsServer(addr string, metrics *scraper.Metrics) *http.Server {
	if addr == "" || metrics == nil {
		return nil
	}
	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func stopMetricsServer(server *http.Server) {
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}

func printSummary(s models.RunSummary) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Harvest complete")

	fmt.Printf("  Requested:     %d\n", s.Requested)
	fmt.Printf("  Collected:     %d\n", s.Succeeded)
	fmt.Printf("  Skipped:       %d\n", s.Failed)
	fmt.Printf("  Partial:       %d\n", s.Partial)
	if len(s.ErrorsByType) > 0 {
		kinds := make([]string, 0, len(s.ErrorsByType))
		for kind := range s.ErrorsByType {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Printf("    %-14s %d\n", kind+":", s.ErrorsByType[kind])
		}
	}
	itemsPerSec := 0.0
	if s.Duration.Seconds() > 0 {
		itemsPerSec = float64(s.Succeeded) / s.Duration.Seconds()
	}
	fmt.Printf("  Duration:      %v\n", s.Duration.Round(time.Millisecond))
	fmt.Printf("  Items/sec:     %.2f\n", itemsPerSec)
	fmt.Printf("  Output file:   %s\n", s.OutputFile)
	fmt.Println(separator)
}
