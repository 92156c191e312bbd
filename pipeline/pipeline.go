package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aluiziolira/go-book-harvester/models"
	"github.com/aluiziolira/go-book-harvester/scraper"
)

// ItemProcessor runs a single item through the acquisition steps.
type ItemProcessor interface {
	Process(ctx context.Context, ref models.ItemReference, opts scraper.Options) scraper.ItemResult
}

// Options configure a batch run.
type Options struct {
	SkipText   bool
	SkipImages bool
	// Workers bounds concurrent items. Values below 2 process items one at a time.
	Workers int
}

// Pipeline drives a batch of item references through an ItemProcessor and
// collects the successful records in input order.
type Pipeline struct {
	proc    ItemProcessor
	opts    Options
	metrics metrics
}

// NewPipeline builds a pipeline around proc.
func NewPipeline(proc ItemProcessor, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Pipeline{
		proc:    proc,
		opts:    opts,
		metrics: newMetrics(),
	}
}

// Run processes refs and returns the collected records. Failed items are
// logged and listed in the result; they never abort the batch. Once ctx is
// done no further items are started.
func (p *Pipeline) Run(ctx context.Context, refs []models.ItemReference) *models.BatchResult {
	if ctx == nil {
		ctx = context.Background()
	}
	result := &models.BatchResult{
		Books:     make([]*models.Book, 0, len(refs)),
		StartTime: time.Now(),
	}

	var results []*scraper.ItemResult
	if p.opts.Workers > 1 {
		results = p.runConcurrent(ctx, refs)
	} else {
		results = p.runSequential(ctx, refs)
	}

	for _, res := range results {
		if res == nil {
			continue
		}
		p.collect(result, res)
	}

	result.EndTime = time.Now()
	if err := ctx.Err(); err != nil {
		slog.Warn("batch interrupted",
			slog.Int("requested", len(refs)),
			slog.Int("collected", len(result.Books)),
			slog.Any("error", err),
		)
	}
	return result
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

func (p *Pipeline) runSequential(ctx context.Context, refs []models.ItemReference) []*scraper.ItemResult {
	results := make([]*scraper.ItemResult, len(refs))
	for i, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		res := p.proc.Process(ctx, ref, p.scraperOptions())
		results[i] = &res
	}
	return results
}

// runConcurrent slots each result by its input index so the caller sees
// input order regardless of completion order.
func (p *Pipeline) runConcurrent(ctx context.Context, refs []models.ItemReference) []*scraper.ItemResult {
	results := make([]*scraper.ItemResult, len(refs))

	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res := p.proc.Process(ctx, ref, p.scraperOptions())
			results[i] = &res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Pipeline) collect(result *models.BatchResult, res *scraper.ItemResult) {
	if res.State == scraper.StateFailed || res.Book == nil {
		kind := scraper.ErrorLabel(res.Err)
		reason := "no record produced"
		if res.Err != nil {
			reason = res.Err.Error()
		}
		slog.Warn("item failed",
			slog.Int("id", res.Ref.ID()),
			slog.String("state", res.FailedIn.String()),
			slog.String("kind", kind),
			slog.String("error", reason),
		)
		result.Failed = append(result.Failed, models.FailedItem{
			ID:     res.Ref.ID(),
			URL:    res.Ref.PageURL(),
			State:  res.FailedIn.String(),
			Kind:   kind,
			Reason: reason,
		})
		p.metrics.addFailure(kind)
		return
	}

	if res.Partial {
		result.Partial++
		p.metrics.incrementPartial()
	}
	result.Books = append(result.Books, res.Book)
	p.metrics.incrementProcessed()
}

func (p *Pipeline) scraperOptions() scraper.Options {
	return scraper.Options{SkipText: p.opts.SkipText, SkipImages: p.opts.SkipImages}
}

type metrics struct {
	mu        sync.Mutex
	processed int64
	partial   int64
	failed    int64
	failures  map[string]int
}

func newMetrics() metrics {
	return metrics{
		failures: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) incrementPartial() {
	m.mu.Lock()
	m.partial++
	m.mu.Unlock()
}

func (m *metrics) addFailure(kind string) {
	m.mu.Lock()
	m.failed++
	m.failures[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyFailures := make(map[string]int, len(m.failures))
	for k, v := range m.failures {
		copyFailures[k] = v
	}

	return map[string]interface{}{
		"processed_books":  m.processed,
		"partial_books":    m.partial,
		"failed_items":     m.failed,
		"failures_by_kind": copyFailures,
	}
}
