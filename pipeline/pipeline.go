// Package pipeline runs the sequential fetch, normalize and store pass and
// persists the resulting dataset.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-isbn-stats/dataset"
	"github.com/aluiziolira/go-isbn-stats/fetcher"
	"github.com/aluiziolira/go-isbn-stats/models"
	"github.com/aluiziolira/go-isbn-stats/normalizer"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrNoISBNs is returned when the batch has nothing to look up.
	ErrNoISBNs = errors.New("pipeline: no isbns to fetch")
)

// RecordFetcher looks up one ISBN.
type RecordFetcher interface {
	Fetch(ctx context.Context, isbn string) fetcher.Result
}

// Pipeline fetches ISBNs one after another, normalizes each response and
// appends the kept records to a fresh dataset.Store.
type Pipeline struct {
	fetcher RecordFetcher
	metrics *fetcher.Metrics
	seen    *lru.Cache[string, struct{}]
}

// NewPipeline builds a pipeline. dedupeSize bounds how many distinct ISBNs
// are remembered for skipping repeats; metrics may be nil.
func NewPipeline(f RecordFetcher, dedupeSize int, metrics *fetcher.Metrics) (*Pipeline, error) {
	if dedupeSize <= 0 {
		dedupeSize = 1
	}
	seen, err := lru.New[string, struct{}](dedupeSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	return &Pipeline{
		fetcher: f,
		metrics: metrics,
		seen:    seen,
	}, nil
}

// Run processes isbns in order. A failed or dropped item never stops the
// batch; every item gets an Outcome in the report. Cancelling ctx stops the
// batch before the next lookup and keeps what was already stored.
func (p *Pipeline) Run(ctx context.Context, isbns []string) (*dataset.Store, *models.BatchReport, error) {
	if len(isbns) == 0 {
		return nil, nil, ErrNoISBNs
	}
	if ctx == nil {
		ctx = context.Background()
	}

	store := &dataset.Store{}
	report := models.NewBatchReport(len(isbns))

	for i, isbn := range isbns {
		if err := ctx.Err(); err != nil {
			slog.Warn("batch interrupted",
				slog.Int("processed", i),
				slog.Int("total", len(isbns)),
				slog.Any("error", err),
			)
			break
		}

		outcome := p.process(ctx, store, isbn, i+1, len(isbns))
		report.Record(outcome)
	}

	report.EndTime = time.Now()
	return store, report, nil
}

func (p *Pipeline) process(ctx context.Context, store *dataset.Store, isbn string, position, total int) models.Outcome {
	outcome := models.Outcome{ISBN: isbn, Position: position}

	if p.seen.Contains(isbn) {
		outcome.Status = models.StatusDuplicate
		slog.Debug("skipping repeated isbn", slog.String("isbn", isbn), slog.Int("position", position))
		return outcome
	}
	p.seen.Add(isbn, struct{}{})

	res := p.fetcher.Fetch(ctx, isbn)
	outcome.StatusCode = res.StatusCode
	outcome.Attempts = res.Attempts
	if res.Err != nil {
		outcome.Err = res.Err
		outcome.ErrorType = fetcher.ErrorTypeLabel(res.Err)
		outcome.Status = models.StatusFailed
		if fetcher.IsNotFound(res.Err) {
			outcome.Status = models.StatusNotFound
		}
		slog.Error("lookup failed",
			slog.Int("position", position),
			slog.Int("total", total),
			slog.String("isbn", isbn),
			slog.Int("status", res.StatusCode),
			slog.String("category", outcome.ErrorType),
			slog.Any("error", res.Err),
		)
		return outcome
	}

	book, err := normalizer.Normalize(res.Record, isbn)
	if err == nil {
		err = store.Append(book)
	}
	if err != nil {
		outcome.Status = models.StatusDropped
		outcome.Err = err
		p.metrics.IncRecord("dropped")
		slog.Warn("record dropped",
			slog.Int("position", position),
			slog.Int("total", total),
			slog.String("isbn", isbn),
			slog.Any("error", err),
		)
		return outcome
	}

	outcome.Status = models.StatusFetched
	p.metrics.IncRecord("kept")
	slog.Info("record fetched",
		slog.Int("position", position),
		slog.Int("total", total),
		slog.String("isbn", isbn),
		slog.String("title", book.Title),
	)
	return outcome
}
