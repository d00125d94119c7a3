// Package fetcher looks up catalog records one ISBN at a time.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aluiziolira/go-isbn-stats/config"
	"github.com/aluiziolira/go-isbn-stats/models"
	"github.com/gocolly/colly/v2"
)

const attemptKey = "attempt"

// Result is the outcome of looking up one ISBN. Exactly one of Record and
// Err is set.
type Result struct {
	ISBN       string
	URL        string
	Record     models.RawRecord
	StatusCode int
	Attempts   int
	Err        error
}

// Fetcher wraps a synchronous colly collector: each Fetch blocks until the
// lookup (and any retries) finished.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	Metrics   *Metrics
}

// attempt carries one request's response through the collector callbacks.
type attempt struct {
	status int
	body   []byte
	err    error
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config) (*Fetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("fetcher config: %w", err)
	}

	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: cfg.Timeout,
	})

	f := &Fetcher{
		cfg:       cfg,
		collector: collector,
		Metrics:   NewMetrics(),
	}
	f.configureHandlers()
	return f, nil
}

// WithTransport replaces the HTTP transport, e.g. with a mock in tests.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

func (f *Fetcher) configureHandlers() {
	f.collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "application/json")
	})

	f.collector.OnResponse(func(r *colly.Response) {
		if state, ok := r.Ctx.GetAny(attemptKey).(*attempt); ok {
			state.status = r.StatusCode
			state.body = r.Body
		}
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Ctx == nil {
			return
		}
		if state, ok := r.Ctx.GetAny(attemptKey).(*attempt); ok {
			state.status = r.StatusCode
			state.err = err
		}
	})
}

// Fetch looks up isbn. Transport failures are retried up to cfg.MaxRetries
// times with exponential backoff; response errors are not retried. Fetch
// never panics on bad input and always returns a Result.
func (f *Fetcher) Fetch(ctx context.Context, isbn string) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	var res Result
	for try := 0; ; try++ {
		res = f.fetchOnce(isbn)
		res.Attempts = try + 1
		if res.Err == nil {
			f.Metrics.IncRequest("success")
			return res
		}

		f.Metrics.IncRequest("failure")
		f.Metrics.IncError(ErrorTypeLabel(res.Err))
		if !retryable(res.Err) || try >= f.cfg.MaxRetries {
			return res
		}

		delay := f.backoff(try + 1)
		slog.Debug("retrying lookup",
			slog.String("isbn", isbn),
			slog.Int("attempt", try+1),
			slog.Duration("delay", delay),
			slog.Any("error", res.Err),
		)
		f.Metrics.IncRetries()
		if err := wait(ctx, delay); err != nil {
			return res
		}
	}
}

func (f *Fetcher) fetchOnce(isbn string) Result {
	res := Result{ISBN: isbn, URL: f.cfg.LookupURL(isbn)}

	state := &attempt{}
	reqCtx := colly.NewContext()
	reqCtx.Put(attemptKey, state)

	start := time.Now()
	err := f.collector.Request(http.MethodGet, res.URL, nil, reqCtx, nil)
	f.Metrics.ObserveDuration(time.Since(start))

	res.StatusCode = state.status
	if state.err != nil {
		err = state.err
	}
	if err != nil || state.status >= http.StatusMultipleChoices {
		res.Err = classifyError(err, state.status)
		return res
	}

	record, err := decodeRecord(state.body, isbn)
	if err != nil {
		res.Err = err
		return res
	}
	res.Record = record
	return res
}

// decodeRecord accepts either the record itself or the books-API wrapper
// {"ISBN:<isbn>": {...}}, and tags the record with the ISBN it was fetched for.
func decodeRecord(body []byte, isbn string) (models.RawRecord, error) {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, ErrDecode{Err: err}
	}
	if obj == nil {
		return nil, ErrDecode{Err: errors.New("response is not a JSON object")}
	}
	if len(obj) == 0 {
		return nil, ErrNotFound{Err: errors.New("empty response object")}
	}

	if inner, ok := bibKeyRecord(obj, isbn); ok {
		obj = inner
	}

	record := models.RawRecord(obj)
	record["isbn"] = isbn
	return record, nil
}

func bibKeyRecord(obj map[string]any, isbn string) (map[string]any, bool) {
	if inner, ok := obj["ISBN:"+isbn].(map[string]any); ok {
		return inner, true
	}
	if len(obj) != 1 {
		return nil, false
	}
	for key, value := range obj {
		if inner, ok := value.(map[string]any); ok && strings.HasPrefix(key, "ISBN:") {
			return inner, true
		}
	}
	return nil, false
}

func (f *Fetcher) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := f.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := f.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
