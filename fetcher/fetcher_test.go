package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/aluiziolira/go-isbn-stats/config"
	"github.com/jarcoal/httpmock"
)

const testBaseURL = "http://catalog.test/isbn/{isbn}.json"

func newTestFetcher(t *testing.T, mutate func(*config.Config)) (*Fetcher, *httpmock.MockTransport) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BaseURL = testBaseURL
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 2 * time.Millisecond
	if mutate != nil {
		mutate(cfg)
	}

	f, err := NewFetcher(cfg)
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	transport := httpmock.NewMockTransport()
	f.WithTransport(transport)
	return f, transport
}

func lookupURL(isbn string) string {
	return fmt.Sprintf("http://catalog.test/isbn/%s.json", isbn)
}

func jsonResponder(status int, body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(status, body)
	resp.Header.Set("Content-Type", "application/json")
	return httpmock.ResponderFromResponse(resp)
}

func TestFetchEditionRecord(t *testing.T) {
	f, transport := newTestFetcher(t, nil)
	transport.RegisterResponder("GET", lookupURL("9780140328721"),
		jsonResponder(200, `{"title": "Fantastic Mr. Fox", "number_of_pages": 96, "publishers": ["Puffin"]}`))

	res := f.Fetch(context.Background(), "9780140328721")
	if res.Err != nil {
		t.Fatalf("fetch: %v", res.Err)
	}
	if res.StatusCode != 200 || res.Attempts != 1 {
		t.Fatalf("status=%d attempts=%d, want 200/1", res.StatusCode, res.Attempts)
	}
	if res.Record["title"] != "Fantastic Mr. Fox" {
		t.Fatalf("title = %v", res.Record["title"])
	}
	if res.Record["isbn"] != "9780140328721" {
		t.Fatalf("record should carry the lookup isbn, got %v", res.Record["isbn"])
	}
}

func TestFetchUnwrapsBooksAPIResponse(t *testing.T) {
	f, transport := newTestFetcher(t, nil)
	transport.RegisterResponder("GET", lookupURL("0306406152"),
		jsonResponder(200, `{"ISBN:0306406152": {"title": "Wrapped", "authors": [{"name": "A"}]}}`))

	res := f.Fetch(context.Background(), "0306406152")
	if res.Err != nil {
		t.Fatalf("fetch: %v", res.Err)
	}
	if res.Record["title"] != "Wrapped" {
		t.Fatalf("expected unwrapped record, got %v", res.Record)
	}
}

func TestFetchClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
		expected  string
		notFound  bool
	}{
		{name: "not found", responder: jsonResponder(404, `{"error": "notfound"}`), expected: "not_found", notFound: true},
		{name: "server error", responder: jsonResponder(500, ``), expected: "status", notFound: true},
		{name: "rate limited", responder: jsonResponder(429, ``), expected: "rate_limited", notFound: true},
		{name: "empty object", responder: jsonResponder(200, `{}`), expected: "not_found", notFound: true},
		{name: "invalid json", responder: jsonResponder(200, `<html></html>`), expected: "decode"},
		{name: "json array", responder: jsonResponder(200, `[1, 2]`), expected: "decode"},
		{name: "timeout", responder: httpmock.NewErrorResponder(context.DeadlineExceeded), expected: "timeout"},
		{
			name:      "connection",
			responder: httpmock.NewErrorResponder(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}),
			expected:  "connection",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, transport := newTestFetcher(t, nil)
			transport.RegisterResponder("GET", lookupURL("1"), tt.responder)

			res := f.Fetch(context.Background(), "1")
			if res.Err == nil {
				t.Fatalf("expected error, got record %v", res.Record)
			}
			if res.Record != nil {
				t.Fatalf("failed fetch must not carry a record")
			}
			if got := ErrorTypeLabel(res.Err); got != tt.expected {
				t.Fatalf("label = %q, want %q (err=%v)", got, tt.expected, res.Err)
			}
			if got := IsNotFound(res.Err); got != tt.notFound {
				t.Fatalf("IsNotFound = %v, want %v", got, tt.notFound)
			}
		})
	}
}

func TestFetchRetriesTransportFailures(t *testing.T) {
	f, transport := newTestFetcher(t, func(cfg *config.Config) {
		cfg.MaxRetries = 2
	})

	calls := 0
	transport.RegisterResponder("GET", lookupURL("1"), func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection reset")}
		}
		return httpmock.NewStringResponse(200, `{"title": "Second time lucky"}`), nil
	})

	res := f.Fetch(context.Background(), "1")
	if res.Err != nil {
		t.Fatalf("fetch: %v", res.Err)
	}
	if calls != 2 || res.Attempts != 2 {
		t.Fatalf("calls=%d attempts=%d, want 2/2", calls, res.Attempts)
	}
}

func TestFetchGivesUpAfterMaxRetries(t *testing.T) {
	f, transport := newTestFetcher(t, func(cfg *config.Config) {
		cfg.MaxRetries = 2
	})
	transport.RegisterResponder("GET", lookupURL("1"), httpmock.NewErrorResponder(context.DeadlineExceeded))

	res := f.Fetch(context.Background(), "1")
	if ErrorTypeLabel(res.Err) != "timeout" {
		t.Fatalf("expected timeout, got %v", res.Err)
	}
	if got := transport.GetTotalCallCount(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestFetchDoesNotRetryResponseErrors(t *testing.T) {
	f, transport := newTestFetcher(t, func(cfg *config.Config) {
		cfg.MaxRetries = 3
	})
	transport.RegisterResponder("GET", lookupURL("1"), jsonResponder(404, `{}`))

	res := f.Fetch(context.Background(), "1")
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.StatusCode)
	}
	if got := transport.GetTotalCallCount(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestFetchNoRetryByDefault(t *testing.T) {
	f, transport := newTestFetcher(t, nil)
	transport.RegisterResponder("GET", lookupURL("1"), httpmock.NewErrorResponder(context.DeadlineExceeded))

	f.Fetch(context.Background(), "1")
	if got := transport.GetTotalCallCount(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestFetchStopsRetryingWhenCancelled(t *testing.T) {
	f, transport := newTestFetcher(t, func(cfg *config.Config) {
		cfg.MaxRetries = 5
		cfg.RetryBackoff = time.Hour
		cfg.RetryBackoffMax = time.Hour
	})
	transport.RegisterResponder("GET", lookupURL("1"), httpmock.NewErrorResponder(context.DeadlineExceeded))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.Fetch(ctx, "1")
	if res.Err == nil || res.Attempts != 1 {
		t.Fatalf("attempts=%d err=%v, want a single failed attempt", res.Attempts, res.Err)
	}
}

func TestBackoffCapped(t *testing.T) {
	f, _ := newTestFetcher(t, func(cfg *config.Config) {
		cfg.RetryBackoff = 200 * time.Millisecond
		cfg.RetryBackoffMax = 500 * time.Millisecond
	})

	if delay := f.backoff(1); delay != 200*time.Millisecond {
		t.Fatalf("first delay = %v, want 200ms", delay)
	}
	if delay := f.backoff(4); delay > 500*time.Millisecond {
		t.Fatalf("delay %v exceeds max", delay)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "bad gateway", err: errors.New("Bad Gateway"), statusCode: http.StatusBadGateway, expected: "status"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorTypeLabel(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}
