package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-isbn-stats/pipeline"
)

const testBaseURL = "http://catalog.test/isbn/{isbn}.json"

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "http://catalog.test/isbn/111.json",
		httpmock.NewStringResponder(200, `{"title": "Matilda", "authors": ["Roald Dahl"], "publishers": ["Puffin"], "publish_date": "October 1, 1988", "number_of_pages": 240}`))
	transport.RegisterResponder("GET", "http://catalog.test/isbn/222.json",
		httpmock.NewStringResponder(404, `{"error": "notfound"}`))

	var stdout bytes.Buffer
	return &app{transport: transport, stdout: &stdout, stderr: &bytes.Buffer{}}, &stdout
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestRootFetchesAndReports(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "isbns.txt")
	output := filepath.Join(dir, "out", "books.csv")
	writeFile(t, input, "111\n222\n")

	a, stdout := newTestApp(t)
	cmd := newRootCmd(a)
	cmd.SetArgs([]string{
		"--env-file", filepath.Join(dir, "missing.env"),
		"--base-url", testBaseURL,
		"--input", input,
		"--output", output,
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{"Unique titles: 1\n", "Median pages: 240\n", "Last published book: Matilda (1988-10-01)\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 2 {
		t.Fatalf("dump has %d lines, want header plus one record:\n%s", lines, data)
	}

	// The dump alone answers the same questions.
	b, reloaded := newTestApp(t)
	cmd = newRootCmd(b)
	cmd.SetArgs([]string{"report", "--env-file", filepath.Join(dir, "missing.env"), "--from-dump", output})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("report from dump: %v", err)
	}
	if reloaded.String() != out {
		t.Fatalf("report from dump differs:\n%s\nwant:\n%s", reloaded.String(), out)
	}
}

func TestConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "isbnstats.yaml")
	writeFile(t, cfgFile, "timeout: 5s\nmax_retries: 1\ninput_file: from-yaml.txt\n")
	t.Setenv("ISBNSTATS_MAX_RETRIES", "2")

	a, _ := newTestApp(t)
	cmd := newRootCmd(a)
	cmd.SetArgs([]string{
		"fetch",
		"--env-file", filepath.Join(dir, "missing.env"),
		"--config", cfgFile,
		"--input", filepath.Join(dir, "from-flag.txt"),
	})
	// The input file does not exist, so the run fails after the configuration is resolved.
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error for the missing input file")
	}

	if a.cfg == nil {
		t.Fatal("configuration was not resolved")
	}
	if a.cfg.Timeout != 5*time.Second {
		t.Fatalf("timeout = %v, want the YAML value", a.cfg.Timeout)
	}
	if a.cfg.MaxRetries != 2 {
		t.Fatalf("max retries = %d, want the environment value", a.cfg.MaxRetries)
	}
	if a.cfg.InputFile != filepath.Join(dir, "from-flag.txt") {
		t.Fatalf("input = %q, want the flag value", a.cfg.InputFile)
	}
}

func TestInvalidConfigurationFails(t *testing.T) {
	a, _ := newTestApp(t)
	cmd := newRootCmd(a)
	cmd.SetArgs([]string{"fetch", "--env-file", filepath.Join(t.TempDir(), "missing.env"), "--format", "xml"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Fatalf("expected invalid configuration error, got %v", err)
	}
}

func TestJSONDumpIsNotReadAsCSV(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "isbns.txt")
	output := filepath.Join(dir, "books.csv")
	envFile := filepath.Join(dir, "missing.env")
	writeFile(t, input, "111\n")

	a, _ := newTestApp(t)
	cmd := newRootCmd(a)
	cmd.SetArgs([]string{"fetch", "--env-file", envFile, "--base-url", testBaseURL, "--input", input, "--output", output, "--format", "json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Fatalf("json dump must not be written to %s", output)
	}

	b, _ := newTestApp(t)
	cmd = newRootCmd(b)
	cmd.SetArgs([]string{"report", "--env-file", envFile, "--from-dump", filepath.Join(dir, "books.jsonl")})
	if err := cmd.Execute(); !errors.Is(err, pipeline.ErrNotCSV) {
		t.Fatalf("report from json dump: err=%v, want ErrNotCSV", err)
	}
}
