package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aluiziolira/go-isbn-stats/models"
)

// DualWriter outputs to both CSV and JSON formats simultaneously
type DualWriter struct {
	csvWriter  *CSVWriter
	jsonWriter *JSONWriter
	mu         sync.Mutex
}

// NewDualWriter creates a new dual writer for both CSV and JSON output
func NewDualWriter(csvFilename, jsonFilename string) (*DualWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV writer: %w", err)
	}

	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		csvWriter.Close()
		return nil, fmt.Errorf("failed to create JSON writer: %w", err)
	}

	return &DualWriter{
		csvWriter:  csvWriter,
		jsonWriter: jsonWriter,
	}, nil
}

// Write writes books to both CSV and JSON formats
func (dw *DualWriter) Write(books []*models.BookRecord) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if err := dw.csvWriter.Write(books); err != nil {
		return fmt.Errorf("CSV write failed: %w", err)
	}

	// JSON lines
	if err := dw.jsonWriter.Write(books); err != nil {
		return fmt.Errorf("JSON write failed: %w", err)
	}

	return nil
}

// Close closes both writers
func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	var errs []error

	if err := dw.csvWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("CSV close failed: %w", err))
	}

	if err := dw.jsonWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("JSON close failed: %w", err))
	}

	return errors.Join(errs...)
}

// Validate validates both output files
func (dw *DualWriter) Validate() error {
	var errs []error

	if err := dw.csvWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("CSV validation failed: %w", err))
	}

	if err := dw.jsonWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("JSON validation failed: %w", err))
	}

	return errors.Join(errs...)
}

// JSONLinesPath swaps a .csv extension of filename for .jsonl. Paths that
// already end in .json or .jsonl are kept.
func JSONLinesPath(filename string) string {
	if ext := filepath.Ext(filename); ext == ".json" || ext == ".jsonl" {
		return filename
	}
	return strings.TrimSuffix(filename, ".csv") + ".jsonl"
}

// DumpPaths lists the files NewWriter creates for format.
func DumpPaths(format, filename string) []string {
	switch format {
	case "json":
		return []string{JSONLinesPath(filename)}
	case "dual":
		return []string{filename, JSONLinesPath(filename)}
	default:
		return []string{filename}
	}
}

// NewWriter creates the writer for format ("csv", "json" or "dual"). JSON
// lines always go to a .jsonl file, so a .csv path only ever holds a CSV dump.
func NewWriter(format, filename string) (OutputWriter, error) {
	switch format {
	case "json":
		return NewJSONWriter(JSONLinesPath(filename))
	case "csv":
		return NewCSVWriter(filename)
	case "dual":
		return NewDualWriter(filename, JSONLinesPath(filename))
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
