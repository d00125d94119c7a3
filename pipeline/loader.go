package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/go-isbn-stats/dataset"
	"github.com/aluiziolira/go-isbn-stats/models"
	"github.com/aluiziolira/go-isbn-stats/normalizer"
)

const dateLayout = "2006-01-02"

// derivedColumns are written for readers of the dump and ignored on load.
var derivedColumns = map[string]struct{}{
	"publication_date": {},
}

// ErrNotCSV is returned when a JSON-lines dump is given to the CSV loader.
var ErrNotCSV = errors.New("dump is not a CSV file")

// LoadCSVFile rebuilds a store from a dump written by CSVWriter.
func LoadCSVFile(path string) (*dataset.Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonl":
		return nil, fmt.Errorf("load %s: %w; write the dump with --format csv or dual", path, ErrNotCSV)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()

	store, err := LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return store, nil
}

// LoadCSV reads a dump and runs every row back through the normalizer, so
// the loaded records obey the same invariants as freshly fetched ones.
// Rows the normalizer rejects are skipped with a warning.
func LoadCSV(r io.Reader) (*dataset.Store, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("dump has no header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	for _, required := range []string{normalizer.FieldISBN, normalizer.FieldTitle} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("dump header missing %q column", required)
		}
	}

	store := &dataset.Store{}
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		raw := make(models.RawRecord, len(header))
		for name, i := range columns {
			if _, skip := derivedColumns[name]; skip || i >= len(row) || row[i] == "" {
				continue
			}
			raw[name] = row[i]
		}

		book, err := normalizer.Normalize(raw, "")
		if err == nil {
			err = store.Append(book)
		}
		if err != nil {
			slog.Warn("skipping dump row", slog.Int("line", line), slog.Any("error", err))
			continue
		}
	}
	return store, nil
}
