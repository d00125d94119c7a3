package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/aluiziolira/go-isbn-stats/dataset"
	"github.com/aluiziolira/go-isbn-stats/models"
)

const batchSize = 64

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(books []*models.BookRecord) error
	Close() error
	Validate() error
}

// CSVHeader lists the dump columns in order.
var CSVHeader = []string{
	"isbn",
	"title",
	"authors",
	"publishers",
	"publish_date",
	"publication_date",
	"number_of_pages",
	"description",
	"first_sentence",
	"identifiers",
	"last_modified",
}

// WriteStore writes every record of s to w in insertion order, flushing in
// batches.
func WriteStore(w OutputWriter, s *dataset.Store) error {
	all := s.All()
	batch := make([]*models.BookRecord, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.Write(batch); err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for i := range all {
		batch = append(batch, &all[i])
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// CSVWriter writes records to CSV.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(CSVHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends books to the CSV output.
func (cw *CSVWriter) Write(books []*models.BookRecord) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, book := range books {
		record, err := csvRecord(book)
		if err != nil {
			return err
		}
		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

func csvRecord(book *models.BookRecord) ([]string, error) {
	authors, err := jsonCell(book.Authors, len(book.Authors) > 0)
	if err != nil {
		return nil, fmt.Errorf("encode authors for %s: %w", book.ISBN, err)
	}
	publishers, err := jsonCell(book.Publishers, len(book.Publishers) > 0)
	if err != nil {
		return nil, fmt.Errorf("encode publishers for %s: %w", book.ISBN, err)
	}
	identifiers, err := jsonCell(book.Identifiers, len(book.Identifiers) > 0)
	if err != nil {
		return nil, fmt.Errorf("encode identifiers for %s: %w", book.ISBN, err)
	}

	pages := ""
	if book.NumberOfPages != nil {
		pages = strconv.Itoa(*book.NumberOfPages)
	}
	publication := ""
	if book.PublishDate != nil {
		publication = book.PublishDate.Format(dateLayout)
	}
	modified := ""
	if book.LastModified != nil {
		modified = book.LastModified.Format(dateLayout)
	}

	return []string{
		book.ISBN,
		book.Title,
		authors,
		publishers,
		book.PublishDateText,
		publication,
		pages,
		book.Description,
		book.FirstSentence,
		identifiers,
		modified,
	}, nil
}

func jsonCell(v any, present bool) (string, error) {
	if !present {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file has content besides the header.
func (cw *CSVWriter) Validate() error {
	info, err := cw.file.Stat()
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends books in JSONL format.
func (jw *JSONWriter) Write(books []*models.BookRecord) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, book := range books {
		if err := jw.encoder.Encode(book); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}

	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	info, err := jw.file.Stat()
	if err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("json file is empty")
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
