// Package normalizer turns loosely typed catalog records into BookRecords.
package normalizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aluiziolira/go-isbn-stats/models"
	"github.com/go-viper/mapstructure/v2"
)

var (
	// ErrMissingTitle is the drop decision for records without a usable title.
	ErrMissingTitle = errors.New("normalizer: record has no title")
	// ErrMissingISBN is returned when neither the caller nor the record names an ISBN.
	ErrMissingISBN = errors.New("normalizer: record has no isbn")
)

// Field names of the catalog record.
const (
	FieldISBN          = "isbn"
	FieldTitle         = "title"
	FieldAuthors       = "authors"
	FieldPublishers    = "publishers"
	FieldPublishDate   = "publish_date"
	FieldNumberOfPages = "number_of_pages"
	FieldDescription   = "description"
	FieldFirstSentence = "first_sentence"
	FieldIdentifiers   = "identifiers"
	FieldLastModified  = "last_modified"
)

// Normalize flattens raw into a BookRecord keyed by isbn. Malformed optional
// fields become absent; only a missing title or isbn rejects the record.
func Normalize(raw models.RawRecord, isbn string) (*models.BookRecord, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		isbn = TextValue(raw[FieldISBN])
	}
	if isbn == "" {
		return nil, ErrMissingISBN
	}

	title := CleanTitle(TextValue(raw[FieldTitle]))
	if title == "" {
		return nil, fmt.Errorf("isbn %s: %w", isbn, ErrMissingTitle)
	}

	book := &models.BookRecord{
		ISBN:          isbn,
		Title:         title,
		Authors:       CoerceNames(raw[FieldAuthors]),
		Publishers:    CoerceNames(raw[FieldPublishers]),
		NumberOfPages: pageCount(raw[FieldNumberOfPages]),
		Description:   TextValue(raw[FieldDescription]),
		FirstSentence: TextValue(raw[FieldFirstSentence]),
	}

	if text := TextValue(raw[FieldPublishDate]); text != "" {
		book.PublishDateText = text
		book.PublishDate, book.PublishPrecision = ParseDate(text)
	}
	if ids := DecodeIdentifiers(raw[FieldIdentifiers]); len(ids) > 0 {
		book.Identifiers = ids
	}
	book.LastModified = ParseTimestamp(TextValue(raw[FieldLastModified]))

	return book, nil
}

// Denormalize renders a record back into raw form. Normalize(Denormalize(b), b.ISBN)
// yields a record equal to b.
func Denormalize(b *models.BookRecord) models.RawRecord {
	raw := models.RawRecord{
		FieldISBN:  b.ISBN,
		FieldTitle: b.Title,
	}
	if len(b.Authors) > 0 {
		raw[FieldAuthors] = toAnySlice(b.Authors)
	}
	if len(b.Publishers) > 0 {
		raw[FieldPublishers] = toAnySlice(b.Publishers)
	}
	if b.PublishDateText != "" {
		raw[FieldPublishDate] = b.PublishDateText
	}
	if b.NumberOfPages != nil {
		raw[FieldNumberOfPages] = *b.NumberOfPages
	}
	if b.Description != "" {
		raw[FieldDescription] = b.Description
	}
	if b.FirstSentence != "" {
		raw[FieldFirstSentence] = b.FirstSentence
	}
	if len(b.Identifiers) > 0 {
		ids := make(map[string]any, len(b.Identifiers))
		for k, v := range b.Identifiers {
			ids[k] = toAnySlice(v)
		}
		raw[FieldIdentifiers] = ids
	}
	if b.LastModified != nil {
		raw[FieldLastModified] = b.LastModified.Format(dateLayout)
	}
	return raw
}

// TextValue reads a scalar or a typed text object ({"type": ..., "value": ...}).
func TextValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case map[string]any:
		return TextValue(val["value"])
	}

	var s string
	if err := mapstructure.WeakDecode(v, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func pageCount(v any) *int {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}

	var n int
	if err := mapstructure.WeakDecode(v, &n); err != nil || n <= 0 {
		return nil
	}
	return &n
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
