// Package dataset holds normalized records as an insertion-ordered table.
package dataset

import (
	"fmt"

	"github.com/aluiziolira/go-isbn-stats/models"
	"github.com/aluiziolira/go-isbn-stats/normalizer"
)

// Store is an append-only, insertion-ordered collection of BookRecords.
// It is built by one sequential pass and read-only afterwards.
type Store struct {
	records []models.BookRecord
}

// New returns a store holding copies of books, in order.
func New(books ...*models.BookRecord) (*Store, error) {
	s := &Store{}
	for _, b := range books {
		if err := s.Append(b); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Append validates b and stores a copy of it.
func (s *Store) Append(b *models.BookRecord) error {
	if err := normalizer.ValidateRecord(b); err != nil {
		return fmt.Errorf("append: %w", err)
	}
	s.records = append(s.records, *b)
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	return len(s.records)
}

// All returns the records in insertion order. The slice is a copy; the
// records' slices and maps are shared and must not be modified.
func (s *Store) All() []models.BookRecord {
	out := make([]models.BookRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Group is one group-by bucket.
type Group struct {
	Key     string
	Members []models.BookRecord
}

// GroupBy buckets records by key. Records for which key reports false are
// skipped. Groups are ordered by the first appearance of their key, members
// by insertion order.
func (s *Store) GroupBy(key func(models.BookRecord) (string, bool)) []Group {
	return s.GroupByEach(func(b models.BookRecord) []string {
		if k, ok := key(b); ok {
			return []string{k}
		}
		return nil
	})
}

// GroupByEach is GroupBy for multi-valued projections: a record joins every
// group named by keys, once per distinct key.
func (s *Store) GroupByEach(keys func(models.BookRecord) []string) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, b := range s.records {
		seen := make(map[string]struct{})
		for _, k := range keys(b) {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}

			i, ok := index[k]
			if !ok {
				i = len(groups)
				index[k] = i
				groups = append(groups, Group{Key: k})
			}
			groups[i].Members = append(groups[i].Members, b)
		}
	}
	return groups
}

// Counts maps every group key to its member count.
func Counts(groups []Group) map[string]int {
	out := make(map[string]int, len(groups))
	for _, g := range groups {
		out[g.Key] = len(g.Members)
	}
	return out
}

// DedupByTitle returns a new store keeping only the first record of each title.
func (s *Store) DedupByTitle() *Store {
	seen := make(map[string]struct{}, len(s.records))
	out := &Store{}
	for _, b := range s.records {
		if _, ok := seen[b.Title]; ok {
			continue
		}
		seen[b.Title] = struct{}{}
		out.records = append(out.records, b)
	}
	return out
}

// ByTitle projects the record title.
func ByTitle(b models.BookRecord) (string, bool) {
	return b.Title, true
}

// ByPublisher projects every publisher of a record.
func ByPublisher(b models.BookRecord) []string {
	return b.Publishers
}

// ByAuthor projects every author of a record.
func ByAuthor(b models.BookRecord) []string {
	return b.Authors
}
