// Package stats answers descriptive questions about a dataset.Store. Every
// function is pure, skips records that lack the fields it needs, and breaks
// ties in favor of the first record in insertion order.
package stats

import (
	"errors"
	"slices"
	"sort"
	"time"

	"github.com/aluiziolira/go-isbn-stats/dataset"
	"github.com/aluiziolira/go-isbn-stats/models"
)

// ErrNoData is returned when the store holds no record usable by a question.
var ErrNoData = errors.New("stats: insufficient data")

// KeyCount pairs a group key with its size.
type KeyCount struct {
	Key   string
	Count int
}

// UniqueTitles counts distinct titles.
func UniqueTitles(s *dataset.Store) (int, error) {
	if s.Len() == 0 {
		return 0, ErrNoData
	}
	return s.DedupByTitle().Len(), nil
}

// MostISBNs returns the title published under the most distinct ISBNs.
func MostISBNs(s *dataset.Store) (KeyCount, error) {
	c := newCounter[string]()
	for _, g := range s.GroupBy(dataset.ByTitle) {
		isbns := make(map[string]struct{}, len(g.Members))
		for _, b := range g.Members {
			isbns[b.ISBN] = struct{}{}
		}
		c.addN(g.Key, len(isbns))
	}
	key, n, ok := c.max()
	if !ok {
		return KeyCount{}, ErrNoData
	}
	return KeyCount{Key: key, Count: n}, nil
}

// WithoutIdentifier counts distinct titles whose identifiers lack scheme.
// Titles whose first record has no identifiers at all are not counted either way.
func WithoutIdentifier(s *dataset.Store, scheme string) (int, error) {
	considered, missing := 0, 0
	for _, b := range s.DedupByTitle().All() {
		if b.Identifiers == nil {
			continue
		}
		considered++
		if !b.HasIdentifier(scheme) {
			missing++
		}
	}
	if considered == 0 {
		return 0, ErrNoData
	}
	return missing, nil
}

// MultiAuthorTitles counts distinct titles credited to more than one author.
func MultiAuthorTitles(s *dataset.Store) (int, error) {
	if s.Len() == 0 {
		return 0, ErrNoData
	}
	n := 0
	for _, b := range s.DedupByTitle().All() {
		if len(b.Authors) > 1 {
			n++
		}
	}
	return n, nil
}

// BooksPerPublisher counts records per publisher, largest first.
func BooksPerPublisher(s *dataset.Store) ([]KeyCount, error) {
	groups := s.GroupByEach(dataset.ByPublisher)
	if len(groups) == 0 {
		return nil, ErrNoData
	}
	out := make([]KeyCount, len(groups))
	for i, g := range groups {
		out[i] = KeyCount{Key: g.Key, Count: len(g.Members)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out, nil
}

// MedianPages returns the median page count of records that state one.
func MedianPages(s *dataset.Store) (float64, error) {
	var pages []int
	for _, b := range s.All() {
		if b.NumberOfPages != nil {
			pages = append(pages, *b.NumberOfPages)
		}
	}
	if len(pages) == 0 {
		return 0, ErrNoData
	}
	slices.Sort(pages)
	mid := len(pages) / 2
	if len(pages)%2 == 1 {
		return float64(pages[mid]), nil
	}
	return float64(pages[mid-1]+pages[mid]) / 2, nil
}

// MonthCount pairs a calendar month with a number of books.
type MonthCount struct {
	Month time.Month
	Count int
}

// BusiestMonth returns the month in which the most books were published.
// Only publish dates that state a month are considered.
func BusiestMonth(s *dataset.Store) (MonthCount, error) {
	c := newCounter[time.Month]()
	for _, b := range s.All() {
		if b.PublishDate != nil && b.PublishPrecision >= models.PrecisionMonth {
			c.add(b.PublishDate.Month())
		}
	}
	month, n, ok := c.max()
	if !ok {
		return MonthCount{}, ErrNoData
	}
	return MonthCount{Month: month, Count: n}, nil
}

// LastPublished returns the record with the latest publish date.
func LastPublished(s *dataset.Store) (models.BookRecord, error) {
	return pickByDate(s, func(candidate, best time.Time) bool { return candidate.After(best) })
}

// FirstPublished returns the record with the earliest publish date.
func FirstPublished(s *dataset.Store) (models.BookRecord, error) {
	return pickByDate(s, func(candidate, best time.Time) bool { return candidate.Before(best) })
}

func pickByDate(s *dataset.Store, better func(candidate, best time.Time) bool) (models.BookRecord, error) {
	var best *models.BookRecord
	all := s.All()
	for i := range all {
		b := &all[i]
		if b.PublishDate == nil {
			continue
		}
		if best == nil || better(*b.PublishDate, *best.PublishDate) {
			best = b
		}
	}
	if best == nil {
		return models.BookRecord{}, ErrNoData
	}
	return *best, nil
}

// LatestModifiedYear returns the year of the most recently modified record.
func LatestModifiedYear(s *dataset.Store) (int, error) {
	var latest *time.Time
	for _, b := range s.All() {
		if b.LastModified != nil && (latest == nil || b.LastModified.After(*latest)) {
			latest = b.LastModified
		}
	}
	if latest == nil {
		return 0, ErrNoData
	}
	return latest.Year(), nil
}

// AuthorTitle names a title of an author.
type AuthorTitle struct {
	Author string
	Title  string
}

// SecondTitleOfTopAuthor finds the author with the most distinct titles and
// returns that author's second title by publish date. Records without a
// publish date cannot be ordered and are skipped.
func SecondTitleOfTopAuthor(s *dataset.Store) (AuthorTitle, error) {
	c := newCounter[string]()
	members := make(map[string][]models.BookRecord)
	for _, g := range s.GroupByEach(dataset.ByAuthor) {
		titles := make(map[string]struct{})
		for _, b := range g.Members {
			titles[b.Title] = struct{}{}
		}
		c.addN(g.Key, len(titles))
		members[g.Key] = g.Members
	}
	author, _, ok := c.max()
	if !ok {
		return AuthorTitle{}, ErrNoData
	}

	var dated []models.BookRecord
	for _, b := range members[author] {
		if b.PublishDate != nil {
			dated = append(dated, b)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].PublishDate.Before(*dated[j].PublishDate)
	})

	seen := make(map[string]struct{})
	for _, b := range dated {
		if _, dup := seen[b.Title]; dup {
			continue
		}
		seen[b.Title] = struct{}{}
		if len(seen) == 2 {
			return AuthorTitle{Author: author, Title: b.Title}, nil
		}
	}
	return AuthorTitle{Author: author}, ErrNoData
}

// PublisherAuthor is a (publisher, author) pair with its number of books.
type PublisherAuthor struct {
	Publisher string
	Author    string
	Count     int
}

// TopPublisherAuthor returns the (publisher, author) pair with the most books.
// A record with several publishers or authors counts once for each pair.
func TopPublisherAuthor(s *dataset.Store) (PublisherAuthor, error) {
	type pair struct{ publisher, author string }
	c := newCounter[pair]()
	for _, b := range s.All() {
		seen := make(map[pair]struct{})
		for _, p := range b.Publishers {
			for _, a := range b.Authors {
				k := pair{p, a}
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				c.add(k)
			}
		}
	}
	top, n, ok := c.max()
	if !ok {
		return PublisherAuthor{}, ErrNoData
	}
	return PublisherAuthor{Publisher: top.publisher, Author: top.author, Count: n}, nil
}
