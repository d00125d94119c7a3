// Package report renders the answers of the stats package as plain text.
package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-isbn-stats/dataset"
	"github.com/aluiziolira/go-isbn-stats/models"
	"github.com/aluiziolira/go-isbn-stats/stats"
)

// NoData is printed in place of an answer the store cannot support.
const NoData = "insufficient data"

const dateLayout = "2006-01-02"

// Question is one line of the report.
type Question struct {
	Label  string
	Answer func(*dataset.Store) (string, error)
}

// Reporter writes one line per question to an io.Writer.
type Reporter struct {
	w         io.Writer
	questions []Question
}

// NewReporter returns a Reporter asking the default questions.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w, questions: Questions()}
}

// Write answers every question against s. Unanswerable questions are reported
// as NoData; any other aggregation error aborts the report.
func (r *Reporter) Write(s *dataset.Store) error {
	for _, q := range r.questions {
		answer, err := q.Answer(s)
		if errors.Is(err, stats.ErrNoData) {
			answer = NoData
		} else if err != nil {
			return fmt.Errorf("answer %q: %w", q.Label, err)
		}
		if _, err := fmt.Fprintf(r.w, "%s: %s\n", q.Label, answer); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return nil
}

// Questions returns the report questions in print order.
func Questions() []Question {
	return []Question{
		{"Unique titles", func(s *dataset.Store) (string, error) {
			return itoa(stats.UniqueTitles(s))
		}},
		{"Title with most ISBNs", func(s *dataset.Store) (string, error) {
			kc, err := stats.MostISBNs(s)
			return fmt.Sprintf("%s (%d)", kc.Key, kc.Count), err
		}},
		{"Titles without a goodreads id", func(s *dataset.Store) (string, error) {
			return itoa(stats.WithoutIdentifier(s, "goodreads"))
		}},
		{"Titles with more than one author", func(s *dataset.Store) (string, error) {
			return itoa(stats.MultiAuthorTitles(s))
		}},
		{"Books per publisher", func(s *dataset.Store) (string, error) {
			counts, err := stats.BooksPerPublisher(s)
			parts := make([]string, len(counts))
			for i, kc := range counts {
				parts[i] = fmt.Sprintf("%s=%d", kc.Key, kc.Count)
			}
			return strings.Join(parts, ", "), err
		}},
		{"Median pages", func(s *dataset.Store) (string, error) {
			m, err := stats.MedianPages(s)
			return strconv.FormatFloat(m, 'f', -1, 64), err
		}},
		{"Month with most publications", func(s *dataset.Store) (string, error) {
			mc, err := stats.BusiestMonth(s)
			return fmt.Sprintf("%s (%d)", mc.Month, mc.Count), err
		}},
		{"Longest word in a description", func(s *dataset.Store) (string, error) {
			return longestWord(stats.LongestDescriptionWord(s))
		}},
		{"Longest word in a first sentence", func(s *dataset.Store) (string, error) {
			return longestWord(stats.LongestFirstSentenceWord(s))
		}},
		{"Last published book", func(s *dataset.Store) (string, error) {
			return dated(stats.LastPublished(s))
		}},
		{"Year of the latest modification", func(s *dataset.Store) (string, error) {
			return itoa(stats.LatestModifiedYear(s))
		}},
		{"Second title of the most prolific author", func(s *dataset.Store) (string, error) {
			at, err := stats.SecondTitleOfTopAuthor(s)
			return fmt.Sprintf("%s by %s", at.Title, at.Author), err
		}},
		{"Top publisher and author", func(s *dataset.Store) (string, error) {
			pa, err := stats.TopPublisherAuthor(s)
			return fmt.Sprintf("%s / %s (%d)", pa.Publisher, pa.Author, pa.Count), err
		}},
		{"First published book", func(s *dataset.Store) (string, error) {
			return dated(stats.FirstPublished(s))
		}},
	}
}

func itoa(n int, err error) (string, error) {
	return strconv.Itoa(n), err
}

func longestWord(lw stats.LongestWord, err error) (string, error) {
	return fmt.Sprintf("%s (%s)", lw.Word, lw.Title), err
}

func dated(b models.BookRecord, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (%s)", b.Title, b.PublishDate.Format(dateLayout)), nil
}
