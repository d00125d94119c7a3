package stats

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aluiziolira/go-isbn-stats/dataset"
	"github.com/aluiziolira/go-isbn-stats/models"
)

// LongestWord is the longest word found in a text field and the title it came from.
type LongestWord struct {
	Word  string
	Title string
}

// LongestDescriptionWord scans every description.
func LongestDescriptionWord(s *dataset.Store) (LongestWord, error) {
	return longestWord(s, func(b models.BookRecord) string { return b.Description })
}

// LongestFirstSentenceWord scans the first sentence of every record, up to its
// first period.
func LongestFirstSentenceWord(s *dataset.Store) (LongestWord, error) {
	return longestWord(s, func(b models.BookRecord) string {
		text, _, _ := strings.Cut(b.FirstSentence, ".")
		return text
	})
}

func longestWord(s *dataset.Store, field func(models.BookRecord) string) (LongestWord, error) {
	var best LongestWord
	bestLen := 0
	for _, b := range s.All() {
		for _, w := range Words(field(b)) {
			if n := utf8.RuneCountInString(w); n > bestLen {
				best, bestLen = LongestWord{Word: w, Title: b.Title}, n
			}
		}
	}
	if bestLen == 0 {
		return LongestWord{}, ErrNoData
	}
	return best, nil
}

// Words lower-cases text, drops punctuation and splits on white space.
func Words(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', unicode.IsSpace(r):
			return unicode.ToLower(r)
		default:
			return -1
		}
	}, text)
	return strings.Fields(cleaned)
}
