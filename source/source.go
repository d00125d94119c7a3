// Package source reads the batch of ISBNs to look up.
package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadISBNFile reads a line-delimited ISBN list from path.
func ReadISBNFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open isbn list: %w", err)
	}
	defer f.Close()

	isbns, err := ReadISBNs(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return isbns, nil
}

// ReadISBNs returns one normalized ISBN per non-blank line, in input order.
// Lines starting with '#' are comments. Repeated ISBNs are kept; the pipeline
// decides what to do with them.
func ReadISBNs(r io.Reader) ([]string, error) {
	var isbns []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if isbn := NormalizeISBN(line); isbn != "" {
			isbns = append(isbns, isbn)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return isbns, nil
}

// NormalizeISBN strips separators and an optional "ISBN" label.
func NormalizeISBN(s string) string {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)
	if strings.HasPrefix(upper, "ISBN") {
		s = strings.TrimLeft(s[4:], ":- ")
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		case r == '-' || r == ' ':
		default:
			// keep unknown characters so the catalog reports the bad key
			b.WriteRune(r)
		}
	}
	return b.String()
}
