package normalizer

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-isbn-stats/models"
)

// ValidateRecord ensures a record satisfies the store's identity invariants.
func ValidateRecord(b *models.BookRecord) error {
	if b == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(b.ISBN) == "" {
		return fmt.Errorf("record missing isbn for %q", b.Title)
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("record missing title for %s", b.ISBN)
	}
	if b.PublishDate == nil && b.PublishPrecision != models.PrecisionNone {
		return fmt.Errorf("record %s has a precision without a date", b.ISBN)
	}
	return nil
}
