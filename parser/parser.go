package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-book-harvester/models"
)

// ErrMalformedPage indicates a fetched page lacks an expected structural element.
type ErrMalformedPage struct {
	URL    string
	Reason string
}

func (e ErrMalformedPage) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("malformed_page: %s", e.Reason)
	}
	return fmt.Sprintf("malformed_page: %s (%s)", e.Reason, e.URL)
}

// ValidateBook ensures the extractor captured the required fields.
func ValidateBook(b *models.Book) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("book missing title")
	}
	if strings.TrimSpace(b.Author) == "" {
		return fmt.Errorf("book missing author for %s", b.Title)
	}
	return nil
}

// SplitHeader splits a "title <sep> author" heading into its two trimmed parts.
func SplitHeader(text, separator string) (title, author string, err error) {
	parts := strings.Split(text, separator)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("heading %q does not split on %q into two parts", strings.TrimSpace(text), separator)
	}
	return NormalizeText(parts[0]), NormalizeText(parts[1]), nil
}

// NormalizeText trims surrounding whitespace, including non-breaking spaces.
func NormalizeText(text string) string {
	return strings.TrimSpace(text)
}
