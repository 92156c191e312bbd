package pipeline

import (
	"fmt"
	"os"

	"github.com/aluiziolira/go-book-harvester/models"
)

// ErrExport wraps any failure to persist the result file.
type ErrExport struct {
	Path string
	Err  error
}

func (e ErrExport) Error() string {
	return fmt.Sprintf("export %s: %v", e.Path, e.Err)
}

func (e ErrExport) Unwrap() error {
	return e.Err
}

// NewWriter returns the OutputWriter for format. An empty format means json.
// The dual format writes JSON to path and CSV next to it.
func NewWriter(path, format string) (OutputWriter, error) {
	var (
		writer OutputWriter
		err    error
	)
	switch format {
	case "", "json":
		writer, err = NewJSONWriter(path)
	case "jsonl":
		writer, err = NewJSONLWriter(path)
	case "csv":
		writer, err = NewCSVWriter(path)
	case "yaml":
		writer, err = NewYAMLWriter(path)
	case "dual":
		writer, err = NewDualWriter(companionCSVPath(path), path)
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return writer, nil
}

// Export writes every record of result to path in the given format.
func Export(result *models.BatchResult, path, format string) error {
	writer, err := NewWriter(path, format)
	if err != nil {
		return ErrExport{Path: path, Err: err}
	}

	var books []*models.Book
	if result != nil {
		books = result.Books
	}
	if err := writer.Write(books); err != nil {
		writer.Close()
		return ErrExport{Path: path, Err: err}
	}
	if err := writer.Close(); err != nil {
		return ErrExport{Path: path, Err: err}
	}
	if err := writer.Validate(); err != nil {
		return ErrExport{Path: path, Err: err}
	}
	return nil
}

// PrepareDirs creates each directory if missing. Empty entries are ignored.
func PrepareDirs(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}
