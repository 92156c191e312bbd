package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"

	"github.com/aluiziolira/go-book-harvester/models"
)

// listSeparator joins list fields in flat formats.
const listSeparator = " | "

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(books []*models.Book) error
	Close() error
	Validate() error
}

// CSVWriter writes records to CSV.
type CSVWriter struct {
	path    string
	file    *os.File
	writer  *csv.Writer
	written int
	mu      sync.Mutex
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
	header := []string{"id", "title", "author", "image_url", "genres", "comments", "book_path", "img_src"}
	if err := writer.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		path:   filename,
		file:   f,
		writer: writer,
	}, nil
}

// Write appends books to the CSV output.
func (cw *CSVWriter) Write(books []*models.Book) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, book := range books {
		record := []string{
			strconv.Itoa(book.ID),
			book.Title,
			book.Author,
			book.ImageURL,
			strings.Join(book.Genres, listSeparator),
			strings.Join(book.Comments, listSeparator),
			book.BookPath,
			book.ImgSrc,
		}
		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
		cw.written++
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		cw.file.Close()
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file holds at least the header row.
func (cw *CSVWriter) Validate() error {
	return validateFile(cw.path, "csv", true)
}

// JSONWriter collects records and writes them as one indented JSON array on Close.
type JSONWriter struct {
	path  string
	file  *os.File
	books []*models.Book
	mu    sync.Mutex
}

// NewJSONWriter initialises the JSON array writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}
	return &JSONWriter{
		path:  filename,
		file:  f,
		books: make([]*models.Book, 0),
	}, nil
}

// Write buffers books for the final array.
func (jw *JSONWriter) Write(books []*models.Book) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	jw.books = append(jw.books, books...)
	return nil
}

// Close encodes the buffered array and closes the file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	buffer := bufio.NewWriter(jw.file)
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(jw.books); err != nil {
		jw.file.Close()
		return fmt.Errorf("encode json array: %w", err)
	}
	if err := buffer.Flush(); err != nil {
		jw.file.Close()
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	return validateFile(jw.path, "json", true)
}

// JSONLWriter writes newline-delimited JSON records.
type JSONLWriter struct {
	path    string
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	written int
	mu      sync.Mutex
}

// NewJSONLWriter initialises the JSONL writer.
func NewJSONLWriter(filename string) (*JSONLWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create jsonl file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	return &JSONLWriter{
		path:    filename,
		file:    f,
		writer:  buffer,
		encoder: encoder,
	}, nil
}

// Write appends books in JSONL format.
func (jw *JSONLWriter) Write(books []*models.Book) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, book := range books {
		if err := jw.encoder.Encode(book); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
		jw.written++
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush jsonl writer: %w", err)
	}
	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		jw.file.Close()
		return fmt.Errorf("flush jsonl writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the file has data once any record was written.
func (jw *JSONLWriter) Validate() error {
	jw.mu.Lock()
	written := jw.written
	jw.mu.Unlock()
	return validateFile(jw.path, "jsonl", written > 0)
}

// YAMLWriter collects records and writes them as a YAML sequence on Close.
type YAMLWriter struct {
	path  string
	file  *os.File
	books []*models.Book
	mu    sync.Mutex
}

// NewYAMLWriter initialises the YAML writer.
func NewYAMLWriter(filename string) (*YAMLWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create yaml file: %w", err)
	}
	return &YAMLWriter{
		path:  filename,
		file:  f,
		books: make([]*models.Book, 0),
	}, nil
}

// Write buffers books for the final document.
func (yw *YAMLWriter) Write(books []*models.Book) error {
	yw.mu.Lock()
	defer yw.mu.Unlock()
	yw.books = append(yw.books, books...)
	return nil
}

// Close encodes the buffered sequence and closes the file.
func (yw *YAMLWriter) Close() error {
	yw.mu.Lock()
	defer yw.mu.Unlock()

	encoder := yaml.NewEncoder(yw.file)
	encoder.SetIndent(2)
	if err := encoder.Encode(yw.books); err != nil {
		yw.file.Close()
		return fmt.Errorf("encode yaml: %w", err)
	}
	if err := encoder.Close(); err != nil {
		yw.file.Close()
		return fmt.Errorf("close yaml encoder: %w", err)
	}
	return yw.file.Close()
}

// Validate ensures the YAML file has data.
func (yw *YAMLWriter) Validate() error {
	return validateFile(yw.path, "yaml", true)
}

func validateFile(path, kind string, wantData bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s file: %w", kind, err)
	}
	if wantData && info.Size() <= 0 {
		return fmt.Errorf("%s file is empty", kind)
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
