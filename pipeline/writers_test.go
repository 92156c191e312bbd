package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/aluiziolira/go-book-harvester/models"
)

func sampleBooks() []*models.Book {
	return []*models.Book{
		{
			ID:       5,
			Title:    "Dune",
			Author:   "Frank Herbert",
			ImageURL: "http://example.test/shots/5.jpg",
			Comments: []string{"Worth reading", "Long"},
			Genres:   []string{"Science Fiction"},
			BookPath: "books/Dune_5.txt",
			ImgSrc:   "images/5_5.jpg",
		},
		{
			ID:       7,
			Title:    "Пикник на обочине",
			Author:   "Стругацкие",
			ImageURL: "http://example.test/images/nopic.gif",
			Comments: []string{},
			Genres:   []string{"Научная фантастика"},
		},
	}
}

func TestJSONWriterWritesIndentedArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "books_info.json")

	if err := Export(&models.BatchResult{Books: sampleBooks()}, path, "json"); err != nil {
		t.Fatalf("export: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	text := string(raw)
	if !strings.HasPrefix(text, "[\n    {\n        \"title\": \"Dune\"") {
		t.Fatalf("unexpected layout:\n%s", text)
	}
	if !strings.Contains(text, "Пикник на обочине") {
		t.Fatalf("non-ASCII text escaped:\n%s", text)
	}
	if strings.Contains(text, `"id"`) {
		t.Fatalf("id must not be exported:\n%s", text)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("records=%d, want 2", len(decoded))
	}
	if decoded[0]["book_path"] != "books/Dune_5.txt" {
		t.Fatalf("book_path=%v", decoded[0]["book_path"])
	}
	if _, ok := decoded[1]["book_path"]; ok {
		t.Fatalf("empty book_path must be omitted: %v", decoded[1])
	}
	if _, ok := decoded[1]["img_src"]; ok {
		t.Fatalf("empty img_src must be omitted: %v", decoded[1])
	}
	comments, ok := decoded[1]["comments"].([]any)
	if !ok || len(comments) != 0 {
		t.Fatalf("comments=%v, want empty list", decoded[1]["comments"])
	}
}

func TestJSONWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.json")
	books := sampleBooks()

	if err := Export(&models.BatchResult{Books: books}, path, ""); err != nil {
		t.Fatalf("export: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}

	var decoded []*models.Book
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	for i := range books {
		want := *books[i]
		want.ID = 0
		if got := *decoded[i]; !equalBooks(got, want) {
			t.Fatalf("record %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestExportEmptyResultWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.json")

	if err := Export(&models.BatchResult{}, path, "json"); err != nil {
		t.Fatalf("export: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	if strings.TrimSpace(string(raw)) != "[]" {
		t.Fatalf("content=%q, want []", raw)
	}
}

func TestCSVWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.csv")

	if err := Export(&models.BatchResult{Books: sampleBooks()}, path, "csv"); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records=%d, want 3", len(records))
	}
	if records[0][0] != "id" || records[0][1] != "title" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][0] != "5" || records[1][5] != "Worth reading | Long" {
		t.Fatalf("unexpected row: %v", records[1])
	}
	if records[2][1] != "Пикник на обочине" {
		t.Fatalf("unexpected row: %v", records[2])
	}
}

func TestJSONLWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.jsonl")

	if err := Export(&models.BatchResult{Books: sampleBooks()}, path, "jsonl"); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open jsonl: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		var book models.Book
		if err := json.Unmarshal(scanner.Bytes(), &book); err != nil {
			t.Fatalf("decode line %d: %v", lines, err)
		}
		lines++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan jsonl: %v", err)
	}
	if lines != 2 {
		t.Fatalf("lines=%d, want 2", lines)
	}
}

func TestYAMLWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.yaml")

	if err := Export(&models.BatchResult{Books: sampleBooks()}, path, "yaml"); err != nil {
		t.Fatalf("export: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read yaml: %v", err)
	}
	var decoded []models.Book
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("records=%d, want 2", len(decoded))
	}
	if decoded[1].Title != "Пикник на обочине" || decoded[0].ImgSrc != "images/5_5.jpg" {
		t.Fatalf("unexpected records: %+v", decoded)
	}
}

func TestDualWriterWritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "books_info.json")

	if err := Export(&models.BatchResult{Books: sampleBooks()}, jsonPath, "dual"); err != nil {
		t.Fatalf("export: %v", err)
	}

	for _, p := range []string{jsonPath, filepath.Join(dir, "books_info.csv")} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", p)
		}
	}
}

func TestExportFailureIsWrapped(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	path := filepath.Join(blocker, "books.json")

	err := Export(&models.BatchResult{Books: sampleBooks()}, path, "json")
	var exportErr ErrExport
	if !errors.As(err, &exportErr) {
		t.Fatalf("err=%v, want ErrExport", err)
	}
	if exportErr.Path != path {
		t.Fatalf("path=%q, want %q", exportErr.Path, path)
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	err := Export(&models.BatchResult{}, filepath.Join(t.TempDir(), "x.xml"), "xml")
	var exportErr ErrExport
	if !errors.As(err, &exportErr) {
		t.Fatalf("err=%v, want ErrExport", err)
	}
}

func equalBooks(a, b models.Book) bool {
	if a.ID != b.ID || a.Title != b.Title || a.Author != b.Author || a.ImageURL != b.ImageURL ||
		a.BookPath != b.BookPath || a.ImgSrc != b.ImgSrc {
		return false
	}
	return strings.Join(a.Genres, "\x00") == strings.Join(b.Genres, "\x00") &&
		strings.Join(a.Comments, "\x00") == strings.Join(b.Comments, "\x00") &&
		len(a.Comments) == len(b.Comments)
}
