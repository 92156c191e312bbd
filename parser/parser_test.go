package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/aluiziolira/go-book-harvester/models"
)

const pageURL = "http://example.test/b5/"

func bookPage(heading string, extra string) string {
	var b strings.Builder
	b.WriteString("<html><body><div id=\"content\">")
	if heading != "" {
		b.WriteString("<h1>" + heading + "</h1>")
	}
	b.WriteString(extra)
	b.WriteString("</div></body></html>")
	return b.String()
}

func TestValidateBook(t *testing.T) {
	tests := []struct {
		name    string
		book    *models.Book
		wantErr bool
	}{
		{
			name:    "valid book",
			book:    &models.Book{Title: "Dune", Author: "Frank Herbert"},
			wantErr: false,
		},
		{
			name:    "missing title",
			book:    &models.Book{Title: " ", Author: "Frank Herbert"},
			wantErr: true,
		},
		{
			name:    "missing author",
			book:    &models.Book{Title: "Dune", Author: ""},
			wantErr: true,
		},
		{
			name:    "nil book",
			book:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBook(tt.book)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBook() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitHeader(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantTitle  string
		wantAuthor string
		wantErr    bool
	}{
		{
			name:       "plain",
			input:      "Dune :: Frank Herbert",
			wantTitle:  "Dune",
			wantAuthor: "Frank Herbert",
		},
		{
			name:       "non-breaking spaces",
			input:      "Пикник на обочине   ::   Стругацкий Аркадий",
			wantTitle:  "Пикник на обочине",
			wantAuthor: "Стругацкий Аркадий",
		},
		{
			name:    "no separator",
			input:   "Dune by Frank Herbert",
			wantErr: true,
		},
		{
			name:    "two separators",
			input:   "Dune :: Part :: Frank Herbert",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, author, err := SplitHeader(tt.input, "::")
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitHeader(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if title != tt.wantTitle || author != tt.wantAuthor {
				t.Errorf("SplitHeader(%q) = %q, %q, want %q, %q", tt.input, title, author, tt.wantTitle, tt.wantAuthor)
			}
		})
	}
}

func TestExtractDune(t *testing.T) {
	body := bookPage("Dune :: Frank Herbert",
		`<div class="bookimage"><a href="/b5/"><img src="/shots/5.jpg"></a></div>`+
			`<span class="d_book">Жанр книги: <a href="/l55/">Science Fiction</a></span>`+
			`<div class="texts"><span class="black">Great book</span></div>`)

	book, err := DefaultExtractor().Extract([]byte(body), pageURL)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if book.Title != "Dune" || book.Author != "Frank Herbert" {
		t.Fatalf("title/author = %q/%q", book.Title, book.Author)
	}
	if len(book.Genres) != 1 || book.Genres[0] != "Science Fiction" {
		t.Fatalf("genres = %v", book.Genres)
	}
	if book.ImageURL != "http://example.test/shots/5.jpg" {
		t.Fatalf("image url = %q", book.ImageURL)
	}
	if len(book.Comments) != 1 || book.Comments[0] != "Great book" {
		t.Fatalf("comments = %v", book.Comments)
	}
	if book.BookPath != "" || book.ImgSrc != "" {
		t.Fatalf("artifact paths should be unset")
	}
}

func TestExtractResolvesRelativeImage(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{src: "../images/nopic.gif", want: "http://example.test/images/nopic.gif"},
		{src: "cover.jpg", want: "http://example.test/b5/cover.jpg"},
		{src: "https://cdn.example.test/x.png", want: "https://cdn.example.test/x.png"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			body := bookPage("A :: B", `<div class="bookimage"><img src="`+tt.src+`"></div>`)
			book, err := DefaultExtractor().Extract([]byte(body), pageURL)
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if book.ImageURL != tt.want {
				t.Fatalf("image url = %q, want %q", book.ImageURL, tt.want)
			}
		})
	}
}

func TestExtractMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing heading", body: bookPage("", "<p>nothing here</p>")},
		{name: "missing separator", body: bookPage("Dune by Frank Herbert", "")},
		{name: "empty author", body: bookPage("Dune :: ", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DefaultExtractor().Extract([]byte(tt.body), pageURL)
			var malformed ErrMalformedPage
			if !errors.As(err, &malformed) {
				t.Fatalf("expected ErrMalformedPage, got %v", err)
			}
		})
	}
}

func TestExtractOptionalSectionsEmpty(t *testing.T) {
	book, err := DefaultExtractor().Extract([]byte(bookPage("A :: B", "")), pageURL)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if book.Genres == nil || len(book.Genres) != 0 {
		t.Fatalf("genres = %#v, want empty non-nil", book.Genres)
	}
	if book.Comments == nil || len(book.Comments) != 0 {
		t.Fatalf("comments = %#v, want empty non-nil", book.Comments)
	}
	if book.ImageURL != "" {
		t.Fatalf("image url = %q, want empty", book.ImageURL)
	}
}

func TestExtractSkipsCommentBlocksWithoutText(t *testing.T) {
	body := bookPage("A :: B",
		`<div class="texts"><b>anon</b><span class="black">first</span></div>`+
			`<div class="texts"><b>no text span</b></div>`+
			`<div class="texts"><span class="black"> second </span></div>`)

	book, err := DefaultExtractor().Extract([]byte(body), pageURL)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(book.Comments) != 2 || book.Comments[0] != "first" || book.Comments[1] != "second" {
		t.Fatalf("comments = %q", book.Comments)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	body := []byte(bookPage("Dune :: Frank Herbert",
		`<span class="d_book"><a>A</a><a>B</a></span><div class="texts"><span class="black">c</span></div>`))
	x := DefaultExtractor()

	first, err := x.Extract(body, pageURL)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	second, err := x.Extract(body, pageURL)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if first.Title != second.Title || first.Author != second.Author ||
		strings.Join(first.Genres, ",") != strings.Join(second.Genres, ",") ||
		strings.Join(first.Comments, ",") != strings.Join(second.Comments, ",") {
		t.Fatalf("extraction differs: %+v vs %+v", first, second)
	}
}
