package parser

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-book-harvester/models"
)

// Selectors locate the metadata fields on a book page.
type Selectors struct {
	Heading      string
	Image        string
	Genres       string
	CommentBlock string
	CommentText  string
}

// Extractor turns a book page body into a Book record.
type Extractor struct {
	Selectors Selectors
	Separator string
}

// DefaultExtractor returns an extractor for tululu.org book pages.
func DefaultExtractor() *Extractor {
	return &Extractor{
		Selectors: Selectors{
			Heading:      "div#content>h1",
			Image:        "div.bookimage img",
			Genres:       "span.d_book a",
			CommentBlock: "div.texts",
			CommentText:  "span.black",
		},
		Separator: "::",
	}
}

// Extract parses body, fetched from pageURL, into a Book without artifact paths.
func (x *Extractor) Extract(body []byte, pageURL string) (*models.Book, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, ErrMalformedPage{URL: pageURL, Reason: fmt.Sprintf("invalid page url: %v", err)}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, ErrMalformedPage{URL: pageURL, Reason: fmt.Sprintf("parse html: %v", err)}
	}

	heading := doc.Find(x.Selectors.Heading).First()
	if heading.Length() == 0 {
		return nil, ErrMalformedPage{URL: pageURL, Reason: "heading not found"}
	}
	title, author, err := SplitHeader(heading.Text(), x.Separator)
	if err != nil {
		return nil, ErrMalformedPage{URL: pageURL, Reason: err.Error()}
	}

	book := &models.Book{
		Title:    title,
		Author:   author,
		ImageURL: x.imageURL(doc, base),
		Genres:   x.genres(doc),
		Comments: x.comments(doc),
	}
	if err := ValidateBook(book); err != nil {
		return nil, ErrMalformedPage{URL: pageURL, Reason: err.Error()}
	}
	return book, nil
}

func (x *Extractor) imageURL(doc *goquery.Document, base *url.URL) string {
	src, ok := doc.Find(x.Selectors.Image).First().Attr("src")
	if !ok || NormalizeText(src) == "" {
		return ""
	}
	ref, err := url.Parse(NormalizeText(src))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func (x *Extractor) genres(doc *goquery.Document) []string {
	genres := make([]string, 0)
	doc.Find(x.Selectors.Genres).Each(func(_ int, s *goquery.Selection) {
		if text := NormalizeText(s.Text()); text != "" {
			genres = append(genres, text)
		}
	})
	return genres
}

// comments skips blocks without a text span and keeps the rest.
func (x *Extractor) comments(doc *goquery.Document) []string {
	comments := make([]string, 0)
	doc.Find(x.Selectors.CommentBlock).Each(func(_ int, block *goquery.Selection) {
		span := block.Find(x.Selectors.CommentText).First()
		if span.Length() == 0 {
			return
		}
		comments = append(comments, NormalizeText(span.Text()))
	})
	return comments
}
