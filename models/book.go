// Package models defines data structures for the harvester.
package models

import "time"

// Book represents one catalog item assembled by the item processor.
type Book struct {
	ID       int      `csv:"id" json:"-" yaml:"-"`
	Title    string   `csv:"title" json:"title" yaml:"title"`
	Author   string   `csv:"author" json:"author" yaml:"author"`
	ImageURL string   `csv:"image_url" json:"image_url" yaml:"image_url"`
	Comments []string `csv:"comments" json:"comments" yaml:"comments"`
	Genres   []string `csv:"genres" json:"genres" yaml:"genres"`
	BookPath string   `csv:"book_path" json:"book_path,omitempty" yaml:"book_path,omitempty"`
	ImgSrc   string   `csv:"img_src" json:"img_src,omitempty" yaml:"img_src,omitempty"`
}

// FailedItem records an ID that produced no record and why.
type FailedItem struct {
	ID     int
	URL    string
	State  string
	Kind   string
	Reason string
}

// BatchResult holds the records of one batch run in input order.
type BatchResult struct {
	Books     []*Book
	Failed    []FailedItem
	Partial   int
	StartTime time.Time
	EndTime   time.Time
}

// Len returns the number of records produced.
func (r *BatchResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Books)
}

// FailuresByKind groups failed items by error kind.
func (r *BatchResult) FailuresByKind() map[string]int {
	out := make(map[string]int)
	if r == nil {
		return out
	}
	for _, f := range r.Failed {
		out[f.Kind]++
	}
	return out
}

// RunSummary holds the overall result of a harvest run.
type RunSummary struct {
	Requested    int
	Succeeded    int
	Failed       int
	Partial      int
	ErrorsByType map[string]int
	Duration     time.Duration
	OutputFile   string
}
