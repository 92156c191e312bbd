package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/aluiziolira/go-book-harvester/models"
)

// PagePlaceholder is substituted with the listing page number in CategoryURLTemplate.
const PagePlaceholder = "{page}"

// NamingStrategy selects how the uniqueness token in artifact filenames is derived.
type NamingStrategy string

const (
	// NamingRandom interposes a short random token.
	NamingRandom NamingStrategy = "random"
	// NamingByID interposes the item id, which keeps filenames reproducible.
	NamingByID NamingStrategy = "id"
)

// Config holds harvester configuration.
type Config struct {
	PageURLTemplate     string
	DownloadURLTemplate string
	CategoryURLTemplate string

	StartID   int
	EndID     int
	IDs       []int
	StartPage int
	EndPage   int

	DestFolder   string
	BooksDir     string
	ImagesDir    string
	OutputFile   string
	OutputFormat string // json, jsonl, csv, yaml, or dual

	SkipText   bool
	SkipImages bool

	Workers         int
	Timeout         time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	UserAgent       string
	Naming          NamingStrategy
	DedupeMaxSize   int
	MetricsAddr     string
	Verbose         bool
}

// DefaultConfig returns defaults for the tululu.org catalog.
func DefaultConfig() *Config {
	return &Config{
		PageURLTemplate:     "https://tululu.org/b{id}/",
		DownloadURLTemplate: "https://tululu.org/txt.php?id={id}",
		CategoryURLTemplate: "https://tululu.org/l55/{page}/",
		StartID:             1,
		EndID:               10,
		StartPage:           1,
		EndPage:             4,
		DestFolder:          "books_content",
		BooksDir:            "books",
		ImagesDir:           "images",
		OutputFile:          "books_info.json",
		OutputFormat:        "json",
		Workers:             1,
		Timeout:             10 * time.Second,
		MaxRetries:          0,
		RetryBackoff:        200 * time.Millisecond,
		RetryBackoffMax:     2 * time.Second,
		UserAgent:           "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Naming:              NamingRandom,
		DedupeMaxSize:       10000,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if err := validateTemplate("page URL template", c.PageURLTemplate, models.IDPlaceholder); err != nil {
		return err
	}
	if err := validateTemplate("download URL template", c.DownloadURLTemplate, models.IDPlaceholder); err != nil {
		return err
	}
	if c.CategoryURLTemplate != "" {
		if err := validateTemplate("category URL template", c.CategoryURLTemplate, PagePlaceholder); err != nil {
			return err
		}
	}

	if len(c.IDs) == 0 {
		if c.StartID <= 0 {
			return fmt.Errorf("start id must be positive")
		}
		if c.EndID < c.StartID {
			return fmt.Errorf("end id (%d) cannot be before start id (%d)", c.EndID, c.StartID)
		}
	}
	for _, id := range c.IDs {
		if id <= 0 {
			return fmt.Errorf("ids must be positive, got %d", id)
		}
	}
	if c.StartPage <= 0 {
		return fmt.Errorf("start page must be positive")
	}
	if c.EndPage < c.StartPage {
		return fmt.Errorf("end page (%d) cannot be before start page (%d)", c.EndPage, c.StartPage)
	}

	if c.DestFolder == "" {
		return fmt.Errorf("destination folder cannot be empty")
	}
	if c.BooksDir == "" || c.ImagesDir == "" {
		return fmt.Errorf("books and images directories cannot be empty")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case "json", "jsonl", "csv", "yaml", "dual":
	default:
		return fmt.Errorf("output format must be json, jsonl, csv, yaml, or dual")
	}

	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Naming != NamingRandom && c.Naming != NamingByID {
		return fmt.Errorf("naming strategy must be random or id")
	}
	if c.DedupeMaxSize < 0 {
		return fmt.Errorf("dedupe max size cannot be negative")
	}

	return nil
}

// Templates returns the per-item URL templates.
func (c *Config) Templates() models.URLTemplates {
	return models.URLTemplates{
		Page:     c.PageURLTemplate,
		Download: c.DownloadURLTemplate,
	}
}

// BooksPath is the directory that receives text artifacts.
func (c *Config) BooksPath() string {
	return filepath.Join(c.DestFolder, c.BooksDir)
}

// ImagesPath is the directory that receives cover images.
func (c *Config) ImagesPath() string {
	return filepath.Join(c.DestFolder, c.ImagesDir)
}

// CategoryPageURL expands the category template for one listing page.
func (c *Config) CategoryPageURL(page int) string {
	return strings.ReplaceAll(c.CategoryURLTemplate, PagePlaceholder, fmt.Sprint(page))
}

// References resolves the configured ID supply into item references.
// An explicit ID list wins over the start/end range.
func (c *Config) References() ([]models.ItemReference, error) {
	tpl := c.Templates()
	if len(c.IDs) == 0 {
		return models.ReferenceRange(c.StartID, c.EndID, tpl)
	}
	refs := make([]models.ItemReference, 0, len(c.IDs))
	for _, id := range c.IDs {
		ref, err := models.NewItemReference(id, tpl)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func validateTemplate(name, tpl, placeholder string) error {
	if tpl == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !strings.Contains(tpl, placeholder) {
		return fmt.Errorf("%s must contain %s", name, placeholder)
	}
	parsed, err := url.Parse(strings.ReplaceAll(tpl, placeholder, "1"))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}
