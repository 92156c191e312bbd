package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"sync"

	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-book-harvester/config"
	"github.com/aluiziolira/go-book-harvester/models"
)

var bookPathPattern = regexp.MustCompile(`/b(\d+)/?$`)

// Catalog walks category listing pages and turns book links into item references.
// It is not safe for concurrent use.
type Catalog struct {
	cfg       *config.Config
	collector *colly.Collector
	metrics   *Metrics
	seen      *lru.Cache[int, struct{}]

	mu         sync.Mutex
	found      []int
	duplicates int

	handlersOnce sync.Once
}

// NewCatalog builds a synchronous collector restricted to the category host.
func NewCatalog(cfg *config.Config, metrics *Metrics) (*Catalog, error) {
	parsed, err := url.Parse(cfg.CategoryPageURL(1))
	if err != nil {
		return nil, fmt.Errorf("parse category url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("category url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.AllowURLRevisit = true

	c := &Catalog{
		cfg:       cfg,
		collector: collector,
		metrics:   metrics,
	}
	if cfg.DedupeMaxSize > 0 {
		cache, err := lru.New[int, struct{}](cfg.DedupeMaxSize)
		if err != nil {
			return nil, fmt.Errorf("create dedupe cache: %w", err)
		}
		c.seen = cache
	}
	return c, nil
}

// Collect visits listing pages startPage..endPage and returns references in
// page order. A page that cannot be fetched is logged and skipped.
func (c *Catalog) Collect(ctx context.Context, startPage, endPage int) ([]models.ItemReference, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.configureHandlers()

	c.mu.Lock()
	c.found = c.found[:0]
	c.duplicates = 0
	c.mu.Unlock()
	if c.seen != nil {
		c.seen.Purge()
	}

	visited := 0
	for page := startPage; page <= endPage; page++ {
		if err := ctx.Err(); err != nil {
			refs, _ := c.references()
			return refs, err
		}
		pageURL := c.cfg.CategoryPageURL(page)
		if err := c.collector.Visit(pageURL); err != nil {
			c.metrics.IncError("catalog")
			slog.Warn("category page skipped",
				slog.Int("page", page),
				slog.String("url", pageURL),
				slog.Any("error", err),
			)
			continue
		}
		visited++
	}

	if visited == 0 {
		return nil, fmt.Errorf("no category pages in %d..%d could be fetched", startPage, endPage)
	}

	c.mu.Lock()
	if c.duplicates > 0 {
		slog.Debug("duplicate book links dropped", slog.Int("count", c.duplicates))
	}
	c.mu.Unlock()
	return c.references()
}

func (c *Catalog) configureHandlers() {
	c.handlersOnce.Do(func() {
		c.collector.OnResponse(func(r *colly.Response) {
			c.metrics.IncRequest("catalog")
		})

		c.collector.OnHTML("div.bookimage a", func(e *colly.HTMLElement) {
			href := e.Attr("href")
			if href == "" {
				return
			}
			id, ok := parseBookID(e.Request.AbsoluteURL(href))
			if !ok {
				return
			}

			c.mu.Lock()
			defer c.mu.Unlock()
			if c.seen != nil {
				if seen, _ := c.seen.ContainsOrAdd(id, struct{}{}); seen {
					c.duplicates++
					return
				}
			}
			c.found = append(c.found, id)
		})
	})
}

func (c *Catalog) references() ([]models.ItemReference, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	refs := make([]models.ItemReference, 0, len(c.found))
	for _, id := range c.found {
		ref, err := models.NewItemReference(id, c.cfg.Templates())
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func parseBookID(link string) (int, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return 0, false
	}
	m := bookPathPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
