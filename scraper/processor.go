package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"

	"github.com/aluiziolira/go-book-harvester/models"
)

// State is a step of the per-item state machine.
type State int

const (
	StateFetching State = iota
	StateExtracting
	StateDownloadingText
	StateDownloadingImage
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateExtracting:
		return "extracting"
	case StateDownloadingText:
		return "downloading_text"
	case StateDownloadingImage:
		return "downloading_image"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options control which artifacts are fetched for an item.
type Options struct {
	SkipText   bool
	SkipImages bool
}

// ItemResult is what the processor reports for one item. Book is nil when
// State is StateFailed; FailedIn names the step that failed.
type ItemResult struct {
	Ref      models.ItemReference
	Book     *models.Book
	State    State
	FailedIn State
	Err      error
	// Partial is set when an artifact download failed and its field was left empty.
	Partial bool
}

// Extractor parses a fetched page into a record.
type Extractor interface {
	Extract(body []byte, pageURL string) (*models.Book, error)
}

// Processor runs one item through fetch, extraction and artifact downloads.
type Processor struct {
	fetcher    *Fetcher
	extractor  Extractor
	downloader *Downloader
	metrics    *Metrics
	booksDir   string
	imagesDir  string
}

// NewProcessor builds a processor writing artifacts to booksDir and imagesDir.
func NewProcessor(fetcher *Fetcher, extractor Extractor, downloader *Downloader, metrics *Metrics, booksDir, imagesDir string) *Processor {
	return &Processor{
		fetcher:    fetcher,
		extractor:  extractor,
		downloader: downloader,
		metrics:    metrics,
		booksDir:   booksDir,
		imagesDir:  imagesDir,
	}
}

// Process handles one item. Page fetch and extraction failures fail the item;
// artifact failures leave the matching field empty and the item continues.
func (p *Processor) Process(ctx context.Context, ref models.ItemReference, opts Options) ItemResult {
	res := ItemResult{Ref: ref, State: StateFetching}
	logger := slog.With(slog.Int("id", ref.ID()))

	logger.Debug("lookup book", slog.String("url", ref.PageURL()))
	page := p.fetcher.Fetch(ctx, ref.PageURL())
	if err := page.Err(); err != nil {
		return p.fail(res, err)
	}

	res.State = StateExtracting
	book, err := p.extractor.Extract(page.Body, ref.PageURL())
	if err != nil {
		return p.fail(res, err)
	}
	book.ID = ref.ID()
	res.Book = book

	if !opts.SkipText {
		res.State = StateDownloadingText
		bookPath, err := p.downloader.Download(ctx, Artifact{
			Kind:   KindText,
			URL:    ref.DownloadURL(),
			Name:   book.Title,
			Dir:    p.booksDir,
			Ext:    "txt",
			ItemID: ref.ID(),
		})
		if err != nil {
			p.skipArtifact(logger, &res, KindText, err)
		} else {
			book.BookPath = bookPath
		}
	}

	if !opts.SkipImages && book.ImageURL != "" {
		res.State = StateDownloadingImage
		imgSrc, err := p.downloader.Download(ctx, Artifact{
			Kind:   KindImage,
			URL:    book.ImageURL,
			Name:   imageName(book.ImageURL),
			Dir:    p.imagesDir,
			ItemID: ref.ID(),
		})
		if err != nil {
			p.skipArtifact(logger, &res, KindImage, err)
		} else {
			book.ImgSrc = imgSrc
		}
	}

	res.State = StateComplete
	p.metrics.IncItem(StateComplete.String())
	return res
}

func (p *Processor) fail(res ItemResult, err error) ItemResult {
	res.FailedIn = res.State
	res.State = StateFailed
	res.Book = nil
	res.Err = err
	p.metrics.IncItem(StateFailed.String())
	p.metrics.IncError(ErrorLabel(err))
	return res
}

func (p *Processor) skipArtifact(logger *slog.Logger, res *ItemResult, kind string, err error) {
	res.Partial = true
	p.metrics.IncError(ErrorLabel(err))
	logger.Warn("artifact skipped",
		slog.String("kind", kind),
		slog.String("category", ErrorLabel(err)),
		slog.Any("error", err),
	)
}

// imageName returns the last path segment of an image URL.
func imageName(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return path.Base(imageURL)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return ""
	}
	return name
}
