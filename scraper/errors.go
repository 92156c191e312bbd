package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aluiziolira/go-book-harvester/parser"
)

// ErrNotFound indicates the source answered with a redirect instead of content,
// which is how it reports unknown or removed items.
type ErrNotFound struct {
	URL        string
	StatusCode int
	Location   string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("not_found: %s redirected (%d) to %s", e.URL, e.StatusCode, e.Location)
}

// ErrTransport indicates a network level failure (dial, DNS, TLS, timeout).
type ErrTransport struct {
	URL string
	Err error
}

func (e ErrTransport) Error() string {
	return fmt.Errorf("transport: %s: %w", e.URL, e.Err).Error()
}

func (e ErrTransport) Unwrap() error {
	return e.Err
}

// Timeout reports whether the underlying failure was a timeout.
func (e ErrTransport) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// ErrHTTPStatus indicates a response that is neither 2xx nor a redirect.
type ErrHTTPStatus struct {
	URL        string
	StatusCode int
}

func (e ErrHTTPStatus) Error() string {
	return fmt.Sprintf("http_status: %s returned %d", e.URL, e.StatusCode)
}

// ErrIO indicates a local filesystem failure while persisting an artifact.
type ErrIO struct {
	Path string
	Err  error
}

func (e ErrIO) Error() string {
	return fmt.Errorf("io: %s: %w", e.Path, e.Err).Error()
}

func (e ErrIO) Unwrap() error {
	return e.Err
}

// ErrorLabel maps an error onto the label used by metrics and diagnostics.
func ErrorLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var transport ErrTransport
	if errors.As(err, &transport) {
		if transport.Timeout() {
			return "timeout"
		}
		return "connection"
	}
	var status ErrHTTPStatus
	if errors.As(err, &status) {
		return "http_status"
	}
	var malformed parser.ErrMalformedPage
	if errors.As(err, &malformed) {
		return "malformed_page"
	}
	var ioErr ErrIO
	if errors.As(err, &ioErr) {
		return "io"
	}
	return "other"
}
