// Package datasheet fetches product datasheet PDFs and extracts bounded
// plain text for grounding. Every failure here degrades to empty text;
// a datasheet is supplementary context, never a hard requirement.
package datasheet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"

	"github.com/bigdipper/sales-assistant/internal/observability"
)

// Config holds datasheet extraction settings.
type Config struct {
	MaxPages  int
	MaxChars  int
	MaxBytes  int64
	Timeout   time.Duration
	UserAgent string
}

// Fetcher downloads and extracts datasheet text.
type Fetcher struct {
	cfg        Config
	httpClient *http.Client
	logger     *observability.Logger
}

// NewFetcher creates a datasheet fetcher.
func NewFetcher(cfg Config, logger *observability.Logger) *Fetcher {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 3
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 4000
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 10 << 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Fetcher{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Text downloads the PDF at url and returns the plain text of its first
// pages, capped by character count. Any failure yields an empty string.
func (f *Fetcher) Text(ctx context.Context, url string) string {
	if url == "" {
		return ""
	}

	path, err := f.download(ctx, url)
	if err != nil {
		f.logger.Debug().Err(err).Str("url", url).Msg("datasheet download failed")
		return ""
	}
	defer os.Remove(path)

	text, err := f.extract(path)
	if err != nil {
		f.logger.Debug().Err(err).Str("url", url).Msg("datasheet extraction failed")
		return ""
	}
	return text
}

// download fetches the PDF to a temp file, enforcing the size cap.
func (f *Fetcher) download(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode}
	}

	tmp, err := os.CreateTemp("", "datasheet-*.pdf")
	if err != nil {
		return "", err
	}

	_, err = io.Copy(tmp, io.LimitReader(resp.Body, f.cfg.MaxBytes))
	closeErr := tmp.Close()
	if err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if closeErr != nil {
		os.Remove(tmp.Name())
		return "", closeErr
	}
	return tmp.Name(), nil
}

// extract pulls text from the first pages of the PDF.
func (f *Fetcher) extract(path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages > f.cfg.MaxPages {
		pages = f.cfg.MaxPages
	}

	var sb strings.Builder
	for page := 0; page < pages; page++ {
		text, err := doc.Text(page)
		if err != nil {
			break
		}
		sb.WriteString(text)
		sb.WriteString("\n")
		if sb.Len() >= f.cfg.MaxChars {
			break
		}
	}

	return truncateText(strings.TrimSpace(sb.String()), f.cfg.MaxChars), nil
}

// truncateText caps s at max bytes without splitting a multi-byte rune,
// so accented datasheet text stays valid UTF-8 after the cut.
func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}
