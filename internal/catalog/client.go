package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bigdipper/sales-assistant/internal/extract"
	"github.com/bigdipper/sales-assistant/internal/observability"
)

// ErrNotFound indicates the backend has no record matching the query.
// Transport and parse failures of individual probes are folded into it;
// a distinct error is returned only when every probe failed to reach the
// backend at all.
var ErrNotFound = errors.New("product not found")

// viewPath is the one known backend path for fetching a record by id.
const viewPath = "/Products/View"

// maxResponseBytes caps how much of a backend response is read.
const maxResponseBytes = 2 << 20

// Config holds catalog client settings.
type Config struct {
	BaseURL        string
	UserAgent      string
	ViewTimeout    time.Duration
	SearchTimeout  time.Duration
	ScrapeFallback bool
}

// Client issues requests against the vendor's product backend.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *observability.Logger
	attempts   []searchAttempt
}

// NewClient creates a catalog client.
func NewClient(cfg Config, logger *observability.Logger) *Client {
	if cfg.ViewTimeout == 0 {
		cfg.ViewTimeout = 12 * time.Second
	}
	if cfg.SearchTimeout == 0 {
		cfg.SearchTimeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logger,
		attempts:   buildSearchAttempts(),
	}
}

// FetchByID fetches the product record for a numeric identifier. The view
// endpoint is authoritative; when it is unreachable or serves HTML, the
// public product page is scraped for an embedded record as a last resort.
func (c *Client) FetchByID(ctx context.Context, id int) (Record, error) {
	raw, viewErr := c.postView(ctx, id)
	if viewErr == nil {
		rec := CompactRecord(raw)
		if rec.Valid() {
			return rec, nil
		}
	}

	raw, scrapeErr := c.scrapeProductPage(ctx, id)
	if scrapeErr == nil {
		rec := CompactRecord(raw)
		if rec.Valid() {
			c.logger.Debug().Int("product_id", id).Msg("record recovered from page scrape")
			return rec, nil
		}
	}

	if isTransport(viewErr) && isTransport(scrapeErr) {
		return Record{}, fmt.Errorf("fetch product %d: %w", id, viewErr)
	}
	return Record{}, ErrNotFound
}

// SearchByCode resolves a model code through the ordered attempt chain,
// accepting the first response containing a record whose normalized code
// equals the query. Every probe failure is local; the chain never retries
// an attempt, it moves on.
func (c *Client) SearchByCode(ctx context.Context, code string) (Record, error) {
	want := extract.NormalizeCode(code)
	if want == "" {
		return Record{}, ErrNotFound
	}

	probed := false
	for _, attempt := range c.attempts {
		rec, ok, err := c.trySearch(ctx, attempt, want)
		if err == nil || errors.Is(err, ErrNotFound) {
			probed = true
		}
		if ok {
			c.logger.Debug().
				Str("code", want).
				Str("attempt", attempt.Name()).
				Msg("search attempt matched")
			return rec, nil
		}
		if ctx.Err() != nil {
			return Record{}, fmt.Errorf("search %s: %w", want, ctx.Err())
		}
	}

	if c.cfg.ScrapeFallback {
		rec, err := c.scrapeSearchPage(ctx, want)
		if err == nil {
			return rec, nil
		}
		if errors.Is(err, ErrNotFound) {
			probed = true
		}
	}

	if !probed {
		return Record{}, fmt.Errorf("search %s: backend unreachable", want)
	}
	return Record{}, ErrNotFound
}

// postView issues the fixed product-by-id request.
func (c *Client) postView(ctx context.Context, id int) (map[string]any, error) {
	raw, err := c.postJSON(ctx, c.cfg.BaseURL+viewPath, map[string]any{"ProductId": id}, c.cfg.ViewTimeout)
	if err != nil {
		return nil, err
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrNotFound
	}
	if !hasIdentifyingField(obj) {
		return nil, ErrNotFound
	}
	return obj, nil
}

// trySearch runs one search attempt. ok is true only when a code-matching
// record was produced; err reports transport-level failure of this probe.
func (c *Client) trySearch(ctx context.Context, attempt searchAttempt, want string) (Record, bool, error) {
	raw, err := c.postJSON(ctx, c.cfg.BaseURL+attempt.Path, map[string]any{attempt.PayloadKey: want}, c.cfg.SearchTimeout)
	if err != nil {
		return Record{}, false, err
	}

	for _, item := range candidateItems(raw) {
		got := extract.NormalizeCode(stringField(item, "Code", "code"))
		if got != want {
			continue
		}

		// A full record ships its long description; otherwise the item
		// only carries an id and the view endpoint completes it.
		if stringField(item, "DescriptionLong", "descriptionLong") != "" {
			rec := CompactRecord(item)
			if rec.Valid() {
				return rec, true, nil
			}
			continue
		}

		pid := intField(item, "ProductId", "productId", "Id", "id")
		if pid == 0 {
			continue
		}
		rec, err := c.FetchByID(ctx, pid)
		if err != nil || rec.Code != want {
			continue
		}
		return rec, true, nil
	}

	return Record{}, false, nil
}

// scrapeProductPage pulls the public product page and digs out an embedded
// JSON fragment mentioning the id. Best effort only.
func (c *Client) scrapeProductPage(ctx context.Context, id int) (map[string]any, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/products/view/%d", c.cfg.BaseURL, id), c.cfg.ViewTimeout)
	if err != nil {
		return nil, err
	}

	fragmentRe := regexp.MustCompile(fmt.Sprintf(`\{[^{}]*"ProductId"\s*:\s*%d[^{}]*\}`, id))
	fragment := fragmentRe.FindString(body)
	if fragment == "" {
		return nil, ErrNotFound
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(fragment), &raw); err != nil {
		return nil, ErrNotFound
	}
	return raw, nil
}

// viewLinkRe matches product-view hrefs on rendered catalog pages.
var viewLinkRe = regexp.MustCompile(`/products/view/(\d+)`)

// scrapeSearchPage crawls the public search page for the first product link
// adjacent to the queried code text and resolves that id through the view
// endpoint.
func (c *Client) scrapeSearchPage(ctx context.Context, want string) (Record, error) {
	pageURL := c.cfg.BaseURL + "/search?q=" + url.QueryEscape(want)
	body, err := c.get(ctx, pageURL, c.cfg.SearchTimeout)
	if err != nil {
		return Record{}, err
	}

	// Prefer the first view link after the code text; fall back to the
	// first view link on the page.
	section := body
	if idx := strings.Index(strings.ToUpper(body), want); idx >= 0 {
		section = body[idx:]
	}
	m := viewLinkRe.FindStringSubmatch(section)
	if m == nil {
		m = viewLinkRe.FindStringSubmatch(body)
	}
	if m == nil {
		return Record{}, ErrNotFound
	}

	id, err := strconv.Atoi(m[1])
	if err != nil || id == 0 {
		return Record{}, ErrNotFound
	}

	rec, err := c.FetchByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.Code != want {
		return Record{}, ErrNotFound
	}
	c.logger.Debug().Str("code", want).Int("product_id", id).Msg("record recovered from search page scrape")
	return rec, nil
}

// postJSON posts a JSON payload and decodes a JSON response. Responses
// served with a non-JSON content type are still accepted when the body
// text is itself a JSON value, a quirk of this backend.
func (c *Client) postJSON(ctx context.Context, endpoint string, payload map[string]any, timeout time.Duration) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("post %s: status %d: %w", endpoint, resp.StatusCode, ErrNotFound)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	text := strings.TrimSpace(string(data))
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		if !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "[") {
			return nil, fmt.Errorf("post %s: non-JSON body: %w", endpoint, ErrNotFound)
		}
	}

	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("post %s: decode: %w", endpoint, ErrNotFound)
	}
	return raw, nil
}

// get fetches a page body as text.
func (c *Client) get(ctx context.Context, pageURL string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("get %s: status %d: %w", pageURL, resp.StatusCode, ErrNotFound)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}
	return string(data), nil
}

// candidateItems flattens the search response shapes this backend has been
// seen to produce: a bare list, or an object wrapping one under a handful
// of key spellings.
func candidateItems(raw any) []map[string]any {
	var items []map[string]any

	appendList := func(list []any) {
		for _, entry := range list {
			if obj, ok := entry.(map[string]any); ok {
				items = append(items, obj)
			}
		}
	}

	switch v := raw.(type) {
	case []any:
		appendList(v)
	case map[string]any:
		for _, key := range []string{"results", "Results", "data", "Data"} {
			if list, ok := v[key].([]any); ok {
				appendList(list)
				break
			}
		}
	}

	return items
}

// hasIdentifyingField reports whether a payload looks like a product record.
func hasIdentifyingField(obj map[string]any) bool {
	for _, key := range []string{"Code", "code", "ProductId", "productId", "DescriptionLong", "descriptionLong"} {
		if _, ok := obj[key]; ok {
			return true
		}
	}
	return false
}

// isTransport reports whether err is a transport-level failure rather than
// a structural "not found".
func isTransport(err error) bool {
	return err != nil && !errors.Is(err, ErrNotFound)
}
