// Package extract parses free-text messages for product references.
//
// Extraction is best-effort pattern matching: missed real codes and
// accidental matches are expected and acceptable. Downstream resolution
// validates every candidate against the catalog before it is trusted.
package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// productURLRe matches catalog product-view URLs carrying a numeric id.
var productURLRe = regexp.MustCompile(`(?i)(https?://(?:www\.)?bigdipper\.com\.ar/products/view/(\d+))`)

// modelCodeRe matches hyphen-delimited alphanumeric tokens with 2+ segments
// (e.g. IPC-4M-FA-ZERO, LM108-V2).
var modelCodeRe = regexp.MustCompile(`\b([A-Za-z0-9]+(?:-[A-Za-z0-9]+)+)\b`)

// minCodeLength is the minimum accepted length for a model code candidate.
const minCodeLength = 6

// codeDenylist holds tokens and leading segments that look like model codes
// but never are: protocol names, codec and standard designations.
var codeDenylist = map[string]struct{}{
	"HTTP":  {},
	"HTTPS": {},
	"UTF":   {},
	"ISO":   {},
	"IEEE":  {},
	"SHA":   {},
	"AES":   {},
	"H264":  {},
	"H265":  {},
	"IP66":  {},
	"IP67":  {},
	"RS":    {},
}

// URLMatch is a product-view URL found in a message, paired with its id.
type URLMatch struct {
	URL string
	ID  int
}

// ExtractURLs scans text for product-view URLs and returns them in
// appearance order, deduplicated by URL preserving first occurrence.
// Malformed or non-numeric ids are skipped silently.
func ExtractURLs(text string) []URLMatch {
	if text == "" {
		return nil
	}

	var out []URLMatch
	seen := make(map[string]struct{})

	for _, m := range productURLRe.FindAllStringSubmatch(text, -1) {
		url := m[1]
		if _, ok := seen[url]; ok {
			continue
		}
		id, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		seen[url] = struct{}{}
		out = append(out, URLMatch{URL: url, ID: id})
	}

	return out
}

// NormalizeCode returns the canonical uppercase form of a model code.
// Idempotent: NormalizeCode(NormalizeCode(x)) == NormalizeCode(x).
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ExtractCodes scans text for model code candidates, filters obvious false
// positives and returns normalized codes deduplicated preserving order.
func ExtractCodes(text string) []string {
	if text == "" {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})

	for _, m := range modelCodeRe.FindAllStringSubmatch(text, -1) {
		code := NormalizeCode(m[1])
		if !acceptCode(code) {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}

	return out
}

// acceptCode applies the heuristic filters to a normalized candidate.
func acceptCode(code string) bool {
	if len(code) < minCodeLength {
		return false
	}
	if !strings.ContainsAny(code, "0123456789") {
		return false
	}
	if _, ok := codeDenylist[code]; ok {
		return false
	}
	// Tokens like HTTP-200 or RS-485 start with a denylisted segment.
	if prefix, _, found := strings.Cut(code, "-"); found {
		if _, ok := codeDenylist[prefix]; ok {
			return false
		}
	}
	return true
}

// LooksLikeProductJSON reports whether the message is a pasted structured
// product payload rather than a free-text question.
func LooksLikeProductJSON(text string) bool {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return false
	}
	for _, key := range []string{`"Code"`, `"ProductId"`, `"DescriptionLong"`} {
		if strings.Contains(trimmed, key) {
			return true
		}
	}
	return false
}

// ParseProductJSON parses a pasted product payload into its raw field map.
// Returns ok=false when the text is not a parseable object.
func ParseProductJSON(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)
	var raw map[string]any
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, false
	}
	if len(raw) == 0 {
		return nil, false
	}
	return raw, true
}
