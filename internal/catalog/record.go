// Package catalog talks to the vendor's undocumented product backend.
package catalog

import (
	"strconv"

	"github.com/bigdipper/sales-assistant/internal/extract"
)

// Record is the canonical product record used everywhere downstream.
// A record is immutable once fetched; re-resolution replaces the cached copy.
type Record struct {
	ID               int      `json:"productId"`
	Code             string   `json:"code"`
	DescriptionShort string   `json:"descriptionShort"`
	DescriptionLong  string   `json:"descriptionLong"`
	Price            float64  `json:"price"`
	Stock            int      `json:"stock"`
	Image            string   `json:"image,omitempty"`
	DataSheet        string   `json:"dataSheet,omitempty"`
	Links            []string `json:"links,omitempty"`
}

// Valid reports whether the record carries the minimum required fields:
// an identifier plus a code or a description.
func (r Record) Valid() bool {
	if r.ID == 0 && r.Code == "" {
		return false
	}
	return r.Code != "" || r.DescriptionLong != "" || r.DescriptionShort != ""
}

// CompactRecord maps a raw backend payload to the canonical record. The
// mapping is total: absent or oddly-typed optional fields default to zero
// values instead of failing, so downstream consumers never break on a
// missing field. Key casing variants from different backend revisions are
// all accepted.
func CompactRecord(raw map[string]any) Record {
	rec := Record{
		ID:               intField(raw, "ProductId", "productId", "Id", "id"),
		Code:             extract.NormalizeCode(stringField(raw, "Code", "code")),
		DescriptionShort: stringField(raw, "DescriptionShort", "descriptionShort"),
		DescriptionLong:  stringField(raw, "DescriptionLong", "descriptionLong"),
		Price:            floatField(raw, "Price", "price"),
		Stock:            intField(raw, "Stock", "stock"),
		Image:            stringField(raw, "Image", "image"),
		DataSheet:        stringField(raw, "DataSheet", "dataSheet", "Datasheet"),
	}

	for _, key := range []string{"Links", "links"} {
		if list, ok := raw[key].([]any); ok {
			for _, item := range list {
				if s, ok := item.(string); ok && s != "" {
					rec.Links = append(rec.Links, s)
				}
			}
			break
		}
	}

	return rec
}

func stringField(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func intField(raw map[string]any, keys ...string) int {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case string:
			if parsed, err := strconv.Atoi(n); err == nil {
				return parsed
			}
		}
	}
	return 0
}

func floatField(raw map[string]any, keys ...string) float64 {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case string:
			if parsed, err := strconv.ParseFloat(n, 64); err == nil {
				return parsed
			}
		}
	}
	return 0
}
