// Package geo resolves property addresses to coordinates through a persistent
// cache backed by an external geocoding collaborator, and computes
// subject-candidate distances.
package geo

import (
	"strings"
)

var suffixAbbreviations = []struct{ long, short string }{
	{"drive", "dr"},
	{"road", "rd"},
	{"street", "st"},
	{"avenue", "ave"},
}

// NormalizeAddress lowercases, trims, and abbreviates common street-suffix
// words so that spelling variants of one address share a cache key.
func NormalizeAddress(address string) string {
	s := strings.ToLower(strings.TrimSpace(address))
	for _, ab := range suffixAbbreviations {
		s = strings.ReplaceAll(s, ab.long, ab.short)
	}
	return s
}

// EnrichAddress appends context parts (city, province, postal code) that the
// normalized address does not already contain, producing the query string
// sent to the geocoder.
func EnrichAddress(address string, context []string) string {
	base := NormalizeAddress(address)
	if base == "" {
		return ""
	}
	components := []string{base}
	for _, part := range context {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		if !strings.Contains(base, strings.ToLower(p)) {
			components = append(components, p)
		}
	}
	return strings.Join(components, ", ")
}
