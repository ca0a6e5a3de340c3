// Package parse normalizes the noisy textual attributes found in appraisal
// exports. Every function here is pure and never returns an error: anything
// ambiguous degrades to nil and flows downstream as a missing value.
package parse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	sqmToSqft  = 10.7639
	acreToSqft = 43560
)

var (
	ageNumberRe = regexp.MustCompile(`(\d{1,4})`)
	decimalRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
	lotUnitRe   = regexp.MustCompile(`(sf|sqft|sqm|acres?|\+/-|±|m|ft|')`)
)

// dateLayouts covers the formats seen in the raw exports.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"Jan 02, 2006",
	"Jan 2, 2006",
	"Jan/02/2006",
	"Jan/2/2006",
	"January 2, 2006",
	"02-Jan-2006",
	"Jan-02-2006",
	"2006-01-02 15:04:05",
}

// Date parses a raw date string, nil on failure.
func Date(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// Age normalizes an age or year-built value against a reference date
// (the subject's effective date, or the candidate's sale/close date).
// "New" means zero; a number that looks like a construction year is
// converted to an age in years.
func Age(raw string, ref *time.Time) *float64 {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return nil
	}
	if strings.Contains(s, "new") {
		zero := 0.0
		return &zero
	}

	m := ageNumberRe.FindString(s)
	if m == "" {
		return nil
	}
	num, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}

	if ref == nil {
		return nil
	}
	year := ref.Year()

	var age float64
	if num >= 999 && num <= year {
		age = float64(year - num)
	} else {
		age = float64(num)
	}
	return &age
}

// GLA extracts a gross living area in square feet, converting from square
// meters when the unit text says so.
func GLA(raw string) *float64 {
	s := strings.ToLower(strings.ReplaceAll(raw, ",", ""))
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	m := decimalRe.FindString(s)
	if m == "" {
		return nil
	}
	number, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}

	if hasSqmToken(s) {
		number *= sqmToSqft
	}

	v := math.Round(number)
	return &v
}

func hasSqmToken(s string) bool {
	if strings.Contains(s, "sq m") {
		return true
	}
	for _, tok := range strings.Fields(s) {
		if tok == "sqm" {
			return true
		}
	}
	return false
}

// LotSize extracts a lot size in square feet. Tokens that describe a
// non-measurement ("condo", "common", "n/a") reject the whole value, and a
// slash keeps only its right-hand side (the area, not the dimensions).
// Unit conversion is decided on the ORIGINAL text, before suffix stripping.
func LotSize(raw string) *float64 {
	original := strings.ToLower(strings.ReplaceAll(raw, ",", ""))
	original = strings.TrimSpace(original)
	s := original

	if s == "" || s == "sqft" || s == "sqm" ||
		strings.Contains(s, "n/a") || strings.Contains(s, "condo") || strings.Contains(s, "common") {
		return nil
	}

	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		s = strings.TrimSpace(s[idx+1:])
	}

	s = strings.TrimSpace(lotUnitRe.ReplaceAllString(s, ""))

	m := decimalRe.FindString(s)
	if m == "" {
		return nil
	}
	number, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}

	switch {
	case strings.Contains(original, "sqm"):
		number *= sqmToSqft
	case strings.Contains(original, "acre"), strings.Contains(original, "ac"):
		number *= acreToSqft
	}
	// Otherwise assume sqft.

	v := math.Round(number)
	return &v
}

// Count parses a room or bedroom count. "3+1" style values sum both parts.
func Count(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	if strings.Contains(s, "+") {
		parts := strings.SplitN(s, "+", 2)
		a, errA := strconv.Atoi(strings.TrimSpace(parts[0]))
		b, errB := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errA != nil || errB != nil {
			return nil
		}
		v := float64(a + b)
		return &v
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	v := float64(n)
	return &v
}

// Price parses a sale/close price, stripping thousands separators.
func Price(raw string) *float64 {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	v := float64(n)
	return &v
}

// DistanceKM parses a pre-computed "distance to subject" such as "1.2 KM".
func DistanceKM(raw string) *float64 {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return nil
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, "km", ""))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
