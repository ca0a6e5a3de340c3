package parse

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// CanonicalTypes is the fixed property-type enumeration every raw label is
// resolved against.
var CanonicalTypes = []string{
	"Townhouse", "Detached", "Condominium", "Semi Detached",
	"High Rise Apartment", "Low Rise Apartment", "Duplex", "Triplex", "Fourplex",
}

// TypeStage resolves a normalized label to a canonical type. The boolean
// reports whether the stage had an answer at all; a true with a nil result
// means "known to be unresolvable" (e.g. vacant land).
type TypeStage interface {
	Resolve(normalized string) (*string, bool)
}

// TableStage is the exact-match synonym table, consulted first.
type TableStage struct {
	Table map[string]*string
}

func (s *TableStage) Resolve(normalized string) (*string, bool) {
	mapped, ok := s.Table[normalized]
	if !ok {
		return nil, false
	}
	if mapped == nil || *mapped == "" {
		return nil, true
	}
	return mapped, true
}

// FuzzyStage scores the label against the canonical enumeration and accepts
// the best partial-ratio match at or above Threshold.
type FuzzyStage struct {
	Candidates []string
	Threshold  int
}

func (s *FuzzyStage) Resolve(normalized string) (*string, bool) {
	best := ""
	bestScore := -1
	bestFull := -1
	for _, cand := range s.Candidates {
		score := fuzzy.PartialRatio(normalized, strings.ToLower(cand))
		// Partial similarity ties (e.g. "semi detached" vs both "Detached"
		// and "Semi Detached") resolve on the full ratio.
		full := fuzzy.Ratio(normalized, strings.ToLower(cand))
		if score > bestScore || (score == bestScore && full > bestFull) {
			best, bestScore, bestFull = cand, score, full
		}
	}
	if bestScore >= s.Threshold {
		return &best, true
	}
	return nil, true
}

// TypeResolver runs its stages in order and returns the first answer.
type TypeResolver struct {
	Stages []TypeStage
}

// NewTypeResolver builds the default two-stage resolver: manual synonym
// table, then fuzzy fallback with the given threshold.
func NewTypeResolver(threshold int) *TypeResolver {
	return &TypeResolver{
		Stages: []TypeStage{
			&TableStage{Table: defaultTypeTable()},
			&FuzzyStage{Candidates: CanonicalTypes, Threshold: threshold},
		},
	}
}

// Resolve canonicalizes a raw property-type label, nil when unresolvable.
func (r *TypeResolver) Resolve(raw string) *string {
	normalized := NormalizeTypeLabel(raw)
	if normalized == "" {
		return nil
	}
	for _, stage := range r.Stages {
		if result, ok := stage.Resolve(normalized); ok {
			return result
		}
	}
	return nil
}

// NormalizeTypeLabel lowercases, trims, and strips the punctuation the
// synonym table keys are written without.
func NormalizeTypeLabel(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "-", " ")
	return s
}

func defaultTypeTable() map[string]*string {
	t := func(name string) *string { return &name }
	return map[string]*string{
		"rural resid":             t("Detached"),
		"rural residential":       t("Detached"),
		"single family":           t("Detached"),
		"single family residence": t("Detached"),
		"overunder":               t("Duplex"),
		"over under":              t("Duplex"),
		"4 plex":                  t("Fourplex"),
		"triplex":                 t("Triplex"),
		"duplex":                  t("Duplex"),
		"condo apt":               t("Condominium"),
		"condo apartment":         t("Condominium"),
		"condo/apt unit":          t("Condominium"),
		"common element condo":    t("Condominium"),
		"row unit":                t("Townhouse"),
		"row unit 2 storey":       t("Townhouse"),
		"row unit 3 storey":       t("Townhouse"),
		"stacked":                 t("Townhouse"),
		"mobiletrailer":           t("Detached"),
		"mobile home":             t("Detached"),
		"mobile":                  t("Detached"),
		"link":                    t("Semi Detached"),
		"farm":                    t("Detached"),
		// Known unresolvable sentinels.
		"vacant land":      nil,
		"residential land": nil,
		"residential":      nil,
		"locker":           nil,
		"other":            nil,
	}
}
