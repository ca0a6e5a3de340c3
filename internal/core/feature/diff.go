// Package feature computes subject-vs-candidate diff features and their
// canonical vector form consumed by training, ranking, and attribution.
package feature

import (
	"github.com/agenthands/comprank/internal/core/property"
)

// RecentSaleWindowDays is the inclusive window before the subject's
// effective date within which a candidate counts as recently sold.
const RecentSaleWindowDays = 90

// DiffSet holds the signed subject-minus-candidate differences plus the two
// similarity booleans. Nil means one operand was missing; a zero is always a
// real zero, never a stand-in for absent.
type DiffSet struct {
	BathScoreDiff    *float64 `json:"bath_score_diff"`
	FullBathsDiff    *float64 `json:"full_baths_diff"`
	HalfBathsDiff    *float64 `json:"half_baths_diff"`
	RoomCountDiff    *float64 `json:"room_count_diff"`
	BedroomsDiff     *float64 `json:"bedrooms_diff"`
	EffectiveAgeDiff *float64 `json:"effective_age_diff"`
	SubjectAgeDiff   *float64 `json:"subject_age_diff"`
	LotSizeDiff      *float64 `json:"lot_size_sf_diff"`
	GLADiff          *float64 `json:"gla_diff"`

	// SamePropertyType is set only when the subject's type resolves.
	SamePropertyType *float64 `json:"same_property_type"`
	SoldRecently     *float64 `json:"sold_recently"`
}

// Compute derives the full diff set for one candidate. Every numeric diff
// requires both operands to be non-nil; the nil checks are deliberate and
// must not be replaced with zero-value tests.
func Compute(subject, candidate *property.Record) DiffSet {
	d := DiffSet{
		BathScoreDiff:    diff(subject.BathScore, candidate.BathScore),
		FullBathsDiff:    property.Float(float64(subject.FullBaths - candidate.FullBaths)),
		HalfBathsDiff:    property.Float(float64(subject.HalfBaths - candidate.HalfBaths)),
		RoomCountDiff:    diff(subject.RoomCount, candidate.RoomCount),
		BedroomsDiff:     diff(subject.Bedrooms, candidate.Bedrooms),
		EffectiveAgeDiff: diff(subject.EffectiveAge, candidate.Age),
		SubjectAgeDiff:   diff(subject.Age, candidate.Age),
		LotSizeDiff:      diff(subject.LotSizeSF, candidate.LotSizeSF),
		GLADiff:          diff(subject.GLA, candidate.GLA),
	}

	if subject.PropertyType != nil {
		same := 0.0
		if candidate.PropertyType != nil && *candidate.PropertyType == *subject.PropertyType {
			same = 1.0
		}
		d.SamePropertyType = &same
	}

	if subject.EffectiveDate != nil && candidate.SaleDate != nil {
		days := subject.EffectiveDate.Sub(*candidate.SaleDate).Hours() / 24
		recent := 0.0
		if days >= 0 && days <= RecentSaleWindowDays {
			recent = 1.0
		}
		d.SoldRecently = &recent
	}

	return d
}

func diff(subject, candidate *float64) *float64 {
	if subject == nil || candidate == nil {
		return nil
	}
	v := *subject - *candidate
	return &v
}
