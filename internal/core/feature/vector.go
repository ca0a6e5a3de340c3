package feature

import (
	"math"
)

// Names is the canonical feature ordering shared by the training table, the
// ranking model, and attribution. Column order is part of the model artifact
// contract and must not be reshuffled.
var Names = []string{
	"bath_score_diff", "full_baths_diff", "half_baths_diff",
	"room_count_diff", "bedrooms_diff", "effective_age_diff",
	"subject_age_diff", "lot_size_sf_diff", "gla_diff",
	"abs_bath_score_diff", "abs_full_bath_diff", "abs_half_bath_diff",
	"abs_room_count_diff", "abs_bedrooms_diff", "abs_effective_age_diff",
	"abs_subject_age_diff", "abs_lot_size_sf_diff", "abs_gla_diff",
	"same_property_type", "sold_recently",
}

// Vector flattens the diff set into the canonical order, with NaN standing
// for missing. Absolute variants derive from the signed diffs.
func (d *DiffSet) Vector() []float64 {
	signed := []*float64{
		d.BathScoreDiff, d.FullBathsDiff, d.HalfBathsDiff,
		d.RoomCountDiff, d.BedroomsDiff, d.EffectiveAgeDiff,
		d.SubjectAgeDiff, d.LotSizeDiff, d.GLADiff,
	}

	vec := make([]float64, 0, len(Names))
	for _, p := range signed {
		vec = append(vec, deref(p))
	}
	for _, p := range signed {
		if p == nil {
			vec = append(vec, math.NaN())
		} else {
			vec = append(vec, math.Abs(*p))
		}
	}
	vec = append(vec, deref(d.SamePropertyType), deref(d.SoldRecently))
	return vec
}

func deref(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
