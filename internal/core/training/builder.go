// Package training flattens cleaned appraisals into the labeled ranking
// table: one row per unique candidate address per order.
package training

import (
	"github.com/agenthands/comprank/internal/core/feature"
	"github.com/agenthands/comprank/internal/core/property"
	"github.com/agenthands/comprank/internal/geo"
)

// Attributes carries the raw (pre-diff) values the review surface shows
// alongside each comparison.
type Attributes struct {
	Bedrooms     *float64 `json:"bedrooms"`
	FullBaths    int      `json:"num_full_baths"`
	HalfBaths    int      `json:"num_half_baths"`
	GLA          *float64 `json:"gla"`
	LotSizeSF    *float64 `json:"lot_size_sf"`
	PropertyType *string  `json:"property_type"`
	ClosePrice   *float64 `json:"close_price"`
}

// Row is one labeled training example.
type Row struct {
	OrderID          string
	SubjectAddress   string
	CandidateAddress string
	Label            int // 1 = true historical comp

	Diffs feature.DiffSet

	Subject   Attributes
	Candidate Attributes
}

func (r *Row) Vector() []float64 { return r.Diffs.Vector() }

// Build emits one row per unique normalized candidate address within each
// appraisal: comps first with label forced to 1, then pool candidates
// labeled by address overlap with the comp set. Duplicates of an already
// emitted address are skipped, so comps always win over pool entries. There
// is no cross-order deduplication.
func Build(ds *property.Dataset) []Row {
	var rows []Row

	for i := range ds.Appraisals {
		a := &ds.Appraisals[i]

		compAddrs := make(map[string]bool, len(a.Comps))
		for j := range a.Comps {
			if key := geo.NormalizeAddress(a.Comps[j].Address); key != "" {
				compAddrs[key] = true
			}
		}

		used := make(map[string]bool)

		for j := range a.Comps {
			comp := &a.Comps[j]
			key := geo.NormalizeAddress(comp.Address)
			if key == "" || used[key] {
				continue
			}
			used[key] = true
			rows = append(rows, buildRow(a, comp, 1))
		}

		for j := range a.Pool {
			cand := &a.Pool[j]
			key := geo.NormalizeAddress(cand.Address)
			if key == "" || used[key] {
				continue
			}
			used[key] = true

			label := 0
			if compAddrs[key] {
				label = 1
			}
			rows = append(rows, buildRow(a, cand, label))
		}
	}

	return rows
}

func buildRow(a *property.Appraisal, candidate *property.Record, label int) Row {
	return Row{
		OrderID:          a.OrderID,
		SubjectAddress:   a.Subject.Address,
		CandidateAddress: candidate.Address,
		Label:            label,
		Diffs:            feature.Compute(&a.Subject, candidate),
		Subject:          attributesOf(&a.Subject),
		Candidate:        attributesOf(candidate),
	}
}

func attributesOf(rec *property.Record) Attributes {
	return Attributes{
		Bedrooms:     rec.Bedrooms,
		FullBaths:    rec.FullBaths,
		HalfBaths:    rec.HalfBaths,
		GLA:          rec.GLA,
		LotSizeSF:    rec.LotSizeSF,
		PropertyType: rec.PropertyType,
		ClosePrice:   rec.SalePrice,
	}
}
