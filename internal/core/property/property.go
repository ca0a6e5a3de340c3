package property

import (
	"time"
)

// Record is a cleaned property: the subject of an appraisal, a historically
// chosen comp, or a candidate-pool entry. Numeric attributes are pointers so
// that "unparseable" stays distinct from zero all the way through the pipeline.
type Record struct {
	Address string   `json:"address"`
	Context []string `json:"context,omitempty"` // city/province/postal hints for geocoding

	PropertyType *string `json:"property_type"` // canonicalized, nil when unresolvable
	RawType      string  `json:"raw_type,omitempty"`

	Age          *float64 `json:"age"`
	EffectiveAge *float64 `json:"effective_age,omitempty"` // subject only

	GLA       *float64 `json:"gla"`
	LotSizeSF *float64 `json:"lot_size_sf"`
	RoomCount *float64 `json:"room_count"`
	Bedrooms  *float64 `json:"bedrooms"`

	BathScore *float64 `json:"bath_score"`
	FullBaths int      `json:"num_full_baths"`
	HalfBaths int      `json:"num_half_baths"`

	// SaleDate is the sale date for comps and the close date for pool entries.
	SaleDate  *time.Time `json:"sale_date"`
	SalePrice *float64   `json:"sale_price"`

	// EffectiveDate is set on subjects only.
	EffectiveDate *time.Time `json:"effective_date,omitempty"`

	DistanceKM *float64 `json:"distance_to_subject_km,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`

	Condition string `json:"condition,omitempty"`
}

// Appraisal owns its records exclusively; nothing is shared across orders.
type Appraisal struct {
	OrderID string   `json:"orderID"`
	Subject Record   `json:"subject"`
	Comps   []Record `json:"comps"`
	Pool    []Record `json:"properties"`
}

type Dataset struct {
	Appraisals []Appraisal `json:"appraisals"`
}

// Records returns every property record of the appraisal, subject first.
func (a *Appraisal) Records() []*Record {
	recs := make([]*Record, 0, 1+len(a.Comps)+len(a.Pool))
	recs = append(recs, &a.Subject)
	for i := range a.Comps {
		recs = append(recs, &a.Comps[i])
	}
	for i := range a.Pool {
		recs = append(recs, &a.Pool[i])
	}
	return recs
}

func Float(v float64) *float64 { return &v }

func String(v string) *string { return &v }

func Date(t time.Time) *time.Time { return &t }
