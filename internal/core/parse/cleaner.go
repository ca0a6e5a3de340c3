package parse

import (
	"log"
	"strings"

	"github.com/agenthands/comprank/internal/core/property"
)

// Cleaner turns raw appraisal records into cleaned property records. Every
// attribute degrades independently; only a record missing its address is
// dropped (and logged), per the malformed-record rule.
type Cleaner struct {
	Types     *TypeResolver
	Collector *Collector
}

func NewCleaner(fuzzyThreshold int) *Cleaner {
	return &Cleaner{
		Types:     NewTypeResolver(fuzzyThreshold),
		Collector: NewCollector(),
	}
}

// CleanDataset cleans every appraisal and returns the cleaned dataset plus
// the collector holding the distinct condition strings seen along the way.
func (c *Cleaner) CleanDataset(raw *property.RawDataset) (*property.Dataset, *Collector) {
	ds := &property.Dataset{Appraisals: make([]property.Appraisal, 0, len(raw.Appraisals))}
	for i := range raw.Appraisals {
		ds.Appraisals = append(ds.Appraisals, c.CleanAppraisal(&raw.Appraisals[i]))
	}
	return ds, c.Collector
}

func (c *Cleaner) CleanAppraisal(raw *property.RawAppraisal) property.Appraisal {
	orderID := strings.TrimSpace(raw.OrderID.String())

	a := property.Appraisal{
		OrderID: orderID,
		Subject: c.cleanSubject(&raw.Subject),
	}

	for i := range raw.Comps {
		comp := &raw.Comps[i]
		if strings.TrimSpace(comp.Address.String()) == "" {
			log.Printf("Skipping comp with no address in order %s", orderID)
			continue
		}
		a.Comps = append(a.Comps, c.cleanComp(comp))
	}

	for i := range raw.Properties {
		prop := &raw.Properties[i]
		if strings.TrimSpace(prop.Address.String()) == "" {
			log.Printf("Skipping pool property with no address in order %s", orderID)
			continue
		}
		a.Pool = append(a.Pool, c.cleanPoolProperty(prop))
	}

	return a
}

func (c *Cleaner) cleanSubject(raw *property.RawSubject) property.Record {
	effectiveDate := Date(raw.EffectiveDate.String())

	rec := property.Record{
		Address:       strings.TrimSpace(raw.Address.String()),
		Context:       contextParts(raw.CityProvinceZip.String(), raw.MunicipalityDistrict.String()),
		RawType:       raw.StructureType.String(),
		PropertyType:  c.Types.Resolve(raw.StructureType.String()),
		Age:           Age(raw.SubjectAge.String(), effectiveDate),
		EffectiveAge:  Age(raw.EffectiveAge.String(), effectiveDate),
		EffectiveDate: effectiveDate,
		GLA:           GLA(raw.GLA.String()),
		LotSizeSF:     LotSize(raw.LotSizeSF.String()),
		RoomCount:     Count(raw.RoomCount.String()),
		Bedrooms:      Count(raw.NumBeds.String()),
		Condition:     raw.Condition.String(),
	}
	rec.BathScore, rec.FullBaths, rec.HalfBaths = BathScore(raw.NumBaths.String())

	c.Collector.AddSubjectCondition(rec.Condition)
	return rec
}

func (c *Cleaner) cleanComp(raw *property.RawComp) property.Record {
	saleDate := Date(raw.SaleDate.String())

	rec := property.Record{
		Address:      strings.TrimSpace(raw.Address.String()),
		Context:      contextParts(raw.CityProvince.String()),
		RawType:      raw.PropType.String(),
		PropertyType: c.Types.Resolve(raw.PropType.String()),
		Age:          Age(raw.Age.String(), saleDate),
		GLA:          GLA(raw.GLA.String()),
		LotSizeSF:    LotSize(raw.LotSize.String()),
		RoomCount:    Count(raw.RoomCount.String()),
		Bedrooms:     Count(raw.BedCount.String()),
		SaleDate:     saleDate,
		SalePrice:    Price(raw.SalePrice.String()),
		DistanceKM:   DistanceKM(raw.DistanceToSubject.String()),
		Condition:    raw.Condition.String(),
	}
	rec.BathScore, rec.FullBaths, rec.HalfBaths = BathScore(raw.BathCount.String())

	c.Collector.AddCompCondition(rec.Condition)
	return rec
}

func (c *Cleaner) cleanPoolProperty(raw *property.RawPoolProperty) property.Record {
	closeDate := Date(raw.CloseDate.String())

	rec := property.Record{
		Address:      strings.TrimSpace(raw.Address.String()),
		Context:      contextParts(raw.City.String(), raw.Province.String(), raw.PostalCode.String()),
		RawType:      raw.PropertySubType.String(),
		PropertyType: c.Types.Resolve(raw.PropertySubType.String()),
		Age:          Age(raw.YearBuilt.String(), closeDate),
		GLA:          GLA(raw.GLA.String()),
		LotSizeSF:    LotSize(raw.LotSizeSF.String()),
		RoomCount:    Count(raw.RoomCount.String()),
		Bedrooms:     Count(raw.Bedrooms.String()),
		SaleDate:     closeDate,
		SalePrice:    Price(raw.ClosePrice.String()),
		Condition:    raw.Condition.String(),
	}
	rec.BathScore, rec.FullBaths, rec.HalfBaths = BathScoreFromCounts(raw.FullBaths.String(), raw.HalfBaths.String())

	c.Collector.AddPoolCondition(rec.Condition)
	return rec
}

func contextParts(parts ...string) []string {
	var out []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
