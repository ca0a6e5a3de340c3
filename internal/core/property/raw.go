package property

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// RawScalar accepts whatever scalar the upstream export put in a field
// (string, number, bool, null) and carries it as text for the parsers.
type RawScalar string

func (r *RawScalar) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = RawScalar(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*r = RawScalar(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*r = RawScalar(strconv.FormatBool(b))
		return nil
	}
	return fmt.Errorf("unsupported scalar: %s", string(data))
}

func (r RawScalar) String() string { return string(r) }

func (r RawScalar) Empty() bool { return string(r) == "" }

type RawSubject struct {
	Address              RawScalar `json:"address"`
	CityProvinceZip      RawScalar `json:"subject_city_province_zip"`
	MunicipalityDistrict RawScalar `json:"municipality_district"`
	StructureType        RawScalar `json:"structure_type"`
	SubjectAge           RawScalar `json:"subject_age"`
	EffectiveAge         RawScalar `json:"effective_age"`
	EffectiveDate        RawScalar `json:"effective_date"`
	GLA                  RawScalar `json:"gla"`
	LotSizeSF            RawScalar `json:"lot_size_sf"`
	RoomCount            RawScalar `json:"room_count"`
	NumBeds              RawScalar `json:"num_beds"`
	NumBaths             RawScalar `json:"num_baths"`
	Condition            RawScalar `json:"condition"`
}

type RawComp struct {
	Address           RawScalar `json:"address"`
	CityProvince      RawScalar `json:"city_province"`
	PropType          RawScalar `json:"prop_type"`
	Age               RawScalar `json:"age"`
	SaleDate          RawScalar `json:"sale_date"`
	DistanceToSubject RawScalar `json:"distance_to_subject"`
	GLA               RawScalar `json:"gla"`
	LotSize           RawScalar `json:"lot_size"`
	RoomCount         RawScalar `json:"room_count"`
	BedCount          RawScalar `json:"bed_count"`
	BathCount         RawScalar `json:"bath_count"`
	SalePrice         RawScalar `json:"sale_price"`
	Condition         RawScalar `json:"condition"`
}

type RawPoolProperty struct {
	Address         RawScalar `json:"address"`
	City            RawScalar `json:"city"`
	Province        RawScalar `json:"province"`
	PostalCode      RawScalar `json:"postal_code"`
	PropertySubType RawScalar `json:"property_sub_type"`
	YearBuilt       RawScalar `json:"year_built"`
	CloseDate       RawScalar `json:"close_date"`
	GLA             RawScalar `json:"gla"`
	LotSizeSF       RawScalar `json:"lot_size_sf"`
	RoomCount       RawScalar `json:"room_count"`
	Bedrooms        RawScalar `json:"bedrooms"`
	FullBaths       RawScalar `json:"full_baths"`
	HalfBaths       RawScalar `json:"half_baths"`
	ClosePrice      RawScalar `json:"close_price"`
	Condition       RawScalar `json:"condition"`
}

type RawAppraisal struct {
	OrderID    RawScalar         `json:"orderID"`
	Subject    RawSubject        `json:"subject"`
	Comps      []RawComp         `json:"comps"`
	Properties []RawPoolProperty `json:"properties"`
}

type RawDataset struct {
	Appraisals []RawAppraisal `json:"appraisals"`
}

// LoadRawDataset reads the raw appraisals export. A missing or unreadable
// dataset is fatal to the run, unlike every per-record failure downstream.
func LoadRawDataset(path string) (*RawDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset '%s': %w", path, err)
	}
	var ds RawDataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset '%s': %w", path, err)
	}
	return &ds, nil
}

// SaveDataset writes a cleaned dataset artifact.
func SaveDataset(path string, ds *Dataset) error {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write dataset '%s': %w", path, err)
	}
	return nil
}

// LoadDataset reads a cleaned dataset artifact back.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset '%s': %w", path, err)
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset '%s': %w", path, err)
	}
	return &ds, nil
}
