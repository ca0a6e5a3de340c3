package training

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
)

// tableHeader is the persisted training-table schema. The feature columns
// mirror feature.Names; the trailing columns carry the enriched raw
// attributes the review surface displays.
var tableHeader = []string{
	"orderID", "candidate_address", "is_comp", "subject_address",
	"bath_score_diff", "full_baths_diff", "half_baths_diff",
	"room_count_diff", "bedrooms_diff", "effective_age_diff",
	"subject_age_diff", "lot_size_sf_diff", "gla_diff",
	"abs_bath_score_diff", "abs_full_bath_diff", "abs_half_bath_diff",
	"abs_room_count_diff", "abs_bedrooms_diff", "abs_effective_age_diff",
	"abs_subject_age_diff", "abs_lot_size_sf_diff", "abs_gla_diff",
	"same_property_type", "sold_recently",
	"subject_bedrooms", "subject_num_full_baths", "subject_num_half_baths",
	"subject_gla", "subject_lot_size_sf", "subject_property_type",
	"candidate_bedrooms", "candidate_num_full_baths", "candidate_num_half_baths",
	"candidate_gla", "candidate_lot_size_sf", "candidate_property_type",
	"candidate_close_price",
}

// SaveTable writes the training table artifact as CSV, empty cells for
// missing values.
func SaveTable(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create training table '%s': %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tableHeader); err != nil {
		return err
	}

	for i := range rows {
		if err := w.Write(encodeRow(&rows[i])); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// LoadTable reads a training table artifact back into rows.
func LoadTable(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open training table '%s': %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read training table '%s': %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) != len(tableHeader) {
			return nil, fmt.Errorf("training table row has %d columns, want %d", len(rec), len(tableHeader))
		}
		rows = append(rows, decodeRow(rec))
	}
	return rows, nil
}

func encodeRow(row *Row) []string {
	vec := row.Vector()
	out := []string{
		row.OrderID, row.CandidateAddress, strconv.Itoa(row.Label), row.SubjectAddress,
	}
	for _, v := range vec {
		out = append(out, cellFromValue(v))
	}
	out = append(out,
		cell(row.Subject.Bedrooms), strconv.Itoa(row.Subject.FullBaths), strconv.Itoa(row.Subject.HalfBaths),
		cell(row.Subject.GLA), cell(row.Subject.LotSizeSF), cellStr(row.Subject.PropertyType),
		cell(row.Candidate.Bedrooms), strconv.Itoa(row.Candidate.FullBaths), strconv.Itoa(row.Candidate.HalfBaths),
		cell(row.Candidate.GLA), cell(row.Candidate.LotSizeSF), cellStr(row.Candidate.PropertyType),
		cell(row.Candidate.ClosePrice),
	)
	return out
}

func decodeRow(rec []string) Row {
	row := Row{
		OrderID:          rec[0],
		CandidateAddress: rec[1],
		SubjectAddress:   rec[3],
	}
	row.Label, _ = strconv.Atoi(rec[2])

	// Signed diffs and booleans; the abs columns are derived and skipped.
	row.Diffs.BathScoreDiff = parseCell(rec[4])
	row.Diffs.FullBathsDiff = parseCell(rec[5])
	row.Diffs.HalfBathsDiff = parseCell(rec[6])
	row.Diffs.RoomCountDiff = parseCell(rec[7])
	row.Diffs.BedroomsDiff = parseCell(rec[8])
	row.Diffs.EffectiveAgeDiff = parseCell(rec[9])
	row.Diffs.SubjectAgeDiff = parseCell(rec[10])
	row.Diffs.LotSizeDiff = parseCell(rec[11])
	row.Diffs.GLADiff = parseCell(rec[12])
	row.Diffs.SamePropertyType = parseCell(rec[22])
	row.Diffs.SoldRecently = parseCell(rec[23])

	row.Subject.Bedrooms = parseCell(rec[24])
	row.Subject.FullBaths, _ = strconv.Atoi(rec[25])
	row.Subject.HalfBaths, _ = strconv.Atoi(rec[26])
	row.Subject.GLA = parseCell(rec[27])
	row.Subject.LotSizeSF = parseCell(rec[28])
	row.Subject.PropertyType = parseCellStr(rec[29])

	row.Candidate.Bedrooms = parseCell(rec[30])
	row.Candidate.FullBaths, _ = strconv.Atoi(rec[31])
	row.Candidate.HalfBaths, _ = strconv.Atoi(rec[32])
	row.Candidate.GLA = parseCell(rec[33])
	row.Candidate.LotSizeSF = parseCell(rec[34])
	row.Candidate.PropertyType = parseCellStr(rec[35])
	row.Candidate.ClosePrice = parseCell(rec[36])

	return row
}

func cellFromValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func cell(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func cellStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func parseCell(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseCellStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
