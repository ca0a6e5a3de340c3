package explain

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var explanationHeader = []string{
	"orderID", "rank", "candidate_address", "subject_address", "score",
	"positive_factors", "negative_factors", "explanation",
	"candidate_bedrooms", "candidate_num_full_baths", "candidate_num_half_baths",
	"candidate_gla", "candidate_lot_size_sf", "candidate_property_type",
	"candidate_close_price",
}

// SaveTable writes the explanation artifact. Rows are assumed already
// sorted by order then rank, as BuildAll emits them.
func SaveTable(path string, exps []Explanation) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create explanations '%s': %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(explanationHeader); err != nil {
		return err
	}
	for i := range exps {
		e := &exps[i]
		rec := []string{
			e.OrderID,
			strconv.Itoa(e.Rank),
			e.CandidateAddress,
			e.SubjectAddress,
			strconv.FormatFloat(e.Score, 'f', 6, 64),
			encodeFactors(e.Positive),
			encodeFactors(e.Negative),
			e.Narrative,
			floatCell(e.Candidate.Bedrooms),
			strconv.Itoa(e.Candidate.FullBaths),
			strconv.Itoa(e.Candidate.HalfBaths),
			floatCell(e.Candidate.GLA),
			floatCell(e.Candidate.LotSizeSF),
			strCell(e.Candidate.PropertyType),
			floatCell(e.Candidate.ClosePrice),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// LoadTable reads the explanation artifact back for serving.
func LoadTable(path string) ([]Explanation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open explanations '%s': %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read explanations '%s': %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	exps := make([]Explanation, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) != len(explanationHeader) {
			return nil, fmt.Errorf("explanation row has %d columns, want %d", len(rec), len(explanationHeader))
		}
		e := Explanation{
			OrderID:          rec[0],
			CandidateAddress: rec[2],
			SubjectAddress:   rec[3],
			Narrative:        rec[7],
		}
		e.Rank, _ = strconv.Atoi(rec[1])
		e.Score, _ = strconv.ParseFloat(rec[4], 64)
		e.Positive = decodeFactors(rec[5])
		e.Negative = decodeFactors(rec[6])
		e.Candidate.Bedrooms = parseFloatCell(rec[8])
		e.Candidate.FullBaths, _ = strconv.Atoi(rec[9])
		e.Candidate.HalfBaths, _ = strconv.Atoi(rec[10])
		e.Candidate.GLA = parseFloatCell(rec[11])
		e.Candidate.LotSizeSF = parseFloatCell(rec[12])
		e.Candidate.PropertyType = parseStrCell(rec[13])
		e.Candidate.ClosePrice = parseFloatCell(rec[14])
		exps = append(exps, e)
	}
	return exps, nil
}

func encodeFactors(factors []Factor) string {
	parts := make([]string, len(factors))
	for i, f := range factors {
		parts[i] = fmt.Sprintf("%s:%+.6f", f.Name, f.Contribution)
	}
	return strings.Join(parts, ";")
}

func decodeFactors(s string) []Factor {
	if s == "" {
		return nil
	}
	var factors []Factor
	for _, part := range strings.Split(s, ";") {
		name, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		c, err := strconv.ParseFloat(val, 64)
		if err != nil {
			continue
		}
		factors = append(factors, Factor{Name: name, Contribution: c})
	}
	return factors
}

func floatCell(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func strCell(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func parseFloatCell(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseStrCell(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
