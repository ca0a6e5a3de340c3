// Package explain turns ranking scores into reviewable evidence: for each
// appraisal it picks the top scored candidates, decomposes their scores
// into per-feature contributions, and renders a narrative for the
// appraiser.
package explain

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/agenthands/comprank/internal/core/feature"
	"github.com/agenthands/comprank/internal/core/rank"
	"github.com/agenthands/comprank/internal/core/training"
	"github.com/agenthands/comprank/internal/llm"
)

// TopN is how many candidates are explained per order.
const TopN = 3

// FactorsPerSide caps how many positive and negative factors a candidate
// explanation lists.
const FactorsPerSide = 3

// ErrorMarker is stored in place of a narrative when the language model
// fails, so a rebuild can tell rendered rows from failed ones.
const ErrorMarker = "ERROR: explanation generation failed"

// Factor is one feature's additive contribution to a candidate's score,
// together with the feature value it was computed from. Value is NaN when
// the underlying attribute was missing and a default split direction moved
// the score.
type Factor struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// Explanation is one ranked candidate with its supporting evidence.
type Explanation struct {
	OrderID          string
	Rank             int // 1-based within the order
	SubjectAddress   string
	CandidateAddress string
	Score            float64
	Positive         []Factor
	Negative         []Factor
	Narrative        string

	Subject   training.Attributes
	Candidate training.Attributes
}

// Engine scores training rows with a ranking model and narrates the top
// candidates. Narrator may be nil, in which case rows carry no narrative.
type Engine struct {
	Model    *rank.Model
	Narrator llm.Client
	Prompt   string
}

// BuildAll explains every order present in rows, ordered by orderID and,
// within an order, by descending score.
func (e *Engine) BuildAll(ctx context.Context, rows []training.Row) ([]Explanation, error) {
	byOrder := make(map[string][]int)
	var orderIDs []string
	for i := range rows {
		id := rows[i].OrderID
		if _, ok := byOrder[id]; !ok {
			orderIDs = append(orderIDs, id)
		}
		byOrder[id] = append(byOrder[id], i)
	}
	sortOrderIDs(orderIDs)

	var out []Explanation
	for _, id := range orderIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		exps := e.buildOrder(ctx, rows, byOrder[id])
		out = append(out, exps...)
	}
	return out, nil
}

// sortOrderIDs sorts ascending, numerically when every ID is an integer
// (the usual case for order numbers, where "999" precedes "4762597"),
// lexicographically otherwise.
func sortOrderIDs(ids []string) {
	numeric := make(map[string]int64, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			sort.Strings(ids)
			return
		}
		numeric[id] = n
	}
	sort.Slice(ids, func(i, j int) bool { return numeric[ids[i]] < numeric[ids[j]] })
}

func (e *Engine) buildOrder(ctx context.Context, rows []training.Row, indices []int) []Explanation {
	scores := make([]float64, len(indices))
	for i, ri := range indices {
		scores[i] = e.Model.Score(rows[ri].Vector())
	}
	order := rank.Ranking(scores)
	if len(order) > TopN {
		order = order[:TopN]
	}

	var out []Explanation
	for pos, oi := range order {
		row := &rows[indices[oi]]
		exp := Explanation{
			OrderID:          row.OrderID,
			Rank:             pos + 1,
			SubjectAddress:   row.SubjectAddress,
			CandidateAddress: row.CandidateAddress,
			Score:            scores[oi],
			Subject:          row.Subject,
			Candidate:        row.Candidate,
		}
		exp.Positive, exp.Negative = topFactors(e.Model, row.Vector())
		exp.Narrative = e.narrate(ctx, &exp)
		out = append(out, exp)
	}
	return out
}

// topFactors keeps the strongest contributions on each side, largest
// magnitude first. Features missing from the candidate's vector still
// appear when a tree's default direction moved the score.
func topFactors(m *rank.Model, vector []float64) (positive, negative []Factor) {
	terms, _ := m.Contributions(vector)
	for i, v := range terms {
		if v == 0 {
			continue
		}
		f := Factor{Name: feature.Names[i], Value: vector[i], Contribution: v}
		if v > 0 {
			positive = append(positive, f)
		} else {
			negative = append(negative, f)
		}
	}
	sort.Slice(positive, func(i, j int) bool { return positive[i].Contribution > positive[j].Contribution })
	sort.Slice(negative, func(i, j int) bool { return negative[i].Contribution < negative[j].Contribution })

	if len(positive) > FactorsPerSide {
		positive = positive[:FactorsPerSide]
	}
	if len(negative) > FactorsPerSide {
		negative = negative[:FactorsPerSide]
	}
	return positive, negative
}

func (e *Engine) narrate(ctx context.Context, exp *Explanation) string {
	if e.Narrator == nil {
		return ""
	}
	prompt := e.Prompt
	if prompt == "" {
		prompt = DefaultNarrativePrompt
	}
	text, err := e.Narrator.Generate(ctx, fmt.Sprintf(prompt,
		exp.SubjectAddress,
		exp.CandidateAddress,
		exp.Score,
		formatFactors(exp.Positive),
		formatFactors(exp.Negative),
	))
	if err != nil {
		log.Printf("explanation for %s / %s failed: %v", exp.OrderID, exp.CandidateAddress, err)
		return ErrorMarker
	}
	return strings.TrimSpace(text)
}

// DefaultNarrativePrompt asks for a short description of how the model
// read the candidate. Placeholders: subject address, candidate address,
// score, positive factors, negative factors.
const DefaultNarrativePrompt = `You are assisting a real estate appraiser reviewing comparable sales.

Subject property: %s
Candidate comparable: %s
Model score: %.4f

Features the model read as similarity (feature = value, contribution): %s
Features the model read as dissimilarity (feature = value, contribution): %s

In one or two sentences, describe how these features made the model treat
this candidate as similar or different to the subject. Describe the
comparison only; do not judge whether the candidate is a good or bad comp.`

func formatFactors(factors []Factor) string {
	if len(factors) == 0 {
		return "none"
	}
	parts := make([]string, len(factors))
	for i, f := range factors {
		if math.IsNaN(f.Value) {
			parts[i] = fmt.Sprintf("%s = missing (%+.4f)", f.Name, f.Contribution)
			continue
		}
		parts[i] = fmt.Sprintf("%s = %.2f (%+.4f)", f.Name, f.Value, f.Contribution)
	}
	return strings.Join(parts, "; ")
}
