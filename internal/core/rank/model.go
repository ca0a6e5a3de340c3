package rank

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
)

// Sample is one candidate row presented to the ranker: a feature vector,
// its relevance label, and the appraisal order it belongs to. Missing
// feature values are NaN.
type Sample struct {
	OrderID string
	Label   float64
	Vector  []float64
}

// Config controls boosting. Zero values are filled by ApplyDefaults on the
// application config before training starts.
type Config struct {
	Rounds         int
	MaxDepth       int
	LearningRate   float64
	Lambda         float64
	MinChildWeight float64
	TestFraction   float64
	Seed           int64
}

// Model is a gradient-boosted ensemble trained with a grouped pairwise
// objective. Scores are uncalibrated; only their order within an appraisal
// is meaningful.
type Model struct {
	FeatureNames []string `json:"feature_names"`
	BaseScore    float64  `json:"base_score"`
	LearningRate float64  `json:"learning_rate"`
	Trees        []tree   `json:"trees"`
}

// Train boosts regression trees against pairwise logistic gradients, one
// group per order. Samples from single-label groups contribute nothing and
// are tolerated.
func Train(samples []Sample, featureNames []string, cfg Config) (*Model, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no training samples")
	}

	vectors := make([][]float64, len(samples))
	labels := make([]float64, len(samples))
	for i := range samples {
		if len(samples[i].Vector) != len(featureNames) {
			return nil, fmt.Errorf("sample %d has %d features, want %d", i, len(samples[i].Vector), len(featureNames))
		}
		vectors[i] = samples[i].Vector
		labels[i] = samples[i].Label
	}
	groups := groupByOrder(samples)

	m := &Model{
		FeatureNames: featureNames,
		LearningRate: cfg.LearningRate,
	}

	scores := make([]float64, len(samples))
	rows := make([]int, len(samples))
	for i := range rows {
		rows[i] = i
	}

	builder := &treeBuilder{
		vectors:        vectors,
		maxDepth:       cfg.MaxDepth,
		lambda:         cfg.Lambda,
		minChildWeight: cfg.MinChildWeight,
	}

	for round := 0; round < cfg.Rounds; round++ {
		grad, hess := pairwiseGradients(scores, labels, groups)
		builder.grad = grad
		builder.hess = hess

		t := builder.build(rows)
		m.Trees = append(m.Trees, t)

		for i := range scores {
			scores[i] += cfg.LearningRate * t.predict(vectors[i])
		}
		log.Printf("round %d: train ndcg=%.4f", round, meanNDCG(scores, labels, groups))
	}

	log.Printf("trained ranking model: %d trees, %d samples, %d groups", len(m.Trees), len(samples), len(groups))
	return m, nil
}

// Score evaluates the ensemble on one feature vector.
func (m *Model) Score(x []float64) float64 {
	s := m.BaseScore
	for i := range m.Trees {
		s += m.LearningRate * m.Trees[i].predict(x)
	}
	return s
}

// Contributions decomposes a score into one additive term per feature plus
// a bias, following each tree's decision path: every split transfers the
// change in node value to the split feature. The terms and bias sum to
// Score(x).
func (m *Model) Contributions(x []float64) (terms []float64, bias float64) {
	terms = make([]float64, len(m.FeatureNames))
	bias = m.BaseScore
	for ti := range m.Trees {
		t := &m.Trees[ti]
		path := t.decisionPath(x)
		bias += m.LearningRate * t.Nodes[path[0]].Value
		for i := 0; i < len(path)-1; i++ {
			parent := &t.Nodes[path[i]]
			child := &t.Nodes[path[i+1]]
			terms[parent.Feature] += m.LearningRate * (child.Value - parent.Value)
		}
	}
	return terms, bias
}

// Ranking orders candidate indices by descending score. Ties keep input
// order so repeated runs produce identical rankings.
func Ranking(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	return order
}

// Save writes the model artifact as JSON.
func (m *Model) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model '%s': %w", path, err)
	}
	return nil
}

// Load reads a model artifact written by Save.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model '%s': %w", path, err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model '%s': %w", path, err)
	}
	return &m, nil
}

// pairwiseGradients accumulates first and second order terms of the
// pairwise logistic loss over every (positive, negative) pair within each
// group. Cross-group pairs are never formed.
func pairwiseGradients(scores, labels []float64, groups [][]int) (grad, hess []float64) {
	grad = make([]float64, len(scores))
	hess = make([]float64, len(scores))

	for _, g := range groups {
		for _, i := range g {
			for _, j := range g {
				if labels[i] <= labels[j] {
					continue
				}
				s := sigmoid(scores[i] - scores[j])
				lambda := s - 1
				grad[i] += lambda
				grad[j] -= lambda
				h := math.Max(s*(1-s), 1e-16)
				hess[i] += h
				hess[j] += h
			}
		}
	}
	return grad, hess
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func groupByOrder(samples []Sample) [][]int {
	index := make(map[string]int)
	var groups [][]int
	for i := range samples {
		gi, ok := index[samples[i].OrderID]
		if !ok {
			gi = len(groups)
			index[samples[i].OrderID] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], i)
	}
	return groups
}
