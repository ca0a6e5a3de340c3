package rank

import (
	"log"
	"math"
	"math/rand"
	"sort"
)

// SplitGroups partitions samples into train and test sets by order, so no
// appraisal straddles the boundary. The shuffle is seeded for repeatable
// splits. With few orders the test side may be empty; callers then skip
// evaluation.
func SplitGroups(samples []Sample, testFraction float64, seed int64) (train, test []Sample) {
	var ids []string
	seen := make(map[string]bool)
	for i := range samples {
		if !seen[samples[i].OrderID] {
			seen[samples[i].OrderID] = true
			ids = append(ids, samples[i].OrderID)
		}
	}
	sort.Strings(ids)

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	numTest := int(math.Round(float64(len(ids)) * testFraction))
	if numTest >= len(ids) {
		numTest = len(ids) - 1
	}
	testIDs := make(map[string]bool, numTest)
	for _, id := range ids[:numTest] {
		testIDs[id] = true
	}

	for i := range samples {
		if testIDs[samples[i].OrderID] {
			test = append(test, samples[i])
		} else {
			train = append(train, samples[i])
		}
	}
	return train, test
}

// Precision aggregates hits over ranking slots across orders.
type Precision struct {
	Correct int `json:"correct"`
	Slots   int `json:"slots"`
}

func (p Precision) Rate() float64 {
	if p.Slots == 0 {
		return 0
	}
	return float64(p.Correct) / float64(p.Slots)
}

// Metrics summarises held-out ranking quality.
type Metrics struct {
	NDCG        float64           `json:"ndcg"`
	PrecisionAt map[int]Precision `json:"precision_at"`
}

// Evaluate scores the test samples and reports mean NDCG plus top-K
// precision for K of 1 and 3, pooled over orders. Every order contributes
// min(K, candidate count) slots, whether or not it has any true comp;
// correct is the number of true comps among the top-K scored candidates.
func Evaluate(m *Model, test []Sample) Metrics {
	metrics := Metrics{PrecisionAt: map[int]Precision{}}
	groups := groupByOrder(test)

	var ndcgSum float64
	var ndcgGroups int

	for _, g := range groups {
		scores := make([]float64, len(g))
		labels := make([]float64, len(g))
		for i, idx := range g {
			scores[i] = m.Score(test[idx].Vector)
			labels[i] = test[idx].Label
		}
		order := Ranking(scores)

		// NDCG is undefined for an all-negative order and skips it; the
		// precision pool still counts its slots.
		if d := ndcg(labels, order); !math.IsNaN(d) {
			ndcgSum += d
			ndcgGroups++
		}

		for _, k := range []int{1, 3} {
			slots := min(k, len(order))
			correct := 0
			for _, ri := range order[:slots] {
				if labels[ri] > 0 {
					correct++
				}
			}
			p := metrics.PrecisionAt[k]
			p.Correct += correct
			p.Slots += slots
			metrics.PrecisionAt[k] = p
		}
	}

	if ndcgGroups > 0 {
		metrics.NDCG = ndcgSum / float64(ndcgGroups)
	}
	return metrics
}

// LogMetrics writes evaluation results in a fixed order.
func LogMetrics(m Metrics) {
	log.Printf("eval: ndcg=%.4f", m.NDCG)
	for _, k := range []int{1, 3} {
		p := m.PrecisionAt[k]
		log.Printf("eval: precision@%d=%.4f (%d/%d)", k, p.Rate(), p.Correct, p.Slots)
	}
}

// meanNDCG averages NDCG over groups that contain at least one relevant
// item, reading scores and labels through global indices.
func meanNDCG(scores, labels []float64, groups [][]int) float64 {
	var sum float64
	var n int
	for _, g := range groups {
		gs := make([]float64, len(g))
		gl := make([]float64, len(g))
		for i, idx := range g {
			gs[i] = scores[idx]
			gl[i] = labels[idx]
		}
		if d := ndcg(gl, Ranking(gs)); !math.IsNaN(d) {
			sum += d
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func ndcg(labels []float64, order []int) float64 {
	var dcg float64
	for pos, idx := range order {
		dcg += (math.Pow(2, labels[idx]) - 1) / math.Log2(float64(pos)+2)
	}

	ideal := append([]float64(nil), labels...)
	sort.Sort(sort.Reverse(sort.Float64Slice(ideal)))
	var idcg float64
	for pos, l := range ideal {
		idcg += (math.Pow(2, l) - 1) / math.Log2(float64(pos)+2)
	}
	if idcg == 0 {
		return math.NaN()
	}
	return dcg / idcg
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
