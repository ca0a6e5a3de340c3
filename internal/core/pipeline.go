// Package core wires the processing stages into one pipeline run: clean,
// geocode, build the training table, train the ranker, explain. Each stage
// commits its artifact before the next starts, so a cancelled run leaves
// every completed stage's output usable.
package core

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/comprank/internal/config"
	"github.com/agenthands/comprank/internal/core/explain"
	"github.com/agenthands/comprank/internal/core/feedback"
	"github.com/agenthands/comprank/internal/core/feature"
	"github.com/agenthands/comprank/internal/core/parse"
	"github.com/agenthands/comprank/internal/core/property"
	"github.com/agenthands/comprank/internal/core/rank"
	"github.com/agenthands/comprank/internal/core/training"
	"github.com/agenthands/comprank/internal/geo"
	"github.com/agenthands/comprank/internal/llm"
)

// Pipeline holds the external collaborators a run needs. LLM backs both
// address cleanup and explanation narration and may be nil, in which case
// both fall back gracefully.
type Pipeline struct {
	Config   *config.Config
	Geocoder geo.Geocoder
	LLM      llm.Client
}

// RunOptions selects the pipeline variant. UseFeedback folds the merged
// feedback log into the training labels before retraining.
type RunOptions struct {
	UseFeedback bool
}

// Run executes the full cascade. It is idempotent: re-running with the
// same inputs rewrites the same artifacts.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) error {
	runID := uuid.NewString()
	log.Printf("pipeline run %s starting (use_feedback=%v)", runID, opts.UseFeedback)

	cfg := p.Config
	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	ds, err := p.cleanStage(ctx)
	if err != nil {
		return err
	}
	if err := p.geocodeStage(ctx, ds); err != nil {
		return err
	}
	rows, err := p.trainingStage(ctx, ds, opts)
	if err != nil {
		return err
	}
	model, err := p.rankStage(ctx, rows)
	if err != nil {
		return err
	}
	if err := p.explainStage(ctx, model, rows); err != nil {
		return err
	}
	log.Printf("pipeline run %s complete", runID)
	return nil
}

// Retrain runs the feedback cascade: rebuild, retrain from scratch,
// re-explain.
func (p *Pipeline) Retrain(ctx context.Context) error {
	return p.Run(ctx, RunOptions{UseFeedback: true})
}

// Reset discards all accumulated feedback and rebuilds purely from the
// canonical dataset.
func (p *Pipeline) Reset(ctx context.Context) error {
	for _, path := range []string{p.Config.FeedbackLogPath(), p.Config.FeedbackTablePath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove '%s': %w", path, err)
		}
	}
	log.Printf("feedback discarded, rebuilding from canonical dataset")
	return p.Run(ctx, RunOptions{UseFeedback: false})
}

// SubmitFeedback merges reviewer judgments into the persistent log.
func (p *Pipeline) SubmitFeedback(records []feedback.Record) error {
	fbLog, err := feedback.LoadLog(p.Config.FeedbackLogPath())
	if err != nil {
		return err
	}
	for _, rec := range records {
		fbLog.Merge(rec)
	}
	return fbLog.Save(p.Config.FeedbackLogPath())
}

func (p *Pipeline) cleanStage(ctx context.Context) (*property.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := property.LoadRawDataset(p.Config.Data.Dataset)
	if err != nil {
		return nil, err
	}

	cleaner := parse.NewCleaner(p.Config.Parsing.FuzzyThreshold)
	ds, collector := cleaner.CleanDataset(raw)
	log.Printf("cleaned %d appraisals, %d distinct subject condition strings observed",
		len(ds.Appraisals), len(collector.SubjectConditions))

	if err := property.SaveDataset(p.Config.CleanedDatasetPath(), ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (p *Pipeline) geocodeStage(ctx context.Context, ds *property.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cache, err := geo.LoadCache(p.Config.GeocodeCachePath())
	if err != nil {
		return err
	}

	enricher := geo.NewEnricher(p.Geocoder, p.LLM, cache,
		time.Duration(p.Config.Geocode.DelayMillis)*time.Millisecond)
	if p.Config.Prompts.AddressCleanup != "" {
		enricher.CleanupPrompt = p.Config.Prompts.AddressCleanup
	}
	if err := enricher.EnrichAll(ctx, ds); err != nil {
		return err
	}

	// Coordinates and distances land back in the cleaned artifact.
	return property.SaveDataset(p.Config.CleanedDatasetPath(), ds)
}

func (p *Pipeline) trainingStage(ctx context.Context, ds *property.Dataset, opts RunOptions) ([]training.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := training.Build(ds)
	log.Printf("built training table: %d rows", len(rows))
	if err := training.SaveTable(p.Config.TrainingTablePath(), rows); err != nil {
		return nil, err
	}
	if !opts.UseFeedback {
		return rows, nil
	}

	fbLog, err := feedback.LoadLog(p.Config.FeedbackLogPath())
	if err != nil {
		return nil, err
	}
	rows = fbLog.Apply(rows)
	log.Printf("applied %d feedback records: %d rows remain", fbLog.Len(), len(rows))
	if err := training.SaveTable(p.Config.FeedbackTablePath(), rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (p *Pipeline) rankStage(ctx context.Context, rows []training.Row) (*rank.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	samples := make([]rank.Sample, len(rows))
	for i := range rows {
		samples[i] = rank.Sample{
			OrderID: rows[i].OrderID,
			Label:   float64(rows[i].Label),
			Vector:  rows[i].Vector(),
		}
	}

	rcfg := rank.Config{
		Rounds:       p.Config.Ranking.Rounds,
		MaxDepth:     p.Config.Ranking.MaxDepth,
		LearningRate: p.Config.Ranking.LearningRate,
		Lambda:       1,
		TestFraction: p.Config.Ranking.TestFraction,
		Seed:         p.Config.Ranking.Seed,
	}

	train, test := rank.SplitGroups(samples, rcfg.TestFraction, rcfg.Seed)
	model, err := rank.Train(train, feature.Names, rcfg)
	if err != nil {
		return nil, err
	}
	if len(test) > 0 {
		rank.LogMetrics(rank.Evaluate(model, test))
	}

	if err := model.Save(p.Config.ModelPath()); err != nil {
		return nil, err
	}
	return model, nil
}

func (p *Pipeline) explainStage(ctx context.Context, model *rank.Model, rows []training.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	engine := &explain.Engine{
		Model:    model,
		Narrator: p.LLM,
		Prompt:   p.Config.Prompts.Explanation,
	}
	exps, err := engine.BuildAll(ctx, rows)
	if err != nil {
		return err
	}
	log.Printf("generated %d explanations", len(exps))
	return explain.SaveTable(p.Config.ExplanationsPath(), exps)
}
