//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/comprank/internal/config"
	"github.com/agenthands/comprank/internal/core"
	"github.com/agenthands/comprank/internal/core/explain"
	"github.com/agenthands/comprank/internal/core/feedback"
	"github.com/agenthands/comprank/internal/core/training"
	"github.com/agenthands/comprank/internal/geo"
)

type stubGeocoder struct {
	calls int
}

func (g *stubGeocoder) Geocode(_ context.Context, address string) (*geo.Coordinates, error) {
	g.calls++
	// Deterministic coordinates derived from the address length.
	return &geo.Coordinates{
		Lat: 45.0 + float64(len(address))*0.001,
		Lon: -75.0 - float64(len(address))*0.001,
	}, nil
}

type stubLLM struct{}

func (stubLLM) Generate(_ context.Context, _ string) (string, error) {
	return "A comparable of similar size and age.", nil
}

// rawFixture is two appraisals with two comps and four pool candidates
// each; one pool address per order duplicates a comp.
const rawFixture = `{
  "appraisals": [
    {
      "orderID": 4762597,
      "subject": {
        "address": "12 Maple Street",
        "subject_city_province_zip": "Ottawa, ON K1A 0A1",
        "structure_type": "Detached",
        "subject_age": "18",
        "effective_age": "15",
        "effective_date": "Jun/01/2024",
        "gla": "1800 SqFt",
        "lot_size_sf": "4500 SqFt",
        "room_count": "8",
        "num_beds": "3",
        "num_baths": "2:1",
        "condition": "Average"
      },
      "comps": [
        {
          "address": "15 Oak Drive",
          "city_province": "Ottawa, ON",
          "prop_type": "Detached",
          "age": "20",
          "sale_date": "May/10/2024",
          "distance_to_subject": "0.55 KM",
          "gla": "1,750 SqFt",
          "lot_size": "4400 SqFt",
          "room_count": "8",
          "bed_count": "3",
          "bath_count": "2:1",
          "sale_price": "655,000",
          "condition": "Average"
        },
        {
          "address": "40 Birch Road",
          "city_province": "Ottawa, ON",
          "prop_type": "Detached",
          "age": "12",
          "sale_date": "Apr/22/2024",
          "gla": "1,900 SqFt",
          "lot_size": "4800 SqFt",
          "room_count": "9",
          "bed_count": "4",
          "bath_count": "2:0",
          "sale_price": "690,000",
          "condition": "Good"
        }
      ],
      "properties": [
        {
          "address": "15 Oak Dr",
          "city": "Ottawa",
          "province": "ON",
          "property_sub_type": "Detached",
          "year_built": "2004",
          "close_date": "2024-05-10",
          "gla": 1750,
          "lot_size_sf": 4400,
          "room_count": 8,
          "bedrooms": 3,
          "full_baths": 2,
          "half_baths": 1,
          "close_price": 655000
        },
        {
          "address": "99 Elm Avenue",
          "city": "Ottawa",
          "province": "ON",
          "property_sub_type": "Semi Detached",
          "year_built": "1998",
          "close_date": "2024-02-15",
          "gla": 2100,
          "lot_size_sf": 3200,
          "room_count": 9,
          "bedrooms": 4,
          "full_baths": 2,
          "half_baths": 0,
          "close_price": 610000
        },
        {
          "address": "7 Cedar Court",
          "city": "Ottawa",
          "province": "ON",
          "property_sub_type": "Townhouse",
          "year_built": "2015",
          "close_date": "2023-11-30",
          "gla": 1400,
          "lot_size_sf": 2000,
          "room_count": 6,
          "bedrooms": 2,
          "full_baths": 1,
          "half_baths": 1,
          "close_price": 480000
        },
        {
          "address": "120 Spruce Way",
          "city": "Ottawa",
          "province": "ON",
          "property_sub_type": "Detached",
          "year_built": "2010",
          "close_date": "2024-05-01",
          "gla": 1820,
          "lot_size_sf": 4600,
          "room_count": 8,
          "bedrooms": 3,
          "full_baths": 2,
          "half_baths": 1,
          "close_price": 662000
        }
      ]
    },
    {
      "orderID": 4768123,
      "subject": {
        "address": "4 King Road",
        "subject_city_province_zip": "Kingston, ON K7L 1A1",
        "structure_type": "Townhouse",
        "subject_age": "New",
        "effective_date": "Mar/15/2024",
        "gla": "1400 SqFt",
        "lot_size_sf": "2200 SqFt",
        "room_count": "6",
        "num_beds": "2",
        "num_baths": "1:1",
        "condition": "Good"
      },
      "comps": [
        {
          "address": "9 Queen Street",
          "city_province": "Kingston, ON",
          "prop_type": "Townhouse",
          "age": "3",
          "sale_date": "Feb/20/2024",
          "gla": "1,380 SqFt",
          "lot_size": "2100 SqFt",
          "room_count": "6",
          "bed_count": "2",
          "bath_count": "1:1",
          "sale_price": "495,000",
          "condition": "Good"
        },
        {
          "address": "22 Prince Avenue",
          "city_province": "Kingston, ON",
          "prop_type": "Townhouse",
          "age": "5",
          "sale_date": "Jan/12/2024",
          "gla": "1,450 SqFt",
          "lot_size": "2300 SqFt",
          "room_count": "7",
          "bed_count": "3",
          "bath_count": "2:0",
          "sale_price": "510,000",
          "condition": "Average"
        }
      ],
      "properties": [
        {
          "address": "9 Queen St",
          "city": "Kingston",
          "province": "ON",
          "property_sub_type": "Townhouse",
          "year_built": "2021",
          "close_date": "2024-02-20",
          "gla": 1380,
          "lot_size_sf": 2100,
          "room_count": 6,
          "bedrooms": 2,
          "full_baths": 1,
          "half_baths": 1,
          "close_price": 495000
        },
        {
          "address": "31 Duke Street",
          "city": "Kingston",
          "province": "ON",
          "property_sub_type": "Townhouse",
          "year_built": "2019",
          "close_date": "2024-03-01",
          "gla": 1420,
          "lot_size_sf": 2250,
          "room_count": 6,
          "bedrooms": 2,
          "full_baths": 1,
          "half_baths": 1,
          "close_price": 502000
        },
        {
          "address": "70 Baron Boulevard",
          "city": "Kingston",
          "province": "ON",
          "property_sub_type": "Detached",
          "year_built": "1985",
          "close_date": "2023-09-10",
          "gla": 2400,
          "lot_size_sf": 6000,
          "room_count": 10,
          "bedrooms": 4,
          "full_baths": 3,
          "half_baths": 1,
          "close_price": 780000
        },
        {
          "address": "5 Earl Place",
          "city": "Kingston",
          "province": "ON",
          "property_sub_type": "Condominium",
          "year_built": "2018",
          "close_date": "2024-01-25",
          "gla": 900,
          "lot_size_sf": null,
          "room_count": 4,
          "bedrooms": 1,
          "full_baths": 1,
          "half_baths": 0,
          "close_price": 350000
        }
      ]
    }
  ]
}`

func newTestPipeline(t *testing.T) *core.Pipeline {
	t.Helper()

	cfg := &config.Config{}
	cfg.Data.Dir = t.TempDir()
	cfg.ApplyDefaults()
	// Keep training fast; the fixture is tiny.
	cfg.Ranking.Rounds = 25
	cfg.Ranking.MaxDepth = 3
	cfg.Geocode.DelayMillis = 1

	require.NoError(t, os.WriteFile(cfg.Data.Dataset, []byte(rawFixture), 0o644))

	return &core.Pipeline{
		Config:   cfg,
		Geocoder: &stubGeocoder{},
		LLM:      stubLLM{},
	}
}

func TestFullPipeline(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	require.NoError(t, p.Run(ctx, core.RunOptions{}))

	// Every stage committed its artifact.
	for _, path := range []string{
		p.Config.CleanedDatasetPath(),
		p.Config.GeocodeCachePath(),
		p.Config.TrainingTablePath(),
		p.Config.ModelPath(),
		p.Config.ExplanationsPath(),
	} {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}

	// Dedup: order one has 2 comps + 4 pool entries, one of which repeats
	// a comp address.
	rows, err := training.LoadTable(p.Config.TrainingTablePath())
	require.NoError(t, err)
	perOrder := map[string]int{}
	for _, r := range rows {
		perOrder[r.OrderID]++
	}
	assert.Equal(t, 5, perOrder["4762597"])
	assert.Equal(t, 5, perOrder["4768123"])

	exps, err := explain.LoadTable(p.Config.ExplanationsPath())
	require.NoError(t, err)
	require.Len(t, exps, 6, "exactly 3 explanations per order")

	// Sorted by orderID ascending, score descending within an order.
	for i := 1; i < len(exps); i++ {
		prev, cur := &exps[i-1], &exps[i]
		if prev.OrderID == cur.OrderID {
			assert.GreaterOrEqual(t, prev.Score, cur.Score)
		} else {
			assert.Less(t, prev.OrderID, cur.OrderID)
		}
	}
	for _, e := range exps {
		assert.Equal(t, "A comparable of similar size and age.", e.Narrative)
		assert.NotEmpty(t, e.SubjectAddress)
	}
}

func TestFullPipeline_GeocodeCacheSkipsSecondRun(t *testing.T) {
	p := newTestPipeline(t)
	g := p.Geocoder.(*stubGeocoder)
	ctx := context.Background()

	require.NoError(t, p.Run(ctx, core.RunOptions{}))
	first := g.calls
	assert.Greater(t, first, 0)

	require.NoError(t, p.Run(ctx, core.RunOptions{}))
	assert.Equal(t, first, g.calls, "second run should be fully cached")
}

func TestFeedbackCascadeAndReset(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()
	require.NoError(t, p.Run(ctx, core.RunOptions{}))

	// Disagree with a heuristic negative (dropped) and promote another.
	require.NoError(t, p.SubmitFeedback([]feedback.Record{
		{OrderID: "4762597", CandidateAddress: "7 Cedar Court", Agree: false, OriginalLabel: 0},
		{OrderID: "4762597", CandidateAddress: "120 Spruce Way", Agree: true, OriginalLabel: 0},
	}))
	require.NoError(t, p.Retrain(ctx))

	fbRows, err := training.LoadTable(p.Config.FeedbackTablePath())
	require.NoError(t, err)

	base, err := training.LoadTable(p.Config.TrainingTablePath())
	require.NoError(t, err)
	assert.Len(t, fbRows, len(base)-1, "uninformative disagreement is dropped")

	found := false
	for _, r := range fbRows {
		assert.NotEqual(t, "7 Cedar Court", r.CandidateAddress)
		if r.CandidateAddress == "120 Spruce Way" {
			found = true
			assert.Equal(t, 1, r.Label)
		}
	}
	assert.True(t, found)

	// Reset discards feedback and rebuilds from the canonical dataset.
	require.NoError(t, p.Reset(ctx))
	_, err = os.Stat(p.Config.FeedbackLogPath())
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(p.Config.FeedbackTablePath())
	assert.True(t, os.IsNotExist(err))

	exps, err := explain.LoadTable(p.Config.ExplanationsPath())
	require.NoError(t, err)
	assert.Len(t, exps, 6)
}

func TestCleanedDatasetCarriesCoordinatesAndDistances(t *testing.T) {
	p := newTestPipeline(t)
	require.NoError(t, p.Run(context.Background(), core.RunOptions{}))

	data, err := os.ReadFile(p.Config.CleanedDatasetPath())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	appraisals := doc["appraisals"].([]any)
	require.Len(t, appraisals, 2)

	cache, err := geo.LoadCache(p.Config.GeocodeCachePath())
	require.NoError(t, err)
	assert.Greater(t, cache.Len(), 0)

	// The cache file itself survives independent reload.
	reloaded, err := geo.LoadCache(filepath.Join(p.Config.Data.Dir, "geocoded_addresses.json"))
	require.NoError(t, err)
	assert.Equal(t, cache.Len(), reloaded.Len())
}
