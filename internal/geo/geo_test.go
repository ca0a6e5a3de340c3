package geo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/comprank/internal/core/property"
)

type MockGeocoder struct {
	Results map[string]*Coordinates
	Err     error
	Calls   []string
}

func (m *MockGeocoder) Geocode(_ context.Context, address string) (*Coordinates, error) {
	m.Calls = append(m.Calls, address)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Results[address], nil
}

type MockCleanup struct {
	Response string
	Err      error
	Called   bool
}

func (m *MockCleanup) Generate(_ context.Context, _ string) (string, error) {
	m.Called = true
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "12 king st", NormalizeAddress("  12 King Street "))
	assert.Equal(t, "4 maple ave", NormalizeAddress("4 Maple Avenue"))
	assert.Equal(t, "9 lake dr", NormalizeAddress("9 Lake Drive"))
	assert.Equal(t, "1 mill rd", NormalizeAddress("1 Mill Road"))
}

func TestEnrichAddress_SkipsContainedContext(t *testing.T) {
	got := EnrichAddress("12 King Street, Ottawa", []string{"Ottawa", "ON"})
	assert.Equal(t, "12 king st, ottawa, ON", got)
}

func TestCache_NullIsDistinctFromMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache, err := LoadCache(path)
	require.NoError(t, err)

	require.NoError(t, cache.Put("failed addr", nil))

	// Reload from disk: the explicit failure must survive as "attempted".
	cache, err = LoadCache(path)
	require.NoError(t, err)

	assert.True(t, cache.Has("failed addr"))
	coords, ok := cache.Get("failed addr")
	assert.True(t, ok)
	assert.Nil(t, coords)

	assert.False(t, cache.Has("never tried"))
}

func TestCache_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache, err := LoadCache(path)
	require.NoError(t, err)

	require.NoError(t, cache.Put("12 king st", &Coordinates{Lat: 45.4, Lon: -75.7}))

	cache, err = LoadCache(path)
	require.NoError(t, err)
	coords, ok := cache.Get("12 king st")
	require.True(t, ok)
	require.NotNil(t, coords)
	assert.Equal(t, 45.4, coords.Lat)
}

func TestHaversineKM(t *testing.T) {
	ottawa := Coordinates{Lat: 45.4215, Lon: -75.6972}
	toronto := Coordinates{Lat: 43.6532, Lon: -79.3832}

	d := HaversineKM(ottawa, toronto)
	assert.InDelta(t, 351.9, d, 2.0)

	assert.Equal(t, 0.0, HaversineKM(ottawa, ottawa))
}

func testDataset() *property.Dataset {
	return &property.Dataset{
		Appraisals: []property.Appraisal{
			{
				OrderID: "1",
				Subject: property.Record{Address: "12 King Street"},
				Comps:   []property.Record{{Address: "40 Queen Street"}},
			},
		},
	}
}

func TestEnrichAll_SkipsWhenFullyCached(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache, err := LoadCache(path)
	require.NoError(t, err)
	require.NoError(t, cache.Put("12 king st", &Coordinates{Lat: 45.0, Lon: -75.0}))
	require.NoError(t, cache.Put("40 queen st", nil)) // recorded failure still counts

	geocoder := &MockGeocoder{}
	e := NewEnricher(geocoder, nil, cache, 0)

	require.NoError(t, e.EnrichAll(context.Background(), testDataset()))
	assert.Empty(t, geocoder.Calls, "no geocoder calls when cache covers every address")
}

func TestEnrichAll_CleanupFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache, err := LoadCache(path)
	require.NoError(t, err)

	// Geocoder only knows the cleaned form of the address.
	geocoder := &MockGeocoder{Results: map[string]*Coordinates{
		"40 Queen St, Ottawa, ON K1P 5A4, Canada": {Lat: 45.42, Lon: -75.69},
	}}
	cleanup := &MockCleanup{Response: "40 Queen St, Ottawa, ON K1P 5A4, Canada"}

	ds := &property.Dataset{Appraisals: []property.Appraisal{
		{OrderID: "1", Subject: property.Record{Address: "40 Queen Street"}},
	}}

	e := NewEnricher(geocoder, cleanup, cache, 0)
	require.NoError(t, e.EnrichAll(context.Background(), ds))

	assert.True(t, cleanup.Called)

	coords, ok := cache.Get("40 queen st")
	require.True(t, ok)
	require.NotNil(t, coords)
	assert.Equal(t, 45.42, coords.Lat)
	require.NotNil(t, ds.Appraisals[0].Subject.Latitude)
	assert.Equal(t, 45.42, *ds.Appraisals[0].Subject.Latitude)
}

func TestEnrichAll_PersistentFailureStoresNull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache, err := LoadCache(path)
	require.NoError(t, err)

	geocoder := &MockGeocoder{} // knows nothing
	cleanup := &MockCleanup{Err: assert.AnError}

	ds := &property.Dataset{Appraisals: []property.Appraisal{
		{OrderID: "1", Subject: property.Record{Address: "12 King Street"}},
	}}

	e := NewEnricher(geocoder, cleanup, cache, 0)
	require.NoError(t, e.EnrichAll(context.Background(), ds))

	// Persistent failure is an explicit null, not a missing key.
	coords, ok := cache.Get("12 king st")
	assert.True(t, ok)
	assert.Nil(t, coords)
	assert.Nil(t, ds.Appraisals[0].Subject.Latitude)
}

func TestEnrichAll_ComputesDistances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache, err := LoadCache(path)
	require.NoError(t, err)
	require.NoError(t, cache.Put("12 king st", &Coordinates{Lat: 45.4215, Lon: -75.6972}))
	require.NoError(t, cache.Put("40 queen st", &Coordinates{Lat: 45.4235, Lon: -75.6979}))

	e := NewEnricher(&MockGeocoder{}, nil, cache, 0)
	ds := testDataset()
	require.NoError(t, e.EnrichAll(context.Background(), ds))

	require.NotNil(t, ds.Appraisals[0].Comps[0].DistanceKM)
	assert.InDelta(t, 0.229, *ds.Appraisals[0].Comps[0].DistanceKM, 0.05)
}

func TestEnrichAll_KeepsExistingDistance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache, err := LoadCache(path)
	require.NoError(t, err)
	require.NoError(t, cache.Put("12 king st", &Coordinates{Lat: 45.0, Lon: -75.0}))
	require.NoError(t, cache.Put("40 queen st", &Coordinates{Lat: 46.0, Lon: -76.0}))

	ds := testDataset()
	ds.Appraisals[0].Comps[0].DistanceKM = property.Float(1.25)

	e := NewEnricher(&MockGeocoder{}, nil, cache, 0)
	require.NoError(t, e.EnrichAll(context.Background(), ds))

	assert.Equal(t, 1.25, *ds.Appraisals[0].Comps[0].DistanceKM)
}
