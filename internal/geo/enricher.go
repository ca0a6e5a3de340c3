package geo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sort"
	"time"

	"github.com/agenthands/comprank/internal/core/property"
	"github.com/agenthands/comprank/internal/llm"
)

// DefaultCleanupPrompt is sent to the text collaborator when the geocoder
// cannot resolve an address directly. %s is the raw address.
const DefaultCleanupPrompt = `You are a geocoding assistant trained to clean and standardize Canadian mailing addresses strictly for geolocation purposes.

Rewrite the input into this format exactly:
[unit-civic number] [Street Name Capitalized], [City Capitalized], [Province Abbreviation] [Postal Code], Canada

Rules:
- Use commas between address parts (street, city, province, postal code, country)
- Ensure proper capitalization (e.g., 'Kemptville', 'ON')
- Postal codes must have a space between the 3rd and 4th character (e.g., 'T2N 3B8')
- If the address includes a unit/civic format (e.g., '119 110'), rewrite it as '110-119'
- Do not include neighborhood names, regions, or repetitions
- Your response must only include the final cleaned address, with no explanation or extra text

Please clean and standardize this address: %s`

// Enricher resolves every address a dataset references and attaches
// coordinates and subject-candidate distances.
type Enricher struct {
	Geocoder Geocoder
	Cleanup  llm.Client // optional address-cleanup collaborator
	Cache    *Cache

	CleanupPrompt string
	Delay         time.Duration
}

func NewEnricher(geocoder Geocoder, cleanup llm.Client, cache *Cache, delay time.Duration) *Enricher {
	return &Enricher{
		Geocoder:      geocoder,
		Cleanup:       cleanup,
		Cache:         cache,
		CleanupPrompt: DefaultCleanupPrompt,
		Delay:         delay,
	}
}

// EnrichAll geocodes every address missing from the cache, then fills in
// coordinates and distances. When the cache already covers every referenced
// address (resolved or recorded failure), resolution is skipped entirely.
func (e *Enricher) EnrichAll(ctx context.Context, ds *property.Dataset) error {
	queries := collectQueries(ds)

	missing := make([]string, 0)
	for norm := range queries {
		if !e.Cache.Has(norm) {
			missing = append(missing, norm)
		}
	}
	sort.Strings(missing)

	if len(missing) == 0 {
		log.Printf("All %d addresses already geocoded, skipping resolution", len(queries))
	} else {
		log.Printf("Geocoding %d of %d referenced addresses", len(missing), len(queries))
		for _, norm := range missing {
			if err := ctx.Err(); err != nil {
				return err
			}

			coords := e.resolve(ctx, queries[norm])
			if err := e.Cache.Put(norm, coords); err != nil {
				return fmt.Errorf("failed to persist geocode result: %w", err)
			}

			time.Sleep(e.Delay)
		}
	}

	e.applyCoordinates(ds)
	return nil
}

// resolve attempts geocoder -> retry on timeout -> cleanup collaborator ->
// one more geocoder call. Persistent failure is a nil result, never an error.
func (e *Enricher) resolve(ctx context.Context, query string) *Coordinates {
	coords, err := e.geocodeWithRetry(ctx, query)
	if err == nil && coords != nil {
		return coords
	}
	if err != nil {
		log.Printf("Geocode error for '%s': %v", query, err)
	}

	if e.Cleanup == nil {
		return nil
	}

	cleaned, err := e.Cleanup.Generate(ctx, fmt.Sprintf(e.CleanupPrompt, query))
	if err != nil {
		log.Printf("Address cleanup failed for '%s': %v", query, err)
		return nil
	}

	coords, err = e.Geocoder.Geocode(ctx, cleaned)
	if err != nil {
		log.Printf("Geocode error for cleaned '%s': %v", cleaned, err)
		return nil
	}
	return coords
}

func (e *Enricher) geocodeWithRetry(ctx context.Context, query string) (*Coordinates, error) {
	coords, err := e.Geocoder.Geocode(ctx, query)
	if err != nil && isTimeout(err) {
		time.Sleep(e.Delay)
		return e.Geocoder.Geocode(ctx, query)
	}
	return coords, err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// collectQueries maps normalized address -> enriched geocoding query for
// every subject, comp, and pool record in the dataset.
func collectQueries(ds *property.Dataset) map[string]string {
	queries := make(map[string]string)
	for i := range ds.Appraisals {
		for _, rec := range ds.Appraisals[i].Records() {
			norm := NormalizeAddress(rec.Address)
			if norm == "" {
				continue
			}
			if enriched := EnrichAddress(rec.Address, rec.Context); enriched != "" {
				queries[norm] = enriched
			}
		}
	}
	return queries
}

// applyCoordinates copies cached coordinates onto records and computes the
// subject-candidate distance for candidates that do not already carry one.
func (e *Enricher) applyCoordinates(ds *property.Dataset) {
	for i := range ds.Appraisals {
		a := &ds.Appraisals[i]
		for _, rec := range a.Records() {
			coords, ok := e.Cache.Get(NormalizeAddress(rec.Address))
			if !ok || coords == nil {
				continue
			}
			rec.Latitude = property.Float(coords.Lat)
			rec.Longitude = property.Float(coords.Lon)
		}

		if a.Subject.Latitude == nil || a.Subject.Longitude == nil {
			continue
		}
		subject := Coordinates{Lat: *a.Subject.Latitude, Lon: *a.Subject.Longitude}

		for _, rec := range a.Records()[1:] {
			if rec.DistanceKM != nil {
				continue
			}
			if rec.Latitude == nil || rec.Longitude == nil {
				continue
			}
			d := HaversineKM(subject, Coordinates{Lat: *rec.Latitude, Lon: *rec.Longitude})
			rec.DistanceKM = &d
		}
	}
}
