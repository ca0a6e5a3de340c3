package geo

import (
	"encoding/json"
	"fmt"
	"os"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Cache maps normalized addresses to coordinates. A stored nil means
// "previously attempted, unresolvable", which is different from a missing
// key ("never attempted"); both states count as present for the
// skip-geocoding check.
type Cache struct {
	path    string
	entries map[string]*Coordinates
}

// LoadCache reads the cache artifact; a missing file yields an empty cache.
func LoadCache(path string) (*Cache, error) {
	c := &Cache{path: path, entries: make(map[string]*Coordinates)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read geocode cache '%s': %w", path, err)
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, fmt.Errorf("failed to parse geocode cache '%s': %w", path, err)
	}
	return c, nil
}

// Has reports whether the address was ever attempted, resolved or not.
func (c *Cache) Has(normalized string) bool {
	_, ok := c.entries[normalized]
	return ok
}

// Get returns the coordinates for an address. ok is false when the address
// was never attempted; a nil result with ok true means a recorded failure.
func (c *Cache) Get(normalized string) (*Coordinates, bool) {
	coords, ok := c.entries[normalized]
	return coords, ok
}

// Put records a resolution (or an explicit nil failure) and flushes the
// cache to disk immediately, so partial progress survives interruption.
func (c *Cache) Put(normalized string, coords *Coordinates) error {
	c.entries[normalized] = coords
	return c.Flush()
}

func (c *Cache) Flush() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal geocode cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write geocode cache '%s': %w", c.path, err)
	}
	return nil
}

func (c *Cache) Len() int { return len(c.entries) }
