package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

type GeocodeConfig struct {
	BaseURL        string `toml:"base_url"`
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	DelayMillis    int    `toml:"delay_millis"`
}

type RankingConfig struct {
	Rounds       int     `toml:"rounds"`
	MaxDepth     int     `toml:"max_depth"`
	LearningRate float64 `toml:"learning_rate"`
	TestFraction float64 `toml:"test_fraction"`
	Seed         int64   `toml:"seed"`
}

type ParsingConfig struct {
	// Minimum PartialRatio score (0-100) for the fuzzy property-type fallback.
	FuzzyThreshold int `toml:"fuzzy_threshold"`
}

type Prompts struct {
	AddressCleanup string `toml:"address_cleanup"`
	Explanation    string `toml:"explanation"`
}

type DataConfig struct {
	// Dir holds every pipeline artifact under well-known file names.
	Dir string `toml:"dir"`
	// Dataset is the raw appraisals input; a missing file is fatal to a run.
	Dataset string `toml:"dataset"`
}

type Config struct {
	LLM     LLMConfig     `toml:"llm"`
	Geocode GeocodeConfig `toml:"geocode"`
	Ranking RankingConfig `toml:"ranking"`
	Parsing ParsingConfig `toml:"parsing"`
	Prompts Prompts       `toml:"prompts"`
	Data    DataConfig    `toml:"data"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in the values a minimal config file may omit.
func (c *Config) ApplyDefaults() {
	if c.Data.Dir == "" {
		c.Data.Dir = "data"
	}
	if c.Data.Dataset == "" {
		c.Data.Dataset = filepath.Join(c.Data.Dir, "appraisals_dataset.json")
	}
	if c.Geocode.BaseURL == "" {
		c.Geocode.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if c.Geocode.UserAgent == "" {
		c.Geocode.UserAgent = "comp-geocoder"
	}
	if c.Geocode.TimeoutSeconds == 0 {
		c.Geocode.TimeoutSeconds = 10
	}
	if c.Geocode.DelayMillis == 0 {
		c.Geocode.DelayMillis = 1000
	}
	if c.Ranking.Rounds == 0 {
		c.Ranking.Rounds = 100
	}
	if c.Ranking.MaxDepth == 0 {
		c.Ranking.MaxDepth = 6
	}
	if c.Ranking.LearningRate == 0 {
		c.Ranking.LearningRate = 0.1
	}
	if c.Ranking.TestFraction == 0 {
		c.Ranking.TestFraction = 0.2
	}
	if c.Ranking.Seed == 0 {
		c.Ranking.Seed = 42
	}
	if c.Parsing.FuzzyThreshold == 0 {
		c.Parsing.FuzzyThreshold = 80
	}
}

// Artifact paths under Data.Dir.

func (c *Config) CleanedDatasetPath() string { return filepath.Join(c.Data.Dir, "cleaned_appraisals.json") }
func (c *Config) GeocodeCachePath() string   { return filepath.Join(c.Data.Dir, "geocoded_addresses.json") }
func (c *Config) TrainingTablePath() string  { return filepath.Join(c.Data.Dir, "training_data.csv") }
func (c *Config) FeedbackTablePath() string {
	return filepath.Join(c.Data.Dir, "training_data_with_feedback.csv")
}
func (c *Config) ModelPath() string        { return filepath.Join(c.Data.Dir, "rank_model.json") }
func (c *Config) ExplanationsPath() string { return filepath.Join(c.Data.Dir, "top3_explanations.csv") }
func (c *Config) FeedbackLogPath() string  { return filepath.Join(c.Data.Dir, "feedback_log.csv") }
