package ingest

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Config drives one ingestion run. Loaded from a YAML file so the scheduler
// can point different environments at different feeds and paths.
type Config struct {
	// FeedURL is the NYC Open Data CSV export. Ignored when FeedFile is set.
	FeedURL string `yaml:"feed_url"`
	// FeedFile reads a local CSV instead of downloading (seed/backfill path).
	FeedFile string `yaml:"feed_file"`

	RegionsPath string `yaml:"regions_path"`
	// NameProperty is the GeoJSON feature property carrying the region name.
	NameProperty string `yaml:"name_property"`

	SnapshotPath string `yaml:"snapshot_path"`
	BatchSize    int    `yaml:"batch_size"`
}

const defaultBatchSize = 500

func LoadConfig(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if cfg.FeedURL == "" && cfg.FeedFile == "" {
		return cfg, fmt.Errorf("config needs feed_url or feed_file")
	}
	if cfg.RegionsPath == "" {
		return cfg, fmt.Errorf("config needs regions_path")
	}
	if cfg.SnapshotPath == "" {
		return cfg, fmt.Errorf("config needs snapshot_path")
	}
	if cfg.NameProperty == "" {
		cfg.NameProperty = "NTAName"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	return cfg, nil
}
