package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// Source describes one upstream content source. Key is the stable prefix
// used in externalId values, so changing it re-ingests everything the
// source ever produced.
type Source struct {
	Key      string `yaml:"key"`
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"` // "rss", "html", or "json"
	URL      string `yaml:"url"`
	Enabled  bool   `yaml:"enabled"`
	MaxItems int    `yaml:"max_items,omitempty"`
}

// AIConfig configures the generation service used for enrichment. With
// no resolvable API key the pipeline falls back to deterministic offline
// summaries instead of erroring.
type AIConfig struct {
	Provider string `yaml:"provider"` // "claude" or "openai"
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

// Config is the full process configuration. Runs are assumed to never
// overlap: the corpus file has a single owner for the duration of a run.
type Config struct {
	Sources   []Source  `yaml:"sources"`
	Keywords  []string  `yaml:"keywords"`
	BatchSize int       `yaml:"batch_size,omitempty"`
	MaxCorpus int       `yaml:"max_corpus,omitempty"`
	AI        *AIConfig `yaml:"ai,omitempty"`
}

// AIEnabled returns true if enrichment is configured with a valid API key.
func (c *Config) AIEnabled() bool {
	return c.AIKey() != ""
}

// AIKey returns the resolved API key (config or env var).
func (c *Config) AIKey() string {
	if c.AI != nil && c.AI.APIKey != "" {
		return c.AI.APIKey
	}
	return os.Getenv("LONGEVITY_HUB_AI_KEY")
}

// EnabledSources returns the active-source set in config order.
func (c *Config) EnabledSources() []Source {
	var out []Source
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// GetBatchSize returns the per-run enrichment cap, defaulting to 10.
func (c *Config) GetBatchSize() int {
	if c.BatchSize <= 0 {
		return 10
	}
	return c.BatchSize
}

// GetMaxCorpus returns the corpus size cap, defaulting to 200.
func (c *Config) GetMaxCorpus() int {
	if c.MaxCorpus <= 0 {
		return 200
	}
	return c.MaxCorpus
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "longevity-hub", "config.yaml")
}

// CorpusPath is the default location of the persisted article corpus.
func CorpusPath() string {
	return filepath.Join(xdg.DataHome, "longevity-hub", "articles.json")
}

// RunLogPath is the default location of the ingestion-run history db.
func RunLogPath() string {
	return filepath.Join(xdg.CacheHome, "longevity-hub", "runs.db")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Write defaults to config path on first run
			if err := writeDefaults(path); err != nil {
				// Non-fatal: just use embedded defaults
				return defaults, nil
			}
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	validKinds := map[string]bool{"rss": true, "html": true, "json": true}
	seen := make(map[string]bool)
	for i, s := range cfg.Sources {
		if s.Key == "" {
			return fmt.Errorf("source %d: key is required", i)
		}
		if seen[s.Key] {
			return fmt.Errorf("source %q: duplicate key", s.Key)
		}
		seen[s.Key] = true
		if s.Name == "" {
			return fmt.Errorf("source %q: name is required", s.Key)
		}
		if s.URL == "" {
			return fmt.Errorf("source %q: url is required", s.Key)
		}
		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("source %q: invalid url: %w", s.Key, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("source %q: url scheme must be http or https, got %q", s.Key, u.Scheme)
		}
		if !validKinds[s.Kind] {
			return fmt.Errorf("source %q: unknown kind %q (valid: rss, html, json)", s.Key, s.Kind)
		}
	}
	return nil
}
