package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/recera/linkgraph/pkg/pageid"
)

// FileName is the configuration file looked up in the project directory.
const FileName = "linkgraph.yaml"

// ErrNotFound is returned by Read when the project has no linkgraph.yaml.
var ErrNotFound = errors.New("config: " + FileName + " not found")

// Config represents the linkgraph.yaml configuration
type Config struct {
	// Root of the content tree; each collection is a subdirectory
	ContentDir string `yaml:"contentDir,omitempty"`

	// Path of the generated link index
	Output string `yaml:"output,omitempty"`

	// Collections in processing order
	Collections []pageid.Collection `yaml:"collections,omitempty"`

	// Parallel page parsers (0 = GOMAXPROCS)
	Workers int `yaml:"workers,omitempty"`

	// Page cache directory; "off" disables the cache
	CacheDir string `yaml:"cacheDir,omitempty"`

	Graph *GraphConfig `yaml:"graph,omitempty"`
	Serve *ServeConfig `yaml:"serve,omitempty"`
}

// GraphConfig contains defaults for embeds and snapshots
type GraphConfig struct {
	Depth  int     `yaml:"depth,omitempty"`
	Width  float64 `yaml:"width,omitempty"`
	Height float64 `yaml:"height,omitempty"`
	// Seed for layouts; 0 seeds from the clock
	Seed uint64 `yaml:"seed,omitempty"`
	// Drift is the ambient motion: "sine" (default) or "noise"
	Drift string `yaml:"drift,omitempty"`
}

// ServeConfig contains development server configuration
type ServeConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// CacheDisabled reports whether the page cache is turned off.
func (c *Config) CacheDisabled() bool {
	return c.CacheDir == "off"
}

// Normalizer builds the page id normalizer for the configured collections.
func (c *Config) Normalizer() *pageid.Normalizer {
	return pageid.New(c.Collections)
}

// Load loads configuration from linkgraph.yaml in projectPath, returning the
// defaults when the file does not exist.
func Load(projectPath string) (*Config, error) {
	cfg, err := Read(projectPath)
	if errors.Is(err, ErrNotFound) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

// Read is Load without the fallback.
func Read(projectPath string) (*Config, error) {
	configPath := filepath.Join(projectPath, FileName)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}

	applyDefaults(&config)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", configPath, err)
	}
	return &config, nil
}

// Save saves configuration to linkgraph.yaml
func Save(config *Config, projectPath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(projectPath, FileName), data, 0644)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	collections := make([]pageid.Collection, len(pageid.DefaultCollections))
	copy(collections, pageid.DefaultCollections)
	return &Config{
		ContentDir:  "src/content",
		Output:      "public/link-index.json",
		Collections: collections,
		Graph: &GraphConfig{
			Depth:  1,
			Width:  600,
			Height: 300,
		},
		Serve: &ServeConfig{
			Host: "localhost",
			Port: 4321,
		},
	}
}

func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.ContentDir == "" {
		config.ContentDir = defaults.ContentDir
	}
	if config.Output == "" {
		config.Output = defaults.Output
	}
	if len(config.Collections) == 0 {
		config.Collections = defaults.Collections
	}

	if config.Graph == nil {
		config.Graph = defaults.Graph
	} else {
		if config.Graph.Depth == 0 {
			config.Graph.Depth = defaults.Graph.Depth
		}
		if config.Graph.Width == 0 {
			config.Graph.Width = defaults.Graph.Width
		}
		if config.Graph.Height == 0 {
			config.Graph.Height = defaults.Graph.Height
		}
	}

	if config.Serve == nil {
		config.Serve = defaults.Serve
	} else {
		if config.Serve.Host == "" {
			config.Serve.Host = defaults.Serve.Host
		}
		if config.Serve.Port == 0 {
			config.Serve.Port = defaults.Serve.Port
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Collections))
	for i, col := range c.Collections {
		if col.Name == "" {
			return fmt.Errorf("collection %d has no name", i)
		}
		if seen[col.Name] {
			return fmt.Errorf("collection %q listed twice", col.Name)
		}
		seen[col.Name] = true
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if c.Graph != nil && (c.Graph.Width < 0 || c.Graph.Height < 0) {
		return fmt.Errorf("graph size must not be negative")
	}
	if c.Graph != nil && c.Graph.Drift != "" && c.Graph.Drift != "sine" && c.Graph.Drift != "noise" {
		return fmt.Errorf("unknown graph drift %q (want sine or noise)", c.Graph.Drift)
	}
	if c.Serve != nil && (c.Serve.Port < 0 || c.Serve.Port > 65535) {
		return fmt.Errorf("serve port %d out of range", c.Serve.Port)
	}
	return nil
}
