// Package config loads runtime configuration from environment variables
// and the embedded model registry.
package config

import (
	_ "embed"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

type Config struct {
	Embedding EmbeddingConfig
	Match     MatchConfig
	Data      DataConfig
	Models    ModelsConfig
}

type EmbeddingConfig struct {
	URL   string // embedding service base URL, defaults to http://localhost:8000
	Model string // face embedding model name, defaults to VGG-Face
}

type MatchConfig struct {
	Metric string // distance metric name, defaults to cosine
	// Threshold is the optional acceptance threshold; nil means accept
	// the nearest neighbor unconditionally.
	Threshold *float64
}

type DataConfig struct {
	DownloadDir string // where dataset archives land
	ExtractDir  string // where archives are extracted
	ResultsDir  string // where experiment CSVs are written
}

type ModelsConfig struct {
	Models map[string]ModelInfo `yaml:"models"`
}

type ModelInfo struct {
	Dim        int                `yaml:"dim"`
	Thresholds map[string]float64 `yaml:"thresholds"`
}

// envString reads an environment variable with a default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envFloat reads an environment variable as a float pointer; unset or
// invalid values yield nil.
func envFloat(key string) *float64 {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return &f
	}
	return nil
}

func Load() *Config {
	var models ModelsConfig
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		// The registry is an embedded file; failing to parse it is a
		// build defect, not a runtime condition.
		panic("failed to unmarshal embedded models.yaml: " + err.Error())
	}

	return &Config{
		Embedding: EmbeddingConfig{
			URL:   envString("EMBEDDING_URL", "http://localhost:8000"),
			Model: envString("EMBEDDING_MODEL", "VGG-Face"),
		},
		Match: MatchConfig{
			Metric:    envString("DISTANCE_METRIC", "cosine"),
			Threshold: envFloat("MATCH_THRESHOLD"),
		},
		Data: DataConfig{
			DownloadDir: envString("DATA_DOWNLOAD_DIR", "data/downloaded"),
			ExtractDir:  envString("DATA_EXTRACT_DIR", "data/extracted"),
			ResultsDir:  envString("RESULTS_DIR", "data/experiment/results"),
		},
		Models: models,
	}
}

// ModelNames returns the registered model names in sorted order.
func (c *Config) ModelNames() []string {
	names := make([]string, 0, len(c.Models.Models))
	for name := range c.Models.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KnownModel reports whether the model name is in the registry.
func (c *Config) KnownModel(name string) bool {
	_, ok := c.Models.Models[name]
	return ok
}

// DefaultThreshold returns the registry threshold for a model/metric pair.
func (c *Config) DefaultThreshold(model, metric string) (float64, bool) {
	info, ok := c.Models.Models[model]
	if !ok {
		return 0, false
	}
	t, ok := info.Thresholds[metric]
	return t, ok
}
