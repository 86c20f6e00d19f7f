// Package config loads Config once from the environment into a single
// struct of settings, read via os.Getenv since this service has no JSON
// config file — everything is environment-derived and read once at
// startup.
package config

import (
	"os"
	"strconv"

	"github.com/doganarif/vectordb/model"
)

// Config is the process-wide, read-once-at-startup configuration.
type Config struct {
	DataDir       string
	DefaultMetric model.Metric
	DefaultIndex  model.Algorithm
	LSHNumPlanes  int
	LSHNumTables  int
	LSHSeed       int64
	LogLevel      string
	CohereAPIKey  string // empty disables the embeddings endpoint
}

// Load reads Config from the environment, applying the spec's defaults to
// anything unset.
func Load() Config {
	return Config{
		DataDir:       getString("DATA_DIR", "data"),
		DefaultMetric: model.Metric(getString("DEFAULT_METRIC", string(model.Cosine))),
		DefaultIndex:  model.Algorithm(getString("DEFAULT_INDEX", string(model.Linear))),
		LSHNumPlanes:  getInt("LSH_NUM_PLANES", 16),
		LSHNumTables:  getInt("LSH_NUM_TABLES", 4),
		LSHSeed:       int64(getInt("LSH_SEED", 42)),
		LogLevel:      getString("LOG_LEVEL", "INFO"),
		CohereAPIKey:  os.Getenv("COHERE_API_KEY"),
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
