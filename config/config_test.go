package config

import (
	"testing"

	"github.com/doganarif/vectordb/model"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.DataDir != "data" {
		t.Errorf("expected default DataDir %q, got %q", "data", cfg.DataDir)
	}
	if cfg.DefaultMetric != model.Cosine {
		t.Errorf("expected default metric cosine, got %v", cfg.DefaultMetric)
	}
	if cfg.DefaultIndex != model.Linear {
		t.Errorf("expected default index linear, got %v", cfg.DefaultIndex)
	}
	if cfg.LSHNumPlanes != 16 || cfg.LSHNumTables != 4 {
		t.Errorf("expected LSH defaults 16/4, got %d/%d", cfg.LSHNumPlanes, cfg.LSHNumTables)
	}
	if cfg.LSHSeed != 42 {
		t.Errorf("expected default LSH seed 42, got %d", cfg.LSHSeed)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATA_DIR", "/tmp/vdb")
	t.Setenv("DEFAULT_METRIC", "euclidean")
	t.Setenv("LSH_NUM_PLANES", "32")
	t.Setenv("COHERE_API_KEY", "secret")

	cfg := Load()
	if cfg.DataDir != "/tmp/vdb" {
		t.Errorf("expected DataDir from env, got %q", cfg.DataDir)
	}
	if cfg.DefaultMetric != model.Euclidean {
		t.Errorf("expected DefaultMetric euclidean, got %v", cfg.DefaultMetric)
	}
	if cfg.LSHNumPlanes != 32 {
		t.Errorf("expected LSHNumPlanes 32, got %d", cfg.LSHNumPlanes)
	}
	if cfg.CohereAPIKey != "secret" {
		t.Errorf("expected CohereAPIKey from env, got %q", cfg.CohereAPIKey)
	}
}

func TestLoadFallsBackOnUnparsableInt(t *testing.T) {
	t.Setenv("LSH_NUM_TABLES", "not-a-number")
	cfg := Load()
	if cfg.LSHNumTables != 4 {
		t.Errorf("expected fallback to default 4 on unparsable env value, got %d", cfg.LSHNumTables)
	}
}
