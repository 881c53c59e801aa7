package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `
training:
  horizon: 24
  frequency: 1h
  lags: [1, 24]
  features: [temp_c]
  candidates:
    - family: gbrt
      params:
        - { num_leaves: 31 }
    - family: arima
      params:
        - { p: 1, d: 1, q: 1 }
data:
  source: csv
  csv:
    train_path: data/train.csv
    test_path: data/test.csv
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Training.Horizon != 24 {
		t.Fatalf("horizon = %d, want 24", cfg.Training.Horizon)
	}
	if cfg.Training.Frequency != time.Hour {
		t.Fatalf("frequency = %v, want 1h", cfg.Training.Frequency)
	}
	if len(cfg.Training.Candidates) != 2 {
		t.Fatalf("got %d candidate groups, want 2", len(cfg.Training.Candidates))
	}
	// Declaration order must survive parsing; it is the selection tie-break.
	if cfg.Training.Candidates[0].Family != "gbrt" || cfg.Training.Candidates[1].Family != "arima" {
		t.Fatalf("candidate order broken: %+v", cfg.Training.Candidates)
	}

	// Defaults fill the rest.
	if cfg.Training.PrimaryMetric != "rmse" || cfg.Training.SecondaryMetric != "mae" {
		t.Fatalf("metric defaults: %s/%s", cfg.Training.PrimaryMetric, cfg.Training.SecondaryMetric)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("server port default = %d", cfg.Server.Port)
	}
	if cfg.ArtifactStore.Type != "fs" {
		t.Fatalf("artifact store default = %s", cfg.ArtifactStore.Type)
	}
	if cfg.Training.Seed != 42 {
		t.Fatalf("seed default = %d", cfg.Training.Seed)
	}
}

func TestLoadNoCandidates(t *testing.T) {
	yaml := `
training:
  horizon: 24
data:
  source: csv
  csv:
    train_path: a.csv
    test_path: b.csv
`
	if _, err := Load(writeConfig(t, yaml)); err == nil {
		t.Fatalf("expected error for empty candidate list")
	}
}

func TestLoadBadLag(t *testing.T) {
	yaml := `
training:
  horizon: 24
  lags: [0]
  candidates:
    - family: gbrt
      params: [{ num_leaves: 31 }]
data:
  source: csv
  csv:
    train_path: a.csv
    test_path: b.csv
`
	if _, err := Load(writeConfig(t, yaml)); err == nil {
		t.Fatalf("expected error for non-positive lag")
	}
}

func TestLoadUnknownSelectionMetric(t *testing.T) {
	yaml := `
training:
  horizon: 24
  primary_metric: smape
  candidates:
    - family: gbrt
      params: [{ num_leaves: 31 }]
data:
  source: csv
  csv:
    train_path: a.csv
    test_path: b.csv
`
	if _, err := Load(writeConfig(t, yaml)); err == nil {
		t.Fatalf("expected error for unknown selection metric")
	}
}

func TestLoadCSVRequiresPaths(t *testing.T) {
	yaml := `
training:
  horizon: 24
  candidates:
    - family: gbrt
      params: [{ num_leaves: 31 }]
data:
  source: csv
`
	if _, err := Load(writeConfig(t, yaml)); err == nil {
		t.Fatalf("expected error for missing csv paths")
	}
}

func TestLoadKafkaNeedsBrokers(t *testing.T) {
	yaml := validYAML + `
kafka:
  enabled: true
`
	if _, err := Load(writeConfig(t, yaml)); err == nil {
		t.Fatalf("expected error for kafka without brokers")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("ARTIFACT_DIR", "/var/lib/gridcast")

	cfg, err := LoadWithEnv(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "k1:9092" {
		t.Fatalf("kafka brokers override: %v", cfg.Kafka.Brokers)
	}
	if cfg.ArtifactStore.FS.Dir != "/var/lib/gridcast" {
		t.Fatalf("artifact dir override: %s", cfg.ArtifactStore.FS.Dir)
	}
}
