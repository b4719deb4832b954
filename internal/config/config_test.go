package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fraud.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TestSize != 0.2 {
		t.Errorf("TestSize = %v, want 0.2", cfg.TestSize)
	}
	if cfg.RandomState != 42 {
		t.Errorf("RandomState = %v, want 42", cfg.RandomState)
	}
	if cfg.Model.Forest.NEstimators != 100 {
		t.Errorf("NEstimators = %d, want 100", cfg.Model.Forest.NEstimators)
	}
	if cfg.TargetColumn != "Class" {
		t.Errorf("TargetColumn = %q, want Class", cfg.TargetColumn)
	}
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := writeConfig(t, `
test_size: 0.3
model:
  kind: mlp
  forest:
    n_estimators: 7
  mlp:
    hidden: [8]
server:
  read_timeout: 3s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TestSize != 0.3 {
		t.Errorf("TestSize = %v, want 0.3", cfg.TestSize)
	}
	if cfg.Model.Kind != "mlp" {
		t.Errorf("Kind = %q, want mlp", cfg.Model.Kind)
	}
	if cfg.Model.Forest.NEstimators != 7 {
		t.Errorf("NEstimators = %d, want 7", cfg.Model.Forest.NEstimators)
	}
	if cfg.Model.Forest.MaxFeatures != "sqrt" {
		t.Errorf("MaxFeatures = %q, want default sqrt", cfg.Model.Forest.MaxFeatures)
	}
	if len(cfg.Model.MLP.Hidden) != 1 || cfg.Model.MLP.Hidden[0] != 8 {
		t.Errorf("Hidden = %v, want [8]", cfg.Model.MLP.Hidden)
	}
	if cfg.Server.ReadTimeout != 3*time.Second {
		t.Errorf("ReadTimeout = %v, want 3s", cfg.Server.ReadTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FRAUD_MODEL_KIND", "mlp")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Model.Kind != "mlp" {
		t.Errorf("Kind = %q, want mlp", cfg.Model.Kind)
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("PORT", "http")
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for non-numeric PORT")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "test_size: [oops")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"defaults", func(*Config) {}, nil},
		{"zero test size", func(c *Config) { c.TestSize = 0 }, ErrInvalidTestSize},
		{"full test size", func(c *Config) { c.TestSize = 1 }, ErrInvalidTestSize},
		{"unknown kind", func(c *Config) { c.Model.Kind = "svm" }, ErrInvalidModelKind},
		{"no trees", func(c *Config) { c.Model.Forest.NEstimators = 0 }, ErrInvalidEstimators},
		{"max features", func(c *Config) { c.Model.Forest.MaxFeatures = "half" }, ErrInvalidMaxFeatures},
		{"neighbors", func(c *Config) { c.SMOTE.KNeighbors = 0 }, ErrInvalidNeighbors},
		{"mlp epochs", func(c *Config) { c.Model.MLP.Epochs = 0 }, ErrInvalidMLP},
		{"mlp hidden", func(c *Config) { c.Model.MLP.Hidden = []int{4, 0} }, ErrInvalidMLP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestResolveAndEnsureDirs(t *testing.T) {
	cfg := Default()
	cfg.BaseDir = t.TempDir()

	if got := cfg.Resolve("/abs/path.csv"); got != "/abs/path.csv" {
		t.Errorf("Resolve(abs) = %q, want unchanged", got)
	}
	want := filepath.Join(cfg.BaseDir, "models", "fraud_detection_model.gob")
	if got := cfg.Resolve(cfg.Paths.Model); got != want {
		t.Errorf("Resolve(model) = %q, want %q", got, want)
	}

	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs failed: %v", err)
	}
	for _, dir := range []string{"data/raw", "data/processed", "models", "results", "logs"} {
		info, err := os.Stat(filepath.Join(cfg.BaseDir, dir))
		if err != nil || !info.IsDir() {
			t.Errorf("directory %s was not created", dir)
		}
	}
}
