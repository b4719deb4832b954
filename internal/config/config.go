// Package config holds the pipeline, model and server configuration.
//
// Values come from three layers, later ones winning: built-in defaults,
// an optional YAML file and environment variables (a .env file in the
// working directory is loaded first when present).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when FRAUD_CONFIG is unset.
const DefaultPath = "configs/fraud.yaml"

var (
	ErrInvalidTestSize    = errors.New("config: test_size must be in (0, 1)")
	ErrInvalidModelKind   = errors.New("config: model.kind must be forest or mlp")
	ErrInvalidMaxFeatures = errors.New("config: model.forest.max_features must be sqrt, log2 or all")
	ErrInvalidEstimators  = errors.New("config: model.forest.n_estimators must be positive")
	ErrInvalidNeighbors   = errors.New("config: smote.k_neighbors must be positive")
	ErrInvalidMLP         = errors.New("config: model.mlp is invalid")
)

// Paths lists every artifact the pipeline reads or writes.
type Paths struct {
	RawData         string `yaml:"raw_data"`
	ProcessedData   string `yaml:"processed_data"`
	Model           string `yaml:"model"`
	Metrics         string `yaml:"metrics"`
	ConfusionMatrix string `yaml:"confusion_matrix"`
	ROCCurve        string `yaml:"roc_curve"`
	Predictions     string `yaml:"predictions"`
	TrainingLog     string `yaml:"training_log"`
	PipelineLog     string `yaml:"pipeline_log"`
}

type SMOTE struct {
	KNeighbors  int   `yaml:"k_neighbors"`
	RandomState int64 `yaml:"random_state"`
}

// Forest mirrors the random forest hyperparameters.
// MaxDepth 0 grows trees until leaves are pure.
type Forest struct {
	NEstimators     int    `yaml:"n_estimators"`
	MaxDepth        int    `yaml:"max_depth"`
	MinSamplesSplit int    `yaml:"min_samples_split"`
	MinSamplesLeaf  int    `yaml:"min_samples_leaf"`
	MaxFeatures     string `yaml:"max_features"`
	Bootstrap       bool   `yaml:"bootstrap"`
	Workers         int    `yaml:"workers"`
	RandomState     int64  `yaml:"random_state"`
}

type MLP struct {
	Hidden       []int   `yaml:"hidden"`
	LearningRate float64 `yaml:"learning_rate"`
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	Patience     int     `yaml:"patience"`
	MinDelta     float64 `yaml:"min_delta"`
	RandomState  int64   `yaml:"random_state"`
}

type Model struct {
	Kind   string `yaml:"kind"`
	Forest Forest `yaml:"forest"`
	MLP    MLP    `yaml:"mlp"`
}

type Server struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type Schedule struct {
	Retrain string `yaml:"retrain"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full configuration tree.
type Config struct {
	BaseDir      string   `yaml:"base_dir"`
	Paths        Paths    `yaml:"paths"`
	TargetColumn string   `yaml:"target_column"`
	TestSize     float64  `yaml:"test_size"`
	RandomState  int64    `yaml:"random_state"`
	SMOTE        SMOTE    `yaml:"smote"`
	Model        Model    `yaml:"model"`
	Server       Server   `yaml:"server"`
	Schedule     Schedule `yaml:"schedule"`
	Log          Log      `yaml:"log"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		BaseDir: ".",
		Paths: Paths{
			RawData:         "data/raw/creditcard.csv",
			ProcessedData:   "data/processed/processed_data.csv",
			Model:           "models/fraud_detection_model.gob",
			Metrics:         "results/metrics.json",
			ConfusionMatrix: "results/confusion_matrix.png",
			ROCCurve:        "results/roc_curve.png",
			Predictions:     "results/predictions.csv",
			TrainingLog:     "results/training_log.csv",
			PipelineLog:     "logs/pipeline.log",
		},
		TargetColumn: "Class",
		TestSize:     0.2,
		RandomState:  42,
		SMOTE: SMOTE{
			KNeighbors:  5,
			RandomState: 42,
		},
		Model: Model{
			Kind: "forest",
			Forest: Forest{
				NEstimators:     100,
				MaxDepth:        0,
				MinSamplesSplit: 2,
				MinSamplesLeaf:  1,
				MaxFeatures:     "sqrt",
				Bootstrap:       true,
				RandomState:     42,
			},
			MLP: MLP{
				Hidden:       []int{32, 16},
				LearningRate: 0.001,
				Epochs:       20,
				BatchSize:    64,
				Patience:     3,
				MinDelta:     1e-4,
				RandomState:  42,
			},
		},
		Server: Server{
			Addr:         ":5000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Schedule: Schedule{Retrain: "@daily"},
		Log:      Log{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// path (or FRAUD_CONFIG, or DefaultPath) and the environment.
// A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	if path == "" {
		path = getEnv("FRAUD_CONFIG", DefaultPath)
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.BaseDir = getEnv("FRAUD_BASE_DIR", c.BaseDir)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Model.Kind = getEnv("FRAUD_MODEL_KIND", c.Model.Kind)
	c.Schedule.Retrain = getEnv("FRAUD_RETRAIN_SCHEDULE", c.Schedule.Retrain)
	if port, ok := os.LookupEnv("PORT"); ok {
		if _, err := strconv.Atoi(port); err != nil {
			return fmt.Errorf("config: PORT %q is not a number", port)
		}
		c.Server.Addr = ":" + port
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return fmt.Errorf("%w: %v", ErrInvalidTestSize, c.TestSize)
	}
	if c.SMOTE.KNeighbors < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidNeighbors, c.SMOTE.KNeighbors)
	}
	switch c.Model.Kind {
	case "forest", "mlp":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidModelKind, c.Model.Kind)
	}
	f := c.Model.Forest
	if f.NEstimators < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidEstimators, f.NEstimators)
	}
	switch f.MaxFeatures {
	case "sqrt", "log2", "all":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMaxFeatures, f.MaxFeatures)
	}
	m := c.Model.MLP
	if m.Epochs < 1 || m.BatchSize < 1 || m.LearningRate <= 0 {
		return fmt.Errorf("%w: epochs, batch_size and learning_rate must be positive", ErrInvalidMLP)
	}
	for _, h := range m.Hidden {
		if h < 1 {
			return fmt.Errorf("%w: hidden layer size %d", ErrInvalidMLP, h)
		}
	}
	return nil
}

// Resolve returns p joined to BaseDir unless p is absolute.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

// EnsureDirs creates the parent directory of every configured path.
func (c *Config) EnsureDirs() error {
	for _, p := range []string{
		c.Paths.RawData,
		c.Paths.ProcessedData,
		c.Paths.Model,
		c.Paths.Metrics,
		c.Paths.ConfusionMatrix,
		c.Paths.ROCCurve,
		c.Paths.Predictions,
		c.Paths.TrainingLog,
		c.Paths.PipelineLog,
	} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(c.Resolve(p)), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", p, err)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
