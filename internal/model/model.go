// Package model defines the persisted classifier artifact.
//
// An artifact couples the fitted classifier with the ordered feature names
// it was trained on, so inference can rebuild vectors in the same order.
package model

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FlavioCFOliveira/GoFraud/internal/config"
	"github.com/FlavioCFOliveira/GoFraud/internal/forest"
	"github.com/FlavioCFOliveira/GoFraud/internal/mlp"
)

// Model kinds.
const (
	KindForest = "forest"
	KindMLP    = "mlp"
)

var (
	ErrUnknownKind     = errors.New("model: unknown model kind")
	ErrFeatureMismatch = errors.New("model: feature mismatch")
	ErrMissingFeature  = errors.New("model: missing feature")
	ErrUnknownFeature  = errors.New("model: unknown feature")
)

// Classifier scores a feature vector ordered like Artifact.Features.
type Classifier interface {
	PredictProba(x []float64) float64
	Predict(x []float64) int
}

// Artifact is the unit written to and read from the model file.
// Exactly one of Forest and Network is set, matching Kind.
type Artifact struct {
	Kind      string
	Features  []string
	Target    string
	RunID     string
	TrainedAt time.Time
	Forest    *forest.Forest
	Network   *mlp.Network
}

// Classifier returns the fitted model.
func (a *Artifact) Classifier() (Classifier, error) {
	switch a.Kind {
	case KindForest:
		if a.Forest == nil {
			return nil, fmt.Errorf("%w: forest artifact has no forest", ErrUnknownKind)
		}
		return a.Forest, nil
	case KindMLP:
		if a.Network == nil {
			return nil, fmt.Errorf("%w: mlp artifact has no network", ErrUnknownKind)
		}
		return a.Network, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}
}

// CheckColumns verifies that columns match the training features exactly.
func (a *Artifact) CheckColumns(columns []string) error {
	if len(columns) != len(a.Features) {
		return fmt.Errorf("%w: got %d columns, model expects %d", ErrFeatureMismatch, len(columns), len(a.Features))
	}
	for i, c := range columns {
		if c != a.Features[i] {
			return fmt.Errorf("%w: column %d is %s, model expects %s", ErrFeatureMismatch, i, c, a.Features[i])
		}
	}
	return nil
}

// Vector orders a named record by the training features. Every feature
// must be present and no other names are allowed.
func (a *Artifact) Vector(rec map[string]float64) ([]float64, error) {
	x := make([]float64, len(a.Features))
	var missing []string
	for i, name := range a.Features {
		v, ok := rec[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		x[i] = v
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingFeature, strings.Join(missing, ", "))
	}

	if len(rec) != len(a.Features) {
		known := make(map[string]bool, len(a.Features))
		for _, name := range a.Features {
			known[name] = true
		}
		var unknown []string
		for name := range rec {
			if !known[name] {
				unknown = append(unknown, name)
			}
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeature, strings.Join(unknown, ", "))
	}
	return x, nil
}

// Fit trains the classifier named by cfg.Model.Kind on x and y.
// Extra callbacks only apply to the mlp kind.
func Fit(cfg *config.Config, features []string, x [][]float64, y []int, callbacks ...mlp.Callback) (*Artifact, error) {
	a := &Artifact{
		Kind:      cfg.Model.Kind,
		Features:  append([]string(nil), features...),
		Target:    cfg.TargetColumn,
		RunID:     uuid.NewString(),
		TrainedAt: time.Now().UTC(),
	}

	switch cfg.Model.Kind {
	case KindForest:
		fc := cfg.Model.Forest
		f := forest.New(forest.Params{
			NEstimators:     fc.NEstimators,
			MaxDepth:        fc.MaxDepth,
			MinSamplesSplit: fc.MinSamplesSplit,
			MinSamplesLeaf:  fc.MinSamplesLeaf,
			MaxFeatures:     fc.MaxFeatures,
			Bootstrap:       fc.Bootstrap,
			Workers:         fc.Workers,
			Seed:            fc.RandomState,
		})
		if err := f.Fit(x, y); err != nil {
			return nil, err
		}
		a.Forest = f
	case KindMLP:
		mc := cfg.Model.MLP
		n := mlp.New(len(features), mc.Hidden, mc.RandomState)
		cbs := append([]mlp.Callback{mlp.NewEarlyStopping(mc.Patience, mc.MinDelta)}, callbacks...)
		_, err := n.Fit(x, y, mlp.Options{
			Hidden:       mc.Hidden,
			LearningRate: mc.LearningRate,
			Epochs:       mc.Epochs,
			BatchSize:    mc.BatchSize,
			Seed:         mc.RandomState,
		}, cbs...)
		if err != nil {
			return nil, err
		}
		a.Network = n
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Model.Kind)
	}
	return a, nil
}

// Save writes the artifact with gob encoding, replacing any previous file
// only once the new one is completely written.
func (a *Artifact) Save(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(filename)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(a); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("failed to replace model: %w", err)
	}
	return nil
}

// Load reads an artifact written by Save.
func Load(filename string) (*Artifact, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var a Artifact
	if err := gob.NewDecoder(file).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if a.Network != nil {
		a.Network.Init()
	}
	if _, err := a.Classifier(); err != nil {
		return nil, err
	}
	if a.Forest != nil {
		if err := a.Forest.Validate(len(a.Features)); err != nil {
			return nil, err
		}
	}
	if a.Network != nil && a.Network.NumInputs() != len(a.Features) {
		return nil, fmt.Errorf("%w: network expects %d inputs, artifact lists %d features", ErrFeatureMismatch, a.Network.NumInputs(), len(a.Features))
	}
	return &a, nil
}
