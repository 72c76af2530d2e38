// Package scoring is the logistic-regression risk scorer. Parameters are
// loaded once at startup and never mutated afterwards.
package scoring

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"cardiotrack/internal/patient/models"
)

//go:embed default_model.json
var defaultModel []byte

// Model holds standardization and logistic-regression parameters for the
// thirteen features, in vector order.
type Model struct {
	Features  []string                     `json:"features"`
	Mean      [models.FeatureCount]float64 `json:"mean"`
	Scale     [models.FeatureCount]float64 `json:"scale"`
	Coef      [models.FeatureCount]float64 `json:"coef"`
	Intercept float64                      `json:"intercept"`
}

// Load reads parameters from path, or the embedded defaults when path is empty.
func Load(path string) (*Model, error) {
	raw := defaultModel
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read scoring model: %w", err)
		}
		raw = b
	}
	return Parse(raw)
}

// Parse decodes and checks serialized parameters.
func Parse(raw []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode scoring model: %w", err)
	}
	if err := m.check(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Model) check() error {
	if len(m.Features) != 0 && len(m.Features) != models.FeatureCount {
		return fmt.Errorf("scoring model lists %d features, want %d", len(m.Features), models.FeatureCount)
	}
	for i := 0; i < models.FeatureCount; i++ {
		if m.Scale[i] == 0 || !finite(m.Scale[i]) {
			return fmt.Errorf("scoring model scale[%d] must be a non-zero finite number", i)
		}
		if !finite(m.Mean[i]) || !finite(m.Coef[i]) {
			return fmt.Errorf("scoring model parameter %d is not finite", i)
		}
	}
	if !finite(m.Intercept) {
		return fmt.Errorf("scoring model intercept is not finite")
	}
	return nil
}

// Score standardizes x and returns the predicted label and the probability
// of the positive class. Label 1 means the decision function is positive.
func (m *Model) Score(ctx context.Context, x [models.FeatureCount]float64) (int, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	z := m.Intercept
	for i := 0; i < models.FeatureCount; i++ {
		if !finite(x[i]) {
			return 0, 0, fmt.Errorf("feature %d is not finite", i)
		}
		z += m.Coef[i] * (x[i] - m.Mean[i]) / m.Scale[i]
	}
	p := sigmoid(z)
	label := 0
	if z > 0 {
		label = 1
	}
	return label, p, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
