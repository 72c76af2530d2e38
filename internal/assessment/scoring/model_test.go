package scoring

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardiotrack/internal/patient/models"
)

func TestLoadDefault(t *testing.T) {
	m, err := Load("")
	require.NoError(t, err)
	assert.Len(t, m.Features, models.FeatureCount)
}

func TestScoreSeparatesProfiles(t *testing.T) {
	m, err := Load("")
	require.NoError(t, err)

	risky := models.MedicalFields{
		Age: 72, Sex: 1, CP: 3, Trestbps: 180, Chol: 330, FBS: 1, RestECG: 2,
		Thalach: 95, Exang: 1, Oldpeak: 4.2, Slope: 2, CA: 3, Thal: 2,
	}
	healthy := models.MedicalFields{
		Age: 32, Sex: 0, CP: 0, Trestbps: 110, Chol: 170, FBS: 0, RestECG: 0,
		Thalach: 185, Exang: 0, Oldpeak: 0.2, Slope: 0, CA: 0, Thal: 1,
	}

	label, p, err := m.Score(context.Background(), risky.Vector())
	require.NoError(t, err)
	assert.Equal(t, 1, label)
	assert.Greater(t, p, 0.5)

	label, p, err = m.Score(context.Background(), healthy.Vector())
	require.NoError(t, err)
	assert.Equal(t, 0, label)
	assert.Less(t, p, 0.5)
}

func TestScoreIsDeterministic(t *testing.T) {
	m, err := Load("")
	require.NoError(t, err)
	x := models.MedicalFields{Age: 50, Trestbps: 130, Chol: 250, Thalach: 140, Oldpeak: 1}.Vector()

	_, p1, err := m.Score(context.Background(), x)
	require.NoError(t, err)
	_, p2, err := m.Score(context.Background(), x)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(path, defaultModel, 0o600))

	m, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, -0.386, m.Intercept, 1e-9)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestParseRejectsBadParameters(t *testing.T) {
	_, err := Parse([]byte(`{"mean":[0],"scale":[0],"coef":[0],"intercept":0}`))
	assert.Error(t, err, "zero scale")

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestScoreHonoursCancelledContext(t *testing.T) {
	m, err := Load("")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = m.Score(ctx, [models.FeatureCount]float64{})
	assert.ErrorIs(t, err, context.Canceled)
}
