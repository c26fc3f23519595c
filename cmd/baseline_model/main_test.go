package main

import (
	"os"
	"path/filepath"
	"testing"

	"mobileprice/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaselineArtifactLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "best_ml.json")
	require.NoError(t, BaselineArtifact().Save(path))

	model, err := ml.NewLoader(path, ml.ModelTypeAuto).Load()
	require.NoError(t, err)

	class, err := ml.Predict(model, ml.Encode(ml.DefaultRawInputs()))
	require.NoError(t, err)
	assert.Equal(t, ml.MediumCost, class)

	cases := map[int]ml.PriceRange{512: ml.LowCost, 2500: ml.HighCost, 4096: ml.VeryHighCost}
	for ram, want := range cases {
		raw := ml.DefaultRawInputs()
		raw.RAMMB = ram
		class, err := ml.Predict(model, ml.Encode(raw))
		require.NoError(t, err)
		assert.Equal(t, want, class, "ram %d", ram)
	}
}

func TestCheckArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "best_ml.json")
	require.NoError(t, BaselineArtifact().Save(path))

	label, err := checkArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, "Medium Cost ($$)", label)

	_, err = checkArtifact(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ml.ErrArtifactMissing)
}

// The artifact shipped at the repository root must stay loadable.
func TestShippedArtifact(t *testing.T) {
	path := filepath.Join("..", "..", ml.DefaultModelPath)
	if _, err := os.Stat(path); err != nil {
		t.Skip("no shipped artifact")
	}
	label, err := checkArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, "Medium Cost ($$)", label)
}
