package db

import (
	"path/filepath"
	"testing"

	"mobileprice/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictionStoreRoundTrip(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "data", "predictions.db"))
	require.NoError(t, err)
	defer store.Close()

	features := ml.Encode(ml.DefaultRawInputs())
	for _, class := range []ml.PriceRange{ml.LowCost, ml.HighCost, ml.HighCost} {
		_, err := store.SavePrediction(ml.Prediction{Class: class, Label: class.Label(), Features: features})
		require.NoError(t, err)
	}

	records, err := store.RecentPredictions(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "High Cost ($$$)", records[0].Label)
	assert.Equal(t, features, records[0].Features)
	assert.Equal(t, ml.FeatureSchemaVersion, records[0].SchemaVersion)
	assert.Greater(t, records[0].ID, records[1].ID)

	counts, err := store.CountByLabel()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Low Cost ($)": 1, "High Cost ($$$)": 2}, counts)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
