package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepfree/stepfree/internal/api/models"
)

func TestPoint_OptionalAccuracy(t *testing.T) {
	var p models.Point
	require.NoError(t, json.Unmarshal([]byte(`{"lat":52.37,"lon":4.89,"accuracy":12.5}`), &p))
	require.NotNil(t, p.Accuracy)
	assert.Equal(t, 12.5, *p.Accuracy)
	assert.True(t, p.Valid())

	// Absent accuracy stays nil and is omitted on the way out.
	var bare models.Point
	require.NoError(t, json.Unmarshal([]byte(`{"lat":52.37,"lon":4.89}`), &bare))
	assert.Nil(t, bare.Accuracy)

	raw, err := json.Marshal(bare)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "accuracy")
}

func TestPoint_Valid(t *testing.T) {
	assert.True(t, models.Point{Lat: 90, Lon: 180}.Valid())
	assert.False(t, models.Point{Lat: 90.01, Lon: 0}.Valid())
	assert.False(t, models.Point{Lat: 0, Lon: -180.01}.Valid())
}
