package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBathScore_FullHalfFormat(t *testing.T) {
	score, full, half := BathScore("3F 1H")
	require.NotNil(t, score)
	assert.Equal(t, 3.5, *score)
	assert.Equal(t, 3, full)
	assert.Equal(t, 1, half)
}

func TestBathScore_ColonFormat(t *testing.T) {
	score, full, half := BathScore("3:1")
	require.NotNil(t, score)
	assert.Equal(t, 3.5, *score)
	assert.Equal(t, 3, full)
	assert.Equal(t, 1, half)
}

func TestBathScore_PlainNumber(t *testing.T) {
	score, full, half := BathScore("2")
	require.NotNil(t, score)
	assert.Equal(t, 2.0, *score)
	assert.Equal(t, 2, full)
	assert.Equal(t, 0, half)
}

func TestBathScore_Unrecognized(t *testing.T) {
	score, full, half := BathScore("several")
	assert.Nil(t, score)
	assert.Equal(t, 0, full)
	assert.Equal(t, 0, half)
}

func TestBathScoreFromCounts(t *testing.T) {
	score, full, half := BathScoreFromCounts("2", "1")
	require.NotNil(t, score)
	assert.Equal(t, 2.5, *score)
	assert.Equal(t, 2, full)
	assert.Equal(t, 1, half)
}

func TestBathScoreFromCounts_FloatInput(t *testing.T) {
	// Exports sometimes carry counts as "2.0".
	score, full, half := BathScoreFromCounts("2.0", "")
	require.NotNil(t, score)
	assert.Equal(t, 2.0, *score)
	assert.Equal(t, 2, full)
	assert.Equal(t, 0, half)
}
