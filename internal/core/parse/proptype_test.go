package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeResolver_ManualTable(t *testing.T) {
	r := NewTypeResolver(80)

	got := r.Resolve("Condo Apt")
	require.NotNil(t, got)
	assert.Equal(t, "Condominium", *got)

	got = r.Resolve("single family residence")
	require.NotNil(t, got)
	assert.Equal(t, "Detached", *got)
}

func TestTypeResolver_UnknownSentinel(t *testing.T) {
	r := NewTypeResolver(80)

	// Table entries that explicitly mean "no canonical type".
	assert.Nil(t, r.Resolve("Vacant Land"))
	assert.Nil(t, r.Resolve("other"))
	assert.Nil(t, r.Resolve(""))
}

func TestTypeResolver_FuzzyFallback(t *testing.T) {
	r := NewTypeResolver(80)

	// "semi-detached" is not in the table; punctuation normalization plus
	// fuzzy matching lands it on the canonical entry.
	got := r.Resolve("Semi-Detached")
	require.NotNil(t, got)
	assert.Equal(t, "Semi Detached", *got)
}

func TestTypeResolver_FuzzyBelowThreshold(t *testing.T) {
	r := NewTypeResolver(80)
	assert.Nil(t, r.Resolve("zzqx"))
}

func TestTypeResolver_StagesSwappable(t *testing.T) {
	// A resolver built from just the table stage never fuzzy-matches.
	r := &TypeResolver{Stages: []TypeStage{&TableStage{Table: defaultTypeTable()}}}
	assert.Nil(t, r.Resolve("Semi-Detached"))
}
