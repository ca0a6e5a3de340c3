package parse

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestAge_New(t *testing.T) {
	got := Age("New", date("2024-01-01"))
	require.NotNil(t, got)
	assert.Equal(t, 0.0, *got)
}

func TestAge_YearBuilt(t *testing.T) {
	// 1998 reads as a construction year relative to the reference date.
	got := Age("1998", date("2024-06-01"))
	require.NotNil(t, got)
	assert.Equal(t, 26.0, *got)
}

func TestAge_DirectYears(t *testing.T) {
	got := Age("85", date("2024-01-01"))
	require.NotNil(t, got)
	assert.Equal(t, 85.0, *got)
}

func TestAge_NoReferenceDate(t *testing.T) {
	assert.Nil(t, Age("1998", nil))
}

func TestAge_Garbage(t *testing.T) {
	assert.Nil(t, Age("unknown", date("2024-01-01")))
	assert.Nil(t, Age("", date("2024-01-01")))
}

func TestGLA_SquareMeters(t *testing.T) {
	got := GLA("1200 sqm")
	require.NotNil(t, got)
	assert.Equal(t, math.Round(1200*10.7639), *got)
}

func TestGLA_SquareFeetWithCommas(t *testing.T) {
	got := GLA("1,250 sqft")
	require.NotNil(t, got)
	assert.Equal(t, 1250.0, *got)
}

func TestGLA_Empty(t *testing.T) {
	assert.Nil(t, GLA(""))
	assert.Nil(t, GLA("unknown"))
}

func TestLotSize_Acres(t *testing.T) {
	got := LotSize("0.25 acres")
	require.NotNil(t, got)
	assert.Equal(t, math.Round(0.25*43560), *got)
}

func TestLotSize_NonMeasurement(t *testing.T) {
	assert.Nil(t, LotSize("condo"))
	assert.Nil(t, LotSize("common"))
	assert.Nil(t, LotSize("n/a"))
	assert.Nil(t, LotSize("sqft"))
	assert.Nil(t, LotSize(""))
}

func TestLotSize_SlashKeepsArea(t *testing.T) {
	// Dimensions on the left, area on the right.
	got := LotSize("50x100 / 5000 sf")
	require.NotNil(t, got)
	assert.Equal(t, 5000.0, *got)
}

func TestLotSize_SquareMeters(t *testing.T) {
	got := LotSize("400 sqm")
	require.NotNil(t, got)
	assert.Equal(t, math.Round(400*10.7639), *got)
}

func TestCount_PlusFormat(t *testing.T) {
	got := Count("3+1")
	require.NotNil(t, got)
	assert.Equal(t, 4.0, *got)
}

func TestCount_Plain(t *testing.T) {
	got := Count("7")
	require.NotNil(t, got)
	assert.Equal(t, 7.0, *got)
}

func TestCount_Empty(t *testing.T) {
	assert.Nil(t, Count(""))
}

func TestPrice(t *testing.T) {
	got := Price("1,250,000")
	require.NotNil(t, got)
	assert.Equal(t, 1250000.0, *got)

	assert.Nil(t, Price("call for price"))
	assert.Nil(t, Price(""))
}

func TestDate_Layouts(t *testing.T) {
	for _, raw := range []string{"2024-05-10", "May/10/2024", "May 10, 2024"} {
		got := Date(raw)
		require.NotNil(t, got, raw)
		assert.Equal(t, *date("2024-05-10"), *got, raw)
	}
	assert.Nil(t, Date("recently"))
}

func TestDistanceKM(t *testing.T) {
	got := DistanceKM("1.25 KM")
	require.NotNil(t, got)
	assert.Equal(t, 1.25, *got)

	assert.Nil(t, DistanceKM("nearby"))
}
