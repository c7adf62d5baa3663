package footcast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureColumns(t *testing.T) {
	assert.Equal(t, []string{"pH", "pD", "pA", "overround", "home_form", "away_form",
		"home_gd", "away_gd", "home_rest", "away_rest"}, FeatureColumns(false))
	assert.Equal(t, []string{"HS", "HST", "AS", "AST"}, FeatureColumns(true)[10:])
}

func TestApplyFallbacksTwoStages(t *testing.T) {
	nan := math.NaN()
	values := map[string]float64{
		ColPH: nan, ColPD: nan, ColPA: nan, ColOverround: math.Inf(1),
		ColHS: nan, ColHST: nan, ColAS: nan, ColAST: nan,
		ColHomeForm: nan, ColAwayRest: 4,
	}
	applyFallbacks(values)

	assert.Equal(t, 1.0/3, values[ColPH])
	assert.Equal(t, 1.0/3, values[ColPA])
	assert.Equal(t, 3.0, values[ColOverround])
	assert.Equal(t, 10.0, values[ColHS])
	assert.Equal(t, 3.0, values[ColHST])
	assert.Equal(t, 10.0, values[ColAS])
	assert.Equal(t, 3.0, values[ColAST])
	// no first stage rule, so zero
	assert.Equal(t, 0.0, values[ColHomeForm])
	assert.Equal(t, 4.0, values[ColAwayRest])
}

func TestBuildFeaturesOrderAndFallbacks(t *testing.T) {
	late := played("2024-02-10", "Chelsea", "Arsenal", 0, 2)
	late.PSH, late.PSD, late.PSA = 2.0, 3.0, 4.0
	early := played("2024-01-06", "Arsenal", "Chelsea", 1, 1)
	early.HS = 12 // the other shot columns stay absent
	table := &MatchTable{
		Matches: []*Match{late, early},
		Columns: map[string]bool{"HS": true, "HST": true, "AS": true, "AST": true},
	}

	fs, enriched := BuildFeatures(table, 5)
	require.Equal(t, 2, fs.Len())
	require.Len(t, enriched, 2)
	assert.Equal(t, FeatureColumns(true), fs.Columns)

	// sorted by date
	assert.Equal(t, day("2024-01-06"), fs.Meta[0].Date)
	assert.Equal(t, []int{LabelDraw, LabelAway}, fs.Y)
	assert.Equal(t, 2024, fs.Meta[0].Season)
	assert.Equal(t, "E0", fs.Meta[0].Div)

	first := fs.X[0]
	assert.Equal(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3, 3.0, 0.5, 0.5, 0, 0, 7, 7, 12, 3, 10, 3}, first)
	assert.True(t, enriched[0].Odds.Missing())

	second := fs.X[1]
	assert.InDelta(t, 0.4615, second[0], 1e-4)
	// Chelsea drew the first meeting at Arsenal 35 days earlier
	assert.InDelta(t, 1.0/3, second[4], 1e-12)
	assert.Equal(t, 30.0, second[8])

	for _, row := range fs.X {
		for _, v := range row {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
	}
}

func TestBuildFeaturesWithoutShots(t *testing.T) {
	table := &MatchTable{Matches: roundRobin(2023), Columns: map[string]bool{"HS": true}}
	fs, _ := BuildFeatures(table, 5)
	assert.Len(t, fs.Columns, 10)
	for _, row := range fs.X {
		assert.Len(t, row, 10)
	}
}

func TestBuildFeaturesSkipsUnknownResult(t *testing.T) {
	bad := played("2024-01-06", "Arsenal", "Chelsea", 1, 1)
	bad.FTR = "X"
	table := &MatchTable{Matches: []*Match{bad, played("2024-01-07", "Everton", "Fulham", 0, 1)}}
	fs, _ := BuildFeatures(table, 5)
	assert.Equal(t, 1, fs.Len())
	assert.Equal(t, "Everton", fs.Meta[0].HomeTeam)
}

func TestBuildFeaturesUnknownResultLeavesFormAlone(t *testing.T) {
	bad := played("2024-01-06", "Arsenal", "Chelsea", 3, 0)
	bad.FTR = "X"
	next := played("2024-01-13", "Arsenal", "Everton", 1, 0)
	fs, _ := BuildFeatures(&MatchTable{Matches: []*Match{bad, next}}, 5)

	require.Equal(t, 1, fs.Len())
	assert.Equal(t, []float64{0.5, 0.5, 0, 0, 7, 7}, fs.X[0][4:10])
}

func TestBuildFeaturesIdempotent(t *testing.T) {
	table := &MatchTable{Matches: roundRobin(2022, 2023), Columns: map[string]bool{"HS": true, "HST": true, "AS": true, "AST": true}}
	fs1, _ := BuildFeatures(table, 5)
	fs2, _ := BuildFeatures(table, 5)
	assert.Equal(t, fs1.X, fs2.X)
	assert.Equal(t, fs1.Y, fs2.Y)
	assert.Equal(t, fs1.Meta, fs2.Meta)
}

func TestBuildFeaturesNoLeakage(t *testing.T) {
	matches := roundRobin(2023)
	table := &MatchTable{Matches: matches}
	fs, _ := BuildFeatures(table, 5)

	// every row equals a form query against only strictly earlier matches
	for i, meta := range fs.Meta {
		var earlier []*Match
		for _, m := range matches {
			if m.Date.Before(meta.Date) {
				earlier = append(earlier, m)
			}
		}
		home := TeamFormAsOf(earlier, meta.HomeTeam, meta.Date, 5)
		assert.Equal(t, home.Form, fs.X[i][4])
		assert.Equal(t, home.RestDays, fs.X[i][8])
	}
}
