package footcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTeamFormNoHistory(t *testing.T) {
	h := NewHistory([]*Match{played("2024-08-17", "Arsenal", "Wolves", 2, 0)}, 5)

	snap := h.TeamFormAsOf("Arsenal", day("2024-08-17"))
	assert.Equal(t, 0.5, snap.Form)
	assert.Equal(t, 0.0, snap.GoalDiff)
	assert.Equal(t, 7.0, snap.RestDays)
	assert.Equal(t, 0, snap.Played)

	assert.Equal(t, DefaultSnapshot(), h.TeamFormAsOf("Nobody", day("2030-01-01")))
}

func TestTeamFormWindow(t *testing.T) {
	matches := []*Match{
		played("2024-08-01", "A", "B", 1, 0), // dropped by window 3
		played("2024-08-08", "C", "A", 0, 0), // draw: 1 point, gd 0
		played("2024-08-15", "A", "D", 3, 1), // win: 3, +2
		played("2024-08-22", "E", "A", 2, 0), // loss: 0, -2
		played("2024-08-29", "A", "F", 5, 0), // target day, excluded
	}
	snap := TeamFormAsOf(matches, "A", day("2024-08-29"), 3)

	assert.InDelta(t, (1.0+3+0)/3/3, snap.Form, 1e-12)
	assert.InDelta(t, 0.0, snap.GoalDiff, 1e-12)
	assert.Equal(t, 7.0, snap.RestDays)
	assert.Equal(t, 3, snap.Played)
}

func TestTeamFormRestClamped(t *testing.T) {
	matches := []*Match{played("2024-01-01", "A", "B", 1, 1)}
	h := NewHistory(matches, 5)

	assert.Equal(t, 30.0, h.TeamFormAsOf("A", day("2024-06-01")).RestDays)
	assert.Equal(t, 3.0, h.TeamFormAsOf("B", day("2024-01-04")).RestDays)
}

func TestTeamFormSameDayExcluded(t *testing.T) {
	m := played("2024-03-02", "A", "B", 4, 0)
	m.Date = m.Date.Add(12 * time.Hour) // kick off at noon
	h := NewHistory([]*Match{m}, 5)

	assert.Equal(t, DefaultSnapshot(), h.TeamFormAsOf("A", day("2024-03-02").Add(20*time.Hour)))
	assert.Equal(t, 1.0, h.TeamFormAsOf("A", day("2024-03-03")).Form)
}

func TestTeamFormCausality(t *testing.T) {
	base := roundRobin(2023)
	cutoff := base[6].Date
	before := NewHistory(base, 5).TeamFormAsOf("Arsenal", cutoff)

	// mutate and reorder everything on or after the cutoff
	var mutated []*Match
	for i := len(base) - 1; i >= 0; i-- {
		m := *base[i]
		if !m.Date.Before(cutoff) {
			m.FTHG, m.FTAG, m.FTR = 9, 0, "H"
		}
		mutated = append(mutated, &m)
	}
	after := NewHistory(mutated, 5).TeamFormAsOf("Arsenal", cutoff)
	assert.Equal(t, before, after)
}

func TestTeamFormSkipsUnknownResult(t *testing.T) {
	bad := played("2024-01-06", "A", "B", 3, 0)
	bad.FTR = "X"
	h := NewHistory([]*Match{bad, played("2024-01-13", "A", "C", 1, 0)}, 5)

	assert.Equal(t, DefaultSnapshot(), h.TeamFormAsOf("A", day("2024-01-13")))
	assert.Equal(t, DefaultSnapshot(), h.TeamFormAsOf("B", day("2024-02-01")))
	assert.Equal(t, 1.0, h.TeamFormAsOf("A", day("2024-01-14")).Form)
}
