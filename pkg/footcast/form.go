package footcast

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	DefaultFormWindow = 5
	DefaultForm       = 0.5 // neutral points-per-game on the [0,1] scale
	DefaultGoalDiff   = 0.0
	DefaultRestDays   = 7.0
	MaxRestDays       = 30.0
)

// FormSnapshot is a team's recent record as of a date
type FormSnapshot struct {
	Form     float64 // mean points per game over the window divided by 3, in [0,1]
	GoalDiff float64 // mean goal difference over the window
	RestDays float64 // days since the last match, clamped to [0,30]
	Played   int     // matches in the window, 0 when the defaults were used
}

// DefaultSnapshot is used for teams with no earlier matches
func DefaultSnapshot() FormSnapshot {
	return FormSnapshot{Form: DefaultForm, GoalDiff: DefaultGoalDiff, RestDays: DefaultRestDays}
}

type appearance struct {
	day      time.Time
	points   float64
	goalDiff float64
}

// History indexes played matches by team so form can be queried as of any date.
// It is built once and never mutated, queries never see matches on or after the target day.
type History struct {
	window int
	byTeam map[string][]appearance
}

// NewHistory indexes matches for form queries over the last window appearances.
// Matches without a usable H/D/A result are ignored, the same rule training rows follow.
func NewHistory(matches []*Match, window int) *History {
	if window < 1 {
		window = DefaultFormWindow
	}
	h := &History{window: window, byTeam: make(map[string][]appearance)}
	for _, m := range matches {
		if m == nil {
			continue
		}
		if _, err := LabelIndex(m.FTR); err != nil {
			continue
		}
		day := calendarDay(m.Date)
		for _, team := range []string{m.HomeTeam, m.AwayTeam} {
			h.byTeam[team] = append(h.byTeam[team], appearance{
				day:      day,
				points:   float64(m.PointsFor(team)),
				goalDiff: float64(m.GoalDifferenceFor(team)),
			})
		}
	}
	for team := range h.byTeam {
		apps := h.byTeam[team]
		sort.SliceStable(apps, func(i, j int) bool { return apps[i].day.Before(apps[j].day) })
	}
	return h
}

// Window returns the number of matches averaged per snapshot
func (h *History) Window() int {
	return h.window
}

// TeamFormAsOf summarises team's last window matches played strictly before date's calendar day
func (h *History) TeamFormAsOf(team string, date time.Time) FormSnapshot {
	apps := h.byTeam[team]
	target := calendarDay(date)
	// first appearance on or after the target day
	end := sort.Search(len(apps), func(i int) bool { return !apps[i].day.Before(target) })
	if end == 0 {
		return DefaultSnapshot()
	}
	start := end - h.window
	if start < 0 {
		start = 0
	}

	recent := apps[start:end]
	points := make([]float64, len(recent))
	gds := make([]float64, len(recent))
	for i, a := range recent {
		points[i] = a.points
		gds[i] = a.goalDiff
	}

	rest := target.Sub(apps[end-1].day).Hours() / 24
	if rest < 0 {
		rest = 0
	}
	if rest > MaxRestDays {
		rest = MaxRestDays
	}

	return FormSnapshot{
		Form:     stat.Mean(points, nil) / 3,
		GoalDiff: stat.Mean(gds, nil),
		RestDays: rest,
		Played:   len(recent),
	}
}

// TeamFormAsOf is a convenience for one-off queries against an unindexed history
func TeamFormAsOf(matches []*Match, team string, date time.Time, window int) FormSnapshot {
	return NewHistory(matches, window).TeamFormAsOf(team, date)
}

// calendarDay truncates to midnight UTC
func calendarDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
