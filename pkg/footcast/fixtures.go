package footcast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrMissingFeatureColumn is returned when fixture features cannot supply a trained column
var ErrMissingFeatureColumn = errors.New("feature column missing for fixtures")

// Fixture is an upcoming match from the live schedule
type Fixture struct {
	ID       int       `json:"id"`
	UTCDate  time.Time `json:"utcDate"`
	HomeTeam string    `json:"homeTeam"`
	AwayTeam string    `json:"awayTeam"`
	Matchday int       `json:"matchday"`
}

// FixtureSet holds one feature row per fixture, aligned with Columns
type FixtureSet struct {
	Columns  []string
	X        [][]float64
	Fixtures []Fixture // team names resolved to historical names
}

// FixtureFeatures computes feature rows for upcoming fixtures aligned to the trained columns.
// Form and rest use only history before each fixture's day, odds use the neutral prior and
// shot counts their defaults. A trained column that cannot be produced is an error.
func FixtureFeatures(fixtures []Fixture, history *History, aliases *Aliases, trainedColumns []string) (*FixtureSet, error) {
	known := make(map[string]bool)
	for _, c := range FeatureColumns(true) {
		known[c] = true
	}
	for _, c := range trainedColumns {
		if !known[c] {
			return nil, fmt.Errorf("%w: %s", ErrMissingFeatureColumn, c)
		}
	}

	fs := &FixtureSet{Columns: append([]string(nil), trainedColumns...)}
	for _, f := range fixtures {
		f.HomeTeam = aliases.Resolve(f.HomeTeam)
		f.AwayTeam = aliases.Resolve(f.AwayTeam)

		nan := math.NaN()
		values := rowValues(
			Implied{PH: nan, PD: nan, PA: nan, Overround: nan, Provider: ProviderNone},
			history.TeamFormAsOf(f.HomeTeam, f.UTCDate),
			history.TeamFormAsOf(f.AwayTeam, f.UTCDate),
		)
		for _, c := range shotColumns {
			values[c] = nan
		}
		applyFallbacks(values)

		row := make([]float64, len(trainedColumns))
		for i, c := range trainedColumns {
			row[i] = values[c]
		}
		fs.X = append(fs.X, row)
		fs.Fixtures = append(fs.Fixtures, f)
	}
	return fs, nil
}

// UnknownTeams lists fixture teams with no appearance in matches, sorted and deduplicated.
// Those teams score with default form and the embedding model's unknown slot.
func UnknownTeams(fixtures []Fixture, matches []*Match) []string {
	known := make(map[string]bool)
	for _, team := range GetTeamsFromMatches(matches) {
		known[team] = true
	}
	seen := make(map[string]bool)
	var unknown []string
	for _, f := range fixtures {
		for _, team := range []string{f.HomeTeam, f.AwayTeam} {
			if team == "" || known[team] || seen[team] {
				continue
			}
			seen[team] = true
			unknown = append(unknown, team)
		}
	}
	sort.Strings(unknown)
	return unknown
}
