package footcast

import (
	"math"
	"sort"
	"time"

	"github.com/richard-senior/footcast/internal/logger"
)

// Feature column names
const (
	ColPH        = "pH"
	ColPD        = "pD"
	ColPA        = "pA"
	ColOverround = "overround"
	ColHomeForm  = "home_form"
	ColAwayForm  = "away_form"
	ColHomeGD    = "home_gd"
	ColAwayGD    = "away_gd"
	ColHomeRest  = "home_rest"
	ColAwayRest  = "away_rest"
	ColHS        = "HS"
	ColHST       = "HST"
	ColAS        = "AS"
	ColAST       = "AST"
)

var baseColumns = []string{
	ColPH, ColPD, ColPA, ColOverround,
	ColHomeForm, ColAwayForm, ColHomeGD, ColAwayGD, ColHomeRest, ColAwayRest,
}

var shotColumns = []string{ColHS, ColHST, ColAS, ColAST}

// FeatureColumns returns the ordered feature schema, with the shot columns appended when present
func FeatureColumns(withShots bool) []string {
	cols := append([]string(nil), baseColumns...)
	if withShots {
		cols = append(cols, shotColumns...)
	}
	return cols
}

// fallbackRule replaces a missing value in one column
type fallbackRule struct {
	column string
	value  float64
}

// First stage of missing value substitution, applied in order.
// Anything still missing afterwards becomes 0.
var fallbackRules = []fallbackRule{
	{ColPH, 1.0 / 3},
	{ColPD, 1.0 / 3},
	{ColPA, 1.0 / 3},
	{ColOverround, 3.0},
	{ColHS, 10},
	{ColHST, 3},
	{ColAS, 10},
	{ColAST, 3},
}

func isMissing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// applyFallbacks fills missing values in a row keyed by column name
func applyFallbacks(values map[string]float64) {
	for _, rule := range fallbackRules {
		if v, ok := values[rule.column]; ok && isMissing(v) {
			values[rule.column] = rule.value
		}
	}
	for col, v := range values {
		if isMissing(v) {
			values[col] = 0.0
		}
	}
}

// RowMeta identifies the match behind a feature row
type RowMeta struct {
	Date     time.Time
	HomeTeam string
	AwayTeam string
	Div      string
	Season   int
}

// FeatureSet is the model ready table: X and Y are aligned with Meta by row index
type FeatureSet struct {
	Columns []string
	X       [][]float64
	Y       []int
	Meta    []RowMeta
}

// Len returns the number of rows
func (fs *FeatureSet) Len() int {
	return len(fs.X)
}

// EnrichedMatch carries a match with the odds and form values derived for it
type EnrichedMatch struct {
	Match    *Match
	Odds     Implied
	HomeForm FormSnapshot
	AwayForm FormSnapshot
	Label    int
}

// MatchTable is the loaded historical data plus which optional columns the source declared
type MatchTable struct {
	Matches []*Match
	Columns map[string]bool
}

// HasShots reports whether every shot column was declared by the source
func (t *MatchTable) HasShots() bool {
	for _, c := range shotColumns {
		if !t.Columns[c] {
			return false
		}
	}
	return true
}

// BuildFeatures turns the match table into a model ready FeatureSet ordered by date.
// Every value is finite. Form for each row only looks at matches before that row's day.
// Matches whose result is not H, D or A are skipped.
func BuildFeatures(table *MatchTable, window int) (*FeatureSet, []EnrichedMatch) {
	matches := make([]*Match, len(table.Matches))
	copy(matches, table.Matches)
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Date.Before(matches[j].Date) })

	history := NewHistory(matches, window)
	withShots := table.HasShots()
	fs := &FeatureSet{Columns: FeatureColumns(withShots)}
	enriched := make([]EnrichedMatch, 0, len(matches))

	skipped := 0
	for _, m := range matches {
		label, err := LabelIndex(m.FTR)
		if err != nil {
			skipped++
			continue
		}
		em := EnrichedMatch{
			Match:    m,
			Odds:     ImpliedFor(m),
			HomeForm: history.TeamFormAsOf(m.HomeTeam, m.Date),
			AwayForm: history.TeamFormAsOf(m.AwayTeam, m.Date),
			Label:    label,
		}
		values := rowValues(em.Odds, em.HomeForm, em.AwayForm)
		if withShots {
			values[ColHS] = sentinelToNaN(m.HS)
			values[ColHST] = sentinelToNaN(m.HST)
			values[ColAS] = sentinelToNaN(m.AS)
			values[ColAST] = sentinelToNaN(m.AST)
		}
		applyFallbacks(values)

		fs.X = append(fs.X, orderRow(values, fs.Columns))
		fs.Y = append(fs.Y, label)
		fs.Meta = append(fs.Meta, RowMeta{
			Date:     m.Date,
			HomeTeam: m.HomeTeam,
			AwayTeam: m.AwayTeam,
			Div:      m.Div,
			Season:   SeasonTag(m.Date),
		})
		enriched = append(enriched, em)
	}
	if skipped > 0 {
		logger.Warn("Skipped matches without a usable result", skipped)
	}
	logger.Debug("Built features", len(fs.X), "rows", len(fs.Columns), "columns")
	return fs, enriched
}

// MissingOddsRows counts rows that fell back to the neutral odds prior
func MissingOddsRows(enriched []EnrichedMatch) int {
	n := 0
	for _, em := range enriched {
		if em.Odds.Missing() {
			n++
		}
	}
	return n
}

func rowValues(odds Implied, home, away FormSnapshot) map[string]float64 {
	return map[string]float64{
		ColPH:        odds.PH,
		ColPD:        odds.PD,
		ColPA:        odds.PA,
		ColOverround: odds.Overround,
		ColHomeForm:  home.Form,
		ColAwayForm:  away.Form,
		ColHomeGD:    home.GoalDiff,
		ColAwayGD:    away.GoalDiff,
		ColHomeRest:  home.RestDays,
		ColAwayRest:  away.RestDays,
	}
}

func orderRow(values map[string]float64, columns []string) []float64 {
	row := make([]float64, len(columns))
	for i, c := range columns {
		row[i] = values[c]
	}
	return row
}

func sentinelToNaN(v int) float64 {
	if v < 0 {
		return math.NaN()
	}
	return float64(v)
}
