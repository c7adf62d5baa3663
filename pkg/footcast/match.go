package footcast

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Compile-time check to ensure Match implements Persistable interface
var _ Persistable = (*Match)(nil)

// Outcome labels, in model column order
const (
	LabelHome = 0
	LabelDraw = 1
	LabelAway = 2
)

// LabelNames maps a label index to its football-data result code
var LabelNames = [3]string{"H", "D", "A"}

// LabelIndex maps a result code (H/D/A) to its label index
func LabelIndex(result string) (int, error) {
	switch strings.ToUpper(strings.TrimSpace(result)) {
	case "H":
		return LabelHome, nil
	case "D":
		return LabelDraw, nil
	case "A":
		return LabelAway, nil
	}
	return -1, fmt.Errorf("unknown result label %q", result)
}

// Match is one historical fixture as loaded from a football-data.co.uk season file.
// Optional numeric fields hold -1 (int) or -1.0 (float64) when the source did not carry them.
type Match struct {
	// Primary key, see MatchKey
	ID string `json:"id" column:"id" dbtype:"TEXT" primary:"true" index:"true"`

	Date     time.Time `json:"date" column:"date" dbtype:"DATETIME NOT NULL" index:"true"`
	Div      string    `json:"div" column:"div" dbtype:"TEXT" index:"true"`
	Season   int       `json:"season" column:"season" dbtype:"INTEGER NOT NULL" index:"true"`
	HomeTeam string    `json:"homeTeam" column:"home_team" dbtype:"TEXT NOT NULL" index:"true"`
	AwayTeam string    `json:"awayTeam" column:"away_team" dbtype:"TEXT NOT NULL" index:"true"`

	// Full time
	FTHG int    `json:"fthg" column:"fthg" dbtype:"INTEGER DEFAULT -1"`
	FTAG int    `json:"ftag" column:"ftag" dbtype:"INTEGER DEFAULT -1"`
	FTR  string `json:"ftr" column:"ftr" dbtype:"TEXT NOT NULL"`

	// Action
	HS  int `json:"hs" column:"hs" dbtype:"INTEGER DEFAULT -1"`
	AS  int `json:"as" column:"as_" dbtype:"INTEGER DEFAULT -1"`
	HST int `json:"hst" column:"hst" dbtype:"INTEGER DEFAULT -1"`
	AST int `json:"ast" column:"ast" dbtype:"INTEGER DEFAULT -1"`
	HC  int `json:"hc" column:"hc" dbtype:"INTEGER DEFAULT -1"`
	AC  int `json:"ac" column:"ac" dbtype:"INTEGER DEFAULT -1"`
	HF  int `json:"hf" column:"hf" dbtype:"INTEGER DEFAULT -1"`
	AF  int `json:"af" column:"af" dbtype:"INTEGER DEFAULT -1"`

	// Discipline
	HY int `json:"hy" column:"hy" dbtype:"INTEGER DEFAULT -1"`
	AY int `json:"ay" column:"ay" dbtype:"INTEGER DEFAULT -1"`
	HR int `json:"hr" column:"hr" dbtype:"INTEGER DEFAULT -1"`
	AR int `json:"ar" column:"ar" dbtype:"INTEGER DEFAULT -1"`

	// Pinnacle (primary) and Bet365 (fallback) 1X2 prices
	PSH   float64 `json:"psh" column:"psh" dbtype:"REAL DEFAULT -1.0"`
	PSD   float64 `json:"psd" column:"psd" dbtype:"REAL DEFAULT -1.0"`
	PSA   float64 `json:"psa" column:"psa" dbtype:"REAL DEFAULT -1.0"`
	B365H float64 `json:"b365h" column:"b365h" dbtype:"REAL DEFAULT -1.0"`
	B365D float64 `json:"b365d" column:"b365d" dbtype:"REAL DEFAULT -1.0"`
	B365A float64 `json:"b365a" column:"b365a" dbtype:"REAL DEFAULT -1.0"`

	// Metadata
	CreatedAt time.Time `json:"createdAt" column:"created_at" dbtype:"DATETIME DEFAULT CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updatedAt" column:"updated_at" dbtype:"DATETIME DEFAULT CURRENT_TIMESTAMP"`
}

// NewMatch creates a new Match with default values for numeric fields
// All numeric fields default to -1 (int) or -1.0 (float64) to distinguish from valid zero values
func NewMatch() *Match {
	return &Match{
		FTHG:  -1,
		FTAG:  -1,
		HS:    -1,
		AS:    -1,
		HST:   -1,
		AST:   -1,
		HC:    -1,
		AC:    -1,
		HF:    -1,
		AF:    -1,
		HY:    -1,
		AY:    -1,
		HR:    -1,
		AR:    -1,
		PSH:   -1.0,
		PSD:   -1.0,
		PSA:   -1.0,
		B365H: -1.0,
		B365D: -1.0,
		B365A: -1.0,
	}
}

// MatchKey identifies a fixture by calendar day and teams, e.g. 20240817_Arsenal_Wolves
func MatchKey(date time.Time, home, away string) string {
	return fmt.Sprintf("%s_%s_%s", date.UTC().Format("20060102"), home, away)
}

/////////////////////////////////////////////////////////////////////////
////// Persistable Interface Implementation
/////////////////////////////////////////////////////////////////////////

// GetPrimaryKey returns the primary key as a map
func (m *Match) GetPrimaryKey() map[string]interface{} {
	return map[string]any{
		"id": m.ID,
	}
}

// SetPrimaryKey sets the primary key from a map
func (m *Match) SetPrimaryKey(pk map[string]interface{}) error {
	if id, ok := pk["id"]; ok {
		if idStr, ok := id.(string); ok {
			m.ID = idStr
			return nil
		}
		return fmt.Errorf("primary key 'id' must be a string")
	}
	return fmt.Errorf("primary key 'id' not found")
}

// GetTableName returns the table name for matches
func (m *Match) GetTableName() string {
	return "matches"
}

// BeforeSave is called before saving the match
func (m *Match) BeforeSave() error {
	if m.ID == "" {
		m.ID = MatchKey(m.Date, m.HomeTeam, m.AwayTeam)
	}
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	return nil
}

func (m *Match) AfterSave() error    { return nil }
func (m *Match) BeforeDelete() error { return nil }
func (m *Match) AfterDelete() error  { return nil }

/////////////////////////////////////////////////////////////////////////
////// Queries
/////////////////////////////////////////////////////////////////////////

// HasBeenPlayed determines if match has a full time score
func (m *Match) HasBeenPlayed() bool {
	return m.FTHG >= 0 && m.FTAG >= 0
}

// PointsFor returns league points earned by team in this match (3 win, 1 draw, 0 loss).
// Derived from the result code so it matches FTR even when goals are absent.
func (m *Match) PointsFor(team string) int {
	switch {
	case m.FTR == "D":
		return 1
	case m.FTR == "H" && m.HomeTeam == team, m.FTR == "A" && m.AwayTeam == team:
		return 3
	default:
		return 0
	}
}

// GoalDifferenceFor returns goals for minus goals against from team's perspective.
// Zero when the score is unknown.
func (m *Match) GoalDifferenceFor(team string) int {
	if !m.HasBeenPlayed() {
		return 0
	}
	if m.HomeTeam == team {
		return m.FTHG - m.FTAG
	}
	return m.FTAG - m.FTHG
}

// PrimaryQuote returns the Pinnacle 1X2 quote
func (m *Match) PrimaryQuote() Quote {
	return Quote{Home: m.PSH, Draw: m.PSD, Away: m.PSA}
}

// FallbackQuote returns the Bet365 1X2 quote
func (m *Match) FallbackQuote() Quote {
	return Quote{Home: m.B365H, Draw: m.B365D, Away: m.B365A}
}

// GetTeamsFromMatches extracts the sorted set of team names appearing in matches
func GetTeamsFromMatches(matches []*Match) []string {
	teamSet := make(map[string]bool)
	for _, match := range matches {
		if match.HomeTeam != "" {
			teamSet[match.HomeTeam] = true
		}
		if match.AwayTeam != "" {
			teamSet[match.AwayTeam] = true
		}
	}
	teams := make([]string, 0, len(teamSet))
	for team := range teamSet {
		teams = append(teams, team)
	}
	sort.Strings(teams)
	return teams
}
