package footcast

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/richard-senior/footcast/pkg/transport"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// played builds a finished match with the result derived from the score
func played(date, home, away string, hg, ag int) *Match {
	m := NewMatch()
	m.Date = day(date)
	m.Div = "E0"
	m.Season = SeasonTag(m.Date)
	m.HomeTeam, m.AwayTeam = home, away
	m.FTHG, m.FTAG = hg, ag
	switch {
	case hg > ag:
		m.FTR = "H"
	case hg < ag:
		m.FTR = "A"
	default:
		m.FTR = "D"
	}
	m.ID = MatchKey(m.Date, home, away)
	return m
}

// seasonCSV renders rows in the football-data layout
func seasonCSV(header string, rows ...string) string {
	return header + "\n" + strings.Join(rows, "\n") + "\n"
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// roundRobin generates a double round robin of four teams per season, one matchday a week
// from mid August, with results cycling so every class appears
func roundRobin(seasons ...int) []*Match {
	teams := []string{"Arsenal", "Chelsea", "Everton", "Fulham"}
	var out []*Match
	for _, season := range seasons {
		start := time.Date(season-1, time.August, 12, 0, 0, 0, 0, time.UTC)
		week := 0
		for _, h := range teams {
			for _, a := range teams {
				if h == a {
					continue
				}
				d := start.AddDate(0, 0, 7*week)
				hg, ag := week%3, (week+1)%3
				if week%4 == 0 {
					ag = hg
				}
				m := played(d.Format("2006-01-02"), h, a, hg, ag)
				m.PSH, m.PSD, m.PSA = 2.0+float64(week%3)/2, 3.2, 3.5
				m.HS, m.AS, m.HST, m.AST = 10+week%5, 8, 4, 3
				out = append(out, m)
				week++
			}
		}
	}
	return out
}

func csvRow(m *Match) string {
	return fmt.Sprintf("%s,%s,%s,%s,%d,%d,%s,%d,%d,%d,%d,%.2f,%.2f,%.2f",
		m.Div, m.Date.Format("02/01/2006"), m.HomeTeam, m.AwayTeam, m.FTHG, m.FTAG, m.FTR,
		m.HS, m.AS, m.HST, m.AST, m.PSH, m.PSD, m.PSA)
}

const csvHeader = "Div,Date,HomeTeam,AwayTeam,FTHG,FTAG,FTR,HS,AS,HST,AST,PSH,PSD,PSA"

// fakeGetter serves canned bodies by url and records the requests it saw
type fakeGetter struct {
	bodies   map[string]string
	errs     map[string]error
	requests []string
	headers  []map[string]string
}

func (f *fakeGetter) Get(_ context.Context, url string, headers map[string]string) ([]byte, error) {
	f.requests = append(f.requests, url)
	f.headers = append(f.headers, headers)
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	body, ok := f.bodies[url]
	if !ok {
		return nil, &transport.StatusError{URL: url, StatusCode: 404}
	}
	return []byte(body), nil
}
