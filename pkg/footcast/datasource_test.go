package footcast

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeasonCSV(t *testing.T) {
	data := seasonCSV("\xef\xbb\xbfDiv,Date,HomeTeam,AwayTeam,FTHG,FTAG,FTR,HS,PSH,PSD,PSA,B365H",
		"E0,17/08/2024,Arsenal,Wolves,2,0,H,18,1.30,6.00,11.00,1.28",
		"E0,18/08/24,Chelsea,Man City,0,2,a,,4.80,4.20,1.70,",
		"E0,2024-08-19,Everton,Brighton,0,3,A,9",
		"E0,,Fulham,Leicester,,,,",
		"E0,not a date,Fulham,Leicester,1,1,D",
	)
	matches, declared, err := ReadSeasonCSV([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"Div", "Date", "HomeTeam", "AwayTeam", "FTHG", "FTAG", "FTR", "HS", "B365H", "PSH", "PSD", "PSA"}, declared)
	require.Len(t, matches, 3)

	first := matches[0]
	assert.Equal(t, day("2024-08-17"), first.Date)
	assert.Equal(t, "Arsenal", first.HomeTeam)
	assert.Equal(t, 2, first.FTHG)
	assert.Equal(t, 18, first.HS)
	assert.Equal(t, -1, first.HST)
	assert.Equal(t, 1.30, first.PSH)
	assert.Equal(t, 1.28, first.B365H)
	assert.Equal(t, -1.0, first.B365D)
	assert.Equal(t, 2025, first.Season)
	assert.Equal(t, "20240817_Arsenal_Wolves", first.ID)

	second := matches[1]
	assert.Equal(t, day("2024-08-18"), second.Date)
	assert.Equal(t, "A", second.FTR)
	assert.Equal(t, -1, second.HS)
	assert.Equal(t, -1.0, second.B365H)

	// short row padded with blanks
	third := matches[2]
	assert.Equal(t, day("2024-08-19"), third.Date)
	assert.Equal(t, 9, third.HS)
	assert.Equal(t, -1.0, third.PSH)
}

func TestParseSeasonCSVLatin1(t *testing.T) {
	data := seasonCSV("Div,Date,HomeTeam,AwayTeam,FTHG,FTAG,FTR",
		"D1,01/09/2023,M\xfcnchen,K\xf6ln,3,1,H")
	matches, _, err := ReadSeasonCSV([]byte(data))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "München", matches[0].HomeTeam)
	assert.Equal(t, "Köln", matches[0].AwayTeam)
}

func TestParseSeasonCSVFloatCounts(t *testing.T) {
	data := seasonCSV("Date,HomeTeam,AwayTeam,FTR,HS,HST", "01/09/2023,A,B,D,12.0,4")
	matches, _, err := ReadSeasonCSV([]byte(data))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 12, matches[0].HS)
	assert.Equal(t, 4, matches[0].HST)
}

func TestParseSeasonCSVMissingRequired(t *testing.T) {
	_, _, err := ReadSeasonCSV([]byte(seasonCSV("Date,HomeTeam,AwayTeam,FTHG", "01/09/2023,A,B,1")))
	assert.ErrorContains(t, err, "FTR")

	_, _, err = ReadSeasonCSV(nil)
	assert.Error(t, err)
}

func TestLoadMatchesErrors(t *testing.T) {
	_, err := LoadMatches(context.Background(), filepath.Join(t.TempDir(), "absent"), nil)
	assert.ErrorIs(t, err, ErrNoHistoricalFiles)

	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "not a season")
	_, err = LoadMatches(context.Background(), dir, nil)
	assert.ErrorIs(t, err, ErrNoHistoricalFiles)

	writeFile(t, dir, "2324/E0.csv", seasonCSV("Season,Team,Points", "2324,Arsenal,89"))
	_, err = LoadMatches(context.Background(), dir, nil)
	assert.ErrorIs(t, err, ErrNoUsableSchema)
}

func TestLoadMatchesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	season := roundRobin(2024)
	var e0 []string
	for _, m := range season {
		e0 = append(e0, csvRow(m))
	}
	writeFile(t, dir, "2324/E0.csv", seasonCSV(csvHeader, e0...))
	// the same first fixture again plus a division outside the filter
	other := played("2023-09-02", "Leeds", "Hull", 1, 0)
	other.Div = "E1"
	writeFile(t, dir, "extra/E1.csv", seasonCSV(csvHeader, csvRow(season[0]), csvRow(other)))
	writeFile(t, dir, "broken.csv", "just,a,header\n")

	table, err := LoadMatches(context.Background(), dir, []string{"E0"})
	require.NoError(t, err)
	assert.Len(t, table.Matches, len(season))
	assert.True(t, table.HasShots())
	for _, m := range table.Matches {
		assert.Equal(t, "E0", m.Div)
	}

	table, err = LoadMatches(context.Background(), dir, []string{"E0", "E1"})
	require.NoError(t, err)
	assert.Len(t, table.Matches, len(season)+1)
}

func TestLoadMatchesWithoutDivColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "E0.csv", seasonCSV("Date,HomeTeam,AwayTeam,FTR,HS", "01/09/2023,A,B,H,5"))

	table, err := LoadMatches(context.Background(), dir, []string{"E0"})
	require.NoError(t, err)
	assert.Len(t, table.Matches, 1)
	assert.False(t, table.HasShots())
}

func TestLoadMatchesCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "E0.csv", seasonCSV(csvHeader, csvRow(played("2023-09-02", "A", "B", 1, 0))))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadMatches(ctx, dir, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
