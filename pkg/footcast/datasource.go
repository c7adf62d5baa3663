package footcast

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/richard-senior/footcast/internal/logger"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var (
	// ErrNoHistoricalFiles means the raw directory holds no season csv files at all
	ErrNoHistoricalFiles = errors.New("no historical csv files found")
	// ErrNoUsableSchema means csv files exist but none carries the required columns
	ErrNoUsableSchema = errors.New("no csv file has the expected columns")
)

// utf-8 byte order mark as it reads after Latin-1 decoding
const latin1BOM = "\u00ef\u00bb\u00bf"

// Football-data dates come in several layouts depending on the season
var dateLayouts = []string{"02/01/2006", "02/01/06", "2006-01-02"}

// column declares one source column and how it lands on a Match
type column struct {
	name     string
	required bool
	set      func(m *Match, v string) error
}

func intColumn(name string, field func(m *Match) *int) column {
	return column{name: name, set: func(m *Match, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			// some seasons write counts as 3.0
			f, ferr := strconv.ParseFloat(v, 64)
			if ferr != nil {
				return err
			}
			n = int(f)
		}
		*field(m) = n
		return nil
	}}
}

func floatColumn(name string, field func(m *Match) *float64) column {
	return column{name: name, set: func(m *Match, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*field(m) = f
		return nil
	}}
}

// schema lists every column kept from a season file, in source order.
// Blank or unparseable optional values leave the -1 sentinel from NewMatch.
var schema = []column{
	{name: "Div", set: func(m *Match, v string) error { m.Div = v; return nil }},
	{name: "Date", required: true, set: func(m *Match, v string) error {
		d, err := parseMatchDate(v)
		if err != nil {
			return err
		}
		m.Date = d
		return nil
	}},
	{name: "HomeTeam", required: true, set: func(m *Match, v string) error { m.HomeTeam = v; return nil }},
	{name: "AwayTeam", required: true, set: func(m *Match, v string) error { m.AwayTeam = v; return nil }},
	intColumn("FTHG", func(m *Match) *int { return &m.FTHG }),
	intColumn("FTAG", func(m *Match) *int { return &m.FTAG }),
	{name: "FTR", required: true, set: func(m *Match, v string) error { m.FTR = strings.ToUpper(v); return nil }},
	intColumn("HS", func(m *Match) *int { return &m.HS }),
	intColumn("AS", func(m *Match) *int { return &m.AS }),
	intColumn("HST", func(m *Match) *int { return &m.HST }),
	intColumn("AST", func(m *Match) *int { return &m.AST }),
	intColumn("HC", func(m *Match) *int { return &m.HC }),
	intColumn("AC", func(m *Match) *int { return &m.AC }),
	intColumn("HF", func(m *Match) *int { return &m.HF }),
	intColumn("AF", func(m *Match) *int { return &m.AF }),
	intColumn("HY", func(m *Match) *int { return &m.HY }),
	intColumn("AY", func(m *Match) *int { return &m.AY }),
	intColumn("HR", func(m *Match) *int { return &m.HR }),
	intColumn("AR", func(m *Match) *int { return &m.AR }),
	floatColumn("B365H", func(m *Match) *float64 { return &m.B365H }),
	floatColumn("B365D", func(m *Match) *float64 { return &m.B365D }),
	floatColumn("B365A", func(m *Match) *float64 { return &m.B365A }),
	floatColumn("PSH", func(m *Match) *float64 { return &m.PSH }),
	floatColumn("PSD", func(m *Match) *float64 { return &m.PSD }),
	floatColumn("PSA", func(m *Match) *float64 { return &m.PSA }),
}

func parseMatchDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse date %q", s)
}

// FindSeasonFiles returns every *.csv below dir, sorted
func FindSeasonFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".csv") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// LoadMatches reads every season file under rawDir into one table.
// Rows without a parseable date, teams or result are dropped, fixtures repeated across files
// (same day and teams) keep their first occurrence, and when any file declares a division
// only the given divisions are kept.
func LoadMatches(ctx context.Context, rawDir string, divisions []string) (*MatchTable, error) {
	files, err := FindSeasonFiles(rawDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoHistoricalFiles, rawDir)
	}

	table := &MatchTable{Columns: make(map[string]bool)}
	usable := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		matches, declared, err := ParseSeasonCSV(f)
		f.Close()
		if err != nil {
			logger.Warn("Skipping season file", path, err)
			continue
		}
		usable++
		for _, c := range declared {
			table.Columns[c] = true
		}
		table.Matches = append(table.Matches, matches...)
		logger.Debug("Loaded season file", path, len(matches))
	}
	if usable == 0 {
		return nil, fmt.Errorf("%w: checked %d files under %s", ErrNoUsableSchema, len(files), rawDir)
	}

	if table.Columns["Div"] && len(divisions) > 0 {
		keep := make(map[string]bool, len(divisions))
		for _, d := range divisions {
			keep[d] = true
		}
		filtered := table.Matches[:0]
		for _, m := range table.Matches {
			if keep[m.Div] {
				filtered = append(filtered, m)
			}
		}
		table.Matches = filtered
	}

	table.Matches = dedupeMatches(table.Matches)
	logger.Info("Loaded matches", len(table.Matches), "from", usable, "files")
	return table, nil
}

func dedupeMatches(matches []*Match) []*Match {
	seen := make(map[string]bool, len(matches))
	out := make([]*Match, 0, len(matches))
	for _, m := range matches {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	return out
}

// ParseSeasonCSV parses one Latin-1 football-data season file.
// It returns the matches and the schema columns the file declared.
func ParseSeasonCSV(r io.Reader) ([]*Match, []string, error) {
	reader := csv.NewReader(transform.NewReader(r, charmap.ISO8859_1.NewDecoder()))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty file")
	}

	headers := records[0]
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(strings.TrimPrefix(h, latin1BOM))
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	var keep []column
	for _, c := range schema {
		if _, ok := index[c.name]; ok {
			keep = append(keep, c)
		} else if c.required {
			return nil, nil, fmt.Errorf("missing required column %s", c.name)
		}
	}

	// project onto the kept columns, padding short rows
	projected := make([][]string, 0, len(records))
	names := make([]string, len(keep))
	for i, c := range keep {
		names[i] = c.name
	}
	projected = append(projected, names)
	for _, rec := range records[1:] {
		row := make([]string, len(keep))
		for i, c := range keep {
			if j := index[c.name]; j < len(rec) {
				row[i] = strings.TrimSpace(rec[j])
			}
		}
		projected = append(projected, row)
	}

	df := dataframe.LoadRecords(projected,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, nil, fmt.Errorf("failed to build frame: %w", df.Err)
	}
	df = df.FilterAggregation(dataframe.And,
		dataframe.F{Colname: "Date", Comparator: series.Neq, Comparando: ""},
		dataframe.F{Colname: "HomeTeam", Comparator: series.Neq, Comparando: ""},
		dataframe.F{Colname: "AwayTeam", Comparator: series.Neq, Comparando: ""},
		dataframe.F{Colname: "FTR", Comparator: series.Neq, Comparando: ""},
	)
	if df.Err != nil {
		return nil, nil, fmt.Errorf("failed to filter frame: %w", df.Err)
	}

	cols := make([][]string, len(keep))
	for i, c := range keep {
		cols[i] = df.Col(c.name).Records()
	}

	matches := make([]*Match, 0, df.Nrow())
	for row := 0; row < df.Nrow(); row++ {
		m := NewMatch()
		ok := true
		for i, c := range keep {
			v := cols[i][row]
			if v == "" || v == "NaN" {
				continue
			}
			if err := c.set(m, v); err != nil {
				if c.required {
					logger.Debug("Dropping row", row+2, err)
					ok = false
					break
				}
				logger.Debug("Ignoring value", c.name, v)
			}
		}
		if !ok {
			continue
		}
		m.Season = SeasonTag(m.Date)
		m.ID = MatchKey(m.Date, m.HomeTeam, m.AwayTeam)
		matches = append(matches, m)
	}
	return matches, names, nil
}

// ReadSeasonCSV is a convenience wrapper over ParseSeasonCSV for in memory data
func ReadSeasonCSV(data []byte) ([]*Match, []string, error) {
	return ParseSeasonCSV(bytes.NewReader(data))
}
