package footcast

import (
	"fmt"
	"strconv"
	"time"
)

// SeasonTag labels the season a date belongs to by the year it ends in.
// Seasons start in August, so 2023-08-12 and 2024-05-19 both map to 2024.
func SeasonTag(date time.Time) int {
	if date.Month() >= time.August {
		return date.Year() + 1
	}
	return date.Year()
}

// ParseSeason normalises a season given as a tag (2024), a long form (2023/2024 or 2023-2024),
// a short form (2023/24) or a football-data code (2324) into its tag
func ParseSeason(season string) (int, error) {
	ss := season
	switch {
	case len(ss) == 9 && (ss[4] == '/' || ss[4] == '-'):
		return strconv.Atoi(ss[5:])
	case len(ss) == 7 && (ss[4] == '/' || ss[4] == '-'):
		yy, err := strconv.Atoi(ss[5:])
		if err != nil {
			return 0, fmt.Errorf("invalid season format: %s", season)
		}
		return 2000 + yy, nil
	case len(ss) == 4:
		n, err := strconv.Atoi(ss)
		if err != nil {
			return 0, fmt.Errorf("invalid season format: %s", season)
		}
		start, end := n/100, n%100
		if (start+1)%100 != end {
			return n, nil
		}
		// football-data code: first two digits start year, last two end year
		if start >= 90 && end != 0 {
			return 1900 + end, nil
		}
		return 2000 + end, nil
	}
	return 0, fmt.Errorf("invalid season format: %s", season)
}

// SeasonCode renders a season tag as the football-data directory code, 2024 -> "2324"
func SeasonCode(tag int) string {
	return fmt.Sprintf("%02d%02d", (tag-1)%100, tag%100)
}

// SeasonLabel renders a season tag in long form, 2024 -> "2023/2024"
func SeasonLabel(tag int) string {
	return fmt.Sprintf("%d/%d", tag-1, tag)
}
