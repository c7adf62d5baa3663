package footcast

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/richard-senior/footcast/internal/logger"
	"github.com/richard-senior/footcast/pkg/transport"
)

// LiveClient reads the football-data.org v4 schedule
type LiveClient struct {
	client      transport.Getter
	baseURL     string
	apiKey      string
	competition string
}

func NewLiveClient(client transport.Getter, baseURL, apiKey, competition string) *LiveClient {
	return &LiveClient{
		client:      client,
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		competition: competition,
	}
}

type matchesResponse struct {
	Matches []struct {
		ID       int       `json:"id"`
		UTCDate  time.Time `json:"utcDate"`
		Matchday *int      `json:"matchday"`
		HomeTeam struct {
			Name string `json:"name"`
		} `json:"homeTeam"`
		AwayTeam struct {
			Name string `json:"name"`
		} `json:"awayTeam"`
	} `json:"matches"`
}

// ScheduledFixtures returns the competition's scheduled matches ordered by kick off.
// Without an API key it returns no fixtures and no error.
func (c *LiveClient) ScheduledFixtures(ctx context.Context) ([]Fixture, error) {
	if c.apiKey == "" {
		logger.Info("No football-data.org API key, skipping live fixtures")
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/competitions/%s/matches?status=SCHEDULED", c.baseURL, url.PathEscape(c.competition))
	body, err := c.client.Get(ctx, endpoint, map[string]string{"X-Auth-Token": c.apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fixtures: %w", err)
	}

	var resp matchesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode fixtures: %w", err)
	}

	fixtures := make([]Fixture, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		f := Fixture{
			ID:       m.ID,
			UTCDate:  m.UTCDate.UTC(),
			HomeTeam: m.HomeTeam.Name,
			AwayTeam: m.AwayTeam.Name,
		}
		if m.Matchday != nil {
			f.Matchday = *m.Matchday
		}
		if f.HomeTeam == "" || f.AwayTeam == "" {
			logger.Debug("Skipping fixture without teams", m.ID)
			continue
		}
		fixtures = append(fixtures, f)
	}
	sort.SliceStable(fixtures, func(i, j int) bool { return fixtures[i].UTCDate.Before(fixtures[j].UTCDate) })

	logger.Info("Fetched scheduled fixtures", len(fixtures), c.competition)
	return fixtures, nil
}
