package footcast

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/richard-senior/footcast/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scheduledJSON = `{
  "matches": [
    {"id": 2, "utcDate": "2025-08-16T16:30:00Z", "matchday": 1,
     "homeTeam": {"name": "Manchester City FC"}, "awayTeam": {"name": "Wolverhampton Wanderers FC"}},
    {"id": 1, "utcDate": "2025-08-15T19:00:00Z", "matchday": 1,
     "homeTeam": {"name": "Liverpool FC"}, "awayTeam": {"name": "AFC Bournemouth"}},
    {"id": 3, "utcDate": "2025-08-17T14:00:00Z", "matchday": null,
     "homeTeam": {"name": null}, "awayTeam": {"name": "Arsenal FC"}}
  ]
}`

func TestScheduledFixtures(t *testing.T) {
	var gotToken, gotPath, gotStatus string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Auth-Token")
		gotPath = r.URL.Path
		gotStatus = r.URL.Query().Get("status")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(scheduledJSON))
	}))
	defer srv.Close()

	client := transport.NewClient(transport.Options{Timeout: 5 * time.Second})
	live := NewLiveClient(client, srv.URL+"/v4/", "secret", "PL")

	fixtures, err := live.ScheduledFixtures(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret", gotToken)
	assert.Equal(t, "/v4/competitions/PL/matches", gotPath)
	assert.Equal(t, "SCHEDULED", gotStatus)

	require.Len(t, fixtures, 2)
	assert.Equal(t, 1, fixtures[0].ID)
	assert.Equal(t, "Liverpool FC", fixtures[0].HomeTeam)
	assert.Equal(t, time.Date(2025, time.August, 15, 19, 0, 0, 0, time.UTC), fixtures[0].UTCDate)
	assert.Equal(t, 1, fixtures[1].Matchday)
}

func TestScheduledFixturesWithoutKey(t *testing.T) {
	getter := &fakeGetter{}
	fixtures, err := NewLiveClient(getter, "https://api.example/v4", "", "PL").ScheduledFixtures(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, fixtures)
	assert.Empty(t, getter.requests)
}

func TestScheduledFixturesErrors(t *testing.T) {
	url := "https://api.example/v4/competitions/PL/matches?status=SCHEDULED"

	getter := &fakeGetter{errs: map[string]error{url: errors.New("connection refused")}}
	_, err := NewLiveClient(getter, "https://api.example/v4", "key", "PL").ScheduledFixtures(context.Background())
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, "key", getter.headers[0]["X-Auth-Token"])

	getter = &fakeGetter{bodies: map[string]string{url: "<html>"}}
	_, err = NewLiveClient(getter, "https://api.example/v4", "key", "PL").ScheduledFixtures(context.Background())
	assert.ErrorContains(t, err, "decode")
}
