package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const igdbDoom2016 = `[{
	"id": 7351,
	"name": "DOOM",
	"first_release_date": 1463097600,
	"platforms": [{"name": "PC (Microsoft Windows)"}, {"name": "PlayStation 4"}],
	"genres": [{"name": "Shooter"}],
	"involved_companies": [
		{"developer": true, "publisher": false, "company": {"name": "id Software"}},
		{"developer": false, "publisher": true, "company": {"name": "Bethesda Softworks"}}
	],
	"external_games": [{"category": 1, "uid": "379720"}]
}]`

const igdbDoom3BFG = `[{
	"id": 2364,
	"name": "Doom 3: BFG Edition",
	"first_release_date": 1350345600,
	"version_parent": {"name": "Doom 3"},
	"ports": [{"name": "Doom 3: BFG Edition - Switch"}]
}]`

func newIGDBServer(t *testing.T, handler http.HandlerFunc) IGDB {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewIGDB("client-id", "token",
		WithIGDBBaseURL(srv.URL),
		WithIGDBLimiter(rate.NewLimiter(rate.Inf, 1)),
	)
}

func TestIGDBGetByIDExtractsFields(t *testing.T) {
	c := newIGDBServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/games", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "parent_game.name")
		assert.Contains(t, string(body), "ports.name")
		_, _ = w.Write([]byte(igdbDoom2016))
	})

	obs, err := c.GetByID(context.Background(), "7351")
	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.Equal(t, "DOOM", obs.Title)
	assert.Equal(t, 2016, obs.Year)
	assert.Equal(t, "379720", obs.SteamAppID)
	assert.Equal(t, []string{"id Software"}, obs.Developers)
	assert.Equal(t, []string{"Bethesda Softworks"}, obs.Publishers)
	assert.False(t, obs.EditionOrPort)
}

func TestIGDBGetByIDFlagsEditionOrPort(t *testing.T) {
	c := newIGDBServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(igdbDoom3BFG))
	})

	obs, err := c.GetByID(context.Background(), "2364")
	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.Equal(t, "Doom 3: BFG Edition", obs.Title)
	assert.True(t, obs.EditionOrPort)
}
