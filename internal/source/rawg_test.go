package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const rawgWitcher3 = `{
	"id": 3328,
	"name": "The Witcher 3: Wild Hunt",
	"released": "2015-05-18",
	"platforms": [
		{"platform": {"name": "PC"}},
		{"platform": {"name": "PlayStation 4"}}
	],
	"genres": [{"name": "RPG"}],
	"developers": [{"name": "CD PROJEKT RED"}],
	"publishers": [{"name": "CD PROJEKT RED"}],
	"stores": [
		{"url": "https://store.steampowered.com/app/292030/", "store": {"domain": "store.steampowered.com"}},
		{"url": "https://www.gog.com/game/the_witcher_3", "store": {"domain": "gog.com"}}
	]
}`

func newRAWGServer(t *testing.T, handler http.HandlerFunc) RAWG {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRAWG("test-key",
		WithRAWGBaseURL(srv.URL),
		WithRAWGLimiter(rate.NewLimiter(rate.Inf, 1)),
	)
}

func TestRAWGGetByIDExtractsSteamCrossRef(t *testing.T) {
	c := newRAWGServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/games/3328", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(rawgWitcher3))
	})

	obs, err := c.GetByID(context.Background(), "3328")
	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.Equal(t, "The Witcher 3: Wild Hunt", obs.Title)
	assert.Equal(t, 2015, obs.Year)
	assert.Equal(t, "292030", obs.SteamAppID)
	assert.Equal(t, []string{"PC", "PlayStation 4"}, obs.Platforms)
	assert.Equal(t, []string{"CD PROJEKT RED"}, obs.Developers)
}

func TestRAWGGetByIDNotFound(t *testing.T) {
	c := newRAWGServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail": "Not found."}`))
	})

	obs, err := c.GetByID(context.Background(), "0")
	require.NoError(t, err)
	assert.Nil(t, obs)
}

func TestRAWGSearchFetchesDetail(t *testing.T) {
	c := newRAWGServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/games" {
			_, _ = w.Write([]byte(`{"results": [
				{"id": 3328, "name": "The Witcher 3: Wild Hunt", "released": "2015-05-18"},
				{"id": 498, "name": "The Witcher 2", "released": "2011-05-17"}
			]}`))
			return
		}
		_, _ = w.Write([]byte(rawgWitcher3))
	})

	obs, err := c.Search(context.Background(), "The Witcher 3", 2015)
	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.Equal(t, "3328", obs.ID)
	assert.Equal(t, "292030", obs.SteamAppID)
}

func TestRAWGSearchNoResults(t *testing.T) {
	c := newRAWGServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": []}`))
	})

	obs, err := c.Search(context.Background(), "nothing here", 0)
	require.NoError(t, err)
	assert.Nil(t, obs)
}
