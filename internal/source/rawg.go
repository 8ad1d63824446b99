package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// RAWG is the RAWG.io client. Detail responses carry store links, which are
// the cheapest Steam cross-reference available: a store URL containing
// /app/<id> pins the game to a Steam appid without touching Steam at all.
type RAWG interface {
	Capability
}

// RAWGOption configures the RAWG client.
type RAWGOption func(*rawgClient)

// WithRAWGBaseURL sets a custom base URL (for testing).
func WithRAWGBaseURL(u string) RAWGOption {
	return func(c *rawgClient) { c.baseURL = u }
}

// WithRAWGHTTPClient sets a custom HTTP client.
func WithRAWGHTTPClient(hc *http.Client) RAWGOption {
	return func(c *rawgClient) { c.t.http = hc }
}

// WithRAWGLimiter overrides the rate limiter.
func WithRAWGLimiter(l *rate.Limiter) RAWGOption {
	return func(c *rawgClient) { c.t.limiter = l }
}

type rawgClient struct {
	apiKey  string
	baseURL string
	t       *transport
}

// NewRAWG creates a RAWG.io client.
func NewRAWG(apiKey string, opts ...RAWGOption) RAWG {
	c := &rawgClient{
		apiKey:  apiKey,
		baseURL: "https://api.rawg.io",
		t:       newTransport("rawg", rate.NewLimiter(2, 1)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *rawgClient) Name() string { return "rawg" }

type rawgSearchResponse struct {
	Results []rawgGame `json:"results"`
}

type rawgGame struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Released  string `json:"released"`
	Platforms []struct {
		Platform struct {
			Name string `json:"name"`
		} `json:"platform"`
	} `json:"platforms"`
	Genres     []rawgNamed `json:"genres"`
	Developers []rawgNamed `json:"developers"`
	Publishers []rawgNamed `json:"publishers"`
	Stores     []struct {
		URL   string `json:"url"`
		Store struct {
			Domain string `json:"domain"`
		} `json:"store"`
	} `json:"stores"`
}

type rawgNamed struct {
	Name string `json:"name"`
}

var steamStoreAppRe = regexp.MustCompile(`/app/(\d+)`)

func (g *rawgGame) year() int {
	// Released is "YYYY-MM-DD".
	if len(g.Released) >= 4 {
		if y, err := strconv.Atoi(g.Released[:4]); err == nil {
			return y
		}
	}
	return 0
}

func (g *rawgGame) observation() *Observation {
	obs := &Observation{
		Source: "rawg",
		ID:     strconv.FormatInt(g.ID, 10),
		Title:  g.Name,
		Year:   g.year(),
	}
	for _, p := range g.Platforms {
		if p.Platform.Name != "" {
			obs.Platforms = append(obs.Platforms, p.Platform.Name)
		}
	}
	for _, n := range g.Genres {
		obs.Genres = append(obs.Genres, n.Name)
	}
	for _, n := range g.Developers {
		obs.Developers = append(obs.Developers, n.Name)
	}
	for _, n := range g.Publishers {
		obs.Publishers = append(obs.Publishers, n.Name)
	}
	for _, s := range g.Stores {
		if s.Store.Domain != "" && !strings.Contains(s.Store.Domain, "steampowered") {
			continue
		}
		if m := steamStoreAppRe.FindStringSubmatch(s.URL); m != nil {
			obs.SteamAppID = m[1]
			break
		}
	}
	return obs
}

func (c *rawgClient) GetByID(ctx context.Context, id string) (*Observation, error) {
	gid := strings.TrimSpace(id)
	if gid == "" {
		return nil, eris.New("rawg: empty id")
	}

	u := fmt.Sprintf("%s/api/games/%s?key=%s", c.baseURL, url.PathEscape(gid), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "rawg: create request")
	}
	req.Header.Set("Accept", "application/json")

	body, status, err := c.t.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("rawg: unexpected status %d: %s", status, truncate(body))
	}

	var game rawgGame
	if err := unmarshalJSON(body, &game, "rawg"); err != nil {
		return nil, err
	}
	obs := game.observation()
	obs.MatchScore = 100
	return obs, nil
}

func (c *rawgClient) Search(ctx context.Context, name string, yearHint int) (*Observation, error) {
	u := fmt.Sprintf("%s/api/games?key=%s&search=%s&page_size=10",
		c.baseURL, url.QueryEscape(c.apiKey), url.QueryEscape(name))
	var resp rawgSearchResponse
	if err := c.t.getJSON(ctx, u, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	cands := make([]Candidate, 0, len(resp.Results))
	byID := make(map[string]*rawgGame, len(resp.Results))
	for i := range resp.Results {
		g := &resp.Results[i]
		id := strconv.FormatInt(g.ID, 10)
		byID[id] = g
		cands = append(cands, Candidate{ID: id, Name: g.Name, Year: g.year()})
	}

	best, score := PickBest(name, yearHint, cands)
	if best == nil {
		return nil, nil
	}

	// Search results omit developers, publishers, and store links; the
	// detail endpoint has them.
	obs, err := c.GetByID(ctx, best.ID)
	if err != nil {
		return nil, err
	}
	if obs == nil {
		obs = byID[best.ID].observation()
	}
	obs.MatchScore = score
	return obs, nil
}
