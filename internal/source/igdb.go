package source

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// IGDB is the IGDB (Twitch) client. Queries use the Apicalypse body format.
// IGDB also exposes alternative names and Steam external-game ids, both of
// which the resolver uses as extra pin candidates and cross-references.
type IGDB interface {
	Capability
	AliasProvider
}

// IGDBOption configures the IGDB client.
type IGDBOption func(*igdbClient)

// WithIGDBBaseURL sets a custom base URL (for testing).
func WithIGDBBaseURL(u string) IGDBOption {
	return func(c *igdbClient) { c.baseURL = u }
}

// WithIGDBHTTPClient sets a custom HTTP client.
func WithIGDBHTTPClient(hc *http.Client) IGDBOption {
	return func(c *igdbClient) { c.t.http = hc }
}

// WithIGDBLimiter overrides the rate limiter. IGDB allows 4 requests per
// second per client id.
func WithIGDBLimiter(l *rate.Limiter) IGDBOption {
	return func(c *igdbClient) { c.t.limiter = l }
}

type igdbClient struct {
	clientID string
	token    string
	baseURL  string
	t        *transport
}

// NewIGDB creates an IGDB client with a Twitch client id and app token.
func NewIGDB(clientID, token string, opts ...IGDBOption) IGDB {
	c := &igdbClient{
		clientID: clientID,
		token:    token,
		baseURL:  "https://api.igdb.com",
		t:        newTransport("igdb", rate.NewLimiter(4, 1)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *igdbClient) Name() string { return "igdb" }

const igdbGameFields = "fields name,first_release_date," +
	"platforms.name,genres.name," +
	"involved_companies.developer,involved_companies.publisher,involved_companies.company.name," +
	"alternative_names.name,external_games.category,external_games.uid," +
	"parent_game.name,version_parent.name,dlcs.name,expansions.name,ports.name;"

// steamExternalCategory is IGDB's external_games category for Steam.
const steamExternalCategory = 1

type igdbGame struct {
	ID                int64       `json:"id"`
	Name              string      `json:"name"`
	FirstReleaseDate  int64       `json:"first_release_date"`
	Platforms         []igdbNamed `json:"platforms"`
	Genres            []igdbNamed `json:"genres"`
	InvolvedCompanies []struct {
		Developer bool      `json:"developer"`
		Publisher bool      `json:"publisher"`
		Company   igdbNamed `json:"company"`
	} `json:"involved_companies"`
	AlternativeNames []igdbNamed `json:"alternative_names"`
	ExternalGames    []struct {
		Category int    `json:"category"`
		UID      string `json:"uid"`
	} `json:"external_games"`
	ParentGame    *igdbNamed  `json:"parent_game"`
	VersionParent *igdbNamed  `json:"version_parent"`
	DLCs          []igdbNamed `json:"dlcs"`
	Expansions    []igdbNamed `json:"expansions"`
	Ports         []igdbNamed `json:"ports"`
}

type igdbNamed struct {
	Name string `json:"name"`
}

func (g *igdbGame) year() int {
	if g.FirstReleaseDate <= 0 {
		return 0
	}
	return time.Unix(g.FirstReleaseDate, 0).UTC().Year()
}

func (g *igdbGame) observation() *Observation {
	obs := &Observation{
		Source: "igdb",
		ID:     strconv.FormatInt(g.ID, 10),
		Title:  g.Name,
		Year:   g.year(),
	}
	for _, p := range g.Platforms {
		obs.Platforms = append(obs.Platforms, p.Name)
	}
	for _, gn := range g.Genres {
		obs.Genres = append(obs.Genres, gn.Name)
	}
	for _, ic := range g.InvolvedCompanies {
		if ic.Company.Name == "" {
			continue
		}
		if ic.Developer {
			obs.Developers = append(obs.Developers, ic.Company.Name)
		}
		if ic.Publisher {
			obs.Publishers = append(obs.Publishers, ic.Company.Name)
		}
	}
	for _, an := range g.AlternativeNames {
		if an.Name != "" {
			obs.Aliases = append(obs.Aliases, an.Name)
		}
	}
	for _, eg := range g.ExternalGames {
		if eg.Category == steamExternalCategory && eg.UID != "" {
			obs.SteamAppID = eg.UID
			break
		}
	}
	obs.EditionOrPort = g.ParentGame != nil || g.VersionParent != nil ||
		len(g.DLCs) > 0 || len(g.Expansions) > 0 || len(g.Ports) > 0
	return obs
}

// query posts an Apicalypse query to /v4/games and decodes the result list.
func (c *igdbClient) query(ctx context.Context, body string) ([]igdbGame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v4/games", strings.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "igdb: create request")
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	respBody, status, err := c.t.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("igdb: unexpected status %d: %s", status, truncate(respBody))
	}

	var games []igdbGame
	if err := unmarshalJSON(respBody, &games, "igdb"); err != nil {
		return nil, err
	}
	return games, nil
}

func (c *igdbClient) GetByID(ctx context.Context, id string) (*Observation, error) {
	gid := strings.TrimSpace(id)
	if _, err := strconv.ParseInt(gid, 10, 64); err != nil {
		return nil, eris.Errorf("igdb: invalid id %q", id)
	}

	games, err := c.query(ctx, fmt.Sprintf("%s where id = %s;", igdbGameFields, gid))
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, nil
	}
	obs := games[0].observation()
	obs.MatchScore = 100
	return obs, nil
}

func (c *igdbClient) Search(ctx context.Context, name string, yearHint int) (*Observation, error) {
	games, err := c.query(ctx,
		fmt.Sprintf("search %q; %s limit 10;", name, igdbGameFields))
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, nil
	}

	cands := make([]Candidate, 0, len(games))
	byID := make(map[string]*igdbGame, len(games))
	for i := range games {
		g := &games[i]
		id := strconv.FormatInt(g.ID, 10)
		byID[id] = g
		cands = append(cands, Candidate{ID: id, Name: g.Name, Year: g.year()})
	}

	best, score := PickBest(name, yearHint, cands)
	if best == nil {
		return nil, nil
	}
	obs := byID[best.ID].observation()
	obs.MatchScore = score
	return obs, nil
}

func (c *igdbClient) GetAliases(ctx context.Context, id string) ([]string, error) {
	obs, err := c.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if obs == nil {
		return nil, nil
	}
	return obs.Aliases, nil
}
