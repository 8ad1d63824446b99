package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/gamelog/catalog-cli/internal/textmatch"
)

// Steam is the Steam store client. Store search does not expose release
// years, so Search confirms its pick through appdetails, which is also the
// only reliable way to reject non-game types (DLC, soundtracks, bundles).
type Steam interface {
	Capability
}

// SteamOption configures the Steam client.
type SteamOption func(*steamClient)

// WithSteamBaseURL sets a custom base URL (for testing).
func WithSteamBaseURL(u string) SteamOption {
	return func(c *steamClient) { c.baseURL = u }
}

// WithSteamHTTPClient sets a custom HTTP client.
func WithSteamHTTPClient(hc *http.Client) SteamOption {
	return func(c *steamClient) { c.t.http = hc }
}

// WithSteamLimiter overrides the appdetails rate limiter. Steam throttles
// appdetails far harder than storesearch.
func WithSteamLimiter(l *rate.Limiter) SteamOption {
	return func(c *steamClient) { c.t.limiter = l }
}

type steamClient struct {
	baseURL string
	t       *transport
}

// NewSteam creates a Steam store client.
func NewSteam(opts ...SteamOption) Steam {
	c := &steamClient{
		baseURL: "https://store.steampowered.com",
		t:       newTransport("steam", rate.NewLimiter(rate.Every(1500*time.Millisecond), 1)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *steamClient) Name() string { return "steam" }

type steamSearchResponse struct {
	Items []steamSearchItem `json:"items"`
}

type steamSearchItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type steamAppDetailsEntry struct {
	Success bool            `json:"success"`
	Data    steamAppDetails `json:"data"`
}

type steamAppDetails struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	SteamAppID  int64  `json:"steam_appid"`
	ReleaseDate struct {
		ComingSoon bool   `json:"coming_soon"`
		Date       string `json:"date"`
	} `json:"release_date"`
	Platforms struct {
		Windows bool `json:"windows"`
		Mac     bool `json:"mac"`
		Linux   bool `json:"linux"`
	} `json:"platforms"`
	Developers []string `json:"developers"`
	Publishers []string `json:"publishers"`
	Genres     []struct {
		Description string `json:"description"`
	} `json:"genres"`
}

func (c *steamClient) GetByID(ctx context.Context, id string) (*Observation, error) {
	appid := strings.TrimSpace(id)
	if appid == "" {
		return nil, eris.New("steam: empty appid")
	}

	u := fmt.Sprintf("%s/api/appdetails?appids=%s&l=english&cc=us", c.baseURL, url.QueryEscape(appid))
	var resp map[string]steamAppDetailsEntry
	if err := c.t.getJSON(ctx, u, nil, &resp); err != nil {
		return nil, err
	}

	entry, ok := resp[appid]
	if !ok || !entry.Success {
		return nil, nil
	}
	obs := detailsToObservation(appid, entry.Data)
	obs.MatchScore = 100
	return obs, nil
}

func detailsToObservation(appid string, d steamAppDetails) *Observation {
	obs := &Observation{
		Source:     "steam",
		ID:         appid,
		Title:      d.Name,
		StoreType:  strings.ToLower(strings.TrimSpace(d.Type)),
		SteamAppID: appid,
		Developers: d.Developers,
		Publishers: d.Publishers,
	}
	if !d.ReleaseDate.ComingSoon {
		obs.Year = textmatch.ExtractYearHint(d.ReleaseDate.Date)
	}
	if d.Platforms.Windows {
		obs.Platforms = append(obs.Platforms, "Windows")
	}
	if d.Platforms.Mac {
		obs.Platforms = append(obs.Platforms, "macOS")
	}
	if d.Platforms.Linux {
		obs.Platforms = append(obs.Platforms, "Linux")
	}
	for _, g := range d.Genres {
		if g.Description != "" {
			obs.Genres = append(obs.Genres, g.Description)
		}
	}
	return obs
}

func (c *steamClient) Search(ctx context.Context, name string, yearHint int) (*Observation, error) {
	u := fmt.Sprintf("%s/api/storesearch?term=%s&l=english&cc=us", c.baseURL, url.QueryEscape(name))
	var resp steamSearchResponse
	if err := c.t.getJSON(ctx, u, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}

	// Only app-typed results resolve through appdetails; sub and bundle ids
	// are package ids and must never be pinned.
	wantDLC := textmatch.LooksDLCLike(name)
	cands := make([]Candidate, 0, len(resp.Items))
	for _, it := range resp.Items {
		typ := strings.ToLower(strings.TrimSpace(it.Type))
		if typ != "app" && typ != "game" && typ != "" {
			continue
		}
		if !wantDLC && textmatch.LooksDLCLike(it.Name) {
			continue
		}
		cands = append(cands, Candidate{
			ID:   strconv.FormatInt(it.ID, 10),
			Name: it.Name,
			// storesearch has no release date; a year embedded in the
			// title is the only signal.
			Year: textmatch.ExtractYearHint(it.Name),
		})
	}
	if len(cands) == 0 {
		return &Observation{Source: "steam", RejectedReason: "no_app_results"}, nil
	}

	best, score := PickBest(name, yearHint, cands)
	if best == nil {
		return nil, nil
	}

	details, err := c.GetByID(ctx, best.ID)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return &Observation{Source: "steam", RejectedReason: "appdetails_unavailable"}, nil
	}
	if details.StoreType != "game" {
		return &Observation{Source: "steam", RejectedReason: "non_game_type:" + details.StoreType}, nil
	}
	details.MatchScore = score
	return details, nil
}
