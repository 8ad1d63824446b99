package source

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// HLTB is the HowLongToBeat client. The site has no public API; the search
// endpoint the web app uses takes a tokenized JSON body and returns release
// years but no platform or company data.
type HLTB interface {
	Capability
}

// HLTBOption configures the HLTB client.
type HLTBOption func(*hltbClient)

// WithHLTBBaseURL sets a custom base URL (for testing).
func WithHLTBBaseURL(u string) HLTBOption {
	return func(c *hltbClient) { c.baseURL = u }
}

// WithHLTBHTTPClient sets a custom HTTP client.
func WithHLTBHTTPClient(hc *http.Client) HLTBOption {
	return func(c *hltbClient) { c.t.http = hc }
}

// WithHLTBLimiter overrides the rate limiter.
func WithHLTBLimiter(l *rate.Limiter) HLTBOption {
	return func(c *hltbClient) { c.t.limiter = l }
}

type hltbClient struct {
	baseURL string
	t       *transport
}

// NewHLTB creates a HowLongToBeat client.
func NewHLTB(opts ...HLTBOption) HLTB {
	c := &hltbClient{
		baseURL: "https://howlongtobeat.com",
		t:       newTransport("hltb", rate.NewLimiter(1, 1)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *hltbClient) Name() string { return "hltb" }

type hltbSearchRequest struct {
	SearchType  string   `json:"searchType"`
	SearchTerms []string `json:"searchTerms"`
	SearchPage  int      `json:"searchPage"`
	Size        int      `json:"size"`
}

type hltbSearchResponse struct {
	Data []hltbEntry `json:"data"`
}

type hltbEntry struct {
	GameID       int64  `json:"game_id"`
	GameName     string `json:"game_name"`
	ReleaseWorld int    `json:"release_world"`
}

func (c *hltbClient) search(ctx context.Context, terms []string) ([]hltbEntry, error) {
	payload, err := json.Marshal(hltbSearchRequest{
		SearchType:  "games",
		SearchTerms: terms,
		SearchPage:  1,
		Size:        20,
	})
	if err != nil {
		return nil, eris.Wrap(err, "hltb: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/search", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "hltb: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	// The endpoint rejects requests without a same-origin referer.
	req.Header.Set("Referer", c.baseURL+"/")

	body, status, err := c.t.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("hltb: unexpected status %d: %s", status, truncate(body))
	}

	var resp hltbSearchResponse
	if err := unmarshalJSON(body, &resp, "hltb"); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *hltbClient) GetByID(ctx context.Context, id string) (*Observation, error) {
	// HLTB has no id-lookup endpoint; ids only come from prior searches,
	// so a direct fetch is not supported and callers re-search instead.
	return nil, eris.Errorf("hltb: id lookup unsupported (id %s)", id)
}

func (c *hltbClient) Search(ctx context.Context, name string, yearHint int) (*Observation, error) {
	terms := strings.Fields(name)
	if len(terms) == 0 {
		return nil, nil
	}

	entries, err := c.search(ctx, terms)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	cands := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		cands = append(cands, Candidate{
			ID:   strconv.FormatInt(e.GameID, 10),
			Name: e.GameName,
			Year: e.ReleaseWorld,
		})
	}

	best, score := PickBest(name, yearHint, cands)
	if best == nil {
		return nil, nil
	}
	return &Observation{
		Source:     "hltb",
		ID:         best.ID,
		Title:      best.Name,
		Year:       best.Year,
		MatchScore: score,
	}, nil
}
