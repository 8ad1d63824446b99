package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Wikidata property ids used for cross-referencing.
const (
	wikidataPropSteamAppID = "P1733"
	wikidataPropIGDBID     = "P5794"

	wikidataPropPublicationDate = "P577"
	wikidataPropDeveloper       = "P178"
	wikidataPropPublisher       = "P123"
	wikidataPropPlatform        = "P400"
	wikidataPropGenre           = "P136"
)

// Wikidata is the Wikidata client. Beyond plain search it can resolve an
// entity in reverse from a Steam appid or IGDB id hint via SPARQL, and it
// exposes English aliases plus the enwiki sitelink title, both used by the
// resolver as extra candidate names.
type Wikidata interface {
	Capability
	HintResolver
	AliasProvider
}

// WikidataOption configures the Wikidata client.
type WikidataOption func(*wikidataClient)

// WithWikidataBaseURL sets a custom API base URL (for testing).
func WithWikidataBaseURL(u string) WikidataOption {
	return func(c *wikidataClient) { c.baseURL = u }
}

// WithWikidataSPARQLBaseURL sets a custom SPARQL endpoint (for testing).
func WithWikidataSPARQLBaseURL(u string) WikidataOption {
	return func(c *wikidataClient) { c.sparqlURL = u }
}

// WithWikidataHTTPClient sets a custom HTTP client.
func WithWikidataHTTPClient(hc *http.Client) WikidataOption {
	return func(c *wikidataClient) { c.t.http = hc }
}

// WithWikidataLimiter overrides the rate limiter.
func WithWikidataLimiter(l *rate.Limiter) WikidataOption {
	return func(c *wikidataClient) { c.t.limiter = l }
}

type wikidataClient struct {
	baseURL   string
	sparqlURL string
	t         *transport
}

// NewWikidata creates a Wikidata client.
func NewWikidata(opts ...WikidataOption) Wikidata {
	c := &wikidataClient{
		baseURL:   "https://www.wikidata.org",
		sparqlURL: "https://query.wikidata.org/sparql",
		t:         newTransport("wikidata", rate.NewLimiter(2, 1)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *wikidataClient) Name() string { return "wikidata" }

type wdSearchResponse struct {
	Search []struct {
		ID          string `json:"id"`
		Label       string `json:"label"`
		Description string `json:"description"`
	} `json:"search"`
}

type wdEntitiesResponse struct {
	Entities map[string]wdEntity `json:"entities"`
}

type wdEntity struct {
	ID        string                     `json:"id"`
	Missing   *json.RawMessage           `json:"missing"`
	Labels    map[string]wdMonolingual   `json:"labels"`
	Aliases   map[string][]wdMonolingual `json:"aliases"`
	Claims    map[string][]wdStatement   `json:"claims"`
	Sitelinks map[string]struct {
		Title string `json:"title"`
	} `json:"sitelinks"`
}

type wdMonolingual struct {
	Value string `json:"value"`
}

type wdStatement struct {
	Mainsnak struct {
		Datavalue struct {
			Value json.RawMessage `json:"value"`
		} `json:"datavalue"`
	} `json:"mainsnak"`
}

// stringValue decodes an external-id datavalue ("620").
func (s wdStatement) stringValue() string {
	var v string
	if json.Unmarshal(s.Mainsnak.Datavalue.Value, &v) == nil {
		return v
	}
	return ""
}

// entityID decodes an entity-reference datavalue ({"id":"Q123"}).
func (s wdStatement) entityID() string {
	var v struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(s.Mainsnak.Datavalue.Value, &v) == nil {
		return v.ID
	}
	return ""
}

// timeYear decodes a time datavalue ("+2011-04-19T00:00:00Z") into a year.
func (s wdStatement) timeYear() int {
	var v struct {
		Time string `json:"time"`
	}
	if json.Unmarshal(s.Mainsnak.Datavalue.Value, &v) != nil {
		return 0
	}
	t := v.Time
	if len(t) >= 5 && (t[0] == '+' || t[0] == '-') {
		if y, err := strconv.Atoi(t[1:5]); err == nil {
			return y
		}
	}
	return 0
}

func (e *wdEntity) label() string {
	if l, ok := e.Labels["en"]; ok {
		return l.Value
	}
	return ""
}

func (e *wdEntity) enwikiTitle() string {
	if sl, ok := e.Sitelinks["enwiki"]; ok {
		return sl.Title
	}
	return ""
}

func (e *wdEntity) claimString(prop string) string {
	for _, st := range e.Claims[prop] {
		if v := st.stringValue(); v != "" {
			return v
		}
	}
	return ""
}

func (e *wdEntity) claimYear(prop string) int {
	for _, st := range e.Claims[prop] {
		if y := st.timeYear(); y > 0 {
			return y
		}
	}
	return 0
}

func (e *wdEntity) claimEntityIDs(prop string) []string {
	var out []string
	for _, st := range e.Claims[prop] {
		if id := st.entityID(); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func (c *wikidataClient) getEntities(ctx context.Context, qids []string, props string) (map[string]wdEntity, error) {
	u := fmt.Sprintf("%s/w/api.php?action=wbgetentities&format=json&languages=en&ids=%s&props=%s",
		c.baseURL, url.QueryEscape(strings.Join(qids, "|")), url.QueryEscape(props))
	var resp wdEntitiesResponse
	if err := c.t.getJSON(ctx, u, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

// resolveLabels fetches English labels for linked entity ids in one batch.
func (c *wikidataClient) resolveLabels(ctx context.Context, qids []string) (map[string]string, error) {
	if len(qids) == 0 {
		return nil, nil
	}
	entities, err := c.getEntities(ctx, qids, "labels")
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entities))
	for qid := range entities {
		ent := entities[qid]
		if l := ent.label(); l != "" {
			out[qid] = l
		}
	}
	return out, nil
}

func (c *wikidataClient) entityToObservation(ctx context.Context, ent *wdEntity) (*Observation, error) {
	obs := &Observation{
		Source:     "wikidata",
		ID:         ent.ID,
		Title:      ent.label(),
		Year:       ent.claimYear(wikidataPropPublicationDate),
		SteamAppID: ent.claimString(wikidataPropSteamAppID),
	}
	if obs.Title == "" {
		obs.Title = ent.enwikiTitle()
	}

	devIDs := ent.claimEntityIDs(wikidataPropDeveloper)
	pubIDs := ent.claimEntityIDs(wikidataPropPublisher)
	platIDs := ent.claimEntityIDs(wikidataPropPlatform)
	genreIDs := ent.claimEntityIDs(wikidataPropGenre)

	var linked []string
	linked = append(linked, devIDs...)
	linked = append(linked, pubIDs...)
	linked = append(linked, platIDs...)
	linked = append(linked, genreIDs...)
	labels, err := c.resolveLabels(ctx, dedupeStrings(linked))
	if err != nil {
		return nil, err
	}
	pick := func(ids []string) []string {
		var names []string
		for _, id := range ids {
			if n := labels[id]; n != "" {
				names = append(names, n)
			}
		}
		return names
	}
	obs.Developers = pick(devIDs)
	obs.Publishers = pick(pubIDs)
	obs.Platforms = pick(platIDs)
	obs.Genres = pick(genreIDs)

	for _, al := range ent.Aliases["en"] {
		if al.Value != "" {
			obs.Aliases = append(obs.Aliases, al.Value)
		}
	}
	if t := ent.enwikiTitle(); t != "" && t != obs.Title {
		obs.Aliases = append(obs.Aliases, t)
	}
	return obs, nil
}

func (c *wikidataClient) GetByID(ctx context.Context, id string) (*Observation, error) {
	qid := strings.TrimSpace(id)
	if qid == "" {
		return nil, eris.New("wikidata: empty qid")
	}

	entities, err := c.getEntities(ctx, []string{qid}, "labels|aliases|claims|sitelinks")
	if err != nil {
		return nil, err
	}
	ent, ok := entities[qid]
	if !ok || ent.Missing != nil {
		return nil, nil
	}
	obs, err := c.entityToObservation(ctx, &ent)
	if err != nil {
		return nil, err
	}
	obs.MatchScore = 100
	return obs, nil
}

func (c *wikidataClient) Search(ctx context.Context, name string, yearHint int) (*Observation, error) {
	u := fmt.Sprintf("%s/w/api.php?action=wbsearchentities&format=json&language=en&type=item&limit=10&search=%s",
		c.baseURL, url.QueryEscape(name))
	var resp wdSearchResponse
	if err := c.t.getJSON(ctx, u, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Search) == 0 {
		return nil, nil
	}

	// Entity labels alone can't disambiguate remasters and sequels, so
	// fetch the candidate entities and rank with publication years.
	var qids []string
	for _, s := range resp.Search {
		qids = append(qids, s.ID)
	}
	entities, err := c.getEntities(ctx, qids, "labels|aliases|claims|sitelinks")
	if err != nil {
		return nil, err
	}

	cands := make([]Candidate, 0, len(qids))
	for _, qid := range qids {
		ent, ok := entities[qid]
		if !ok || ent.Missing != nil {
			continue
		}
		label := ent.label()
		if label == "" {
			label = ent.enwikiTitle()
		}
		if label == "" {
			continue
		}
		cands = append(cands, Candidate{
			ID:   qid,
			Name: label,
			Year: ent.claimYear(wikidataPropPublicationDate),
		})
	}

	best, score := PickBest(name, yearHint, cands)
	if best == nil {
		return nil, nil
	}
	ent := entities[best.ID]
	obs, err := c.entityToObservation(ctx, &ent)
	if err != nil {
		return nil, err
	}
	obs.MatchScore = score
	return obs, nil
}

type wdSPARQLResponse struct {
	Results struct {
		Bindings []struct {
			Item struct {
				Value string `json:"value"`
			} `json:"item"`
		} `json:"bindings"`
	} `json:"results"`
}

// sparqlSelectQIDs returns the entities whose external-id property equals
// the given value, e.g. prop=P1733 value=620 for Steam appid 620.
func (c *wikidataClient) sparqlSelectQIDs(ctx context.Context, prop, value string) ([]string, error) {
	query := fmt.Sprintf(`SELECT ?item WHERE { ?item wdt:%s %q } LIMIT 5`, prop, value)
	u := fmt.Sprintf("%s?format=json&query=%s", c.sparqlURL, url.QueryEscape(query))

	var resp wdSPARQLResponse
	if err := c.t.getJSON(ctx, u, map[string]string{
		"Accept": "application/sparql-results+json",
	}, &resp); err != nil {
		return nil, err
	}

	var qids []string
	for _, b := range resp.Results.Bindings {
		// Item values are entity URIs like http://www.wikidata.org/entity/Q620.
		v := b.Item.Value
		if i := strings.LastIndex(v, "/"); i >= 0 {
			v = v[i+1:]
		}
		if strings.HasPrefix(v, "Q") {
			qids = append(qids, v)
		}
	}
	return qids, nil
}

func (c *wikidataClient) ResolveByHints(ctx context.Context, hints Hints) (*Observation, error) {
	tryProp := func(prop, value string) (*Observation, error) {
		if strings.TrimSpace(value) == "" {
			return nil, nil
		}
		qids, err := c.sparqlSelectQIDs(ctx, prop, value)
		if err != nil {
			return nil, err
		}
		if len(qids) == 0 {
			return nil, nil
		}
		return c.GetByID(ctx, qids[0])
	}

	obs, err := tryProp(wikidataPropSteamAppID, hints.SteamAppID)
	if err != nil || obs != nil {
		return obs, err
	}
	return tryProp(wikidataPropIGDBID, hints.IGDBID)
}

func (c *wikidataClient) GetAliases(ctx context.Context, id string) ([]string, error) {
	obs, err := c.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if obs == nil {
		return nil, nil
	}
	return obs.Aliases, nil
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
