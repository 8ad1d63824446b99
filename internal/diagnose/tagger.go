// Package diagnose combines per-source match diagnostics with field-level
// consensus into review tags and a match confidence per catalog row.
package diagnose

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gamelog/catalog-cli/internal/catalog"
	"github.com/gamelog/catalog-cli/internal/company"
	"github.com/gamelog/catalog-cli/internal/consensus"
	"github.com/gamelog/catalog-cli/internal/source"
	"github.com/gamelog/catalog-cli/internal/tag"
	"github.com/gamelog/catalog-cli/internal/textmatch"
)

// Config tunes the tagger. All consensus thresholds ride along in
// Consensus; Sources is the enabled source set in evaluation order.
type Config struct {
	Consensus consensus.Config
	Sources   []string
	// Parallelism caps concurrent rows in TagAll. Zero means sequential.
	Parallelism int
}

// DefaultSources is the full enabled source set in evaluation order.
func DefaultSources() []string {
	return []string{"steam", "rawg", "igdb", "hltb", "wikidata"}
}

// Tagger computes ReviewTags and MatchConfidence for catalog rows. It
// never mutates pinned identifiers.
type Tagger struct {
	cfg     Config
	sources map[string]source.Capability
	logger  *zap.Logger
}

// New builds a tagger over the given source capabilities. Sources named in
// cfg.Sources but absent from the map are still classified by their pin
// fields; only the richer payload checks are skipped for them.
func New(cfg Config, sources map[string]source.Capability) *Tagger {
	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}
	return &Tagger{
		cfg:     cfg,
		sources: sources,
		logger:  zap.L().With(zap.String("component", "diagnose")),
	}
}

// severity accumulates issue levels while tagging one row. steamYearLows
// counts year_outlier:steam findings separately: steam years track
// re-releases, so when those are the only low findings the row is
// downgraded to a medium signal instead.
type severity struct {
	low             bool
	medium          bool
	missingProvider bool
	lowCount        int
	steamYearLows   int
}

func (s *severity) addLow()    { s.low = true; s.lowCount++ }
func (s *severity) addMedium() { s.medium = true }

func (s *severity) confidence() tag.Confidence {
	low := s.low
	if low && s.lowCount == s.steamYearLows {
		low = false
		s.medium = true
	}
	switch {
	case low:
		return tag.ConfidenceLow
	case s.medium || s.missingProvider:
		return tag.ConfidenceMedium
	}
	return tag.ConfidenceHigh
}

// rowFacts is everything TagRow extracts before consensus runs.
type rowFacts struct {
	titles     map[string]string
	years      map[string]int
	platforms  map[string]map[string]bool
	genres     map[string]map[string]bool
	developers map[string]map[string]bool
	publishers map[string]map[string]bool
	// crossSteam maps non-steam sources to the Steam appid their own
	// record cross-references.
	crossSteam map[string]string
	storeTypes map[string]string
	// steamMissing defers the missing_steam verdict until the other
	// providers' platform facts are in.
	steamMissing bool
	// editionOrPort is set when the igdb record links a parent game,
	// version parent, or port/expansion list.
	editionOrPort bool
}

func newRowFacts() *rowFacts {
	return &rowFacts{
		titles:     make(map[string]string),
		years:      make(map[string]int),
		platforms:  make(map[string]map[string]bool),
		genres:     make(map[string]map[string]bool),
		developers: make(map[string]map[string]bool),
		publishers: make(map[string]map[string]bool),
		crossSteam: make(map[string]string),
		storeTypes: make(map[string]string),
	}
}

// TagRow recomputes ReviewTags and MatchConfidence on one row. Disabled
// rows get exactly the disabled tag and empty confidence. A collaborator
// failure aborts with an error rather than producing partially-wrong tags.
func (t *Tagger) TagRow(ctx context.Context, row *catalog.Row) error {
	if row.IsDisabled() {
		row.ReviewTags = tag.Disabled().String()
		row.MatchConfidence = string(tag.ConfidenceNone)
		return nil
	}

	previous := row.ReviewTags
	list := tag.NewList()
	var sev severity

	facts, err := t.classifyPins(ctx, row, list, &sev)
	if err != nil {
		return err
	}

	t.crossIDChecks(row, facts, list, &sev)
	t.fieldConsensus(facts, list, &sev)
	t.companyAndGenreChecks(facts, list, &sev)
	t.steamChecks(row, list, &sev)

	row.MatchConfidence = string(sev.confidence())
	list.CarrySticky(previous)
	row.ReviewTags = list.Join()
	return nil
}

// classifyPins walks the enabled sources, emits per-pin tags, and collects
// the field observations consensus will run over.
func (t *Tagger) classifyPins(ctx context.Context, row *catalog.Row, list *tag.List, sev *severity) (*rowFacts, error) {
	facts := newRowFacts()

	for _, src := range t.cfg.Sources {
		pin := row.Pin(src)
		switch {
		case pin.IsNotFound():
			list.Add(tag.NotFound(src))
			continue
		case pin.IsEmpty():
			switch {
			case src == "steam" && !row.PlatformIsPCLike():
				// A console-only title has no Steam listing to miss.
				list.Add(tag.Tag{Kind: tag.KindMissingSteamNonPC})
			case src == "steam":
				facts.steamMissing = true
			default:
				list.Add(tag.Missing(src))
				sev.missingProvider = true
			}
			continue
		}

		if pin.MatchedNameValue() == "" {
			list.Add(tag.IDUnresolved(src))
			sev.addLow()
			continue
		}

		facts.titles[src] = pin.MatchedNameValue()
		if y := pin.MatchedYearValue(); y > 0 {
			facts.years[src] = y
		}
		if err := t.collectPayload(ctx, row, src, pin, facts, list, sev); err != nil {
			return nil, err
		}

		if score := pin.MatchScoreValue(); score >= 0 && score < 100 {
			list.Add(tag.Score(src, score))
			switch {
			case score < 80:
				sev.addLow()
			case score <= 94:
				sev.addMedium()
			}
		}
	}

	if facts.steamMissing {
		t.missingSteamTags(row, facts, list, sev)
	}
	return facts, nil
}

// missingSteamTags settles a missing Steam pin on a PC-like row once the
// other providers have reported. When their records agree the title never
// shipped on PC, the gap is expected and carries no missing-provider
// penalty. A recorded search rejection is surfaced either way.
func (t *Tagger) missingSteamTags(row *catalog.Row, facts *rowFacts, list *tag.List, sev *severity) {
	pcSeen, anyBuckets := false, false
	for src, buckets := range facts.platforms {
		if src == "steam" {
			continue
		}
		anyBuckets = anyBuckets || len(buckets) > 0
		pcSeen = pcSeen || buckets[source.BucketPC]
	}
	if anyBuckets && !pcSeen {
		list.Add(tag.Tag{Kind: tag.KindMissingSteamNonPC})
	} else {
		list.Add(tag.Missing("steam"))
		sev.missingProvider = true
	}

	if reason := row.SteamRejectedReason; reason != "" {
		list.Add(tag.Tag{Kind: tag.KindSteamRejected})
		list.Add(tag.SteamRejectedReason(reason))
		sev.addLow()
	}
}

// collectPayload fetches the cached provider record behind a resolved pin
// for the field sets the pin columns do not carry.
func (t *Tagger) collectPayload(ctx context.Context, row *catalog.Row, src string, pin catalog.Pin, facts *rowFacts, list *tag.List, sev *severity) error {
	client, ok := t.sources[src]
	if !ok || src == "hltb" {
		// hltb ids are search-derived and have no id-lookup endpoint;
		// its title/year already came from the pin columns.
		return nil
	}

	obs, err := client.GetByID(ctx, pin.IDValue())
	if err != nil {
		return eris.Wrapf(err, "diagnose: %s lookup for row %s", src, row.RowID)
	}
	if obs == nil {
		list.Add(tag.IDUnresolved(src))
		sev.addLow()
		return nil
	}

	if buckets := source.BucketSet(obs.Platforms); len(buckets) > 0 {
		facts.platforms[src] = buckets
	}
	if len(obs.Genres) > 0 {
		facts.genres[src] = normalizedSet(obs.Genres)
	}
	if len(obs.Developers) > 0 {
		facts.developers[src] = company.KeySet(obs.Developers)
	}
	if len(obs.Publishers) > 0 {
		facts.publishers[src] = company.KeySet(obs.Publishers)
	}
	if src != "steam" && obs.SteamAppID != "" {
		facts.crossSteam[src] = obs.SteamAppID
	}
	if obs.StoreType != "" {
		facts.storeTypes[src] = obs.StoreType
	}
	if src == "igdb" && obs.EditionOrPort {
		facts.editionOrPort = true
	}
	return nil
}

// crossIDChecks flags sources whose record cross-references a different
// Steam appid than the one pinned on the row.
func (t *Tagger) crossIDChecks(row *catalog.Row, facts *rowFacts, list *tag.List, sev *severity) {
	steamPin := row.Pin("steam")
	if steamPin.IsEmpty() || steamPin.IsNotFound() {
		return
	}
	steamID := steamPin.IDValue()

	srcs := make([]string, 0, len(facts.crossSteam))
	for s := range facts.crossSteam {
		srcs = append(srcs, s)
	}
	sort.Strings(srcs)
	for _, s := range srcs {
		if facts.crossSteam[s] != steamID {
			list.Add(tag.SteamAppIDDisagree(s))
			sev.addLow()
		}
	}
}

// fieldConsensus runs title, year, and platform consensus and appends the
// resulting tags plus the actionable distillation.
func (t *Tagger) fieldConsensus(facts *rowFacts, list *tag.List, sev *severity) {
	cfg := t.cfg.Consensus

	res := consensus.Titles(facts.titles, facts.years, cfg)
	if res != nil {
		for _, ct := range res.Tags() {
			list.Add(ct)
			if ct.Kind == tag.KindProviderOutlier || ct.Kind == tag.KindProviderNoConsensus {
				sev.addLow()
			}
		}
	}

	yearTags := consensus.YearOutlierTags(facts.years, cfg)
	steamYearOutlier := false
	for _, yt := range yearTags {
		list.Add(yt)
		sev.addLow()
		if yt.Kind == tag.KindYearOutlier && yt.Source == "steam" {
			sev.steamYearLows++
			steamYearOutlier = true
		}
	}
	if steamYearOutlier && facts.editionOrPort {
		// A divergent Steam year plus an igdb parent or port link points
		// at a pin on an edition or port of the base game.
		list.Add(tag.Tag{Kind: tag.KindEditionOrPortSuspected})
	}

	platformTags := consensus.PlatformOutlierTags(facts.platforms)
	for _, pt := range platformTags {
		list.Add(pt)
		sev.addLow()
	}

	for _, at := range consensus.ActionableMismatchTags(res, facts.years, yearTags, platformTags, cfg) {
		list.Add(at)
		sev.addLow()
	}
}

// companyAndGenreChecks covers the developer/publisher consensus and the
// rawg/igdb genre disjointness check.
func (t *Tagger) companyAndGenreChecks(facts *rowFacts, list *tag.List, sev *severity) {
	rawgGenres, igdbGenres := facts.genres["rawg"], facts.genres["igdb"]
	if len(rawgGenres) > 0 && len(igdbGenres) > 0 && disjointSets(rawgGenres, igdbGenres) {
		list.Add(tag.Tag{Kind: tag.KindGenreDisagree})
		sev.addMedium()
	}

	min := t.cfg.Consensus.CompanyMinSources
	for _, ct := range consensus.CompanyTags(facts.developers, "developer", min) {
		list.Add(ct)
		sev.addLow()
	}
	for _, ct := range consensus.CompanyTags(facts.publishers, "publisher", min) {
		list.Add(ct)
		sev.addLow()
	}
}

// steamChecks adds the storefront-specific heuristics: sequel-number
// mismatch against the catalog name and non-game listing types.
func (t *Tagger) steamChecks(row *catalog.Row, list *tag.List, sev *severity) {
	pin := row.Pin("steam")

	if matched := pin.MatchedNameValue(); matched != "" {
		want := textmatch.SeriesNumbers(row.Name)
		got := textmatch.SeriesNumbers(matched)
		if len(want) > 0 && len(got) > 0 && disjointInts(want, got) {
			list.Add(tag.Tag{Kind: tag.KindSteamSeriesMismatch})
			sev.addLow()
		}
	}

	if st := row.SteamStoreType; st != "" && st != "game" && !pin.IsEmpty() && !pin.IsNotFound() {
		list.Add(tag.StoreTypeNotGame(st))
		sev.addLow()
	}
}

// TagAll recomputes tags for every row, optionally sharding rows across
// goroutines. Any collaborator failure aborts the pass.
func (t *Tagger) TagAll(ctx context.Context, arena *catalog.Arena) error {
	n := arena.Len()
	if t.cfg.Parallelism <= 1 {
		for i := 0; i < n; i++ {
			if err := t.TagRow(ctx, arena.At(i)); err != nil {
				return err
			}
		}
		t.logger.Debug("tagged rows", zap.Int("rows", n))
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.Parallelism)
	for i := 0; i < n; i++ {
		row := arena.At(i)
		g.Go(func() error {
			return t.TagRow(gctx, row)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	t.logger.Debug("tagged rows", zap.Int("rows", n), zap.Int("parallelism", t.cfg.Parallelism))
	return nil
}

func normalizedSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		if n := textmatch.Normalize(v); n != "" {
			out[n] = true
		}
	}
	return out
}

func disjointSets(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return false
		}
	}
	return true
}

func disjointInts(a, b map[int]bool) bool {
	for n := range a {
		if b[n] {
			return false
		}
	}
	return true
}
