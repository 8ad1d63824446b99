// Package resolve conservatively repairs wrong or missing pinned
// identifiers using consensus evidence, with a strict dry-run/apply
// distinction and per-pass statistics.
package resolve

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gamelog/catalog-cli/internal/catalog"
	"github.com/gamelog/catalog-cli/internal/consensus"
	"github.com/gamelog/catalog-cli/internal/diagnose"
	"github.com/gamelog/catalog-cli/internal/source"
	"github.com/gamelog/catalog-cli/internal/tag"
	"github.com/gamelog/catalog-cli/internal/textmatch"
)

// Config tunes one resolution pass.
type Config struct {
	Consensus consensus.Config
	// Sources lists the searchable sources eligible for retry, in order.
	Sources []string
	// AcceptScore and AcceptYearTolerance gate repinning: a retry result
	// is credible when it scores at least AcceptScore against the
	// majority title OR lands within the year tolerance of the majority
	// year.
	AcceptScore         int
	AcceptYearTolerance int
	// RetryMissing additionally refills empty pins (previously unpinned
	// ones and plain gaps) when a majority exists to search from.
	RetryMissing bool
	// Apply writes pins and tags; false computes identical decisions and
	// stats without mutating anything.
	Apply bool
	// Parallelism caps concurrent rows. Retries stay sequential within a
	// row. Zero means sequential.
	Parallelism int
}

// DefaultConfig returns the production resolution settings.
func DefaultConfig() Config {
	return Config{
		Consensus:           consensus.DefaultConfig(),
		Sources:             []string{"steam", "rawg", "igdb", "hltb"},
		AcceptScore:         90,
		AcceptYearTolerance: 1,
	}
}

// Stats counts identifier outcomes over one pass.
type Stats struct {
	Attempted         int
	Repinned          int
	Unpinned          int
	Kept              int
	WikidataHintAdded int
}

func (s *Stats) add(o Stats) {
	s.Attempted += o.Attempted
	s.Repinned += o.Repinned
	s.Unpinned += o.Unpinned
	s.Kept += o.Kept
	s.WikidataHintAdded += o.WikidataHintAdded
}

// Resolver scans tagged rows and repairs, refills, or unpins identifiers.
type Resolver struct {
	cfg     Config
	sources map[string]source.Capability
	tagger  *diagnose.Tagger
	logger  *zap.Logger
}

// New builds a resolver over the same source capabilities the tagger uses.
func New(cfg Config, sources map[string]source.Capability, tagger *diagnose.Tagger) *Resolver {
	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultConfig().Sources
	}
	return &Resolver{
		cfg:     cfg,
		sources: sources,
		tagger:  tagger,
		logger:  zap.L().With(zap.String("component", "resolve")),
	}
}

// Run executes one pass: re-tag, decide and act per row, and re-tag again
// after apply-mode mutations so tags never describe a stale identifier.
func (r *Resolver) Run(ctx context.Context, arena *catalog.Arena) (Stats, error) {
	if err := r.tagger.TagAll(ctx, arena); err != nil {
		return Stats{}, err
	}

	var (
		total   Stats
		mutated bool
		mu      sync.Mutex
	)
	resolveRow := func(ctx context.Context, row *catalog.Row) error {
		stats, changed, err := r.resolveRow(ctx, row)
		if err != nil {
			return err
		}
		mu.Lock()
		total.add(stats)
		mutated = mutated || changed
		mu.Unlock()
		return nil
	}

	if r.cfg.Parallelism <= 1 {
		for i := 0; i < arena.Len(); i++ {
			if err := resolveRow(ctx, arena.At(i)); err != nil {
				return Stats{}, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.cfg.Parallelism)
		for i := 0; i < arena.Len(); i++ {
			row := arena.At(i)
			g.Go(func() error {
				return resolveRow(gctx, row)
			})
		}
		if err := g.Wait(); err != nil {
			return Stats{}, err
		}
	}

	if r.cfg.Apply && mutated {
		if err := r.tagger.TagAll(ctx, arena); err != nil {
			return Stats{}, err
		}
	}
	return total, nil
}

// entryReason classifies why a source on a row enters the state machine.
type entryReason int

const (
	noEntry entryReason = iota
	repairEntry
	refillEntry
	fillGapEntry
)

func (r *Resolver) entry(row *catalog.Row, src string, tags *tag.List) entryReason {
	pin := row.Pin(src)
	if pin.IsNotFound() {
		return noEntry
	}
	hasConsensus := tags.HasKind(tag.KindProviderConsensus)
	if !pin.IsEmpty() {
		if hasConsensus &&
			tags.Has(tag.ProviderOutlier(src)) &&
			tags.Has(tag.LikelyWrong(src)) {
			return repairEntry
		}
		return noEntry
	}
	if !r.cfg.RetryMissing || !hasConsensus {
		return noEntry
	}
	if tags.Has(tag.AutoUnpinned(src)) {
		return refillEntry
	}
	return fillGapEntry
}

func (r *Resolver) resolveRow(ctx context.Context, row *catalog.Row) (Stats, bool, error) {
	var stats Stats
	if row.IsDisabled() {
		return stats, false, nil
	}

	tags := tag.ParseList(row.ReviewTags)
	majority := majoritySources(tags)
	mutated := false

	for _, src := range r.cfg.Sources {
		reason := r.entry(row, src, tags)
		if reason == noEntry {
			continue
		}
		client, ok := r.sources[src]
		if !ok {
			continue
		}
		stats.Attempted++

		outcome, err := r.retry(ctx, row, src, client, majority, reason)
		if err != nil {
			return stats, mutated, err
		}
		switch outcome.kind {
		case outcomeRepin:
			stats.Repinned++
			if r.cfg.Apply {
				pin := row.Pin(src)
				// The stored score is against the row's own name; the
				// majority-title score only gated acceptance.
				pin.Set(outcome.obs.ID, outcome.obs.Title,
					strconv.Itoa(textmatch.Score(row.Name, outcome.obs.Title)),
					yearCell(outcome.obs.Year))
				pin.SetStoreType(outcome.obs.StoreType)
				appendTag(row, tag.RepinnedByResolve(src))
				mutated = true
			}
			r.logger.Info("repin",
				zap.String("row", row.RowID), zap.String("source", src),
				zap.String("id", outcome.obs.ID), zap.Bool("apply", r.cfg.Apply))
		case outcomeUnpin:
			stats.Unpinned++
			if r.cfg.Apply {
				row.Pin(src).Clear()
				appendTag(row, tag.AutoUnpinned(src))
				mutated = true
			}
			r.logger.Info("unpin",
				zap.String("row", row.RowID), zap.String("source", src),
				zap.Bool("apply", r.cfg.Apply))
		case outcomeKeep:
			stats.Kept++
			r.logger.Debug("keep",
				zap.String("row", row.RowID), zap.String("source", src))
		}
	}

	added, err := r.wikidataHint(ctx, row)
	if err != nil {
		return stats, mutated, err
	}
	if added {
		stats.WikidataHintAdded++
		mutated = mutated || r.cfg.Apply
	}
	return stats, mutated, nil
}

type outcomeKind int

const (
	outcomeKeep outcomeKind = iota
	outcomeRepin
	outcomeUnpin
)

type retryOutcome struct {
	kind  outcomeKind
	obs   *source.Observation
	score int
}

// retry builds the alternate-query candidate list, runs one search, and
// applies the acceptance rule. A search transport failure is a hard error;
// an unconvincing result falls through to unpin (repair) or keep.
func (r *Resolver) retry(ctx context.Context, row *catalog.Row, src string, client source.Capability, majority []string, reason entryReason) (retryOutcome, error) {
	reject := func() retryOutcome {
		if reason == repairEntry {
			return retryOutcome{kind: outcomeUnpin}
		}
		return retryOutcome{kind: outcomeKeep}
	}

	majTitle, majYear := r.majorityTitleYear(row, majority)
	if majTitle == "" {
		return retryOutcome{kind: outcomeKeep}, nil
	}

	cand, err := r.bestCandidate(ctx, row, src, majority, majTitle)
	if err != nil {
		return retryOutcome{}, err
	}
	if cand == "" {
		return retryOutcome{kind: outcomeKeep}, nil
	}

	searchYear := majYear
	if searchYear == 0 {
		searchYear = rowYearHint(row)
	}
	obs, err := client.Search(ctx, cand, searchYear)
	if err != nil {
		return retryOutcome{}, eris.Wrapf(err, "resolve: %s retry for row %s", src, row.RowID)
	}
	if obs == nil || obs.ID == "" {
		return reject(), nil
	}

	score := textmatch.Score(majTitle, obs.Title)
	// An absent year on either side cannot contradict the majority, so it
	// counts as close.
	yearOK := majYear == 0 || obs.Year == 0 ||
		absInt(obs.Year-majYear) <= r.cfg.AcceptYearTolerance
	if score < r.cfg.AcceptScore && !yearOK {
		return reject(), nil
	}
	return retryOutcome{kind: outcomeRepin, obs: obs, score: score}, nil
}

// majorityTitleYear derives the retry target from the majority sources'
// recorded matches: the most common normalized title (shortest raw form on
// ties) and the strict-majority year among non-ignored majority sources.
func (r *Resolver) majorityTitleYear(row *catalog.Row, majority []string) (string, int) {
	if len(majority) < 2 {
		return "", 0
	}

	years := make(map[string]int)
	byNorm := make(map[string][]string)
	for _, src := range majority {
		pin := row.Pin(src)
		name := pin.MatchedNameValue()
		if name == "" {
			continue
		}
		byNorm[textmatch.Normalize(name)] = append(byNorm[textmatch.Normalize(name)], name)
		if y := pin.MatchedYearValue(); y > 0 {
			years[src] = y
		}
	}
	if len(byNorm) == 0 {
		return "", 0
	}

	var norms []string
	for n := range byNorm {
		norms = append(norms, n)
	}
	sort.Slice(norms, func(i, j int) bool {
		if len(byNorm[norms[i]]) != len(byNorm[norms[j]]) {
			return len(byNorm[norms[i]]) > len(byNorm[norms[j]])
		}
		return norms[i] < norms[j]
	})
	variants := byNorm[norms[0]]
	sort.Slice(variants, func(i, j int) bool {
		if len(variants[i]) != len(variants[j]) {
			return len(variants[i]) < len(variants[j])
		}
		return variants[i] < variants[j]
	})
	title := variants[0]

	year := 0
	if res := consensus.Years(years, r.cfg.Consensus.IgnoreYearSources, 2); res != nil && res.HasMajority {
		year = res.Value
	}
	return title, year
}

// bestCandidate assembles the alternate queries (majority title, each
// majority source's own matched title, wikidata and igdb aliases) and picks
// the one most similar to the target, ties to the shorter string.
func (r *Resolver) bestCandidate(ctx context.Context, row *catalog.Row, src string, majority []string, target string) (string, error) {
	currentName := row.Pin(src).MatchedNameValue()

	var cands []string
	cands = append(cands, target)
	for _, m := range majority {
		if m == src {
			continue
		}
		if name := row.Pin(m).MatchedNameValue(); name != "" {
			cands = append(cands, name)
		}
	}
	aliases, err := r.aliasCandidates(ctx, row)
	if err != nil {
		return "", err
	}
	cands = append(cands, aliases...)

	seen := make(map[string]bool)
	best, bestScore := "", -1
	for _, c := range cands {
		c = strings.TrimSpace(c)
		norm := textmatch.Normalize(c)
		if c == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		// Re-searching the name that produced the wrong pin cannot
		// improve it.
		if currentName != "" && norm == textmatch.Normalize(currentName) {
			continue
		}
		s := textmatch.Score(c, target)
		if s > bestScore || (s == bestScore && len(c) < len(best)) {
			best, bestScore = c, s
		}
	}
	return best, nil
}

// aliasCandidates pulls alternate titles from the row's already-pinned
// cross-reference sources. A lookup failure is a hard error.
func (r *Resolver) aliasCandidates(ctx context.Context, row *catalog.Row) ([]string, error) {
	var out []string
	for _, src := range []string{"wikidata", "igdb"} {
		pin := row.Pin(src)
		if pin.IsEmpty() || pin.IsNotFound() {
			continue
		}
		ap, ok := r.sources[src].(source.AliasProvider)
		if !ok {
			continue
		}
		aliases, err := ap.GetAliases(ctx, pin.IDValue())
		if err != nil {
			return nil, eris.Wrapf(err, "resolve: %s aliases for row %s", src, row.RowID)
		}
		out = append(out, aliases...)
	}
	return out, nil
}

// wikidataHint pins an empty Wikidata identifier from already-pinned Steam
// or IGDB ids via reverse lookup, independent of the retry loop.
func (r *Resolver) wikidataHint(ctx context.Context, row *catalog.Row) (bool, error) {
	pin := row.Pin("wikidata")
	if !pin.IsEmpty() {
		return false, nil
	}
	hr, ok := r.sources["wikidata"].(source.HintResolver)
	if !ok {
		return false, nil
	}

	hints := source.Hints{}
	if p := row.Pin("steam"); !p.IsEmpty() && !p.IsNotFound() {
		hints.SteamAppID = p.IDValue()
	}
	if p := row.Pin("igdb"); !p.IsEmpty() && !p.IsNotFound() {
		hints.IGDBID = p.IDValue()
	}
	if hints.SteamAppID == "" && hints.IGDBID == "" {
		return false, nil
	}

	obs, err := hr.ResolveByHints(ctx, hints)
	if err != nil {
		return false, eris.Wrapf(err, "resolve: wikidata hints for row %s", row.RowID)
	}
	if obs == nil || obs.ID == "" {
		return false, nil
	}

	if r.cfg.Apply {
		score := textmatch.Score(row.Name, obs.Title)
		pin.Set(obs.ID, obs.Title, strconv.Itoa(score), yearCell(obs.Year))
		appendTag(row, tag.WikidataHint())
	}
	r.logger.Info("wikidata hint",
		zap.String("row", row.RowID), zap.String("qid", obs.ID),
		zap.Bool("apply", r.cfg.Apply))
	return true, nil
}

func majoritySources(tags *tag.List) []string {
	for _, t := range tags.Tags() {
		if t.Kind == tag.KindProviderConsensus {
			return strings.Split(t.Value, "+")
		}
	}
	return nil
}

func appendTag(row *catalog.Row, t tag.Tag) {
	list := tag.ParseList(row.ReviewTags)
	list.Add(t)
	row.ReviewTags = list.Join()
}

// rowYearHint falls back from the explicit YearHint cell to a year embedded
// in the catalog name.
func rowYearHint(row *catalog.Row) int {
	if y := row.YearHintValue(); y > 0 {
		return y
	}
	return textmatch.ExtractYearHint(row.Name)
}

func yearCell(year int) string {
	if year <= 0 {
		return ""
	}
	return fmt.Sprintf("%d", year)
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
