package resolve

import (
	"context"
	"strconv"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gamelog/catalog-cli/internal/catalog"
	"github.com/gamelog/catalog-cli/internal/consensus"
	"github.com/gamelog/catalog-cli/internal/diagnose"
	"github.com/gamelog/catalog-cli/internal/source"
	"github.com/gamelog/catalog-cli/internal/textmatch"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// fakeCapability answers GetByID with a stub record and Search with a
// canned observation, recording the queries it saw.
type fakeCapability struct {
	name         string
	searchResult *source.Observation
	searchErr    error
	searches     []string
	searchYears  []int
	aliases      []string
	hintResult   *source.Observation
}

func (f *fakeCapability) Name() string { return f.name }

func (f *fakeCapability) GetByID(_ context.Context, id string) (*source.Observation, error) {
	return &source.Observation{Source: f.name, ID: id}, nil
}

func (f *fakeCapability) Search(_ context.Context, name string, yearHint int) (*source.Observation, error) {
	f.searches = append(f.searches, name)
	f.searchYears = append(f.searchYears, yearHint)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResult, nil
}

func (f *fakeCapability) GetAliases(context.Context, string) ([]string, error) {
	return f.aliases, nil
}

func (f *fakeCapability) ResolveByHints(context.Context, source.Hints) (*source.Observation, error) {
	return f.hintResult, nil
}

// wrongSteamRow is pinned to Doom 3 on Steam while three sources agree on
// DOOM (2016): the repair case.
func wrongSteamRow() catalog.Row {
	return catalog.Row{
		RowID: "r1", Name: "Doom",
		SteamAppID: "9050", SteamMatchedName: "Doom 3", SteamMatchScore: "70", SteamMatchedYear: "2004",
		RAWGID: "2454", RAWGMatchedName: "DOOM", RAWGMatchScore: "100", RAWGMatchedYear: "2016",
		IGDBID: "7351", IGDBMatchedName: "DOOM", IGDBMatchScore: "100", IGDBMatchedYear: "2016",
		WikidataQID: "Q19089922", WikidataMatchedLabel: "Doom", WikidataMatchScore: "100", WikidataMatchedYear: "2016",
		HLTBID: catalog.IdentityNotFound,
	}
}

func newResolver(cfg Config, sources map[string]source.Capability) *Resolver {
	tagger := diagnose.New(diagnose.Config{Consensus: consensus.DefaultConfig()}, sources)
	return New(cfg, sources, tagger)
}

func arenaOf(t *testing.T, rows ...catalog.Row) *catalog.Arena {
	t.Helper()
	a, err := catalog.NewArena(rows)
	require.NoError(t, err)
	return a
}

func TestRepairRepinsOnCredibleRetry(t *testing.T) {
	steam := &fakeCapability{name: "steam", searchResult: &source.Observation{
		Source: "steam", ID: "379720", Title: "DOOM", Year: 2016, MatchScore: 100, StoreType: "game",
	}}
	sources := map[string]source.Capability{"steam": steam}
	r := newResolver(Config{
		Consensus: consensus.DefaultConfig(), Sources: []string{"steam"},
		AcceptScore: 90, AcceptYearTolerance: 1, Apply: true,
	}, sources)

	arena := arenaOf(t, wrongSteamRow())
	stats, err := r.Run(context.Background(), arena)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Attempted)
	assert.Equal(t, 1, stats.Repinned)
	assert.Zero(t, stats.Unpinned)

	row := arena.ByID("r1")
	assert.Equal(t, "379720", row.SteamAppID)
	assert.Equal(t, "DOOM", row.SteamMatchedName)
	assert.Contains(t, row.ReviewTags, "repinned_by_resolve:steam")
	assert.NotContains(t, row.ReviewTags, "autounpinned:steam")
	assert.NotEmpty(t, steam.searches)
}

func TestRepinRefreshesStoreTypeAndRejection(t *testing.T) {
	row := wrongSteamRow()
	row.SteamStoreType = "dlc"
	row.SteamRejectedReason = "non_game_type:dlc"

	steam := &fakeCapability{name: "steam", searchResult: &source.Observation{
		Source: "steam", ID: "379720", Title: "DOOM", Year: 2016, MatchScore: 100, StoreType: "game",
	}}
	sources := map[string]source.Capability{"steam": steam}
	r := newResolver(Config{
		Consensus: consensus.DefaultConfig(), Sources: []string{"steam"},
		AcceptScore: 90, AcceptYearTolerance: 1, Apply: true,
	}, sources)

	arena := arenaOf(t, row)
	stats, err := r.Run(context.Background(), arena)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Repinned)

	got := arena.ByID("r1")
	assert.Equal(t, "379720", got.SteamAppID)
	assert.Equal(t, "game", got.SteamStoreType)
	assert.Empty(t, got.SteamRejectedReason)
	assert.NotContains(t, got.ReviewTags, "store_type_not_game")
}

func TestRetryResultWithoutYearStillRepins(t *testing.T) {
	steam := &fakeCapability{name: "steam", searchResult: &source.Observation{
		Source: "steam", ID: "782330", Title: "DOOM Eternal", StoreType: "game",
	}}
	sources := map[string]source.Capability{"steam": steam}
	r := newResolver(Config{
		Consensus: consensus.DefaultConfig(), Sources: []string{"steam"},
		AcceptScore: 90, AcceptYearTolerance: 1, Apply: true,
	}, sources)

	arena := arenaOf(t, wrongSteamRow())
	stats, err := r.Run(context.Background(), arena)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Repinned)
	assert.Zero(t, stats.Unpinned)
	assert.Equal(t, "782330", arena.ByID("r1").SteamAppID)
}

func TestRepinScoresAgainstCatalogName(t *testing.T) {
	row := wrongSteamRow()
	row.Name = "Doom 4"

	steam := &fakeCapability{name: "steam", searchResult: &source.Observation{
		Source: "steam", ID: "379720", Title: "DOOM", Year: 2016, MatchScore: 100, StoreType: "game",
	}}
	sources := map[string]source.Capability{"steam": steam}
	r := newResolver(Config{
		Consensus: consensus.DefaultConfig(), Sources: []string{"steam"},
		AcceptScore: 90, AcceptYearTolerance: 1, Apply: true,
	}, sources)

	arena := arenaOf(t, row)
	stats, err := r.Run(context.Background(), arena)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Repinned)

	got := arena.ByID("r1")
	assert.Equal(t, strconv.Itoa(textmatch.Score("Doom 4", "DOOM")), got.SteamMatchScore)
	assert.NotEqual(t, "100", got.SteamMatchScore)
}

func TestRetrySearchFallsBackToRowYearHint(t *testing.T) {
	row := wrongSteamRow()
	row.SteamAppID, row.SteamMatchedName, row.SteamMatchScore, row.SteamMatchedYear = "", "", "", ""
	row.RAWGMatchedYear, row.IGDBMatchedYear, row.WikidataMatchedYear = "", "", ""
	row.YearHint = "2016"
	row.ReviewTags = "autounpinned:steam"

	steam := &fakeCapability{name: "steam", searchResult: &source.Observation{
		Source: "steam", ID: "379720", Title: "DOOM", Year: 2016, StoreType: "game",
	}}
	sources := map[string]source.Capability{"steam": steam}
	r := newResolver(Config{
		Consensus: consensus.DefaultConfig(), Sources: []string{"steam"},
		AcceptScore: 90, AcceptYearTolerance: 1, RetryMissing: true, Apply: true,
	}, sources)

	arena := arenaOf(t, row)
	stats, err := r.Run(context.Background(), arena)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Repinned)
	assert.Equal(t, []int{2016}, steam.searchYears)
}

func TestRepairUnpinsWhenRetryUnconvincing(t *testing.T) {
	steam := &fakeCapability{name: "steam", searchResult: &source.Observation{
		Source: "steam", ID: "9050", Title: "Doom 3", Year: 2004,
	}}
	sources := map[string]source.Capability{"steam": steam}
	r := newResolver(Config{
		Consensus: consensus.DefaultConfig(), Sources: []string{"steam"},
		AcceptScore: 90, AcceptYearTolerance: 1, Apply: true,
	}, sources)

	arena := arenaOf(t, wrongSteamRow())
	stats, err := r.Run(context.Background(), arena)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Attempted)
	assert.Equal(t, 1, stats.Unpinned)
	assert.Zero(t, stats.Repinned)

	row := arena.ByID("r1")
	assert.Empty(t, row.SteamAppID)
	assert.Empty(t, row.SteamMatchedName)
	assert.Empty(t, row.SteamMatchScore)
	assert.Contains(t, row.ReviewTags, "autounpinned:steam")
}

func TestDryRunLeavesRowsUntouched(t *testing.T) {
	mkSources := func() map[string]source.Capability {
		return map[string]source.Capability{
			"steam": &fakeCapability{name: "steam", searchResult: &source.Observation{
				Source: "steam", ID: "379720", Title: "DOOM", Year: 2016,
			}},
		}
	}

	// Pre-tag so the dry run's own tagging pass is a no-op rewrite.
	pre := arenaOf(t, wrongSteamRow())
	tagger := diagnose.New(diagnose.Config{Consensus: consensus.DefaultConfig()}, mkSources())
	require.NoError(t, tagger.TagAll(context.Background(), pre))
	before := *pre.ByID("r1")

	r := newResolver(Config{
		Consensus: consensus.DefaultConfig(), Sources: []string{"steam"},
		AcceptScore: 90, AcceptYearTolerance: 1, Apply: false,
	}, mkSources())
	stats, err := r.Run(context.Background(), pre)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Attempted)
	assert.Equal(t, 1, stats.Repinned)
	assert.Equal(t, before, *pre.ByID("r1"))
}

func TestRepairKeptWhenTargetCannotBeImproved(t *testing.T) {
	// rawg agrees on the title but disagrees on year so hard that it is
	// the outlier; every retry candidate normalizes to the name rawg
	// already matched, so there is nothing new to search for.
	row := catalog.Row{
		RowID: "r1", Name: "Doom",
		RAWGID: "2454", RAWGMatchedName: "Doom", RAWGMatchScore: "100", RAWGMatchedYear: "1993",
		IGDBID: "7351", IGDBMatchedName: "Doom", IGDBMatchScore: "100", IGDBMatchedYear: "2016",
		WikidataQID: "Q19089922", WikidataMatchedLabel: "Doom", WikidataMatchScore: "100", WikidataMatchedYear: "2016",
		HLTBID: catalog.IdentityNotFound,
	}
	rawg := &fakeCapability{name: "rawg"}
	sources := map[string]source.Capability{"rawg": rawg}
	r := newResolver(Config{
		Consensus: consensus.DefaultConfig(), Sources: []string{"rawg"},
		AcceptScore: 90, AcceptYearTolerance: 1, Apply: true,
	}, sources)

	arena := arenaOf(t, row)
	stats, err := r.Run(context.Background(), arena)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Attempted)
	assert.Equal(t, 1, stats.Kept)
	assert.Zero(t, stats.Unpinned)
	assert.Equal(t, "2454", arena.ByID("r1").RAWGID)
	assert.Empty(t, rawg.searches)
}

func TestRetryMissingRefillsUnpinnedSource(t *testing.T) {
	row := wrongSteamRow()
	row.SteamAppID, row.SteamMatchedName, row.SteamMatchScore, row.SteamMatchedYear = "", "", "", ""
	row.ReviewTags = "autounpinned:steam"

	steam := &fakeCapability{name: "steam", searchResult: &source.Observation{
		Source: "steam", ID: "379720", Title: "DOOM", Year: 2016, StoreType: "game",
	}}
	sources := map[string]source.Capability{"steam": steam}
	r := newResolver(Config{
		Consensus: consensus.DefaultConfig(), Sources: []string{"steam"},
		AcceptScore: 90, AcceptYearTolerance: 1, RetryMissing: true, Apply: true,
	}, sources)

	arena := arenaOf(t, row)
	stats, err := r.Run(context.Background(), arena)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Repinned)
	got := arena.ByID("r1")
	assert.Equal(t, "379720", got.SteamAppID)
	assert.Contains(t, got.ReviewTags, "repinned_by_resolve:steam")
}

func TestEmptyPinIgnoredWithoutRetryMissing(t *testing.T) {
	row := wrongSteamRow()
	row.SteamAppID, row.SteamMatchedName, row.SteamMatchScore, row.SteamMatchedYear = "", "", "", ""

	steam := &fakeCapability{name: "steam", searchResult: &source.Observation{
		Source: "steam", ID: "379720", Title: "DOOM", Year: 2016,
	}}
	sources := map[string]source.Capability{"steam": steam}
	r := newResolver(Config{
		Consensus: consensus.DefaultConfig(), Sources: []string{"steam"},
		AcceptScore: 90, AcceptYearTolerance: 1, Apply: true,
	}, sources)

	arena := arenaOf(t, row)
	stats, err := r.Run(context.Background(), arena)
	require.NoError(t, err)
	assert.Zero(t, stats.Attempted)
	assert.Empty(t, arena.ByID("r1").SteamAppID)
}

func TestWikidataHintPinsFromSteamID(t *testing.T) {
	row := wrongSteamRow()
	row.WikidataQID, row.WikidataMatchedLabel, row.WikidataMatchScore, row.WikidataMatchedYear = "", "", "", ""
	row.SteamMatchedName, row.SteamMatchScore, row.SteamMatchedYear = "DOOM", "100", "2016"

	wikidata := &fakeCapability{name: "wikidata", hintResult: &source.Observation{
		Source: "wikidata", ID: "Q19089922", Title: "Doom", Year: 2016,
	}}
	sources := map[string]source.Capability{"wikidata": wikidata}
	r := newResolver(Config{
		Consensus:   consensus.DefaultConfig(),
		AcceptScore: 90, AcceptYearTolerance: 1, Apply: true,
	}, sources)

	arena := arenaOf(t, row)
	stats, err := r.Run(context.Background(), arena)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.WikidataHintAdded)
	got := arena.ByID("r1")
	assert.Equal(t, "Q19089922", got.WikidataQID)
	assert.Contains(t, got.ReviewTags, "wikidata_hint")
}

func TestSearchFailureAbortsRun(t *testing.T) {
	steam := &fakeCapability{name: "steam", searchErr: eris.New("steam 500")}
	sources := map[string]source.Capability{"steam": steam}
	r := newResolver(Config{
		Consensus: consensus.DefaultConfig(), Sources: []string{"steam"},
		AcceptScore: 90, AcceptYearTolerance: 1, Apply: true,
	}, sources)

	_, err := r.Run(context.Background(), arenaOf(t, wrongSteamRow()))
	assert.Error(t, err)
}

func TestDisabledRowSkipsResolution(t *testing.T) {
	row := wrongSteamRow()
	row.Disabled = "YES"

	steam := &fakeCapability{name: "steam", searchResult: &source.Observation{
		Source: "steam", ID: "379720", Title: "DOOM", Year: 2016,
	}}
	sources := map[string]source.Capability{"steam": steam}
	r := newResolver(Config{
		Consensus: consensus.DefaultConfig(), Sources: []string{"steam"},
		AcceptScore: 90, AcceptYearTolerance: 1, Apply: true,
	}, sources)

	arena := arenaOf(t, row)
	stats, err := r.Run(context.Background(), arena)
	require.NoError(t, err)
	assert.Zero(t, stats.Attempted)
	assert.Equal(t, "9050", arena.ByID("r1").SteamAppID)
}
