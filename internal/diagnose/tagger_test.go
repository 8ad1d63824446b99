package diagnose

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gamelog/catalog-cli/internal/catalog"
	"github.com/gamelog/catalog-cli/internal/consensus"
	"github.com/gamelog/catalog-cli/internal/source"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeSource struct {
	name string
	byID map[string]*source.Observation
	err  error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) GetByID(_ context.Context, id string) (*source.Observation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byID[id], nil
}

func (f *fakeSource) Search(context.Context, string, int) (*source.Observation, error) {
	return nil, nil
}

func emptySources() map[string]source.Capability {
	return map[string]source.Capability{}
}

func newTagger(sources map[string]source.Capability) *Tagger {
	return New(Config{Consensus: consensus.DefaultConfig()}, sources)
}

// agreeingRow has steam, rawg, and igdb pinned to the same title and year
// with perfect scores; hltb and wikidata are confirmed absent.
func agreeingRow() catalog.Row {
	return catalog.Row{
		RowID: "r1", Name: "Celeste",
		SteamAppID: "504230", SteamMatchedName: "Celeste", SteamMatchScore: "100", SteamMatchedYear: "2018", SteamStoreType: "game",
		RAWGID: "50738", RAWGMatchedName: "Celeste", RAWGMatchScore: "100", RAWGMatchedYear: "2018",
		IGDBID: "26226", IGDBMatchedName: "Celeste", IGDBMatchScore: "100", IGDBMatchedYear: "2018",
		HLTBID:      catalog.IdentityNotFound,
		WikidataQID: catalog.IdentityNotFound,
	}
}

func TestDisabledRowGetsOnlyDisabledTag(t *testing.T) {
	row := agreeingRow()
	row.Disabled = "YES"
	row.ReviewTags = "stale_tag"

	require.NoError(t, newTagger(emptySources()).TagRow(context.Background(), &row))
	assert.Equal(t, "disabled", row.ReviewTags)
	assert.Empty(t, row.MatchConfidence)
}

func TestAgreeingSourcesGetConsensusAndHighConfidence(t *testing.T) {
	row := agreeingRow()

	require.NoError(t, newTagger(emptySources()).TagRow(context.Background(), &row))
	assert.Contains(t, row.ReviewTags, "provider_consensus:igdb+rawg+steam")
	assert.Contains(t, row.ReviewTags, "hltb_not_found")
	assert.Equal(t, "HIGH", row.MatchConfidence)
}

func TestTaggingIsIdempotent(t *testing.T) {
	row := agreeingRow()
	tagger := newTagger(emptySources())

	require.NoError(t, tagger.TagRow(context.Background(), &row))
	first, firstConf := row.ReviewTags, row.MatchConfidence
	require.NoError(t, tagger.TagRow(context.Background(), &row))
	assert.Equal(t, first, row.ReviewTags)
	assert.Equal(t, firstConf, row.MatchConfidence)
}

func TestTitleAndYearOutlierBecomesLikelyWrong(t *testing.T) {
	row := catalog.Row{
		RowID: "r1", Name: "Doom",
		SteamAppID: "9050", SteamMatchedName: "Doom 3", SteamMatchScore: "70", SteamMatchedYear: "2004",
		RAWGID: "2454", RAWGMatchedName: "DOOM", RAWGMatchScore: "100", RAWGMatchedYear: "2016",
		IGDBID: "7351", IGDBMatchedName: "DOOM", IGDBMatchScore: "100", IGDBMatchedYear: "2016",
		WikidataQID: "Q19089922", WikidataMatchedLabel: "Doom", WikidataMatchScore: "100", WikidataMatchedYear: "2016",
		HLTBID: catalog.IdentityNotFound,
	}

	require.NoError(t, newTagger(emptySources()).TagRow(context.Background(), &row))
	assert.Contains(t, row.ReviewTags, "provider_outlier:steam")
	assert.Contains(t, row.ReviewTags, "year_outlier:steam")
	assert.Contains(t, row.ReviewTags, "likely_wrong:steam")
	assert.Contains(t, row.ReviewTags, "steam_score:70")
	assert.Equal(t, "LOW", row.MatchConfidence)
}

func TestBelowQuorumProducesNoConsensusTags(t *testing.T) {
	cfg := Config{Consensus: consensus.DefaultConfig()}
	cfg.Consensus.MinSources = 3
	tagger := New(cfg, emptySources())

	row := catalog.Row{
		RowID: "r1", Name: "Obscure Game",
		SteamAppID: "123", SteamMatchedName: "Obscure Game", SteamMatchScore: "100", SteamMatchedYear: "2010",
		RAWGID: "456", RAWGMatchedName: "Totally Different", RAWGMatchScore: "100", RAWGMatchedYear: "1999",
		IGDBID: catalog.IdentityNotFound, HLTBID: catalog.IdentityNotFound, WikidataQID: catalog.IdentityNotFound,
	}

	require.NoError(t, tagger.TagRow(context.Background(), &row))
	assert.NotContains(t, row.ReviewTags, "provider_")
	assert.NotContains(t, row.ReviewTags, "likely_wrong")
}

func TestMissingProviderLowersConfidenceToMedium(t *testing.T) {
	row := agreeingRow()
	row.RAWGID = ""
	row.RAWGMatchedName = ""
	row.RAWGMatchScore = ""
	row.RAWGMatchedYear = ""

	require.NoError(t, newTagger(emptySources()).TagRow(context.Background(), &row))
	assert.Contains(t, row.ReviewTags, "missing_rawg")
	assert.Equal(t, "MEDIUM", row.MatchConfidence)
}

func TestMissingSteamOnConsoleRowIsInformational(t *testing.T) {
	row := agreeingRow()
	row.Platform = "Nintendo Switch"
	row.SteamAppID = ""
	row.SteamMatchedName = ""
	row.SteamMatchScore = ""
	row.SteamMatchedYear = ""
	row.SteamStoreType = ""

	require.NoError(t, newTagger(emptySources()).TagRow(context.Background(), &row))
	assert.Contains(t, row.ReviewTags, "missing_steam_nonpc")
	assert.NotContains(t, row.ReviewTags, "missing_steam,")
	assert.Equal(t, "HIGH", row.MatchConfidence)
}

func TestMissingSteamRefinedByProviderPlatforms(t *testing.T) {
	sources := map[string]source.Capability{
		"rawg": &fakeSource{name: "rawg", byID: map[string]*source.Observation{
			"50738": {Source: "rawg", ID: "50738", Platforms: []string{"PlayStation 4", "Nintendo Switch"}},
		}},
		"igdb": &fakeSource{name: "igdb", byID: map[string]*source.Observation{
			"26226": {Source: "igdb", ID: "26226", Platforms: []string{"Nintendo Switch"}},
		}},
	}
	row := agreeingRow()
	row.SteamAppID = ""
	row.SteamMatchedName = ""
	row.SteamMatchScore = ""
	row.SteamMatchedYear = ""
	row.SteamStoreType = ""

	require.NoError(t, newTagger(sources).TagRow(context.Background(), &row))
	assert.Contains(t, row.ReviewTags, "missing_steam_nonpc")
	assert.NotContains(t, row.ReviewTags, "missing_steam,")
	assert.Equal(t, "HIGH", row.MatchConfidence)
}

func TestRecordedSteamRejectionIsLowSeverity(t *testing.T) {
	row := agreeingRow()
	row.SteamAppID = ""
	row.SteamMatchedName = ""
	row.SteamMatchScore = ""
	row.SteamMatchedYear = ""
	row.SteamStoreType = ""
	row.SteamRejectedReason = "non_game_type:dlc"

	require.NoError(t, newTagger(emptySources()).TagRow(context.Background(), &row))
	assert.Contains(t, row.ReviewTags, "missing_steam")
	assert.Contains(t, row.ReviewTags, "steam_rejected, steam_rejected:non_game_type:dlc")
	assert.Equal(t, "LOW", row.MatchConfidence)
}

func TestSteamYearOutlierWithEditionLinksIsSuspect(t *testing.T) {
	sources := map[string]source.Capability{
		"igdb": &fakeSource{name: "igdb", byID: map[string]*source.Observation{
			"2364": {Source: "igdb", ID: "2364", EditionOrPort: true},
		}},
	}
	row := catalog.Row{
		RowID: "r1", Name: "Doom 3",
		SteamAppID: "208200", SteamMatchedName: "Doom 3: BFG Edition", SteamMatchScore: "92", SteamMatchedYear: "2012",
		RAWGID: "2742", RAWGMatchedName: "Doom 3", RAWGMatchScore: "100", RAWGMatchedYear: "2004",
		IGDBID: "2364", IGDBMatchedName: "Doom 3", IGDBMatchScore: "100", IGDBMatchedYear: "2004",
		WikidataQID: "Q841496", WikidataMatchedLabel: "Doom 3", WikidataMatchScore: "100", WikidataMatchedYear: "2004",
		HLTBID: catalog.IdentityNotFound,
	}

	require.NoError(t, newTagger(sources).TagRow(context.Background(), &row))
	assert.Contains(t, row.ReviewTags, "year_outlier:steam")
	assert.Contains(t, row.ReviewTags, "edition_or_port_suspected")
}

func TestMediumScoreBandLowersConfidence(t *testing.T) {
	row := agreeingRow()
	row.SteamMatchScore = "88"

	require.NoError(t, newTagger(emptySources()).TagRow(context.Background(), &row))
	assert.Contains(t, row.ReviewTags, "steam_score:88")
	assert.Equal(t, "MEDIUM", row.MatchConfidence)
}

func TestUnresolvedPinnedIDIsLowSeverity(t *testing.T) {
	row := agreeingRow()
	row.SteamMatchedName = ""
	row.SteamMatchScore = ""

	require.NoError(t, newTagger(emptySources()).TagRow(context.Background(), &row))
	assert.Contains(t, row.ReviewTags, "steam_id_unresolved")
	assert.Equal(t, "LOW", row.MatchConfidence)
}

func TestStickyTagsSurviveRecompute(t *testing.T) {
	row := agreeingRow()
	row.SteamAppID = ""
	row.SteamMatchedName = ""
	row.SteamMatchScore = ""
	row.SteamMatchedYear = ""
	row.SteamStoreType = ""
	row.ReviewTags = "autounpinned:steam, wikidata_hint"

	require.NoError(t, newTagger(emptySources()).TagRow(context.Background(), &row))
	assert.Contains(t, row.ReviewTags, "autounpinned:steam")
	assert.Contains(t, row.ReviewTags, "wikidata_hint")
	assert.NotContains(t, row.ReviewTags, "stale")
}

func TestGenreDisagreeFromDisjointSets(t *testing.T) {
	sources := map[string]source.Capability{
		"rawg": &fakeSource{name: "rawg", byID: map[string]*source.Observation{
			"50738": {Source: "rawg", ID: "50738", Genres: []string{"Racing"}},
		}},
		"igdb": &fakeSource{name: "igdb", byID: map[string]*source.Observation{
			"26226": {Source: "igdb", ID: "26226", Genres: []string{"Platform"}},
		}},
	}
	row := agreeingRow()

	require.NoError(t, newTagger(sources).TagRow(context.Background(), &row))
	assert.Contains(t, row.ReviewTags, "genre_disagree")
	assert.Equal(t, "MEDIUM", row.MatchConfidence)
}

func TestSteamAppIDDisagree(t *testing.T) {
	sources := map[string]source.Capability{
		"rawg": &fakeSource{name: "rawg", byID: map[string]*source.Observation{
			"50738": {Source: "rawg", ID: "50738", SteamAppID: "999999"},
		}},
	}
	row := agreeingRow()

	require.NoError(t, newTagger(sources).TagRow(context.Background(), &row))
	assert.Contains(t, row.ReviewTags, "steam_appid_disagree:rawg")
	assert.Equal(t, "LOW", row.MatchConfidence)
}

func TestSteamSeriesMismatch(t *testing.T) {
	row := agreeingRow()
	row.Name = "Postal 4"
	row.SteamMatchedName = "Postal 2"
	row.RAWGMatchedName = "Postal 4"
	row.IGDBMatchedName = "Postal 4"

	require.NoError(t, newTagger(emptySources()).TagRow(context.Background(), &row))
	assert.Contains(t, row.ReviewTags, "steam_series_mismatch")
}

func TestStoreTypeNotGame(t *testing.T) {
	row := agreeingRow()
	row.SteamStoreType = "dlc"

	require.NoError(t, newTagger(emptySources()).TagRow(context.Background(), &row))
	assert.Contains(t, row.ReviewTags, "store_type_not_game:dlc")
	assert.Equal(t, "LOW", row.MatchConfidence)
}

func TestCollaboratorFailureAbortsTagging(t *testing.T) {
	sources := map[string]source.Capability{
		"steam": &fakeSource{name: "steam", err: eris.New("network down")},
	}
	row := agreeingRow()

	err := newTagger(sources).TagRow(context.Background(), &row)
	assert.Error(t, err)
}

func TestTagAllParallelMatchesSequential(t *testing.T) {
	rows := []catalog.Row{agreeingRow(), agreeingRow(), agreeingRow()}
	rows[1].RowID, rows[2].RowID = "r2", "r3"
	seqArena, err := catalog.NewArena(append([]catalog.Row(nil), rows...))
	require.NoError(t, err)
	parArena, err := catalog.NewArena(append([]catalog.Row(nil), rows...))
	require.NoError(t, err)

	seq := newTagger(emptySources())
	require.NoError(t, seq.TagAll(context.Background(), seqArena))

	par := New(Config{Consensus: consensus.DefaultConfig(), Parallelism: 4}, emptySources())
	require.NoError(t, par.TagAll(context.Background(), parArena))

	for i := 0; i < seqArena.Len(); i++ {
		assert.Equal(t, seqArena.At(i).ReviewTags, parArena.At(i).ReviewTags)
		assert.Equal(t, seqArena.At(i).MatchConfidence, parArena.At(i).MatchConfidence)
	}
}
