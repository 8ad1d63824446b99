// Package review builds the manual-review export: the actionable slice of
// the catalog, ranked so the most suspicious rows come first.
package review

import (
	"bytes"
	"encoding/csv"
	"os"
	"sort"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/gamelog/catalog-cli/internal/catalog"
	"github.com/gamelog/catalog-cli/internal/tag"
	"github.com/gamelog/catalog-cli/internal/textmatch"
)

// Config tunes the export.
type Config struct {
	MaxRows int
}

// DefaultConfig caps the export at a reviewable size.
func DefaultConfig() Config {
	return Config{MaxRows: 200}
}

// Entry is one review CSV line.
type Entry struct {
	RowID           string `csv:"RowId"`
	Name            string `csv:"Name"`
	YearHint        string `csv:"YearHint"`
	Platform        string `csv:"Platform"`
	MatchConfidence string `csv:"MatchConfidence"`
	ReviewTags      string `csv:"ReviewTags"`
	SuggestedTitle  string `csv:"SuggestedTitle"`
	Priority        int    `csv:"Priority"`

	SteamAppID       string `csv:"Steam_AppID"`
	SteamMatchedName string `csv:"Steam_MatchedName"`
	SteamURL         string `csv:"Steam_URL"`
	RAWGID           string `csv:"RAWG_ID"`
	RAWGMatchedName  string `csv:"RAWG_MatchedName"`
	IGDBID           string `csv:"IGDB_ID"`
	IGDBMatchedName  string `csv:"IGDB_MatchedName"`
	HLTBID           string `csv:"HLTB_ID"`
	HLTBURL          string `csv:"HLTB_URL"`
	WikidataQID      string `csv:"Wikidata_QID"`
}

// Build selects the actionable rows and ranks them by priority, highest
// first, trimmed to cfg.MaxRows. Ties keep catalog order.
func Build(arena *catalog.Arena, cfg Config) []Entry {
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = DefaultConfig().MaxRows
	}

	var entries []Entry
	for i := 0; i < arena.Len(); i++ {
		row := arena.At(i)
		if row.IsDisabled() {
			continue
		}
		tags := tag.ParseList(row.ReviewTags)
		if !actionable(row, tags) {
			continue
		}
		entries = append(entries, Entry{
			RowID:            row.RowID,
			Name:             row.Name,
			YearHint:         row.YearHint,
			Platform:         row.Platform,
			MatchConfidence:  row.MatchConfidence,
			ReviewTags:       row.ReviewTags,
			SuggestedTitle:   suggestedTitle(row),
			Priority:         priority(row.MatchConfidence, tags),
			SteamAppID:       row.SteamAppID,
			SteamMatchedName: row.SteamMatchedName,
			SteamURL:         steamURL(row.SteamAppID),
			RAWGID:           row.RAWGID,
			RAWGMatchedName:  row.RAWGMatchedName,
			IGDBID:           row.IGDBID,
			IGDBMatchedName:  row.IGDBMatchedName,
			HLTBID:           row.HLTBID,
			HLTBURL:          hltbURL(row.HLTBID),
			WikidataQID:      row.WikidataQID,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Priority > entries[j].Priority
	})
	if len(entries) > cfg.MaxRows {
		entries = entries[:cfg.MaxRows]
	}
	return entries
}

func actionable(row *catalog.Row, tags *tag.List) bool {
	switch row.MatchConfidence {
	case string(tag.ConfidenceLow), string(tag.ConfidenceMedium):
		return true
	}
	for _, k := range []tag.Kind{
		tag.KindLikelyWrong, tag.KindProviderOutlier,
		tag.KindYearOutlier, tag.KindPlatformOutlier,
	} {
		if tags.HasKind(k) {
			return true
		}
	}
	return false
}

// priority keeps the weights small and interpretable: confidence dominates,
// actionable tags separate rows within a band.
func priority(confidence string, tags *tag.List) int {
	score := 0
	switch confidence {
	case string(tag.ConfidenceLow):
		score += 50
	case string(tag.ConfidenceMedium):
		score += 20
	}
	for _, t := range tags.Tags() {
		switch t.Kind {
		case tag.KindLikelyWrong:
			score += 40
		case tag.KindProviderOutlier:
			score += 12
		case tag.KindSteamAppIDDisagree, tag.KindSteamRejected, tag.KindSteamRejectedReason:
			score += 10
		case tag.KindYearOutlier, tag.KindPlatformOutlier:
			score += 6
		case tag.KindGenreDisagree, tag.KindAmbiguousTitleYear:
			score += 4
		}
	}
	return score
}

// suggestedTitle proposes the first matched title that differs from the
// catalog name, preferring the higher-signal databases.
func suggestedTitle(row *catalog.Row) string {
	want := textmatch.Normalize(row.Name)
	for _, name := range []string{
		row.IGDBMatchedName, row.RAWGMatchedName,
		row.SteamMatchedName, row.HLTBMatchedName,
	} {
		if name != "" && textmatch.Normalize(name) != want {
			return name
		}
	}
	return ""
}

func steamURL(appid string) string {
	if appid == "" || appid == catalog.IdentityNotFound {
		return ""
	}
	return "https://store.steampowered.com/app/" + appid + "/"
}

func hltbURL(id string) string {
	if id == "" || id == catalog.IdentityNotFound {
		return ""
	}
	return "https://howlongtobeat.com/game/" + id
}

// WriteCSV writes the review export.
func WriteCSV(path string, entries []Entry) error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(writer)
	for i := range entries {
		if err := enc.Encode(&entries[i]); err != nil {
			return eris.Wrapf(err, "review: encode row %s", entries[i].RowID)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return eris.Wrap(err, "review: flush csv")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return eris.Wrapf(err, "review: write %s", path)
	}
	return nil
}
