// Package tag defines the closed vocabulary of review tags and match
// confidence levels produced by the diagnostics tagger and the resolver.
//
// Tags are structured values internally; the exact string forms only appear
// at the storage boundary (ReviewTags CSV cell) via String and ParseList.
package tag

import (
	"fmt"
	"strings"
)

// Kind enumerates every tag the tagger or resolver may emit.
type Kind int

const (
	KindUnknown Kind = iota
	KindDisabled
	KindMissing      // missing_<source>
	KindNotFound     // <source>_not_found
	KindIDUnresolved // <source>_id_unresolved
	KindScore        // <source>_score:<value>
	KindSteamAppIDDisagree
	KindSteamRejected       // steam_rejected
	KindSteamRejectedReason // steam_rejected:<reason>
	KindMissingSteamNonPC
	KindProviderConsensus // provider_consensus:<a+b+...>
	KindProviderOutlier
	KindProviderNoConsensus
	KindYearOutlier
	KindYearNoConsensus
	KindPlatformOutlier
	KindPlatformNoConsensus
	KindGenreDisagree
	KindDeveloperDisagree
	KindDeveloperOutlier
	KindPublisherDisagree
	KindPublisherOutlier
	KindLikelyWrong
	KindAmbiguousTitleYear
	KindEditionOrPortSuspected
	KindSteamSeriesMismatch
	KindStoreTypeNotGame // store_type_not_game:<type>
	KindWikidataHint
	KindAutoUnpinned      // autounpinned:<source>
	KindRepinnedByResolve // repinned_by_resolve:<source>
)

// Tag is one symbolic review tag. Source holds a source name for per-source
// kinds; Value holds the score, reason, store type, or joined consensus set.
type Tag struct {
	Kind   Kind
	Source string
	Value  string

	// raw preserves the original text for unrecognized tags so they
	// round-trip through a recompute unchanged.
	raw string
}

// Bare kinds with a fixed string form.
var bareForms = map[Kind]string{
	KindDisabled:               "disabled",
	KindProviderNoConsensus:    "provider_no_consensus",
	KindYearNoConsensus:        "year_no_consensus",
	KindPlatformNoConsensus:    "platform_no_consensus",
	KindGenreDisagree:          "genre_disagree",
	KindDeveloperDisagree:      "developer_disagree",
	KindPublisherDisagree:      "publisher_disagree",
	KindAmbiguousTitleYear:     "ambiguous_title_year",
	KindEditionOrPortSuspected: "edition_or_port_suspected",
	KindSteamSeriesMismatch:    "steam_series_mismatch",
	KindSteamRejected:          "steam_rejected",
	KindMissingSteamNonPC:      "missing_steam_nonpc",
	KindWikidataHint:           "wikidata_hint",
}

var bareKinds = func() map[string]Kind {
	m := make(map[string]Kind, len(bareForms))
	for k, s := range bareForms {
		m[s] = k
	}
	return m
}()

// Prefix kinds whose string form is "<prefix>:<source-or-value>".
var prefixForms = map[Kind]string{
	KindProviderConsensus:   "provider_consensus",
	KindProviderOutlier:     "provider_outlier",
	KindYearOutlier:         "year_outlier",
	KindPlatformOutlier:     "platform_outlier",
	KindDeveloperOutlier:    "developer_outlier",
	KindPublisherOutlier:    "publisher_outlier",
	KindLikelyWrong:         "likely_wrong",
	KindStoreTypeNotGame:    "store_type_not_game",
	KindSteamRejectedReason: "steam_rejected",
	KindAutoUnpinned:        "autounpinned",
	KindRepinnedByResolve:   "repinned_by_resolve",
}

var prefixKinds = map[string]Kind{
	"provider_consensus":  KindProviderConsensus,
	"provider_outlier":    KindProviderOutlier,
	"year_outlier":        KindYearOutlier,
	"platform_outlier":    KindPlatformOutlier,
	"developer_outlier":   KindDeveloperOutlier,
	"publisher_outlier":   KindPublisherOutlier,
	"likely_wrong":        KindLikelyWrong,
	"store_type_not_game": KindStoreTypeNotGame,
	"steam_rejected":      KindSteamRejectedReason,
	"autounpinned":        KindAutoUnpinned,
	"repinned_by_resolve": KindRepinnedByResolve,
}

// Constructors for the common shapes.

func Disabled() Tag              { return Tag{Kind: KindDisabled} }
func Missing(source string) Tag  { return Tag{Kind: KindMissing, Source: source} }
func NotFound(source string) Tag { return Tag{Kind: KindNotFound, Source: source} }
func IDUnresolved(source string) Tag {
	return Tag{Kind: KindIDUnresolved, Source: source}
}
func Score(source string, score int) Tag {
	return Tag{Kind: KindScore, Source: source, Value: fmt.Sprintf("%d", score)}
}
func SteamAppIDDisagree(source string) Tag {
	return Tag{Kind: KindSteamAppIDDisagree, Source: source}
}
func ProviderConsensus(sources []string) Tag {
	return Tag{Kind: KindProviderConsensus, Value: strings.Join(sources, "+")}
}
func ProviderOutlier(source string) Tag {
	return Tag{Kind: KindProviderOutlier, Source: source}
}
func YearOutlier(source string) Tag {
	return Tag{Kind: KindYearOutlier, Source: source}
}
func PlatformOutlier(source string) Tag {
	return Tag{Kind: KindPlatformOutlier, Source: source}
}
func LikelyWrong(source string) Tag {
	return Tag{Kind: KindLikelyWrong, Source: source}
}
func StoreTypeNotGame(storeType string) Tag {
	return Tag{Kind: KindStoreTypeNotGame, Value: storeType}
}
func SteamRejectedReason(reason string) Tag {
	return Tag{Kind: KindSteamRejectedReason, Value: reason}
}
func AutoUnpinned(source string) Tag {
	return Tag{Kind: KindAutoUnpinned, Source: source}
}
func RepinnedByResolve(source string) Tag {
	return Tag{Kind: KindRepinnedByResolve, Source: source}
}
func WikidataHint() Tag { return Tag{Kind: KindWikidataHint} }

// String renders the boundary form of the tag.
func (t Tag) String() string {
	if s, ok := bareForms[t.Kind]; ok {
		return s
	}
	switch t.Kind {
	case KindMissing:
		return "missing_" + t.Source
	case KindNotFound:
		return t.Source + "_not_found"
	case KindIDUnresolved:
		return t.Source + "_id_unresolved"
	case KindScore:
		return t.Source + "_score:" + t.Value
	case KindSteamAppIDDisagree:
		return "steam_appid_disagree:" + t.Source
	}
	if prefix, ok := prefixForms[t.Kind]; ok {
		arg := t.Source
		if arg == "" {
			arg = t.Value
		}
		return prefix + ":" + arg
	}
	return t.raw
}

// Sticky reports whether the tag records an action taken outside tag
// recomputation and must survive it.
func (t Tag) Sticky() bool {
	switch t.Kind {
	case KindWikidataHint, KindAutoUnpinned, KindRepinnedByResolve:
		return true
	}
	return false
}

// Parse maps a boundary string back to a structured Tag. Unrecognized
// strings are preserved verbatim under KindUnknown.
func Parse(s string) Tag {
	s = strings.TrimSpace(s)
	if s == "" {
		return Tag{Kind: KindUnknown}
	}
	if k, ok := bareKinds[s]; ok {
		return Tag{Kind: k}
	}
	if prefix, arg, ok := strings.Cut(s, ":"); ok {
		arg = strings.TrimSpace(arg)
		if k, found := prefixKinds[prefix]; found {
			t := Tag{Kind: k}
			switch k {
			case KindProviderConsensus, KindStoreTypeNotGame, KindSteamRejectedReason:
				t.Value = arg
			default:
				t.Source = arg
			}
			return t
		}
		if src, found := strings.CutSuffix(prefix, "_score"); found && src != "" {
			return Tag{Kind: KindScore, Source: src, Value: arg}
		}
		if prefix == "steam_appid_disagree" {
			return Tag{Kind: KindSteamAppIDDisagree, Source: arg}
		}
	}
	if src, ok := strings.CutPrefix(s, "missing_"); ok && !strings.Contains(src, "_") {
		return Tag{Kind: KindMissing, Source: src}
	}
	if src, ok := strings.CutSuffix(s, "_not_found"); ok {
		return Tag{Kind: KindNotFound, Source: src}
	}
	if src, ok := strings.CutSuffix(s, "_id_unresolved"); ok {
		return Tag{Kind: KindIDUnresolved, Source: src}
	}
	return Tag{Kind: KindUnknown, raw: s}
}
