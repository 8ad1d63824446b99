// Package catalog holds the catalog row model and its file codecs.
package catalog

import (
	"strconv"
	"strings"
)

// IdentityNotFound is the reserved pinned-identifier value meaning
// "confirmed absent from this source; never search again".
const IdentityNotFound = "__NOT_FOUND__"

// Row is one catalog item. Per-source identifier and diagnostics fields
// are strings because blank cells are meaningful: an empty pin means
// "search for it", the sentinel means "known absent", anything else is a
// trusted id.
type Row struct {
	RowID    string `csv:"RowId"`
	Name     string `csv:"Name"`
	Platform string `csv:"Platform"`
	Disabled string `csv:"Disabled"`
	YearHint string `csv:"YearHint"`

	SteamAppID          string `csv:"Steam_AppID"`
	SteamMatchedName    string `csv:"Steam_MatchedName"`
	SteamMatchScore     string `csv:"Steam_MatchScore"`
	SteamMatchedYear    string `csv:"Steam_MatchedYear"`
	SteamRejectedReason string `csv:"Steam_RejectedReason"`
	SteamStoreType      string `csv:"Steam_StoreType"`

	RAWGID          string `csv:"RAWG_ID"`
	RAWGMatchedName string `csv:"RAWG_MatchedName"`
	RAWGMatchScore  string `csv:"RAWG_MatchScore"`
	RAWGMatchedYear string `csv:"RAWG_MatchedYear"`

	IGDBID          string `csv:"IGDB_ID"`
	IGDBMatchedName string `csv:"IGDB_MatchedName"`
	IGDBMatchScore  string `csv:"IGDB_MatchScore"`
	IGDBMatchedYear string `csv:"IGDB_MatchedYear"`

	HLTBID          string `csv:"HLTB_ID"`
	HLTBQuery       string `csv:"HLTB_Query"`
	HLTBMatchedName string `csv:"HLTB_MatchedName"`
	HLTBMatchScore  string `csv:"HLTB_MatchScore"`
	HLTBMatchedYear string `csv:"HLTB_MatchedYear"`

	WikidataQID          string `csv:"Wikidata_QID"`
	WikidataMatchedLabel string `csv:"Wikidata_MatchedLabel"`
	WikidataMatchScore   string `csv:"Wikidata_MatchScore"`
	WikidataMatchedYear  string `csv:"Wikidata_MatchedYear"`

	ReviewTags      string `csv:"ReviewTags"`
	MatchConfidence string `csv:"MatchConfidence"`
}

// IsDisabled interprets the Disabled cell ("YES", "Y", "TRUE", "1").
func (r *Row) IsDisabled() bool {
	switch strings.ToUpper(strings.TrimSpace(r.Disabled)) {
	case "YES", "Y", "TRUE", "1":
		return true
	}
	return false
}

// YearHintValue parses the explicit year hint cell. Zero when absent.
func (r *Row) YearHintValue() int {
	return parseYear(r.YearHint)
}

// Pin is a mutable view over one source's identifier and its paired
// diagnostic sub-fields on a row. Steam-only fields are nil for the other
// sources.
type Pin struct {
	Source         string
	ID             *string
	MatchedName    *string
	MatchScore     *string
	MatchedYear    *string
	RejectedReason *string
	StoreType      *string
}

// Pin returns the view for one source, or an empty view for an unknown
// source name.
func (r *Row) Pin(source string) Pin {
	switch source {
	case "steam":
		return Pin{
			Source:         source,
			ID:             &r.SteamAppID,
			MatchedName:    &r.SteamMatchedName,
			MatchScore:     &r.SteamMatchScore,
			MatchedYear:    &r.SteamMatchedYear,
			RejectedReason: &r.SteamRejectedReason,
			StoreType:      &r.SteamStoreType,
		}
	case "rawg":
		return Pin{
			Source:      source,
			ID:          &r.RAWGID,
			MatchedName: &r.RAWGMatchedName,
			MatchScore:  &r.RAWGMatchScore,
			MatchedYear: &r.RAWGMatchedYear,
		}
	case "igdb":
		return Pin{
			Source:      source,
			ID:          &r.IGDBID,
			MatchedName: &r.IGDBMatchedName,
			MatchScore:  &r.IGDBMatchScore,
			MatchedYear: &r.IGDBMatchedYear,
		}
	case "hltb":
		return Pin{
			Source:      source,
			ID:          &r.HLTBID,
			MatchedName: &r.HLTBMatchedName,
			MatchScore:  &r.HLTBMatchScore,
			MatchedYear: &r.HLTBMatchedYear,
		}
	case "wikidata":
		return Pin{
			Source:      source,
			ID:          &r.WikidataQID,
			MatchedName: &r.WikidataMatchedLabel,
			MatchScore:  &r.WikidataMatchScore,
			MatchedYear: &r.WikidataMatchedYear,
		}
	}
	return Pin{Source: source}
}

// IDValue returns the trimmed pinned identifier.
func (p Pin) IDValue() string {
	if p.ID == nil {
		return ""
	}
	return strings.TrimSpace(*p.ID)
}

// IsNotFound reports whether the pin carries the not-found sentinel.
func (p Pin) IsNotFound() bool {
	return p.IDValue() == IdentityNotFound
}

// IsEmpty reports whether no identifier is pinned.
func (p Pin) IsEmpty() bool {
	return p.IDValue() == ""
}

// MatchedNameValue returns the trimmed matched display title.
func (p Pin) MatchedNameValue() string {
	if p.MatchedName == nil {
		return ""
	}
	return strings.TrimSpace(*p.MatchedName)
}

// MatchScoreValue parses the match score; -1 when blank or malformed.
func (p Pin) MatchScoreValue() int {
	if p.MatchScore == nil {
		return -1
	}
	s := strings.TrimSpace(*p.MatchScore)
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// MatchedYearValue parses the matched year; 0 when blank or malformed.
func (p Pin) MatchedYearValue() int {
	if p.MatchedYear == nil {
		return 0
	}
	return parseYear(*p.MatchedYear)
}

// Set overwrites the identifier and its diagnostics. A freshly set pin
// carries no search rejection, so the rejected-reason sub-field is blanked.
func (p Pin) Set(id, matchedName, matchScore, matchedYear string) {
	if p.ID != nil {
		*p.ID = id
	}
	if p.MatchedName != nil {
		*p.MatchedName = matchedName
	}
	if p.MatchScore != nil {
		*p.MatchScore = matchScore
	}
	if p.MatchedYear != nil {
		*p.MatchedYear = matchedYear
	}
	if p.RejectedReason != nil {
		*p.RejectedReason = ""
	}
}

// SetStoreType records the store entry type for sources that track it.
func (p Pin) SetStoreType(storeType string) {
	if p.StoreType != nil {
		*p.StoreType = storeType
	}
}

// Clear blanks the identifier and every diagnostic sub-field.
func (p Pin) Clear() {
	for _, f := range []*string{p.ID, p.MatchedName, p.MatchScore, p.MatchedYear, p.RejectedReason, p.StoreType} {
		if f != nil {
			*f = ""
		}
	}
}

func parseYear(s string) int {
	s = strings.TrimSpace(s)
	if len(s) != 4 {
		return 0
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < 1900 || y > 2100 {
		return 0
	}
	return y
}

// PlatformIsPCLike reports whether the row's platform makes a Steam match
// expected. A blank platform is treated as PC-like.
func (r *Row) PlatformIsPCLike() bool {
	p := strings.ToLower(strings.TrimSpace(r.Platform))
	if p == "" {
		return true
	}
	for _, hint := range []string{"pc", "windows", "steam", "linux", "mac", "osx"} {
		if strings.Contains(p, hint) {
			return true
		}
	}
	return false
}
