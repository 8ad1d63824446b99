// Package source defines the provider abstraction and the HTTP clients for
// the five metadata providers: steam, rawg, igdb, hltb, and wikidata.
//
// A nil observation with a nil error means the provider answered and had no
// match; a non-nil error means the provider could not be consulted at all.
// Callers must never treat a transport failure as a confirmed no-match.
package source

import "context"

// Observation is one provider's view of a game.
type Observation struct {
	Source string
	ID     string
	Title  string
	Year   int

	// MatchScore is the fuzzy score against the query for search results,
	// 100 for direct id lookups.
	MatchScore int

	Platforms  []string
	Genres     []string
	Developers []string
	Publishers []string
	Aliases    []string

	// SteamAppID is a cross-referenced Steam app id when the provider
	// exposes one (rawg store links, igdb external ids, wikidata P1733).
	SteamAppID string

	// StoreType is steam only: "game", "dlc", "demo", "music", etc.
	StoreType string

	// EditionOrPort is igdb only: the record links a parent game, version
	// parent, or port/expansion list, meaning the matched entry may be an
	// edition or port of another title rather than the base game.
	EditionOrPort bool

	// RejectedReason is set by steam search when every candidate was
	// discarded, naming why (e.g. "non_game_type:dlc").
	RejectedReason string
}

// Capability is the operation set every provider client implements.
type Capability interface {
	Name() string
	// GetByID fetches a game by the provider's own id. Returns (nil, nil)
	// when the id does not exist.
	GetByID(ctx context.Context, id string) (*Observation, error)
	// Search finds the best match for a name, optionally biased by a year
	// hint (0 means no hint). Returns (nil, nil) when nothing matched.
	Search(ctx context.Context, name string, yearHint int) (*Observation, error)
}

// Hints carries known external ids usable for reverse lookup.
type Hints struct {
	SteamAppID string
	IGDBID     string
}

// HintResolver resolves an entity from external-id hints (wikidata).
type HintResolver interface {
	ResolveByHints(ctx context.Context, hints Hints) (*Observation, error)
}

// AliasProvider exposes alternative titles for an already-pinned id.
type AliasProvider interface {
	GetAliases(ctx context.Context, id string) ([]string, error)
}
