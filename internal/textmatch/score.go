package textmatch

import (
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// Edition qualifiers that may differ between stores without changing
// identity ("Assassin's Creed" vs "Assassin's Creed Director's Cut").
var editionTokens = map[string]bool{
	"remake":      true,
	"hd":          true,
	"classic":     true,
	"definitive":  true,
	"remastered":  true,
	"ultimate":    true,
	"goty":        true,
	"anniversary": true,
	"complete":    true,
	"collection":  true,
	"edition":     true,
	"enhanced":    true,
	"redux":       true,
	"vr":          true,
	"directors":   true,
	"director":    true,
	"cut":         true,
	"story":       true,
	"game":        true,
	"of":          true,
	"the":         true,
	"year":        true,
}

// Score computes a similarity in [0,100] between two titles.
//
// The base score is an order-insensitive token sort ratio over normalized
// titles. A substring-style partial ratio is additionally considered only
// when one token set is a strict superset of the other and the extra tokens
// are all 4-digit years or edition qualifiers, so "Doom" matches
// "Doom 2016" without letting "Doom 3" match "Doom 2016". That superset
// check makes the allowance intentionally asymmetric; downstream thresholds
// depend on the exact values, so keep it that way.
func Score(a, b string) int {
	na := Normalize(a)
	nb := Normalize(b)
	scoreSort := fuzzy.TokenSortRatio(na, nb)

	tokensA := TokenSet(a)
	tokensB := TokenSet(b)

	extraA := tokenDiff(tokensA, tokensB)
	extraB := tokenDiff(tokensB, tokensA)

	yearOnlyA := len(extraA) > 0 && allMatch(extraA, IsYearToken)
	yearOnlyB := len(extraB) > 0 && allMatch(extraB, IsYearToken)
	editionOnlyA := len(extraA) > 0 && allMatch(extraA, func(t string) bool { return editionTokens[t] })
	editionOnlyB := len(extraB) > 0 && allMatch(extraB, func(t string) bool { return editionTokens[t] })

	allowPartial := (yearOnlyA && len(extraB) == 0) ||
		(yearOnlyB && len(extraA) == 0) ||
		(editionOnlyA && len(extraB) == 0) ||
		(editionOnlyB && len(extraA) == 0)

	if !allowPartial {
		return scoreSort
	}
	scorePartial := fuzzy.PartialRatio(na, nb)
	if scorePartial > scoreSort {
		return scorePartial
	}
	return scoreSort
}

func tokenDiff(a, b map[string]bool) []string {
	var out []string
	for t := range a {
		if !b[t] {
			out = append(out, t)
		}
	}
	return out
}

func allMatch(tokens []string, pred func(string) bool) bool {
	for _, t := range tokens {
		if !pred(t) {
			return false
		}
	}
	return true
}
