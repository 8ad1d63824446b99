// Package textmatch provides title normalization and fuzzy similarity
// scoring shared by the consensus engine, the tagger, and the resolver.
package textmatch

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	bracketRe    = regexp.MustCompile(`[()\[\]{}]`)
	apostropheRe = regexp.MustCompile("[’'`]")
	separatorRe  = regexp.MustCompile(`[:\-–—_/\\|]`)
	punctRe      = regexp.MustCompile(`[.,!?+*&%$#@~]`)
	spaceRe      = regexp.MustCompile(`\s+`)
	yearHintRe   = regexp.MustCompile(`(?:^|[\s(])(19\d{2}|20\d{2})(?:$|[\s)])`)
)

// Roman numerals folded to arabic for the sequel range that actually occurs
// in catalog titles.
var romanPairs = []struct{ roman, arabic string }{
	{" ii ", " 2 "},
	{" iii ", " 3 "},
	{" iv ", " 4 "},
	{" vi ", " 6 "},
	{" vii ", " 7 "},
	{" viii ", " 8 "},
	{" ix ", " 9 "},
	{" x ", " 10 "},
	{" v ", " 5 "},
	{" i ", " 1 "},
}

// Normalize folds a display title into a comparison form: lowercase,
// trademark symbols and punctuation removed, roman numerals I-X converted,
// whitespace collapsed.
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	for _, sym := range []string{"™", "®", "©"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = bracketRe.ReplaceAllString(s, " ")
	s = apostropheRe.ReplaceAllString(s, "")
	s = separatorRe.ReplaceAllString(s, " ")
	s = punctRe.ReplaceAllString(s, " ")

	s = " " + s + " "
	for _, p := range romanPairs {
		s = strings.ReplaceAll(s, p.roman, p.arabic)
	}

	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// ExtractYearHint pulls a standalone 4-digit year (1900-2100) out of a
// title, e.g. "Doom (2016)" -> 2016. Returns 0 when absent.
func ExtractYearHint(text string) int {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0
	}
	m := yearHintRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	y, err := strconv.Atoi(m[1])
	if err != nil || y < 1900 || y > 2100 {
		return 0
	}
	return y
}

// TokenSet returns the set of normalized tokens of a title.
func TokenSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, t := range strings.Fields(Normalize(s)) {
		out[t] = true
	}
	return out
}

// IsYearToken reports whether a normalized token is a plausible release year.
func IsYearToken(t string) bool {
	if len(t) != 4 {
		return false
	}
	n, err := strconv.Atoi(t)
	return err == nil && n >= 1900 && n <= 2100
}

// SeriesNumbers extracts small sequel numbers (1-50) from a title,
// skipping years, zero, leading-zero brand tokens like 007, and the "000"
// halves of thousands groups like "40,000".
func SeriesNumbers(title string) map[int]bool {
	tokens := strings.Fields(Normalize(title))
	out := make(map[int]bool)
	for i, t := range tokens {
		if !isDigits(t) {
			continue
		}
		if i+1 < len(tokens) && tokens[i+1] == "000" {
			continue
		}
		if len(t) > 1 && t[0] == '0' {
			continue
		}
		n, err := strconv.Atoi(t)
		if err != nil || n == 0 {
			continue
		}
		if n >= 1900 && n <= 2100 {
			continue
		}
		if n <= 50 {
			out[n] = true
		}
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var dlcLikeTokens = map[string]bool{
	"soundtrack": true,
	"demo":       true,
	"beta":       true,
	"expansion":  true,
	"pack":       true,
	"season":     true,
	"pass":       true,
}

// LooksDLCLike reports whether a title carries tokens typical of store
// listings that are not the base game.
func LooksDLCLike(name string) bool {
	for t := range TokenSet(name) {
		if dlcLikeTokens[t] {
			return true
		}
	}
	return false
}
