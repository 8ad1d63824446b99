// Package company normalizes developer/publisher names into comparison
// keys used for cross-source consensus.
package company

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	legalSuffixRe = regexp.MustCompile(`(?i)(?:,?\s+|\s*,\s*)(?:` +
		`inc\.?|incorporated|llc|l\.l\.c\.|ltd\.?|limited|corp\.?|corporation|` +
		`co\.?|company|gmbh|s\.a\.|s\.a|s\.r\.l\.|s\.r\.l|s\.p\.a\.|s\.p\.a|` +
		`a/s|a\.s\.|ag|bv|oy|oyj|kg|k\.g\.|pte\.?\s+ltd\.?|` +
		`lda\.?|pty\.?(?:\s+ltd\.?)?|` +
		`co\.,?\s*ltd\.?|co\.,?\s*limited` +
		`)\s*$`)
	trailingParensRe = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
	multiSpaceRe     = regexp.MustCompile(`\s{2,}`)
	keyCleanRe       = regexp.MustCompile(`(?i)[^a-z0-9]+`)
	hasLetterRe      = regexp.MustCompile(`[A-Za-z]`)
)

var genericSuffixTokens = map[string]bool{
	"games":         true,
	"game":          true,
	"software":      true,
	"studio":        true,
	"studios":       true,
	"interactive":   true,
	"entertainment": true,
	"publishing":    true,
	"publisher":     true,
	"digital":       true,
	"media":         true,
	"production":    true,
	"productions":   true,
}

// LowSignalKeys are porting-label entities that frequently appear on only
// one store and should not drive cross-source disagreement.
var LowSignalKeys = map[string]bool{
	"feral interactive": true,
	"aspyr":             true,
	"aspyr media":       true,
}

// Normalize strips trailing legal suffixes and porting parentheticals from
// a company name, preserving case for display.
func Normalize(value string) string {
	s := strings.TrimSpace(value)
	if s == "" {
		return ""
	}
	switch strings.ToLower(s) {
	case "nan", "none", "null":
		return ""
	}
	s = strings.TrimSpace(trailingParensRe.ReplaceAllString(s, ""))
	for {
		next := strings.TrimSpace(legalSuffixRe.ReplaceAllString(s, ""))
		next = strings.TrimSpace(strings.TrimSuffix(next, ","))
		if next == s {
			break
		}
		s = next
	}
	s = strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
	// Purely numeric labels ("2015", "3909") carry no identity signal.
	if !hasLetterRe.MatchString(s) {
		return ""
	}
	return s
}

var accentFolder = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Key produces the comparison key for a company name: normalized,
// accent-folded ("Montréal" == "Montreal"), punctuation collapsed,
// case-folded.
func Key(value string) string {
	s := Normalize(value)
	if s == "" {
		return ""
	}
	for _, sym := range []string{"™", "®", "℠"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	if folded, _, err := transform.String(accentFolder, s); err == nil {
		s = folded
	}
	s = strings.TrimSpace(keyCleanRe.ReplaceAllString(s, " "))
	s = strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
	return strings.ToLower(s)
}

// Keys returns the comparison keys for one name, including generic-suffix
// stripped variants ("2k games" also yields "2k") so sources that differ
// only in a trailing qualifier still agree.
func Keys(value string) map[string]bool {
	base := Key(value)
	if base == "" {
		return nil
	}
	out := map[string]bool{base: true}
	tokens := strings.Fields(base)
	for len(tokens) >= 2 && genericSuffixTokens[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
		if k := strings.Join(tokens, " "); k != "" {
			out[k] = true
		}
	}
	return out
}

// KeySet expands a list of company names into a single comparison key set.
func KeySet(names []string) map[string]bool {
	out := make(map[string]bool)
	for _, n := range names {
		for k := range Keys(n) {
			out[k] = true
		}
	}
	return out
}
