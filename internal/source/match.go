package source

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gamelog/catalog-cli/internal/textmatch"
)

// Candidate is one search result under consideration by PickBest.
type Candidate struct {
	ID   string
	Name string
	// Year is the candidate's release year, 0 when the provider did not
	// expose one.
	Year int
}

const noYearDelta = 1 << 30

type scoredCandidate struct {
	cand       Candidate
	raw        int
	adjusted   int
	exactMatch bool
	dlcLike    bool
	nonYearDif int
	yearDif    int
	yearDelta  int
	idNum      int64
}

// PickBest chooses the candidate that best matches the query, returning it
// with its adjusted score, or (nil, -1) when the list is empty.
//
// The adjustments bias against accidental sequel and DLC picks and toward
// candidates whose release year agrees with the hint:
//   - sequels are penalized when the query has no series number, and when
//     both sides carry disjoint series numbers;
//   - DLC-looking names are penalized;
//   - when the query carries a non-year number, prefix matches get a bonus
//     so "Postal 4" still beats the subtitle noise of "POSTAL 4: No Regerts";
//   - a year hint rewards close years and punishes distant or missing ones;
//   - an exact token match always scores 100 regardless of year adjustments.
func PickBest(query string, yearHint int, cands []Candidate) (*Candidate, int) {
	if len(cands) == 0 {
		return nil, -1
	}

	qTokens := textmatch.TokenSet(query)
	qSeries := textmatch.SeriesNumbers(query)
	qNorm := textmatch.Normalize(query)
	qHasNonYearNumber := false
	for t := range qTokens {
		if isDigits(t) && !textmatch.IsYearToken(t) {
			qHasNonYearNumber = true
			break
		}
	}

	scored := make([]scoredCandidate, 0, len(cands))
	for _, c := range cands {
		raw := textmatch.Score(query, c.Name)

		cTokens := textmatch.TokenSet(c.Name)
		cSeries := textmatch.SeriesNumbers(c.Name)
		cNorm := textmatch.Normalize(c.Name)

		seriesPenalty := 0
		if len(qSeries) == 0 && len(cSeries) > 0 {
			seriesPenalty += 15
		}
		if len(qSeries) > 0 && len(cSeries) > 0 && disjointInts(qSeries, cSeries) {
			seriesPenalty += 20
		}
		dlcPenalty := 0
		if textmatch.LooksDLCLike(c.Name) {
			dlcPenalty = 20
		}

		nonYearDif, yearDif := symmetricDiff(qTokens, cTokens)

		adjusted := raw - seriesPenalty - dlcPenalty
		if adjusted < 0 {
			adjusted = 0
		}
		if qHasNonYearNumber && qNorm != "" && strings.HasPrefix(cNorm, qNorm) {
			adjusted += 25
		}

		yearDelta := noYearDelta
		if yearHint > 0 {
			if c.Year == 0 {
				// Prefer candidates that expose a year at all; missing
				// dates often mean upcoming or placeholder entries.
				adjusted -= 8
			} else {
				yearDelta = absInt(c.Year - yearHint)
				switch {
				case yearDelta == 0:
					adjusted += 10
				case yearDelta <= 1:
					adjusted += 6
				case yearDelta <= 2:
					adjusted += 3
				case yearDelta >= 15:
					adjusted -= 14
				case yearDelta >= 10:
					adjusted -= 10
				case yearDelta >= 5:
					adjusted -= 6
				}
			}
		}
		if adjusted < 0 {
			adjusted = 0
		}
		if adjusted > 100 {
			adjusted = 100
		}

		exact := raw >= 100 && nonYearDif == 0 && yearDif == 0 && seriesPenalty == 0 && dlcPenalty == 0
		if exact {
			adjusted = 100
		}

		idNum := int64(1) << 60
		if n, err := strconv.ParseInt(c.ID, 10, 64); err == nil {
			idNum = n
		}

		scored = append(scored, scoredCandidate{
			cand:       c,
			raw:        raw,
			adjusted:   adjusted,
			exactMatch: exact,
			dlcLike:    dlcPenalty > 0,
			nonYearDif: nonYearDif,
			yearDif:    yearDif,
			yearDelta:  yearDelta,
			idNum:      idNum,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.adjusted != b.adjusted {
			return a.adjusted > b.adjusted
		}
		if a.raw != b.raw {
			return a.raw > b.raw
		}
		if a.exactMatch != b.exactMatch {
			return a.exactMatch
		}
		if a.yearDelta != b.yearDelta {
			return a.yearDelta < b.yearDelta
		}
		if a.dlcLike != b.dlcLike {
			return !a.dlcLike
		}
		if a.nonYearDif != b.nonYearDif {
			return a.nonYearDif < b.nonYearDif
		}
		if a.yearDif != b.yearDif {
			return a.yearDif < b.yearDif
		}
		if len(a.cand.Name) != len(b.cand.Name) {
			return len(a.cand.Name) < len(b.cand.Name)
		}
		return a.idNum < b.idNum
	})

	best := scored[0]
	return &best.cand, best.adjusted
}

func symmetricDiff(a, b map[string]bool) (nonYear, year int) {
	count := func(x, y map[string]bool) {
		for t := range x {
			if !y[t] {
				if textmatch.IsYearToken(t) {
					year++
				} else {
					nonYear++
				}
			}
		}
	}
	count(a, b)
	count(b, a)
	return nonYear, year
}

func disjointInts(a, b map[int]bool) bool {
	for n := range a {
		if b[n] {
			return false
		}
	}
	return true
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
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
