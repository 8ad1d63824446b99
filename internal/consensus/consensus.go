// Package consensus decides, from possibly-conflicting per-source
// observations of one catalog row, which sources agree with each other,
// which form the largest agreeing group, and which are outliers.
package consensus

import (
	"sort"
	"strings"

	"github.com/gamelog/catalog-cli/internal/tag"
	"github.com/gamelog/catalog-cli/internal/textmatch"
)

// Config carries every threshold the engine uses. Constructed once and
// passed in explicitly; there is no package-level tuning state.
type Config struct {
	TitleScoreThreshold int
	YearTolerance       int
	// IgnoreYearSources are excluded from year agreement checks and year
	// consensus voting (their year reflects re-releases), though they can
	// still be flagged as outliers against the consensus.
	IgnoreYearSources   map[string]bool
	MinSources          int
	YearMaxDiff         int
	AmbiguousYearSpread int
	CompanyMinSources   int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		TitleScoreThreshold: 90,
		YearTolerance:       1,
		IgnoreYearSources:   map[string]bool{"steam": true},
		MinSources:          2,
		YearMaxDiff:         1,
		AmbiguousYearSpread: 5,
		CompanyMinSources:   2,
	}
}

// Result describes identity-level agreement for one row.
type Result struct {
	Present     []string // sources with a non-empty observation, sorted
	Majority    []string // largest mutually-agreeing group, only when HasMajority
	Outliers    []string // Present minus Majority, only when HasMajority
	HasMajority bool
}

// Tags renders the result into review tags.
func (r *Result) Tags() []tag.Tag {
	if len(r.Present) == 0 {
		return nil
	}
	if !r.HasMajority {
		return []tag.Tag{{Kind: tag.KindProviderNoConsensus}}
	}
	var out []tag.Tag
	if len(r.Majority) > 0 {
		out = append(out, tag.ProviderConsensus(r.Majority))
	}
	for _, s := range r.Outliers {
		out = append(out, tag.ProviderOutlier(s))
	}
	return out
}

// ValueResult describes scalar-level agreement (e.g. a release year).
type ValueResult struct {
	Present     []string
	Value       int
	HasMajority bool
}

// unionFind is the tiny disjoint-set used for agreement grouping.
type unionFind map[string]string

func newUnionFind(items []string) unionFind {
	uf := make(unionFind, len(items))
	for _, it := range items {
		uf[it] = it
	}
	return uf
}

func (uf unionFind) find(x string) string {
	for uf[x] != x {
		uf[x] = uf[uf[x]]
		x = uf[x]
	}
	return x
}

func (uf unionFind) union(a, b string) {
	ra, rb := uf.find(a), uf.find(b)
	if ra != rb {
		uf[rb] = ra
	}
}

// groups returns the components, largest first; ties broken by the
// lexicographically smallest joined member key for determinism.
func (uf unionFind) groups() [][]string {
	byRoot := make(map[string][]string)
	for item := range uf {
		root := uf.find(item)
		byRoot[root] = append(byRoot[root], item)
	}
	out := make([][]string, 0, len(byRoot))
	for _, members := range byRoot {
		sort.Strings(members)
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return strings.Join(out[i], "+") < strings.Join(out[j], "+")
	})
	return out
}

// Titles computes identity consensus from per-source matched titles and
// (optionally) matched years. Two sources agree when their titles score at
// or above the threshold and, when both have years and neither is
// year-ignored, the years are within tolerance. Returns nil below the
// minimum quorum.
func Titles(titles map[string]string, years map[string]int, cfg Config) *Result {
	present := presentSources(titles)
	if len(present) < cfg.MinSources {
		return nil
	}

	uf := newUnionFind(present)
	for i, a := range present {
		for _, b := range present[i+1:] {
			if textmatch.Score(titles[a], titles[b]) < cfg.TitleScoreThreshold {
				continue
			}
			ya, okA := years[a]
			yb, okB := years[b]
			if okA && okB && !cfg.IgnoreYearSources[a] && !cfg.IgnoreYearSources[b] {
				if absInt(ya-yb) > cfg.YearTolerance {
					continue
				}
			}
			uf.union(a, b)
		}
	}

	groups := uf.groups()
	best := groups[0]
	hasMajority := 2*len(best) > len(present)
	res := &Result{Present: present, HasMajority: hasMajority}
	if hasMajority {
		res.Majority = best
		for _, s := range present {
			if !containsString(best, s) {
				res.Outliers = append(res.Outliers, s)
			}
		}
	}
	return res
}

// Years runs a plain strict-majority vote over integer years among
// non-ignored sources. Ties yield no majority. Returns nil below quorum.
func Years(years map[string]int, ignore map[string]bool, minSources int) *ValueResult {
	var present []string
	for s := range years {
		if !ignore[s] {
			present = append(present, s)
		}
	}
	sort.Strings(present)
	if len(present) < minSources {
		return nil
	}

	counts := make(map[int]int)
	for _, s := range present {
		counts[years[s]]++
	}
	bestYear, bestCount := 0, 0
	for y, c := range counts {
		if c > bestCount || (c == bestCount && y < bestYear) {
			bestYear, bestCount = y, c
		}
	}
	res := &ValueResult{Present: present, HasMajority: 2*bestCount > len(present)}
	if res.HasMajority {
		res.Value = bestYear
	}
	return res
}

// YearOutlierTags tags every source (ignored or not) whose year differs
// from the consensus year by more than YearMaxDiff, or emits a single
// year_no_consensus tag when at least two voting sources split without a
// majority.
func YearOutlierTags(years map[string]int, cfg Config) []tag.Tag {
	res := Years(years, cfg.IgnoreYearSources, 2)
	if res == nil {
		return nil
	}
	if !res.HasMajority {
		return []tag.Tag{{Kind: tag.KindYearNoConsensus}}
	}
	var sources []string
	for s := range years {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	var out []tag.Tag
	for _, s := range sources {
		if absInt(years[s]-res.Value) > cfg.YearMaxDiff {
			out = append(out, tag.YearOutlier(s))
		}
	}
	return out
}

// PlatformOutlierTags computes per-bucket majorities over platform sets:
// a bucket is in consensus when more than half of the sources with data
// include it. Sources whose set is disjoint from the consensus buckets are
// outliers; if no bucket reaches a majority the split itself is tagged.
func PlatformOutlierTags(platforms map[string]map[string]bool) []tag.Tag {
	var present []string
	for s, set := range platforms {
		if len(set) > 0 {
			present = append(present, s)
		}
	}
	if len(present) < 2 {
		return nil
	}
	sort.Strings(present)

	counts := make(map[string]int)
	for _, s := range present {
		for bucket := range platforms[s] {
			counts[bucket]++
		}
	}
	consensusBuckets := make(map[string]bool)
	for bucket, c := range counts {
		if 2*c > len(present) {
			consensusBuckets[bucket] = true
		}
	}
	if len(consensusBuckets) == 0 {
		return []tag.Tag{{Kind: tag.KindPlatformNoConsensus}}
	}

	var out []tag.Tag
	for _, s := range present {
		if disjoint(platforms[s], consensusBuckets) {
			out = append(out, tag.PlatformOutlier(s))
		}
	}
	return out
}

// ActionableMismatchTags distills the per-field outcomes into the two
// high-signal review tags: likely_wrong for a source that is both a title
// outlier and a year/platform outlier, and ambiguous_title_year for the
// same-name-different-edition case where titles agree but years split
// widely with no majority.
func ActionableMismatchTags(res *Result, years map[string]int, yearTags, platformTags []tag.Tag, cfg Config) []tag.Tag {
	if res == nil || !res.HasMajority {
		return nil
	}
	yearOutliers := sourceSet(yearTags, tag.KindYearOutlier)
	platformOutliers := sourceSet(platformTags, tag.KindPlatformOutlier)

	var out []tag.Tag
	for _, s := range res.Outliers {
		if yearOutliers[s] || platformOutliers[s] {
			out = append(out, tag.LikelyWrong(s))
		}
	}

	if len(res.Outliers) == 0 && len(res.Present) >= 2 {
		var presentYears []int
		for _, s := range res.Present {
			if y, ok := years[s]; ok {
				presentYears = append(presentYears, y)
			}
		}
		if spread, split := yearSpread(presentYears); split && spread >= cfg.AmbiguousYearSpread {
			counts := make(map[int]int)
			maxCount := 0
			for _, y := range presentYears {
				counts[y]++
				if counts[y] > maxCount {
					maxCount = counts[y]
				}
			}
			if 2*maxCount <= len(presentYears) {
				out = append(out, tag.Tag{Kind: tag.KindAmbiguousTitleYear})
			}
		}
	}
	return out
}

func yearSpread(years []int) (spread int, split bool) {
	if len(years) == 0 {
		return 0, false
	}
	minY, maxY := years[0], years[0]
	distinct := make(map[int]bool)
	for _, y := range years {
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
		distinct[y] = true
	}
	return maxY - minY, len(distinct) >= 2
}

func sourceSet(tags []tag.Tag, kind tag.Kind) map[string]bool {
	out := make(map[string]bool)
	for _, t := range tags {
		if t.Kind == kind {
			out[t.Source] = true
		}
	}
	return out
}

func presentSources(titles map[string]string) []string {
	var out []string
	for s, t := range titles {
		if strings.TrimSpace(t) != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func disjoint(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
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
