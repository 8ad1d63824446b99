package consensus

import (
	"sort"

	"github.com/gamelog/catalog-cli/internal/company"
	"github.com/gamelog/catalog-cli/internal/tag"
)

// CompanyResult is the conservative developer/publisher consensus: a
// strict-majority overlap component together with the keys every member of
// that component shares. Both are empty when either condition fails, so no
// false disagreement is reported for sources that list a superset of
// collaborators.
type CompanyResult struct {
	Majority     []string
	Intersection []string
}

// Companies unions sources whose company-key sets overlap, then requires
// both a strict-majority component and a non-empty intersection across it.
func Companies(sets map[string]map[string]bool, minSources int) CompanyResult {
	cleaned := make(map[string]map[string]bool, len(sets))
	for s, set := range sets {
		c := make(map[string]bool)
		for k := range set {
			if k != "" && !company.LowSignalKeys[k] {
				c[k] = true
			}
		}
		cleaned[s] = c
	}

	var present []string
	for s, set := range cleaned {
		if len(set) > 0 {
			present = append(present, s)
		}
	}
	sort.Strings(present)
	if len(present) < minSources {
		return CompanyResult{}
	}

	uf := newUnionFind(present)
	for i, a := range present {
		for _, b := range present[i+1:] {
			if !disjoint(cleaned[a], cleaned[b]) {
				uf.union(a, b)
			}
		}
	}

	best := uf.groups()[0]
	if 2*len(best) <= len(present) {
		return CompanyResult{}
	}

	inter := cleaned[best[0]]
	for _, s := range best[1:] {
		inter = intersect(inter, cleaned[s])
	}
	if len(inter) == 0 {
		return CompanyResult{}
	}

	keys := make([]string, 0, len(inter))
	for k := range inter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return CompanyResult{Majority: best, Intersection: keys}
}

// CompanyTags surfaces developer/publisher disagreement for one field.
// For a clear 2-source split it emits <kind>_disagree; with three or more
// sources it additionally requires the Companies majority before naming
// outliers, to avoid noisy regional publisher splits.
func CompanyTags(sets map[string]map[string]bool, kind string, minSources int) []tag.Tag {
	cleaned := make(map[string]map[string]bool, len(sets))
	var present []string
	for s, set := range sets {
		c := make(map[string]bool)
		for k := range set {
			if k != "" && !company.LowSignalKeys[k] {
				c[k] = true
			}
		}
		cleaned[s] = c
		if len(c) > 0 {
			present = append(present, s)
		}
	}
	sort.Strings(present)
	if len(present) < minSources {
		return nil
	}

	uf := newUnionFind(present)
	for i, a := range present {
		for _, b := range present[i+1:] {
			if !disjoint(cleaned[a], cleaned[b]) {
				uf.union(a, b)
			}
		}
	}
	if len(uf.groups()) <= 1 {
		return nil
	}

	res := Companies(sets, minSources)
	hasMajority := len(res.Majority) > 0
	if len(present) >= 3 && !hasMajority {
		return nil
	}

	disagreeKind := tag.KindDeveloperDisagree
	outlierKind := tag.KindDeveloperOutlier
	if kind == "publisher" {
		disagreeKind = tag.KindPublisherDisagree
		outlierKind = tag.KindPublisherOutlier
	}

	out := []tag.Tag{{Kind: disagreeKind}}
	if hasMajority {
		for _, s := range present {
			if !containsString(res.Majority, s) {
				out = append(out, tag.Tag{Kind: outlierKind, Source: s})
			}
		}
	}
	return out
}

func intersect(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}
