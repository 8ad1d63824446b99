// Package tiers maintains the curated production-tier table: a YAML map of
// publisher and developer names to a coarse AAA/AA/Indie label. Lookups key
// on the normalized company form so label variants in the file still match.
package tiers

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/gamelog/catalog-cli/internal/company"
)

// Tier is a coarse production-scale label.
type Tier string

const (
	TierIndie Tier = "Indie"
	TierAA    Tier = "AA"
	TierAAA   Tier = "AAA"
)

var tierRank = map[Tier]int{TierIndie: 1, TierAA: 2, TierAAA: 3}

// Rank orders tiers for conflict resolution; unknown tiers rank 0.
func Rank(t Tier) int { return tierRank[t] }

type entry struct {
	label string
	tier  Tier
}

// Table is a loaded tier file, indexed by company key.
type Table struct {
	publishers map[string]entry
	developers map[string]entry
}

// tierValue accepts both file shapes: a bare tier string, or a mapping with
// a tier field plus curation metadata (count, examples).
type tierValue struct {
	tier Tier
}

func (v *tierValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		v.tier = Tier(strings.TrimSpace(node.Value))
	case yaml.MappingNode:
		var m struct {
			Tier string `yaml:"tier"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		v.tier = Tier(strings.TrimSpace(m.Tier))
	}
	return nil
}

type tierFile struct {
	Publishers map[string]tierValue `yaml:"publishers"`
	Developers map[string]tierValue `yaml:"developers"`
}

// Load reads a tier YAML file. A missing file yields an empty table.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Table{publishers: map[string]entry{}, developers: map[string]entry{}}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "tiers: read %s", path)
	}
	var f tierFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrapf(err, "tiers: parse %s", path)
	}
	return &Table{
		publishers: indexSection(f.Publishers),
		developers: indexSection(f.Developers),
	}, nil
}

func indexSection(section map[string]tierValue) map[string]entry {
	out := make(map[string]entry, len(section))
	for label, v := range section {
		if tierRank[v.tier] == 0 {
			continue
		}
		// Index every key variant so "Devolver" still finds "Devolver
		// Digital". Same-key variants keep the higher tier.
		for key := range company.Keys(label) {
			if prev, ok := out[key]; ok && Rank(prev.tier) >= Rank(v.tier) {
				continue
			}
			out[key] = entry{label: label, tier: v.tier}
		}
	}
	return out
}

func lookup(index map[string]entry, name string) (Tier, bool) {
	for key := range company.Keys(name) {
		if e, ok := index[key]; ok {
			return e.tier, true
		}
	}
	return "", false
}

// Publisher looks up the tier for a publisher name.
func (t *Table) Publisher(name string) (Tier, bool) {
	return lookup(t.publishers, name)
}

// Developer looks up the tier for a developer name.
func (t *Table) Developer(name string) (Tier, bool) {
	return lookup(t.developers, name)
}

// Len reports how many base entries each section carries.
func (t *Table) Len() (publishers, developers int) {
	seenP, seenD := map[string]bool{}, map[string]bool{}
	for _, e := range t.publishers {
		seenP[e.label] = true
	}
	for _, e := range t.developers {
		seenD[e.label] = true
	}
	return len(seenP), len(seenD)
}

// NormalizeResult summarizes a normalize pass over a tier file.
type NormalizeResult struct {
	PublishersIn  int
	DevelopersIn  int
	PublishersOut int
	DevelopersOut int
	Merged        int
	Conflicts     int
}

// Normalize deduplicates a tier file by company key and rewrites it in a
// canonical form: one readable label per key, the higher tier on conflict,
// sections sorted case-insensitively. Matching never depends on the label
// spelling, so this is purely for file hygiene.
func Normalize(inPath, outPath string) (NormalizeResult, error) {
	raw, err := os.ReadFile(inPath)
	if err != nil {
		return NormalizeResult{}, eris.Wrapf(err, "tiers: read %s", inPath)
	}
	var f tierFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return NormalizeResult{}, eris.Wrapf(err, "tiers: parse %s", inPath)
	}

	res := NormalizeResult{
		PublishersIn: len(f.Publishers),
		DevelopersIn: len(f.Developers),
	}
	pubs, mergedP, conflictsP := normalizeSection(f.Publishers)
	devs, mergedD, conflictsD := normalizeSection(f.Developers)
	res.PublishersOut = len(pubs)
	res.DevelopersOut = len(devs)
	res.Merged = mergedP + mergedD
	res.Conflicts = conflictsP + conflictsD

	out, err := marshalSections(pubs, devs)
	if err != nil {
		return res, err
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return res, eris.Wrapf(err, "tiers: write %s", outPath)
	}
	return res, nil
}

func normalizeSection(section map[string]tierValue) (map[string]Tier, int, int) {
	type variant struct {
		label string
		tier  Tier
	}
	byKey := make(map[string][]variant)
	for label, v := range section {
		if tierRank[v.tier] == 0 {
			continue
		}
		key := company.Key(label)
		if key == "" {
			continue
		}
		byKey[key] = append(byKey[key], variant{label: label, tier: v.tier})
	}

	merged, conflicts := 0, 0
	out := make(map[string]Tier, len(byKey))
	for _, variants := range byKey {
		labels := make([]string, 0, len(variants))
		best := variants[0].tier
		tiersSeen := map[Tier]bool{}
		for _, v := range variants {
			labels = append(labels, v.label)
			tiersSeen[v.tier] = true
			if Rank(v.tier) > Rank(best) {
				best = v.tier
			}
		}
		if len(uniqueStrings(labels)) > 1 {
			merged++
		}
		if len(tiersSeen) > 1 {
			conflicts++
		}
		out[canonicalLabel(labels)] = best
	}
	return out, merged, conflicts
}

// canonicalLabel picks the most readable variant among labels sharing a
// company key: not shouting-case, spaces over hyphens, longer over clipped.
func canonicalLabel(labels []string) string {
	score := func(label string) (int, int, string) {
		s := company.Normalize(label)
		penalty := 0
		if s == "" {
			penalty += 100
		}
		if s != "" && s == strings.ToUpper(s) {
			penalty += 20
		}
		if s != "" && s == strings.ToLower(s) {
			penalty += 5
		}
		if strings.Contains(s, "-") {
			penalty += 2
		}
		return penalty, -len(s), strings.ToLower(s)
	}
	best := labels[0]
	bp, bl, bs := score(best)
	for _, label := range labels[1:] {
		p, l, s := score(label)
		if p < bp || (p == bp && (l < bl || (l == bl && s < bs))) {
			best, bp, bl, bs = label, p, l, s
		}
	}
	return best
}

func marshalSections(pubs, devs map[string]Tier) ([]byte, error) {
	doc := yaml.Node{Kind: yaml.MappingNode}
	for _, section := range []struct {
		name    string
		entries map[string]Tier
	}{
		{"publishers", pubs},
		{"developers", devs},
	} {
		labels := make([]string, 0, len(section.entries))
		for label := range section.entries {
			labels = append(labels, label)
		}
		sort.Slice(labels, func(i, j int) bool {
			return strings.ToLower(labels[i]) < strings.ToLower(labels[j])
		})

		body := yaml.Node{Kind: yaml.MappingNode}
		for _, label := range labels {
			body.Content = append(body.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: label},
				&yaml.Node{Kind: yaml.ScalarNode, Value: string(section.entries[label])},
			)
		}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: section.name},
			&body,
		)
	}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, eris.Wrap(err, "tiers: marshal")
	}
	return out, nil
}

func uniqueStrings(in []string) []string {
	seen := map[string]bool{}
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
