package tiers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeTierFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScalarAndMappingShapes(t *testing.T) {
	path := writeTierFile(t, `
publishers:
  Valve: AAA
  Devolver Digital:
    tier: Indie
    count: 42
    examples: [Hotline Miami, Enter the Gungeon]
developers:
  "Eidos Montréal": AAA
`)

	table, err := Load(path)
	require.NoError(t, err)

	tier, ok := table.Publisher("Valve Corporation")
	require.True(t, ok)
	assert.Equal(t, TierAAA, tier)

	tier, ok = table.Publisher("Devolver")
	require.True(t, ok, "generic suffix variants match via the company key")
	assert.Equal(t, TierIndie, tier)

	tier, ok = table.Developer("Eidos-Montreal")
	require.True(t, ok, "accent and hyphen variants match")
	assert.Equal(t, TierAAA, tier)
}

func TestLoadIgnoresInvalidTiers(t *testing.T) {
	path := writeTierFile(t, `
publishers:
  Valve: AAA
  Mystery Corp: S-Tier
  "2015": AA
`)

	table, err := Load(path)
	require.NoError(t, err)
	pubs, _ := table.Len()
	assert.Equal(t, 1, pubs)

	_, ok := table.Publisher("Mystery Corp")
	assert.False(t, ok)
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	table, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	pubs, devs := table.Len()
	assert.Zero(t, pubs)
	assert.Zero(t, devs)
}

func TestNormalizeMergesVariants(t *testing.T) {
	path := writeTierFile(t, `
publishers:
  "Eidos Montréal": AA
  "Eidos-Montreal": AAA
  Valve: AAA
developers:
  "KOJIMA PRODUCTIONS": AAA
`)

	res, err := Normalize(path, path)
	require.NoError(t, err)
	assert.Equal(t, 3, res.PublishersIn)
	assert.Equal(t, 2, res.PublishersOut)
	assert.Equal(t, 1, res.Merged)
	assert.Equal(t, 1, res.Conflicts, "AA vs AAA for the same key")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var f struct {
		Publishers map[string]string `yaml:"publishers"`
	}
	require.NoError(t, yaml.Unmarshal(raw, &f))
	assert.Equal(t, "AAA", f.Publishers["Eidos Montréal"], "higher tier wins; space variant is the canonical label")
	assert.NotContains(t, f.Publishers, "Eidos-Montreal")

	table, err := Load(path)
	require.NoError(t, err)
	tier, ok := table.Developer("Kojima Productions")
	require.True(t, ok)
	assert.Equal(t, TierAAA, tier)
}

func TestNormalizeSortsSections(t *testing.T) {
	path := writeTierFile(t, `
publishers:
  Ubisoft: AAA
  Annapurna Interactive: Indie
  microsoft: AAA
`)

	_, err := Normalize(path, path)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	require.Len(t, doc.Content, 1)
	root := doc.Content[0]
	require.Equal(t, "publishers", root.Content[0].Value)
	pubs := root.Content[1]
	var order []string
	for i := 0; i < len(pubs.Content); i += 2 {
		order = append(order, pubs.Content[i].Value)
	}
	assert.Equal(t, []string{"Annapurna Interactive", "microsoft", "Ubisoft"}, order)
}
