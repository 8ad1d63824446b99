package textmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"DOOM™", "doom"},
		{"Grand Theft Auto: Vice City", "grand theft auto vice city"},
		{"Final Fantasy VII", "final fantasy 7"},
		{"Assassin's Creed II", "assassins creed 2"},
		{"S.T.A.L.K.E.R. - Shadow of Chernobyl", "s t a l k e r shadow of chernobyl"},
		{"  Half-Life 2  ", "half life 2"},
		{"Ori and the Blind Forest (Definitive Edition)", "ori and the blind forest definitive edition"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Normalize(c.in), "input %q", c.in)
	}
}

func TestExtractYearHint(t *testing.T) {
	assert.Equal(t, 2016, ExtractYearHint("Doom (2016)"))
	assert.Equal(t, 1998, ExtractYearHint("Half-Life 1998"))
	assert.Equal(t, 0, ExtractYearHint("Doom 3"))
	assert.Equal(t, 0, ExtractYearHint("X2345"))
	assert.Equal(t, 0, ExtractYearHint(""))
}

func TestSeriesNumbers(t *testing.T) {
	assert.Equal(t, map[int]bool{3: true}, SeriesNumbers("Doom 3"))
	assert.Empty(t, SeriesNumbers("Doom 2016"))
	assert.Empty(t, SeriesNumbers("007 Legends"))
	assert.Empty(t, SeriesNumbers("Warhammer 40,000"))
	assert.Equal(t, map[int]bool{2: true}, SeriesNumbers("Half-Life 2: Episode One"))
}

func TestLooksDLCLike(t *testing.T) {
	assert.True(t, LooksDLCLike("Doom Eternal Soundtrack"))
	assert.True(t, LooksDLCLike("Destiny 2 Season Pass"))
	assert.False(t, LooksDLCLike("Doom Eternal"))
}
