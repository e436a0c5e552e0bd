package campaign_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/json-tokfuzz/campaign"
)

func TestLoadCorpus(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "b/a.json", `[1]`)
	writeFile(t, dir, "b/c/d.json", `{}`)
	top := writeFile(t, dir, "top.json", `null`)

	inputs, err := campaign.LoadCorpus([]string{top, filepath.Join(dir, "b"), a}, 1024)
	require.NoError(t, err)
	require.Len(t, inputs, 3)
	assert.Equal(t, a, inputs[0].Path)
	assert.Equal(t, []byte(`[1]`), inputs[0].Data)
	assert.Equal(t, filepath.Join(dir, "b", "c", "d.json"), inputs[1].Path)
	assert.Equal(t, top, inputs[2].Path)
}

func TestLoadCorpusErrors(t *testing.T) {
	dir := t.TempDir()
	big := writeFile(t, dir, "big.json", `[1,2,3,4,5]`)

	_, err := campaign.LoadCorpus([]string{big}, 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "over the 4 byte limit")

	_, err = campaign.LoadCorpus([]string{filepath.Join(dir, "nope")}, 1024)
	require.Error(t, err)

	_, err = campaign.LoadCorpus([]string{t.TempDir()}, 1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corpus is empty")
}

func TestSeedsFor(t *testing.T) {
	data := []byte(`{"a":1}`)
	s1 := campaign.SeedsFor(data, 7, 16)
	require.Len(t, s1, 16)
	assert.Equal(t, s1, campaign.SeedsFor(data, 7, 16))
	assert.Equal(t, s1[:4], campaign.SeedsFor(data, 7, 4))

	seen := make(map[uint64]bool)
	for _, s := range s1 {
		assert.False(t, seen[s], "duplicate seed %#x", s)
		seen[s] = true
	}

	other := campaign.SeedsFor(data, 8, 16)
	assert.NotEqual(t, s1[0], other[0])
	assert.NotEqual(t, s1[0], campaign.SeedsFor([]byte(`{"a":2}`), 7, 1)[0])
	assert.Empty(t, campaign.SeedsFor(data, 7, 0))
}
