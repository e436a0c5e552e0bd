package campaign_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/json-tokfuzz/campaign"
	"github.com/lattice-substrate/json-tokfuzz/tokerr"
)

func TestFindingsRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	input := []byte(`[1,2]`)
	f1 := campaign.NewFinding("a.json", 0xDEADBEEF, input, tokerr.Violation("ti != ri"), now)
	f2 := campaign.NewFinding("b.json", 1, []byte(`{}`), errors.New("plain"), now)
	input[0] = 'X'

	assert.Equal(t, "[1,2]", string(f1.Input))
	assert.Equal(t, string(tokerr.ProtocolViolation), f1.Class)
	assert.Equal(t, string(tokerr.InternalError), f2.Class)
	assert.NotEqual(t, f1.ID, f2.ID)

	var buf bytes.Buffer
	fw := campaign.NewFindingWriter(&buf)
	require.NoError(t, fw.Write(f1))
	require.NoError(t, fw.Write(f2))
	assert.Equal(t, 2, fw.Count())
	require.NoError(t, fw.Close())

	got, err := campaign.ReadFindings(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, f1.ID, got[0].ID)
	assert.Equal(t, f1.Seed, got[0].Seed)
	assert.Equal(t, f1.Input, got[0].Input)
	assert.Equal(t, f1.Message, got[0].Message)
	assert.True(t, now.Equal(got[0].FoundAt))
	assert.Equal(t, "b.json", got[1].Path)
}

func TestFindingsFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "findings.msgpack")
	fw, err := campaign.CreateFindings(p)
	require.NoError(t, err)
	require.NoError(t, fw.Close())

	got, err := campaign.LoadFindings(p)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = campaign.LoadFindings(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestReadFindingsTruncated(t *testing.T) {
	var buf bytes.Buffer
	fw := campaign.NewFindingWriter(&buf)
	require.NoError(t, fw.Write(campaign.NewFinding("a", 1, []byte("x"), tokerr.Violation("v"), time.Now())))
	data := buf.Bytes()[:buf.Len()-3]

	got, err := campaign.ReadFindings(bytes.NewReader(data))
	require.Error(t, err)
	assert.Empty(t, got)
}
