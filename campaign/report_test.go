package campaign_test

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/json-tokfuzz/campaign"
	"github.com/lattice-substrate/json-tokfuzz/tokerr"
)

func TestRenderSummary(t *testing.T) {
	s := &campaign.Summary{
		Inputs:     2,
		Sessions:   10,
		Tokens:     123,
		Outcomes:   map[string]int{"OK": 7, "INVALID_GRAMMAR": 3},
		Violations: 0,
	}
	var buf bytes.Buffer
	require.NoError(t, campaign.RenderSummary(&buf, s))
	out := buf.String()
	assert.Contains(t, out, "OUTCOME")
	assert.Contains(t, out, "INVALID_GRAMMAR")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("INVALID_GRAMMAR")), bytes.Index(buf.Bytes(), []byte("OK ")))
	assert.Contains(t, out, "PASS: 2 inputs, 10 sessions, 123 tokens, 0 violations\n")

	s.Violations = 1
	s.Truncated = true
	buf.Reset()
	require.NoError(t, campaign.RenderSummary(&buf, s))
	assert.Contains(t, buf.String(), "FAIL: 2 inputs, 10 sessions, 123 tokens, 1 violations (truncated)\n")
}

func TestRenderFindings(t *testing.T) {
	f := campaign.NewFinding("corpus/a.json", 0xAB, []byte(`[1]`), tokerr.Violation("ti != ri"), time.Now())
	var buf bytes.Buffer
	campaign.RenderFindings(&buf, []campaign.Finding{f})
	out := buf.String()
	assert.Contains(t, out, "SEED")
	assert.Contains(t, out, f.ID[:8])
	assert.NotContains(t, out, f.ID)
	assert.Contains(t, out, "corpus/a.json")
	assert.Contains(t, out, "0x00000000000000ab")
	assert.Contains(t, out, "ti != ri")
}

func TestSummaryFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "summary.json")
	in := &campaign.Summary{
		CampaignID: "c",
		Sessions:   4,
		Outcomes:   map[string]int{"OK": 4},
		StartedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, campaign.WriteSummary(p, in))
	out, err := campaign.LoadSummary(p)
	require.NoError(t, err)
	assert.Equal(t, in.CampaignID, out.CampaignID)
	assert.Equal(t, in.Outcomes, out.Outcomes)
	assert.True(t, in.StartedAt.Equal(out.StartedAt))

	assert.Error(t, campaign.WriteSummary(p, nil))
	_, err = campaign.LoadSummary(filepath.Join(t.TempDir(), "none.json"))
	assert.Error(t, err)
}
