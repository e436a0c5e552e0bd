package campaign

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Summary describes a finished campaign. It is written as JSON next to the
// findings file so a run can be audited without replaying it.
type Summary struct {
	CampaignID    string         `json:"campaign_id"`
	StartedAt     time.Time      `json:"started_at_utc"`
	FinishedAt    time.Time      `json:"finished_at_utc"`
	Inputs        int            `json:"inputs"`
	SeedsPerInput int            `json:"seeds_per_input"`
	BaseSeed      uint64         `json:"base_seed"`
	CorpusDigest  string         `json:"corpus_xxhash64"`
	Sessions      int            `json:"sessions"`
	Tokens        int64          `json:"tokens"`
	Outcomes      map[string]int `json:"outcomes"`
	Violations    int            `json:"violations"`
	Truncated     bool           `json:"truncated"`

	// Findings is kept in memory only; the findings file is the durable
	// record.
	Findings []Finding `json:"-"`
}

// Passed reports whether the campaign found no violations.
func (s *Summary) Passed() bool {
	return s.Violations == 0
}

// WriteSummary writes s to path as indented JSON.
func WriteSummary(path string, s *Summary) error {
	if s == nil {
		return fmt.Errorf("summary is nil")
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write summary file: %w", err)
	}
	return nil
}

// LoadSummary reads a summary written by WriteSummary.
func LoadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path) //nolint:gosec // summary path is explicit operator input.
	if err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &s, nil
}
