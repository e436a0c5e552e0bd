package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lattice-substrate/json-tokfuzz/campaign"
	"github.com/lattice-substrate/json-tokfuzz/tokerr"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func TestRunUsage(t *testing.T) {
	res := runCLI(t, "")
	if res.code != exitInvalid {
		t.Fatalf("expected exit %d, got %d", exitInvalid, res.code)
	}
	if !strings.Contains(res.stdout, "campaign") {
		t.Fatalf("expected help listing commands, got %q", res.stdout)
	}

	res = runCLI(t, "", "frobnicate")
	if res.code != exitInvalid || !strings.Contains(res.stderr, "unknown command: frobnicate") {
		t.Fatalf("unexpected result %+v", res)
	}

	res = runCLI(t, "", "--help")
	if res.code != exitSuccess {
		t.Fatalf("expected exit 0 for --help, got %d", res.code)
	}
}

func TestCheck(t *testing.T) {
	res := runCLI(t, `{"a":[1,2,3]}`, "check")
	if res.code != exitSuccess {
		t.Fatalf("expected exit 0, got %d stderr=%q", res.code, res.stderr)
	}
	if !strings.HasPrefix(res.stdout, "ok - (") {
		t.Fatalf("unexpected stdout %q", res.stdout)
	}

	res = runCLI(t, `[1,`, "check", "--seed", "12345")
	if res.code != exitInvalid {
		t.Fatalf("expected exit %d, got %d", exitInvalid, res.code)
	}
	if !strings.Contains(res.stderr, "rejected -") {
		t.Fatalf("unexpected stderr %q", res.stderr)
	}

	res = runCLI(t, `null`, "check", "--quirks", "--quiet", "--seed", "0")
	if res.code != exitSuccess {
		t.Fatalf("expected exit 0, got %d", res.code)
	}
	if res.stdout != "-: tok_limit=1 src_limit=1 quirks=[]\n" {
		t.Fatalf("unexpected stdout %q", res.stdout)
	}
}

func TestCheckFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(good, []byte(`[true]`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte(`[tru]`), 0o600); err != nil {
		t.Fatal(err)
	}

	res := runCLI(t, "", "check", good, bad)
	if res.code != exitInvalid {
		t.Fatalf("expected exit %d, got %d", exitInvalid, res.code)
	}
	if !strings.Contains(res.stdout, "ok "+good) || !strings.Contains(res.stderr, "rejected "+bad) {
		t.Fatalf("unexpected result %+v", res)
	}

	res = runCLI(t, "", "check", filepath.Join(dir, "missing.json"))
	if res.code != exitInvalid || !strings.Contains(res.stderr, "reading input") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestTokens(t *testing.T) {
	res := runCLI(t, `{"a":1}`, "tokens")
	if res.code != exitSuccess {
		t.Fatalf("expected exit 0, got %d stderr=%q", res.code, res.stderr)
	}
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	// { " a " : 1 }
	if len(lines) != 7 {
		t.Fatalf("expected 7 tokens, got %d:\n%s", len(lines), res.stdout)
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[0]), "0 ") || !strings.HasSuffix(lines[0], `"{"`) {
		t.Fatalf("unexpected first line %q", lines[0])
	}

	res = runCLI(t, `NaN`, "tokens")
	if res.code != exitInvalid {
		t.Fatalf("expected exit %d without quirk, got %d", exitInvalid, res.code)
	}
	res = runCLI(t, `NaN`, "tokens", "--quirk", "allow_inf_nan_numbers")
	if res.code != exitSuccess {
		t.Fatalf("expected exit 0 with quirk, got %d stderr=%q", res.code, res.stderr)
	}

	res = runCLI(t, `1`, "tokens", "--quirk", "allow_everything")
	if res.code != exitInvalid || !strings.Contains(res.stderr, "unknown quirk") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestTokensWindowed(t *testing.T) {
	// Seed 0 selects one-byte windows, so 123 arrives in three fragments.
	res := runCLI(t, `123`, "tokens", "--seed", "0")
	if res.code != exitSuccess {
		t.Fatalf("expected exit 0, got %d stderr=%q", res.code, res.stderr)
	}
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 fragments, got %d:\n%s", len(lines), res.stdout)
	}
	if !strings.Contains(lines[0], " c ") && !strings.Contains(lines[0], " c  ") {
		t.Fatalf("expected continued flag on first fragment: %q", lines[0])
	}

	res = runCLI(t, `1`, "tokens", "--seed", "0", "--quirk", "allow_extra_comma")
	if res.code != exitInvalid {
		t.Fatalf("expected exit %d, got %d", exitInvalid, res.code)
	}
}

func TestCampaignAndReport(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "corpus")
	if err := os.MkdirAll(corpus, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, body := range map[string]string{
		"obj.json": `{"k":[1,2.5,"x\u0041"]}`,
		"bad.json": `{"k":`,
	} {
		if err := os.WriteFile(filepath.Join(corpus, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	cfgPath := filepath.Join(dir, "campaign.yaml")
	cfg := fmt.Sprintf("corpus: [%q]\nseeds_per_input: 8\nworkers: 2\nlog_level: warn\n", corpus)
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	findings := filepath.Join(dir, "findings.msgpack")
	summary := filepath.Join(dir, "summary.json")

	res := runCLI(t, "", "campaign", "--config", cfgPath, "--workers", "3", "--findings", findings, "--summary", summary)
	if res.code != exitSuccess {
		t.Fatalf("expected exit 0, got %d stdout=%q stderr=%q", res.code, res.stdout, res.stderr)
	}
	if !strings.Contains(res.stdout, "PASS: 2 inputs, 16 sessions") {
		t.Fatalf("unexpected stdout %q", res.stdout)
	}

	sum, err := campaign.LoadSummary(summary)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Sessions != 16 || sum.CampaignID == "" {
		t.Fatalf("unexpected summary %+v", sum)
	}

	res = runCLI(t, "", "report", "--findings", findings, "--summary", summary)
	if res.code != exitSuccess {
		t.Fatalf("expected exit 0, got %d stderr=%q", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, "OUTCOME") || !strings.Contains(res.stdout, "no findings") {
		t.Fatalf("unexpected stdout %q", res.stdout)
	}
}

func TestCampaignErrors(t *testing.T) {
	res := runCLI(t, "", "campaign")
	if res.code != exitInvalid {
		t.Fatalf("expected exit %d for missing --config, got %d", exitInvalid, res.code)
	}

	res = runCLI(t, "", "campaign", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	if res.code != exitInvalid || !strings.Contains(res.stderr, "config file not found") {
		t.Fatalf("unexpected result %+v", res)
	}

	res = runCLI(t, "", "report", "--findings", filepath.Join(t.TempDir(), "none"))
	if res.code != exitInvalid {
		t.Fatalf("expected exit %d, got %d", exitInvalid, res.code)
	}
}

func TestExitCodeForClassifiedError(t *testing.T) {
	var stderr bytes.Buffer
	err := fmt.Errorf("outer: %w", tokerr.Violation("ti != ri"))
	if code := exitCodeFor(&stderr, err); code != tokerr.ProtocolViolation.ExitCode() {
		t.Fatalf("expected exit %d, got %d", tokerr.ProtocolViolation.ExitCode(), code)
	}
	if code := exitCodeFor(&stderr, classified(tokerr.New(tokerr.InternalIO, -1, "disk"))); code != exitInternal {
		t.Fatalf("expected exit %d, got %d", exitInternal, code)
	}
	if code := exitCodeFor(&stderr, fmt.Errorf("flag provided but not defined: -x")); code != exitInvalid {
		t.Fatalf("expected exit %d, got %d", exitInvalid, code)
	}
}
