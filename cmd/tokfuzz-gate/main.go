// Command tokfuzz-gate runs the repository's release gates in order: vet,
// unit and race tests, the conformance suite, then a short fuzz smoke of
// the conformance driver and the tokenizer.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

const defaultFuzzTime = 15 * time.Second

type gateStep struct {
	label string
	args  []string
	fuzz  bool
}

type commandRunner interface {
	Run(ctx context.Context, name string, args []string, stdout io.Writer, stderr io.Writer) error
}

type realRunner struct{}

func gateSteps(fuzzTime time.Duration) []gateStep {
	ft := "-fuzztime=" + fuzzTime.String()
	return []gateStep{
		{label: "go vet", args: []string{"vet", "./..."}},
		{label: "unit tests", args: []string{"test", "./...", "-count=1", "-timeout=20m"}},
		{label: "race tests", args: []string{"test", "./...", "-race", "-count=1", "-timeout=25m"}},
		{label: "conformance", args: []string{"test", "./conformance", "-count=1", "-timeout=10m", "-v"}},
		{label: "fuzz driver", args: []string{"test", "./conform", "-run=^$", "-fuzz=^FuzzComplex$", ft}, fuzz: true},
		{label: "fuzz tokenizer", args: []string{"test", "./tokjson", "-run=^$", "-fuzz=^FuzzDecodeWindows$", ft}, fuzz: true},
	}
}

type options struct {
	fuzzTime time.Duration
	skipFuzz bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, realRunner{}))
}

func parseArgs(args []string) (options, bool, error) {
	opts := options{fuzzTime: defaultFuzzTime}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--help", "-h":
			return opts, true, nil
		case "--skip-fuzz":
			opts.skipFuzz = true
		case "--fuzztime":
			if i+1 >= len(args) {
				return opts, false, fmt.Errorf("--fuzztime needs a duration")
			}
			i++
			d, err := time.ParseDuration(args[i])
			if err != nil || d <= 0 {
				return opts, false, fmt.Errorf("invalid --fuzztime %q", args[i])
			}
			opts.fuzzTime = d
		default:
			return opts, false, fmt.Errorf("unknown argument %q", args[i])
		}
	}
	return opts, false, nil
}

func run(args []string, stdout, stderr io.Writer, runner commandRunner) int {
	opts, help, err := parseArgs(args)
	if err != nil {
		if err := writef(stderr, "error: %v\n", err); err != nil {
			return 1
		}
		if err := writeUsage(stderr); err != nil {
			return 1
		}
		return 2
	}
	if help {
		if err := writeUsage(stdout); err != nil {
			return 1
		}
		return 0
	}

	var steps []gateStep
	for _, step := range gateSteps(opts.fuzzTime) {
		if step.fuzz && opts.skipFuzz {
			continue
		}
		steps = append(steps, step)
	}

	ctx := context.Background()
	for i, step := range steps {
		if err := writef(stdout, "[%d/%d] %s\n", i+1, len(steps), step.label); err != nil {
			return 1
		}
		if err := runner.Run(ctx, "go", step.args, stdout, stderr); err != nil {
			_ = writef(stderr, "gate failed: %s: %v\n", step.label, err)
			return 1
		}
	}

	if err := writeLine(stdout, "all gates passed"); err != nil {
		return 1
	}
	return 0
}

func (realRunner) Run(ctx context.Context, name string, args []string, stdout io.Writer, stderr io.Writer) error {
	// #nosec G204 -- command and args are fixed repository gate invocations.
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w", name, args, err)
	}
	return nil
}

func writeUsage(w io.Writer) error {
	if err := writeLine(w, "usage: go run ./cmd/tokfuzz-gate [--help] [--skip-fuzz] [--fuzztime 15s]"); err != nil {
		return err
	}
	return writeLine(w, "runs: vet, tests, race, conformance, fuzz smoke of conform and tokjson")
}

func writeLine(w io.Writer, msg string) error {
	return writef(w, "%s\n", msg)
}

func writef(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("write stream: %w", err)
	}
	return nil
}
