package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/lattice-substrate/json-tokfuzz/conform"
	"github.com/lattice-substrate/json-tokfuzz/tokerr"
)

var seedFlag = &cli.Uint64Flag{
	Name:    "seed",
	Aliases: []string{"s"},
	Usage:   "session hash; selects the driver, window sizes and quirks",
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Run one conformance session per input",
		ArgsUsage: "[file|-]...",
		Flags: []cli.Flag{
			seedFlag,
			&cli.BoolFlag{
				Name:  "quirks",
				Usage: "print the window sizes and quirks each session used",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "suppress per-input success lines",
			},
		},
		Action: checkAction,
	}
}

func checkAction(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		paths = []string{"-"}
	}
	seed := c.Uint64("seed")
	out := c.App.Writer
	errOut := c.App.ErrWriter

	worst := exitSuccess
	for _, path := range paths {
		data, err := readInput(path, c.App.Reader)
		if err != nil {
			return cli.Exit(fmt.Sprintf("error: reading input: %v", err), exitInvalid)
		}

		var stats conform.Stats
		err = conform.Fuzz(data, seed, conform.WithStats(&stats))
		if c.Bool("quirks") {
			_, _ = fmt.Fprintf(out, "%s: tok_limit=%d src_limit=%d quirks=[%s]\n",
				path, stats.TokLimit, stats.SrcLimit, quirkList(stats))
		}
		if err == nil {
			if !c.Bool("quiet") {
				_, _ = fmt.Fprintf(out, "ok %s (%d tokens)\n", path, stats.Tokens)
			}
			continue
		}

		label := "rejected"
		if tokerr.IsViolation(err) {
			label = "VIOLATION"
		}
		_, _ = fmt.Fprintf(errOut, "%s %s: %v\n", label, path, err)
		if code := tokerr.ClassOf(err).ExitCode(); code > worst {
			worst = code
		}
	}
	if worst != exitSuccess {
		return cli.Exit("", worst)
	}
	return nil
}

func quirkList(stats conform.Stats) string {
	names := make([]string, len(stats.Quirks))
	for i, q := range stats.Quirks {
		names[i] = q.String()
	}
	return strings.Join(names, " ")
}
