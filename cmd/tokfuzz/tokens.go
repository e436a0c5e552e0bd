package main

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/lattice-substrate/json-tokfuzz/conform"
	"github.com/lattice-substrate/json-tokfuzz/tokbase"
	"github.com/lattice-substrate/json-tokfuzz/tokjson"
)

func tokensCommand() *cli.Command {
	return &cli.Command{
		Name:      "tokens",
		Usage:     "Print the token stream for one input",
		ArgsUsage: "[file|-]",
		Flags: []cli.Flag{
			seedFlag,
			&cli.StringSliceFlag{
				Name:  "quirk",
				Usage: "enable a quirk by name when decoding the whole input at once",
			},
		},
		Action: tokensAction,
	}
}

// tokensAction prints one line per token: source offset, length, token
// and the bytes it covers. With --seed the tokens are the ones a windowed
// session sees, so continued fragments show up as separate lines.
func tokensAction(c *cli.Context) error {
	if c.NArg() > 1 {
		return cli.Exit("error: multiple input files specified", exitInvalid)
	}
	data, err := readInput(c.Args().First(), c.App.Reader)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: reading input: %v", err), exitInvalid)
	}
	out := c.App.Writer

	if c.IsSet("seed") {
		if c.IsSet("quirk") {
			return cli.Exit("error: --seed selects its own quirks; drop --quirk", exitInvalid)
		}
		pos := 0
		err := conform.Fuzz(data, c.Uint64("seed"), conform.WithTokenObserver(func(t tokbase.Token, span []byte) {
			printToken(out, pos, t, span)
			pos += len(span)
		}))
		if err != nil {
			return classified(err)
		}
		return nil
	}

	var quirks []tokjson.Quirk
	for _, name := range c.StringSlice("quirk") {
		q, ok := tokjson.ParseQuirk(name)
		if !ok {
			return cli.Exit(fmt.Sprintf("error: unknown quirk %q", name), exitInvalid)
		}
		quirks = append(quirks, q)
	}
	toks, err := tokjson.DecodeAll(data, quirks...)
	pos := 0
	for _, t := range toks {
		end := pos + t.Length
		if end > len(data) {
			end = len(data)
		}
		printToken(out, pos, t, data[pos:end])
		pos = end
	}
	if err != nil {
		return classified(err)
	}
	return nil
}

func printToken(w io.Writer, pos int, t tokbase.Token, span []byte) {
	_, _ = fmt.Fprintf(w, "%6d  %s  %q\n", pos, t, span)
}
