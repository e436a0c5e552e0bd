package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/lattice-substrate/json-tokfuzz/campaign"
)

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Render a findings file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "findings", Usage: "findings file written by campaign", Required: true},
			&cli.StringFlag{Name: "summary", Usage: "summary file written by campaign"},
		},
		Action: reportAction,
	}
}

func reportAction(c *cli.Context) error {
	findings, err := campaign.LoadFindings(c.String("findings"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), exitInvalid)
	}
	out := c.App.Writer

	if path := c.String("summary"); path != "" {
		sum, err := campaign.LoadSummary(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("error: %v", err), exitInvalid)
		}
		if err := campaign.RenderSummary(out, sum); err != nil {
			return cli.Exit(fmt.Sprintf("error: writing output: %v", err), exitInternal)
		}
		_, _ = fmt.Fprintln(out)
	}

	if len(findings) == 0 {
		_, _ = fmt.Fprintln(out, "no findings")
		return nil
	}
	campaign.RenderFindings(out, findings)
	return nil
}
