package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/lattice-substrate/json-tokfuzz/campaign"
	"github.com/lattice-substrate/json-tokfuzz/log"
)

func campaignCommand() *cli.Command {
	return &cli.Command{
		Name:  "campaign",
		Usage: "Run many seeds over a corpus and collect violations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "campaign YAML file",
				Required: true,
			},
			&cli.IntFlag{Name: "workers", Usage: "override workers"},
			&cli.StringFlag{Name: "findings", Usage: "override the findings file"},
			&cli.StringFlag{Name: "summary", Usage: "override the summary file"},
			&cli.StringFlag{Name: "log-level", Usage: "override log_level"},
		},
		Action: campaignAction,
	}
}

func campaignAction(c *cli.Context) error {
	cfg, err := campaign.LoadConfig(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), exitInvalid)
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("findings") {
		cfg.Findings = c.String("findings")
	}
	if c.IsSet("summary") {
		cfg.Summary = c.String("summary")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if err := campaign.ValidateConfig(cfg); err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), exitInvalid)
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	id := uuid.NewString()
	logger := log.NewLoggerWithWriter(log.Meta{CampaignID: id, Worker: -1}, c.App.ErrWriter, level)
	defer func() {
		_ = logger.Sync()
	}()

	opts := campaign.RunOptions{CampaignID: id, Logger: logger}
	if cfg.Findings != "" {
		fw, err := campaign.CreateFindings(cfg.Findings)
		if err != nil {
			return cli.Exit(fmt.Sprintf("error: %v", err), exitInternal)
		}
		defer func() {
			_ = fw.Close()
		}()
		opts.Findings = fw
	}

	sum, err := campaign.Run(c.Context, cfg, opts)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), exitInternal)
	}
	if cfg.Summary != "" {
		if err := campaign.WriteSummary(cfg.Summary, sum); err != nil {
			return cli.Exit(fmt.Sprintf("error: %v", err), exitInternal)
		}
		logger.Sugar().Infof("summary written to %s", cfg.Summary)
	}
	if opts.Findings != nil {
		logger.Sugar().Infof("%d findings written to %s", opts.Findings.Count(), cfg.Findings)
	}

	if err := campaign.RenderSummary(c.App.Writer, sum); err != nil {
		return cli.Exit(fmt.Sprintf("error: writing output: %v", err), exitInternal)
	}
	if !sum.Passed() {
		_, _ = fmt.Fprintln(c.App.Writer)
		campaign.RenderFindings(c.App.Writer, sum.Findings)
		return cli.Exit("", exitViolation)
	}
	return nil
}
