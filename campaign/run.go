package campaign

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/lattice-substrate/json-tokfuzz/conform"
	"github.com/lattice-substrate/json-tokfuzz/log"
	"github.com/lattice-substrate/json-tokfuzz/tokerr"
)

// OutcomeOK is the Summary.Outcomes key for sessions that decoded cleanly.
const OutcomeOK = "OK"

// RunOptions carries a campaign's collaborators. Zero values are usable.
type RunOptions struct {
	CampaignID string
	Logger     *log.Logger
	// Findings receives every violation. Nil keeps them in memory only.
	Findings *FindingWriter
	// Engine replaces the decoder under test.
	Engine conform.EngineFactory
	Now    func() time.Time
}

type job struct {
	input *Input
	seed  uint64
}

// Run loads cfg's corpus and runs the campaign over it.
func Run(ctx context.Context, cfg *Config, opts RunOptions) (*Summary, error) {
	inputs, err := LoadCorpus(cfg.Corpus, cfg.MaxInputBytes)
	if err != nil {
		return nil, err
	}
	return RunInputs(ctx, cfg, inputs, opts)
}

// RunInputs runs cfg.SeedsPerInput sessions per input on cfg.Workers
// workers. It stops early when ctx ends, when cfg.TimeLimit passes, or at
// the first violation if cfg.StopOnFirst is set; the summary then reports
// Truncated. The error is non-nil only when the campaign itself failed.
func RunInputs(ctx context.Context, cfg *Config, inputs []Input, opts RunOptions) (*Summary, error) {
	if cfg.SeedsPerInput < 1 || cfg.Workers < 1 {
		return nil, fmt.Errorf("seeds_per_input and workers must be >= 1")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if cfg.TimeLimit.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.TimeLimit.Duration)
		defer cancel()
	}
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	t := &tally{outcomes: make(map[string]int)}
	sum := &Summary{
		CampaignID:    opts.CampaignID,
		StartedAt:     opts.Now().UTC(),
		Inputs:        len(inputs),
		SeedsPerInput: cfg.SeedsPerInput,
		BaseSeed:      cfg.BaseSeed,
		CorpusDigest:  corpusDigest(inputs),
	}
	opts.Logger.Info("campaign started", map[string]any{
		"inputs":          len(inputs),
		"seeds_per_input": cfg.SeedsPerInput,
		"workers":         cfg.Workers,
	})

	jobs := make(chan job)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Workers; w++ {
		wl := opts.Logger.ForWorker(w)
		g.Go(func() error {
			for j := range jobs {
				if err := runSession(gctx, cfg, j, wl, opts, t, stop); err != nil {
					return err
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for i := range inputs {
			for _, seed := range SeedsFor(inputs[i].Data, cfg.BaseSeed, cfg.SeedsPerInput) {
				select {
				case jobs <- job{input: &inputs[i], seed: seed}:
				case <-gctx.Done():
					return nil
				}
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	t.fill(sum)
	sum.FinishedAt = opts.Now().UTC()
	sum.Truncated = sum.Sessions < len(inputs)*cfg.SeedsPerInput
	opts.Logger.Info("campaign finished", map[string]any{
		"sessions":   sum.Sessions,
		"violations": sum.Violations,
		"truncated":  sum.Truncated,
	})
	return sum, nil
}

func runSession(ctx context.Context, cfg *Config, j job, l *log.Logger, opts RunOptions, t *tally, stop context.CancelFunc) error {
	if ctx.Err() != nil {
		return nil
	}
	sessionOpts := []conform.Option{conform.WithLogger(l)}
	if opts.Engine != nil {
		sessionOpts = append(sessionOpts, conform.WithEngine(opts.Engine))
	}
	var stats conform.Stats
	sessionOpts = append(sessionOpts, conform.WithStats(&stats))

	err := conform.Fuzz(j.input.Data, j.seed, sessionOpts...)
	t.record(err, stats.Tokens)
	if !tokerr.IsViolation(err) {
		return nil
	}

	f := NewFinding(j.input.Path, j.seed, j.input.Data, err, opts.Now())
	t.addFinding(f)
	l.Warn("finding", map[string]any{
		"id":      f.ID,
		"path":    f.Path,
		"seed":    fmt.Sprintf("%#016x", f.Seed),
		"message": f.Message,
	})
	if opts.Findings != nil {
		if err := opts.Findings.Write(f); err != nil {
			return err
		}
	}
	if cfg.StopOnFirst {
		stop()
	}
	return nil
}

// tally aggregates session results across workers.
type tally struct {
	mu       sync.Mutex
	sessions int
	tokens   int64
	outcomes map[string]int
	findings []Finding
}

func (t *tally) record(err error, tokens int) {
	key := OutcomeOK
	if err != nil {
		key = string(tokerr.ClassOf(err))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions++
	t.tokens += int64(tokens)
	t.outcomes[key]++
}

func (t *tally) addFinding(f Finding) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.findings = append(t.findings, f)
}

func (t *tally) fill(s *Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s.Sessions = t.sessions
	s.Tokens = t.tokens
	s.Outcomes = t.outcomes
	s.Violations = len(t.findings)
	sort.Slice(t.findings, func(i, j int) bool {
		if t.findings[i].Path != t.findings[j].Path {
			return t.findings[i].Path < t.findings[j].Path
		}
		return t.findings[i].Seed < t.findings[j].Seed
	})
	s.Findings = t.findings
}

func corpusDigest(inputs []Input) string {
	d := xxhash.New()
	for _, in := range inputs {
		_, _ = d.WriteString(in.Path)
		_, _ = d.Write([]byte{0})
		_, _ = d.Write(in.Data)
		_, _ = d.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", d.Sum64())
}
