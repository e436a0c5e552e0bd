// Package conform drives a token-emitting JSON decoder through randomly
// sized source and token windows and checks that the token stream it
// emits stays consistent with the decoder's own contract.
//
// A session is one decode of one input. Sessions share nothing, so any
// number may run concurrently.
package conform

import (
	"errors"
	"math/bits"

	"github.com/lattice-substrate/json-tokfuzz/log"
	"github.com/lattice-substrate/json-tokfuzz/tokbase"
	"github.com/lattice-substrate/json-tokfuzz/tokerr"
	"github.com/lattice-substrate/json-tokfuzz/tokjson"
)

const (
	// TokBufferArraySize is the largest token window a session uses.
	TokBufferArraySize = 4096

	// SrcLimitMax is the largest source window a session uses.
	SrcLimitMax = 4096

	// ProgressCeiling is how many consecutive decode calls may make no
	// progress before the session gives up.
	ProgressCeiling = 999
)

// Engine is the decoder under test.
type Engine interface {
	SetQuirk(q tokjson.Quirk, enabled bool) error
	DecodeTokens(dst *tokbase.TokenBuffer, src *tokbase.IOBuffer, workbuf []byte) error
}

// EngineFactory returns an initialized engine.
type EngineFactory func(flags tokjson.InitFlag) (Engine, error)

// NewTokJSON is the default EngineFactory.
func NewTokJSON(flags tokjson.InitFlag) (Engine, error) {
	d, err := tokjson.New(flags)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Stats describes a finished session.
type Stats struct {
	TokLimit uint64
	SrcLimit uint64
	Quirks   []tokjson.Quirk
	Calls    int
	Tokens   int
}

type options struct {
	logger    *log.Logger
	newEngine EngineFactory
	observer  func(t tokbase.Token, span []byte)
	stats     *Stats
}

// Option configures a session.
type Option func(*options)

// WithLogger sets the logger sessions report to. The default discards.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEngine replaces the engine under test.
func WithEngine(f EngineFactory) Option {
	return func(o *options) { o.newEngine = f }
}

// WithTokenObserver calls fn with every validated token and the source
// bytes it covers.
func WithTokenObserver(fn func(t tokbase.Token, span []byte)) Option {
	return func(o *options) { o.observer = fn }
}

// WithStats fills s when the session ends, successfully or not.
func WithStats(s *Stats) Option {
	return func(o *options) { o.stats = s }
}

func buildOptions(opts []Option) *options {
	o := &options{logger: log.Nop(), newEngine: NewTokJSON}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func rotr(x uint64, k int) uint64 {
	return bits.RotateLeft64(x, -k)
}

// Complex decodes full through windows sized by hash and validates every
// token. It returns nil when the engine finished cleanly and the stream
// was consistent, a protocol violation (tokerr.IsViolation) when the
// stream contradicts the token contract, and otherwise the engine's own
// terminal status unchanged. full is advanced but never compacted.
func Complex(full *tokbase.IOBuffer, hash uint64, opts ...Option) error {
	o := buildOptions(opts)

	tokLimit := BufferLimit(hash&0x3F, tokjson.DstTokenBufferLengthMinIncl, TokBufferArraySize)
	hash = rotr(hash, 6)
	srcLimit := BufferLimit(hash&0x3F, tokjson.SrcIOBufferLengthMinIncl, SrcLimitMax)
	hash = rotr(hash, 6)

	s := &session{
		full:     full,
		tokLimit: tokLimit,
		srcLimit: srcLimit,
		quirks:   SelectQuirks(hash),
		o:        o,
	}
	err := s.run(hash)
	s.report(err)
	return err
}

type session struct {
	full     *tokbase.IOBuffer
	tokLimit uint64
	srcLimit uint64
	quirks   []tokjson.Quirk
	o        *options

	calls  int
	tokens int
}

func (s *session) run(hash uint64) error {
	dec, err := s.o.newEngine(tokjson.LeaveInternalBuffersUninitialized)
	if err != nil {
		return err
	}
	if err := SetQuirks(dec, hash); err != nil {
		return err
	}

	tok := tokbase.NewTokenBuffer(int(s.tokLimit))
	workbuf := make([]byte, tokjson.WorkbufLenMaxInclWorstCase)
	stack := NewStack()
	var check Checker
	noProgress := 0

	for {
		src := tokbase.LimitedReader(s.full, s.srcLimit)

		oldTokWI, oldTokRI := tok.WI, tok.RI
		oldSrcWI, oldSrcRI := src.WI, src.RI
		check.Begin(oldSrcRI)

		status := dec.DecodeTokens(tok, &src, workbuf)
		s.calls++
		if len(tok.Data) < tok.WI || tok.WI < tok.RI || tok.RI != oldTokRI {
			return tokerr.Violation("inconsistent tok indexes")
		} else if len(src.Data) < src.WI || src.WI < src.RI || src.WI != oldSrcWI || src.RI < oldSrcRI {
			return tokerr.Violation("inconsistent src indexes")
		}
		s.full.RI += src.RI - oldSrcRI

		switch {
		case tok.WI > oldTokWI || src.RI > oldSrcRI || !tokbase.IsSuspension(status):
			noProgress = 0
		case noProgress < ProgressCeiling:
			noProgress++
		case !s.full.Closed && errors.Is(status, tokbase.ErrShortRead):
			return status
		default:
			return tokerr.Violation("no progress")
		}

		for tok.RI < tok.WI {
			t := tok.Data[tok.RI]
			tok.RI++
			if err := check.Check(t, &src); err != nil {
				return err
			}
			if err := stack.Apply(t); err != nil {
				return err
			}
			s.tokens++
			if s.o.observer != nil {
				ti := check.Cursor()
				s.o.observer(t, src.Data[ti-t.Length:ti])
			}
		}

		// The lengths of this call's tokens must account for exactly the
		// bytes it consumed.
		if check.Cursor() != src.RI {
			return tokerr.Violation("ti != ri")
		}

		switch {
		case status == nil:
			if !stack.Balanced() {
				return tokerr.Violation("decoded OK but final depth was not zero")
			} else if check.Last().Continued {
				return tokerr.Violation("decoded OK but final token was continued")
			}
			return nil
		case errors.Is(status, tokbase.ErrShortRead):
			if src.Closed {
				return tokerr.Violation("short read on a closed source")
			}
			continue
		case errors.Is(status, tokbase.ErrShortWrite):
			tok.Compact()
			continue
		}
		return status
	}
}

func (s *session) report(err error) {
	if st := s.o.stats; st != nil {
		*st = Stats{
			TokLimit: s.tokLimit,
			SrcLimit: s.srcLimit,
			Quirks:   s.quirks,
			Calls:    s.calls,
			Tokens:   s.tokens,
		}
	}
	fields := map[string]any{
		"tok_limit": s.tokLimit,
		"src_limit": s.srcLimit,
		"quirks":    len(s.quirks),
		"calls":     s.calls,
		"tokens":    s.tokens,
		"consumed":  s.full.RI,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	if tokerr.IsViolation(err) {
		s.o.logger.Warn("protocol violation", fields)
		return
	}
	s.o.logger.Debug("session finished", fields)
}
