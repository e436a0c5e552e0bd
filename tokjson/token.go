// Package tokjson provides a resumable JSON tokenizer.
//
// The decoder does not build values. Each DecodeTokens call reads from a
// caller-owned source window and appends tokens to a caller-owned token
// window, returning early with tokbase.ErrShortRead or
// tokbase.ErrShortWrite when either runs out. All decoding state lives in
// the Decoder, so decoding can stop and resume at any byte boundary: a
// one-byte source window and a one-token output window are both legal.
//
// The tokens emitted by one call cover exactly the source bytes that call
// consumed, in order. Scalars that straddle a window boundary are split
// into Continued fragments; every token after a Continued token carries
// Extension.
package tokjson

import (
	"errors"

	"github.com/lattice-substrate/json-tokfuzz/tokbase"
	"github.com/lattice-substrate/json-tokfuzz/tokerr"
)

// Limits and buffer requirements.
const (
	// DepthMaxIncl is the deepest container nesting accepted.
	DepthMaxIncl = 1024

	// NumberLengthMaxIncl is the longest number accepted, in bytes.
	NumberLengthMaxIncl = 99

	// DstTokenBufferLengthMinIncl is the smallest usable token window.
	DstTokenBufferLengthMinIncl = 1

	// SrcIOBufferLengthMinIncl is the smallest usable source window.
	SrcIOBufferLengthMinIncl = 1

	// WorkbufLenMaxInclWorstCase is the work buffer size DecodeTokens
	// may need. The decoder keeps all its state in the Decoder itself.
	WorkbufLenMaxInclWorstCase = 0
)

// InitFlag configures Initialize.
type InitFlag uint32

const (
	// LeaveInternalBuffersUninitialized skips clearing buffers that the
	// decoder overwrites before reading. Go always zeroes memory, so the
	// flag is accepted for interface parity and has no effect.
	LeaveInternalBuffersUninitialized InitFlag = 1 << 0

	initFlagMask = LeaveInternalBuffersUninitialized
)

// New returns an initialized Decoder.
func New(flags InitFlag) (*Decoder, error) {
	d := &Decoder{}
	if err := d.Initialize(flags); err != nil {
		return nil, err
	}
	return d, nil
}

// DecodeAll tokenizes all of data with the given quirks enabled and
// returns every token emitted, including those emitted before a failure.
func DecodeAll(data []byte, quirks ...Quirk) ([]tokbase.Token, error) {
	d, err := New(0)
	if err != nil {
		return nil, err
	}
	for _, q := range quirks {
		if err := d.SetQuirk(q, true); err != nil {
			return nil, err
		}
	}

	src := tokbase.NewReader(data)
	dst := tokbase.NewTokenBuffer(256)
	var out []tokbase.Token
	for {
		err := d.DecodeTokens(dst, src, nil)
		out = append(out, dst.Data[dst.RI:dst.WI]...)
		dst.RI = dst.WI
		dst.Compact()
		switch {
		case err == nil:
			return out, nil
		case errors.Is(err, tokbase.ErrShortWrite):
			continue
		default:
			return out, err
		}
	}
}

func newError(class tokerr.FailureClass, offset uint64, msg string) *tokerr.Error {
	return tokerr.New(class, int(offset), msg)
}
