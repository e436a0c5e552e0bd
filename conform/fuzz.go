package conform

import (
	"bytes"
	"strings"

	"github.com/lattice-substrate/json-tokfuzz/tokbase"
	"github.com/lattice-substrate/json-tokfuzz/tokerr"
)

// SimpleSelector is the low hash byte that routes a session to Simple.
// It is non-zero so that a hash of 0 still takes the validating path.
const SimpleSelector = 0xA5

// Fuzz runs one session over data. Most hashes run Complex with the hash
// rotated past its selector byte; the rest run Simple. Unless that session
// found a violation, the value pass then runs with the hash rotated by 32.
func Fuzz(data []byte, hash uint64, opts ...Option) error {
	src := tokbase.NewReader(data)
	var err error
	if hash&0xFF != SimpleSelector {
		err = Complex(src, rotr(hash, 8), opts...)
	} else {
		err = Simple(src, opts...)
	}
	if tokerr.IsViolation(err) {
		return err
	}
	if verr := Values(data, rotr(hash, 32), opts...); verr != nil {
		return verr
	}
	return err
}

// ValuePointers are the JSON pointers the value pass selects from by the
// low four bits of its hash. Most select the whole document.
var ValuePointers = [16]string{
	"", "", "", "", "", "", "", "", "", "",
	"/",
	"/2/3/4/5",
	"/k0",
	"/k0/1",
	"/x/y",
	"/~0/~1/~n",
}

// Values decodes data through DecodeJSON with the pointer and quirks that
// hash selects, and checks what the callbacks saw. The engine rejecting
// the input is an expected outcome and yields nil. A violation is
// returned when callback depth goes negative, when a clean decode ends at
// a non-zero depth, or when an internal error escapes the decode.
func Values(data []byte, hash uint64, opts ...Option) error {
	o := buildOptions(opts)
	pointer := ValuePointers[hash&15]
	hash = rotr(hash, 4)
	quirks := SelectQuirks(hash)

	var c depthCounter
	err := DecodeJSON(&c, bytes.NewReader(data), ValueArgs{Quirks: quirks, Pointer: pointer}, opts...)
	verr := valueViolation(err, c.depth)

	fields := map[string]any{
		"pointer": pointer,
		"quirks":  len(quirks),
		"values":  c.values,
		"depth":   c.depth,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	if verr != nil {
		o.logger.Warn("value pass violation", fields)
		return verr
	}
	o.logger.Debug("value pass finished", fields)
	return nil
}

func valueViolation(err error, depth int64) error {
	switch {
	case err == nil:
		if depth != 0 {
			return tokerr.Violation("decoded OK but final depth was not zero")
		}
	case tokerr.IsViolation(err):
		return err
	case strings.Contains(err.Error(), "internal error:"):
		return tokerr.Wrap(tokerr.ProtocolViolation, -1, "internal error: escaped the value decode", err)
	}
	return nil
}

// depthCounter counts values and fails the decode as soon as a pop would
// take the depth below zero.
type depthCounter struct {
	depth  int64
	values int
}

func (c *depthCounter) AppendNull() error { c.values++; return nil }
func (c *depthCounter) AppendBool(bool) error { c.values++; return nil }
func (c *depthCounter) AppendI64(int64) error { c.values++; return nil }
func (c *depthCounter) AppendF64(float64) error { c.values++; return nil }
func (c *depthCounter) AppendTextString(string) error { c.values++; return nil }

func (c *depthCounter) Push(uint32) error {
	c.depth++
	return nil
}

func (c *depthCounter) Pop(uint32) error {
	c.depth--
	if c.depth < 0 {
		return tokerr.Violation("negative depth")
	}
	return nil
}
