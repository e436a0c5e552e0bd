package conform

import (
	"github.com/lattice-substrate/json-tokfuzz/tokbase"
	"github.com/lattice-substrate/json-tokfuzz/tokerr"
)

// Checker validates tokens one at a time against the source view they were
// decoded from. It tracks the source cursor the token lengths imply and
// the previous token, which persists across decode calls.
type Checker struct {
	ti   int
	prev tokbase.Token
}

// Begin sets the cursor to the view's read index before a decode call.
func (c *Checker) Begin(ri int) {
	c.ti = ri
}

// Cursor returns the read index implied by the tokens checked since Begin.
func (c *Checker) Cursor() int {
	return c.ti
}

// Last returns the most recently accepted token.
func (c *Checker) Last() tokbase.Token {
	return c.prev
}

// Check validates t, whose bytes end the span starting at the cursor in
// src, and advances the cursor past it.
func (c *Checker) Check(t tokbase.Token, src *tokbase.IOBuffer) error {
	n := t.Length
	if n < 0 || n > tokbase.MaxTokenLength {
		return tokerr.Violation("length too long (vs 0xFFFF)")
	} else if n > src.WI-c.ti {
		return tokerr.Violation("length too long (vs wi - ti)")
	}
	c.ti += n

	if t.Extension && !c.prev.Continued {
		return tokerr.Violation("extended token not after continued token")
	}

	switch t.Category {
	case tokbase.CategoryString:
		if t.Detail&tokbase.StringConvert1Dst1SrcCopy != 0 {
			s := src.Data[c.ti-n : c.ti]
			if t.Detail&tokbase.StringDefinitelyUTF8 != 0 && tokbase.LongestValidUTF8Prefix(s) != len(s) {
				return tokerr.Violation("invalid UTF-8")
			}
			if t.Detail&tokbase.StringDefinitelyASCII != 0 && tokbase.LongestValidASCIIPrefix(s) != len(s) {
				return tokerr.Violation("invalid ASCII")
			}
		}
	case tokbase.CategoryUnicodeCodePoint:
		if tokbase.SurrogateMinIncl <= t.Detail && t.Detail <= tokbase.SurrogateMaxIncl {
			return tokerr.Violation("invalid Unicode surrogate")
		} else if t.Detail > tokbase.CodePointMaxIncl {
			return tokerr.Violation("invalid Unicode code point")
		}
	}

	c.prev = t
	return nil
}
