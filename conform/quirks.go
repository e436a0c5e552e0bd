package conform

import (
	"fmt"

	"github.com/lattice-substrate/json-tokfuzz/tokjson"
)

// Quirks is the ordered list of quirks a session hash selects from. Bit i
// of the hash enables Quirks[i].
var Quirks = []tokjson.Quirk{
	tokjson.QuirkAllowBackslashA,
	tokjson.QuirkAllowBackslashCapitalU,
	tokjson.QuirkAllowBackslashE,
	tokjson.QuirkAllowBackslashQuestionMark,
	tokjson.QuirkAllowBackslashSingleQuote,
	tokjson.QuirkAllowBackslashV,
	tokjson.QuirkAllowBackslashXAsCodePoints,
	tokjson.QuirkAllowBackslashZero,
	tokjson.QuirkAllowCommentBlock,
	tokjson.QuirkAllowCommentLine,
	tokjson.QuirkAllowExtraComma,
	tokjson.QuirkAllowInfNanNumbers,
	tokjson.QuirkAllowLeadingASCIIRecordSeparator,
	tokjson.QuirkAllowLeadingUnicodeByteOrderMark,
	tokjson.QuirkAllowTrailingFiller,
	tokjson.QuirkReplaceInvalidUnicode,
}

// SelectQuirks returns the quirks hash enables, in list order.
func SelectQuirks(hash uint64) []tokjson.Quirk {
	var out []tokjson.Quirk
	for i, q := range Quirks {
		if hash&(1<<(uint(i)&63)) != 0 {
			out = append(out, q)
		}
	}
	return out
}

// SetQuirks enables on e every quirk that hash selects. It must run before
// the first decode call.
func SetQuirks(e Engine, hash uint64) error {
	for _, q := range SelectQuirks(hash) {
		if err := e.SetQuirk(q, true); err != nil {
			return fmt.Errorf("set quirk %s: %w", q, err)
		}
	}
	return nil
}

// QuirkMask returns the hash bits that select exactly qs. Quirks missing
// from the list are ignored.
func QuirkMask(qs ...tokjson.Quirk) uint64 {
	var mask uint64
	for _, q := range qs {
		for i, known := range Quirks {
			if known == q {
				mask |= 1 << uint(i)
			}
		}
	}
	return mask
}
