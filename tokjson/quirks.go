package tokjson

import "fmt"

// Quirk identifies an optional decoder behavior. The zero Quirk is not a
// valid identifier.
type Quirk uint32

const (
	// QuirkAllowBackslashA accepts "\a" as U+0007.
	QuirkAllowBackslashA Quirk = iota + 1
	// QuirkAllowBackslashCapitalU accepts "\U" followed by 8 hex digits.
	QuirkAllowBackslashCapitalU
	// QuirkAllowBackslashE accepts "\e" as U+001B.
	QuirkAllowBackslashE
	// QuirkAllowBackslashQuestionMark accepts "\?" as U+003F.
	QuirkAllowBackslashQuestionMark
	// QuirkAllowBackslashSingleQuote accepts "\'" as U+0027.
	QuirkAllowBackslashSingleQuote
	// QuirkAllowBackslashV accepts "\v" as U+000B.
	QuirkAllowBackslashV
	// QuirkAllowBackslashXAsCodePoints accepts "\x" followed by 2 hex
	// digits as a code point in U+0000..U+00FF.
	QuirkAllowBackslashXAsCodePoints
	// QuirkAllowBackslashZero accepts "\0" as U+0000.
	QuirkAllowBackslashZero
	// QuirkAllowCommentBlock accepts "/* ... */" comments as filler.
	QuirkAllowCommentBlock
	// QuirkAllowCommentLine accepts "// ...\n" comments as filler.
	QuirkAllowCommentLine
	// QuirkAllowExtraComma accepts a comma before a closing bracket.
	QuirkAllowExtraComma
	// QuirkAllowInfNanNumbers accepts NaN, Infinity and -Infinity.
	QuirkAllowInfNanNumbers
	// QuirkAllowLeadingASCIIRecordSeparator accepts a 0x1E first byte.
	QuirkAllowLeadingASCIIRecordSeparator
	// QuirkAllowLeadingUnicodeByteOrderMark accepts a UTF-8 BOM prefix.
	QuirkAllowLeadingUnicodeByteOrderMark
	// QuirkAllowTrailingFiller consumes whitespace and comments after the
	// top-level value up to the end of input.
	QuirkAllowTrailingFiller
	// QuirkReplaceInvalidUnicode decodes invalid UTF-8 and unpaired
	// surrogate escapes as U+FFFD instead of failing.
	QuirkReplaceInvalidUnicode
)

const quirkCount = int(QuirkReplaceInvalidUnicode)

var quirkNames = [quirkCount + 1]string{
	QuirkAllowBackslashA:                  "allow_backslash_a",
	QuirkAllowBackslashCapitalU:           "allow_backslash_capital_u",
	QuirkAllowBackslashE:                  "allow_backslash_e",
	QuirkAllowBackslashQuestionMark:       "allow_backslash_question_mark",
	QuirkAllowBackslashSingleQuote:        "allow_backslash_single_quote",
	QuirkAllowBackslashV:                  "allow_backslash_v",
	QuirkAllowBackslashXAsCodePoints:      "allow_backslash_x_as_code_points",
	QuirkAllowBackslashZero:               "allow_backslash_zero",
	QuirkAllowCommentBlock:                "allow_comment_block",
	QuirkAllowCommentLine:                 "allow_comment_line",
	QuirkAllowExtraComma:                  "allow_extra_comma",
	QuirkAllowInfNanNumbers:               "allow_inf_nan_numbers",
	QuirkAllowLeadingASCIIRecordSeparator: "allow_leading_ascii_record_separator",
	QuirkAllowLeadingUnicodeByteOrderMark: "allow_leading_unicode_byte_order_mark",
	QuirkAllowTrailingFiller:              "allow_trailing_filler",
	QuirkReplaceInvalidUnicode:            "replace_invalid_unicode",
}

func (q Quirk) valid() bool {
	return q > 0 && int(q) <= quirkCount
}

func (q Quirk) String() string {
	if q.valid() {
		return quirkNames[q]
	}
	return fmt.Sprintf("quirk(%d)", uint32(q))
}

// ParseQuirk returns the Quirk with the given name.
func ParseQuirk(name string) (Quirk, bool) {
	for i := 1; i <= quirkCount; i++ {
		if quirkNames[i] == name {
			return Quirk(i), true
		}
	}
	return 0, false
}
