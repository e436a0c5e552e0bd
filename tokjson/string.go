package tokjson

import (
	"github.com/lattice-substrate/json-tokfuzz/tokbase"
	"github.com/lattice-substrate/json-tokfuzz/tokerr"
)

const replacementChar = 0xFFFD

type hexKind uint8

const (
	hexU4 hexKind = iota
	hexU4Low
	hexU8
	hexX2
)

var (
	dropPiece = tokbase.Token{
		Length:    1,
		Category:  tokbase.CategoryString,
		Detail:    tokbase.StringConvert0Dst1SrcDrop,
		Continued: true,
	}
	asciiDetail = tokbase.StringConvert1Dst1SrcCopy | tokbase.StringDefinitelyUTF8 | tokbase.StringDefinitelyASCII
	utf8Detail  = tokbase.StringConvert1Dst1SrcCopy | tokbase.StringDefinitelyUTF8
)

func codePoint(cp uint32, length int) tokbase.Token {
	return tokbase.Token{Length: length, Category: tokbase.CategoryUnicodeCodePoint, Detail: cp, Continued: true}
}

func (d *Decoder) startString(isKey bool) error {
	if err := d.put(dropPiece); err != nil {
		return err
	}
	d.lex = lexString
	d.strIsKey = isKey
	return nil
}

func (d *Decoder) stepString(c byte) error {
	switch {
	case c == '"':
		closing := dropPiece
		closing.Continued = false
		if err := d.put(closing); err != nil {
			return err
		}
		d.lex = lexNone
		if d.strIsKey {
			d.expect = expColon
		} else {
			d.valueDone()
		}
		return nil
	case c == '\\':
		if err := d.put(dropPiece); err != nil {
			return err
		}
		d.lex = lexEscape
		return nil
	case c < 0x20:
		return d.fail(tokerr.InvalidControl, "bad C0 control code")
	case c < 0x80:
		return d.put(tokbase.Token{Length: d.scanASCII(), Category: tokbase.CategoryString, Detail: asciiDetail, Continued: true})
	}
	return d.stepMultiByte(c)
}

// scanASCII returns the length of the run of plain ASCII string bytes at
// the read index.
func (d *Decoder) scanASCII() int {
	b := d.src.Data[d.src.RI:d.src.WI]
	n := 0
	for n < len(b) && n < tokbase.MaxTokenLength {
		c := b[n]
		if c < 0x20 || c >= 0x80 || c == '"' || c == '\\' {
			break
		}
		n++
	}
	return n
}

// utf8Lead returns the encoded length of the sequence that lead byte c
// starts and the valid range of the byte that follows it. size is 0 for
// bytes that cannot start a sequence.
func utf8Lead(c byte) (size int, lo, hi byte) {
	switch {
	case c >= 0xC2 && c <= 0xDF:
		return 2, 0x80, 0xBF
	case c == 0xE0:
		return 3, 0xA0, 0xBF
	case c == 0xED:
		return 3, 0x80, 0x9F
	case c >= 0xE1 && c <= 0xEF:
		return 3, 0x80, 0xBF
	case c == 0xF0:
		return 4, 0x90, 0xBF
	case c >= 0xF1 && c <= 0xF3:
		return 4, 0x80, 0xBF
	case c == 0xF4:
		return 4, 0x80, 0x8F
	}
	return 0, 0, 0
}

func (d *Decoder) stepMultiByte(c byte) error {
	size, lo, hi := utf8Lead(c)
	if size == 0 {
		return d.invalidUTF8()
	}
	b := d.src.Data[d.src.RI:d.src.WI]
	n := 1
	for n < size && n < len(b) {
		x := b[n]
		if n == 1 && (x < lo || x > hi) {
			break
		}
		if n > 1 && (x < 0x80 || x > 0xBF) {
			break
		}
		n++
	}
	switch {
	case n == size:
		return d.put(tokbase.Token{Length: size, Category: tokbase.CategoryString, Detail: utf8Detail, Continued: true})
	case n < len(b) || d.src.Closed:
		return d.invalidUTF8()
	}

	// The window ends inside a sequence that is valid so far. Drop what is
	// visible and emit the code point once the last byte arrives.
	cp := uint32(c) & (0xFF >> (size + 1))
	for _, x := range b[1:n] {
		cp = cp<<6 | uint32(x&0x3F)
	}
	if err := d.put(tokbase.Token{Length: n, Category: tokbase.CategoryString, Detail: tokbase.StringConvert0Dst1SrcDrop, Continued: true}); err != nil {
		return err
	}
	d.lex = lexUTF8Tail
	d.utf8CP = cp
	d.utf8Seen = n
	d.utf8Left = size - n
	d.utf8Lo, d.utf8Hi = 0x80, 0xBF
	if n == 1 {
		d.utf8Lo, d.utf8Hi = lo, hi
	}
	return nil
}

func (d *Decoder) stepUTF8Tail(c byte) error {
	if c < d.utf8Lo || c > d.utf8Hi {
		if err := d.abandonUTF8(); err != nil {
			return err
		}
		return d.stepString(c)
	}
	cp := d.utf8CP<<6 | uint32(c&0x3F)
	if d.utf8Left == 1 {
		if err := d.put(codePoint(cp, 1)); err != nil {
			return err
		}
		d.lex = lexString
		return nil
	}
	if err := d.put(tokbase.Token{Length: 1, Category: tokbase.CategoryString, Detail: tokbase.StringConvert0Dst1SrcDrop, Continued: true}); err != nil {
		return err
	}
	d.utf8CP = cp
	d.utf8Seen++
	d.utf8Left--
	d.utf8Lo, d.utf8Hi = 0x80, 0xBF
	return nil
}

// abandonUTF8 settles a sequence whose dropped bytes turned out not to form
// a code point. Each of those bytes becomes one U+FFFD, as it would had the
// whole sequence been visible at once.
func (d *Decoder) abandonUTF8() error {
	if !d.quirks[QuirkReplaceInvalidUnicode] {
		return d.fail(tokerr.InvalidUTF8, "bad UTF-8")
	}
	for d.utf8Seen > 0 {
		if err := d.put(codePoint(replacementChar, 0)); err != nil {
			return err
		}
		d.utf8Seen--
	}
	d.lex = lexString
	return nil
}

// invalidUTF8 handles an invalid byte at the read index.
func (d *Decoder) invalidUTF8() error {
	if !d.quirks[QuirkReplaceInvalidUnicode] {
		return d.fail(tokerr.InvalidUTF8, "bad UTF-8")
	}
	return d.put(codePoint(replacementChar, 1))
}

func (d *Decoder) stepEscape(c byte) error {
	cp := -1
	switch c {
	case '"', '\\', '/':
		cp = int(c)
	case 'b':
		cp = '\b'
	case 'f':
		cp = '\f'
	case 'n':
		cp = '\n'
	case 'r':
		cp = '\r'
	case 't':
		cp = '\t'
	case 'u':
		return d.startHex(hexU4, 4)
	case 'U':
		if d.quirks[QuirkAllowBackslashCapitalU] {
			return d.startHex(hexU8, 8)
		}
	case 'x':
		if d.quirks[QuirkAllowBackslashXAsCodePoints] {
			return d.startHex(hexX2, 2)
		}
	case 'a':
		if d.quirks[QuirkAllowBackslashA] {
			cp = 0x07
		}
	case 'e':
		if d.quirks[QuirkAllowBackslashE] {
			cp = 0x1B
		}
	case 'v':
		if d.quirks[QuirkAllowBackslashV] {
			cp = 0x0B
		}
	case '?':
		if d.quirks[QuirkAllowBackslashQuestionMark] {
			cp = '?'
		}
	case '\'':
		if d.quirks[QuirkAllowBackslashSingleQuote] {
			cp = '\''
		}
	case '0':
		if d.quirks[QuirkAllowBackslashZero] {
			cp = 0
		}
	}
	if cp < 0 {
		return d.fail(tokerr.InvalidEscape, "bad backslash-escape")
	}
	return d.putCodePoint(uint32(cp))
}

func (d *Decoder) startHex(kind hexKind, digits int) error {
	if err := d.put(dropPiece); err != nil {
		return err
	}
	d.lex = lexHex
	d.hexKind = kind
	d.hexLeft = digits
	d.hexVal = 0
	return nil
}

func hexValue(c byte) (uint32, bool) {
	switch {
	case c >= '0' && c <= '9':
		return uint32(c - '0'), true
	case c >= 'a' && c <= 'f':
		return uint32(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return uint32(c-'A') + 10, true
	}
	return 0, false
}

func isHighSurrogate(v uint32) bool { return v >= 0xD800 && v <= 0xDBFF }
func isLowSurrogate(v uint32) bool  { return v >= 0xDC00 && v <= 0xDFFF }

func (d *Decoder) stepHex(c byte) error {
	v, ok := hexValue(c)
	if !ok {
		return d.fail(tokerr.InvalidEscape, "bad backslash-escape")
	}
	val := d.hexVal<<4 | v
	if d.hexLeft > 1 {
		if err := d.put(dropPiece); err != nil {
			return err
		}
		d.hexVal = val
		d.hexLeft--
		return nil
	}

	switch d.hexKind {
	case hexX2:
		return d.putCodePoint(val)
	case hexU8:
		if val > tokbase.CodePointMaxIncl || isHighSurrogate(val) || isLowSurrogate(val) {
			return d.putReplacement()
		}
		return d.putCodePoint(val)
	case hexU4:
		switch {
		case isHighSurrogate(val):
			if err := d.put(dropPiece); err != nil {
				return err
			}
			d.high = val
			d.lex = lexSurrogateBackslash
			return nil
		case isLowSurrogate(val):
			return d.putReplacement()
		}
		return d.putCodePoint(val)
	}

	// hexU4Low: the second half of a surrogate pair.
	if isLowSurrogate(val) {
		return d.putCodePoint(0x10000 + (d.high-0xD800)<<10 + (val - 0xDC00))
	}
	if !d.quirks[QuirkReplaceInvalidUnicode] {
		return d.fail(tokerr.InvalidEscape, "bad backslash-escape")
	}
	// The unpaired high surrogate becomes U+FFFD. The last digit is then
	// read again as the end of an ordinary \u escape.
	if err := d.put(codePoint(replacementChar, 0)); err != nil {
		return err
	}
	d.hexKind = hexU4
	return nil
}

func (d *Decoder) stepSurrogateBackslash(c byte) error {
	if c == '\\' {
		if err := d.put(dropPiece); err != nil {
			return err
		}
		d.lex = lexSurrogateU
		return nil
	}
	if !d.quirks[QuirkReplaceInvalidUnicode] {
		return d.fail(tokerr.InvalidEscape, "bad backslash-escape")
	}
	if err := d.put(codePoint(replacementChar, 0)); err != nil {
		return err
	}
	d.lex = lexString
	return nil
}

func (d *Decoder) stepSurrogateU(c byte) error {
	if c == 'u' {
		if err := d.put(dropPiece); err != nil {
			return err
		}
		d.lex = lexHex
		d.hexKind = hexU4Low
		d.hexLeft = 4
		d.hexVal = 0
		return nil
	}
	if !d.quirks[QuirkReplaceInvalidUnicode] {
		return d.fail(tokerr.InvalidEscape, "bad backslash-escape")
	}
	// The backslash already consumed starts an ordinary escape.
	if err := d.put(codePoint(replacementChar, 0)); err != nil {
		return err
	}
	d.lex = lexEscape
	return nil
}

func (d *Decoder) putCodePoint(cp uint32) error {
	if err := d.put(codePoint(cp, 1)); err != nil {
		return err
	}
	d.lex = lexString
	return nil
}

func (d *Decoder) putReplacement() error {
	if !d.quirks[QuirkReplaceInvalidUnicode] {
		return d.fail(tokerr.InvalidEscape, "bad backslash-escape")
	}
	return d.putCodePoint(replacementChar)
}
