package tokjson

import (
	"github.com/lattice-substrate/json-tokfuzz/tokbase"
	"github.com/lattice-substrate/json-tokfuzz/tokerr"
)

const byteOrderMark = "\xEF\xBB\xBF"

// numState follows the RFC 8259 number grammar one byte at a time.
type numState uint8

const (
	numStart numState = iota
	numSign
	numZero
	numInt
	numDot
	numFrac
	numExp
	numExpSign
	numExpDigits
)

func (s numState) accepting() bool {
	switch s {
	case numZero, numInt, numFrac, numExpDigits:
		return true
	}
	return false
}

func (s numState) next(c byte) (numState, bool) {
	digit := c >= '0' && c <= '9'
	exp := c == 'e' || c == 'E'
	switch s {
	case numStart:
		switch {
		case c == '-':
			return numSign, true
		case c == '0':
			return numZero, true
		case digit:
			return numInt, true
		}
	case numSign:
		switch {
		case c == '0':
			return numZero, true
		case digit:
			return numInt, true
		}
	case numZero:
		switch {
		case c == '.':
			return numDot, true
		case exp:
			return numExp, true
		}
	case numInt:
		switch {
		case digit:
			return numInt, true
		case c == '.':
			return numDot, true
		case exp:
			return numExp, true
		}
	case numDot, numFrac:
		switch {
		case digit:
			return numFrac, true
		case exp && s == numFrac:
			return numExp, true
		}
	case numExp:
		switch {
		case c == '+' || c == '-':
			return numExpSign, true
		case digit:
			return numExpDigits, true
		}
	case numExpSign, numExpDigits:
		if digit {
			return numExpDigits, true
		}
	}
	return s, false
}

func (d *Decoder) stepNumber(c byte) error {
	next, ok := d.num.next(c)
	if !ok {
		if d.num == numSign && c == 'I' && d.quirks[QuirkAllowInfNanNumbers] {
			d.startLiteral("Infinity", tokbase.CategoryNumber, tokbase.NumberContentNegInf|tokbase.NumberFormatText, false)
			return nil
		}
		if !d.num.accepting() {
			return d.fail(tokerr.InvalidGrammar, "bad number")
		}
		return d.finishNumber()
	}
	if d.numLen >= NumberLengthMaxIncl {
		return d.fail(tokerr.BoundExceeded, "unsupported number length")
	}
	if err := d.put(tokbase.Token{Length: 1, Category: tokbase.CategoryNumber, Continued: true}); err != nil {
		return err
	}
	d.num = next
	d.numLen++
	if c == '.' || c == 'e' || c == 'E' {
		d.numFloat = true
	}
	return nil
}

// finishNumber emits the zero-length token that closes a number. The
// number's bytes were already emitted as continued fragments.
func (d *Decoder) finishNumber() error {
	detail := tokbase.NumberFormatText | tokbase.NumberContentFloatingPoint
	if !d.numFloat {
		detail |= tokbase.NumberContentIntegerSigned
	}
	if err := d.put(tokbase.Token{Category: tokbase.CategoryNumber, Detail: detail}); err != nil {
		return err
	}
	d.lex = lexNone
	d.valueDone()
	return nil
}

// literal is a fixed byte sequence matched one byte at a time: true,
// false, null, NaN, Infinity, or a byte order mark.
type literal struct {
	text   string
	idx    int
	cat    tokbase.Category
	detail uint32
	bom    bool
}

func (d *Decoder) startLiteral(text string, cat tokbase.Category, detail uint32, bom bool) {
	d.lex = lexLiteral
	d.lit = literal{text: text, cat: cat, detail: detail, bom: bom}
}

func (d *Decoder) stepLiteral(c byte) error {
	if c != d.lit.text[d.lit.idx] {
		return d.fail(tokerr.InvalidGrammar, "bad input")
	}
	last := d.lit.idx+1 == len(d.lit.text)
	p := tokbase.Token{Length: 1, Category: d.lit.cat, Continued: !last}
	if last {
		p.Detail = d.lit.detail
	}
	if err := d.put(p); err != nil {
		return err
	}
	d.lit.idx++
	if !last {
		return nil
	}
	d.lex = lexNone
	if !d.lit.bom {
		d.valueDone()
	}
	return nil
}
