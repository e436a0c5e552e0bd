package tokjson

import (
	"fmt"

	"github.com/lattice-substrate/json-tokfuzz/tokbase"
	"github.com/lattice-substrate/json-tokfuzz/tokerr"
)

type containerKind uint8

const (
	kindList containerKind = iota + 1
	kindDict
)

// expect is what the grammar allows next when no lexeme is in progress.
type expect uint8

const (
	expValue expect = iota
	expListFirst
	expListNext
	expDictFirst
	expDictNext
	expColon
	expCommaOrClose
	expTrailing
)

// lexState is the lexeme in progress, if any.
type lexState uint8

const (
	lexNone lexState = iota
	lexString
	lexEscape
	lexHex
	lexSurrogateBackslash
	lexSurrogateU
	lexUTF8Tail
	lexNumber
	lexLiteral
	lexCommentStart
	lexCommentBlock
	lexCommentLine
)

// Decoder is a resumable JSON tokenizer. The zero value must be
// initialized with Initialize before use.
type Decoder struct {
	initialized bool
	used        bool
	end         bool
	err         error
	quirks      [quirkCount + 1]bool

	stack    []containerKind
	expect   expect
	lex      lexState
	consumed uint64

	strIsKey  bool
	utf8CP    uint32
	utf8Seen  int
	utf8Left  int
	utf8Lo    byte
	utf8Hi    byte
	hexKind   hexKind
	hexLeft   int
	hexVal    uint32
	high      uint32
	num       numState
	numLen    int
	numFloat  bool
	lit       literal
	blockStar bool

	// The token being built. It always has a reserved slot in dst.
	pending       tokbase.Token
	hasPending    bool
	prevContinued bool

	dst *tokbase.TokenBuffer
	src *tokbase.IOBuffer
}

// Initialize resets d to its starting state.
func (d *Decoder) Initialize(flags InitFlag) error {
	if flags&^initFlagMask != 0 {
		return tokerr.New(tokerr.InvalidArgument, -1, fmt.Sprintf("unsupported init flags 0x%X", uint32(flags)))
	}
	stack := d.stack[:0]
	*d = Decoder{initialized: true, stack: stack}
	return nil
}

// SetQuirk enables or disables q. Quirks may only be changed between
// Initialize and the first DecodeTokens call.
func (d *Decoder) SetQuirk(q Quirk, enabled bool) error {
	switch {
	case !d.initialized:
		return tokerr.New(tokerr.InvalidArgument, -1, "initialize not called")
	case d.used:
		return tokerr.New(tokerr.InvalidArgument, -1, "set quirk after first use")
	case !q.valid():
		return tokerr.New(tokerr.InvalidArgument, -1, fmt.Sprintf("unsupported %s", q))
	}
	d.quirks[q] = enabled
	return nil
}

// QuirkEnabled reports whether q is enabled.
func (d *Decoder) QuirkEnabled(q Quirk) bool {
	return q.valid() && d.quirks[q]
}

// DecodeTokens decodes from src into dst. It returns nil once the
// top-level value (and, with QuirkAllowTrailingFiller, the trailing
// filler) is complete, tokbase.ErrShortRead when src needs more bytes,
// tokbase.ErrShortWrite when dst needs more room, and a *tokerr.Error
// otherwise. Failures are sticky. workbuf may be nil.
func (d *Decoder) DecodeTokens(dst *tokbase.TokenBuffer, src *tokbase.IOBuffer, workbuf []byte) (err error) {
	switch {
	case !d.initialized:
		return tokerr.New(tokerr.InvalidArgument, -1, "initialize not called")
	case dst == nil || src == nil:
		return tokerr.New(tokerr.InvalidArgument, -1, "nil buffer")
	case len(workbuf) < WorkbufLenMaxInclWorstCase:
		return tokerr.New(tokerr.InvalidArgument, -1, "short work buffer")
	case d.err != nil:
		return d.err
	case d.end:
		return nil
	}
	d.used = true
	d.dst, d.src = dst, src
	defer func() {
		if d.hasPending {
			d.flush()
		}
		d.dst, d.src = nil, nil
		if err != nil && !tokbase.IsSuspension(err) {
			d.err = err
		}
	}()

	for !d.end {
		if src.RI >= src.WI {
			if !src.Closed {
				return tokbase.ErrShortRead
			}
			if err := d.atEOF(); err != nil {
				return err
			}
			continue
		}
		if err := d.step(src.Data[src.RI]); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) step(c byte) error {
	switch d.lex {
	case lexString:
		return d.stepString(c)
	case lexEscape:
		return d.stepEscape(c)
	case lexHex:
		return d.stepHex(c)
	case lexSurrogateBackslash:
		return d.stepSurrogateBackslash(c)
	case lexSurrogateU:
		return d.stepSurrogateU(c)
	case lexUTF8Tail:
		return d.stepUTF8Tail(c)
	case lexNumber:
		return d.stepNumber(c)
	case lexLiteral:
		return d.stepLiteral(c)
	case lexCommentStart:
		return d.stepCommentStart(c)
	case lexCommentBlock:
		return d.stepCommentBlock(c)
	case lexCommentLine:
		return d.stepCommentLine(c)
	}
	return d.stepNone(c)
}

// atEOF handles a closed, fully consumed source. It either finishes the
// lexeme or document in progress or fails.
func (d *Decoder) atEOF() error {
	switch d.lex {
	case lexNone:
		if d.expect == expTrailing {
			d.end = true
			return nil
		}
	case lexNumber:
		if d.num.accepting() {
			return d.finishNumber()
		}
	case lexCommentLine:
		if err := d.put(tokbase.Token{Category: tokbase.CategoryFiller, Detail: tokbase.FillerCommentLine}); err != nil {
			return err
		}
		d.lex = lexNone
		return nil
	case lexUTF8Tail:
		// The string is still open after the replacements, so a resumed
		// loop reaches the unexpected EOF below.
		return d.abandonUTF8()
	}
	return d.fail(tokerr.UnexpectedEOF, "unexpected EOF")
}

func (d *Decoder) stepNone(c byte) error {
	switch c {
	case ' ', '\t', '\n', '\r':
		return d.put(tokbase.Token{Length: d.scanWhitespace(), Category: tokbase.CategoryFiller})
	case '/':
		if d.quirks[QuirkAllowCommentBlock] || d.quirks[QuirkAllowCommentLine] {
			p := tokbase.Token{
				Length:    1,
				Category:  tokbase.CategoryFiller,
				Detail:    tokbase.FillerCommentBlock | tokbase.FillerCommentLine,
				Continued: true,
			}
			if err := d.put(p); err != nil {
				return err
			}
			d.lex = lexCommentStart
			return nil
		}
	}

	if d.consumed == 0 {
		switch {
		case c == 0x1E && d.quirks[QuirkAllowLeadingASCIIRecordSeparator]:
			return d.put(tokbase.Token{Length: 1, Category: tokbase.CategoryFiller})
		case c == 0xEF && d.quirks[QuirkAllowLeadingUnicodeByteOrderMark]:
			d.startLiteral(byteOrderMark, tokbase.CategoryFiller, 0, true)
			return nil
		}
	}

	switch d.expect {
	case expColon:
		if c == ':' {
			if err := d.putPunctuation(); err != nil {
				return err
			}
			d.expect = expValue
			return nil
		}
	case expCommaOrClose:
		switch {
		case c == ',':
			if err := d.putPunctuation(); err != nil {
				return err
			}
			if d.top() == kindList {
				d.expect = expListNext
			} else {
				d.expect = expDictNext
			}
			return nil
		case c == ']' && d.top() == kindList, c == '}' && d.top() == kindDict:
			return d.pop()
		}
	case expDictFirst, expDictNext:
		switch {
		case c == '"':
			return d.startString(true)
		case c == '}' && (d.expect == expDictFirst || d.quirks[QuirkAllowExtraComma]):
			return d.pop()
		}
	case expListFirst, expListNext:
		if c == ']' && (d.expect == expListFirst || d.quirks[QuirkAllowExtraComma]) {
			return d.pop()
		}
		return d.startValue(c)
	case expValue:
		return d.startValue(c)
	}
	return d.fail(tokerr.InvalidGrammar, "bad input")
}

func (d *Decoder) startValue(c byte) error {
	switch c {
	case '"':
		return d.startString(false)
	case '[':
		return d.push(kindList)
	case '{':
		return d.push(kindDict)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		d.lex = lexNumber
		d.num = numStart
		d.numLen = 0
		d.numFloat = false
		return nil
	case 't':
		d.startLiteral("true", tokbase.CategoryLiteral, tokbase.LiteralTrue, false)
		return nil
	case 'f':
		d.startLiteral("false", tokbase.CategoryLiteral, tokbase.LiteralFalse, false)
		return nil
	case 'n':
		d.startLiteral("null", tokbase.CategoryLiteral, tokbase.LiteralNull, false)
		return nil
	case 'N':
		if d.quirks[QuirkAllowInfNanNumbers] {
			d.startLiteral("NaN", tokbase.CategoryNumber, tokbase.NumberContentNaN|tokbase.NumberFormatText, false)
			return nil
		}
	case 'I':
		if d.quirks[QuirkAllowInfNanNumbers] {
			d.startLiteral("Infinity", tokbase.CategoryNumber, tokbase.NumberContentPosInf|tokbase.NumberFormatText, false)
			return nil
		}
	}
	return d.fail(tokerr.InvalidGrammar, "bad input")
}

func (d *Decoder) top() containerKind {
	if len(d.stack) == 0 {
		return 0
	}
	return d.stack[len(d.stack)-1]
}

func fromBits(k containerKind) uint32 {
	switch k {
	case kindList:
		return tokbase.StructureFromList
	case kindDict:
		return tokbase.StructureFromDict
	}
	return tokbase.StructureFromNone
}

func toBits(k containerKind) uint32 {
	switch k {
	case kindList:
		return tokbase.StructureToList
	case kindDict:
		return tokbase.StructureToDict
	}
	return tokbase.StructureToNone
}

func (d *Decoder) push(k containerKind) error {
	if len(d.stack) >= DepthMaxIncl {
		return d.fail(tokerr.BoundExceeded, "bad depth")
	}
	p := tokbase.Token{
		Length:   1,
		Category: tokbase.CategoryStructure,
		Detail:   tokbase.StructurePush | fromBits(d.top()) | toBits(k),
	}
	if err := d.put(p); err != nil {
		return err
	}
	d.stack = append(d.stack, k)
	if k == kindList {
		d.expect = expListFirst
	} else {
		d.expect = expDictFirst
	}
	return nil
}

func (d *Decoder) pop() error {
	from := d.top()
	var to containerKind
	if n := len(d.stack); n >= 2 {
		to = d.stack[n-2]
	}
	p := tokbase.Token{
		Length:   1,
		Category: tokbase.CategoryStructure,
		Detail:   tokbase.StructurePop | fromBits(from) | toBits(to),
	}
	if err := d.put(p); err != nil {
		return err
	}
	d.stack = d.stack[:len(d.stack)-1]
	d.valueDone()
	return nil
}

// valueDone moves the grammar past a complete value in the current
// container.
func (d *Decoder) valueDone() {
	if len(d.stack) > 0 {
		d.expect = expCommaOrClose
		return
	}
	if d.quirks[QuirkAllowTrailingFiller] {
		d.expect = expTrailing
		return
	}
	d.end = true
}

func (d *Decoder) putPunctuation() error {
	return d.put(tokbase.Token{Length: 1, Category: tokbase.CategoryFiller, Detail: tokbase.FillerPunctuation})
}

func (d *Decoder) scanWhitespace() int {
	b := d.src.Data[d.src.RI:d.src.WI]
	n := 0
	for n < len(b) && n < tokbase.MaxTokenLength {
		switch b[n] {
		case ' ', '\t', '\n', '\r':
			n++
			continue
		}
		break
	}
	return n
}

func (d *Decoder) stepCommentStart(c byte) error {
	var detail uint32
	switch {
	case c == '*' && d.quirks[QuirkAllowCommentBlock]:
		detail = tokbase.FillerCommentBlock
	case c == '/' && d.quirks[QuirkAllowCommentLine]:
		detail = tokbase.FillerCommentLine
	default:
		return d.fail(tokerr.InvalidGrammar, "bad input")
	}
	if err := d.put(tokbase.Token{Length: 1, Category: tokbase.CategoryFiller, Detail: detail, Continued: true}); err != nil {
		return err
	}
	if detail == tokbase.FillerCommentBlock {
		d.lex = lexCommentBlock
		d.blockStar = false
	} else {
		d.lex = lexCommentLine
	}
	return nil
}

func (d *Decoder) stepCommentBlock(c byte) error {
	closing := c == '/' && d.blockStar
	p := tokbase.Token{Length: 1, Category: tokbase.CategoryFiller, Detail: tokbase.FillerCommentBlock, Continued: !closing}
	if err := d.put(p); err != nil {
		return err
	}
	d.blockStar = c == '*'
	if closing {
		d.lex = lexNone
	}
	return nil
}

func (d *Decoder) stepCommentLine(c byte) error {
	closing := c == '\n'
	p := tokbase.Token{Length: 1, Category: tokbase.CategoryFiller, Detail: tokbase.FillerCommentLine, Continued: !closing}
	if err := d.put(p); err != nil {
		return err
	}
	if closing {
		d.lex = lexNone
	}
	return nil
}

func (d *Decoder) fail(class tokerr.FailureClass, msg string) error {
	return newError(class, d.src.ReaderPosition(), msg)
}

// put emits p and consumes p.Length source bytes. It consumes nothing and
// returns tokbase.ErrShortWrite when dst has no room for p.
func (d *Decoder) put(p tokbase.Token) error {
	if !d.emit(p) {
		return tokbase.ErrShortWrite
	}
	d.src.RI += p.Length
	d.consumed += uint64(p.Length)
	return nil
}

// room reports whether n more tokens can be started.
func (d *Decoder) room(n int) bool {
	if d.hasPending {
		n++
	}
	return d.dst.WriterLength() >= n
}

func (d *Decoder) emit(p tokbase.Token) bool {
	if d.hasPending && mergeable(d.pending, p) {
		d.pending.Length += p.Length
		d.pending.Continued = p.Continued
		if d.pending.Category == tokbase.CategoryString && p.Detail&tokbase.StringConvert1Dst1SrcCopy != 0 {
			d.pending.Detail &= p.Detail
		} else {
			d.pending.Detail = p.Detail
		}
		return true
	}
	if !d.room(1) {
		return false
	}
	if d.hasPending {
		d.flush()
	}
	p.Extension = d.prevContinued
	d.pending, d.hasPending = p, true
	return true
}

func (d *Decoder) flush() {
	d.dst.Data[d.dst.WI] = d.pending
	d.dst.WI++
	d.prevContinued = d.pending.Continued
	d.hasPending = false
}

// mergeable reports whether piece q can extend the pending token p.
func mergeable(p, q tokbase.Token) bool {
	if p.Category != q.Category || p.Length+q.Length > tokbase.MaxTokenLength {
		return false
	}
	switch p.Category {
	case tokbase.CategoryFiller:
		if p.Detail == 0 {
			return q.Detail == 0
		}
		// A comment narrows from "block or line" once its second byte is seen.
		return p.Continued && p.Detail&q.Detail != 0
	case tokbase.CategoryString:
		if !p.Continued {
			return false
		}
		if p.Detail&tokbase.StringConvert1Dst1SrcCopy != 0 {
			return q.Detail&tokbase.StringConvert1Dst1SrcCopy != 0
		}
		return p.Detail == q.Detail
	case tokbase.CategoryNumber, tokbase.CategoryLiteral:
		return p.Continued
	}
	return false
}
