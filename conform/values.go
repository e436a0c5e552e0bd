package conform

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lattice-substrate/json-tokfuzz/tokbase"
	"github.com/lattice-substrate/json-tokfuzz/tokerr"
	"github.com/lattice-substrate/json-tokfuzz/tokjson"
)

// ValueBufferSize is the size of the source buffer DecodeJSON reads into.
const ValueBufferSize = 4096

// Callbacks receives the values of a decoded document in order. A
// dictionary key arrives through AppendTextString just before its value.
// A non-nil error stops the decode and is returned unchanged.
type Callbacks interface {
	AppendNull() error
	AppendBool(v bool) error
	AppendI64(v int64) error
	AppendF64(v float64) error
	AppendTextString(s string) error
	// Push and Pop receive the structure token's detail bits.
	Push(flags uint32) error
	Pop(flags uint32) error
}

// ValueArgs configures DecodeJSON.
type ValueArgs struct {
	Quirks []tokjson.Quirk

	// Pointer is an RFC 6901 JSON pointer. When set, only the value it
	// names is reported and decoding stops after it.
	Pointer string
}

var errFragmentDone = errors.New("conform: fragment done")

// DecodeJSON decodes input with the engine and reports its values to cb.
// It returns nil, the engine's terminal status, an error from cb, or a
// protocol violation when the token stream cannot be turned into values.
func DecodeJSON(cb Callbacks, input io.Reader, args ValueArgs, opts ...Option) error {
	o := buildOptions(opts)
	ptr, err := parsePointer(args.Pointer)
	if err != nil {
		return err
	}
	dec, err := o.newEngine(0)
	if err != nil {
		return err
	}
	for _, q := range args.Quirks {
		if err := dec.SetQuirk(q, true); err != nil {
			return fmt.Errorf("set quirk %s: %w", q, err)
		}
	}

	w := &valueWalker{cb: cb, ptr: ptr}
	err = w.run(dec, input)
	switch {
	case errors.Is(err, errFragmentDone):
		return nil
	case err == nil && len(ptr) > 0 && !w.found:
		return tokerr.New(tokerr.InvalidArgument, -1, "JSON pointer not found")
	}
	return err
}

// parsePointer splits p into unescaped reference tokens.
func parsePointer(p string) ([]string, error) {
	if p == "" {
		return nil, nil
	}
	if p[0] != '/' {
		return nil, tokerr.New(tokerr.InvalidArgument, -1, "bad JSON pointer "+strconv.Quote(p))
	}
	refs := strings.Split(p[1:], "/")
	for i, ref := range refs {
		if !strings.Contains(ref, "~") {
			continue
		}
		var sb strings.Builder
		for j := 0; j < len(ref); j++ {
			if ref[j] != '~' {
				sb.WriteByte(ref[j])
				continue
			}
			j++
			switch {
			case j < len(ref) && ref[j] == '0':
				sb.WriteByte('~')
			case j < len(ref) && ref[j] == '1':
				sb.WriteByte('/')
			default:
				return nil, tokerr.New(tokerr.InvalidArgument, -1, "bad JSON pointer "+strconv.Quote(p))
			}
		}
		refs[i] = sb.String()
	}
	return refs, nil
}

type frame struct {
	dict   bool
	onPath bool
	// index counts list elements, or dictionary keys and values.
	index int
	key   string
}

// valueWalker turns a token stream into callbacks. It tracks every open
// container so that a pointer can be resolved while the stream goes by.
type valueWalker struct {
	cb  Callbacks
	ptr []string

	frames    []frame
	found     bool
	emitting  bool
	emitDepth int

	// text collects the bytes of a continued chain.
	text []byte
}

func (w *valueWalker) run(dec Engine, input io.Reader) error {
	src := &tokbase.IOBuffer{Data: make([]byte, ValueBufferSize)}
	tok := tokbase.NewTokenBuffer(TokBufferArraySize)
	workbuf := make([]byte, tokjson.WorkbufLenMaxInclWorstCase)

	for {
		ti, oldWI := src.RI, src.WI
		status := dec.DecodeTokens(tok, src, workbuf)
		if src.RI < ti || src.RI > src.WI || src.WI != oldWI {
			return tokerr.Violation("inconsistent src indexes")
		} else if tok.RI > tok.WI || tok.WI > len(tok.Data) {
			return tokerr.Violation("inconsistent tok indexes")
		}
		for ; tok.RI < tok.WI; tok.RI++ {
			t := tok.Data[tok.RI]
			if t.Length > src.RI-ti {
				return tokerr.Violation("length too long (vs wi - ti)")
			}
			if err := w.token(t, src.Data[ti:ti+t.Length]); err != nil {
				return err
			}
			ti += t.Length
		}
		tok.Compact()

		switch {
		case status == nil:
			return nil
		case errors.Is(status, tokbase.ErrShortWrite):
			continue
		case !errors.Is(status, tokbase.ErrShortRead):
			return status
		case src.Closed:
			return tokerr.Violation("short read on a closed source")
		}

		src.Compact()
		if src.ReaderLength() == len(src.Data) {
			return tokerr.Violation("short read with a full source buffer")
		}
		n, err := input.Read(src.Data[src.WI:])
		src.WI += n
		switch {
		case errors.Is(err, io.EOF):
			src.Closed = true
		case err != nil:
			return tokerr.Wrap(tokerr.InternalIO, -1, "read input", err)
		}
	}
}

func (w *valueWalker) token(t tokbase.Token, span []byte) error {
	switch t.Category {
	case tokbase.CategoryFiller:
		return nil
	case tokbase.CategoryStructure:
		if t.IsPush() {
			return w.push(t.Detail)
		}
		return w.pop(t.Detail)
	case tokbase.CategoryString:
		if t.Detail&tokbase.StringConvert1Dst1SrcCopy != 0 {
			w.text = append(w.text, span...)
		}
	case tokbase.CategoryUnicodeCodePoint:
		w.text = utf8.AppendRune(w.text, rune(t.Detail))
	case tokbase.CategoryLiteral, tokbase.CategoryNumber:
		w.text = append(w.text, span...)
	}
	if t.Continued {
		return nil
	}

	text := string(w.text)
	w.text = w.text[:0]
	switch t.Category {
	case tokbase.CategoryString, tokbase.CategoryUnicodeCodePoint:
		if n := len(w.frames); n > 0 && w.frames[n-1].dict && w.frames[n-1].index%2 == 0 {
			f := &w.frames[n-1]
			f.key = text
			f.index++
			if w.emitting {
				return w.cb.AppendTextString(text)
			}
			return nil
		}
		return w.scalar(func(cb Callbacks) error { return cb.AppendTextString(text) })
	case tokbase.CategoryLiteral:
		switch {
		case t.Detail&tokbase.LiteralNull != 0:
			return w.scalar(Callbacks.AppendNull)
		case t.Detail&tokbase.LiteralFalse != 0:
			return w.scalar(func(cb Callbacks) error { return cb.AppendBool(false) })
		case t.Detail&tokbase.LiteralTrue != 0:
			return w.scalar(func(cb Callbacks) error { return cb.AppendBool(true) })
		}
		return tokerr.Violation(fmt.Sprintf("unrecognized literal detail 0x%X", t.Detail))
	case tokbase.CategoryNumber:
		return w.number(t.Detail, text)
	}
	return tokerr.Violation(fmt.Sprintf("unrecognized token category %d", t.Category))
}

func (w *valueWalker) number(detail uint32, text string) error {
	switch {
	case detail&tokbase.NumberContentNaN != 0:
		return w.scalar(func(cb Callbacks) error { return cb.AppendF64(math.NaN()) })
	case detail&tokbase.NumberContentPosInf != 0:
		return w.scalar(func(cb Callbacks) error { return cb.AppendF64(math.Inf(1)) })
	case detail&tokbase.NumberContentNegInf != 0:
		return w.scalar(func(cb Callbacks) error { return cb.AppendF64(math.Inf(-1)) })
	case detail&tokbase.NumberContentIntegerSigned != 0:
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return w.scalar(func(cb Callbacks) error { return cb.AppendI64(i) })
		}
	}
	// Out of range values parse to an infinity or zero and are kept.
	f, err := strconv.ParseFloat(text, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return tokerr.Violation("unparsable number " + strconv.Quote(text))
	}
	return w.scalar(func(cb Callbacks) error { return cb.AppendF64(f) })
}

// enter starts a value at the current depth. It reports whether the value
// is reported and whether it lies on the pointer's path.
func (w *valueWalker) enter() (emit, onPath bool) {
	if w.emitting {
		return true, false
	}
	depth := len(w.frames)
	if depth == 0 {
		onPath = true
	} else if f := w.frames[depth-1]; f.onPath && depth <= len(w.ptr) {
		ref := w.ptr[depth-1]
		if f.dict {
			onPath = f.key == ref
		} else {
			onPath = ref == strconv.Itoa(f.index)
		}
	}
	if onPath && depth == len(w.ptr) {
		w.found, w.emitting, w.emitDepth = true, true, depth
		return true, true
	}
	return false, onPath
}

// leave ends the value that just finished at the current depth.
func (w *valueWalker) leave() error {
	if w.emitting && len(w.frames) == w.emitDepth {
		w.emitting = false
		if len(w.ptr) > 0 {
			return errFragmentDone
		}
	}
	if n := len(w.frames); n > 0 {
		w.frames[n-1].index++
	}
	return nil
}

func (w *valueWalker) scalar(emit func(Callbacks) error) error {
	if ok, _ := w.enter(); ok {
		if err := emit(w.cb); err != nil {
			return err
		}
	}
	return w.leave()
}

func (w *valueWalker) push(flags uint32) error {
	emit, onPath := w.enter()
	if emit {
		if err := w.cb.Push(flags); err != nil {
			return err
		}
	}
	w.frames = append(w.frames, frame{dict: flags&tokbase.StructureToDict != 0, onPath: onPath})
	return nil
}

func (w *valueWalker) pop(flags uint32) error {
	if len(w.frames) == 0 {
		return tokerr.Violation("pop with no open container")
	}
	w.frames = w.frames[:len(w.frames)-1]
	if w.emitting {
		if err := w.cb.Pop(flags); err != nil {
			return err
		}
	}
	return w.leave()
}
