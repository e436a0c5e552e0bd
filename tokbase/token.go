// Package tokbase holds the types shared by a token-emitting decoder and
// its callers: tokens, source and token buffers, and the suspension
// statuses that let a decode call return early and be resumed.
package tokbase

import "fmt"

// MaxTokenLength is the largest source span a single token may cover.
const MaxTokenLength = 0xFFFF

// Category discriminates what a token's value means.
type Category uint8

const (
	CategoryFiller Category = iota
	CategoryStructure
	CategoryString
	CategoryUnicodeCodePoint
	CategoryLiteral
	CategoryNumber
)

func (c Category) String() string {
	switch c {
	case CategoryFiller:
		return "filler"
	case CategoryStructure:
		return "structure"
	case CategoryString:
		return "string"
	case CategoryUnicodeCodePoint:
		return "code_point"
	case CategoryLiteral:
		return "literal"
	case CategoryNumber:
		return "number"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// Structure detail bits.
const (
	StructurePush     uint32 = 0x00001
	StructurePop      uint32 = 0x00002
	StructureFromNone uint32 = 0x00010
	StructureFromList uint32 = 0x00020
	StructureFromDict uint32 = 0x00040
	StructureToNone   uint32 = 0x01000
	StructureToList   uint32 = 0x02000
	StructureToDict   uint32 = 0x04000
)

// String detail bits.
const (
	StringDefinitelyUTF8      uint32 = 0x00001
	StringDefinitelyASCII     uint32 = 0x00004
	StringConvert0Dst1SrcDrop uint32 = 0x00100
	StringConvert1Dst1SrcCopy uint32 = 0x00200
)

// Literal detail bits.
const (
	LiteralNull  uint32 = 0x00002
	LiteralFalse uint32 = 0x00004
	LiteralTrue  uint32 = 0x00008
)

// Number detail bits.
const (
	NumberContentFloatingPoint uint32 = 0x00001
	NumberContentIntegerSigned uint32 = 0x00002
	NumberContentNegInf        uint32 = 0x00010
	NumberContentPosInf        uint32 = 0x00020
	NumberContentNaN           uint32 = 0x00040
	NumberFormatText           uint32 = 0x00200
)

// Filler detail bits. Plain whitespace has a zero detail.
const (
	FillerPunctuation  uint32 = 0x00001
	FillerCommentBlock uint32 = 0x00002
	FillerCommentLine  uint32 = 0x00004
)

// Unicode limits checked against code point tokens.
const (
	SurrogateMinIncl = 0xD800
	SurrogateMaxIncl = 0xDFFF
	CodePointMaxIncl = 0x10FFFF
)

// Token describes one contiguous span of decoded source. For code point
// tokens Detail holds the code point itself.
type Token struct {
	Length   int
	Category Category
	Detail   uint32

	// Continued marks an unfinished prefix of a larger logical token.
	Continued bool

	// Extension marks a token whose value continues the previous token's
	// value. The previous token is always Continued.
	Extension bool
}

func (t Token) String() string {
	flags := ""
	if t.Continued {
		flags += "c"
	}
	if t.Extension {
		flags += "x"
	}
	if flags == "" {
		flags = "-"
	}
	return fmt.Sprintf("%s len=%d detail=0x%06X %s", t.Category, t.Length, t.Detail, flags)
}

// IsPush reports whether t opens a container.
func (t Token) IsPush() bool {
	return t.Category == CategoryStructure && t.Detail&StructurePush != 0
}

// IsPop reports whether t closes a container.
func (t Token) IsPop() bool {
	return t.Category == CategoryStructure && t.Detail&StructurePop != 0
}
