package conform

import (
	"github.com/lattice-substrate/json-tokfuzz/tokbase"
	"github.com/lattice-substrate/json-tokfuzz/tokerr"
	"github.com/lattice-substrate/json-tokfuzz/tokjson"
)

// Kind is the container a stack entry stands for.
type Kind uint8

const (
	KindNone Kind = iota
	KindList
	KindDict
)

func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	}
	return "none"
}

// StackSize bounds the stack: the top level plus the engine's deepest
// nesting.
const StackSize = tokjson.DepthMaxIncl + 1

type entry struct {
	kind Kind
	// odd is the parity of the number of complete values seen in the
	// container. A dict must be even when it closes.
	odd bool
}

// Stack mirrors the nesting the token stream describes. The zero value is
// not usable; call NewStack.
type Stack struct {
	entries []entry
	depth   int
}

// NewStack returns a stack at the top level.
func NewStack() *Stack {
	return &Stack{entries: make([]entry, StackSize)}
}

// Depth returns the current nesting depth. The top level is depth 0.
func (s *Stack) Depth() int { return s.depth }

// Top returns the kind of the innermost open container.
func (s *Stack) Top() Kind { return s.entries[s.depth].kind }

// Balanced reports whether every container opened has been closed.
func (s *Stack) Balanced() bool { return s.depth == 0 }

func (s *Stack) matches(detail uint32, none, list, dict uint32) bool {
	top := s.entries[s.depth].kind
	switch {
	case detail&none != 0:
		return top == KindNone
	case detail&list != 0:
		return top == KindList
	case detail&dict != 0:
		return top == KindDict
	}
	return false
}

// Apply folds one token into the stack: structure tokens push or pop, and
// every complete value flips the parity of its container.
func (s *Stack) Apply(t tokbase.Token) error {
	if t.Category == tokbase.CategoryStructure {
		if err := s.applyStructure(t.Detail); err != nil {
			return err
		}
	}
	if !t.Continued && t.Category != tokbase.CategoryFiller &&
		(t.Category != tokbase.CategoryStructure || t.Detail&tokbase.StructurePop != 0) {
		s.entries[s.depth].odd = !s.entries[s.depth].odd
	}
	return nil
}

func (s *Stack) applyStructure(vbd uint32) error {
	if !s.matches(vbd, tokbase.StructureFromNone, tokbase.StructureFromList, tokbase.StructureFromDict) {
		return tokerr.Violation("inconsistent structure from-container")
	}

	switch {
	case vbd&tokbase.StructurePush != 0:
		s.depth++
		if s.depth >= StackSize {
			s.depth--
			return tokerr.Violation("depth too large")
		}
		switch {
		case vbd&tokbase.StructureToNone != 0:
			return tokerr.Violation("push to the 'none' container")
		case vbd&tokbase.StructureToList != 0:
			s.entries[s.depth] = entry{kind: KindList}
		case vbd&tokbase.StructureToDict != 0:
			s.entries[s.depth] = entry{kind: KindDict}
		default:
			return tokerr.Violation("unrecognized structure to-container")
		}

	case vbd&tokbase.StructurePop != 0:
		if vbd&tokbase.StructureFromDict != 0 && s.entries[s.depth].odd {
			return tokerr.Violation("dictionary had an incomplete key/value pair")
		}
		if s.depth <= 0 {
			return tokerr.Violation("depth too small")
		}
		s.depth--
		if !s.matches(vbd, tokbase.StructureToNone, tokbase.StructureToList, tokbase.StructureToDict) {
			return tokerr.Violation("inconsistent structure to-container")
		}

	default:
		return tokerr.Violation("unrecognized structure token")
	}
	return nil
}
