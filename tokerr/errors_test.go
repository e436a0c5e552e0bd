package tokerr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lattice-substrate/json-tokfuzz/tokerr"
)

func TestFailureClassExitCodes(t *testing.T) {
	cases := []struct {
		class    tokerr.FailureClass
		wantExit int
	}{
		{tokerr.InvalidGrammar, 2},
		{tokerr.InvalidUTF8, 2},
		{tokerr.InvalidEscape, 2},
		{tokerr.InvalidControl, 2},
		{tokerr.UnexpectedEOF, 2},
		{tokerr.BoundExceeded, 2},
		{tokerr.InvalidArgument, 2},
		{tokerr.CLIUsage, 2},
		{tokerr.ProtocolViolation, 3},
		{tokerr.InternalIO, 10},
		{tokerr.InternalError, 10},
	}
	for _, tc := range cases {
		if got := tc.class.ExitCode(); got != tc.wantExit {
			t.Errorf("%s.ExitCode() = %d, want %d", tc.class, got, tc.wantExit)
		}
	}
}

func TestErrorFormat(t *testing.T) {
	e := tokerr.New(tokerr.InvalidUTF8, 42, "bad UTF-8")
	if e.Error() != "tokerr: INVALID_UTF8 at byte 42: bad UTF-8" {
		t.Fatalf("unexpected error string: %s", e.Error())
	}
}

func TestErrorFormatNoOffset(t *testing.T) {
	e := tokerr.New(tokerr.InternalError, -1, "unexpected state")
	if e.Error() != "tokerr: INTERNAL_ERROR: unexpected state" {
		t.Fatalf("unexpected error string: %s", e.Error())
	}
}

func TestViolationFormat(t *testing.T) {
	e := tokerr.Violation("ti != ri")
	if e.Error() != "tokerr: PROTOCOL_VIOLATION: internal error: ti != ri" {
		t.Fatalf("unexpected error string: %s", e.Error())
	}
	if !tokerr.IsViolation(e) {
		t.Fatal("IsViolation = false")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	e := tokerr.Wrap(tokerr.InternalIO, -1, "write failed", cause)
	if !errors.Is(e, cause) {
		t.Fatal("Unwrap did not return cause")
	}
	if got := e.Error(); got != "tokerr: INTERNAL_IO: write failed: underlying" {
		t.Fatalf("unexpected wrapped error string: %s", got)
	}
}

func TestClassOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", tokerr.New(tokerr.BoundExceeded, 7, "depth"))
	if got := tokerr.ClassOf(wrapped); got != tokerr.BoundExceeded {
		t.Fatalf("ClassOf = %s, want BOUND_EXCEEDED", got)
	}
	if got := tokerr.ClassOf(errors.New("plain")); got != tokerr.InternalError {
		t.Fatalf("ClassOf(plain) = %s, want INTERNAL_ERROR", got)
	}
	if tokerr.IsViolation(nil) {
		t.Fatal("IsViolation(nil) = true")
	}
}
