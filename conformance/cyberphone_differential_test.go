package conformance_test

import (
	"bytes"
	"testing"

	cyberphone "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"

	"github.com/lattice-substrate/json-tokfuzz/conform"
	"github.com/lattice-substrate/json-tokfuzz/tokbase"
	"github.com/lattice-substrate/json-tokfuzz/tokerr"
	"github.com/lattice-substrate/json-tokfuzz/tokjson"
)

// Documents both parsers agree on. Each is an object or array, the only
// top-level shapes the Cyberphone canonicalizer accepts.
var agreedDocuments = []struct {
	name  string
	input string
	valid bool
}{
	{"empty_object", `{}`, true},
	{"empty_array", `[]`, true},
	{"nested", `{"a":{"b":[1,[2,[3]]]},"c":[]}`, true},
	{"numbers", `[0,-0,1.5,-2e10,3E-3,1e+2]`, true},
	{"escapes", `{"s":"\"\\\/\b\f\n\r\té😀"}`, true},
	{"utf8", `{"k":"café ☃ 😀"}`, true},
	{"whitespace", " {\n\t\"a\" :\r\n [ 1 , 2 ] } ", true},
	{"trailing_comma_array", `[1,]`, false},
	{"trailing_comma_object", `{"a":1,}`, false},
	{"missing_colon", `{"a" 1}`, false},
	{"bad_literal", `{"a":tru}`, false},
	{"truncated", `[1,2`, false},
	{"unterminated_string", `{"a":"b}`, false},
	{"single_quoted", `{'a':1}`, false},
	{"comment", `{/* c */"a":1}`, false},
}

func engineAccepts(input []byte) error {
	_, err := tokjson.DecodeAll(input)
	return err
}

func TestCyberphoneGoDifferentialAgreement(t *testing.T) {
	for _, tc := range agreedDocuments {
		t.Run(tc.name, func(t *testing.T) {
			_, cyberErr := cyberphone.Transform([]byte(tc.input))
			engineErr := engineAccepts([]byte(tc.input))
			if (cyberErr == nil) != tc.valid {
				t.Fatalf("cyberphone valid=%v, want %v (err=%v)", cyberErr == nil, tc.valid, cyberErr)
			}
			if (engineErr == nil) != tc.valid {
				t.Fatalf("engine valid=%v, want %v (err=%v)", engineErr == nil, tc.valid, engineErr)
			}

			// Seeds may enable quirks that admit an invalid document, but
			// never ones that reject a valid one.
			for _, seed := range sampleSeeds(8) {
				err := conform.Fuzz([]byte(tc.input), seed)
				if tokerr.IsViolation(err) {
					t.Fatalf("seed %#x: %v", seed, err)
				}
				if tc.valid && err != nil {
					t.Fatalf("seed %#x: valid document rejected: %v", seed, err)
				}
			}
		})
	}
}

// These vectors document observed cases where the Cyberphone Go canonicalizer
// accepts and rewrites inputs that the tokenizer rejects.
func TestCyberphoneGoDifferentialInvalidAcceptance(t *testing.T) {
	type testCase struct {
		name        string
		input       []byte
		cyberOutput []byte
		wantClass   tokerr.FailureClass
	}

	cases := []testCase{
		{
			name:        "hex_float_literal",
			input:       []byte(`{"n":0x1p-2}`),
			cyberOutput: []byte(`{"n":0.25}`),
			wantClass:   tokerr.InvalidGrammar,
		},
		{
			name:        "plus_prefixed_number",
			input:       []byte(`{"n":+1}`),
			cyberOutput: []byte(`{"n":1}`),
			wantClass:   tokerr.InvalidGrammar,
		},
		{
			name:        "leading_zero_number",
			input:       []byte(`{"n":01}`),
			cyberOutput: []byte(`{"n":1}`),
			wantClass:   tokerr.InvalidGrammar,
		},
		{
			name:        "invalid_utf8_in_string",
			input:       []byte{'{', '"', 's', '"', ':', '"', 0xff, '"', '}'},
			cyberOutput: []byte{'{', '"', 's', '"', ':', '"', 0xff, '"', '}'},
			wantClass:   tokerr.InvalidUTF8,
		},
		{
			name:        "invalid_surrogate_pair",
			input:       []byte(`{"s":"\uD800\u0041"}`),
			cyberOutput: []byte("{\"s\":\"\uFFFD\"}"),
			wantClass:   tokerr.InvalidEscape,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotCyber, err := cyberphone.Transform(tc.input)
			if err != nil {
				t.Fatalf("cyberphone unexpectedly rejected input: %v", err)
			}
			if !bytes.Equal(gotCyber, tc.cyberOutput) {
				t.Fatalf("cyberphone output mismatch got=%q want=%q", gotCyber, tc.cyberOutput)
			}

			err = engineAccepts(tc.input)
			if err == nil {
				t.Fatal("engine accepted input")
			}
			if got := tokerr.ClassOf(err); got != tc.wantClass {
				t.Fatalf("engine class %s, want %s (err=%v)", got, tc.wantClass, err)
			}
		})
	}
}

// With replace_invalid_unicode the tokenizer converges on Cyberphone's
// U+FFFD for a bad surrogate, one replacement per unpaired escape.
func TestCyberphoneGoDifferentialReplacement(t *testing.T) {
	toks, err := tokjson.DecodeAll([]byte(`{"s":"\uD800"}`), tokjson.QuirkReplaceInvalidUnicode)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var replaced int
	for _, tk := range toks {
		if tk.Category == tokbase.CategoryUnicodeCodePoint && tk.Detail == 0xFFFD {
			replaced++
		}
	}
	if replaced != 1 {
		t.Fatalf("expected one U+FFFD token, got %d in %v", replaced, toks)
	}
}
