package tokbase

import "unicode/utf8"

// LongestValidUTF8Prefix returns the length of the longest prefix of b
// that is valid UTF-8. Encoded surrogates and overlong forms are invalid.
func LongestValidUTF8Prefix(b []byte) int {
	n := 0
	for n < len(b) {
		if b[n] < utf8.RuneSelf {
			n++
			continue
		}
		r, size := utf8.DecodeRune(b[n:])
		if r == utf8.RuneError && size <= 1 {
			break
		}
		n += size
	}
	return n
}

// LongestValidASCIIPrefix returns the length of the longest prefix of b
// whose bytes are all below 0x80.
func LongestValidASCIIPrefix(b []byte) int {
	for i, c := range b {
		if c >= utf8.RuneSelf {
			return i
		}
	}
	return len(b)
}
