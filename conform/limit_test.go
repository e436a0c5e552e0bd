package conform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lattice-substrate/json-tokfuzz/conform"
)

func TestBufferLimit(t *testing.T) {
	cases := []struct {
		hash, min, max uint64
		want           uint64
	}{
		{0x00, 1, 4096, 1},
		{0x1F, 1, 4096, 32},
		{0x20, 1, 4096, 4065},
		{0x3F, 1, 4096, 4096},
		{0xFFC0, 1, 4096, 1}, // only the low 6 bits count
		{0x10, 1, 4, 4},      // min + hash clamps to max
		{0x20, 1, 4, 4},      // max - 31 wraps and clamps to max
		{0x3F, 7, 7, 7},
	}
	for _, tc := range cases {
		got := conform.BufferLimit(tc.hash, tc.min, tc.max)
		assert.Equal(t, tc.want, got, "BufferLimit(%#x, %d, %d)", tc.hash, tc.min, tc.max)
	}
}

func TestBufferLimitStaysInRange(t *testing.T) {
	for h := uint64(0); h < 0x40; h++ {
		for _, r := range [][2]uint64{{1, 1}, {1, 64}, {1, 4096}, {100, 200}} {
			got := conform.BufferLimit(h, r[0], r[1])
			assert.GreaterOrEqual(t, got, r[0])
			assert.LessOrEqual(t, got, r[1])
		}
	}
}
