package conform

// BufferLimit maps the low 6 bits of hash to a window size in [min, max].
// Values below 0x20 count up from min and the rest count down to max, so
// both extremes are reachable whatever the range.
func BufferLimit(hash, min, max uint64) uint64 {
	hash &= 0x3F
	var n uint64
	if hash < 0x20 {
		n = min + hash
	} else {
		n = max - (0x3F - hash)
	}
	if n < min {
		return min
	} else if n > max {
		return max
	}
	return n
}
