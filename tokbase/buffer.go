package tokbase

// IOBuffer is a byte window with a read index and a write index. Bytes in
// Data[RI:WI] are available to a reader. Closed means no bytes will ever
// follow Data[WI-1].
type IOBuffer struct {
	Data   []byte
	WI     int
	RI     int
	Closed bool

	// Pos is the stream position of Data[0].
	Pos uint64
}

// NewReader returns a closed IOBuffer holding all of data.
func NewReader(data []byte) *IOBuffer {
	return &IOBuffer{Data: data, WI: len(data), Closed: true}
}

// ReaderLength returns the number of unread bytes.
func (b *IOBuffer) ReaderLength() int {
	return b.WI - b.RI
}

// ReaderPosition returns the stream position of Data[RI].
func (b *IOBuffer) ReaderPosition() uint64 {
	return b.Pos + uint64(b.RI)
}

// Compact discards read bytes, moving the unread ones to the front and
// advancing Pos to match.
func (b *IOBuffer) Compact() {
	if b.RI == 0 {
		return
	}
	n := copy(b.Data, b.Data[b.RI:b.WI])
	b.Pos += uint64(b.RI)
	b.WI = n
	b.RI = 0
}

// LimitedReader returns a view of b's unread bytes holding at most limit
// of them. The view starts at RI 0 and shares b's backing array, so b is
// never compacted or rewound. The view is closed only if b is closed and
// the view reaches b's end.
func LimitedReader(b *IOBuffer, limit uint64) IOBuffer {
	n := uint64(b.WI - b.RI)
	closed := b.Closed
	if n > limit {
		n = limit
		closed = false
	}
	return IOBuffer{
		Data:   b.Data[b.RI : b.RI+int(n) : b.RI+int(n)],
		WI:     int(n),
		RI:     0,
		Closed: closed,
		Pos:    b.ReaderPosition(),
	}
}

// TokenBuffer is a token window with a read index and a write index.
// Tokens in Data[RI:WI] have been produced but not yet consumed.
type TokenBuffer struct {
	Data []Token
	WI   int
	RI   int
}

// NewTokenBuffer returns an empty TokenBuffer with the given capacity.
func NewTokenBuffer(capacity int) *TokenBuffer {
	return &TokenBuffer{Data: make([]Token, capacity)}
}

// WriterLength returns the number of free slots after WI.
func (b *TokenBuffer) WriterLength() int {
	return len(b.Data) - b.WI
}

// Compact discards consumed tokens, moving the unconsumed ones to the
// front without reordering them.
func (b *TokenBuffer) Compact() {
	if b.RI == 0 {
		return
	}
	n := copy(b.Data, b.Data[b.RI:b.WI])
	b.WI = n
	b.RI = 0
}
