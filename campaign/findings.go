package campaign

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/lattice-substrate/json-tokfuzz/tokerr"
)

// Finding is one session that ended in a protocol violation. Input and
// Seed are enough to replay it with conform.Fuzz.
type Finding struct {
	ID      string    `msgpack:"id"`
	Path    string    `msgpack:"path"`
	Seed    uint64    `msgpack:"seed"`
	Input   []byte    `msgpack:"input"`
	Class   string    `msgpack:"class"`
	Message string    `msgpack:"message"`
	FoundAt time.Time `msgpack:"found_at"`
}

// NewFinding records a failed session.
func NewFinding(path string, seed uint64, input []byte, err error, now time.Time) Finding {
	return Finding{
		ID:      uuid.NewString(),
		Path:    path,
		Seed:    seed,
		Input:   append([]byte(nil), input...),
		Class:   string(tokerr.ClassOf(err)),
		Message: err.Error(),
		FoundAt: now.UTC(),
	}
}

// FindingWriter appends findings to a msgpack stream, one value per
// finding. It is safe for concurrent use.
type FindingWriter struct {
	mu     sync.Mutex
	enc    *msgpack.Encoder
	closer io.Closer
	n      int
}

// NewFindingWriter writes findings to w.
func NewFindingWriter(w io.Writer) *FindingWriter {
	return &FindingWriter{enc: msgpack.NewEncoder(w)}
}

// CreateFindings truncates or creates the file at path.
func CreateFindings(path string) (*FindingWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600) //nolint:gosec // findings path is explicit operator input.
	if err != nil {
		return nil, fmt.Errorf("create findings file: %w", err)
	}
	fw := NewFindingWriter(f)
	fw.closer = f
	return fw, nil
}

// Write appends f.
func (fw *FindingWriter) Write(f Finding) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if err := fw.enc.Encode(&f); err != nil {
		return fmt.Errorf("encode finding: %w", err)
	}
	fw.n++
	return nil
}

// Count returns the number of findings written.
func (fw *FindingWriter) Count() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.n
}

// Close closes the underlying file, if CreateFindings opened one.
func (fw *FindingWriter) Close() error {
	if fw.closer == nil {
		return nil
	}
	return fw.closer.Close()
}

// ReadFindings decodes a stream written by FindingWriter.
func ReadFindings(r io.Reader) ([]Finding, error) {
	dec := msgpack.NewDecoder(r)
	var out []Finding
	for {
		if _, err := dec.PeekCode(); errors.Is(err, io.EOF) {
			return out, nil
		}
		var f Finding
		if err := dec.Decode(&f); err != nil {
			return out, fmt.Errorf("decode finding %d: %w", len(out), err)
		}
		out = append(out, f)
	}
}

// LoadFindings reads the findings file at path.
func LoadFindings(path string) ([]Finding, error) {
	f, err := os.Open(path) //nolint:gosec // findings path is explicit operator input.
	if err != nil {
		return nil, fmt.Errorf("open findings file: %w", err)
	}
	defer f.Close()
	return ReadFindings(f)
}
