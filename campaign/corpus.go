package campaign

import (
	"encoding/binary"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Input is one corpus file.
type Input struct {
	Path string
	Data []byte
}

// LoadCorpus reads every regular file named by paths, descending into
// directories. Inputs are sorted by path and each file appears once.
func LoadCorpus(paths []string, maxBytes int64) ([]Input, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			files = append(files, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("corpus path: %w", err)
		}
		if !info.IsDir() {
			add(filepath.Clean(root))
			continue
		}
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() {
				add(filepath.Clean(p))
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk corpus %s: %w", root, err)
		}
	}
	sort.Strings(files)

	inputs := make([]Input, 0, len(files))
	for _, p := range files {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("corpus file: %w", err)
		}
		if info.Size() > maxBytes {
			return nil, fmt.Errorf("corpus file %s is %d bytes, over the %d byte limit", p, info.Size(), maxBytes)
		}
		data, err := os.ReadFile(p) //nolint:gosec // corpus paths are explicit operator input.
		if err != nil {
			return nil, fmt.Errorf("read corpus file: %w", err)
		}
		inputs = append(inputs, Input{Path: p, Data: data})
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("corpus is empty")
	}
	return inputs, nil
}

// SeedsFor derives n session hashes for data from base. The same data and
// base always give the same seeds, and changing either changes all of
// them.
func SeedsFor(data []byte, base uint64, n int) []uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], base)
	d := xxhash.New()
	_, _ = d.Write(buf[:8])
	_, _ = d.Write(data)
	root := d.Sum64()

	seeds := make([]uint64, n)
	binary.LittleEndian.PutUint64(buf[:8], root)
	for i := range seeds {
		binary.LittleEndian.PutUint64(buf[8:], uint64(i))
		seeds[i] = xxhash.Sum64(buf[:])
	}
	return seeds
}
