package extractor

import (
	"bytes"
	"fmt"

	"tkmoveset/moveset"
	"tkmoveset/process"
	"tkmoveset/relocate"
)

// MaxBlockSize bounds a single foreign copy
const MaxBlockSize = 512 << 20

// ExtractBlock copies [start, end) out of the foreign process. Bytes are not interpreted.
// An empty range yields a zeroed MinBlockSize placeholder.
func ExtractBlock(r process.MemoryReader, start, end uint64) ([]byte, error) {
	if end == start {
		return make([]byte, moveset.MinBlockSize), nil
	}
	if end < start || end-start > MaxBlockSize {
		return nil, fmt.Errorf("%w: cannot hold block [0x%x, 0x%x)", moveset.ErrAllocation, start, end)
	}

	size := process.ProcessMemorySize(end - start)
	data, err := r.ReadMemory(process.ProcessMemoryAddress(start), size)
	if err != nil {
		return nil, fmt.Errorf("%w: block [0x%x, 0x%x): %w", moveset.ErrRead, start, end, err)
	}
	if len(data) != int(size) {
		return nil, fmt.Errorf("%w: block [0x%x, 0x%x): short read of %d bytes", moveset.ErrRead, start, end, len(data))
	}

	// Readers may hand out views of their own memory
	return bytes.Clone(data), nil
}

// ExtractSpan copies span, or returns the placeholder when it is empty
func ExtractSpan(r process.MemoryReader, span relocate.Span) ([]byte, error) {
	if span.Empty {
		return make([]byte, moveset.MinBlockSize), nil
	}
	return ExtractBlock(r, span.Start, span.End)
}
