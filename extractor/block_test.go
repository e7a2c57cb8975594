package extractor

import (
	"testing"

	"tkmoveset/moveset"
	"tkmoveset/process_blob"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBlock(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	blob := process_blob.NewProcessBlob(0x1000, data)

	block, err := ExtractBlock(blob, 0x1002, 0x1006)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 4, 5, 6}, block)

	// The copy does not alias the reader
	block[0] = 0xFF
	assert.Equal(t, byte(3), data[2])
}

func TestExtractBlockEmpty(t *testing.T) {
	block, err := ExtractBlock(nil, 0x1000, 0x1000)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, moveset.MinBlockSize), block)
}

func TestExtractBlockErrors(t *testing.T) {
	blob := process_blob.NewProcessBlob(0x1000, make([]byte, 8))

	_, err := ExtractBlock(blob, 0x1008, 0x1000)
	assert.ErrorIs(t, err, moveset.ErrAllocation)

	_, err = ExtractBlock(blob, 0x1000, 0x1000+MaxBlockSize+1)
	assert.ErrorIs(t, err, moveset.ErrAllocation)

	_, err = ExtractBlock(blob, 0x1004, 0x1010)
	assert.ErrorIs(t, err, moveset.ErrRead)
}
