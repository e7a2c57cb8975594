package moveset

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFile() *File {
	f := &File{}
	f.Header.CharacterID = 12
	SetText(f.Header.TargetCharacter[:], "Devil Jin")
	SetText(f.Header.Origin[:], "Tekken 8")
	f.SetProperty(PropertyCharacterID, 12)
	f.SetProperty(PropertySchema, NameValue("t8"))

	info := bytes.Repeat([]byte{0xAB}, 0x170)
	moveset := make([]byte, 0x1234)
	for i := range moveset {
		moveset[i] = byte(i / 16)
	}
	f.SetBlock(BlockMovesetInfo, info)
	f.SetBlock(BlockTable, make([]byte, 0x148))
	f.SetBlock(BlockName, []byte("Devil Jin\x00Bandai\x00"))
	f.SetBlock(BlockMoveset, moveset)
	f.SetBlock(BlockMota, []byte("MOTA"))
	return f
}

func TestPackUnpackRoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionLZ4HC, CompressionZlib} {
		t.Run(c.String(), func(t *testing.T) {
			f := testFile()
			want := testFile()

			data, err := Pack(f, PackOptions{Compression: c})
			require.NoError(t, err)
			assert.Equal(t, c, f.Header.Compression)

			got, err := Unpack(data)
			require.NoError(t, err)
			require.NoError(t, got.VerifyCRC())
			assert.False(t, got.Modified())
			assert.Equal(t, "Devil Jin", got.CharacterName())
			assert.Equal(t, want.Properties, got.Properties)

			for id := BlockID(0); id < BlockCount; id++ {
				block := want.Block(id)
				if len(block) == 0 {
					// Empty blocks come back as the placeholder
					assert.Equal(t, make([]byte, MinBlockSize), got.Block(id), id.String())
					continue
				}
				padded := got.Block(id)
				require.Len(t, padded, align8(len(block)), id.String())
				assert.Equal(t, block, padded[:len(block)], id.String())
				assert.Equal(t, make([]byte, len(padded)-len(block)), padded[len(block):], id.String())
			}
		})
	}
}

func TestPackLayoutIsAligned(t *testing.T) {
	f := testFile()
	data, err := Pack(f, PackOptions{})
	require.NoError(t, err)

	h := f.Header
	assert.Equal(t, uint32(0), h.HeaderSize%8)
	assert.Equal(t, uint32(0), h.BlockList%8)
	assert.Equal(t, uint32(BlockCount), h.BlockListSize)
	assert.Equal(t, uint64(0), h.MovesetDataStart%8)
	assert.Equal(t, uint64(len(data)), h.MovesetDataStart+h.MovesetDataSize)

	// Property list ends with END
	props := data[h.HeaderSize:h.BlockList]
	decoded, terminated := decodeProperties(props)
	assert.True(t, terminated)
	assert.Len(t, decoded, 2)

	prev := uint64(0)
	for i := 0; i < int(BlockCount); i++ {
		off := binary.LittleEndian.Uint64(data[h.BlockList+uint32(i)*8:])
		assert.Equal(t, uint64(0), off%8)
		assert.GreaterOrEqual(t, off, prev)
		prev = off
	}
}

func TestChecksumIgnoresLayout(t *testing.T) {
	f := testFile()
	data, err := Pack(f, PackOptions{})
	require.NoError(t, err)

	// Move the data region 8 bytes further into the file
	h := f.Header
	h.MovesetDataStart += 8
	moved := append([]byte{}, h.encode()...)
	moved = append(moved, data[EncodedHeaderSize:f.Header.MovesetDataStart]...)
	moved = append(moved, make([]byte, 8)...)
	moved = append(moved, data[f.Header.MovesetDataStart:]...)

	got, err := Unpack(moved)
	require.NoError(t, err)
	assert.NoError(t, got.VerifyCRC())
	assert.Equal(t, f.Header.CRC32, got.Checksum())
}

func TestChecksumDependsOnContent(t *testing.T) {
	blocks := [][]byte{{1, 2, 3}, {4}}
	props := encodeProperties(nil)

	base := Checksum(props, blocks)
	assert.NotEqual(t, base, Checksum(props, [][]byte{{1, 2, 4}, {4}}))
	assert.NotEqual(t, base, Checksum(encodeProperties([]Property{{ID: PropertyMotaMask, Value: 1}}), blocks))
	// Padding is part of the sum
	assert.Equal(t, base, Checksum(props, [][]byte{{1, 2, 3, 0, 0, 0, 0, 0}, {4}}))
}

func TestPropertyCorruptionFailsIntegrity(t *testing.T) {
	f := testFile()
	data, err := Pack(f, PackOptions{Compression: CompressionLZ4})
	require.NoError(t, err)

	// Flip a bit in the CHARACTER_ID value
	data[f.Header.HeaderSize+8] ^= 0x40

	got, err := Unpack(data)
	require.NoError(t, err)
	assert.ErrorIs(t, got.VerifyCRC(), ErrIntegrity)

	value, ok := got.Property(PropertyCharacterID)
	require.True(t, ok)
	assert.Equal(t, uint64(12^0x40), value)
}

func TestRepackKeepsOriginalChecksum(t *testing.T) {
	f := testFile()
	_, err := Pack(f, PackOptions{})
	require.NoError(t, err)
	orig := f.Header.OrigCRC32
	assert.Equal(t, f.Header.CRC32, orig)

	f.Block(BlockMoveset)[0] ^= 0xFF
	data, err := Pack(f, PackOptions{})
	require.NoError(t, err)

	got, err := Unpack(data)
	require.NoError(t, err)
	assert.NoError(t, got.VerifyCRC())
	assert.Equal(t, orig, got.Header.OrigCRC32)
	assert.True(t, got.Modified())
}

func TestPackIncompressibleDataStoredRaw(t *testing.T) {
	f := &File{}
	noise := make([]byte, 0x4000)
	rand.New(rand.NewSource(1)).Read(noise)
	f.SetBlock(BlockMoveset, noise)

	data, err := Pack(f, PackOptions{Compression: CompressionLZ4})
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, f.Header.Compression)

	got, err := Unpack(data)
	require.NoError(t, err)
	assert.Equal(t, noise, got.Block(BlockMoveset))
}

func TestUnpackRejectsBadInput(t *testing.T) {
	f := testFile()
	data, err := Pack(f, PackOptions{})
	require.NoError(t, err)

	_, err = Unpack(data[:10])
	assert.ErrorIs(t, err, ErrFormat)

	bad := bytes.Clone(data)
	bad[0] = 'X'
	_, err = Unpack(bad)
	assert.ErrorIs(t, err, ErrFormat)

	_, err = Unpack(data[:len(data)-8])
	assert.ErrorIs(t, err, ErrFormat)

	// Block offsets out of order
	bad = bytes.Clone(data)
	binary.LittleEndian.PutUint64(bad[f.Header.BlockList+8:], f.Header.MovesetDataSize+8)
	_, err = Unpack(bad)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestUnpackCorruptCompressedData(t *testing.T) {
	f := testFile()
	data, err := Pack(f, PackOptions{Compression: CompressionLZ4})
	require.NoError(t, err)
	require.Equal(t, CompressionLZ4, f.Header.Compression)

	for i := f.Header.MovesetDataStart; i < uint64(len(data)); i++ {
		data[i] = 0xFF
	}
	_, err = Unpack(data)
	assert.ErrorIs(t, err, ErrDecompression)
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("lz4hc")
	require.NoError(t, err)
	assert.Equal(t, CompressionLZ4HC, c)

	_, err = ParseCompression("zstd")
	assert.Error(t, err)
}
