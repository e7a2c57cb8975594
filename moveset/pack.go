package moveset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// MaxDataSize bounds the data region accepted by Unpack
const MaxDataSize = 1 << 30

type PackOptions struct {
	Compression Compression
}

func align8(n int) int {
	return (n + 7) &^ 7
}

// Pack lays the file out as header, property list, block offset table and the data
// blocks, every part 8-byte aligned. Block offsets are relative to the first data block.
// Pack updates f.Header with the layout, sizes and checksums it wrote and replaces empty
// blocks with a MinBlockSize placeholder. The first pack of a file also records its
// checksum as the original one.
//
// When compression fails the uncompressed file is still returned, along with an error
// wrapping ErrCompression.
func Pack(f *File, opts PackOptions) ([]byte, error) {
	h := &f.Header
	if h.Signature == ([4]byte{}) {
		h.Signature = Signature
	}
	if h.FormatVersion == 0 {
		h.FormatVersion = FormatVersion
	}
	if h.Date == 0 {
		h.Date = uint64(time.Now().Unix())
	}

	f.fillEmptyBlocks()
	props := encodeProperties(f.Properties)
	blocks := f.blockSlice()

	headerSize := align8(EncodedHeaderSize)
	blockList := headerSize + align8(len(props))
	dataStart := blockList + int(BlockCount)*8

	var offsets [BlockCount]uint64
	dataSize := 0
	for i, block := range blocks {
		offsets[i] = uint64(dataSize)
		dataSize += align8(len(block))
	}

	region := make([]byte, 0, dataSize)
	for _, block := range blocks {
		region = append(region, block...)
		region = append(region, zeroPad[:alignPad(len(block))]...)
	}

	h.HeaderSize = uint32(headerSize)
	h.BlockList = uint32(blockList)
	h.BlockListSize = uint32(BlockCount)
	h.MovesetDataStart = uint64(dataStart)
	h.MovesetDataSize = uint64(dataSize)
	h.CRC32 = Checksum(props, blocks)
	if h.OrigCRC32 == 0 {
		h.OrigCRC32 = h.CRC32
	}

	payload := region
	var compressErr error
	h.Compression = CompressionNone
	if opts.Compression != CompressionNone {
		compressed, err := compress(opts.Compression, region)
		switch {
		case errors.Is(err, errIncompressible):
			// stored as is
		case err != nil:
			compressErr = fmt.Errorf("%w: %s: %v", ErrCompression, opts.Compression, err)
		default:
			h.Compression = opts.Compression
			payload = compressed
		}
	}
	h.CompressedSize = uint64(len(payload))

	out := make([]byte, 0, dataStart+len(payload))
	out = append(out, h.encode()...)
	out = append(out, make([]byte, headerSize-len(out))...)
	out = append(out, props...)
	out = append(out, make([]byte, blockList-len(out))...)
	for _, off := range offsets {
		out = binary.LittleEndian.AppendUint64(out, off)
	}
	out = append(out, payload...)

	f.rawProperties = props
	return out, compressErr
}

// Unpack parses and, if needed, decompresses a packed moveset. It does not verify the
// checksum; call VerifyCRC for that.
func Unpack(data []byte) (*File, error) {
	h, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	size := uint64(len(data))
	switch {
	case h.HeaderSize < uint32(EncodedHeaderSize):
		return nil, fmt.Errorf("%w: header size %d too small", ErrFormat, h.HeaderSize)
	case h.BlockList < h.HeaderSize:
		return nil, fmt.Errorf("%w: block list at %d overlaps the header", ErrFormat, h.BlockList)
	case h.BlockListSize != uint32(BlockCount):
		return nil, fmt.Errorf("%w: %d blocks listed, expected %d", ErrFormat, h.BlockListSize, BlockCount)
	case h.MovesetDataStart < uint64(h.BlockList)+uint64(h.BlockListSize)*8:
		return nil, fmt.Errorf("%w: data starts inside the block list", ErrFormat)
	case h.MovesetDataStart > size:
		return nil, fmt.Errorf("%w: data starts past end of file", ErrFormat)
	case h.MovesetDataSize > MaxDataSize || h.MovesetDataSize%8 != 0:
		return nil, fmt.Errorf("%w: invalid data size %d", ErrFormat, h.MovesetDataSize)
	}

	stored := data[h.MovesetDataStart:]
	var region []byte
	if h.Compression == CompressionNone {
		if uint64(len(stored)) < h.MovesetDataSize {
			return nil, fmt.Errorf("%w: data region truncated (%d of %d bytes)", ErrFormat, len(stored), h.MovesetDataSize)
		}
		region = bytes.Clone(stored[:h.MovesetDataSize])
	} else {
		if uint64(len(stored)) < h.CompressedSize {
			return nil, fmt.Errorf("%w: compressed region truncated", ErrFormat)
		}
		region, err = decompress(h.Compression, stored[:h.CompressedSize], h.MovesetDataSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDecompression, h.Compression, err)
		}
	}

	f := &File{Header: h}

	var offsets [BlockCount]uint64
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint64(data[uint64(h.BlockList)+uint64(i)*8:])
	}
	for i := range offsets {
		end := h.MovesetDataSize
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		if offsets[i]%8 != 0 || offsets[i] > end || end > h.MovesetDataSize {
			return nil, fmt.Errorf("%w: block %s spans [0x%x, 0x%x) in a 0x%x byte region", ErrFormat, BlockID(i), offsets[i], end, h.MovesetDataSize)
		}
		f.Blocks[i] = region[offsets[i]:end:end]
	}

	f.rawProperties = bytes.Clone(data[h.HeaderSize:h.BlockList])
	f.Properties, _ = decodeProperties(f.rawProperties)

	return f, nil
}
