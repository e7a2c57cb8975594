package moveset

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Signature opens every moveset file
var Signature = [4]byte{'T', 'K', 'M', 'V'}

const (
	FormatVersion = 1
	VersionString = "1.0.0"
)

// Header flags
const (
	FlagDebug uint32 = 1 << iota
	FlagEdited
)

// Header is the fixed-size record at the start of a moveset file. All integers little endian.
type Header struct {
	Signature         [4]byte
	FormatVersion     uint32
	VersionString     [28]byte
	GameID            uint32
	MinorVersion      uint32
	CharacterID       uint32
	Flags             uint32
	GameFlags         uint32
	Origin            [32]byte
	TargetCharacter   [32]byte
	OrigCharacterName [32]byte
	Date              uint64 // last modification, unix seconds
	ExtractionDate    uint64 // unix seconds
	CRC32             uint32
	OrigCRC32         uint32
	HeaderSize        uint32
	BlockList         uint32 // file offset of the block offset table
	BlockListSize     uint32 // number of entries in the block offset table
	Compression       Compression
	MovesetDataStart  uint64 // file offset of the data region
	MovesetDataSize   uint64 // uncompressed size of the data region
	CompressedSize    uint64 // stored size of the data region when compressed
}

// EncodedHeaderSize is the encoded size of Header, already a multiple of 8
var EncodedHeaderSize = binary.Size(Header{})

func (h *Header) encode() []byte {
	var buf bytes.Buffer
	buf.Grow(EncodedHeaderSize)
	// bytes.Buffer writes cannot fail
	_ = binary.Write(&buf, binary.LittleEndian, h)
	return buf.Bytes()
}

func decodeHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < EncodedHeaderSize {
		return h, fmt.Errorf("%w: %d bytes is shorter than the header", ErrFormat, len(data))
	}
	if err := binary.Read(bytes.NewReader(data[:EncodedHeaderSize]), binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if h.Signature != Signature {
		return h, fmt.Errorf("%w: bad signature %q", ErrFormat, h.Signature[:])
	}
	return h, nil
}

// SetText copies s into a fixed-size, NUL-terminated header field, truncating if needed
func SetText(dst []byte, s string) {
	clear(dst)
	if len(dst) == 0 {
		return
	}
	copy(dst[:len(dst)-1], s)
}

// Text reads a NUL-terminated header field
func Text(src []byte) string {
	if i := bytes.IndexByte(src, 0); i >= 0 {
		return string(src[:i])
	}
	return string(src)
}
