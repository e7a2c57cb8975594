package moveset

import (
	"fmt"
)

// BlockID is the position of a data block in the block offset table
type BlockID int

const (
	BlockMovesetInfo BlockID = iota
	BlockTable
	BlockMotalists
	BlockName
	BlockMoveset
	BlockAnimation
	BlockMota
	BlockMovelist

	BlockCount
)

var blockNames = [BlockCount]string{
	"moveset_info", "table", "motalists", "name", "moveset", "animation", "mota", "movelist",
}

func (b BlockID) String() string {
	if b >= 0 && b < BlockCount {
		return blockNames[b]
	}
	return fmt.Sprintf("block(%d)", int(b))
}

// MinBlockSize is the size of the placeholder written for an empty block
const MinBlockSize = 8

// File is an unpacked moveset. Blocks are held unpadded as produced by the extractor,
// or padded to 8 bytes when they come from Unpack.
type File struct {
	Header     Header
	Properties []Property
	Blocks     [BlockCount][]byte

	// rawProperties is the property region exactly as read, used for integrity checks
	rawProperties []byte
}

// Block returns the bytes of block id
func (f *File) Block(id BlockID) []byte {
	return f.Blocks[id]
}

// SetBlock replaces block id
func (f *File) SetBlock(id BlockID, data []byte) {
	f.Blocks[id] = data
}

// Property returns the value of the first property with the given id
func (f *File) Property(id PropertyID) (uint64, bool) {
	for _, p := range f.Properties {
		if p.ID == id {
			return p.Value, true
		}
	}
	return 0, false
}

// SetProperty updates or appends a property
func (f *File) SetProperty(id PropertyID, value uint64) {
	for i := range f.Properties {
		if f.Properties[i].ID == id {
			f.Properties[i].Value = value
			f.rawProperties = nil
			return
		}
	}
	f.Properties = append(f.Properties, Property{ID: id, Value: value})
	f.rawProperties = nil
}

func (f *File) propertyBytes() []byte {
	if f.rawProperties != nil {
		return f.rawProperties
	}
	return encodeProperties(f.Properties)
}

func (f *File) blockSlice() [][]byte {
	return f.Blocks[:]
}

// fillEmptyBlocks swaps empty blocks for a zeroed placeholder so every block has an extent
func (f *File) fillEmptyBlocks() {
	for i := range f.Blocks {
		if len(f.Blocks[i]) == 0 {
			f.Blocks[i] = make([]byte, MinBlockSize)
		}
	}
}

// Checksum computes the CRC of the file as it currently stands
func (f *File) Checksum() uint32 {
	return Checksum(f.propertyBytes(), f.blockSlice())
}

// VerifyCRC recomputes the checksum and compares it to the stored current value
func (f *File) VerifyCRC() error {
	if crc := f.Checksum(); crc != f.Header.CRC32 {
		return fmt.Errorf("%w: stored crc 0x%08x, computed 0x%08x", ErrIntegrity, f.Header.CRC32, crc)
	}
	return nil
}

// Modified reports whether the file was changed since it was first packed
func (f *File) Modified() bool {
	return f.Header.CRC32 != f.Header.OrigCRC32
}

// CharacterName is the target character recorded in the header
func (f *File) CharacterName() string {
	return Text(f.Header.TargetCharacter[:])
}
