package extractor

import (
	"encoding/binary"
	"fmt"

	"tkmoveset/moveset"
	"tkmoveset/pod"
	"tkmoveset/process"
	"tkmoveset/schema"

	"github.com/Moonlight-Companies/gologger/logger"
	"go.uber.org/multierr"
)

var motaMagic = [4]byte{'M', 'O', 'T', 'A'}

const (
	motaHeaderSize    = 0x14
	maxMotaAnimations = 0x10000
)

// motaHeader is the fixed part of an animation archive. The animation offset list
// follows at motaHeaderSize.
type motaHeader struct {
	Magic          [4]byte
	LittleHint     uint8
	BigHint        uint8
	Unk6           uint16
	Unk8           uint32
	AnimCount      uint32
	Unk10          uint8
	IsLittleEndian uint8 // the byte the game itself checks
	Unk12          uint8
	Unk13          uint8
}

func (h *motaHeader) valid() bool {
	return h.Magic == motaMagic
}

func (h *motaHeader) order() binary.ByteOrder {
	if h.IsLittleEndian == 0 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (h *motaHeader) animCount() uint32 {
	if h.IsLittleEndian == 0 {
		return swap32(h.AnimCount)
	}
	return h.AnimCount
}

func swap16(v uint16) uint16 {
	return v<<8 | v>>8
}

func swap32(v uint32) uint32 {
	return v<<24 | (v<<8)&0xFF0000 | (v>>8)&0xFF00 | v>>24
}

func swapWord32(b []byte) {
	b[0], b[1], b[2], b[3] = b[3], b[2], b[1], b[0]
}

// AnimationFormat knows the layout of the animations stored in a mota archive
type AnimationFormat interface {
	// Size returns the byte length of the animation starting at addr
	Size(r process.MemoryReader, addr process.ProcessMemoryAddress, order binary.ByteOrder) (uint64, error)

	// ToLittleEndian converts the big-endian animation at the start of anim in place
	ToLittleEndian(anim []byte) error
}

// LengthPrefixedAnimation is an animation whose first 32-bit word holds its total
// length in bytes, followed by 32-bit words.
type LengthPrefixedAnimation struct{}

func (LengthPrefixedAnimation) Size(r process.MemoryReader, addr process.ProcessMemoryAddress, order binary.ByteOrder) (uint64, error) {
	word, err := r.ReadMemory(addr, 4)
	if err != nil {
		return 0, err
	}
	size := uint64(order.Uint32(word))
	if size < 4 {
		return 0, fmt.Errorf("%w: animation at 0x%x declares %d bytes", moveset.ErrValidation, uint64(addr), size)
	}
	return size, nil
}

func (LengthPrefixedAnimation) ToLittleEndian(anim []byte) error {
	if len(anim) < 4 {
		return fmt.Errorf("%w: animation truncated", moveset.ErrValidation)
	}
	size := uint64(binary.BigEndian.Uint32(anim))
	if size > uint64(len(anim)) {
		size = uint64(len(anim))
	}
	for off := uint64(0); off+4 <= size; off += 4 {
		swapWord32(anim[off : off+4])
	}
	return nil
}

type motaEntry struct {
	offset uint64
	size   uint64
}

// MotaResult is the custom mota block and the mota list rewritten to offsets into it
type MotaResult struct {
	Block []byte
	Slots []uint64
	// Exported counts the archives copied into Block
	Exported int
}

// ExtractMotas builds the mota block from the archive addresses in slots. A slot whose
// address was already seen reuses the earlier copy. Archives are validated, measured from
// their highest animation offset and normalized to little endian. Slots that are not
// exported end up holding the missing marker.
//
// The returned error aggregates per-slot validation failures; the result is still usable.
// A failed copy of a measured archive is fatal.
func ExtractMotas(r process.MemoryReader, s *schema.Schema, slots []uint64, settings ExtractSettings, format AnimationFormat, log *logger.Logger) (*MotaResult, error) {
	if format == nil {
		format = LengthPrefixedAnimation{}
	}

	entries := make(map[uint64]motaEntry)
	var blockSize uint64
	var errs error

	sized := min(s.Info.SizedMotaCount, len(slots))
	for i := 0; i < sized; i++ {
		addr := slots[i]
		if _, seen := entries[addr]; seen || addr == s.AbsentSentinel {
			continue
		}

		// Archives alternate between two backing files, so the next archive of the same file is two slots ahead
		var expected uint64
		if i+2 < sized && slots[i+2] > addr {
			expected = slots[i+2] - addr
		}

		size, err := measureMota(r, addr, format)
		switch {
		case err == nil && settings.MotaMask&(1<<i) == 0:
			log.Debugln("Not saving mota", i, ": not set to be exported")
			continue
		case err == nil:
			log.Debugln("Saved mota", i, "size", size)
		case expected != 0 && settings.ExtractUnknownMotas:
			log.Debugln("Unknown mota", i, "of size", expected, "at", fmt.Sprintf("%x", addr))
			size = expected
		default:
			errs = multierr.Append(errs, fmt.Errorf("mota %d at 0x%x: %w", i, addr, err))
			continue
		}

		entries[addr] = motaEntry{offset: blockSize, size: size}
		blockSize += size
	}

	if blockSize > MaxBlockSize {
		return nil, fmt.Errorf("%w: mota block of %d bytes", moveset.ErrAllocation, blockSize)
	}

	result := &MotaResult{
		Block: make([]byte, blockSize),
		Slots: make([]uint64, len(slots)),
	}
	exported := make(map[uint64]bool)

	for i, addr := range slots {
		entry, ok := entries[addr]
		if !ok {
			result.Slots[i] = s.MissingMarker
			continue
		}
		result.Slots[i] = entry.offset

		if exported[addr] {
			continue
		}
		exported[addr] = true
		result.Exported++

		data, err := r.ReadMemory(process.ProcessMemoryAddress(addr), process.ProcessMemorySize(entry.size))
		if err != nil {
			return nil, fmt.Errorf("%w: mota %d at 0x%x: %w", moveset.ErrRead, i, addr, err)
		}
		archive := result.Block[entry.offset : entry.offset+entry.size]
		copy(archive, data)

		if err := normalizeMota(archive, format); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("mota %d: %w", i, err))
		}
	}

	return result, errs
}

// measureMota returns the archive size at addr, or ErrValidation for anything that is not a MOTA
func measureMota(r process.MemoryReader, addr uint64, format AnimationFormat) (uint64, error) {
	header, err := pod.ReadT[motaHeader](r, process.ProcessMemoryAddress(addr))
	if err != nil {
		return 0, fmt.Errorf("%w: unreadable header: %v", moveset.ErrValidation, err)
	}
	if !header.valid() {
		return 0, fmt.Errorf("%w: bad signature %q", moveset.ErrValidation, header.Magic[:])
	}

	count := header.animCount()
	if count > maxMotaAnimations {
		return 0, fmt.Errorf("%w: %d animations", moveset.ErrValidation, count)
	}
	if count == 0 {
		return motaHeaderSize, nil
	}

	list, err := r.ReadMemory(process.ProcessMemoryAddress(addr+motaHeaderSize), process.ProcessMemorySize(count*4))
	if err != nil {
		return 0, fmt.Errorf("%w: unreadable offset list: %v", moveset.ErrValidation, err)
	}

	// Offsets are not sorted
	order := header.order()
	var last uint64
	for i := uint32(0); i < count; i++ {
		if off := uint64(order.Uint32(list[i*4:])); off > last {
			last = off
		}
	}

	if last == 0 {
		return motaHeaderSize, nil
	}

	lastSize, err := format.Size(r, process.ProcessMemoryAddress(addr+last), order)
	if err != nil {
		return 0, err
	}
	return last + lastSize, nil
}

// normalizeMota byteswaps a big-endian archive to little endian in place. Archives that
// are not MOTAs are left alone.
func normalizeMota(archive []byte, format AnimationFormat) error {
	header, err := pod.DecodeT[motaHeader](archive)
	if err != nil || !header.valid() || header.IsLittleEndian != 0 {
		return nil
	}

	count := header.animCount()
	if uint64(len(archive)) < motaHeaderSize+uint64(count)*4 {
		return fmt.Errorf("%w: offset list overruns archive", moveset.ErrValidation)
	}

	var errs error
	// Several slots may share one animation, it must be swapped once
	swapped := make(map[uint64]bool, count)
	for i := uint32(0); i < count; i++ {
		slot := archive[motaHeaderSize+i*4 : motaHeaderSize+i*4+4]
		off := uint64(binary.BigEndian.Uint32(slot))
		swapWord32(slot)
		if off == 0 || off >= uint64(len(archive)) || swapped[off] {
			continue
		}
		swapped[off] = true
		errs = multierr.Append(errs, format.ToLittleEndian(archive[off:]))
	}

	header.LittleHint, header.BigHint = header.BigHint, header.LittleHint
	header.Unk6 = swap16(header.Unk6)
	header.Unk8 = swap32(header.Unk8)
	header.AnimCount = count
	header.IsLittleEndian = 1
	copy(archive, pod.WriteT(header))

	return errs
}
