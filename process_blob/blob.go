package process_blob

import (
	"encoding/binary"
	"fmt"

	"tkmoveset/process"
)

// ProcessBlob is a local copy of foreign memory that still answers reads by foreign address.
// Byte order is selectable so archives stored big endian can be parsed in place.
type ProcessBlob struct {
	baseaddress process.ProcessMemoryAddress
	data        []byte
	order       binary.ByteOrder
}

var _ process.MemoryReader = (*ProcessBlob)(nil)

func NewProcessBlob(baseAddress process.ProcessMemoryAddress, data []byte) *ProcessBlob {
	return &ProcessBlob{
		baseaddress: baseAddress,
		data:        data,
		order:       binary.LittleEndian,
	}
}

// WithByteOrder returns a view of the same bytes decoded with order
func (p *ProcessBlob) WithByteOrder(order binary.ByteOrder) *ProcessBlob {
	return &ProcessBlob{baseaddress: p.baseaddress, data: p.data, order: order}
}

func (p *ProcessBlob) Base() process.ProcessMemoryAddress {
	return p.baseaddress
}

func (p *ProcessBlob) Data() []byte {
	return p.data
}

func (p *ProcessBlob) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if addr < p.baseaddress {
		return nil, fmt.Errorf("blob read 0x%x below base 0x%x: %w", uint64(addr), uint64(p.baseaddress), process.ErrAddressNotMapped)
	}
	offset := uint64(addr - p.baseaddress)
	if offset+uint64(size) > uint64(len(p.data)) || offset+uint64(size) < offset {
		return nil, fmt.Errorf("blob read 0x%x (+%d) past end: %w", uint64(addr), size, process.ErrAddressNotMapped)
	}
	return p.data[offset : offset+uint64(size)], nil
}

// ReadUINT8 reads an unsigned 8-bit integer from the specified address
func (p *ProcessBlob) ReadUINT8(addr process.ProcessMemoryAddress) (uint8, error) {
	data, err := p.ReadMemory(addr, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// ReadUINT16 reads an unsigned 16-bit integer from the specified address
func (p *ProcessBlob) ReadUINT16(addr process.ProcessMemoryAddress) (uint16, error) {
	data, err := p.ReadMemory(addr, 2)
	if err != nil {
		return 0, err
	}
	return p.order.Uint16(data), nil
}

// ReadUINT32 reads an unsigned 32-bit integer from the specified address
func (p *ProcessBlob) ReadUINT32(addr process.ProcessMemoryAddress) (uint32, error) {
	data, err := p.ReadMemory(addr, 4)
	if err != nil {
		return 0, err
	}
	return p.order.Uint32(data), nil
}

// ReadUINT64 reads an unsigned 64-bit integer from the specified address
func (p *ProcessBlob) ReadUINT64(addr process.ProcessMemoryAddress) (uint64, error) {
	data, err := p.ReadMemory(addr, 8)
	if err != nil {
		return 0, err
	}
	return p.order.Uint64(data), nil
}

// OffsetUINT32 reads an unsigned 32-bit integer at offset from the start of the blob
func (p *ProcessBlob) OffsetUINT32(offset uint64) (uint32, error) {
	return p.ReadUINT32(p.baseaddress + process.ProcessMemoryAddress(offset))
}

// OffsetUINT64 reads an unsigned 64-bit integer at offset from the start of the blob
func (p *ProcessBlob) OffsetUINT64(offset uint64) (uint64, error) {
	return p.ReadUINT64(p.baseaddress + process.ProcessMemoryAddress(offset))
}
