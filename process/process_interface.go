package process

import (
	"tkmoveset/process/memory_map"
)

// MemoryReader is the read side of a foreign process. Every method fails with an
// error once the process is no longer attached.
type MemoryReader interface {
	// ReadMemory reads memory from the process at the specified address
	ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)

	// ReadUINT8 reads an unsigned 8-bit integer from the specified address
	ReadUINT8(addr ProcessMemoryAddress) (uint8, error)

	// ReadUINT16 reads an unsigned 16-bit integer from the specified address
	ReadUINT16(addr ProcessMemoryAddress) (uint16, error)

	// ReadUINT32 reads an unsigned 32-bit integer from the specified address
	ReadUINT32(addr ProcessMemoryAddress) (uint32, error)

	// ReadUINT64 reads an unsigned 64-bit integer from the specified address
	ReadUINT64(addr ProcessMemoryAddress) (uint64, error)
}

// MemoryWriter is the write side of a foreign process.
type MemoryWriter interface {
	// WriteMemory writes data to the process memory at the specified address
	WriteMemory(addr ProcessMemoryAddress, data []byte) error
}

// MemoryAllocator reserves writable memory inside a foreign process.
type MemoryAllocator interface {
	// AllocateMemory reserves size bytes and returns the address of the region
	AllocateMemory(size ProcessMemorySize) (ProcessMemoryAddress, error)

	// FreeMemory releases a region previously returned by AllocateMemory
	FreeMemory(addr ProcessMemoryAddress) error
}

// MemoryTarget is everything an importer needs from the destination process.
type MemoryTarget interface {
	MemoryReader
	MemoryWriter
	MemoryAllocator
}

// Process is the interface that defines operations for interacting with a system process
type Process interface {
	// Open opens a process with the given PID for memory operations
	Open(pid ProcessID) error

	// Close closes the process and releases resources
	Close() error

	// GetPID returns the process ID
	GetPID() ProcessID

	// IsAttached reports whether the process is open
	IsAttached() bool

	// UpdateMemoryMap refreshes the memory map for the process
	UpdateMemoryMap() error

	// IsValidAddress checks if the given memory address is valid and readable
	IsValidAddress(addr ProcessMemoryAddress) bool

	// GetMemoryMap returns a copy of the current memory map
	GetMemoryMap() ([]memory_map.MemoryMapItem, error)

	MemoryTarget
}
