package process

import (
	"fmt"
	"unsafe"
)

// ResolvePath follows a pointer path and returns the final address without reading it.
// base+offsets[0] is dereferenced, the next offset is added to the pointer read, and so on.
// The last offset is added to the last pointer read. If offsets is empty, base is returned.
func ResolvePath(proc MemoryReader, base ProcessMemoryAddress, offsets ...ProcessMemorySize) (ProcessMemoryAddress, error) {
	currentAddr := base

	for i := 0; i < len(offsets)-1; i++ {
		ptrAddr := currentAddr + ProcessMemoryAddress(offsets[i])

		// Pointers are 8 bytes, every supported game is 64-bit
		ptrVal, err := proc.ReadUINT64(ptrAddr)
		if err != nil {
			return 0, fmt.Errorf("failed to read pointer at offset %d (addr 0x%x): %w", i, ptrAddr, err)
		}

		if ptrVal == 0 {
			return 0, fmt.Errorf("pointer at offset %d (addr 0x%x) is null: %w", i, ptrAddr, ErrInvalidPointer)
		}

		currentAddr = ProcessMemoryAddress(ptrVal)
	}

	if len(offsets) > 0 {
		currentAddr += ProcessMemoryAddress(offsets[len(offsets)-1])
	}

	return currentAddr, nil
}

// ReadPath reads a value of type T at the end of a pointer path.
// See ResolvePath for how the path is walked.
func ReadPath[T any](proc MemoryReader, base ProcessMemoryAddress, offsets ...ProcessMemorySize) (T, error) {
	var zero T

	finalAddr, err := ResolvePath(proc, base, offsets...)
	if err != nil {
		return zero, err
	}

	val, err := readT[T](proc, finalAddr)
	if err != nil {
		return zero, fmt.Errorf("failed to read final value at 0x%x: %w", finalAddr, err)
	}

	return val, nil
}

func readT[T any](proc MemoryReader, addr ProcessMemoryAddress) (T, error) {
	var t T
	size := ProcessMemorySize(unsafe.Sizeof(t))
	if size == 0 {
		return t, nil
	}

	data, err := proc.ReadMemory(addr, size)
	if err != nil {
		return t, err
	}

	copyTo(&t, data)
	return t, nil
}

// copyTo copies bytes to *T
func copyTo[T any](dst *T, src []byte) {
	size := int(unsafe.Sizeof(*dst))
	if len(src) < size {
		return
	}

	dstBytes := unsafe.Slice((*byte)(unsafe.Pointer(dst)), size)
	copy(dstBytes, src)
}
