// Package process provides interfaces and types for foreign process memory access
package process

import "errors"

var (
	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	ErrInvalidPointer = errors.New("invalid pointer read")

	// ErrOutOfArena is returned when an arena allocator cannot satisfy a request.
	ErrOutOfArena = errors.New("arena exhausted")

	// ErrNoAllocator is returned by processes that cannot reserve remote memory on their own.
	ErrNoAllocator = errors.New("no allocator configured")
)

// ProcessID represents a unique identifier for a process
type ProcessID int
