package moveset

import (
	"errors"
	"fmt"
)

var (
	// ErrAllocation is returned when a local buffer cannot be obtained or a remote allocation fails
	ErrAllocation = errors.New("allocation error")

	// ErrRead is returned when a foreign read does not complete
	ErrRead = errors.New("read error")

	// ErrWrite is returned when a foreign write does not complete
	ErrWrite = errors.New("write error")

	// ErrValidation marks malformed signatures and pointers that cannot be relocated exactly
	ErrValidation = errors.New("validation error")

	// ErrIntegrity is a CRC mismatch. Under the default policy it is only a warning.
	ErrIntegrity = errors.New("integrity error")

	ErrDecompression = errors.New("decompression error")
	ErrCompression   = errors.New("compression error")

	// ErrFileCreation is returned when the output file cannot be created or renamed
	ErrFileCreation = errors.New("file creation error")

	// ErrFormat is returned for truncated files and inconsistent headers
	ErrFormat = errors.New("format error")
)

// OperationError is the single terminal error of an extraction or import, together
// with the last progress checkpoint that was reached.
type OperationError struct {
	Op       string
	Progress uint8
	Err      error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed at %d%%: %v", e.Op, e.Progress, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
