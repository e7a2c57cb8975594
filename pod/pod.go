package pod

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"tkmoveset/process"
)

func SizeOf[T any]() process.ProcessMemorySize {
	var t T
	return process.ProcessMemorySize(unsafe.Sizeof(t))
}

func ReadT[T any](proc process.MemoryReader, addr process.ProcessMemoryAddress) (T, error) {
	size := SizeOf[T]()
	if size == 0 {
		return *new(T), errors.New("ReadT: size of T is zero")
	}

	data, err := proc.ReadMemory(addr, size)
	if err != nil {
		return *new(T), err
	}

	return DecodeT[T](data)
}

// WriteT serializes a POD struct T into a raw byte slice using the in-memory layout.
// T must be POD (no pointers or Go-managed references) for the bytes to be meaningful
// outside the process.
func WriteT[T any](v T) []byte {
	size := int(unsafe.Sizeof(v))
	if size == 0 {
		return []byte{}
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(&v)), size)
	out := make([]byte, size)
	copy(out, src)
	return out
}

func ReadSliceT[T any](proc process.MemoryReader, addr process.ProcessMemoryAddress, count int) ([]T, error) {
	if count < 0 {
		return nil, errors.New("ReadSliceT: count must be positive")
	}

	size := SizeOf[T]()
	if size == 0 || count == 0 {
		return []T{}, nil
	}

	// One read for the whole array
	data, err := proc.ReadMemory(addr, size*process.ProcessMemorySize(count))
	if err != nil {
		return nil, err
	}

	result := make([]T, count)
	elementSize := int(size)
	for i := range count {
		element, err := DecodeT[T](data[i*elementSize:])
		if err != nil {
			return nil, fmt.Errorf("ReadSliceT: failed to parse element %d: %w", i, err)
		}
		result[i] = element
	}

	return result, nil
}

// DecodeT copies the first sizeof(T) bytes from data into a new T.
// T must be "POD": it and all of its fields/element types contain no pointers.
func DecodeT[T any](data []byte) (T, error) {
	var tmp T

	if hasPointers[T]() {
		return tmp, errors.New("DecodeT: T contains pointers; not POD-safe")
	}

	size := int(unsafe.Sizeof(tmp))
	if len(data) < size {
		return tmp, errors.New("DecodeT: buffer too small")
	}

	dst := unsafe.Slice((*byte)(unsafe.Pointer(&tmp)), size)
	copy(dst, data[:size])
	return tmp, nil
}

// hasPointers reports whether T (recursively) contains any pointer-like fields.
func hasPointers[T any]() bool {
	var t T
	return typeHasPointers(reflect.TypeOf(t))
}

func typeHasPointers(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Ptr, reflect.UnsafePointer, reflect.Interface, reflect.Func, reflect.Map, reflect.Slice, reflect.String, reflect.Chan:
		return true
	case reflect.Array:
		return typeHasPointers(rt.Elem())
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			if typeHasPointers(rt.Field(i).Type) {
				return true
			}
		}
	}
	return false
}
