package moveset

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// Compression selects the algorithm applied to the data region
type Compression uint32

const (
	CompressionNone Compression = iota
	CompressionLZ4
	CompressionLZ4HC
	CompressionZlib
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionLZ4HC:
		return "lz4hc"
	case CompressionZlib:
		return "zlib"
	}
	return fmt.Sprintf("compression(%d)", uint32(c))
}

// ParseCompression maps a user-facing name to an algorithm
func ParseCompression(name string) (Compression, error) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionLZ4HC, CompressionZlib} {
		if c.String() == name {
			return c, nil
		}
	}
	return CompressionNone, fmt.Errorf("unknown compression %q", name)
}

// errIncompressible means the output would not be smaller than the input
var errIncompressible = errors.New("data is not compressible")

func compress(alg Compression, src []byte) ([]byte, error) {
	switch alg {
	case CompressionLZ4, CompressionLZ4HC:
		dst := make([]byte, lz4.CompressBlockBound(len(src)))
		var n int
		var err error
		if alg == CompressionLZ4HC {
			n, err = lz4.CompressBlockHC(src, dst, lz4.Level9, nil, nil)
		} else {
			n, err = lz4.CompressBlock(src, dst, nil)
		}
		if err != nil {
			return nil, err
		}
		if n == 0 || n >= len(src) {
			return nil, errIncompressible
		}
		return dst[:n], nil

	case CompressionZlib:
		var buf bytes.Buffer
		w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(src); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		if buf.Len() >= len(src) {
			return nil, errIncompressible
		}
		return buf.Bytes(), nil
	}

	return nil, fmt.Errorf("unsupported algorithm %s", alg)
}

// decompress inflates src into exactly size bytes. The block formats carry no end
// marker so the original size has to come from the header.
func decompress(alg Compression, src []byte, size uint64) ([]byte, error) {
	dst := make([]byte, size)

	switch alg {
	case CompressionLZ4, CompressionLZ4HC:
		n, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return nil, err
		}
		if n <= 0 || uint64(n) != size {
			return nil, fmt.Errorf("inflated %d bytes, expected %d", n, size)
		}
		return dst, nil

	case CompressionZlib:
		r, err := zlib.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		if _, err := io.ReadFull(r, dst); err != nil {
			return nil, err
		}
		return dst, nil
	}

	return nil, fmt.Errorf("unsupported algorithm %s", alg)
}
