// Package hexdump prints moveset blocks as colored hex, marking the 8-byte words that
// hold a missing reference.
package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// Options defines options for customizing the hexdump output
type Options struct {
	// BytesPerLine defines the number of bytes per line, rounded down to a multiple of 8
	BytesPerLine int

	// StartOffset is the offset printed for the first byte
	StartOffset uint64

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int

	// Plain disables colors
	Plain bool

	// Marker, when set, highlights every aligned 8-byte word equal to it
	Marker *uint64

	OffsetColor coloransi.ColorCode
	HexColor    coloransi.ColorCode
	ZeroColor   coloransi.ColorCode
	MarkerColor coloransi.ColorCode
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() Options {
	return Options{
		BytesPerLine: 16,
		OffsetColor:  coloransi.Cyan,
		HexColor:     coloransi.Green,
		ZeroColor:    coloransi.BrightBlack,
		MarkerColor:  coloransi.Yellow,
	}
}

// Dump creates a hex dump of data
func Dump(data []byte, options Options) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of data to writer
func DumpToWriter(writer io.Writer, data []byte, options Options) {
	perLine := options.BytesPerLine &^ 7
	if perLine <= 0 {
		perLine = 16
	}

	for line, offset := 0, 0; offset < len(data); line, offset = line+1, offset+perLine {
		if options.MaxLines > 0 && line >= options.MaxLines {
			fmt.Fprintf(writer, "... %d more bytes\n", len(data)-offset)
			return
		}
		end := min(offset+perLine, len(data))
		formatLine(writer, data[offset:end], uint64(offset)+options.StartOffset, perLine, options)
	}
}

func (o *Options) paint(color coloransi.ColorCode, s string) string {
	if o.Plain {
		return s
	}
	return coloransi.Foreground(color, s)
}

// formatLine prints "offset  hex words | ascii", one space between 8-byte words
func formatLine(writer io.Writer, data []byte, offset uint64, perLine int, options Options) {
	fmt.Fprint(writer, options.paint(options.OffsetColor, fmt.Sprintf("%08x", offset)), "  ")

	words := make([]string, 0, perLine/8)
	for w := 0; w < len(data); w += 8 {
		word := data[w:min(w+8, len(data))]
		marked := options.Marker != nil && len(word) == 8 && binary.LittleEndian.Uint64(word) == *options.Marker

		var sb strings.Builder
		for _, b := range word {
			hex := fmt.Sprintf("%02x", b)
			switch {
			case marked:
				sb.WriteString(options.paint(options.MarkerColor, hex))
			case b == 0:
				sb.WriteString(options.paint(options.ZeroColor, hex))
			default:
				sb.WriteString(options.paint(options.HexColor, hex))
			}
		}
		words = append(words, sb.String())
	}
	fmt.Fprint(writer, strings.Join(words, " "))

	// Keep the ASCII column aligned on short lines
	if missing := perLine - len(data); missing > 0 {
		fmt.Fprint(writer, strings.Repeat(" ", missing*2+missing/8))
	}

	fmt.Fprint(writer, " | ")
	for _, b := range data {
		if b < 0x20 || b > 0x7E {
			fmt.Fprint(writer, options.paint(options.ZeroColor, "."))
			continue
		}
		fmt.Fprint(writer, string(rune(b)))
	}
	fmt.Fprintln(writer)
}
