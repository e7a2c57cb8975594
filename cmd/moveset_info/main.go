package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"tkmoveset/hexdump"
	"tkmoveset/moveset"
	"tkmoveset/relocate"
	"tkmoveset/schema"
)

func main() {
	fileFlag := flag.String("file", "", "Moveset file to inspect")
	blockFlag := flag.String("hexdump", "", "Hexdump the named block (moveset_info, table, motalists, name, moveset, animation, mota, movelist)")
	linesFlag := flag.Int("lines", 32, "Maximum hexdump lines, 0 for all")
	flag.Parse()

	if *fileFlag == "" {
		fmt.Println("Error: --file is required")
		flag.Usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(*fileFlag)
	if err != nil {
		fmt.Printf("Error reading %s: %v\n", *fileFlag, err)
		os.Exit(1)
	}

	f, err := moveset.Unpack(data)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	h := &f.Header

	fmt.Printf("File:          %s (%d bytes)\n", *fileFlag, len(data))
	fmt.Printf("Version:       %d (%s)\n", h.FormatVersion, moveset.Text(h.VersionString[:]))
	fmt.Printf("Game:          %s (id %d, minor %d)\n", moveset.Text(h.Origin[:]), h.GameID, h.MinorVersion)
	fmt.Printf("Character:     %s (id %d, originally %s)\n", f.CharacterName(), h.CharacterID, moveset.Text(h.OrigCharacterName[:]))
	fmt.Printf("Extracted:     %s\n", time.Unix(int64(h.ExtractionDate), 0).Format(time.DateTime))
	fmt.Printf("Modified:      %s\n", time.Unix(int64(h.Date), 0).Format(time.DateTime))
	fmt.Printf("Compression:   %s (%d -> %d bytes)\n", h.Compression, h.MovesetDataSize, h.CompressedSize)

	switch err := f.VerifyCRC(); {
	case errors.Is(err, moveset.ErrIntegrity):
		fmt.Printf("CRC32:         %08x MISMATCH (%v)\n", h.CRC32, err)
	case f.Modified():
		fmt.Printf("CRC32:         %08x ok, edited (original %08x)\n", h.CRC32, h.OrigCRC32)
	default:
		fmt.Printf("CRC32:         %08x ok\n", h.CRC32)
	}

	fmt.Println("\nProperties:")
	for _, p := range f.Properties {
		fmt.Printf("  %-18s 0x%x\n", p.ID, p.Value)
	}

	fmt.Println("\nBlocks:")
	for id := moveset.BlockID(0); id < moveset.BlockCount; id++ {
		fmt.Printf("  %-14s %d bytes\n", id, len(f.Block(id)))
	}

	s := schema.T8()
	if v, ok := f.Property(moveset.PropertySchema); ok {
		if named, err := schema.ByName(moveset.ValueName(v)); err == nil {
			s = named
		}
	}
	if set, err := relocate.ReadHeader(s, f.Block(moveset.BlockTable)); err == nil {
		fmt.Printf("\nTables (%s schema, %d records):\n", s.Name, set.RecordCount())
		for _, t := range set.Tables {
			if !t.Empty() {
				fmt.Printf("  %-20s %6d x 0x%x at +0x%x\n", t.Def.Name, t.Count, t.RecordSize(), t.Base)
			}
		}
	}

	if *blockFlag == "" {
		return
	}
	for id := moveset.BlockID(0); id < moveset.BlockCount; id++ {
		if id.String() != *blockFlag {
			continue
		}
		options := hexdump.DefaultOptions()
		options.MaxLines = *linesFlag
		options.Marker = &s.MissingMarker
		fmt.Printf("\nBlock %s:\n", id)
		fmt.Print(hexdump.Dump(f.Block(id), options))
		return
	}
	fmt.Printf("Error: no block named %s\n", *blockFlag)
	os.Exit(1)
}
