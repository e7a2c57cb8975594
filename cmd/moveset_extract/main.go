package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"tkmoveset/config"
	"tkmoveset/extractor"
	"tkmoveset/moveset"
	"tkmoveset/process"
	"tkmoveset/process_blob"
)

func main() {
	pidFlag := flag.Int("pid", 0, "Process ID to extract from")
	nameFlag := flag.String("process", "", "Process name to extract from (default: the game's)")
	dumpFlag := flag.String("dump", "", "Extract from a saved dump directory instead of a live process")
	gameFlag := flag.Uint("game", 0, "Game id (default: first configured game)")
	playerFlag := flag.Int("player", 0, "Player slot to extract")
	addrFlag := flag.String("addr", "", "Moveset address, skips the player lookup")
	outFlag := flag.String("out", config.OUTPUT_DIR, "Output directory")
	compressFlag := flag.String("compress", "lz4", "Compression: none, lz4, lz4hc, zlib")
	overwriteFlag := flag.Bool("overwrite", false, "Overwrite an existing file of the same name")
	unknownFlag := flag.Bool("unknown-motas", false, "Keep animation archives that fail validation")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	game, err := cfg.Game(uint32(*gameFlag))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	settings := extractor.DefaultSettings()
	settings.Overwrite = *overwriteFlag
	settings.ExtractUnknownMotas = *unknownFlag
	if settings.Compression, err = moveset.ParseCompression(*compressFlag); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	opts := extractor.Options{
		Game:      game,
		Player:    *playerFlag,
		OutputDir: *outFlag,
		Settings:  settings,
		Debug:     config.DEBUG,
	}
	if *addrFlag != "" {
		addr, err := strconv.ParseUint(*addrFlag, 0, 64)
		if err != nil {
			fmt.Printf("Error parsing address: %v\n", err)
			os.Exit(1)
		}
		opts.MovesetAddr = process.ProcessMemoryAddress(addr)
	}

	var proc process.Process
	if *dumpFlag != "" {
		dump := process_blob.NewProcessDump()
		if err := dump.Load(*dumpFlag); err != nil {
			fmt.Printf("Error loading dump from %s: %v\n", *dumpFlag, err)
			os.Exit(1)
		}
		proc = dump
	} else {
		pid := process.ProcessID(*pidFlag)
		if pid == 0 {
			name := *nameFlag
			if name == "" {
				name = game.ProcessName
			}
			if pid, err = findPID(name); err != nil {
				fmt.Printf("Error: %v\n", err)
				flag.Usage()
				os.Exit(1)
			}
		}
		if proc, err = getProcess(pid); err != nil {
			fmt.Printf("Error attaching to process %d: %v\n", pid, err)
			os.Exit(1)
		}
	}
	defer proc.Close()

	e := extractor.New(proc)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Printf("\rExtracting... %3d%%", e.Progress())
			}
		}
	}()

	result, err := e.Extract(opts)
	close(done)
	fmt.Println()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	for _, w := range result.Warnings {
		fmt.Printf("Warning: %v\n", w)
	}
	fmt.Printf("Saved %s (%s, %d bytes, crc %08x)\n", result.Path, result.File.CharacterName(), result.Size, result.File.Header.CRC32)
}
