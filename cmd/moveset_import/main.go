package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"tkmoveset/config"
	"tkmoveset/importer"
	"tkmoveset/process"
	"tkmoveset/process_blob"
)

func main() {
	fileFlag := flag.String("file", "", "Moveset file to import")
	pidFlag := flag.Int("pid", 0, "Process ID to import into")
	nameFlag := flag.String("process", "", "Process name to import into (default: the game's)")
	dumpFlag := flag.String("dump", "", "Import into a saved dump directory instead of a live process")
	saveFlag := flag.String("save", "", "With --dump, save the modified dump to this directory")
	arenaFlag := flag.String("arena", "", "addr:size of a writable region to allocate from (linux only)")
	gameFlag := flag.Uint("game", 0, "Game id (default: first configured game)")
	playerFlag := flag.Int("player", 0, "Player slot whose moveset is replaced")
	applyFlag := flag.Bool("apply", false, "Point the player at the imported moveset")
	fillFlag := flag.Bool("fill-motas", false, "Borrow missing animation archives from the player's current moveset")
	strictFlag := flag.Bool("strict-crc", false, "Refuse files whose checksum does not match")
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

	var proc process.Process
	var dump *process_blob.ProcessDump
	if *dumpFlag != "" {
		dump = process_blob.NewProcessDump()
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
		if proc, err = getProcess(pid, *arenaFlag); err != nil {
			fmt.Printf("Error attaching to process %d: %v\n", pid, err)
			os.Exit(1)
		}
	}
	defer proc.Close()

	opts := importer.Options{
		Game:             game,
		Player:           *playerFlag,
		ApplyToPlayer:    *applyFlag,
		FillMissingMotas: *fillFlag,
	}
	if *strictFlag {
		opts.CRCPolicy = importer.CRCStrict
	}

	result, err := importer.Import(context.Background(), data, proc, opts)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	for _, w := range result.Warnings {
		fmt.Printf("Warning: %v\n", w)
	}
	fmt.Printf("Imported %s at %s\n", result.File.CharacterName(), result.InfoAddress.ToString())

	if dump != nil && *saveFlag != "" {
		if err := dump.Save(*saveFlag); err != nil {
			fmt.Printf("Error saving dump: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Dump saved to %s\n", *saveFlag)
	}
}
