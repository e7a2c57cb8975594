package main

import (
	"fmt"
	"strconv"
	"strings"

	"tkmoveset/process"
	"tkmoveset/process_linux"
	"tkmoveset/process_manage_linux"
)

// getProcess attaches to pid and, since linux cannot allocate remotely, sets up the
// arena given as addr:size
func getProcess(pid process.ProcessID, arena string) (process.Process, error) {
	if arena == "" {
		return nil, fmt.Errorf("--arena is required on linux")
	}
	addrText, sizeText, ok := strings.Cut(arena, ":")
	if !ok {
		return nil, fmt.Errorf("arena %q is not addr:size", arena)
	}
	addr, err := strconv.ParseUint(addrText, 0, 64)
	if err != nil {
		return nil, fmt.Errorf("arena address: %w", err)
	}
	size, err := strconv.ParseUint(sizeText, 0, 64)
	if err != nil {
		return nil, fmt.Errorf("arena size: %w", err)
	}

	proc, err := process_linux.NewWithPID(pid)
	if err != nil {
		return nil, err
	}
	if err := proc.UseArena(process.ProcessMemoryAddress(addr), process.ProcessMemorySize(size)); err != nil {
		proc.Close()
		return nil, err
	}
	return proc, nil
}

func findPID(name string) (process.ProcessID, error) {
	return process_manage_linux.NewProcessManager().FindPID(name)
}
