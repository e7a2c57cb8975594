package main

import (
	"tkmoveset/process"
	"tkmoveset/process_windows"
)

// getProcess attaches to pid. Windows allocates inside the target, arena is ignored.
func getProcess(pid process.ProcessID, arena string) (process.Process, error) {
	return process_windows.NewWithPID(pid)
}

func findPID(name string) (process.ProcessID, error) {
	return process_windows.FindPID(name)
}
