package main

import (
	"tkmoveset/process"
	"tkmoveset/process_windows"
)

func getProcess(pid process.ProcessID) (process.Process, error) {
	return process_windows.NewWithPID(pid)
}

func findPID(name string) (process.ProcessID, error) {
	return process_windows.FindPID(name)
}
