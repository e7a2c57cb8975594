package main

import (
	"tkmoveset/process"
	"tkmoveset/process_linux"
	"tkmoveset/process_manage_linux"
)

func getProcess(pid process.ProcessID) (process.Process, error) {
	return process_linux.NewWithPID(pid)
}

func findPID(name string) (process.ProcessID, error) {
	return process_manage_linux.NewProcessManager().FindPID(name)
}
