// Package process_manage_linux finds running processes by name through /proc
package process_manage_linux

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tkmoveset/process"
)

// Process represents a system process
type Process struct {
	PID        process.ProcessID `json:"pid"`
	Name       string            `json:"name"`
	Executable string            `json:"executable"`
	Cmdline    string            `json:"cmdline"`
}

// ProcessManager lists processes below Root, /proc by default
type ProcessManager struct {
	Root string
}

// NewProcessManager creates a new ProcessManager instance
func NewProcessManager() *ProcessManager {
	return &ProcessManager{Root: "/proc"}
}

// ListProcesses returns every process that is still readable
func (pm *ProcessManager) ListProcesses() ([]Process, error) {
	entries, err := os.ReadDir(pm.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", pm.Root, err)
	}

	var processes []Process
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		// Process might have disappeared, skip it
		if p, err := pm.GetProcess(process.ProcessID(pid)); err == nil {
			processes = append(processes, p)
		}
	}

	return processes, nil
}

// GetProcess reads the name and command line of pid
func (pm *ProcessManager) GetProcess(pid process.ProcessID) (Process, error) {
	dir := filepath.Join(pm.Root, strconv.Itoa(int(pid)))
	p := Process{PID: pid}

	comm, err := os.ReadFile(filepath.Join(dir, "comm"))
	if err != nil {
		return p, err
	}
	p.Name = strings.TrimSpace(string(comm))

	// Games running under wine show their executable only in the command line
	if cmdline, err := os.ReadFile(filepath.Join(dir, "cmdline")); err == nil {
		first, _, _ := strings.Cut(string(cmdline), "\x00")
		p.Executable = executable(first)
		p.Cmdline = strings.TrimSpace(strings.ReplaceAll(string(cmdline), "\x00", " "))
	}

	return p, nil
}

// FindProcessesByName returns the processes whose name or executable is name. comm is
// truncated by the kernel so a prefix of name also matches.
func (pm *ProcessManager) FindProcessesByName(name string) ([]Process, error) {
	processes, err := pm.ListProcesses()
	if err != nil {
		return nil, err
	}

	var matches []Process
	for _, p := range processes {
		if p.Name == name || (len(p.Name) >= 15 && strings.HasPrefix(name, p.Name)) || p.Executable == name {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// FindPID returns the pid of the only process called name
func (pm *ProcessManager) FindPID(name string) (process.ProcessID, error) {
	matches, err := pm.FindProcessesByName(name)
	if err != nil {
		return 0, err
	}
	switch len(matches) {
	case 0:
		return 0, fmt.Errorf("no process named %s", name)
	case 1:
		return matches[0].PID, nil
	}
	return 0, fmt.Errorf("%d processes named %s", len(matches), name)
}

// executable strips the directory from path, with either path separator
func executable(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
