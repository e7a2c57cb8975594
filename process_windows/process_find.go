//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"tkmoveset/process"

	"golang.org/x/sys/windows"
)

// FindPID returns the pid of the only running process whose executable is name,
// compared case-insensitively
func FindPID(name string) (process.ProcessID, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return 0, fmt.Errorf("CreateToolhelp32Snapshot failed: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	var matches []process.ProcessID
	for err = windows.Process32First(snapshot, &entry); err == nil; err = windows.Process32Next(snapshot, &entry) {
		if strings.EqualFold(windows.UTF16ToString(entry.ExeFile[:]), name) {
			matches = append(matches, process.ProcessID(entry.ProcessID))
		}
	}
	if !errors.Is(err, windows.ERROR_NO_MORE_FILES) {
		return 0, fmt.Errorf("failed to list processes: %w", err)
	}

	switch len(matches) {
	case 0:
		return 0, fmt.Errorf("no process named %s", name)
	case 1:
		return matches[0], nil
	}
	return 0, fmt.Errorf("%d processes named %s", len(matches), name)
}
