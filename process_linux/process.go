//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"sync"

	"tkmoveset/process"
	"tkmoveset/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// LinuxProcess implements process.Process on top of process_vm_readv/process_vm_writev.
// Linux cannot reserve memory inside another process, so allocation goes through an
// arena the caller designates with UseArena.
type LinuxProcess struct {
	pid   process.ProcessID
	log   *logger.Logger
	mm    []memory_map.MemoryMapItem
	arena *process.ArenaAllocator
	mu    sync.Mutex
}

var _ process.Process = (*LinuxProcess)(nil)

// New creates a new LinuxProcess instance
func New() *LinuxProcess {
	return &LinuxProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
	}
}

// NewWithPID creates a new LinuxProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (*LinuxProcess, error) {
	p := New()
	if err := p.Open(pid); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *LinuxProcess) Open(pid process.ProcessID) error {
	procPath := fmt.Sprintf("/proc/%d", pid)
	if _, err := os.Stat(procPath); os.IsNotExist(err) {
		return fmt.Errorf("process with PID %d does not exist", pid)
	}

	p.mu.Lock()
	p.pid = pid
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))
	p.mu.Unlock()

	// UpdateMemoryMap takes the lock itself
	if err := p.UpdateMemoryMap(); err != nil {
		return fmt.Errorf("failed to initialize memory map: %w", err)
	}

	p.log.Infoln("Process opened")

	return nil
}

func (p *LinuxProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.Infoln("Closing process")

	p.pid = 0
	p.mm = nil
	p.arena = nil

	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	return nil
}

// GetPID returns the process ID
func (p *LinuxProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

func (p *LinuxProcess) IsAttached() bool {
	return p.GetPID() != 0
}

func (p *LinuxProcess) UpdateMemoryMap() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pid == 0 {
		return process.ErrProcessNotOpen
	}

	mm, err := memory_map.ReadMemoryMap(int(p.pid))
	if err != nil {
		return fmt.Errorf("failed to read memory map: %w", err)
	}

	p.mm = mm
	return nil
}

func (p *LinuxProcess) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.isValidAddressInternal(addr)
}

// Internal helper function that assumes the mutex is already locked
func (p *LinuxProcess) isValidAddressInternal(addr process.ProcessMemoryAddress) bool {
	if addr <= 0x10000 {
		return false
	}

	if addr > 0x7FFFFFFFFFFF {
		return false
	}

	return memory_map.IsValidAddress(uint64(addr), p.mm)
}

func (p *LinuxProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	result := make([]memory_map.MemoryMapItem, len(p.mm))
	copy(result, p.mm)

	return result, nil
}

// UseArena designates a writable region of the target that AllocateMemory carves from.
// The region must be mapped writable and unused by the target.
func (p *LinuxProcess) UseArena(base process.ProcessMemoryAddress, size process.ProcessMemorySize) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return process.ErrProcessNotOpen
	}

	region := memory_map.FindRegion(uint64(base), p.mm)
	if region == nil {
		return fmt.Errorf("arena 0x%x: %w", uint64(base), process.ErrAddressNotMapped)
	}
	if !region.IsWritable() || !region.Contains(uint64(base), uint64(size)) {
		return fmt.Errorf("arena 0x%x (+%d) does not fit a writable region (%s)", uint64(base), size, region)
	}

	p.arena = process.NewArenaAllocator(base, size)
	p.log.Infoln("Using arena at", base.ToString(), "size", size.ToString())

	return nil
}

func (p *LinuxProcess) AllocateMemory(size process.ProcessMemorySize) (process.ProcessMemoryAddress, error) {
	p.mu.Lock()
	arena := p.arena
	p.mu.Unlock()

	if arena == nil {
		return 0, process.ErrNoAllocator
	}
	return arena.AllocateMemory(size)
}

func (p *LinuxProcess) FreeMemory(addr process.ProcessMemoryAddress) error {
	p.mu.Lock()
	arena := p.arena
	p.mu.Unlock()

	if arena == nil {
		return process.ErrNoAllocator
	}
	return arena.FreeMemory(addr)
}
