package process_blob

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"tkmoveset/process"
	"tkmoveset/process/memory_map"
)

// DefaultAllocationBase is where ProcessDump places regions handed out by AllocateMemory
const DefaultAllocationBase = 0x7E0000000000

const allocationGranularity = 0x1000

// ProcessDump is a process that lives entirely in local memory: either loaded from a dump
// directory or assembled region by region. It supports reads, writes and allocation so it
// can stand in for a live game on both sides of an extract/import round trip.
type ProcessDump struct {
	PID       process.ProcessID
	Name      string
	MemoryMap []memory_map.MemoryMapItem
	Blobs     map[uint64][]byte // Region address -> Data

	mu        sync.Mutex
	closed    bool
	allocNext uint64
	allocated map[uint64]bool
}

var _ process.Process = (*ProcessDump)(nil)

// NewProcessDump creates an empty ProcessDump instance
func NewProcessDump() *ProcessDump {
	return &ProcessDump{
		Blobs:     make(map[uint64][]byte),
		allocNext: DefaultAllocationBase,
		allocated: make(map[uint64]bool),
	}
}

// MapRegion adds a region backed by data. data is used in place, not copied.
func (p *ProcessDump) MapRegion(addr process.ProcessMemoryAddress, data []byte, perms string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(data) == 0 {
		return errors.New("MapRegion: empty region")
	}

	item := memory_map.MemoryMapItem{Address: uint64(addr), Size: uint(len(data)), Perms: perms}
	for _, other := range p.MemoryMap {
		if item.Address < other.End() && other.Address < item.End() {
			return fmt.Errorf("MapRegion: 0x%x overlaps %s", uint64(addr), other)
		}
	}

	p.MemoryMap = append(p.MemoryMap, item)
	memory_map.Sort(p.MemoryMap)
	p.Blobs[item.Address] = data
	return nil
}

func (p *ProcessDump) Open(pid process.ProcessID) error {
	return fmt.Errorf("Open not supported for ProcessDump, use Load")
}

// Close detaches the dump; every later access fails with process.ErrProcessNotOpen
func (p *ProcessDump) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *ProcessDump) GetPID() process.ProcessID {
	return p.PID
}

func (p *ProcessDump) IsAttached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

func (p *ProcessDump) UpdateMemoryMap() error {
	return nil // Memory map is static in a dump
}

func (p *ProcessDump) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return memory_map.IsValidAddress(uint64(addr), p.MemoryMap)
}

func (p *ProcessDump) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]memory_map.MemoryMapItem, len(p.MemoryMap))
	copy(result, p.MemoryMap)
	return result, nil
}

// regionData returns the backing slice for [addr, addr+size). Caller holds the lock.
func (p *ProcessDump) regionData(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) (*memory_map.MemoryMapItem, []byte, error) {
	if p.closed {
		return nil, nil, process.ErrProcessNotOpen
	}

	region := memory_map.FindRegion(uint64(addr), p.MemoryMap)
	if region == nil {
		return nil, nil, fmt.Errorf("0x%x: %w", uint64(addr), process.ErrAddressNotMapped)
	}

	data, ok := p.Blobs[region.Address]
	if !ok {
		return nil, nil, fmt.Errorf("no data for region 0x%x", region.Address)
	}

	offset := uint64(addr) - region.Address
	if offset+uint64(size) > uint64(len(data)) || offset+uint64(size) < offset {
		return nil, nil, fmt.Errorf("access of %d bytes at 0x%x exceeds region data bounds: %w", size, uint64(addr), process.ErrAddressNotMapped)
	}

	return region, data[offset : offset+uint64(size)], nil
}

func (p *ProcessDump) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, data, err := p.regionData(addr, size)
	if err != nil {
		return nil, err
	}

	result := make([]byte, size)
	copy(result, data)
	return result, nil
}

func (p *ProcessDump) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	region, dst, err := p.regionData(addr, process.ProcessMemorySize(len(data)))
	if err != nil {
		return err
	}
	if !region.IsWritable() {
		return fmt.Errorf("memory region at %x is not writable", uint64(addr))
	}

	copy(dst, data)
	return nil
}

// AllocateMemory maps a fresh zeroed read-write region, page aligned
func (p *ProcessDump) AllocateMemory(size process.ProcessMemorySize) (process.ProcessMemoryAddress, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, process.ErrProcessNotOpen
	}
	if size == 0 {
		size = 8
	}

	addr := p.allocNext
	data := make([]byte, size)
	p.MemoryMap = append(p.MemoryMap, memory_map.MemoryMapItem{Address: addr, Size: uint(size), Perms: "rw-p"})
	memory_map.Sort(p.MemoryMap)
	p.Blobs[addr] = data
	p.allocated[addr] = true

	p.allocNext = addr + (uint64(size)+allocationGranularity-1)&^(allocationGranularity-1)
	return process.ProcessMemoryAddress(addr), nil
}

func (p *ProcessDump) FreeMemory(addr process.ProcessMemoryAddress) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.allocated[uint64(addr)] {
		return fmt.Errorf("FreeMemory: 0x%x was not allocated", uint64(addr))
	}
	delete(p.allocated, uint64(addr))
	delete(p.Blobs, uint64(addr))

	kept := p.MemoryMap[:0]
	for _, item := range p.MemoryMap {
		if item.Address != uint64(addr) {
			kept = append(kept, item)
		}
	}
	p.MemoryMap = kept
	return nil
}

// Allocations returns how many allocated regions are still live
func (p *ProcessDump) Allocations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.allocated)
}

type dumpMetadata struct {
	PID  process.ProcessID `json:"pid"`
	Name string            `json:"name"`
}

func blobFilename(dirname string, region memory_map.MemoryMapItem) string {
	return filepath.Join(dirname, fmt.Sprintf("blob_0x%x_%d.bin", region.Address, region.Size))
}

// Save writes the dump as metadata.json, process_memory_map.json and one blob file per region
func (p *ProcessDump) Save(dirname string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(dirname, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	metadataJSON, err := json.MarshalIndent(dumpMetadata{PID: p.PID, Name: p.Name}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dirname, "metadata.json"), metadataJSON, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}

	memoryMapJSON, err := json.MarshalIndent(p.MemoryMap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal memory map: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dirname, "process_memory_map.json"), memoryMapJSON, 0644); err != nil {
		return fmt.Errorf("failed to write memory map file: %w", err)
	}

	for _, region := range p.MemoryMap {
		data, ok := p.Blobs[region.Address]
		if !ok {
			continue
		}
		if err := os.WriteFile(blobFilename(dirname, region), data, 0644); err != nil {
			return fmt.Errorf("failed to write blob for region 0x%x: %w", region.Address, err)
		}
	}

	return nil
}

// Load reads a dump directory produced by Save or by a memory dumper using the same layout
func (p *ProcessDump) Load(dirname string) error {
	metadataBytes, err := os.ReadFile(filepath.Join(dirname, "metadata.json"))
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata dumpMetadata
	if err := json.Unmarshal(metadataBytes, &metadata); err != nil {
		return fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	mmBytes, err := os.ReadFile(filepath.Join(dirname, "process_memory_map.json"))
	if err != nil {
		return fmt.Errorf("failed to read memory map: %w", err)
	}

	var memoryMap []memory_map.MemoryMapItem
	if err := json.Unmarshal(mmBytes, &memoryMap); err != nil {
		return fmt.Errorf("failed to unmarshal memory map: %w", err)
	}
	memory_map.Sort(memoryMap)

	blobs := make(map[uint64][]byte)
	for _, region := range memoryMap {
		filename := blobFilename(dirname, region)
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			continue // region was not readable when dumped
		}

		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read blob %s: %w", filename, err)
		}
		blobs[region.Address] = data
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.PID = metadata.PID
	p.Name = metadata.Name
	p.MemoryMap = memoryMap
	p.Blobs = blobs
	p.closed = false
	return nil
}

func (p *ProcessDump) ReadUINT8(addr process.ProcessMemoryAddress) (uint8, error) {
	data, err := p.ReadMemory(addr, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func (p *ProcessDump) ReadUINT16(addr process.ProcessMemoryAddress) (uint16, error) {
	data, err := p.ReadMemory(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(data), nil
}

func (p *ProcessDump) ReadUINT32(addr process.ProcessMemoryAddress) (uint32, error) {
	data, err := p.ReadMemory(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

func (p *ProcessDump) ReadUINT64(addr process.ProcessMemoryAddress) (uint64, error) {
	data, err := p.ReadMemory(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data), nil
}
