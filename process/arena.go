package process

import (
	"fmt"
	"sort"
	"sync"
)

// ArenaAllocator hands out 8-byte aligned slices of a writable region that already
// exists inside the foreign process. It is used where the OS offers no way to reserve
// memory remotely. Freed blocks are only reclaimed when they sit at the top of the arena.
type ArenaAllocator struct {
	base ProcessMemoryAddress
	size ProcessMemorySize

	mu     sync.Mutex
	cursor ProcessMemorySize
	blocks map[ProcessMemoryAddress]ProcessMemorySize
}

var _ MemoryAllocator = (*ArenaAllocator)(nil)

// NewArenaAllocator creates an allocator over [base, base+size)
func NewArenaAllocator(base ProcessMemoryAddress, size ProcessMemorySize) *ArenaAllocator {
	return &ArenaAllocator{
		base:   base,
		size:   size,
		blocks: make(map[ProcessMemoryAddress]ProcessMemorySize),
	}
}

func (a *ArenaAllocator) AllocateMemory(size ProcessMemorySize) (ProcessMemoryAddress, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if size == 0 {
		size = 8
	}
	size = Align8(size)

	if a.cursor+size > a.size || a.cursor+size < a.cursor {
		return 0, fmt.Errorf("%w: requested %d bytes, %d left", ErrOutOfArena, size, a.size-a.cursor)
	}

	addr := a.base + ProcessMemoryAddress(a.cursor)
	a.cursor += size
	a.blocks[addr] = size

	return addr, nil
}

func (a *ArenaAllocator) FreeMemory(addr ProcessMemoryAddress) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.blocks[addr]; !ok {
		return fmt.Errorf("arena: 0x%x was not allocated here", uint64(addr))
	}
	delete(a.blocks, addr)

	// Walk the cursor back over every freed block at the top
	tops := make([]ProcessMemoryAddress, 0, len(a.blocks))
	for blockAddr := range a.blocks {
		tops = append(tops, blockAddr)
	}
	sort.Slice(tops, func(i, j int) bool { return tops[i] < tops[j] })

	a.cursor = 0
	if len(tops) > 0 {
		last := tops[len(tops)-1]
		a.cursor = ProcessMemorySize(last-a.base) + a.blocks[last]
	}

	return nil
}

// Used returns how many bytes of the arena are currently reserved
func (a *ArenaAllocator) Used() ProcessMemorySize {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cursor
}
