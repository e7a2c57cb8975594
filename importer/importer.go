// Package importer loads a moveset file into a foreign process: the info header, the
// moveset block and every side data region are given fresh memory, the portable pointers
// are rebased onto those addresses and the result is written out.
package importer

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"tkmoveset/config"
	"tkmoveset/moveset"
	"tkmoveset/pod"
	"tkmoveset/process"
	"tkmoveset/relocate"
	"tkmoveset/schema"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"go.uber.org/multierr"
)

// CRCPolicy decides what a checksum mismatch does to an import
type CRCPolicy int

const (
	// CRCWarn logs the mismatch and imports anyway
	CRCWarn CRCPolicy = iota
	// CRCStrict refuses files whose checksum does not match
	CRCStrict
)

func (p CRCPolicy) String() string {
	if p == CRCStrict {
		return "strict"
	}
	return "warn"
}

type Options struct {
	// Schema overrides the schema named in the file
	Schema    *schema.Schema
	CRCPolicy CRCPolicy

	// Game and Player select whose moveset pointer is replaced when ApplyToPlayer is set,
	// and where missing motas are borrowed from when FillMissingMotas is set
	Game             *config.Game
	Player           int
	ApplyToPlayer    bool
	FillMissingMotas bool
}

type Result struct {
	File           *moveset.File
	InfoAddress    process.ProcessMemoryAddress
	MovesetAddress process.ProcessMemoryAddress
	// TableAddrs is indexed by schema.TableID. Empty tables get an address too but
	// nothing is stored there.
	TableAddrs     []process.ProcessMemoryAddress
	NameAddress    process.ProcessMemoryAddress
	MotaAddress    process.ProcessMemoryAddress
	Warnings       []error
}

type Importer struct {
	target      process.MemoryTarget
	log         *logger.Logger
	progress    moveset.Progress
	allocations []process.ProcessMemoryAddress
}

// New creates an importer writing into target. An importer is good for one import.
func New(target process.MemoryTarget) *Importer {
	return &Importer{
		target: target,
		log:    logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "importer")),
	}
}

// Import is New(target).Import(ctx, data, opts)
func Import(ctx context.Context, data []byte, target process.MemoryTarget, opts Options) (*Result, error) {
	return New(target).Import(ctx, data, opts)
}

// Progress returns the percentage reached so far. Safe to call from another goroutine.
func (im *Importer) Progress() uint8 {
	return im.progress.Get()
}

// Import unpacks a moveset file and writes it into the target. Integrity failures follow
// opts.CRCPolicy. ctx is checked between phases; once writing has started the import
// runs to completion.
func (im *Importer) Import(ctx context.Context, data []byte, opts Options) (*Result, error) {
	f, err := moveset.Unpack(data)
	if err != nil {
		return nil, im.progress.Fail("import", err)
	}
	im.progress.Set(10)

	return im.ImportFile(ctx, f, opts)
}

// ImportFile writes an already unpacked file into the target. f is not modified.
func (im *Importer) ImportFile(ctx context.Context, f *moveset.File, opts Options) (*Result, error) {
	res, err := im.importFile(ctx, f, opts)
	if err != nil {
		if freeErr := im.release(); freeErr != nil {
			im.log.Warn("Failed to release allocations: ", freeErr)
		}
		return nil, im.progress.Fail("import", err)
	}
	im.allocations = nil
	return res, nil
}

func (im *Importer) importFile(ctx context.Context, f *moveset.File, opts Options) (*Result, error) {
	res := &Result{File: f}

	if err := f.VerifyCRC(); err != nil {
		if opts.CRCPolicy == CRCStrict {
			return nil, err
		}
		im.log.Warn("Importing modified or damaged file: ", err)
		res.Warnings = append(res.Warnings, err)
	}
	im.progress.Set(15)

	s, err := im.schemaFor(f, opts)
	if err != nil {
		return nil, err
	}

	layout := s.Info
	info, err := blockCopy(f, moveset.BlockMovesetInfo, layout.Size)
	if err != nil {
		return nil, err
	}
	tableHeader, err := blockCopy(f, moveset.BlockTable, layout.TableHeaderSize)
	if err != nil {
		return nil, err
	}
	motaList, err := blockCopy(f, moveset.BlockMotalists, s.MotaListSize())
	if err != nil {
		return nil, err
	}
	movesetBlock := bytes.Clone(f.Block(moveset.BlockMoveset))
	nameBlock := f.Block(moveset.BlockName)
	motaBlock := f.Block(moveset.BlockMota)

	set, err := relocate.ReadHeader(s, tableHeader)
	if err != nil {
		return nil, err
	}
	if err := set.Attach(movesetBlock, 0); err != nil {
		return nil, err
	}
	im.progress.Set(20)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Everything is allocated before the first pointer is rebased
	infoSize := layout.MotaListOffset + s.MotaListSize()
	if res.InfoAddress, err = im.allocate(infoSize); err != nil {
		return nil, err
	}
	if res.MovesetAddress, err = im.allocate(uint64(len(movesetBlock))); err != nil {
		return nil, err
	}
	if res.NameAddress, err = im.allocate(uint64(len(nameBlock))); err != nil {
		return nil, err
	}
	if res.MotaAddress, err = im.allocate(uint64(len(motaBlock))); err != nil {
		return nil, err
	}
	im.progress.Set(50)

	// Tables keep their place inside the moveset block, trailing data included
	res.TableAddrs = make([]process.ProcessMemoryAddress, len(set.Tables))
	for id, t := range set.Tables {
		t.Base += uint64(res.MovesetAddress)
		res.TableAddrs[id] = process.ProcessMemoryAddress(t.Base)
	}
	space := relocate.NewAddressSpace(set, map[schema.RegionID]uint64{
		schema.RegionName: uint64(res.NameAddress),
		schema.RegionMota: uint64(res.MotaAddress),
	})
	relocErr := relocate.ToAbsolute(set, space, &relocate.Info{Addr: uint64(res.InfoAddress), Data: info})

	var fallback []uint64
	if opts.FillMissingMotas {
		fallback = im.currentMotas(s, opts)
	}
	for i := 0; i < layout.MotaCount; i++ {
		field := s.MotaSlot(i)
		slot := motaList[field.Offset : field.Offset+8]
		stored := binary.LittleEndian.Uint64(slot)
		addr, err := relocate.Decode(field, stored, 0, space)
		if err != nil {
			relocErr = multierr.Append(relocErr, fmt.Errorf("motalist[%d]: %w", i, err))
		}
		if stored == s.MissingMarker && i < len(fallback) {
			addr = fallback[i]
		}
		binary.LittleEndian.PutUint64(slot, addr)
	}

	set.WriteHeader(tableHeader, 0)

	for _, w := range multierr.Errors(relocErr) {
		im.log.Debugln(w)
		res.Warnings = append(res.Warnings, w)
	}
	im.progress.Set(60)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	image := make([]byte, infoSize)
	copy(image, info)
	copy(image[layout.TableOffset:], tableHeader)
	copy(image[layout.MotaListOffset:], motaList)
	if err := im.write(res.InfoAddress, image); err != nil {
		return nil, err
	}
	im.progress.Set(70)
	if err := im.write(res.MovesetAddress, movesetBlock); err != nil {
		return nil, err
	}
	im.progress.Set(90)
	if err := im.write(res.NameAddress, nameBlock); err != nil {
		return nil, err
	}
	if err := im.write(res.MotaAddress, motaBlock); err != nil {
		return nil, err
	}
	im.progress.Set(95)

	if opts.ApplyToPlayer {
		if err := im.applyToPlayer(opts, res.InfoAddress); err != nil {
			return nil, err
		}
	}
	im.progress.Set(100)

	im.log.Infoln("Imported", f.CharacterName(), "at", res.InfoAddress.ToString())
	return res, nil
}

func (im *Importer) schemaFor(f *moveset.File, opts Options) (*schema.Schema, error) {
	s := opts.Schema
	if s == nil {
		name := "t8"
		if v, ok := f.Property(moveset.PropertySchema); ok {
			name = moveset.ValueName(v)
		}
		var err error
		if s, err = schema.ByName(name); err != nil {
			return nil, fmt.Errorf("%w: %w", moveset.ErrFormat, err)
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// blockCopy returns a private copy of block id, which must hold at least size bytes
func blockCopy(f *moveset.File, id moveset.BlockID, size uint64) ([]byte, error) {
	block := f.Block(id)
	if uint64(len(block)) < size {
		return nil, fmt.Errorf("%w: %s block is %d bytes, expected %d", moveset.ErrFormat, id, len(block), size)
	}
	return bytes.Clone(block[:size]), nil
}

func (im *Importer) allocate(size uint64) (process.ProcessMemoryAddress, error) {
	size = max(size, moveset.MinBlockSize)
	addr, err := im.target.AllocateMemory(process.ProcessMemorySize(size))
	if err != nil {
		return 0, fmt.Errorf("%w: %d bytes: %w", moveset.ErrAllocation, size, err)
	}
	im.allocations = append(im.allocations, addr)
	return addr, nil
}

func (im *Importer) write(addr process.ProcessMemoryAddress, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := im.target.WriteMemory(addr, data); err != nil {
		return fmt.Errorf("%w: %d bytes at %s: %w", moveset.ErrWrite, len(data), addr.ToString(), err)
	}
	return nil
}

// release frees every allocation made so far
func (im *Importer) release() error {
	var errs error
	for _, addr := range im.allocations {
		errs = multierr.Append(errs, im.target.FreeMemory(addr))
	}
	im.allocations = nil
	return errs
}

func (im *Importer) playerMoveset(opts Options) (process.ProcessMemoryAddress, process.ProcessMemoryAddress, error) {
	if opts.Game == nil {
		return 0, 0, fmt.Errorf("no game configured")
	}
	player, err := opts.Game.PlayerAddress(im.target, opts.Player)
	if err != nil {
		return 0, 0, err
	}
	off, err := opts.Game.Value("motbin_offset")
	if err != nil {
		return 0, 0, err
	}
	slot := player + process.ProcessMemoryAddress(off)
	current, err := im.target.ReadUINT64(slot)
	if err != nil {
		return 0, 0, err
	}
	return slot, process.ProcessMemoryAddress(current), nil
}

// currentMotas reads the mota list of the moveset the player currently uses.
// Failures leave the missing slots empty.
func (im *Importer) currentMotas(s *schema.Schema, opts Options) []uint64 {
	_, current, err := im.playerMoveset(opts)
	if err != nil || current == 0 {
		im.log.Debugln("No current moveset to borrow motas from:", err)
		return nil
	}

	motas, err := pod.ReadSliceT[uint64](im.target, current+process.ProcessMemoryAddress(s.Info.MotaListOffset), s.Info.MotaCount)
	if err != nil {
		im.log.Debugln("Failed to read current mota list:", err)
		return nil
	}
	return motas
}

func (im *Importer) applyToPlayer(opts Options, info process.ProcessMemoryAddress) error {
	slot, _, err := im.playerMoveset(opts)
	if err != nil {
		return fmt.Errorf("%w: player %d: %w", moveset.ErrRead, opts.Player, err)
	}
	var ptr [8]byte
	binary.LittleEndian.PutUint64(ptr[:], uint64(info))
	if err := im.target.WriteMemory(slot, ptr[:]); err != nil {
		return fmt.Errorf("%w: moveset pointer of player %d: %w", moveset.ErrWrite, opts.Player, err)
	}
	im.log.Infoln("Player", opts.Player, "now uses moveset at", info.ToString())
	return nil
}
