// Package movesettest lays out a small but complete T8 moveset inside a simulated
// process, for extractor, importer and editor tests.
package movesettest

import (
	"encoding/binary"
	"fmt"

	"tkmoveset/config"
	"tkmoveset/process"
	"tkmoveset/process_blob"
	"tkmoveset/schema"
)

// Addresses of the fixture regions
const (
	WorldAddr   = 0x10000000
	PlayerAddr  = 0x20000000
	PlayerGap   = 0x8000
	MovesetAddr = 0x30000000
	TablesAddr  = 0x31000000
	NamesAddr   = 0x32000000
	MotaAddr    = 0x33000000
	CurrentMove = PlayerAddr + 0x4000
)

type Options struct {
	Counts      map[schema.TableID]uint64
	CharacterID uint32
	Names       []string
	// Motas are stored one after the other; MotaSlots[i] picks the archive of mota slot i,
	// -1 leaves the slot empty
	Motas     [][]byte
	MotaSlots []int
}

// DefaultOptions describes a character with a handful of records in most tables,
// two shared animation archives and one big endian archive
func DefaultOptions() Options {
	return Options{
		Counts: map[schema.TableID]uint64{
			schema.T8Reactions:         1,
			schema.T8Requirement:       4,
			schema.T8HitCondition:      2,
			schema.T8Pushback:          2,
			schema.T8PushbackExtradata: 4,
			schema.T8Cancel:            16,
			schema.T8GroupCancel:       2,
			schema.T8ExtraMoveProperty: 2,
			schema.T8MoveBeginningProp: 1,
			schema.T8MoveEndingProp:    1,
			schema.T8Move:              3,
			schema.T8Voiceclip:         2,
			schema.T8InputSequence:     1,
			schema.T8Input:             2,
		},
		CharacterID: 12,
		Names:       []string{"[DEVIL_JIN]", "Bandai Namco", "2024", "2024-01-26 10:00", "Dj_000", "Dj_000_anim", "Dj_1", "Dj_1_anim", "Dj_2", "Dj_2_anim"},
		Motas: [][]byte{
			Mota(false, 0x20, 0x10),
			Mota(false, 0x30),
			Mota(true, 0x18, 0x8, 0x10),
		},
		MotaSlots: []int{0, 1, 0, 1, 2, -1, -1, -1, -1, -1, -1, -1, 2},
	}
}

type Fixture struct {
	Dump    *process_blob.ProcessDump
	Schema  *schema.Schema
	Game    *config.Game
	Player  process.ProcessMemoryAddress
	Moveset process.ProcessMemoryAddress

	// Tables holds the base of every table, 0 for empty ones
	Tables    []uint64
	NameAddrs []uint64
	MotaAddrs []uint64
	MotaList  []uint64
}

// SecondPlayer is a player slot without a moveset
func (f *Fixture) SecondPlayer() process.ProcessMemoryAddress {
	return f.Player + PlayerGap
}

func align(n, a uint64) uint64 {
	return (n + a - 1) &^ (a - 1)
}

// New builds the fixture process
func New(opts Options) (*Fixture, error) {
	s := schema.T8()
	game, err := config.Default().Game(8)
	if err != nil {
		return nil, err
	}
	g := *game

	f := &Fixture{
		Dump:    process_blob.NewProcessDump(),
		Schema:  s,
		Game:    &g,
		Player:  PlayerAddr,
		Moveset: MovesetAddr,
	}
	dump := f.Dump

	// Pointer path to the player list
	slot := g.ModuleBase + g.PlayerPath[0]
	page := slot &^ 0xFFF
	module := make([]byte, 0x1000)
	binary.LittleEndian.PutUint64(module[slot-page:], WorldAddr)
	world := make([]byte, 0x100)
	binary.LittleEndian.PutUint64(world[g.PlayerPath[1]:], PlayerAddr)
	binary.LittleEndian.PutUint64(world[g.PlayerPath[1]+g.PlayerStride:], PlayerAddr+PlayerGap)

	players := make([]byte, 2*PlayerGap)
	binary.LittleEndian.PutUint64(players[g.Values["motbin_offset"]:], MovesetAddr)
	binary.LittleEndian.PutUint32(players[g.Values["chara_id_offset"]:], opts.CharacterID)
	binary.LittleEndian.PutUint64(players[g.Values["currmove"]:], CurrentMove)

	// Names
	var names []byte
	for _, name := range opts.Names {
		f.NameAddrs = append(f.NameAddrs, NamesAddr+uint64(len(names)))
		names = append(names, name...)
		names = append(names, 0)
	}
	nameAt := func(i int) uint64 {
		if len(f.NameAddrs) == 0 {
			return s.AbsentSentinel
		}
		return f.NameAddrs[i%len(f.NameAddrs)]
	}

	// Animation archives
	var motas []byte
	for _, archive := range opts.Motas {
		f.MotaAddrs = append(f.MotaAddrs, MotaAddr+uint64(len(motas)))
		motas = append(motas, archive...)
		motas = append(motas, make([]byte, align(uint64(len(motas)), 0x10)-uint64(len(motas)))...)
	}

	// Tables
	f.Tables = make([]uint64, len(s.Tables))
	counts := make([]uint64, len(s.Tables))
	var size uint64
	for i, def := range s.Tables {
		counts[i] = opts.Counts[def.ID]
		if counts[i] == 0 {
			continue
		}
		f.Tables[i] = TablesAddr + size
		size = align(size+counts[i]*def.Record.Size, 8)
	}

	tables := make([]byte, size+0x10)
	for i, def := range s.Tables {
		for r := uint64(0); r < counts[i]; r++ {
			off := f.Tables[i] - TablesAddr + r*def.Record.Size
			rec := tables[off : off+def.Record.Size]
			for k := range rec {
				rec[k] = byte(i*37 + int(r)*11 + k)
			}

			nameIndex := 4 + 2*int(r)
			for _, p := range def.Record.Pointers {
				var v uint64
				switch p.Kind {
				case schema.ConvertIndex:
					if n := counts[p.Target]; n > 0 {
						v = f.Tables[p.Target] + ((r+1)%n)*s.Tables[p.Target].Record.Size
					}
				case schema.ConvertSideData:
					v = nameAt(nameIndex)
					nameIndex++
				}
				binary.LittleEndian.PutUint64(rec[p.Offset:], v)
			}
		}
	}

	// Info, table header and mota list
	info := make([]byte, align(s.Info.MotaListOffset+s.MotaListSize(), 0x100))
	info[s.Info.InitializedOffset] = 1
	for i, p := range s.Info.Pointers {
		binary.LittleEndian.PutUint64(info[p.Offset:], nameAt(i))
	}
	for i, def := range s.Tables {
		binary.LittleEndian.PutUint64(info[s.Info.TableOffset+def.PtrOffset:], f.Tables[i])
		binary.LittleEndian.PutUint64(info[s.Info.TableOffset+def.CountOffset:], counts[i])
	}
	f.MotaList = make([]uint64, s.Info.MotaCount)
	for i := range f.MotaList {
		if i < len(opts.MotaSlots) && opts.MotaSlots[i] >= 0 {
			f.MotaList[i] = f.MotaAddrs[opts.MotaSlots[i]]
		}
		binary.LittleEndian.PutUint64(info[s.Info.MotaListOffset+uint64(i)*8:], f.MotaList[i])
	}

	regions := []struct {
		addr  uint64
		data  []byte
		perms string
	}{
		{page, module, "r--p"},
		{WorldAddr, world, "rw-p"},
		{PlayerAddr, players, "rw-p"},
		{MovesetAddr, info, "rw-p"},
		{TablesAddr, tables, "rw-p"},
		{NamesAddr, append(names, make([]byte, 0x10)...), "rw-p"},
		{MotaAddr, append(motas, make([]byte, 0x10)...), "rw-p"},
	}
	for _, r := range regions {
		if err := dump.MapRegion(process.ProcessMemoryAddress(r.addr), r.data, r.perms); err != nil {
			return nil, fmt.Errorf("fixture region 0x%x: %w", r.addr, err)
		}
	}

	return f, nil
}

// Mota builds an animation archive holding one length-prefixed animation per size.
// Sizes must be multiples of 4. The big endian form byteswaps to exactly the little
// endian one.
func Mota(bigEndian bool, animSizes ...uint32) []byte {
	var order binary.ByteOrder = binary.LittleEndian
	if bigEndian {
		order = binary.BigEndian
	}

	header := 0x14 + 4*len(animSizes)
	total := uint32(header)
	for _, size := range animSizes {
		total += size
	}
	out := make([]byte, total)

	copy(out, "MOTA")
	if bigEndian {
		out[5] = 1
	} else {
		out[4] = 1
		out[0x11] = 1
	}
	order.PutUint16(out[0x6:], 0x1234)
	order.PutUint32(out[0x8:], 0xCAFE)
	order.PutUint32(out[0xC:], uint32(len(animSizes)))

	off := uint32(header)
	for i, size := range animSizes {
		order.PutUint32(out[0x14+4*i:], off)
		order.PutUint32(out[off:], size)
		for w := uint32(4); w+4 <= size; w += 4 {
			order.PutUint32(out[off+w:], uint32(i+1)<<24|w)
		}
		off += size
	}

	return out
}
