package relocate

import (
	"encoding/binary"
	"fmt"

	"tkmoveset/moveset"
	"tkmoveset/schema"
)

// MaxRecords bounds the record count accepted from a table header
const MaxRecords = 1 << 24

// Table is an arena of fixed-stride records. Base is the address of record 0 in whichever
// address space the table currently belongs to: the source process while extracting, the
// moveset block (as an offset) after unpacking, the destination process once allocated.
type Table struct {
	Def   *schema.TableDef
	Base  uint64
	Count uint64

	// Data holds Count records, followed by trailing bytes for OwnsTrailingData tables
	Data []byte
}

func (t *Table) RecordSize() uint64 {
	return t.Def.Record.Size
}

// Size is the byte size of the record array, trailing data excluded
func (t *Table) Size() uint64 {
	return t.Count * t.Def.Record.Size
}

func (t *Table) Empty() bool {
	return t.Count == 0
}

// Record returns the bytes of record i, aliasing Data
func (t *Table) Record(i uint64) []byte {
	size := t.Def.Record.Size
	off := i * size
	return t.Data[off : off+size : off+size]
}

// RecordAddr returns the address of record i relative to Base
func (t *Table) RecordAddr(i uint64) uint64 {
	return t.Base + i*t.Def.Record.Size
}

// TableSet holds every table of one moveset, indexed by schema.TableID
type TableSet struct {
	Schema *schema.Schema
	Tables []*Table
}

func (set *TableSet) Table(id schema.TableID) *Table {
	if id < 0 || int(id) >= len(set.Tables) {
		return nil
	}
	return set.Tables[id]
}

// RecordCount is the total number of records across all tables
func (set *TableSet) RecordCount() uint64 {
	var n uint64
	for _, t := range set.Tables {
		n += t.Count
	}
	return n
}

// ReadHeader decodes the {pointer, count} pairs of a table header. The tables have no
// Data until Attach is called.
func ReadHeader(s *schema.Schema, header []byte) (*TableSet, error) {
	if uint64(len(header)) < s.Info.TableHeaderSize {
		return nil, fmt.Errorf("%w: table header is %d bytes, expected %d", moveset.ErrFormat, len(header), s.Info.TableHeaderSize)
	}

	set := &TableSet{Schema: s, Tables: make([]*Table, len(s.Tables))}
	for i := range s.Tables {
		def := &s.Tables[i]
		t := &Table{
			Def:   def,
			Base:  binary.LittleEndian.Uint64(header[def.PtrOffset:]),
			Count: binary.LittleEndian.Uint64(header[def.CountOffset:]),
		}
		if t.Count > MaxRecords {
			return nil, fmt.Errorf("%w: table %s claims %d records", moveset.ErrFormat, def.Name, t.Count)
		}
		set.Tables[i] = t
	}
	return set, nil
}

// WriteHeader stores every table as {Base - origin, Count}. The subtraction wraps for
// empty tables whose pointer lies below origin; Attach never dereferences those.
func (set *TableSet) WriteHeader(header []byte, origin uint64) {
	for _, t := range set.Tables {
		binary.LittleEndian.PutUint64(header[t.Def.PtrOffset:], t.Base-origin)
		binary.LittleEndian.PutUint64(header[t.Def.CountOffset:], t.Count)
	}
}

// Attach points every non-empty table's Data into block, where block starts at origin.
// Tables owning trailing data extend up to the next table, or to the end of block.
func (set *TableSet) Attach(block []byte, origin uint64) error {
	blockEnd := uint64(len(block))

	for _, t := range set.Tables {
		if t.Empty() {
			t.Data = nil
			continue
		}

		start := t.Base - origin
		end := start + t.Size()
		if t.Base < origin || end > blockEnd || end < start {
			return fmt.Errorf("%w: table %s [0x%x, +0x%x) lies outside the %d byte moveset block", moveset.ErrFormat, t.Def.Name, t.Base, t.Size(), blockEnd)
		}

		if t.Def.OwnsTrailingData {
			recordsEnd := end
			end = blockEnd
			for _, other := range set.Tables {
				if other.Empty() || other.Base <= t.Base {
					continue
				}
				if next := other.Base - origin; next >= recordsEnd && next < end {
					end = next
				}
			}
		}

		t.Data = block[start:end:end]
	}

	return nil
}
