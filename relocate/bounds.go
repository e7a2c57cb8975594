package relocate

import (
	"encoding/binary"
	"fmt"

	"tkmoveset/moveset"
	"tkmoveset/process"
	"tkmoveset/schema"
)

// MaxStringLength bounds the terminator scan at the tail of a side-data region
const MaxStringLength = 0x1000

// Span is a [Start, End) range of foreign memory. An Empty span stands for a block
// that has nothing to copy and is stored as a MinBlockSize placeholder.
type Span struct {
	Start uint64
	End   uint64
	Empty bool
}

func (s Span) Size() uint64 {
	if s.Empty {
		return moveset.MinBlockSize
	}
	return s.End - s.Start
}

func (s Span) String() string {
	if s.Empty {
		return "[empty]"
	}
	return fmt.Sprintf("[0x%x, 0x%x)", s.Start, s.End)
}

// TableSpan is the smallest range enclosing the record arrays of every non-empty table
func TableSpan(set *TableSet) Span {
	span := Span{Empty: true}
	for _, t := range set.Tables {
		if t.Empty() {
			continue
		}
		start, end := t.Base, t.Base+t.Size()
		if span.Empty {
			span = Span{Start: start, End: end}
			continue
		}
		span.Start = min(span.Start, start)
		span.End = max(span.End, end)
	}
	return span
}

// MaxTrailingData bounds how far past its record array a table's trailing data may reach
const MaxTrailingData = 16 << 20

// MovesetSpan is TableSpan extended over the trailing data of every table that owns some.
// Record offsets are read from the records in the foreign process; each one ends ItemSize
// bytes after its target. Targets further than MaxTrailingData past their table are left
// out, Encode rejects them later.
func MovesetSpan(r process.MemoryReader, set *TableSet) (Span, error) {
	span := TableSpan(set)
	sentinel := set.Schema.AbsentSentinel

	for _, t := range set.Tables {
		if t.Empty() || !t.Def.OwnsTrailingData {
			continue
		}
		var fields []schema.PointerField
		for _, p := range t.Def.Record.Pointers {
			if p.Kind == schema.ConvertRecordOffset {
				fields = append(fields, p)
			}
		}
		if len(fields) == 0 {
			continue
		}

		records, err := r.ReadMemory(process.ProcessMemoryAddress(t.Base), process.ProcessMemorySize(t.Size()))
		if err != nil {
			return span, fmt.Errorf("%w: %s records at 0x%x: %w", moveset.ErrRead, t.Def.Name, t.Base, err)
		}

		recordsEnd := t.Base + t.Size()
		for i := uint64(0); i < t.Count; i++ {
			rec := records[i*t.RecordSize():]
			for _, p := range fields {
				target := binary.LittleEndian.Uint64(rec[p.Offset:])
				if target == sentinel || target < recordsEnd || target-recordsEnd > MaxTrailingData {
					continue
				}
				span.End = max(span.End, target+p.ItemSize)
			}
		}
	}

	return span, nil
}

// SideDataBounds scans the bounds fields of region over every record of set (whose Data
// must still hold raw foreign addresses) and over info. Absent fields are skipped.
// For terminated regions the end is moved past the NUL that follows the highest address,
// reading the foreign process one byte at a time.
func SideDataBounds(r process.MemoryReader, set *TableSet, info *Info, region *schema.RegionDef) (Span, error) {
	sentinel := set.Schema.AbsentSentinel
	span := Span{Empty: true}

	observe := func(addr uint64) {
		if addr == sentinel {
			return
		}
		if span.Empty {
			span = Span{Start: addr, End: addr}
			return
		}
		span.Start = min(span.Start, addr)
		span.End = max(span.End, addr)
	}

	for _, ref := range region.Bounds {
		if ref.Table == schema.InfoTable {
			if info != nil && ref.Offset+8 <= uint64(len(info.Data)) {
				observe(binary.LittleEndian.Uint64(info.Data[ref.Offset:]))
			}
			continue
		}

		t := set.Table(ref.Table)
		if t == nil || t.Empty() {
			continue
		}
		for i := uint64(0); i < t.Count; i++ {
			observe(binary.LittleEndian.Uint64(t.Record(i)[ref.Offset:]))
		}
	}

	if span.Empty {
		return span, nil
	}

	if !region.Terminated {
		span.End++
		return span, nil
	}

	// span.End holds the start of the last item, walk to its terminator
	for n := uint64(0); ; n++ {
		if n >= MaxStringLength {
			return span, fmt.Errorf("%w: no terminator within %d bytes of 0x%x", moveset.ErrValidation, MaxStringLength, span.End-n)
		}
		b, err := r.ReadUINT8(process.ProcessMemoryAddress(span.End))
		if err != nil {
			return span, fmt.Errorf("%w: %s region tail at 0x%x: %w", moveset.ErrRead, region.Name, span.End, err)
		}
		if b == 0 {
			break
		}
		span.End++
	}
	span.End++

	return span, nil
}
