// Package relocate converts the pointer fields of a table set between absolute
// addresses and position independent values (table indices, record offsets and
// side-data offsets), in both directions.
package relocate

import (
	"encoding/binary"
	"fmt"

	"tkmoveset/moveset"
	"tkmoveset/schema"

	"go.uber.org/multierr"
)

type tableRange struct {
	base       uint64
	count      uint64
	recordSize uint64
	// dataEnd is where the table's attached data, trailing bytes included, ends
	dataEnd uint64
}

func (t tableRange) holds(addr uint64) bool {
	return t.count > 0 && addr >= t.base && addr < t.base+t.count*t.recordSize
}

// AddressSpace is a snapshot of every table base and side-data region base. It is
// taken before any field is rewritten so the order in which tables are relocated
// does not matter.
type AddressSpace struct {
	Schema  *schema.Schema
	tables  []tableRange
	regions map[schema.RegionID]uint64
}

// NewAddressSpace captures the current bases of set and the given region bases
func NewAddressSpace(set *TableSet, regions map[schema.RegionID]uint64) *AddressSpace {
	space := &AddressSpace{
		Schema:  set.Schema,
		tables:  make([]tableRange, len(set.Tables)),
		regions: make(map[schema.RegionID]uint64, len(regions)),
	}
	for i, t := range set.Tables {
		space.tables[i] = tableRange{base: t.Base, count: t.Count, recordSize: t.RecordSize(), dataEnd: t.Base + t.Size()}
		if t.Data != nil {
			space.tables[i].dataEnd = t.Base + uint64(len(t.Data))
		}
	}
	for id, base := range regions {
		space.regions[id] = base
	}
	return space
}

// TableBase returns the captured base of table id
func (a *AddressSpace) TableBase(id schema.TableID) uint64 {
	return a.tables[id].base
}

// RegionBase returns the captured base of region id
func (a *AddressSpace) RegionBase(id schema.RegionID) (uint64, bool) {
	base, ok := a.regions[id]
	return base, ok
}

// owner finds the table whose record array contains addr
func (a *AddressSpace) owner(addr uint64) (tableRange, bool) {
	for _, t := range a.tables {
		if t.holds(addr) {
			return t, true
		}
	}
	return tableRange{}, false
}

func (a *AddressSpace) table(id schema.TableID) (tableRange, error) {
	if id < 0 || int(id) >= len(a.tables) {
		return tableRange{}, fmt.Errorf("%w: unknown table %d", moveset.ErrValidation, id)
	}
	return a.tables[id], nil
}

// Encode turns the absolute address raw, read from the record at recordAddr, into its
// portable form. The absent sentinel becomes the missing marker.
// Indices past the end of the target table are accepted; games park sentinel entries there.
func Encode(field schema.PointerField, raw, recordAddr uint64, space *AddressSpace) (uint64, error) {
	s := space.Schema
	if raw == s.AbsentSentinel {
		return s.MissingMarker, nil
	}

	switch field.Kind {
	case schema.ConvertIndex:
		t, err := space.table(field.Target)
		if err != nil {
			return s.MissingMarker, err
		}
		if raw < t.base {
			return s.MissingMarker, fmt.Errorf("%w: 0x%x is below table base 0x%x", moveset.ErrValidation, raw, t.base)
		}
		diff := raw - t.base
		if diff%t.recordSize != 0 {
			return s.MissingMarker, fmt.Errorf("%w: 0x%x is %d bytes into a 0x%x byte record", moveset.ErrValidation, raw, diff%t.recordSize, t.recordSize)
		}
		return diff / t.recordSize, nil

	case schema.ConvertRecordOffset:
		if raw < recordAddr {
			return s.MissingMarker, fmt.Errorf("%w: 0x%x is below its record 0x%x", moveset.ErrValidation, raw, recordAddr)
		}
		owner, ok := space.owner(recordAddr)
		if !ok {
			return s.MissingMarker, fmt.Errorf("%w: record 0x%x lies in no table", moveset.ErrValidation, recordAddr)
		}
		if end := raw + field.ItemSize; end < raw || end > owner.dataEnd {
			return s.MissingMarker, fmt.Errorf("%w: 0x%x+0x%x runs past the table data ending at 0x%x", moveset.ErrValidation, raw, field.ItemSize, owner.dataEnd)
		}
		return raw - recordAddr, nil

	case schema.ConvertSideData:
		base, ok := space.regions[field.Region]
		if !ok {
			return s.MissingMarker, fmt.Errorf("%w: no base for region %s", moveset.ErrValidation, field.Region)
		}
		if raw < base {
			return s.MissingMarker, fmt.Errorf("%w: 0x%x is below region %s base 0x%x", moveset.ErrValidation, raw, field.Region, base)
		}
		return raw - base, nil
	}

	return s.MissingMarker, fmt.Errorf("%w: unknown conversion %s", moveset.ErrValidation, field.Kind)
}

// Decode is the inverse of Encode against the bases in space. The missing marker
// becomes the absent sentinel.
func Decode(field schema.PointerField, stored, recordAddr uint64, space *AddressSpace) (uint64, error) {
	s := space.Schema
	if stored == s.MissingMarker {
		return s.AbsentSentinel, nil
	}

	switch field.Kind {
	case schema.ConvertIndex:
		t, err := space.table(field.Target)
		if err != nil {
			return s.AbsentSentinel, err
		}
		return t.base + stored*t.recordSize, nil

	case schema.ConvertRecordOffset:
		return recordAddr + stored, nil

	case schema.ConvertSideData:
		base, ok := space.regions[field.Region]
		if !ok {
			return s.AbsentSentinel, fmt.Errorf("%w: no base for region %s", moveset.ErrValidation, field.Region)
		}
		return base + stored, nil
	}

	return s.AbsentSentinel, fmt.Errorf("%w: unknown conversion %s", moveset.ErrValidation, field.Kind)
}

// Info is the moveset info header: its bytes and the address they are relocated against
type Info struct {
	Addr uint64
	Data []byte
}

type convertFunc func(field schema.PointerField, value, recordAddr uint64, space *AddressSpace) (uint64, error)

// ToPortable rewrites, in place, every pointer field of every record of set and of info
// into its portable form. Fields that fail validation are set to the missing marker and
// their errors returned together; none of them stops the walk.
func ToPortable(set *TableSet, space *AddressSpace, info *Info) error {
	return walk(set, space, info, Encode, space.Schema.MissingMarker)
}

// ToAbsolute rewrites, in place, every portable field of set and info into an absolute
// address of space. Failed fields are set to the absent sentinel; errors are returned
// together as with ToPortable.
func ToAbsolute(set *TableSet, space *AddressSpace, info *Info) error {
	return walk(set, space, info, Decode, space.Schema.AbsentSentinel)
}

func walk(set *TableSet, space *AddressSpace, info *Info, convert convertFunc, fallback uint64) error {
	var errs error

	rewrite := func(owner string, index uint64, record []byte, recordAddr uint64, fields []schema.PointerField) {
		for _, field := range fields {
			slot := record[field.Offset : field.Offset+8]
			value, err := convert(field, binary.LittleEndian.Uint64(slot), recordAddr, space)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s[%d].%s: %w", owner, index, field.Name, err))
				value = fallback
			}
			binary.LittleEndian.PutUint64(slot, value)
		}
	}

	for id, t := range set.Tables {
		fields := t.Def.Record.Pointers
		if len(fields) == 0 || t.Empty() {
			continue
		}
		base := space.TableBase(schema.TableID(id))
		for i := uint64(0); i < t.Count; i++ {
			rewrite(t.Def.Record.Name, i, t.Record(i), base+i*t.RecordSize(), fields)
		}
	}

	if info != nil {
		rewrite("info", 0, info.Data, info.Addr, space.Schema.Info.Pointers)
	}

	return errs
}
