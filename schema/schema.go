// Package schema describes the record types of a moveset, where their pointer
// fields sit and which table or side-data region each pointer targets. Every
// relocation, bounds and import step is driven by this data instead of per-type code.
package schema

import (
	"errors"
	"fmt"
)

// TableID is the ordinal of a table inside the table set. The same ordinal is used
// in the foreign table header, in the packed table block and here.
type TableID int

// InfoTable designates the moveset info header in a FieldRef rather than a record table
const InfoTable TableID = -1

// ConvertKind selects how a pointer field is made position independent
type ConvertKind int

const (
	// ConvertIndex stores (address - target table base) / target record size
	ConvertIndex ConvertKind = iota
	// ConvertRecordOffset stores address - address of the record holding the field
	ConvertRecordOffset
	// ConvertSideData stores address - base of a side-data region (names, animation archives)
	ConvertSideData
)

func (k ConvertKind) String() string {
	switch k {
	case ConvertIndex:
		return "index"
	case ConvertRecordOffset:
		return "record-offset"
	case ConvertSideData:
		return "side-data"
	}
	return fmt.Sprintf("ConvertKind(%d)", int(k))
}

// RegionID names a side-data region
type RegionID int

const (
	RegionNone RegionID = iota
	RegionName
	RegionMota
)

func (r RegionID) String() string {
	switch r {
	case RegionNone:
		return "none"
	case RegionName:
		return "name"
	case RegionMota:
		return "mota"
	}
	return fmt.Sprintf("RegionID(%d)", int(r))
}

// PointerField is an 8-byte absolute address stored inside a record
type PointerField struct {
	Name   string
	Offset uint64
	Kind   ConvertKind
	Target TableID  // ConvertIndex only
	Region RegionID // ConvertSideData only

	// ItemSize is the byte length of the data a ConvertRecordOffset field points at. It
	// must lie within the trailing data of the field's table.
	ItemSize uint64
}

// FieldType is the scalar encoding of a plain field
type FieldType int

const (
	U8 FieldType = iota
	U16
	U32
	U64
	I16
	I32
	F32
)

// Size returns the width of the type in bytes
func (t FieldType) Size() uint64 {
	switch t {
	case U8:
		return 1
	case U16, I16:
		return 2
	case U32, I32, F32:
		return 4
	case U64:
		return 8
	}
	return 0
}

// FieldDef is a plain, non-pointer field exposed to editors
type FieldDef struct {
	Name   string
	Offset uint64
	Type   FieldType
}

type RecordType struct {
	Name     string
	Size     uint64
	Pointers []PointerField
	Fields   []FieldDef
}

// Pointer looks a pointer field up by name
func (r *RecordType) Pointer(name string) (PointerField, bool) {
	for _, p := range r.Pointers {
		if p.Name == name {
			return p, true
		}
	}
	return PointerField{}, false
}

// Field looks a plain field up by name
func (r *RecordType) Field(name string) (FieldDef, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// TableDef places a table in the foreign table header: the table's base pointer lives at
// PtrOffset and its record count at CountOffset, both relative to the header start.
type TableDef struct {
	ID          TableID
	Name        string
	Record      *RecordType
	PtrOffset   uint64
	CountOffset uint64

	// OwnsTrailingData marks tables whose records reference variable-length data stored
	// right after the record array. The bytes up to the next table travel with the table.
	OwnsTrailingData bool
}

// FieldRef points at a pointer-sized field of every record of a table, or of the info header
type FieldRef struct {
	Table  TableID
	Offset uint64
}

// RegionDef is a side-data region. Regions with Bounds are sized by scanning those fields;
// Terminated regions end after the NUL byte following the highest referenced address.
type RegionDef struct {
	ID         RegionID
	Name       string
	Bounds     []FieldRef
	Terminated bool
}

// InfoLayout describes the moveset info header that precedes the table header in memory
type InfoLayout struct {
	// Size of the info part copied verbatim, ending where the table header starts
	Size uint64
	// TableOffset is where the table header starts relative to the moveset address
	TableOffset     uint64
	TableHeaderSize uint64
	MotaListOffset  uint64
	MotaCount       int
	// SizedMotaCount is how many leading slots can be measured; later slots are only kept
	// when they alias an earlier one
	SizedMotaCount int
	// InitializedOffset holds a byte that is 1 once the game finished loading the moveset
	InitializedOffset uint64
	Pointers          []PointerField
}

type Schema struct {
	Name    string
	Tables  []TableDef
	Info    InfoLayout
	Regions []RegionDef

	// AbsentSentinel is the foreign value of a null pointer
	AbsentSentinel uint64
	// MissingMarker replaces an absent or unresolvable pointer in portable data
	MissingMarker uint64
}

var ErrInvalidSchema = errors.New("invalid schema")

// Table returns the definition of table id
func (s *Schema) Table(id TableID) *TableDef {
	if id < 0 || int(id) >= len(s.Tables) {
		return nil
	}
	return &s.Tables[id]
}

// TableByName finds a table definition by table or record type name
func (s *Schema) TableByName(name string) (*TableDef, bool) {
	for i := range s.Tables {
		if s.Tables[i].Name == name || s.Tables[i].Record.Name == name {
			return &s.Tables[i], true
		}
	}
	return nil, false
}

// Region returns the definition of region id
func (s *Schema) Region(id RegionID) *RegionDef {
	for i := range s.Regions {
		if s.Regions[i].ID == id {
			return &s.Regions[i]
		}
	}
	return nil
}

// MotaSlot is the pointer field describing slot i of the mota list
func (s *Schema) MotaSlot(i int) PointerField {
	return PointerField{
		Name:   fmt.Sprintf("mota_%d", i),
		Offset: uint64(i) * 8,
		Kind:   ConvertSideData,
		Region: RegionMota,
	}
}

// MotaListSize is the byte size of the mota list
func (s *Schema) MotaListSize() uint64 {
	return uint64(s.Info.MotaCount) * 8
}

// Validate checks internal consistency: dense table ids, fields inside their records,
// known targets, and every side-data pointer covered by its region's bounds list.
func (s *Schema) Validate() error {
	covered := make(map[RegionID]map[FieldRef]bool)
	for _, region := range s.Regions {
		covered[region.ID] = make(map[FieldRef]bool)
		for _, ref := range region.Bounds {
			covered[region.ID][ref] = true
		}
	}

	checkPointer := func(owner TableID, ownerName string, size uint64, p PointerField) error {
		if p.Offset+8 > size {
			return fmt.Errorf("%w: %s.%s at 0x%x overruns record size 0x%x", ErrInvalidSchema, ownerName, p.Name, p.Offset, size)
		}
		switch p.Kind {
		case ConvertIndex:
			if s.Table(p.Target) == nil {
				return fmt.Errorf("%w: %s.%s targets unknown table %d", ErrInvalidSchema, ownerName, p.Name, p.Target)
			}
		case ConvertSideData:
			refs, ok := covered[p.Region]
			if !ok {
				return fmt.Errorf("%w: %s.%s targets unknown region %s", ErrInvalidSchema, ownerName, p.Name, p.Region)
			}
			if s.Region(p.Region).Bounds != nil && !refs[FieldRef{Table: owner, Offset: p.Offset}] {
				return fmt.Errorf("%w: %s.%s is missing from the %s bounds list", ErrInvalidSchema, ownerName, p.Name, p.Region)
			}
		case ConvertRecordOffset:
			if p.ItemSize == 0 {
				return fmt.Errorf("%w: %s.%s has no item size", ErrInvalidSchema, ownerName, p.Name)
			}
		}
		return nil
	}

	for i, t := range s.Tables {
		if t.ID != TableID(i) {
			return fmt.Errorf("%w: table %s has id %d at position %d", ErrInvalidSchema, t.Name, t.ID, i)
		}
		if t.Record == nil || t.Record.Size == 0 {
			return fmt.Errorf("%w: table %s has no record type", ErrInvalidSchema, t.Name)
		}
		if t.PtrOffset+8 > s.Info.TableHeaderSize || t.CountOffset+8 > s.Info.TableHeaderSize {
			return fmt.Errorf("%w: table %s lies outside the table header", ErrInvalidSchema, t.Name)
		}
		for _, p := range t.Record.Pointers {
			if err := checkPointer(t.ID, t.Record.Name, t.Record.Size, p); err != nil {
				return err
			}
		}
		for _, f := range t.Record.Fields {
			if f.Offset+f.Type.Size() > t.Record.Size {
				return fmt.Errorf("%w: %s.%s overruns record size", ErrInvalidSchema, t.Record.Name, f.Name)
			}
		}
	}

	for _, p := range s.Info.Pointers {
		if err := checkPointer(InfoTable, "info", s.Info.Size, p); err != nil {
			return err
		}
	}

	for _, region := range s.Regions {
		for _, ref := range region.Bounds {
			size := s.Info.Size
			if ref.Table != InfoTable {
				t := s.Table(ref.Table)
				if t == nil {
					return fmt.Errorf("%w: %s bounds name unknown table %d", ErrInvalidSchema, region.Name, ref.Table)
				}
				size = t.Record.Size
			}
			if ref.Offset+8 > size {
				return fmt.Errorf("%w: %s bounds field 0x%x of table %d overruns size 0x%x", ErrInvalidSchema, region.Name, ref.Offset, ref.Table, size)
			}
		}
	}

	return nil
}
