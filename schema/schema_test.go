package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestT8IsValid(t *testing.T) {
	s, err := ByName("t8")
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	assert.Len(t, s.Tables, 20)
	assert.Equal(t, uint64(0x68), s.MotaListSize())
	assert.Equal(t, s.Info.TableOffset+s.Info.TableHeaderSize, s.Info.MotaListOffset)
}

func TestByNameUnknown(t *testing.T) {
	_, err := ByName("t7")
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func TestLookups(t *testing.T) {
	s := T8()

	byTable, ok := s.TableByName("cancel")
	require.True(t, ok)
	byRecord, ok := s.TableByName("Cancel")
	require.True(t, ok)
	assert.Equal(t, T8Cancel, byTable.ID)
	assert.Same(t, byTable, byRecord)

	_, ok = s.TableByName("Throw")
	assert.False(t, ok)

	p, ok := byTable.Record.Pointer("requirements")
	require.True(t, ok)
	assert.Equal(t, ConvertIndex, p.Kind)
	assert.Equal(t, T8Requirement, p.Target)

	f, ok := byTable.Record.Field("move_id")
	require.True(t, ok)
	assert.Equal(t, U16, f.Type)

	assert.Nil(t, s.Table(TableID(len(s.Tables))))
	assert.Nil(t, s.Region(RegionNone))
	assert.True(t, s.Region(RegionName).Terminated)

	slot := s.MotaSlot(3)
	assert.Equal(t, uint64(24), slot.Offset)
	assert.Equal(t, RegionMota, slot.Region)
	assert.Equal(t, ConvertSideData, slot.Kind)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Schema)
	}{
		{"table out of order", func(s *Schema) {
			s.Tables[0], s.Tables[1] = s.Tables[1], s.Tables[0]
		}},
		{"pointer past record end", func(s *Schema) {
			s.Tables[T8Cancel].Record = &RecordType{
				Name:     "Cancel",
				Size:     0x10,
				Pointers: []PointerField{index("requirements", 0x8, T8Requirement), index("extradata", 0x10, T8CancelExtradata)},
			}
		}},
		{"unknown target table", func(s *Schema) {
			s.Tables[T8Cancel].Record = &RecordType{
				Name:     "Cancel",
				Size:     0x28,
				Pointers: []PointerField{index("requirements", 0x8, TableID(99))},
			}
		}},
		{"name pointer missing from bounds", func(s *Schema) {
			region := s.Region(RegionName)
			region.Bounds = region.Bounds[1:]
		}},
		{"unknown region", func(s *Schema) {
			s.Regions = s.Regions[1:]
		}},
		{"bounds field in unknown table", func(s *Schema) {
			region := s.Region(RegionName)
			region.Bounds = append(region.Bounds, FieldRef{Table: TableID(99), Offset: 0})
		}},
		{"bounds field past record end", func(s *Schema) {
			region := s.Region(RegionName)
			region.Bounds = append(region.Bounds, FieldRef{Table: T8Voiceclip, Offset: 0x8})
		}},
		{"bounds field past info end", func(s *Schema) {
			region := s.Region(RegionName)
			region.Bounds = append(region.Bounds, FieldRef{Table: InfoTable, Offset: s.Info.Size - 4})
		}},
		{"record offset without item size", func(s *Schema) {
			s.Tables[T8InputSequence].Record = &RecordType{
				Name:     "InputSequence",
				Size:     0x10,
				Pointers: []PointerField{{Name: "inputs", Offset: 0, Kind: ConvertRecordOffset}},
			}
		}},
		{"table outside header", func(s *Schema) {
			s.Info.TableHeaderSize = 0x100
		}},
		{"field past record end", func(s *Schema) {
			s.Tables[T8Voiceclip].Record = &RecordType{
				Name:   "Voiceclip",
				Size:   0xC,
				Fields: []FieldDef{{"folder", 0xA, U32}},
			}
		}},
		{"empty record", func(s *Schema) {
			s.Tables[T8Input].Record = &RecordType{Name: "Input"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := T8()
			tt.mutate(s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidSchema)
		})
	}
}

func TestFieldTypeSize(t *testing.T) {
	assert.Equal(t, uint64(1), U8.Size())
	assert.Equal(t, uint64(2), I16.Size())
	assert.Equal(t, uint64(4), F32.Size())
	assert.Equal(t, uint64(8), U64.Size())
	assert.Equal(t, "record-offset", ConvertRecordOffset.String())
	assert.Equal(t, "mota", RegionMota.String())
}
