package relocate

import (
	"encoding/binary"
	"testing"

	"tkmoveset/schema"

	"github.com/stretchr/testify/require"
)

const (
	tRequirement schema.TableID = iota
	tCancel
	tInputSequence
)

// testSchema is a three table moveset: cancels point at requirements by index and at
// names, input sequences point at their inputs stored after the record array
func testSchema() *schema.Schema {
	requirement := &schema.RecordType{
		Name: "Requirement",
		Size: 16,
		Fields: []schema.FieldDef{
			{Name: "condition", Offset: 0, Type: schema.U32},
			{Name: "param", Offset: 4, Type: schema.U32},
		},
	}
	cancel := &schema.RecordType{
		Name: "Cancel",
		Size: 0x18,
		Pointers: []schema.PointerField{
			{Name: "requirements", Offset: 0, Kind: schema.ConvertIndex, Target: tRequirement},
			{Name: "name", Offset: 8, Kind: schema.ConvertSideData, Region: schema.RegionName},
		},
		Fields: []schema.FieldDef{{Name: "command", Offset: 0x10, Type: schema.U64}},
	}
	sequence := &schema.RecordType{
		Name: "InputSequence",
		Size: 0x10,
		Pointers: []schema.PointerField{
			{Name: "inputs", Offset: 0, Kind: schema.ConvertRecordOffset, ItemSize: 8},
		},
		Fields: []schema.FieldDef{{Name: "count", Offset: 8, Type: schema.U32}},
	}

	return &schema.Schema{
		Name: "test",
		Tables: []schema.TableDef{
			{ID: tRequirement, Name: "requirements", Record: requirement, PtrOffset: 0x00, CountOffset: 0x08},
			{ID: tCancel, Name: "cancels", Record: cancel, PtrOffset: 0x10, CountOffset: 0x18},
			{ID: tInputSequence, Name: "input_sequences", Record: sequence, PtrOffset: 0x20, CountOffset: 0x28, OwnsTrailingData: true},
		},
		Info: schema.InfoLayout{
			Size:            0x10,
			TableOffset:     0x10,
			TableHeaderSize: 0x30,
			MotaListOffset:  0x40,
			Pointers: []schema.PointerField{
				{Name: "character_name", Offset: 0, Kind: schema.ConvertSideData, Region: schema.RegionName},
			},
		},
		Regions: []schema.RegionDef{
			{
				ID:   schema.RegionName,
				Name: "name",
				Bounds: []schema.FieldRef{
					{Table: schema.InfoTable, Offset: 0},
					{Table: tCancel, Offset: 8},
				},
				Terminated: true,
			},
		},
		AbsentSentinel: 0,
		MissingMarker:  ^uint64(0),
	}
}

const (
	testOrigin = 0x5000
	testNames  = 0x9000
)

var testNameData = []byte("Info\x00Cancel\x00Jab\x00")

type testMoveset struct {
	schema *schema.Schema
	header []byte
	block  []byte
	info   []byte
}

// newTestMoveset lays out, at testOrigin, four requirements, three cancels and two
// input sequences followed by their inputs, all holding absolute addresses
func newTestMoveset(t *testing.T) *testMoveset {
	t.Helper()
	s := testSchema()
	require.NoError(t, s.Validate())

	m := &testMoveset{schema: s, header: make([]byte, 0x30), block: make([]byte, 0xB8), info: make([]byte, 0x10)}
	le := binary.LittleEndian

	put := func(id schema.TableID, base, count uint64) {
		le.PutUint64(m.header[s.Tables[id].PtrOffset:], base)
		le.PutUint64(m.header[s.Tables[id].CountOffset:], count)
	}
	put(tRequirement, 0x5000, 4)
	put(tCancel, 0x5040, 3)
	put(tInputSequence, 0x5088, 2)

	for r := 0; r < 4; r++ {
		le.PutUint32(m.block[r*16:], uint32(100+r))
	}

	cancels := []struct{ requirement, name uint64 }{
		{0x5000, testNames + 5},
		{0x5020, testNames + 12},
		{0, 0},
	}
	for i, c := range cancels {
		rec := m.block[0x40+i*0x18:]
		le.PutUint64(rec[0:], c.requirement)
		le.PutUint64(rec[8:], c.name)
		le.PutUint64(rec[0x10:], uint64(0x8000+i))
	}

	for i := 0; i < 2; i++ {
		rec := m.block[0x88+i*0x10:]
		le.PutUint64(rec[0:], uint64(0x50A8+i*8))
		le.PutUint32(rec[8:], 1)
		le.PutUint64(m.block[0xA8+i*8:], uint64(0x11110000+i))
	}

	le.PutUint64(m.info, testNames)
	return m
}

func (m *testMoveset) set(t *testing.T) *TableSet {
	t.Helper()
	set, err := ReadHeader(m.schema, m.header)
	require.NoError(t, err)
	require.NoError(t, set.Attach(m.block, testOrigin))
	return set
}
