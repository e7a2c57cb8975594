package relocate

import (
	"bytes"
	"encoding/binary"
	"testing"

	"tkmoveset/moveset"
	"tkmoveset/process_blob"
	"tkmoveset/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWriteHeader(t *testing.T) {
	m := newTestMoveset(t)
	set := m.set(t)

	assert.Equal(t, uint64(9), set.RecordCount())
	assert.Equal(t, uint64(0x5040), set.Table(tCancel).Base)
	assert.Nil(t, set.Table(schema.TableID(7)))

	header := make([]byte, 0x30)
	set.WriteHeader(header, testOrigin)
	le := binary.LittleEndian
	assert.Equal(t, uint64(0x40), le.Uint64(header[0x10:]))
	assert.Equal(t, uint64(3), le.Uint64(header[0x18:]))

	set.WriteHeader(header, 0)
	assert.Equal(t, m.header, header)
}

func TestReadHeaderRejectsBadInput(t *testing.T) {
	s := testSchema()

	_, err := ReadHeader(s, make([]byte, 0x20))
	assert.ErrorIs(t, err, moveset.ErrFormat)

	header := make([]byte, 0x30)
	binary.LittleEndian.PutUint64(header[0x08:], MaxRecords+1)
	_, err = ReadHeader(s, header)
	assert.ErrorIs(t, err, moveset.ErrFormat)
}

func TestAttachTrailingData(t *testing.T) {
	m := newTestMoveset(t)
	set := m.set(t)

	assert.Len(t, set.Table(tRequirement).Data, 0x40)
	assert.Len(t, set.Table(tCancel).Data, 0x48)
	// Input sequences carry their inputs up to the end of the block
	assert.Len(t, set.Table(tInputSequence).Data, 0x30)

	// Data aliases the block
	set.Table(tCancel).Record(0)[0x10] = 0xEE
	assert.Equal(t, byte(0xEE), m.block[0x50])
}

func TestAttachTrailingDataStopsAtNextTable(t *testing.T) {
	s := testSchema()
	header := make([]byte, 0x30)
	le := binary.LittleEndian
	// input sequences first, then requirements
	le.PutUint64(header[0x20:], 0x100)
	le.PutUint64(header[0x28:], 1)
	le.PutUint64(header[0x00:], 0x120)
	le.PutUint64(header[0x08:], 2)

	set, err := ReadHeader(s, header)
	require.NoError(t, err)
	require.NoError(t, set.Attach(make([]byte, 0x40), 0x100))

	assert.Len(t, set.Table(tInputSequence).Data, 0x20)
	assert.Nil(t, set.Table(tCancel).Data)
}

func TestAttachOutsideBlock(t *testing.T) {
	m := newTestMoveset(t)
	set, err := ReadHeader(m.schema, m.header)
	require.NoError(t, err)

	assert.ErrorIs(t, set.Attach(m.block[:0x60], testOrigin), moveset.ErrFormat)
	assert.ErrorIs(t, set.Attach(m.block, testOrigin+0x10), moveset.ErrFormat)
}

func TestTableSpan(t *testing.T) {
	m := newTestMoveset(t)
	set := m.set(t)

	span := TableSpan(set)
	assert.False(t, span.Empty)
	// Trailing data is not part of the record arrays
	assert.Equal(t, Span{Start: 0x5000, End: 0x50A8}, span)
	assert.Equal(t, uint64(0xA8), span.Size())

	empty, err := ReadHeader(m.schema, make([]byte, 0x30))
	require.NoError(t, err)
	span = TableSpan(empty)
	assert.True(t, span.Empty)
	assert.Equal(t, uint64(moveset.MinBlockSize), span.Size())
	assert.Equal(t, "[empty]", span.String())
}

func TestMovesetSpanCoversTrailingData(t *testing.T) {
	m := newTestMoveset(t)
	set, err := ReadHeader(m.schema, m.header)
	require.NoError(t, err)
	mem := process_blob.NewProcessBlob(testOrigin, m.block)

	span, err := MovesetSpan(mem, set)
	require.NoError(t, err)
	assert.Equal(t, Span{Start: 0x5000, End: 0x50B8}, span)

	// Absent and far away inputs do not stretch the span
	binary.LittleEndian.PutUint64(m.block[0x88:], 0)
	binary.LittleEndian.PutUint64(m.block[0x98:], 0x50B0+MaxTrailingData)
	span, err = MovesetSpan(mem, set)
	require.NoError(t, err)
	assert.Equal(t, Span{Start: 0x5000, End: 0x50A8}, span)
}

func TestMovesetSpanUnreadableRecords(t *testing.T) {
	m := newTestMoveset(t)
	set, err := ReadHeader(m.schema, m.header)
	require.NoError(t, err)

	_, err = MovesetSpan(process_blob.NewProcessBlob(testOrigin, m.block[:0x90]), set)
	assert.ErrorIs(t, err, moveset.ErrRead)
}

func TestSideDataBoundsTerminated(t *testing.T) {
	m := newTestMoveset(t)
	set := m.set(t)
	names := process_blob.NewProcessBlob(testNames, bytes.Clone(testNameData))

	region := m.schema.Region(schema.RegionName)
	span, err := SideDataBounds(names, set, &Info{Addr: 0x4000, Data: m.info}, region)
	require.NoError(t, err)
	// "Jab" at +12 is the last name, its NUL is at +15
	assert.Equal(t, Span{Start: testNames, End: testNames + 16}, span)
}

func TestSideDataBoundsSkipsAbsent(t *testing.T) {
	m := newTestMoveset(t)
	le := binary.LittleEndian
	le.PutUint64(m.block[0x40+8:], 0)
	le.PutUint64(m.block[0x58+8:], 0)
	le.PutUint64(m.info, 0)
	set := m.set(t)

	span, err := SideDataBounds(process_blob.NewProcessBlob(testNames, testNameData), set, &Info{Data: m.info}, m.schema.Region(schema.RegionName))
	require.NoError(t, err)
	assert.True(t, span.Empty)
}

func TestSideDataBoundsUnterminated(t *testing.T) {
	m := newTestMoveset(t)
	set := m.set(t)
	names := process_blob.NewProcessBlob(testNames, []byte("Info\x00Cancel\x00Jab"))

	_, err := SideDataBounds(names, set, &Info{Data: m.info}, m.schema.Region(schema.RegionName))
	assert.ErrorIs(t, err, moveset.ErrRead)
}

func TestSideDataBoundsOpenRegion(t *testing.T) {
	m := newTestMoveset(t)
	set := m.set(t)
	region := *m.schema.Region(schema.RegionName)
	region.Terminated = false

	span, err := SideDataBounds(nil, set, &Info{Data: m.info}, &region)
	require.NoError(t, err)
	assert.Equal(t, Span{Start: testNames, End: testNames + 13}, span)
}
