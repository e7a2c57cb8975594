package editor

import (
	"encoding/binary"
	"strconv"
	"testing"

	"tkmoveset/extractor"
	"tkmoveset/moveset"
	"tkmoveset/movesettest"
	"tkmoveset/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openFixture(t *testing.T) (*Editor, *moveset.File) {
	t.Helper()
	fx, err := movesettest.New(movesettest.DefaultOptions())
	require.NoError(t, err)

	f, _, err := extractor.New(fx.Dump).BuildFile(extractor.Options{Game: fx.Game, Settings: extractor.DefaultSettings()})
	require.NoError(t, err)
	data, err := moveset.Pack(f, moveset.PackOptions{})
	require.NoError(t, err)

	file, err := moveset.Unpack(data)
	require.NoError(t, err)
	e, err := Open(file, nil)
	require.NoError(t, err)
	return e, file
}

// fixtureU32 is the value the fixture stores at offset k of record r of table id
func fixtureU32(id schema.TableID, r, k int) string {
	var b [4]byte
	for i := range b {
		b[i] = byte(int(id)*37 + r*11 + k + i)
	}
	return strconv.FormatUint(uint64(binary.LittleEndian.Uint32(b[:])), 10)
}

func TestGetFieldTable(t *testing.T) {
	e, _ := openFixture(t)
	assert.Equal(t, "t8", e.Schema().Name)

	fields, err := e.GetFieldTable("cancel", 1)
	require.NoError(t, err)
	assert.Equal(t, "2", fields["requirements"])
	assert.Equal(t, MissingText, fields["extradata"])
	assert.Equal(t, fixtureU32(schema.T8Cancel, 1, 0x18), fields["detection_start"])
	assert.Len(t, fields, 8)

	fields, err = e.GetFieldTable("Requirement", 3)
	require.NoError(t, err)
	assert.Equal(t, fixtureU32(schema.T8Requirement, 3, 0), fields["condition"])

	_, err = e.GetFieldTable("cancel", 16)
	assert.ErrorIs(t, err, ErrUnknownRecord)
	_, err = e.GetFieldTable("throws", 0)
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestSetField(t *testing.T) {
	e, _ := openFixture(t)

	assert.True(t, e.SetField("cancel", 0, "move_id", "0x20"))
	assert.True(t, e.SetField("cancel", 0, "requirements", "3"))
	assert.True(t, e.SetField("cancel", 0, "extradata", "-1"))
	assert.True(t, e.SetField("pushback_extradata", 0, "horizontal_offset", "-12"))

	fields, err := e.GetFieldTable("cancel", 0)
	require.NoError(t, err)
	assert.Equal(t, "32", fields["move_id"])
	assert.Equal(t, "3", fields["requirements"])
	assert.Equal(t, MissingText, fields["extradata"])

	fields, err = e.GetFieldTable("pushback_extradata", 0)
	require.NoError(t, err)
	assert.Equal(t, "-12", fields["horizontal_offset"])

	assert.False(t, e.SetField("cancel", 0, "move_id", "0x10000"))
	assert.False(t, e.SetField("cancel", 0, "move_id", "jab"))
	assert.False(t, e.SetField("cancel", 0, "no_such_field", "1"))
	assert.False(t, e.SetField("cancel", 99, "move_id", "1"))
	assert.False(t, e.SetField("cancel", 0, "requirements", "0xFFFFFFFFFFFFFFFF"))

	fields, err = e.GetFieldTable("cancel", 0)
	require.NoError(t, err)
	assert.Equal(t, "32", fields["move_id"])
}

func TestCreateRecord(t *testing.T) {
	e, _ := openFixture(t)
	hitBase := e.set.Table(schema.T8HitCondition).Base
	before, err := e.GetFieldTable("hit_condition", 1)
	require.NoError(t, err)

	id, err := e.CreateRecord("requirement")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), id)

	count, err := e.RecordCount("requirement")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)

	fields, err := e.GetFieldTable("requirement", 4)
	require.NoError(t, err)
	assert.Equal(t, "0", fields["condition"])

	// Later tables moved up, by a multiple of 8, and still read the same
	assert.Equal(t, hitBase+0x18, e.set.Table(schema.T8HitCondition).Base)
	after, err := e.GetFieldTable("hit_condition", 1)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCreateRecordPointersStartMissing(t *testing.T) {
	e, _ := openFixture(t)

	id, err := e.CreateRecord("cancel")
	require.NoError(t, err)
	fields, err := e.GetFieldTable("cancel", id)
	require.NoError(t, err)
	assert.Equal(t, MissingText, fields["requirements"])
	assert.Equal(t, MissingText, fields["extradata"])
}

func TestCreateRecordInEmptyTable(t *testing.T) {
	e, _ := openFixture(t)
	size := len(e.block)

	id, err := e.CreateRecord("projectile")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)
	base := (size + 7) &^ 7
	assert.Equal(t, uint64(base), e.set.Table(schema.T8Projectile).Base)
	assert.Len(t, e.block, base+0xE0)
}

func assertTablesAligned(t *testing.T, e *Editor) {
	t.Helper()
	for _, table := range e.set.Tables {
		if !table.Empty() {
			assert.Zero(t, table.Base%8, "%s at 0x%x", table.Def.Name, table.Base)
		}
	}
}

func TestEditsKeepTablesAligned(t *testing.T) {
	e, _ := openFixture(t)
	assertTablesAligned(t, e)
	cancelBase := e.set.Table(schema.T8Cancel).Base
	before, err := e.GetFieldTable("cancel", 3)
	require.NoError(t, err)

	// Two byte records
	for i := 0; i < 3; i++ {
		_, err := e.CreateRecord("pushback_extradata")
		require.NoError(t, err)
		assertTablesAligned(t, e)
	}
	assert.Equal(t, cancelBase+8, e.set.Table(schema.T8Cancel).Base)

	require.NoError(t, e.DeleteRecord("pushback_extradata", 0))
	assertTablesAligned(t, e)
	_, err = e.CreateRecord("requirement")
	require.NoError(t, err)
	_, err = e.CreateRecord("requirement")
	require.NoError(t, err)
	require.NoError(t, e.DeleteRecord("requirement", 1))
	assertTablesAligned(t, e)

	after, err := e.GetFieldTable("cancel", 3)
	require.NoError(t, err)
	delete(before, "requirements")
	delete(after, "requirements")
	assert.Equal(t, before, after)
}

func TestDeleteRecordRenumbersReferences(t *testing.T) {
	e, _ := openFixture(t)
	hitBase := e.set.Table(schema.T8HitCondition).Base

	require.NoError(t, e.DeleteRecord("requirement", 2))

	count, err := e.RecordCount("requirement")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
	assert.Equal(t, hitBase-0x10, e.set.Table(schema.T8HitCondition).Base)

	// Cancel r referenced requirement (r+1)%4
	for r := uint64(0); r < 16; r++ {
		fields, err := e.GetFieldTable("cancel", r)
		require.NoError(t, err)
		want := (r + 1) % 4
		switch {
		case want == 2:
			assert.Equal(t, MissingText, fields["requirements"], "cancel %d", r)
		case want > 2:
			assert.Equal(t, strconv.FormatUint(want-1, 10), fields["requirements"], "cancel %d", r)
		default:
			assert.Equal(t, strconv.FormatUint(want, 10), fields["requirements"], "cancel %d", r)
		}
	}

	// The old record 3 is now record 2
	fields, err := e.GetFieldTable("requirement", 2)
	require.NoError(t, err)
	assert.Equal(t, fixtureU32(schema.T8Requirement, 3, 0), fields["condition"])

	assert.ErrorIs(t, e.DeleteRecord("requirement", 3), ErrUnknownRecord)
}

func TestSaveMarksFileModified(t *testing.T) {
	e, file := openFixture(t)
	orig := file.Header.OrigCRC32

	require.True(t, e.SetField("move", 0, "anim_len", "60"))
	_, err := e.CreateRecord("voiceclip")
	require.NoError(t, err)

	data, err := e.Save(moveset.PackOptions{Compression: moveset.CompressionZlib})
	require.NoError(t, err)

	saved, err := moveset.Unpack(data)
	require.NoError(t, err)
	require.NoError(t, saved.VerifyCRC())
	assert.True(t, saved.Modified())
	assert.Equal(t, orig, saved.Header.OrigCRC32)
	assert.NotZero(t, saved.Header.Flags&moveset.FlagEdited)

	reopened, err := Open(saved, nil)
	require.NoError(t, err)
	fields, err := reopened.GetFieldTable("move", 0)
	require.NoError(t, err)
	assert.Equal(t, "60", fields["anim_len"])
	count, err := reopened.RecordCount("voiceclip")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}
