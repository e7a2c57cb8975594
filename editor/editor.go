// Package editor exposes the records of an unpacked moveset file as named fields so a
// form can display and change them, and repacks the file afterwards.
package editor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"tkmoveset/moveset"
	"tkmoveset/relocate"
	"tkmoveset/schema"
)

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownRecord = errors.New("record out of range")
	ErrUnknownField  = errors.New("unknown field")
)

// MissingText is how a missing reference is shown and entered
const MissingText = "-1"

// Editor edits the moveset block of a file in portable form. Edits only reach the file on Save.
type Editor struct {
	file   *moveset.File
	schema *schema.Schema
	set    *relocate.TableSet
	block  []byte
}

// Open prepares f for editing. A nil s selects the schema recorded in the file.
func Open(f *moveset.File, s *schema.Schema) (*Editor, error) {
	if s == nil {
		name := "t8"
		if v, ok := f.Property(moveset.PropertySchema); ok {
			name = moveset.ValueName(v)
		}
		var err error
		if s, err = schema.ByName(name); err != nil {
			return nil, err
		}
	}

	set, err := relocate.ReadHeader(s, f.Block(moveset.BlockTable))
	if err != nil {
		return nil, err
	}

	e := &Editor{file: f, schema: s, set: set, block: bytes.Clone(f.Block(moveset.BlockMoveset))}
	if err := set.Attach(e.block, 0); err != nil {
		return nil, err
	}
	return e, nil
}

// Schema returns the schema the file is edited with
func (e *Editor) Schema() *schema.Schema {
	return e.schema
}

func (e *Editor) table(name string) (*relocate.Table, error) {
	def, ok := e.schema.TableByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return e.set.Table(def.ID), nil
}

func (e *Editor) record(table string, id uint64) (*relocate.Table, []byte, error) {
	t, err := e.table(table)
	if err != nil {
		return nil, nil, err
	}
	if id >= t.Count {
		return nil, nil, fmt.Errorf("%w: %s %d of %d", ErrUnknownRecord, table, id, t.Count)
	}
	return t, t.Record(id), nil
}

// RecordCount returns the number of records of table
func (e *Editor) RecordCount(table string) (uint64, error) {
	t, err := e.table(table)
	if err != nil {
		return 0, err
	}
	return t.Count, nil
}

// GetFieldTable returns every field of record id as text, keyed by field name.
// References are shown as table indices or record offsets, missing ones as MissingText.
func (e *Editor) GetFieldTable(table string, id uint64) (map[string]string, error) {
	t, rec, err := e.record(table, id)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(t.Def.Record.Fields)+len(t.Def.Record.Pointers))
	for _, f := range t.Def.Record.Fields {
		fields[f.Name] = formatField(f, rec)
	}
	for _, p := range t.Def.Record.Pointers {
		v := binary.LittleEndian.Uint64(rec[p.Offset:])
		if v == e.schema.MissingMarker {
			fields[p.Name] = MissingText
		} else {
			fields[p.Name] = strconv.FormatUint(v, 10)
		}
	}
	return fields, nil
}

func formatField(f schema.FieldDef, rec []byte) string {
	b := rec[f.Offset:]
	switch f.Type {
	case schema.U8:
		return strconv.FormatUint(uint64(b[0]), 10)
	case schema.U16:
		return strconv.FormatUint(uint64(binary.LittleEndian.Uint16(b)), 10)
	case schema.U32:
		return strconv.FormatUint(uint64(binary.LittleEndian.Uint32(b)), 10)
	case schema.U64:
		return strconv.FormatUint(binary.LittleEndian.Uint64(b), 10)
	case schema.I16:
		return strconv.FormatInt(int64(int16(binary.LittleEndian.Uint16(b))), 10)
	case schema.I32:
		return strconv.FormatInt(int64(int32(binary.LittleEndian.Uint32(b))), 10)
	case schema.F32:
		return strconv.FormatFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), 'g', -1, 32)
	}
	return ""
}

// SetField parses value and stores it in field name of record id. It returns false,
// leaving the record untouched, when the record or field does not exist or value
// does not fit the field.
func (e *Editor) SetField(table string, id uint64, name, value string) bool {
	t, rec, err := e.record(table, id)
	if err != nil {
		return false
	}

	if p, ok := t.Def.Record.Pointer(name); ok {
		v := e.schema.MissingMarker
		if value != MissingText {
			if v, err = strconv.ParseUint(value, 0, 64); err != nil {
				return false
			}
			if p.Kind == schema.ConvertIndex && v == e.schema.MissingMarker {
				return false
			}
		}
		binary.LittleEndian.PutUint64(rec[p.Offset:], v)
		return true
	}

	f, ok := t.Def.Record.Field(name)
	if !ok {
		return false
	}
	return parseField(f, rec, value) == nil
}

func parseField(f schema.FieldDef, rec []byte, value string) error {
	b := rec[f.Offset:]
	switch f.Type {
	case schema.U8:
		v, err := strconv.ParseUint(value, 0, 8)
		if err != nil {
			return err
		}
		b[0] = uint8(v)
	case schema.U16:
		v, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint16(b, uint16(v))
	case schema.U32:
		v, err := strconv.ParseUint(value, 0, 32)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(b, uint32(v))
	case schema.U64:
		v, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint64(b, v)
	case schema.I16:
		v, err := strconv.ParseInt(value, 0, 16)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint16(b, uint16(v))
	case schema.I32:
		v, err := strconv.ParseInt(value, 0, 32)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(b, uint32(v))
	case schema.F32:
		v, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	default:
		return fmt.Errorf("%w: %s has no type", ErrUnknownField, f.Name)
	}
	return nil
}

// CreateRecord appends a zeroed record to table, its references set to missing, and
// returns its id. Tables stored after it move up by a multiple of 8 bytes.
func (e *Editor) CreateRecord(table string) (uint64, error) {
	t, err := e.table(table)
	if err != nil {
		return 0, err
	}

	size := t.RecordSize()
	rec := make([]byte, size)
	for _, p := range t.Def.Record.Pointers {
		binary.LittleEndian.PutUint64(rec[p.Offset:], e.schema.MissingMarker)
	}

	if t.Empty() {
		end := uint64(len(e.block))
		pad := align8(end) - end
		e.splice(end, 0, append(make([]byte, pad), rec...))
		t.Base = end + pad
	} else {
		pos := t.Base + t.Size()
		// Padding up to the next table is reused, trailing data is not
		var gap uint64
		if !t.Def.OwnsTrailingData {
			gap = min(e.nextTable(pos)-pos, size)
		}
		insert := make([]byte, gap+align8(size-gap))
		copy(insert, rec)
		e.splice(pos, gap, insert)
	}

	t.Count++
	if err := e.set.Attach(e.block, 0); err != nil {
		return 0, err
	}
	return t.Count - 1, nil
}

// DeleteRecord removes record id from table. References to it become missing and
// references to later records of the same table are renumbered.
func (e *Editor) DeleteRecord(table string, id uint64) error {
	t, _, err := e.record(table, id)
	if err != nil {
		return err
	}

	size := t.RecordSize()
	pos := t.RecordAddr(id)

	for _, other := range e.set.Tables {
		for _, p := range other.Def.Record.Pointers {
			if p.Kind != schema.ConvertIndex || p.Target != t.Def.ID {
				continue
			}
			for i := uint64(0); i < other.Count; i++ {
				slot := other.Record(i)[p.Offset:]
				switch v := binary.LittleEndian.Uint64(slot); {
				case v == e.schema.MissingMarker:
				case v == id:
					binary.LittleEndian.PutUint64(slot, e.schema.MissingMarker)
				case v > id:
					binary.LittleEndian.PutUint64(slot, v-1)
				}
			}
		}
	}

	e.splice(pos, size, nil)
	t.Count--
	if err := e.set.Attach(e.block, 0); err != nil {
		return err
	}

	// Later tables only move down by whole multiples of 8
	if pad := size % 8; pad != 0 {
		e.splice(t.Base+t.Size(), 0, make([]byte, pad))
		return e.set.Attach(e.block, 0)
	}
	return nil
}

func align8(n uint64) uint64 {
	return (n + 7) &^ 7
}

// nextTable is where the first non-empty table at or after pos starts, or the block end
func (e *Editor) nextTable(pos uint64) uint64 {
	next := uint64(len(e.block))
	for _, t := range e.set.Tables {
		if !t.Empty() && t.Base >= pos && t.Base < next {
			next = t.Base
		}
	}
	return next
}

// splice replaces n bytes at pos with insert, moving every table stored after pos and
// fixing record offsets that reach across the edit
func (e *Editor) splice(pos, n uint64, insert []byte) {
	grow := uint64(len(insert))

	for _, t := range e.set.Tables {
		if t.Empty() {
			continue
		}
		for _, p := range t.Def.Record.Pointers {
			if p.Kind != schema.ConvertRecordOffset {
				continue
			}
			for i := uint64(0); i < t.Count; i++ {
				addr := t.RecordAddr(i)
				slot := t.Record(i)[p.Offset:]
				v := binary.LittleEndian.Uint64(slot)
				if v == e.schema.MissingMarker || addr >= pos || addr+v < pos+n {
					continue
				}
				binary.LittleEndian.PutUint64(slot, v+grow-n)
			}
		}
	}

	block := make([]byte, 0, uint64(len(e.block))+grow-n)
	block = append(block, e.block[:pos]...)
	block = append(block, insert...)
	block = append(block, e.block[pos+n:]...)
	e.block = block

	for _, t := range e.set.Tables {
		if !t.Empty() && t.Base >= pos+n {
			t.Base = t.Base + grow - n
		}
	}
}

// Save writes the edits back into the file and packs it. The original checksum is kept
// so the result reports itself as modified.
func (e *Editor) Save(opts moveset.PackOptions) ([]byte, error) {
	header := bytes.Clone(e.file.Block(moveset.BlockTable))
	e.set.WriteHeader(header, 0)

	e.file.SetBlock(moveset.BlockTable, header)
	e.file.SetBlock(moveset.BlockMoveset, bytes.Clone(e.block))
	e.file.Header.Flags |= moveset.FlagEdited
	e.file.Header.Date = uint64(time.Now().Unix())

	return moveset.Pack(e.file, opts)
}
