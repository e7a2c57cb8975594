package schema

import "fmt"

// Table ordinals of the T8 table set, in foreign header order
const (
	T8Reactions TableID = iota
	T8Requirement
	T8HitCondition
	T8Projectile
	T8Pushback
	T8PushbackExtradata
	T8Cancel
	T8GroupCancel
	T8CancelExtradata
	T8ExtraMoveProperty
	T8MoveBeginningProp
	T8MoveEndingProp
	T8Move
	T8Voiceclip
	T8InputSequence
	T8Input
	T8ParryableMove
	T8CameraData
	T8ThrowCamera
	T8Dialogue

	T8TableCount
)

func index(name string, offset uint64, target TableID) PointerField {
	return PointerField{Name: name, Offset: offset, Kind: ConvertIndex, Target: target}
}

func sideData(name string, offset uint64, region RegionID) PointerField {
	return PointerField{Name: name, Offset: offset, Kind: ConvertSideData, Region: region}
}

var (
	t8Requirement = &RecordType{
		Name: "Requirement",
		Size: 0x14,
		Fields: []FieldDef{
			{"condition", 0x0, U32},
			{"param_0", 0x4, U32},
			{"param_1", 0x8, U32},
			{"param_2", 0xC, U32},
			{"param_3", 0x10, U32},
		},
	}

	t8Reactions = &RecordType{
		Name: "Reactions",
		Size: 0x70,
		Pointers: []PointerField{
			index("front_pushback", 0x0, T8Pushback),
			index("backturned_pushback", 0x8, T8Pushback),
			index("left_side_pushback", 0x10, T8Pushback),
			index("right_side_pushback", 0x18, T8Pushback),
			index("front_counterhit_pushback", 0x20, T8Pushback),
			index("downed_pushback", 0x28, T8Pushback),
			index("block_pushback", 0x30, T8Pushback),
		},
		Fields: []FieldDef{
			{"front_direction", 0x38, U16},
			{"back_direction", 0x3A, U16},
			{"left_side_direction", 0x3C, U16},
			{"right_side_direction", 0x3E, U16},
			{"front_counterhit_direction", 0x40, U16},
			{"downed_direction", 0x42, U16},
			{"front_rotation", 0x44, U16},
			{"back_rotation", 0x46, U16},
			{"left_side_rotation", 0x48, U16},
			{"right_side_rotation", 0x4A, U16},
			{"front_counterhit_rotation", 0x4C, U16},
			{"downed_rotation", 0x4E, U16},
			{"default_moveid", 0x50, U16},
			{"crouch_moveid", 0x52, U16},
			{"counterhit_moveid", 0x54, U16},
			{"crouch_counterhit_moveid", 0x56, U16},
			{"left_side_moveid", 0x58, U16},
			{"crouch_left_side_moveid", 0x5A, U16},
			{"right_side_moveid", 0x5C, U16},
			{"crouch_right_side_moveid", 0x5E, U16},
			{"backturned_moveid", 0x60, U16},
			{"crouch_backturned_moveid", 0x62, U16},
			{"block_moveid", 0x64, U16},
			{"crouch_block_moveid", 0x66, U16},
			{"wallslump_moveid", 0x68, U16},
			{"downed_moveid", 0x6A, U16},
		},
	}

	t8HitCondition = &RecordType{
		Name: "HitCondition",
		Size: 0x18,
		Pointers: []PointerField{
			index("requirements", 0x0, T8Requirement),
			index("reactions", 0x10, T8Reactions),
		},
		Fields: []FieldDef{
			{"damage", 0x8, U32},
			{"_0xC", 0xC, U32},
		},
	}

	t8Projectile = &RecordType{
		Name: "Projectile",
		Size: 0xE0,
		Pointers: []PointerField{
			index("hit_condition", 0x90, T8HitCondition),
			index("cancel", 0x98, T8Cancel),
		},
	}

	t8Pushback = &RecordType{
		Name: "Pushback",
		Size: 0x10,
		Pointers: []PointerField{
			index("extradata", 0x8, T8PushbackExtradata),
		},
		Fields: []FieldDef{
			{"duration", 0x0, U16},
			{"displacement", 0x2, U16},
			{"offsets_count", 0x4, U32},
		},
	}

	t8PushbackExtradata = &RecordType{
		Name:   "PushbackExtradata",
		Size:   0x2,
		Fields: []FieldDef{{"horizontal_offset", 0x0, I16}},
	}

	t8Cancel = &RecordType{
		Name: "Cancel",
		Size: 0x28,
		Pointers: []PointerField{
			index("requirements", 0x8, T8Requirement),
			index("extradata", 0x10, T8CancelExtradata),
		},
		Fields: []FieldDef{
			{"command", 0x0, U64},
			{"detection_start", 0x18, U32},
			{"detection_end", 0x1C, U32},
			{"starting_frame", 0x20, U32},
			{"move_id", 0x24, U16},
			{"cancel_option", 0x26, U16},
		},
	}

	t8GroupCancel = &RecordType{
		Name:     "GroupCancel",
		Size:     t8Cancel.Size,
		Pointers: t8Cancel.Pointers,
		Fields:   t8Cancel.Fields,
	}

	t8CancelExtradata = &RecordType{
		Name:   "CancelExtradata",
		Size:   0x4,
		Fields: []FieldDef{{"value", 0x0, U32}},
	}

	t8ExtraMoveProperty = &RecordType{
		Name: "ExtraMoveProperty",
		Size: 0x28,
		Pointers: []PointerField{
			index("requirements", 0x8, T8Requirement),
		},
		Fields: []FieldDef{
			{"starting_frame", 0x0, U32},
			{"_0x4", 0x4, U32},
			{"id", 0x10, U32},
			{"param_0", 0x14, U32},
			{"param_1", 0x18, U32},
			{"param_2", 0x1C, U32},
			{"param_3", 0x20, U32},
			{"param_4", 0x24, U32},
		},
	}

	t8OtherMoveProperty = &RecordType{
		Name: "OtherMoveProperty",
		Size: 0x20,
		Pointers: []PointerField{
			index("requirements", 0x0, T8Requirement),
		},
		Fields: []FieldDef{
			{"extraprop", 0x8, U32},
			{"param_0", 0xC, U32},
			{"param_1", 0x10, U32},
			{"param_2", 0x14, U32},
			{"param_3", 0x18, U32},
			{"param_4", 0x1C, U32},
		},
	}

	t8Move = &RecordType{
		Name: "Move",
		Size: 0x448,
		Pointers: []PointerField{
			sideData("name", 0x40, RegionName),
			sideData("anim_name", 0x48, RegionName),
			index("cancel", 0x98, T8Cancel),
			index("cancel1", 0xA0, T8Cancel),
			index("cancel2", 0xB0, T8Cancel),
			index("cancel3", 0xC0, T8Cancel),
			index("hit_condition", 0x110, T8HitCondition),
			index("voiceclip", 0x130, T8Voiceclip),
			index("extra_properties", 0x138, T8ExtraMoveProperty),
			index("move_start_properties", 0x140, T8MoveBeginningProp),
			index("move_end_properties", 0x148, T8MoveEndingProp),
		},
		Fields: []FieldDef{
			{"anim_key1", 0x50, U32},
			{"anim_key2", 0x54, U32},
			{"cancel1_related", 0xA8, I32},
			{"cancel2_related", 0xB8, I32},
			{"transition", 0xCC, U16},
			{"anim_len", 0x120, U32},
			{"airborne_start", 0x124, U32},
			{"airborne_end", 0x128, U32},
			{"ground_fall", 0x12C, U32},
			{"u15", 0x150, U32},
			{"first_active_frame", 0x158, U32},
			{"last_active_frame", 0x15C, U32},
		},
	}

	t8Voiceclip = &RecordType{
		Name: "Voiceclip",
		Size: 0xC,
		Fields: []FieldDef{
			{"folder", 0x0, U32},
			{"val2", 0x4, U32},
			{"clip", 0x8, U32},
		},
	}

	t8InputSequence = &RecordType{
		Name: "InputSequence",
		Size: 0x10,
		Pointers: []PointerField{
			index("inputs", 0x8, T8Input),
		},
		Fields: []FieldDef{
			{"input_window_frames", 0x0, U16},
			{"input_amount", 0x2, U16},
			{"_0x4", 0x4, I32},
		},
	}

	t8Input = &RecordType{
		Name:   "Input",
		Size:   0x8,
		Fields: []FieldDef{{"command", 0x0, U64}},
	}

	t8ParryableMove = &RecordType{
		Name:   "ParryableMove",
		Size:   0x4,
		Fields: []FieldDef{{"value", 0x0, U32}},
	}

	t8CameraData = &RecordType{
		Name: "CameraData",
		Size: 0xC,
		Fields: []FieldDef{
			{"pick_probability", 0x0, U32},
			{"camera_type", 0x4, U16},
			{"left_side_camera_data", 0x6, U16},
			{"right_side_camera_data", 0x8, U16},
			{"additional_rotation", 0xA, U16},
		},
	}

	t8ThrowCamera = &RecordType{
		Name: "ThrowCamera",
		Size: 0x10,
		Pointers: []PointerField{
			index("cameradata", 0x8, T8CameraData),
		},
		Fields: []FieldDef{{"side", 0x0, U64}},
	}

	t8Dialogue = &RecordType{
		Name: "Dialogue",
		Size: 0x18,
		Pointers: []PointerField{
			index("requirements", 0x8, T8Requirement),
		},
		Fields: []FieldDef{
			{"type", 0x0, U16},
			{"id", 0x2, U16},
			{"_0x4", 0x4, U32},
			{"voiceclip_key", 0x10, U32},
			{"facial_anim_idx", 0x14, U32},
		},
	}
)

// t8Table lays out the header pair of table id. Reactions sits alone at the start of the
// header with its count at +0x10; every later table follows as a {ptr, count} pair.
func t8Table(id TableID, name string, record *RecordType) TableDef {
	if id == T8Reactions {
		return TableDef{ID: id, Name: name, Record: record, PtrOffset: 0x0, CountOffset: 0x10}
	}
	ptr := 0x18 + uint64(id-1)*0x10
	return TableDef{ID: id, Name: name, Record: record, PtrOffset: ptr, CountOffset: ptr + 8}
}

// T8 returns the schema of the Tekken 8 moveset layout
func T8() *Schema {
	return &Schema{
		Name: "t8",
		Tables: []TableDef{
			t8Table(T8Reactions, "reactions", t8Reactions),
			t8Table(T8Requirement, "requirement", t8Requirement),
			t8Table(T8HitCondition, "hit_condition", t8HitCondition),
			t8Table(T8Projectile, "projectile", t8Projectile),
			t8Table(T8Pushback, "pushback", t8Pushback),
			t8Table(T8PushbackExtradata, "pushback_extradata", t8PushbackExtradata),
			t8Table(T8Cancel, "cancel", t8Cancel),
			t8Table(T8GroupCancel, "group_cancel", t8GroupCancel),
			t8Table(T8CancelExtradata, "cancel_extradata", t8CancelExtradata),
			t8Table(T8ExtraMoveProperty, "extra_move_property", t8ExtraMoveProperty),
			t8Table(T8MoveBeginningProp, "move_beginning_prop", t8OtherMoveProperty),
			t8Table(T8MoveEndingProp, "move_ending_prop", t8OtherMoveProperty),
			t8Table(T8Move, "move", t8Move),
			t8Table(T8Voiceclip, "voiceclip", t8Voiceclip),
			t8Table(T8InputSequence, "input_sequence", t8InputSequence),
			t8Table(T8Input, "input", t8Input),
			t8Table(T8ParryableMove, "parryable_move", t8ParryableMove),
			t8Table(T8CameraData, "camera_data", t8CameraData),
			t8Table(T8ThrowCamera, "throw_camera", t8ThrowCamera),
			t8Table(T8Dialogue, "dialogue", t8Dialogue),
		},
		Info: InfoLayout{
			Size:              0x170,
			TableOffset:       0x170,
			TableHeaderSize:   0x148,
			MotaListOffset:    0x2B8,
			MotaCount:         13,
			SizedMotaCount:    12,
			InitializedOffset: 0x2,
			Pointers: []PointerField{
				sideData("character_name", 0x10, RegionName),
				sideData("character_creator", 0x18, RegionName),
				sideData("date", 0x20, RegionName),
				sideData("fulldate", 0x28, RegionName),
			},
		},
		Regions: []RegionDef{
			{
				ID:   RegionName,
				Name: "name",
				Bounds: []FieldRef{
					{T8Move, 0x40},
					{T8Move, 0x48},
					{InfoTable, 0x10},
					{InfoTable, 0x18},
					{InfoTable, 0x20},
					{InfoTable, 0x28},
				},
				Terminated: true,
			},
			{ID: RegionMota, Name: "mota"},
		},
		AbsentSentinel: 0,
		MissingMarker:  ^uint64(0),
	}
}

// ByName returns the built-in schema called name
func ByName(name string) (*Schema, error) {
	switch name {
	case "t8":
		return T8(), nil
	}
	return nil, fmt.Errorf("%w: no schema named %q", ErrInvalidSchema, name)
}
