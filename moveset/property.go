package moveset

import (
	"encoding/binary"
	"fmt"
)

// PropertyID identifies an entry of the property list
type PropertyID uint32

const (
	// PropertyEnd terminates the list; the list size is not stored anywhere else
	PropertyEnd PropertyID = iota
	PropertyCharacterID
	PropertyExtractSettings
	PropertyMotaMask
	PropertySchema
)

func (id PropertyID) String() string {
	switch id {
	case PropertyEnd:
		return "END"
	case PropertyCharacterID:
		return "CHARACTER_ID"
	case PropertyExtractSettings:
		return "EXTRACT_SETTINGS"
	case PropertyMotaMask:
		return "MOTA_MASK"
	case PropertySchema:
		return "SCHEMA"
	}
	return fmt.Sprintf("PROPERTY_%d", uint32(id))
}

// propertySize is {id u32, pad u32, value u64}
const propertySize = 16

type Property struct {
	ID    PropertyID
	Value uint64
}

// encodeProperties writes props followed by the END marker
func encodeProperties(props []Property) []byte {
	out := make([]byte, 0, (len(props)+1)*propertySize)
	for _, p := range props {
		if p.ID == PropertyEnd {
			break
		}
		out = appendProperty(out, p)
	}
	return appendProperty(out, Property{ID: PropertyEnd})
}

func appendProperty(out []byte, p Property) []byte {
	out = binary.LittleEndian.AppendUint32(out, uint32(p.ID))
	out = binary.LittleEndian.AppendUint32(out, 0)
	return binary.LittleEndian.AppendUint64(out, p.Value)
}

// decodeProperties reads entries until END or the end of data. A list without
// END is accepted; its region boundary comes from the header.
func decodeProperties(data []byte) (props []Property, terminated bool) {
	for off := 0; off+propertySize <= len(data); off += propertySize {
		id := PropertyID(binary.LittleEndian.Uint32(data[off:]))
		if id == PropertyEnd {
			return props, true
		}
		props = append(props, Property{ID: id, Value: binary.LittleEndian.Uint64(data[off+8:])})
	}
	return props, false
}

// NameValue packs up to 8 bytes of name into a property value
func NameValue(name string) uint64 {
	var b [8]byte
	copy(b[:], name)
	return binary.LittleEndian.Uint64(b[:])
}

// ValueName is the inverse of NameValue
func ValueName(value uint64) string {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], value)
	return Text(b[:])
}
