package moveset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameValue(t *testing.T) {
	assert.Equal(t, "t8", ValueName(NameValue("t8")))
	assert.Equal(t, "", ValueName(NameValue("")))
	assert.Equal(t, "tekken8x", ValueName(NameValue("tekken8xyz")))
}

func TestDecodePropertiesWithoutEnd(t *testing.T) {
	data := encodeProperties([]Property{{ID: PropertyCharacterID, Value: 3}, {ID: PropertyMotaMask, Value: 0xFF}})

	props, terminated := decodeProperties(data)
	assert.True(t, terminated)
	assert.Len(t, props, 2)

	props, terminated = decodeProperties(data[:propertySize*2])
	assert.False(t, terminated)
	assert.Len(t, props, 2)
}

func TestSetPropertyUpdatesInPlace(t *testing.T) {
	f := &File{}
	f.SetProperty(PropertyMotaMask, 1)
	f.SetProperty(PropertyCharacterID, 2)
	f.SetProperty(PropertyMotaMask, 3)

	require.Len(t, f.Properties, 2)
	v, ok := f.Property(PropertyMotaMask)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), v)

	_, ok = f.Property(PropertySchema)
	assert.False(t, ok)
	assert.Equal(t, "PROPERTY_99", PropertyID(99).String())
}

func TestProgress(t *testing.T) {
	var p Progress
	p.Set(35)
	p.Set(10)
	assert.Equal(t, uint8(35), p.Get())
	p.Set(250)
	assert.Equal(t, uint8(100), p.Get())

	var q Progress
	q.Set(70)
	err := q.Fail("extract", ErrRead)
	assert.ErrorIs(t, err, ErrRead)

	var op *OperationError
	require.True(t, errors.As(err, &op))
	assert.Equal(t, uint8(70), op.Progress)
	assert.Equal(t, "extract failed at 70%: read error", err.Error())
}

func TestText(t *testing.T) {
	var field [8]byte
	SetText(field[:], "Lee Chaolan")
	assert.Equal(t, "Lee Cha", Text(field[:]))
	assert.Equal(t, byte(0), field[7])
}
