package config

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"tkmoveset/process"
	"tkmoveset/process_blob"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	g, err := c.Game(8)
	require.NoError(t, err)
	assert.Equal(t, "Tekken 8", g.Name)
	assert.Equal(t, "t8", g.Schema)
	assert.Equal(t, "Polaris-Win64-Shipping.exe", g.ProcessName)
	assert.Equal(t, "DEVIL_JIN", g.CharacterName(12))
	assert.Equal(t, "", g.CharacterName(9999))

	first, err := c.Game(0)
	require.NoError(t, err)
	assert.Same(t, g, first)

	_, err = c.Game(7)
	assert.Error(t, err)
}

func TestValues(t *testing.T) {
	g, err := Default().Game(8)
	require.NoError(t, err)

	v, err := g.Value("motbin_offset")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x3218), v)

	_, err = g.Value("nope")
	assert.Error(t, err)
	assert.Panics(t, func() { g.MustValue("nope") })
}

const testGames = `
games:
  - id: 3
    name: Test
    schema: t8
    module_base: 0x1000
    player_path: [0x10, 0x8]
    player_stride: 0x10
    player_count: 2
    values:
      motbin_offset: 0x20
`

func TestParseAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testGames), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	g, err := c.Game(3)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0x10, 0x8}, g.PlayerPath)

	_, err = Parse([]byte("games: []"))
	assert.Error(t, err)
	_, err = Parse([]byte("games: {"))
	assert.Error(t, err)
	_, err = Parse([]byte("games:\n  - id: 4\n    name: Bare\n    values:\n      currmove: 0x10\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "motbin_offset")
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPlayerAddress(t *testing.T) {
	c, err := Parse([]byte(testGames))
	require.NoError(t, err)
	g, err := c.Game(3)
	require.NoError(t, err)

	mem := make([]byte, 0x100)
	le := binary.LittleEndian
	le.PutUint64(mem[0x10:], 0x1040)     // module_base+0x10 -> list
	le.PutUint64(mem[0x48:], 0xAAAA0000) // player 0
	le.PutUint64(mem[0x58:], 0)          // player 1 missing
	blob := process_blob.NewProcessBlob(0x1000, mem)

	p, err := g.PlayerAddress(blob, 0)
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(0xAAAA0000), p)

	_, err = g.PlayerAddress(blob, 1)
	assert.ErrorIs(t, err, process.ErrInvalidPointer)

	_, err = g.PlayerAddress(blob, 2)
	assert.Error(t, err)
}
