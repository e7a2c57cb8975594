// Package config holds the per-game description: where the players live, the offsets
// of interesting player fields and the character name table.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"tkmoveset/process"

	"gopkg.in/yaml.v3"
)

//go:embed games.yaml
var defaultGames []byte

type Game struct {
	ID           uint32            `yaml:"id"`
	MinorVersion uint32            `yaml:"minor_version"`
	Name         string            `yaml:"name"`
	ProcessName  string            `yaml:"process_name"`
	Schema       string            `yaml:"schema"`
	ModuleBase   uint64            `yaml:"module_base"`
	PlayerPath   []uint64          `yaml:"player_path"`
	PlayerStride uint64            `yaml:"player_stride"`
	PlayerCount  int               `yaml:"player_count"`
	Values       map[string]uint64 `yaml:"values"`
	Characters   map[uint32]string `yaml:"characters"`
}

// RequiredValues are the player offsets every game must define
var RequiredValues = []string{"motbin_offset"}

type Config struct {
	Games []Game `yaml:"games"`
}

// Parse decodes a YAML game list
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if len(c.Games) == 0 {
		return nil, fmt.Errorf("config lists no games")
	}
	for _, g := range c.Games {
		for _, name := range RequiredValues {
			if _, err := g.Value(name); err != nil {
				return nil, err
			}
		}
	}
	return &c, nil
}

// Load reads a YAML game list from path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in game list
func Default() *Config {
	c, err := Parse(defaultGames)
	if err != nil {
		panic(err)
	}
	return c
}

// FromEnv loads TKMOVESET_CONFIG when set, the built-in list otherwise
func FromEnv() (*Config, error) {
	if CONFIG != "" {
		return Load(CONFIG)
	}
	return Default(), nil
}

// Game returns the game with the given id, or the first one when id is zero
func (c *Config) Game(id uint32) (*Game, error) {
	for i := range c.Games {
		if id == 0 || c.Games[i].ID == id {
			return &c.Games[i], nil
		}
	}
	return nil, fmt.Errorf("no game with id %d", id)
}

// Value returns a named offset
func (g *Game) Value(name string) (uint64, error) {
	v, ok := g.Values[name]
	if !ok {
		return 0, fmt.Errorf("game %s has no value %q", g.Name, name)
	}
	return v, nil
}

// MustValue is Value for RequiredValues, which Parse checks every game defines
func (g *Game) MustValue(name string) uint64 {
	v, err := g.Value(name)
	if err != nil {
		panic(err)
	}
	return v
}

// PlayerAddress follows the player path and reads the pointer of player index
func (g *Game) PlayerAddress(r process.MemoryReader, index int) (process.ProcessMemoryAddress, error) {
	if g.PlayerCount > 0 && (index < 0 || index >= g.PlayerCount) {
		return 0, fmt.Errorf("player %d out of range [0, %d)", index, g.PlayerCount)
	}

	offsets := make([]process.ProcessMemorySize, len(g.PlayerPath))
	for i, off := range g.PlayerPath {
		offsets[i] = process.ProcessMemorySize(off)
	}

	slot, err := process.ResolvePath(r, process.ProcessMemoryAddress(g.ModuleBase), offsets...)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve player list: %w", err)
	}

	player, err := r.ReadUINT64(slot + process.ProcessMemoryAddress(uint64(index)*g.PlayerStride))
	if err != nil {
		return 0, fmt.Errorf("failed to read player %d: %w", index, err)
	}
	if player == 0 {
		return 0, fmt.Errorf("player %d: %w", index, process.ErrInvalidPointer)
	}

	return process.ProcessMemoryAddress(player), nil
}

// CharacterName returns the raw name table entry for id, or "" when unknown
func (g *Game) CharacterName(id uint32) string {
	return g.Characters[id]
}
