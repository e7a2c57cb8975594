// Package extractor copies a moveset out of a running game, makes every pointer in it
// position independent and writes it out as a moveset file.
package extractor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tkmoveset/config"
	"tkmoveset/moveset"
	"tkmoveset/process"
	"tkmoveset/relocate"
	"tkmoveset/schema"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"go.uber.org/multierr"
)

// ExtractSettings are the user choices stored in the file properties
type ExtractSettings struct {
	// MotaMask has bit i set when mota slot i should be exported
	MotaMask            uint32
	ExtractUnknownMotas bool
	Overwrite           bool
	Compression         moveset.Compression
}

// DefaultSettings exports every mota slot with LZ4 compression
func DefaultSettings() ExtractSettings {
	return ExtractSettings{
		MotaMask:    ^uint32(0),
		Compression: moveset.CompressionLZ4,
	}
}

const (
	settingUnknownMotas uint64 = 1 << iota
	settingOverwrite
)

// Flags packs the boolean settings and the compression into a property value
func (s ExtractSettings) Flags() uint64 {
	var v uint64
	if s.ExtractUnknownMotas {
		v |= settingUnknownMotas
	}
	if s.Overwrite {
		v |= settingOverwrite
	}
	return v | uint64(s.Compression)<<32
}

type Options struct {
	Schema *schema.Schema
	Game   *config.Game
	Player int

	// MovesetAddr skips the player lookup when set
	MovesetAddr process.ProcessMemoryAddress
	// CharacterName overrides the game's name table
	CharacterName string
	OutputDir     string
	Settings      ExtractSettings
	Format        AnimationFormat
	Debug         bool
}

type Result struct {
	Path string
	File *moveset.File
	Size int
	// Warnings holds the per-record problems that were replaced by the missing marker
	Warnings []error
}

type Extractor struct {
	r        process.MemoryReader
	log      *logger.Logger
	progress moveset.Progress
}

// New creates an extractor reading from r. An extractor is good for one extraction.
func New(r process.MemoryReader) *Extractor {
	return &Extractor{
		r:   r,
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "extractor")),
	}
}

// Progress returns the percentage reached so far. Safe to call from another goroutine.
func (e *Extractor) Progress() uint8 {
	return e.progress.Get()
}

// CanExtract reports whether player holds a fully loaded moveset that is in use
func (e *Extractor) CanExtract(s *schema.Schema, game *config.Game, player process.ProcessMemoryAddress) bool {
	if player == 0 {
		return false
	}

	off, err := game.Value("motbin_offset")
	if err != nil {
		return false
	}
	motbin, err := e.r.ReadUINT64(player + process.ProcessMemoryAddress(off))
	if err != nil || motbin == 0 || motbin == ^uint64(0) {
		return false
	}

	initialized, err := e.r.ReadUINT8(process.ProcessMemoryAddress(motbin + s.Info.InitializedOffset))
	if err != nil || initialized != 1 {
		return false
	}

	if off, err := game.Value("currmove"); err == nil {
		currmove, err := e.r.ReadUINT64(player + process.ProcessMemoryAddress(off))
		if err != nil || currmove == 0 {
			return false
		}
	}

	return true
}

// CharacterID reads the character id of player
func (e *Extractor) CharacterID(game *config.Game, player process.ProcessMemoryAddress) (uint32, error) {
	off, err := game.Value("chara_id_offset")
	if err != nil {
		return 0, err
	}
	return e.r.ReadUINT32(player + process.ProcessMemoryAddress(off))
}

type source struct {
	addr        process.ProcessMemoryAddress
	characterID uint32
	name        string
}

func (e *Extractor) resolve(opts *Options) (*source, error) {
	src := &source{addr: opts.MovesetAddr, name: opts.CharacterName}

	if opts.Game != nil && src.addr == 0 {
		player, err := opts.Game.PlayerAddress(e.r, opts.Player)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", moveset.ErrRead, err)
		}
		if !e.CanExtract(opts.Schema, opts.Game, player) {
			return nil, fmt.Errorf("%w: player %d has no loaded moveset", moveset.ErrValidation, opts.Player)
		}

		off, err := opts.Game.Value("motbin_offset")
		if err != nil {
			return nil, fmt.Errorf("%w: %w", moveset.ErrValidation, err)
		}
		motbin, err := e.r.ReadUINT64(player + process.ProcessMemoryAddress(off))
		if err != nil {
			return nil, fmt.Errorf("%w: moveset pointer: %w", moveset.ErrRead, err)
		}
		src.addr = process.ProcessMemoryAddress(motbin)

		if src.characterID, err = e.CharacterID(opts.Game, player); err != nil {
			return nil, fmt.Errorf("%w: character id: %w", moveset.ErrRead, err)
		}
	}

	if src.addr == 0 {
		return nil, fmt.Errorf("%w: no moveset address", moveset.ErrValidation)
	}

	if src.name == "" && opts.Game != nil {
		src.name = opts.Game.CharacterName(src.characterID)
	}
	if src.name == "" {
		src.name = fmt.Sprintf("Character %d", src.characterID)
	}
	src.name = PrettyCharacterName(src.name)

	return src, nil
}

// BuildFile reads the moveset and returns it relocated and ready to pack, along with
// the per-record problems that were replaced by the missing marker.
func (e *Extractor) BuildFile(opts Options) (*moveset.File, []error, error) {
	if opts.Schema == nil {
		if opts.Game == nil {
			return nil, nil, fmt.Errorf("%w: no schema", moveset.ErrValidation)
		}
		s, err := schema.ByName(opts.Game.Schema)
		if err != nil {
			return nil, nil, err
		}
		opts.Schema = s
	}
	s := opts.Schema
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}

	src, err := e.resolve(&opts)
	if err != nil {
		return nil, nil, err
	}
	base := uint64(src.addr)
	e.log.Infoln("Extracting", src.name, "moveset at", src.addr.ToString())
	e.progress.Set(5)

	info, err := ExtractBlock(e.r, base, base+s.Info.Size)
	if err != nil {
		return nil, nil, err
	}
	tableHeader, err := ExtractBlock(e.r, base+s.Info.TableOffset, base+s.Info.TableOffset+s.Info.TableHeaderSize)
	if err != nil {
		return nil, nil, err
	}
	motaList, err := ExtractBlock(e.r, base+s.Info.MotaListOffset, base+s.Info.MotaListOffset+s.MotaListSize())
	if err != nil {
		return nil, nil, err
	}
	e.progress.Set(10)

	set, err := relocate.ReadHeader(s, tableHeader)
	if err != nil {
		return nil, nil, err
	}
	tableSpan, err := relocate.MovesetSpan(e.r, set)
	if err != nil {
		return nil, nil, err
	}
	e.log.Debugln("Tables span", tableSpan.String(), "with", set.RecordCount(), "records")

	movesetBlock, err := ExtractSpan(e.r, tableSpan)
	if err != nil {
		return nil, nil, err
	}
	if err := set.Attach(movesetBlock, tableSpan.Start); err != nil {
		return nil, nil, err
	}
	e.progress.Set(35)

	infoView := &relocate.Info{Addr: base, Data: info}
	regions := map[schema.RegionID]uint64{}
	var nameBlock []byte
	if region := s.Region(schema.RegionName); region != nil {
		nameSpan, err := relocate.SideDataBounds(e.r, set, infoView, region)
		if err != nil {
			return nil, nil, err
		}
		if nameBlock, err = ExtractSpan(e.r, nameSpan); err != nil {
			return nil, nil, err
		}
		regions[schema.RegionName] = nameSpan.Start
	}

	slots := make([]uint64, s.Info.MotaCount)
	for i := range slots {
		slots[i] = binary.LittleEndian.Uint64(motaList[i*8:])
	}
	motas, motaErr := ExtractMotas(e.r, s, slots, opts.Settings, opts.Format, e.log)
	if motas == nil {
		return nil, nil, motaErr
	}
	for i, slot := range motas.Slots {
		binary.LittleEndian.PutUint64(motaList[i*8:], slot)
	}
	e.log.Debugln("Exported", motas.Exported, "motas,", len(motas.Block), "bytes")
	e.progress.Set(70)

	space := relocate.NewAddressSpace(set, regions)
	relocErr := relocate.ToPortable(set, space, infoView)
	e.progress.Set(75)

	set.WriteHeader(tableHeader, tableSpan.Start)

	warnings := multierr.Errors(multierr.Combine(motaErr, relocErr))
	for _, w := range warnings {
		e.log.Debugln(w)
	}
	if len(warnings) > 0 {
		e.log.Warn(len(warnings), " fields could not be relocated and were marked missing")
	}

	f := &moveset.File{}
	h := &f.Header
	now := uint64(time.Now().Unix())
	h.Date = now
	h.ExtractionDate = now
	h.CharacterID = src.characterID
	if opts.Debug {
		h.Flags |= moveset.FlagDebug
	}
	moveset.SetText(h.VersionString[:], moveset.VersionString)
	moveset.SetText(h.TargetCharacter[:], src.name)
	moveset.SetText(h.OrigCharacterName[:], src.name)
	if opts.Game != nil {
		h.GameID = opts.Game.ID
		h.MinorVersion = opts.Game.MinorVersion
		moveset.SetText(h.Origin[:], opts.Game.Name)
	}

	f.SetProperty(moveset.PropertyCharacterID, uint64(src.characterID))
	f.SetProperty(moveset.PropertyExtractSettings, opts.Settings.Flags())
	f.SetProperty(moveset.PropertyMotaMask, uint64(opts.Settings.MotaMask))
	f.SetProperty(moveset.PropertySchema, moveset.NameValue(s.Name))

	f.SetBlock(moveset.BlockMovesetInfo, info)
	f.SetBlock(moveset.BlockTable, tableHeader)
	f.SetBlock(moveset.BlockMotalists, motaList)
	f.SetBlock(moveset.BlockName, nameBlock)
	f.SetBlock(moveset.BlockMoveset, movesetBlock)
	f.SetBlock(moveset.BlockMota, motas.Block)
	e.progress.Set(80)

	return f, warnings, nil
}

// Extract builds the moveset file and writes it into opts.OutputDir. The file is written
// next to its destination and renamed into place, nothing is left behind on failure.
func (e *Extractor) Extract(opts Options) (*Result, error) {
	f, warnings, err := e.BuildFile(opts)
	if err != nil {
		return nil, e.progress.Fail("extract", err)
	}

	data, err := moveset.Pack(f, moveset.PackOptions{Compression: opts.Settings.Compression})
	if err != nil {
		if !errors.Is(err, moveset.ErrCompression) {
			return nil, e.progress.Fail("extract", err)
		}
		e.log.Warn("Writing uncompressed file: ", err)
		warnings = append(warnings, err)
	}
	e.progress.Set(95)

	dir := opts.OutputDir
	if dir == "" {
		dir = config.OUTPUT_DIR
	}
	path, err := e.write(dir, f.CharacterName(), data, opts.Settings.Overwrite)
	if err != nil {
		return nil, e.progress.Fail("extract", err)
	}
	e.progress.Set(100)

	e.log.Infoln("Saved", path, "-", len(data), "bytes, crc", fmt.Sprintf("%08x", f.Header.CRC32))
	return &Result{Path: path, File: f, Size: len(data), Warnings: warnings}, nil
}

func (e *Extractor) write(dir, name string, data []byte, overwrite bool) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", moveset.ErrFileCreation, err)
	}

	path, err := OutputPath(dir, name, overwrite)
	if err != nil {
		return "", fmt.Errorf("%w: %w", moveset.ErrFileCreation, err)
	}

	tmp := tempPath(path)
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("%w: %w", moveset.ErrFileCreation, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("%w: %w", moveset.ErrFileCreation, err)
	}

	return filepath.Clean(path), nil
}
