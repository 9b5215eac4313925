// Package tilesheet builds one sprite sheet of a tileset: it walks the
// sheet's source directory, registers the sprites it finds, collects the tile
// entry files and packs the sprite images into a grid.
package tilesheet

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"badc0de.net/pkg/go-tileset/codec"
	"badc0de.net/pkg/go-tileset/diag"
	"badc0de.net/pkg/go-tileset/spriteindex"
	"badc0de.net/pkg/go-tileset/tileconfig"
	"badc0de.net/pkg/go-tileset/tileentry"
)

// DefaultSpritesAcross is the grid width of a sheet that does not declare one.
const DefaultSpritesAcross = 16

// DefaultIgnoreFile marks a directory whose subtree is skipped.
const DefaultIgnoreFile = ".scratch"

type Category int

const (
	Main Category = iota
	Filler
	Fallback
)

func (c Category) String() string {
	switch c {
	case Filler:
		return "filler"
	case Fallback:
		return "fallback"
	default:
		return "main"
	}
}

// Config is what all sheets of one run share.
type Config struct {
	SourceDir string
	OutputDir string
	Info      tileconfig.Info

	Index *spriteindex.Index
	Diag  *diag.Tracker
	Codec codec.ImageCodec

	ObsoleteFillers bool
	OnlyJSON        bool
	Palette         bool
	PaletteCopies   bool

	// IgnoreFile defaults to DefaultIgnoreFile.
	IgnoreFile string
	// Workers bounds concurrent image decoding; 0 or less means one.
	Workers int

	// Progress, if set, receives a line per walked directory.
	Progress func(format string, args ...interface{})
}

type sprite struct {
	name  string
	path  string
	index int
	img   *image.NRGBA
	err   error
}

// EntryFile holds the raw entries of one tile entry file.
type EntryFile struct {
	Path    string
	Entries []tileentry.RawEntry
}

// Sheet is one declared sheet.
type Sheet struct {
	Name     string
	Category Category

	SpriteWidth, SpriteHeight          int
	OffsetX, OffsetY                   int
	OffsetXRetracted, OffsetYRetracted int
	PixelScale                         float64
	SpritesAcross                      int
	Exclude                            []string

	// Dir is the source directory of the sheet's sprites and entries.
	Dir string

	// FirstIndex is the index of the first sprite registered by this sheet;
	// MaxIndex the last index it occupies, padding included.
	FirstIndex, MaxIndex int

	cfg     *Config
	hasNull bool
	sprites []sprite
	files   []EntryFile
	grid    *codec.Grid
}

// New prepares a sheet from its declaration. The sheet's index range starts
// right after everything registered so far; Walk moves it to wherever the
// index stands when the walk begins.
func New(spec tileconfig.SheetSpec, cfg *Config) (*Sheet, error) {
	s := &Sheet{
		Name:          spec.File,
		SpriteWidth:   cfg.Info.Width,
		SpriteHeight:  cfg.Info.Height,
		OffsetX:       spec.SpriteOffsetX,
		OffsetY:       spec.SpriteOffsetY,
		PixelScale:    1,
		SpritesAcross: DefaultSpritesAcross,
		Exclude:       spec.Exclude,
		cfg:           cfg,
	}
	if spec.SpriteWidth != nil {
		s.SpriteWidth = *spec.SpriteWidth
	}
	if spec.SpriteHeight != nil {
		s.SpriteHeight = *spec.SpriteHeight
	}
	s.OffsetXRetracted, s.OffsetYRetracted = s.OffsetX, s.OffsetY
	if spec.SpriteOffsetXRetracted != nil {
		s.OffsetXRetracted = *spec.SpriteOffsetXRetracted
	}
	if spec.SpriteOffsetYRetracted != nil {
		s.OffsetYRetracted = *spec.SpriteOffsetYRetracted
	}
	if spec.PixelScale != nil {
		s.PixelScale = *spec.PixelScale
	}
	if spec.SpritesAcross != nil {
		s.SpritesAcross = *spec.SpritesAcross
	}
	switch {
	case spec.Fallback:
		s.Category = Fallback
	case spec.Filler:
		s.Category = Filler
	}

	if s.SpritesAcross <= 0 {
		return nil, errors.Errorf("%s: sprites_across must be positive, got %d", s.Name, s.SpritesAcross)
	}
	if s.SpriteWidth <= 0 || s.SpriteHeight <= 0 {
		return nil, errors.Errorf("%s: sprite size must be positive, got %dx%d", s.Name, s.SpriteWidth, s.SpriteHeight)
	}

	root := strings.SplitN(s.Name, ".png", 2)[0]
	s.Dir = filepath.Join(cfg.SourceDir, fmt.Sprintf("pngs_%s_%dx%d", root, s.SpriteWidth, s.SpriteHeight))

	s.FirstIndex = cfg.Index.Last() + 1
	s.MaxIndex = cfg.Index.Last()
	return s, nil
}

// Namespace is the sprite namespace the sheet registers into.
func (s *Sheet) Namespace() spriteindex.Namespace {
	if s.Category == Filler {
		return spriteindex.Filler
	}
	return spriteindex.Main
}

// AddNull makes the null sprite the sheet's first cell. Only the first sheet
// of a tileset holds it.
func (s *Sheet) AddNull() {
	s.hasNull = true
}

// IsStandard reports whether the sheet uses the tileset's sprite geometry.
func (s *Sheet) IsStandard() bool {
	switch {
	case s.OffsetX != 0 || s.OffsetY != 0:
		return false
	case s.OffsetXRetracted != s.OffsetX || s.OffsetYRetracted != s.OffsetY:
		return false
	case s.SpriteWidth != s.cfg.Info.Width || s.SpriteHeight != s.cfg.Info.Height:
		return false
	case s.PixelScale != 1:
		return false
	}
	return true
}

// Geometry returns the overrides to write for the sheet, or nil for a
// standard sheet.
func (s *Sheet) Geometry() *tileconfig.Geometry {
	if s.IsStandard() {
		return nil
	}
	ox, oy := s.OffsetX, s.OffsetY
	g := &tileconfig.Geometry{
		SpriteWidth:   s.SpriteWidth,
		SpriteHeight:  s.SpriteHeight,
		SpriteOffsetX: &ox,
		SpriteOffsetY: &oy,
	}
	if s.OffsetXRetracted != s.OffsetX || s.OffsetYRetracted != s.OffsetY {
		rx, ry := s.OffsetXRetracted, s.OffsetYRetracted
		g.SpriteOffsetXRetracted = &rx
		g.SpriteOffsetYRetracted = &ry
	}
	if s.PixelScale != 1 {
		ps := s.PixelScale
		g.PixelScale = &ps
	}
	return g
}

// Len returns the number of grid cells holding a sprite, the null sprite
// included.
func (s *Sheet) Len() int {
	n := len(s.sprites)
	if s.hasNull {
		n++
	}
	return n
}

// SpriteNames returns the registered sprite names in index order.
func (s *Sheet) SpriteNames() []string {
	out := make([]string, len(s.sprites))
	for i, sp := range s.sprites {
		out[i] = sp.name
	}
	return out
}

// EntryFiles returns the entry files found by Walk, in walk order.
func (s *Sheet) EntryFiles() []EntryFile {
	return s.files
}

// Image returns the composed sheet; nil before Compose or in JSON-only mode.
func (s *Sheet) Image() image.Image {
	if s.grid == nil {
		return nil
	}
	return s.grid.Image
}

// OutputPath is where Compose writes the sheet image.
func (s *Sheet) OutputPath() string {
	return filepath.Join(s.cfg.OutputDir, s.Name)
}
