// Package tileconfig defines the configuration document a composed tileset
// is described by, and the tile_info.json input it is built from.
package tileconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"badc0de.net/pkg/go-tileset/tileentry"
)

// Info is the global tile metadata, both as read from the first element of
// tile_info.json and as written to the document.
type Info struct {
	PixelScale     float64 `json:"pixelscale"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Iso            bool    `json:"iso"`
	RetractDistMin float64 `json:"retract_dist_min"`
	RetractDistMax float64 `json:"retract_dist_max"`
}

// DefaultInfo holds the values used for keys tile_info.json leaves out.
var DefaultInfo = Info{
	PixelScale:     1,
	Width:          16,
	Height:         16,
	RetractDistMin: -1.0,
	RetractDistMax: 1.0,
}

// Geometry holds the per-sheet sprite geometry overrides. Only fields that
// differ from the tileset defaults are written.
type Geometry struct {
	SpriteWidth            int      `json:"sprite_width,omitempty"`
	SpriteHeight           int      `json:"sprite_height,omitempty"`
	SpriteOffsetX          *int     `json:"sprite_offset_x,omitempty"`
	SpriteOffsetY          *int     `json:"sprite_offset_y,omitempty"`
	SpriteOffsetXRetracted *int     `json:"sprite_offset_x_retracted,omitempty"`
	SpriteOffsetYRetracted *int     `json:"sprite_offset_y_retracted,omitempty"`
	PixelScale             *float64 `json:"pixelscale,omitempty"`
}

// ASCII is one color/weight combination of the fallback sheet.
type ASCII struct {
	Offset int    `json:"offset"`
	Bold   bool   `json:"bold"`
	Color  string `json:"color"`
}

// Sheet describes one entry of "tiles-new": a sprite sheet or the ASCII
// fallback.
type Sheet struct {
	File    string `json:"file"`
	Comment string `json:"//,omitempty"`
	*Geometry
	Tiles []*tileentry.Entry `json:"tiles"`
	ASCII []ASCII            `json:"ascii,omitempty"`
}

// RangeComment is the "//" value of a sheet spanning [first, max].
func RangeComment(first, max int) string {
	return fmt.Sprintf("range %d to %d", first, max)
}

// Document is the complete tile configuration.
type Document struct {
	TileInfo []Info  `json:"tile_info"`
	TilesNew []Sheet `json:"tiles-new"`
}

// SheetSpec is one sheet declaration of tile_info.json.
type SheetSpec struct {
	// File is the output image name, e.g. "tiles.png".
	File string `json:"-"`

	SpriteWidth            *int     `json:"sprite_width"`
	SpriteHeight           *int     `json:"sprite_height"`
	SpriteOffsetX          int      `json:"sprite_offset_x"`
	SpriteOffsetY          int      `json:"sprite_offset_y"`
	SpriteOffsetXRetracted *int     `json:"sprite_offset_x_retracted"`
	SpriteOffsetYRetracted *int     `json:"sprite_offset_y_retracted"`
	PixelScale             *float64 `json:"pixelscale"`
	SpritesAcross          *int     `json:"sprites_across"`
	Exclude                []string `json:"exclude"`
	Filler                 bool     `json:"filler"`
	Fallback               bool     `json:"fallback"`
}

// ReadInfo parses tile_info.json: the global metadata followed by the sheet
// declarations in order.
func ReadInfo(r io.Reader) (Info, []SheetSpec, error) {
	var elems []json.RawMessage
	if err := json.NewDecoder(r).Decode(&elems); err != nil {
		return Info{}, nil, errors.Wrap(err, "decoding tile info")
	}
	if len(elems) == 0 {
		return Info{}, nil, errors.New("tile info is empty")
	}

	info := DefaultInfo
	if err := json.Unmarshal(elems[0], &info); err != nil {
		return Info{}, nil, errors.Wrap(err, "decoding global tile info")
	}

	specs := make([]SheetSpec, 0, len(elems)-1)
	for i, raw := range elems[1:] {
		spec, err := decodeSheetSpec(raw)
		if err != nil {
			return Info{}, nil, errors.Wrapf(err, "sheet declaration #%d", i+1)
		}
		specs = append(specs, spec)
	}
	return info, specs, nil
}

func decodeSheetSpec(raw json.RawMessage) (SheetSpec, error) {
	var byFile map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byFile); err != nil {
		return SheetSpec{}, err
	}
	if len(byFile) != 1 {
		return SheetSpec{}, errors.Errorf("want exactly one sheet file name, got %d keys", len(byFile))
	}
	var spec SheetSpec
	for file, body := range byFile {
		spec.File = file
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &spec); err != nil {
				return SheetSpec{}, errors.Wrap(err, file)
			}
		}
	}
	if spec.File == "" {
		return SheetSpec{}, errors.New("empty sheet file name")
	}
	return spec, nil
}
