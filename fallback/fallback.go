// Package fallback builds the descriptor of the ASCII fallback sheet, which
// the game uses to draw a glyph when no graphical tile exists for an id.
package fallback

import (
	"badc0de.net/pkg/go-tileset/tileconfig"
	"badc0de.net/pkg/go-tileset/tileentry"
)

// DefaultFile is the fallback sheet image name used when tile_info.json
// declares no fallback sheet.
const DefaultFile = "fallback.png"

// Stride is the number of glyphs per color/weight combination.
const Stride = 256

// palette lists the color/weight combinations in sheet order.
var palette = []struct {
	color string
	bold  bool
}{
	{"BLACK", false},
	{"WHITE", true},
	{"WHITE", false},
	{"BLACK", true},
	{"RED", false},
	{"GREEN", false},
	{"BLUE", false},
	{"CYAN", false},
	{"MAGENTA", false},
	{"YELLOW", false},
	{"RED", true},
	{"GREEN", true},
	{"BLUE", true},
	{"CYAN", true},
	{"MAGENTA", true},
	{"YELLOW", true},
}

// ASCII returns the 16 fallback entries.
func ASCII() []tileconfig.ASCII {
	out := make([]tileconfig.ASCII, len(palette))
	for i, p := range palette {
		out[i] = tileconfig.ASCII{Offset: i * Stride, Bold: p.bold, Color: p.color}
	}
	return out
}

// Synthesize returns the fallback sheet descriptor. An empty file selects
// DefaultFile; geometry is nil unless the fallback sheet declaration was
// non-standard.
func Synthesize(file string, geometry *tileconfig.Geometry) tileconfig.Sheet {
	if file == "" {
		file = DefaultFile
	}
	return tileconfig.Sheet{
		File:     file,
		Geometry: geometry,
		Tiles:    []*tileentry.Entry{},
		ASCII:    ASCII(),
	}
}
