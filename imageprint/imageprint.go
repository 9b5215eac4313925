// Package imageprint previews composed sheets on a terminal.
//
// Raster-capable terminals (kitty, iTerm2/WezTerm, sixel) get the image
// itself; everything else gets two character cells per pixel.
package imageprint

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	ic "image/color"
	"image/png"
	"io"
	"strings"

	"github.com/BourgeoisBear/rasterm"
	"github.com/andybons/gogif"
	"github.com/gookit/color"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

type Mode int

const (
	// Auto uses Raster where the terminal supports it and TrueColor
	// otherwise.
	Auto Mode = iota
	Raster
	ITerm
	TrueColor
	Color256
	NoColor
)

var modeNames = map[string]Mode{
	"auto":   Auto,
	"raster": Raster,
	"iterm":  ITerm,
	"24bit":  TrueColor,
	"256":    Color256,
	"none":   NoColor,
}

func ParseMode(s string) (Mode, error) {
	if m, ok := modeNames[strings.ToLower(s)]; ok {
		return m, nil
	}
	return Auto, errors.Errorf("unknown preview mode %q", s)
}

// Printer writes images to W.
type Printer struct {
	W    io.Writer
	Mode Mode

	// Blanks draws colored blanks instead of ASCII shading.
	Blanks bool
	// Downsize shrinks images to fit the terminal.
	Downsize bool
}

// Print writes img, preceded by its name when one is passed.
func (p *Printer) Print(img image.Image, name string) error {
	mode := p.Mode
	if mode == Auto {
		mode = TrueColor
		if rasterCapable() {
			mode = Raster
		}
	}
	if p.Downsize {
		img = fit(img, mode == Raster || mode == ITerm)
	}
	if name != "" {
		fmt.Fprintf(p.W, "%s:\n", name)
	}

	switch mode {
	case Raster:
		return p.printRaster(img)
	case ITerm:
		return p.printITerm(img, name)
	}
	for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y; y++ {
		for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
			p.shade(img.At(x, y), mode)
		}
		if mode != NoColor {
			fmt.Fprint(p.W, "\x1b[0m")
		}
		fmt.Fprint(p.W, "\n")
	}
	return nil
}

func (p *Printer) shade(col ic.Color, mode Mode) {
	r, g, b, a := col.RGBA()
	if a == 0 {
		if mode == NoColor {
			fmt.Fprint(p.W, "  ")
		} else {
			fmt.Fprint(p.W, "\x1b[0m  ")
		}
		return
	}

	cell := "  "
	if !p.Blanks {
		switch l := ((r + g + b) / 3) >> 8; {
		case l < 32:
			cell = ".."
		case l < 64:
			cell = "--"
		case l < 128:
			cell = "=="
		default:
			cell = "##"
		}
	}

	r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(b>>8)
	switch mode {
	case NoColor:
		fmt.Fprint(p.W, cell)
	case Color256:
		fmt.Fprint(p.W, color.RGB(r8, g8, b8, true).Sprint(cell))
	default:
		fmt.Fprintf(p.W, "\x1b[48;2;%d;%d;%dm%s\x1b[0m", r8, g8, b8, cell)
	}
}

func rasterCapable() bool {
	if rasterm.IsTermKitty() || rasterm.IsTermItermWez() {
		return true
	}
	capable, err := rasterm.IsSixelCapable()
	return capable && err == nil
}

func (p *Printer) printRaster(img image.Image) error {
	var err error
	switch {
	case rasterm.IsTermKitty():
		err = rasterm.Settings{}.KittyWriteImage(p.W, img)
	case rasterm.IsTermItermWez():
		err = rasterm.Settings{}.ItermWriteImage(p.W, img)
	default:
		paletted := image.NewPaletted(img.Bounds(), nil)
		quantizer := gogif.MedianCutQuantizer{NumColor: 64}
		quantizer.Quantize(paletted, img.Bounds(), img, img.Bounds().Min)
		err = rasterm.Settings{}.SixelWriteImage(p.W, paletted)
	}
	fmt.Fprint(p.W, "\n")
	return errors.Wrap(err, "writing raster image")
}

// printITerm uses iTerm2's inline image escape code directly.
//
// https://www.iterm2.com/documentation-images.html
func (p *Printer) printITerm(img image.Image, name string) error {
	var b bytes.Buffer
	enc := base64.NewEncoder(base64.StdEncoding, &b)
	if err := png.Encode(enc, img); err != nil {
		return errors.Wrap(err, "encoding preview")
	}
	enc.Close()
	size := img.Bounds().Size()
	fmt.Fprintf(p.W, "\033]1337;File=name=%s;inline=1;size=%d;width=%dpx;height=%dpx:%s\a\n",
		base64.StdEncoding.EncodeToString([]byte(name)), b.Len(), size.X, size.Y, b.String())
	return nil
}

// fit shrinks img to the terminal, keeping it as is when the terminal size
// is unknown. Pixel art keeps hard edges.
func fit(img image.Image, raster bool) image.Image {
	ts, err := GetTermSize()
	if err != nil {
		return img
	}
	if raster && ts.XPixel != 0 && ts.YPixel != 0 {
		return resize.Thumbnail(ts.XPixel/2, ts.YPixel/2, img, resize.NearestNeighbor)
	}
	if ts.Cols == 0 || ts.Rows == 0 {
		return img
	}
	return resize.Thumbnail(ts.Cols/2, ts.Rows, img, resize.NearestNeighbor)
}
