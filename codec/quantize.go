package codec

import (
	"image"
	"image/color"
	"image/draw"
	"sort"

	"github.com/andybons/gogif"
	"github.com/ericpauley/go-quantize/quantize"
)

// Quantizer reduces an image to at most 256 colors. Entry 0 of the result's
// palette is color.Transparent.
type Quantizer interface {
	Paletted(img image.Image) *image.Paletted
}

// GogifQuantizer uses gogif's median cut.
type GogifQuantizer struct{}

func (GogifQuantizer) Paletted(img image.Image) *image.Paletted {
	b := img.Bounds()
	pal := image.NewPaletted(b, nil)
	// Up to 255 colors plus 1 space for transparency.
	quantizer := gogif.MedianCutQuantizer{NumColor: 255}
	quantizer.Quantize(pal, b, img, b.Min)
	return withTransparent(img, pal.Palette)
}

// MedianCutQuantizer uses go-quantize's median cut, which weighs colors by
// how many pixels use them.
type MedianCutQuantizer struct{}

func (MedianCutQuantizer) Paletted(img image.Image) *image.Paletted {
	q := quantize.MedianCutQuantizer{}
	p := q.Quantize(make(color.Palette, 0, 255), img)
	return withTransparent(img, p)
}

// withTransparent redraws img using p with color.Transparent prepended, so
// that empty cells stay empty and the background index is 0. The palette is
// sorted so that equal input gives equal output.
func withTransparent(img image.Image, p color.Palette) *image.Paletted {
	b := img.Bounds()
	if len(p) > 255 {
		p = p[:255]
	}
	p = append(color.Palette(nil), p...)
	sort.Slice(p, func(i, j int) bool { return packRGBA(p[i]) < packRGBA(p[j]) })
	dst := image.NewPaletted(b, append(color.Palette{color.Transparent}, p...))
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}

// QuantizerByName maps the -quantizer flag values to implementations.
func QuantizerByName(name string) (Quantizer, bool) {
	switch name {
	case "", "gogif":
		return GogifQuantizer{}, true
	case "mediancut":
		return MedianCutQuantizer{}, true
	}
	return nil, false
}

func packRGBA(c color.Color) uint64 {
	r, g, b, a := c.RGBA()
	return uint64(r)<<48 | uint64(g)<<32 | uint64(b)<<16 | uint64(a)
}
