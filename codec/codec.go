// Package codec reads sprite images and writes composed sheets.
//
// The composer only talks to the ImageCodec interface; PNG is the codec used
// by the compose command.
package codec

import (
	"bufio"
	"image"
	"image/png"
	"os"

	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"
)

// EncodeOptions tweak how a sheet is written.
type EncodeOptions struct {
	// Paletted reduces the image to 8 bits per pixel.
	Paletted bool
}

// ImageCodec decodes sprites and encodes sheets.
type ImageCodec interface {
	Decode(path string) (image.Image, error)
	Encode(path string, img image.Image, opts EncodeOptions) error
}

// PNG is the PNG ImageCodec. A nil Quantizer selects GogifQuantizer.
type PNG struct {
	Quantizer Quantizer
}

func (c *PNG) Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening sprite")
	}
	defer f.Close()

	img, err := png.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return img, nil
}

func (c *PNG) Encode(path string, img image.Image, opts EncodeOptions) error {
	if opts.Paletted {
		q := c.Quantizer
		if q == nil {
			q = GogifQuantizer{}
		}
		img = q.Paletted(img)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating sheet file")
	}
	w := bufio.NewWriter(f)
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(w, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "encoding %s", path)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return errors.Wrapf(f.Close(), "closing %s", path)
}

// Normalize converts img to 8-bit non-premultiplied RGBA with its origin at
// (0, 0). Gray, paletted and 16-bit images all end up with an alpha channel.
func Normalize(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(dst, image.Point{}, img, b, xdraw.Src, nil)
	return dst
}
