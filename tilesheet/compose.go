package tilesheet

import (
	"image"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"badc0de.net/pkg/go-tileset/codec"
)

// LoadImages decodes the registered sprites. Decoding runs on up to
// Config.Workers goroutines; diagnostics are reported afterwards in index
// order. Nothing is decoded in JSON-only mode.
func (s *Sheet) LoadImages() error {
	if s.cfg.OnlyJSON || len(s.sprites) == 0 {
		return nil
	}
	workers := s.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range s.sprites {
		sp := &s.sprites[i]
		g.Go(func() error {
			img, err := s.cfg.Codec.Decode(sp.path)
			if err != nil {
				sp.err = err
				return nil
			}
			sp.img = codec.Normalize(img)
			return nil
		})
	}
	g.Wait()

	for i := range s.sprites {
		sp := &s.sprites[i]
		if sp.err != nil {
			s.cfg.Diag.Errorf("tilesheet", "cannot load %s: %v", sp.path, sp.err)
		} else if b := sp.img.Bounds(); b.Dx() != s.SpriteWidth || b.Dy() != s.SpriteHeight {
			s.cfg.Diag.Errorf("tilesheet", "%s is %dx%d, but %s sheet sprites have to be %dx%d.",
				sp.path, b.Dx(), b.Dy(), s.Name, s.SpriteWidth, s.SpriteHeight)
		}
		if err := s.cfg.Diag.Abort(); err != nil {
			return err
		}
	}
	return nil
}

// Compose pads the sheet's index range to a full grid row, packs the sprite
// images and writes the sheet. It returns false for a sheet without sprites,
// which leaves the index untouched.
func (s *Sheet) Compose() (bool, error) {
	count := s.Len()
	if count == 0 {
		return false, nil
	}

	if rem := count % s.SpritesAcross; rem != 0 {
		s.cfg.Index.Pad(s.SpritesAcross - rem)
	}
	s.MaxIndex = s.cfg.Index.Last()

	if s.cfg.OnlyJSON {
		return true, nil
	}

	s.grid = codec.NewGrid(image.Pt(s.SpriteWidth, s.SpriteHeight), s.SpritesAcross, count)
	cell := 0
	if s.hasNull {
		// The null sprite is the transparent cell 0.
		cell++
	}
	for _, sp := range s.sprites {
		// Sprites that failed to load keep their index with an empty cell.
		if sp.img != nil {
			s.grid.Place(cell, sp.img)
		}
		cell++
	}

	path := s.OutputPath()
	if err := s.cfg.Codec.Encode(path, s.grid.Image, codec.EncodeOptions{Paletted: s.cfg.Palette}); err != nil {
		return false, errors.Wrapf(err, "writing sheet %s", s.Name)
	}
	if s.cfg.PaletteCopies && !s.cfg.Palette {
		if err := s.cfg.Codec.Encode(path+"8", s.grid.Image, codec.EncodeOptions{Paletted: true}); err != nil {
			return false, errors.Wrapf(err, "writing palette copy of %s", s.Name)
		}
	}
	return true, nil
}
