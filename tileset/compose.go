package tileset

import (
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-tileset/fallback"
	"badc0de.net/pkg/go-tileset/spriteindex"
	"badc0de.net/pkg/go-tileset/tileconfig"
	"badc0de.net/pkg/go-tileset/tileentry"
	"badc0de.net/pkg/go-tileset/tilesheet"
)

// Result is what a completed run produced.
type Result struct {
	Document tileconfig.Document
	// Path is where Document was written.
	Path string
	// Sheets are the composed sheets in document order.
	Sheets []*tilesheet.Sheet
}

type assembled struct {
	sheet *tilesheet.Sheet
	desc  tileconfig.Sheet
}

// Compose builds every sheet, assembles the configuration document and
// writes it. In fail-fast mode the first error-level diagnostic stops the
// run with an error wrapping diag.ErrFailFast and no document is written;
// sheet images already written stay in place.
func (ts *Tileset) Compose() (*Result, error) {
	if err := os.MkdirAll(ts.OutputDir, 0755); err != nil {
		return nil, structural(err, "creating output directory")
	}

	var composed []*tilesheet.Sheet
	for _, s := range ts.sheets {
		ok, err := ts.composeSheet(s)
		if err != nil {
			return nil, err
		}
		if ok {
			composed = append(composed, s)
		}
	}

	doc, err := ts.assemble(composed)
	if err != nil {
		return nil, err
	}
	if err := ts.diag.Abort(); err != nil {
		return nil, err
	}

	path := filepath.Join(ts.OutputDir, ts.ConfigFile)
	ts.progressf("Writing %s... ", ts.ConfigFile)
	if err := ts.opts.Formatter.Write(path, doc, ts.opts.FormatJSON); err != nil {
		return nil, errors.Wrap(err, "writing configuration document")
	}
	ts.progressf("done.\n")
	glog.V(1).Infof("wrote %s with %d sheets", path, len(doc.TilesNew))

	return &Result{Document: doc, Path: path, Sheets: composed}, nil
}

// composeSheet walks, loads and writes one sheet. It returns false for a
// sheet left out of the document.
func (ts *Tileset) composeSheet(s *tilesheet.Sheet) (bool, error) {
	ts.diag.Infof("tileset", "parsing %s tilesheet %s", s.Category, s.Name)
	ts.progressf("Composing [%s] tilesheet [%s]... ", s.Category, s.Name)
	if ts.opts.Feedback == Verbose {
		ts.progressf("\n")
	}

	if err := s.Walk(); err != nil {
		return false, err
	}
	if err := s.LoadImages(); err != nil {
		return false, err
	}
	ok, err := s.Compose()
	if err != nil {
		return false, err
	}
	if !ok {
		ts.progressf("empty.\n")
		ts.diag.Warningf("tileset", "%s has no sprites and is left out of %s, with its %d entry files", s.Name, ts.ConfigFile, len(s.EntryFiles()))
		return false, ts.diag.Abort()
	}
	ts.progressf("done.\n")
	return true, ts.diag.Abort()
}

// assemble resolves the entries of every composed sheet in order and builds
// the document. Main sprites no entry claimed are handled right before the
// first filler sheet, filler sprites at the very end.
func (ts *Tileset) assemble(sheets []*tilesheet.Sheet) (tileconfig.Document, error) {
	var (
		out         []*assembled
		mainFlushed bool
	)
	for _, s := range sheets {
		if s.Category == tilesheet.Filler && !mainFlushed {
			if err := ts.flushUnreferenced(spriteindex.Main, out); err != nil {
				return tileconfig.Document{}, err
			}
			mainFlushed = true
		}

		a := &assembled{
			sheet: s,
			desc: tileconfig.Sheet{
				File:     s.Name,
				Comment:  tileconfig.RangeComment(s.FirstIndex, s.MaxIndex),
				Geometry: s.Geometry(),
				Tiles:    []*tileentry.Entry{},
			},
		}
		if err := ts.resolveEntries(a); err != nil {
			return tileconfig.Document{}, err
		}
		out = append(out, a)
	}
	if !mainFlushed {
		if err := ts.flushUnreferenced(spriteindex.Main, out); err != nil {
			return tileconfig.Document{}, err
		}
	}
	if err := ts.flushUnreferenced(spriteindex.Filler, out); err != nil {
		return tileconfig.Document{}, err
	}

	doc := tileconfig.Document{
		TileInfo: []tileconfig.Info{ts.Info},
		TilesNew: make([]tileconfig.Sheet, 0, len(out)+1),
	}
	for _, a := range out {
		doc.TilesNew = append(doc.TilesNew, a.desc)
	}
	doc.TilesNew = append(doc.TilesNew, ts.fallbackSheet())
	return doc, nil
}

func (ts *Tileset) resolveEntries(a *assembled) error {
	for _, file := range a.sheet.EntryFiles() {
		r := &tileentry.Resolver{
			Index:           ts.index,
			Processed:       ts.processed,
			Diag:            ts.diag,
			Namespace:       a.sheet.Namespace(),
			ObsoleteFillers: ts.opts.ObsoleteFillers,
			Source:          file.Path,
			Target:          ts.ConfigFile,
		}
		for i := range file.Entries {
			if e := r.Resolve(&file.Entries[i]); e != nil {
				a.desc.Tiles = append(a.desc.Tiles, e)
			}
			if err := ts.diag.Abort(); err != nil {
				return err
			}
		}
	}
	return nil
}

// flushUnreferenced reports the sprites of ns no entry claimed or, with
// UseAll, gives each one an entry in the sheet holding its index.
func (ts *Tileset) flushUnreferenced(ns spriteindex.Namespace, sheets []*assembled) error {
	for _, name := range ts.index.Unreferenced(ns) {
		switch {
		case !ts.opts.UseAll && ts.processed.Has(name):
			ts.diag.Errorf("tileset", "%s.png not used when %s ID is mentioned in a tile entry", name, name)
		case !ts.opts.UseAll:
			ts.diag.Warningf("tileset", "sprite filename %s was not used in any %s %s entries", name, ns, ts.ConfigFile)
		case ts.processed.Has(name):
			if ns == spriteindex.Main {
				ts.diag.Warningf("tileset", "%s sprite was not mentioned in any tile entry but there is a tile entry for the %s ID", name, name)
			} else if ts.opts.ObsoleteFillers {
				ts.diag.Warningf("tileset", "there is a tile entry for %s in a non-filler sheet", name)
			}
		default:
			ts.synthesize(name, ns, sheets)
		}
		if err := ts.diag.Abort(); err != nil {
			return err
		}
	}
	return nil
}

func (ts *Tileset) synthesize(name string, ns spriteindex.Namespace, sheets []*assembled) {
	i, _ := ts.index.Lookup(name)
	for _, a := range sheets {
		if i < a.sheet.FirstIndex || i > a.sheet.MaxIndex {
			continue
		}
		a.desc.Tiles = append(a.desc.Tiles, tileentry.Synthesized(name, i))
		ts.processed.Add(name)
		ts.index.Claim(name, ns)
		return
	}
	glog.V(1).Infof("no sheet holds index %d of %s", i, name)
}

func (ts *Tileset) fallbackSheet() tileconfig.Sheet {
	if ts.fallback == nil {
		return fallback.Synthesize("", nil)
	}
	return fallback.Synthesize(ts.fallback.Name, ts.fallback.Geometry())
}
