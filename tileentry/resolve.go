// Package tileentry decodes tile entries authored next to sprite images and
// resolves their sprite names to indices.
//
// An entry maps one or more game ids to a foreground and/or background
// layer. Each id may be emitted only once per tileset: IDSet remembers what
// was emitted, and the Resolver decides what a repeated id means depending
// on whether its sheet is a filler sheet.
package tileentry

import (
	"strings"

	"badc0de.net/pkg/go-tileset/diag"
	"badc0de.net/pkg/go-tileset/spriteindex"
)

// IDSet holds the ids already emitted into the configuration document.
type IDSet struct {
	ids map[string]bool
}

func NewIDSet() *IDSet {
	return &IDSet{ids: map[string]bool{}}
}

func (s *IDSet) Has(id string) bool {
	return s.ids[id]
}

// Add marks id as emitted and reports whether it was new.
func (s *IDSet) Add(id string) bool {
	if s.ids[id] {
		return false
	}
	s.ids[id] = true
	return true
}

// Resolver resolves the raw entries of one file.
type Resolver struct {
	Index     *spriteindex.Index
	Processed *IDSet
	Diag      *diag.Tracker

	// Namespace is the namespace of the sheet the file belongs to.
	Namespace       spriteindex.Namespace
	ObsoleteFillers bool

	// Source names the file in diagnostics; Target names the configuration
	// document.
	Source string
	Target string
}

// Resolve returns the resolved entry, or nil when nothing of it survives.
func (r *Resolver) Resolve(raw *RawEntry) *Entry {
	return r.resolve(raw, "")
}

func (r *Resolver) resolve(raw *RawEntry, prefix string) *Entry {
	if raw.Empty() {
		if len(raw.ID) > 0 {
			r.Diag.Warningf("tileentry", "skipping empty entry in %s with IDs %s%s", r.Source, prefix, strings.Join(raw.ID, ", "))
		} else {
			r.Diag.Warningf("tileentry", "skipping empty entry in %s", r.Source)
		}
		return nil
	}

	e := &Entry{
		Rotates:   raw.Rotates,
		Multitile: raw.Multitile,
		Animated:  raw.Animated,
		Height3D:  raw.Height3D,
		Extra:     raw.Extra,
	}
	e.FG = r.resolveLayer(raw.FG)
	e.BG = r.resolveLayer(raw.BG)
	if len(e.FG) == 0 && len(e.BG) == 0 {
		// Every missing name was reported already. The ids still count as
		// mentioned.
		r.markIDs(raw.ID, prefix)
		return nil
	}

	childPrefix := prefix + raw.ID[0] + "_"
	for i := range raw.AdditionalTiles {
		if child := r.resolve(&raw.AdditionalTiles[i], childPrefix); child != nil {
			e.Additional = append(e.Additional, child)
		}
	}

	e.IDs = r.markIDs(raw.ID, prefix)
	if len(e.IDs) == 0 {
		return nil
	}
	return e
}

// markIDs records ids under prefix and returns the ones not seen before.
// Repeats are errors, except in filler sheets.
func (r *Resolver) markIDs(ids StringList, prefix string) []string {
	var fresh []string
	filler := r.Namespace == spriteindex.Filler
	for _, id := range ids {
		fullID := prefix + id
		if r.Processed.Add(fullID) {
			fresh = append(fresh, id)
			continue
		}
		if filler {
			if r.ObsoleteFillers {
				r.Diag.Warningf("tileentry", "skipping filler for %s from %s", fullID, r.Source)
			}
			continue
		}
		r.Diag.Errorf("tileentry", "%s encountered more than once, last time in %s", fullID, r.Source)
	}
	return fresh
}

// resolveLayer keeps every part that resolves. Names missing from weighted
// variations only count as errors when no variation of the layer is left.
func (r *Resolver) resolveLayer(layer Layer) Ref {
	var (
		out        Ref
		variations int
		missingAlt []string
	)
	for _, part := range layer {
		if part.Variation != nil {
			v, missing := r.resolveVariation(part.Variation)
			missingAlt = append(missingAlt, missing...)
			if v != nil {
				out = append(out, RefPart{Variation: v})
				variations++
			}
			continue
		}
		if i, ok := r.lookup(part.Sprite); ok {
			out = append(out, RefPart{Index: i})
		} else if part.Sprite != "" {
			r.reportMissing(part.Sprite, false)
		}
	}
	for _, name := range missingAlt {
		r.reportMissing(name, variations > 0)
	}
	return out
}

func (r *Resolver) resolveVariation(v *Variation) (*ResolvedVariation, []string) {
	var (
		indices Ints
		missing []string
	)
	for _, name := range v.Sprite {
		if i, ok := r.lookup(name); ok {
			indices = append(indices, i)
		} else if name != "" {
			missing = append(missing, name)
		}
	}
	if len(v.Sprite) == 0 {
		r.Diag.Warningf("tileentry", "variation without sprite in %s", r.Source)
	}
	if len(indices) == 0 {
		return nil, missing
	}
	return &ResolvedVariation{Sprite: indices, Weight: v.Weight, Extra: v.Extra}, missing
}

func (r *Resolver) lookup(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	i, ok := r.Index.Lookup(name)
	if !ok || i == 0 {
		return 0, false
	}
	r.Index.Claim(name, r.Namespace)
	return i, true
}

func (r *Resolver) reportMissing(name string, alternativeLeft bool) {
	if alternativeLeft {
		r.Diag.Warningf("tileentry", "%s.png file for %s variation from %s was not found; other variations are kept", name, name, r.Source)
		return
	}
	r.Diag.Errorf("tileentry", "%s.png file for %s value from %s was not found. It will not be added to %s", name, name, r.Source, r.Target)
}
