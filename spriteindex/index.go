// Package spriteindex assigns dense integer indices to sprite names.
//
// Index 0 always belongs to NullSprite, a transparent placeholder. Every
// other index is handed out in registration order, so sheets registered one
// after another occupy contiguous, strictly increasing ranges. Pad reserves
// unnamed indices for the empty cells at the end of a sheet grid.
package spriteindex

import (
	"fmt"
)

// NullSprite is the name of the placeholder occupying index 0.
const NullSprite = "null_image"

// Namespace separates main sprites from filler sprites.
type Namespace int

const (
	Main Namespace = iota
	Filler
)

func (ns Namespace) String() string {
	if ns == Filler {
		return "filler"
	}
	return "main"
}

// DuplicateSpriteError is returned when a name is registered in one namespace
// while already present in the other.
type DuplicateSpriteError struct {
	Name     string
	Existing Namespace
	Index    int
}

func (e *DuplicateSpriteError) Error() string {
	return fmt.Sprintf("sprite %s is already registered in the %s namespace at index %d", e.Name, e.Existing, e.Index)
}

type entry struct {
	index int
	ns    Namespace
}

// Index maps sprite names to indices and tracks which names no tile entry
// has claimed yet. It is not safe for concurrent use.
type Index struct {
	byName map[string]entry
	names  []string // by index; "" for padding

	// unreferenced keeps registration order; claimed names are removed.
	unreferenced [2][]string
	pending      [2]map[string]bool

	tolerateFillerOverrides bool
}

// New returns an index holding only NullSprite. With tolerateFillerOverrides
// a filler registration of a name that exists as a main sprite returns the
// main index instead of failing.
func New(tolerateFillerOverrides bool) *Index {
	idx := &Index{
		byName:                  map[string]entry{NullSprite: {index: 0, ns: Main}},
		names:                   []string{NullSprite},
		tolerateFillerOverrides: tolerateFillerOverrides,
	}
	idx.pending[Main] = map[string]bool{}
	idx.pending[Filler] = map[string]bool{}
	return idx
}

// Register assigns the next free index to name. Registering a name again in
// the same namespace returns its existing index.
func (idx *Index) Register(name string, ns Namespace) (int, error) {
	if e, ok := idx.byName[name]; ok {
		if e.ns == ns || e.index == 0 {
			return e.index, nil
		}
		if ns == Filler && idx.tolerateFillerOverrides {
			return e.index, nil
		}
		return e.index, &DuplicateSpriteError{Name: name, Existing: e.ns, Index: e.index}
	}
	i := len(idx.names)
	idx.names = append(idx.names, name)
	idx.byName[name] = entry{index: i, ns: ns}
	idx.unreferenced[ns] = append(idx.unreferenced[ns], name)
	idx.pending[ns][name] = true
	return i, nil
}

// Lookup returns the index of name.
func (idx *Index) Lookup(name string) (int, bool) {
	e, ok := idx.byName[name]
	return e.index, ok
}

// Name returns the sprite name at index i; padding cells and out of range
// indices give "".
func (idx *Index) Name(i int) string {
	if i < 0 || i >= len(idx.names) {
		return ""
	}
	return idx.names[i]
}

// Claim marks name as referenced within ns. It reports whether the name was
// still unreferenced there.
func (idx *Index) Claim(name string, ns Namespace) bool {
	if !idx.pending[ns][name] {
		return false
	}
	delete(idx.pending[ns], name)
	list := idx.unreferenced[ns]
	for i, n := range list {
		if n == name {
			idx.unreferenced[ns] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	return true
}

// Unreferenced returns the names of ns no entry has claimed, in registration
// order.
func (idx *Index) Unreferenced(ns Namespace) []string {
	out := make([]string, len(idx.unreferenced[ns]))
	copy(out, idx.unreferenced[ns])
	return out
}

// Last returns the highest index handed out so far, padding included.
func (idx *Index) Last() int {
	return len(idx.names) - 1
}

// Pad reserves n unnamed indices.
func (idx *Index) Pad(n int) {
	for i := 0; i < n; i++ {
		idx.names = append(idx.names, "")
	}
}
