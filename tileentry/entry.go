package tileentry

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Ints marshals as a bare number when it holds one element and as a list
// otherwise. The game tells single sprites from rotations by that shape.
type Ints []int

func (v Ints) MarshalJSON() ([]byte, error) {
	if len(v) == 1 {
		return json.Marshal(v[0])
	}
	return json.Marshal([]int(v))
}

// Strings is the string counterpart of Ints.
type Strings []string

func (v Strings) MarshalJSON() ([]byte, error) {
	if len(v) == 1 {
		return json.Marshal(v[0])
	}
	return json.Marshal([]string(v))
}

// ResolvedVariation is a weighted variation with sprite names replaced by
// indices.
type ResolvedVariation struct {
	Sprite Ints
	Weight *int
	Extra  map[string]json.RawMessage
}

func (v *ResolvedVariation) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	w.field("sprite", v.Sprite)
	if v.Weight != nil {
		w.field("weight", *v.Weight)
	}
	w.extra(v.Extra)
	return w.close()
}

// RefPart is one resolved element of a layer.
type RefPart struct {
	Index     int
	Variation *ResolvedVariation
}

func (p RefPart) MarshalJSON() ([]byte, error) {
	if p.Variation != nil {
		return p.Variation.MarshalJSON()
	}
	return json.Marshal(p.Index)
}

// Ref is a resolved fg or bg layer.
type Ref []RefPart

func (r Ref) MarshalJSON() ([]byte, error) {
	if len(r) == 1 {
		return r[0].MarshalJSON()
	}
	return json.Marshal([]RefPart(r))
}

// Entry is a tile entry ready for the configuration document.
type Entry struct {
	IDs Strings
	FG  Ref
	BG  Ref

	Rotates   *bool
	Multitile *bool
	Animated  *bool
	Height3D  *int

	Additional []*Entry

	Extra map[string]json.RawMessage
}

// Synthesized returns the entry generated for a sprite no entry mentioned.
func Synthesized(name string, index int) *Entry {
	return &Entry{IDs: Strings{name}, FG: Ref{{Index: index}}}
}

// MarshalJSON writes the known keys in a fixed order followed by the
// preserved unknown keys sorted by name, so output is reproducible.
func (e *Entry) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	w.field("id", e.IDs)
	if len(e.FG) > 0 {
		w.field("fg", e.FG)
	}
	if len(e.BG) > 0 {
		w.field("bg", e.BG)
	}
	if e.Rotates != nil {
		w.field("rotates", *e.Rotates)
	}
	if e.Multitile != nil {
		w.field("multitile", *e.Multitile)
	}
	if e.Animated != nil {
		w.field("animated", *e.Animated)
	}
	if e.Height3D != nil {
		w.field("height_3d", *e.Height3D)
	}
	if len(e.Additional) > 0 {
		w.field("additional_tiles", e.Additional)
	}
	w.extra(e.Extra)
	return w.close()
}

type objectWriter struct {
	buf bytes.Buffer
	n   int
	err error
}

func newObjectWriter() *objectWriter {
	w := &objectWriter{}
	w.buf.WriteByte('{')
	return w
}

func (w *objectWriter) raw(key string, value []byte) {
	if w.n > 0 {
		w.buf.WriteByte(',')
	}
	k, _ := json.Marshal(key)
	w.buf.Write(k)
	w.buf.WriteByte(':')
	w.buf.Write(value)
	w.n++
}

func (w *objectWriter) field(key string, v interface{}) {
	if w.err != nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		w.err = err
		return
	}
	w.raw(key, b)
}

func (w *objectWriter) extra(fields map[string]json.RawMessage) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var compact bytes.Buffer
		if err := json.Compact(&compact, fields[k]); err != nil {
			w.err = err
			return
		}
		w.raw(k, compact.Bytes())
	}
}

func (w *objectWriter) close() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	w.buf.WriteByte('}')
	return w.buf.Bytes(), nil
}
