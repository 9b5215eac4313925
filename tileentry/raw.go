package tileentry

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// StringList is a JSON value that is either one string or a list of strings.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	if one == "" {
		*s = nil
		return nil
	}
	*s = StringList{one}
	return nil
}

// Variation is one weighted alternative of a layer:
// {"sprite": "name" or ["name", ...], "weight": n}.
type Variation struct {
	Sprite StringList
	Weight *int

	// Extra holds keys other than sprite and weight.
	Extra map[string]json.RawMessage
}

func (v *Variation) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields["sprite"]; ok {
		if err := json.Unmarshal(raw, &v.Sprite); err != nil {
			return errors.Wrap(err, "variation sprite")
		}
		delete(fields, "sprite")
	}
	if raw, ok := fields["weight"]; ok {
		var w int
		if err := json.Unmarshal(raw, &w); err != nil {
			return errors.Wrap(err, "variation weight")
		}
		v.Weight = &w
		delete(fields, "weight")
	}
	if len(fields) > 0 {
		v.Extra = fields
	}
	return nil
}

// LayerPart is either a plain sprite name or a weighted variation.
type LayerPart struct {
	Sprite    string
	Variation *Variation
}

func (p *LayerPart) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		p.Variation = &Variation{}
		return p.Variation.UnmarshalJSON(data)
	}
	return json.Unmarshal(data, &p.Sprite)
}

// Layer is the raw value of fg or bg: a single sprite name, or a list of
// names (rotations, animation frames) and weighted variations.
type Layer []LayerPart

func (l *Layer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var parts []LayerPart
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		*l = parts
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	if name == "" {
		*l = nil
		return nil
	}
	*l = Layer{{Sprite: name}}
	return nil
}

// RawEntry is a tile entry as authored in a sheet's JSON files.
type RawEntry struct {
	ID StringList
	FG Layer
	BG Layer

	Rotates   *bool
	Multitile *bool
	Animated  *bool
	Height3D  *int

	AdditionalTiles []RawEntry

	// Extra holds every key not listed above, verbatim.
	Extra map[string]json.RawMessage
}

func (e *RawEntry) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	take := func(key string, dst interface{}) error {
		raw, ok := fields[key]
		if !ok {
			return nil
		}
		delete(fields, key)
		if err := json.Unmarshal(raw, dst); err != nil {
			return errors.Wrapf(err, "field %s", key)
		}
		return nil
	}
	for _, f := range []struct {
		key string
		dst interface{}
	}{
		{"id", &e.ID},
		{"fg", &e.FG},
		{"bg", &e.BG},
		{"rotates", &e.Rotates},
		{"multitile", &e.Multitile},
		{"animated", &e.Animated},
		{"height_3d", &e.Height3D},
		{"additional_tiles", &e.AdditionalTiles},
	} {
		if err := take(f.key, f.dst); err != nil {
			return err
		}
	}
	if len(fields) > 0 {
		e.Extra = fields
	}
	return nil
}

// Empty reports whether the entry lacks ids or any visual layer.
func (e *RawEntry) Empty() bool {
	return len(e.ID) == 0 || (len(e.FG) == 0 && len(e.BG) == 0)
}

// Decode reads a tile entry file holding one entry object or a list of them.
// Entries that fail to decode are returned as errors in entryErrs, at their
// position in the file; the rest are still returned.
func Decode(r io.Reader) (entries []RawEntry, entryErrs []error, err error) {
	var doc json.RawMessage
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, errors.Wrap(err, "decoding tile entries")
	}
	// A file holds exactly one value.
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, errors.Errorf("decoding tile entries: trailing data after offset %d", dec.InputOffset())
	}
	doc = bytes.TrimSpace(doc)

	var items []json.RawMessage
	if len(doc) > 0 && doc[0] == '[' {
		if err := json.Unmarshal(doc, &items); err != nil {
			return nil, nil, errors.Wrap(err, "decoding tile entry list")
		}
	} else {
		items = []json.RawMessage{doc}
	}

	for i, item := range items {
		var e RawEntry
		if err := json.Unmarshal(item, &e); err != nil {
			entryErrs = append(entryErrs, errors.Wrapf(err, "entry #%d", i))
			continue
		}
		entries = append(entries, e)
	}
	return entries, entryErrs, nil
}
